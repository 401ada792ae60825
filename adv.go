package ble

// AdvHandler handles advertisement.
type AdvHandler func(a Advertisement)

// AdvFilter returns true if the advertisement matches specified condition.
type AdvFilter func(a Advertisement) bool

// Advertisement is the decoded view of one received advertising report.
// Accessors walk the advertising data lazily and report malformed records
// through their error return.
type Advertisement interface {
	LocalName() (string, error)
	ManufacturerData() ([]byte, error)
	ServiceData() ([]ServiceData, error)
	Services() ([]UUID, error)
	TxPowerLevel() (int, error)
	Connectable() (bool, error)
	EventType() (uint8, error)
	RSSI() (int, error)
	Addr() (Addr, error)

	ToMap() (map[string]interface{}, error)
}

// AdvertisementMapKeys are the keys used by Advertisement.ToMap.
var AdvertisementMapKeys = struct {
	MAC         string
	RSSI        string
	Name        string
	MFG         string
	Services    string
	ServiceData string
	Connectable string
	EventType   string
}{
	MAC:         "mac",
	RSSI:        "rssi",
	Name:        "name",
	MFG:         "mfg",
	Services:    "services",
	ServiceData: "serviceData",
	Connectable: "connectable",
	EventType:   "eventType",
}

// ServiceData is a service UUID with its advertised payload.
type ServiceData struct {
	UUID UUID
	Data []byte
}
