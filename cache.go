package ble

import "time"

// Device is one discovered peripheral as remembered between scans.
type Device struct {
	Addr             string    `json:"addr"`
	Name             string    `json:"name,omitempty"`
	RSSI             int       `json:"rssi"`
	Connectable      bool      `json:"connectable"`
	Services         []string  `json:"services,omitempty"`
	ManufacturerData []byte    `json:"mfg,omitempty"`
	LastSeen         time.Time `json:"lastSeen"`
}

// DeviceCache persists discovered devices across runs.
type DeviceCache interface {
	Store(Device, bool) error
	Load(Addr) (Device, error)
	All() ([]Device, error)
	Clear() error
}
