package hci

import (
	"strings"

	"github.com/pkg/errors"

	"github.com/bluekelp/ble"
	"github.com/bluekelp/ble/adv"
	"github.com/bluekelp/ble/hci/evt"
)

// RandomAddress is a Random Device Address.
type RandomAddress struct {
	ble.Addr
}

func newAdvertisement(r evt.Report) *Advertisement {
	return &Advertisement{r: r, p: adv.NewRawPacket(r.DataBytes())}
}

// Advertisement wraps a single advertising report as a ble.Advertisement.
// The advertising data payload is decoded on first use; a malformed payload
// surfaces through the error return of every accessor that needs it.
type Advertisement struct {
	r evt.Report
	p *adv.Packet

	decoded    bool
	payloadErr error
}

// decode walks the advertising data once and remembers the first malformed
// record, if any.
func (a *Advertisement) decode() error {
	if !a.decoded {
		_, a.payloadErr = a.p.Records()
		a.decoded = true
	}
	return a.payloadErr
}

// LocalName returns the LocalName of the remote peripheral.
func (a *Advertisement) LocalName() (string, error) {
	if err := a.decode(); err != nil {
		return "", err
	}
	n, _ := a.p.LocalName()
	return n, nil
}

// ManufacturerData returns the ManufacturerData of the advertisement.
func (a *Advertisement) ManufacturerData() ([]byte, error) {
	if err := a.decode(); err != nil {
		return nil, err
	}
	return a.p.ManufacturerData(), nil
}

// ServiceData returns the service data of the advertisement.
func (a *Advertisement) ServiceData() ([]ble.ServiceData, error) {
	if err := a.decode(); err != nil {
		return nil, err
	}
	return a.p.ServiceData(), nil
}

// Services returns the service UUIDs of the advertisement.
func (a *Advertisement) Services() ([]ble.UUID, error) {
	if err := a.decode(); err != nil {
		return nil, err
	}
	return a.p.UUIDs(), nil
}

// TxPowerLevel returns the tx power level of the remote peripheral.
func (a *Advertisement) TxPowerLevel() (int, error) {
	if err := a.decode(); err != nil {
		return 0, err
	}
	pwr, _ := a.p.TxPower()
	return pwr, nil
}

// Connectable indicates whether the remote peripheral is connectable.
func (a *Advertisement) Connectable() (bool, error) {
	t, err := a.EventType()
	if err != nil {
		return false, err
	}

	c := (t == evtTypAdvDirectInd) || (t == evtTypAdvInd)
	return c, nil
}

// RSSI returns RSSI signal strength.
func (a *Advertisement) RSSI() (int, error) {
	return int(a.r.RSSI), nil
}

// Addr returns the address of the remote peripheral.
func (a *Advertisement) Addr() (ble.Addr, error) {
	addr := ble.WireAddr(a.r.Address[:])
	if a.r.AddressType == AddressTypeRandom {
		return RandomAddress{addr}, nil
	}
	return addr, nil
}

// EventType returns the event type of the Advertisement.
func (a *Advertisement) EventType() (uint8, error) {
	return a.r.EventType, nil
}

// AddressType returns the address type of the Advertisement.
func (a *Advertisement) AddressType() (uint8, error) {
	return a.r.AddressType, nil
}

// Data returns the raw advertising data of the report.
func (a *Advertisement) Data() []byte {
	return a.p.Bytes()
}

func (a *Advertisement) ToMap() (map[string]interface{}, error) {
	m := make(map[string]interface{})
	keys := ble.AdvertisementMapKeys

	addr, err := a.Addr()
	if err != nil {
		return nil, errors.Wrap(err, keys.MAC)
	}
	m[keys.MAC] = strings.Replace(addr.String(), ":", "", -1)

	et, err := a.EventType()
	if err != nil {
		return nil, errors.Wrap(err, keys.EventType)
	}
	m[keys.EventType] = et

	c, err := a.Connectable()
	if err != nil {
		return nil, errors.Wrap(err, keys.Connectable)
	}
	m[keys.Connectable] = c

	r, err := a.RSSI()
	if err != nil {
		return nil, errors.Wrap(err, keys.RSSI)
	}
	if r != 0 {
		m[keys.RSSI] = r
	} else {
		m[keys.RSSI] = -128
	}

	// decode the payload and bail before we try picking stuff out
	if err := a.decode(); err != nil {
		return nil, errors.Wrap(err, "pdu")
	}

	ln, err := a.LocalName()
	if err != nil {
		return nil, errors.Wrap(err, keys.Name)
	}
	if len(ln) != 0 {
		m[keys.Name] = ln
	}

	md, err := a.ManufacturerData()
	if err != nil {
		return nil, errors.Wrap(err, keys.MFG)
	}
	if md != nil {
		m[keys.MFG] = md
	}

	v, err := a.Services()
	if err != nil {
		return nil, errors.Wrap(err, keys.Services)
	}
	if v != nil {
		m[keys.Services] = v
	}

	sd, err := a.ServiceData()
	if err != nil {
		return nil, errors.Wrap(err, keys.ServiceData)
	}
	if sd != nil {
		m[keys.ServiceData] = sd
	}

	return m, nil
}
