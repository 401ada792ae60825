package hci

import (
	"github.com/bluekelp/ble"
	"github.com/bluekelp/ble/adv"
)

// Addr returns the controller's own public device address.
func (h *HCI) Addr() ble.Addr { return ble.NewAddr(h.addr.String()) }

// SetAdvHandler ...
func (h *HCI) SetAdvHandler(ah ble.AdvHandler) error {
	h.advHandler = ah
	return nil
}

// Scan starts scanning.
func (h *HCI) Scan(allowDup bool) error {
	h.params.Lock()
	defer h.params.Unlock()

	if h.params.scanEnable.LEScanEnable == 1 {
		return ErrBusyScanning
	}

	h.params.scanEnable.FilterDuplicates = 1
	if allowDup {
		h.params.scanEnable.FilterDuplicates = 0
	}
	h.params.scanEnable.LEScanEnable = 1
	if err := h.Send(&h.params.scanEnable, nil); err != nil {
		h.params.scanEnable.LEScanEnable = 0
		return err
	}
	return nil
}

// StopScanning stops scanning.
func (h *HCI) StopScanning() error {
	h.params.Lock()
	defer h.params.Unlock()

	h.params.scanEnable.LEScanEnable = 0
	return h.Send(&h.params.scanEnable, nil)
}

// AdvertiseNameAndServices advertises device name, and specified service UUIDs.
// It tries to fit the UUIDs in the advertising data as much as possible.
// If name doesn't fit in the advertising data, it will be put in scan response.
func (h *HCI) AdvertiseNameAndServices(name string, uuids ...ble.UUID) error {
	ad, err := adv.NewPacket(adv.Flags(adv.FlagGeneralDiscoverable | adv.FlagLEOnly))
	if err != nil {
		return err
	}

	// Complete lists when every UUID fits, incomplete otherwise.
	// Current length of ad packet plus two bytes of length and tag.
	l := ad.Len() + 1 + 1
	for _, u := range uuids {
		l += u.Len()
	}
	complete := l <= adv.MaxEIRPacketLength

	rr, err := adv.UUIDRecords(complete, uuids)
	if err != nil {
		return err
	}
	for _, r := range rr {
		if err := ad.Append(r); err != nil {
			if err == adv.ErrNotFit {
				break
			}
			return err
		}
	}

	sr, _ := adv.NewPacket()
	switch {
	case ad.Append(adv.CompleteName(name)) == nil:
	case sr.Append(adv.CompleteName(name)) == nil:
	case sr.Append(adv.ShortName(name)) == nil:
	}
	if err := h.SetAdvertisement(ad.Bytes(), sr.Bytes()); err != nil {
		return err
	}
	return h.Advertise()
}

// AdvertiseMfgData advertises the given manufacturer data.
func (h *HCI) AdvertiseMfgData(id uint16, md []byte) error {
	ad, err := adv.NewPacket(adv.MfgData(id, md))
	if err != nil {
		return err
	}
	if err := h.SetAdvertisement(ad.Bytes(), nil); err != nil {
		return err
	}
	return h.Advertise()
}

// AdvertiseServiceData16 advertises data associated with a 16bit service uuid
func (h *HCI) AdvertiseServiceData16(id uint16, b []byte) error {
	ad, err := adv.NewPacket(adv.SvcData16(id, b))
	if err != nil {
		return err
	}
	if err := h.SetAdvertisement(ad.Bytes(), nil); err != nil {
		return err
	}
	return h.Advertise()
}

// Advertise starts advertising.
func (h *HCI) Advertise() error {
	h.params.Lock()
	defer h.params.Unlock()

	if h.params.advEnable.AdvertisingEnable == 1 {
		return ErrBusyAdvertising
	}

	h.params.advEnable.AdvertisingEnable = 1
	if err := h.Send(&h.params.advEnable, nil); err != nil {
		h.params.advEnable.AdvertisingEnable = 0
		return err
	}
	return nil
}

// StopAdvertising stops advertising.
func (h *HCI) StopAdvertising() error {
	h.params.Lock()
	defer h.params.Unlock()

	h.params.advEnable.AdvertisingEnable = 0
	return h.Send(&h.params.advEnable, nil)
}

// SetAdvertisement sets advertising data and scanResp.
func (h *HCI) SetAdvertisement(ad []byte, sr []byte) error {
	if len(ad) > adv.MaxEIRPacketLength || len(sr) > adv.MaxEIRPacketLength {
		return ble.ErrEIRPacketTooLong
	}

	h.params.Lock()
	defer h.params.Unlock()

	h.params.advData.AdvertisingDataLength = uint8(len(ad))
	copy(h.params.advData.AdvertisingData[:], ad)
	if err := h.Send(&h.params.advData, nil); err != nil {
		return err
	}

	h.params.scanResp.ScanResponseDataLength = uint8(len(sr))
	copy(h.params.scanResp.ScanResponseData[:], sr)
	if err := h.Send(&h.params.scanResp, nil); err != nil {
		return err
	}
	return nil
}
