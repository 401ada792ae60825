package evt

import (
	"github.com/bluekelp/ble/adv"
	"github.com/bluekelp/ble/buf"
	"github.com/pkg/errors"
)

// LEAdvertisingReport implements LE Advertising Report (0x3E:0x02)
// [Vol 2, Part E, 7.7.65.2]. The report rows are decoded lazily through
// Reports.
type LEAdvertisingReport struct {
	SubeventCode uint8
	NumReports   uint8
	rows         []byte
}

// Code returns the event code.
func (e *LEAdvertisingReport) Code() int { return LEMetaCode }

func (e *LEAdvertisingReport) unmarshal(r *buf.Reader) error {
	var err error
	if e.NumReports, err = r.ReadUint8(); err != nil {
		return errors.Wrap(err, "report count")
	}
	e.rows, err = r.ReadSlice(r.Remaining())
	return err
}

// Reports returns an iterator over the report rows. Every call starts at
// the first row; a single iterator is forward only.
func (e *LEAdvertisingReport) Reports() *ReportIter {
	return &ReportIter{r: buf.NewReader(e.rows), left: int(e.NumReports)}
}

// Report is one advertising report row.
type Report struct {
	EventType   uint8
	AddressType uint8
	Address     [6]byte
	RSSI        int8
	data        []byte
}

// Data returns a fresh iterator over the row's advertising data.
func (r Report) Data() *adv.Iter {
	return adv.NewIter(r.data)
}

// DataBytes returns the raw advertising data as a view into the event
// buffer.
func (r Report) DataBytes() []byte { return r.data }

// ReportIter walks the rows of an LEAdvertisingReport one at a time. It
// yields at most NumReports rows and stops early, with Err set, when a row
// runs past the end of the buffer.
type ReportIter struct {
	r    *buf.Reader
	left int
	cur  Report
	err  error
}

// Next advances to the next row.
func (it *ReportIter) Next() bool {
	if it.err != nil || it.left == 0 {
		return false
	}
	it.left--

	var hdr struct {
		EventType   uint8
		AddressType uint8
		Address     [6]byte
		DataLength  uint8
	}
	if err := it.r.ReadValue(&hdr); err != nil {
		it.err = errors.Wrap(err, "report row")
		return false
	}
	data, err := it.r.ReadSlice(int(hdr.DataLength))
	if err != nil {
		it.err = errors.Wrapf(err, "report data (%d bytes)", hdr.DataLength)
		return false
	}
	rssi, err := it.r.ReadUint8()
	if err != nil {
		it.err = errors.Wrap(err, "report rssi")
		return false
	}

	it.cur = Report{
		EventType:   hdr.EventType,
		AddressType: hdr.AddressType,
		Address:     hdr.Address,
		RSSI:        int8(rssi),
		data:        data,
	}
	return true
}

// Report returns the row decoded by the last successful Next.
func (it *ReportIter) Report() Report { return it.cur }

// Err returns the error that stopped iteration early, or nil.
func (it *ReportIter) Err() error { return it.err }
