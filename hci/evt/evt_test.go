package evt

import (
	"bytes"
	"reflect"
	"testing"

	"github.com/bluekelp/ble/buf"
	"github.com/pkg/errors"
)

func reportRow(evtType, addrType byte, addr [6]byte, data []byte, rssi int8) []byte {
	row := []byte{evtType, addrType}
	row = append(row, addr[:]...)
	row = append(row, byte(len(data)))
	row = append(row, data...)
	row = append(row, byte(rssi))
	return row
}

func advReport(numReports byte, rows ...[]byte) []byte {
	params := []byte{LEAdvertisingReportSubCode, numReports}
	for _, r := range rows {
		params = append(params, r...)
	}
	return params
}

func collectRows(t *testing.T, e *LEAdvertisingReport) ([]Report, error) {
	t.Helper()
	var rr []Report
	it := e.Reports()
	for it.Next() {
		rr = append(rr, it.Report())
	}
	return rr, it.Err()
}

func TestCommandComplete(t *testing.T) {
	e, err := Unmarshal(CommandCompleteCode, []byte{0x01, 0x03, 0x0C, 0x00})
	if err != nil {
		t.Fatalf("unmarshal: %v", err)
	}
	cc, ok := e.(*CommandComplete)
	if !ok {
		t.Fatalf("wrong type %v", reflect.TypeOf(e))
	}
	if cc.NumHCICommandPackets != 1 {
		t.Fatalf("num packets %d", cc.NumHCICommandPackets)
	}
	if cc.CommandOpcode != 0x0C03 {
		t.Fatalf("opcode %#04x, want 0x0C03", cc.CommandOpcode)
	}
	if !bytes.Equal(cc.ReturnParameters(), []byte{0x00}) {
		t.Fatalf("return parameters % X", cc.ReturnParameters())
	}
}

func TestCommandCompleteTruncated(t *testing.T) {
	_, err := Unmarshal(CommandCompleteCode, []byte{0x01, 0x03})
	if errors.Cause(err) != buf.ErrTruncated {
		t.Fatalf("err = %v, want ErrTruncated", err)
	}
}

func TestCommandStatus(t *testing.T) {
	e, err := Unmarshal(CommandStatusCode, []byte{0x0C, 0x01, 0x0C, 0x20})
	if err != nil {
		t.Fatalf("unmarshal: %v", err)
	}
	cs, ok := e.(*CommandStatus)
	if !ok {
		t.Fatalf("wrong type %v", reflect.TypeOf(e))
	}
	if cs.Status != 0x0C || cs.NumHCICommandPackets != 1 || cs.CommandOpcode != 0x200C {
		t.Fatalf("decoded %+v", cs)
	}
}

func TestUnknownEvent(t *testing.T) {
	_, err := Unmarshal(0x13, []byte{0x01})
	if err != ErrUnknownEvent(0x13) {
		t.Fatalf("err = %v, want unknown event 0x13", err)
	}
}

func TestUnknownSubevent(t *testing.T) {
	_, err := Unmarshal(LEMetaCode, []byte{0x0A, 0x00})
	if err != ErrUnknownSubevent(0x0A) {
		t.Fatalf("err = %v, want unknown subevent 0x0A", err)
	}
}

func TestEmptyReport(t *testing.T) {
	params := advReport(1, reportRow(0, 0, [6]byte{}, nil, 0))
	if len(params) != 12 {
		t.Fatalf("fixture %d bytes, want 12", len(params))
	}

	e, err := Unmarshal(LEMetaCode, params)
	if err != nil {
		t.Fatalf("unmarshal: %v", err)
	}
	rep, ok := e.(*LEAdvertisingReport)
	if !ok {
		t.Fatalf("wrong type %v", reflect.TypeOf(e))
	}
	if rep.NumReports != 1 {
		t.Fatalf("num reports %d", rep.NumReports)
	}

	rows, err := collectRows(t, rep)
	if err != nil || len(rows) != 1 {
		t.Fatalf("rows %d, err %v", len(rows), err)
	}
	r := rows[0]
	if r.EventType != 0 || r.AddressType != 0 || r.RSSI != 0 {
		t.Fatalf("row %+v", r)
	}
	if len(r.DataBytes()) != 0 {
		t.Fatalf("data % X, want empty", r.DataBytes())
	}

	ad := r.Data()
	if ad.Next() {
		t.Fatal("empty advertising data yielded a record")
	}
	if ad.Err() != nil {
		t.Fatalf("empty advertising data error %v", ad.Err())
	}
}

func TestTwoReports(t *testing.T) {
	row1 := reportRow(0x00, 0x01, [6]byte{1, 2, 3, 4, 5, 6}, []byte{0x02, 0x01, 0x06}, -40)
	row2 := reportRow(0x04, 0x00, [6]byte{6, 5, 4, 3, 2, 1}, []byte{0x05, 0x09, 'A', 'B', 'C', 'D'}, -70)
	e, err := Unmarshal(LEMetaCode, advReport(2, row1, row2))
	if err != nil {
		t.Fatalf("unmarshal: %v", err)
	}

	rows, err := collectRows(t, e.(*LEAdvertisingReport))
	if err != nil || len(rows) != 2 {
		t.Fatalf("rows %d, err %v", len(rows), err)
	}

	if rows[0].EventType != 0x00 || rows[0].AddressType != 0x01 ||
		rows[0].Address != [6]byte{1, 2, 3, 4, 5, 6} || rows[0].RSSI != -40 {
		t.Fatalf("first row %+v", rows[0])
	}
	if rows[1].EventType != 0x04 || rows[1].RSSI != -70 {
		t.Fatalf("second row %+v", rows[1])
	}
	if !bytes.Equal(rows[1].DataBytes(), []byte{0x05, 0x09, 'A', 'B', 'C', 'D'}) {
		t.Fatalf("second row data % X", rows[1].DataBytes())
	}
}

func TestReportNestedData(t *testing.T) {
	row := reportRow(0, 0, [6]byte{}, []byte{0x02, 0x01, 0x06, 0x05, 0x09, 'A', 'B', 'C', 'D'}, -1)
	e, err := Unmarshal(LEMetaCode, advReport(1, row))
	if err != nil {
		t.Fatalf("unmarshal: %v", err)
	}

	it := e.(*LEAdvertisingReport).Reports()
	if !it.Next() {
		t.Fatalf("no rows, err %v", it.Err())
	}
	r := it.Report()

	// a fresh data iterator per call, each walking from the start
	for i := 0; i < 2; i++ {
		ad := r.Data()
		var types []byte
		for ad.Next() {
			types = append(types, ad.Record().Type())
		}
		if ad.Err() != nil {
			t.Fatalf("pass %d: %v", i, ad.Err())
		}
		if !bytes.Equal(types, []byte{0x01, 0x09}) {
			t.Fatalf("pass %d: record types % X", i, types)
		}
	}
}

func TestReportCountShort(t *testing.T) {
	row := reportRow(0, 0, [6]byte{}, nil, 0)
	e, err := Unmarshal(LEMetaCode, advReport(2, row))
	if err != nil {
		t.Fatalf("unmarshal: %v", err)
	}

	rows, err := collectRows(t, e.(*LEAdvertisingReport))
	if len(rows) != 1 {
		t.Fatalf("rows %d, want 1", len(rows))
	}
	if errors.Cause(err) != buf.ErrTruncated {
		t.Fatalf("err = %v, want ErrTruncated", err)
	}
}

func TestReportDataOverrun(t *testing.T) {
	// length byte claims 10 data bytes, only 2 plus the rssi follow
	row := []byte{0x00, 0x00, 0, 0, 0, 0, 0, 0, 10, 0xAA, 0xBB, 0xD8}
	e, err := Unmarshal(LEMetaCode, advReport(1, row))
	if err != nil {
		t.Fatalf("unmarshal: %v", err)
	}

	it := e.(*LEAdvertisingReport).Reports()
	if it.Next() {
		t.Fatal("overrunning row decoded")
	}
	if errors.Cause(it.Err()) != buf.ErrTruncated {
		t.Fatalf("err = %v, want ErrTruncated", it.Err())
	}
	if it.Next() {
		t.Fatal("iterator advanced past a failed row")
	}
}

func TestReportCountBounds(t *testing.T) {
	// a second row beyond the advertised count stays unread
	row := reportRow(0, 0, [6]byte{}, nil, 0)
	e, err := Unmarshal(LEMetaCode, advReport(1, row, row))
	if err != nil {
		t.Fatalf("unmarshal: %v", err)
	}
	rows, err := collectRows(t, e.(*LEAdvertisingReport))
	if err != nil || len(rows) != 1 {
		t.Fatalf("rows %d, err %v", len(rows), err)
	}
}

func TestDecodeTwiceSame(t *testing.T) {
	params := advReport(1, reportRow(0x03, 0x01, [6]byte{0xC0, 1, 2, 3, 4, 5}, []byte{0x02, 0x01, 0x04}, -55))

	decode := func() []Report {
		e, err := Unmarshal(LEMetaCode, params)
		if err != nil {
			t.Fatalf("unmarshal: %v", err)
		}
		rows, err := collectRows(t, e.(*LEAdvertisingReport))
		if err != nil {
			t.Fatalf("rows: %v", err)
		}
		return rows
	}

	if a, b := decode(), decode(); !reflect.DeepEqual(a, b) {
		t.Fatalf("decode not repeatable:\n%+v\n%+v", a, b)
	}
}
