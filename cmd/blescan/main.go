package main

/*
* CLI to scan for, advertise and decode Bluetooth LE advertisements
 */

import (
	"encoding/hex"
	"fmt"
	"os"
	"strings"
	"time"

	jsoniter "github.com/json-iterator/go"
	"github.com/pkg/errors"
	"github.com/urfave/cli"

	"github.com/bluekelp/ble"
	"github.com/bluekelp/ble/adv"
	"github.com/bluekelp/ble/cache"
	"github.com/bluekelp/ble/hci"
	"github.com/bluekelp/ble/hci/evt"
)

var logger = ble.GetLogger()

func main() {
	app := cli.NewApp()
	app.Name = "blescan"
	app.Usage = "scan for, advertise and decode Bluetooth LE advertisements"
	app.Version = "0.1.0"
	app.Flags = []cli.Flag{
		cli.IntFlag{Name: "device, i", Usage: "HCI device id (hci<id>), -1 picks the first usable one", Value: -1},
		cli.StringFlag{Name: "uart", Usage: "H4 uart device, e.g. /dev/ttyACM0"},
		cli.StringFlag{Name: "cache", Usage: "device cache file", Value: "blescan.cache"},
		cli.BoolFlag{Name: "verbose", Usage: "log everything"},
	}
	app.Before = func(c *cli.Context) error {
		if c.GlobalBool("verbose") {
			ble.SetLogLevelMax()
		}
		return nil
	}
	app.Commands = []cli.Command{
		cli.Command{
			Name:  "scan",
			Usage: "stream decoded advertisements and update the device cache",
			Flags: []cli.Flag{
				cli.BoolFlag{Name: "dup", Usage: "report duplicates"},
				cli.DurationFlag{Name: "timeout", Usage: "how long to scan", Value: 10 * time.Second},
				cli.BoolFlag{Name: "json", Usage: "one JSON object per advertisement"},
			},
			Action: scanCommand,
		},
		cli.Command{
			Name:  "advertise",
			Usage: "advertise a name and services",
			Flags: []cli.Flag{
				cli.StringFlag{Name: "name", Usage: "local name", Value: "blescan"},
				cli.StringSliceFlag{Name: "uuid", Usage: "service uuid, repeatable"},
				cli.DurationFlag{Name: "timeout", Usage: "how long to advertise", Value: 30 * time.Second},
			},
			Action: advertiseCommand,
		},
		cli.Command{
			Name:      "decode",
			Usage:     "decode a hex dump of an HCI packet or a bare advertising payload",
			ArgsUsage: "<hex>",
			Action:    decodeCommand,
		},
		cli.Command{
			Name:   "devices",
			Usage:  "list cached devices",
			Action: devicesCommand,
		},
	}

	if err := app.Run(os.Args); err != nil {
		logger.Error(err)
		os.Exit(1)
	}
}

func newHost(c *cli.Context, opts ...ble.Option) (*hci.HCI, error) {
	if uart := c.GlobalString("uart"); uart != "" {
		opts = append(opts, ble.OptTransportH4Uart(uart))
	} else {
		opts = append(opts, ble.OptTransportHCISocket(c.GlobalInt("device")))
	}
	opts = append(opts, ble.OptErrorHandler(func(e error) { logger.Error(e) }))

	h, err := hci.New(opts...)
	if err != nil {
		return nil, err
	}
	if err := h.Init(); err != nil {
		return nil, err
	}
	return h, nil
}

func scanCommand(c *cli.Context) error {
	dc := cache.New(c.GlobalString("cache"))

	h, err := newHost(c)
	if err != nil {
		return err
	}
	defer h.Close()

	err = h.SetAdvHandler(func(a ble.Advertisement) {
		if err := report(a, c.Bool("json")); err != nil {
			logger.Error(err)
			return
		}
		if err := remember(dc, a); err != nil {
			logger.Debug("cache:", err)
		}
	})
	if err != nil {
		return err
	}

	if err := h.Scan(c.Bool("dup")); err != nil {
		return err
	}
	defer h.StopScanning()

	time.Sleep(c.Duration("timeout"))
	return nil
}

func report(a ble.Advertisement, asJSON bool) error {
	m, err := a.ToMap()
	if err != nil {
		return err
	}

	if asJSON {
		out, err := jsoniter.Marshal(m)
		if err != nil {
			return err
		}
		fmt.Println(string(out))
		return nil
	}

	addr, err := a.Addr()
	if err != nil {
		return err
	}
	rssi, _ := a.RSSI()
	line := fmt.Sprintf("%s %4d dBm", addr, rssi)
	if name, ok := m[ble.AdvertisementMapKeys.Name]; ok {
		line += fmt.Sprintf(" %q", name)
	}
	if svc, ok := m[ble.AdvertisementMapKeys.Services]; ok {
		line += fmt.Sprintf(" %v", svc)
	}
	fmt.Println(line)
	return nil
}

func remember(dc ble.DeviceCache, a ble.Advertisement) error {
	addr, err := a.Addr()
	if err != nil {
		return err
	}
	rssi, _ := a.RSSI()
	conn, _ := a.Connectable()

	d := ble.Device{
		Addr:        addr.String(),
		RSSI:        rssi,
		Connectable: conn,
		LastSeen:    time.Now().UTC(),
	}
	if name, err := a.LocalName(); err == nil {
		d.Name = name
	}
	if md, err := a.ManufacturerData(); err == nil && len(md) > 0 {
		d.ManufacturerData = md
	}
	if uu, err := a.Services(); err == nil {
		for _, u := range uu {
			d.Services = append(d.Services, u.String())
		}
	}

	return dc.Store(d, true)
}

func advertiseCommand(c *cli.Context) error {
	var uuids []ble.UUID
	for _, s := range c.StringSlice("uuid") {
		u, err := ble.Parse(s)
		if err != nil {
			return errors.Wrapf(err, "uuid %q", s)
		}
		uuids = append(uuids, u)
	}

	h, err := newHost(c)
	if err != nil {
		return err
	}
	defer h.Close()

	if err := h.AdvertiseNameAndServices(c.String("name"), uuids...); err != nil {
		return err
	}
	defer h.StopAdvertising()

	logger.Infof("advertising %q for %v", c.String("name"), c.Duration("timeout"))
	time.Sleep(c.Duration("timeout"))
	return nil
}

func decodeCommand(c *cli.Context) error {
	if c.NArg() != 1 {
		return fmt.Errorf("decode wants exactly one hex argument")
	}
	b, err := parseHex(c.Args().First())
	if err != nil {
		return err
	}
	if len(b) == 0 {
		return fmt.Errorf("empty input")
	}

	// Packet indicators live in 0x01..0x05; anything else is treated as a
	// bare advertising payload.
	if b[0] >= 0x01 && b[0] <= 0x05 {
		return decodePacket(b)
	}
	return printRecords(b, "")
}

func parseHex(s string) ([]byte, error) {
	clean := strings.Map(func(r rune) rune {
		switch r {
		case ' ', ':', '-', '\t':
			return -1
		}
		return r
	}, s)

	b, err := hex.DecodeString(clean)
	if err != nil {
		return nil, errors.Wrap(err, "hex input")
	}
	return b, nil
}

func decodePacket(b []byte) error {
	p, err := hci.Parse(b)
	if err != nil {
		return err
	}

	switch p := p.(type) {
	case hci.CommandPkt:
		fmt.Printf("command opcode 0x%04X (ogf 0x%02X, ocf 0x%04X), %d parameter bytes\n",
			p.OpCode, p.OpCode>>10, p.OpCode&0x03FF, len(p.Params))
		if len(p.Params) > 0 {
			fmt.Printf("  params % X\n", p.Params)
		}
	case hci.ACLDataPkt:
		fmt.Printf("acl data handle 0x%03X pb %d bc %d, %d data bytes\n",
			p.Handle, p.PB, p.BC, len(p.Data))
		if len(p.Data) > 0 {
			fmt.Printf("  data % X\n", p.Data)
		}
	case hci.EventPkt:
		fmt.Printf("event 0x%02X, %d parameter bytes\n", p.Code, len(p.Params))
		return decodeEvent(p)
	}
	return nil
}

func decodeEvent(p hci.EventPkt) error {
	if p.Code != evt.LEMetaCode || len(p.Params) == 0 || p.Params[0] != evt.LEAdvertisingReportSubCode {
		if len(p.Params) > 0 {
			fmt.Printf("  params % X\n", p.Params)
		}
		return nil
	}

	e, err := evt.Unmarshal(evt.LEMetaCode, p.Params)
	if err != nil {
		return err
	}
	rep := e.(*evt.LEAdvertisingReport)

	it := rep.Reports()
	for it.Next() {
		r := it.Report()
		fmt.Printf("  report type 0x%02X from %s, rssi %d\n",
			r.EventType, ble.WireAddr(r.Address[:]), r.RSSI)
		if err := printRecords(r.DataBytes(), "    "); err != nil {
			return err
		}
	}
	return it.Err()
}

func printRecords(b []byte, indent string) error {
	it := adv.NewIter(b)
	for it.Next() {
		r := it.Record()
		fmt.Printf("%s%s: %s\n", indent, adv.TypeName(r.Type()), formatRecord(r))
	}
	return it.Err()
}

func formatRecord(r adv.Record) string {
	switch r := r.(type) {
	case adv.Flags:
		return fmt.Sprintf("0x%02X", byte(r))
	case adv.SomeUUID16:
		return formatUUID16s(r)
	case adv.AllUUID16:
		return formatUUID16s(r)
	case adv.SomeUUID32:
		return formatUUID32s(r)
	case adv.AllUUID32:
		return formatUUID32s(r)
	case adv.SomeUUID128:
		return formatUUID128s(r)
	case adv.AllUUID128:
		return formatUUID128s(r)
	case adv.ShortName:
		return fmt.Sprintf("%q", string(r))
	case adv.CompleteName:
		return fmt.Sprintf("%q", string(r))
	case adv.TxPower:
		return fmt.Sprintf("%d dBm", int(r))
	case adv.ClassOfDevice:
		return fmt.Sprintf("0x%06X", uint32(r))
	case adv.Appearance:
		return fmt.Sprintf("0x%04X", uint16(r))
	case adv.ServiceData:
		return fmt.Sprintf("% X", []byte(r))
	case adv.ManufacturerData:
		return fmt.Sprintf("% X", []byte(r))
	case adv.Unknown:
		return fmt.Sprintf("% X", r.Payload)
	default:
		return fmt.Sprintf("%v", r)
	}
}

func formatUUID16s(uu []uint16) string {
	ss := make([]string, 0, len(uu))
	for _, u := range uu {
		ss = append(ss, fmt.Sprintf("%04x", u))
	}
	return strings.Join(ss, " ")
}

func formatUUID32s(uu []uint32) string {
	ss := make([]string, 0, len(uu))
	for _, u := range uu {
		ss = append(ss, fmt.Sprintf("%08x", u))
	}
	return strings.Join(ss, " ")
}

func formatUUID128s(uu []ble.UUID) string {
	ss := make([]string, 0, len(uu))
	for _, u := range uu {
		ss = append(ss, u.String())
	}
	return strings.Join(ss, " ")
}

func devicesCommand(c *cli.Context) error {
	dd, err := cache.New(c.GlobalString("cache")).All()
	if err != nil {
		return err
	}
	if len(dd) == 0 {
		fmt.Println("no cached devices")
		return nil
	}

	for _, d := range dd {
		line := fmt.Sprintf("%s %4d dBm", d.Addr, d.RSSI)
		if d.Name != "" {
			line += fmt.Sprintf(" %q", d.Name)
		}
		if len(d.Services) > 0 {
			line += " " + strings.Join(d.Services, " ")
		}
		line += " last seen " + d.LastSeen.Format(time.RFC3339)
		fmt.Println(line)
	}
	return nil
}
