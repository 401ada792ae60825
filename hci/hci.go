package hci

import (
	"fmt"
	"io"
	"net"
	"sync"
	"time"

	"github.com/pkg/errors"

	"github.com/bluekelp/ble"
	"github.com/bluekelp/ble/hci/cmd"
	"github.com/bluekelp/ble/hci/evt"
)

var logger = ble.GetLogger()

type handlerFn func(b []byte) error

type pkt struct {
	cmd  Command
	done chan []byte
}

// New returns an HCI host.
func New(opts ...ble.Option) (*HCI, error) {
	h := &HCI{
		chCmdBufs: make(chan []byte, chCmdBufChanSize),
		sent:      make(map[int]*pkt),

		evth: map[int]handlerFn{},
		subh: map[int]handlerFn{},

		done:      make(chan bool),
		sktRxChan: make(chan []byte, 16),
	}
	h.params.init()
	if err := h.Option(opts...); err != nil {
		return nil, errors.Wrap(err, "can't set options")
	}

	return h, nil
}

// HCI is a host that talks to a single controller.
type HCI struct {
	params params

	transport transport
	skt       io.ReadWriteCloser

	// Host to Controller command flow control [Vol 2, Part E, 4.4]
	chCmdBufs chan []byte
	muSent    sync.Mutex
	sent      map[int]*pkt

	// evtHub
	evth map[int]handlerFn
	subh map[int]handlerFn

	// Device information or status.
	addr net.HardwareAddr

	advHandlerSync bool
	advHandler     ble.AdvHandler

	// error handler
	errorHandler func(error)
	err          error

	muClose sync.Mutex
	done    chan bool

	sktRxChan chan []byte
}

// Init opens the transport and brings the controller to a known state.
func (h *HCI) Init() error {
	h.evth[evt.CommandCompleteCode] = h.handleCommandComplete
	h.evth[evt.CommandStatusCode] = h.handleCommandStatus
	h.evth[evt.LEMetaCode] = h.handleLEMeta

	h.subh[evt.LEAdvertisingReportSubCode] = h.handleLEAdvertisingReport

	var err error
	h.skt, err = getTransport(h.transport)
	if err != nil {
		return err
	}

	// check params
	p := &h.params
	if err = p.validate(); err != nil {
		return err
	}
	h.setAllowedCommands(1)

	go h.sktReadLoop()
	go h.sktProcessLoop()
	if err := h.init(); err != nil {
		return err
	}

	h.Send(&p.advParams, nil)
	h.Send(&p.scanParams, nil)
	return nil
}

func (h *HCI) init() error {
	logger.Info("hci reset")
	if err := h.Send(&cmd.Reset{}, nil); err != nil {
		return errors.Wrap(err, "reset")
	}

	// Unmask the events this host consumes [Vol 2, Part E, 7.3.1, 7.8.1].
	if err := h.Send(&cmd.SetEventMask{EventMask: 0x3dbff807fffbffff}, nil); err != nil {
		return errors.Wrap(err, "set event mask")
	}
	if err := h.Send(&cmd.LESetEventMask{LEEventMask: 0x000000000000001F}, nil); err != nil {
		return errors.Wrap(err, "le set event mask")
	}

	ReadBDADDRRP := cmd.ReadBDADDRRP{}
	if err := h.Send(&cmd.ReadBDADDR{}, &ReadBDADDRRP); err != nil {
		return errors.Wrap(err, "read bd_addr")
	}

	a := ReadBDADDRRP.BDADDR
	h.addr = net.HardwareAddr([]byte{a[5], a[4], a[3], a[2], a[1], a[0]})

	return nil
}

func (h *HCI) cleanup() {
	h.close(nil)

	// clean out all sent commands so nothing waits on a dead socket
	h.muSent.Lock()
	for k := range h.sent {
		delete(h.sent, k)
	}
	h.muSent.Unlock()
}

// Close ...
func (h *HCI) Close() error {
	h.muClose.Lock()
	defer h.muClose.Unlock()

	select {
	case <-h.done:
		// already closed, nothing to do
	default:
		close(h.done)
	}

	return nil
}

// Error ...
func (h *HCI) Error() error {
	return h.err
}

// Option sets the options specified.
func (h *HCI) Option(opts ...ble.Option) error {
	var err error
	for _, opt := range opts {
		err = opt(h)
	}
	return err
}

func (h *HCI) isOpen() bool {
	select {
	case <-h.done:
		return false
	default:
		return true
	}
}

// Send sends c to the controller, waits for its response, and unmarshals the
// return parameters into r when given.
func (h *HCI) Send(c Command, r CommandRP) error {
	b, err := h.send(c)
	if err != nil {
		return err
	}
	if len(b) > 0 && b[0] != 0x00 {
		return ErrCommand(b[0])
	}
	if r != nil {
		return r.Unmarshal(b)
	}
	return nil
}

func (h *HCI) checkOpCodeFree(opCode int) error {
	h.muSent.Lock()
	defer h.muSent.Unlock()

	if _, ok := h.sent[opCode]; ok {
		return fmt.Errorf("command with opcode 0x%04X pending", opCode)
	}

	return nil
}

func (h *HCI) send(c Command) ([]byte, error) {
	if h.err != nil {
		return nil, h.err
	}

	p := &pkt{c, make(chan []byte)}

	// verify the opcode is free before asking for a command buffer so the
	// buffer is only taken if the command can be sent
	if err := h.checkOpCodeFree(c.OpCode()); err != nil {
		return nil, err
	}

	// get buffer w/timeout
	var b []byte
	select {
	case <-h.done:
		return nil, fmt.Errorf("hci closed")
	case b = <-h.chCmdBufs:
	case <-time.After(chCmdBufTimeout):
		err := fmt.Errorf("chCmdBufs get timeout")
		h.dispatchError(err)
		return nil, err
	}

	n, err := MarshalCommand(c, b)
	if err != nil {
		return nil, errors.Wrap(err, "marshal cmd")
	}

	h.muSent.Lock()
	h.sent[c.OpCode()] = p
	h.muSent.Unlock()

	if !h.isOpen() {
		return nil, fmt.Errorf("hci closed")
	} else if m, err := h.skt.Write(b[:n]); err != nil {
		h.close(errors.Wrap(err, "send cmd"))
	} else if m != n {
		h.close(fmt.Errorf("short cmd write: %v of %v", m, n))
	}

	var ret []byte

	// Emergency timeout to prevent calls from locking up if the controller
	// doesn't respond. Responses are normally fast; a timeout indicates a
	// major problem with the HCI link.
	select {
	case <-time.After(cmdResponseTimeout):
		err = fmt.Errorf("no response to %v", c)
		h.dispatchError(err)
	case <-h.done:
		err = h.err
	case b := <-p.done:
		ret = b
	}

	// Clear the sent table when done. Command responses with no matching
	// send would otherwise hit stale packets.
	h.muSent.Lock()
	delete(h.sent, c.OpCode())
	h.muSent.Unlock()

	return ret, err
}

func (h *HCI) sktProcessLoop() {
	defer h.cleanup()

	for {
		var p []byte
		var ok bool

		select {
		case <-h.done:
			h.err = io.EOF
			return

		case p, ok = <-h.sktRxChan:
			if !ok {
				h.err = io.EOF
				return
			}
		}

		// Framing is per packet, so a packet this host cannot place does
		// not tear the stream down.
		if err := h.handlePkt(p); err != nil {
			h.dispatchError(err)
		}
	}
}

func (h *HCI) sktReadLoop() {
	defer close(h.sktRxChan)

	b := make([]byte, 4096)

	for {
		n, err := h.skt.Read(b)

		switch {
		case n == 0 && err == nil:
			// read timeout
			select {
			case <-h.done:
				return
			default:
				continue
			}

		// callers depend on detecting io.EOF, don't wrap it
		case err == io.EOF:
			h.err = err
			return

		case err != nil:
			h.err = errors.Wrap(err, "skt read")
			return

		default:
			p := make([]byte, n)
			copy(p, b)
			h.sktRxChan <- p
		}
	}
}

func (h *HCI) close(err error) error {
	if err != nil {
		h.err = err
	}
	if h.skt != nil {
		return h.skt.Close()
	}
	return nil
}

func (h *HCI) handlePkt(b []byte) error {
	p, err := Parse(b)
	if err != nil {
		return err
	}

	switch p := p.(type) {
	case EventPkt:
		return h.handleEvt(p)
	case ACLDataPkt:
		// no open connections to route data to
		logger.Debug("hci", "dropping acl data", fmt.Sprintf("handle 0x%03X, %v bytes", p.Handle, len(p.Data)))
		return nil
	case CommandPkt:
		return fmt.Errorf("unmanaged cmd: % X", b)
	default:
		return fmt.Errorf("unhandled packet: % X", b)
	}
}

func (h *HCI) handleEvt(e EventPkt) error {
	if f := h.evth[int(e.Code)]; f != nil {
		return f(e.Params)
	}
	return evt.ErrUnknownEvent(e.Code)
}

func (h *HCI) handleLEMeta(b []byte) error {
	if len(b) == 0 {
		return fmt.Errorf("le meta event without subevent code")
	}
	if f := h.subh[int(b[0])]; f != nil {
		return f(b)
	}
	return evt.ErrUnknownSubevent(b[0])
}

func (h *HCI) makeAdvError(e error, b []byte) error {
	err := fmt.Errorf("%v, bytes % X", e, b)
	h.dispatchError(err)
	return err
}

func (h *HCI) handleLEAdvertisingReport(b []byte) error {
	if h.advHandler == nil {
		return nil
	}

	e, err := evt.Unmarshal(evt.LEMetaCode, b)
	if err != nil {
		return h.makeAdvError(errors.Wrap(err, "advertising report"), b)
	}
	rep := e.(*evt.LEAdvertisingReport)

	it := rep.Reports()
	for it.Next() {
		r := it.Report()
		if r.EventType > evtTypScanRsp {
			h.makeAdvError(fmt.Errorf("invalid event type %v", r.EventType), b)
			continue
		}

		// Scan responses are reported like any other row; associating them
		// with a prior advertising packet is up to the handler.
		a := newAdvertisement(r)
		if h.advHandlerSync {
			h.advHandler(a)
		} else {
			go h.advHandler(a)
		}
	}
	if err := it.Err(); err != nil {
		return h.makeAdvError(errors.Wrap(err, "advertising report"), b)
	}

	return nil
}

func (h *HCI) handleCommandComplete(b []byte) error {
	e := &evt.CommandComplete{}
	if err := e.Unmarshal(b); err != nil {
		return err
	}
	h.setAllowedCommands(int(e.NumHCICommandPackets))

	// NOP command, used for flow control purpose [Vol 2, Part E, 4.4]
	// no handling other than setAllowedCommands needed
	if e.CommandOpcode == 0x0000 {
		return nil
	}

	h.muSent.Lock()
	p, found := h.sent[int(e.CommandOpcode)]
	h.muSent.Unlock()

	if !found {
		return fmt.Errorf("can't find the cmd for CommandComplete: % X", b)
	}

	select {
	case <-h.done:
		return fmt.Errorf("hci closed")
	case p.done <- e.ReturnParameters():
		return nil
	}
}

func (h *HCI) handleCommandStatus(b []byte) error {
	e := &evt.CommandStatus{}
	if err := e.Unmarshal(b); err != nil {
		return err
	}
	h.setAllowedCommands(int(e.NumHCICommandPackets))

	h.muSent.Lock()
	p, found := h.sent[int(e.CommandOpcode)]
	h.muSent.Unlock()

	if !found {
		return fmt.Errorf("can't find the cmd for CommandStatus: % X", b)
	}

	select {
	case <-h.done:
		return fmt.Errorf("hci closed")
	case p.done <- []byte{e.Status}:
		return nil
	}
}

func (h *HCI) setAllowedCommands(n int) {
	if n > chCmdBufChanSize {
		logger.Warnf("hci: setAllowedCommands capping %d -> %d", n, chCmdBufChanSize)
		n = chCmdBufChanSize
	}

	// put with timeout
	for len(h.chCmdBufs) < n {
		select {
		case <-h.done:
			return
		case h.chCmdBufs <- make([]byte, chCmdBufElementSize):
		case <-time.After(chCmdBufTimeout):
			h.dispatchError(fmt.Errorf("chCmdBufs put timeout"))
			return
		}
	}
}

func (h *HCI) dispatchError(e error) {
	switch {
	case h.errorHandler == nil:
		logger.Error(e)
	case !h.isOpen():
		logger.Debug("hci closing:", e)
	default:
		h.errorHandler(e)
	}
}
