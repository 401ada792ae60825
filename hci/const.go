package hci

import "time"

// HCI packet indicators, the first byte of every uart packet
// [Vol 4, Part A, 2].
const (
	pktTypeCommand uint8 = 0x01
	pktTypeACLData uint8 = 0x02
	pktTypeSCOData uint8 = 0x03
	pktTypeEvent   uint8 = 0x04
	pktTypeISOData uint8 = 0x05
)

// Packet boundary flags of an HCI ACL Data packet [Vol 2, Part E, 5.4.2].
const (
	pbfHostToControllerStart = 0x00
	pbfContinuing            = 0x01
	pbfControllerToHostStart = 0x02
	pbfCompleteL2CAPPDU      = 0x03
)

// Advertising event types reported in an LE Advertising Report
// [Vol 2, Part E, 7.7.65.2].
const (
	evtTypAdvInd        = 0x00 // Connectable undirected advertising (ADV_IND).
	evtTypAdvDirectInd  = 0x01 // Connectable directed advertising (ADV_DIRECT_IND).
	evtTypAdvScanInd    = 0x02 // Scannable undirected advertising (ADV_SCAN_IND).
	evtTypAdvNonconnInd = 0x03 // Non connectable undirected advertising (ADV_NONCONN_IND).
	evtTypScanRsp       = 0x04 // Scan Response (SCAN_RSP).
)

// Opcode group of vendor specific debug commands [Vol 2, Part E, 5.4.1].
const (
	ogfVendorSpecificDebug = 0x3F
	ogfBitShift            = 10
)

// A command carries at most 255 parameter bytes, the length field is one
// byte [Vol 2, Part E, 5.4.1].
const maxCmdParamLength = 0xFF

// Command flow control toward the controller [Vol 2, Part E, 4.4].
// The controller grants command credits through the Num_HCI_Command_Packets
// field of Command Complete and Command Status events; each credit is backed
// by one preallocated command buffer.
const (
	chCmdBufChanSize    = 8
	chCmdBufElementSize = 64
	chCmdBufTimeout     = time.Second * 5
	cmdResponseTimeout  = time.Second * 3
)
