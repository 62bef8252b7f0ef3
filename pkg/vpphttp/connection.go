package vpphttp

import (
	"sync/atomic"
	"time"
)

// ConnState is the connection-level state (spec §3).
type ConnState uint8

const (
	ConnListen ConnState = iota
	ConnConnecting
	ConnEstablished
	ConnTransportClosed
	ConnAppClosed
	ConnClosed
)

// ProtoState is the protocol state driven by the seven-state machine
// (spec §3, §4.5).
type ProtoState uint8

const (
	ProtoIdle ProtoState = iota
	ProtoWaitAppMethod
	ProtoWaitClientMethod
	ProtoWaitServerReply
	ProtoWaitAppReply
	ProtoClientIOMoreData
	ProtoAppIOMoreData
)

// Role distinguishes the server and client roles a Connection can hold
// (spec §3: "role flag: server vs client").
type Role uint8

const (
	RoleServer Role = iota
	RoleClient
)

// Connection is the hc record: one per accepted or connected HTTP
// session (spec §3). Fields mirror the spec's attribute list directly;
// layout and naming otherwise follow the teacher's Connection struct
// (http11/connection.go), generalized from a standalone net.Conn
// wrapper to a record addressed by stable pool Handle rather than held
// by direct reference.
type Connection struct {
	// identifiers
	WorkerID     uint8
	OwnIndex     uint32
	AppSessionID uint32
	AppWorkerID  uint8
	AppAPICtx    uint32
	TransportHdl uint64
	PeerHandle   Handle // application-session handle; InvalidHandle if absent

	Role Role

	connState  atomic.Uint32
	protoState atomic.Uint32

	// RX scratch buffer: grows on demand, drained after each parsed
	// message (spec §3 invariant: no pipelining).
	RXBuf       []byte
	RXBufOffset int

	// parsed offsets/lengths into RXBuf, refreshed by the wire parser.
	ControlDataLen   int
	TargetPathOff    int
	TargetPathLen    int
	TargetQueryOff   int
	TargetQueryLen   int
	HeadersOff       int
	HeadersLen       int
	BodyOffset       int
	BodyLen          int64

	Method       uint8
	TargetForm   TargetForm
	StatusCode   uint16

	// TX buffer descriptor for body streaming (APP_IO_MORE_DATA).
	TXBuffer HTTPBuffer

	// remaining-to-receive counter for multi-chunk body delivery
	// (CLIENT_IO_MORE_DATA).
	ToRecv int64

	// inactivity timer
	Timer           *InactivityTimer
	PendingTimer    atomic.Bool
	TimeoutDuration time.Duration

	// identity strings
	DisplayName   string
	HostAuthority string // client only

	// app-facing FIFOs
	AppRXFIFO FIFO
	AppTXFIFO FIFO

	// transport vtable this connection was accepted/connected through
	Transport TransportSession
}

func (c *Connection) ConnState() ConnState   { return ConnState(c.connState.Load()) }
func (c *Connection) SetConnState(s ConnState) { c.connState.Store(uint32(s)) }

func (c *Connection) ProtoState() ProtoState     { return ProtoState(c.protoState.Load()) }
func (c *Connection) SetProtoState(s ProtoState) { c.protoState.Store(uint32(s)) }

// Reset zeroes the parsed-offset and body-accounting fields so the
// record is ready to parse the next message; used after a fully
// drained exchange on the server's no-pipelining path.
func (c *Connection) Reset() {
	c.RXBuf = c.RXBuf[:0]
	c.RXBufOffset = 0
	c.ControlDataLen = 0
	c.TargetPathOff, c.TargetPathLen = 0, 0
	c.TargetQueryOff, c.TargetQueryLen = 0, 0
	c.HeadersOff, c.HeadersLen = 0, 0
	c.BodyOffset = 0
	c.BodyLen = 0
	c.Method = MethodUnknown
	c.TargetForm = TargetUnknown
	c.StatusCode = 0
	c.ToRecv = 0
}

// Handle returns the packed pool handle identifying this connection.
func (c *Connection) Handle() Handle {
	return MakeHandle(c.WorkerID, c.OwnIndex)
}

// HalfOpenRecord is the ho_hc record: one per outstanding outbound
// connect (spec §3). It carries prospective identity until the
// transport reports connected (copied into a Connection) or failed
// (freed after notifying the app).
type HalfOpenRecord struct {
	OwnIndex    uint32
	AppWorkerID uint8
	AppAPICtx   uint32
	Host        string
	Timeout     time.Duration
	DisplayName string
}

// ListenerRecord is the lhc record: one per bound endpoint (spec §3).
// Its protocol state is fixed at ProtoIdle / ConnListen.
type ListenerRecord struct {
	OwnIndex        uint32
	TransportHdl    uint64
	AppListenerHdl  uint64
	AppWorkerID     uint8
	TimeoutDefault  time.Duration
	DisplayName     string
}
