package vpphttp

import (
	"sync"
	"sync/atomic"
	"time"

	"github.com/hashicorp/go-hclog"
)

// TransportSession is the per-connection downward send surface a host
// transport hands the engine at accept/connected time (spec §4.6
// downward contract, folded into the single send/close/address
// surface the state machine actually calls).
type TransportSession interface {
	Send(p []byte) (int, error)
	Close() error
	RemoteAddr() string
}

// ExtensionTag selects which per-endpoint extension block an Endpoint
// carries (spec §6 "Endpoint extensions").
type ExtensionTag uint8

const (
	ExtNone ExtensionTag = iota
	ExtHTTP
	ExtCrypto
)

// ListenerUpgrader is the minimal hook StartListen calls through for a
// CRYPTO extension (spec §4.6: "start_listen honors a similar
// extension that, if a crypto configuration is supplied, upgrades the
// underlying transport protocol from TCP to TLS"). pkg/vtls provides a
// concrete implementation; this package only depends on the interface
// to stay TLS-agnostic, matching the spec's explicit framing of the
// HTTP layer as transport-upgrade-blind.
type ListenerUpgrader interface {
	Upgrade(addr string) (net string, upgraded bool, err error)
}

// EndpointExtension carries the opaque per-endpoint configuration
// block named in spec §6.
type EndpointExtension struct {
	Tag ExtensionTag

	// HTTPTimeoutOverride is used when Tag == ExtHTTP.
	HTTPTimeoutOverride time.Duration

	// Crypto is used when Tag == ExtCrypto, listen-side only.
	Crypto ListenerUpgrader
}

// Endpoint names a connect or listen target plus its optional
// extension block.
type Endpoint struct {
	Network   string
	Address   string
	Extension *EndpointExtension
}

// SendParams accompanies CustomTX; Deschedule mirrors spec §5's
// backpressure signal ("the send-params flag indicates descheduling").
type SendParams struct {
	Deschedule bool
}

// Transport is the upward vtable the engine registers with a host's
// transport/session layer under the protocol identifier "HTTP" (spec
// §4.6, §6).
type Transport interface {
	Enable(on bool) error
	Connect(ep Endpoint) (uint32, error)
	StartListen(ep Endpoint) (uint32, error)
	StopListen(idx uint32) error
	Close(h Handle) error
	CustomTX(h Handle, params SendParams) error
	GetConnection(h Handle) (*Connection, bool)
	GetListener(idx uint32) (*ListenerRecord, bool)
	GetHalfOpen(idx uint32) (*HalfOpenRecord, bool)
	CleanupHalfOpen(idx uint32) error
}

// SessionCallbacks is the downward contract a host transport invokes
// on the engine (spec §4.6): accept, connected, disconnect, reset, rx,
// tx (builtin-tx / scheduler reschedule), cleanup, half-open cleanup.
type SessionCallbacks interface {
	Accept(listenerIdx uint32, session TransportSession) (Handle, error)
	Connected(halfOpenIdx uint32, session TransportSession) (Handle, error)
	Disconnect(h Handle) error
	Reset(h Handle) error
	RX(h Handle, data []byte) error
	TX(h Handle) error
	Cleanup(h Handle) error
	HalfOpenCleanup(halfOpenIdx uint32) error
}

// Engine ties the pools, timer wheels, configuration, and state
// machine together behind the Transport/SessionCallbacks vtables. One
// Engine is registered per host process; workers map 1:1 to the
// WorkerPool/TimerWheel pair spec §5 describes as pinned for a
// connection's entire lifetime.
type Engine struct {
	cfg EngineConfig
	log hclog.Logger

	enabled atomic.Bool

	workers []*WorkerPool
	wheels  []*TimerWheel

	halfOpen  *HalfOpenPool
	listeners *ListenerPool

	metrics *engineMetrics

	ptrMu      sync.Mutex
	ptrRegions map[uint64][]byte
	ptrNext    uint64
}

// RegisterPointer hands back a machine-word key an app can place on the
// wire in place of copying region into a FIFO (spec §6 "data.type ...
// PTR means a single machine-word address follows"). Go has no
// meaningful raw-pointer equivalent the FIFO could carry safely across
// a process boundary, so the key indexes into the engine's own region
// table instead of being the address itself; the caller must guarantee
// region's lifetime until ResolvePointer is followed by ReleasePointer
// (spec §9: "a PTR-carried payload requires trust that the pointer's
// lifetime extends until the HTTP layer drains it").
func (e *Engine) RegisterPointer(region []byte) uint64 {
	e.ptrMu.Lock()
	defer e.ptrMu.Unlock()
	e.ptrNext++
	key := e.ptrNext
	e.ptrRegions[key] = region
	return key
}

// ResolvePointer looks up a region registered by RegisterPointer.
func (e *Engine) ResolvePointer(key uint64) ([]byte, bool) {
	e.ptrMu.Lock()
	defer e.ptrMu.Unlock()
	r, ok := e.ptrRegions[key]
	return r, ok
}

// ReleasePointer forgets a region once the engine has fully drained it.
func (e *Engine) ReleasePointer(key uint64) {
	e.ptrMu.Lock()
	defer e.ptrMu.Unlock()
	delete(e.ptrRegions, key)
}

// kick re-enters the driver for h without new transport bytes; used as
// the dequeue-notify callback that resumes a connection descheduled for
// backpressure (spec §5 "Blocking and backpressure").
func (e *Engine) kick(h Handle) {
	conn, ok := e.GetConnection(h)
	if !ok {
		return
	}
	_ = runDriver(e, conn)
}

// NewEngine builds an Engine with numWorkers per-worker pools. cfg is
// clamped in place; logger may be nil (falls back to a null logger,
// see log.go).
func NewEngine(cfg EngineConfig, logger hclog.Logger, numWorkers int) *Engine {
	if numWorkers <= 0 {
		numWorkers = 1
	}
	adjusted := cfg.Clamp()
	log := logFor(logger)
	for _, field := range adjusted {
		log.Warn("engine configuration clamped", "field", field)
	}

	e := &Engine{
		cfg:       cfg,
		log:       log,
		halfOpen:   NewHalfOpenPool(32),
		listeners:  NewListenerPool(8),
		metrics:    newEngineMetrics(),
		ptrRegions: make(map[uint64][]byte),
	}
	e.workers = make([]*WorkerPool, numWorkers)
	e.wheels = make([]*TimerWheel, numWorkers)
	for i := range e.workers {
		e.workers[i] = NewWorkerPool(uint8(i), 64)
		e.wheels[i] = NewTimerWheel(e.workers[i], e.onTimerFire)
	}
	return e
}

// Enable attaches the protocol as a built-in transport app; idempotent
// after first success (spec §4.6). Disabling does not tear down live
// state: new Connect/StartListen calls are rejected immediately, but
// established connections and outstanding half-opens are left to drain
// through their normal close paths (spec §5 resource-model lifecycle:
// "scoped resources ... released on the single cleanup path"), rather
// than a bare process-wide pool wipe.
func (e *Engine) Enable(on bool) error {
	if !on {
		e.enabled.Store(false)
		e.drainOnDisable()
		return nil
	}
	e.enabled.CompareAndSwap(false, true)
	return nil
}

// drainOnDisable nudges every still-established connection toward an
// orderly close the same way an app-initiated Close would, so a host
// that disables the engine mid-run doesn't strand sessions waiting on
// a TX drain that will never be rechecked.
func (e *Engine) drainOnDisable() {
	for _, w := range e.workers {
		w.Range(func(conn *Connection) {
			if conn.ConnState() == ConnEstablished {
				_ = e.Close(conn.Handle())
			}
		})
	}
}

func (e *Engine) timeoutFor(ep Endpoint) time.Duration {
	if ep.Extension != nil && ep.Extension.Tag == ExtHTTP && ep.Extension.HTTPTimeoutOverride > 0 {
		return ep.Extension.HTTPTimeoutOverride
	}
	return e.cfg.InactivityTimeout
}

// Connect allocates a half-open record for an outbound connect (spec
// §3 "Half-open record"). The host portion of ep.Address is normalized
// through idna before being stored, so a later AUTHORITY-form Host
// header (spec §4.1) carries the ASCII-compatible encoding of an
// internationalized domain the same way go-rawhttp's transport layer
// does for its own Host handling.
func (e *Engine) Connect(ep Endpoint) (uint32, error) {
	if !e.enabled.Load() {
		return 0, ErrEngineDisabled
	}
	rec := &HalfOpenRecord{
		Host:        normalizeHostForWire(ep.Address),
		Timeout:     e.timeoutFor(ep),
		DisplayName: e.cfg.ClientName,
	}
	idx := e.halfOpen.Alloc(rec)
	return idx, nil
}

// StartListen allocates a listener record. A CRYPTO extension's
// upgrade hook is invoked here but the resulting transport identity is
// the host's responsibility to act on; this layer only records the
// decision (spec §4.6: "the HTTP layer itself is TLS-agnostic").
func (e *Engine) StartListen(ep Endpoint) (uint32, error) {
	if !e.enabled.Load() {
		return 0, ErrEngineDisabled
	}
	rec := &ListenerRecord{
		TimeoutDefault: e.timeoutFor(ep),
		DisplayName:    e.cfg.ServerName,
	}
	if ep.Extension != nil && ep.Extension.Tag == ExtCrypto && ep.Extension.Crypto != nil {
		if _, _, err := ep.Extension.Crypto.Upgrade(ep.Address); err != nil {
			return 0, err
		}
	}
	idx := e.listeners.Alloc(rec)
	return idx, nil
}

func (e *Engine) StopListen(idx uint32) error {
	e.listeners.Free(idx)
	return nil
}

// Close is the app-initiated close path (spec §5: "close from the app
// sets APP_CLOSED; if the app TX FIFO is empty it immediately
// disconnects, otherwise it waits for drain").
func (e *Engine) Close(h Handle) error {
	conn, ok := e.GetConnection(h)
	if !ok {
		return ErrUnknownHandle
	}
	conn.SetConnState(ConnAppClosed)
	if conn.AppTXFIFO == nil || conn.AppTXFIFO.Len() == 0 {
		return conn.Transport.Close()
	}
	return nil
}

// CustomTX is the protocol's scheduler-reschedule entry point (spec
// §5: "reschedule happens via the builtin-tx callback").
func (e *Engine) CustomTX(h Handle, params SendParams) error {
	return e.TX(h)
}

func (e *Engine) GetConnection(h Handle) (*Connection, bool) {
	wid := int(h.WorkerID())
	if wid >= len(e.workers) {
		return nil, false
	}
	return e.workers[wid].Get(h)
}

func (e *Engine) GetListener(idx uint32) (*ListenerRecord, bool) {
	return e.listeners.Get(idx)
}

func (e *Engine) GetHalfOpen(idx uint32) (*HalfOpenRecord, bool) {
	return e.halfOpen.Get(idx)
}

func (e *Engine) CleanupHalfOpen(idx uint32) error {
	e.halfOpen.Free(idx)
	return nil
}

// workerFor picks the worker a new connection is pinned to for its
// entire lifetime (spec §3: "a connection record's worker thread never
// changes after accept/connect"). The worker is seed modulo the worker
// count, where Accept passes the listener index and Connected the app
// worker id, so every connection from one listener lands on the same
// worker; a production host would instead pin by hardware queue.
func (e *Engine) workerFor(seed uint32) *WorkerPool {
	return e.workers[int(seed)%len(e.workers)]
}

// Accept allocates a server-role connection from the listener template
// (spec §3 "Server: ... connection allocated in accept handler (copied
// from listener template)") and arms it to await the first request.
func (e *Engine) Accept(listenerIdx uint32, session TransportSession) (Handle, error) {
	lrec, ok := e.listeners.Get(listenerIdx)
	if !ok {
		return InvalidHandle, ErrUnknownHandle
	}

	pool := e.workerFor(listenerIdx)
	h, conn := pool.Alloc()
	conn.Role = RoleServer
	conn.DisplayName = lrec.DisplayName
	conn.TimeoutDuration = lrec.TimeoutDefault
	conn.Transport = session
	conn.Timer = &InactivityTimer{}
	conn.Timer.Arm(conn.TimeoutDuration)
	conn.SetConnState(ConnEstablished)
	conn.SetProtoState(ProtoWaitClientMethod)
	conn.RXBuf = make([]byte, 0, e.cfg.FirstSegmentSize)
	conn.TXBuffer.maxBurst = e.cfg.MaxBurstBytes
	if conn.AppRXFIFO == nil {
		conn.AppRXFIFO = NewFIFO(e.cfg.FIFOSize)
	}
	if conn.AppTXFIFO == nil {
		conn.AppTXFIFO = NewFIFO(e.cfg.FIFOSize)
	}

	return h, nil
}

// Connected copies a half-open record into a full client-role
// connection once the transport reports the outbound connect
// succeeded (spec §3 "Client: half-open allocated at connect,
// destroyed ... immediately after connected-callback copies it into a
// full connection").
func (e *Engine) Connected(halfOpenIdx uint32, session TransportSession) (Handle, error) {
	ho, ok := e.halfOpen.Get(halfOpenIdx)
	if !ok {
		return InvalidHandle, ErrUnknownHandle
	}

	pool := e.workerFor(ho.AppWorkerID)
	h, conn := pool.Alloc()
	conn.Role = RoleClient
	conn.DisplayName = ho.DisplayName
	conn.HostAuthority = ho.Host
	conn.TimeoutDuration = ho.Timeout
	conn.Transport = session
	conn.Timer = &InactivityTimer{}
	conn.Timer.Arm(conn.TimeoutDuration)
	conn.SetConnState(ConnEstablished)
	conn.SetProtoState(ProtoWaitAppMethod)
	conn.RXBuf = make([]byte, 0, e.cfg.FirstSegmentSize)
	conn.TXBuffer.maxBurst = e.cfg.MaxBurstBytes
	if conn.AppRXFIFO == nil {
		conn.AppRXFIFO = NewFIFO(e.cfg.FIFOSize)
	}
	if conn.AppTXFIFO == nil {
		conn.AppTXFIFO = NewFIFO(e.cfg.FIFOSize)
	}

	e.halfOpen.Free(halfOpenIdx)
	return h, nil
}

// Disconnect handles a transport-reported disconnect (spec §5:
// "Transport disconnect sets TRANSPORT_CLOSED; if there is no more RX
// to deliver it notifies closing").
func (e *Engine) Disconnect(h Handle) error {
	conn, ok := e.GetConnection(h)
	if !ok {
		return ErrUnknownHandle
	}
	conn.SetConnState(ConnTransportClosed)
	if conn.AppRXFIFO == nil || conn.AppRXFIFO.Len() == 0 {
		e.notifyClosing(conn)
	}
	return nil
}

// Reset handles a transport-reported reset (spec §5: "A transport
// reset sets CLOSED, frees TX buffer, returns the state to
// WAIT_CLIENT_METHOD, and notifies the app of reset").
func (e *Engine) Reset(h Handle) error {
	conn, ok := e.GetConnection(h)
	if !ok {
		return ErrUnknownHandle
	}
	conn.SetConnState(ConnClosed)
	conn.TXBuffer.Free()
	conn.SetProtoState(ProtoWaitClientMethod)
	e.notifyReset(conn)
	return nil
}

// RX feeds newly received transport bytes into the state machine
// driver (spec §4.5).
func (e *Engine) RX(h Handle, data []byte) error {
	conn, ok := e.GetConnection(h)
	if !ok {
		return ErrUnknownHandle
	}
	conn.RXBuf = append(conn.RXBuf, data...)
	return runDriver(e, conn)
}

// TX is invoked when either the app TX FIFO gained data or the
// transport TX side drained (spec §4.5 entry condition for
// WAIT_APP_REPLY / WAIT_APP_METHOD / APP_IO_MORE_DATA).
func (e *Engine) TX(h Handle) error {
	conn, ok := e.GetConnection(h)
	if !ok {
		return ErrUnknownHandle
	}
	return runDriver(e, conn)
}

// Cleanup releases every scoped resource a connection holds, on the
// single path spec §5 requires regardless of how the connection exited.
func (e *Engine) Cleanup(h Handle) error {
	conn, ok := e.GetConnection(h)
	if !ok {
		return ErrUnknownHandle
	}
	conn.TXBuffer.Free()
	conn.Timer.Disarm()
	conn.RXBuf = nil
	pool := e.workers[h.WorkerID()]
	pool.Free(h)
	return nil
}

func (e *Engine) notifyClosing(conn *Connection) {
	e.log.Debug("connection closing", "handle", conn.Handle())
}

func (e *Engine) notifyReset(conn *Connection) {
	e.log.Debug("connection reset", "handle", conn.Handle())
}

func (e *Engine) onTimerFire(h Handle) {
	conn, ok := e.GetConnection(h)
	if !ok {
		return
	}
	e.log.Debug("inactivity timeout", "handle", h)
	e.metrics.incTimerExpiry()
	e.notifyClosing(conn)
	if conn.Transport != nil {
		_ = conn.Transport.Close()
	}
}

// SweepTimers runs one inactivity-timer pass per worker; a host calls
// this from each worker's own poll loop (spec §5 single-worker
// scheduling model; see timer.go).
func (e *Engine) SweepTimers() {
	for _, w := range e.wheels {
		w.Sweep()
	}
}
