package vpphttp

import (
	"sync"

	"github.com/bits-and-blooms/bitset"
)

// Handle packs a 24-bit per-worker pool index with an 8-bit worker id
// into a single 32-bit value (spec §3, §9). Timer callbacks carry a
// Handle rather than a raw pointer so a fired timer can be matched back
// against a possibly-recycled slot instead of dereferencing stale
// memory.
type Handle uint32

// InvalidHandle marks an absent peer session handle (spec §3: "the ...
// invalid-handle markers for peer session handles are stamped in").
const InvalidHandle Handle = 0xFFFFFFFF

const (
	handleIndexBits  = 24
	handleIndexMask  = (1 << handleIndexBits) - 1
	handleWorkerShift = handleIndexBits
)

// MakeHandle packs a worker id and pool index into a Handle.
func MakeHandle(workerID uint8, index uint32) Handle {
	return Handle((uint32(workerID) << handleWorkerShift) | (index & handleIndexMask))
}

// WorkerID extracts the worker id component.
func (h Handle) WorkerID() uint8 {
	return uint8(uint32(h) >> handleWorkerShift)
}

// Index extracts the pool-index component.
func (h Handle) Index() uint32 {
	return uint32(h) & handleIndexMask
}

// WorkerPool is the per-worker active-connection pool (spec §4.3):
// stable indices, zero-initialised allocation, freed slots reusable.
// Only ever touched from its owning worker goroutine (spec §5), so it
// carries no internal locking — a WorkerPool shared across goroutines
// is a caller bug, not something this type defends against.
//
// The free-slot bitmap is what lets a two-phase timer callback
// re-validate a Handle before dereferencing the slot it names (spec §9
// "Timer callbacks and record lifetimes"): bits-and-blooms/bitset gives
// an O(1) "is index N currently live" answer the teacher's sync.Pool
// (http11/pool.go) has no way to provide, since a sync.Pool forgets
// which items it has handed out.
type WorkerPool struct {
	workerID uint8
	slots    []*Connection
	free     *bitset.BitSet // bit set => slot is free
	nextScan uint
}

// NewWorkerPool creates an empty pool with the given initial capacity
// hint; it grows on demand.
func NewWorkerPool(workerID uint8, capacityHint int) *WorkerPool {
	if capacityHint <= 0 {
		capacityHint = 64
	}
	return &WorkerPool{
		workerID: workerID,
		slots:    make([]*Connection, capacityHint),
		free:     bitset.New(uint(capacityHint)).Complement(),
	}
}

// Alloc reserves a free slot, zero-initialises it, stamps worker/own
// index, and returns its Handle.
func (p *WorkerPool) Alloc() (Handle, *Connection) {
	idx, ok := p.free.NextSet(p.nextScan)
	if !ok {
		idx, ok = p.free.NextSet(0)
	}
	if !ok {
		idx = uint(len(p.slots))
		p.grow()
	}

	p.free.Clear(idx)
	p.nextScan = idx + 1

	conn := &Connection{}
	conn.WorkerID = p.workerID
	conn.OwnIndex = uint32(idx)
	conn.PeerHandle = InvalidHandle
	p.slots[idx] = conn

	return MakeHandle(p.workerID, uint32(idx)), conn
}

func (p *WorkerPool) grow() {
	newCap := len(p.slots) * 2
	if newCap == 0 {
		newCap = 64
	}
	grown := make([]*Connection, newCap)
	copy(grown, p.slots)
	oldCap := len(p.slots)
	p.slots = grown
	for i := oldCap; i < newCap; i++ {
		p.free.Set(uint(i)) // bitset auto-extends to cover the new index
	}
}

// Get re-validates h against the free-slot bitmap before returning the
// slot, tolerating a Handle whose index was recycled between a timer
// firing and its callback running (spec §9).
func (p *WorkerPool) Get(h Handle) (*Connection, bool) {
	if h.WorkerID() != p.workerID {
		return nil, false
	}
	idx := uint(h.Index())
	if idx >= uint(len(p.slots)) || p.free.Test(idx) {
		return nil, false
	}
	return p.slots[idx], true
}

// Range calls fn for every currently live connection in the pool. fn
// must not allocate or free slots; used by the engine's disable path to
// walk active connections without a second lock layer (spec §5, single-
// threaded-per-worker access).
func (p *WorkerPool) Range(fn func(*Connection)) {
	for idx := uint(0); idx < uint(len(p.slots)); idx++ {
		if p.free.Test(idx) {
			continue
		}
		if c := p.slots[idx]; c != nil {
			fn(c)
		}
	}
}

// Free releases h's slot back to the pool. Caller must have already
// run the connection's cleanup path (spec §5 "Scoped resources").
func (p *WorkerPool) Free(h Handle) {
	idx := uint(h.Index())
	if idx >= uint(len(p.slots)) {
		return
	}
	p.slots[idx] = nil
	p.free.Set(idx)
}

// HalfOpenPool is the process-wide pool of outstanding outbound
// connects (spec §3, §5: "process-wide and single-threaded at access").
// It is only touched from the session layer's dedicated control path
// (connect, connected-callback, half-open cleanup), but a Go embedding
// may reach that path from more than one goroutine, so a mutex guards
// it rather than relying on an external scheduling guarantee.
type HalfOpenPool struct {
	mu    sync.Mutex
	slots []*HalfOpenRecord
	free  *bitset.BitSet
}

func NewHalfOpenPool(capacityHint int) *HalfOpenPool {
	if capacityHint <= 0 {
		capacityHint = 32
	}
	return &HalfOpenPool{
		slots: make([]*HalfOpenRecord, capacityHint),
		free:  bitset.New(uint(capacityHint)).Complement(),
	}
}

func (p *HalfOpenPool) Alloc(rec *HalfOpenRecord) uint32 {
	p.mu.Lock()
	defer p.mu.Unlock()

	idx, ok := p.free.NextSet(0)
	if !ok {
		idx = uint(len(p.slots))
		grown := make([]*HalfOpenRecord, len(p.slots)*2+1)
		copy(grown, p.slots)
		p.slots = grown
		for i := idx; i < uint(len(p.slots)); i++ {
			p.free.Set(i)
		}
	}
	p.free.Clear(idx)
	rec.OwnIndex = uint32(idx)
	p.slots[idx] = rec
	return uint32(idx)
}

func (p *HalfOpenPool) Get(idx uint32) (*HalfOpenRecord, bool) {
	p.mu.Lock()
	defer p.mu.Unlock()
	if uint(idx) >= uint(len(p.slots)) || p.free.Test(uint(idx)) {
		return nil, false
	}
	return p.slots[idx], true
}

func (p *HalfOpenPool) Free(idx uint32) {
	p.mu.Lock()
	defer p.mu.Unlock()
	if uint(idx) >= uint(len(p.slots)) {
		return
	}
	p.slots[idx] = nil
	p.free.Set(uint(idx))
}

// ListenerPool is the process-wide pool of bound endpoints (spec §3).
// Same single-path-but-mutex-guarded shape as HalfOpenPool.
type ListenerPool struct {
	mu    sync.Mutex
	slots []*ListenerRecord
	free  *bitset.BitSet
}

func NewListenerPool(capacityHint int) *ListenerPool {
	if capacityHint <= 0 {
		capacityHint = 8
	}
	return &ListenerPool{
		slots: make([]*ListenerRecord, capacityHint),
		free:  bitset.New(uint(capacityHint)).Complement(),
	}
}

func (p *ListenerPool) Alloc(rec *ListenerRecord) uint32 {
	p.mu.Lock()
	defer p.mu.Unlock()

	idx, ok := p.free.NextSet(0)
	if !ok {
		idx = uint(len(p.slots))
		grown := make([]*ListenerRecord, len(p.slots)*2+1)
		copy(grown, p.slots)
		p.slots = grown
		for i := idx; i < uint(len(p.slots)); i++ {
			p.free.Set(i)
		}
	}
	p.free.Clear(idx)
	rec.OwnIndex = uint32(idx)
	p.slots[idx] = rec
	return uint32(idx)
}

func (p *ListenerPool) Get(idx uint32) (*ListenerRecord, bool) {
	p.mu.Lock()
	defer p.mu.Unlock()
	if uint(idx) >= uint(len(p.slots)) || p.free.Test(uint(idx)) {
		return nil, false
	}
	return p.slots[idx], true
}

func (p *ListenerPool) Free(idx uint32) {
	p.mu.Lock()
	defer p.mu.Unlock()
	if uint(idx) >= uint(len(p.slots)) {
		return
	}
	p.slots[idx] = nil
	p.free.Set(uint(idx))
}
