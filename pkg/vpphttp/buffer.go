package vpphttp

import (
	"github.com/valyala/bytebufferpool"
)

// BodySource distinguishes where an outbound body's bytes live (spec
// §4.2).
type BodySource uint8

const (
	// BodySourceInline means the body was already copied into the
	// application TX FIFO and is queued in a pooled bytebufferpool
	// buffer alongside the HTTPBuffer itself.
	BodySourceInline BodySource = iota
	// BodySourcePointer means the body is an application-owned
	// contiguous region the HTTPBuffer only references; draining it
	// never copies or frees the underlying bytes.
	BodySourcePointer
)

// Segment is one contiguous run of body bytes ready to hand to a
// transport write call.
type Segment struct {
	Data []byte
}

// HTTPBuffer abstracts an outbound body of known length, used
// exclusively while a connection is in APP_IO_MORE_DATA (spec §4.2).
// The inline variant borrows a pooled buffer from bytebufferpool for
// its scratch storage, replacing the teacher's ad hoc sync.Pool[*[]byte]
// (http11/pool.go) with the pack's dedicated pooled-byte-buffer type —
// a closer fit for the bounded-burst drain pattern this component has.
type HTTPBuffer struct {
	source BodySource
	length int64
	offset int64 // bytes already drained

	inline  *bytebufferpool.ByteBuffer
	pointer []byte

	maxBurst int

	// fromPointerKey is the Engine.RegisterPointer key this buffer's
	// region came from, 0 if none. The state machine releases it once
	// the buffer drains (spec §9 pointer lifetime note).
	fromPointerKey uint64
}

// InitInline prepares b to stream data that has already been staged in
// a pooled buffer. The pooled buffer is owned by b from this point and
// released back to the pool by Free.
func (b *HTTPBuffer) InitInline(data []byte, maxBurst int) {
	b.source = BodySourceInline
	b.length = int64(len(data))
	b.offset = 0
	b.maxBurst = maxBurst

	b.inline = bytebufferpool.Get()
	b.inline.Reset()
	b.inline.Write(data)
	b.pointer = nil
}

// InitPointer prepares b to stream an application-owned region in
// place, without copying or taking ownership of it.
func (b *HTTPBuffer) InitPointer(region []byte, maxBurst int) {
	b.source = BodySourcePointer
	b.length = int64(len(region))
	b.offset = 0
	b.maxBurst = maxBurst
	b.pointer = region
	b.inline = nil
}

// GetSegs returns up to maxBytes of undrained body as a segment list
// plus the total byte count returned, bounded by the configured burst
// ceiling. The engine is expected to call Drain with however many of
// those bytes the transport actually accepted.
func (b *HTTPBuffer) GetSegs(maxBytes int) ([]Segment, int64) {
	if maxBytes <= 0 || maxBytes > b.maxBurst {
		maxBytes = b.maxBurst
	}
	remaining := b.length - b.offset
	if remaining <= 0 {
		return nil, 0
	}
	n := remaining
	if n > int64(maxBytes) {
		n = int64(maxBytes)
	}

	var data []byte
	switch b.source {
	case BodySourceInline:
		data = b.inline.B[b.offset : b.offset+n]
	case BodySourcePointer:
		data = b.pointer[b.offset : b.offset+n]
	}
	return []Segment{{Data: data}}, n
}

// Drain advances the consumed-bytes cursor by n.
func (b *HTTPBuffer) Drain(n int64) {
	b.offset += n
	if b.offset > b.length {
		b.offset = b.length
	}
}

// IsDrained reports whether every byte of the body has been handed off.
func (b *HTTPBuffer) IsDrained() bool {
	return b.offset >= b.length
}

// Remaining returns the number of undrained bytes.
func (b *HTTPBuffer) Remaining() int64 {
	return b.length - b.offset
}

// Free releases any pooled storage b holds and resets it for reuse.
// Pointer-variant buffers never owned their bytes, so Free is a no-op
// for them beyond clearing the reference.
func (b *HTTPBuffer) Free() {
	if b.inline != nil {
		bytebufferpool.Put(b.inline)
		b.inline = nil
	}
	b.pointer = nil
	b.length = 0
	b.offset = 0
	b.fromPointerKey = 0
}
