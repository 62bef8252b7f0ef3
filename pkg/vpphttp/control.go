package vpphttp

import (
	"encoding/binary"
)

// MessageType distinguishes a REQUEST from a REPLY control message
// (spec §6).
type MessageType uint8

const (
	MsgRequest MessageType = iota
	MsgReply
)

// DataCarrier selects how the payload following a ControlHeader is
// carried (spec §6, §9): INLINE means the bytes follow in the same
// FIFO write, PTR means a single machine-word address follows instead,
// pointing at an application-owned region whose lifetime the app
// guarantees until the HTTP layer drains it.
type DataCarrier uint8

const (
	CarrierInline DataCarrier = iota
	CarrierPointer
)

// controlHeaderWireSize is the frozen on-wire byte width of
// ControlHeader (spec §9: "implementations must freeze its layout").
// Changing field order or widths here is a wire-format break.
const controlHeaderWireSize = 1 + 1 + 2 + 1 + 4 + 4 + 4 + 4 + 4 + 4 + 4 + 4 + 4

// ControlHeaderWireSize is the exported byte width of ControlHeader's
// wire encoding, so an application peer on the other end of a FIFO
// knows how many bytes to read before calling UnmarshalBinary.
const ControlHeaderWireSize = controlHeaderWireSize

// ControlHeader is the fixed-layout structured header that precedes
// every application-side payload in both directions (spec §6). Offset
// and length fields are relative to the inline payload that follows
// the header. In a CarrierPointer message only the body is carried by
// pointer: target and header bytes still follow inline, then the
// 8-byte pointer key.
type ControlHeader struct {
	Type     MessageType
	Method   uint8       // valid when Type == MsgRequest
	Code     StatusClass // valid when Type == MsgReply
	DataType DataCarrier

	DataLen uint32 // total inline byte count following (>= ControlDataLen at formatting time)

	TargetPathOffset  uint32
	TargetPathLen     uint32
	TargetQueryOffset uint32
	TargetQueryLen    uint32
	HeadersOffset     uint32
	HeadersLen        uint32
	BodyOffset        uint32
	BodyLen           uint32
}

// MarshalBinary encodes h into the frozen wire layout.
func (h *ControlHeader) MarshalBinary() ([]byte, error) {
	buf := make([]byte, controlHeaderWireSize)
	buf[0] = byte(h.Type)
	buf[1] = h.Method
	binary.LittleEndian.PutUint16(buf[2:4], uint16(h.Code))
	buf[4] = byte(h.DataType)
	binary.LittleEndian.PutUint32(buf[5:9], h.DataLen)
	binary.LittleEndian.PutUint32(buf[9:13], h.TargetPathOffset)
	binary.LittleEndian.PutUint32(buf[13:17], h.TargetPathLen)
	binary.LittleEndian.PutUint32(buf[17:21], h.TargetQueryOffset)
	binary.LittleEndian.PutUint32(buf[21:25], h.TargetQueryLen)
	binary.LittleEndian.PutUint32(buf[25:29], h.HeadersOffset)
	binary.LittleEndian.PutUint32(buf[29:33], h.HeadersLen)
	binary.LittleEndian.PutUint32(buf[33:37], h.BodyOffset)
	binary.LittleEndian.PutUint32(buf[37:41], h.BodyLen)
	return buf, nil
}

// UnmarshalBinary decodes buf (must be at least controlHeaderWireSize
// bytes) into h.
func (h *ControlHeader) UnmarshalBinary(buf []byte) error {
	if len(buf) < controlHeaderWireSize {
		return ErrInvalidDataCarrier
	}
	h.Type = MessageType(buf[0])
	h.Method = buf[1]
	h.Code = StatusClass(binary.LittleEndian.Uint16(buf[2:4]))
	h.DataType = DataCarrier(buf[4])
	h.DataLen = binary.LittleEndian.Uint32(buf[5:9])
	h.TargetPathOffset = binary.LittleEndian.Uint32(buf[9:13])
	h.TargetPathLen = binary.LittleEndian.Uint32(buf[13:17])
	h.TargetQueryOffset = binary.LittleEndian.Uint32(buf[17:21])
	h.TargetQueryLen = binary.LittleEndian.Uint32(buf[21:25])
	h.HeadersOffset = binary.LittleEndian.Uint32(buf[25:29])
	h.HeadersLen = binary.LittleEndian.Uint32(buf[29:33])
	h.BodyOffset = binary.LittleEndian.Uint32(buf[33:37])
	h.BodyLen = binary.LittleEndian.Uint32(buf[37:41])
	if h.DataType > CarrierPointer {
		return ErrInvalidDataCarrier
	}
	return nil
}
