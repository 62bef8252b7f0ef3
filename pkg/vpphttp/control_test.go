package vpphttp

import "testing"

func TestControlHeaderRoundTrip(t *testing.T) {
	h := ControlHeader{
		Type:              MsgRequest,
		Method:            MethodPOST,
		DataType:          CarrierInline,
		DataLen:           128,
		TargetPathOffset:  4,
		TargetPathLen:     8,
		TargetQueryOffset: 12,
		TargetQueryLen:    16,
		HeadersOffset:     28,
		HeadersLen:        20,
		BodyOffset:        48,
		BodyLen:           80,
	}

	buf, err := h.MarshalBinary()
	if err != nil {
		t.Fatalf("MarshalBinary failed: %v", err)
	}
	if len(buf) != ControlHeaderWireSize {
		t.Fatalf("marshaled len = %d, want %d", len(buf), ControlHeaderWireSize)
	}

	var got ControlHeader
	if err := got.UnmarshalBinary(buf); err != nil {
		t.Fatalf("UnmarshalBinary failed: %v", err)
	}
	if got != h {
		t.Errorf("round trip mismatch:\n got  %+v\n want %+v", got, h)
	}
}

func TestControlHeaderReplyRoundTrip(t *testing.T) {
	h := ControlHeader{
		Type:     MsgReply,
		Code:     StatusOK,
		DataType: CarrierPointer,
		DataLen:  8,
		BodyLen:  4096,
	}
	buf, _ := h.MarshalBinary()
	var got ControlHeader
	if err := got.UnmarshalBinary(buf); err != nil {
		t.Fatalf("UnmarshalBinary failed: %v", err)
	}
	if got.Type != MsgReply || got.Code != StatusOK || got.DataType != CarrierPointer || got.BodyLen != 4096 {
		t.Errorf("got %+v, want Type=MsgReply Code=StatusOK DataType=CarrierPointer BodyLen=4096", got)
	}
}

func TestControlHeaderUnmarshalTooShort(t *testing.T) {
	var h ControlHeader
	if err := h.UnmarshalBinary(make([]byte, ControlHeaderWireSize-1)); err != ErrInvalidDataCarrier {
		t.Fatalf("err = %v, want ErrInvalidDataCarrier", err)
	}
}

func TestControlHeaderUnmarshalInvalidCarrier(t *testing.T) {
	h := ControlHeader{DataType: CarrierInline}
	buf, _ := h.MarshalBinary()
	buf[4] = 2 // neither CarrierInline nor CarrierPointer

	var got ControlHeader
	if err := got.UnmarshalBinary(buf); err != ErrInvalidDataCarrier {
		t.Fatalf("err = %v, want ErrInvalidDataCarrier", err)
	}
}
