package vpphttp

import (
	"encoding/binary"
)

// drvResult is the three-way outcome a state handler reports back to
// the driver loop (spec §4.5: "call handler; if it returns CONTINUE
// repeat; if STOP, refresh timer and return; if ERROR, abort without
// refresh").
type drvResult uint8

const (
	drvStop drvResult = iota
	drvContinue
	drvError
)

// runDriver is the state-machine driver loop. It is re-entered on
// every transport RX, app TX enqueue, and transport TX drain event
// (spec §4.5); each call processes at most one external event's worth
// of work, chaining internal CONTINUE transitions without waiting on a
// new event in between.
func runDriver(e *Engine, conn *Connection) error {
	for {
		res := stepState(e, conn)
		switch res {
		case drvContinue:
			continue
		case drvStop:
			if conn.Timer != nil {
				conn.Timer.Arm(conn.TimeoutDuration)
			}
			return nil
		default: // drvError
			return ErrConnectionClosed
		}
	}
}

func stepState(e *Engine, conn *Connection) drvResult {
	switch conn.ProtoState() {
	case ProtoIdle:
		return drvStop
	case ProtoWaitClientMethod:
		return handleWaitClientMethod(e, conn)
	case ProtoWaitServerReply:
		return handleWaitServerReply(e, conn)
	case ProtoWaitAppReply:
		return handleWaitAppReply(e, conn)
	case ProtoWaitAppMethod:
		return handleWaitAppMethod(e, conn)
	case ProtoClientIOMoreData:
		return handleClientIOMoreData(e, conn)
	case ProtoAppIOMoreData:
		return handleAppIOMoreData(e, conn)
	default:
		return drvStop
	}
}

// closeOnFatal is the single fatal-error path: close the transport and
// let the host's cleanup callback release the connection record (spec
// §7: "the connection record is freed in the single transport cleanup
// callback, never inline").
func closeOnFatal(e *Engine, conn *Connection, kind string) {
	e.metrics.incParseError(kind)
	e.log.Error("http connection closed", "handle", conn.Handle(), "reason", kind)
	conn.SetConnState(ConnAppClosed)
	if conn.Transport != nil {
		_ = conn.Transport.Close()
	}
}

// emitServerErrorAndClose is error kind 1 from spec §7: push a canned
// error response for a malformed request, then close.
func emitServerErrorAndClose(e *Engine, conn *Connection, status StatusClass) {
	resp := formatErrorResponse(status)
	if conn.Transport != nil {
		_, _ = conn.Transport.Send(resp)
	}
	closeOnFatal(e, conn, "client-protocol-error")
}

// resetOnParseError is error kind 2 from spec §7: a client can't answer
// a malformed reply with a status code, so it just resets.
func resetOnParseError(e *Engine, conn *Connection) {
	closeOnFatal(e, conn, "server-protocol-error")
}

// appProtocolViolation is error kind 3 from spec §7: drop the app TX
// FIFO and close.
func appProtocolViolation(e *Engine, conn *Connection) {
	if conn.AppTXFIFO != nil {
		drop := make([]byte, conn.AppTXFIFO.Len())
		_, _ = conn.AppTXFIFO.Read(drop)
	}
	closeOnFatal(e, conn, "app-protocol-violation")
}

// handleWaitClientMethod parses one request from the RX scratch buffer
// and hands it to the app (spec §4.5 table row 1, §4.1, §8 scenarios
// 1-5).
func handleWaitClientMethod(e *Engine, conn *Connection) drvResult {
	buf := conn.RXBuf[conn.RXBufOffset:]

	rl, perr := ParseRequestLine(buf)
	if perr != nil {
		if perr.Err == ErrIncompleteMessage {
			return drvStop
		}
		emitServerErrorAndClose(e, conn, perr.Status)
		return drvError
	}

	hb, err := FindHeaderBlock(buf, rl.Consumed)
	if err != nil {
		if err == ErrIncompleteMessage {
			return drvStop
		}
		emitServerErrorAndClose(e, conn, StatusBadRequest)
		return drvError
	}

	headerBlockBytes := buf[hb.HeadersOff : hb.HeadersOff+hb.HeadersLen]
	bi, err := ParseBodyInfo(headerBlockBytes)
	if err != nil {
		emitServerErrorAndClose(e, conn, StatusBadRequest)
		return drvError
	}
	if bi.HostSeen > 1 {
		emitServerErrorAndClose(e, conn, StatusBadRequest)
		return drvError
	}

	base := conn.RXBufOffset
	conn.ControlDataLen = hb.ControlDataLen
	conn.Method = rl.Method
	conn.TargetForm = rl.TargetForm
	conn.TargetPathOff, conn.TargetPathLen = base+rl.PathOff, rl.PathLen
	conn.TargetQueryOff, conn.TargetQueryLen = base+rl.QueryOff, rl.QueryLen
	conn.HeadersOff, conn.HeadersLen = base+hb.HeadersOff, hb.HeadersLen
	conn.BodyLen = bi.BodyLen

	bodyStart := base + hb.ControlDataLen
	available := len(conn.RXBuf) - bodyStart
	delivered := available
	if int64(delivered) > bi.BodyLen {
		delivered = int(bi.BodyLen)
	}
	if delivered < 0 {
		delivered = 0
	}
	conn.BodyOffset = bodyStart

	payload := conn.RXBuf[base : bodyStart+delivered]
	ch := ControlHeader{
		Type:              MsgRequest,
		Method:            rl.Method,
		DataType:          CarrierInline,
		DataLen:           uint32(len(payload)),
		TargetPathOffset:  uint32(rl.PathOff),
		TargetPathLen:     uint32(rl.PathLen),
		TargetQueryOffset: uint32(rl.QueryOff),
		TargetQueryLen:    uint32(rl.QueryLen),
		HeadersOffset:     uint32(hb.HeadersOff),
		HeadersLen:        uint32(hb.HeadersLen),
		BodyOffset:        uint32(hb.ControlDataLen),
		BodyLen:           uint32(delivered),
	}
	hdrBytes, _ := ch.MarshalBinary()

	if conn.AppRXFIFO == nil {
		closeOnFatal(e, conn, "rx-fifo-too-small")
		return drvError
	}
	if _, err := conn.AppRXFIFO.WriteTwoSegment(hdrBytes, payload); err != nil {
		closeOnFatal(e, conn, "rx-fifo-too-small")
		return drvError
	}

	// No-pipelining: the server path drops the entire RX scratch buffer
	// after the first batch regardless of how much body is still owed
	// (spec §4.5 "Partial-body accounting").
	conn.RXBuf = conn.RXBuf[:0]
	conn.RXBufOffset = 0

	toRecv := bi.BodyLen - int64(delivered)
	if toRecv < 0 {
		closeOnFatal(e, conn, "body-overflow")
		return drvError
	}
	conn.ToRecv = toRecv

	if toRecv == 0 {
		conn.SetProtoState(ProtoWaitAppReply)
	} else {
		conn.SetProtoState(ProtoClientIOMoreData)
	}
	return drvStop
}

// handleWaitServerReply parses one status-line/header/body from the RX
// scratch buffer on the client role (spec §4.5 table row 2).
func handleWaitServerReply(e *Engine, conn *Connection) drvResult {
	buf := conn.RXBuf[conn.RXBufOffset:]

	sl, err := ParseStatusLine(buf)
	if err != nil {
		if err == ErrIncompleteMessage {
			return drvStop
		}
		resetOnParseError(e, conn)
		return drvError
	}

	hb, err := FindHeaderBlock(buf, sl.Consumed)
	if err != nil {
		if err == ErrIncompleteMessage {
			return drvStop
		}
		resetOnParseError(e, conn)
		return drvError
	}

	headerBlockBytes := buf[hb.HeadersOff : hb.HeadersOff+hb.HeadersLen]
	bi, err := ParseBodyInfo(headerBlockBytes)
	if err != nil {
		resetOnParseError(e, conn)
		return drvError
	}

	base := conn.RXBufOffset
	conn.ControlDataLen = hb.ControlDataLen
	conn.StatusCode = sl.Code
	conn.HeadersOff, conn.HeadersLen = base+hb.HeadersOff, hb.HeadersLen
	conn.BodyLen = bi.BodyLen

	bodyStart := base + hb.ControlDataLen
	available := len(conn.RXBuf) - bodyStart
	delivered := available
	if int64(delivered) > bi.BodyLen {
		delivered = int(bi.BodyLen)
	}
	if delivered < 0 {
		delivered = 0
	}
	conn.BodyOffset = bodyStart

	code, _ := ClassOf(sl.Code)
	payload := conn.RXBuf[base : bodyStart+delivered]
	ch := ControlHeader{
		Type:          MsgReply,
		Code:          code,
		DataType:      CarrierInline,
		DataLen:       uint32(len(payload)),
		HeadersOffset: uint32(hb.HeadersOff),
		HeadersLen:    uint32(hb.HeadersLen),
		BodyOffset:    uint32(hb.ControlDataLen),
		BodyLen:       uint32(delivered),
	}
	hdrBytes, _ := ch.MarshalBinary()

	if conn.AppRXFIFO == nil {
		closeOnFatal(e, conn, "rx-fifo-too-small")
		return drvError
	}
	if _, err := conn.AppRXFIFO.WriteTwoSegment(hdrBytes, payload); err != nil {
		closeOnFatal(e, conn, "rx-fifo-too-small")
		return drvError
	}

	// Client path drops only the bytes actually delivered (spec §4.5),
	// keeping any trailing bytes the transport handed over past this
	// message (normally none, since there is no pipelining).
	consumed := bodyStart + delivered
	remaining := conn.RXBuf[consumed:]
	copy(conn.RXBuf, remaining)
	conn.RXBuf = conn.RXBuf[:len(remaining)]
	conn.RXBufOffset = 0

	toRecv := bi.BodyLen - int64(delivered)
	if toRecv < 0 {
		closeOnFatal(e, conn, "body-overflow")
		return drvError
	}
	conn.ToRecv = toRecv

	if toRecv == 0 {
		conn.SetProtoState(ProtoWaitAppMethod)
	} else {
		conn.SetProtoState(ProtoClientIOMoreData)
	}
	return drvStop
}

// handleClientIOMoreData streams remaining body bytes transport->app,
// decrementing ToRecv until it reaches zero (spec §4.5 table row 5, §8
// scenario 3).
func handleClientIOMoreData(e *Engine, conn *Connection) drvResult {
	data := conn.RXBuf[conn.RXBufOffset:]
	n := int64(len(data))
	if n == 0 {
		return drvStop
	}
	if n > conn.ToRecv {
		closeOnFatal(e, conn, "body-overflow")
		return drvError
	}

	if _, err := conn.AppRXFIFO.Write(data); err != nil {
		conn.AppRXFIFO.ArmDequeueNotify(len(data), func() { e.kick(conn.Handle()) })
		return drvStop
	}
	conn.ToRecv -= n
	conn.RXBuf = conn.RXBuf[:0]
	conn.RXBufOffset = 0

	if conn.ToRecv == 0 {
		if conn.Role == RoleServer {
			conn.SetProtoState(ProtoWaitAppReply)
		} else {
			conn.SetProtoState(ProtoWaitAppMethod)
		}
	}
	return drvStop
}

// controlMeta is the decoded metadata blob (target path/query + app
// header bytes) an outbound app control message carries inline
// regardless of DataType; only the body may be pointer-referenced (see
// DESIGN.md for the rationale behind splitting meta from body this
// way).
type controlMeta struct {
	targetPath  []byte
	targetQuery []byte
	headerBytes []byte
	body        []byte
	fromPointer uint64
}

// dequeueAppMessage reads one ControlHeader plus its inline metadata
// and body (inline or pointer-referenced) from fifo (spec §6 app-facing
// message framing, §9 control message protocol).
func dequeueAppMessage(e *Engine, fifo FIFO) (ControlHeader, controlMeta, error) {
	var ch ControlHeader
	hdrBuf := make([]byte, controlHeaderWireSize)
	if _, err := fifo.Read(hdrBuf); err != nil {
		return ch, controlMeta{}, err
	}
	if err := ch.UnmarshalBinary(hdrBuf); err != nil {
		return ch, controlMeta{}, err
	}

	metaLen := int(ch.TargetPathLen) + int(ch.TargetQueryLen) + int(ch.HeadersLen)
	meta := make([]byte, metaLen)
	if metaLen > 0 {
		if _, err := fifo.Read(meta); err != nil {
			return ch, controlMeta{}, err
		}
	}

	var cm controlMeta
	if ch.TargetPathLen > 0 {
		cm.targetPath = sliceWithin(meta, ch.TargetPathOffset, ch.TargetPathLen)
	}
	if ch.TargetQueryLen > 0 {
		cm.targetQuery = sliceWithin(meta, ch.TargetQueryOffset, ch.TargetQueryLen)
	}
	if ch.HeadersLen > 0 {
		cm.headerBytes = sliceWithin(meta, ch.HeadersOffset, ch.HeadersLen)
	}

	switch ch.DataType {
	case CarrierInline:
		body := make([]byte, ch.BodyLen)
		if ch.BodyLen > 0 {
			if _, err := fifo.Read(body); err != nil {
				return ch, cm, err
			}
		}
		cm.body = body
	case CarrierPointer:
		keyBuf := make([]byte, 8)
		if _, err := fifo.Read(keyBuf); err != nil {
			return ch, cm, err
		}
		key := binary.LittleEndian.Uint64(keyBuf)
		region, ok := e.ResolvePointer(key)
		if !ok {
			return ch, cm, ErrUnknownPointer
		}
		cm.body = region
		cm.fromPointer = key
	default:
		return ch, cm, ErrInvalidDataCarrier
	}
	return ch, cm, nil
}

func sliceWithin(b []byte, off, length uint32) []byte {
	if int(off) > len(b) || int(off)+int(length) > len(b) {
		return nil
	}
	return b[off : off+length]
}

// handleWaitAppReply dequeues the app's reply control message, formats
// and sends the wire reply preamble, and starts streaming the body if
// any (spec §4.5 table row 3, §6, §8 scenario 1).
func handleWaitAppReply(e *Engine, conn *Connection) drvResult {
	ch, cm, err := dequeueAppMessage(e, conn.AppTXFIFO)
	if err != nil {
		appProtocolViolation(e, conn)
		return drvError
	}
	if ch.Type != MsgReply {
		appProtocolViolation(e, conn)
		return drvError
	}

	conn.StatusCode = uint16(ch.Code)
	wire := formatReplyHeader(conn.DisplayName, uint16(ch.Code), int64(ch.BodyLen), cm.headerBytes)
	if conn.Transport == nil {
		closeOnFatal(e, conn, "no-transport")
		return drvError
	}
	n, err := conn.Transport.Send(wire)
	if err != nil || n < len(wire) {
		closeOnFatal(e, conn, "short-send")
		return drvError
	}

	if ch.BodyLen == 0 {
		conn.SetProtoState(ProtoWaitClientMethod)
		conn.Reset()
		return drvStop
	}

	if cm.fromPointer != 0 {
		conn.TXBuffer.InitPointer(cm.body, e.cfg.MaxBurstBytes)
		conn.TXBuffer.fromPointerKey = cm.fromPointer
	} else {
		conn.TXBuffer.InitInline(cm.body, e.cfg.MaxBurstBytes)
	}
	conn.SetProtoState(ProtoAppIOMoreData)
	return drvContinue
}

// handleWaitAppMethod dequeues the app's outbound request control
// message, formats and sends the wire request preamble, and starts
// streaming the body for POST (spec §4.5 table row 4, §6, §8 scenario
// 6).
func handleWaitAppMethod(e *Engine, conn *Connection) drvResult {
	ch, cm, err := dequeueAppMessage(e, conn.AppTXFIFO)
	if err != nil {
		appProtocolViolation(e, conn)
		return drvError
	}
	if ch.Type != MsgRequest {
		appProtocolViolation(e, conn)
		return drvError
	}
	if ch.Method != MethodGET && ch.Method != MethodPOST {
		appProtocolViolation(e, conn)
		return drvError
	}
	if ch.Method == MethodGET && ch.BodyLen > 0 {
		appProtocolViolation(e, conn)
		return drvError
	}

	target := make([]byte, 0, len(cm.targetPath)+1+len(cm.targetQuery))
	target = append(target, '/')
	target = append(target, cm.targetPath...)
	if len(cm.targetQuery) > 0 {
		target = append(target, '?')
		target = append(target, cm.targetQuery...)
	}

	conn.Method = ch.Method
	wire := formatRequestHeader(conn.DisplayName, ch.Method, target, conn.HostAuthority, int64(ch.BodyLen), cm.headerBytes)
	if conn.Transport == nil {
		closeOnFatal(e, conn, "no-transport")
		return drvError
	}
	n, err := conn.Transport.Send(wire)
	if err != nil || n < len(wire) {
		closeOnFatal(e, conn, "short-send")
		return drvError
	}

	if ch.Method == MethodGET {
		conn.SetProtoState(ProtoWaitServerReply)
		return drvStop
	}

	if cm.fromPointer != 0 {
		conn.TXBuffer.InitPointer(cm.body, e.cfg.MaxBurstBytes)
		conn.TXBuffer.fromPointerKey = cm.fromPointer
	} else {
		conn.TXBuffer.InitInline(cm.body, e.cfg.MaxBurstBytes)
	}
	conn.SetProtoState(ProtoAppIOMoreData)
	return drvContinue
}

// handleAppIOMoreData streams the outbound body via the HTTP Buffer to
// the transport TX side, respecting the configured burst ceiling and
// deferring to backpressure signalled by Transport.Send returning
// ErrBackpressure (spec §4.2, §4.5 table row 6, §5 "Blocking and
// backpressure").
func handleAppIOMoreData(e *Engine, conn *Connection) drvResult {
	segs, n := conn.TXBuffer.GetSegs(e.cfg.MaxBurstBytes)
	for _, seg := range segs {
		written, err := conn.Transport.Send(seg.Data)
		if err == ErrBackpressure {
			return drvStop
		}
		if err != nil || written < len(seg.Data) {
			if conn.TXBuffer.fromPointerKey != 0 {
				e.ReleasePointer(conn.TXBuffer.fromPointerKey)
			}
			closeOnFatal(e, conn, "short-send")
			return drvError
		}
		conn.TXBuffer.Drain(int64(written))
	}
	_ = n

	if !conn.TXBuffer.IsDrained() {
		return drvStop
	}

	if conn.TXBuffer.fromPointerKey != 0 {
		e.ReleasePointer(conn.TXBuffer.fromPointerKey)
	}
	conn.TXBuffer.Free()

	if conn.Role == RoleServer {
		conn.SetProtoState(ProtoWaitClientMethod)
		conn.Reset()
	} else {
		conn.SetProtoState(ProtoWaitServerReply)
	}
	return drvStop
}
