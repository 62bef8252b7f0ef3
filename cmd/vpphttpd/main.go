// Command vpphttpd is a demo host for the vpphttp engine: it accepts
// plain TCP connections, drives each one through the engine as a
// server-role session, and runs a tiny demo app that answers every
// request with a fixed body on the other side of
// the app-facing FIFOs, the way a real VPP builtin-app worker loop
// would (spec §4.6 downward/upward contract). It exists to exercise
// the engine end to end, not as a production server.
package main

import (
	"encoding/binary"
	"flag"
	"log"
	"net"
	"time"

	"github.com/hashicorp/go-hclog"

	"github.com/watt-toolkit/vpphttp/pkg/vpphttp"
	"github.com/watt-toolkit/vpphttp/pkg/vtls"
)

func main() {
	addr := flag.String("addr", ":8080", "listen address")
	tlsDomain := flag.String("tls-domain", "", "enable autocert TLS for this domain (optional)")
	tlsEmail := flag.String("tls-email", "", "ACME account email, required with -tls-domain")
	flag.Parse()

	logger := hclog.New(&hclog.LoggerOptions{Name: "vpphttpd", Level: hclog.Info})

	eng := vpphttp.NewEngine(vpphttp.DefaultEngineConfig(), logger, 4)
	if err := eng.Enable(true); err != nil {
		log.Fatalf("enable engine: %v", err)
	}

	ep := vpphttp.Endpoint{Network: "tcp", Address: *addr}
	if *tlsDomain != "" {
		ep.Extension = &vpphttp.EndpointExtension{
			Tag:    vpphttp.ExtCrypto,
			Crypto: vtls.NewUpgrader(*tlsEmail, *tlsDomain),
		}
	}

	listenerIdx, err := eng.StartListen(ep)
	if err != nil {
		log.Fatalf("start listen: %v", err)
	}

	ln, err := net.Listen("tcp", *addr)
	if err != nil {
		log.Fatalf("net.Listen: %v", err)
	}
	logger.Info("listening", "addr", *addr)

	for {
		nc, err := ln.Accept()
		if err != nil {
			logger.Error("accept", "err", err)
			time.Sleep(50 * time.Millisecond)
			continue
		}
		go serveConn(eng, listenerIdx, nc)
	}
}

// tcpSession adapts a net.Conn to vpphttp.TransportSession (spec §4.6
// "downward send surface"). It has no backpressure signal of its own,
// so Send always reports the full write or an error — matching the
// teacher's direct io.Writer-backed connection wrapper rather than
// inventing a fake deschedule condition.
type tcpSession struct {
	nc net.Conn
}

func (s *tcpSession) Send(p []byte) (int, error) { return s.nc.Write(p) }
func (s *tcpSession) Close() error                { return s.nc.Close() }
func (s *tcpSession) RemoteAddr() string          { return s.nc.RemoteAddr().String() }

// serveConn accepts nc into the engine, runs the RX pump and the demo
// app loop concurrently, and blocks until either side closes.
func serveConn(eng *vpphttp.Engine, listenerIdx uint32, nc net.Conn) {
	sess := &tcpSession{nc: nc}
	h, err := eng.Accept(listenerIdx, sess)
	if err != nil {
		nc.Close()
		return
	}

	conn, ok := eng.GetConnection(h)
	if !ok {
		nc.Close()
		return
	}

	done := make(chan struct{})
	go runEchoApp(eng, conn, done)

	buf := make([]byte, 64<<10)
	for {
		n, err := nc.Read(buf)
		if n > 0 {
			if rxErr := eng.RX(h, buf[:n]); rxErr != nil {
				break
			}
		}
		if err != nil {
			eng.Disconnect(h)
			break
		}
	}
	<-done
	eng.Cleanup(h)
}

// runEchoApp is the application peer: it dequeues one request control
// message at a time from the connection's app RX FIFO and answers every
// request with a fixed 200 OK body, the simplest possible conformant
// server app for this protocol (spec §6 app-facing message framing).
func runEchoApp(eng *vpphttp.Engine, conn *vpphttp.Connection, done chan struct{}) {
	defer close(done)
	const body = "hello from vpphttpd\n"

	hdrBuf := make([]byte, vpphttp.ControlHeaderWireSize)
	for {
		if conn.ConnState() == vpphttp.ConnClosed || conn.ConnState() == vpphttp.ConnAppClosed {
			return
		}
		if conn.AppRXFIFO == nil || conn.AppRXFIFO.Len() < vpphttp.ControlHeaderWireSize {
			if conn.ConnState() == vpphttp.ConnTransportClosed {
				return
			}
			time.Sleep(time.Millisecond)
			continue
		}

		if _, err := conn.AppRXFIFO.Read(hdrBuf); err != nil {
			return
		}
		var ch vpphttp.ControlHeader
		if err := ch.UnmarshalBinary(hdrBuf); err != nil {
			return
		}

		if ch.DataType == vpphttp.CarrierInline && ch.DataLen > 0 {
			// The inline payload is the request's wire bytes (request
			// line, headers and the body delivered so far), DataLen in all.
			discard := make([]byte, ch.DataLen)
			conn.AppRXFIFO.Read(discard)
		} else if ch.DataType == vpphttp.CarrierPointer {
			keyBuf := make([]byte, 8)
			conn.AppRXFIFO.Read(keyBuf)
			key := binary.LittleEndian.Uint64(keyBuf)
			eng.ReleasePointer(key)
		}

		reply := vpphttp.ControlHeader{
			Type:    vpphttp.MsgReply,
			Code:    vpphttp.StatusOK,
			DataLen: uint32(len(body)),
			BodyLen: uint32(len(body)),
		}
		replyBytes, _ := reply.MarshalBinary()
		if _, err := conn.AppTXFIFO.WriteTwoSegment(replyBytes, []byte(body)); err != nil {
			return
		}
		eng.CustomTX(conn.Handle(), vpphttp.SendParams{})
	}
}
