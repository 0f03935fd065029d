package ws

import (
	"crypto/tls"
	"net"
	"strings"
	"time"

	"github.com/gorilla/websocket"

	"main/constants"
	"main/debug"
)

// ============================================================================
// TRADE STREAM TRANSPORT
// ============================================================================
//
// Websocket client for the exchange trade stream. The measurement core only
// ever sees this boundary: a sequence of frames, each marked parseable-text
// or skip, ending with an error when the stream dies. Reconnection policy
// deliberately lives with the operator, not here — a reconnect would reset
// the source's id sequence and quietly poison the gap metric.
//
// Dial-path tuning mirrors the harvest side: Nagle off so frames are not
// batched against us, socket buffers sized for burst absorption.
//
// ============================================================================

// Stream is one live subscription. Single-reader; Next is not safe for
// concurrent calls.
type Stream struct {
	conn *websocket.Conn
}

// Dial connects and subscribes to the trade stream for one symbol.
// The subscription is encoded in the path, so the handshake is the
// subscription; no post-connect message is needed.
func Dial(symbol string) (*Stream, error) {
	return DialURL(StreamURL(symbol))
}

// StreamURL builds the subscription URL for one symbol. Stream paths are
// lowercase on the wire — an upper-cased symbol connects but delivers
// nothing, so the symbol is folded here rather than trusted from the
// caller.
func StreamURL(symbol string) string {
	return "wss://" + constants.StreamHost + ":" + constants.StreamPort + "/ws/" +
		strings.ToLower(symbol) + "@trade"
}

// DialURL connects to an explicit websocket URL. Loopback test seam.
func DialURL(url string) (*Stream, error) {
	dialer := websocket.Dialer{
		NetDial:          tunedDial,
		HandshakeTimeout: 10 * time.Second,
		TLSClientConfig:  &tls.Config{ServerName: constants.StreamHost},
		ReadBufferSize:   constants.SocketBufferSize,
	}

	conn, _, err := dialer.Dial(url, nil)
	if err != nil {
		return nil, err
	}
	conn.SetReadLimit(constants.MaxFrameSize)

	debug.DropMessage("WS", "Connected to "+url)
	return &Stream{conn: conn}, nil
}

// tunedDial establishes the raw TCP connection with latency-oriented socket
// options before the TLS and websocket layers wrap it.
func tunedDial(network, addr string) (net.Conn, error) {
	raw, err := net.DialTimeout(network, addr, 5*time.Second)
	if err != nil {
		return nil, err
	}
	if tcp, ok := raw.(*net.TCPConn); ok {
		tcp.SetNoDelay(true) // disable Nagle: deliver frames immediately
		tcp.SetReadBuffer(constants.SocketBufferSize)
		tcp.SetWriteBuffer(constants.SocketBufferSize)
	}
	return raw, nil
}

// Next blocks until the next frame arrives. text reports whether the frame
// is a parseable text payload; binary frames are delivered with text=false
// and the core skips them. Control frames never surface here. A non-nil
// error means the stream has ended — fatal to the run, surfaced upward.
func (s *Stream) Next() (payload []byte, text bool, err error) {
	msgType, p, err := s.conn.ReadMessage()
	if err != nil {
		return nil, false, err
	}
	return p, msgType == websocket.TextMessage, nil
}

// Close tears the connection down.
func (s *Stream) Close() error {
	return s.conn.Close()
}
