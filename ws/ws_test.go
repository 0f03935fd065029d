package ws

import (
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/gorilla/websocket"
)

// ============================================================================
// LOOPBACK SERVER
// ============================================================================

var upgrader = websocket.Upgrader{
	CheckOrigin: func(*http.Request) bool { return true },
}

// loopbackServer upgrades one connection and plays the scripted frames,
// then closes.
func loopbackServer(t *testing.T, frames []struct {
	msgType int
	payload string
}) *httptest.Server {
	t.Helper()
	return httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		conn, err := upgrader.Upgrade(w, r, nil)
		if err != nil {
			t.Errorf("upgrade: %v", err)
			return
		}
		defer conn.Close()
		for _, f := range frames {
			if err := conn.WriteMessage(f.msgType, []byte(f.payload)); err != nil {
				return
			}
		}
		conn.WriteMessage(websocket.CloseMessage,
			websocket.FormatCloseMessage(websocket.CloseNormalClosure, ""))
	}))
}

func wsURL(httpURL string) string {
	return "ws" + strings.TrimPrefix(httpURL, "http")
}

// ============================================================================
// SUBSCRIPTION URL TESTS
// ============================================================================

// TestStreamURL_FoldsSymbolCase validates that the subscription path is
// always lowercase: an upper-cased symbol connects but delivers nothing,
// so the fold must happen here, not at the call site
func TestStreamURL_FoldsSymbolCase(t *testing.T) {
	tests := []struct {
		name   string
		symbol string
		want   string
	}{
		{"already_lower", "btcusdt", "wss://stream.binance.com:9443/ws/btcusdt@trade"},
		{"all_upper", "BTCUSDT", "wss://stream.binance.com:9443/ws/btcusdt@trade"},
		{"mixed_case", "EthUsdt", "wss://stream.binance.com:9443/ws/ethusdt@trade"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := StreamURL(tt.symbol); got != tt.want {
				t.Errorf("StreamURL(%q) = %q, want %q", tt.symbol, got, tt.want)
			}
		})
	}
}

// ============================================================================
// FRAME DELIVERY TESTS
// ============================================================================

// TestStream_DeliversFramesWithTextMarking validates frame payloads, the
// text/skip marking and the terminating error on stream end
func TestStream_DeliversFramesWithTextMarking(t *testing.T) {
	frames := []struct {
		msgType int
		payload string
	}{
		{websocket.TextMessage, `{"id":1,"time":1700000000000}`},
		{websocket.BinaryMessage, "\x00\x01\x02"},
		{websocket.TextMessage, `{"id":2,"time":1700000000001}`},
	}
	server := loopbackServer(t, frames)
	defer server.Close()

	stream, err := DialURL(wsURL(server.URL))
	if err != nil {
		t.Fatalf("dial: %v", err)
	}
	defer stream.Close()

	for i, f := range frames {
		payload, text, err := stream.Next()
		if err != nil {
			t.Fatalf("frame %d: %v", i, err)
		}
		if string(payload) != f.payload {
			t.Errorf("frame %d payload = %q, want %q", i, payload, f.payload)
		}
		wantText := f.msgType == websocket.TextMessage
		if text != wantText {
			t.Errorf("frame %d text = %v, want %v", i, text, wantText)
		}
	}

	// Stream end surfaces as an error, never as an empty frame
	if _, _, err := stream.Next(); err == nil {
		t.Fatalf("expected error after server close")
	}
}

// TestStream_PingsStaySilent validates that control frames never surface as
// payloads
func TestStream_PingsStaySilent(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		conn, err := upgrader.Upgrade(w, r, nil)
		if err != nil {
			return
		}
		defer conn.Close()
		conn.WriteMessage(websocket.PingMessage, []byte("keepalive"))
		conn.WriteMessage(websocket.TextMessage, []byte(`{"id":7,"time":1700000000000}`))
		conn.WriteMessage(websocket.CloseMessage,
			websocket.FormatCloseMessage(websocket.CloseNormalClosure, ""))
	}))
	defer server.Close()

	stream, err := DialURL(wsURL(server.URL))
	if err != nil {
		t.Fatalf("dial: %v", err)
	}
	defer stream.Close()

	payload, text, err := stream.Next()
	if err != nil {
		t.Fatalf("next: %v", err)
	}
	if !text || string(payload) != `{"id":7,"time":1700000000000}` {
		t.Errorf("got %q text=%v; ping leaked through", payload, text)
	}
}

// TestDialURL_RefusesDeadEndpoint validates the fatal-connect contract
func TestDialURL_RefusesDeadEndpoint(t *testing.T) {
	server := httptest.NewServer(http.NotFoundHandler())
	url := wsURL(server.URL)
	server.Close()

	if _, err := DialURL(url); err == nil {
		t.Fatalf("expected dial failure against closed endpoint")
	}
}
