package ws

import (
	"context"
	"encoding/json"
	"io"
	"log"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/gorilla/websocket"

	"aiworld.dev/internal/auth"
	"aiworld.dev/internal/protocol"
	"aiworld.dev/internal/world"
)

func TestRateLimiterFixedWindow(t *testing.T) {
	now := time.Unix(0, 0)
	r := newRateLimiter(time.Second, 3)
	for i := 0; i < 3; i++ {
		if !r.allow(now) {
			t.Fatalf("frame %d refused under budget", i)
		}
	}
	if r.allow(now) {
		t.Fatalf("frame over budget allowed")
	}
	if r.allow(now.Add(500 * time.Millisecond)) {
		t.Fatalf("budget refilled mid-window")
	}
	if !r.allow(now.Add(time.Second)) {
		t.Fatalf("budget not refilled after window")
	}
}

func TestRateLimiterDisabled(t *testing.T) {
	r := newRateLimiter(time.Second, 0)
	for i := 0; i < 1000; i++ {
		if !r.allow(time.Unix(0, 0)) {
			t.Fatalf("zero max should disable limiting")
		}
	}
}

func dialTestServer(t *testing.T) (*websocket.Conn, *world.World, context.CancelFunc) {
	t.Helper()
	logger := log.New(io.Discard, "", 0)
	w := world.New(world.DefaultConfig(), logger, nil)
	ctx, cancel := context.WithCancel(context.Background())
	go w.Run(ctx)

	resolver := &auth.Resolver{BypassSecret: "sesame"}
	srv := httptest.NewServer(NewServer(w, resolver, logger, time.Second, 0))
	t.Cleanup(srv.Close)

	url := "ws" + strings.TrimPrefix(srv.URL, "http")
	conn, _, err := websocket.DefaultDialer.Dial(url, nil)
	if err != nil {
		cancel()
		t.Fatalf("dial: %v", err)
	}
	t.Cleanup(func() { _ = conn.Close() })
	return conn, w, cancel
}

func readMsg(t *testing.T, conn *websocket.Conn) map[string]any {
	t.Helper()
	_ = conn.SetReadDeadline(time.Now().Add(5 * time.Second))
	_, data, err := conn.ReadMessage()
	if err != nil {
		t.Fatalf("read: %v", err)
	}
	var m map[string]any
	if err := json.Unmarshal(data, &m); err != nil {
		t.Fatalf("decode: %v", err)
	}
	return m
}

func writeMsg(t *testing.T, conn *websocket.Conn, v any) {
	t.Helper()
	if err := conn.WriteJSON(v); err != nil {
		t.Fatalf("write: %v", err)
	}
}

func TestHandshakeObserver(t *testing.T) {
	conn, _, cancel := dialTestServer(t)
	defer cancel()

	welcome := readMsg(t, conn)
	if welcome["type"] != protocol.TypeWelcome {
		t.Fatalf("first frame = %v", welcome)
	}
	if !strings.HasPrefix(welcome["clientId"].(string), "c_") {
		t.Fatalf("clientId = %v", welcome["clientId"])
	}

	writeMsg(t, conn, protocol.IdentifyMsg{Type: protocol.TypeIdentify, Role: protocol.RoleObserver})
	authMsg := readMsg(t, conn)
	if authMsg["type"] != protocol.TypeAuthSuccess || authMsg["role"] != protocol.RoleObserver {
		t.Fatalf("auth = %v", authMsg)
	}
	state := readMsg(t, conn)
	if state["type"] != protocol.TypeWorldState {
		t.Fatalf("after auth = %v", state)
	}
}

func TestHandshakeAgentBypass(t *testing.T) {
	conn, w, cancel := dialTestServer(t)
	defer cancel()
	readMsg(t, conn) // welcome

	writeMsg(t, conn, protocol.IdentifyMsg{
		Type: protocol.TypeIdentify, Role: protocol.RoleAgent,
		BypassKey: "sesame", AgentName: "Crusty",
	})
	authMsg := readMsg(t, conn)
	if authMsg["type"] != protocol.TypeAuthSuccess || authMsg["agentName"] != "Crusty" {
		t.Fatalf("auth = %v", authMsg)
	}

	// The session is live: a mutation lands in the world.
	writeMsg(t, conn, protocol.BlockPlaceMsg{Type: protocol.TypeBlockPlace, X: 1, Y: 2, Z: 3, BlockType: "stone"})
	deadline := time.Now().Add(5 * time.Second)
	for w.Metrics().Blocks == 0 {
		if time.Now().After(deadline) {
			t.Fatalf("block never placed")
		}
		time.Sleep(10 * time.Millisecond)
	}
}

func TestHandshakeRejectsBadCredentials(t *testing.T) {
	conn, _, cancel := dialTestServer(t)
	defer cancel()
	readMsg(t, conn) // welcome

	writeMsg(t, conn, protocol.IdentifyMsg{Type: protocol.TypeIdentify, Role: protocol.RoleAgent})
	failed := readMsg(t, conn)
	if failed["type"] != protocol.TypeAuthFailed {
		t.Fatalf("bad creds = %v", failed)
	}

	// The socket survives; a corrected identify succeeds.
	writeMsg(t, conn, protocol.IdentifyMsg{
		Type: protocol.TypeIdentify, Role: protocol.RoleAgent, BypassKey: "sesame",
	})
	authMsg := readMsg(t, conn)
	if authMsg["type"] != protocol.TypeAuthSuccess {
		t.Fatalf("retry = %v", authMsg)
	}
}

func TestMessagesBeforeIdentifyAreRefused(t *testing.T) {
	conn, w, cancel := dialTestServer(t)
	defer cancel()
	readMsg(t, conn) // welcome

	writeMsg(t, conn, protocol.BlockPlaceMsg{Type: protocol.TypeBlockPlace, X: 1, Y: 1, Z: 1, BlockType: "stone"})
	errMsg := readMsg(t, conn)
	if errMsg["type"] != protocol.TypeError || errMsg["code"] != protocol.ErrAuthRequired {
		t.Fatalf("pre-identify message = %v", errMsg)
	}
	if w.Metrics().Blocks != 0 {
		t.Fatalf("unauthenticated mutation applied")
	}
}
