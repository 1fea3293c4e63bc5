// Package ws terminates WebSocket connections and bridges them onto the
// world loop. The reader goroutine owns the handshake and the rate limiter;
// a writer goroutine drains the session's outbound channel so the world
// never blocks on a slow socket.
package ws

import (
	"context"
	"crypto/rand"
	"encoding/hex"
	"encoding/json"
	"fmt"
	"log"
	"net/http"
	"time"

	"github.com/gorilla/websocket"

	"aiworld.dev/internal/auth"
	"aiworld.dev/internal/protocol"
	"aiworld.dev/internal/world"
)

const (
	outBuffer       = 256
	writeTimeout    = 10 * time.Second
	pongTimeout     = 90 * time.Second
	pingInterval    = 30 * time.Second
	identifyTimeout = 30 * time.Second
	maxFrameBytes   = 64 * 1024
)

type Server struct {
	world    *world.World
	resolver *auth.Resolver
	log      *log.Logger

	rateWindow time.Duration
	rateMax    int

	upgrader websocket.Upgrader
}

func NewServer(w *world.World, resolver *auth.Resolver, logger *log.Logger, rateWindow time.Duration, rateMax int) *Server {
	return &Server{
		world:      w,
		resolver:   resolver,
		log:        logger,
		rateWindow: rateWindow,
		rateMax:    rateMax,
		upgrader: websocket.Upgrader{
			ReadBufferSize:  4096,
			WriteBufferSize: 4096,
			// Agents connect from anywhere; auth happens at identify.
			CheckOrigin: func(*http.Request) bool { return true },
		},
	}
}

func (s *Server) ServeHTTP(rw http.ResponseWriter, req *http.Request) {
	conn, err := s.upgrader.Upgrade(rw, req, nil)
	if err != nil {
		s.log.Printf("ws upgrade: %v", err)
		return
	}
	go s.serve(conn)
}

func (s *Server) serve(conn *websocket.Conn) {
	connID := newConnID()
	out := make(chan []byte, outBuffer)
	stop := make(chan struct{})
	done := make(chan struct{})
	go s.writeLoop(conn, out, stop, done)

	joined := false
	// The world may still hold a reference to out after Leave is queued, so
	// the channel is never closed; the writer is told to stop instead.
	defer func() {
		if joined {
			s.world.Leave(connID)
		}
		close(stop)
		<-done
		_ = conn.Close()
	}()

	conn.SetReadLimit(maxFrameBytes)
	_ = conn.SetReadDeadline(time.Now().Add(pongTimeout))
	conn.SetPongHandler(func(string) error {
		return conn.SetReadDeadline(time.Now().Add(pongTimeout))
	})

	s.sendJSON(out, protocol.WelcomeMsg{
		Type:     protocol.TypeWelcome,
		ClientID: connID,
		Message:  "welcome to aiworld",
		Instructions: protocol.Instructions{
			ForAgents:    `send {"type":"identify","role":"agent","apiKey":"..."} to act in the world`,
			ForObservers: `send {"type":"identify","role":"observer"} to watch`,
		},
		AgentCount: s.world.Metrics().Agents,
	})

	limiter := newRateLimiter(s.rateWindow, s.rateMax)
	identifyDeadline := time.Now().Add(identifyTimeout)
	for {
		_, data, err := conn.ReadMessage()
		if err != nil {
			return
		}
		if !limiter.allow(time.Now()) {
			continue
		}
		base, err := protocol.DecodeBase(data)
		if err != nil {
			continue
		}
		if !joined {
			if base.Type != protocol.TypeIdentify {
				if time.Now().After(identifyDeadline) {
					return
				}
				s.sendJSON(out, protocol.ErrorMsg{
					Type:  protocol.TypeError,
					Code:  protocol.ErrAuthRequired,
					Error: "identify first",
				})
				continue
			}
			if s.identify(connID, data, out) {
				joined = true
			}
			continue
		}
		if base.Type == protocol.TypeIdentify {
			continue
		}
		s.world.Inbox() <- world.Envelope{ConnID: connID, Data: data}
	}
}

// identify resolves the first message's credentials and registers the
// session. A rejected agent keeps the socket and may retry.
func (s *Server) identify(connID string, data []byte, out chan []byte) bool {
	var msg protocol.IdentifyMsg
	if err := json.Unmarshal(data, &msg); err != nil {
		s.sendJSON(out, protocol.AuthFailedMsg{Type: protocol.TypeAuthFailed, Error: "malformed identify"})
		return false
	}
	req := world.JoinRequest{
		ConnID: connID,
		Out:    out,
		Resp:   make(chan struct{}),
	}
	switch msg.Role {
	case protocol.RoleObserver:
		req.Role = protocol.RoleObserver
	case protocol.RoleAgent, "":
		ctx, cancel := context.WithTimeout(context.Background(), identifyTimeout)
		id, rej := s.resolver.Resolve(ctx, msg)
		cancel()
		if rej != nil {
			s.sendJSON(out, protocol.AuthFailedMsg{
				Type:     protocol.TypeAuthFailed,
				Error:    rej.Error,
				ClaimURL: rej.ClaimURL,
				Hint:     rej.Hint,
			})
			return false
		}
		req.Role = protocol.RoleAgent
		req.PersistentID = id.PersistentID
		req.Name = id.Name
		req.Verified = id.Verified
	default:
		s.sendJSON(out, protocol.AuthFailedMsg{Type: protocol.TypeAuthFailed, Error: fmt.Sprintf("unknown role %q", msg.Role)})
		return false
	}
	ctx, cancel := context.WithTimeout(context.Background(), identifyTimeout)
	defer cancel()
	if err := s.world.Join(ctx, req); err != nil {
		s.sendJSON(out, protocol.AuthFailedMsg{Type: protocol.TypeAuthFailed, Error: "world is not accepting connections"})
		return false
	}
	return true
}

func (s *Server) writeLoop(conn *websocket.Conn, out <-chan []byte, stop <-chan struct{}, done chan<- struct{}) {
	defer close(done)
	ping := time.NewTicker(pingInterval)
	defer ping.Stop()
	for {
		select {
		case <-stop:
			_ = conn.WriteControl(websocket.CloseMessage,
				websocket.FormatCloseMessage(websocket.CloseNormalClosure, ""), time.Now().Add(time.Second))
			return
		case b := <-out:
			_ = conn.SetWriteDeadline(time.Now().Add(writeTimeout))
			if err := conn.WriteMessage(websocket.TextMessage, b); err != nil {
				return
			}
		case <-ping.C:
			_ = conn.SetWriteDeadline(time.Now().Add(writeTimeout))
			if err := conn.WriteMessage(websocket.PingMessage, nil); err != nil {
				return
			}
		}
	}
}

func (s *Server) sendJSON(out chan []byte, v any) {
	b, err := json.Marshal(v)
	if err != nil {
		s.log.Printf("marshal: %v", err)
		return
	}
	select {
	case out <- b:
	default:
	}
}

func newConnID() string {
	b := make([]byte, 8)
	_, _ = rand.Read(b)
	return "c_" + hex.EncodeToString(b)
}

// rateLimiter is a fixed-window counter; frames over budget are dropped
// silently so a misbehaving agent cannot turn its own flood into broadcast
// error traffic.
type rateLimiter struct {
	window time.Duration
	max    int
	start  time.Time
	count  int
}

func newRateLimiter(window time.Duration, max int) *rateLimiter {
	return &rateLimiter{window: window, max: max}
}

func (r *rateLimiter) allow(now time.Time) bool {
	if r.max <= 0 {
		return true
	}
	if now.Sub(r.start) >= r.window {
		r.start = now
		r.count = 0
	}
	r.count++
	return r.count <= r.max
}
