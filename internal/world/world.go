// Package world holds the authoritative shared-world state. A single
// goroutine owns the aggregate: connections feed raw messages through the
// inbox, joins and leaves go through their own channels, and a one-second
// ticker drives the auction sweep, the weekly settlement and the debounced
// persistence flush. Handlers never lock; ordering is the loop itself.
package world

import (
	"context"
	"encoding/json"
	"log"
	"math/rand/v2"
	"sync/atomic"
	"time"

	"aiworld.dev/internal/persistence/state"
	"aiworld.dev/internal/protocol"
)

// Session is one connected client as the world sees it. Out is drained by the
// transport's writer goroutine; sends never block the loop.
type Session struct {
	ConnID       string
	Role         string
	PersistentID string
	Name         string
	Verified     bool
	Out          chan []byte
}

// Envelope is a raw inbound message tagged with its connection.
type Envelope struct {
	ConnID string
	Data   []byte
}

// JoinRequest registers an authenticated connection. Resp is closed once the
// session is live; the transport must not forward messages before that.
type JoinRequest struct {
	ConnID       string
	Role         string
	PersistentID string
	Name         string
	Verified     bool
	Out          chan []byte
	Resp         chan struct{}
}

// Metrics are cheap counters readable from any goroutine.
type Metrics struct {
	Agents    int
	Observers int
	Blocks    int
}

type AgentPublicInfo struct {
	ID       string `json:"id"`
	Name     string `json:"name"`
	Verified bool   `json:"verified"`
}

type StatsInfo struct {
	AgentCount    int               `json:"agentCount"`
	ObserverCount int               `json:"observerCount"`
	BlockCount    int               `json:"blockCount"`
	IslandCount   int               `json:"islandCount"`
	Agents        []AgentPublicInfo `json:"agents"`
}

type statsReq struct {
	resp chan StatsInfo
}

type exportReq struct {
	resp chan state.DocumentV1
}

type World struct {
	cfg Config
	log *log.Logger
	now func() time.Time

	state *worldState

	agents    map[string]*Session // connID -> session
	observers map[string]*Session
	lobsters  map[string]*Lobster            // connID -> live entity
	channels  map[string]map[string]struct{} // channel -> member connIDs

	inbox   chan Envelope
	joinCh  chan JoinRequest
	leaveCh chan string
	statsCh chan statsReq
	export  chan exportReq

	sink chan<- state.DocumentV1

	dirty   bool
	flushAt time.Time

	lastSweep time.Time

	agentsN    atomic.Int64
	observersN atomic.Int64
	blocksN    atomic.Int64
}

// New builds a fresh world with an empty aggregate and a spawn parcel. Attach
// a persisted document with ImportDocument before calling Run.
func New(cfg Config, logger *log.Logger, sink chan<- state.DocumentV1) *World {
	if cfg.Now == nil {
		cfg.Now = time.Now
	}
	w := &World{
		cfg:       cfg,
		log:       logger,
		now:       cfg.Now,
		agents:    map[string]*Session{},
		observers: map[string]*Session{},
		lobsters:  map[string]*Lobster{},
		channels:  map[string]map[string]struct{}{},
		inbox:     make(chan Envelope, 1024),
		joinCh:    make(chan JoinRequest, 16),
		leaveCh:   make(chan string, 64),
		statsCh:   make(chan statsReq, 8),
		export:    make(chan exportReq),
		sink:      sink,
	}
	w.state = newWorldState()
	w.state.ensureSpawnZone(w.now(), cfg.GridCellSize/2)
	return w
}

// Inbox accepts raw client messages from transport goroutines.
func (w *World) Inbox() chan<- Envelope { return w.inbox }

// Join registers a session and blocks until the world has processed it.
func (w *World) Join(ctx context.Context, req JoinRequest) error {
	select {
	case w.joinCh <- req:
	case <-ctx.Done():
		return ctx.Err()
	}
	select {
	case <-req.Resp:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}

// Leave unregisters a connection. Safe to call for ids the world never saw.
func (w *World) Leave(connID string) {
	w.leaveCh <- connID
}

func (w *World) Metrics() Metrics {
	return Metrics{
		Agents:    int(w.agentsN.Load()),
		Observers: int(w.observersN.Load()),
		Blocks:    int(w.blocksN.Load()),
	}
}

// Stats asks the loop for a consistent roster snapshot.
func (w *World) Stats(ctx context.Context) (StatsInfo, error) {
	req := statsReq{resp: make(chan StatsInfo, 1)}
	select {
	case w.statsCh <- req:
	case <-ctx.Done():
		return StatsInfo{}, ctx.Err()
	}
	select {
	case info := <-req.resp:
		return info, nil
	case <-ctx.Done():
		return StatsInfo{}, ctx.Err()
	}
}

// ExportDocument snapshots the aggregate for a final shutdown write.
func (w *World) ExportDocument(ctx context.Context) (state.DocumentV1, error) {
	req := exportReq{resp: make(chan state.DocumentV1, 1)}
	select {
	case w.export <- req:
	case <-ctx.Done():
		return state.DocumentV1{}, ctx.Err()
	}
	select {
	case doc := <-req.resp:
		return doc, nil
	case <-ctx.Done():
		return state.DocumentV1{}, ctx.Err()
	}
}

// Run owns the aggregate until ctx is cancelled. A pending flush is forced on
// the way out so the shutdown path loses at most the unsaved tail.
func (w *World) Run(ctx context.Context) {
	ticker := time.NewTicker(time.Second)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			if w.dirty {
				w.flushNow()
			}
			return
		case env := <-w.inbox:
			w.dispatch(env)
		case req := <-w.joinCh:
			w.handleJoin(req)
		case connID := <-w.leaveCh:
			w.handleLeave(connID)
		case req := <-w.statsCh:
			req.resp <- w.buildStats()
		case req := <-w.export:
			req.resp <- w.exportDocument()
		case <-ticker.C:
			w.housekeeping(w.now())
		}
	}
}

func (w *World) housekeeping(now time.Time) {
	w.flushIfDue(now)
	if now.Sub(w.lastSweep) >= w.cfg.SweepInterval {
		w.lastSweep = now
		w.sweepAuctions(now)
		w.settleRankings(now)
	}
}

func (w *World) buildStats() StatsInfo {
	info := StatsInfo{
		AgentCount:    len(w.agents),
		ObserverCount: len(w.observers),
		BlockCount:    len(w.state.Blocks),
		IslandCount:   len(w.state.Zones),
	}
	for _, s := range w.agents {
		info.Agents = append(info.Agents, AgentPublicInfo{ID: s.ConnID, Name: s.Name, Verified: s.Verified})
	}
	return info
}

func (w *World) handleJoin(req JoinRequest) {
	s := &Session{
		ConnID:       req.ConnID,
		Role:         req.Role,
		PersistentID: req.PersistentID,
		Name:         req.Name,
		Verified:     req.Verified,
		Out:          req.Out,
	}
	if req.Role == protocol.RoleAgent {
		w.agents[s.ConnID] = s
		w.agentsN.Store(int64(len(w.agents)))
		w.touchActivity(s.PersistentID, s.Name)
		w.restoreListedZones(s)
		w.send(s, protocol.AuthSuccessMsg{
			Type:         protocol.TypeAuthSuccess,
			Role:         protocol.RoleAgent,
			ClientID:     s.ConnID,
			PersistentID: s.PersistentID,
			AgentName:    s.Name,
			Verified:     s.Verified,
			Permissions:  []string{"build", "chat", "move", "trade"},
		})
		w.sendWorldState(s)
		w.broadcastAll(protocol.AgentJoinedMsg{
			Type:      protocol.TypeAgentJoined,
			AgentID:   s.ConnID,
			AgentName: s.Name,
			Verified:  s.Verified,
		}, s.ConnID)
	} else {
		if s.Name == "" {
			s.Name = observerName()
		}
		w.observers[s.ConnID] = s
		w.observersN.Store(int64(len(w.observers)))
		w.send(s, protocol.AuthSuccessMsg{
			Type:         protocol.TypeAuthSuccess,
			Role:         protocol.RoleObserver,
			ClientID:     s.ConnID,
			ObserverName: s.Name,
			Permissions:  []string{"view", "observer_chat"},
			Message:      "watching the world; the build surface is agents only",
		})
		w.sendWorldState(s)
	}
	w.broadcastAgentCount()
	w.log.Printf("join role=%s conn=%s name=%q agents=%d observers=%d", s.Role, s.ConnID, s.Name, len(w.agents), len(w.observers))
	close(req.Resp)
}

func (w *World) handleLeave(connID string) {
	if s, ok := w.agents[connID]; ok {
		delete(w.agents, connID)
		w.agentsN.Store(int64(len(w.agents)))
		if l, ok := w.lobsters[connID]; ok {
			w.state.Lobsters[l.PersistentID] = LobsterPos{Name: l.Name, X: l.X, Y: l.Y, Z: l.Z, Color: l.Color}
			delete(w.lobsters, connID)
			w.markDirty()
		}
		w.dropFromChannels(s)
		w.touchActivity(s.PersistentID, s.Name)
		w.broadcastAll(protocol.AgentLeftMsg{
			Type:      protocol.TypeAgentLeft,
			AgentID:   connID,
			AgentName: s.Name,
		}, connID)
		w.broadcastAgentCount()
		w.log.Printf("leave conn=%s name=%q agents=%d", connID, s.Name, len(w.agents))
		return
	}
	if _, ok := w.observers[connID]; ok {
		delete(w.observers, connID)
		w.observersN.Store(int64(len(w.observers)))
	}
}

func (w *World) touchActivity(pid, name string) {
	now := w.now()
	a := w.state.Activity[pid]
	if a == nil {
		a = &Activity{FirstSeen: now}
		w.state.Activity[pid] = a
	}
	a.LastOnline = now
	as := w.state.AgentStats[pid]
	if as == nil {
		w.state.AgentStats[pid] = &AgentStats{Name: name}
	} else if name != "" {
		as.Name = name
	}
	w.markDirty()
}

// send marshals on the loop and hands the frame to the session's writer. A
// full buffer drops the frame rather than stalling every other client.
func (w *World) send(s *Session, v any) {
	b, err := json.Marshal(v)
	if err != nil {
		w.log.Printf("marshal outbound for %s: %v", s.ConnID, err)
		return
	}
	w.sendRaw(s, b)
}

func (w *World) sendRaw(s *Session, b []byte) {
	select {
	case s.Out <- b:
	default:
		w.log.Printf("drop frame for slow client %s", s.ConnID)
	}
}

func (w *World) sendError(s *Session, code, errText, reason string) {
	w.send(s, protocol.ErrorMsg{Type: protocol.TypeError, Code: code, Error: errText, Reason: reason})
}

func (w *World) sessionFor(connID string) *Session {
	if s, ok := w.agents[connID]; ok {
		return s
	}
	return w.observers[connID]
}

func (w *World) agentByPersistentID(pid string) *Session {
	for _, s := range w.agents {
		if s.PersistentID == pid {
			return s
		}
	}
	return nil
}

func observerName() string {
	return "Observer_" + itoa4(1000+rand.IntN(9000))
}

func itoa4(n int) string {
	buf := [4]byte{}
	for i := 3; i >= 0; i-- {
		buf[i] = byte('0' + n%10)
		n /= 10
	}
	return string(buf[:])
}
