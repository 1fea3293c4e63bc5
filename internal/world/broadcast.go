package world

import (
	"encoding/json"
	"math"

	"aiworld.dev/internal/protocol"
)

func (w *World) cellOf(v float64) int {
	return int(math.Floor(v / float64(w.cfg.GridCellSize)))
}

func (w *World) lobsterCell(l *Lobster) (int, int, int) {
	return w.cellOf(l.X), w.cellOf(l.Y), w.cellOf(l.Z)
}

func cellNear(ax, ay, az, bx, by, bz, r int) bool {
	return abs(ax-bx) <= r && abs(ay-by) <= r && abs(az-bz) <= r
}

func abs(n int) int {
	if n < 0 {
		return -n
	}
	return n
}

func (w *World) marshal(v any) []byte {
	b, err := json.Marshal(v)
	if err != nil {
		w.log.Printf("marshal broadcast: %v", err)
		return nil
	}
	return b
}

// broadcastAll fans a message to every agent and observer, minus the listed
// connection ids.
func (w *World) broadcastAll(v any, except ...string) {
	b := w.marshal(v)
	if b == nil {
		return
	}
	skip := func(id string) bool {
		for _, e := range except {
			if e == id {
				return true
			}
		}
		return false
	}
	for id, s := range w.agents {
		if !skip(id) {
			w.sendRaw(s, b)
		}
	}
	for id, s := range w.observers {
		if !skip(id) {
			w.sendRaw(s, b)
		}
	}
}

func (w *World) broadcastObservers(v any) {
	b := w.marshal(v)
	if b == nil {
		return
	}
	for _, s := range w.observers {
		w.sendRaw(s, b)
	}
}

// broadcastNearby delivers to agents whose lobster sits within the grid
// neighborhood of (x,y,z) and to every observer. Agents without a spawned
// lobster have no position and hear nothing spatial. The sender is skipped.
func (w *World) broadcastNearby(sender *Session, v any, x, y, z float64) {
	b := w.marshal(v)
	if b == nil {
		return
	}
	gx, gy, gz := w.cellOf(x), w.cellOf(y), w.cellOf(z)
	for id, s := range w.agents {
		if sender != nil && id == sender.ConnID {
			continue
		}
		l, ok := w.lobsters[id]
		if !ok {
			continue
		}
		lx, ly, lz := w.lobsterCell(l)
		if cellNear(gx, gy, gz, lx, ly, lz, w.cfg.NearbyRange) {
			w.sendRaw(s, b)
		}
	}
	for _, s := range w.observers {
		w.sendRaw(s, b)
	}
}

func (w *World) broadcastChannel(channel string, v any, except ...string) {
	members := w.channels[channel]
	if len(members) == 0 {
		return
	}
	b := w.marshal(v)
	if b == nil {
		return
	}
	skip := func(id string) bool {
		for _, e := range except {
			if e == id {
				return true
			}
		}
		return false
	}
	for id := range members {
		if skip(id) {
			continue
		}
		if s, ok := w.agents[id]; ok {
			w.sendRaw(s, b)
		}
	}
}

func (w *World) broadcastAgentCount() {
	w.broadcastAll(protocol.AgentCountMsg{Type: protocol.TypeAgentCount, Count: len(w.agents)})
}
