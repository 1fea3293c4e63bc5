package world

import (
	"encoding/json"

	"aiworld.dev/internal/protocol"
)

func (w *World) handleLobsterSpawn(s *Session, data []byte) {
	var msg protocol.LobsterSpawnMsg
	if err := json.Unmarshal(data, &msg); err != nil {
		return
	}
	l := &Lobster{
		ConnID:       s.ConnID,
		PersistentID: s.PersistentID,
		Name:         s.Name,
		X:            msg.Lobster.X,
		Y:            msg.Lobster.Y,
		Z:            msg.Lobster.Z,
		Color:        msg.Lobster.Color,
	}
	// A returning agent resumes where it froze on disconnect; the spawn
	// request's position only applies to a first appearance.
	if frozen, ok := w.state.Lobsters[s.PersistentID]; ok {
		l.X, l.Y, l.Z = frozen.X, frozen.Y, frozen.Z
		if l.Color == "" {
			l.Color = frozen.Color
		}
		delete(w.state.Lobsters, s.PersistentID)
	}
	w.lobsters[s.ConnID] = l
	w.state.Lobsters[s.PersistentID] = LobsterPos{Name: l.Name, X: l.X, Y: l.Y, Z: l.Z, Color: l.Color}
	w.markDirty()
	w.broadcastNearby(s, protocol.LobsterSpawnedMsg{Type: protocol.TypeLobsterSpawned, Lobster: lobsterInfo(l)}, l.X, l.Y, l.Z)
	w.sendLobsterSync(s)
}

func (w *World) handleLobsterMove(s *Session, data []byte) {
	var msg protocol.LobsterMoveMsg
	if err := json.Unmarshal(data, &msg); err != nil {
		return
	}
	l, ok := w.lobsters[s.ConnID]
	if !ok {
		return
	}
	oldX, oldY, oldZ := w.lobsterCell(l)
	l.X, l.Y, l.Z = msg.X, msg.Y, msg.Z
	w.state.Lobsters[s.PersistentID] = LobsterPos{Name: l.Name, X: l.X, Y: l.Y, Z: l.Z, Color: l.Color}
	w.markDirty()
	w.broadcastNearby(s, protocol.LobsterMovedMsg{
		Type:    protocol.TypeLobsterMoved,
		AgentID: s.ConnID,
		X:       l.X,
		Y:       l.Y,
		Z:       l.Z,
	}, l.X, l.Y, l.Z)
	newX, newY, newZ := w.lobsterCell(l)
	if oldX != newX || oldY != newY || oldZ != newZ {
		w.sendLobsterSync(s)
	}
}

// sendLobsterSync refreshes an agent's neighborhood roster after its grid
// cell changes.
func (w *World) sendLobsterSync(s *Session) {
	w.send(s, protocol.LobsterSyncMsg{Type: protocol.TypeLobsterSync, Lobsters: w.nearbyLobsters(s)})
}

// nearbyLobsters lists other agents' lobsters in grid range. An agent that
// has not spawned yet sees everyone, as fresh observers do.
func (w *World) nearbyLobsters(s *Session) []protocol.LobsterInfo {
	var out []protocol.LobsterInfo
	self, spawned := w.lobsters[s.ConnID]
	for id, l := range w.lobsters {
		if id == s.ConnID {
			continue
		}
		if spawned {
			sx, sy, sz := w.lobsterCell(self)
			lx, ly, lz := w.lobsterCell(l)
			if !cellNear(sx, sy, sz, lx, ly, lz, w.cfg.NearbyRange) {
				continue
			}
		}
		out = append(out, lobsterInfo(l))
	}
	return out
}
