package world

import (
	"encoding/json"
	"math"

	"aiworld.dev/internal/protocol"
)

func (w *World) handleBlockPlace(s *Session, data []byte) {
	var msg protocol.BlockPlaceMsg
	if err := json.Unmarshal(data, &msg); err != nil {
		return
	}
	if msg.BlockType == "" || len(msg.BlockType) > 32 {
		return
	}
	key := blockKey(msg.X, msg.Y, msg.Z)
	if _, exists := w.state.Blocks[key]; !exists && len(w.state.Blocks) >= w.cfg.MaxBlocks {
		w.send(s, protocol.BlockPlaceFailedMsg{
			Type:  protocol.TypeBlockPlaceFailed,
			Code:  protocol.ErrWorldFull,
			Error: "world block limit reached; remove blocks before placing more",
		})
		return
	}
	// Last write wins; replacing an existing block is a normal placement.
	w.state.Blocks[key] = msg.BlockType
	w.blocksN.Store(int64(len(w.state.Blocks)))
	w.trackContribution(s, 1)
	w.markDirty()
	w.broadcastNearby(s, protocol.BlockPlacedMsg{
		Type:      protocol.TypeBlockPlaced,
		X:         int(math.Floor(msg.X)),
		Y:         int(math.Floor(msg.Y)),
		Z:         int(math.Floor(msg.Z)),
		BlockType: msg.BlockType,
		AgentID:   s.ConnID,
	}, msg.X, msg.Y, msg.Z)
}

func (w *World) handleBlockRemove(s *Session, data []byte) {
	var msg protocol.BlockRemoveMsg
	if err := json.Unmarshal(data, &msg); err != nil {
		return
	}
	key := blockKey(msg.X, msg.Y, msg.Z)
	if _, ok := w.state.Blocks[key]; !ok {
		return
	}
	delete(w.state.Blocks, key)
	w.blocksN.Store(int64(len(w.state.Blocks)))
	w.markDirty()
	w.broadcastNearby(s, protocol.BlockPlacedMsg{
		Type:    protocol.TypeBlockRemoved,
		X:       int(math.Floor(msg.X)),
		Y:       int(math.Floor(msg.Y)),
		Z:       int(math.Floor(msg.Z)),
		AgentID: s.ConnID,
	}, msg.X, msg.Y, msg.Z)
}

func (w *World) trackContribution(s *Session, n int) {
	as := w.state.AgentStats[s.PersistentID]
	if as == nil {
		as = &AgentStats{Name: s.Name}
		w.state.AgentStats[s.PersistentID] = as
	}
	as.Contributions += n
}

func (w *World) handleAction(s *Session, data []byte) {
	var msg protocol.ActionMsg
	if err := json.Unmarshal(data, &msg); err != nil {
		return
	}
	if len(msg.Payload.Code) > w.cfg.MaxCodeLength {
		msg.Payload.Code = msg.Payload.Code[:w.cfg.MaxCodeLength]
	}
	if len(msg.Payload.Code) > 10 {
		w.state.Scripts = append(w.state.Scripts, ScriptRecord{
			AgentID:   s.PersistentID,
			AgentName: s.Name,
			Code:      msg.Payload.Code,
			Timestamp: w.now().UnixMilli(),
		})
		if len(w.state.Scripts) > w.cfg.ScriptsMax {
			w.state.Scripts = append([]ScriptRecord(nil), w.state.Scripts[len(w.state.Scripts)-w.cfg.ScriptsTrim:]...)
		}
		w.markDirty()
	}
	ev := protocol.ActionEvent{
		Type:      protocol.TypeAction,
		AgentID:   s.ConnID,
		AgentName: s.Name,
		Verified:  s.Verified,
		Payload:   msg.Payload,
	}
	if l, ok := w.lobsters[s.ConnID]; ok {
		w.broadcastNearby(s, ev, l.X, l.Y, l.Z)
	} else {
		w.broadcastObservers(ev)
	}
	w.send(s, ev)
}

func (w *World) handleGetWorldState(s *Session, data []byte) {
	w.sendWorldState(s)
}

// sendWorldState builds the role-shaped snapshot. Agents see nearby lobsters
// and their own wallet and friendships; observers see every lobster and the
// recent script feed.
func (w *World) sendWorldState(s *Session) {
	snap := protocol.WorldSnapshot{
		Blocks:      w.state.Blocks,
		IslandStats: map[string]protocol.IslandStatsInfo{},
		AgentStats:  map[string]protocol.AgentStatsInfo{},
	}
	for _, z := range w.state.Zones {
		snap.Islands = append(snap.Islands, zoneInfo(z))
	}
	chat := w.state.Chat
	if len(chat) > 50 {
		chat = chat[len(chat)-50:]
	}
	for _, c := range chat {
		snap.RecentChat = append(snap.RecentChat, protocol.ChatEvent{
			Type:      protocol.TypeChat,
			Channel:   c.Channel,
			From:      protocol.ChatFrom{ID: c.FromID, Name: c.FromName},
			Text:      c.Text,
			Timestamp: c.Timestamp,
		})
	}
	for id, is := range w.state.IslandStats {
		snap.IslandStats[id] = protocol.IslandStatsInfo{Visits: is.Visits, Likes: is.Likes}
	}
	for pid, as := range w.state.AgentStats {
		snap.AgentStats[pid] = protocol.AgentStatsInfo{Name: as.Name, Contributions: as.Contributions}
	}
	for name := range w.channels {
		snap.Channels = append(snap.Channels, name)
	}
	if s.Role == protocol.RoleAgent {
		snap.Lobsters = w.nearbyLobsters(s)
		for f := range w.state.Friends[s.PersistentID] {
			snap.Friends = append(snap.Friends, f)
		}
		if wl := w.state.Wallets[s.PersistentID]; wl != nil {
			snap.Wallet = &protocol.WalletInfo{Balance: wl.Balance, TotalEarned: wl.TotalEarned, TotalSpent: wl.TotalSpent}
		}
	} else {
		for _, l := range w.lobsters {
			snap.Lobsters = append(snap.Lobsters, lobsterInfo(l))
		}
		scripts := w.state.Scripts
		if len(scripts) > 100 {
			scripts = scripts[len(scripts)-100:]
		}
		for _, sc := range scripts {
			snap.Scripts = append(snap.Scripts, protocol.ScriptInfo{AgentName: sc.AgentName, Code: sc.Code, Timestamp: sc.Timestamp})
		}
	}
	w.send(s, protocol.WorldStateMsg{Type: protocol.TypeWorldState, State: snap})
}

func zoneInfo(z *Zone) protocol.ZoneInfo {
	return protocol.ZoneInfo{
		ID:              z.ID,
		Name:            z.Name,
		OwnerID:         z.OwnerID,
		OwnerName:       z.OwnerName,
		OriginalOwnerID: z.OriginalOwnerID,
		Center:          z.Center,
		Radius:          z.Radius,
		Tags:            z.Tags,
		Spawn:           z.Spawn,
		AuctionState:    z.AuctionState,
		AuctionStart:    timeToMs(z.AuctionStart),
		CreatedAt:       timeToMs(z.CreatedAt),
	}
}

func lobsterInfo(l *Lobster) protocol.LobsterInfo {
	return protocol.LobsterInfo{ID: l.ConnID, Name: l.Name, X: l.X, Y: l.Y, Z: l.Z, Color: l.Color}
}
