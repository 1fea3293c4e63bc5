package world

import (
	"encoding/json"
	"sort"

	"aiworld.dev/internal/protocol"
)

const leaderboardSize = 10

func (w *World) handleGetLeaderboard(s *Session, data []byte) {
	var msg protocol.GetLeaderboardMsg
	if err := json.Unmarshal(data, &msg); err != nil {
		return
	}
	category := msg.Category
	if category == "" {
		category = "visits"
	}
	var entries []protocol.RankEntry
	switch category {
	case "visits", "likes":
		for _, z := range w.state.Zones {
			if z.Spawn || z.OwnerID == "" {
				continue
			}
			is := w.state.IslandStats[z.ID]
			if is == nil {
				continue
			}
			value := is.Visits
			if category == "likes" {
				value = is.Likes
			}
			entries = append(entries, protocol.RankEntry{
				ID:    z.ID,
				Name:  z.Name,
				Owner: z.OwnerName,
				Value: float64(value),
			})
		}
	case "contributors":
		for pid, as := range w.state.AgentStats {
			if as.Contributions == 0 {
				continue
			}
			entries = append(entries, protocol.RankEntry{
				ID:    pid,
				Name:  as.Name,
				Value: float64(as.Contributions),
			})
		}
	default:
		w.sendError(s, protocol.ErrBadRequest, "unknown leaderboard category",
			"use \"visits\", \"likes\" or \"contributors\"")
		return
	}
	sort.Slice(entries, func(i, j int) bool {
		if entries[i].Value != entries[j].Value {
			return entries[i].Value > entries[j].Value
		}
		return entries[i].ID < entries[j].ID
	})
	if len(entries) > leaderboardSize {
		entries = entries[:leaderboardSize]
	}
	if entries == nil {
		entries = []protocol.RankEntry{}
	}
	w.send(s, protocol.LeaderboardDataMsg{
		Type:     protocol.TypeLeaderboardData,
		Category: category,
		Rankings: entries,
	})
}

func (w *World) handleGetMyStats(s *Session, data []byte) {
	stats := protocol.MyStatsMsg{Type: protocol.TypeMyStats}
	for _, z := range w.state.Zones {
		if z.Spawn || z.OwnerID != s.PersistentID {
			continue
		}
		stats.Islands++
		if is := w.state.IslandStats[z.ID]; is != nil {
			stats.Likes += is.Likes
		}
	}
	if as := w.state.AgentStats[s.PersistentID]; as != nil {
		stats.Blocks = as.Contributions
	}
	if wl := w.state.Wallets[s.PersistentID]; wl != nil {
		stats.Coins = wl.Balance
	}
	stats.Friends = len(w.state.Friends[s.PersistentID])
	w.send(s, stats)
}
