package world

import (
	"encoding/json"
	"time"

	"github.com/google/uuid"

	"aiworld.dev/internal/protocol"
)

func (w *World) zoneByID(id string) *Zone {
	for _, z := range w.state.Zones {
		if z.ID == id {
			return z
		}
	}
	return nil
}

func (w *World) zoneOwnedBy(pid string) *Zone {
	for _, z := range w.state.Zones {
		if !z.Spawn && z.OwnerID == pid {
			return z
		}
	}
	return nil
}

func (w *World) handleZoneUpdate(s *Session, data []byte) {
	var msg protocol.ZoneUpdateMsg
	if err := json.Unmarshal(data, &msg); err != nil {
		return
	}
	switch msg.Action {
	case "create":
		w.claimZone(s, msg.Zone)
	case "update":
		w.renameZone(s, msg.Zone)
	case "delete":
		w.sendError(s, protocol.ErrBadRequest, "parcels cannot be deleted",
			"land only changes hands through the auction house")
	default:
		w.sendError(s, protocol.ErrBadRequest, "unknown zone action", "use \"create\" or \"update\"")
	}
}

func (w *World) claimZone(s *Session, claim protocol.ZoneClaim) {
	if existing := w.zoneOwnedBy(s.PersistentID); existing != nil {
		w.sendError(s, protocol.ErrConflict, "you already own an island",
			"one island per agent; rename or build on "+existing.ID)
		return
	}
	id := claim.ID
	if id == "" {
		id = "island_" + uuid.NewString()
	}
	if w.zoneByID(id) != nil {
		w.sendError(s, protocol.ErrConflict, "island id already exists", "")
		return
	}
	cx := w.cellOf(float64(claim.Center[0]))
	cz := w.cellOf(float64(claim.Center[2]))
	for _, z := range w.state.Zones {
		if w.cellOf(float64(z.Center[0])) == cx && w.cellOf(float64(z.Center[2])) == cz {
			w.sendError(s, protocol.ErrConflict, "that spot is already claimed",
				"pick a center in an unclaimed grid cell")
			return
		}
	}
	now := w.now()
	name := claim.Name
	if name == "" {
		name = s.Name + "'s Island"
	}
	radius := claim.Radius
	if radius <= 0 {
		radius = w.cfg.GridCellSize / 2
	}
	z := &Zone{
		ID:         id,
		Name:       name,
		OwnerID:    s.PersistentID,
		OwnerName:  s.Name,
		Center:     claim.Center,
		Radius:     radius,
		Tags:       claim.Tags,
		CreatedAt:  now,
		LastActive: now,
	}
	w.state.Zones = append(w.state.Zones, z)
	w.markDirty()
	// Claiming teleports the owner's lobster onto the new parcel.
	if l, ok := w.lobsters[s.ConnID]; ok {
		l.X = float64(claim.Center[0])
		l.Y = float64(claim.Center[1])
		l.Z = float64(claim.Center[2])
		w.state.Lobsters[s.PersistentID] = LobsterPos{Name: l.Name, X: l.X, Y: l.Y, Z: l.Z, Color: l.Color}
		w.broadcastNearby(s, protocol.LobsterMovedMsg{
			Type:    protocol.TypeLobsterMoved,
			AgentID: s.ConnID,
			X:       l.X,
			Y:       l.Y,
			Z:       l.Z,
		}, l.X, l.Y, l.Z)
		w.sendLobsterSync(s)
	}
	w.broadcastAll(protocol.ZoneSyncMsg{Type: protocol.TypeZoneSync, Action: "create", Zone: zoneInfo(z)})
}

func (w *World) renameZone(s *Session, claim protocol.ZoneClaim) {
	z := w.zoneByID(claim.ID)
	if z == nil {
		w.sendError(s, protocol.ErrNotFound, "island not found", "")
		return
	}
	if z.Protected || z.OwnerID != s.PersistentID {
		w.sendError(s, protocol.ErrNoPermission, "not your island", "")
		return
	}
	if claim.Name != "" {
		z.Name = claim.Name
	}
	if claim.Tags != nil {
		z.Tags = claim.Tags
	}
	z.LastActive = w.now()
	w.markDirty()
	w.broadcastAll(protocol.ZoneSyncMsg{Type: protocol.TypeZoneSync, Action: "update", Zone: zoneInfo(z)})
}

// sweepAuctions lists parcels whose owner has been gone past the inactivity
// threshold. Spawn and protected parcels never enter the auction house.
func (w *World) sweepAuctions(now time.Time) {
	for _, z := range w.state.Zones {
		if z.Spawn || z.Protected || z.OwnerID == "" || z.AuctionState == AuctionListed {
			continue
		}
		last := z.LastActive
		if a := w.state.Activity[z.OwnerID]; a != nil && a.LastOnline.After(last) {
			last = a.LastOnline
		}
		if last.IsZero() {
			last = z.CreatedAt
		}
		if now.Sub(last) <= w.cfg.InactiveAfter {
			continue
		}
		if w.agentByPersistentID(z.OwnerID) != nil {
			continue
		}
		z.OriginalOwnerID = z.OwnerID
		z.OwnerID = ""
		z.OwnerName = ""
		z.AuctionState = AuctionListed
		z.AuctionStart = now
		w.markDirty()
		w.log.Printf("auction listing %s (%s) after owner inactivity", z.ID, z.Name)
		w.broadcastAll(protocol.ZoneSyncMsg{Type: protocol.TypeZoneSync, Action: "update", Zone: zoneInfo(z)})
		w.broadcastAll(protocol.IslandAuctionMsg{Type: protocol.TypeIslandAuction, Island: w.auctionIsland(z)})
	}
}

// restoreListedZones returns a still-unsold listing to its original owner the
// moment they reconnect.
func (w *World) restoreListedZones(s *Session) {
	for _, z := range w.state.Zones {
		if z.AuctionState != AuctionListed || z.OriginalOwnerID != s.PersistentID || z.OwnerID != "" {
			continue
		}
		z.OwnerID = s.PersistentID
		z.OwnerName = s.Name
		z.OriginalOwnerID = ""
		z.AuctionState = AuctionNone
		z.AuctionStart = time.Time{}
		z.LastActive = w.now()
		w.markDirty()
		w.log.Printf("restored %s (%s) to returning owner", z.ID, z.Name)
		w.broadcastAll(protocol.ZoneSyncMsg{Type: protocol.TypeZoneSync, Action: "update", Zone: zoneInfo(z)})
	}
}

func (w *World) auctionIsland(z *Zone) protocol.AuctionIsland {
	return protocol.AuctionIsland{
		ID:              z.ID,
		Name:            z.Name,
		Center:          z.Center,
		OriginalOwnerID: z.OriginalOwnerID,
		AuctionStart:    timeToMs(z.AuctionStart),
		Price:           w.cfg.LandPrice,
		Tags:            z.Tags,
	}
}

func (w *World) handleGetAuctionIslands(s *Session, data []byte) {
	resp := protocol.AuctionIslandsMsg{Type: protocol.TypeAuctionIslands, Islands: []protocol.AuctionIsland{}}
	for _, z := range w.state.Zones {
		if z.AuctionState == AuctionListed {
			resp.Islands = append(resp.Islands, w.auctionIsland(z))
		}
	}
	w.send(s, resp)
}
