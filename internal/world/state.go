package world

import (
	"fmt"
	"math"
	"sort"
	"time"

	"aiworld.dev/internal/persistence/state"
)

// Auction states for a zone. A zone with no owner and no listing does not
// exist; parcels only ever move between owned and listed.
const (
	AuctionNone   = ""
	AuctionListed = "listed"
)

const spawnZoneID = "spawn"

// Zone is an owned land parcel. Ownership is keyed by persistent identity,
// never by connection id.
type Zone struct {
	ID              string
	Name            string
	OwnerID         string
	OwnerName       string
	OriginalOwnerID string
	Center          [3]int
	Radius          int
	Tags            []string
	Spawn           bool
	Protected       bool
	AuctionState    string
	AuctionStart    time.Time
	CreatedAt       time.Time
	LastActive      time.Time
}

// Wallet tracks a persistent identity's coin balance plus the rolling daily
// reward counters. Date strings are UTC days.
type Wallet struct {
	Balance          float64
	TotalEarned      float64
	TotalSpent       float64
	LastVisitDate    string
	TodayVisitReward float64
	TodayVisited     []string
	LastLikeDate     string
	TodayLikes       int
}

type IslandStats struct {
	Visits  int
	Likes   int
	LikedBy map[string]struct{}
}

type AgentStats struct {
	Name          string
	Contributions int
}

type Activity struct {
	FirstSeen  time.Time
	LastOnline time.Time
}

type ChatRecord struct {
	Channel   string
	FromID    string
	FromName  string
	Text      string
	Timestamp int64
}

type ScriptRecord struct {
	AgentID   string
	AgentName string
	Code      string
	Timestamp int64
}

// LobsterPos is the frozen position remembered for a disconnected agent.
type LobsterPos struct {
	Name  string
	X     float64
	Y     float64
	Z     float64
	Color string
}

// Lobster is the live embodied entity of a connected agent.
type Lobster struct {
	ConnID       string
	PersistentID string
	Name         string
	X            float64
	Y            float64
	Z            float64
	Color        string
}

// worldState is the authoritative aggregate. It is touched only from the
// world goroutine.
type worldState struct {
	Blocks         map[string]string
	Zones          []*Zone
	Lobsters       map[string]LobsterPos // persistentId -> frozen position
	Chat           []ChatRecord
	Friends        map[string]map[string]struct{} // persistentId -> set
	Wallets        map[string]*Wallet
	IslandStats    map[string]*IslandStats
	AgentStats     map[string]*AgentStats
	Activity       map[string]*Activity
	Scripts        []ScriptRecord
	LastSettlement time.Time
}

func newWorldState() *worldState {
	return &worldState{
		Blocks:      map[string]string{},
		Lobsters:    map[string]LobsterPos{},
		Friends:     map[string]map[string]struct{}{},
		Wallets:     map[string]*Wallet{},
		IslandStats: map[string]*IslandStats{},
		AgentStats:  map[string]*AgentStats{},
		Activity:    map[string]*Activity{},
	}
}

func blockKey(x, y, z float64) string {
	return fmt.Sprintf("%d,%d,%d", int(math.Floor(x)), int(math.Floor(y)), int(math.Floor(z)))
}

func msToTime(ms int64) time.Time {
	if ms == 0 {
		return time.Time{}
	}
	return time.UnixMilli(ms).UTC()
}

func timeToMs(t time.Time) int64 {
	if t.IsZero() {
		return 0
	}
	return t.UnixMilli()
}

// ensureSpawnZone creates the protected spawn parcel on a fresh world. It is
// never owned, never auctioned, and never counted in rankings.
func (st *worldState) ensureSpawnZone(now time.Time, radius int) {
	for _, z := range st.Zones {
		if z.Spawn {
			return
		}
	}
	st.Zones = append(st.Zones, &Zone{
		ID:        spawnZoneID,
		Name:      "Spawn Plaza",
		Center:    [3]int{0, 0, 0},
		Radius:    radius,
		Spawn:     true,
		Protected: true,
		CreatedAt: now,
	})
}

// ImportDocument replaces the aggregate with the contents of a persisted
// document. Call before Run.
func (w *World) ImportDocument(doc state.DocumentV1) {
	st := newWorldState()
	for k, v := range doc.Blocks {
		st.Blocks[k] = v
	}
	for _, z := range doc.Zones {
		st.Zones = append(st.Zones, &Zone{
			ID:              z.ID,
			Name:            z.Name,
			OwnerID:         z.OwnerID,
			OwnerName:       z.OwnerName,
			OriginalOwnerID: z.OriginalOwnerID,
			Center:          z.Center,
			Radius:          z.Radius,
			Tags:            z.Tags,
			Spawn:           z.Spawn,
			Protected:       z.Protected,
			AuctionState:    z.AuctionState,
			AuctionStart:    msToTime(z.AuctionStart),
			CreatedAt:       msToTime(z.CreatedAt),
			LastActive:      msToTime(z.LastActive),
		})
	}
	for pid, l := range doc.Lobsters {
		st.Lobsters[pid] = LobsterPos{Name: l.Name, X: l.X, Y: l.Y, Z: l.Z, Color: l.Color}
	}
	for _, c := range doc.Chat {
		st.Chat = append(st.Chat, ChatRecord(c))
	}
	for pid, friends := range doc.Friendships {
		set := map[string]struct{}{}
		for _, f := range friends {
			set[f] = struct{}{}
		}
		st.Friends[pid] = set
	}
	for pid, v := range doc.Wallets {
		wl := Wallet{
			Balance:          v.Balance,
			TotalEarned:      v.TotalEarned,
			TotalSpent:       v.TotalSpent,
			LastVisitDate:    v.LastVisitDate,
			TodayVisitReward: v.TodayVisitReward,
			TodayVisited:     append([]string(nil), v.TodayVisited...),
			LastLikeDate:     v.LastLikeDate,
			TodayLikes:       v.TodayLikes,
		}
		st.Wallets[pid] = &wl
	}
	for id, v := range doc.IslandStats {
		is := &IslandStats{Visits: v.Visits, Likes: v.Likes, LikedBy: map[string]struct{}{}}
		for _, pid := range v.LikedBy {
			is.LikedBy[pid] = struct{}{}
		}
		st.IslandStats[id] = is
	}
	for pid, v := range doc.AgentStats {
		st.AgentStats[pid] = &AgentStats{Name: v.Name, Contributions: v.Contributions}
	}
	for pid, v := range doc.Activity {
		st.Activity[pid] = &Activity{FirstSeen: msToTime(v.FirstSeen), LastOnline: msToTime(v.LastOnline)}
	}
	for _, s := range doc.Scripts {
		st.Scripts = append(st.Scripts, ScriptRecord(s))
	}
	st.LastSettlement = msToTime(doc.LastSettlement)
	st.ensureSpawnZone(w.now(), w.cfg.GridCellSize/2)
	w.state = st
	w.blocksN.Store(int64(len(st.Blocks)))
}

// exportDocument snapshots the aggregate into the versioned persistence
// document. Collections are copied; the caller may hand the document to
// another goroutine.
func (w *World) exportDocument() state.DocumentV1 {
	st := w.state
	doc := state.DocumentV1{
		SchemaVersion:  state.SchemaVersion,
		SavedAt:        w.now().UnixMilli(),
		Blocks:         make(map[string]string, len(st.Blocks)),
		Lobsters:       make(map[string]state.LobsterV1, len(st.Lobsters)),
		Friendships:    make(map[string][]string, len(st.Friends)),
		Wallets:        make(map[string]state.WalletV1, len(st.Wallets)),
		IslandStats:    make(map[string]state.IslandStatsV1, len(st.IslandStats)),
		AgentStats:     make(map[string]state.AgentStatsV1, len(st.AgentStats)),
		Activity:       make(map[string]state.ActivityV1, len(st.Activity)),
		LastSettlement: timeToMs(st.LastSettlement),
	}
	for k, v := range st.Blocks {
		doc.Blocks[k] = v
	}
	for _, z := range st.Zones {
		doc.Zones = append(doc.Zones, state.ZoneV1{
			ID:              z.ID,
			Name:            z.Name,
			OwnerID:         z.OwnerID,
			OwnerName:       z.OwnerName,
			OriginalOwnerID: z.OriginalOwnerID,
			Center:          z.Center,
			Radius:          z.Radius,
			Tags:            append([]string(nil), z.Tags...),
			Spawn:           z.Spawn,
			Protected:       z.Protected,
			AuctionState:    z.AuctionState,
			AuctionStart:    timeToMs(z.AuctionStart),
			CreatedAt:       timeToMs(z.CreatedAt),
			LastActive:      timeToMs(z.LastActive),
		})
	}
	// Connected lobsters persist under their frozen key too, so a crash
	// before the next disconnect still remembers positions.
	for pid, l := range st.Lobsters {
		doc.Lobsters[pid] = state.LobsterV1{Name: l.Name, X: l.X, Y: l.Y, Z: l.Z, Color: l.Color}
	}
	for _, l := range w.lobsters {
		doc.Lobsters[l.PersistentID] = state.LobsterV1{Name: l.Name, X: l.X, Y: l.Y, Z: l.Z, Color: l.Color}
	}
	for _, c := range st.Chat {
		doc.Chat = append(doc.Chat, state.ChatV1(c))
	}
	for pid, set := range st.Friends {
		friends := make([]string, 0, len(set))
		for f := range set {
			friends = append(friends, f)
		}
		sort.Strings(friends)
		doc.Friendships[pid] = friends
	}
	for pid, wl := range st.Wallets {
		doc.Wallets[pid] = state.WalletV1{
			Balance:          wl.Balance,
			TotalEarned:      wl.TotalEarned,
			TotalSpent:       wl.TotalSpent,
			LastVisitDate:    wl.LastVisitDate,
			TodayVisitReward: wl.TodayVisitReward,
			TodayVisited:     append([]string(nil), wl.TodayVisited...),
			LastLikeDate:     wl.LastLikeDate,
			TodayLikes:       wl.TodayLikes,
		}
	}
	for id, is := range st.IslandStats {
		likedBy := make([]string, 0, len(is.LikedBy))
		for pid := range is.LikedBy {
			likedBy = append(likedBy, pid)
		}
		sort.Strings(likedBy)
		doc.IslandStats[id] = state.IslandStatsV1{Visits: is.Visits, Likes: is.Likes, LikedBy: likedBy}
	}
	for pid, as := range st.AgentStats {
		doc.AgentStats[pid] = state.AgentStatsV1{Name: as.Name, Contributions: as.Contributions}
	}
	for pid, a := range st.Activity {
		doc.Activity[pid] = state.ActivityV1{FirstSeen: timeToMs(a.FirstSeen), LastOnline: timeToMs(a.LastOnline)}
	}
	for _, s := range st.Scripts {
		doc.Scripts = append(doc.Scripts, state.ScriptV1(s))
	}
	return doc
}
