package world

import (
	"testing"
	"time"

	"aiworld.dev/internal/protocol"
)

func claimIsland(t *testing.T, w *World, s *Session, id string, center [3]int) {
	t.Helper()
	send(w, s, protocol.ZoneUpdateMsg{Type: protocol.TypeZoneUpdate, Action: "create",
		Zone: protocol.ZoneClaim{ID: id, Name: id, Center: center}})
	if w.zoneByID(id) == nil {
		t.Fatalf("claim of %s failed", id)
	}
	drain(s)
}

func TestVisitRewardOncePerIslandPerDay(t *testing.T) {
	w, _, _ := newTestWorld(t, nil)
	owner := joinAgent(t, w, "owner", "Owner")
	visitor := joinAgent(t, w, "visitor", "Visitor")
	claimIsland(t, w, owner, "isle", [3]int{128, 0, 0})
	drain(visitor)

	send(w, visitor, protocol.IslandMsg{Type: protocol.TypeIslandVisit, IslandID: "isle"})
	reward := nextOfType(t, visitor, protocol.TypeCoinReward)
	if reward["amount"].(float64) != 0.1 || reward["reason"] != "visit" {
		t.Fatalf("reward = %v", reward)
	}

	// Second visit on the same day: counted, not paid.
	send(w, visitor, protocol.IslandMsg{Type: protocol.TypeIslandVisit, IslandID: "isle"})
	if hasType(visitor, protocol.TypeCoinReward) {
		t.Fatalf("repeat visit paid twice")
	}
	if w.state.IslandStats["isle"].Visits != 2 {
		t.Fatalf("visits = %d, want 2", w.state.IslandStats["isle"].Visits)
	}
	if bal := w.state.Wallets["visitor"].Balance; bal != 0.1 {
		t.Fatalf("balance = %g, want 0.1", bal)
	}
}

func TestVisitRewardDailyCapAndReset(t *testing.T) {
	w, clock, _ := newTestWorld(t, nil)
	visitor := joinAgent(t, w, "visitor", "Visitor")
	for i := 0; i < 12; i++ {
		w.state.Zones = append(w.state.Zones, &Zone{
			ID:        islandID(i),
			Name:      islandID(i),
			OwnerID:   ownerID(i),
			Center:    [3]int{128 * (i + 1), 0, 0},
			CreatedAt: clock.Now(),
		})
	}
	drain(visitor)
	for i := 0; i < 12; i++ {
		send(w, visitor, protocol.IslandMsg{Type: protocol.TypeIslandVisit, IslandID: islandID(i)})
	}
	drain(visitor)
	wl := w.state.Wallets["visitor"]
	if wl.Balance != 1.0 {
		t.Fatalf("balance = %g, want capped at 1.0", wl.Balance)
	}

	// A new day resets the budget.
	clock.Advance(24 * time.Hour)
	send(w, visitor, protocol.IslandMsg{Type: protocol.TypeIslandVisit, IslandID: islandID(0)})
	if !hasType(visitor, protocol.TypeCoinReward) {
		t.Fatalf("no reward after daily reset")
	}
	if wl.Balance != 1.1 {
		t.Fatalf("balance = %g, want 1.1", wl.Balance)
	}
}

func islandID(i int) string { return "isle_" + string(rune('a'+i)) }
func ownerID(i int) string  { return "owner_" + string(rune('a'+i)) }

func TestOwnIslandGivesNothing(t *testing.T) {
	w, _, _ := newTestWorld(t, nil)
	owner := joinAgent(t, w, "owner", "Owner")
	claimIsland(t, w, owner, "mine", [3]int{128, 0, 0})

	send(w, owner, protocol.IslandMsg{Type: protocol.TypeIslandVisit, IslandID: "mine"})
	if hasType(owner, protocol.TypeCoinReward) {
		t.Fatalf("self-visit paid out")
	}
	send(w, owner, protocol.IslandMsg{Type: protocol.TypeIslandLike, IslandID: "mine"})
	res := nextOfType(t, owner, protocol.TypeLikeResult)
	if res["success"] != false {
		t.Fatalf("self-like succeeded")
	}
}

func TestLikeLifetimeDedupeAndDailyBudget(t *testing.T) {
	w, clock, _ := newTestWorld(t, func(c *Config) { c.LikesPerDay = 1 })
	owner := joinAgent(t, w, "owner", "Owner")
	liker := joinAgent(t, w, "liker", "Liker")
	claimIsland(t, w, owner, "isleA", [3]int{128, 0, 0})
	w.state.Zones = append(w.state.Zones, &Zone{ID: "isleB", Name: "B", OwnerID: "other", Center: [3]int{256, 0, 0}, CreatedAt: clock.Now()})
	drain(liker)

	send(w, liker, protocol.IslandMsg{Type: protocol.TypeIslandLike, IslandID: "isleA"})
	ok := nextOfType(t, liker, protocol.TypeLikeResult)
	if ok["success"] != true || ok["reward"].(float64) != 0.5 {
		t.Fatalf("first like = %v", ok)
	}

	// Daily budget spent: a different island is refused today.
	send(w, liker, protocol.IslandMsg{Type: protocol.TypeIslandLike, IslandID: "isleB"})
	budget := nextOfType(t, liker, protocol.TypeLikeResult)
	if budget["success"] != false {
		t.Fatalf("like over daily budget succeeded")
	}

	// Next day the budget refills, but the same island stays liked forever.
	clock.Advance(24 * time.Hour)
	send(w, liker, protocol.IslandMsg{Type: protocol.TypeIslandLike, IslandID: "isleA"})
	dup := nextOfType(t, liker, protocol.TypeLikeResult)
	if dup["success"] != false {
		t.Fatalf("lifetime dedupe failed")
	}
	send(w, liker, protocol.IslandMsg{Type: protocol.TypeIslandLike, IslandID: "isleB"})
	fresh := nextOfType(t, liker, protocol.TypeLikeResult)
	if fresh["success"] != true {
		t.Fatalf("like after refill failed: %v", fresh)
	}
	if w.state.IslandStats["isleA"].Likes != 1 {
		t.Fatalf("isleA likes = %d", w.state.IslandStats["isleA"].Likes)
	}
}

func TestGetBalance(t *testing.T) {
	w, _, _ := newTestWorld(t, nil)
	a := joinAgent(t, w, "a", "A")
	w.wallet("a").Balance = 42.5
	send(w, a, protocol.BaseMessage{Type: protocol.TypeGetBalance})
	bal := nextOfType(t, a, protocol.TypeBalance)
	if bal["balance"].(float64) != 42.5 {
		t.Fatalf("balance = %v", bal)
	}
}

func TestWeeklySettlementSplitsPoolsAndResets(t *testing.T) {
	w, clock, _ := newTestWorld(t, nil)
	owner1 := joinAgent(t, w, "p1", "P1")
	joinAgent(t, w, "p2", "P2")
	claimIsland(t, w, owner1, "i1", [3]int{128, 0, 0})
	w.state.Zones = append(w.state.Zones, &Zone{ID: "i2", Name: "I2", OwnerID: "p2", OwnerName: "P2", Center: [3]int{256, 0, 0}, CreatedAt: clock.Now()})

	// Start the period clock.
	w.settleRankings(clock.Now())

	w.islandStats("i1").Visits = 3
	w.islandStats("i2").Visits = 1
	w.islandStats("i1").Likes = 1
	w.state.AgentStats["p1"].Contributions = 10
	w.state.AgentStats["p2"].Contributions = 30

	clock.Advance(7 * 24 * time.Hour)
	w.settleRankings(clock.Now())

	// Visits pool 100: 75/25. Likes pool 100: all to i1. Contributions
	// pool 100: 25/75.
	if got := w.state.Wallets["p1"].Balance; got != 75+100+25 {
		t.Fatalf("p1 balance = %g, want 200", got)
	}
	if got := w.state.Wallets["p2"].Balance; got != 25+75 {
		t.Fatalf("p2 balance = %g, want 100", got)
	}
	if w.state.IslandStats["i1"].Visits != 0 || w.state.IslandStats["i1"].Likes != 0 {
		t.Fatalf("island counters not reset")
	}
	if w.state.AgentStats["p1"].Contributions != 0 {
		t.Fatalf("contribution counter not reset")
	}
	if !w.state.LastSettlement.Equal(clock.Now()) {
		t.Fatalf("settlement timestamp not advanced")
	}

	// Another period with no activity pays nothing.
	clock.Advance(7 * 24 * time.Hour)
	w.settleRankings(clock.Now())
	if got := w.state.Wallets["p1"].Balance; got != 200 {
		t.Fatalf("idle period changed balance to %g", got)
	}
}

func TestSettlementKeepsLifetimeLikeDedupe(t *testing.T) {
	w, clock, _ := newTestWorld(t, nil)
	owner := joinAgent(t, w, "owner", "Owner")
	liker := joinAgent(t, w, "liker", "Liker")
	claimIsland(t, w, owner, "isle", [3]int{128, 0, 0})
	drain(liker)
	send(w, liker, protocol.IslandMsg{Type: protocol.TypeIslandLike, IslandID: "isle"})
	drain(liker)

	w.settleRankings(clock.Now())
	clock.Advance(8 * 24 * time.Hour)
	w.settleRankings(clock.Now())

	clock.Advance(24 * time.Hour)
	send(w, liker, protocol.IslandMsg{Type: protocol.TypeIslandLike, IslandID: "isle"})
	res := nextOfType(t, liker, protocol.TypeLikeResult)
	if res["success"] != false {
		t.Fatalf("settlement wiped the lifetime like dedupe")
	}
}
