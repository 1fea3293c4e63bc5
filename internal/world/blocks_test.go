package world

import (
	"testing"

	"aiworld.dev/internal/protocol"
)

func TestBlockPlaceLastWriteWins(t *testing.T) {
	w, _, _ := newTestWorld(t, nil)
	a := joinAgent(t, w, "a", "A")
	send(w, a, protocol.BlockPlaceMsg{Type: protocol.TypeBlockPlace, X: 1.7, Y: 2.2, Z: 3.9, BlockType: "stone"})
	send(w, a, protocol.BlockPlaceMsg{Type: protocol.TypeBlockPlace, X: 1.1, Y: 2.8, Z: 3.0, BlockType: "coral"})
	if got := w.state.Blocks["1,2,3"]; got != "coral" {
		t.Fatalf("block = %q, want coral (floored key, last write wins)", got)
	}
	if len(w.state.Blocks) != 1 {
		t.Fatalf("blocks = %d, want 1", len(w.state.Blocks))
	}
	if w.state.AgentStats["a"].Contributions != 2 {
		t.Fatalf("contributions = %d", w.state.AgentStats["a"].Contributions)
	}
}

func TestBlockRemove(t *testing.T) {
	w, _, _ := newTestWorld(t, nil)
	a := joinAgent(t, w, "a", "A")
	send(w, a, protocol.BlockPlaceMsg{Type: protocol.TypeBlockPlace, X: 1, Y: 2, Z: 3, BlockType: "stone"})
	send(w, a, protocol.BlockRemoveMsg{Type: protocol.TypeBlockRemove, X: 1, Y: 2, Z: 3})
	if len(w.state.Blocks) != 0 {
		t.Fatalf("block not removed")
	}
	// Removing air is a no-op, not an error.
	send(w, a, protocol.BlockRemoveMsg{Type: protocol.TypeBlockRemove, X: 9, Y: 9, Z: 9})
	drain(a)
	if hasType(a, protocol.TypeError) {
		t.Fatalf("removing air errored")
	}
}

func TestBlockCapFailsObservably(t *testing.T) {
	w, _, _ := newTestWorld(t, func(c *Config) { c.MaxBlocks = 2 })
	a := joinAgent(t, w, "a", "A")
	send(w, a, protocol.BlockPlaceMsg{Type: protocol.TypeBlockPlace, X: 0, Y: 0, Z: 0, BlockType: "stone"})
	send(w, a, protocol.BlockPlaceMsg{Type: protocol.TypeBlockPlace, X: 1, Y: 0, Z: 0, BlockType: "stone"})
	send(w, a, protocol.BlockPlaceMsg{Type: protocol.TypeBlockPlace, X: 2, Y: 0, Z: 0, BlockType: "stone"})
	failed := nextOfType(t, a, protocol.TypeBlockPlaceFailed)
	if failed["code"] != protocol.ErrWorldFull {
		t.Fatalf("cap failure = %v", failed)
	}
	if len(w.state.Blocks) != 2 {
		t.Fatalf("cap breached: %d blocks", len(w.state.Blocks))
	}
	// Replacing an existing block is still allowed at the cap.
	send(w, a, protocol.BlockPlaceMsg{Type: protocol.TypeBlockPlace, X: 1, Y: 0, Z: 0, BlockType: "coral"})
	drain(a)
	if w.state.Blocks["1,0,0"] != "coral" {
		t.Fatalf("replacement at cap refused")
	}
}

func TestBlockBroadcastRadius(t *testing.T) {
	w, _, _ := newTestWorld(t, nil)
	builder := joinAgent(t, w, "builder", "Builder")
	near := joinAgent(t, w, "near", "Near")
	far := joinAgent(t, w, "far", "Far")
	obs := joinObserver(t, w)

	// Grid cell is 64: neighbor sits one cell over, far agent many cells out.
	send(w, builder, protocol.LobsterSpawnMsg{Type: protocol.TypeLobsterSpawn, Lobster: protocol.LobsterState{X: 10, Y: 0, Z: 10}})
	send(w, near, protocol.LobsterSpawnMsg{Type: protocol.TypeLobsterSpawn, Lobster: protocol.LobsterState{X: 70, Y: 0, Z: 10}})
	send(w, far, protocol.LobsterSpawnMsg{Type: protocol.TypeLobsterSpawn, Lobster: protocol.LobsterState{X: 1000, Y: 0, Z: 1000}})
	drain(near)
	drain(far)
	drain(obs)

	send(w, builder, protocol.BlockPlaceMsg{Type: protocol.TypeBlockPlace, X: 12, Y: 0, Z: 12, BlockType: "stone"})
	if !hasType(near, protocol.TypeBlockPlaced) {
		t.Fatalf("neighbor missed block_placed")
	}
	if hasType(far, protocol.TypeBlockPlaced) {
		t.Fatalf("distant agent heard block_placed")
	}
	if !hasType(obs, protocol.TypeBlockPlaced) {
		t.Fatalf("observer missed block_placed")
	}
}

func TestActionArchivesScripts(t *testing.T) {
	w, _, _ := newTestWorld(t, func(c *Config) {
		c.ScriptsMax = 4
		c.ScriptsTrim = 2
		c.MaxCodeLength = 20
	})
	a := joinAgent(t, w, "a", "A")
	long := "0123456789012345678901234567890"
	for i := 0; i < 5; i++ {
		send(w, a, protocol.ActionMsg{Type: protocol.TypeAction, Payload: protocol.ActionPayload{Kind: "run", Code: long}})
	}
	if len(w.state.Scripts) != 2 {
		t.Fatalf("scripts = %d, want trimmed to 2", len(w.state.Scripts))
	}
	if got := len(w.state.Scripts[0].Code); got != 20 {
		t.Fatalf("code length = %d, want clamped to 20", got)
	}
	// Short commands are broadcast but never archived.
	send(w, a, protocol.ActionMsg{Type: protocol.TypeAction, Payload: protocol.ActionPayload{Kind: "wave", Code: "wave()"}})
	if len(w.state.Scripts) != 2 {
		t.Fatalf("short action archived")
	}
	if !hasType(a, protocol.TypeAction) {
		t.Fatalf("sender did not get action echo")
	}
}

func TestLeaderboards(t *testing.T) {
	w, clock, _ := newTestWorld(t, nil)
	a := joinAgent(t, w, "a", "A")
	for i := 0; i < 3; i++ {
		w.state.Zones = append(w.state.Zones, &Zone{ID: islandID(i), Name: islandID(i), OwnerID: ownerID(i), OwnerName: "O", Center: [3]int{128 * (i + 1), 0, 0}, CreatedAt: clock.Now()})
		w.islandStats(islandID(i)).Visits = 10 - i
	}
	send(w, a, protocol.GetLeaderboardMsg{Type: protocol.TypeGetLeaderboard, Category: "visits"})
	lb := nextOfType(t, a, protocol.TypeLeaderboardData)
	ranks := lb["rankings"].([]any)
	if len(ranks) != 3 {
		t.Fatalf("rankings = %v", ranks)
	}
	if top := ranks[0].(map[string]any); top["id"] != islandID(0) || top["value"].(float64) != 10 {
		t.Fatalf("top rank = %v", top)
	}

	send(w, a, protocol.GetLeaderboardMsg{Type: protocol.TypeGetLeaderboard, Category: "bogus"})
	bad := nextOfType(t, a, protocol.TypeError)
	if bad["code"] != protocol.ErrBadRequest {
		t.Fatalf("bogus category code = %v", bad["code"])
	}
}

func TestMyStats(t *testing.T) {
	w, _, _ := newTestWorld(t, nil)
	a := joinAgent(t, w, "a", "A")
	joinAgent(t, w, "b", "B")
	claimIsland(t, w, a, "reef", [3]int{128, 0, 0})
	send(w, a, protocol.BlockPlaceMsg{Type: protocol.TypeBlockPlace, X: 0, Y: 0, Z: 0, BlockType: "stone"})
	send(w, a, protocol.FriendMsg{Type: protocol.TypeFriendAdd, TargetID: "b"})
	w.islandStats("reef").Likes = 4
	w.wallet("a").Balance = 7.5
	drain(a)

	send(w, a, protocol.BaseMessage{Type: protocol.TypeGetMyStats})
	stats := nextOfType(t, a, protocol.TypeMyStats)
	if stats["islands"].(float64) != 1 || stats["blocks"].(float64) != 1 ||
		stats["coins"].(float64) != 7.5 || stats["likes"].(float64) != 4 || stats["friends"].(float64) != 1 {
		t.Fatalf("my_stats = %v", stats)
	}
}
