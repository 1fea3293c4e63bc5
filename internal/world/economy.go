package world

import (
	"encoding/json"
	"fmt"
	"time"

	"aiworld.dev/internal/protocol"
)

func (w *World) wallet(pid string) *Wallet {
	wl := w.state.Wallets[pid]
	if wl == nil {
		wl = &Wallet{}
		w.state.Wallets[pid] = wl
	}
	return wl
}

func (w *World) islandStats(id string) *IslandStats {
	is := w.state.IslandStats[id]
	if is == nil {
		is = &IslandStats{LikedBy: map[string]struct{}{}}
		w.state.IslandStats[id] = is
	}
	return is
}

func (w *World) dayOf(t time.Time) string {
	return t.UTC().Format("2006-01-02")
}

func (w *World) credit(wl *Wallet, amount float64) {
	wl.Balance += amount
	wl.TotalEarned += amount
}

func (w *World) debit(wl *Wallet, amount float64) bool {
	if wl.Balance < amount {
		return false
	}
	wl.Balance -= amount
	wl.TotalSpent += amount
	return true
}

func (w *World) handleIslandVisit(s *Session, data []byte) {
	var msg protocol.IslandMsg
	if err := json.Unmarshal(data, &msg); err != nil || msg.IslandID == "" {
		return
	}
	z := w.zoneByID(msg.IslandID)
	if z == nil {
		w.sendError(s, protocol.ErrNotFound, "island not found", "")
		return
	}
	if z.OwnerID == s.PersistentID {
		return
	}
	w.islandStats(z.ID).Visits++
	wl := w.wallet(s.PersistentID)
	today := w.dayOf(w.now())
	if wl.LastVisitDate != today {
		wl.LastVisitDate = today
		wl.TodayVisitReward = 0
		wl.TodayVisited = nil
	}
	visited := false
	for _, id := range wl.TodayVisited {
		if id == z.ID {
			visited = true
			break
		}
	}
	if !visited {
		wl.TodayVisited = append(wl.TodayVisited, z.ID)
		if wl.TodayVisitReward < w.cfg.VisitDailyCap {
			reward := w.cfg.VisitReward
			if rest := w.cfg.VisitDailyCap - wl.TodayVisitReward; reward > rest {
				reward = rest
			}
			w.credit(wl, reward)
			wl.TodayVisitReward += reward
			w.send(s, protocol.CoinRewardMsg{
				Type:    protocol.TypeCoinReward,
				Reason:  "visit",
				Amount:  reward,
				Balance: wl.Balance,
			})
		}
	}
	w.markDirty()
}

func (w *World) handleIslandLike(s *Session, data []byte) {
	var msg protocol.IslandMsg
	if err := json.Unmarshal(data, &msg); err != nil || msg.IslandID == "" {
		return
	}
	fail := func(reason string) {
		w.send(s, protocol.LikeResultMsg{Type: protocol.TypeLikeResult, Success: false, IslandID: msg.IslandID, Error: reason})
	}
	z := w.zoneByID(msg.IslandID)
	if z == nil {
		fail("island not found")
		return
	}
	if z.OwnerID == s.PersistentID {
		fail("cannot like your own island")
		return
	}
	is := w.islandStats(z.ID)
	if _, liked := is.LikedBy[s.PersistentID]; liked {
		fail("already liked this island")
		return
	}
	wl := w.wallet(s.PersistentID)
	today := w.dayOf(w.now())
	if wl.LastLikeDate != today {
		wl.LastLikeDate = today
		wl.TodayLikes = 0
	}
	if wl.TodayLikes >= w.cfg.LikesPerDay {
		fail(fmt.Sprintf("daily like budget (%d) spent; try again tomorrow", w.cfg.LikesPerDay))
		return
	}
	is.Likes++
	is.LikedBy[s.PersistentID] = struct{}{}
	wl.TodayLikes++
	w.credit(wl, w.cfg.LikeReward)
	w.markDirty()
	w.send(s, protocol.LikeResultMsg{
		Type:     protocol.TypeLikeResult,
		Success:  true,
		IslandID: z.ID,
		Likes:    is.Likes,
		Reward:   w.cfg.LikeReward,
		Balance:  wl.Balance,
	})
}

func (w *World) handleGetBalance(s *Session, data []byte) {
	wl := w.wallet(s.PersistentID)
	w.send(s, protocol.BalanceMsg{
		Type:        protocol.TypeBalance,
		Balance:     wl.Balance,
		TotalEarned: wl.TotalEarned,
		TotalSpent:  wl.TotalSpent,
	})
}

func (w *World) handleBuyAuctionLand(s *Session, data []byte) {
	var msg protocol.IslandMsg
	if err := json.Unmarshal(data, &msg); err != nil || msg.IslandID == "" {
		return
	}
	fail := func(reason string) {
		w.send(s, protocol.BuyResultMsg{Type: protocol.TypeBuyResult, Success: false, Error: reason})
	}
	z := w.zoneByID(msg.IslandID)
	if z == nil {
		fail("island not found")
		return
	}
	if z.AuctionState != AuctionListed {
		fail("island is not for sale")
		return
	}
	if w.zoneOwnedBy(s.PersistentID) != nil {
		fail("you already own an island")
		return
	}
	wl := w.wallet(s.PersistentID)
	price := w.cfg.LandPrice
	if !w.debit(wl, price) {
		fail(fmt.Sprintf("not enough coins: need %g, have %g", price, wl.Balance))
		return
	}
	island := w.auctionIsland(z)
	z.OwnerID = s.PersistentID
	z.OwnerName = s.Name
	z.OriginalOwnerID = ""
	z.AuctionState = AuctionNone
	z.AuctionStart = time.Time{}
	z.LastActive = w.now()
	w.markDirty()
	w.log.Printf("land sale %s (%s) -> %s for %g", z.ID, z.Name, s.Name, price)
	w.send(s, protocol.BuyResultMsg{
		Type:    protocol.TypeBuyResult,
		Success: true,
		Island:  &island,
		Price:   price,
		Balance: wl.Balance,
	})
	w.broadcastAll(protocol.ZoneSyncMsg{Type: protocol.TypeZoneSync, Action: "update", Zone: zoneInfo(z)})
	w.broadcastAll(protocol.LandPurchasedMsg{
		Type:       protocol.TypeLandPurchased,
		Buyer:      s.Name,
		IslandName: z.Name,
		Price:      price,
	})
}

// settleRankings distributes the weekly pools proportionally to each
// island's share of visits and likes and each agent's share of
// contributions, then resets the period counters. Lifetime like dedupe is
// kept across periods.
func (w *World) settleRankings(now time.Time) {
	if w.state.LastSettlement.IsZero() {
		// Fresh world: start the period clock, nothing to pay out.
		w.state.LastSettlement = now
		w.markDirty()
		return
	}
	if now.Sub(w.state.LastSettlement) < w.cfg.SettlementInterval {
		return
	}
	var totalVisits, totalLikes, totalContrib float64
	for _, z := range w.state.Zones {
		if z.Spawn || z.OwnerID == "" {
			continue
		}
		if is := w.state.IslandStats[z.ID]; is != nil {
			totalVisits += float64(is.Visits)
			totalLikes += float64(is.Likes)
		}
	}
	for _, as := range w.state.AgentStats {
		totalContrib += float64(as.Contributions)
	}
	for _, z := range w.state.Zones {
		if z.Spawn || z.OwnerID == "" {
			continue
		}
		is := w.state.IslandStats[z.ID]
		if is == nil {
			continue
		}
		wl := w.wallet(z.OwnerID)
		if totalVisits > 0 && is.Visits > 0 {
			w.credit(wl, w.cfg.RankingPoolVisits*float64(is.Visits)/totalVisits)
		}
		if totalLikes > 0 && is.Likes > 0 {
			w.credit(wl, w.cfg.RankingPoolLikes*float64(is.Likes)/totalLikes)
		}
	}
	if totalContrib > 0 {
		for pid, as := range w.state.AgentStats {
			if as.Contributions == 0 {
				continue
			}
			w.credit(w.wallet(pid), w.cfg.RankingPoolContributions*float64(as.Contributions)/totalContrib)
		}
	}
	for _, is := range w.state.IslandStats {
		is.Visits = 0
		is.Likes = 0
	}
	for _, as := range w.state.AgentStats {
		as.Contributions = 0
	}
	w.state.LastSettlement = now
	w.markDirty()
	w.log.Printf("weekly settlement paid out (visits=%g likes=%g contrib=%g)", totalVisits, totalLikes, totalContrib)
	w.broadcastAll(protocol.WeeklyRewardsMsg{Type: protocol.TypeWeeklyRewards, Timestamp: now.UnixMilli()})
}
