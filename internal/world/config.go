package world

import (
	"time"

	"aiworld.dev/internal/tuning"
)

type Config struct {
	// Spatial partitioning.
	GridCellSize int
	NearbyRange  int

	// Safety caps.
	MaxBlocks       int
	MaxCodeLength   int
	ChatHistoryMax  int
	ChatHistoryTrim int
	ScriptsMax      int
	ScriptsTrim     int

	// Economy.
	VisitReward              float64
	VisitDailyCap            float64
	LikeReward               float64
	LikesPerDay              int
	LandPrice                float64
	RankingPoolVisits        float64
	RankingPoolLikes         float64
	RankingPoolContributions float64
	SettlementInterval       time.Duration

	// Land lifecycle.
	InactiveAfter time.Duration
	SweepInterval time.Duration

	// Persistence debounce.
	FlushDelay time.Duration

	// Injectable clock; nil means time.Now.
	Now func() time.Time
}

func DefaultConfig() Config {
	return ConfigFromTuning(tuning.Defaults())
}

func ConfigFromTuning(t tuning.Tuning) Config {
	return Config{
		GridCellSize:             t.GridCellSize,
		NearbyRange:              t.NearbyRange,
		MaxBlocks:                t.MaxBlocks,
		MaxCodeLength:            t.MaxCodeLength,
		ChatHistoryMax:           t.ChatHistoryMax,
		ChatHistoryTrim:          t.ChatHistoryTrim,
		ScriptsMax:               t.ScriptsMax,
		ScriptsTrim:              t.ScriptsTrim,
		VisitReward:              t.Coins.VisitReward,
		VisitDailyCap:            t.Coins.VisitDailyCap,
		LikeReward:               t.Coins.LikeReward,
		LikesPerDay:              t.Coins.LikesPerDay,
		LandPrice:                t.Coins.LandPrice,
		RankingPoolVisits:        t.Coins.RankingPoolVisits,
		RankingPoolLikes:         t.Coins.RankingPoolLikes,
		RankingPoolContributions: t.Coins.RankingPoolContributions,
		SettlementInterval:       time.Duration(t.Coins.SettlementIntervalHours) * time.Hour,
		InactiveAfter:            time.Duration(t.Auction.InactiveDays) * 24 * time.Hour,
		SweepInterval:            time.Duration(t.Auction.SweepIntervalHours) * time.Hour,
		FlushDelay:               time.Duration(t.FlushDelaySeconds) * time.Second,
	}
}
