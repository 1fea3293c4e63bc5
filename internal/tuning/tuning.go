package tuning

import (
	"fmt"
	"os"

	"gopkg.in/yaml.v3"
)

type Tuning struct {
	GridCellSize int `yaml:"grid_cell_size"`
	NearbyRange  int `yaml:"nearby_range"`

	MaxBlocks       int `yaml:"max_blocks"`
	MaxCodeLength   int `yaml:"max_code_length"`
	ChatHistoryMax  int `yaml:"chat_history_max"`
	ChatHistoryTrim int `yaml:"chat_history_trim"`
	ScriptsMax      int `yaml:"scripts_max"`
	ScriptsTrim     int `yaml:"scripts_trim"`

	RateLimit RateLimit `yaml:"rate_limit"`
	Coins     Coins     `yaml:"coins"`
	Auction   Auction   `yaml:"auction"`

	FlushDelaySeconds int `yaml:"flush_delay_seconds"`
}

type RateLimit struct {
	WindowMs int `yaml:"window_ms"`
	Max      int `yaml:"max"`
}

type Coins struct {
	VisitReward   float64 `yaml:"visit_reward"`
	VisitDailyCap float64 `yaml:"visit_daily_cap"`
	LikeReward    float64 `yaml:"like_reward"`
	LikesPerDay   int     `yaml:"likes_per_day"`
	LandPrice     float64 `yaml:"land_price"`

	RankingPoolVisits        float64 `yaml:"ranking_pool_visits"`
	RankingPoolLikes         float64 `yaml:"ranking_pool_likes"`
	RankingPoolContributions float64 `yaml:"ranking_pool_contributions"`

	SettlementIntervalHours int `yaml:"settlement_interval_hours"`
}

type Auction struct {
	InactiveDays       int `yaml:"inactive_days"`
	SweepIntervalHours int `yaml:"sweep_interval_hours"`
}

func Defaults() Tuning {
	return Tuning{
		GridCellSize:    64,
		NearbyRange:     1,
		MaxBlocks:       500000,
		MaxCodeLength:   5000,
		ChatHistoryMax:  1000,
		ChatHistoryTrim: 500,
		ScriptsMax:      10000,
		ScriptsTrim:     5000,
		RateLimit:       RateLimit{WindowMs: 1000, Max: 30},
		Coins: Coins{
			VisitReward:              0.1,
			VisitDailyCap:            1,
			LikeReward:               0.5,
			LikesPerDay:              1,
			LandPrice:                400,
			RankingPoolVisits:        100,
			RankingPoolLikes:         100,
			RankingPoolContributions: 100,
			SettlementIntervalHours:  7 * 24,
		},
		Auction: Auction{
			InactiveDays:       30,
			SweepIntervalHours: 1,
		},
		FlushDelaySeconds: 5,
	}
}

// Load reads a tuning file and fills unset fields from Defaults. Missing file
// is surfaced to the caller; a fresh deploy typically falls back to Defaults.
func Load(path string) (Tuning, error) {
	t := Defaults()
	raw, err := os.ReadFile(path)
	if err != nil {
		return t, err
	}
	if err := yaml.Unmarshal(raw, &t); err != nil {
		return t, fmt.Errorf("tuning.yaml: %w", err)
	}
	return t, nil
}
