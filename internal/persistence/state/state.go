// Package state persists the world aggregate as a single versioned JSON
// document, zstd-compressed on disk. Writes go to a temp file and rename into
// place so a crash mid-write never corrupts the last good document.
package state

import (
	"bufio"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"

	"github.com/klauspost/compress/zstd"
)

const SchemaVersion = 1

type DocumentV1 struct {
	SchemaVersion int   `json:"schemaVersion"`
	SavedAt       int64 `json:"savedAt"`

	Blocks      map[string]string        `json:"blocks"`
	Zones       []ZoneV1                 `json:"zones"`
	Lobsters    map[string]LobsterV1     `json:"lobsterPositions"`
	Chat        []ChatV1                 `json:"chatHistory"`
	Friendships map[string][]string      `json:"friendships"`
	Wallets     map[string]WalletV1      `json:"wallets"`
	IslandStats map[string]IslandStatsV1 `json:"islandStats"`
	AgentStats  map[string]AgentStatsV1  `json:"agentStats"`
	Activity    map[string]ActivityV1    `json:"agentActivity"`
	Scripts     []ScriptV1               `json:"scripts"`

	LastSettlement int64 `json:"lastSettlement"`
}

type ZoneV1 struct {
	ID              string   `json:"id"`
	Name            string   `json:"name"`
	OwnerID         string   `json:"ownerId,omitempty"`
	OwnerName       string   `json:"ownerName,omitempty"`
	OriginalOwnerID string   `json:"originalOwnerId,omitempty"`
	Center          [3]int   `json:"center"`
	Radius          int      `json:"radius,omitempty"`
	Tags            []string `json:"tags,omitempty"`
	Spawn           bool     `json:"spawn,omitempty"`
	Protected       bool     `json:"protected,omitempty"`
	AuctionState    string   `json:"auctionState,omitempty"`
	AuctionStart    int64    `json:"auctionStart,omitempty"`
	CreatedAt       int64    `json:"createdAt"`
	LastActive      int64    `json:"lastActive,omitempty"`
}

type LobsterV1 struct {
	Name  string  `json:"name"`
	X     float64 `json:"x"`
	Y     float64 `json:"y"`
	Z     float64 `json:"z"`
	Color string  `json:"color,omitempty"`
}

type ChatV1 struct {
	Channel   string `json:"channel,omitempty"`
	FromID    string `json:"fromId"`
	FromName  string `json:"fromName"`
	Text      string `json:"text"`
	Timestamp int64  `json:"timestamp"`
}

type WalletV1 struct {
	Balance          float64  `json:"balance"`
	TotalEarned      float64  `json:"totalEarned"`
	TotalSpent       float64  `json:"totalSpent"`
	LastVisitDate    string   `json:"lastVisitDate,omitempty"`
	TodayVisitReward float64  `json:"todayVisitReward,omitempty"`
	TodayVisited     []string `json:"todayVisitedIslands,omitempty"`
	LastLikeDate     string   `json:"lastLikeDate,omitempty"`
	TodayLikes       int      `json:"todayLikes,omitempty"`
}

type IslandStatsV1 struct {
	Visits  int      `json:"visits"`
	Likes   int      `json:"likes"`
	LikedBy []string `json:"likedBy,omitempty"`
}

type AgentStatsV1 struct {
	Name          string `json:"name"`
	Contributions int    `json:"contributions"`
}

type ActivityV1 struct {
	FirstSeen  int64 `json:"firstSeen"`
	LastOnline int64 `json:"lastOnline"`
}

type ScriptV1 struct {
	AgentID   string `json:"agentId"`
	AgentName string `json:"agentName"`
	Code      string `json:"code"`
	Timestamp int64  `json:"timestamp"`
}

// Normalize fills nil collections so loaders of older documents never hand
// out nil maps to the world.
func (d *DocumentV1) Normalize() {
	if d.SchemaVersion == 0 {
		d.SchemaVersion = SchemaVersion
	}
	if d.Blocks == nil {
		d.Blocks = map[string]string{}
	}
	if d.Lobsters == nil {
		d.Lobsters = map[string]LobsterV1{}
	}
	if d.Friendships == nil {
		d.Friendships = map[string][]string{}
	}
	if d.Wallets == nil {
		d.Wallets = map[string]WalletV1{}
	}
	if d.IslandStats == nil {
		d.IslandStats = map[string]IslandStatsV1{}
	}
	if d.AgentStats == nil {
		d.AgentStats = map[string]AgentStatsV1{}
	}
	if d.Activity == nil {
		d.Activity = map[string]ActivityV1{}
	}
}

func Write(path string, doc DocumentV1) error {
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return err
	}
	tmp := path + ".tmp"
	f, err := os.OpenFile(tmp, os.O_CREATE|os.O_WRONLY|os.O_TRUNC, 0o644)
	if err != nil {
		return err
	}

	enc, err := zstd.NewWriter(f, zstd.WithEncoderLevel(zstd.SpeedDefault))
	if err != nil {
		_ = f.Close()
		return err
	}
	bw := bufio.NewWriterSize(enc, 256*1024)
	if err := json.NewEncoder(bw).Encode(&doc); err != nil {
		_ = enc.Close()
		_ = f.Close()
		return fmt.Errorf("encode document: %w", err)
	}
	if err := bw.Flush(); err != nil {
		_ = enc.Close()
		_ = f.Close()
		return err
	}
	if err := enc.Close(); err != nil {
		_ = f.Close()
		return err
	}
	if err := f.Close(); err != nil {
		return err
	}
	return os.Rename(tmp, path)
}

func Read(path string) (DocumentV1, error) {
	var doc DocumentV1
	f, err := os.Open(path)
	if err != nil {
		return doc, err
	}
	defer f.Close()

	dec, err := zstd.NewReader(f)
	if err != nil {
		return doc, err
	}
	defer dec.Close()

	if err := json.NewDecoder(bufio.NewReaderSize(dec, 256*1024)).Decode(&doc); err != nil {
		return doc, fmt.Errorf("decode document: %w", err)
	}
	if doc.SchemaVersion > SchemaVersion {
		return doc, fmt.Errorf("document schema version %d is newer than supported %d", doc.SchemaVersion, SchemaVersion)
	}
	doc.Normalize()
	return doc, nil
}
