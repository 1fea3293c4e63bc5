package tuning

import (
	"os"
	"path/filepath"
	"testing"
)

func TestDefaults(t *testing.T) {
	d := Defaults()
	if d.GridCellSize != 64 || d.NearbyRange != 1 {
		t.Fatalf("grid defaults = %+v", d)
	}
	if d.MaxBlocks != 500000 || d.MaxCodeLength != 5000 {
		t.Fatalf("cap defaults = %+v", d)
	}
	if d.RateLimit.Max != 30 || d.RateLimit.WindowMs != 1000 {
		t.Fatalf("rate limit defaults = %+v", d.RateLimit)
	}
	if d.Coins.LandPrice != 400 || d.Coins.VisitDailyCap != 1 {
		t.Fatalf("coin defaults = %+v", d.Coins)
	}
	if d.Coins.SettlementIntervalHours != 168 || d.Auction.InactiveDays != 30 {
		t.Fatalf("schedule defaults = %+v", d)
	}
	if d.FlushDelaySeconds != 5 {
		t.Fatalf("flush delay = %d", d.FlushDelaySeconds)
	}
}

func TestLoadMergesOverDefaults(t *testing.T) {
	path := filepath.Join(t.TempDir(), "tuning.yaml")
	body := "max_blocks: 1000\ncoins:\n  land_price: 50\n"
	if err := os.WriteFile(path, []byte(body), 0o644); err != nil {
		t.Fatalf("write: %v", err)
	}
	got, err := Load(path)
	if err != nil {
		t.Fatalf("load: %v", err)
	}
	if got.MaxBlocks != 1000 {
		t.Fatalf("max_blocks = %d", got.MaxBlocks)
	}
	if got.Coins.LandPrice != 50 {
		t.Fatalf("land_price = %g", got.Coins.LandPrice)
	}
	// Untouched fields keep their defaults.
	if got.GridCellSize != 64 || got.RateLimit.Max != 30 {
		t.Fatalf("defaults clobbered: %+v", got)
	}
}

func TestLoadMissingFileReturnsDefaults(t *testing.T) {
	got, err := Load(filepath.Join(t.TempDir(), "missing.yaml"))
	if !os.IsNotExist(err) {
		t.Fatalf("err = %v, want IsNotExist", err)
	}
	if got.GridCellSize != 64 {
		t.Fatalf("missing file did not fall back to defaults")
	}
}

func TestLoadRejectsMalformedYAML(t *testing.T) {
	path := filepath.Join(t.TempDir(), "tuning.yaml")
	if err := os.WriteFile(path, []byte("max_blocks: [not a number"), 0o644); err != nil {
		t.Fatalf("write: %v", err)
	}
	if _, err := Load(path); err == nil {
		t.Fatalf("malformed yaml accepted")
	}
}
