package housekeep

import (
	"testing"
	"time"

	"github.com/pollux006/bytefs-go/internal/nand"
	"github.com/pollux006/bytefs-go/internal/ssd"
)

func newTestSSD(t *testing.T) *ssd.SSD {
	t.Helper()
	cfg := ssd.DefaultConfig()
	cfg.Params, _ = nand.NewParams(4, 4, 2, 2, 1000, 2000, 10000, 500)
	cfg.CacheSlots = 8
	cfg.CacheWays = 4
	cfg.QueueDepth = 16
	s := ssd.New(cfg)
	t.Cleanup(s.Close)
	return s
}

func TestRunOnceComputesReportFromSSD(t *testing.T) {
	s := newTestSSD(t)
	ticker, err := NewTicker(s, "*/30 * * * * *", nil)
	if err != nil {
		t.Fatalf("NewTicker: %v", err)
	}

	ticker.runOnce()
	r := ticker.Last()

	if r.TotalBlocks != s.FTL().Device().Params.TotalBlocks {
		t.Fatalf("TotalBlocks = %d, want %d", r.TotalBlocks, s.FTL().Device().Params.TotalBlocks)
	}
	if r.FreeBlocks != s.FTL().FreeBlockCount() {
		t.Fatalf("FreeBlocks = %d, want %d", r.FreeBlocks, s.FTL().FreeBlockCount())
	}
	if r.GCCandidates != s.FTL().GCCandidateCount() {
		t.Fatalf("GCCandidates = %d, want %d", r.GCCandidates, s.FTL().GCCandidateCount())
	}
}

func TestRunOnceInvokesOnTickHook(t *testing.T) {
	s := newTestSSD(t)
	got := make(chan Report, 1)
	ticker, err := NewTicker(s, "*/30 * * * * *", func(r Report) { got <- r })
	if err != nil {
		t.Fatalf("NewTicker: %v", err)
	}

	ticker.runOnce()

	select {
	case r := <-got:
		if r.TotalBlocks != s.FTL().Device().Params.TotalBlocks {
			t.Fatalf("hook report TotalBlocks = %d, want %d", r.TotalBlocks, s.FTL().Device().Params.TotalBlocks)
		}
	case <-time.After(time.Second):
		t.Fatal("onTick hook was never invoked")
	}
}

func TestRunOnceTracksMaxEraseCount(t *testing.T) {
	s := newTestSSD(t)
	data := make([]byte, nand.PGSZ)
	// Force at least one erase cycle: overwriting one LPN more times than
	// the device has pages exhausts the free pool, and the GC pass that
	// follows erases the reclaimed blocks. A fresh device starts at erase
	// count zero everywhere.
	for i := 0; i < 2*s.FTL().Device().Params.TotalPages; i++ {
		if _, err := s.Host.NvmeIssue(true, 0, 1, data); err != nil {
			t.Fatalf("write: %v", err)
		}
	}

	ticker, err := NewTicker(s, "*/30 * * * * *", nil)
	if err != nil {
		t.Fatalf("NewTicker: %v", err)
	}
	ticker.runOnce()
	r := ticker.Last()

	if r.MaxEraseCount < 1 {
		t.Fatalf("MaxEraseCount = %d, want at least 1 after GC erased blocks", r.MaxEraseCount)
	}
}
