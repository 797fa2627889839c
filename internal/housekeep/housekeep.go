// Package housekeep runs the SSD's background reporting ticker: a single
// cron-scheduled job that logs wear-leveling and GC-candidate health.
package housekeep

import (
	"log"
	"sync"

	"github.com/robfig/cron/v3"

	"github.com/pollux006/bytefs-go/internal/ssd"
)

// Report is one housekeeping snapshot.
type Report struct {
	FreeBlocks    int
	TotalBlocks   int
	GCCandidates  int
	MaxEraseCount int
}

// Ticker runs a cron-scheduled health report against a *ssd.SSD.
type Ticker struct {
	dev  *ssd.SSD
	cron *cron.Cron

	mu     sync.Mutex
	last   Report
	onTick func(Report) // optional hook, e.g. for tests
}

// NewTicker builds a Ticker that has not yet started. spec is a standard
// cron expression (with seconds field, e.g. "*/30 * * * * *" for every 30s).
func NewTicker(dev *ssd.SSD, spec string, onTick func(Report)) (*Ticker, error) {
	t := &Ticker{
		dev:    dev,
		cron:   cron.New(cron.WithSeconds()),
		onTick: onTick,
	}
	if _, err := t.cron.AddFunc(spec, t.runOnce); err != nil {
		return nil, err
	}
	return t, nil
}

// Start begins the cron schedule.
func (t *Ticker) Start() { t.cron.Start() }

// Stop halts the schedule and waits for any in-flight run to finish.
func (t *Ticker) Stop() { <-t.cron.Stop().Done() }

// Last returns the most recent report taken under lock.
func (t *Ticker) Last() Report {
	t.mu.Lock()
	defer t.mu.Unlock()
	return t.last
}

func (t *Ticker) runOnce() {
	f := t.dev.FTL()
	dv := f.Device()

	maxErase := 0
	for _, ch := range dv.Channels {
		for _, lun := range ch.Luns {
			for _, blk := range lun.Blocks {
				if blk.EraseCount > maxErase {
					maxErase = blk.EraseCount
				}
			}
		}
	}

	r := Report{
		FreeBlocks:    f.FreeBlockCount(),
		TotalBlocks:   dv.Params.TotalBlocks,
		GCCandidates:  f.GCCandidateCount(),
		MaxEraseCount: maxErase,
	}

	t.mu.Lock()
	t.last = r
	t.mu.Unlock()

	log.Printf("housekeep: free=%d/%d gc_candidates=%d max_erase=%d",
		r.FreeBlocks, r.TotalBlocks, r.GCCandidates, r.MaxEraseCount)

	if t.onTick != nil {
		t.onTick(r)
	}
}
