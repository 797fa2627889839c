// Package ssd wires the NAND device, the FTL, the DRAM cache and the
// request pipeline into the single top-level simulator object the host
// APIs and control plane operate on — the Go counterpart of the
// original's ssd_init/ssd_reset lifecycle.
package ssd

import (
	"github.com/pollux006/bytefs-go/internal/cache"
	"github.com/pollux006/bytefs-go/internal/event"
	"github.com/pollux006/bytefs-go/internal/ftl"
	"github.com/pollux006/bytefs-go/internal/host"
	"github.com/pollux006/bytefs-go/internal/nand"
)

// CacheKind selects which of the two cache engines backs the device.
type CacheKind int

const (
	CacheSetAssociative CacheKind = iota
	CacheLRU
)

// Config bundles everything needed to bring up an SSD.
type Config struct {
	Params nand.Params

	CacheKind    CacheKind
	CacheSlots   int // total slots; for set-assoc, must be numSets*waysPerSet
	CacheWays    int // only used when CacheKind == CacheSetAssociative
	CacheRNGSeed int64

	QueueDepth int // pipeline submission/completion queue depth
	WorkerCPU  int // -1 to leave unpinned
	PollerCPU  int // -1 to leave unpinned

	Tracer event.Tracer
}

// DefaultConfig returns a small, demo-sized configuration.
func DefaultConfig() Config {
	return Config{
		Params:       nand.DefaultParams(),
		CacheKind:    CacheLRU,
		CacheSlots:   1024,
		CacheWays:    8,
		CacheRNGSeed: 1,
		QueueDepth:   256,
		WorkerCPU:    -1,
		PollerCPU:    -1,
	}
}

// SSD is the fully wired simulator: NAND device, FTL, DRAM cache, request
// pipeline and the host-facing surface over all of them.
type SSD struct {
	cfg Config

	dev     *nand.Device
	backend nand.Backend
	ftl     *ftl.FTL
	buffer  *cache.Buffer
	engine  cache.Engine

	pipeline *event.Pipeline
	Host     *host.Host
}

// New builds and starts an SSD per cfg — the equivalent of ssd_init.
func New(cfg Config) *SSD {
	s := &SSD{cfg: cfg}
	s.bringUp()
	return s
}

func (s *SSD) bringUp() {
	s.dev = nand.NewDevice(s.cfg.Params)
	s.backend = nand.NewArenaBackend(s.cfg.Params.TotalPages, nand.PGSZ)
	s.ftl = ftl.New(ftl.Config{Device: s.dev, Backend: s.backend})

	s.engine = s.newEngine()
	s.buffer = cache.NewBuffer(s.engine, s.ftl)

	tracer := s.cfg.Tracer
	if tracer == nil {
		tracer = event.NopTracer{}
	}
	s.pipeline = event.NewPipeline(
		event.FTLDispatcher{FTL: s.ftl},
		s.cfg.QueueDepth,
		event.WithTracer(tracer),
		event.WithCPUAffinity(s.cfg.WorkerCPU, s.cfg.PollerCPU),
	)

	params := s.cfg.Params
	s.Host = host.New(s.pipeline, s.buffer, &params)
}

func (s *SSD) newEngine() cache.Engine {
	switch s.cfg.CacheKind {
	case CacheSetAssociative:
		ways := s.cfg.CacheWays
		if ways <= 0 {
			ways = 1
		}
		numSets := s.cfg.CacheSlots / ways
		if numSets <= 0 {
			numSets = 1
		}
		return cache.NewSetAssocEngine(numSets, ways, s.cfg.CacheRNGSeed)
	default:
		return cache.NewLRUEngine(s.cfg.CacheSlots)
	}
}

// Reset rebuilds the NAND device and FTL tables to the post-init state
// and rebuilds a fresh cache, matching spec.md §8 invariant 6. The
// request pipeline keeps running; in-flight requests submitted before
// Reset returns may race the rebuild and are the caller's responsibility
// to quiesce first.
func (s *SSD) Reset() {
	s.ftl.Reset()
	s.engine = s.newEngine()
	s.buffer = cache.NewBuffer(s.engine, s.ftl)
	params := s.cfg.Params
	s.Host = host.New(s.pipeline, s.buffer, &params)
}

// Close stops the request pipeline's worker and poller goroutines.
func (s *SSD) Close() { s.pipeline.Close() }

// FTL exposes the underlying FTL (used by housekeeping/control).
func (s *SSD) FTL() *ftl.FTL { return s.ftl }

// Buffer exposes the underlying DRAM cache (used by housekeeping/control).
func (s *SSD) Buffer() *cache.Buffer { return s.buffer }

// Device exposes the underlying NAND device.
func (s *SSD) Device() *nand.Device { return s.dev }
