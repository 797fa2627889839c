// Package nand models the flash storage backing a 2B-SSD: channels, LUNs,
// blocks and pages, the physical-address encodings that address them, and
// the byte arena that stands in for a real DRAM/flash-controller backend.
package nand

import "fmt"

// Page/geometry constants. PGSZ matches the NVMe page size used throughout
// the host-facing APIs; sector geometry mirrors spec.md §6.
const (
	PGSZ            = 4096 // bytes per NAND page
	SectorSize      = 512  // bytes per sector
	NumSecPerPage   = PGSZ / SectorSize
	UnmappedPPA     = ^uint64(0) // sentinel: "no physical page"
	InvalidLPN      = ^uint64(0) // sentinel: "no logical page"
)

// Params describes the immutable geometry and timing constants of the
// simulated device. It is fixed at Init and never mutated afterward.
type Params struct {
	PagesPerBlock int
	BlocksPerLun  int
	LunsPerCh     int
	NumChannels   int

	// Latencies, in nanoseconds.
	PageReadLatency  uint64
	PageWriteLatency uint64
	BlockEraseLatency uint64
	ChannelXferLatency uint64

	// Derived totals, computed by NewParams.
	PagesPerLun int
	PagesPerCh  int
	TotalPages  int
	TotalBlocks int
	TotalLuns   int
}

// DefaultParams returns a small but realistic geometry suitable for both
// tests and a standalone demo run.
func DefaultParams() Params {
	p := Params{
		PagesPerBlock:      256,
		BlocksPerLun:       256,
		LunsPerCh:          4,
		NumChannels:        4,
		PageReadLatency:    40_000,  // 40 us
		PageWriteLatency:   200_000, // 200 us
		BlockEraseLatency:  2_000_000,
		ChannelXferLatency: 10_000,
	}
	p.derive()
	return p
}

// NewParams validates and derives totals for a custom geometry.
func NewParams(pagesPerBlock, blocksPerLun, lunsPerCh, numChannels int, readLat, writeLat, eraseLat, xferLat uint64) (Params, error) {
	if pagesPerBlock <= 0 || blocksPerLun <= 0 || lunsPerCh <= 0 || numChannels <= 0 {
		return Params{}, fmt.Errorf("nand: geometry dimensions must be positive")
	}
	p := Params{
		PagesPerBlock:      pagesPerBlock,
		BlocksPerLun:       blocksPerLun,
		LunsPerCh:          lunsPerCh,
		NumChannels:        numChannels,
		PageReadLatency:    readLat,
		PageWriteLatency:   writeLat,
		BlockEraseLatency:  eraseLat,
		ChannelXferLatency: xferLat,
	}
	p.derive()
	return p, nil
}

func (p *Params) derive() {
	p.PagesPerLun = p.PagesPerBlock * p.BlocksPerLun
	p.PagesPerCh = p.PagesPerLun * p.LunsPerCh
	p.TotalPages = p.PagesPerCh * p.NumChannels
	p.TotalBlocks = p.BlocksPerLun * p.LunsPerCh * p.NumChannels
	p.TotalLuns = p.LunsPerCh * p.NumChannels
}
