package nand

import "fmt"

// PPA is a physical page address. Both encodings — composite {Ch,Lun,Blk,Pg}
// and flat RealPPA — exist simultaneously; ToFlat/FromFlat keep them
// consistent (spec.md §3 "Physical page address (PPA)").
type PPA struct {
	Ch      int
	Lun     int
	Blk     int
	Pg      int
	RealPPA uint64
}

// IsUnmapped reports whether ppa is the "no physical page" sentinel.
func (p PPA) IsUnmapped() bool { return p.RealPPA == UnmappedPPA }

// Unmapped returns the sentinel PPA.
func Unmapped() PPA { return PPA{RealPPA: UnmappedPPA} }

// ToFlat recomputes RealPPA from the composite fields, asserting it stays
// within range. Mirrors the original's ppa2pgidx.
func (p *Params) ToFlat(ppa *PPA) {
	real := uint64(ppa.Ch)*uint64(p.PagesPerCh) +
		uint64(ppa.Lun)*uint64(p.PagesPerLun) +
		uint64(ppa.Blk)*uint64(p.PagesPerBlock) +
		uint64(ppa.Pg)
	if real >= uint64(p.TotalPages) {
		panic(fmt.Sprintf("nand: PPA %d exceeds total pages %d", real, p.TotalPages))
	}
	ppa.RealPPA = real
}

// FromFlat recomputes the composite fields from RealPPA. Mirrors the
// original's pgidx2ppa.
func (p *Params) FromFlat(ppa *PPA) {
	if ppa.RealPPA >= uint64(p.TotalPages) {
		panic(fmt.Sprintf("nand: PPA %d exceeds total pages %d", ppa.RealPPA, p.TotalPages))
	}
	idx := ppa.RealPPA
	ppa.Ch = int(idx / uint64(p.PagesPerCh))
	idx %= uint64(p.PagesPerCh)
	ppa.Lun = int(idx / uint64(p.PagesPerLun))
	idx %= uint64(p.PagesPerLun)
	ppa.Blk = int(idx / uint64(p.PagesPerBlock))
	idx %= uint64(p.PagesPerBlock)
	ppa.Pg = int(idx)
}

// FlatPPA builds a PPA purely from its flat index, deriving the composite
// fields.
func (p *Params) FlatPPA(realppa uint64) PPA {
	ppa := PPA{RealPPA: realppa}
	p.FromFlat(&ppa)
	return ppa
}

// LunIndex returns the global LUN index (0..TotalLuns) addressed by ppa.
func (p *Params) LunIndex(ppa PPA) int {
	return ppa.Ch*p.LunsPerCh + ppa.Lun
}
