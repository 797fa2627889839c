package nand

import "hash/crc32"

// crcTable is the CRC32-C (Castagnoli) table used for per-page data
// integrity checksums.
var crcTable = crc32.MakeTable(crc32.Castagnoli)

// Checksum computes the CRC32-C of exactly one PGSZ-byte page (spec.md §6
// "Checksum format").
func Checksum(page []byte) uint32 {
	return crc32.Checksum(page, crcTable)
}

// VerifyChecksum reports whether page matches the stored checksum. A
// mismatch is a soft corruption signal per spec.md §4.3 — callers log and
// continue rather than treating it as fatal.
func VerifyChecksum(page []byte, stored uint32) bool {
	return Checksum(page) == stored
}
