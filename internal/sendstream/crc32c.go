package sendstream

import "hash/crc32"

var castagnoliTable = crc32.MakeTable(crc32.Castagnoli)

// Checksum computes the per-command checksum of the wire format: Castagnoli
// CRC32 with a zero initial state and no final inversion, matching the
// kernel's btrfs_crc32c(0, buf).
func Checksum(buf []byte) uint32 {
	return ChecksumUpdate(0, buf)
}

// ChecksumUpdate continues a Checksum computation over the next chunk.
func ChecksumUpdate(crc uint32, buf []byte) uint32 {
	// hash/crc32 pre- and post-inverts the running state; undoing both
	// yields the raw register the kernel uses.
	return ^crc32.Update(^crc, castagnoliTable, buf)
}
