package unicore

import "hash/crc32"

// CRC32 is the reflected CRC32 (polynomial 0xEDB88320) with a zero initial
// value and no final XOR, as the receiver computes it. hash/crc32 inverts the
// register on entry and exit, so both inversions are undone here.
func CRC32(b []byte) uint32 {
	return ^crc32.Update(^uint32(0), crc32.IEEETable, b)
}
