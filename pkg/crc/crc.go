// Package crc implements the incremental CRC-32 used to protect PNG chunks.
//
// The checksum is the ISO 3309 / ITU-T V.42 CRC-32 (reflected polynomial
// 0xEDB88320, initial value and final XOR 0xFFFFFFFF), which is the IEEE
// table in hash/crc32. An Accumulator is seeded with one fragment and updated
// with more; the final value covers the concatenation of every fragment fed
// to it.
package crc

import "hash/crc32"

// Accumulator holds intermediate checksum state across updates.
type Accumulator struct {
	crc uint32
	n   int64
}

// New creates an accumulator seeded with zero or more fragments
func New(seed ...[]byte) *Accumulator {
	a := &Accumulator{}
	for _, p := range seed {
		a.Update(p)
	}
	return a
}

// Update feeds p into the accumulator and returns it for chaining
func (a *Accumulator) Update(p []byte) *Accumulator {
	a.crc = crc32.Update(a.crc, crc32.IEEETable, p)
	a.n += int64(len(p))
	return a
}

// Sum32 returns the checksum of every byte fed so far
func (a *Accumulator) Sum32() uint32 {
	return a.crc
}

// Len returns the number of bytes fed so far
func (a *Accumulator) Len() int64 {
	return a.n
}

// Checksum computes the checksum over the concatenation of fragments in one call
func Checksum(fragments ...[]byte) uint32 {
	return New(fragments...).Sum32()
}
