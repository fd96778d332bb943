// Package classify implements the block classifier (C2): the sole site
// where pointer endianness is consulted. A block is a candidate pointer if
// its little-endian interpretation lands inside the heap's address range;
// otherwise it is a value.
package classify

import "encoding/binary"

// Kind is the classification of one block.
type Kind uint8

const (
	// Value means the block's little-endian interpretation falls outside
	// [baseAddr, maxAddr].
	Value Kind = iota
	// Pointer means the block's little-endian interpretation falls inside
	// [baseAddr, maxAddr] and is therefore a candidate pointer target.
	Pointer
)

// Block classifies an 8-byte-aligned block against the heap's address
// range, always decoding in little-endian as the fixed pointer endianness.
// It returns the classification and, for Pointer, the decoded target.
func Block(block []byte, baseAddr, maxAddr uint64) (Kind, uint64) {
	target := binary.LittleEndian.Uint64(block)
	if target >= baseAddr && target <= maxAddr {
		return Pointer, target
	}
	return Value, 0
}
