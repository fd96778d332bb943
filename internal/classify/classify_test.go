package classify

import (
	"encoding/binary"
	"testing"

	"github.com/stretchr/testify/require"
)

func le(v uint64) []byte {
	b := make([]byte, 8)
	binary.LittleEndian.PutUint64(b, v)
	return b
}

func TestBlock_TypicalHeapPointer(t *testing.T) {
	kind, target := Block(le(0x1008), 0x1000, 0x10FF)
	require.Equal(t, Pointer, kind)
	require.Equal(t, uint64(0x1008), target)
}

func TestBlock_ValueOutsideRange(t *testing.T) {
	kind, _ := Block(le(0xDEADBEEF), 0x1000, 0x10FF)
	require.Equal(t, Value, kind)
}

func TestBlock_BoundaryAtMaxAddr(t *testing.T) {
	kind, target := Block(le(0x10FF), 0x1000, 0x10FF)
	require.Equal(t, Pointer, kind)
	require.Equal(t, uint64(0x10FF), target)
}

func TestBlock_BoundaryJustPastMaxAddr(t *testing.T) {
	kind, _ := Block(le(0x1100), 0x1000, 0x10FF)
	require.Equal(t, Value, kind)
}

func TestBlock_BoundaryAtBaseAddr(t *testing.T) {
	kind, target := Block(le(0x1000), 0x1000, 0x10FF)
	require.Equal(t, Pointer, kind)
	require.Equal(t, uint64(0x1000), target)
}

func TestBlock_BoundaryJustBeforeBaseAddr(t *testing.T) {
	kind, _ := Block(le(0x0FFF), 0x1000, 0x10FF)
	require.Equal(t, Value, kind)
}
