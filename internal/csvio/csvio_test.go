package csvio

import (
	"encoding/csv"
	"os"
	"path/filepath"
	"testing"

	"github.com/scigolib/heapkey/internal/embed"
	"github.com/stretchr/testify/require"
)

func TestHeader_Depth1(t *testing.T) {
	require.Equal(t, []string{
		"file_path", "f_chn_addr", "f_chunk_byte_size", "f_chunk_ptrs",
		"f_chns_ancestor_1", "f_ptrs_ancestor_1",
		"f_chns_children_1", "f_ptrs_children_1",
		"label",
	}, Header(1))
}

func TestHeader_Depth2(t *testing.T) {
	h := Header(2)
	require.Equal(t, "f_chns_ancestor_2", h[len(h)-7])
	require.Equal(t, "label", h[len(h)-1])
}

func TestWriter_RoundTrip(t *testing.T) {
	path := filepath.Join(t.TempDir(), "out.csv")

	w, err := Create(path, 1)
	require.NoError(t, err)

	row := embed.Row{
		FilePath:      "proc-heap.raw",
		ChunkAddr:     0x1008,
		ChunkByteSize: 8,
		ChunkPtrs:     1,
		AncestorChns:  []int{2},
		AncestorPtrs:  []int{3},
		ChildrenChns:  []int{0},
		ChildrenPtrs:  []int{0},
		Label:         1,
	}
	require.NoError(t, w.WriteRow(row))
	require.NoError(t, w.Close())

	f, err := os.Open(path)
	require.NoError(t, err)
	defer f.Close()

	records, err := csv.NewReader(f).ReadAll()
	require.NoError(t, err)
	require.Len(t, records, 2)
	require.Equal(t, Header(1), records[0])
	require.Equal(t, []string{"proc-heap.raw", "4104", "8", "1", "2", "3", "0", "0", "1"}, records[1])
}
