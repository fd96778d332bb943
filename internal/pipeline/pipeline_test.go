package pipeline

import (
	"encoding/binary"
	"os"
	"path/filepath"
	"testing"

	"github.com/scigolib/heapkey/internal/config"
	"github.com/scigolib/heapkey/internal/utils"
	"github.com/stretchr/testify/require"
)

func le64(v uint64) []byte {
	b := make([]byte, 8)
	binary.LittleEndian.PutUint64(b, v)
	return b
}

func writeDump(t *testing.T, dir, name string, dump []byte, sidecarJSON string) string {
	t.Helper()
	heapPath := filepath.Join(dir, name+"-heap.raw")
	require.NoError(t, os.WriteFile(heapPath, dump, 0o644))
	require.NoError(t, os.WriteFile(filepath.Join(dir, name+".json"), []byte(sidecarJSON), 0o644))
	return heapPath
}

func TestProcessFile_EndToEnd(t *testing.T) {
	dir := t.TempDir()

	var dump []byte
	dump = append(dump, le64(24)...)         // DTN header, size 24
	dump = append(dump, le64(0x1000)...)     // self-pointer
	dump = append(dump, []byte("SECRET__")...) // value block

	sidecarJSON := `{
		"HEAP_START": "0x1000",
		"pointer_byte_size": 8,
		"addr_ssh_struct": "0x1000",
		"addr_session_state": "0x1000",
		"keys": {}
	}`

	heapPath := writeDump(t, dir, "proc", dump, sidecarJSON)

	cfg := config.Default()
	rows, err := ProcessFile(heapPath, cfg)
	require.NoError(t, err)
	require.Len(t, rows, 2)
	require.Equal(t, heapPath, rows[0].FilePath)
}

func TestProcessFile_RecoverableOnMissingSidecar(t *testing.T) {
	dir := t.TempDir()
	heapPath := filepath.Join(dir, "proc-heap.raw")
	require.NoError(t, os.WriteFile(heapPath, make([]byte, 16), 0o644))

	_, err := ProcessFile(heapPath, config.Default())
	require.Error(t, err)
	require.True(t, Recoverable(err))
}

func TestProcessFile_NonRecoverableOnParseDivergence(t *testing.T) {
	dir := t.TempDir()
	dump := le64(0) // zero-size header
	sidecarJSON := `{
		"HEAP_START": "0x1000",
		"pointer_byte_size": 8,
		"addr_ssh_struct": "0x1000",
		"addr_session_state": "0x1000",
		"keys": {}
	}`
	heapPath := writeDump(t, dir, "proc", dump, sidecarJSON)

	_, err := ProcessFile(heapPath, config.Default())
	require.Error(t, err)
	require.False(t, Recoverable(err))
	require.Equal(t, utils.KindParseDiverged, utils.KindOf(err))
}
