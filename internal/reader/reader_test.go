package reader

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/scigolib/heapkey/internal/utils"
	"github.com/stretchr/testify/require"
)

const fixtureSidecar = `{
	"HEAP_START": "0x1000",
	"pointer_byte_size": 8,
	"addr_ssh_struct": "0x1010",
	"addr_session_state": "0x1020",
	"keys": {}
}`

func writeFixture(t *testing.T, dir string, dumpLen int) string {
	t.Helper()
	heapPath := filepath.Join(dir, "proc-heap.raw")
	require.NoError(t, os.WriteFile(heapPath, make([]byte, dumpLen), 0o644))
	require.NoError(t, os.WriteFile(SidecarPathFor(heapPath), []byte(fixtureSidecar), 0o644))
	return heapPath
}

func TestSidecarPathFor(t *testing.T) {
	require.Equal(t, "/tmp/proc.json", SidecarPathFor("/tmp/proc-heap.raw"))
}

func TestLoad_Success(t *testing.T) {
	dir := t.TempDir()
	heapPath := writeFixture(t, dir, 256)

	pair, err := Load(heapPath)
	require.NoError(t, err)
	require.Equal(t, uint64(0x1000), pair.BaseAddr)
	require.Equal(t, uint64(0x1000+256-1), pair.MaxAddr)
	require.Len(t, pair.Bytes, 256)
	require.NotNil(t, pair.Sidecar)
}

func TestLoad_MissingSidecar(t *testing.T) {
	dir := t.TempDir()
	heapPath := filepath.Join(dir, "proc-heap.raw")
	require.NoError(t, os.WriteFile(heapPath, make([]byte, 64), 0o644))

	_, err := Load(heapPath)
	require.Error(t, err)
	require.Equal(t, utils.KindInputMissing, utils.KindOf(err))
	require.True(t, utils.KindOf(err).Recoverable())
}

func TestLoad_MalformedSidecar(t *testing.T) {
	dir := t.TempDir()
	heapPath := filepath.Join(dir, "proc-heap.raw")
	require.NoError(t, os.WriteFile(heapPath, make([]byte, 64), 0o644))
	require.NoError(t, os.WriteFile(SidecarPathFor(heapPath), []byte(`{"HEAP_START": "0x1000"}`), 0o644))

	_, err := Load(heapPath)
	require.Error(t, err)
	require.Equal(t, utils.KindInputMalformed, utils.KindOf(err))
	require.True(t, utils.KindOf(err).Recoverable())
}

func TestLoad_EmptyDump(t *testing.T) {
	dir := t.TempDir()
	heapPath := writeFixture(t, dir, 0)

	_, err := Load(heapPath)
	require.Error(t, err)
	require.Equal(t, utils.KindInputMalformed, utils.KindOf(err))
}

func TestLoad_HeapStartOverflowsMaxAddr(t *testing.T) {
	dir := t.TempDir()
	heapPath := filepath.Join(dir, "proc-heap.raw")
	require.NoError(t, os.WriteFile(heapPath, make([]byte, 64), 0o644))
	sidecarJSON := `{
		"HEAP_START": "0xFFFFFFFFFFFFFFFF",
		"pointer_byte_size": 8,
		"addr_ssh_struct": "0x10",
		"addr_session_state": "0x10",
		"keys": {}
	}`
	require.NoError(t, os.WriteFile(SidecarPathFor(heapPath), []byte(sidecarJSON), 0o644))

	_, err := Load(heapPath)
	require.Error(t, err)
	require.Equal(t, utils.KindInputMalformed, utils.KindOf(err))
}
