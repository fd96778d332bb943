package model

import (
	"testing"

	"github.com/scigolib/heapkey/internal/sidecar"
	"github.com/stretchr/testify/require"
)

func TestGraph_AddDTNAndChildren(t *testing.T) {
	g := New(0x1000, 0x10FF, 8, &sidecar.Descriptor{})

	dtn := NewDTN(0x1000, 24)
	g.AddDTN(dtn)

	ptr := NewPointer(0x1008, 0x1000, 0x1000)
	g.AddChild(ptr, 0x1000)

	val := NewValue(0x1010, make([]byte, 8), 0x1000)
	g.AddChild(val, 0x1000)

	require.Equal(t, 1, dtn.NbPointerNodes)
	require.Equal(t, 1, dtn.NbValueNodes)

	parent, ok := g.ParentDTN(0x1010)
	require.True(t, ok)
	require.Equal(t, uint64(0x1000), parent)

	parent, ok = g.ParentDTN(0x1000)
	require.True(t, ok)
	require.Equal(t, uint64(0x1000), parent)

	_, ok = g.DTNAt(0x1000)
	require.True(t, ok)
	_, ok = g.DTNAt(0x1010)
	require.False(t, ok)
}

func TestGraph_WithoutValueNodes(t *testing.T) {
	g := New(0x1000, 0x10FF, 8, &sidecar.Descriptor{})
	g.WithoutValueNodes = true

	dtn := NewDTN(0x1000, 24)
	g.AddDTN(dtn)

	val := NewValue(0x1010, make([]byte, 8), 0x1000)
	g.AddChild(val, 0x1000)

	_, ok := g.NodeAt(0x1010)
	require.False(t, ok, "value node must be omitted from Nodes")

	_, ok = g.ValueAddrs[0x1010]
	require.True(t, ok, "value address must still be tracked")

	require.Equal(t, 1, dtn.NbValueNodes, "counters unaffected by omission")
}

func TestGraph_ReplaceWithKey(t *testing.T) {
	g := New(0x1000, 0x10FF, 8, &sidecar.Descriptor{})
	dtn := NewDTN(0x1000, 24)
	g.AddDTN(dtn)
	val := NewValue(0x1010, []byte{0xde, 0xad, 0xbe, 0xef, 0, 0, 0, 0}, 0x1000)
	g.AddChild(val, 0x1000)

	entry := sidecar.KeyEntry{Addr: 0x1010, Name: "k", Len: 4}
	ok := g.ReplaceWithKey(0x1010, []byte{0xde, 0xad, 0xbe, 0xef}, entry)
	require.True(t, ok)

	n, ok := g.NodeAt(0x1010)
	require.True(t, ok)
	require.True(t, n.IsKey())
	require.Equal(t, uint64(0x1010), n.Addr)
	require.Equal(t, uint64(0x1000), n.DTNAddr)
	require.Equal(t, []byte{0xde, 0xad, 0xbe, 0xef}, n.Key)
	require.Equal(t, "k", n.KeyName)
}

func TestGraph_ReplaceWithKey_NotAValueNode(t *testing.T) {
	g := New(0x1000, 0x10FF, 8, &sidecar.Descriptor{})
	dtn := NewDTN(0x1000, 24)
	g.AddDTN(dtn)

	ok := g.ReplaceWithKey(0x1000, []byte{1}, sidecar.KeyEntry{})
	require.False(t, ok)
}

func TestGraph_Annotate(t *testing.T) {
	g := New(0x1000, 0x10FF, 8, &sidecar.Descriptor{})
	g.Annotate(0x1000, SshStructNodeAnnotation)
	require.Equal(t, SshStructNodeAnnotation, g.Annotations[0x1000])
}
