// Package embed implements the embedder (C5): for each payload chunk in an
// annotated graph, it computes ancestor/descendant pointer-traversal
// features over a configurable hop depth and emits one feature row per
// chunk, in ascending address order.
package embed

import (
	"encoding/binary"
	"sort"

	"github.com/scigolib/heapkey/internal/config"
	"github.com/scigolib/heapkey/internal/model"
)

// Row is one emitted feature row, in the column order the CSV writer uses.
type Row struct {
	FilePath      string
	ChunkAddr     uint64
	ChunkByteSize uint64
	ChunkPtrs     int
	AncestorChns  []int // index 0 == hop 1
	AncestorPtrs  []int
	ChildrenChns  []int
	ChildrenPtrs  []int
	Label         int
}

// edge is one pointer-node-mediated DTN-to-DTN traversal step.
type edge struct {
	target  uint64
	ptrAddr uint64
}

// adjacency holds the DTN-level forward and reverse pointer graphs,
// precomputed once per graph so every chunk's BFS reuses it.
type adjacency struct {
	forward map[uint64][]edge
	reverse map[uint64][]edge
}

func buildAdjacency(g *model.Graph) *adjacency {
	adj := &adjacency{forward: make(map[uint64][]edge), reverse: make(map[uint64][]edge)}

	for addr, n := range g.Nodes {
		if !n.IsPointer() {
			continue
		}
		sourceDTN := n.DTNAddr
		targetDTN, ok := g.ParentDTN(n.PointsTo)
		if !ok {
			continue
		}
		adj.forward[sourceDTN] = append(adj.forward[sourceDTN], edge{target: targetDTN, ptrAddr: addr})
		adj.reverse[targetDTN] = append(adj.reverse[targetDTN], edge{target: sourceDTN, ptrAddr: addr})
	}

	return adj
}

// hopCounts runs a per-hop BFS from start over adj out to depth hops,
// deduplicating discoveries per hop and excluding self-loops. Index 0 of
// the returned slices holds hop 1's counts.
func hopCounts(start uint64, adj map[uint64][]edge, depth int) (chns []int, ptrs []int) {
	chns = make([]int, depth)
	ptrs = make([]int, depth)

	visited := map[uint64]bool{start: true}
	frontier := []uint64{start}

	for hop := 0; hop < depth; hop++ {
		var candidates []edge
		for _, cur := range frontier {
			for _, e := range adj[cur] {
				if e.target == cur {
					continue // self-loops never count
				}
				candidates = append(candidates, e)
			}
		}
		sort.Slice(candidates, func(i, j int) bool {
			if candidates[i].target != candidates[j].target {
				return candidates[i].target < candidates[j].target
			}
			return candidates[i].ptrAddr < candidates[j].ptrAddr
		})

		var nextFrontier []uint64
		ptrSet := make(map[uint64]struct{})
		for _, e := range candidates {
			if visited[e.target] {
				continue
			}
			visited[e.target] = true
			nextFrontier = append(nextFrontier, e.target)
			ptrSet[e.ptrAddr] = struct{}{}
		}

		chns[hop] = len(nextFrontier)
		ptrs[hop] = len(ptrSet)
		frontier = nextFrontier
	}

	return chns, ptrs
}

// rawBytesOf reconstructs the on-disk bytes of a non-DTN node for entropy
// computation: a value/key node's stored bytes, or a pointer node's target
// re-encoded little-endian (the original classification-time representation).
func rawBytesOf(n *model.Node) []byte {
	if n.IsPointer() {
		buf := make([]byte, 8)
		binary.LittleEndian.PutUint64(buf, n.PointsTo)
		return buf
	}
	return n.Value
}

// label computes the stable label column: dtnTypeCode(dtn_type) plus a
// key-class offset of 4 when the chunk's own node is a KeyNode.
func label(dtnType model.DTNType, isKey bool) int {
	code := dtnType.Code()
	if isKey {
		return code + 4
	}
	return code
}

// Embed computes one feature row per payload chunk present in g's node map,
// ordered by ascending chunk address, applying the optional zero-sample and
// entropy filters.
func Embed(g *model.Graph, filePath string, depth int, removeTrivialZero bool, entropy config.EntropyFilter) []Row {
	adj := buildAdjacency(g)

	addrs := make([]uint64, 0, len(g.Nodes))
	for addr, n := range g.Nodes {
		if n.IsDTN() {
			continue
		}
		addrs = append(addrs, addr)
	}
	sort.Slice(addrs, func(i, j int) bool { return addrs[i] < addrs[j] })

	rows := make([]Row, 0, len(addrs))
	for _, addr := range addrs {
		n := g.Nodes[addr]

		dtnAddr, ok := g.ParentDTN(addr)
		if !ok {
			continue
		}
		dtn, ok := g.DTNAt(dtnAddr)
		if !ok {
			continue
		}

		ancestorChns, ancestorPtrs := hopCounts(dtnAddr, adj.reverse, depth)
		childrenChns, childrenPtrs := hopCounts(dtnAddr, adj.forward, depth)

		if removeTrivialZero && allZero(ancestorChns) && allZero(ancestorPtrs) &&
			allZero(childrenChns) && allZero(childrenPtrs) {
			continue
		}

		if !entropy.Allows(ShannonEntropy(rawBytesOf(n))) {
			continue
		}

		chunkPtrs := 0
		if n.IsPointer() {
			chunkPtrs = 1
		}

		rows = append(rows, Row{
			FilePath:      filePath,
			ChunkAddr:     addr,
			ChunkByteSize: g.BlockSize,
			ChunkPtrs:     chunkPtrs,
			AncestorChns:  ancestorChns,
			AncestorPtrs:  ancestorPtrs,
			ChildrenChns:  childrenChns,
			ChildrenPtrs:  childrenPtrs,
			Label:         label(dtn.DTNType, n.IsKey()),
		})
	}

	return rows
}

func allZero(counts []int) bool {
	for _, c := range counts {
		if c != 0 {
			return false
		}
	}
	return true
}
