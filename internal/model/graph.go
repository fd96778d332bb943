package model

import "github.com/scigolib/heapkey/internal/sidecar"

// Graph is the typed memory graph built from one heap dump: an
// address-keyed map of nodes, plus the bookkeeping the annotator and
// embedder need without re-walking the dump.
type Graph struct {
	// Nodes maps every node's address to the node itself. Insertion order
	// is irrelevant for correctness; callers needing deterministic
	// iteration sort the keys explicitly.
	Nodes map[uint64]*Node

	// ValueAddrs holds the address of every value (and key) node, even
	// when WithoutValueNodes means the node itself is absent from Nodes.
	ValueAddrs map[uint64]struct{}

	// Annotations records the special-node tag, if any, for an address.
	Annotations map[uint64]SpecialAnnotation

	// AddrToDTN maps every non-header address to the address of its
	// enclosing DTN, giving O(1) parent lookup at the cost of one map
	// entry per non-header block. DTN addresses map to themselves.
	AddrToDTN map[uint64]uint64

	// Sidecar is the descriptor this graph was built and will be
	// annotated against.
	Sidecar *sidecar.Descriptor

	BaseAddr uint64
	MaxAddr  uint64
	// BlockSize is B, the fixed block width used to walk the dump.
	BlockSize uint64

	// WithoutValueNodes records whether value nodes were omitted from
	// Nodes during the build (their addresses still appear in ValueAddrs
	// and DTN counters are unaffected).
	WithoutValueNodes bool

	// CompressPointerChains mirrors the config flag of the same name.
	// Parsed and recorded for inspection; the embedder's traversal does
	// not act on it.
	CompressPointerChains bool
}

// New constructs an empty Graph ready for the builder to populate.
func New(baseAddr, maxAddr, blockSize uint64, desc *sidecar.Descriptor) *Graph {
	return &Graph{
		Nodes:       make(map[uint64]*Node),
		ValueAddrs:  make(map[uint64]struct{}),
		Annotations: make(map[uint64]SpecialAnnotation),
		AddrToDTN:   make(map[uint64]uint64),
		Sidecar:     desc,
		BaseAddr:    baseAddr,
		MaxAddr:     maxAddr,
		BlockSize:   blockSize,
	}
}

// AddDTN registers a DTN and indexes its own address as its parent.
func (g *Graph) AddDTN(dtn *Node) {
	g.Nodes[dtn.Addr] = dtn
	g.AddrToDTN[dtn.Addr] = dtn.Addr
}

// AddChild registers a pointer or value node as belonging to dtnAddr,
// incrementing the parent DTN's bookkeeping counters. If the graph omits
// value nodes, the node itself is not stored in Nodes but its address is
// still recorded in ValueAddrs and AddrToDTN.
func (g *Graph) AddChild(n *Node, dtnAddr uint64) {
	g.AddrToDTN[n.Addr] = dtnAddr

	if n.IsValue() {
		g.ValueAddrs[n.Addr] = struct{}{}
	}

	if dtn, ok := g.Nodes[dtnAddr]; ok {
		if n.IsPointer() {
			dtn.NbPointerNodes++
		} else {
			dtn.NbValueNodes++
		}
	}

	if n.IsValue() && g.WithoutValueNodes {
		return
	}
	g.Nodes[n.Addr] = n
}

// DTNAt returns the DTN at addr, if any.
func (g *Graph) DTNAt(addr uint64) (*Node, bool) {
	n, ok := g.Nodes[addr]
	if !ok || !n.IsDTN() {
		return nil, false
	}
	return n, true
}

// ParentDTN returns the address of the DTN enclosing addr (addr itself, if
// addr is already a DTN address).
func (g *Graph) ParentDTN(addr uint64) (uint64, bool) {
	dtnAddr, ok := g.AddrToDTN[addr]
	return dtnAddr, ok
}

// NodeAt returns the node at addr, if one is present in Nodes. Note that
// value nodes may be absent here under WithoutValueNodes even though their
// address appears in ValueAddrs.
func (g *Graph) NodeAt(addr uint64) (*Node, bool) {
	n, ok := g.Nodes[addr]
	return n, ok
}

// ReplaceWithKey rewrites the value node at addr into a KeyNode in place,
// preserving its address and dtn_addr as required by the graph's
// annotation invariant.
func (g *Graph) ReplaceWithKey(addr uint64, key []byte, entry sidecar.KeyEntry) bool {
	n, ok := g.Nodes[addr]
	if !ok || n.Kind != KindValue {
		return false
	}
	n.Kind = KindKey
	n.Key = key
	n.KeyName = entry.Name
	n.KeyLen = entry.Len
	return true
}

// Annotate records a special-node tag for addr.
func (g *Graph) Annotate(addr uint64, tag SpecialAnnotation) {
	g.Annotations[addr] = tag
}
