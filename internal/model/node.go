// Package model defines the typed memory graph produced by the graph
// builder and mutated in place by the graph annotator: data-structure
// nodes (one per heap allocation), pointer nodes, and value nodes, plus
// the address-keyed Graph that owns them.
package model

import "fmt"

// NodeKind is the tag of the Node sum type. A single enum with helper
// accessors is preferred here over a Go interface with concrete
// implementations, since every node shares most of its fields and the
// annotator needs to rewrite a node's kind in place without disturbing its
// address.
type NodeKind uint8

const (
	// KindDTN marks a data-structure node: one heap allocation.
	KindDTN NodeKind = iota
	// KindPointer marks a block classified as a pointer.
	KindPointer
	// KindValue marks a block classified as a value.
	KindValue
	// KindKey marks a value block the annotator has identified as part of
	// a reassembled key. A KeyNode is a refinement of a value node: it
	// carries everything a value node does, plus the reassembled key.
	KindKey
)

// String returns a lowercase, log-friendly name for the kind.
func (k NodeKind) String() string {
	switch k {
	case KindDTN:
		return "dtn"
	case KindPointer:
		return "pointer"
	case KindValue:
		return "value"
	case KindKey:
		return "key"
	default:
		return fmt.Sprintf("kind(%d)", uint8(k))
	}
}

// DTNType classifies the allocation a DTN represents, refined by the
// annotator's special-struct and key passes.
type DTNType uint8

const (
	// Unknown is the default classification for a freshly built DTN.
	Unknown DTNType = iota
	// SshStruct marks a DTN the annotator identified as an SSH structure.
	SshStruct
	// SessionStateStruct marks a DTN identified as session state.
	SessionStateStruct
	// Keystruct marks a DTN containing a reassembled key.
	Keystruct
)

// String returns the name used in logs and the label encoding.
func (t DTNType) String() string {
	switch t {
	case SshStruct:
		return "SshStruct"
	case SessionStateStruct:
		return "SessionStateStruct"
	case Keystruct:
		return "Keystruct"
	default:
		return "Unknown"
	}
}

// Code returns the stable, bit-for-bit reproducible dtnTypeCode used in the
// label column: Unknown=0, SshStruct=1, SessionStateStruct=2, Keystruct=3.
func (t DTNType) Code() int {
	switch t {
	case SshStruct:
		return 1
	case SessionStateStruct:
		return 2
	case Keystruct:
		return 3
	default:
		return 0
	}
}

// SpecialAnnotation tags an address in the graph's special-node map,
// recorded by the annotator's special-struct pass independently of any
// dtn_type upgrade.
type SpecialAnnotation uint8

const (
	// NoAnnotation is the zero value: no special-struct tag recorded.
	NoAnnotation SpecialAnnotation = iota
	// SshStructNodeAnnotation marks the anchor address of addr_ssh_struct.
	SshStructNodeAnnotation
	// SessionStateNodeAnnotation marks the anchor address of addr_session_state.
	SessionStateNodeAnnotation
)

// Node is the tagged variant described by the data model: a
// DataStructureNode, PointerNode, ValueNode, or its KeyNode refinement.
// Fields not relevant to Kind are left at their zero value; callers branch
// on Kind rather than performing runtime type assertions.
type Node struct {
	Kind NodeKind
	Addr uint64

	// DTN fields.
	ByteSize       uint64
	NbPointerNodes int
	NbValueNodes   int
	DTNType        DTNType

	// Non-DTN fields: every Pointer, Value, and Key node records the
	// address of its enclosing DTN for O(1) parent lookup.
	DTNAddr uint64

	// Pointer fields.
	PointsTo uint64

	// Value/Key fields.
	Value []byte

	// Key fields (Kind == KindKey only).
	Key     []byte
	KeyName string
	KeyLen  int
}

// IsDTN reports whether n is a data-structure node.
func (n *Node) IsDTN() bool { return n.Kind == KindDTN }

// IsPointer reports whether n is a pointer node.
func (n *Node) IsPointer() bool { return n.Kind == KindPointer }

// IsValue reports whether n is a value node, including its KeyNode refinement.
func (n *Node) IsValue() bool { return n.Kind == KindValue || n.Kind == KindKey }

// IsKey reports whether n is a reassembled-key refinement of a value node.
func (n *Node) IsKey() bool { return n.Kind == KindKey }

// NewDTN constructs a fresh, unannotated data-structure node.
func NewDTN(addr, byteSize uint64) *Node {
	return &Node{Kind: KindDTN, Addr: addr, ByteSize: byteSize, DTNType: Unknown}
}

// NewPointer constructs a pointer node belonging to the DTN at dtnAddr.
func NewPointer(addr, pointsTo, dtnAddr uint64) *Node {
	return &Node{Kind: KindPointer, Addr: addr, PointsTo: pointsTo, DTNAddr: dtnAddr}
}

// NewValue constructs a value node belonging to the DTN at dtnAddr. value is
// retained by reference; callers must not mutate it afterward.
func NewValue(addr uint64, value []byte, dtnAddr uint64) *Node {
	return &Node{Kind: KindValue, Addr: addr, Value: value, DTNAddr: dtnAddr}
}
