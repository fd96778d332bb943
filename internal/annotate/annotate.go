// Package annotate implements the graph annotator (C4): two passes over an
// already-built graph that upgrade node kinds using sidecar-derived ground
// truth, without ever moving a node or changing its address, dtn_addr, or
// byte_size.
package annotate

import (
	"bytes"

	"github.com/scigolib/heapkey/internal/config"
	"github.com/scigolib/heapkey/internal/logging"
	"github.com/scigolib/heapkey/internal/model"
	"github.com/scigolib/heapkey/internal/sidecar"
	"github.com/scigolib/heapkey/internal/utils"
)

var log = logging.Default().Module("annotate")

// specialStruct pairs one special-struct sidecar field with the annotation
// tag and dtn_type it upgrades to.
type specialStruct struct {
	present bool
	addr    uint64
	tag     model.SpecialAnnotation
	dtnType model.DTNType
}

// Annotate runs the special-struct pass followed by the key pass over g,
// mutating it in place.
func Annotate(g *model.Graph, loc config.AnnotationLocation) {
	annotateSpecialStructs(g, loc)
	annotateKeys(g)
}

func annotateSpecialStructs(g *model.Graph, loc config.AnnotationLocation) {
	specials := []specialStruct{
		{g.Sidecar.HasSshStruct, g.Sidecar.AddrSshStruct, model.SshStructNodeAnnotation, model.SshStruct},
		{g.Sidecar.HasSessionState, g.Sidecar.AddrSessionState, model.SessionStateNodeAnnotation, model.SessionStateStruct},
	}

	for _, sp := range specials {
		if !sp.present {
			continue
		}

		anchor := sp.addr
		if g.WithoutValueNodes {
			parent, ok := g.ParentDTN(anchor)
			if !ok {
				log.Warnf(logging.Fields{"addr": anchor}, "special-struct anchor has no resolvable parent DTN, skipping")
				continue
			}
			anchor = parent
		}

		g.Annotate(anchor, sp.tag)

		if loc != config.AnnotateOnDtn {
			continue
		}

		dtnAddr, ok := g.ParentDTN(anchor)
		if !ok {
			log.Warnf(logging.Fields{"addr": anchor}, "special-struct anchor not present in graph, skipping dtn_type upgrade")
			continue
		}
		if dtn, ok := g.DTNAt(dtnAddr); ok {
			dtn.DTNType = sp.dtnType
		}
	}
}

func annotateKeys(g *model.Graph) {
	for _, addr := range g.Sidecar.SortedKeyAddrs() {
		entry := g.Sidecar.Keys[addr]
		annotateOneKey(g, addr, entry)
	}
}

func annotateOneKey(g *model.Graph, addr uint64, entry sidecar.KeyEntry) {
	anchor, ok := g.NodeAt(addr)
	if !ok || anchor.Kind != model.KindValue {
		log.Warnf(logging.Fields{"addr": addr, "name": entry.Name}, "no value node at key anchor, skipping")
		return
	}

	if err := utils.ValidateBufferSize(uint64(entry.Len), utils.MaxKeyLen, "annotate: key "+entry.Name); err != nil {
		log.Warnf(logging.Fields{"addr": addr, "name": entry.Name, "err": err}, "key reassembly: key length rejected, aborting entry")
		return
	}

	nbBlocks := utils.DivRoundUp(uint64(entry.Len), g.BlockSize)
	capacity, err := utils.SafeMultiply(nbBlocks, g.BlockSize)
	if err != nil {
		log.Warnf(logging.Fields{"addr": addr, "name": entry.Name, "err": err}, "key reassembly: block count overflow, aborting entry")
		return
	}
	buf := make([]byte, 0, capacity)

	for i := uint64(0); i < nbBlocks; i++ {
		blockAddr := addr + i*g.BlockSize
		n, ok := g.NodeAt(blockAddr)
		if !ok {
			log.Warnf(logging.Fields{"addr": addr, "block": blockAddr}, "key reassembly: missing node, aborting entry")
			return
		}

		switch n.Kind {
		case model.KindValue:
			buf = append(buf, n.Value...)
		case model.KindPointer:
			buf = append(buf, utils.EncodeUint64BE(n.PointsTo)...)
		default:
			log.Warnf(logging.Fields{"addr": addr, "block": blockAddr, "kind": n.Kind}, "key reassembly: unexpected node kind, aborting entry")
			return
		}
	}

	if len(buf) < entry.Len {
		log.Warnf(logging.Fields{"addr": addr, "name": entry.Name}, "key reassembly: insufficient bytes, aborting entry")
		return
	}
	buf = buf[:entry.Len]

	if !bytes.Equal(buf, entry.Key) {
		log.Warnf(logging.Fields{"addr": addr, "name": entry.Name}, "key reassembly: byte mismatch, leaving value node unmutated")
		return
	}

	dtnAddr := anchor.DTNAddr
	g.ReplaceWithKey(addr, buf, entry)
	if dtn, ok := g.DTNAt(dtnAddr); ok {
		dtn.DTNType = model.Keystruct
	}
}
