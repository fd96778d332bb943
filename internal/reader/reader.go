// Package reader implements the dump reader (C1): it loads the raw bytes
// of a heap dump and its sidecar metadata, deriving the sidecar's path from
// the dump's by stem substitution.
package reader

import (
	"os"
	"strings"

	"github.com/scigolib/heapkey/internal/sidecar"
	"github.com/scigolib/heapkey/internal/utils"
)

// HeapSuffix is the filename suffix that marks a raw heap dump.
const HeapSuffix = "-heap.raw"

// Pair is one loaded (dump, sidecar) unit ready for the graph builder.
type Pair struct {
	HeapPath    string
	SidecarPath string
	Bytes       []byte
	BaseAddr    uint64
	MaxAddr     uint64
	Sidecar     *sidecar.Descriptor
}

// SidecarPathFor derives X.json from X-heap.raw. Paths not ending in
// HeapSuffix get ".json" appended to the whole path: callers are expected
// to only pass paths already matched against HeapSuffix.
func SidecarPathFor(heapPath string) string {
	stem := strings.TrimSuffix(heapPath, HeapSuffix)
	return stem + ".json"
}

// Load reads the dump at heapPath and its paired sidecar, returning a Pair
// ready for classification and graph building.
//
// A missing sidecar yields a KindInputMissing error; a malformed sidecar
// yields whatever utils.Kind the sidecar package classified it as. Both are
// recoverable per file per the error handling design.
func Load(heapPath string) (*Pair, error) {
	sidecarPath := SidecarPathFor(heapPath)

	sidecarBytes, err := os.ReadFile(sidecarPath)
	if err != nil {
		if os.IsNotExist(err) {
			return nil, utils.Wrap(utils.KindInputMissing, "reader: sidecar not found: "+sidecarPath, err)
		}
		return nil, utils.Wrap(utils.KindIOFailure, "reader: reading sidecar: "+sidecarPath, err)
	}

	desc, err := sidecar.Parse(sidecarBytes)
	if err != nil {
		return nil, err
	}

	dumpBytes, err := os.ReadFile(heapPath)
	if err != nil {
		return nil, utils.Wrap(utils.KindIOFailure, "reader: reading dump: "+heapPath, err)
	}
	if len(dumpBytes) == 0 {
		return nil, utils.New(utils.KindInputMalformed, "reader: empty dump: "+heapPath)
	}
	if err := utils.ValidateBufferSize(uint64(len(dumpBytes)), utils.MaxDumpSize, "reader: dump "+heapPath); err != nil {
		return nil, utils.Wrap(utils.KindInputMalformed, "reader: dump too large", err)
	}

	baseAddr := desc.HeapStart
	maxAddr, err := utils.SafeAdd(baseAddr, uint64(len(dumpBytes))-1)
	if err != nil {
		return nil, utils.Wrap(utils.KindInputMalformed, "reader: heap_start plus dump length overflows", err)
	}

	return &Pair{
		HeapPath:    heapPath,
		SidecarPath: sidecarPath,
		Bytes:       dumpBytes,
		BaseAddr:    baseAddr,
		MaxAddr:     maxAddr,
		Sidecar:     desc,
	}, nil
}
