// Package builder implements the graph builder (C3): it walks a heap dump
// honoring glibc-style allocator headers to emit a typed memory graph of
// allocation, pointer, and value nodes.
package builder

import (
	"bytes"
	"encoding/binary"
	"fmt"

	"github.com/scigolib/heapkey/internal/classify"
	"github.com/scigolib/heapkey/internal/model"
	"github.com/scigolib/heapkey/internal/reader"
	"github.com/scigolib/heapkey/internal/utils"
)

// sizeFlagsMask clears the low 3 bits of chunk_size_with_flags, glibc's
// in-use/mmapped/non-main-arena flag bits, leaving the chunk size.
const sizeFlagsMask = ^uint64(0x7)

// Options configures one build pass.
type Options struct {
	// BlockSize is B, the fixed block width.
	BlockSize uint64
	// WithoutValueNodes omits value nodes from the resulting graph's main
	// node map; their addresses remain in ValueAddrs.
	WithoutValueNodes bool
	// CompressPointerChains is recorded on the graph but not acted on.
	CompressPointerChains bool
}

// Build walks pair.Bytes, emitting one DTN per glibc-style allocation
// header and one Pointer or Value node per payload block. It returns a
// KindParseDiverged error if a header yields a zero size or an allocation
// would run past the end of the dump.
func Build(pair *reader.Pair, opts Options) (*model.Graph, error) {
	b := opts.BlockSize
	if b == 0 {
		return nil, utils.New(utils.KindInvariantViolated, "builder: block size must be > 0")
	}

	g := model.New(pair.BaseAddr, pair.MaxAddr, b, pair.Sidecar)
	g.WithoutValueNodes = opts.WithoutValueNodes
	g.CompressPointerChains = opts.CompressPointerChains

	total := uint64(len(pair.Bytes))
	cursor := pair.BaseAddr
	src := bytes.NewReader(pair.Bytes)

	for cursor <= pair.MaxAddr {
		offset := cursor - pair.BaseAddr
		headerEnd, err := utils.SafeAdd(offset, b)
		if err != nil || headerEnd > total {
			return nil, utils.New(utils.KindParseDiverged,
				fmt.Sprintf("builder: incomplete allocator header at 0x%x", cursor))
		}

		chunkSizeWithFlags, err := utils.ReadUint64(src, int64(offset), binary.LittleEndian)
		if err != nil {
			return nil, utils.Wrap(utils.KindParseDiverged,
				fmt.Sprintf("builder: incomplete allocator header at 0x%x", cursor), err)
		}
		size := chunkSizeWithFlags & sizeFlagsMask

		if size == 0 {
			return nil, utils.New(utils.KindParseDiverged,
				fmt.Sprintf("builder: zero-size allocation header at 0x%x", cursor))
		}
		if size < b {
			return nil, utils.New(utils.KindParseDiverged,
				fmt.Sprintf("builder: allocation at 0x%x smaller than block size", cursor))
		}
		if err := utils.ValidateBufferSize(size, utils.MaxDTNByteSize, "builder: allocation size"); err != nil {
			return nil, utils.Wrap(utils.KindParseDiverged,
				fmt.Sprintf("builder: allocation at 0x%x", cursor), err)
		}
		allocEnd, err := utils.SafeAdd(offset, size)
		if err != nil || allocEnd > total {
			return nil, utils.New(utils.KindParseDiverged,
				fmt.Sprintf("builder: allocation at 0x%x runs past dump end", cursor))
		}

		dtn := model.NewDTN(cursor, size)
		g.AddDTN(dtn)

		nbPayloadBlocks := size/b - 1
		for i := uint64(0); i < nbPayloadBlocks; i++ {
			addr := cursor + b + i*b
			childOffset := addr - pair.BaseAddr
			block := pair.Bytes[childOffset : childOffset+b]

			kind, target := classify.Block(block, pair.BaseAddr, pair.MaxAddr)
			if kind == classify.Pointer {
				g.AddChild(model.NewPointer(addr, target, cursor), cursor)
				continue
			}

			value := make([]byte, b)
			copy(value, block)
			g.AddChild(model.NewValue(addr, value, cursor), cursor)
		}

		cursor, err = utils.SafeAdd(cursor, size)
		if err != nil {
			return nil, utils.Wrap(utils.KindParseDiverged, "builder: cursor overflow", err)
		}
	}

	return g, nil
}
