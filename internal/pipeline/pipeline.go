// Package pipeline wires the per-file stages C1 through C5 together: load
// the dump and sidecar, build the memory graph, annotate it, and embed
// feature rows. This is the unit of work a shard's worker pool runs once
// per (heap.raw, sidecar) pair.
package pipeline

import (
	"github.com/scigolib/heapkey/internal/annotate"
	"github.com/scigolib/heapkey/internal/builder"
	"github.com/scigolib/heapkey/internal/config"
	"github.com/scigolib/heapkey/internal/embed"
	"github.com/scigolib/heapkey/internal/reader"
	"github.com/scigolib/heapkey/internal/utils"
)

// ProcessFile runs C1-C5 for one heap dump. A recoverable error (missing or
// malformed sidecar) is returned unwrapped so the caller can degrade to an
// empty row set; any other error should abort the enclosing shard.
func ProcessFile(heapPath string, cfg config.Config) ([]embed.Row, error) {
	pair, err := reader.Load(heapPath)
	if err != nil {
		return nil, err
	}

	g, err := builder.Build(pair, builder.Options{
		BlockSize:             cfg.BlockByteSize,
		CompressPointerChains: cfg.CompressPointerChains,
	})
	if err != nil {
		return nil, err
	}

	annotate.Annotate(g, cfg.AnnotationLocation)

	rows := embed.Embed(g, heapPath, cfg.EmbeddingDepth, cfg.RemoveTrivialZeroSamples, cfg.Entropy)
	return rows, nil
}

// Recoverable reports whether err should degrade ProcessFile's result to an
// empty row set for this file, per the error handling design, rather than
// aborting the enclosing shard.
func Recoverable(err error) bool {
	return utils.KindOf(err).Recoverable()
}
