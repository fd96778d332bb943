// Package heapkey converts raw process heap-memory dumps into graph
// representations and then into fixed-shape feature rows for locating
// cryptographic key material, writing one CSV per shard of the input set.
//
// Architecture
//
// The pipeline decomposes into six core stages, driven per file by
// internal/pipeline and fanned out per shard by internal/shard:
//
//	internal/reader    -> load a (heap.raw, sidecar) pair
//	internal/classify  -> classify an 8-byte block as pointer or value
//	internal/builder   -> walk glibc-style allocator headers into a graph
//	internal/annotate  -> upgrade node kinds from sidecar ground truth
//	internal/embed     -> compute per-chunk ancestor/descendant features
//	internal/shard     -> shard, parallelize, and checkpoint via output files
//
// Ambient concerns (internal/config, internal/logging, internal/discovery,
// internal/csvio) wrap the core the way cmd/heapkey-extract needs them.
package heapkey

import (
	"context"
	"fmt"
	"path/filepath"

	"github.com/scigolib/heapkey/internal/config"
	"github.com/scigolib/heapkey/internal/discovery"
	"github.com/scigolib/heapkey/internal/logging"
	"github.com/scigolib/heapkey/internal/shard"
)

var log = logging.Default().Module("heapkey")

// Run discovers every heap dump under inputPath, shards the result per
// cfg.FilesPerChunk, and writes one CSV per shard into outputDir. Shards
// are processed sequentially; within a shard, files run on a bounded
// worker pool. ctx cancellation is honored at shard boundaries and
// propagated into each shard's worker pool.
func Run(ctx context.Context, inputPath, outputDir string, cfg config.Config) error {
	paths, err := discovery.Find(inputPath)
	if err != nil {
		return fmt.Errorf("heapkey: discovering input: %w", err)
	}
	log.Infof(logging.Fields{"count": len(paths)}, "discovered heap dumps")

	shards := shard.Plan(paths, cfg.FilesPerChunk)
	for idx, shardPaths := range shards {
		select {
		case <-ctx.Done():
			return ctx.Err()
		default:
		}

		outputPath := filepath.Join(outputDir, shard.OutputName(inputPath, idx))
		log.Infof(logging.Fields{"shard": idx, "files": len(shardPaths), "output": outputPath}, "processing shard")

		if err := shard.RunShard(ctx, shardPaths, outputPath, cfg); err != nil {
			return fmt.Errorf("heapkey: shard %d: %w", idx, err)
		}
	}

	return nil
}
