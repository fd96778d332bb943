// Package shard implements the chunk runner (C6): it partitions a file
// list into shards, drives the pipeline over each shard's files on a
// bounded worker pool, and writes one CSV per shard behind an idempotence
// gate keyed on the output file's existence.
package shard

import (
	"context"
	"fmt"
	"os"
	"strings"

	"github.com/scigolib/heapkey/internal/config"
	"github.com/scigolib/heapkey/internal/csvio"
	"github.com/scigolib/heapkey/internal/embed"
	"github.com/scigolib/heapkey/internal/logging"
	"github.com/scigolib/heapkey/internal/pipeline"
)

var log = logging.Default().Module("shard")

// Plan partitions paths into shards of at most filesPerChunk files,
// preserving input order.
func Plan(paths []string, filesPerChunk int) [][]string {
	if filesPerChunk <= 0 {
		filesPerChunk = len(paths)
	}

	var shards [][]string
	for i := 0; i < len(paths); i += filesPerChunk {
		end := i + filesPerChunk
		if end > len(paths) {
			end = len(paths)
		}
		shards = append(shards, paths[i:end])
	}
	return shards
}

// OutputName computes the deterministic per-shard CSV name:
// "{dir_tail}_chunck_idx-{k}_samples.csv", where dir_tail is inputPath
// truncated to its last five path segments with "/" replaced by "_".
func OutputName(inputPath string, shardIdx int) string {
	segments := strings.Split(strings.Trim(inputPath, "/"), "/")
	if len(segments) > 5 {
		segments = segments[len(segments)-5:]
	}
	dirTail := strings.Join(segments, "_")
	return fmt.Sprintf("%s_chunck_idx-%d_samples.csv", dirTail, shardIdx)
}

// fileResult is one worker's output, collected in input order.
type fileResult struct {
	rows []embed.Row
	err  error
}

// RunShard processes one shard's files and writes outputPath, unless
// outputPath already exists (the idempotence gate). Recoverable per-file
// errors degrade to an empty row set with a warning; any other error
// aborts the shard.
func RunShard(ctx context.Context, paths []string, outputPath string, cfg config.Config) error {
	if _, err := os.Stat(outputPath); err == nil {
		log.Infof(logging.Fields{"output": outputPath}, "shard output already exists, skipping")
		return nil
	}

	results := make([]fileResult, len(paths))
	jobs := make(chan int)
	errs := make(chan error, 1)

	workerCount := cfg.WorkerCount
	if workerCount <= 0 {
		workerCount = 1
	}
	if workerCount > len(paths) {
		workerCount = len(paths)
	}
	if workerCount == 0 {
		workerCount = 1
	}

	done := make(chan struct{})
	for w := 0; w < workerCount; w++ {
		go func() {
			for idx := range jobs {
				select {
				case <-ctx.Done():
					results[idx] = fileResult{err: ctx.Err()}
					continue
				default:
				}

				rows, err := pipeline.ProcessFile(paths[idx], cfg)
				if err != nil {
					if pipeline.Recoverable(err) {
						log.Warnf(logging.Fields{"path": paths[idx], "err": err}, "recoverable error, emitting empty output")
						results[idx] = fileResult{}
						continue
					}
					results[idx] = fileResult{err: err}
					select {
					case errs <- err:
					default:
					}
					continue
				}
				results[idx] = fileResult{rows: rows}
			}
			done <- struct{}{}
		}()
	}

	go func() {
		defer close(jobs)
		for i := range paths {
			select {
			case <-ctx.Done():
				return
			case jobs <- i:
			}
		}
	}()

	for w := 0; w < workerCount; w++ {
		<-done
	}

	select {
	case err := <-errs:
		return fmt.Errorf("shard: aborting, file failed non-recoverably: %w", err)
	default:
	}
	if ctx.Err() != nil {
		return ctx.Err()
	}

	writer, err := csvio.Create(outputPath, cfg.EmbeddingDepth)
	if err != nil {
		return err
	}
	for _, r := range results {
		if err := writer.WriteRows(r.rows); err != nil {
			_ = writer.Close()
			return err
		}
	}
	return writer.Close()
}
