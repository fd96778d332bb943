// Command heapkey-extract converts a directory (or single file) of heap
// dumps into per-shard CSV feature files, honoring HEAPKEY_* environment
// variables with command-line overrides.
package main

import (
	"context"
	"flag"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/scigolib/heapkey"
	"github.com/scigolib/heapkey/internal/config"
	"github.com/scigolib/heapkey/internal/logging"
)

func main() {
	var (
		outputDir      = flag.String("output", ".", "directory to write shard CSV files into")
		blockByteSize  = flag.Uint64("block-byte-size", 0, "override HEAPKEY_BLOCK_BYTE_SIZE")
		embeddingDepth = flag.Int("embedding-depth", 0, "override HEAPKEY_EMBEDDING_DEPTH")
		filesPerChunk  = flag.Int("files-per-chunk", 0, "override HEAPKEY_FILES_PER_CHUNK")
		workerCount    = flag.Int("worker-count", 0, "override HEAPKEY_WORKER_COUNT")
		removeZero     = flag.Bool("remove-trivial-zero-samples", false, "override HEAPKEY_REMOVE_TRIVIAL_ZERO_SAMPLES")
		logLevel       = flag.String("log-level", "", "override HEAPKEY_LOG_LEVEL")
	)
	flag.Parse()

	args := flag.Args()
	if len(args) < 1 {
		fmt.Println("Usage: heapkey-extract [flags] <input-path>")
		fmt.Println("Flags:")
		flag.PrintDefaults()
		os.Exit(2)
	}
	inputPath := args[0]

	var opts []config.Option
	if *blockByteSize != 0 {
		opts = append(opts, config.WithBlockByteSize(*blockByteSize))
	}
	if *embeddingDepth != 0 {
		opts = append(opts, config.WithEmbeddingDepth(*embeddingDepth))
	}
	if *filesPerChunk != 0 {
		opts = append(opts, config.WithFilesPerChunk(*filesPerChunk))
	}
	if *workerCount != 0 {
		opts = append(opts, config.WithWorkerCount(*workerCount))
	}
	if *removeZero {
		opts = append(opts, config.WithRemoveTrivialZeroSamples(true))
	}
	if *logLevel != "" {
		opts = append(opts, config.WithLogLevel(logging.ParseLevel(*logLevel)))
	}

	cfg, err := config.Load(opts...)
	if err != nil {
		fmt.Fprintf(os.Stderr, "heapkey-extract: configuration error: %v\n", err)
		os.Exit(1)
	}
	logging.SetDefault(logging.New(os.Stderr, cfg.LogLevel))

	if err := os.MkdirAll(*outputDir, 0o755); err != nil {
		fmt.Fprintf(os.Stderr, "heapkey-extract: creating output directory: %v\n", err)
		os.Exit(1)
	}

	ctx, cancel := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer cancel()

	if err := heapkey.Run(ctx, inputPath, *outputDir, cfg); err != nil {
		fmt.Fprintf(os.Stderr, "heapkey-extract: %v\n", err)
		os.Exit(1)
	}
}
