// Package config loads the HEAPKEY_* environment variables into a validated
// Config, with a functional-options override for programmatic callers. This
// mirrors the functional-options idiom this codebase already uses for its
// writer configuration, applied here to environment-driven defaults instead
// of file-format defaults.
package config

import (
	"fmt"
	"os"
	"runtime"
	"strconv"
	"strings"

	"github.com/scigolib/heapkey/internal/logging"
)

// AnnotationLocation selects where the special-struct pass records its
// upgrade: on the containing DTN (the default, described in the annotator's
// design) or on the anchor node itself, leaving the DTN's type untouched.
type AnnotationLocation int

const (
	// AnnotateOnDtn upgrades the enclosing DTN's dtn_type. This is the
	// behavior described for the special-struct pass.
	AnnotateOnDtn AnnotationLocation = iota
	// AnnotateOnNode records the annotation tag against the anchor address
	// only, without upgrading the DTN's dtn_type.
	AnnotateOnNode
)

func (a AnnotationLocation) String() string {
	if a == AnnotateOnNode {
		return "node"
	}
	return "dtn"
}

// ParseAnnotationLocation parses "dtn" (default) or "node", case-insensitive.
func ParseAnnotationLocation(s string) (AnnotationLocation, error) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "", "dtn":
		return AnnotateOnDtn, nil
	case "node":
		return AnnotateOnNode, nil
	default:
		return AnnotateOnDtn, fmt.Errorf("config: unknown annotation location %q", s)
	}
}

// EntropyMode selects the polarity of the entropy filter.
type EntropyMode int

const (
	// EntropyOff disables the filter; every row is emitted.
	EntropyOff EntropyMode = iota
	// EntropyMin skips rows whose Shannon entropy is below the threshold.
	EntropyMin
	// EntropyMax skips rows whose Shannon entropy is above the threshold.
	EntropyMax
)

// EntropyFilter is the config-driven {Off, MinShannonEntropy(f), MaxShannonEntropy(f)}
// enumeration from the embedder's filtering rules.
type EntropyFilter struct {
	Mode      EntropyMode
	Threshold float64
}

// Allows reports whether a block with the given Shannon entropy should be
// emitted under this filter.
func (f EntropyFilter) Allows(entropy float64) bool {
	switch f.Mode {
	case EntropyMin:
		return entropy >= f.Threshold
	case EntropyMax:
		return entropy <= f.Threshold
	default:
		return true
	}
}

// ParseEntropyFilter parses "", "off", "min:<float>" or "max:<float>".
func ParseEntropyFilter(s string) (EntropyFilter, error) {
	s = strings.TrimSpace(s)
	if s == "" || strings.EqualFold(s, "off") {
		return EntropyFilter{Mode: EntropyOff}, nil
	}

	lower := strings.ToLower(s)
	switch {
	case strings.HasPrefix(lower, "min:"):
		v, err := strconv.ParseFloat(s[len("min:"):], 64)
		if err != nil {
			return EntropyFilter{}, fmt.Errorf("config: invalid entropy filter %q: %w", s, err)
		}
		return EntropyFilter{Mode: EntropyMin, Threshold: v}, nil
	case strings.HasPrefix(lower, "max:"):
		v, err := strconv.ParseFloat(s[len("max:"):], 64)
		if err != nil {
			return EntropyFilter{}, fmt.Errorf("config: invalid entropy filter %q: %w", s, err)
		}
		return EntropyFilter{Mode: EntropyMax, Threshold: v}, nil
	default:
		return EntropyFilter{}, fmt.Errorf("config: unrecognized entropy filter %q", s)
	}
}

// Config holds every tunable named in the external interfaces section.
type Config struct {
	BlockByteSize            uint64
	EmbeddingDepth           int
	FilesPerChunk            int
	CompressPointerChains    bool
	RemoveTrivialZeroSamples bool
	AnnotationLocation       AnnotationLocation
	Entropy                  EntropyFilter
	LogLevel                 logging.Level
	WorkerCount              int
}

// Default returns the configuration used when neither an environment
// variable nor an Option overrides a field.
func Default() Config {
	return Config{
		BlockByteSize:            8,
		EmbeddingDepth:           1,
		FilesPerChunk:            32,
		CompressPointerChains:    false,
		RemoveTrivialZeroSamples: false,
		AnnotationLocation:       AnnotateOnDtn,
		Entropy:                  EntropyFilter{Mode: EntropyOff},
		LogLevel:                 logging.Info,
		WorkerCount:              runtime.GOMAXPROCS(0),
	}
}

// Option overrides a single Config field. Options are applied after
// environment variables, so they always take precedence.
type Option func(*Config)

// WithBlockByteSize overrides the block width B.
func WithBlockByteSize(b uint64) Option { return func(c *Config) { c.BlockByteSize = b } }

// WithEmbeddingDepth overrides the ancestor/descendant walk radius D.
func WithEmbeddingDepth(d int) Option { return func(c *Config) { c.EmbeddingDepth = d } }

// WithFilesPerChunk overrides the shard width.
func WithFilesPerChunk(n int) Option { return func(c *Config) { c.FilesPerChunk = n } }

// WithCompressPointerChains overrides the reserved pointer-chain-folding flag.
func WithCompressPointerChains(b bool) Option {
	return func(c *Config) { c.CompressPointerChains = b }
}

// WithRemoveTrivialZeroSamples overrides the all-zero-row filter.
func WithRemoveTrivialZeroSamples(b bool) Option {
	return func(c *Config) { c.RemoveTrivialZeroSamples = b }
}

// WithAnnotationLocation overrides where special-struct annotations land.
func WithAnnotationLocation(loc AnnotationLocation) Option {
	return func(c *Config) { c.AnnotationLocation = loc }
}

// WithEntropyFilter overrides the Shannon-entropy row filter.
func WithEntropyFilter(f EntropyFilter) Option { return func(c *Config) { c.Entropy = f } }

// WithLogLevel overrides the minimum log severity.
func WithLogLevel(l logging.Level) Option { return func(c *Config) { c.LogLevel = l } }

// WithWorkerCount overrides the per-shard worker-pool width.
func WithWorkerCount(n int) Option { return func(c *Config) { c.WorkerCount = n } }

// Load builds a Config from HEAPKEY_* environment variables, then applies
// opts on top. Malformed environment values are reported as an error rather
// than silently ignored, since a bad config value should fail the run, not
// silently fall back to the default. HEAPKEY_LOG_LEVEL is the exception: it
// goes through logging.ParseLevel, which maps an unrecognized level to Info.
func Load(opts ...Option) (Config, error) {
	cfg := Default()

	if v, ok := os.LookupEnv("HEAPKEY_BLOCK_BYTE_SIZE"); ok {
		n, err := strconv.ParseUint(v, 10, 64)
		if err != nil {
			return Config{}, fmt.Errorf("config: HEAPKEY_BLOCK_BYTE_SIZE: %w", err)
		}
		cfg.BlockByteSize = n
	}

	if v, ok := os.LookupEnv("HEAPKEY_EMBEDDING_DEPTH"); ok {
		n, err := strconv.Atoi(v)
		if err != nil {
			return Config{}, fmt.Errorf("config: HEAPKEY_EMBEDDING_DEPTH: %w", err)
		}
		cfg.EmbeddingDepth = n
	}

	if v, ok := os.LookupEnv("HEAPKEY_FILES_PER_CHUNK"); ok {
		n, err := strconv.Atoi(v)
		if err != nil {
			return Config{}, fmt.Errorf("config: HEAPKEY_FILES_PER_CHUNK: %w", err)
		}
		cfg.FilesPerChunk = n
	}

	if v, ok := os.LookupEnv("HEAPKEY_COMPRESS_POINTER_CHAINS"); ok {
		b, err := strconv.ParseBool(v)
		if err != nil {
			return Config{}, fmt.Errorf("config: HEAPKEY_COMPRESS_POINTER_CHAINS: %w", err)
		}
		cfg.CompressPointerChains = b
	}

	if v, ok := os.LookupEnv("HEAPKEY_REMOVE_TRIVIAL_ZERO_SAMPLES"); ok {
		b, err := strconv.ParseBool(v)
		if err != nil {
			return Config{}, fmt.Errorf("config: HEAPKEY_REMOVE_TRIVIAL_ZERO_SAMPLES: %w", err)
		}
		cfg.RemoveTrivialZeroSamples = b
	}

	if v, ok := os.LookupEnv("HEAPKEY_ANNOTATION_LOCATION"); ok {
		loc, err := ParseAnnotationLocation(v)
		if err != nil {
			return Config{}, err
		}
		cfg.AnnotationLocation = loc
	}

	if v, ok := os.LookupEnv("HEAPKEY_ENTROPY_FILTER"); ok {
		f, err := ParseEntropyFilter(v)
		if err != nil {
			return Config{}, err
		}
		cfg.Entropy = f
	}

	if v, ok := os.LookupEnv("HEAPKEY_LOG_LEVEL"); ok {
		cfg.LogLevel = logging.ParseLevel(v)
	}

	if v, ok := os.LookupEnv("HEAPKEY_WORKER_COUNT"); ok {
		n, err := strconv.Atoi(v)
		if err != nil {
			return Config{}, fmt.Errorf("config: HEAPKEY_WORKER_COUNT: %w", err)
		}
		cfg.WorkerCount = n
	}

	for _, opt := range opts {
		opt(&cfg)
	}

	if err := cfg.Validate(); err != nil {
		return Config{}, err
	}
	return cfg, nil
}

// Validate checks invariants that the pipeline assumes hold for the
// lifetime of a run.
func (c Config) Validate() error {
	if c.BlockByteSize == 0 {
		return fmt.Errorf("config: block byte size must be > 0")
	}
	if c.EmbeddingDepth < 0 {
		return fmt.Errorf("config: embedding depth must be >= 0")
	}
	if c.FilesPerChunk <= 0 {
		return fmt.Errorf("config: files per chunk must be > 0")
	}
	if c.WorkerCount <= 0 {
		return fmt.Errorf("config: worker count must be > 0")
	}
	return nil
}
