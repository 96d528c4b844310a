// Package optimize shrinks a parsed file in place before it is written
// out again.
package optimize

import (
	"compress/zlib"
	"fmt"

	"github.com/wudi/pdfcore/observability"
	"github.com/wudi/pdfcore/parser"
)

type Config struct {
	// Prune drops objects that cannot be reached from the trailer.
	Prune bool
	// Deduplicate merges indirect objects with identical content.
	Deduplicate bool
	// CompressStreams Flate-encodes streams that carry no filter.
	CompressStreams bool
	// Level is the zlib level used by CompressStreams.
	Level  int
	Logger observability.Logger
}

// DefaultConfig enables every pass.
func DefaultConfig() Config {
	return Config{Prune: true, Deduplicate: true, CompressStreams: true, Level: zlib.BestCompression}
}

type Stats struct {
	Merged     int
	Pruned     int
	Compressed int
}

// Optimize runs the enabled passes: deduplication first, since merging
// leaves the duplicates unreachable for pruning.
func Optimize(f *parser.File, cfg Config) (Stats, error) {
	log := cfg.Logger
	if log == nil {
		log = observability.NopLogger{}
	}
	var st Stats
	if cfg.Deduplicate {
		st.Merged = Deduplicate(f)
	}
	if cfg.Prune {
		st.Pruned = Prune(f)
	}
	if cfg.CompressStreams {
		n, err := CompressStreams(f, cfg.Level)
		if err != nil {
			return st, fmt.Errorf("compress streams: %w", err)
		}
		st.Compressed = n
	}
	log.Info("optimized",
		observability.Int("merged", st.Merged),
		observability.Int("pruned", st.Pruned),
		observability.Int("compressed", st.Compressed))
	return st, nil
}
