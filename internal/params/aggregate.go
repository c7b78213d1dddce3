package params

import (
	"context"
	"fmt"

	"go.uber.org/zap"
)

// Aggregate reads every source in priority order (highest first) and returns
// one Set per source, ranked by position. Reader errors abort aggregation.
func Aggregate(ctx context.Context, logger *zap.Logger, sources ...SourceReader) ([]*Set, error) {
	if logger == nil {
		logger = zap.NewNop()
	}

	sets := make([]*Set, 0, len(sources))
	for rank, src := range sources {
		raw, err := src.Read(ctx)
		if err != nil {
			return nil, fmt.Errorf("failed to read %s parameters: %w", src.Name(), err)
		}

		set := NewSet(src.Name(), rank, raw)
		logger.Debug("parameters received", set.Field(), zap.Int("rank", rank))
		sets = append(sets, set)
	}
	return sets, nil
}

// Reports returns the redacted view of every set.
func Reports(sets []*Set) []Report {
	out := make([]Report, 0, len(sets))
	for _, s := range sets {
		out = append(out, s.Report())
	}
	return out
}
