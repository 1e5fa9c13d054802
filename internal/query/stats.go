package query

import (
	"context"
	"fmt"
	"time"

	"golang.org/x/sync/errgroup"
)

// Bucket is a named count over the identifiers of the filtered candidate set.
type Bucket struct {
	Name  string
	Count func(ctx context.Context, ids []string, now time.Time) (int, error)
}

// Stat is a computed bucket.
type Stat struct {
	Name  string `json:"name"`
	Count int    `json:"count"`
}

// Aggregate runs every bucket concurrently against the same identifier set
// and the same now. Results keep bucket order. An empty id set yields zero
// counts without calling the buckets; any bucket failure fails the whole
// aggregation.
func Aggregate(ctx context.Context, buckets []Bucket, ids []string, now time.Time) ([]Stat, error) {
	stats := make([]Stat, len(buckets))
	for i, b := range buckets {
		stats[i].Name = b.Name
	}
	if len(ids) == 0 {
		return stats, nil
	}

	g, ctx := errgroup.WithContext(ctx)
	for i, b := range buckets {
		g.Go(func() error {
			n, err := b.Count(ctx, ids, now)
			if err != nil {
				return fmt.Errorf("%s: %w", b.Name, err)
			}
			stats[i].Count = n
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return nil, err
	}
	return stats, nil
}
