// Package dedup partitions fingerprinted media items into first-seen and
// duplicate, consulting both the current batch and the archive.
package dedup

import (
	"context"
	"fmt"

	"feedmirror/internal/fingerprint"
	"feedmirror/internal/media"
)

// ExistsFunc answers whether a fingerprint has already been archived.
type ExistsFunc func(ctx context.Context, fingerprint string) (bool, error)

// Candidate pairs an admitted item with its computed fingerprint.
type Candidate struct {
	Item        media.Item
	Fingerprint string
}

// Result describes the outcome of partitioning one batch.
type Result struct {
	Admitted       []Candidate
	DuplicateCount int
}

// Partition fingerprints every item and admits each one at most once,
// preserving input order. An item is a duplicate when its fingerprint was
// already seen earlier in the batch or when the archive lookup reports it.
//
// A lookup failure aborts the whole batch: treating it as "not a duplicate"
// would break the dedup guarantee, so the error propagates instead.
func Partition(ctx context.Context, items []media.Item, exists ExistsFunc) (Result, error) {
	seen := make(map[string]struct{}, len(items))
	result := Result{}

	for _, item := range items {
		fp := fingerprint.Compute(item.Payload)
		if _, dup := seen[fp]; dup {
			result.DuplicateCount++
			continue
		}
		archived, err := exists(ctx, fp)
		if err != nil {
			return Result{}, fmt.Errorf("fingerprint existence check: %w", err)
		}
		if archived {
			result.DuplicateCount++
			continue
		}
		seen[fp] = struct{}{}
		result.Admitted = append(result.Admitted, Candidate{Item: item, Fingerprint: fp})
	}
	return result, nil
}
