package core

import (
	blobcore "cagecore/internal/blob/core"
	"cagecore/pkg/domain"
	"context"
	"fmt"

	"golang.org/x/sync/errgroup"
)

// cascadeStep is one delete statement of a permanent delete.
type cascadeStep struct {
	Collection domain.Collection
	KeyField   string
}

// cascadeManifest lists the delete statements for a cage of the given type in
// execution order. The cages row always goes last. An Unknown type clears both
// typed collections.
func cascadeManifest(cageType domain.CageType) []cascadeStep {
	var steps []cascadeStep
	switch cageType {
	case domain.CageTypeHolding:
		steps = append(steps, cascadeStep{domain.CollectionHolding, domain.CageKeyField})
	case domain.CageTypeBreeding:
		steps = append(steps, cascadeStep{domain.CollectionBreeding, domain.CageKeyField})
	default:
		steps = append(steps,
			cascadeStep{domain.CollectionHolding, domain.CageKeyField},
			cascadeStep{domain.CollectionBreeding, domain.CageKeyField},
		)
	}
	for _, c := range domain.DependentCollections() {
		steps = append(steps, cascadeStep{c, domain.CageKeyField})
	}
	return append(steps, cascadeStep{domain.CollectionCages, domain.CageKeyField})
}

// runCascade executes the manifest statement by statement and stops at the
// first failure, leaving rollback to the enclosing transaction.
func runCascade(tx domain.Transaction, cageID string, steps []cascadeStep) (map[domain.Collection]int64, error) {
	deleted := make(map[domain.Collection]int64, len(steps))
	for _, step := range steps {
		n, err := tx.DeleteByKey(step.Collection, step.KeyField, cageID)
		if err != nil {
			return nil, fmt.Errorf("cascade %s: %w", step.Collection, err)
		}
		deleted[step.Collection] += n
	}
	return deleted, nil
}

// purgeFiles removes the blobs behind deleted file rows. It runs after commit,
// so failures are logged and counted but never undo the delete.
func (s *Service) purgeFiles(ctx context.Context, cageID string, files []domain.DependentRecord) int {
	if s.blobs == nil || len(files) == 0 {
		return 0
	}
	results := make([]bool, len(files))
	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(s.purgeConcurrency)
	for i, f := range files {
		key, err := blobcore.KeyForFilePath(f.Ref)
		if err != nil {
			s.logger.Warn("skipping cage file", "cage_id", cageID, "file_path", f.Ref, "error", err)
			continue
		}
		g.Go(func() error {
			existed, err := s.blobs.Delete(gctx, key)
			if err != nil {
				s.logger.Warn("cage file purge failed", "cage_id", cageID, "key", key, "error", err)
				return nil
			}
			results[i] = existed
			return nil
		})
	}
	_ = g.Wait()
	purged := 0
	for _, ok := range results {
		if ok {
			purged++
		}
	}
	if purged > 0 {
		s.logger.Info("cage files purged", "cage_id", cageID, "count", purged, "driver", string(s.blobs.Driver()))
	}
	return purged
}
