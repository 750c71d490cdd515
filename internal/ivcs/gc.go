package ivcs

import (
	"context"
	"fmt"
)

// GCResult summarizes a garbage collection run.
type GCResult struct {
	Examined int
	Deleted  []string
}

// CollectGarbage deletes stored blobs that no version references. It must not
// run concurrently with commits, whose blobs are stored before their version
// row exists.
func (s *IVCSService) CollectGarbage(ctx context.Context) (*GCResult, error) {
	referenced, err := s.database.FindReferencedContentKeys()
	if err != nil {
		return nil, fmt.Errorf("listing referenced content: %w", err)
	}
	live := make(map[string]bool, len(referenced))
	for _, k := range referenced {
		live[k] = true
	}

	keys, err := s.store.Keys(ctx)
	if err != nil {
		return nil, fmt.Errorf("listing stored content: %w", err)
	}

	result := &GCResult{Examined: len(keys)}
	for _, key := range keys {
		if live[key] {
			continue
		}
		if err := ctx.Err(); err != nil {
			return result, err
		}
		if err := s.store.Delete(ctx, key); err != nil {
			return result, fmt.Errorf("deleting %s: %w", key, err)
		}
		s.logger.Debug("blob collected", "key", key)
		result.Deleted = append(result.Deleted, key)
	}

	s.logger.Info("garbage collection complete", "examined", result.Examined, "deleted", len(result.Deleted))
	return result, nil
}
