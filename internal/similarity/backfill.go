package similarity

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/google/uuid"
	"golang.org/x/sync/errgroup"

	"github.com/sahithi-mandalapu/feedback-market/internal/claims"
)

const backfillConcurrency = 4

// Backfill indexes every stored claim the index has no entry for. Claims
// created while the embedder or backend was down are picked up here, so
// the index converges on the store at each start. Entries already present
// are not re-embedded.
func Backfill(ctx context.Context, idx Index, store claims.Store, logger *slog.Logger) error {
	all, err := store.All(ctx)
	if err != nil {
		return fmt.Errorf("load claims: %w", err)
	}
	if len(all) == 0 {
		return nil
	}

	ids := make([]uuid.UUID, len(all))
	text := make(map[uuid.UUID]string, len(all))
	for i, c := range all {
		ids[i] = c.ID
		text[c.ID] = c.Text
	}

	missing, err := idx.Missing(ctx, ids)
	if err != nil {
		return fmt.Errorf("reconcile index: %w", err)
	}
	if len(missing) == 0 {
		return nil
	}

	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(backfillConcurrency)

	for _, id := range missing {
		g.Go(func() error {
			if err := idx.Upsert(gctx, id, text[id]); err != nil {
				return fmt.Errorf("index claim %s: %w", id, err)
			}
			return nil
		})
	}

	if err := g.Wait(); err != nil {
		return err
	}

	logger.Info("index backfilled", "claims", len(all), "indexed", len(missing))
	return nil
}
