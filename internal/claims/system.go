package claims

import (
	"context"

	"github.com/google/uuid"

	"github.com/sahithi-mandalapu/feedback-market/internal/reinforce"
	"github.com/sahithi-mandalapu/feedback-market/pkg/pagination"
)

// Store is the claim persistence contract used by the feedback pipeline.
//
// Apply is the only mutation of existing claims. It is atomic and keyed by
// token: applying the same token twice returns the first result with
// Replayed set and changes nothing.
type Store interface {
	Find(ctx context.Context, id uuid.UUID) (*Claim, error)
	FindMany(ctx context.Context, ids []uuid.UUID) ([]Claim, error)
	All(ctx context.Context) ([]Claim, error)
	Apply(ctx context.Context, token string, action reinforce.Action) (*Applied, error)
}

// Indexer makes claims searchable by text.
type Indexer interface {
	Upsert(ctx context.Context, id uuid.UUID, text string) error
}

// System defines the public contract for claim domain operations.
type System interface {
	Store
	Handler(maxBodySize int64) *Handler

	List(
		ctx context.Context,
		page pagination.PageRequest,
		filters Filters,
	) (*pagination.PageResult[Claim], error)

	Create(ctx context.Context, cmd CreateCommand) (*Claim, error)
}
