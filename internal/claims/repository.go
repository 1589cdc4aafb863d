package claims

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/sahithi-mandalapu/feedback-market/internal/reinforce"
	"github.com/sahithi-mandalapu/feedback-market/pkg/pagination"
	"github.com/sahithi-mandalapu/feedback-market/pkg/query"
	"github.com/sahithi-mandalapu/feedback-market/pkg/repository"
)

// A reinforcement whose target row is gone violates the claim_applications
// foreign key and reports as a missing claim.
var dbErrors = repository.Errors{
	NotFound:  ErrNotFound,
	Duplicate: ErrDuplicate,
	Missing:   ErrNotFound,
}

type repo struct {
	db         *sql.DB
	engine     *reinforce.Engine
	index      Indexer
	logger     *slog.Logger
	pagination pagination.Config
	now        func() time.Time
}

// New creates a PostgreSQL-backed claim repository implementing System.
// Manually created claims are pushed to index; a nil index skips that step.
func New(
	db *sql.DB,
	engine *reinforce.Engine,
	index Indexer,
	logger *slog.Logger,
	pagination pagination.Config,
) System {
	return &repo{
		db:         db,
		engine:     engine,
		index:      index,
		logger:     logger.With("system", "claims"),
		pagination: pagination,
		now:        time.Now,
	}
}

func (r *repo) Handler(maxBodySize int64) *Handler {
	return NewHandler(r, r.logger, r.pagination, maxBodySize)
}

func (r *repo) List(
	ctx context.Context,
	page pagination.PageRequest,
	filters Filters,
) (*pagination.PageResult[Claim], error) {
	page.Normalize(r.pagination)
	now := r.now()

	qb := query.
		NewBuilder(projection, defaultSort...).
		WhereSearch(page.Search, "Text")

	filters.Apply(qb, r.engine.DecayCutoff(now))

	if len(page.Sort) > 0 {
		qb.OrderByFields(page.Sort)
	}

	result, err := repository.QueryPage(ctx, r.db, qb, page, scanClaim)
	if err != nil {
		return nil, fmt.Errorf("list claims: %w", err)
	}

	r.annotate(result.Data, now)
	return result, nil
}

func (r *repo) Find(ctx context.Context, id uuid.UUID) (*Claim, error) {
	q, args := query.NewBuilder(projection).BuildSingle("ID", id)

	c, err := repository.QueryOne(ctx, r.db, q, args, scanClaim)
	if err != nil {
		return nil, dbErrors.Map(err)
	}

	c.Decaying = r.engine.Decaying(c.LastReinforcedAt, r.now())
	return &c, nil
}

func (r *repo) FindMany(ctx context.Context, ids []uuid.UUID) ([]Claim, error) {
	if len(ids) == 0 {
		return []Claim{}, nil
	}

	values := make([]any, len(ids))
	for i, id := range ids {
		values[i] = id
	}

	q, args := query.NewBuilder(projection).WhereIn("ID", values).Build()
	items, err := repository.QueryMany(ctx, r.db, q, args, scanClaim)
	if err != nil {
		return nil, fmt.Errorf("query claims: %w", err)
	}

	r.annotate(items, r.now())
	return items, nil
}

func (r *repo) All(ctx context.Context) ([]Claim, error) {
	q, args := query.NewBuilder(projection, defaultSort...).Build()
	items, err := repository.QueryMany(ctx, r.db, q, args, scanClaim)
	if err != nil {
		return nil, fmt.Errorf("query claims: %w", err)
	}
	return items, nil
}

func (r *repo) Create(ctx context.Context, cmd CreateCommand) (*Claim, error) {
	cmd = cmd.normalize()
	if strings.TrimSpace(cmd.Text) == "" {
		return nil, ErrInvalidClaim
	}

	sources, err := json.Marshal(cmd.Sources)
	if err != nil {
		return nil, fmt.Errorf("marshal sources: %w", err)
	}
	segments, err := json.Marshal(cmd.Segments)
	if err != nil {
		return nil, fmt.Errorf("marshal segments: %w", err)
	}

	q := `
		INSERT INTO claims (id, text, signal_weight, sources, segments)
		VALUES ($1, $2, $3, $4::jsonb, $5::jsonb)
		` + returning

	args := []any{uuid.New(), cmd.Text, r.engine.Config().InitialWeight, string(sources), string(segments)}

	c, err := repository.QueryOne(ctx, r.db, q, args, scanClaim)
	if err != nil {
		return nil, dbErrors.Map(err)
	}

	r.logger.Info("claim created", "id", c.ID, "signal_weight", c.SignalWeight)
	r.indexClaim(ctx, c)
	return &c, nil
}

// Apply records token in claim_applications before mutating. A conflicting
// token means the action already ran, so the recorded claim is returned
// as-is. Reinforcement is a single UPDATE relative to the stored row, which
// serializes concurrent increments on the row lock.
func (r *repo) Apply(ctx context.Context, token string, action reinforce.Action) (*Applied, error) {
	if token == "" {
		return nil, fmt.Errorf("%w: empty token", ErrInvalidAction)
	}
	if err := validateAction(action); err != nil {
		return nil, err
	}

	applied, err := repository.WithTx(ctx, r.db, func(tx *sql.Tx) (*Applied, error) {
		inserted, err := repository.ExecAffected(
			ctx, tx,
			`INSERT INTO claim_applications (token, kind)
			 VALUES ($1, $2)
			 ON CONFLICT (token) DO NOTHING`,
			token, string(action.Kind),
		)
		if err != nil {
			return nil, fmt.Errorf("record application: %w", err)
		}

		if inserted == 0 {
			return r.replay(ctx, tx, token)
		}

		var c Claim
		switch action.Kind {
		case reinforce.KindCreate:
			c, err = r.insert(ctx, tx, action)
		default:
			c, err = r.reinforce(ctx, tx, action)
		}
		if err != nil {
			return nil, err
		}

		if err := repository.ExecExpectOne(
			ctx, tx,
			"UPDATE claim_applications SET claim_id = $2 WHERE token = $1",
			token, c.ID,
		); err != nil {
			return nil, fmt.Errorf("link application: %w", err)
		}

		return &Applied{Claim: c, Kind: action.Kind}, nil
	})
	if err != nil {
		return nil, dbErrors.Map(err)
	}

	applied.Claim.Decaying = r.engine.Decaying(applied.Claim.LastReinforcedAt, r.now())

	r.logger.Info("claim action applied",
		"token", token,
		"kind", applied.Kind,
		"id", applied.Claim.ID,
		"signal_weight", applied.Claim.SignalWeight,
		"replayed", applied.Replayed,
	)
	return applied, nil
}

func (r *repo) insert(ctx context.Context, tx *sql.Tx, action reinforce.Action) (Claim, error) {
	q := `
		INSERT INTO claims (id, text, signal_weight, sources, segments)
		VALUES (
			$1, $2, $3,
			CASE WHEN $4::text = '' THEN '[]'::jsonb ELSE jsonb_build_array($4::text) END,
			CASE WHEN $5::text = '' THEN '[]'::jsonb ELSE jsonb_build_array($5::text) END
		)
		` + returning

	args := []any{uuid.New(), action.Text, action.InitialWeight, action.Source, action.Segment}

	c, err := repository.QueryOne(ctx, tx, q, args, scanClaim)
	if err != nil {
		return Claim{}, fmt.Errorf("insert claim: %w", err)
	}
	return c, nil
}

func (r *repo) reinforce(ctx context.Context, tx *sql.Tx, action reinforce.Action) (Claim, error) {
	q := `
		UPDATE claims SET
			signal_weight = signal_weight + $2,
			sources = CASE
				WHEN $3::text = '' OR sources @> jsonb_build_array($3::text) THEN sources
				ELSE sources || jsonb_build_array($3::text)
			END,
			segments = CASE
				WHEN $4::text = '' OR segments @> jsonb_build_array($4::text) THEN segments
				ELSE segments || jsonb_build_array($4::text)
			END,
			reinforcement_count = reinforcement_count + 1,
			last_reinforced_at = NOW()
		WHERE id = $1
		` + returning

	args := []any{action.ClaimID, action.WeightDelta, action.Source, action.Segment}

	c, err := repository.QueryOne(ctx, tx, q, args, scanClaim)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return Claim{}, ErrNotFound
		}
		return Claim{}, fmt.Errorf("reinforce claim: %w", err)
	}
	return c, nil
}

func (r *repo) replay(ctx context.Context, tx *sql.Tx, token string) (*Applied, error) {
	var claimID uuid.NullUUID
	var kind string

	err := tx.QueryRowContext(
		ctx,
		"SELECT claim_id, kind FROM claim_applications WHERE token = $1",
		token,
	).Scan(&claimID, &kind)
	if err != nil {
		return nil, fmt.Errorf("read application: %w", err)
	}
	if !claimID.Valid {
		return nil, fmt.Errorf("application %s has no claim", token)
	}

	q, args := query.NewBuilder(projection).BuildSingle("ID", claimID.UUID)
	c, err := repository.QueryOne(ctx, tx, q, args, scanClaim)
	if err != nil {
		return nil, fmt.Errorf("read applied claim: %w", err)
	}

	return &Applied{Claim: c, Kind: reinforce.Kind(kind), Replayed: true}, nil
}

func (r *repo) annotate(items []Claim, now time.Time) {
	for i := range items {
		items[i].Decaying = r.engine.Decaying(items[i].LastReinforcedAt, now)
	}
}

// indexClaim leaves a failed write for the startup backfill to repair.
func (r *repo) indexClaim(ctx context.Context, c Claim) {
	if r.index == nil {
		return
	}
	if err := r.index.Upsert(ctx, c.ID, c.Text); err != nil {
		r.logger.Warn("claim not indexed", "id", c.ID, "error", err)
	}
}
