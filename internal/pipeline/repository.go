package pipeline

import (
	"context"
	"database/sql"
	"encoding/json"
	"fmt"

	"github.com/google/uuid"

	"github.com/sahithi-mandalapu/feedback-market/internal/reinforce"
	"github.com/sahithi-mandalapu/feedback-market/pkg/repository"
)

const runColumns = `id, source, text, status, action, claim_id, error, created_at, completed_at`

// PostgresRuns is a RunStore backed by pipeline_runs.
type PostgresRuns struct {
	db *sql.DB
}

// NewPostgresRuns creates a run store backed by db.
func NewPostgresRuns(db *sql.DB) *PostgresRuns {
	return &PostgresRuns{db: db}
}

func (p *PostgresRuns) Start(ctx context.Context, ev Event) (*Run, bool, error) {
	res, err := repository.WithTx(ctx, p.db, func(tx *sql.Tx) (runStart, error) {
		inserted, err := repository.ExecAffected(
			ctx, tx,
			`INSERT INTO pipeline_runs (id, source, text, status, created_at)
			 VALUES ($1, $2, $3, $4, $5)
			 ON CONFLICT (id) DO NOTHING`,
			ev.ID, ev.Source, ev.Text, string(StatusProcessing), ev.ReceivedAt,
		)
		if err != nil {
			return runStart{}, fmt.Errorf("insert run: %w", err)
		}

		run, err := repository.QueryOne(
			ctx, tx,
			"SELECT "+runColumns+" FROM pipeline_runs WHERE id = $1",
			[]any{ev.ID},
			scanRun,
		)
		if err != nil {
			return runStart{}, fmt.Errorf("read run: %w", err)
		}
		return runStart{run: &run, created: inserted > 0}, nil
	})
	if err != nil {
		return nil, false, err
	}
	return res.run, res.created, nil
}

// Restart relies on the status guard in the UPDATE: of two concurrent
// callers only one sees a row affected.
func (p *PostgresRuns) Restart(ctx context.Context, id string) (*Run, bool, error) {
	n, err := repository.ExecAffected(
		ctx, p.db,
		`UPDATE pipeline_runs
		 SET status = $2, error = NULL, completed_at = NULL
		 WHERE id = $1 AND status = $3`,
		id, string(StatusProcessing), string(StatusFailed),
	)
	if err != nil {
		return nil, false, fmt.Errorf("restart run: %w", err)
	}

	run, err := p.Find(ctx, id)
	if err != nil {
		return nil, false, err
	}
	return run, n > 0, nil
}

func (p *PostgresRuns) Complete(ctx context.Context, id string, result Result) error {
	action, err := json.Marshal(result.Action)
	if err != nil {
		return fmt.Errorf("marshal action: %w", err)
	}

	err = repository.ExecExpectOne(
		ctx, p.db,
		`UPDATE pipeline_runs
		 SET status = $2, action = $3::jsonb, claim_id = $4, error = NULL, completed_at = NOW()
		 WHERE id = $1`,
		id, string(StatusCompleted), string(action), result.ClaimID,
	)
	return mapRunError(err)
}

func (p *PostgresRuns) Fail(ctx context.Context, id string, cause error) error {
	err := repository.ExecExpectOne(
		ctx, p.db,
		`UPDATE pipeline_runs
		 SET status = $2, error = $3, completed_at = NOW()
		 WHERE id = $1`,
		id, string(StatusFailed), cause.Error(),
	)
	return mapRunError(err)
}

func (p *PostgresRuns) Find(ctx context.Context, id string) (*Run, error) {
	run, err := repository.QueryOne(
		ctx, p.db,
		"SELECT "+runColumns+" FROM pipeline_runs WHERE id = $1",
		[]any{id},
		scanRun,
	)
	if err != nil {
		return nil, mapRunError(err)
	}
	return &run, nil
}

type runStart struct {
	run     *Run
	created bool
}

func scanRun(s repository.Scanner) (Run, error) {
	var (
		r       Run
		status  string
		action  []byte
		claimID uuid.NullUUID
		errMsg  sql.NullString
		done    sql.NullTime
	)

	err := s.Scan(&r.ID, &r.Source, &r.Text, &status, &action, &claimID, &errMsg, &r.CreatedAt, &done)
	if err != nil {
		return r, err
	}

	r.Status = Status(status)
	if len(action) > 0 {
		var a reinforce.Action
		if err := json.Unmarshal(action, &a); err != nil {
			return r, fmt.Errorf("decode run action: %w", err)
		}
		r.Action = &a
	}
	if claimID.Valid {
		id := claimID.UUID
		r.ClaimID = &id
	}
	if errMsg.Valid {
		r.Error = &errMsg.String
	}
	if done.Valid {
		r.CompletedAt = &done.Time
	}
	return r, nil
}

// Run ids come from the caller and conflicts are resolved in Start, so
// duplicates pass through unchanged.
var runErrors = repository.Errors{NotFound: ErrRunNotFound, Missing: ErrRunNotFound}

func mapRunError(err error) error {
	return runErrors.Map(err)
}
