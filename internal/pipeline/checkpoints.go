package pipeline

import (
	"context"
	"database/sql"
	"errors"
	"slices"
	"sync"
)

type checkpointKey struct {
	run, step string
}

// MemoryCheckpoints keeps step outputs in process. Outputs are lost on
// restart, so a resubmitted event re-runs every step; apply stays safe
// because it is keyed by the event id.
type MemoryCheckpoints struct {
	mu      sync.Mutex
	outputs map[checkpointKey][]byte
}

// NewMemoryCheckpoints creates an empty in-memory checkpointer.
func NewMemoryCheckpoints() *MemoryCheckpoints {
	return &MemoryCheckpoints{outputs: make(map[checkpointKey][]byte)}
}

func (m *MemoryCheckpoints) Load(_ context.Context, runID, step string) ([]byte, bool, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	out, ok := m.outputs[checkpointKey{runID, step}]
	return slices.Clone(out), ok, nil
}

func (m *MemoryCheckpoints) Save(_ context.Context, runID, step string, output []byte) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.outputs[checkpointKey{runID, step}] = slices.Clone(output)
	return nil
}

// PostgresCheckpoints stores step outputs in pipeline_steps so a run
// resubmitted after a crash resumes after its last completed step.
type PostgresCheckpoints struct {
	db *sql.DB
}

// NewPostgresCheckpoints creates a checkpointer backed by db.
func NewPostgresCheckpoints(db *sql.DB) *PostgresCheckpoints {
	return &PostgresCheckpoints{db: db}
}

func (p *PostgresCheckpoints) Load(ctx context.Context, runID, step string) ([]byte, bool, error) {
	var out []byte
	err := p.db.QueryRowContext(
		ctx,
		"SELECT output FROM pipeline_steps WHERE run_id = $1 AND step = $2",
		runID, step,
	).Scan(&out)

	if errors.Is(err, sql.ErrNoRows) {
		return nil, false, nil
	}
	if err != nil {
		return nil, false, err
	}
	return out, true, nil
}

// Save fails with ErrRunNotFound when runID has no pipeline_runs row.
func (p *PostgresCheckpoints) Save(ctx context.Context, runID, step string, output []byte) error {
	_, err := p.db.ExecContext(
		ctx,
		`INSERT INTO pipeline_steps (run_id, step, output)
		 VALUES ($1, $2, $3::jsonb)
		 ON CONFLICT (run_id, step) DO UPDATE SET
			output = EXCLUDED.output,
			completed_at = NOW()`,
		runID, step, string(output),
	)
	return mapRunError(err)
}
