package db

import (
	"context"
	"database/sql"
	"fmt"

	"github.com/EO-DataHub/eodhp-agent-runner/models"
	"github.com/google/uuid"
)

// RecordRun inserts the audit row for a finished run
func (r *RunDB) RecordRun(ctx context.Context, run *models.AgentRun) error {
	if run.ID == uuid.Nil {
		run.ID = uuid.New()
	}

	_, err := r.DB.ExecContext(ctx, `
		INSERT INTO agent_runs (id, invocation_id, thread_id, run_id, agent_id, status,
			timed_out, warning, error, message_count, started_at, duration_ms)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12)`,
		run.ID, run.InvocationID, run.ThreadID, run.RunID, run.AgentID, run.Status,
		run.TimedOut, nullString(run.Warning), nullString(run.Error), run.MessageCount,
		run.StartedAt, run.DurationMs,
	)
	if err != nil {
		r.Log.Error().Err(err).Str("thread_id", run.ThreadID).Msg("error inserting agent run")
		return fmt.Errorf("error inserting agent run: %w", err)
	}

	return nil
}

// RecentRuns returns the newest runs first
func (r *RunDB) RecentRuns(ctx context.Context, limit int) ([]models.AgentRun, error) {
	rows, err := r.DB.QueryContext(ctx, `
		SELECT id, invocation_id, thread_id, run_id, agent_id, status, timed_out,
			warning, error, message_count, started_at, duration_ms
		FROM agent_runs
		ORDER BY started_at DESC
		LIMIT $1`, limit)
	if err != nil {
		return nil, fmt.Errorf("error querying agent runs: %w", err)
	}
	defer rows.Close()

	var runs []models.AgentRun
	for rows.Next() {
		var run models.AgentRun
		var warning, runErr sql.NullString
		if err := rows.Scan(&run.ID, &run.InvocationID, &run.ThreadID, &run.RunID, &run.AgentID,
			&run.Status, &run.TimedOut, &warning, &runErr, &run.MessageCount, &run.StartedAt,
			&run.DurationMs); err != nil {
			return nil, fmt.Errorf("error scanning agent run: %w", err)
		}
		run.Warning = warning.String
		run.Error = runErr.String
		runs = append(runs, run)
	}

	return runs, rows.Err()
}

func nullString(s string) sql.NullString {
	return sql.NullString{String: s, Valid: s != ""}
}
