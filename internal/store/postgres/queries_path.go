package postgres

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/groblegark/warmpath/internal/model"
)

// requestColumns is the column list used for SELECT statements on the
// path_requests table.
const requestColumns = `id, owner_id, query, criteria, config, status,
	processed_at, created_at`

const resultColumns = `id, request_id, path, depth, confidence, path_strength,
	target, rank`

func queryCreatePathRequest(ctx context.Context, db executor, r *model.PathRequest) error {
	criteria, err := json.Marshal(r.Criteria)
	if err != nil {
		return fmt.Errorf("marshal criteria: %w", err)
	}
	config, err := json.Marshal(r.Config)
	if err != nil {
		return fmt.Errorf("marshal config: %w", err)
	}
	_, err = db.ExecContext(ctx, `
		INSERT INTO path_requests (
			id, owner_id, query, criteria, config, status, processed_at, created_at
		) VALUES ($1, $2, $3, $4, $5, $6, $7, $8)`,
		r.ID,
		r.OwnerID,
		r.Query,
		criteria,
		config,
		string(r.Status),
		nullTimePtr(r.ProcessedAt),
		r.CreatedAt,
	)
	return err
}

func queryGetPathRequest(ctx context.Context, db executor, id string) (*model.PathRequest, error) {
	row := db.QueryRowContext(ctx,
		`SELECT `+requestColumns+` FROM path_requests WHERE id = $1`, id)
	r, err := scanPathRequest(row)
	if err != nil {
		return nil, err
	}
	results, err := queryListPathResults(ctx, db, id)
	if err != nil {
		return nil, err
	}
	r.Results = results
	return r, nil
}

func queryListPathRequests(ctx context.Context, db executor, ownerID string, limit int) ([]*model.PathRequest, error) {
	if limit <= 0 {
		limit = 50
	}
	rows, err := db.QueryContext(ctx,
		`SELECT `+requestColumns+` FROM path_requests
		WHERE owner_id = $1 ORDER BY created_at DESC LIMIT $2`,
		ownerID, limit)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []*model.PathRequest
	for rows.Next() {
		r, err := scanPathRequest(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, r)
	}
	return out, rows.Err()
}

func queryUpdatePathRequestStatus(ctx context.Context, db executor, id string, status model.RequestStatus, processedAt *time.Time) error {
	res, err := db.ExecContext(ctx,
		`UPDATE path_requests SET status = $2, processed_at = $3 WHERE id = $1`,
		id, string(status), nullTimePtr(processedAt))
	if err != nil {
		return err
	}
	return requireRow(res)
}

// querySavePathResults replaces the request's result set. Re-running a
// search overwrites rather than appends.
func querySavePathResults(ctx context.Context, db executor, requestID string, results []*model.PathResult) error {
	if _, err := db.ExecContext(ctx,
		`DELETE FROM path_results WHERE request_id = $1`, requestID); err != nil {
		return err
	}
	for _, r := range results {
		path, err := json.Marshal(r.Path)
		if err != nil {
			return fmt.Errorf("marshal path: %w", err)
		}
		target, err := json.Marshal(r.Target)
		if err != nil {
			return fmt.Errorf("marshal target: %w", err)
		}
		_, err = db.ExecContext(ctx, `
			INSERT INTO path_results (
				id, request_id, path, depth, confidence, path_strength, target, rank
			) VALUES ($1, $2, $3, $4, $5, $6, $7, $8)`,
			r.ID, requestID, path, r.Depth, r.Confidence, r.PathStrength, target, r.Rank)
		if err != nil {
			return err
		}
	}
	return nil
}

func queryListPathResults(ctx context.Context, db executor, requestID string) ([]*model.PathResult, error) {
	rows, err := db.QueryContext(ctx,
		`SELECT `+resultColumns+` FROM path_results WHERE request_id = $1 ORDER BY rank`,
		requestID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []*model.PathResult
	for rows.Next() {
		r, err := scanPathResult(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, r)
	}
	return out, rows.Err()
}
