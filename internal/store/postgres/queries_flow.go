package postgres

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/lib/pq"

	"github.com/groblegark/warmpath/internal/model"
	"github.com/groblegark/warmpath/internal/store"
)

// flowColumns is the column list used for SELECT statements on the
// introduction_flows table.
const flowColumns = `id, path_request_id, requester_id, target_node_id, path,
	current_step, status, completion, expires_at, created_at, updated_at`

const stepColumns = `flow_id, step_number, from_user_id, to_user_id,
	request_message, request_sent_at, request_expires_at,
	response_status, response_message, responded_at,
	reminder_sent, reminder_count`

// activeStatuses are the flow statuses a guarded step update may act on.
var activeStatuses = []string{"draft", "pending", "in_progress"}

func queryCreateFlow(ctx context.Context, db executor, f *model.IntroductionFlow) error {
	path, err := json.Marshal(f.Path)
	if err != nil {
		return fmt.Errorf("marshal path: %w", err)
	}
	_, err = db.ExecContext(ctx, `
		INSERT INTO introduction_flows (
			id, path_request_id, requester_id, target_node_id, path,
			current_step, status, expires_at, created_at, updated_at
		) VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10)`,
		f.ID,
		nullString(f.PathRequestID),
		f.RequesterID,
		nullString(f.TargetNodeID),
		path,
		f.CurrentStep,
		string(f.Status),
		f.ExpiresAt,
		f.CreatedAt,
		f.UpdatedAt,
	)
	if err != nil {
		return err
	}
	for _, s := range f.Steps {
		if err := queryInsertStep(ctx, db, f.ID, s); err != nil {
			return err
		}
	}
	return nil
}

func queryInsertStep(ctx context.Context, db executor, flowID string, s *model.IntroductionStep) error {
	var reqMsg sql.NullString
	var sentAt, expiresAt sql.NullTime
	if s.Request != nil {
		reqMsg = nullString(s.Request.Message)
		sentAt = sql.NullTime{Time: s.Request.SentAt, Valid: true}
		expiresAt = sql.NullTime{Time: s.Request.ExpiresAt, Valid: true}
	}
	_, err := db.ExecContext(ctx, `
		INSERT INTO introduction_steps (
			flow_id, step_number, from_user_id, to_user_id,
			request_message, request_sent_at, request_expires_at,
			reminder_sent, reminder_count
		) VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9)`,
		flowID,
		s.StepNumber,
		s.FromUserID,
		s.ToUserID,
		reqMsg,
		sentAt,
		expiresAt,
		s.ReminderSent,
		s.ReminderCount,
	)
	return err
}

func queryGetFlow(ctx context.Context, db executor, id string) (*model.IntroductionFlow, error) {
	row := db.QueryRowContext(ctx,
		`SELECT `+flowColumns+` FROM introduction_flows WHERE id = $1`, id)
	f, err := scanFlow(row)
	if err != nil {
		return nil, err
	}
	steps, err := queryListSteps(ctx, db, id)
	if err != nil {
		return nil, err
	}
	f.Steps = steps
	return f, nil
}

func queryListSteps(ctx context.Context, db executor, flowID string) ([]*model.IntroductionStep, error) {
	rows, err := db.QueryContext(ctx,
		`SELECT `+stepColumns+` FROM introduction_steps
		WHERE flow_id = $1 ORDER BY step_number`, flowID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []*model.IntroductionStep
	for rows.Next() {
		s, err := scanStep(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, s)
	}
	return out, rows.Err()
}

func queryListFlowsByUser(ctx context.Context, db executor, userID string) ([]*model.IntroductionFlow, error) {
	rows, err := db.QueryContext(ctx,
		`SELECT `+flowColumns+` FROM introduction_flows
		WHERE requester_id = $1 OR path @> to_jsonb($1::text)
		ORDER BY created_at DESC`, userID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []*model.IntroductionFlow
	for rows.Next() {
		f, err := scanFlow(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, f)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}
	for _, f := range out {
		steps, err := queryListSteps(ctx, db, f.ID)
		if err != nil {
			return nil, err
		}
		f.Steps = steps
	}
	return out, nil
}

// queryMarkStepDispatched advances the flow to stepNumber and records the
// request, guarded on the flow still being active. The flow row is the
// guard: if it does not move, the step is not touched.
func queryMarkStepDispatched(ctx context.Context, db executor, flowID string, stepNumber int, req model.StepRequest) error {
	res, err := db.ExecContext(ctx, `
		UPDATE introduction_flows
		SET current_step = $2, status = 'in_progress', updated_at = $3
		WHERE id = $1 AND status = ANY($4)`,
		flowID, stepNumber, req.SentAt, pq.Array(activeStatuses))
	if err != nil {
		return err
	}
	if err := requireGuardedRow(ctx, db, res, flowID); err != nil {
		return err
	}

	res, err = db.ExecContext(ctx, `
		UPDATE introduction_steps
		SET request_message = $3, request_sent_at = $4, request_expires_at = $5
		WHERE flow_id = $1 AND step_number = $2`,
		flowID, stepNumber, req.Message, req.SentAt, req.ExpiresAt)
	if err != nil {
		return err
	}
	return requireRow(res)
}

// queryRecordStepResponse writes a step decision. The guard joins the flow:
// the flow must be in_progress at exactly this step and the step must still
// be unanswered.
func queryRecordStepResponse(ctx context.Context, db executor, flowID string, stepNumber int, resp model.StepResponse) error {
	res, err := db.ExecContext(ctx, `
		UPDATE introduction_steps s
		SET response_status = $3, response_message = $4, responded_at = $5
		FROM introduction_flows f
		WHERE s.flow_id = f.id
		  AND s.flow_id = $1 AND s.step_number = $2
		  AND s.response_status IS NULL
		  AND f.status = 'in_progress' AND f.current_step = $2`,
		flowID, stepNumber, string(resp.Status), nullString(resp.Message), resp.RespondedAt)
	if err != nil {
		return err
	}
	if err := requireGuardedRow(ctx, db, res, flowID); err != nil {
		return err
	}

	_, err = db.ExecContext(ctx,
		`UPDATE introduction_flows SET updated_at = $2 WHERE id = $1`,
		flowID, resp.RespondedAt)
	return err
}

func queryUpdateFlowStatus(ctx context.Context, db executor, flowID string, from []model.FlowStatus, to model.FlowStatus) error {
	fromStrs := make([]string, len(from))
	for i, s := range from {
		fromStrs[i] = string(s)
	}
	res, err := db.ExecContext(ctx, `
		UPDATE introduction_flows
		SET status = $2, updated_at = NOW()
		WHERE id = $1 AND status = ANY($3)`,
		flowID, string(to), pq.Array(fromStrs))
	if err != nil {
		return err
	}
	return requireGuardedRow(ctx, db, res, flowID)
}

func querySetFlowCompletion(ctx context.Context, db executor, flowID string, info model.CompletionInfo) error {
	completion, err := json.Marshal(info)
	if err != nil {
		return fmt.Errorf("marshal completion: %w", err)
	}
	res, err := db.ExecContext(ctx, `
		UPDATE introduction_flows SET completion = $2, updated_at = $3 WHERE id = $1`,
		flowID, completion, info.CompletedAt)
	if err != nil {
		return err
	}
	return requireRow(res)
}

func queryExpireFlows(ctx context.Context, db executor, now time.Time) ([]*model.IntroductionFlow, error) {
	rows, err := db.QueryContext(ctx, `
		UPDATE introduction_flows
		SET status = 'expired', updated_at = $1
		WHERE expires_at < $1
		  AND status NOT IN ('completed', 'failed', 'expired', 'cancelled')
		RETURNING `+flowColumns,
		now)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []*model.IntroductionFlow
	for rows.Next() {
		f, err := scanFlow(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, f)
	}
	return out, rows.Err()
}

func queryListReminderSteps(ctx context.Context, db executor, now time.Time, window time.Duration) ([]*store.ReminderStep, error) {
	deadline := now.Add(window)
	rows, err := db.QueryContext(ctx, `
		SELECT s.flow_id, s.step_number, s.from_user_id, s.to_user_id, s.request_expires_at
		FROM introduction_steps s
		JOIN introduction_flows f ON f.id = s.flow_id
		WHERE f.status = 'in_progress'
		  AND f.current_step = s.step_number
		  AND s.request_sent_at IS NOT NULL
		  AND s.response_status IS NULL
		  AND NOT s.reminder_sent
		  AND s.request_expires_at > $1
		  AND s.request_expires_at <= $2`,
		now, deadline)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []*store.ReminderStep
	for rows.Next() {
		var r store.ReminderStep
		if err := rows.Scan(&r.FlowID, &r.StepNumber, &r.FromUserID, &r.ToUserID, &r.ExpiresAt); err != nil {
			return nil, err
		}
		out = append(out, &r)
	}
	return out, rows.Err()
}

func queryMarkReminderSent(ctx context.Context, db executor, flowID string, stepNumber int) error {
	res, err := db.ExecContext(ctx, `
		UPDATE introduction_steps
		SET reminder_sent = TRUE, reminder_count = reminder_count + 1
		WHERE flow_id = $1 AND step_number = $2 AND NOT reminder_sent`,
		flowID, stepNumber)
	if err != nil {
		return err
	}
	n, err := res.RowsAffected()
	if err != nil {
		return err
	}
	if n == 0 {
		return store.ErrStaleUpdate
	}
	return nil
}

// requireGuardedRow distinguishes a missing flow from a failed guard: the
// former is sql.ErrNoRows, the latter store.ErrStaleUpdate.
func requireGuardedRow(ctx context.Context, db executor, res sql.Result, flowID string) error {
	n, err := res.RowsAffected()
	if err != nil {
		return err
	}
	if n > 0 {
		return nil
	}
	var one int
	err = db.QueryRowContext(ctx,
		`SELECT 1 FROM introduction_flows WHERE id = $1`, flowID).Scan(&one)
	if errors.Is(err, sql.ErrNoRows) {
		return sql.ErrNoRows
	}
	if err != nil {
		return err
	}
	return store.ErrStaleUpdate
}
