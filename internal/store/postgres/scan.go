package postgres

import (
	"database/sql"
	"encoding/json"
	"fmt"
	"time"

	"github.com/groblegark/warmpath/internal/model"
)

// scannable is the interface satisfied by both *sql.Row and *sql.Rows.
type scannable interface {
	Scan(dest ...any) error
}

// scanNode scans a single row into a model.Node.
// The row must contain columns in the order defined by nodeColumns.
func scanNode(row scannable) (*model.Node, error) {
	var n model.Node
	var (
		targetUserID sql.NullString
		company      sql.NullString
		school       sql.NullString
		role         sql.NullString
		location     sql.NullString
		confidence   sql.NullInt64
		source       sql.NullString
	)

	err := row.Scan(
		&n.ID,
		&n.OwnerID,
		&n.Kind,
		&targetUserID,
		&n.DisplayName,
		&company,
		&school,
		&role,
		&location,
		&confidence,
		&source,
		&n.Layer,
		&n.CreatedAt,
		&n.UpdatedAt,
	)
	if err != nil {
		return nil, err
	}

	n.TargetUserID = targetUserID.String
	if company.Valid || school.Valid || role.Valid || location.Valid || confidence.Valid {
		n.Estimated = &model.EstimatedAttributes{
			Company:    company.String,
			School:     school.String,
			Role:       role.String,
			Location:   location.String,
			Confidence: int(confidence.Int64),
			Source:     model.AttributeSource(source.String),
		}
	}
	return &n, nil
}

// scanNodes scans multiple rows into a slice of model.Node pointers.
func scanNodes(rows *sql.Rows) ([]*model.Node, error) {
	var nodes []*model.Node
	for rows.Next() {
		n, err := scanNode(rows)
		if err != nil {
			return nil, err
		}
		nodes = append(nodes, n)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}
	return nodes, nil
}

// scanConnection scans a single row into a model.Connection.
func scanConnection(row scannable) (*model.Connection, error) {
	var c model.Connection
	var (
		source          sql.NullString
		lastInteraction sql.NullTime
	)

	err := row.Scan(
		&c.ID,
		&c.OwnerID,
		&c.FromNodeID,
		&c.ToNodeID,
		&c.Strength,
		&c.Type,
		&c.IsMutual,
		&c.IsActive,
		&source,
		&c.Context.SharedGroupCount,
		&lastInteraction,
		&c.Context.InteractionCount,
		&c.CreatedAt,
		&c.UpdatedAt,
	)
	if err != nil {
		return nil, err
	}

	c.Context.Source = model.ConnectionSource(source.String)
	if lastInteraction.Valid {
		t := lastInteraction.Time
		c.Context.LastInteractionAt = &t
	}
	return &c, nil
}

// scanConnections scans multiple rows into a slice of model.Connection pointers.
func scanConnections(rows *sql.Rows) ([]*model.Connection, error) {
	var conns []*model.Connection
	for rows.Next() {
		c, err := scanConnection(rows)
		if err != nil {
			return nil, err
		}
		conns = append(conns, c)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}
	return conns, nil
}

// scanPathRequest scans a single row into a model.PathRequest.
func scanPathRequest(row scannable) (*model.PathRequest, error) {
	var r model.PathRequest
	var (
		criteria    []byte
		config      []byte
		processedAt sql.NullTime
	)

	err := row.Scan(
		&r.ID,
		&r.OwnerID,
		&r.Query,
		&criteria,
		&config,
		&r.Status,
		&processedAt,
		&r.CreatedAt,
	)
	if err != nil {
		return nil, err
	}

	if err := json.Unmarshal(criteria, &r.Criteria); err != nil {
		return nil, fmt.Errorf("unmarshal criteria: %w", err)
	}
	if err := json.Unmarshal(config, &r.Config); err != nil {
		return nil, fmt.Errorf("unmarshal config: %w", err)
	}
	if processedAt.Valid {
		t := processedAt.Time
		r.ProcessedAt = &t
	}
	return &r, nil
}

// scanPathResult scans a single row into a model.PathResult.
func scanPathResult(row scannable) (*model.PathResult, error) {
	var r model.PathResult
	var path, target []byte

	err := row.Scan(
		&r.ID,
		&r.RequestID,
		&path,
		&r.Depth,
		&r.Confidence,
		&r.PathStrength,
		&target,
		&r.Rank,
	)
	if err != nil {
		return nil, err
	}

	if err := json.Unmarshal(path, &r.Path); err != nil {
		return nil, fmt.Errorf("unmarshal path: %w", err)
	}
	if err := json.Unmarshal(target, &r.Target); err != nil {
		return nil, fmt.Errorf("unmarshal target: %w", err)
	}
	return &r, nil
}

// scanFlow scans a single row into a model.IntroductionFlow. Steps are
// loaded separately.
func scanFlow(row scannable) (*model.IntroductionFlow, error) {
	var f model.IntroductionFlow
	var (
		pathRequestID sql.NullString
		targetNodeID  sql.NullString
		path          []byte
		completion    []byte
	)

	err := row.Scan(
		&f.ID,
		&pathRequestID,
		&f.RequesterID,
		&targetNodeID,
		&path,
		&f.CurrentStep,
		&f.Status,
		&completion,
		&f.ExpiresAt,
		&f.CreatedAt,
		&f.UpdatedAt,
	)
	if err != nil {
		return nil, err
	}

	f.PathRequestID = pathRequestID.String
	f.TargetNodeID = targetNodeID.String
	if err := json.Unmarshal(path, &f.Path); err != nil {
		return nil, fmt.Errorf("unmarshal path: %w", err)
	}
	if len(completion) > 0 {
		f.Completion = &model.CompletionInfo{}
		if err := json.Unmarshal(completion, f.Completion); err != nil {
			return nil, fmt.Errorf("unmarshal completion: %w", err)
		}
	}
	return &f, nil
}

// scanStep scans a single row into a model.IntroductionStep.
func scanStep(row scannable) (*model.IntroductionStep, error) {
	var s model.IntroductionStep
	var flowID string
	var (
		reqMsg      sql.NullString
		sentAt      sql.NullTime
		expiresAt   sql.NullTime
		respStatus  sql.NullString
		respMsg     sql.NullString
		respondedAt sql.NullTime
	)

	err := row.Scan(
		&flowID,
		&s.StepNumber,
		&s.FromUserID,
		&s.ToUserID,
		&reqMsg,
		&sentAt,
		&expiresAt,
		&respStatus,
		&respMsg,
		&respondedAt,
		&s.ReminderSent,
		&s.ReminderCount,
	)
	if err != nil {
		return nil, err
	}

	if sentAt.Valid {
		s.Request = &model.StepRequest{
			Message:   reqMsg.String,
			SentAt:    sentAt.Time,
			ExpiresAt: expiresAt.Time,
		}
	}
	if respStatus.Valid {
		s.Response = &model.StepResponse{
			Status:      model.ResponseStatus(respStatus.String),
			Message:     respMsg.String,
			RespondedAt: respondedAt.Time,
		}
	}
	return &s, nil
}

// nullTimePtr converts a *time.Time to a sql.NullTime.
func nullTimePtr(t *time.Time) sql.NullTime {
	if t == nil {
		return sql.NullTime{}
	}
	return sql.NullTime{Time: *t, Valid: true}
}

// nullString converts a string to sql.NullString; empty string is null.
func nullString(s string) sql.NullString {
	if s == "" {
		return sql.NullString{}
	}
	return sql.NullString{String: s, Valid: true}
}
