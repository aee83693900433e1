package postgres

import (
	"context"
	"database/sql"

	"github.com/groblegark/warmpath/internal/model"
)

// nodeColumns is the column list used for SELECT statements on the nodes table.
const nodeColumns = `id, owner_id, kind, target_user_id, display_name,
	est_company, est_school, est_role, est_location, est_confidence, est_source,
	layer, created_at, updated_at`

// connColumns is the column list used for SELECT statements on the connections table.
const connColumns = `id, owner_id, from_node_id, to_node_id, strength, type,
	is_mutual, is_active, source, shared_group_count, last_interaction_at,
	interaction_count, created_at, updated_at`

// executor is the interface satisfied by both *sql.DB and *sql.Tx.
type executor interface {
	ExecContext(ctx context.Context, query string, args ...any) (sql.Result, error)
	QueryContext(ctx context.Context, query string, args ...any) (*sql.Rows, error)
	QueryRowContext(ctx context.Context, query string, args ...any) *sql.Row
}

func queryListOwners(ctx context.Context, db executor) ([]string, error) {
	rows, err := db.QueryContext(ctx, `SELECT DISTINCT owner_id FROM nodes ORDER BY owner_id`)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []string
	for rows.Next() {
		var id string
		if err := rows.Scan(&id); err != nil {
			return nil, err
		}
		out = append(out, id)
	}
	return out, rows.Err()
}

func queryUpsertNode(ctx context.Context, db executor, n *model.Node) error {
	var company, school, role, location, source sql.NullString
	var confidence sql.NullInt64
	if n.Estimated != nil {
		company = nullString(n.Estimated.Company)
		school = nullString(n.Estimated.School)
		role = nullString(n.Estimated.Role)
		location = nullString(n.Estimated.Location)
		source = nullString(string(n.Estimated.Source))
		confidence = sql.NullInt64{Int64: int64(n.Estimated.Confidence), Valid: true}
	}
	_, err := db.ExecContext(ctx, `
		INSERT INTO nodes (
			id, owner_id, kind, target_user_id, display_name,
			est_company, est_school, est_role, est_location, est_confidence, est_source,
			layer, created_at, updated_at
		) VALUES (
			$1, $2, $3, $4, $5,
			$6, $7, $8, $9, $10, $11,
			$12, $13, $14
		)
		ON CONFLICT (id) DO UPDATE SET
			display_name = EXCLUDED.display_name,
			est_company = EXCLUDED.est_company,
			est_school = EXCLUDED.est_school,
			est_role = EXCLUDED.est_role,
			est_location = EXCLUDED.est_location,
			est_confidence = EXCLUDED.est_confidence,
			est_source = EXCLUDED.est_source,
			layer = EXCLUDED.layer,
			updated_at = EXCLUDED.updated_at`,
		n.ID,
		n.OwnerID,
		string(n.Kind),
		nullString(n.TargetUserID),
		n.DisplayName,
		company,
		school,
		role,
		location,
		confidence,
		source,
		n.Layer,
		n.CreatedAt,
		n.UpdatedAt,
	)
	return err
}

func queryGetNode(ctx context.Context, db executor, id string) (*model.Node, error) {
	row := db.QueryRowContext(ctx, `SELECT `+nodeColumns+` FROM nodes WHERE id = $1`, id)
	return scanNode(row)
}

func queryListNodes(ctx context.Context, db executor, ownerID string) ([]*model.Node, error) {
	rows, err := db.QueryContext(ctx,
		`SELECT `+nodeColumns+` FROM nodes WHERE owner_id = $1 ORDER BY id`, ownerID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	return scanNodes(rows)
}

func queryCreateConnection(ctx context.Context, db executor, c *model.Connection) error {
	var source sql.NullString
	var lastInteraction sql.NullTime
	var sharedGroups, interactions int
	if c.Context != nil {
		source = nullString(string(c.Context.Source))
		lastInteraction = nullTimePtr(c.Context.LastInteractionAt)
		sharedGroups = c.Context.SharedGroupCount
		interactions = c.Context.InteractionCount
	}
	_, err := db.ExecContext(ctx, `
		INSERT INTO connections (
			id, owner_id, from_node_id, to_node_id, strength, type,
			is_mutual, is_active, source, shared_group_count, last_interaction_at,
			interaction_count, created_at, updated_at
		) VALUES (
			$1, $2, $3, $4, $5, $6,
			$7, $8, $9, $10, $11,
			$12, $13, $14
		)`,
		c.ID,
		c.OwnerID,
		c.FromNodeID,
		c.ToNodeID,
		c.Strength,
		string(c.Type),
		c.IsMutual,
		c.IsActive,
		source,
		sharedGroups,
		lastInteraction,
		interactions,
		c.CreatedAt,
		c.UpdatedAt,
	)
	return err
}

func queryGetConnection(ctx context.Context, db executor, id string) (*model.Connection, error) {
	row := db.QueryRowContext(ctx, `SELECT `+connColumns+` FROM connections WHERE id = $1`, id)
	return scanConnection(row)
}

func queryListConnections(ctx context.Context, db executor, ownerID string) ([]*model.Connection, error) {
	rows, err := db.QueryContext(ctx,
		`SELECT `+connColumns+` FROM connections WHERE owner_id = $1 ORDER BY id`, ownerID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	return scanConnections(rows)
}

func queryUpdateConnectionStrength(ctx context.Context, db executor, id string, strength int) error {
	res, err := db.ExecContext(ctx,
		`UPDATE connections SET strength = $2, updated_at = NOW() WHERE id = $1`,
		id, strength)
	if err != nil {
		return err
	}
	return requireRow(res)
}

func queryDeactivateConnection(ctx context.Context, db executor, id string) error {
	res, err := db.ExecContext(ctx,
		`UPDATE connections SET is_active = FALSE, updated_at = NOW() WHERE id = $1`, id)
	if err != nil {
		return err
	}
	return requireRow(res)
}

func queryReplaceNetwork(ctx context.Context, db executor, ownerID string, nodes []*model.Node, conns []*model.Connection) error {
	if _, err := db.ExecContext(ctx, `DELETE FROM connections WHERE owner_id = $1`, ownerID); err != nil {
		return err
	}
	if _, err := db.ExecContext(ctx, `DELETE FROM nodes WHERE owner_id = $1`, ownerID); err != nil {
		return err
	}
	for _, n := range nodes {
		if err := queryUpsertNode(ctx, db, n); err != nil {
			return err
		}
	}
	for _, c := range conns {
		if err := queryCreateConnection(ctx, db, c); err != nil {
			return err
		}
	}
	return nil
}

func queryNetworkStats(ctx context.Context, db executor, ownerID string) (*model.NetworkStats, error) {
	var stats model.NetworkStats
	err := db.QueryRowContext(ctx, `
		SELECT
			(SELECT COUNT(*) FROM nodes WHERE owner_id = $1),
			(SELECT COUNT(*) FROM nodes WHERE owner_id = $1 AND kind = 'user'),
			(SELECT COUNT(*) FROM nodes WHERE owner_id = $1 AND kind = 'contact'),
			(SELECT COUNT(*) FROM connections WHERE owner_id = $1),
			(SELECT COUNT(*) FROM connections WHERE owner_id = $1 AND NOT is_active),
			(SELECT COALESCE(ROUND(AVG(strength)), 0) FROM connections WHERE owner_id = $1 AND is_active)`,
		ownerID,
	).Scan(&stats.TotalNodes, &stats.RegisteredUsers, &stats.ImportedContacts,
		&stats.TotalConnections, &stats.InactiveEdges, &stats.AvgStrength)
	if err != nil {
		return nil, err
	}
	return &stats, nil
}

// requireRow turns a zero-row update into sql.ErrNoRows.
func requireRow(res sql.Result) error {
	n, err := res.RowsAffected()
	if err != nil {
		return err
	}
	if n == 0 {
		return sql.ErrNoRows
	}
	return nil
}
