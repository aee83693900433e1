// Package postgres implements the store.Store interface backed by PostgreSQL.
package postgres

import (
	"context"
	"database/sql"
	"embed"
	"fmt"
	"time"

	"github.com/golang-migrate/migrate/v4"
	"github.com/golang-migrate/migrate/v4/database/postgres"
	"github.com/golang-migrate/migrate/v4/source/iofs"
	_ "github.com/lib/pq"

	"github.com/groblegark/warmpath/internal/model"
	"github.com/groblegark/warmpath/internal/store"
)

//go:embed migrations/*.sql
var migrationsFS embed.FS

// PostgresStore implements store.Store backed by a PostgreSQL database.
type PostgresStore struct {
	db *sql.DB
}

// Compile-time check that PostgresStore implements store.Store.
var _ store.Store = (*PostgresStore)(nil)

// New opens a connection to the PostgreSQL database at the given URL,
// configures the connection pool, and runs any pending migrations.
func New(databaseURL string) (*PostgresStore, error) {
	db, err := sql.Open("postgres", databaseURL)
	if err != nil {
		return nil, fmt.Errorf("open database: %w", err)
	}

	db.SetMaxOpenConns(25)
	db.SetMaxIdleConns(5)
	db.SetConnMaxLifetime(5 * time.Minute)

	if err := db.Ping(); err != nil {
		db.Close()
		return nil, fmt.Errorf("ping database: %w", err)
	}

	if err := runMigrations(db); err != nil {
		db.Close()
		return nil, fmt.Errorf("run migrations: %w", err)
	}

	return &PostgresStore{db: db}, nil
}

func runMigrations(db *sql.DB) error {
	sourceDriver, err := iofs.New(migrationsFS, "migrations")
	if err != nil {
		return fmt.Errorf("create migration source: %w", err)
	}

	dbDriver, err := postgres.WithInstance(db, &postgres.Config{})
	if err != nil {
		return fmt.Errorf("create migration db driver: %w", err)
	}

	m, err := migrate.NewWithInstance("iofs", sourceDriver, "postgres", dbDriver)
	if err != nil {
		return fmt.Errorf("create migrator: %w", err)
	}

	if err := m.Up(); err != nil && err != migrate.ErrNoChange {
		return fmt.Errorf("apply migrations: %w", err)
	}

	return nil
}

// Close closes the underlying database connection.
func (s *PostgresStore) Close() error {
	return s.db.Close()
}

func (s *PostgresStore) ListOwners(ctx context.Context) ([]string, error) {
	return queryListOwners(ctx, s.db)
}

// ReplaceNetwork swaps an owner's entire network inside one transaction so
// readers never observe a half-imported snapshot.
func (s *PostgresStore) ReplaceNetwork(ctx context.Context, ownerID string, nodes []*model.Node, conns []*model.Connection) error {
	return s.RunInTransaction(ctx, func(tx store.Store) error {
		return tx.ReplaceNetwork(ctx, ownerID, nodes, conns)
	})
}

func (s *PostgresStore) ListNodes(ctx context.Context, ownerID string) ([]*model.Node, error) {
	return queryListNodes(ctx, s.db, ownerID)
}

func (s *PostgresStore) GetNode(ctx context.Context, id string) (*model.Node, error) {
	return queryGetNode(ctx, s.db, id)
}

func (s *PostgresStore) UpsertNode(ctx context.Context, node *model.Node) error {
	return queryUpsertNode(ctx, s.db, node)
}

func (s *PostgresStore) ListConnections(ctx context.Context, ownerID string) ([]*model.Connection, error) {
	return queryListConnections(ctx, s.db, ownerID)
}

func (s *PostgresStore) GetConnection(ctx context.Context, id string) (*model.Connection, error) {
	return queryGetConnection(ctx, s.db, id)
}

func (s *PostgresStore) CreateConnection(ctx context.Context, conn *model.Connection) error {
	return queryCreateConnection(ctx, s.db, conn)
}

func (s *PostgresStore) UpdateConnectionStrength(ctx context.Context, id string, strength int) error {
	return queryUpdateConnectionStrength(ctx, s.db, id, strength)
}

func (s *PostgresStore) DeactivateConnection(ctx context.Context, id string) error {
	return queryDeactivateConnection(ctx, s.db, id)
}

func (s *PostgresStore) NetworkStats(ctx context.Context, ownerID string) (*model.NetworkStats, error) {
	return queryNetworkStats(ctx, s.db, ownerID)
}

func (s *PostgresStore) CreatePathRequest(ctx context.Context, req *model.PathRequest) error {
	return queryCreatePathRequest(ctx, s.db, req)
}

func (s *PostgresStore) GetPathRequest(ctx context.Context, id string) (*model.PathRequest, error) {
	return queryGetPathRequest(ctx, s.db, id)
}

func (s *PostgresStore) ListPathRequests(ctx context.Context, ownerID string, limit int) ([]*model.PathRequest, error) {
	return queryListPathRequests(ctx, s.db, ownerID, limit)
}

func (s *PostgresStore) UpdatePathRequestStatus(ctx context.Context, id string, status model.RequestStatus, processedAt *time.Time) error {
	return queryUpdatePathRequestStatus(ctx, s.db, id, status, processedAt)
}

func (s *PostgresStore) SavePathResults(ctx context.Context, requestID string, results []*model.PathResult) error {
	return querySavePathResults(ctx, s.db, requestID, results)
}

func (s *PostgresStore) ListPathResults(ctx context.Context, requestID string) ([]*model.PathResult, error) {
	return queryListPathResults(ctx, s.db, requestID)
}

func (s *PostgresStore) CreateFlow(ctx context.Context, flow *model.IntroductionFlow) error {
	return s.RunInTransaction(ctx, func(tx store.Store) error {
		return tx.CreateFlow(ctx, flow)
	})
}

func (s *PostgresStore) GetFlow(ctx context.Context, id string) (*model.IntroductionFlow, error) {
	return queryGetFlow(ctx, s.db, id)
}

func (s *PostgresStore) ListFlowsByUser(ctx context.Context, userID string) ([]*model.IntroductionFlow, error) {
	return queryListFlowsByUser(ctx, s.db, userID)
}

func (s *PostgresStore) MarkStepDispatched(ctx context.Context, flowID string, stepNumber int, req model.StepRequest) error {
	return s.RunInTransaction(ctx, func(tx store.Store) error {
		return tx.MarkStepDispatched(ctx, flowID, stepNumber, req)
	})
}

func (s *PostgresStore) RecordStepResponse(ctx context.Context, flowID string, stepNumber int, resp model.StepResponse) error {
	return queryRecordStepResponse(ctx, s.db, flowID, stepNumber, resp)
}

func (s *PostgresStore) UpdateFlowStatus(ctx context.Context, flowID string, from []model.FlowStatus, to model.FlowStatus) error {
	return queryUpdateFlowStatus(ctx, s.db, flowID, from, to)
}

func (s *PostgresStore) SetFlowCompletion(ctx context.Context, flowID string, info model.CompletionInfo) error {
	return querySetFlowCompletion(ctx, s.db, flowID, info)
}

func (s *PostgresStore) ExpireFlows(ctx context.Context, now time.Time) ([]*model.IntroductionFlow, error) {
	return queryExpireFlows(ctx, s.db, now)
}

func (s *PostgresStore) ListReminderSteps(ctx context.Context, now time.Time, window time.Duration) ([]*store.ReminderStep, error) {
	return queryListReminderSteps(ctx, s.db, now, window)
}

func (s *PostgresStore) MarkReminderSent(ctx context.Context, flowID string, stepNumber int) error {
	return queryMarkReminderSent(ctx, s.db, flowID, stepNumber)
}

// RunInTransaction begins a database transaction, creates a txStore that
// delegates to it, calls fn, and commits on success or rolls back on error.
func (s *PostgresStore) RunInTransaction(ctx context.Context, fn func(tx store.Store) error) error {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("begin transaction: %w", err)
	}

	txS := &txStore{tx: tx}
	if err := fn(txS); err != nil {
		_ = tx.Rollback()
		return err
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("commit transaction: %w", err)
	}
	return nil
}

// txStore implements store.Store using a *sql.Tx.
type txStore struct {
	tx *sql.Tx
}

// Compile-time check that txStore implements store.Store.
var _ store.Store = (*txStore)(nil)

func (s *txStore) ListOwners(ctx context.Context) ([]string, error) {
	return queryListOwners(ctx, s.tx)
}

func (s *txStore) ReplaceNetwork(ctx context.Context, ownerID string, nodes []*model.Node, conns []*model.Connection) error {
	return queryReplaceNetwork(ctx, s.tx, ownerID, nodes, conns)
}

func (s *txStore) ListNodes(ctx context.Context, ownerID string) ([]*model.Node, error) {
	return queryListNodes(ctx, s.tx, ownerID)
}

func (s *txStore) GetNode(ctx context.Context, id string) (*model.Node, error) {
	return queryGetNode(ctx, s.tx, id)
}

func (s *txStore) UpsertNode(ctx context.Context, node *model.Node) error {
	return queryUpsertNode(ctx, s.tx, node)
}

func (s *txStore) ListConnections(ctx context.Context, ownerID string) ([]*model.Connection, error) {
	return queryListConnections(ctx, s.tx, ownerID)
}

func (s *txStore) GetConnection(ctx context.Context, id string) (*model.Connection, error) {
	return queryGetConnection(ctx, s.tx, id)
}

func (s *txStore) CreateConnection(ctx context.Context, conn *model.Connection) error {
	return queryCreateConnection(ctx, s.tx, conn)
}

func (s *txStore) UpdateConnectionStrength(ctx context.Context, id string, strength int) error {
	return queryUpdateConnectionStrength(ctx, s.tx, id, strength)
}

func (s *txStore) DeactivateConnection(ctx context.Context, id string) error {
	return queryDeactivateConnection(ctx, s.tx, id)
}

func (s *txStore) NetworkStats(ctx context.Context, ownerID string) (*model.NetworkStats, error) {
	return queryNetworkStats(ctx, s.tx, ownerID)
}

func (s *txStore) CreatePathRequest(ctx context.Context, req *model.PathRequest) error {
	return queryCreatePathRequest(ctx, s.tx, req)
}

func (s *txStore) GetPathRequest(ctx context.Context, id string) (*model.PathRequest, error) {
	return queryGetPathRequest(ctx, s.tx, id)
}

func (s *txStore) ListPathRequests(ctx context.Context, ownerID string, limit int) ([]*model.PathRequest, error) {
	return queryListPathRequests(ctx, s.tx, ownerID, limit)
}

func (s *txStore) UpdatePathRequestStatus(ctx context.Context, id string, status model.RequestStatus, processedAt *time.Time) error {
	return queryUpdatePathRequestStatus(ctx, s.tx, id, status, processedAt)
}

func (s *txStore) SavePathResults(ctx context.Context, requestID string, results []*model.PathResult) error {
	return querySavePathResults(ctx, s.tx, requestID, results)
}

func (s *txStore) ListPathResults(ctx context.Context, requestID string) ([]*model.PathResult, error) {
	return queryListPathResults(ctx, s.tx, requestID)
}

func (s *txStore) CreateFlow(ctx context.Context, flow *model.IntroductionFlow) error {
	return queryCreateFlow(ctx, s.tx, flow)
}

func (s *txStore) GetFlow(ctx context.Context, id string) (*model.IntroductionFlow, error) {
	return queryGetFlow(ctx, s.tx, id)
}

func (s *txStore) ListFlowsByUser(ctx context.Context, userID string) ([]*model.IntroductionFlow, error) {
	return queryListFlowsByUser(ctx, s.tx, userID)
}

func (s *txStore) MarkStepDispatched(ctx context.Context, flowID string, stepNumber int, req model.StepRequest) error {
	return queryMarkStepDispatched(ctx, s.tx, flowID, stepNumber, req)
}

func (s *txStore) RecordStepResponse(ctx context.Context, flowID string, stepNumber int, resp model.StepResponse) error {
	return queryRecordStepResponse(ctx, s.tx, flowID, stepNumber, resp)
}

func (s *txStore) UpdateFlowStatus(ctx context.Context, flowID string, from []model.FlowStatus, to model.FlowStatus) error {
	return queryUpdateFlowStatus(ctx, s.tx, flowID, from, to)
}

func (s *txStore) SetFlowCompletion(ctx context.Context, flowID string, info model.CompletionInfo) error {
	return querySetFlowCompletion(ctx, s.tx, flowID, info)
}

func (s *txStore) ExpireFlows(ctx context.Context, now time.Time) ([]*model.IntroductionFlow, error) {
	return queryExpireFlows(ctx, s.tx, now)
}

func (s *txStore) ListReminderSteps(ctx context.Context, now time.Time, window time.Duration) ([]*store.ReminderStep, error) {
	return queryListReminderSteps(ctx, s.tx, now, window)
}

func (s *txStore) MarkReminderSent(ctx context.Context, flowID string, stepNumber int) error {
	return queryMarkReminderSent(ctx, s.tx, flowID, stepNumber)
}

// RunInTransaction on a txStore reuses the already-open transaction; nested
// transactions are not supported.
func (s *txStore) RunInTransaction(ctx context.Context, fn func(tx store.Store) error) error {
	return fn(s)
}

// Close is a no-op on a txStore; the owning PostgresStore manages the
// connection.
func (s *txStore) Close() error {
	return nil
}
