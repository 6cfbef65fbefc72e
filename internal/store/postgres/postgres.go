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

	"github.com/groblegark/ktasks/internal/model"
	"github.com/groblegark/ktasks/internal/store"
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

func (s *PostgresStore) CreateTask(ctx context.Context, task *model.Task) error {
	return queryCreateTask(ctx, s.db, task)
}

func (s *PostgresStore) GetTask(ctx context.Context, id string) (*model.Task, error) {
	return queryGetTask(ctx, s.db, id)
}

func (s *PostgresStore) UpdateTask(ctx context.Context, task *model.Task) error {
	return queryUpdateTask(ctx, s.db, task)
}

func (s *PostgresStore) DeleteTask(ctx context.Context, id string) error {
	return queryDeleteTask(ctx, s.db, id)
}

func (s *PostgresStore) ListByScopeAndStatus(ctx context.Context, scope string, status model.Status) ([]*model.Task, error) {
	return queryListByScopeAndStatus(ctx, s.db, scope, status)
}

func (s *PostgresStore) ListAllTasks(ctx context.Context) ([]*model.Task, error) {
	return queryListAllTasks(ctx, s.db)
}

func (s *PostgresStore) ListDueRecurring(ctx context.Context, now time.Time) ([]*model.Task, error) {
	return queryListDueRecurring(ctx, s.db, now)
}

func (s *PostgresStore) UpdateTaskPositions(ctx context.Context, updates []store.PositionUpdate) error {
	return queryUpdateTaskPositions(ctx, s.db, updates)
}

func (s *PostgresStore) InsertEdge(ctx context.Context, edge *model.Edge) error {
	return queryInsertEdge(ctx, s.db, edge)
}

func (s *PostgresStore) DeleteEdge(ctx context.Context, taskID, dependsOnID string) error {
	return queryDeleteEdge(ctx, s.db, taskID, dependsOnID)
}

func (s *PostgresStore) ListOutgoingEdges(ctx context.Context, taskID string) ([]*model.Edge, error) {
	return queryListOutgoingEdges(ctx, s.db, taskID)
}

func (s *PostgresStore) ListAllEdges(ctx context.Context) ([]*model.Edge, error) {
	return queryListAllEdges(ctx, s.db)
}

func (s *PostgresStore) RecordEvent(ctx context.Context, event *model.Event) error {
	return queryRecordEvent(ctx, s.db, event)
}

func (s *PostgresStore) ListEvents(ctx context.Context, taskID string) ([]*model.Event, error) {
	return queryListEvents(ctx, s.db, taskID)
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

func (s *txStore) CreateTask(ctx context.Context, task *model.Task) error {
	return queryCreateTask(ctx, s.tx, task)
}

func (s *txStore) GetTask(ctx context.Context, id string) (*model.Task, error) {
	return queryGetTask(ctx, s.tx, id)
}

func (s *txStore) UpdateTask(ctx context.Context, task *model.Task) error {
	return queryUpdateTask(ctx, s.tx, task)
}

func (s *txStore) DeleteTask(ctx context.Context, id string) error {
	return queryDeleteTask(ctx, s.tx, id)
}

func (s *txStore) ListByScopeAndStatus(ctx context.Context, scope string, status model.Status) ([]*model.Task, error) {
	return queryListByScopeAndStatus(ctx, s.tx, scope, status)
}

func (s *txStore) ListAllTasks(ctx context.Context) ([]*model.Task, error) {
	return queryListAllTasks(ctx, s.tx)
}

func (s *txStore) ListDueRecurring(ctx context.Context, now time.Time) ([]*model.Task, error) {
	return queryListDueRecurring(ctx, s.tx, now)
}

func (s *txStore) UpdateTaskPositions(ctx context.Context, updates []store.PositionUpdate) error {
	return queryUpdateTaskPositions(ctx, s.tx, updates)
}

func (s *txStore) InsertEdge(ctx context.Context, edge *model.Edge) error {
	return queryInsertEdge(ctx, s.tx, edge)
}

func (s *txStore) DeleteEdge(ctx context.Context, taskID, dependsOnID string) error {
	return queryDeleteEdge(ctx, s.tx, taskID, dependsOnID)
}

func (s *txStore) ListOutgoingEdges(ctx context.Context, taskID string) ([]*model.Edge, error) {
	return queryListOutgoingEdges(ctx, s.tx, taskID)
}

func (s *txStore) ListAllEdges(ctx context.Context) ([]*model.Edge, error) {
	return queryListAllEdges(ctx, s.tx)
}

func (s *txStore) RecordEvent(ctx context.Context, event *model.Event) error {
	return queryRecordEvent(ctx, s.tx, event)
}

func (s *txStore) ListEvents(ctx context.Context, taskID string) ([]*model.Event, error) {
	return queryListEvents(ctx, s.tx, taskID)
}

// RunInTransaction on a txStore reuses the already-open transaction.
func (s *txStore) RunInTransaction(ctx context.Context, fn func(tx store.Store) error) error {
	return fn(s)
}

func (s *txStore) Close() error {
	return nil
}
