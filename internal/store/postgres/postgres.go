// Package postgres serves listing fetches and statistics counts from PostgreSQL.
package postgres

import (
	"context"
	"database/sql"
	"embed"
	"errors"
	"fmt"
	"time"

	"github.com/golang-migrate/migrate/v4"
	"github.com/golang-migrate/migrate/v4/database/postgres"
	"github.com/golang-migrate/migrate/v4/source/iofs"
	_ "github.com/lib/pq"

	"github.com/alfredjeanlab/fleet/internal/model"
	"github.com/alfredjeanlab/fleet/internal/query"
	"github.com/alfredjeanlab/fleet/internal/store"
)

//go:embed migrations/*.sql
var migrationsFS embed.FS

// Store is a store.Store over a PostgreSQL database.
type Store struct {
	db *sql.DB
}

var _ store.Store = (*Store)(nil)

// Pool limits applied by New.
const (
	maxOpenConns    = 25
	maxIdleConns    = 5
	connMaxLifetime = 5 * time.Minute
)

// New connects to databaseURL and brings the schema up to date.
func New(databaseURL string) (*Store, error) {
	db, err := sql.Open("postgres", databaseURL)
	if err != nil {
		return nil, fmt.Errorf("open database: %w", err)
	}
	db.SetMaxOpenConns(maxOpenConns)
	db.SetMaxIdleConns(maxIdleConns)
	db.SetConnMaxLifetime(connMaxLifetime)

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := db.PingContext(ctx); err != nil {
		db.Close()
		return nil, fmt.Errorf("ping database: %w", err)
	}
	if err := migrateUp(db); err != nil {
		db.Close()
		return nil, err
	}
	return &Store{db: db}, nil
}

// NewWithDB wraps an open database without running migrations.
func NewWithDB(db *sql.DB) *Store {
	return &Store{db: db}
}

func migrateUp(db *sql.DB) error {
	src, err := iofs.New(migrationsFS, "migrations")
	if err != nil {
		return fmt.Errorf("migration source: %w", err)
	}
	driver, err := postgres.WithInstance(db, &postgres.Config{})
	if err != nil {
		return fmt.Errorf("migration driver: %w", err)
	}
	m, err := migrate.NewWithInstance("iofs", src, "postgres", driver)
	if err != nil {
		return fmt.Errorf("migrator: %w", err)
	}
	if err := m.Up(); err != nil && !errors.Is(err, migrate.ErrNoChange) {
		return fmt.Errorf("apply migrations: %w", err)
	}
	return nil
}

func (s *Store) Close() error { return s.db.Close() }

func (s *Store) Ping(ctx context.Context) error { return s.db.PingContext(ctx) }

func (s *Store) FetchEquipment(ctx context.Context, f query.Fetch) ([]*model.Equipment, int, error) {
	return queryFetchEquipment(ctx, s.db, f)
}

func (s *Store) FetchPMSchedules(ctx context.Context, f query.Fetch) ([]*model.PMSchedule, int, error) {
	return queryFetchPMSchedules(ctx, s.db, f)
}

func (s *Store) FetchWorkorders(ctx context.Context, f query.Fetch) ([]*model.Workorder, int, error) {
	return queryFetchWorkorders(ctx, s.db, f)
}

func (s *Store) Count(ctx context.Context, entity string, where query.Predicate) (int, error) {
	return queryCount(ctx, s.db, entity, where)
}

// ValidatePath checks path against the migrated schema.
func (s *Store) ValidatePath(entity string, path query.Path) error {
	if _, ok := schema[entity]; !ok {
		return fmt.Errorf("unknown entity %q", entity)
	}
	_, err := resolvePath(entity, path)
	return err
}
