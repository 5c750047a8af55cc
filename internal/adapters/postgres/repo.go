// Package postgres implements the store-of-record repositories on top of a
// pgxpool connection pool. Schema migrations are embedded in the binary and
// applied on startup via golang-migrate.
package postgres

import (
	"context"
	"database/sql"
	"embed"
	"errors"
	"fmt"

	sq "github.com/Masterminds/squirrel"
	"github.com/golang-migrate/migrate/v4"
	migratepg "github.com/golang-migrate/migrate/v4/database/postgres"
	"github.com/golang-migrate/migrate/v4/source/iofs"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
	_ "github.com/jackc/pgx/v5/stdlib"

	"gitlab.com/aventra/api/pulse-content-service/internal/adapters/config"
	"gitlab.com/aventra/api/pulse-content-service/internal/domain"
)

//go:embed migrations/*.sql
var embeddedMigrations embed.FS

// Repo owns the pgxpool and carries the schema prefix. The repository
// interfaces in internal/domain are all implemented on this one receiver.
type Repo struct {
	logger domain.Logger
	pool   *pgxpool.Pool
	schema string
}

// NewRepo applies pending migrations, opens the pool and verifies
// connectivity. The returned cleanup closes the pool.
func NewRepo(ctx context.Context, cfgProvider config.Provider, logger domain.Logger) (*Repo, func(), error) {
	if cfgProvider == nil || logger == nil {
		panic("postgres.NewRepo: config provider and logger are required")
	}
	cfg := cfgProvider.Get().Postgres

	if err := runMigrations(ctx, logger, cfg.DSN); err != nil {
		return nil, nil, fmt.Errorf("migrations: %w", err)
	}

	poolCfg, err := pgxpool.ParseConfig(cfg.DSN)
	if err != nil {
		return nil, nil, fmt.Errorf("parsing postgres dsn: %w", err)
	}
	pool, err := pgxpool.NewWithConfig(ctx, poolCfg)
	if err != nil {
		return nil, nil, fmt.Errorf("opening pgxpool: %w", err)
	}
	if err := pool.Ping(ctx); err != nil {
		pool.Close()
		return nil, nil, fmt.Errorf("pinging postgres: %w", err)
	}
	logger.Info(ctx, "Postgres pool initialized", "schema", cfg.Schema)

	r := &Repo{logger: logger, pool: pool, schema: cfg.Schema}
	cleanup := func() {
		logger.Info(context.Background(), "Closing postgres pool...")
		pool.Close()
	}
	return r, cleanup, nil
}

// Ping reports store-of-record connectivity for the readiness probe.
func (r *Repo) Ping(ctx context.Context) error {
	return r.pool.Ping(ctx)
}

// runMigrations opens a separate database/sql handle through the pgx stdlib
// shim; golang-migrate does not speak the pgx native interface.
func runMigrations(ctx context.Context, logger domain.Logger, dsn string) error {
	sqldb, err := sql.Open("pgx", dsn)
	if err != nil {
		return fmt.Errorf("opening migration connection: %w", err)
	}
	defer sqldb.Close()

	driver, err := migratepg.WithInstance(sqldb, &migratepg.Config{})
	if err != nil {
		return fmt.Errorf("postgres migrate driver: %w", err)
	}
	src, err := iofs.New(embeddedMigrations, "migrations")
	if err != nil {
		return fmt.Errorf("embedded migration source: %w", err)
	}
	m, err := migrate.NewWithInstance("iofs", src, "postgres", driver)
	if err != nil {
		return fmt.Errorf("migrate instance: %w", err)
	}
	defer m.Close()

	if err := m.Up(); err != nil {
		if errors.Is(err, migrate.ErrNoChange) {
			logger.Info(ctx, "No new migrations to apply")
			return nil
		}
		return fmt.Errorf("applying migrations: %w", err)
	}
	logger.Info(ctx, "Migrations applied")
	return nil
}

// Users returns the user repository backed by this pool.
func (r *Repo) Users() domain.UserRepository { return &userRepo{r} }

// Posts returns the post repository backed by this pool.
func (r *Repo) Posts() domain.PostRepository { return &postRepo{r} }

// Comments returns the comment repository backed by this pool.
func (r *Repo) Comments() domain.CommentRepository { return &commentRepo{r} }

type userRepo struct{ *Repo }
type postRepo struct{ *Repo }
type commentRepo struct{ *Repo }

// pgxRow is the scan surface shared by pgx.Row and pgx.Rows.
type pgxRow interface {
	Scan(dest ...any) error
}

// qb returns a squirrel builder with postgres placeholders.
func (r *Repo) qb() sq.StatementBuilderType {
	return sq.StatementBuilder.PlaceholderFormat(sq.Dollar)
}

func (r *Repo) table(name string) string {
	return fmt.Sprintf("%s.%s", r.schema, name)
}

// mapNotFound converts pgx's no-rows sentinel to the domain sentinel so
// callers never import pgx.
func mapNotFound(err error) error {
	if errors.Is(err, pgx.ErrNoRows) {
		return domain.ErrNotFound
	}
	return err
}

func (r *Repo) logSQL(ctx context.Context, op, sqlStr string, args []any) {
	r.logger.Debug(ctx, "Executing SQL", "op", op, "sql", sqlStr, "args", args)
}
