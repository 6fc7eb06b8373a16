package migrations

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"io/fs"
	"net/url"
	"path/filepath"
	"strings"
	"sync"

	"github.com/golang-migrate/migrate/v4"
	"github.com/golang-migrate/migrate/v4/database"
	"github.com/golang-migrate/migrate/v4/database/postgres"
	_ "github.com/golang-migrate/migrate/v4/source/file"
	"github.com/golang-migrate/migrate/v4/source/iofs"
)

const defaultMigrationsTable = "schema_migrations"

type migrator interface {
	Up() error
	Steps(n int) error
	Version() (version uint, dirty bool, err error)
	Close() (sourceErr error, databaseErr error)
}

var driverFactory = func(db *sql.DB, cfg Config) (database.Driver, error) {
	return postgres.WithInstance(db, &postgres.Config{MigrationsTable: cfg.MigrationsTable})
}

var migratorFactory = func(cfg Config, driver database.Driver) (migrator, error) {
	if cfg.FS != nil {
		src, err := iofs.New(cfg.FS, ".")
		if err != nil {
			return nil, err
		}
		return migrate.NewWithInstance("iofs", src, "postgres", driver)
	}

	sourceURL, err := fileSourceURL(cfg.Dir)
	if err != nil {
		return nil, err
	}
	return migrate.NewWithDatabaseInstance(sourceURL, "postgres", driver)
}

type Logger interface {
	Info(msg string, args ...any)
	Warn(msg string, args ...any)
	Error(msg string, args ...any)
}

// Config selects the migration source: FS when set, otherwise Dir on disk.
type Config struct {
	FS              fs.FS
	Dir             string
	MigrationsTable string
	Logger          Logger
}

type VersionInfo struct {
	Version uint
	Dirty   bool
	// None is true on a database that has never been migrated.
	None bool
}

func (cfg Config) withDefaults() Config {
	if cfg.FS == nil && strings.TrimSpace(cfg.Dir) == "" {
		cfg.Dir = "migrations"
	}
	if strings.TrimSpace(cfg.MigrationsTable) == "" {
		cfg.MigrationsTable = defaultMigrationsTable
	}
	return cfg
}

func (cfg Config) info(msg string, args ...any) {
	if cfg.Logger != nil {
		cfg.Logger.Info(msg, args...)
	}
}

func (cfg Config) warn(msg string, args ...any) {
	if cfg.Logger != nil {
		cfg.Logger.Warn(msg, args...)
	}
}

// fileSourceURL builds an escaped file:// URL with forward slashes on every OS.
func fileSourceURL(dir string) (string, error) {
	absDir, err := filepath.Abs(dir)
	if err != nil {
		return "", fmt.Errorf("resolve dir: %w", err)
	}
	return (&url.URL{Scheme: "file", Path: filepath.ToSlash(absDir)}).String(), nil
}

// run opens a migrator, executes op and always closes it. migrate has no
// context support, so cancellation closes the migrator to interrupt op.
func run(ctx context.Context, db *sql.DB, cfg Config, op func(m migrator) error) error {
	if db == nil {
		return errors.New("migrations: db is nil")
	}
	if ctx == nil {
		ctx = context.Background()
	}
	if err := ctx.Err(); err != nil {
		return err
	}

	cfg = cfg.withDefaults()

	driver, err := driverFactory(db, cfg)
	if err != nil {
		return fmt.Errorf("migrations: postgres driver: %w", err)
	}

	m, err := migratorFactory(cfg, driver)
	if err != nil {
		return fmt.Errorf("migrations: init: %w", err)
	}

	var closeOnce sync.Once
	closeMigrator := func() {
		closeOnce.Do(func() {
			srcErr, dbErr := m.Close()
			if srcErr != nil {
				cfg.warn("Migrations source close error", "error", srcErr)
			}
			if dbErr != nil {
				cfg.warn("Migrations db close error", "error", dbErr)
			}
		})
	}
	defer closeMigrator()

	errCh := make(chan error, 1)
	go func() {
		errCh <- op(m)
	}()

	select {
	case <-ctx.Done():
		closeMigrator()
		return ctx.Err()
	case err := <-errCh:
		return err
	}
}

func Up(ctx context.Context, db *sql.DB, cfg Config) error {
	cfg.info("Running SQL migrations", "dir", cfg.Dir, "embedded", cfg.FS != nil)

	err := run(ctx, db, cfg, func(m migrator) error { return m.Up() })
	switch {
	case errors.Is(err, migrate.ErrNoChange):
		cfg.info("No migrations to apply")
		return nil
	case err != nil:
		return wrapOp("up", err)
	}

	cfg.info("Migrations applied successfully")
	return nil
}

// Down rolls back the given number of migrations; steps below 1 means one.
func Down(ctx context.Context, db *sql.DB, cfg Config, steps int) error {
	if steps < 1 {
		steps = 1
	}
	cfg.info("Rolling back SQL migrations", "steps", steps)

	err := run(ctx, db, cfg, func(m migrator) error { return m.Steps(-steps) })
	switch {
	case errors.Is(err, migrate.ErrNoChange):
		cfg.info("No migrations to roll back")
		return nil
	case err != nil:
		return wrapOp("down", err)
	}

	cfg.info("Migrations rolled back successfully", "steps", steps)
	return nil
}

func Version(ctx context.Context, db *sql.DB, cfg Config) (VersionInfo, error) {
	var info VersionInfo

	err := run(ctx, db, cfg, func(m migrator) error {
		v, dirty, err := m.Version()
		if errors.Is(err, migrate.ErrNilVersion) {
			info.None = true
			return nil
		}
		info.Version, info.Dirty = v, dirty
		return err
	})
	if err != nil {
		return VersionInfo{}, wrapOp("version", err)
	}
	return info, nil
}

// wrapOp leaves context errors and already-wrapped setup errors untouched.
func wrapOp(op string, err error) error {
	if errors.Is(err, context.Canceled) || errors.Is(err, context.DeadlineExceeded) || strings.HasPrefix(err.Error(), "migrations:") {
		return err
	}
	return fmt.Errorf("migrations: %s: %w", op, err)
}
