package main

import (
	"context"
	"database/sql"
	"fmt"
	"os"
	"strconv"
	"time"

	"github.com/akeren/clothiq-api/config"
	"github.com/akeren/clothiq-api/internal/log"
	schema "github.com/akeren/clothiq-api/migrations"
	"github.com/akeren/clothiq-api/pkg/migrations"
	"github.com/akeren/clothiq-api/pkg/utils"
)

const migrationTimeout = 5 * time.Minute

func main() {
	logger := log.NewLoggerWithJSONOutput()

	config.InitializeEnvFile(logger) // Load envs early for CLI consistency

	args := os.Args[1:]
	if len(args) == 0 {
		printUsage()
		os.Exit(1)
	}

	var err error
	switch args[0] {
	case "migrate", "migrate-up":
		err = withDatabase(logger, func(ctx context.Context, db *sql.DB, cfg migrations.Config) error {
			return migrations.Up(ctx, db, cfg)
		})

	case "migrate-down":
		steps := 1
		if len(args) > 1 {
			if steps, err = strconv.Atoi(args[1]); err != nil || steps < 1 {
				fmt.Fprintf(os.Stderr, "invalid step count: %q\n", args[1])
				os.Exit(1)
			}
		}
		err = withDatabase(logger, func(ctx context.Context, db *sql.DB, cfg migrations.Config) error {
			return migrations.Down(ctx, db, cfg, steps)
		})

	case "migrate-version":
		err = withDatabase(logger, func(ctx context.Context, db *sql.DB, cfg migrations.Config) error {
			info, err := migrations.Version(ctx, db, cfg)
			if err != nil {
				return err
			}
			if info.None {
				fmt.Println("no migrations applied")
				return nil
			}
			fmt.Printf("version %d (dirty=%t)\n", info.Version, info.Dirty)
			return nil
		})

	case "help", "-h", "--help":
		printUsage()
		return

	default:
		fmt.Fprintf(os.Stderr, "unknown command: %s\n", args[0])
		printUsage()
		os.Exit(1)
	}

	if err != nil {
		logger.Error("Migration command failed", "command", args[0], "error", err.Error())
		os.Exit(1)
	}
	logger.Info("Migration command completed", "command", args[0])
}

// withDatabase connects to postgres and runs fn with the migration source:
// MIGRATIONS_DIR when set, otherwise the schema embedded in the binary.
func withDatabase(logger *log.Logger, fn func(ctx context.Context, db *sql.DB, cfg migrations.Config) error) error {
	if driver := config.GetDatabaseDriver(); driver != config.DatabaseDriverPostgres {
		return fmt.Errorf("SQL migrations target postgres only (APP_DATABASE_DRIVER=%s); start the server with --auto-migrate for local sqlite", driver)
	}

	db, err := config.NewDatabase(logger, config.NewDBConfig())
	if err != nil {
		return fmt.Errorf("connect: %w", err)
	}
	defer config.CloseDatabase(db, logger)

	sqlDB, err := db.DB()
	if err != nil {
		return fmt.Errorf("sql handle: %w", err)
	}

	cfg := migrations.Config{FS: schema.FS, Logger: logger}
	if dir := utils.GetEnvTrimmed("MIGRATIONS_DIR"); dir != "" {
		cfg = migrations.Config{Dir: dir, Logger: logger}
	}

	ctx, cancel := context.WithTimeout(context.Background(), migrationTimeout)
	defer cancel()

	return fn(ctx, sqlDB, cfg)
}

func printUsage() {
	fmt.Println("Usage: cli <command>")
	fmt.Println()
	fmt.Println("Commands:")
	fmt.Println("  migrate              Apply all pending migrations (postgres)")
	fmt.Println("  migrate-down [n]     Roll back n migrations (default 1)")
	fmt.Println("  migrate-version      Print the current schema version")
	fmt.Println("  help                 Show this message")
	fmt.Println()
	fmt.Println("MIGRATIONS_DIR overrides the embedded schema with files on disk.")
}
