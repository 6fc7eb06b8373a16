package config

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/akeren/clothiq-api/internal/log"
	"github.com/akeren/clothiq-api/pkg/retry"
	"github.com/akeren/clothiq-api/pkg/utils"
	"github.com/jackc/pgx/v5/pgconn"
	"gorm.io/driver/postgres"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
	gormlogger "gorm.io/gorm/logger"
)

const (
	DatabaseDriverPostgres = "postgres"
	DatabaseDriverSQLite   = "sqlite"
)

const dbPingTimeout = 5 * time.Second

type DBConfig struct {
	Driver          string
	URL             string
	SQLitePath      string
	MaxIdleConns    int
	MaxOpenConns    int
	ConnMaxLifetime time.Duration
	SlowQuery       time.Duration
	SSLMode         string // "require" unless POSTGRES_SSLMODE says otherwise
	ConnectRetry    *retry.Config
}

func NewDBConfig() *DBConfig {
	cfg := &DBConfig{
		Driver:          GetDatabaseDriver(),
		URL:             sanitizeEnv(GetValueFromEnvironmentVariable("APP_DATABASE_URL", "")),
		SQLitePath:      sanitizeEnv(GetValueFromEnvironmentVariable("SQLITE_PATH", "clothiq.db")),
		MaxIdleConns:    utils.GetEnvPositiveInt("DB_MAX_IDLE_CONNS", 10),
		MaxOpenConns:    utils.GetEnvPositiveInt("DB_MAX_OPEN_CONNS", 25),
		ConnMaxLifetime: utils.GetEnvDuration("DB_CONN_MAX_LIFETIME", 5*time.Minute),
		SlowQuery:       utils.GetEnvDuration("DB_SLOW_QUERY_THRESHOLD", 200*time.Millisecond),
		SSLMode:         sanitizeEnv(GetValueFromEnvironmentVariable("POSTGRES_SSLMODE", "require")),
		ConnectRetry: &retry.Config{
			MaxAttempts: utils.GetEnvPositiveInt("DB_CONNECT_ATTEMPTS", 5),
			BaseDelay:   500 * time.Millisecond,
			MaxDelay:    10 * time.Second,
			Multiplier:  2,
		},
	}
	if cfg.SSLMode == "" {
		cfg.SSLMode = "require"
	}
	return cfg
}

func GetDatabaseDriver() string {
	driver := strings.ToLower(sanitizeEnv(GetValueFromEnvironmentVariable("APP_DATABASE_DRIVER", DatabaseDriverPostgres)))
	if driver == "" {
		return DatabaseDriverPostgres
	}
	return driver
}

// NewDatabase retries the initial connection; the database container is
// often still starting when the API boots.
func NewDatabase(logger *log.Logger, cfg *DBConfig) (*gorm.DB, error) {
	if cfg == nil {
		cfg = NewDBConfig()
	}

	dialector, err := cfg.dialector(logger)
	if err != nil {
		return nil, err
	}

	gormCfg := &gorm.Config{
		TranslateError: true,
		Logger:         newGormLogger(logger, cfg.SlowQuery),
	}

	var gdb *gorm.DB
	connect := func(ctx context.Context) error {
		db, err := openAndPing(ctx, dialector, gormCfg, cfg)
		if err != nil {
			logger.Warn("Database connection attempt failed", "driver", cfg.Driver, "error", err)
			return err
		}
		gdb = db
		return nil
	}

	if err := retry.NewExponentialBackoff(cfg.ConnectRetry).Execute(context.Background(), connect); err != nil {
		return nil, fmt.Errorf("connect to %s: %w", cfg.Driver, err)
	}

	logger.Info("Database connection established", "driver", cfg.Driver)
	return gdb, nil
}

func (cfg *DBConfig) dialector(logger *log.Logger) (gorm.Dialector, error) {
	switch cfg.Driver {
	case DatabaseDriverSQLite:
		logger.Info("Using SQLite database", "path", cfg.SQLitePath)
		return sqlite.Open(cfg.SQLitePath), nil
	case DatabaseDriverPostgres, "":
		dsn, err := cfg.postgresDSN(logger)
		if err != nil {
			return nil, err
		}
		return postgres.Open(dsn), nil
	default:
		return nil, fmt.Errorf("unsupported APP_DATABASE_DRIVER %q (supported: %s, %s)", cfg.Driver, DatabaseDriverPostgres, DatabaseDriverSQLite)
	}
}

// postgresDSN prefers APP_DATABASE_URL and otherwise assembles a keyword/value
// DSN from POSTGRES_*. Either form is parsed by pgconn so a typo fails fast
// instead of on every retry.
func (cfg *DBConfig) postgresDSN(logger *log.Logger) (string, error) {
	dsn := cfg.URL
	if dsn == "" {
		var err error
		if dsn, err = dsnFromEnv(cfg.SSLMode); err != nil {
			return "", err
		}
	}

	parsed, err := pgconn.ParseConfig(dsn)
	if err != nil {
		return "", fmt.Errorf("invalid postgres connection string: %w", err)
	}

	logger.Info("Connecting to postgres",
		"host", parsed.Host,
		"port", parsed.Port,
		"user", parsed.User,
		"dbname", parsed.Database,
		"tls", parsed.TLSConfig != nil)
	return dsn, nil
}

func dsnFromEnv(sslMode string) (string, error) {
	env := func(key string) string {
		return sanitizeEnv(GetValueFromEnvironmentVariable(key, ""))
	}

	params := []struct{ key, env, value string }{
		{"host", "POSTGRES_HOST", env("POSTGRES_HOST")},
		{"port", "POSTGRES_PORT", env("POSTGRES_PORT")},
		{"user", "POSTGRES_USER", env("POSTGRES_USER")},
		{"dbname", "POSTGRES_DB_NAME", env("POSTGRES_DB_NAME")},
	}

	var missing []string
	parts := make([]string, 0, len(params)+2)
	for _, p := range params {
		if p.value == "" {
			missing = append(missing, p.env)
			continue
		}
		parts = append(parts, p.key+"="+quoteDSNValue(p.value))
	}
	if len(missing) > 0 {
		return "", fmt.Errorf("missing required database env vars: %s", strings.Join(missing, ", "))
	}

	if pass := env("POSTGRES_PASSWORD"); pass != "" {
		parts = append(parts, "password="+quoteDSNValue(pass))
	}
	parts = append(parts, "sslmode="+quoteDSNValue(sslMode))

	return strings.Join(parts, " "), nil
}

// quoteDSNValue quotes keyword/value DSN values containing spaces or quotes.
func quoteDSNValue(v string) string {
	if v != "" && !strings.ContainsAny(v, ` '\`) {
		return v
	}
	r := strings.NewReplacer(`\`, `\\`, `'`, `\'`)
	return "'" + r.Replace(v) + "'"
}

func openAndPing(ctx context.Context, dialector gorm.Dialector, gormCfg *gorm.Config, cfg *DBConfig) (*gorm.DB, error) {
	gdb, err := gorm.Open(dialector, gormCfg)
	if err != nil {
		return nil, err
	}

	sqlDB, err := gdb.DB()
	if err != nil {
		return nil, fmt.Errorf("get database handle: %w", err)
	}

	sqlDB.SetMaxIdleConns(cfg.MaxIdleConns)
	sqlDB.SetMaxOpenConns(cfg.MaxOpenConns)
	sqlDB.SetConnMaxLifetime(cfg.ConnMaxLifetime)

	pingCtx, cancel := context.WithTimeout(ctx, dbPingTimeout)
	defer cancel()

	if err := sqlDB.PingContext(pingCtx); err != nil {
		_ = sqlDB.Close()
		return nil, fmt.Errorf("database ping failed: %w", err)
	}

	return gdb, nil
}

// gormWriter routes gorm's own log lines (slow queries, errors) into slog.
type gormWriter struct {
	logger *log.Logger
}

func (w gormWriter) Printf(format string, args ...any) {
	w.logger.Warn("gorm", "detail", fmt.Sprintf(format, args...))
}

func newGormLogger(logger *log.Logger, slowQuery time.Duration) gormlogger.Interface {
	return gormlogger.New(gormWriter{logger: logger}, gormlogger.Config{
		SlowThreshold:             slowQuery,
		LogLevel:                  gormlogger.Warn,
		IgnoreRecordNotFoundError: true,
		ParameterizedQueries:      true,
	})
}

// AutoMigrate is for local development; deployed environments run the
// versioned migrations through cmd/cli.
func AutoMigrate(logger *log.Logger, db *gorm.DB, models ...any) error {
	if db == nil {
		return fmt.Errorf("cannot migrate: no database")
	}

	if err := db.AutoMigrate(models...); err != nil {
		return fmt.Errorf("auto-migrate: %w", err)
	}

	logger.Info("Auto-migration completed", "models", len(models))
	return nil
}

func CloseDatabase(db *gorm.DB, logger *log.Logger) {
	if db == nil {
		return
	}

	sqlDB, err := db.DB()
	if err != nil {
		logger.Error("Failed to get SQL DB instance", "error", err)
		return
	}

	if err := sqlDB.Close(); err != nil {
		logger.Error("Failed to close database", "error", err)
		return
	}
	logger.Info("Database closed")
}
