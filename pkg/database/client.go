// Package database opens the persistence layer and applies schema
// migrations. SQLite is the default engine; a DATABASE_URL switches to
// Postgres with embedded SQL migrations.
package database

import (
	"context"
	stdsql "database/sql"
	"embed"
	"fmt"

	"github.com/golang-migrate/migrate/v4"
	migratepg "github.com/golang-migrate/migrate/v4/database/postgres"
	"github.com/golang-migrate/migrate/v4/source/iofs"
	_ "github.com/jackc/pgx/v5/stdlib" // register pgx driver for database/sql
	"gorm.io/driver/postgres"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"

	"github.com/digestkit/digestd/pkg/models"
)

//go:embed migrations
var migrationsFS embed.FS

// Client wraps the GORM handle and the underlying connection.
type Client struct {
	gorm *gorm.DB
	db   *stdsql.DB
}

// GORM returns the ORM handle.
func (c *Client) GORM() *gorm.DB {
	return c.gorm
}

// DB returns the underlying connection for health checks and direct queries.
func (c *Client) DB() *stdsql.DB {
	return c.db
}

// Close releases the underlying connection.
func (c *Client) Close() error {
	if c.db == nil {
		return nil
	}
	return c.db.Close()
}

// NewClient opens the store described by cfg and brings the schema up to
// date.
func NewClient(ctx context.Context, cfg Config) (*Client, error) {
	if cfg.URL != "" {
		return newPostgresClient(ctx, cfg)
	}
	return newSQLiteClient(cfg)
}

// newSQLiteClient opens the SQLite file and migrates the schema in place.
// Writes are serialized through a single connection; SQLite does not
// tolerate concurrent writers on one file.
func newSQLiteClient(cfg Config) (*Client, error) {
	gdb, err := gorm.Open(sqlite.Open(cfg.Path), gormConfig())
	if err != nil {
		return nil, fmt.Errorf("opening sqlite database %q: %w", cfg.Path, err)
	}
	db, err := gdb.DB()
	if err != nil {
		return nil, fmt.Errorf("unwrapping sqlite connection: %w", err)
	}
	db.SetMaxOpenConns(1)

	if err := gdb.AutoMigrate(models.AllEntities()...); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("migrating sqlite schema: %w", err)
	}
	return &Client{gorm: gdb, db: db}, nil
}

// newPostgresClient opens the DSN with pgx, applies the embedded SQL
// migrations, and hands the live connection to GORM.
func newPostgresClient(ctx context.Context, cfg Config) (*Client, error) {
	db, err := stdsql.Open("pgx", cfg.URL)
	if err != nil {
		return nil, fmt.Errorf("opening postgres database: %w", err)
	}
	db.SetMaxOpenConns(cfg.MaxOpenConns)
	db.SetMaxIdleConns(cfg.MaxIdleConns)
	db.SetConnMaxLifetime(cfg.ConnMaxLifetime)
	db.SetConnMaxIdleTime(cfg.ConnMaxIdleTime)

	if err := db.PingContext(ctx); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("pinging postgres database: %w", err)
	}
	if err := runMigrations(db); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("running migrations: %w", err)
	}

	gdb, err := gorm.Open(postgres.New(postgres.Config{Conn: db}), gormConfig())
	if err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("attaching orm to postgres connection: %w", err)
	}
	return &Client{gorm: gdb, db: db}, nil
}

func gormConfig() *gorm.Config {
	return &gorm.Config{
		Logger: logger.Default.LogMode(logger.Silent),
	}
}

// runMigrations applies all pending embedded migrations with golang-migrate.
func runMigrations(db *stdsql.DB) error {
	driver, err := migratepg.WithInstance(db, &migratepg.Config{})
	if err != nil {
		return fmt.Errorf("creating postgres migration driver: %w", err)
	}
	sourceDriver, err := iofs.New(migrationsFS, "migrations")
	if err != nil {
		return fmt.Errorf("creating migration source: %w", err)
	}
	m, err := migrate.NewWithInstance("iofs", sourceDriver, "digestd", driver)
	if err != nil {
		return fmt.Errorf("creating migrate instance: %w", err)
	}
	if err := m.Up(); err != nil && err != migrate.ErrNoChange {
		return fmt.Errorf("applying migrations: %w", err)
	}
	// Close only the source driver. m.Close() would also close the database
	// driver, which closes the shared *sql.DB that GORM is about to use.
	if err := sourceDriver.Close(); err != nil {
		return fmt.Errorf("closing migration source: %w", err)
	}
	return nil
}
