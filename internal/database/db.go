package database

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"medvault-server/config"
	"medvault-server/internal/logger"

	"entgo.io/ent/dialect"
	entsql "entgo.io/ent/dialect/sql"
	"entgo.io/ent/dialect/sql/schema"

	"github.com/lib/pq"
	"github.com/mattn/go-sqlite3"
)

// Client is the handle repositories share. It is built once in main and
// passed to every repository.
type Client struct {
	drv    *entsql.Driver
	Tables config.CollectionsConfig
}

// Open opens the database connection and wraps it in an ent driver
func Open(cfg *config.DatabaseConfig, tables config.CollectionsConfig) (*Client, error) {
	// Open database connection
	db, err := sql.Open(cfg.Driver, cfg.DSN())
	if err != nil {
		return nil, fmt.Errorf("failed to open database: %w", err)
	}

	// Test connection
	if err := db.Ping(); err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to ping database: %w", err)
	}

	var name string
	switch cfg.Driver {
	case "sqlite3":
		name = dialect.SQLite
	default:
		name = dialect.Postgres
	}

	logger.Info.Printf("Database connection established (%s)", cfg.Driver)
	return &Client{drv: entsql.OpenDB(name, db), Tables: tables}, nil
}

// Close closes the database connection
func (c *Client) Close() error {
	if c == nil || c.drv == nil {
		return nil
	}
	return c.drv.Close()
}

// Migrate creates or updates all tables
func (c *Client) Migrate(ctx context.Context) error {
	m, err := schema.NewMigrate(c.drv)
	if err != nil {
		return fmt.Errorf("failed to create migrator: %w", err)
	}
	if err := m.Create(ctx, Tables(c.Tables)...); err != nil {
		return fmt.Errorf("failed to create schema: %w", err)
	}

	logger.Info.Println("Database schema migrated successfully")
	return nil
}

// Builder returns a statement builder for the connection's dialect.
func (c *Client) Builder() *entsql.DialectBuilder {
	return entsql.Dialect(c.drv.Dialect())
}

// Conn returns the connection for statements outside a transaction.
func (c *Client) Conn() dialect.ExecQuerier {
	return c.drv
}

// WithTx runs fn in a transaction, rolling back when fn fails.
func (c *Client) WithTx(ctx context.Context, fn func(tx dialect.ExecQuerier) error) error {
	tx, err := c.drv.Tx(ctx)
	if err != nil {
		return fmt.Errorf("begin transaction: %w", err)
	}
	if err := fn(tx); err != nil {
		if rerr := tx.Rollback(); rerr != nil {
			return fmt.Errorf("%w: rollback: %v", err, rerr)
		}
		return err
	}
	if err := tx.Commit(); err != nil {
		return fmt.Errorf("commit transaction: %w", err)
	}
	return nil
}

// Querier is what a built statement needs to render itself.
type Querier interface {
	Query() (string, []any)
}

// Exec runs a built statement and returns the number of affected rows.
func Exec(ctx context.Context, conn dialect.ExecQuerier, stmt Querier) (int64, error) {
	query, args := stmt.Query()
	var res sql.Result
	if err := conn.Exec(ctx, query, args, &res); err != nil {
		return 0, err
	}
	return res.RowsAffected()
}

// Query runs a built select and calls scan once per row.
func Query(ctx context.Context, conn dialect.ExecQuerier, stmt Querier, scan func(*entsql.Rows) error) error {
	query, args := stmt.Query()
	rows := &entsql.Rows{}
	if err := conn.Query(ctx, query, args, rows); err != nil {
		return err
	}
	defer rows.Close()

	for rows.Next() {
		if err := scan(rows); err != nil {
			return err
		}
	}
	return rows.Err()
}

// IsUniqueViolation reports whether err comes from a unique index rejecting a row.
func IsUniqueViolation(err error) bool {
	var pqErr *pq.Error
	if errors.As(err, &pqErr) {
		return pqErr.Code == "23505"
	}
	var liteErr sqlite3.Error
	if errors.As(err, &liteErr) {
		return liteErr.ExtendedCode == sqlite3.ErrConstraintUnique ||
			liteErr.ExtendedCode == sqlite3.ErrConstraintPrimaryKey
	}
	return false
}
