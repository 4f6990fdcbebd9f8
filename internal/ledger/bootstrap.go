package ledger

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"

	"github.com/brokerledger/brokerledger/internal/platform/db"
)

// Execer runs a single statement.
type Execer interface {
	Exec(ctx context.Context, sql string, args ...any) (pgconn.CommandTag, error)
}

// DatabaseName extracts the database name from a connection string.
func DatabaseName(dsn string) (string, error) {
	cfg, err := pgconn.ParseConfig(dsn)
	if err != nil {
		return "", fmt.Errorf("ledger: parse dsn: %w", err)
	}
	if cfg.Database == "" {
		return "", fmt.Errorf("ledger: dsn has no database name")
	}
	return cfg.Database, nil
}

// CreateDatabase creates name through an administrative connection. An
// existing database is not an error.
func CreateDatabase(ctx context.Context, admin Execer, name string) error {
	_, err := admin.Exec(ctx, "CREATE DATABASE "+pgx.Identifier{name}.Sanitize())
	if err != nil && !isPgCode(err, codeDuplicateDatabase) {
		return fmt.Errorf("ledger: create database %s: %w", name, err)
	}
	return nil
}

// DropDatabase removes name if it exists.
func DropDatabase(ctx context.Context, admin Execer, name string) error {
	if _, err := admin.Exec(ctx, "DROP DATABASE IF EXISTS "+pgx.Identifier{name}.Sanitize()); err != nil {
		return fmt.Errorf("ledger: drop database %s: %w", name, err)
	}
	return nil
}

// EnsureSchema creates the table and its supporting index in one transaction.
func EnsureSchema(ctx context.Context, conn db.TxBeginner, schema Schema) error {
	return db.WithTx(ctx, conn, func(tx pgx.Tx) error {
		if _, err := tx.Exec(ctx, schema.CreateTableSQL()); err != nil {
			return fmt.Errorf("ledger: create table %s: %w", schema.Table(), err)
		}
		index := fmt.Sprintf("CREATE INDEX IF NOT EXISTS %s_broker_date_idx ON %s (broker, settlement_date)", schema.Table(), schema.Table())
		if _, err := tx.Exec(ctx, index); err != nil {
			return fmt.Errorf("ledger: create index: %w", err)
		}
		return nil
	})
}

// Bootstrap creates the database named in dsn via adminDSN and then the
// transactions table inside it.
func Bootstrap(ctx context.Context, adminDSN, dsn string, schema Schema, logger *slog.Logger) error {
	if logger == nil {
		logger = slog.Default()
	}
	name, err := DatabaseName(dsn)
	if err != nil {
		return err
	}

	admin, err := pgx.Connect(ctx, adminDSN)
	if err != nil {
		return fmt.Errorf("ledger: connect admin: %w", err)
	}
	err = CreateDatabase(ctx, admin, name)
	_ = admin.Close(ctx)
	if err != nil {
		return err
	}
	logger.Info("database ready", slog.String("database", name))

	pool, err := db.New(ctx, dsn)
	if err != nil {
		return err
	}
	defer pool.Close()

	if err := EnsureSchema(ctx, pool, schema); err != nil {
		return err
	}
	logger.Info("schema ready", slog.String("table", schema.Table()))
	return nil
}
