// Package ledger persists parsed statement records in PostgreSQL and serves
// the aggregate queries the reports are built from.
package ledger

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"cloud.google.com/go/civil"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgtype"

	"github.com/brokerledger/brokerledger/internal/reporting"
	"github.com/brokerledger/brokerledger/internal/statement"
)

const (
	codeUniqueViolation   = "23505"
	codeDuplicateDatabase = "42P04"
)

// ErrDuplicateRecord reports a unique violation on (xref, total_loan_amount).
var ErrDuplicateRecord = errors.New("ledger: duplicate record")

// DB is the subset of pgx used by the repository. *pgxpool.Pool and pgx.Tx
// both satisfy it.
type DB interface {
	Exec(ctx context.Context, sql string, args ...any) (pgconn.CommandTag, error)
	Query(ctx context.Context, sql string, args ...any) (pgx.Rows, error)
	QueryRow(ctx context.Context, sql string, args ...any) pgx.Row
}

// InsertResult summarises a batch insert.
type InsertResult struct {
	Inserted int `json:"inserted"`
	Skipped  int `json:"skipped"`
}

// Repository stores transactions described by a Schema.
type Repository struct {
	db     DB
	schema Schema
	logger *slog.Logger
}

// NewRepository constructs the repository.
func NewRepository(db DB, schema Schema, logger *slog.Logger) *Repository {
	if logger == nil {
		logger = slog.Default()
	}
	return &Repository{db: db, schema: schema, logger: logger}
}

// Schema returns the descriptor the repository was built with.
func (r *Repository) Schema() Schema {
	return r.schema
}

// InsertRecords inserts each record on its own. Duplicates are counted and
// skipped; any other failure stops the batch and is returned as-is.
func (r *Repository) InsertRecords(ctx context.Context, records []statement.Record) (InsertResult, error) {
	var res InsertResult
	for _, rec := range records {
		err := r.insert(ctx, rec)
		switch {
		case err == nil:
			res.Inserted++
		case errors.Is(err, ErrDuplicateRecord):
			res.Skipped++
			r.logger.Debug("skip duplicate transaction",
				slog.Int64("xref", rec.Xref),
				slog.Float64("total_loan_amount", rec.TotalLoanAmount))
		default:
			return res, err
		}
	}
	return res, nil
}

func (r *Repository) insert(ctx context.Context, rec statement.Record) error {
	_, err := r.db.Exec(ctx, r.schema.InsertSQL(),
		rec.AppID,
		rec.Xref,
		toPgDate(rec.SettlementDate),
		rec.Broker,
		rec.SubBroker,
		rec.BorrowerName,
		rec.Description,
		rec.TotalLoanAmount,
		rec.CommRate,
		rec.Upfront,
		rec.UpfrontInclGST,
	)
	if err != nil {
		if isPgCode(err, codeUniqueViolation) {
			return fmt.Errorf("%w: xref %d amount %.2f", ErrDuplicateRecord, rec.Xref, rec.TotalLoanAmount)
		}
		return err
	}
	return nil
}

// LoanAmountBetween sums total loan amounts settled within [from, to]. It
// returns nil when no transaction falls in the range.
func (r *Repository) LoanAmountBetween(ctx context.Context, from, to civil.Date) (*float64, error) {
	var total pgtype.Float8
	if err := r.db.QueryRow(ctx, r.schema.sumBetweenSQL(), toPgDate(from), toPgDate(to)).Scan(&total); err != nil {
		return nil, fmt.Errorf("ledger: loan amount between: %w", err)
	}
	return nullableFloat(total), nil
}

// MaxLoanByBroker returns the largest total loan amount for broker, or nil
// when the broker has no transactions.
func (r *Repository) MaxLoanByBroker(ctx context.Context, broker string) (*float64, error) {
	var highest pgtype.Float8
	if err := r.db.QueryRow(ctx, r.schema.maxByBrokerSQL(), broker).Scan(&highest); err != nil {
		return nil, fmt.Errorf("ledger: max loan by broker: %w", err)
	}
	return nullableFloat(highest), nil
}

// DailyAmounts returns loan amounts grouped by (broker, settlement date),
// ordered by broker then date.
func (r *Repository) DailyAmounts(ctx context.Context) ([]reporting.DailyAmounts, error) {
	rows, err := r.db.Query(ctx, r.schema.groupedSQL())
	if err != nil {
		return nil, fmt.Errorf("ledger: daily amounts: %w", err)
	}
	defer rows.Close()

	var out []reporting.DailyAmounts
	for rows.Next() {
		var (
			group   reporting.DailyAmounts
			date    pgtype.Date
			amounts []float64
		)
		if err := rows.Scan(&group.Broker, &date, &amounts); err != nil {
			return nil, fmt.Errorf("ledger: scan daily amounts: %w", err)
		}
		group.Date = civil.DateOf(date.Time)
		group.Amounts = amounts
		out = append(out, group)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("ledger: iterate daily amounts: %w", err)
	}
	return out, nil
}

func toPgDate(d civil.Date) pgtype.Date {
	return pgtype.Date{Time: d.In(time.UTC), Valid: d.IsValid()}
}

func nullableFloat(v pgtype.Float8) *float64 {
	if !v.Valid {
		return nil
	}
	f := v.Float64
	return &f
}

func isPgCode(err error, code string) bool {
	var pgErr *pgconn.PgError
	return errors.As(err, &pgErr) && pgErr.Code == code
}
