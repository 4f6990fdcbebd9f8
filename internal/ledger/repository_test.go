package ledger

import (
	"context"
	"errors"
	"strings"
	"testing"
	"time"

	"cloud.google.com/go/civil"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgtype"
	"github.com/stretchr/testify/require"

	"github.com/brokerledger/brokerledger/internal/reporting"
	"github.com/brokerledger/brokerledger/internal/statement"
	_ "github.com/brokerledger/brokerledger/testing"
)

func sampleRecord(xref int64, amount float64) statement.Record {
	return statement.Record{
		AppID:           80185884,
		Xref:            xref,
		SettlementDate:  civil.Date{Year: 2023, Month: time.October, Day: 17},
		Broker:          "Cheston La'Porte",
		BorrowerName:    "CHELSEA BIANCA VANDERAA",
		Description:     "Upfront Commission",
		TotalLoanAmount: amount,
		CommRate:        0.55,
		Upfront:         197.40,
		UpfrontInclGST:  217.14,
	}
}

func TestInsertRecordsSkipsDuplicates(t *testing.T) {
	db := newMemoryDB()
	repo := NewRepository(db, TransactionSchema(), nil)
	ctx := context.Background()

	batch := []statement.Record{sampleRecord(100305936, 35890), sampleRecord(100305936, 35890)}
	res, err := repo.InsertRecords(ctx, batch)
	require.NoError(t, err)
	require.Equal(t, InsertResult{Inserted: 1, Skipped: 1}, res)

	res, err = repo.InsertRecords(ctx, batch)
	require.NoError(t, err)
	require.Equal(t, InsertResult{Inserted: 0, Skipped: 2}, res)
	require.Len(t, db.rows, 1)

	res, err = repo.InsertRecords(ctx, []statement.Record{sampleRecord(100305936, 40000)})
	require.NoError(t, err)
	require.Equal(t, 1, res.Inserted)
	require.Len(t, db.rows, 2)
}

func TestInsertRecordsPropagatesOtherErrors(t *testing.T) {
	db := newMemoryDB()
	db.execErr = &pgconn.PgError{Code: "23502", Message: "null value in column"}
	repo := NewRepository(db, TransactionSchema(), nil)

	res, err := repo.InsertRecords(context.Background(), []statement.Record{sampleRecord(1, 1), sampleRecord(2, 2)})
	require.Error(t, err)
	require.False(t, errors.Is(err, ErrDuplicateRecord))
	var pgErr *pgconn.PgError
	require.True(t, errors.As(err, &pgErr))
	require.Equal(t, "23502", pgErr.Code)
	require.Equal(t, 0, res.Inserted)
	require.Len(t, db.execs, 1)
}

func TestInsertPassesSubBroker(t *testing.T) {
	db := newMemoryDB()
	repo := NewRepository(db, TransactionSchema(), nil)
	rec := sampleRecord(7, 1250000)
	sub := "Aagam Pabari"
	rec.SubBroker = &sub

	_, err := repo.InsertRecords(context.Background(), []statement.Record{rec})
	require.NoError(t, err)
	args := db.rows[uniqueKey{xref: 7, amount: 1250000}]
	require.Equal(t, &sub, args[4])
	require.Equal(t, pgtype.Date{Time: time.Date(2023, time.October, 17, 0, 0, 0, 0, time.UTC), Valid: true}, args[2])
}

func TestLoanAmountBetween(t *testing.T) {
	db := newMemoryDB()
	var gotArgs []any
	db.row = func(sql string, args ...any) pgx.Row {
		gotArgs = args
		require.Contains(t, sql, "SUM(total_loan_amount)")
		return rowFunc(func(dest ...any) error {
			*dest[0].(*pgtype.Float8) = pgtype.Float8{Float64: 1285890, Valid: true}
			return nil
		})
	}
	repo := NewRepository(db, TransactionSchema(), nil)

	from := civil.Date{Year: 2023, Month: time.October, Day: 1}
	to := civil.Date{Year: 2023, Month: time.October, Day: 31}
	total, err := repo.LoanAmountBetween(context.Background(), from, to)
	require.NoError(t, err)
	require.NotNil(t, total)
	require.Equal(t, 1285890.0, *total)
	require.Len(t, gotArgs, 2)
}

func TestScalarQueriesReturnNilWhenEmpty(t *testing.T) {
	db := newMemoryDB()
	db.row = func(string, ...any) pgx.Row {
		return rowFunc(func(dest ...any) error {
			*dest[0].(*pgtype.Float8) = pgtype.Float8{}
			return nil
		})
	}
	repo := NewRepository(db, TransactionSchema(), nil)

	highest, err := repo.MaxLoanByBroker(context.Background(), "Nobody")
	require.NoError(t, err)
	require.Nil(t, highest)

	total, err := repo.LoanAmountBetween(context.Background(), civil.Date{Year: 2020, Month: 1, Day: 1}, civil.Date{Year: 2020, Month: 1, Day: 2})
	require.NoError(t, err)
	require.Nil(t, total)
}

func TestDailyAmounts(t *testing.T) {
	db := newMemoryDB()
	day := func(d int) pgtype.Date {
		return pgtype.Date{Time: time.Date(2023, time.October, d, 0, 0, 0, 0, time.UTC), Valid: true}
	}
	db.query = func(sql string, _ ...any) (pgx.Rows, error) {
		require.True(t, strings.Contains(sql, "GROUP BY broker, settlement_date"))
		return &groupedRows{data: [][]any{
			{"Broker A", day(17), []float64{35890, 12000}},
			{"Broker A", day(18), []float64{1250000}},
			{"Broker B", day(17), []float64{5000}},
		}}, nil
	}
	repo := NewRepository(db, TransactionSchema(), nil)

	groups, err := repo.DailyAmounts(context.Background())
	require.NoError(t, err)
	require.Equal(t, []reporting.DailyAmounts{
		{Broker: "Broker A", Date: civil.Date{Year: 2023, Month: time.October, Day: 17}, Amounts: []float64{35890, 12000}},
		{Broker: "Broker A", Date: civil.Date{Year: 2023, Month: time.October, Day: 18}, Amounts: []float64{1250000}},
		{Broker: "Broker B", Date: civil.Date{Year: 2023, Month: time.October, Day: 17}, Amounts: []float64{5000}},
	}, groups)
}

func TestDailyAmountsPropagatesIterationError(t *testing.T) {
	db := newMemoryDB()
	db.query = func(string, ...any) (pgx.Rows, error) {
		return &groupedRows{err: errors.New("conn reset")}, nil
	}
	_, err := NewRepository(db, TransactionSchema(), nil).DailyAmounts(context.Background())
	require.ErrorContains(t, err, "conn reset")
}
