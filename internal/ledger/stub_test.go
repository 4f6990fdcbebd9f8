package ledger

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgtype"
)

type uniqueKey struct {
	xref   int64
	amount float64
}

// memoryDB enforces the (xref, total_loan_amount) constraint in memory.
type memoryDB struct {
	rows    map[uniqueKey][]any
	execErr error
	execs   []string

	row   func(sql string, args ...any) pgx.Row
	query func(sql string, args ...any) (pgx.Rows, error)
}

func newMemoryDB() *memoryDB {
	return &memoryDB{rows: make(map[uniqueKey][]any)}
}

func (m *memoryDB) Exec(_ context.Context, sql string, args ...any) (pgconn.CommandTag, error) {
	m.execs = append(m.execs, sql)
	if m.execErr != nil {
		return pgconn.CommandTag{}, m.execErr
	}
	if strings.HasPrefix(sql, "INSERT") {
		key := uniqueKey{xref: args[1].(int64), amount: args[7].(float64)}
		if _, exists := m.rows[key]; exists {
			return pgconn.CommandTag{}, &pgconn.PgError{Code: "23505", Message: "duplicate key value violates unique constraint"}
		}
		m.rows[key] = args
		return pgconn.NewCommandTag("INSERT 0 1"), nil
	}
	return pgconn.NewCommandTag("OK"), nil
}

func (m *memoryDB) Query(_ context.Context, sql string, args ...any) (pgx.Rows, error) {
	if m.query == nil {
		return nil, errors.New("query not stubbed")
	}
	return m.query(sql, args...)
}

func (m *memoryDB) QueryRow(_ context.Context, sql string, args ...any) pgx.Row {
	if m.row == nil {
		return rowFunc(func(...any) error { return errors.New("row not stubbed") })
	}
	return m.row(sql, args...)
}

type rowFunc func(dest ...any) error

func (f rowFunc) Scan(dest ...any) error { return f(dest...) }

// groupedRows serves (broker, date, amounts) tuples.
type groupedRows struct {
	data [][]any
	pos  int
	err  error
}

func (r *groupedRows) Close()                                       {}
func (r *groupedRows) Err() error                                   { return r.err }
func (r *groupedRows) CommandTag() pgconn.CommandTag                { return pgconn.NewCommandTag("SELECT") }
func (r *groupedRows) FieldDescriptions() []pgconn.FieldDescription { return nil }
func (r *groupedRows) RawValues() [][]byte                          { return nil }
func (r *groupedRows) Conn() *pgx.Conn                              { return nil }

func (r *groupedRows) Next() bool {
	if r.pos >= len(r.data) {
		return false
	}
	r.pos++
	return true
}

func (r *groupedRows) Values() ([]any, error) {
	return r.data[r.pos-1], nil
}

func (r *groupedRows) Scan(dest ...any) error {
	row := r.data[r.pos-1]
	if len(dest) != len(row) {
		return fmt.Errorf("scan: want %d values, got %d", len(row), len(dest))
	}
	for i, d := range dest {
		switch target := d.(type) {
		case *string:
			*target = row[i].(string)
		case *pgtype.Date:
			*target = row[i].(pgtype.Date)
		case *[]float64:
			*target = row[i].([]float64)
		default:
			return fmt.Errorf("scan: unsupported destination %T", d)
		}
	}
	return nil
}
