package ledger

import (
	"fmt"
	"strings"
)

// Column describes one table column.
type Column struct {
	Name     string
	Type     string
	Nullable bool
}

// Schema is the immutable table descriptor shared by inserts, queries and
// bootstrap. Build it once with TransactionSchema and pass it explicitly.
type Schema struct {
	table   string
	key     string
	columns []Column
	unique  []string

	createSQL string
	insertSQL string
}

// NewSchema validates the descriptor and renders its statements.
func NewSchema(table, key string, columns []Column, unique []string) (Schema, error) {
	if table == "" || key == "" || len(columns) == 0 {
		return Schema{}, fmt.Errorf("ledger: schema: table, key and columns are required")
	}
	known := make(map[string]struct{}, len(columns))
	for _, c := range columns {
		if c.Name == "" || c.Type == "" {
			return Schema{}, fmt.Errorf("ledger: schema: column name and type are required")
		}
		if _, dup := known[c.Name]; dup {
			return Schema{}, fmt.Errorf("ledger: schema: duplicate column %q", c.Name)
		}
		known[c.Name] = struct{}{}
	}
	for _, u := range unique {
		if _, ok := known[u]; !ok {
			return Schema{}, fmt.Errorf("ledger: schema: unique column %q is not defined", u)
		}
	}

	s := Schema{
		table:   table,
		key:     key,
		columns: append([]Column(nil), columns...),
		unique:  append([]string(nil), unique...),
	}
	s.createSQL = s.renderCreate()
	s.insertSQL = s.renderInsert()
	return s, nil
}

// TransactionSchema is the descriptor for stored commission statement rows.
func TransactionSchema() Schema {
	s, err := NewSchema("transactions", "id", []Column{
		{Name: "app_id", Type: "BIGINT"},
		{Name: "xref", Type: "BIGINT"},
		{Name: "settlement_date", Type: "DATE"},
		{Name: "broker", Type: "VARCHAR(250)"},
		{Name: "sub_broker", Type: "VARCHAR(250)", Nullable: true},
		{Name: "borrower_name", Type: "VARCHAR(250)"},
		{Name: "description", Type: "VARCHAR(500)", Nullable: true},
		{Name: "total_loan_amount", Type: "DOUBLE PRECISION"},
		{Name: "comm_rate", Type: "DOUBLE PRECISION"},
		{Name: "upfront", Type: "DOUBLE PRECISION"},
		{Name: "upfront_incl_gst", Type: "DOUBLE PRECISION"},
	}, []string{"xref", "total_loan_amount"})
	if err != nil {
		panic(err)
	}
	return s
}

// Table returns the table name.
func (s Schema) Table() string { return s.table }

// Columns returns a copy of the data columns in insert order.
func (s Schema) Columns() []Column { return append([]Column(nil), s.columns...) }

// Unique returns a copy of the natural-key columns.
func (s Schema) Unique() []string { return append([]string(nil), s.unique...) }

// CreateTableSQL returns an idempotent CREATE TABLE statement.
func (s Schema) CreateTableSQL() string { return s.createSQL }

// InsertSQL returns a positional INSERT covering every data column.
func (s Schema) InsertSQL() string { return s.insertSQL }

func (s Schema) renderCreate() string {
	var b strings.Builder
	fmt.Fprintf(&b, "CREATE TABLE IF NOT EXISTS %s (\n", s.table)
	fmt.Fprintf(&b, "    %s BIGSERIAL PRIMARY KEY", s.key)
	for _, c := range s.columns {
		fmt.Fprintf(&b, ",\n    %s %s", c.Name, c.Type)
		if !c.Nullable {
			b.WriteString(" NOT NULL")
		}
	}
	if len(s.unique) > 0 {
		fmt.Fprintf(&b, ",\n    CONSTRAINT %s_%s_key UNIQUE (%s)", s.table, strings.Join(s.unique, "_"), strings.Join(s.unique, ", "))
	}
	b.WriteString("\n)")
	return b.String()
}

func (s Schema) renderInsert() string {
	names := make([]string, len(s.columns))
	params := make([]string, len(s.columns))
	for i, c := range s.columns {
		names[i] = c.Name
		params[i] = fmt.Sprintf("$%d", i+1)
	}
	return fmt.Sprintf("INSERT INTO %s (%s) VALUES (%s)", s.table, strings.Join(names, ", "), strings.Join(params, ", "))
}

func (s Schema) sumBetweenSQL() string {
	return fmt.Sprintf("SELECT SUM(total_loan_amount) FROM %s WHERE settlement_date BETWEEN $1 AND $2", s.table)
}

func (s Schema) maxByBrokerSQL() string {
	return fmt.Sprintf("SELECT MAX(total_loan_amount) FROM %s WHERE broker = $1", s.table)
}

func (s Schema) groupedSQL() string {
	return fmt.Sprintf(`SELECT broker, settlement_date, array_agg(total_loan_amount ORDER BY total_loan_amount DESC)
FROM %s
GROUP BY broker, settlement_date
ORDER BY broker, settlement_date`, s.table)
}
