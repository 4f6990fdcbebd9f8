package statement

import (
	"context"
	"fmt"
	"log/slog"
	"strconv"
	"strings"
	"time"

	"cloud.google.com/go/civil"
)

// Delimiter separates the cells of an extracted table row.
const Delimiter = ","

// Source supplies the raw pieces of a statement document.
type Source interface {
	// HeaderText returns the text of the first page.
	HeaderText(ctx context.Context) (string, error)
	// TableRows returns the data rows of the single statement table, header excluded.
	TableRows(ctx context.Context) ([]string, error)
}

// Parser turns statement documents into records.
type Parser struct {
	layout   Layout
	classify TokenClassifier
	logger   *slog.Logger
}

// Option customises a Parser.
type Option func(*Parser)

// WithLayout overrides the column layout.
func WithLayout(layout Layout) Option {
	return func(p *Parser) {
		p.layout = layout
	}
}

// WithTokenClassifier overrides how borrower-name words are told apart from description words.
func WithTokenClassifier(classify TokenClassifier) Option {
	return func(p *Parser) {
		if classify != nil {
			p.classify = classify
		}
	}
}

// WithLogger sets the logger used for parse diagnostics.
func WithLogger(logger *slog.Logger) Option {
	return func(p *Parser) {
		p.logger = logger
	}
}

// NewParser builds a Parser for the default statement layout.
func NewParser(opts ...Option) *Parser {
	p := &Parser{
		layout:   DefaultLayout(),
		classify: ClassifyByCase,
	}
	for _, opt := range opts {
		opt(p)
	}
	if p.logger == nil {
		p.logger = slog.Default()
	}
	return p
}

// Parse validates the document header and converts every table row. The first
// malformed row aborts the parse and no records are returned.
func (p *Parser) Parse(ctx context.Context, src Source) ([]Record, error) {
	header, err := src.HeaderText(ctx)
	if err != nil {
		return nil, fmt.Errorf("%w: read header: %w", ErrDocumentFormat, err)
	}
	if err := ValidateHeader(header); err != nil {
		return nil, err
	}

	rows, err := src.TableRows(ctx)
	if err != nil {
		return nil, fmt.Errorf("%w: %w", ErrTableExtraction, err)
	}

	records := make([]Record, 0, len(rows))
	for i, row := range rows {
		row = strings.TrimRight(row, "\r\n")
		if row == "" {
			continue
		}
		rec, err := p.ParseRow(row)
		if err != nil {
			return nil, &RowError{Row: i + 1, Err: err}
		}
		records = append(records, rec)
	}
	p.logger.Debug("statement parsed", slog.Int("rows", len(rows)), slog.Int("records", len(records)))
	return records, nil
}

// ParseRow converts a single delimited table row into a Record.
func (p *Parser) ParseRow(row string) (Record, error) {
	tokens := JoinSplitFloats(DropPlaceholders(strings.Split(row, Delimiter)))
	fields, err := p.layout.Extract(tokens)
	if err != nil {
		return Record{}, err
	}

	appID, xref, err := parseIdentifiers(fields[FieldAppIDXref])
	if err != nil {
		return Record{}, err
	}
	date, err := ParseSettlementDate(fields[FieldSettlementDate])
	if err != nil {
		return Record{}, err
	}

	name, description, err := SplitNameDescription(fields[FieldBorrowerDescription], p.classify)
	if err != nil {
		return Record{}, err
	}
	var subBroker *string
	if sb, ok := fields[FieldSubBroker]; ok {
		subBroker = &sb
	}
	if name == "" && subBroker != nil && *subBroker != "" {
		sb, bn := SplitSubBrokerName(*subBroker)
		subBroker, name = &sb, bn
	}

	rec := Record{
		AppID:          appID,
		Xref:           xref,
		SettlementDate: date,
		Broker:         fields[FieldBroker],
		SubBroker:      subBroker,
		BorrowerName:   name,
		Description:    description,
	}
	amounts := []struct {
		field FieldName
		dest  *float64
	}{
		{FieldTotalLoanAmount, &rec.TotalLoanAmount},
		{FieldCommRate, &rec.CommRate},
		{FieldUpfront, &rec.Upfront},
		{FieldUpfrontInclGST, &rec.UpfrontInclGST},
	}
	for _, a := range amounts {
		v, err := parseAmount(a.field, fields[a.field])
		if err != nil {
			return Record{}, err
		}
		*a.dest = v
	}
	return rec, nil
}

// ParseSettlementDate parses a dd/mm/yyyy date.
func ParseSettlementDate(s string) (civil.Date, error) {
	parts := strings.Split(strings.TrimSpace(s), "/")
	if len(parts) != 3 {
		return civil.Date{}, fmt.Errorf("%w: settlement date %q is not dd/mm/yyyy", ErrValueFormat, s)
	}
	nums := make([]int, len(parts))
	for i, part := range parts {
		n, err := strconv.Atoi(strings.TrimSpace(part))
		if err != nil {
			return civil.Date{}, fmt.Errorf("%w: settlement date %q is not dd/mm/yyyy", ErrValueFormat, s)
		}
		nums[i] = n
	}
	d := civil.Date{Year: nums[2], Month: time.Month(nums[1]), Day: nums[0]}
	if !d.IsValid() || d.Year < 1 || d.Year > 9999 {
		return civil.Date{}, fmt.Errorf("%w: settlement date %q is out of range", ErrValueFormat, s)
	}
	return d, nil
}

func parseIdentifiers(s string) (appID, xref int64, err error) {
	parts := strings.Fields(s)
	if len(parts) != 2 {
		return 0, 0, fmt.Errorf("%w: app id/xref %q must hold two numbers", ErrValueFormat, s)
	}
	appID, err = strconv.ParseInt(parts[0], 10, 64)
	if err != nil {
		return 0, 0, fmt.Errorf("%w: app id %q", ErrValueFormat, parts[0])
	}
	xref, err = strconv.ParseInt(parts[1], 10, 64)
	if err != nil {
		return 0, 0, fmt.Errorf("%w: xref %q", ErrValueFormat, parts[1])
	}
	return appID, xref, nil
}

func parseAmount(field FieldName, s string) (float64, error) {
	v, err := strconv.ParseFloat(strings.TrimSpace(s), 64)
	if err != nil {
		return 0, fmt.Errorf("%w: %s %q", ErrValueFormat, field, s)
	}
	return v, nil
}
