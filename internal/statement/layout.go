package statement

import "fmt"

// FieldName identifies a column of the statement table.
type FieldName string

const (
	FieldAppIDXref           FieldName = "app_id_xref"
	FieldSettlementDate      FieldName = "settlement_date"
	FieldBroker              FieldName = "broker"
	FieldSubBroker           FieldName = "sub_broker"
	FieldBorrowerDescription FieldName = "borrower_name_description"
	FieldTotalLoanAmount     FieldName = "total_loan_amount"
	FieldCommRate            FieldName = "comm_rate"
	FieldUpfront             FieldName = "upfront"
	FieldUpfrontInclGST      FieldName = "upfront_incl_gst"
)

// Anchor tells which end of a row a field offset is counted from.
type Anchor int

const (
	FromFront Anchor = iota
	FromBack
)

// FieldSpec places one named field inside a reconstructed row.
// Offset is the distance from the anchored end: 0 is the first token when
// anchored at the front, 1 is the last token when anchored at the back.
type FieldSpec struct {
	Name     FieldName
	Anchor   Anchor
	Offset   int
	Optional bool
}

// Layout describes where each column sits in a reconstructed row. Optional
// columns shift the front-anchored fields that follow them, so they are only
// read when the row has exactly FullWidth tokens; back-anchored fields never move.
type Layout struct {
	Fields    []FieldSpec
	FullWidth int
}

// DefaultLayout is the fixed column layout of the commission statement.
func DefaultLayout() Layout {
	return Layout{
		Fields: []FieldSpec{
			{Name: FieldAppIDXref, Anchor: FromFront, Offset: 0},
			{Name: FieldSettlementDate, Anchor: FromFront, Offset: 1},
			{Name: FieldBroker, Anchor: FromFront, Offset: 2},
			{Name: FieldSubBroker, Anchor: FromFront, Offset: 3, Optional: true},
			{Name: FieldBorrowerDescription, Anchor: FromBack, Offset: 5},
			{Name: FieldTotalLoanAmount, Anchor: FromBack, Offset: 4},
			{Name: FieldCommRate, Anchor: FromBack, Offset: 3},
			{Name: FieldUpfront, Anchor: FromBack, Offset: 2},
			{Name: FieldUpfrontInclGST, Anchor: FromBack, Offset: 1},
		},
		FullWidth: 9,
	}
}

// MinWidth is the number of tokens needed to hold every required field.
func (l Layout) MinWidth() int {
	width := 0
	for _, f := range l.Fields {
		if !f.Optional {
			width++
		}
	}
	return width
}

// Index resolves the token position of a field in a row of the given width.
// The second result is false when the field is absent from such a row.
func (l Layout) Index(name FieldName, width int) (int, bool) {
	for _, f := range l.Fields {
		if f.Name != name {
			continue
		}
		if f.Optional && width != l.FullWidth {
			return 0, false
		}
		idx := f.Offset
		if f.Anchor == FromBack {
			idx = width - f.Offset
		}
		if idx < 0 || idx >= width {
			return 0, false
		}
		return idx, true
	}
	return 0, false
}

// Extract maps the tokens of a reconstructed row onto field names.
func (l Layout) Extract(tokens []string) (map[FieldName]string, error) {
	if want := l.MinWidth(); len(tokens) < want {
		return nil, fmt.Errorf("%w: row has %d fields, want at least %d", ErrValueFormat, len(tokens), want)
	}
	values := make(map[FieldName]string, len(l.Fields))
	for _, f := range l.Fields {
		idx, ok := l.Index(f.Name, len(tokens))
		if !ok {
			continue
		}
		values[f.Name] = tokens[idx]
	}
	return values, nil
}
