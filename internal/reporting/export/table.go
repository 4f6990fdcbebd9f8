// Package export flattens reports into tables and writes them as CSV or XLSX.
package export

import (
	"github.com/brokerledger/brokerledger/internal/reporting"
)

// Table is a flat rendering of one report.
type Table struct {
	Name   string
	Header []string
	Rows   [][]any
}

// BrokerTable emits one row per amount: broker, period kind, label, amount.
func BrokerTable(report reporting.BrokerReport) Table {
	t := Table{Name: "Brokers", Header: []string{"Broker", "Period", "Label", "Amount"}}
	report.Each(func(broker string, p reporting.BrokerPeriods) {
		for _, period := range []struct {
			kind   string
			series reporting.Series
		}{
			{"daily", p.Daily},
			{"weekly", p.Weekly},
			{"monthly", p.Monthly},
		} {
			period.series.Each(func(label string, amounts []float64) {
				for _, a := range amounts {
					t.Rows = append(t.Rows, []any{broker, period.kind, label, a})
				}
			})
		}
	})
	return t
}

// TotalsTable emits one row per settlement date.
func TotalsTable(report reporting.TotalsReport) Table {
	t := Table{Name: "Totals", Header: []string{"Date", "Total Loan Amount"}}
	report.Each(func(date string, total float64) {
		t.Rows = append(t.Rows, []any{date, total})
	})
	return t
}

// TierTable emits one row per settlement date with all three counters.
func TierTable(report reporting.TierReport) Table {
	t := Table{Name: "Tiers", Header: []string{"Date", "Tier 1", "Tier 2", "Tier 3"}}
	report.Each(func(date string, c reporting.TierCounts) {
		t.Rows = append(t.Rows, []any{date, c.Tier1, c.Tier2, c.Tier3})
	})
	return t
}
