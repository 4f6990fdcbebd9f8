package reporting

import (
	"time"

	"github.com/shopspring/decimal"
)

// BrokerReport maps broker to its period buckets.
type BrokerReport = OrderedMap[BrokerPeriods]

// TotalsReport maps a settlement date (YYYY-MM-DD) to the summed loan amount
// across brokers.
type TotalsReport = OrderedMap[float64]

// TierReport maps a settlement date (YYYY-MM-DD) to its tier counts.
type TierReport = OrderedMap[TierCounts]

// Reports bundles every report built from one grouped dataset.
type Reports struct {
	Brokers     BrokerReport `json:"brokers"`
	Totals      TotalsReport `json:"totals"`
	Tiers       TierReport   `json:"tiers"`
	GeneratedAt time.Time    `json:"generated_at"`
}

// BuildBrokerReport buckets amounts per broker by day, week and month.
func BuildBrokerReport(groups []DailyAmounts) BrokerReport {
	return Aggregate(groups)
}

// BuildTotalsReport sums every amount per date across brokers.
func BuildTotalsReport(groups []DailyAmounts) TotalsReport {
	var order []string
	sums := make(map[string]decimal.Decimal)
	for _, g := range groups {
		key := g.Date.String()
		sum, ok := sums[key]
		if !ok {
			order = append(order, key)
		}
		for _, amount := range g.Amounts {
			sum = sum.Add(decimal.NewFromFloat(amount))
		}
		sums[key] = sum
	}
	var out TotalsReport
	for _, key := range order {
		out.Set(key, sums[key].InexactFloat64())
	}
	return out
}

// BuildTierReport counts classified amounts per date. Every date seen gets
// all three counters, even when they are zero.
func BuildTierReport(groups []DailyAmounts) TierReport {
	var out TierReport
	for _, g := range groups {
		key := g.Date.String()
		counts, _ := out.Get(key)
		for _, amount := range g.Amounts {
			counts.Add(amount)
		}
		out.Set(key, counts)
	}
	return out
}

// Build produces all three reports from one dataset.
func Build(groups []DailyAmounts, now time.Time) Reports {
	return Reports{
		Brokers:     BuildBrokerReport(groups),
		Totals:      BuildTotalsReport(groups),
		Tiers:       BuildTierReport(groups),
		GeneratedAt: now.UTC(),
	}
}
