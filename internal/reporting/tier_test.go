package reporting

import (
	"testing"

	"github.com/stretchr/testify/require"
)

func TestClassify(t *testing.T) {
	cases := map[float64]Tier{
		150000:    Tier1,
		100000.01: Tier1,
		100000:    Tier2,
		75000:     Tier2,
		50000:     Tier3,
		25000:     Tier3,
		10000:     Unclassified,
		5000:      Unclassified,
		0:         Unclassified,
	}
	for amount, want := range cases {
		require.Equal(t, want, Classify(amount), "amount %.2f", amount)
	}
}

func TestTierCountsAdd(t *testing.T) {
	var counts TierCounts
	amounts := []float64{150000, 75000, 25000, 5000}
	for _, a := range amounts {
		counts.Add(a)
	}
	require.Equal(t, TierCounts{Tier1: 1, Tier2: 1, Tier3: 1}, counts)
	require.Equal(t, 3, counts.Total())
}

func TestTierString(t *testing.T) {
	require.Equal(t, "tier1", Tier1.String())
	require.Equal(t, "unclassified", Unclassified.String())
}
