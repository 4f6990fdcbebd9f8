package reporting

import (
	"testing"
	"time"

	"cloud.google.com/go/civil"
	"github.com/stretchr/testify/require"
)

func day(m time.Month, d int) civil.Date {
	return civil.Date{Year: 2023, Month: m, Day: d}
}

func TestDailyConcatenatesRepeatedGroups(t *testing.T) {
	groups := []DailyAmounts{
		{Broker: "A", Date: day(time.October, 17), Amounts: []float64{3589, 50000}},
		{Broker: "A", Date: day(time.October, 17), Amounts: []float64{35890, 10}},
	}
	report := Aggregate(groups)
	periods, ok := report.Get("A")
	require.True(t, ok)

	amounts, ok := periods.Daily.Get("2023-10-17")
	require.True(t, ok)
	require.Equal(t, []float64{50000, 35890, 3589, 10}, amounts)
	for i := 1; i < len(amounts); i++ {
		require.Greater(t, amounts[i-1], amounts[i])
	}
}

func TestAggregateDoesNotModifyInput(t *testing.T) {
	groups := []DailyAmounts{{Broker: "A", Date: day(time.October, 17), Amounts: []float64{1, 3, 2}}}
	Aggregate(groups)
	require.Equal(t, []float64{1, 3, 2}, groups[0].Amounts)
}

func TestWeeklyWindows(t *testing.T) {
	groups := []DailyAmounts{
		{Broker: "A", Date: day(time.October, 17), Amounts: []float64{35890}},
		{Broker: "A", Date: day(time.October, 18), Amounts: []float64{3589}},
		{Broker: "A", Date: day(time.October, 23), Amounts: []float64{100}},
		{Broker: "A", Date: day(time.October, 24), Amounts: []float64{200}},
		{Broker: "A", Date: day(time.November, 2), Amounts: []float64{300}},
	}
	periods, _ := Aggregate(groups).Get("A")

	require.Equal(t, []string{
		"2023-10-17 - 2023-10-23",
		"2023-10-24 - 2023-10-30",
		"2023-11-02 - 2023-11-08",
	}, periods.Weekly.Keys())

	first, _ := periods.Weekly.Get("2023-10-17 - 2023-10-23")
	require.Equal(t, []float64{35890, 3589, 100}, first)
	second, _ := periods.Weekly.Get("2023-10-24 - 2023-10-30")
	require.Equal(t, []float64{200}, second)
}

func TestWeeklyNeverAssignsDateTwice(t *testing.T) {
	// Out-of-order input: the later anchor must not absorb dates already
	// taken by an earlier window.
	groups := []DailyAmounts{
		{Broker: "A", Date: day(time.October, 20), Amounts: []float64{1}},
		{Broker: "A", Date: day(time.October, 15), Amounts: []float64{2}},
		{Broker: "A", Date: day(time.October, 22), Amounts: []float64{3}},
		{Broker: "A", Date: day(time.October, 26), Amounts: []float64{4}},
	}
	periods, _ := Aggregate(groups).Get("A")

	total := 0
	periods.Weekly.Each(func(_ string, amounts []float64) {
		total += len(amounts)
	})
	require.Equal(t, 4, total)

	first, _ := periods.Weekly.Get("2023-10-20 - 2023-10-26")
	require.Equal(t, []float64{4, 3, 1}, first)
	second, _ := periods.Weekly.Get("2023-10-15 - 2023-10-21")
	require.Equal(t, []float64{2}, second)
}

func TestMonthlyMergesByMonthName(t *testing.T) {
	groups := []DailyAmounts{
		{Broker: "A", Date: day(time.October, 17), Amounts: []float64{10}},
		{Broker: "A", Date: day(time.October, 30), Amounts: []float64{30, 20}},
		{Broker: "A", Date: day(time.November, 1), Amounts: []float64{5}},
		{Broker: "A", Date: civil.Date{Year: 2024, Month: time.October, Day: 2}, Amounts: []float64{25}},
	}
	periods, _ := Aggregate(groups).Get("A")

	require.Equal(t, []string{"October", "November"}, periods.Monthly.Keys())
	october, _ := periods.Monthly.Get("October")
	require.Equal(t, []float64{30, 25, 20, 10}, october)
}

func TestAggregateKeepsBrokersApart(t *testing.T) {
	groups := []DailyAmounts{
		{Broker: "B", Date: day(time.October, 17), Amounts: []float64{1}},
		{Broker: "A", Date: day(time.October, 17), Amounts: []float64{2}},
	}
	report := Aggregate(groups)
	require.Equal(t, []string{"B", "A"}, report.Keys())
	a, _ := report.Get("A")
	amounts, _ := a.Daily.Get("2023-10-17")
	require.Equal(t, []float64{2}, amounts)
}
