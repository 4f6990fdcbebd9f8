package reporting

import (
	"fmt"
	"slices"

	"cloud.google.com/go/civil"
)

// weekSpan is the number of days after an anchor date that a weekly window
// covers.
const weekSpan = 6

// DailyAmounts is one (broker, settlement date) group of loan amounts as
// returned by the store.
type DailyAmounts struct {
	Broker  string     `json:"broker"`
	Date    civil.Date `json:"date"`
	Amounts []float64  `json:"amounts"`
}

// Series maps a period label to its amounts, sorted descending.
type Series = OrderedMap[[]float64]

// BrokerPeriods holds one broker's amounts bucketed three ways.
type BrokerPeriods struct {
	Daily   Series `json:"daily"`
	Weekly  Series `json:"weekly"`
	Monthly Series `json:"monthly"`
}

// dailyBook collects one broker's amounts per date in first-seen order.
type dailyBook struct {
	dates   []civil.Date
	amounts map[civil.Date][]float64
}

func newDailyBook() *dailyBook {
	return &dailyBook{amounts: make(map[civil.Date][]float64)}
}

func (b *dailyBook) add(date civil.Date, amounts []float64) {
	existing, ok := b.amounts[date]
	if !ok {
		b.dates = append(b.dates, date)
	}
	b.amounts[date] = append(existing, amounts...)
}

// groupByBroker splits groups per broker, keeping first-seen broker order.
// Groups repeating a (broker, date) pair are concatenated.
func groupByBroker(groups []DailyAmounts) ([]string, map[string]*dailyBook) {
	var brokers []string
	books := make(map[string]*dailyBook)
	for _, g := range groups {
		book, ok := books[g.Broker]
		if !ok {
			book = newDailyBook()
			books[g.Broker] = book
			brokers = append(brokers, g.Broker)
		}
		book.add(g.Date, g.Amounts)
	}
	return brokers, books
}

// Aggregate buckets grouped amounts per broker into daily, weekly and
// monthly series. Input is never modified.
func Aggregate(groups []DailyAmounts) OrderedMap[BrokerPeriods] {
	brokers, books := groupByBroker(groups)
	var out OrderedMap[BrokerPeriods]
	for _, broker := range brokers {
		book := books[broker]
		out.Set(broker, BrokerPeriods{
			Daily:   book.daily(),
			Weekly:  book.weekly(),
			Monthly: book.monthly(),
		})
	}
	return out
}

func (b *dailyBook) daily() Series {
	var s Series
	for _, d := range b.dates {
		s.Set(d.String(), sortedDesc(b.amounts[d]))
	}
	return s
}

// weekly walks dates in first-seen order. Each unconsumed date anchors a
// window [anchor, anchor+6] absorbing every unconsumed date inside it, so no
// date lands in two windows.
func (b *dailyBook) weekly() Series {
	var s Series
	consumed := make(map[civil.Date]bool, len(b.dates))
	for _, anchor := range b.dates {
		if consumed[anchor] {
			continue
		}
		consumed[anchor] = true
		end := anchor.AddDays(weekSpan)
		merged := append([]float64(nil), b.amounts[anchor]...)
		for _, d := range b.dates {
			if consumed[d] || d.Before(anchor) || d.After(end) {
				continue
			}
			consumed[d] = true
			merged = append(merged, b.amounts[d]...)
		}
		s.Set(WeekLabel(anchor), sortedDesc(merged))
	}
	return s
}

// monthly buckets by month name alone, so the same month of different years
// shares a bucket.
func (b *dailyBook) monthly() Series {
	var s Series
	for _, d := range b.dates {
		key := d.Month.String()
		bucket, _ := s.Get(key)
		s.Set(key, append(bucket, b.amounts[d]...))
	}
	for _, key := range s.keys {
		slices.Sort(s.values[key])
		slices.Reverse(s.values[key])
	}
	return s
}

// WeekLabel renders the window anchored at d.
func WeekLabel(d civil.Date) string {
	return fmt.Sprintf("%s - %s", d, d.AddDays(weekSpan))
}

func sortedDesc(in []float64) []float64 {
	out := append([]float64(nil), in...)
	slices.Sort(out)
	slices.Reverse(out)
	return out
}
