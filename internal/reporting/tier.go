package reporting

// Tier is a loan amount bracket.
type Tier int

const (
	Unclassified Tier = iota
	Tier1
	Tier2
	Tier3
)

// Tier thresholds; an amount must be strictly above a bound to reach it.
const (
	Tier1Floor = 100_000.0
	Tier2Floor = 50_000.0
	Tier3Floor = 10_000.0
)

func (t Tier) String() string {
	switch t {
	case Tier1:
		return "tier1"
	case Tier2:
		return "tier2"
	case Tier3:
		return "tier3"
	default:
		return "unclassified"
	}
}

// Classify maps amount to its tier. Amounts at or below Tier3Floor are
// Unclassified.
func Classify(amount float64) Tier {
	switch {
	case amount > Tier1Floor:
		return Tier1
	case amount > Tier2Floor:
		return Tier2
	case amount > Tier3Floor:
		return Tier3
	default:
		return Unclassified
	}
}

// TierCounts counts classified amounts for one day.
type TierCounts struct {
	Tier1 int `json:"tier1"`
	Tier2 int `json:"tier2"`
	Tier3 int `json:"tier3"`
}

// Add classifies amount and increments the matching counter.
func (c *TierCounts) Add(amount float64) Tier {
	tier := Classify(amount)
	switch tier {
	case Tier1:
		c.Tier1++
	case Tier2:
		c.Tier2++
	case Tier3:
		c.Tier3++
	}
	return tier
}

// Total is the number of classified amounts.
func (c TierCounts) Total() int {
	return c.Tier1 + c.Tier2 + c.Tier3
}
