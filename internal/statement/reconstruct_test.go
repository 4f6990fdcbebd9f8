package statement

import (
	"errors"
	"testing"

	"github.com/stretchr/testify/require"
)

func TestJoinSplitFloats(t *testing.T) {
	cases := []struct {
		name string
		in   []string
		want []string
	}{
		{
			name: "two fragments",
			in:   []string{"a", `"35`, `890.00"`, "0.55"},
			want: []string{"a", "35890.00", "0.55"},
		},
		{
			name: "three fragments",
			in:   []string{`"1`, `250`, `000.00"`, "0.65", `"8`, `125.00"`},
			want: []string{"1250000.00", "0.65", "8125.00"},
		},
		{
			name: "clean tokens untouched",
			in:   []string{"80185884 100305936", "17/10/2023", "710.62"},
			want: []string{"80185884 100305936", "17/10/2023", "710.62"},
		},
		{
			name: "quoted text is not a number",
			in:   []string{`"Smith`, `Jones"`},
			want: []string{`"Smith`, `Jones"`},
		},
		{
			name: "already closed literal",
			in:   []string{`"890.00"`, "next"},
			want: []string{"890.00", "next"},
		},
		{
			name: "unterminated literal runs to row end",
			in:   []string{"x", `"12`, "345"},
			want: []string{"x", "12345"},
		},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			require.Equal(t, tc.want, JoinSplitFloats(tc.in))
		})
	}
}

func TestJoinSplitFloatsIdempotent(t *testing.T) {
	once := JoinSplitFloats([]string{"x", `"35`, `890.00"`})
	require.Equal(t, once, JoinSplitFloats(once))
}

func TestDropPlaceholders(t *testing.T) {
	got := DropPlaceholders([]string{"", "80185884 100305936", "Unnamed: 3", "", "Broker"})
	require.Equal(t, []string{"80185884 100305936", "Broker"}, got)
}

func TestSplitNameDescription(t *testing.T) {
	name, desc, err := SplitNameDescription("CHELSEA BIANCA VANDERAA Upfront Commission", nil)
	require.NoError(t, err)
	require.Equal(t, "CHELSEA BIANCA VANDERAA", name)
	require.Equal(t, "Upfront Commission", desc)

	name, desc, err = SplitNameDescription("Upfront Commission", ClassifyByCase)
	require.NoError(t, err)
	require.Empty(t, name)
	require.Equal(t, "Upfront Commission", desc)
}

func TestSplitNameDescriptionWithoutBoundary(t *testing.T) {
	_, _, err := SplitNameDescription("CHELSEA BIANCA VANDERAA", nil)
	require.Error(t, err)
	require.True(t, errors.Is(err, ErrFieldReconstruction))
}

func TestSplitNameDescriptionCustomClassifier(t *testing.T) {
	// Every word after the first is description.
	first := true
	classify := func(string) TokenKind {
		if first {
			first = false
			return NameToken
		}
		return DescriptionToken
	}
	name, desc, err := SplitNameDescription("La'Porte Trail Commission", classify)
	require.NoError(t, err)
	require.Equal(t, "La'Porte", name)
	require.Equal(t, "Trail Commission", desc)
}

func TestSplitSubBrokerName(t *testing.T) {
	cases := []struct {
		in            string
		sub, borrower string
	}{
		{"Aagam Pabari ANJAN GUPTA", "Aagam Pabari", "ANJAN GUPTA"},
		{"Rhiannon Clancy-BurnsSARA FLOWER", "Rhiannon Clancy-Burns", "SARA FLOWER"},
		{"ANJAN GUPTA", "ANJAN GUPTA", ""},
		{"Aagam Pabari", "Aagam Pabari", ""},
	}
	for _, tc := range cases {
		sub, borrower := SplitSubBrokerName(tc.in)
		require.Equal(t, tc.sub, sub, tc.in)
		require.Equal(t, tc.borrower, borrower, tc.in)
	}
}

func TestClassifyByCase(t *testing.T) {
	require.Equal(t, NameToken, ClassifyByCase("VANDERAA"))
	require.Equal(t, NameToken, ClassifyByCase("O'NEIL-SMITH"))
	require.Equal(t, DescriptionToken, ClassifyByCase("Upfront"))
	require.Equal(t, DescriptionToken, ClassifyByCase("La'Porte"))
}
