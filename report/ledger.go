package report

import (
	"bytes"
	"context"
	"fmt"
	"html/template"
	"strconv"

	"github.com/brokerledger/brokerledger/internal/reporting"
)

var ledgerTemplate = template.Must(template.New("ledger").Funcs(template.FuncMap{
	"money": formatMoney,
}).Parse(`<!DOCTYPE html>
<html><head><meta charset="utf-8"><title>Broker loan report</title>
<style>
body { font-family: sans-serif; font-size: 11px; }
table { border-collapse: collapse; margin-bottom: 16px; }
th, td { border: 1px solid #999; padding: 3px 6px; }
td.num { text-align: right; }
</style></head>
<body>
<h1>Broker loan report</h1>
<p>Generated at {{ .GeneratedAt.Format "2006-01-02 15:04 MST" }}</p>

<h2>Total loan amount per day</h2>
<table><tr><th>Date</th><th>Total</th></tr>
{{- range .Totals }}
<tr><td>{{ .Key }}</td><td class="num">{{ money .Value }}</td></tr>
{{- end }}
</table>

<h2>Tier counts per day</h2>
<table><tr><th>Date</th><th>Tier 1</th><th>Tier 2</th><th>Tier 3</th></tr>
{{- range .Tiers }}
<tr><td>{{ .Key }}</td><td class="num">{{ .Value.Tier1 }}</td><td class="num">{{ .Value.Tier2 }}</td><td class="num">{{ .Value.Tier3 }}</td></tr>
{{- end }}
</table>

{{- range .Brokers }}
<h2>{{ .Name }}</h2>
{{- range .Periods }}
<h3>{{ .Kind }}</h3>
<table><tr><th>Period</th><th>Loans</th><th>Amounts</th></tr>
{{- range .Rows }}
<tr><td>{{ .Key }}</td><td class="num">{{ len .Value }}</td><td>{{ range $i, $a := .Value }}{{ if $i }}, {{ end }}{{ money $a }}{{ end }}</td></tr>
{{- end }}
</table>
{{- end }}
{{- end }}
</body></html>
`))

type entry[V any] struct {
	Key   string
	Value V
}

type periodView struct {
	Kind string
	Rows []entry[[]float64]
}

type brokerView struct {
	Name    string
	Periods []periodView
}

type ledgerView struct {
	reporting.Reports
	Totals  []entry[float64]
	Tiers   []entry[reporting.TierCounts]
	Brokers []brokerView
}

func entries[V any](m reporting.OrderedMap[V]) []entry[V] {
	out := make([]entry[V], 0, m.Len())
	m.Each(func(k string, v V) {
		out = append(out, entry[V]{Key: k, Value: v})
	})
	return out
}

// RenderLedgerHTML renders every report into one HTML document.
func RenderLedgerHTML(r reporting.Reports) (string, error) {
	view := ledgerView{
		Reports: r,
		Totals:  entries(r.Totals),
		Tiers:   entries(r.Tiers),
	}
	r.Brokers.Each(func(name string, p reporting.BrokerPeriods) {
		view.Brokers = append(view.Brokers, brokerView{
			Name: name,
			Periods: []periodView{
				{Kind: "Daily", Rows: entries(p.Daily)},
				{Kind: "Weekly", Rows: entries(p.Weekly)},
				{Kind: "Monthly", Rows: entries(p.Monthly)},
			},
		})
	})
	var buf bytes.Buffer
	if err := ledgerTemplate.Execute(&buf, view); err != nil {
		return "", fmt.Errorf("report: render template: %w", err)
	}
	return buf.String(), nil
}

// Renderer turns reports into PDF bytes.
type Renderer struct {
	client *Client
}

// NewRenderer constructs a renderer backed by Gotenberg.
func NewRenderer(client *Client) *Renderer {
	return &Renderer{client: client}
}

// RenderReports renders r to PDF.
func (r *Renderer) RenderReports(ctx context.Context, reports reporting.Reports) ([]byte, error) {
	if r == nil || r.client == nil {
		return nil, fmt.Errorf("report: renderer not initialised")
	}
	html, err := RenderLedgerHTML(reports)
	if err != nil {
		return nil, err
	}
	return r.client.RenderHTML(ctx, html)
}

// Ping reports whether Gotenberg is reachable.
func (r *Renderer) Ping(ctx context.Context) error {
	if r == nil || r.client == nil {
		return fmt.Errorf("report: renderer not initialised")
	}
	return r.client.Ping(ctx)
}

func formatMoney(v float64) string {
	return strconv.FormatFloat(v, 'f', 2, 64)
}
