// Package cli implements the operator commands of the brokerledger binary.
// Commands write to the provided streams and return a process exit code.
package cli

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"os"
	"strings"

	"cloud.google.com/go/civil"
	"golang.org/x/text/language"
	"golang.org/x/text/message"

	"github.com/brokerledger/brokerledger/internal/ingest"
	"github.com/brokerledger/brokerledger/internal/reporting"
	"github.com/brokerledger/brokerledger/internal/reporting/export"
)

// Ingester ingests statement files.
type Ingester interface {
	IngestFiles(ctx context.Context, paths []string, limit int) ([]ingest.Summary, error)
}

// ReportSource builds the loan reports.
type ReportSource interface {
	Reports(ctx context.Context) (reporting.Reports, error)
}

// LoanQueries answers the scalar ledger queries.
type LoanQueries interface {
	LoanAmountBetween(ctx context.Context, from, to civil.Date) (*float64, error)
	MaxLoanByBroker(ctx context.Context, broker string) (*float64, error)
}

// LedgerCLI bundles the ledger commands.
type LedgerCLI struct {
	ingester Ingester
	reports  ReportSource
	loans    LoanQueries
	printer  *message.Printer
}

// NewLedgerCLI constructs the command set. Any dependency may be nil when the
// matching commands are not used.
func NewLedgerCLI(ingester Ingester, reports ReportSource, loans LoanQueries) *LedgerCLI {
	return &LedgerCLI{
		ingester: ingester,
		reports:  reports,
		loans:    loans,
		printer:  message.NewPrinter(language.English),
	}
}

// IngestOptions configures the ingest command.
type IngestOptions struct {
	Paths      []string
	Parallel   int
	JSONOutput bool
	Stdout     io.Writer
	Stderr     io.Writer
}

// IngestCommand parses and stores each statement in opts.Paths.
func (c *LedgerCLI) IngestCommand(ctx context.Context, opts IngestOptions) int {
	stdout, stderr := streams(opts.Stdout, opts.Stderr)
	if c.ingester == nil {
		fmt.Fprintln(stderr, "ingest: not configured")
		return 1
	}
	if len(opts.Paths) == 0 {
		fmt.Fprintln(stderr, "ingest: at least one statement path is required")
		return 1
	}
	for _, p := range opts.Paths {
		if !strings.HasSuffix(strings.ToLower(p), ".pdf") {
			fmt.Fprintf(stderr, "ingest: %s is not a .pdf file\n", p)
			return 1
		}
	}

	summaries, err := c.ingester.IngestFiles(ctx, opts.Paths, opts.Parallel)
	if opts.JSONOutput {
		if encErr := writeJSON(stdout, summaries); encErr != nil {
			fmt.Fprintf(stderr, "ingest: %v\n", encErr)
			return 1
		}
	} else {
		for _, s := range summaries {
			if s.Path == "" {
				continue
			}
			c.printer.Fprintf(stdout, "%s: parsed %d, inserted %d, skipped %d duplicates\n", s.Path, s.Parsed, s.Inserted, s.Skipped)
		}
	}
	if err != nil {
		fmt.Fprintf(stderr, "ingest: %v\n", err)
		if ingest.IsDocumentError(err) {
			return 2
		}
		return 1
	}
	return 0
}

// Report kinds accepted by ReportCommand.
const (
	ReportKindAll     = "all"
	ReportKindBrokers = "brokers"
	ReportKindTotals  = "totals"
	ReportKindTiers   = "tiers"
)

// ReportOptions configures the report command.
type ReportOptions struct {
	Kind   string
	Format string
	Stdout io.Writer
	Stderr io.Writer
}

// ReportCommand renders one or all reports as JSON, CSV or XLSX.
func (c *LedgerCLI) ReportCommand(ctx context.Context, opts ReportOptions) int {
	stdout, stderr := streams(opts.Stdout, opts.Stderr)
	kind := strings.ToLower(strings.TrimSpace(opts.Kind))
	if kind == "" {
		kind = ReportKindAll
	}
	format := strings.ToLower(strings.TrimSpace(opts.Format))
	if format == "" {
		format = "json"
	}
	switch kind {
	case ReportKindAll, ReportKindBrokers, ReportKindTotals, ReportKindTiers:
	default:
		fmt.Fprintf(stderr, "report: invalid kind %q (expected all, brokers, totals or tiers)\n", opts.Kind)
		return 1
	}
	switch format {
	case "json", "xlsx":
	case "csv":
		if kind == ReportKindAll {
			fmt.Fprintln(stderr, "report: csv output needs a single -kind")
			return 1
		}
	default:
		fmt.Fprintf(stderr, "report: invalid format %q (expected json, csv or xlsx)\n", opts.Format)
		return 1
	}
	if c.reports == nil {
		fmt.Fprintln(stderr, "report: not configured")
		return 1
	}

	reports, err := c.reports.Reports(ctx)
	if err != nil {
		fmt.Fprintf(stderr, "report: %v\n", err)
		return 1
	}

	switch format {
	case "csv":
		err = export.WriteCSV(stdout, reportTables(kind, reports)[0])
	case "xlsx":
		err = export.WriteXLSX(stdout, reportTables(kind, reports)...)
	default:
		err = writeJSON(stdout, reportValue(kind, reports))
	}
	if err != nil {
		fmt.Fprintf(stderr, "report: write %s: %v\n", format, err)
		return 1
	}
	return 0
}

func reportTables(kind string, r reporting.Reports) []export.Table {
	switch kind {
	case ReportKindBrokers:
		return []export.Table{export.BrokerTable(r.Brokers)}
	case ReportKindTotals:
		return []export.Table{export.TotalsTable(r.Totals)}
	case ReportKindTiers:
		return []export.Table{export.TierTable(r.Tiers)}
	}
	return []export.Table{export.BrokerTable(r.Brokers), export.TotalsTable(r.Totals), export.TierTable(r.Tiers)}
}

func reportValue(kind string, r reporting.Reports) any {
	switch kind {
	case ReportKindBrokers:
		return r.Brokers
	case ReportKindTotals:
		return r.Totals
	case ReportKindTiers:
		return r.Tiers
	}
	return r
}

// LoanTotalOptions configures the loan-total command.
type LoanTotalOptions struct {
	From   string
	To     string
	Stdout io.Writer
	Stderr io.Writer
}

// LoanTotalCommand prints the summed loan amount settled within [From, To].
func (c *LedgerCLI) LoanTotalCommand(ctx context.Context, opts LoanTotalOptions) int {
	stdout, stderr := streams(opts.Stdout, opts.Stderr)
	from, err := civil.ParseDate(strings.TrimSpace(opts.From))
	if err != nil {
		fmt.Fprintf(stderr, "loan-total: invalid -from %q (expected YYYY-MM-DD)\n", opts.From)
		return 1
	}
	to, err := civil.ParseDate(strings.TrimSpace(opts.To))
	if err != nil {
		fmt.Fprintf(stderr, "loan-total: invalid -to %q (expected YYYY-MM-DD)\n", opts.To)
		return 1
	}
	if to.Before(from) {
		fmt.Fprintln(stderr, "loan-total: -from must not be after -to")
		return 1
	}
	if c.loans == nil {
		fmt.Fprintln(stderr, "loan-total: not configured")
		return 1
	}

	total, err := c.loans.LoanAmountBetween(ctx, from, to)
	if err != nil {
		fmt.Fprintf(stderr, "loan-total: %v\n", err)
		return 1
	}
	if total == nil {
		fmt.Fprintf(stdout, "no transactions settled between %s and %s\n", from, to)
		return 0
	}
	c.printer.Fprintf(stdout, "total loan amount %s to %s: %.2f\n", from, to, *total)
	return 0
}

// MaxLoanOptions configures the max-loan command.
type MaxLoanOptions struct {
	Broker string
	Stdout io.Writer
	Stderr io.Writer
}

// MaxLoanCommand prints the largest loan a broker has settled. A broker
// without transactions exits with status 3.
func (c *LedgerCLI) MaxLoanCommand(ctx context.Context, opts MaxLoanOptions) int {
	stdout, stderr := streams(opts.Stdout, opts.Stderr)
	broker := strings.TrimSpace(opts.Broker)
	if broker == "" {
		fmt.Fprintln(stderr, "max-loan: -broker is required")
		return 1
	}
	if c.loans == nil {
		fmt.Fprintln(stderr, "max-loan: not configured")
		return 1
	}

	highest, err := c.loans.MaxLoanByBroker(ctx, broker)
	if err != nil {
		fmt.Fprintf(stderr, "max-loan: %v\n", err)
		return 1
	}
	if highest == nil {
		fmt.Fprintf(stderr, "max-loan: no transactions for broker %q\n", broker)
		return 3
	}
	c.printer.Fprintf(stdout, "%s: %.2f\n", broker, *highest)
	return 0
}

func streams(stdout, stderr io.Writer) (io.Writer, io.Writer) {
	if stdout == nil {
		stdout = os.Stdout
	}
	if stderr == nil {
		stderr = os.Stderr
	}
	return stdout, stderr
}

func writeJSON(w io.Writer, v any) error {
	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	if err := enc.Encode(v); err != nil {
		return fmt.Errorf("encode json: %w", err)
	}
	return nil
}
