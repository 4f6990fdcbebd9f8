// Package reportinghttp exposes ledger reports and scalar loan queries over HTTP.
package reportinghttp

import (
	"bytes"
	"context"
	"fmt"
	"log/slog"
	"net/http"
	"strings"
	"time"

	"cloud.google.com/go/civil"
	"github.com/go-chi/chi/v5"
	"github.com/go-playground/validator/v10"

	"github.com/brokerledger/brokerledger/internal/platform/httpx"
	"github.com/brokerledger/brokerledger/internal/reporting"
	"github.com/brokerledger/brokerledger/internal/reporting/export"
)

const requestTimeout = 10 * time.Second

// ReportService builds the ledger reports.
type ReportService interface {
	Reports(ctx context.Context) (reporting.Reports, error)
}

// LoanQueries answers scalar questions about stored loans.
type LoanQueries interface {
	LoanAmountBetween(ctx context.Context, from, to civil.Date) (*float64, error)
	MaxLoanByBroker(ctx context.Context, broker string) (*float64, error)
}

// PDFRenderer renders reports to PDF bytes.
type PDFRenderer interface {
	RenderReports(ctx context.Context, reports reporting.Reports) ([]byte, error)
}

// Handler serves report and loan query endpoints.
type Handler struct {
	logger    *slog.Logger
	reports   ReportService
	loans     LoanQueries
	pdf       PDFRenderer
	validator *validator.Validate
}

// NewHandler constructs the handler. pdf may be nil, which disables the PDF
// download.
func NewHandler(logger *slog.Logger, reports ReportService, loans LoanQueries, pdf PDFRenderer) *Handler {
	if logger == nil {
		logger = slog.Default()
	}
	return &Handler{
		logger:    logger,
		reports:   reports,
		loans:     loans,
		pdf:       pdf,
		validator: validator.New(),
	}
}

type reportKind string

const (
	kindBrokers reportKind = "brokers"
	kindTotals  reportKind = "totals"
	kindTiers   reportKind = "tiers"
)

type formatQuery struct {
	Format string `validate:"omitempty,oneof=json csv xlsx"`
}

type loanRangeQuery struct {
	From string `validate:"required,datetime=2006-01-02"`
	To   string `validate:"required,datetime=2006-01-02"`
}

func (h *Handler) handleReport(kind reportKind) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		q := formatQuery{Format: strings.ToLower(r.URL.Query().Get("format"))}
		if err := h.validate(q); err != nil {
			httpx.RespondError(w, err)
			return
		}

		ctx, cancel := context.WithTimeout(r.Context(), requestTimeout)
		defer cancel()
		reports, err := h.reports.Reports(ctx)
		if err != nil {
			h.serverError(w, "build reports", err)
			return
		}

		switch q.Format {
		case "csv":
			var buf bytes.Buffer
			if err := export.WriteCSV(&buf, tableFor(kind, reports)); err != nil {
				h.serverError(w, "write csv", err)
				return
			}
			download(w, "text/csv", string(kind)+".csv", buf.Bytes())
		case "xlsx":
			var buf bytes.Buffer
			if err := export.WriteXLSX(&buf, tableFor(kind, reports)); err != nil {
				h.serverError(w, "write xlsx", err)
				return
			}
			download(w, "application/vnd.openxmlformats-officedocument.spreadsheetml.sheet", string(kind)+".xlsx", buf.Bytes())
		default:
			switch kind {
			case kindBrokers:
				httpx.JSON(w, http.StatusOK, reports.Brokers)
			case kindTotals:
				httpx.JSON(w, http.StatusOK, reports.Totals)
			case kindTiers:
				httpx.JSON(w, http.StatusOK, reports.Tiers)
			}
		}
	}
}

func tableFor(kind reportKind, reports reporting.Reports) export.Table {
	switch kind {
	case kindTotals:
		return export.TotalsTable(reports.Totals)
	case kindTiers:
		return export.TierTable(reports.Tiers)
	default:
		return export.BrokerTable(reports.Brokers)
	}
}

func (h *Handler) handlePDF(w http.ResponseWriter, r *http.Request) {
	if h.pdf == nil {
		httpx.RespondError(w, fmt.Errorf("%w: pdf rendering is not configured", httpx.ErrNotFound))
		return
	}
	ctx, cancel := context.WithTimeout(r.Context(), 3*requestTimeout)
	defer cancel()
	reports, err := h.reports.Reports(ctx)
	if err != nil {
		h.serverError(w, "build reports", err)
		return
	}
	pdf, err := h.pdf.RenderReports(ctx, reports)
	if err != nil {
		h.logger.Error("render reports pdf", slog.Any("error", err))
		http.Error(w, http.StatusText(http.StatusBadGateway), http.StatusBadGateway)
		return
	}
	download(w, "application/pdf", "brokers.pdf", pdf)
}

func (h *Handler) handleLoanTotal(w http.ResponseWriter, r *http.Request) {
	q := loanRangeQuery{From: r.URL.Query().Get("from"), To: r.URL.Query().Get("to")}
	if err := h.validate(q); err != nil {
		httpx.RespondError(w, err)
		return
	}
	from, _ := civil.ParseDate(q.From)
	to, _ := civil.ParseDate(q.To)
	if to.Before(from) {
		httpx.RespondError(w, fmt.Errorf("%w: to must not be before from", httpx.ErrValidation))
		return
	}

	total, err := h.loans.LoanAmountBetween(r.Context(), from, to)
	if err != nil {
		h.serverError(w, "loan total", err)
		return
	}
	httpx.JSON(w, http.StatusOK, map[string]any{
		"from":  q.From,
		"to":    q.To,
		"total": total,
	})
}

func (h *Handler) handleMaxLoan(w http.ResponseWriter, r *http.Request) {
	broker := strings.TrimSpace(chi.URLParam(r, "broker"))
	if broker == "" {
		httpx.RespondError(w, fmt.Errorf("%w: broker is required", httpx.ErrValidation))
		return
	}
	highest, err := h.loans.MaxLoanByBroker(r.Context(), broker)
	if err != nil {
		h.serverError(w, "max loan", err)
		return
	}
	if highest == nil {
		httpx.RespondError(w, fmt.Errorf("%w: no loans for broker %q", httpx.ErrNotFound, broker))
		return
	}
	httpx.JSON(w, http.StatusOK, map[string]any{
		"broker":   broker,
		"max_loan": *highest,
	})
}

func (h *Handler) validate(v any) error {
	err := h.validator.Struct(v)
	if err == nil {
		return nil
	}
	errs, ok := err.(validator.ValidationErrors)
	if !ok {
		return err
	}
	msgs := make([]string, 0, len(errs))
	for _, fe := range errs {
		msgs = append(msgs, fmt.Sprintf("%s failed %s", strings.ToLower(fe.Field()), fe.Tag()))
	}
	return fmt.Errorf("%w: %s", httpx.ErrValidation, strings.Join(msgs, ", "))
}

func (h *Handler) serverError(w http.ResponseWriter, op string, err error) {
	h.logger.Error(op, slog.Any("error", err))
	httpx.RespondError(w, err)
}

func download(w http.ResponseWriter, contentType, filename string, body []byte) {
	w.Header().Set("Content-Type", contentType)
	w.Header().Set("Content-Disposition", fmt.Sprintf("attachment; filename=%q", filename))
	w.WriteHeader(http.StatusOK)
	_, _ = w.Write(body)
}
