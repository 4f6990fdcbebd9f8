package ingest

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/httprate"
	"github.com/google/uuid"

	"github.com/brokerledger/brokerledger/internal/platform/httpx"
)

const defaultMaxUpload = 20 << 20

// FileIngester ingests a stored document.
type FileIngester interface {
	IngestFile(ctx context.Context, path string) (Summary, error)
}

// Enqueuer schedules background ingestion of a stored document.
type Enqueuer interface {
	EnqueueIngest(ctx context.Context, id, path string) error
}

// HandlerConfig wires the upload handler.
type HandlerConfig struct {
	Ingester  FileIngester
	Queue     Enqueuer
	UploadDir string
	MaxBytes  int64
	Logger    *slog.Logger
}

// Handler accepts statement uploads.
type Handler struct {
	ingester  FileIngester
	queue     Enqueuer
	uploadDir string
	maxBytes  int64
	logger    *slog.Logger
	newID     func() string
}

// NewHandler constructs the upload handler. Without a queue every upload
// is ingested inline.
func NewHandler(cfg HandlerConfig) *Handler {
	if cfg.MaxBytes <= 0 {
		cfg.MaxBytes = defaultMaxUpload
	}
	if cfg.UploadDir == "" {
		cfg.UploadDir = os.TempDir()
	}
	if cfg.Logger == nil {
		cfg.Logger = slog.Default()
	}
	return &Handler{
		ingester:  cfg.Ingester,
		queue:     cfg.Queue,
		uploadDir: cfg.UploadDir,
		maxBytes:  cfg.MaxBytes,
		logger:    cfg.Logger,
		newID:     uuid.NewString,
	}
}

// MountRoutes registers the upload endpoint.
func (h *Handler) MountRoutes(r chi.Router) {
	if h == nil {
		return
	}
	limiter := httprate.Limit(20, time.Minute,
		httprate.WithKeyFuncs(httprate.KeyByIP),
		httprate.WithLimitHandler(func(w http.ResponseWriter, r *http.Request) {
			http.Error(w, http.StatusText(http.StatusTooManyRequests), http.StatusTooManyRequests)
		}),
	)
	r.With(limiter).Post("/documents", h.handleUpload)
}

type uploadResponse struct {
	ID      string   `json:"id"`
	Status  string   `json:"status"`
	Summary *Summary `json:"summary,omitempty"`
}

func (h *Handler) handleUpload(w http.ResponseWriter, r *http.Request) {
	r.Body = http.MaxBytesReader(w, r.Body, h.maxBytes)
	if err := r.ParseMultipartForm(h.maxBytes); err != nil {
		var tooLarge *http.MaxBytesError
		if errors.As(err, &tooLarge) {
			httpx.RespondError(w, fmt.Errorf("%w: limit is %d bytes", httpx.ErrTooLarge, h.maxBytes))
			return
		}
		httpx.RespondError(w, fmt.Errorf("%w: multipart form expected", httpx.ErrValidation))
		return
	}
	file, header, err := r.FormFile("file")
	if err != nil {
		httpx.RespondError(w, fmt.Errorf("%w: file field is required", httpx.ErrValidation))
		return
	}
	defer func() { _ = file.Close() }()
	if !strings.EqualFold(filepath.Ext(header.Filename), ".pdf") {
		httpx.RespondError(w, fmt.Errorf("%w: only .pdf statements are accepted", httpx.ErrUnsupportedMedia))
		return
	}

	id := h.newID()
	path, err := h.store(id, file)
	if err != nil {
		h.logger.Error("store upload", slog.String("id", id), slog.Any("error", err))
		httpx.RespondError(w, err)
		return
	}
	logger := h.logger.With(slog.String("id", id), slog.String("filename", header.Filename))

	if h.queue != nil && r.URL.Query().Get("sync") != "1" {
		if err := h.queue.EnqueueIngest(r.Context(), id, path); err != nil {
			logger.Error("enqueue ingest", slog.Any("error", err))
			httpx.RespondError(w, err)
			return
		}
		logger.Info("statement queued")
		httpx.JSON(w, http.StatusAccepted, uploadResponse{ID: id, Status: "queued"})
		return
	}

	sum, err := h.ingester.IngestFile(r.Context(), path)
	if err != nil {
		if IsDocumentError(err) {
			_ = os.Remove(path)
			logger.Warn("statement rejected", slog.Any("error", err))
			httpx.RespondError(w, fmt.Errorf("%w: %v", httpx.ErrUnprocessable, err))
			return
		}
		logger.Error("ingest statement", slog.Any("error", err))
		httpx.RespondError(w, err)
		return
	}
	if err := os.Remove(path); err != nil {
		logger.Warn("remove upload", slog.Any("error", err))
	}
	sum.Path = ""
	httpx.JSON(w, http.StatusOK, uploadResponse{ID: id, Status: "ingested", Summary: &sum})
}

func (h *Handler) store(id string, src io.Reader) (string, error) {
	if err := os.MkdirAll(h.uploadDir, 0o750); err != nil {
		return "", fmt.Errorf("ingest: create upload dir: %w", err)
	}
	path := filepath.Join(h.uploadDir, id+".pdf")
	dst, err := os.OpenFile(path, os.O_CREATE|os.O_EXCL|os.O_WRONLY, 0o640)
	if err != nil {
		return "", fmt.Errorf("ingest: create upload: %w", err)
	}
	if _, err := io.Copy(dst, src); err != nil {
		_ = dst.Close()
		_ = os.Remove(path)
		return "", fmt.Errorf("ingest: write upload: %w", err)
	}
	if err := dst.Close(); err != nil {
		return "", fmt.Errorf("ingest: close upload: %w", err)
	}
	return path, nil
}
