package ingest

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"mime/multipart"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"testing"

	"github.com/go-chi/chi/v5"
	"github.com/stretchr/testify/require"

	"github.com/brokerledger/brokerledger/internal/statement"
)

type stubIngester struct {
	sum   Summary
	err   error
	paths []string
}

func (s *stubIngester) IngestFile(_ context.Context, path string) (Summary, error) {
	s.paths = append(s.paths, path)
	return s.sum, s.err
}

type stubQueue struct {
	ids, paths []string
	err        error
}

func (q *stubQueue) EnqueueIngest(_ context.Context, id, path string) error {
	q.ids = append(q.ids, id)
	q.paths = append(q.paths, path)
	return q.err
}

func uploadRequest(t *testing.T, target, filename string, content []byte) *http.Request {
	t.Helper()
	body := &bytes.Buffer{}
	writer := multipart.NewWriter(body)
	part, err := writer.CreateFormFile("file", filename)
	require.NoError(t, err)
	_, err = part.Write(content)
	require.NoError(t, err)
	require.NoError(t, writer.Close())
	req := httptest.NewRequest(http.MethodPost, target, body)
	req.Header.Set("Content-Type", writer.FormDataContentType())
	return req
}

func newUploadRouter(h *Handler) http.Handler {
	h.newID = func() string { return "4b7c9a5e-0000-4000-8000-000000000001" }
	r := chi.NewRouter()
	h.MountRoutes(r)
	return r
}

func TestUploadQueuesDocument(t *testing.T) {
	dir := t.TempDir()
	queue := &stubQueue{}
	router := newUploadRouter(NewHandler(HandlerConfig{Ingester: &stubIngester{}, Queue: queue, UploadDir: dir}))

	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, uploadRequest(t, "/documents", "October.PDF", []byte("%PDF-1.7")))

	require.Equal(t, http.StatusAccepted, rec.Code)
	require.JSONEq(t, `{"id":"4b7c9a5e-0000-4000-8000-000000000001","status":"queued"}`, rec.Body.String())
	want := filepath.Join(dir, "4b7c9a5e-0000-4000-8000-000000000001.pdf")
	require.Equal(t, []string{want}, queue.paths)
	stored, err := os.ReadFile(want)
	require.NoError(t, err)
	require.Equal(t, "%PDF-1.7", string(stored))
}

func TestUploadSyncIngests(t *testing.T) {
	ingester := &stubIngester{sum: Summary{Path: "/tmp/x.pdf", Parsed: 2, Inserted: 1, Skipped: 1}}
	queue := &stubQueue{}
	dir := t.TempDir()
	router := newUploadRouter(NewHandler(HandlerConfig{Ingester: ingester, Queue: queue, UploadDir: dir}))

	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, uploadRequest(t, "/documents?sync=1", "statement.pdf", []byte("%PDF-1.7")))

	require.Equal(t, http.StatusOK, rec.Code)
	var resp uploadResponse
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &resp))
	require.Equal(t, "ingested", resp.Status)
	require.Equal(t, &Summary{Parsed: 2, Inserted: 1, Skipped: 1}, resp.Summary)
	require.Empty(t, queue.ids)
	require.Len(t, ingester.paths, 1)

	entries, err := os.ReadDir(dir)
	require.NoError(t, err)
	require.Empty(t, entries, "ingested uploads are removed")
}

func TestUploadRejectsDocumentErrors(t *testing.T) {
	dir := t.TempDir()
	ingester := &stubIngester{err: fmt.Errorf("%w: header mismatch", statement.ErrDocumentFormat)}
	router := newUploadRouter(NewHandler(HandlerConfig{Ingester: ingester, UploadDir: dir}))

	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, uploadRequest(t, "/documents", "statement.pdf", []byte("%PDF-1.7")))
	require.Equal(t, http.StatusUnprocessableEntity, rec.Code)

	entries, err := os.ReadDir(dir)
	require.NoError(t, err)
	require.Empty(t, entries, "rejected uploads are removed")
}

func TestUploadValidation(t *testing.T) {
	router := newUploadRouter(NewHandler(HandlerConfig{Ingester: &stubIngester{}, UploadDir: t.TempDir(), MaxBytes: 1 << 10}))

	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, uploadRequest(t, "/documents", "statement.xlsx", []byte("PK")))
	require.Equal(t, http.StatusUnsupportedMediaType, rec.Code)

	rec = httptest.NewRecorder()
	router.ServeHTTP(rec, uploadRequest(t, "/documents", "big.pdf", bytes.Repeat([]byte("x"), 4<<10)))
	require.Equal(t, http.StatusRequestEntityTooLarge, rec.Code)

	rec = httptest.NewRecorder()
	router.ServeHTTP(rec, httptest.NewRequest(http.MethodPost, "/documents", bytes.NewBufferString("{}")))
	require.Equal(t, http.StatusBadRequest, rec.Code)
}

func TestUploadQueueFailure(t *testing.T) {
	queue := &stubQueue{err: errors.New("redis unavailable")}
	router := newUploadRouter(NewHandler(HandlerConfig{Ingester: &stubIngester{}, Queue: queue, UploadDir: t.TempDir()}))

	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, uploadRequest(t, "/documents", "statement.pdf", []byte("%PDF-1.7")))
	require.Equal(t, http.StatusInternalServerError, rec.Code)
}
