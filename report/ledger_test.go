package report

import (
	"context"
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"cloud.google.com/go/civil"
	"github.com/stretchr/testify/require"

	"github.com/brokerledger/brokerledger/internal/reporting"
)

func sampleReports() reporting.Reports {
	d := civil.Date{Year: 2023, Month: time.October, Day: 17}
	return reporting.Build([]reporting.DailyAmounts{
		{Broker: "Cheston La'Porte", Date: d, Amounts: []float64{35890, 3589}},
	}, time.Date(2023, 11, 1, 0, 0, 0, 0, time.UTC))
}

func TestRenderLedgerHTML(t *testing.T) {
	html, err := RenderLedgerHTML(sampleReports())
	require.NoError(t, err)
	require.Contains(t, html, "Cheston La&#39;Porte")
	require.Contains(t, html, "35890.00, 3589.00")
	require.Contains(t, html, "2023-10-17 - 2023-10-23")
	require.Contains(t, html, "<td class=\"num\">39479.00</td>")
}

func TestRendererPostsToGotenberg(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		require.Equal(t, "/forms/chromium/convert/html", r.URL.Path)
		require.NoError(t, r.ParseMultipartForm(1<<20))
		require.Equal(t, "true", r.FormValue("landscape"))
		file, _, err := r.FormFile("files")
		require.NoError(t, err)
		body, _ := io.ReadAll(file)
		require.True(t, strings.Contains(string(body), "Broker loan report"))
		_, _ = w.Write([]byte("%PDF-1.7"))
	}))
	defer srv.Close()

	pdf, err := NewRenderer(NewClient(srv.URL+"/")).RenderReports(context.Background(), sampleReports())
	require.NoError(t, err)
	require.Equal(t, "%PDF-1.7", string(pdf))
}

func TestRendererSurfacesGotenbergErrors(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path == "/health" {
			w.WriteHeader(http.StatusServiceUnavailable)
			return
		}
		http.Error(w, "chromium crashed", http.StatusInternalServerError)
	}))
	defer srv.Close()

	renderer := NewRenderer(NewClient(srv.URL))
	_, err := renderer.RenderReports(context.Background(), sampleReports())
	require.ErrorContains(t, err, "chromium crashed")
	require.Error(t, renderer.Ping(context.Background()))
}
