package metrics

import (
	"context"
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus/testutil"
)

func TestRecorder(t *testing.T) {
	t.Run("Counts Catalog Outcomes", func(t *testing.T) {
		r := NewRecorder()
		r.CatalogRequest(OutcomeSuccess)
		r.CatalogRequest(OutcomeSuccess)
		r.CatalogRequest(OutcomeServerError)
		r.CatalogRetry(OutcomeServerError)
		r.CatalogAbsent()

		if got := testutil.ToFloat64(r.catalogRequests.WithLabelValues(OutcomeSuccess)); got != 2 {
			t.Errorf("expected 2 successes, got %v", got)
		}
		if got := testutil.ToFloat64(r.catalogRetries.WithLabelValues(OutcomeServerError)); got != 1 {
			t.Errorf("expected 1 retry, got %v", got)
		}
		if got := testutil.ToFloat64(r.catalogAbsent); got != 1 {
			t.Errorf("expected 1 absent call, got %v", got)
		}
	})

	t.Run("Rows And Drops Ignore Non Positive", func(t *testing.T) {
		r := NewRecorder()
		r.RowsUpserted("daily_rankings", 3)
		r.RowsUpserted("daily_rankings", 0)
		r.ArtistsDropped(-1)

		if got := testutil.ToFloat64(r.rowsUpserted.WithLabelValues("daily_rankings")); got != 3 {
			t.Errorf("expected 3 rows, got %v", got)
		}
		if got := testutil.ToFloat64(r.artistsDropped); got != 0 {
			t.Errorf("expected no drops, got %v", got)
		}
	})

	t.Run("JobFinished", func(t *testing.T) {
		r := NewRecorder()
		started := time.Unix(1000, 0)
		r.JobFinished("rank", started, started.Add(2*time.Second), true)

		if got := testutil.ToFloat64(r.jobDuration.WithLabelValues("rank")); got != 2 {
			t.Errorf("expected 2s duration, got %v", got)
		}
		if got := testutil.ToFloat64(r.lastSuccess.WithLabelValues("rank")); got != 1002 {
			t.Errorf("expected last success 1002, got %v", got)
		}
	})

	t.Run("Nil Recorder", func(t *testing.T) {
		var r *Recorder
		r.CatalogRequest(OutcomeSuccess)
		r.CatalogRetry(OutcomeRateLimited)
		r.CatalogAbsent()
		r.RowsUpserted("x", 1)
		r.JobFinished("x", time.Now(), time.Now(), true)
		if err := r.Push(context.Background(), "http://example.invalid", "job"); err != nil {
			t.Errorf("nil recorder push should be a no-op, got %v", err)
		}
	})

	t.Run("Push", func(t *testing.T) {
		var gotPath, gotBody string
		server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, req *http.Request) {
			gotPath = req.URL.Path
			b, _ := io.ReadAll(req.Body)
			gotBody = string(b)
			w.WriteHeader(http.StatusOK)
		}))
		defer server.Close()

		r := NewRecorder()
		r.RowsUpserted("artist_snapshots", 5)

		if err := r.Push(context.Background(), server.URL, "trendrank"); err != nil {
			t.Fatalf("unexpected push error: %v", err)
		}
		if !strings.Contains(gotPath, "/metrics/job/trendrank") {
			t.Errorf("unexpected push path %q", gotPath)
		}
		if gotBody == "" {
			t.Error("expected a metrics payload")
		}
	})

	t.Run("Push Failure", func(t *testing.T) {
		server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, req *http.Request) {
			w.WriteHeader(http.StatusInternalServerError)
		}))
		defer server.Close()

		r := NewRecorder()
		r.CatalogAbsent()
		if err := r.Push(context.Background(), server.URL, "trendrank"); err == nil {
			t.Error("expected error from failing gateway")
		}
	})
}
