package metrics

import (
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"
)

func TestSummaryHandler(t *testing.T) {
	m := New()

	m.ObserveHTTPRequest(http.MethodGet, "/api/v1/events", 200, 0.01)
	m.ObserveHTTPRequest(http.MethodGet, "/api/v1/events", 200, 0.02)
	m.ObserveHTTPRequest(http.MethodPost, "/api/v1/auth/login", 401, 0.005)
	m.IncAuthFailure("login")
	m.IncAuthSuccess("login")
	m.NotifyEnqueued()
	m.NotifySent(3)
	m.NotifyDropped()
	m.SetNotifyQueueDepth(2)

	req := httptest.NewRequest(http.MethodGet, "/metrics/summary", nil)
	rec := httptest.NewRecorder()
	m.Handler().ServeHTTP(rec, req)

	if rec.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d", rec.Code)
	}

	var s Summary
	if err := json.NewDecoder(rec.Body).Decode(&s); err != nil {
		t.Fatalf("decoding summary: %v", err)
	}

	if s.HTTP.TotalRequests != 3 {
		t.Errorf("expected 3 total requests, got %v", s.HTTP.TotalRequests)
	}
	wantRate := 1.0 / 3.0
	if diff := s.HTTP.ErrorRate - wantRate; diff > 1e-9 || diff < -1e-9 {
		t.Errorf("expected error rate %v, got %v", wantRate, s.HTTP.ErrorRate)
	}
	if s.Auth.Failures != 1 || s.Auth.Successes != 1 {
		t.Errorf("unexpected auth counts: %+v", s.Auth)
	}
	if s.Notify.Enqueued != 1 || s.Notify.Sent != 3 || s.Notify.Dropped != 1 {
		t.Errorf("unexpected notify counts: %+v", s.Notify)
	}
	if s.Notify.QueueDepth != 2 {
		t.Errorf("expected queue depth 2, got %v", s.Notify.QueueDepth)
	}
	if s.Server.StartTime == 0 {
		t.Error("expected a server start time")
	}
}

func TestHistogramPercentileEmpty(t *testing.T) {
	if got := histogramPercentile(nil, 0.95); got != 0 {
		t.Errorf("expected 0 for nil family, got %v", got)
	}
}

func TestComputeErrorRateNoTraffic(t *testing.T) {
	m := New()

	req := httptest.NewRequest(http.MethodGet, "/metrics/summary", nil)
	rec := httptest.NewRecorder()
	m.Handler().ServeHTTP(rec, req)

	var s Summary
	if err := json.NewDecoder(rec.Body).Decode(&s); err != nil {
		t.Fatal(err)
	}
	if s.HTTP.ErrorRate != 0 {
		t.Errorf("expected 0 error rate with no traffic, got %v", s.HTTP.ErrorRate)
	}
}
