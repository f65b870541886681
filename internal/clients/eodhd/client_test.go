package eodhd

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"
)

func TestGetEOD_ParsesAscendingBars(t *testing.T) {
	mockResp := []map[string]interface{}{
		{"date": "2024-03-26", "open": 42.0, "high": 43.0, "low": 41.5, "close": 42.8, "adjusted_close": 42.8, "volume": float64(1000000)},
		{"date": "2024-03-27", "open": 42.9, "high": 44.0, "low": 42.5, "close": 43.6, "adjusted_close": 43.6, "volume": float64(1200000)},
	}

	var capturedPath string
	var capturedQuery map[string][]string
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		capturedPath = r.URL.Path
		capturedQuery = r.URL.Query()
		w.Header().Set("Content-Type", "application/json")
		json.NewEncoder(w).Encode(mockResp)
	}))
	defer srv.Close()

	client := NewClient("test-key", WithBaseURL(srv.URL))
	from := time.Date(2024, 3, 26, 0, 0, 0, 0, time.UTC)
	to := time.Date(2024, 3, 27, 0, 0, 0, 0, time.UTC)
	bars, err := client.GetEOD(context.Background(), "MSFT", from, to)
	if err != nil {
		t.Fatalf("GetEOD failed: %v", err)
	}

	if capturedPath != "/eod/MSFT" {
		t.Errorf("expected path /eod/MSFT, got %s", capturedPath)
	}
	if got := capturedQuery["order"]; len(got) != 1 || got[0] != "a" {
		t.Errorf("expected order=a, got %v", got)
	}
	if got := capturedQuery["from"]; len(got) != 1 || got[0] != "2024-03-26" {
		t.Errorf("expected from=2024-03-26, got %v", got)
	}
	if got := capturedQuery["api_token"]; len(got) != 1 || got[0] != "test-key" {
		t.Errorf("expected api_token=test-key, got %v", got)
	}

	if len(bars) != 2 {
		t.Fatalf("expected 2 bars, got %d", len(bars))
	}
	if bars[0].Close != 42.8 {
		t.Errorf("expected close 42.8, got %.2f", bars[0].Close)
	}
	if bars[0].Symbol != "MSFT" {
		t.Errorf("expected symbol MSFT, got %s", bars[0].Symbol)
	}
	if !bars[0].Date.Equal(time.Date(2024, 3, 26, 0, 0, 0, 0, time.UTC)) {
		t.Errorf("expected 2024-03-26, got %v", bars[0].Date)
	}
	if !bars[0].Date.Before(bars[1].Date) {
		t.Error("bars not oldest first")
	}
}

func TestGetEOD_APIError(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		http.Error(w, "Invalid API token", http.StatusUnauthorized)
	}))
	defer srv.Close()

	client := NewClient("bad-key", WithBaseURL(srv.URL))
	_, err := client.GetEOD(context.Background(), "MSFT", time.Time{}, time.Time{})
	if err == nil {
		t.Fatal("expected error")
	}
	apiErr, ok := err.(*APIError)
	if !ok {
		t.Fatalf("expected *APIError, got %T", err)
	}
	if apiErr.StatusCode != http.StatusUnauthorized {
		t.Errorf("expected 401, got %d", apiErr.StatusCode)
	}
}

func TestGetRealTime_ParsesResponse(t *testing.T) {
	mockResp := map[string]interface{}{
		"code":      "MSFT",
		"timestamp": int64(1711670340),
		"close":     425.25,
	}

	var capturedPath string
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		capturedPath = r.URL.Path
		w.Header().Set("Content-Type", "application/json")
		json.NewEncoder(w).Encode(mockResp)
	}))
	defer srv.Close()

	client := NewClient("test-key", WithBaseURL(srv.URL))
	price, err := client.GetRealTime(context.Background(), "MSFT")
	if err != nil {
		t.Fatalf("GetRealTime failed: %v", err)
	}

	if capturedPath != "/real-time/MSFT" {
		t.Errorf("expected path /real-time/MSFT, got %s", capturedPath)
	}
	if price != 425.25 {
		t.Errorf("expected price 425.25, got %.2f", price)
	}
}

func TestGetRealTime_NoQuote(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		json.NewEncoder(w).Encode(map[string]interface{}{"code": "NOPE", "close": 0})
	}))
	defer srv.Close()

	client := NewClient("test-key", WithBaseURL(srv.URL))
	if _, err := client.GetRealTime(context.Background(), "NOPE"); err == nil {
		t.Fatal("expected error for zero quote")
	}
}
