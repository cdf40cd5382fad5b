package main

import (
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/tgifai/crawlwatch/internal/schedule"
)

func TestBaseURLFromBind(t *testing.T) {
	cases := map[string]string{
		"127.0.0.1:8088": "http://127.0.0.1:8088",
		"0.0.0.0:9000":   "http://127.0.0.1:9000",
		":8088":          "http://127.0.0.1:8088",
		"[::]:8088":      "http://127.0.0.1:8088",
		"crawl.lan:80":   "http://crawl.lan:80",
	}
	for in, want := range cases {
		if got := baseURLFromBind(in); got != want {
			t.Fatalf("baseURLFromBind(%q) = %q, want %q", in, got, want)
		}
	}
}

func TestDateLabel(t *testing.T) {
	if got := dateLabel("example_20300101_080000"); got != "01/01/2030 08:00:00" {
		t.Fatalf("dateLabel = %q", got)
	}
	if got := dateLabel("before"); got != "before" {
		t.Fatalf("dateLabel = %q", got)
	}
}

func TestAPIClientDo(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.Header.Get("Authorization") != "Bearer k" {
			w.WriteHeader(http.StatusUnauthorized)
			_, _ = w.Write([]byte(`{"success":false,"error":"unauthorized"}`))
			return
		}
		switch r.URL.Path {
		case "/api/v1/jobs/j1":
			_, _ = w.Write([]byte(`{"success":true,"warning":"persist failed","data":{"id":"j1","frequency":"daily","status":"active"}}`))
		default:
			w.WriteHeader(http.StatusNotFound)
			_, _ = w.Write([]byte(`{"success":false,"error":"job not found"}`))
		}
	}))
	defer srv.Close()

	api := &apiClient{baseURL: srv.URL, apiKey: "k", httpCli: srv.Client()}

	var view schedule.JobView
	warning, err := api.do(context.Background(), http.MethodGet, "/jobs/j1", nil, &view)
	if err != nil {
		t.Fatalf("do: %v", err)
	}
	if warning != "persist failed" || view.ID != "j1" || view.Status != schedule.StatusActive {
		t.Fatalf("unexpected reply: %q %+v", warning, view)
	}

	_, err = api.do(context.Background(), http.MethodGet, "/jobs/missing", nil, nil)
	var apiErr *apiError
	if !errors.As(err, &apiErr) || apiErr.Status != http.StatusNotFound || apiErr.Msg != "job not found" {
		t.Fatalf("expected 404 apiError, got %v", err)
	}

	api.apiKey = ""
	_, err = api.do(context.Background(), http.MethodGet, "/jobs/j1", nil, nil)
	if !errors.As(err, &apiErr) || apiErr.Status != http.StatusUnauthorized {
		t.Fatalf("expected 401 apiError, got %v", err)
	}
}
