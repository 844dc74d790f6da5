package rates

import (
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"sync/atomic"
	"testing"
	"time"

	"github.com/shopspring/decimal"
)

func TestBCBClient_MonthlyRate(t *testing.T) {
	var calls int32
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		atomic.AddInt32(&calls, 1)
		if r.URL.Path != "/bcdata.sgs.25477/dados" {
			t.Errorf("unexpected path %q", r.URL.Path)
		}
		q := r.URL.Query()
		if q.Get("formato") != "json" || q.Get("dataInicial") != "01/07/2020" || q.Get("dataFinal") != "31/07/2020" {
			t.Errorf("unexpected query %q", r.URL.RawQuery)
		}
		w.Header().Set("Content-Type", "application/json")
		w.Write([]byte(`[{"data":"01/07/2020","valor":"1.80"}]`))
	}))
	defer srv.Close()

	c := NewBCBClient(srv.URL, 25477, time.Second, nil)
	date := time.Date(2020, time.July, 15, 0, 0, 0, 0, time.UTC)

	for i := 0; i < 2; i++ {
		got, err := c.MonthlyRate(context.Background(), date)
		if err != nil {
			t.Fatalf("unexpected error: %v", err)
		}
		if !got.Equal(decimal.RequireFromString("1.8")) {
			t.Errorf("rate: got %s, want 1.8", got)
		}
	}
	if n := atomic.LoadInt32(&calls); n != 1 {
		t.Errorf("expected one upstream call thanks to the cache, got %d", n)
	}
}

func TestBCBClient_Errors(t *testing.T) {
	tests := []struct {
		name     string
		status   int
		body     string
		notFound bool
	}{
		{"empty series", http.StatusOK, `[]`, true},
		{"not found", http.StatusNotFound, `{"erro":"sem dados"}`, true},
		{"server error", http.StatusInternalServerError, `boom`, false},
		{"bad json", http.StatusOK, `<html>`, false},
		{"bad value", http.StatusOK, `[{"data":"01/07/2020","valor":"n/d"}]`, false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
				w.WriteHeader(tt.status)
				w.Write([]byte(tt.body))
			}))
			defer srv.Close()

			c := NewBCBClient(srv.URL, 1, time.Second, nil)
			_, err := c.MonthlyRate(context.Background(), time.Date(2020, time.July, 1, 0, 0, 0, 0, time.UTC))
			if err == nil {
				t.Fatal("expected error, got nil")
			}
			if errors.Is(err, ErrRateNotFound) != tt.notFound {
				t.Errorf("ErrRateNotFound match = %v, want %v (err=%v)", !tt.notFound, tt.notFound, err)
			}
		})
	}
}

func TestBCBClient_ContextCanceled(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte(`[]`))
	}))
	defer srv.Close()

	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	c := NewBCBClient(srv.URL, 1, time.Second, nil)
	if _, err := c.MonthlyRate(ctx, time.Now()); err == nil {
		t.Error("expected error for canceled context")
	}
}

func TestPick(t *testing.T) {
	points := []sgsPoint{
		{Data: "01/06/2020", Valor: "1.95"},
		{Data: "01/07/2020", Valor: "1.80"},
		{Data: "01/08/2020", Valor: "1.75"},
	}

	got, err := pick(points, time.Date(2020, time.July, 1, 0, 0, 0, 0, time.UTC))
	if err != nil || !got.Equal(decimal.RequireFromString("1.8")) {
		t.Errorf("matching month: got %s (err=%v)", got, err)
	}

	got, err = pick(points, time.Date(2021, time.January, 1, 0, 0, 0, 0, time.UTC))
	if err != nil || !got.Equal(decimal.RequireFromString("1.75")) {
		t.Errorf("fallback to latest: got %s (err=%v)", got, err)
	}
}
