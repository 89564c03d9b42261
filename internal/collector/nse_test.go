package collector

import (
	"context"
	"net/http"
	"net/http/httptest"
	"sync/atomic"
	"testing"
	"time"

	"github.com/rs/zerolog"

	"github.com/kangrills/nifty-expiry-predictor/internal/config"
)

const nsePayload = `{
  "records": {
    "expiryDates": ["25-Jan-2024", "01-Feb-2024"],
    "underlyingValue": 19500.45,
    "timestamp": "18-Jan-2024 15:30:00",
    "data": [
      {
        "strikePrice": 19600,
        "expiryDate": "25-Jan-2024",
        "CE": {"openInterest": 3900, "changeinOpenInterest": 800, "totalTradedVolume": 12000,
               "impliedVolatility": 18.5, "lastPrice": 55.2, "change": -7.1},
        "PE": {"openInterest": 1100, "changeinOpenInterest": 200, "totalTradedVolume": 9000,
               "impliedVolatility": 20.1, "lastPrice": 160.3, "change": 9.4}
      },
      {
        "strikePrice": 19400,
        "expiryDate": "25-Jan-2024",
        "CE": {"openInterest": 1500, "changeinOpenInterest": 400, "totalTradedVolume": 8000,
               "impliedVolatility": 17.9, "lastPrice": 150.6, "change": 8.2},
        "PE": {"openInterest": 3100, "changeinOpenInterest": 500, "totalTradedVolume": 11000,
               "impliedVolatility": 19.3, "lastPrice": 65.4, "change": -3.3}
      },
      {
        "strikePrice": 19500,
        "expiryDate": "01-Feb-2024",
        "CE": {"openInterest": 999, "changeinOpenInterest": 0, "totalTradedVolume": 100,
               "impliedVolatility": 16.0, "lastPrice": 120.0, "change": 0.5}
      }
    ]
  }
}`

func newNSETestServer(t *testing.T, apiHandler http.HandlerFunc) *httptest.Server {
	t.Helper()
	mux := http.NewServeMux()
	mux.HandleFunc("/option-chain", func(w http.ResponseWriter, r *http.Request) {
		http.SetCookie(w, &http.Cookie{Name: "nsit", Value: "test-session"})
		w.WriteHeader(http.StatusOK)
	})
	mux.HandleFunc("/api/option-chain-indices", apiHandler)
	server := httptest.NewServer(mux)
	t.Cleanup(server.Close)
	return server
}

func newTestCollector(t *testing.T, baseURL string, maxRetries int) *NSECollector {
	t.Helper()
	cfg := config.CollectorConfig{
		NSEBaseURL: baseURL,
		Timeout:    5 * time.Second,
		MaxRetries: maxRetries,
	}
	c, err := NewNSECollector(cfg, func(string) int { return 50 }, zerolog.Nop())
	if err != nil {
		t.Fatalf("NewNSECollector: %v", err)
	}
	return c
}

func TestNSEFetchChainParsesAndNormalizes(t *testing.T) {
	server := newNSETestServer(t, func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Query().Get("symbol") != "NIFTY" {
			http.Error(w, "unknown symbol", http.StatusBadRequest)
			return
		}
		w.Header().Set("Content-Type", "application/json")
		w.Write([]byte(nsePayload))
	})

	c := newTestCollector(t, server.URL, 1)

	snap, err := c.FetchChain(context.Background(), "NIFTY", time.Time{})
	if err != nil {
		t.Fatalf("FetchChain: %v", err)
	}

	if snap.Symbol != "NIFTY" || snap.UnderlyingSpot != 19500.45 || snap.LotSize != 50 {
		t.Errorf("metadata = %+v", snap)
	}
	// Nearest expiry is 25-Jan: the 01-Feb row must be filtered out
	if len(snap.Rows) != 2 {
		t.Fatalf("rows = %d, want 2", len(snap.Rows))
	}
	// Rows come back sorted even though the payload is not
	if snap.Rows[0].Strike != 19400 || snap.Rows[1].Strike != 19600 {
		t.Errorf("strikes = %v, %v, want 19400, 19600", snap.Rows[0].Strike, snap.Rows[1].Strike)
	}
	// NSE percent IV becomes a decimal
	if snap.Rows[1].CallIV != 0.185 {
		t.Errorf("call IV = %v, want 0.185", snap.Rows[1].CallIV)
	}
	if snap.Rows[0].PutOI != 3100 || snap.Rows[0].CallLTPChange != 8.2 {
		t.Errorf("row fields not mapped: %+v", snap.Rows[0])
	}
}

func TestNSEFetchChainSelectsRequestedExpiry(t *testing.T) {
	server := newNSETestServer(t, func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte(nsePayload))
	})
	c := newTestCollector(t, server.URL, 1)

	expiry := time.Date(2024, 2, 1, 0, 0, 0, 0, time.UTC)
	snap, err := c.FetchChain(context.Background(), "NIFTY", expiry)
	if err != nil {
		t.Fatalf("FetchChain: %v", err)
	}
	if len(snap.Rows) != 1 || snap.Rows[0].Strike != 19500 {
		t.Errorf("rows = %+v, want only the 01-Feb strike", snap.Rows)
	}
}

func TestNSEFetchChainRejectsUnlistedExpiry(t *testing.T) {
	server := newNSETestServer(t, func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte(nsePayload))
	})
	c := newTestCollector(t, server.URL, 1)

	expiry := time.Date(2024, 3, 28, 0, 0, 0, 0, time.UTC)
	if _, err := c.FetchChain(context.Background(), "NIFTY", expiry); err == nil {
		t.Error("unlisted expiry must fail")
	}
}

func TestNSEFetchChainRewarmsSessionAfterRejection(t *testing.T) {
	var calls int32
	server := newNSETestServer(t, func(w http.ResponseWriter, r *http.Request) {
		if atomic.AddInt32(&calls, 1) == 1 {
			w.WriteHeader(http.StatusForbidden)
			return
		}
		w.Write([]byte(nsePayload))
	})
	c := newTestCollector(t, server.URL, 3)

	snap, err := c.FetchChain(context.Background(), "NIFTY", time.Time{})
	if err != nil {
		t.Fatalf("FetchChain after stale session: %v", err)
	}
	if len(snap.Rows) != 2 {
		t.Errorf("rows = %d, want 2", len(snap.Rows))
	}
	if atomic.LoadInt32(&calls) < 2 {
		t.Error("expected a retry after the 403")
	}
}

func TestNSEExpiries(t *testing.T) {
	server := newNSETestServer(t, func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte(nsePayload))
	})
	c := newTestCollector(t, server.URL, 1)

	expiries, err := c.Expiries(context.Background(), "NIFTY")
	if err != nil {
		t.Fatalf("Expiries: %v", err)
	}
	if len(expiries) != 2 {
		t.Fatalf("expiries = %d, want 2", len(expiries))
	}
	if !expiries[0].Before(expiries[1]) {
		t.Error("expiries must be sorted soonest first")
	}
	if expiries[0].Day() != 25 || expiries[0].Month() != time.January {
		t.Errorf("first expiry = %v, want 25 Jan", expiries[0])
	}
}
