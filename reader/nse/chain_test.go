package nse

import (
	"context"
	"fmt"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	appconfig "oiflow/config"
)

func testClient(t *testing.T, handler http.Handler) *Client {
	t.Helper()
	server := httptest.NewServer(handler)
	t.Cleanup(server.Close)

	client, err := NewClient(appconfig.NSESourceConfig{
		BaseURL:           server.URL,
		UserAgent:         "test-agent",
		Timeout:           appconfig.Duration(5 * time.Second),
		RequestsPerSecond: 1000,
		BurstSize:         10,
	})
	if err != nil {
		t.Fatalf("NewClient failed: %v", err)
	}
	return client
}

func TestFetchChain(t *testing.T) {
	mux := http.NewServeMux()
	mux.HandleFunc(warmupPath, func(w http.ResponseWriter, r *http.Request) {
		http.SetCookie(w, &http.Cookie{Name: "nsit", Value: "abc"})
	})
	mux.HandleFunc(contractInfoPath, func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Query().Get("symbol") != "RELIANCE" {
			http.Error(w, "wrong symbol", http.StatusBadRequest)
			return
		}
		fmt.Fprint(w, `{"expiryDates":["30-Jan-2025","27-Feb-2025","bogus"]}`)
	})
	mux.HandleFunc(chainPath, func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Query().Get("expiry") != "30-Jan-2025" {
			http.Error(w, "wrong expiry", http.StatusBadRequest)
			return
		}
		fmt.Fprint(w, `{"records":{"underlyingValue":205,"data":[
			{"strikePrice":150,"CE":{"openInterest":300,"changeinOpenInterest":-30},"PE":{"openInterest":400,"changeinOpenInterest":40}},
			{"strikePrice":200,"CE":{"openInterest":500,"changeinOpenInterest":50},"PE":{"openInterest":600,"changeinOpenInterest":-60}},
			{"strikePrice":0,"CE":{"openInterest":1}},
			{"strikePrice":250,"PE":{"openInterest":800,"changeinOpenInterest":80}}
		]}}`)
	})

	client := testClient(t, mux)
	ref := time.Date(2025, 1, 15, 0, 0, 0, 0, time.UTC)

	snapshot, err := client.FetchChain(context.Background(), "RELIANCE", ref)
	if err != nil {
		t.Fatalf("FetchChain failed: %v", err)
	}

	if snapshot.Symbol != "RELIANCE" {
		t.Errorf("symbol = %s", snapshot.Symbol)
	}
	if snapshot.UnderlyingValue != 205 {
		t.Errorf("underlying = %v, want 205", snapshot.UnderlyingValue)
	}
	if len(snapshot.Records) != 3 {
		t.Fatalf("expected 3 records (zero strike dropped), got %d", len(snapshot.Records))
	}
	if len(snapshot.Expiries) != 2 {
		t.Errorf("expected 2 parseable expiries, got %d", len(snapshot.Expiries))
	}

	rec := snapshot.Records[0]
	if rec.Strike != 150 || rec.CallOI != 300 || rec.CallOIChange != -30 || rec.PutOI != 400 {
		t.Errorf("unexpected first record: %+v", rec)
	}

	// One-sided row keeps the quoted leg and zeroes the missing one.
	last := snapshot.Records[2]
	if last.Strike != 250 || last.CallOI != 0 || last.PutOI != 800 {
		t.Errorf("unexpected one-sided record: %+v", last)
	}
}

func TestFetchChainTopLevelShape(t *testing.T) {
	mux := http.NewServeMux()
	mux.HandleFunc(warmupPath, func(w http.ResponseWriter, r *http.Request) {})
	mux.HandleFunc(contractInfoPath, func(w http.ResponseWriter, r *http.Request) {
		fmt.Fprint(w, `{"expiryDates":["30-Jan-2025"]}`)
	})
	mux.HandleFunc(chainPath, func(w http.ResponseWriter, r *http.Request) {
		fmt.Fprint(w, `{"underlyingValue":101.5,"data":[{"strikePrice":100,"CE":{"openInterest":10},"PE":{"openInterest":20}}]}`)
	})

	client := testClient(t, mux)
	snapshot, err := client.FetchChain(context.Background(), "TCS", time.Date(2025, 1, 15, 0, 0, 0, 0, time.UTC))
	if err != nil {
		t.Fatalf("FetchChain failed: %v", err)
	}
	if snapshot.UnderlyingValue != 101.5 || len(snapshot.Records) != 1 {
		t.Errorf("unexpected snapshot: %+v", snapshot)
	}
}

func TestFetchChainUnderlyingFromLegs(t *testing.T) {
	mux := http.NewServeMux()
	mux.HandleFunc(warmupPath, func(w http.ResponseWriter, r *http.Request) {})
	mux.HandleFunc(contractInfoPath, func(w http.ResponseWriter, r *http.Request) {
		fmt.Fprint(w, `{"expiryDates":["30-Jan-2025"]}`)
	})
	mux.HandleFunc(chainPath, func(w http.ResponseWriter, r *http.Request) {
		fmt.Fprint(w, `{"records":{"data":[{"strikePrice":100,"CE":{"openInterest":10,"underlyingValue":99.9}}]}}`)
	})

	client := testClient(t, mux)
	snapshot, err := client.FetchChain(context.Background(), "TCS", time.Date(2025, 1, 15, 0, 0, 0, 0, time.UTC))
	if err != nil {
		t.Fatalf("FetchChain failed: %v", err)
	}
	if snapshot.UnderlyingValue != 99.9 {
		t.Errorf("underlying = %v, want leg fallback 99.9", snapshot.UnderlyingValue)
	}
}

func TestFetchChainNoExpiries(t *testing.T) {
	mux := http.NewServeMux()
	mux.HandleFunc(warmupPath, func(w http.ResponseWriter, r *http.Request) {})
	mux.HandleFunc(contractInfoPath, func(w http.ResponseWriter, r *http.Request) {
		fmt.Fprint(w, `{"expiryDates":[]}`)
	})

	client := testClient(t, mux)
	if _, err := client.FetchChain(context.Background(), "TCS", time.Now()); err == nil {
		t.Error("expected error for empty expiry listing")
	}
}

func TestFetchChainServerError(t *testing.T) {
	mux := http.NewServeMux()
	mux.HandleFunc(warmupPath, func(w http.ResponseWriter, r *http.Request) {})
	mux.HandleFunc(contractInfoPath, func(w http.ResponseWriter, r *http.Request) {
		http.Error(w, "denied", http.StatusUnauthorized)
	})

	client := testClient(t, mux)
	if _, err := client.FetchChain(context.Background(), "TCS", time.Now()); err == nil {
		t.Error("expected error for unauthorized response")
	}
}

func TestBrowserHeaders(t *testing.T) {
	var gotAgent, gotRequestedWith string
	mux := http.NewServeMux()
	mux.HandleFunc(warmupPath, func(w http.ResponseWriter, r *http.Request) {
		gotAgent = r.Header.Get("User-Agent")
		gotRequestedWith = r.Header.Get("X-Requested-With")
	})
	mux.HandleFunc(contractInfoPath, func(w http.ResponseWriter, r *http.Request) {
		fmt.Fprint(w, `{"expiryDates":[]}`)
	})

	client := testClient(t, mux)
	client.FetchChain(context.Background(), "TCS", time.Now())

	if gotAgent != "test-agent" {
		t.Errorf("User-Agent = %q", gotAgent)
	}
	if gotRequestedWith != "XMLHttpRequest" {
		t.Errorf("X-Requested-With = %q", gotRequestedWith)
	}
}
