package proxy

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/http/httptest"
	"strconv"
	"testing"

	"github.com/sadopc/courier/internal/auth"
	"github.com/sadopc/courier/internal/core/collection"
	"github.com/sadopc/courier/internal/core/environment"
)

func newInput(method collection.Method, url string) Input {
	return Input{
		Method: method,
		URL:    url,
		Store:  environment.NewStore(nil, nil, nil),
	}
}

func TestExecuteSimpleGETRoundTrip(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.Header.Get("User-Agent") != defaultUserAgent {
			t.Errorf("User-Agent = %q, want default", r.Header.Get("User-Agent"))
		}
		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(200)
		w.Write([]byte(`{"ok":true}`))
	}))
	defer server.Close()

	resp, err := New().Execute(context.Background(), newInput(collection.GET, server.URL))
	if err != nil {
		t.Fatalf("Execute: %v", err)
	}
	if resp.StatusCode != 200 || resp.ResponseBody != `{"ok":true}` {
		t.Fatalf("unexpected response: %+v", resp)
	}
}

func TestExecuteGeneratesHistoryIDWhenCallerOmitsOne(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) { w.WriteHeader(200) }))
	defer server.Close()

	resp, err := New().Execute(context.Background(), newInput(collection.GET, server.URL))
	if err != nil {
		t.Fatalf("Execute: %v", err)
	}
	if resp.HistoryID == "" {
		t.Error("expected Execute to generate a HistoryID when the caller supplies none")
	}
}

func TestExecuteEchoesCallerSuppliedHistoryID(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) { w.WriteHeader(200) }))
	defer server.Close()

	in := newInput(collection.GET, server.URL)
	in.HistoryID = "caller-supplied-id"
	resp, err := New().Execute(context.Background(), in)
	if err != nil {
		t.Fatalf("Execute: %v", err)
	}
	if resp.HistoryID != "caller-supplied-id" {
		t.Errorf("HistoryID = %q, want caller-supplied-id", resp.HistoryID)
	}
}

func TestExecuteInvalidURLReportsErrorCode(t *testing.T) {
	resp, err := New().Execute(context.Background(), newInput(collection.GET, "not a url ://"))
	if err != nil {
		t.Fatalf("Execute should not return a Go error, got %v", err)
	}
	if resp.Error != ErrInvalidURL {
		t.Fatalf("Error = %v, want INVALID_URL", resp.Error)
	}
}

func TestExecuteRejectsNonHTTPScheme(t *testing.T) {
	resp, _ := New().Execute(context.Background(), newInput(collection.GET, "ftp://example.com/file"))
	if resp.Error != ErrInvalidURL {
		t.Fatalf("Error = %v, want INVALID_URL for ftp scheme", resp.Error)
	}
}

func TestExecuteFollows301DowngradingToGET(t *testing.T) {
	var secondHits int
	mux := http.NewServeMux()
	mux.HandleFunc("/start", func(w http.ResponseWriter, r *http.Request) {
		http.Redirect(w, r, "/end", http.StatusMovedPermanently)
	})
	mux.HandleFunc("/end", func(w http.ResponseWriter, r *http.Request) {
		secondHits++
		if r.Method != http.MethodGet {
			t.Errorf("expected downgraded GET, got %s", r.Method)
		}
		w.WriteHeader(200)
	})
	server := httptest.NewServer(mux)
	defer server.Close()

	in := newInput(collection.POST, server.URL+"/start")
	in.FollowRedirects = true
	resp, err := New().Execute(context.Background(), in)
	if err != nil {
		t.Fatalf("Execute: %v", err)
	}
	if resp.StatusCode != 200 || secondHits != 1 {
		t.Fatalf("redirect not followed correctly: %+v hits=%d", resp, secondHits)
	}
	if len(resp.RedirectChain) != 1 {
		t.Fatalf("RedirectChain = %v, want 1 entry", resp.RedirectChain)
	}
}

func TestExecutePreserves307MethodAndBody(t *testing.T) {
	mux := http.NewServeMux()
	mux.HandleFunc("/start", func(w http.ResponseWriter, r *http.Request) {
		http.Redirect(w, r, "/end", http.StatusTemporaryRedirect)
	})
	mux.HandleFunc("/end", func(w http.ResponseWriter, r *http.Request) {
		if r.Method != http.MethodPost {
			t.Errorf("307 must preserve method, got %s", r.Method)
		}
		w.WriteHeader(200)
	})
	server := httptest.NewServer(mux)
	defer server.Close()

	in := newInput(collection.POST, server.URL+"/start")
	in.FollowRedirects = true
	in.Body = &collection.Body{Type: collection.BodyRawJSON, Raw: `{"a":1}`}
	resp, err := New().Execute(context.Background(), in)
	if err != nil {
		t.Fatalf("Execute: %v", err)
	}
	if resp.StatusCode != 200 {
		t.Fatalf("unexpected status: %+v", resp)
	}
}

func chainServer(t *testing.T) *httptest.Server {
	t.Helper()
	return httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		n, _ := strconv.Atoi(r.URL.Query().Get("n"))
		if n <= 0 {
			w.WriteHeader(200)
			return
		}
		http.Redirect(w, r, fmt.Sprintf("?n=%d", n-1), http.StatusTemporaryRedirect)
	}))
}

func TestExecuteExactlyTenHopChainIsNotOverflow(t *testing.T) {
	server := chainServer(t)
	defer server.Close()

	in := newInput(collection.GET, server.URL+"?n=10")
	in.FollowRedirects = true
	resp, err := New().Execute(context.Background(), in)
	if err != nil {
		t.Fatalf("Execute: %v", err)
	}
	if resp.StatusCode != 200 {
		t.Fatalf("expected a clean terminal 200, got %+v", resp)
	}
	if len(resp.RedirectChain) != maxRedirectHops {
		t.Fatalf("expected a %d-hop chain, got %d", maxRedirectHops, len(resp.RedirectChain))
	}
	if resp.RedirectOverflow {
		t.Error("exactly-10-hop chain ending in a real 200 must not be flagged RedirectOverflow")
	}
}

func TestExecuteMoreThanTenHopsIsOverflow(t *testing.T) {
	server := chainServer(t)
	defer server.Close()

	in := newInput(collection.GET, server.URL+"?n=15")
	in.FollowRedirects = true
	resp, err := New().Execute(context.Background(), in)
	if err != nil {
		t.Fatalf("Execute: %v", err)
	}
	if !isRedirectStatus(resp.StatusCode) {
		t.Fatalf("expected the chain to still be mid-redirect when the hop cap is hit, got status %d", resp.StatusCode)
	}
	if !resp.RedirectOverflow {
		t.Error("a chain still redirecting at the hop cap must be flagged RedirectOverflow")
	}
}

func TestExecuteDoesNotFollowRedirectsWhenDisabled(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		http.Redirect(w, r, "/end", http.StatusFound)
	}))
	defer server.Close()

	resp, err := New().Execute(context.Background(), newInput(collection.GET, server.URL))
	if err != nil {
		t.Fatalf("Execute: %v", err)
	}
	if resp.StatusCode != http.StatusFound {
		t.Fatalf("expected raw 302 response when FollowRedirects is false, got %d", resp.StatusCode)
	}
}

func TestExecuteTruncatesOversizedBody(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		big := make([]byte, maxResponseBytes+1024)
		w.Write(big)
	}))
	defer server.Close()

	resp, err := New().Execute(context.Background(), newInput(collection.GET, server.URL))
	if err != nil {
		t.Fatalf("Execute: %v", err)
	}
	if !resp.Truncated || resp.ResponseSizeBytes != maxResponseBytes {
		t.Fatalf("expected truncation at %d bytes, got truncated=%v size=%d", maxResponseBytes, resp.Truncated, resp.ResponseSizeBytes)
	}
}

func TestExecuteAppliesBearerAuth(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.Header.Get("Authorization") != "Bearer secret" {
			t.Errorf("Authorization = %q", r.Header.Get("Authorization"))
		}
		w.WriteHeader(200)
	}))
	defer server.Close()

	cfgBytes, _ := json.Marshal(auth.BearerConfig{Token: "secret"})
	in := newInput(collection.GET, server.URL)
	in.Auth = auth.EffectiveAuth{Type: collection.AuthBearer, Config: cfgBytes}
	resp, err := New().Execute(context.Background(), in)
	if err != nil {
		t.Fatalf("Execute: %v", err)
	}
	if resp.StatusCode != 200 {
		t.Fatalf("unexpected status: %+v", resp)
	}
}

func TestExecuteClampsTimeoutToMinimum(t *testing.T) {
	if got := clampTimeout(1); got != minTimeoutMs {
		t.Fatalf("clampTimeout(1) = %d, want %d", got, minTimeoutMs)
	}
	if got := clampTimeout(0); got != defaultTimeoutMs {
		t.Fatalf("clampTimeout(0) = %d, want default %d", got, defaultTimeoutMs)
	}
	if got := clampTimeout(10_000_000); got != maxTimeoutMs {
		t.Fatalf("clampTimeout(10_000_000) = %d, want max %d", got, maxTimeoutMs)
	}
}

func TestExecuteUnreachableHostReportsErrorCode(t *testing.T) {
	in := newInput(collection.GET, "http://127.0.0.1:1")
	resp, err := New().Execute(context.Background(), in)
	if err != nil {
		t.Fatalf("Execute should not return a Go error, got %v", err)
	}
	if resp.Error != ErrUpstreamUnreachable {
		t.Fatalf("Error = %v, want UPSTREAM_UNREACHABLE", resp.Error)
	}
	if resp.StatusCode != 0 {
		t.Fatalf("StatusCode = %d, want 0 on failed dispatch", resp.StatusCode)
	}
}
