package server

import (
	"bytes"
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/sadopc/courier/internal/core/collection"
	corehistory "github.com/sadopc/courier/internal/core/history"
	"github.com/sadopc/courier/internal/core/run"
	"github.com/sadopc/courier/internal/history"
	"github.com/sadopc/courier/internal/metrics"
	"github.com/sadopc/courier/internal/proxy"
	"github.com/sadopc/courier/internal/repository/memory"
	"github.com/sadopc/courier/internal/runner"
	"github.com/sadopc/courier/internal/scripting"
)

func newTestServer(store *memory.Store) *Server {
	rec := history.NewRecorder(store.History)
	return &Server{
		Collections: store.Collections, Folders: store.Folders, Requests: store.Requests,
		Environments: store.Environments, Globals: store.GlobalVariables, HistoryStore: store.History,
		Runs: store.Runs, Executor: proxy.New(), History: rec, Metrics: metrics.New("courier_test"),
		Runner: runner.New(store.Collections, store.Folders, store.Requests, store.Environments,
			store.GlobalVariables, store.Runs, rec, proxy.New(), scripting.NewEngine(0, 0)),
	}
}

func TestHandleMetricsIsExemptFromTeamScope(t *testing.T) {
	store := memory.New()
	srv := newTestServer(store)

	req := httptest.NewRequest(http.MethodGet, "/metrics", nil)
	rec := httptest.NewRecorder()
	srv.Handler().ServeHTTP(rec, req)

	if rec.Code != http.StatusOK {
		t.Fatalf("Code = %d, want 200 for /metrics without an X-Team-ID header", rec.Code)
	}
}

func TestHandleProxySendRejectsMissingTeamHeader(t *testing.T) {
	store := memory.New()
	srv := newTestServer(store)

	req := httptest.NewRequest(http.MethodPost, "/proxy/send", bytes.NewReader([]byte(`{}`)))
	rec := httptest.NewRecorder()
	srv.Handler().ServeHTTP(rec, req)

	if rec.Code != http.StatusForbidden {
		t.Fatalf("Code = %d, want 403 for a missing X-Team-ID header", rec.Code)
	}
}

func TestHandleProxySendDispatchesAndReturnsResponse(t *testing.T) {
	upstream := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(201)
		w.Write([]byte(`{"created":true}`))
	}))
	defer upstream.Close()

	store := memory.New()
	srv := newTestServer(store)

	body, _ := json.Marshal(sendRequestProxyDTO{
		Method: collection.POST, URL: upstream.URL, TimeoutMs: 5000,
	})
	req := httptest.NewRequest(http.MethodPost, "/proxy/send", bytes.NewReader(body))
	req.Header.Set("X-Team-ID", "team-1")
	rec := httptest.NewRecorder()
	srv.Handler().ServeHTTP(rec, req)

	if rec.Code != http.StatusOK {
		t.Fatalf("Code = %d, body = %s", rec.Code, rec.Body.String())
	}
	var out proxyResponseDTO
	if err := json.Unmarshal(rec.Body.Bytes(), &out); err != nil {
		t.Fatalf("decoding response: %v", err)
	}
	if out.StatusCode != 201 {
		t.Fatalf("StatusCode = %d, want 201", out.StatusCode)
	}
}

func TestHandleRunnerStartAndStatusAndCancel(t *testing.T) {
	upstream := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		time.Sleep(5 * time.Millisecond)
		w.WriteHeader(200)
	}))
	defer upstream.Close()

	store := memory.New()
	ctx := context.Background()
	col := &collection.Collection{ID: "c1", TeamID: "team-1", Name: "API"}
	store.Collections.Save(ctx, col)
	folder := &collection.Folder{ID: "f1", CollectionID: "c1", Name: "root"}
	store.Folders.Save(ctx, folder)
	r := collection.NewRequest("f1", "Ping", collection.GET, upstream.URL)
	store.Requests.Save(ctx, r)

	srv := newTestServer(store)

	startBody, _ := json.Marshal(runnerStartDTO{CollectionID: "c1", IterationCount: 5, DelayBetweenRequestsMs: 20})
	startReq := httptest.NewRequest(http.MethodPost, "/runner/start", bytes.NewReader(startBody))
	startReq.Header.Set("X-Team-ID", "team-1")
	startRec := httptest.NewRecorder()
	srv.Handler().ServeHTTP(startRec, startReq)
	if startRec.Code != http.StatusAccepted {
		t.Fatalf("start Code = %d, body = %s", startRec.Code, startRec.Body.String())
	}
	var started runnerStartResponseDTO
	if err := json.Unmarshal(startRec.Body.Bytes(), &started); err != nil {
		t.Fatalf("decoding start response: %v", err)
	}

	statusReq := httptest.NewRequest(http.MethodGet, "/runner/"+started.RunID, nil)
	statusReq.Header.Set("X-Team-ID", "team-1")
	statusRec := httptest.NewRecorder()
	srv.Handler().ServeHTTP(statusRec, statusReq)
	if statusRec.Code != http.StatusOK {
		t.Fatalf("status Code = %d, body = %s", statusRec.Code, statusRec.Body.String())
	}

	cancelReq := httptest.NewRequest(http.MethodPost, "/runner/"+started.RunID+"/cancel", nil)
	cancelReq.Header.Set("X-Team-ID", "team-1")
	cancelRec := httptest.NewRecorder()
	srv.Handler().ServeHTTP(cancelRec, cancelReq)
	if cancelRec.Code != http.StatusAccepted {
		t.Fatalf("cancel Code = %d, body = %s", cancelRec.Code, cancelRec.Body.String())
	}

	deadline := time.Now().Add(2 * time.Second)
	var final *run.Result
	for time.Now().Before(deadline) {
		got, err := store.Runs.Get(ctx, started.RunID)
		if err != nil {
			t.Fatalf("Runs.Get: %v", err)
		}
		if got.Status.IsTerminal() {
			final = got
			break
		}
		time.Sleep(5 * time.Millisecond)
	}
	if final == nil {
		t.Fatal("run did not reach a terminal state")
	}
}

func TestHandleRunnerStatusRejectsOtherTeam(t *testing.T) {
	store := memory.New()
	ctx := context.Background()
	col := &collection.Collection{ID: "c1", TeamID: "team-1", Name: "API"}
	store.Collections.Save(ctx, col)
	folder := &collection.Folder{ID: "f1", CollectionID: "c1", Name: "root"}
	store.Folders.Save(ctx, folder)
	r := collection.NewRequest("f1", "Ping", collection.GET, "http://example.invalid")
	store.Requests.Save(ctx, r)

	srv := newTestServer(store)
	startBody, _ := json.Marshal(runnerStartDTO{CollectionID: "c1", IterationCount: 1})
	startReq := httptest.NewRequest(http.MethodPost, "/runner/start", bytes.NewReader(startBody))
	startReq.Header.Set("X-Team-ID", "team-1")
	startRec := httptest.NewRecorder()
	srv.Handler().ServeHTTP(startRec, startReq)

	var started runnerStartResponseDTO
	json.Unmarshal(startRec.Body.Bytes(), &started)

	statusReq := httptest.NewRequest(http.MethodGet, "/runner/"+started.RunID, nil)
	statusReq.Header.Set("X-Team-ID", "team-2")
	statusRec := httptest.NewRecorder()
	srv.Handler().ServeHTTP(statusRec, statusReq)
	if statusRec.Code != http.StatusForbidden {
		t.Fatalf("Code = %d, want 403 for a cross-team status request", statusRec.Code)
	}
}

func TestHandleHistoryListIsTeamScoped(t *testing.T) {
	store := memory.New()
	ctx := context.Background()
	store.History.Append(ctx, corehistory.Entry{TeamID: "team-1", Method: "GET", URL: "http://a", CreatedAt: time.Now()})
	store.History.Append(ctx, corehistory.Entry{TeamID: "team-2", Method: "GET", URL: "http://b", CreatedAt: time.Now()})

	srv := newTestServer(store)
	req := httptest.NewRequest(http.MethodGet, "/history", nil)
	req.Header.Set("X-Team-ID", "team-1")
	rec := httptest.NewRecorder()
	srv.Handler().ServeHTTP(rec, req)

	if rec.Code != http.StatusOK {
		t.Fatalf("Code = %d, body = %s", rec.Code, rec.Body.String())
	}
	var out []historyEntryDTO
	if err := json.Unmarshal(rec.Body.Bytes(), &out); err != nil {
		t.Fatalf("decoding history response: %v", err)
	}
	if len(out) != 1 || out[0].TeamID != "team-1" {
		t.Fatalf("expected exactly 1 entry scoped to team-1, got %+v", out)
	}
}
