// Package runner implements the Collection Runner (spec.md §4.I) and
// its process-local Run Registry (spec.md §4.J): driving a whole
// Collection, iteration by iteration, request by request, through the
// auth/template/script/proxy/assertion/history pipeline that a single
// ad-hoc send already uses, and persisting the result through
// repository.Runs.
package runner

import (
	"context"
	"crypto/tls"
	"fmt"
	"time"

	"github.com/google/uuid"

	"github.com/sadopc/courier/internal/apierr"
	"github.com/sadopc/courier/internal/assertion"
	"github.com/sadopc/courier/internal/auth"
	"github.com/sadopc/courier/internal/core/collection"
	"github.com/sadopc/courier/internal/core/cookies"
	"github.com/sadopc/courier/internal/core/environment"
	corehistory "github.com/sadopc/courier/internal/core/history"
	"github.com/sadopc/courier/internal/core/run"
	"github.com/sadopc/courier/internal/history"
	"github.com/sadopc/courier/internal/logging"
	"github.com/sadopc/courier/internal/metrics"
	"github.com/sadopc/courier/internal/proxy"
	"github.com/sadopc/courier/internal/repository"
	"github.com/sadopc/courier/internal/scripting"
)

const (
	minIterationCount = 1
	maxIterationCount = 1000
	minDelayMs        = 0
	maxDelayMs        = 60_000
)

// Config is the input to Start, spec.md §6's POST /runner/start body.
type Config struct {
	TeamID        string
	ActorID       string
	CollectionID  string
	EnvironmentID string // optional; falls back to the team's active Environment

	IterationCount         int
	DelayBetweenRequestsMs int
	DataFilename           string // optional, e.g. "users.csv"
	DataContent            []byte

	TimeoutMs       int
	FollowRedirects bool
	ProxyURL        string
	TLSConfig       *tls.Config
	RecordHistory   bool
}

// Runner drives collection runs against its injected repositories.
// A Runner is safe for concurrent Start calls; each run gets its own
// goroutine and its own cookie Jar.
type Runner struct {
	Collections  repository.Collections
	Folders      repository.Folders
	Requests     repository.Requests
	Environments repository.Environments
	Globals      repository.GlobalVariables
	Runs         repository.Runs
	History      *history.Recorder
	Executor     *proxy.Executor
	Scripts      *scripting.Engine
	Registry     *Registry

	// Metrics, when set, receives run-completion and per-request
	// iteration counters. Nil is a no-op.
	Metrics *metrics.Metrics
}

// New builds a Runner from its dependencies. rec may be nil, in which
// case dispatched requests are never recorded to history regardless of
// cfg.RecordHistory.
func New(collections repository.Collections, folders repository.Folders, requests repository.Requests,
	environments repository.Environments, globals repository.GlobalVariables, runs repository.Runs,
	rec *history.Recorder, executor *proxy.Executor, engine *scripting.Engine) *Runner {
	return &Runner{
		Collections: collections, Folders: folders, Requests: requests,
		Environments: environments, Globals: globals, Runs: runs,
		History: rec, Executor: executor, Scripts: engine,
		Registry: NewRegistry(),
	}
}

// Start validates cfg, persists a PENDING RunResult, and kicks off the
// run on a detached goroutine, returning immediately with its id per
// spec.md §6. Validation failures never create a RunResult.
func (r *Runner) Start(ctx context.Context, cfg Config) (string, error) {
	if cfg.IterationCount < minIterationCount || cfg.IterationCount > maxIterationCount {
		return "", apierr.Validation(fmt.Sprintf("iterationCount must be between %d and %d", minIterationCount, maxIterationCount), nil)
	}
	if cfg.DelayBetweenRequestsMs < minDelayMs || cfg.DelayBetweenRequestsMs > maxDelayMs {
		return "", apierr.Validation(fmt.Sprintf("delayBetweenRequestsMs must be between %d and %d", minDelayMs, maxDelayMs), nil)
	}
	if cfg.CollectionID == "" {
		return "", apierr.Validation("collectionId is required", nil)
	}

	now := time.Now()
	result := &run.Result{
		ID:             uuid.New().String(),
		TeamID:         cfg.TeamID,
		ActorID:        cfg.ActorID,
		CollectionID:   cfg.CollectionID,
		EnvironmentID:  cfg.EnvironmentID,
		Status:         run.Pending,
		IterationCount: cfg.IterationCount,
		DelayMs:        cfg.DelayBetweenRequestsMs,
		DataFilename:   cfg.DataFilename,
		CreatedAt:      now,
	}
	if err := r.Runs.Create(ctx, result); err != nil {
		return "", apierr.Internal("creating run record", err)
	}

	runCtx, cancel := context.WithCancel(context.Background())
	handle := r.Registry.Register(result.ID, cancel)
	go r.execute(runCtx, handle, cfg, result)

	return result.ID, nil
}

// Cancel requests cooperative cancellation of a run this process is
// driving. It reports whether a Handle was found, not whether the run
// had already finished.
func (r *Runner) Cancel(runID string) bool {
	return r.Registry.Cancel(runID)
}

func (r *Runner) execute(ctx context.Context, handle *Handle, cfg Config, result *run.Result) {
	defer r.Registry.Forget(result.ID)

	handle.setStatus(run.Running)
	result.Status = run.Running
	result.StartedAt = time.Now()
	if err := r.Runs.Update(ctx, result); err != nil {
		logging.Op().Error("run status update failed", "run_id", result.ID, "error", err)
	}
	r.Metrics.RecordRunStarted()

	runErr := r.runIterations(ctx, cfg, result)
	if runErr != nil {
		logging.Op().Error("collection run failed", "run_id", result.ID, "error", runErr)
	}

	result.CompletedAt = time.Now()
	switch {
	case ctx.Err() != nil:
		result.Status = run.Cancelled
	case runErr != nil:
		result.Status = run.Failed
	default:
		result.Status = run.Completed
	}
	handle.setStatus(result.Status)
	r.Metrics.RecordRunCompleted(string(result.Status))
	if err := r.Runs.Update(context.WithoutCancel(ctx), result); err != nil {
		logging.Op().Error("run completion update failed", "run_id", result.ID, "error", err)
	}
}

// runIterations is the body of spec.md §4.I's algorithm. A non-nil
// error here means the run could not even begin (bad collection id,
// corrupt data file); per-request failures never abort the run, they
// just fail that iteration's assertions.
func (r *Runner) runIterations(ctx context.Context, cfg Config, result *run.Result) error {
	col, err := r.Collections.Get(ctx, cfg.CollectionID)
	if err != nil {
		return fmt.Errorf("loading collection: %w", err)
	}

	folders, err := r.Folders.ListByCollection(ctx, cfg.CollectionID)
	if err != nil {
		return fmt.Errorf("loading folders: %w", err)
	}
	folderByID := make(map[string]*collection.Folder, len(folders))
	for i := range folders {
		folderByID[folders[i].ID] = &folders[i]
	}

	var allRequests []collection.Request
	folderIDs := append([]string{""}, collectFolderIDs(folders)...)
	for _, fid := range folderIDs {
		reqs, err := r.Requests.ListByFolder(ctx, fid, true)
		if err != nil {
			return fmt.Errorf("loading requests for folder %q: %w", fid, err)
		}
		allRequests = append(allRequests, reqs...)
	}

	tree, err := collection.BuildTree(folders, allRequests)
	if err != nil {
		return fmt.Errorf("building folder tree: %w", err)
	}
	flatRequests := collection.Flatten(tree)
	if len(flatRequests) == 0 {
		return fmt.Errorf("collection %q has no requests to run", cfg.CollectionID)
	}

	var envVars []environment.Variable
	if env, err := r.resolveEnvironment(ctx, cfg); err != nil {
		return fmt.Errorf("loading environment: %w", err)
	} else if env != nil {
		envVars = env.Variables
	}

	globals, err := r.Globals.ListByTeam(ctx, cfg.TeamID)
	if err != nil {
		return fmt.Errorf("loading global variables: %w", err)
	}

	dataRows, err := ParseDataRows(cfg.DataFilename, cfg.DataContent)
	if err != nil {
		return fmt.Errorf("parsing data file: %w", err)
	}

	jar := cookies.New()

	for iteration := 1; iteration <= cfg.IterationCount; iteration++ {
		if ctx.Err() != nil {
			return nil
		}
		row := RowAt(dataRows, iteration-1)

		for i, req := range flatRequests {
			if ctx.Err() != nil {
				return nil
			}
			isLastRequestOverall := iteration == cfg.IterationCount && i == len(flatRequests)-1

			r.runOneRequest(ctx, cfg, result, col, folderByID, globals, envVars, row, iteration, req, jar)

			if !isLastRequestOverall && cfg.DelayBetweenRequestsMs > 0 {
				select {
				case <-time.After(time.Duration(cfg.DelayBetweenRequestsMs) * time.Millisecond):
				case <-ctx.Done():
					return nil
				}
			}
		}
	}
	return nil
}

func (r *Runner) resolveEnvironment(ctx context.Context, cfg Config) (*environment.Environment, error) {
	if cfg.EnvironmentID == "" {
		return r.Environments.FindActive(ctx, cfg.TeamID)
	}
	envs, err := r.Environments.ListByTeam(ctx, cfg.TeamID)
	if err != nil {
		return nil, err
	}
	for i := range envs {
		if envs[i].ID == cfg.EnvironmentID {
			return &envs[i], nil
		}
	}
	return nil, fmt.Errorf("environment %q not found for team %q", cfg.EnvironmentID, cfg.TeamID)
}

func collectFolderIDs(folders []collection.Folder) []string {
	ids := make([]string, len(folders))
	for i, f := range folders {
		ids[i] = f.ID
	}
	return ids
}

// runOneRequest executes the full per-request pipeline (spec.md §4.I
// step 4): pre-scripts, dispatch, post-scripts, assertion aggregation,
// extraction, and persistence. Failures are recorded on the iteration,
// never propagated to abort the run.
func (r *Runner) runOneRequest(ctx context.Context, cfg Config, result *run.Result, col *collection.Collection,
	folderByID map[string]*collection.Folder, globals []environment.GlobalVariable, envVars []environment.Variable,
	row map[string]string, iteration int, req *collection.Request, jar *cookies.Jar) {

	// Cancellation is observed between requests only: a request that has
	// started is dispatched, scripted and persisted to completion.
	ctx = context.WithoutCancel(ctx)

	store := environment.NewStore(globals, col.Variables, envVars)
	for k, v := range row {
		store.SetLocal(k, v)
	}

	ancestors, err := collection.AncestorFolders(folderByID, req.FolderID)
	if err != nil {
		r.recordFailedIteration(ctx, result.ID, iteration, req, err)
		return
	}

	eff := auth.Resolve(auth.RequestContext{Request: req, Folders: ancestors, Collection: col})

	scriptReq := &scripting.ScriptRequest{
		Method:  string(req.Method),
		URL:     req.URL,
		Headers: headersToMap(req.EnabledHeaders()),
	}
	if req.Body != nil {
		scriptReq.Body = req.Body.Raw
	}

	var logs []string
	var testResults []scripting.TestResult
	var scriptErr error
	runPre := func(script string) {
		if script == "" {
			return
		}
		res := r.Scripts.RunPreScript(script, scriptReq, store, jar)
		logs = append(logs, res.Logs...)
		testResults = append(testResults, res.TestResults...)
		if res.Err != nil && scriptErr == nil {
			scriptErr = res.Err
		}
	}
	runPre(col.PreScript)
	for i := len(ancestors) - 1; i >= 0; i-- { // outermost -> innermost
		runPre(ancestors[i].PreScript)
	}
	runPre(req.Scripts[collection.PreRequest])

	in := proxy.Input{
		Method:          req.Method,
		URL:             scriptReq.URL,
		Headers:         mapToHeaders(scriptReq.Headers),
		Params:          req.Params,
		Body:            req.Body,
		Auth:            eff,
		Store:           store,
		TimeoutMs:       cfg.TimeoutMs,
		FollowRedirects: cfg.FollowRedirects,
		ProxyURL:        cfg.ProxyURL,
		TLSConfig:       cfg.TLSConfig,
		CookieJar:       jar,
	}
	resp, execErr := r.Executor.Execute(ctx, in)
	if resp == nil {
		resp = &proxy.ProxyResponse{}
	}

	scriptResp := &scripting.ScriptResponse{
		Code:           resp.StatusCode,
		Status:         resp.StatusText,
		Body:           resp.ResponseBody,
		Headers:        flattenHeaders(resp.ResponseHeaders),
		ResponseTimeMs: float64(resp.ResponseTimeMs),
	}
	runPost := func(script string) {
		if script == "" {
			return
		}
		res := r.Scripts.RunPostScript(script, scriptResp, store, jar)
		logs = append(logs, res.Logs...)
		testResults = append(testResults, res.TestResults...)
		if res.Err != nil && scriptErr == nil {
			scriptErr = res.Err
		}
	}
	runPost(req.Scripts[collection.PostResponse])
	for _, f := range ancestors { // innermost -> outermost
		runPost(f.PostScript)
	}
	runPost(col.PostScript)

	for varName, expr := range req.Extract {
		if value := extractJSONField(resp.ResponseBody, expr); value != "" {
			store.SetLocal(varName, value)
		}
	}

	summary := assertion.Aggregate(testResults, scriptErr, execErr)

	errMsg := ""
	if execErr != nil {
		errMsg = execErr.Error()
	} else if resp.Error != "" {
		errMsg = fmt.Sprintf("%s: %s", resp.Error, resp.ErrorDetail)
	} else if scriptErr != nil {
		errMsg = scriptErr.Error()
	}

	it := run.Iteration{
		ID:                uuid.New().String(),
		RunID:             result.ID,
		IterationNumber:   iteration,
		RequestName:       req.Name,
		Method:            string(req.Method),
		URL:               resp.FinalURL,
		StatusCode:        resp.StatusCode,
		ResponseSizeBytes: resp.ResponseSizeBytes,
		ResponseTimeMs:    resp.ResponseTimeMs,
		Passed:            summary.IterationPassed,
		AssertionResults:  marshalTestResults(testResults),
		ErrorMessage:      errMsg,
		CreatedAt:         time.Now(),
	}
	if err := r.Runs.AppendIteration(ctx, result.ID, it); err != nil {
		logging.Op().Error("appending run iteration failed", "run_id", result.ID, "error", err)
	}
	addIterationTotals(result, summary)
	r.Metrics.RecordIteration(summary.IterationPassed, resp.ResponseTimeMs)

	if cfg.RecordHistory && r.History != nil {
		r.History.Record(ctx, corehistory.Entry{
			HistoryID:       resp.HistoryID,
			TeamID:          cfg.TeamID,
			ActorID:         cfg.ActorID,
			CollectionID:    cfg.CollectionID,
			RequestID:       req.ID,
			EnvironmentID:   cfg.EnvironmentID,
			Method:          string(req.Method),
			URL:             resp.FinalURL,
			RequestHeaders:  marshalHeaders(resp.RequestHeaders),
			RequestBody:     resp.RequestBody,
			StatusCode:      resp.StatusCode,
			ResponseHeaders: marshalHeaders(resp.ResponseHeaders),
			ResponseBody:    resp.ResponseBody,
			ContentType:     resp.ContentType,
			SizeBytes:       resp.ResponseSizeBytes,
			DurationMs:      resp.ResponseTimeMs,
			Truncated:       resp.Truncated,
			CreatedAt:       time.Now(),
		})
	}
}

func (r *Runner) recordFailedIteration(ctx context.Context, runID string, iteration int, req *collection.Request, err error) {
	it := run.Iteration{
		ID:              uuid.New().String(),
		RunID:           runID,
		IterationNumber: iteration,
		RequestName:     req.Name,
		Method:          string(req.Method),
		URL:             req.URL,
		ErrorMessage:    err.Error(),
		CreatedAt:       time.Now(),
	}
	if appendErr := r.Runs.AppendIteration(ctx, runID, it); appendErr != nil {
		logging.Op().Error("appending failed iteration failed", "run_id", runID, "error", appendErr)
	}
}

// ReapOrphans implements spec.md §9's "Run state across restarts" note:
// on startup, any RunResult left in RUNNING by a process that crashed
// mid-run is force-failed with Orphaned=true, since this process's Run
// Registry (§4.J) starts empty and can never observe or cancel it. It
// reports how many runs it reaped.
func ReapOrphans(ctx context.Context, runs repository.Runs, olderThan time.Duration) (int, error) {
	stuck, err := runs.ListRunning(ctx, time.Now().Add(-olderThan))
	if err != nil {
		return 0, fmt.Errorf("listing running runs: %w", err)
	}
	now := time.Now()
	for i := range stuck {
		r := stuck[i]
		r.Status = run.Failed
		r.Orphaned = true
		r.CompletedAt = now
		if err := runs.Update(ctx, &r); err != nil {
			logging.Op().Error("reaping orphaned run failed", "run_id", r.ID, "error", err)
		}
	}
	return len(stuck), nil
}

func addIterationTotals(result *run.Result, s assertion.Summary) {
	result.TotalRequests++
	if s.IterationPassed {
		result.PassedRequests++
	} else {
		result.FailedRequests++
	}
	result.TotalAssertions += s.Total
	result.PassedAssertions += s.Passed
	result.FailedAssertions += s.Failed
}
