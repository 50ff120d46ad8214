// Package scripting implements the Script Sandbox: single-threaded,
// cooperative execution of one PRE_REQUEST or POST_RESPONSE script at a
// time in an embedded goja VM, exposing the fixed pm.* host API and
// nothing else — no filesystem, sockets, process spawning, or host
// module imports are reachable from script code.
package scripting

import (
	"context"
	"fmt"
	"time"

	"github.com/dop251/goja"

	"github.com/sadopc/courier/internal/core/cookies"
	"github.com/sadopc/courier/internal/core/environment"
	"github.com/sadopc/courier/internal/metrics"
)

const (
	DefaultPreRequestTimeout   = 5 * time.Second
	DefaultPostResponseTimeout = 10 * time.Second
)

// Engine runs scripts against a Store snapshot. Pre-request and
// post-response scripts carry distinct, independently configurable
// timeouts.
type Engine struct {
	preTimeout  time.Duration
	postTimeout time.Duration

	// Metrics, when set, counts timed-out script runs by type. Nil is
	// a no-op, matching the Proxy Executor's Metrics field.
	Metrics *metrics.Metrics
}

// NewEngine builds an Engine. A zero duration for either timeout falls
// back to its documented default.
func NewEngine(preTimeout, postTimeout time.Duration) *Engine {
	if preTimeout <= 0 {
		preTimeout = DefaultPreRequestTimeout
	}
	if postTimeout <= 0 {
		postTimeout = DefaultPostResponseTimeout
	}
	return &Engine{preTimeout: preTimeout, postTimeout: postTimeout}
}

// Result holds everything a script run observed or changed.
type Result struct {
	Logs        []string
	TestResults []TestResult
	Request     *ScriptRequest // mutated in place for PRE_REQUEST; nil for POST_RESPONSE
	Err         error
}

// RunPreScript executes a PRE_REQUEST script. req is mutated in place by
// pm.request.headers.* calls; store is mutated in place by pm.variables/
// environment/globals calls. jar, when non-nil, backs pm.cookies.get/set
// and is shared across every request in a collection run so cookies set
// by one response are visible to later requests.
func (e *Engine) RunPreScript(script string, req *ScriptRequest, store *environment.Store, jar *cookies.Jar) *Result {
	api := newScriptAPI(store, req, nil, jar)
	err := e.run(script, api, e.preTimeout, "PRE_REQUEST")
	return &Result{Logs: api.logs, TestResults: api.testResults, Request: req, Err: err}
}

// RunPostScript executes a POST_RESPONSE script. resp is read-only;
// store and jar are mutated in place exactly as in RunPreScript.
func (e *Engine) RunPostScript(script string, resp *ScriptResponse, store *environment.Store, jar *cookies.Jar) *Result {
	api := newScriptAPI(store, nil, resp, jar)
	err := e.run(script, api, e.postTimeout, "POST_RESPONSE")
	return &Result{Logs: api.logs, TestResults: api.testResults, Err: err}
}

func (e *Engine) run(script string, api *scriptAPI, timeout time.Duration, scriptType string) error {
	vm := goja.New()
	api.registerOnRuntime(vm)

	ctx, cancel := context.WithTimeout(context.Background(), timeout)
	defer cancel()

	done := make(chan struct{})
	go func() {
		select {
		case <-ctx.Done():
			vm.Interrupt("script timeout")
		case <-done:
		}
	}()

	_, err := vm.RunString(script)
	close(done)

	if ctx.Err() == context.DeadlineExceeded {
		e.Metrics.RecordScriptTimeout(scriptType)
		return fmt.Errorf("script timeout")
	}
	if err != nil {
		return fmt.Errorf("script error: %w", err)
	}
	return nil
}
