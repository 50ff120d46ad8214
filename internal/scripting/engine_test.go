package scripting

import (
	"strings"
	"testing"
	"time"

	"github.com/sadopc/courier/internal/core/environment"
)

func TestRunPreScriptMutatesHeadersAndLocalVariables(t *testing.T) {
	e := NewEngine(0, 0)
	store := environment.NewStore(nil, nil, nil)
	req := &ScriptRequest{Method: "GET", URL: "http://a.test"}

	result := e.RunPreScript(`
		pm.request.headers.add("X-Trace", "1");
		pm.variables.set("computed", "42");
	`, req, store, nil)

	if result.Err != nil {
		t.Fatalf("RunPreScript: %v", result.Err)
	}
	if req.Headers["X-Trace"] != "1" {
		t.Fatalf("header not applied: %+v", req.Headers)
	}
	if v, _, _ := store.Resolve("computed"); v != "42" {
		t.Fatalf("variable not set, Resolve(computed) = %q", v)
	}
}

func TestRunPostScriptRecordsTestResults(t *testing.T) {
	e := NewEngine(0, 0)
	store := environment.NewStore(nil, nil, nil)
	resp := &ScriptResponse{Code: 200, Status: "200 OK", Body: `{"ok":true}`}

	result := e.RunPostScript(`
		pm.test("status is ok", function () { pm.expect(pm.response.code).to.be.ok; });
		var body = pm.response.json();
		pm.test("body parsed", function () { pm.expect(body.ok).to.equal(true); });
	`, resp, store, nil)

	if result.Err != nil {
		t.Fatalf("RunPostScript: %v", result.Err)
	}
	if len(result.TestResults) != 2 {
		t.Fatalf("expected 2 test results, got %d: %+v", len(result.TestResults), result.TestResults)
	}
	for _, tr := range result.TestResults {
		if !tr.Passed {
			t.Fatalf("test %q failed: %s", tr.Name, tr.Error)
		}
	}
}

func TestRunPostScriptFailedAssertionRecordsFailure(t *testing.T) {
	e := NewEngine(0, 0)
	store := environment.NewStore(nil, nil, nil)
	resp := &ScriptResponse{Code: 500}

	result := e.RunPostScript(`
		pm.test("should be 2xx", function () { pm.expect(pm.response.code).to.be.ok; });
	`, resp, store, nil)

	if result.Err != nil {
		t.Fatalf("RunPostScript: %v", result.Err)
	}
	if len(result.TestResults) != 1 || result.TestResults[0].Passed {
		t.Fatalf("expected one failing test result, got %+v", result.TestResults)
	}
}

func TestPreRequestScriptTimeoutIsEnforced(t *testing.T) {
	e := NewEngine(20*time.Millisecond, 20*time.Millisecond)
	store := environment.NewStore(nil, nil, nil)
	req := &ScriptRequest{}

	result := e.RunPreScript(`while (true) {}`, req, store, nil)
	if result.Err == nil || !strings.Contains(result.Err.Error(), "timeout") {
		t.Fatalf("expected a timeout error, got %v", result.Err)
	}
}

func TestScriptCannotReachHostModules(t *testing.T) {
	e := NewEngine(0, 0)
	store := environment.NewStore(nil, nil, nil)
	req := &ScriptRequest{}

	result := e.RunPreScript(`require("fs")`, req, store, nil)
	if result.Err == nil {
		t.Fatal("expected an error, require() must not be reachable from scripts")
	}
}
