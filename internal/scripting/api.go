package scripting

import (
	"fmt"

	"github.com/dop251/goja"

	"github.com/sadopc/courier/internal/core/cookies"
	"github.com/sadopc/courier/internal/core/environment"
)

// TestResult holds the outcome of one pm.test() call.
type TestResult struct {
	Name   string
	Passed bool
	Error  string
}

// scriptAPI builds the `pm` global object exposed to a single script
// run. It wraps a Store snapshot and, for PRE_REQUEST, the outgoing
// ScriptRequest under construction.
type scriptAPI struct {
	store       *environment.Store
	request     *ScriptRequest
	response    *ScriptResponse
	jar         *cookies.Jar
	logs        []string
	testResults []TestResult
}

func newScriptAPI(store *environment.Store, req *ScriptRequest, resp *ScriptResponse, jar *cookies.Jar) *scriptAPI {
	return &scriptAPI{store: store, request: req, response: resp, jar: jar}
}

func (a *scriptAPI) registerOnRuntime(vm *goja.Runtime) {
	pm := vm.NewObject()

	pm.Set("variables", a.scopeObject(vm, scopeKindResolved))
	pm.Set("environment", a.scopeObject(vm, scopeKindEnvironment))
	pm.Set("globals", a.scopeObject(vm, scopeKindGlobal))

	if a.request != nil {
		pm.Set("request", a.requestObject(vm))
	}
	if a.response != nil {
		pm.Set("response", a.responseObject(vm))
	}
	pm.Set("cookies", a.cookiesObject(vm))

	pm.Set("test", func(call goja.FunctionCall) goja.Value {
		name := call.Argument(0).String()
		fn, ok := goja.AssertFunction(call.Argument(1))
		if !ok {
			a.testResults = append(a.testResults, TestResult{Name: name, Error: "pm.test requires a function argument"})
			return goja.Undefined()
		}
		result := TestResult{Name: name, Passed: true}
		if _, err := fn(goja.Undefined()); err != nil {
			result.Passed = false
			result.Error = err.Error()
		}
		a.testResults = append(a.testResults, result)
		return goja.Undefined()
	})

	pm.Set("expect", func(call goja.FunctionCall) goja.Value {
		return vm.ToValue(newExpectation(vm, call.Argument(0)))
	})

	console := vm.NewObject()
	logFn := func(call goja.FunctionCall) goja.Value {
		args := make([]interface{}, len(call.Arguments))
		for i, v := range call.Arguments {
			args[i] = v.Export()
		}
		a.logs = append(a.logs, fmt.Sprintln(args...))
		return goja.Undefined()
	}
	console.Set("log", logFn)
	console.Set("info", logFn)
	console.Set("warn", logFn)
	console.Set("error", logFn)
	vm.Set("console", console)

	vm.Set("pm", pm)
}

type scopeKind int

const (
	scopeKindResolved scopeKind = iota
	scopeKindEnvironment
	scopeKindGlobal
)

// scopeObject builds the get/set/unset triad shared by pm.variables,
// pm.environment, and pm.globals — identical shape, different backing
// scope in the Store.
func (a *scriptAPI) scopeObject(vm *goja.Runtime, kind scopeKind) *goja.Object {
	obj := vm.NewObject()
	obj.Set("get", func(call goja.FunctionCall) goja.Value {
		name := call.Argument(0).String()
		var value string
		var ok bool
		switch kind {
		case scopeKindResolved:
			value, _, ok = a.store.Resolve(name)
		case scopeKindEnvironment:
			value, ok = a.store.GetEnvironmentScope(name)
		case scopeKindGlobal:
			value, ok = a.store.GetGlobalScope(name)
		}
		if !ok {
			return goja.Undefined()
		}
		return vm.ToValue(value)
	})
	obj.Set("set", func(call goja.FunctionCall) goja.Value {
		name, value := call.Argument(0).String(), call.Argument(1).String()
		switch kind {
		case scopeKindResolved:
			a.store.SetLocal(name, value)
		case scopeKindEnvironment:
			a.store.SetEnvironmentOverlay(name, value)
		case scopeKindGlobal:
			a.store.SetGlobalOverlay(name, value)
		}
		return goja.Undefined()
	})
	obj.Set("unset", func(call goja.FunctionCall) goja.Value {
		name := call.Argument(0).String()
		switch kind {
		case scopeKindResolved:
			a.store.UnsetLocal(name)
		case scopeKindEnvironment:
			a.store.UnsetEnvironmentOverlay(name)
		case scopeKindGlobal:
			a.store.UnsetGlobalOverlay(name)
		}
		return goja.Undefined()
	})
	return obj
}

func (a *scriptAPI) requestObject(vm *goja.Runtime) *goja.Object {
	obj := vm.NewObject()
	obj.Set("method", a.request.Method)
	obj.Set("url", a.request.URL)
	obj.Set("body", a.request.Body)

	headers := vm.NewObject()
	ops := HeaderOps{req: a.request}
	headers.Set("add", func(call goja.FunctionCall) goja.Value {
		ops.Add(call.Argument(0).String(), call.Argument(1).String())
		return goja.Undefined()
	})
	headers.Set("upsert", func(call goja.FunctionCall) goja.Value {
		ops.Upsert(call.Argument(0).String(), call.Argument(1).String())
		return goja.Undefined()
	})
	headers.Set("remove", func(call goja.FunctionCall) goja.Value {
		ops.Remove(call.Argument(0).String())
		return goja.Undefined()
	})
	headers.Set("get", func(call goja.FunctionCall) goja.Value {
		return vm.ToValue(ops.Get(call.Argument(0).String()))
	})
	obj.Set("headers", headers)
	return obj
}

// cookiesObject backs pm.cookies.get/set, scoped to whatever Jar the
// caller handed the Engine — nil when a script runs outside a
// collection run, in which case both calls are no-ops.
func (a *scriptAPI) cookiesObject(vm *goja.Runtime) *goja.Object {
	ops := CookieOps{jar: a.jar}
	obj := vm.NewObject()
	obj.Set("get", func(call goja.FunctionCall) goja.Value {
		value, ok := ops.Get(call.Argument(0).String(), call.Argument(1).String())
		if !ok {
			return goja.Undefined()
		}
		return vm.ToValue(value)
	})
	obj.Set("set", func(call goja.FunctionCall) goja.Value {
		ops.Set(call.Argument(0).String(), call.Argument(1).String(), call.Argument(2).String())
		return goja.Undefined()
	})
	return obj
}

func (a *scriptAPI) responseObject(vm *goja.Runtime) *goja.Object {
	obj := vm.NewObject()
	obj.Set("code", a.response.Code)
	obj.Set("status", a.response.Status)
	obj.Set("responseTime", a.response.ResponseTimeMs)

	obj.Set("text", func(call goja.FunctionCall) goja.Value {
		return vm.ToValue(a.response.Body)
	})
	obj.Set("json", func(call goja.FunctionCall) goja.Value {
		jsonObj := vm.Get("JSON").ToObject(vm)
		parse, ok := goja.AssertFunction(jsonObj.Get("parse"))
		if !ok {
			panic(vm.NewGoError(fmt.Errorf("pm.response.json(): JSON.parse is unavailable")))
		}
		parsed, err := parse(jsonObj, vm.ToValue(a.response.Body))
		if err != nil {
			panic(vm.NewGoError(fmt.Errorf("pm.response.json(): body is not valid JSON: %w", err)))
		}
		return parsed
	})

	headers := vm.NewObject()
	getter := HeaderGetter{resp: a.response}
	headers.Set("get", func(call goja.FunctionCall) goja.Value {
		return vm.ToValue(getter.Get(call.Argument(0).String()))
	})
	obj.Set("headers", headers)
	return obj
}
