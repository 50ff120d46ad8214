package scripting

import (
	"fmt"
	"strings"

	"github.com/dop251/goja"
)

// newExpectation builds the fluent pm.expect(value).to.* matcher chain.
// Failures raise a Go error through the VM, which goja.AssertFunction's
// caller in pm.test surfaces as that test's failure message.
func newExpectation(vm *goja.Runtime, actual goja.Value) *goja.Object {
	root := vm.NewObject()
	to := vm.NewObject()
	be := vm.NewObject()

	to.Set("equal", func(call goja.FunctionCall) goja.Value {
		expected := call.Argument(0)
		if fmt.Sprint(actual.Export()) != fmt.Sprint(expected.Export()) {
			panicMismatch(vm, "equal", expected, actual)
		}
		return goja.Undefined()
	})

	to.Set("include", func(call goja.FunctionCall) goja.Value {
		needle := call.Argument(0).String()
		if !strings.Contains(fmt.Sprint(actual.Export()), needle) {
			panic(vm.NewGoError(fmt.Errorf("expected %v to include %q", actual.Export(), needle)))
		}
		return goja.Undefined()
	})

	be.Set("above", func(call goja.FunctionCall) goja.Value {
		if actual.ToFloat() <= call.Argument(0).ToFloat() {
			panic(vm.NewGoError(fmt.Errorf("expected %v to be above %v", actual.Export(), call.Argument(0).Export())))
		}
		return goja.Undefined()
	})

	be.Set("below", func(call goja.FunctionCall) goja.Value {
		if actual.ToFloat() >= call.Argument(0).ToFloat() {
			panic(vm.NewGoError(fmt.Errorf("expected %v to be below %v", actual.Export(), call.Argument(0).Export())))
		}
		return goja.Undefined()
	})

	code := int64(actual.ToInteger())
	be.DefineAccessorProperty("ok", vm.ToValue(func(call goja.FunctionCall) goja.Value {
		if code < 200 || code > 299 {
			panic(vm.NewGoError(fmt.Errorf("expected status %d to be in the 2xx range", code)))
		}
		return goja.Undefined()
	}), nil, goja.FLAG_FALSE, goja.FLAG_TRUE)

	to.Set("be", be)
	root.Set("to", to)
	return root
}

func panicMismatch(vm *goja.Runtime, verb string, expected, actual goja.Value) {
	panic(vm.NewGoError(fmt.Errorf("expected %v to %s %v", actual.Export(), verb, expected.Export())))
}
