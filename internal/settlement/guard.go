package settlement

import (
	"fmt"
	"reflect"
	"runtime"
	"strings"
)

var selfPkg = reflect.TypeOf(Engine{}).PkgPath() + "."

// CallerGuard restricts which packages may call the engine's mutating
// operations. The caller is the first stack frame outside this package.
type CallerGuard struct {
	allowed []string
}

// NewCallerGuard allows calls from functions whose fully qualified name
// starts with one of prefixes, e.g. "SettlementEngine/internal/ledger".
func NewCallerGuard(prefixes ...string) *CallerGuard {
	return &CallerGuard{allowed: prefixes}
}

// Allows reports whether fn (a runtime function name) may call the engine.
func (g *CallerGuard) Allows(fn string) bool {
	for _, p := range g.allowed {
		if strings.HasPrefix(fn, p) {
			return true
		}
	}
	return false
}

func (e *Engine) authorize(op string) error {
	if e.guard == nil {
		return nil
	}
	caller := externalCaller()
	if e.guard.Allows(caller) {
		return nil
	}
	return e.fail(&Failure{Op: op, Reason: ReasonUnauthorizedCaller, Err: fmt.Errorf("call from %s", caller)})
}

func externalCaller() string {
	var pcs [32]uintptr
	n := runtime.Callers(2, pcs[:])
	frames := runtime.CallersFrames(pcs[:n])
	for {
		f, more := frames.Next()
		if !strings.HasPrefix(f.Function, selfPkg) {
			return f.Function
		}
		if !more {
			return ""
		}
	}
}
