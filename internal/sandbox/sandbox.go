package sandbox

import (
	"context"
	"errors"
	"time"

	"github.com/dop251/goja"

	"github.com/dmmulroy/opensrc-mcp/internal/opensrcerr"
)

// DefaultDeadline is the sandbox's execution deadline when none is given
// (specification §5: sandbox deadline = 30000ms).
const DefaultDeadline = 30 * time.Second

var errDeadlineExceeded = errors.New("sandbox: execution deadline exceeded")

// Sandbox runs one agent-authored script per Run call against a fresh
// goja.Runtime, exposing only api as the global `opensrc` object.
type Sandbox struct {
	api      API
	deadline time.Duration
}

// New builds a Sandbox bound to api. deadline falls back to
// DefaultDeadline when <= 0.
func New(api API, deadline time.Duration) *Sandbox {
	if deadline <= 0 {
		deadline = DefaultDeadline
	}
	return &Sandbox{api: api, deadline: deadline}
}

// Run compiles code as an expression producing a callable (an arrow
// function, per the external spec's execute(code) contract), invokes it
// with no arguments, and returns its value already Export()-ed to plain Go
// data (string/float64/bool/nil/[]interface{}/map[string]interface{}) —
// opaque to the caller, which is expected to stringify or JSON-encode it.
func (s *Sandbox) Run(ctx context.Context, code string) (result any, err error) {
	rt := goja.New()
	rt.SetFieldNameMapper(goja.TagFieldNameMapper("json", true))

	freezeIntrinsicPrototypes(rt)
	restrictGlobals(rt, ctx, s.api)

	prog, err := goja.Compile("<script>", "("+code+")", true)
	if err != nil {
		return nil, opensrcerr.New(opensrcerr.KindCodeExecutionError, "sandbox.Run", "compile error: "+err.Error())
	}

	timer := time.AfterFunc(s.deadline, func() {
		rt.Interrupt(errDeadlineExceeded)
	})
	defer timer.Stop()

	// goja's host-bound functions (see restrictGlobals) signal Go errors by
	// panicking with a *goja.Object built from them; recover that here
	// rather than letting it escape as a bare panic, matching how goja
	// itself recovers panics raised from native function bindings.
	defer func() {
		if r := recover(); r != nil {
			err = mapPanic(r)
		}
	}()

	callable, err := rt.RunProgram(prog)
	if err != nil {
		return nil, mapRunError(err)
	}

	fn, ok := goja.AssertFunction(callable)
	if !ok {
		return nil, opensrcerr.New(opensrcerr.KindCodeExecutionError, "sandbox.Run", "execute's code must evaluate to a callable")
	}

	value, err := fn(goja.Undefined())
	if err != nil {
		return nil, mapRunError(err)
	}
	if p, ok := value.Export().(*goja.Promise); ok {
		switch p.State() {
		case goja.PromiseStateFulfilled:
			return p.Result().Export(), nil
		case goja.PromiseStateRejected:
			return nil, opensrcerr.New(opensrcerr.KindCodeExecutionError, "sandbox.Run", p.Result().String())
		default:
			return nil, opensrcerr.New(opensrcerr.KindCodeExecutionError, "sandbox.Run", "script's promise did not settle")
		}
	}
	return value.Export(), nil
}

func mapRunError(err error) error {
	var interrupted *goja.InterruptedError
	if errors.As(err, &interrupted) {
		return opensrcerr.New(opensrcerr.KindExecutionTimeout, "sandbox.Run", "script exceeded the execution deadline")
	}
	var exc *goja.Exception
	if errors.As(err, &exc) {
		return opensrcerr.New(opensrcerr.KindCodeExecutionError, "sandbox.Run", exc.Error())
	}
	return opensrcerr.Wrap(opensrcerr.KindCodeExecutionError, "sandbox.Run", err)
}

func mapPanic(r any) error {
	if gojaErr, ok := r.(*goja.Exception); ok {
		return mapRunError(gojaErr)
	}
	if err, ok := r.(error); ok {
		return mapRunError(err)
	}
	return opensrcerr.New(opensrcerr.KindCodeExecutionError, "sandbox.Run", "script panicked")
}
