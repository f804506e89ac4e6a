package bridge

import (
	"errors"
	"fmt"

	lua "github.com/yuin/gopher-lua"
)

var (
	ErrStaleHandle       = errors.New("stale handle")
	ErrMethodNotFound    = errors.New("method not found")
	ErrInvalidReceiver   = errors.New("invalid receiver")
	ErrTooManyArguments  = errors.New("too many arguments")
	ErrInitFailed        = errors.New("instance initialization failed")
	ErrAlreadyBound      = errors.New("object already has a script instance")
	ErrInstanceDestroyed = errors.New("instance destroyed")
	ErrScriptNotFound    = errors.New("script not found")
	ErrInvalidScript     = errors.New("invalid script")
	ErrInheritanceCycle  = errors.New("inheritance cycle")
	ErrScriptCacheFull   = errors.New("script cache limit reached")
	ErrRuntimeClosed     = errors.New("runtime closed")
)

// CallStatus is the outcome of calling a method at one resolution level.
type CallStatus int

const (
	StatusOK CallStatus = iota
	StatusSkip
	StatusFailed
)

func (s CallStatus) String() string {
	switch s {
	case StatusOK:
		return "ok"
	case StatusSkip:
		return "skip"
	case StatusFailed:
		return "failed"
	default:
		return fmt.Sprintf("status(%d)", int(s))
	}
}

// CallError reports a script method that raised while executing at a given
// level of the inheritance chain. Level 0 is the leaf script.
type CallError struct {
	Script string
	Method string
	Level  int
	Err    error
}

func (e *CallError) Error() string {
	script := e.Script
	if script == "" {
		script = "<bare>"
	}
	return fmt.Sprintf("%s.%s (level %d): %v", script, e.Method, e.Level, e.Err)
}

func (e *CallError) Unwrap() error { return e.Err }

// ScriptError is an error raised by script code with error().
type ScriptError struct {
	Message   string
	Traceback string
}

func (e *ScriptError) Error() string { return e.Message }

const goErrorTypeName = "GoError"

// raiseError aborts the running script function with err. The Go error
// travels through the runtime as a userdata so callers can still match it
// with errors.Is.
func raiseError(L *lua.LState, err error) {
	ud := L.NewUserData()
	ud.Value = err
	L.SetMetatable(ud, L.GetTypeMetatable(goErrorTypeName))
	L.Error(ud, 1)
}

func raiseErrorf(L *lua.LState, err error, format string, args ...any) {
	raiseError(L, fmt.Errorf("%w: %s", err, fmt.Sprintf(format, args...)))
}

// scriptError converts a protected call failure back into a Go error.
func scriptError(err error) error {
	var apiErr *lua.ApiError
	if !errors.As(err, &apiErr) {
		return err
	}
	if ud, ok := apiErr.Object.(*lua.LUserData); ok {
		if goErr, ok := ud.Value.(error); ok {
			return goErr
		}
	}
	msg := "script error"
	if apiErr.Object != nil && apiErr.Object != lua.LNil {
		msg = apiErr.Object.String()
	}
	return &ScriptError{Message: msg, Traceback: apiErr.StackTrace}
}

func registerErrorType(L *lua.LState) {
	mt := L.NewTypeMetatable(goErrorTypeName)
	L.SetField(mt, "__tostring", L.NewFunction(func(L *lua.LState) int {
		ud := L.CheckUserData(1)
		if err, ok := ud.Value.(error); ok {
			L.Push(lua.LString(err.Error()))
			return 1
		}
		L.Push(lua.LString("error"))
		return 1
	}))
}
