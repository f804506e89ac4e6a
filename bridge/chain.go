package bridge

import (
	"context"
	"fmt"

	lua "github.com/yuin/gopher-lua"
	"go.uber.org/zap"

	"github.com/mgomes/luabridge/host"
	"github.com/mgomes/luabridge/variant"
)

// tier is one level of an instance's member resolution order. Every
// instance walks the same fixed list: its own table, each script of its
// chain nearest-first, then native reflection.
type tier interface {
	// lookup is a raw read with no hooks.
	lookup(key lua.LValue) lua.LValue
	tryGet(ctx context.Context, name string) (lua.LValue, bool, error)
	trySet(ctx context.Context, name string, value lua.LValue) (bool, error)
	tryCall(ctx context.Context, name string, args []lua.LValue) (lua.LValue, CallStatus, error)
}

func buildTiers(inst *Instance) []tier {
	tiers := []tier{ownTier{inst: inst}}
	if inst.script != nil {
		for level, s := range inst.script.chain {
			tiers = append(tiers, scriptTier{inst: inst, script: s, level: level})
		}
	}
	return append(tiers, nativeTier{inst: inst})
}

// scriptTiers is the resolution order without the native fallback.
func (inst *Instance) scriptTiers() []tier {
	return inst.tiers[:len(inst.tiers)-1]
}

func (inst *Instance) nativeTier() tier {
	return inst.tiers[len(inst.tiers)-1]
}

func (inst *Instance) lookup(key lua.LValue) lua.LValue {
	for _, t := range inst.scriptTiers() {
		if v := t.lookup(key); v != lua.LNil {
			return v
		}
	}
	return lua.LNil
}

func (inst *Instance) get(ctx context.Context, name string) (lua.LValue, bool, error) {
	for _, t := range inst.scriptTiers() {
		v, ok, err := t.tryGet(ctx, name)
		if err != nil || ok {
			return v, ok, err
		}
	}
	return lua.LNil, false, nil
}

func (inst *Instance) set(ctx context.Context, name string, value lua.LValue) (bool, error) {
	for _, t := range inst.scriptTiers() {
		applied, err := t.trySet(ctx, name, value)
		if err != nil || applied {
			return applied, err
		}
	}
	return false, nil
}

// call returns on the first level that defines name. Levels without it are
// skipped; a level that raises ends the call. StatusSkip means no level
// defines name, whatever errors a failing method may have wrapped.
func (inst *Instance) call(ctx context.Context, name string, args []lua.LValue) (lua.LValue, CallStatus, error) {
	for _, t := range inst.scriptTiers() {
		ret, status, err := t.tryCall(ctx, name, args)
		switch status {
		case StatusOK:
			return ret, StatusOK, nil
		case StatusFailed:
			inst.rt.logCallError(err)
			return lua.LNil, StatusFailed, err
		}
	}
	return lua.LNil, StatusSkip, nil
}

// callMultilevel runs name at every script level in order. Failures are
// logged and collected; they do not stop the remaining levels.
func (inst *Instance) callMultilevel(ctx context.Context, name string, args []lua.LValue, reversed bool) []error {
	var levels []scriptTier
	for _, t := range inst.scriptTiers() {
		if st, ok := t.(scriptTier); ok {
			levels = append(levels, st)
		}
	}
	if reversed {
		for i, j := 0, len(levels)-1; i < j; i, j = i+1, j-1 {
			levels[i], levels[j] = levels[j], levels[i]
		}
	}
	var errs []error
	for _, st := range levels {
		// Functions stored in the instance table are skipped at every level;
		// otherwise one would run once per level.
		_, status, err := st.callLevel(ctx, name, args, false)
		if status == StatusFailed {
			inst.rt.logCallError(err)
			errs = append(errs, err)
		}
	}
	return errs
}

func (rt *Runtime) logCallError(err error) {
	if callErr, ok := err.(*CallError); ok {
		rt.log.Error("script method failed",
			zap.String("script", callErr.Script),
			zap.String("method", callErr.Method),
			zap.Int("level", callErr.Level),
			zap.Error(callErr.Err))
		return
	}
	rt.log.Error("script method failed", zap.Error(err))
}

type ownTier struct {
	inst *Instance
}

func (t ownTier) lookup(key lua.LValue) lua.LValue {
	tbl := t.inst.table()
	if tbl == nil || key == lua.LString(instanceField) {
		return lua.LNil
	}
	return tbl.RawGet(key)
}

func (t ownTier) tryGet(_ context.Context, name string) (lua.LValue, bool, error) {
	v := t.lookup(lua.LString(name))
	return v, v != lua.LNil, nil
}

func (t ownTier) trySet(context.Context, string, lua.LValue) (bool, error) {
	return false, nil
}

// tryCall only resolves methods for bare instances; with a script attached,
// every script level checks the instance table itself.
func (t ownTier) tryCall(_ context.Context, name string, args []lua.LValue) (lua.LValue, CallStatus, error) {
	if t.inst.script != nil {
		return lua.LNil, StatusSkip, nil
	}
	fn, ok := t.lookup(lua.LString(name)).(*lua.LFunction)
	if !ok {
		return lua.LNil, StatusSkip, nil
	}
	ret, err := t.inst.rt.invoke(fn, append([]lua.LValue{t.inst.self()}, args...)...)
	if err != nil {
		return lua.LNil, StatusFailed, &CallError{Method: name, Err: err}
	}
	return ret, StatusOK, nil
}

type scriptTier struct {
	inst   *Instance
	script *Script
	level  int
}

func (t scriptTier) lookup(key lua.LValue) lua.LValue {
	tbl := t.script.members()
	if tbl == nil {
		return lua.LNil
	}
	return tbl.RawGet(key)
}

func (t scriptTier) tryGet(_ context.Context, name string) (lua.LValue, bool, error) {
	if v := t.lookup(lua.LString(name)); v != lua.LNil {
		return v, true, nil
	}
	hook, ok := t.lookup(lua.LString("_get")).(*lua.LFunction)
	if !ok {
		return lua.LNil, false, nil
	}
	v, err := t.inst.rt.invoke(hook, t.inst.self(), lua.LString(name))
	if err != nil {
		return lua.LNil, false, t.callError("_get", err)
	}
	return v, v != lua.LNil, nil
}

func (t scriptTier) trySet(_ context.Context, name string, value lua.LValue) (bool, error) {
	hook, ok := t.lookup(lua.LString("_set")).(*lua.LFunction)
	if !ok {
		return false, nil
	}
	v, err := t.inst.rt.invoke(hook, t.inst.self(), lua.LString(name), value)
	if err != nil {
		return false, t.callError("_set", err)
	}
	return lua.LVAsBool(v), nil
}

func (t scriptTier) tryCall(ctx context.Context, name string, args []lua.LValue) (lua.LValue, CallStatus, error) {
	return t.callLevel(ctx, name, args, true)
}

// callLevel invokes name as defined at this level. With withInstance set, a
// function stored in the instance table takes precedence.
func (t scriptTier) callLevel(_ context.Context, name string, args []lua.LValue, withInstance bool) (lua.LValue, CallStatus, error) {
	var fn *lua.LFunction
	if withInstance {
		if tbl := t.inst.table(); tbl != nil {
			fn, _ = tbl.RawGetString(name).(*lua.LFunction)
		}
	}
	if fn == nil {
		fn, _ = t.lookup(lua.LString(name)).(*lua.LFunction)
	}
	if fn == nil {
		return lua.LNil, StatusSkip, nil
	}
	ret, err := t.inst.rt.invoke(fn, append([]lua.LValue{t.inst.self()}, args...)...)
	if err != nil {
		return lua.LNil, StatusFailed, t.callError(name, err)
	}
	return ret, StatusOK, nil
}

func (t scriptTier) callError(method string, err error) *CallError {
	return &CallError{Script: t.script.name, Method: method, Level: t.level, Err: err}
}

// nativeTier reaches the host object through reflection.
type nativeTier struct {
	inst *Instance
}

func (t nativeTier) lookup(lua.LValue) lua.LValue { return lua.LNil }

func (t nativeTier) tryGet(_ context.Context, name string) (lua.LValue, bool, error) {
	rt := t.inst.rt
	v, ok := rt.classes.GetProperty(t.inst.obj, name)
	if !ok {
		return lua.LNil, false, nil
	}
	return rt.toDynamic(v), true, nil
}

func (t nativeTier) trySet(_ context.Context, name string, value lua.LValue) (bool, error) {
	rt := t.inst.rt
	return rt.classes.SetProperty(t.inst.obj, name, rt.toNative(value))
}

func (t nativeTier) tryCall(ctx context.Context, name string, args []lua.LValue) (lua.LValue, CallStatus, error) {
	rt := t.inst.rt
	return rt.callNative(ctx, t.inst.obj, name, args)
}

func (rt *Runtime) callNative(ctx context.Context, obj host.Object, name string, args []lua.LValue) (lua.LValue, CallStatus, error) {
	bind, ok := rt.classes.Method(obj.ClassName(), name)
	if !ok {
		return lua.LNil, StatusSkip, nil
	}
	if len(args) > MaxCallArgs {
		return lua.LNil, StatusFailed, fmt.Errorf("%w: %s.%s called with %d arguments", ErrTooManyArguments, bind.Class, name, len(args))
	}
	nativeArgs := make([]variant.Value, len(args))
	for i, a := range args {
		nativeArgs[i] = rt.toNative(a)
	}
	var ret variant.Value
	var err error
	rt.guard.yield(func() { ret, err = bind.Call(ctx, obj, nativeArgs) })
	if err != nil {
		return lua.LNil, StatusFailed, fmt.Errorf("%s.%s: %w", bind.Class, name, err)
	}
	return rt.toDynamic(ret), StatusOK, nil
}
