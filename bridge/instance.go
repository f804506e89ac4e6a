package bridge

import (
	"context"
	"errors"
	"fmt"

	lua "github.com/yuin/gopher-lua"
	"go.uber.org/zap"

	"github.com/mgomes/luabridge/host"
	"github.com/mgomes/luabridge/variant"
)

type instanceState int

const (
	stateCreated instanceState = iota
	stateTableAllocated
	stateInitHookRun
	stateLive
	stateTornDown
)

func (s instanceState) String() string {
	switch s {
	case stateCreated:
		return "created"
	case stateTableAllocated:
		return "table-allocated"
	case stateInitHookRun:
		return "init-hook-run"
	case stateLive:
		return "live"
	case stateTornDown:
		return "torn-down"
	default:
		return fmt.Sprintf("state(%d)", int(s))
	}
}

// Instance binds a script chain, or nothing for a bare binding, to exactly
// one host object. The object owns the instance: freeing the object tears
// the instance down.
type Instance struct {
	rt      *Runtime
	obj     host.Object
	script  *Script
	handle  Handle
	tiers   []tier
	baseRef bool
	state   instanceState
}

var _ host.Binding = (*Instance)(nil)

// Attach binds obj to script, or creates a bare binding when script is nil,
// and runs the chain's _init. Reference-counted objects are referenced for
// as long as the instance lives.
func (rt *Runtime) Attach(ctx context.Context, obj host.Object, script *Script) (*Instance, error) {
	ctx, tok, err := rt.begin(ctx)
	if err != nil {
		return nil, err
	}
	defer tok.leave()

	_, refCounted := obj.(host.Referenced)
	return rt.attach(ctx, obj, script, refCounted)
}

func (rt *Runtime) attach(ctx context.Context, obj host.Object, script *Script, baseRef bool) (*Instance, error) {
	if obj == nil || obj.Freed() {
		return nil, fmt.Errorf("%w: object is nil or freed", ErrInvalidReceiver)
	}
	if obj.Binding() != nil {
		return nil, fmt.Errorf("%w: %s %s", ErrAlreadyBound, obj.ClassName(), obj.ObjectID())
	}
	if script != nil && script.rt != rt {
		return nil, fmt.Errorf("%w: script %s belongs to another runtime", ErrInvalidScript, script.name)
	}

	inst := &Instance{rt: rt, obj: obj, script: script, baseRef: baseRef}
	tbl := rt.L.NewTable()
	tbl.RawSetString(instanceField, rt.newObjectUserData(obj))
	inst.handle = rt.tables.Register(tbl)
	inst.state = stateTableAllocated
	inst.tiers = buildTiers(inst)

	obj.SetBinding(inst)
	rt.instances[inst] = struct{}{}
	if script != nil {
		script.instances[obj] = inst
		script.retain()
	}
	if baseRef {
		if ref, ok := obj.(host.Referenced); ok {
			ref.Reference()
		}
	}

	if script != nil {
		if _, status, err := inst.call(ctx, "_init", nil); status == StatusFailed {
			rt.log.Error("instance init failed",
				zap.String("script", script.name),
				zap.String("class", obj.ClassName()),
				zap.Error(err))
			inst.teardown(ctx)
			return nil, fmt.Errorf("%w: %w", ErrInitFailed, err)
		}
		inst.state = stateInitHookRun
	}
	inst.state = stateLive
	return inst, nil
}

// instanceOf returns the live instance of obj in this runtime.
func (rt *Runtime) instanceOf(obj host.Object) *Instance {
	if obj == nil {
		return nil
	}
	inst, ok := obj.Binding().(*Instance)
	if !ok || inst.rt != rt || inst.state == stateTornDown {
		return nil
	}
	return inst
}

// InstanceOf returns the instance bound to obj, or nil.
func (rt *Runtime) InstanceOf(ctx context.Context, obj host.Object) *Instance {
	_, tok := rt.guard.enter(ctx)
	defer tok.leave()
	return rt.instanceOf(obj)
}

func (inst *Instance) Object() host.Object { return inst.obj }

func (inst *Instance) Script() *Script { return inst.script }

func (inst *Instance) Handle() Handle { return inst.handle }

func (inst *Instance) Live(ctx context.Context) bool {
	_, tok := inst.rt.guard.enter(ctx)
	defer tok.leave()
	return inst.state == stateLive
}

func (inst *Instance) table() *lua.LTable {
	tbl, err := inst.rt.tables.Resolve(inst.handle)
	if err != nil {
		return nil
	}
	return tbl
}

// self is the value scripts receive as the implicit receiver.
func (inst *Instance) self() lua.LValue {
	if tbl := inst.table(); tbl != nil {
		return tbl.RawGetString(instanceField)
	}
	return lua.LNil
}

// OwnerFreed tears the instance down when its object is freed.
func (inst *Instance) OwnerFreed(ctx context.Context) {
	ctx, tok := inst.rt.guard.enter(ctx)
	defer tok.leave()
	inst.teardown(ctx)
}

// Destroy detaches the instance from its object. The object itself survives
// unless the instance held its last reference.
func (inst *Instance) Destroy(ctx context.Context) error {
	ctx, tok := inst.rt.guard.enter(ctx)
	defer tok.leave()
	if inst.state == stateTornDown {
		return ErrInstanceDestroyed
	}
	inst.teardown(ctx)
	return nil
}

// teardown is idempotent. The back-reference in the table is cleared before
// the table handle is released.
func (inst *Instance) teardown(ctx context.Context) {
	if inst.state == stateTornDown {
		return
	}
	inst.state = stateTornDown
	rt := inst.rt

	if inst.script != nil {
		delete(inst.script.instances, inst.obj)
	}
	delete(rt.instances, inst)

	if tbl := inst.table(); tbl != nil {
		if ud, ok := tbl.RawGetString(instanceField).(*lua.LUserData); ok {
			rt.L.SetMetatable(ud, lua.LNil)
			if ref, ok := ud.Value.(*objectRef); ok {
				ref.obj = nil
			}
		}
		tbl.RawSetString(instanceField, lua.LNil)
	}
	if err := rt.tables.Release(inst.handle); err != nil {
		rt.log.Warn("instance table already released", zap.Error(err))
	}

	if binding, ok := inst.obj.Binding().(*Instance); ok && binding == inst {
		inst.obj.SetBinding(nil)
	}
	if inst.script != nil {
		inst.script.release()
	}
	if inst.baseRef {
		if ref, ok := inst.obj.(host.Referenced); ok {
			rt.guard.yield(func() { host.Release(ctx, ref) })
		}
	}
}

// enterLive enters the guard and checks the instance is still usable.
func (inst *Instance) enterLive(ctx context.Context) (context.Context, *callToken, error) {
	ctx, tok, err := inst.rt.begin(ctx)
	if err != nil {
		return ctx, nil, err
	}
	if inst.state == stateTornDown {
		tok.leave()
		return ctx, nil, ErrInstanceDestroyed
	}
	return ctx, tok, nil
}

// Get reads name through the instance table and the script chain, raw
// fields before each level's _get hook. Native properties are not consulted.
func (inst *Instance) Get(ctx context.Context, name string) (variant.Value, bool, error) {
	ctx, tok, err := inst.enterLive(ctx)
	if err != nil {
		return variant.NewNil(), false, err
	}
	defer tok.leave()

	v, found, err := inst.get(ctx, name)
	if err != nil || !found {
		return variant.NewNil(), false, err
	}
	return inst.rt.toNative(v), true, nil
}

// Set offers the value to each level's _set hook, leaf to root, and reports
// whether one accepted it.
func (inst *Instance) Set(ctx context.Context, name string, value variant.Value) (bool, error) {
	ctx, tok, err := inst.enterLive(ctx)
	if err != nil {
		return false, err
	}
	defer tok.leave()
	return inst.set(ctx, name, inst.rt.toDynamic(value))
}

// Call invokes the nearest definition of name with the object as receiver.
// It returns ErrMethodNotFound when no level defines it and a *CallError
// when the method raised.
func (inst *Instance) Call(ctx context.Context, name string, args ...variant.Value) (variant.Value, error) {
	ctx, tok, err := inst.enterLive(ctx)
	if err != nil {
		return variant.NewNil(), err
	}
	defer tok.leave()

	ret, status, err := inst.call(ctx, name, inst.rt.dynamicArgs(args))
	switch status {
	case StatusOK:
		return inst.rt.toNative(ret), nil
	case StatusFailed:
		return variant.NewNil(), err
	default:
		return variant.NewNil(), fmt.Errorf("%w: %s", ErrMethodNotFound, name)
	}
}

// CallMultilevel runs name at every level from leaf to root.
func (inst *Instance) CallMultilevel(ctx context.Context, name string, args ...variant.Value) error {
	return inst.multilevel(ctx, name, args, false)
}

// CallMultilevelReversed runs name at every level from root to leaf.
func (inst *Instance) CallMultilevelReversed(ctx context.Context, name string, args ...variant.Value) error {
	return inst.multilevel(ctx, name, args, true)
}

func (inst *Instance) multilevel(ctx context.Context, name string, args []variant.Value, reversed bool) error {
	ctx, tok, err := inst.enterLive(ctx)
	if err != nil {
		return err
	}
	defer tok.leave()
	return errors.Join(inst.callMultilevel(ctx, name, inst.rt.dynamicArgs(args), reversed)...)
}

// Notification delivers what to _notification at every level, leaf first.
func (inst *Instance) Notification(ctx context.Context, what int) error {
	return inst.CallMultilevel(ctx, "_notification", variant.NewInt(int64(what)))
}

// HasMethod reports whether the instance table or any script level defines a
// function called name.
func (inst *Instance) HasMethod(ctx context.Context, name string) bool {
	_, tok := inst.rt.guard.enter(ctx)
	defer tok.leave()
	if inst.state == stateTornDown {
		return false
	}
	_, ok := inst.lookup(lua.LString(name)).(*lua.LFunction)
	return ok
}

// GetProperty resolves name through the instance chain, then native
// reflection. Objects without an instance go straight to reflection.
func (rt *Runtime) GetProperty(ctx context.Context, obj host.Object, name string) (variant.Value, bool, error) {
	ctx, tok, err := rt.begin(ctx)
	if err != nil {
		return variant.NewNil(), false, err
	}
	defer tok.leave()

	if inst := rt.instanceOf(obj); inst != nil {
		for _, t := range inst.tiers {
			v, ok, err := t.tryGet(ctx, name)
			if err != nil {
				return variant.NewNil(), false, err
			}
			if ok {
				return rt.toNative(v), true, nil
			}
		}
		return variant.NewNil(), false, nil
	}
	v, ok := rt.classes.GetProperty(obj, name)
	return v, ok, nil
}

// SetProperty offers the value to the script chain's _set hooks and, when
// none accepts it, to the native property setter exactly once.
func (rt *Runtime) SetProperty(ctx context.Context, obj host.Object, name string, value variant.Value) (bool, error) {
	ctx, tok, err := rt.begin(ctx)
	if err != nil {
		return false, err
	}
	defer tok.leave()

	if inst := rt.instanceOf(obj); inst != nil {
		applied, err := inst.set(ctx, name, rt.toDynamic(value))
		if err != nil || applied {
			return applied, err
		}
		return inst.nativeTier().trySet(ctx, name, rt.toDynamic(value))
	}
	return rt.classes.SetProperty(obj, name, value)
}

// Call invokes name on obj: the script chain first, then the native method.
func (rt *Runtime) Call(ctx context.Context, obj host.Object, name string, args ...variant.Value) (variant.Value, error) {
	ctx, tok, err := rt.begin(ctx)
	if err != nil {
		return variant.NewNil(), err
	}
	defer tok.leave()

	largs := rt.dynamicArgs(args)
	if inst := rt.instanceOf(obj); inst != nil {
		ret, status, err := inst.call(ctx, name, largs)
		switch status {
		case StatusOK:
			return rt.toNative(ret), nil
		case StatusFailed:
			return variant.NewNil(), err
		}
	}
	ret, status, err := rt.callNative(ctx, obj, name, largs)
	switch status {
	case StatusOK:
		return rt.toNative(ret), nil
	case StatusFailed:
		return variant.NewNil(), err
	default:
		return variant.NewNil(), fmt.Errorf("%w: %s.%s", ErrMethodNotFound, obj.ClassName(), name)
	}
}
