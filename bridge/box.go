package bridge

import (
	"context"
	"fmt"
	"runtime"
	"sync"

	lua "github.com/yuin/gopher-lua"

	"github.com/mgomes/luabridge/variant"
)

const variantTypeName = "Variant"

// box is the payload of a compound value's userdata. The boxed value itself
// lives in the runtime's box arena.
type box struct {
	handle   Handle
	kind     variant.Kind
	cleanup  runtime.Cleanup
	released bool
}

// releaseQueue collects box handles whose userdata the collector reclaimed.
// It is the only state touched outside the guard.
type releaseQueue struct {
	mu      sync.Mutex
	handles []Handle
}

func (q *releaseQueue) push(h Handle) {
	q.mu.Lock()
	q.handles = append(q.handles, h)
	q.mu.Unlock()
}

func (q *releaseQueue) take() []Handle {
	q.mu.Lock()
	defer q.mu.Unlock()
	out := q.handles
	q.handles = nil
	return out
}

func (rt *Runtime) drainReleases() {
	for _, h := range rt.releases.take() {
		if err := rt.boxes.Release(h); err != nil {
			rt.log.Debug("box already released")
		}
	}
}

func (rt *Runtime) newBox(v variant.Value) *lua.LUserData {
	h := rt.boxes.Register(v)
	b := &box{handle: h, kind: v.Kind()}
	b.cleanup = runtime.AddCleanup(b, rt.releases.push, h)

	ud := rt.L.NewUserData()
	ud.Value = b
	ud.Metatable = rt.variantMeta
	return ud
}

func (rt *Runtime) boxValue(b *box) (variant.Value, error) {
	if b.released {
		return variant.NewNil(), fmt.Errorf("%w: %s", ErrStaleHandle, b.handle)
	}
	return rt.boxes.Resolve(b.handle)
}

// ReleaseBox frees a boxed value ahead of collection. The box is unusable
// afterwards and the collector will not release it a second time.
func (rt *Runtime) ReleaseBox(ctx context.Context, lv lua.LValue) error {
	_, tok := rt.guard.enter(ctx)
	defer tok.leave()

	ud, ok := lv.(*lua.LUserData)
	if !ok {
		return fmt.Errorf("%w: not a boxed value", ErrInvalidReceiver)
	}
	b, ok := rt.userdataBox(ud)
	if !ok {
		return fmt.Errorf("%w: not a boxed value", ErrInvalidReceiver)
	}
	if b.released {
		return fmt.Errorf("%w: %s", ErrStaleHandle, b.handle)
	}
	b.cleanup.Stop()
	b.released = true
	return rt.boxes.Release(b.handle)
}

func (rt *Runtime) checkBox(L *lua.LState, n int) (*box, variant.Value) {
	ud, ok := L.Get(n).(*lua.LUserData)
	if !ok {
		L.ArgError(n, "boxed value expected")
		return nil, variant.NewNil()
	}
	b, ok := rt.userdataBox(ud)
	if !ok {
		L.ArgError(n, "boxed value expected")
		return nil, variant.NewNil()
	}
	v, err := rt.boxValue(b)
	if err != nil {
		raiseError(L, err)
	}
	return b, v
}

func (rt *Runtime) registerVariantType() {
	L := rt.L
	mt := L.NewTypeMetatable(variantTypeName)
	rt.variantMeta = mt

	methods := L.NewTable()
	for _, kind := range variant.CompoundKinds() {
		perKind := L.NewTable()
		for _, name := range variant.Methods(kind) {
			method, _ := variant.LookupMethod(kind, name)
			perKind.RawSetString(name, L.NewFunction(rt.boxMethod(kind, name, method)))
		}
		methods.RawSetString(kind.String(), perKind)
	}
	mt.RawSetString(".methods", methods)

	mt.RawSetString("__index", L.NewFunction(rt.boxIndex))
	mt.RawSetString("__newindex", L.NewFunction(rt.boxNewIndex))
	mt.RawSetString("__tostring", L.NewFunction(rt.boxToString))
	mt.RawSetString("__eq", L.NewFunction(rt.boxEqual))
	mt.RawSetString("__len", L.NewFunction(rt.boxLen))
}

func (rt *Runtime) boxMethodTable(kind variant.Kind) *lua.LTable {
	methods, ok := rt.variantMeta.RawGetString(".methods").(*lua.LTable)
	if !ok {
		return nil
	}
	perKind, _ := methods.RawGetString(kind.String()).(*lua.LTable)
	return perKind
}

// boxIndex reads a field or element, then falls back to builtin methods.
func (rt *Runtime) boxIndex(L *lua.LState) int {
	_, tok := rt.guard.nest()
	defer tok.leave()

	b, v := rt.checkBox(L, 1)
	key := L.Get(2)
	if got, ok := v.Get(rt.toNative(key)); ok {
		L.Push(rt.toDynamic(got))
		return 1
	}
	if name, ok := key.(lua.LString); ok {
		if methods := rt.boxMethodTable(b.kind); methods != nil {
			L.Push(methods.RawGetString(string(name)))
			return 1
		}
	}
	L.Push(lua.LNil)
	return 1
}

func (rt *Runtime) boxNewIndex(L *lua.LState) int {
	_, tok := rt.guard.nest()
	defer tok.leave()

	b, v := rt.checkBox(L, 1)
	key := rt.toNative(L.Get(2))
	out, err := v.Set(key, rt.toNative(L.Get(3)))
	if err != nil {
		raiseError(L, fmt.Errorf("Unable to set field: '%s': %w", key.String(), err)) //nolint:staticcheck // script-facing message
		return 0
	}
	if err := rt.boxes.Update(b.handle, out); err != nil {
		raiseError(L, err)
	}
	return 0
}

func (rt *Runtime) boxToString(L *lua.LState) int {
	_, tok := rt.guard.nest()
	defer tok.leave()

	b, v := rt.checkBox(L, 1)
	L.Push(lua.LString(fmt.Sprintf("%s: %s", b.kind, v.String())))
	return 1
}

func (rt *Runtime) boxEqual(L *lua.LState) int {
	_, tok := rt.guard.nest()
	defer tok.leave()

	_, a := rt.checkBox(L, 1)
	_, b := rt.checkBox(L, 2)
	L.Push(lua.LBool(a.Equal(b)))
	return 1
}

func (rt *Runtime) boxLen(L *lua.LState) int {
	_, tok := rt.guard.nest()
	defer tok.leave()

	_, v := rt.checkBox(L, 1)
	L.Push(lua.LNumber(v.Len()))
	return 1
}

// boxMethod wraps a builtin method. Mutations are written back to the box
// the method was called on.
func (rt *Runtime) boxMethod(kind variant.Kind, name string, method variant.Method) lua.LGFunction {
	return func(L *lua.LState) int {
		_, tok := rt.guard.nest()
		defer tok.leave()

		ud, ok := L.Get(1).(*lua.LUserData)
		var b *box
		if ok {
			b, ok = rt.userdataBox(ud)
		}
		if !ok || b.kind != kind {
			raiseErrorf(L, ErrInvalidReceiver, "%s.%s expects a %s receiver", kind, name, kind)
			return 0
		}
		if L.GetTop()-1 > MaxCallArgs {
			raiseErrorf(L, ErrTooManyArguments, "%s.%s called with %d arguments", kind, name, L.GetTop()-1)
			return 0
		}
		v, err := rt.boxValue(b)
		if err != nil {
			raiseError(L, err)
			return 0
		}
		out, err := method(&v, rt.marshalArgs(L, 2))
		if err != nil {
			raiseError(L, fmt.Errorf("%s.%s: %w", kind, name, err))
			return 0
		}
		if err := rt.boxes.Update(b.handle, v); err != nil {
			raiseError(L, err)
			return 0
		}
		L.Push(rt.toDynamic(out))
		return 1
	}
}
