package bridge

import (
	"fmt"

	lua "github.com/yuin/gopher-lua"
	"go.uber.org/zap"

	"github.com/mgomes/luabridge/host"
	"github.com/mgomes/luabridge/variant"
)

// MaxCallArgs caps the arguments a script may pass to a native method.
const MaxCallArgs = 128

// methodWrapper returns the script-callable closure for bind. Closures are
// cached so a method keeps one identity inside the runtime.
func (rt *Runtime) methodWrapper(bind *host.MethodBind) *lua.LFunction {
	if fn, ok := rt.wrappers[bind]; ok {
		return fn
	}
	up := rt.L.NewUserData()
	up.Value = bind
	fn := rt.L.NewClosure(rt.callMethodBind, up)
	rt.wrappers[bind] = fn
	return fn
}

func (rt *Runtime) callMethodBind(L *lua.LState) int {
	up, _ := L.Get(lua.UpvalueIndex(1)).(*lua.LUserData)
	bind, ok := up.Value.(*host.MethodBind)
	if !ok {
		L.RaiseError("native method wrapper lost its method")
		return 0
	}

	ctx, tok := rt.guard.nest()
	defer tok.leave()

	self, ok := rt.objectArg(L.Get(1))
	if !ok || !rt.classes.IsParentClass(self.ClassName(), bind.Class) {
		raiseErrorf(L, ErrInvalidReceiver, "%s.%s must be called on a live %s (use ':' to call methods)", bind.Class, bind.Name, bind.Class)
		return 0
	}
	if n := L.GetTop() - 1; n > MaxCallArgs {
		raiseErrorf(L, ErrTooManyArguments, "%s.%s called with %d arguments (max %d)", bind.Class, bind.Name, n, MaxCallArgs)
		return 0
	}

	args := rt.marshalArgs(L, 2)
	for _, arg := range args {
		if arg.Kind() == variant.KindObject {
			tok.retain(arg)
		}
	}

	var result variant.Value
	var err error
	rt.guard.yield(func() { result, err = bind.Call(ctx, self, args) })
	if err != nil {
		raiseError(L, fmt.Errorf("%s.%s: %w", bind.Class, bind.Name, err))
		return 0
	}

	if obj, ok := result.Object().(host.Object); ok && obj.Binding() == nil && !obj.Freed() {
		tok.retain(result)
		if _, err := rt.attach(ctx, obj, nil, false); err != nil {
			raiseError(L, err)
			return 0
		}
	}
	L.Push(rt.toDynamic(result))
	return 1
}

// registerConstructors exposes a global constructor per compound kind.
func (rt *Runtime) registerConstructors() {
	for _, kind := range variant.CompoundKinds() {
		rt.L.SetGlobal(kind.String(), rt.L.NewFunction(rt.constructor(kind)))
	}
}

func (rt *Runtime) constructor(kind variant.Kind) lua.LGFunction {
	return func(L *lua.LState) int {
		_, tok := rt.guard.nest()
		defer tok.leave()

		v, err := variant.Construct(kind, rt.marshalArgs(L, 1))
		if err != nil {
			rt.log.Debug("builtin construction failed", zap.Stringer("kind", kind), zap.Error(err))
			return 0
		}
		L.Push(rt.toDynamic(v))
		return 1
	}
}

// exposeClasses publishes a global table per registered class carrying its
// constants and a new() constructor.
func (rt *Runtime) exposeClasses() {
	for _, name := range rt.classes.Classes() {
		tbl, ok := rt.L.GetGlobal(name).(*lua.LTable)
		if !ok {
			tbl = rt.L.NewTable()
			rt.L.SetGlobal(name, tbl)
		}
		for constant, value := range rt.classes.Constants(name) {
			tbl.RawSetString(constant, lua.LNumber(value))
		}
		tbl.RawSetString("new", rt.L.NewFunction(rt.classConstructor(name, tbl)))
	}
}

func (rt *Runtime) classConstructor(class string, tbl *lua.LTable) lua.LGFunction {
	return func(L *lua.LState) int {
		ctx, tok := rt.guard.nest()
		defer tok.leave()

		if L.GetTop() > 0 && L.Get(1) == lua.LValue(tbl) {
			L.Remove(1)
		}
		obj, err := rt.classes.Instantiate(class)
		if err != nil {
			raiseError(L, err)
			return 0
		}
		_, refCounted := obj.(host.Referenced)
		if _, err := rt.attach(ctx, obj, nil, refCounted); err != nil {
			raiseError(L, err)
			return 0
		}
		L.Push(rt.objectValue(obj))
		return 1
	}
}
