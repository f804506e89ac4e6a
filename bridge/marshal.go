package bridge

import (
	"context"
	"math"

	lua "github.com/yuin/gopher-lua"

	"github.com/mgomes/luabridge/host"
	"github.com/mgomes/luabridge/variant"
)

// instanceField is the reserved instance-table field holding the bound
// object's userdata.
const instanceField = ".c_instance"

// maxExactInt is the largest integer a Lua number holds without rounding.
const maxExactInt = 1 << 53

// ToDynamic converts a native value for use in scripts.
func (rt *Runtime) ToDynamic(ctx context.Context, v variant.Value) lua.LValue {
	_, tok := rt.guard.enter(ctx)
	defer tok.leave()
	return rt.toDynamic(v)
}

// ToNative converts a script value to its native form.
func (rt *Runtime) ToNative(ctx context.Context, lv lua.LValue) variant.Value {
	_, tok := rt.guard.enter(ctx)
	defer tok.leave()
	return rt.toNative(lv)
}

func (rt *Runtime) toDynamic(v variant.Value) lua.LValue {
	switch v.Kind() {
	case variant.KindNil:
		return lua.LNil
	case variant.KindBool:
		return lua.LBool(v.Bool())
	case variant.KindInt, variant.KindReal:
		return lua.LNumber(v.Real())
	case variant.KindString:
		return lua.LString(v.String())
	case variant.KindObject:
		obj, ok := v.Object().(host.Object)
		if !ok || obj == nil {
			return lua.LNil
		}
		return rt.objectValue(obj)
	}
	if v.Kind().IsCompound() {
		return rt.newBox(v.Duplicate())
	}
	return lua.LNil
}

func (rt *Runtime) toNative(lv lua.LValue) variant.Value {
	switch val := lv.(type) {
	case lua.LBool:
		return variant.NewBool(bool(val))
	case lua.LNumber:
		return numberValue(float64(val))
	case lua.LString:
		return variant.NewString(string(val))
	case *lua.LUserData:
		if obj, ok := rt.userdataObject(val); ok {
			return variant.NewObject(obj)
		}
		if b, ok := rt.userdataBox(val); ok {
			v, err := rt.boxValue(b)
			if err != nil {
				return variant.NewNil()
			}
			return v.Duplicate()
		}
	case *lua.LTable:
		if ud, ok := val.RawGetString(instanceField).(*lua.LUserData); ok {
			if obj, ok := rt.userdataObject(ud); ok {
				return variant.NewObject(obj)
			}
		}
	}
	return variant.NewNil()
}

// numberValue maps integral numbers to INT so integers survive a round trip.
func numberValue(f float64) variant.Value {
	if f == math.Trunc(f) && math.Abs(f) <= maxExactInt {
		return variant.NewInt(int64(f))
	}
	return variant.NewReal(f)
}

func (rt *Runtime) userdataObject(ud *lua.LUserData) (host.Object, bool) {
	ref, ok := ud.Value.(*objectRef)
	if !ok || ud.Metatable != lua.LValue(rt.objectMeta) || ref.obj == nil {
		return nil, false
	}
	return ref.obj, true
}

func (rt *Runtime) userdataBox(ud *lua.LUserData) (*box, bool) {
	b, ok := ud.Value.(*box)
	if !ok || ud.Metatable != lua.LValue(rt.variantMeta) {
		return nil, false
	}
	return b, true
}

// objectArg resolves a script value to a live object. Instance tables are
// accepted in place of their userdata.
func (rt *Runtime) objectArg(lv lua.LValue) (host.Object, bool) {
	switch val := lv.(type) {
	case *lua.LUserData:
		obj, ok := rt.userdataObject(val)
		if !ok || obj.Freed() {
			return nil, false
		}
		return obj, true
	case *lua.LTable:
		if ud, ok := val.RawGetString(instanceField).(*lua.LUserData); ok {
			return rt.objectArg(ud)
		}
	}
	return nil, false
}

// marshalArgs converts stack slots first..top to native values.
func (rt *Runtime) marshalArgs(L *lua.LState, first int) []variant.Value {
	top := L.GetTop()
	if top < first {
		return nil
	}
	args := make([]variant.Value, 0, top-first+1)
	for i := first; i <= top; i++ {
		args = append(args, rt.toNative(L.Get(i)))
	}
	return args
}

func (rt *Runtime) dynamicArgs(args []variant.Value) []lua.LValue {
	out := make([]lua.LValue, len(args))
	for i, a := range args {
		out[i] = rt.toDynamic(a)
	}
	return out
}
