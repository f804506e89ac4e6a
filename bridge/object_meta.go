package bridge

import (
	"fmt"

	lua "github.com/yuin/gopher-lua"

	"github.com/mgomes/luabridge/host"
)

const objectTypeName = "HostObject"

// objectRef is the payload of an object userdata.
type objectRef struct {
	obj host.Object
}

func (rt *Runtime) newObjectUserData(obj host.Object) *lua.LUserData {
	ud := rt.L.NewUserData()
	ud.Value = &objectRef{obj: obj}
	ud.Metatable = rt.objectMeta
	return ud
}

// objectValue returns the userdata scripts see for obj. A bound object is
// always represented by the userdata stored in its instance table.
func (rt *Runtime) objectValue(obj host.Object) lua.LValue {
	if inst := rt.instanceOf(obj); inst != nil {
		if tbl := inst.table(); tbl != nil {
			if ud, ok := tbl.RawGetString(instanceField).(*lua.LUserData); ok {
				return ud
			}
		}
	}
	return rt.newObjectUserData(obj)
}

func (rt *Runtime) registerObjectType() {
	L := rt.L
	mt := L.NewTypeMetatable(objectTypeName)
	rt.objectMeta = mt

	methods := L.NewTable()
	// extends is accepted for scripts that name their parent inline; the
	// loader has already resolved it.
	methods.RawSetString("extends", L.NewFunction(func(L *lua.LState) int { return 0 }))
	mt.RawSetString(".methods", methods)

	mt.RawSetString("__index", L.NewFunction(rt.objectIndex))
	mt.RawSetString("__newindex", L.NewFunction(rt.objectNewIndex))
	mt.RawSetString("__tostring", L.NewFunction(rt.objectToString))
	mt.RawSetString("__eq", L.NewFunction(rt.objectEqual))
}

func (rt *Runtime) checkObject(L *lua.LState, n int) host.Object {
	ud, ok := L.Get(n).(*lua.LUserData)
	if !ok {
		L.ArgError(n, "object expected")
		return nil
	}
	obj, ok := rt.userdataObject(ud)
	if !ok {
		L.ArgError(n, "object expected")
		return nil
	}
	if obj.Freed() {
		raiseErrorf(L, ErrInstanceDestroyed, "%s object was freed", obj.ClassName())
		return nil
	}
	return obj
}

// objectIndex resolves script-side reads: instance table, script tables
// nearest-first, the .methods capability table, then native reflection.
func (rt *Runtime) objectIndex(L *lua.LState) int {
	_, tok := rt.guard.nest()
	defer tok.leave()

	obj := rt.checkObject(L, 1)
	key := L.Get(2)
	if inst := rt.instanceOf(obj); inst != nil {
		if v := inst.lookup(key); v != lua.LNil {
			L.Push(v)
			return 1
		}
	}

	name, ok := key.(lua.LString)
	if !ok {
		L.Push(lua.LNil)
		return 1
	}
	if methods, ok := rt.objectMeta.RawGetString(".methods").(*lua.LTable); ok {
		if v := methods.RawGetString(string(name)); v != lua.LNil {
			L.Push(v)
			return 1
		}
	}
	L.Push(rt.nativeLookup(obj, string(name)))
	return 1
}

// nativeLookup resolves a name through reflection: property, then integer
// constant, then method.
func (rt *Runtime) nativeLookup(obj host.Object, name string) lua.LValue {
	class := obj.ClassName()
	if v, ok := rt.classes.GetProperty(obj, name); ok {
		return rt.toDynamic(v)
	}
	if c, ok := rt.classes.Constant(class, name); ok {
		return lua.LNumber(c)
	}
	if bind, ok := rt.classes.Method(class, name); ok {
		return rt.methodWrapper(bind)
	}
	return lua.LNil
}

// objectNewIndex writes native properties natively and everything else into
// the instance table.
func (rt *Runtime) objectNewIndex(L *lua.LState) int {
	_, tok := rt.guard.nest()
	defer tok.leave()

	obj := rt.checkObject(L, 1)
	key := L.Get(2)
	value := L.Get(3)
	if name, ok := key.(lua.LString); ok && rt.classes.HasProperty(obj.ClassName(), string(name)) {
		applied, err := rt.classes.SetProperty(obj, string(name), rt.toNative(value))
		if err != nil {
			raiseError(L, err)
			return 0
		}
		if applied {
			return 0
		}
	}
	inst := rt.instanceOf(obj)
	if inst == nil {
		raiseError(L, fmt.Errorf("cannot assign '%s' on %s: object has no script instance", key.String(), obj.ClassName()))
		return 0
	}
	tbl := inst.table()
	if tbl == nil {
		raiseError(L, ErrInstanceDestroyed)
		return 0
	}
	tbl.RawSet(key, value)
	return 0
}

func (rt *Runtime) objectToString(L *lua.LState) int {
	_, tok := rt.guard.nest()
	defer tok.leave()

	obj := rt.checkObject(L, 1)
	L.Push(lua.LString(fmt.Sprintf("%s: %s", obj.ClassName(), obj.ObjectID())))
	return 1
}

func (rt *Runtime) objectEqual(L *lua.LState) int {
	a, okA := L.Get(1).(*lua.LUserData)
	b, okB := L.Get(2).(*lua.LUserData)
	if !okA || !okB {
		L.Push(lua.LFalse)
		return 1
	}
	objA, okA := rt.userdataObject(a)
	objB, okB := rt.userdataObject(b)
	L.Push(lua.LBool(okA && okB && objA == objB))
	return 1
}
