package variant

import (
	"errors"
	"fmt"
	"slices"
	"sort"
)

var ErrInvalidArgument = errors.New("invalid argument")

// Method is a builtin method of a compound kind. Mutating methods update
// *recv in place.
type Method func(recv *Value, args []Value) (Value, error)

var builtinMethods = map[Kind]map[string]Method{}

func register(kind Kind, name string, fn Method) {
	if builtinMethods[kind] == nil {
		builtinMethods[kind] = map[string]Method{}
	}
	builtinMethods[kind][name] = fn
}

// LookupMethod returns the builtin method name on kind.
func LookupMethod(kind Kind, name string) (Method, bool) {
	fn, ok := builtinMethods[kind][name]
	return fn, ok
}

// Methods lists the builtin method names of kind in sorted order.
func Methods(kind Kind) []string {
	names := make([]string, 0, len(builtinMethods[kind]))
	for name := range builtinMethods[kind] {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

func argCount(name string, args []Value, want int) error {
	if len(args) != want {
		return fmt.Errorf("%w: %s expects %d arguments, got %d", ErrInvalidArgument, name, want, len(args))
	}
	return nil
}

func realArg(name string, args []Value, i int) (float64, error) {
	f, ok := AsReal(args[i])
	if !ok {
		return 0, fmt.Errorf("%w: %s argument %d must be a number", ErrInvalidArgument, name, i+1)
	}
	return f, nil
}

func kindArg(name string, args []Value, i int, kind Kind) (Value, error) {
	if args[i].kind != kind {
		return Value{}, fmt.Errorf("%w: %s argument %d must be %s, got %s", ErrInvalidArgument, name, i+1, kind, args[i].kind)
	}
	return args[i], nil
}

// unary registers a method with no arguments.
func unary(kind Kind, name string, fn func(v Value) Value) {
	register(kind, name, func(recv *Value, args []Value) (Value, error) {
		if err := argCount(name, args, 0); err != nil {
			return Value{}, err
		}
		return fn(*recv), nil
	})
}

// withKind registers a method taking one argument of the given kind.
func withKind(kind Kind, name string, arg Kind, fn func(v, arg Value) Value) {
	register(kind, name, func(recv *Value, args []Value) (Value, error) {
		if err := argCount(name, args, 1); err != nil {
			return Value{}, err
		}
		a, err := kindArg(name, args, 0, arg)
		if err != nil {
			return Value{}, err
		}
		return fn(*recv, a), nil
	})
}

// withReal registers a method taking one numeric argument.
func withReal(kind Kind, name string, fn func(v Value, f float64) Value) {
	register(kind, name, func(recv *Value, args []Value) (Value, error) {
		if err := argCount(name, args, 1); err != nil {
			return Value{}, err
		}
		f, err := realArg(name, args, 0)
		if err != nil {
			return Value{}, err
		}
		return fn(*recv, f), nil
	})
}

func init() {
	unary(KindVector2, "length", func(v Value) Value { return NewReal(v.Vector2().Length()) })
	unary(KindVector2, "length_squared", func(v Value) Value { return NewReal(v.Vector2().LengthSquared()) })
	unary(KindVector2, "normalized", func(v Value) Value { return NewVector2(v.Vector2().Normalized()) })
	unary(KindVector2, "angle", func(v Value) Value { return NewReal(v.Vector2().Angle()) })
	unary(KindVector2, "abs", func(v Value) Value { return NewVector2(v.Vector2().Abs()) })
	unary(KindVector2, "floor", func(v Value) Value { return NewVector2(v.Vector2().Floor()) })
	withKind(KindVector2, "dot", KindVector2, func(v, o Value) Value { return NewReal(v.Vector2().Dot(o.Vector2())) })
	withKind(KindVector2, "distance_to", KindVector2, func(v, o Value) Value {
		return NewReal(v.Vector2().DistanceTo(o.Vector2()))
	})
	withReal(KindVector2, "rotated", func(v Value, f float64) Value { return NewVector2(v.Vector2().Rotated(f)) })

	unary(KindVector3, "length", func(v Value) Value { return NewReal(v.Vector3().Length()) })
	unary(KindVector3, "normalized", func(v Value) Value { return NewVector3(v.Vector3().Normalized()) })
	withKind(KindVector3, "dot", KindVector3, func(v, o Value) Value { return NewReal(v.Vector3().Dot(o.Vector3())) })
	withKind(KindVector3, "cross", KindVector3, func(v, o Value) Value { return NewVector3(v.Vector3().Cross(o.Vector3())) })
	withKind(KindVector3, "distance_to", KindVector3, func(v, o Value) Value {
		return NewReal(v.Vector3().DistanceTo(o.Vector3()))
	})

	unary(KindRect2, "get_area", func(v Value) Value { return NewReal(v.Rect2().Area()) })
	withKind(KindRect2, "has_point", KindVector2, func(v, p Value) Value { return NewBool(v.Rect2().HasPoint(p.Vector2())) })
	withKind(KindRect2, "intersects", KindRect2, func(v, o Value) Value { return NewBool(v.Rect2().Intersects(o.Rect2())) })
	withReal(KindRect2, "grow", func(v Value, f float64) Value { return NewRect2(v.Rect2().Grow(f)) })

	unary(KindAABB, "get_volume", func(v Value) Value { return NewReal(v.AABB().Volume()) })
	withKind(KindAABB, "has_point", KindVector3, func(v, p Value) Value { return NewBool(v.AABB().HasPoint(p.Vector3())) })

	withKind(KindTransform2D, "xform", KindVector2, func(v, p Value) Value { return NewVector2(v.Transform2D().Xform(p.Vector2())) })

	withKind(KindPlane, "distance_to", KindVector3, func(v, p Value) Value { return NewReal(v.Plane().DistanceTo(p.Vector3())) })
	register(KindPlane, "has_point", func(recv *Value, args []Value) (Value, error) {
		if len(args) < 1 || len(args) > 2 {
			return Value{}, fmt.Errorf("%w: has_point expects 1 or 2 arguments, got %d", ErrInvalidArgument, len(args))
		}
		p, err := kindArg("has_point", args, 0, KindVector3)
		if err != nil {
			return Value{}, err
		}
		eps := 1e-5
		if len(args) == 2 {
			if eps, err = realArg("has_point", args, 1); err != nil {
				return Value{}, err
			}
		}
		return NewBool(recv.Plane().HasPoint(p.Vector3(), eps)), nil
	})

	unary(KindQuat, "length", func(v Value) Value { return NewReal(v.Quat().Length()) })
	unary(KindQuat, "normalized", func(v Value) Value { return NewQuat(v.Quat().Normalized()) })
	unary(KindQuat, "inverse", func(v Value) Value { return NewQuat(v.Quat().Inverse()) })
	withKind(KindQuat, "dot", KindQuat, func(v, o Value) Value { return NewReal(v.Quat().Dot(o.Quat())) })

	unary(KindBasis, "determinant", func(v Value) Value { return NewReal(v.Basis().Determinant()) })
	withKind(KindBasis, "xform", KindVector3, func(v, p Value) Value { return NewVector3(v.Basis().Xform(p.Vector3())) })

	withKind(KindTransform, "xform", KindVector3, func(v, p Value) Value { return NewVector3(v.Transform().Xform(p.Vector3())) })

	register(KindColor, "to_html", func(recv *Value, args []Value) (Value, error) {
		if len(args) > 1 {
			return Value{}, fmt.Errorf("%w: to_html expects at most 1 argument, got %d", ErrInvalidArgument, len(args))
		}
		withAlpha := true
		if len(args) == 1 {
			withAlpha = args[0].Truthy()
		}
		return NewString(recv.Color().HTML(withAlpha)), nil
	})
	unary(KindColor, "inverted", func(v Value) Value { return NewColor(v.Color().Inverted()) })
	withReal(KindColor, "lightened", func(v Value, f float64) Value { return NewColor(v.Color().Lightened(f)) })
	withReal(KindColor, "darkened", func(v Value, f float64) Value { return NewColor(v.Color().Darkened(f)) })
	register(KindColor, "blend", func(recv *Value, args []Value) (Value, error) {
		if err := argCount("blend", args, 2); err != nil {
			return Value{}, err
		}
		to, err := kindArg("blend", args, 0, KindColor)
		if err != nil {
			return Value{}, err
		}
		t, err := realArg("blend", args, 1)
		if err != nil {
			return Value{}, err
		}
		return NewColor(recv.Color().Blend(to.Color(), t)), nil
	})

	unary(KindNodePath, "is_empty", func(v Value) Value { return NewBool(v.NodePath() == "") })
	unary(KindRID, "get_id", func(v Value) Value { return NewInt(int64(v.RID())) })

	registerArrayMethods()
	registerDictionaryMethods()
	for _, kind := range []Kind{KindRawArray, KindIntArray, KindRealArray, KindStringArray, KindVector2Array, KindVector3Array, KindColorArray} {
		registerPackedMethods(kind)
	}
}

func registerSizeMethods(kind Kind) {
	unary(kind, "size", func(v Value) Value { return NewInt(int64(v.Len())) })
	unary(kind, "empty", func(v Value) Value { return NewBool(v.Len() == 0) })
}

func registerArrayMethods() {
	registerSizeMethods(KindArray)
	push := func(recv *Value, args []Value) (Value, error) {
		if err := argCount("append", args, 1); err != nil {
			return Value{}, err
		}
		*recv = NewArray(append(recv.Array(), args[0]))
		return NewNil(), nil
	}
	register(KindArray, "append", push)
	register(KindArray, "push_back", push)
	register(KindArray, "has", func(recv *Value, args []Value) (Value, error) {
		if err := argCount("has", args, 1); err != nil {
			return Value{}, err
		}
		return NewBool(arrayFind(recv.Array(), args[0]) >= 0), nil
	})
	register(KindArray, "find", func(recv *Value, args []Value) (Value, error) {
		if err := argCount("find", args, 1); err != nil {
			return Value{}, err
		}
		return NewInt(int64(arrayFind(recv.Array(), args[0]))), nil
	})
	register(KindArray, "erase", func(recv *Value, args []Value) (Value, error) {
		if err := argCount("erase", args, 1); err != nil {
			return Value{}, err
		}
		items := recv.Array()
		if i := arrayFind(items, args[0]); i >= 0 {
			*recv = NewArray(slices.Delete(items, i, i+1))
		}
		return NewNil(), nil
	})
	register(KindArray, "remove", func(recv *Value, args []Value) (Value, error) {
		if err := argCount("remove", args, 1); err != nil {
			return Value{}, err
		}
		i, ok := AsIndex(args[0])
		items := recv.Array()
		if !ok || i < 0 || i >= len(items) {
			return Value{}, fmt.Errorf("%w: index %s out of range", ErrInvalidArgument, args[0])
		}
		*recv = NewArray(slices.Delete(items, i, i+1))
		return NewNil(), nil
	})
	unary(KindArray, "duplicate", func(v Value) Value { return v.Duplicate() })
	register(KindArray, "clear", func(recv *Value, args []Value) (Value, error) {
		if err := argCount("clear", args, 0); err != nil {
			return Value{}, err
		}
		*recv = NewArray(nil)
		return NewNil(), nil
	})
}

func arrayFind(items []Value, v Value) int {
	return slices.IndexFunc(items, func(e Value) bool { return e.Equal(v) })
}

func registerDictionaryMethods() {
	registerSizeMethods(KindDictionary)
	unary(KindDictionary, "keys", func(v Value) Value { return NewArray(v.Dictionary().Keys()) })
	unary(KindDictionary, "values", func(v Value) Value { return NewArray(v.Dictionary().Values()) })
	unary(KindDictionary, "duplicate", func(v Value) Value { return v.Duplicate() })
	register(KindDictionary, "has", func(recv *Value, args []Value) (Value, error) {
		if err := argCount("has", args, 1); err != nil {
			return Value{}, err
		}
		return NewBool(recv.Dictionary().Has(args[0])), nil
	})
	register(KindDictionary, "erase", func(recv *Value, args []Value) (Value, error) {
		if err := argCount("erase", args, 1); err != nil {
			return Value{}, err
		}
		return NewBool(recv.Dictionary().Erase(args[0])), nil
	})
	register(KindDictionary, "clear", func(recv *Value, args []Value) (Value, error) {
		if err := argCount("clear", args, 0); err != nil {
			return Value{}, err
		}
		recv.Dictionary().Clear()
		return NewNil(), nil
	})
}

func registerPackedMethods(kind Kind) {
	registerSizeMethods(kind)
	push := func(recv *Value, args []Value) (Value, error) {
		if err := argCount("append", args, 1); err != nil {
			return Value{}, err
		}
		out, ok := appendPacked(*recv, args[0])
		if !ok {
			return Value{}, fmt.Errorf("%w: cannot append %s to %s", ErrInvalidArgument, args[0].kind, kind)
		}
		*recv = out
		return NewNil(), nil
	}
	register(kind, "append", push)
	register(kind, "push_back", push)
	register(kind, "remove", func(recv *Value, args []Value) (Value, error) {
		if err := argCount("remove", args, 1); err != nil {
			return Value{}, err
		}
		i, ok := AsIndex(args[0])
		if !ok || i < 0 || i >= recv.Len() {
			return Value{}, fmt.Errorf("%w: index %s out of range", ErrInvalidArgument, args[0])
		}
		*recv = removePacked(*recv, i)
		return NewNil(), nil
	})
}

func removePacked(v Value, i int) Value {
	switch v.kind {
	case KindRawArray:
		return NewRawArray(slices.Delete(v.RawArray(), i, i+1))
	case KindIntArray:
		return NewIntArray(slices.Delete(v.IntArray(), i, i+1))
	case KindRealArray:
		return NewRealArray(slices.Delete(v.RealArray(), i, i+1))
	case KindStringArray:
		return NewStringArray(slices.Delete(v.StringArray(), i, i+1))
	case KindVector2Array:
		return NewVector2Array(slices.Delete(v.Vector2Array(), i, i+1))
	case KindVector3Array:
		return NewVector3Array(slices.Delete(v.Vector3Array(), i, i+1))
	case KindColorArray:
		return NewColorArray(slices.Delete(v.ColorArray(), i, i+1))
	default:
		return v
	}
}
