package variant

import (
	"errors"
	"fmt"
)

var ErrInvalidConstruction = errors.New("invalid construction")

func constructError(kind Kind, format string, args ...any) error {
	return fmt.Errorf("%w: %s: %s", ErrInvalidConstruction, kind, fmt.Sprintf(format, args...))
}

func reals(kind Kind, args []Value) ([]float64, error) {
	out := make([]float64, len(args))
	for i, a := range args {
		f, ok := AsReal(a)
		if !ok {
			return nil, constructError(kind, "argument %d must be a number, got %s", i+1, a.kind)
		}
		out[i] = f
	}
	return out, nil
}

func expectKinds(kind Kind, args []Value, want ...Kind) error {
	if len(args) != len(want) {
		return constructError(kind, "expected %d arguments, got %d", len(want), len(args))
	}
	for i, k := range want {
		if args[i].kind != k {
			return constructError(kind, "argument %d must be %s, got %s", i+1, k, args[i].kind)
		}
	}
	return nil
}

// Construct builds a value of kind from constructor arguments. No arguments
// produces Zero(kind). A single argument of the same kind is copied.
func Construct(kind Kind, args []Value) (Value, error) {
	if len(args) == 0 {
		return Zero(kind), nil
	}
	if len(args) == 1 && args[0].kind == kind {
		return args[0].Duplicate(), nil
	}
	switch kind {
	case KindBool:
		return NewBool(args[0].Truthy()), nil
	case KindInt:
		if !args[0].kind.IsNumeric() {
			return Value{}, constructError(kind, "cannot convert %s", args[0].kind)
		}
		return NewInt(args[0].Int()), nil
	case KindReal:
		f, ok := AsReal(args[0])
		if !ok {
			return Value{}, constructError(kind, "cannot convert %s", args[0].kind)
		}
		return NewReal(f), nil
	case KindString:
		return NewString(args[0].String()), nil
	case KindVector2:
		f, err := reals(kind, args)
		if err != nil {
			return Value{}, err
		}
		if len(f) != 2 {
			return Value{}, constructError(kind, "expected 2 arguments, got %d", len(f))
		}
		return NewVector2(Vector2{f[0], f[1]}), nil
	case KindVector3:
		f, err := reals(kind, args)
		if err != nil {
			return Value{}, err
		}
		if len(f) != 3 {
			return Value{}, constructError(kind, "expected 3 arguments, got %d", len(f))
		}
		return NewVector3(Vector3{f[0], f[1], f[2]}), nil
	case KindRect2:
		if len(args) == 2 {
			if err := expectKinds(kind, args, KindVector2, KindVector2); err != nil {
				return Value{}, err
			}
			return NewRect2(Rect2{args[0].Vector2(), args[1].Vector2()}), nil
		}
		f, err := reals(kind, args)
		if err != nil {
			return Value{}, err
		}
		if len(f) != 4 {
			return Value{}, constructError(kind, "expected 2 vectors or 4 numbers, got %d arguments", len(f))
		}
		return NewRect2(Rect2{Vector2{f[0], f[1]}, Vector2{f[2], f[3]}}), nil
	case KindTransform2D:
		if len(args) == 2 {
			rot, ok := AsReal(args[0])
			if !ok || args[1].kind != KindVector2 {
				return Value{}, constructError(kind, "expected rotation and origin")
			}
			x := Vector2{X: 1}.Rotated(rot)
			y := Vector2{Y: 1}.Rotated(rot)
			return NewTransform2D(Transform2D{X: x, Y: y, Origin: args[1].Vector2()}), nil
		}
		if err := expectKinds(kind, args, KindVector2, KindVector2, KindVector2); err != nil {
			return Value{}, err
		}
		return NewTransform2D(Transform2D{args[0].Vector2(), args[1].Vector2(), args[2].Vector2()}), nil
	case KindPlane:
		if len(args) == 2 {
			d, ok := AsReal(args[1])
			if !ok || args[0].kind != KindVector3 {
				return Value{}, constructError(kind, "expected normal and distance")
			}
			return NewPlane(Plane{args[0].Vector3(), d}), nil
		}
		f, err := reals(kind, args)
		if err != nil {
			return Value{}, err
		}
		if len(f) != 4 {
			return Value{}, constructError(kind, "expected 4 arguments, got %d", len(f))
		}
		return NewPlane(Plane{Vector3{f[0], f[1], f[2]}, f[3]}), nil
	case KindQuat:
		if len(args) == 2 {
			angle, ok := AsReal(args[1])
			if !ok || args[0].kind != KindVector3 {
				return Value{}, constructError(kind, "expected axis and angle")
			}
			return NewQuat(QuatFromAxisAngle(args[0].Vector3(), angle)), nil
		}
		f, err := reals(kind, args)
		if err != nil {
			return Value{}, err
		}
		if len(f) != 4 {
			return Value{}, constructError(kind, "expected 4 arguments, got %d", len(f))
		}
		return NewQuat(Quat{f[0], f[1], f[2], f[3]}), nil
	case KindAABB:
		if err := expectKinds(kind, args, KindVector3, KindVector3); err != nil {
			return Value{}, err
		}
		return NewAABB(AABB{args[0].Vector3(), args[1].Vector3()}), nil
	case KindBasis:
		if err := expectKinds(kind, args, KindVector3, KindVector3, KindVector3); err != nil {
			return Value{}, err
		}
		return NewBasis(Basis{args[0].Vector3(), args[1].Vector3(), args[2].Vector3()}), nil
	case KindTransform:
		if err := expectKinds(kind, args, KindBasis, KindVector3); err != nil {
			return Value{}, err
		}
		return NewTransform(Transform{args[0].Basis(), args[1].Vector3()}), nil
	case KindColor:
		if len(args) == 1 && args[0].kind == KindString {
			c, err := ParseHTMLColor(args[0].String())
			if err != nil {
				return Value{}, constructError(kind, "%v", err)
			}
			return NewColor(c), nil
		}
		f, err := reals(kind, args)
		if err != nil {
			return Value{}, err
		}
		switch len(f) {
		case 3:
			return NewColor(Color{f[0], f[1], f[2], 1}), nil
		case 4:
			return NewColor(Color{f[0], f[1], f[2], f[3]}), nil
		default:
			return Value{}, constructError(kind, "expected 3 or 4 arguments, got %d", len(f))
		}
	case KindNodePath:
		if err := expectKinds(kind, args, KindString); err != nil {
			return Value{}, err
		}
		return NewNodePath(NodePath(args[0].String())), nil
	case KindRID:
		id, ok := AsIndex(args[0])
		if len(args) != 1 || !ok || id < 0 {
			return Value{}, constructError(kind, "expected a non-negative id")
		}
		return NewRID(RID(id)), nil
	case KindArray:
		if len(args) == 1 && args[0].kind > KindDictionary {
			src := args[0]
			items := make([]Value, src.Len())
			for i := range items {
				items[i] = packedAt(src, i)
			}
			return NewArray(items), nil
		}
		items := make([]Value, len(args))
		for i, a := range args {
			items[i] = a.Duplicate()
		}
		return NewArray(items), nil
	case KindDictionary:
		if len(args)%2 != 0 {
			return Value{}, constructError(kind, "expected key/value pairs")
		}
		d := &Dictionary{}
		for i := 0; i < len(args); i += 2 {
			d.Set(args[i].Duplicate(), args[i+1].Duplicate())
		}
		return NewDictionary(d), nil
	case KindRawArray, KindIntArray, KindRealArray, KindStringArray, KindVector2Array, KindVector3Array, KindColorArray:
		items := args
		if len(args) == 1 && args[0].kind == KindArray {
			items = args[0].Array()
		}
		out := Zero(kind)
		for i, item := range items {
			var ok bool
			out, ok = appendPacked(out, item)
			if !ok {
				return Value{}, constructError(kind, "element %d cannot be %s", i+1, item.kind)
			}
		}
		return out, nil
	default:
		return Value{}, constructError(kind, "not constructible")
	}
}
