package variant

func NewNil() Value              { return Value{kind: KindNil} }
func NewBool(b bool) Value       { return Value{kind: KindBool, data: b} }
func NewInt(i int64) Value       { return Value{kind: KindInt, data: i} }
func NewReal(f float64) Value    { return Value{kind: KindReal, data: f} }
func NewString(s string) Value   { return Value{kind: KindString, data: s} }
func NewVector2(v Vector2) Value { return Value{kind: KindVector2, data: v} }
func NewRect2(r Rect2) Value     { return Value{kind: KindRect2, data: r} }
func NewVector3(v Vector3) Value { return Value{kind: KindVector3, data: v} }
func NewTransform2D(t Transform2D) Value {
	return Value{kind: KindTransform2D, data: t}
}
func NewPlane(p Plane) Value         { return Value{kind: KindPlane, data: p} }
func NewQuat(q Quat) Value           { return Value{kind: KindQuat, data: q} }
func NewAABB(b AABB) Value           { return Value{kind: KindAABB, data: b} }
func NewBasis(b Basis) Value         { return Value{kind: KindBasis, data: b} }
func NewTransform(t Transform) Value { return Value{kind: KindTransform, data: t} }
func NewColor(c Color) Value         { return Value{kind: KindColor, data: c} }
func NewNodePath(p NodePath) Value   { return Value{kind: KindNodePath, data: p} }
func NewRID(id RID) Value            { return Value{kind: KindRID, data: id} }

// NewObject wraps a native object. A nil object produces a null OBJECT
// value, which is distinct from NIL on the native side.
func NewObject(obj Object) Value { return Value{kind: KindObject, data: obj} }

func NewArray(items []Value) Value {
	if items == nil {
		items = []Value{}
	}
	return Value{kind: KindArray, data: items}
}

func NewDictionary(d *Dictionary) Value {
	if d == nil {
		d = &Dictionary{}
	}
	return Value{kind: KindDictionary, data: d}
}

func NewRawArray(b []byte) Value {
	if b == nil {
		b = []byte{}
	}
	return Value{kind: KindRawArray, data: b}
}

func NewIntArray(a []int64) Value {
	if a == nil {
		a = []int64{}
	}
	return Value{kind: KindIntArray, data: a}
}

func NewRealArray(a []float64) Value {
	if a == nil {
		a = []float64{}
	}
	return Value{kind: KindRealArray, data: a}
}

func NewStringArray(a []string) Value {
	if a == nil {
		a = []string{}
	}
	return Value{kind: KindStringArray, data: a}
}

func NewVector2Array(a []Vector2) Value {
	if a == nil {
		a = []Vector2{}
	}
	return Value{kind: KindVector2Array, data: a}
}

func NewVector3Array(a []Vector3) Value {
	if a == nil {
		a = []Vector3{}
	}
	return Value{kind: KindVector3Array, data: a}
}

func NewColorArray(a []Color) Value {
	if a == nil {
		a = []Color{}
	}
	return Value{kind: KindColorArray, data: a}
}

// Zero returns the default value of a kind, as produced by a constructor
// called with no arguments.
func Zero(kind Kind) Value {
	switch kind {
	case KindBool:
		return NewBool(false)
	case KindInt:
		return NewInt(0)
	case KindReal:
		return NewReal(0)
	case KindString:
		return NewString("")
	case KindObject:
		return NewObject(nil)
	case KindVector2:
		return NewVector2(Vector2{})
	case KindRect2:
		return NewRect2(Rect2{})
	case KindVector3:
		return NewVector3(Vector3{})
	case KindTransform2D:
		return NewTransform2D(IdentityTransform2D())
	case KindPlane:
		return NewPlane(Plane{})
	case KindQuat:
		return NewQuat(Quat{W: 1})
	case KindAABB:
		return NewAABB(AABB{})
	case KindBasis:
		return NewBasis(IdentityBasis())
	case KindTransform:
		return NewTransform(Transform{Basis: IdentityBasis()})
	case KindColor:
		return NewColor(Color{A: 1})
	case KindNodePath:
		return NewNodePath("")
	case KindRID:
		return NewRID(0)
	case KindArray:
		return NewArray(nil)
	case KindDictionary:
		return NewDictionary(nil)
	case KindRawArray:
		return NewRawArray(nil)
	case KindIntArray:
		return NewIntArray(nil)
	case KindRealArray:
		return NewRealArray(nil)
	case KindStringArray:
		return NewStringArray(nil)
	case KindVector2Array:
		return NewVector2Array(nil)
	case KindVector3Array:
		return NewVector3Array(nil)
	case KindColorArray:
		return NewColorArray(nil)
	default:
		return NewNil()
	}
}
