package variant

func (v Value) Kind() Kind { return v.kind }

func (v Value) IsNil() bool { return v.kind == KindNil }

func (v Value) Bool() bool {
	if v.kind == KindBool {
		return v.data.(bool)
	}
	return false
}

func (v Value) Int() int64 {
	switch v.kind {
	case KindInt:
		return v.data.(int64)
	case KindReal:
		return int64(v.data.(float64))
	default:
		return 0
	}
}

func (v Value) Real() float64 {
	switch v.kind {
	case KindReal:
		return v.data.(float64)
	case KindInt:
		return float64(v.data.(int64))
	default:
		return 0
	}
}

// Object returns the wrapped object, or nil for non-object and null object
// values.
func (v Value) Object() Object {
	if v.kind != KindObject || v.data == nil {
		return nil
	}
	return v.data.(Object)
}

func (v Value) Vector2() Vector2 {
	if v.kind != KindVector2 {
		return Vector2{}
	}
	return v.data.(Vector2)
}

func (v Value) Rect2() Rect2 {
	if v.kind != KindRect2 {
		return Rect2{}
	}
	return v.data.(Rect2)
}

func (v Value) Vector3() Vector3 {
	if v.kind != KindVector3 {
		return Vector3{}
	}
	return v.data.(Vector3)
}

func (v Value) Transform2D() Transform2D {
	if v.kind != KindTransform2D {
		return Transform2D{}
	}
	return v.data.(Transform2D)
}

func (v Value) Plane() Plane {
	if v.kind != KindPlane {
		return Plane{}
	}
	return v.data.(Plane)
}

func (v Value) Quat() Quat {
	if v.kind != KindQuat {
		return Quat{}
	}
	return v.data.(Quat)
}

func (v Value) AABB() AABB {
	if v.kind != KindAABB {
		return AABB{}
	}
	return v.data.(AABB)
}

func (v Value) Basis() Basis {
	if v.kind != KindBasis {
		return Basis{}
	}
	return v.data.(Basis)
}

func (v Value) Transform() Transform {
	if v.kind != KindTransform {
		return Transform{}
	}
	return v.data.(Transform)
}

func (v Value) Color() Color {
	if v.kind != KindColor {
		return Color{}
	}
	return v.data.(Color)
}

func (v Value) NodePath() NodePath {
	if v.kind != KindNodePath {
		return ""
	}
	return v.data.(NodePath)
}

func (v Value) RID() RID {
	if v.kind != KindRID {
		return 0
	}
	return v.data.(RID)
}

func (v Value) Array() []Value {
	if v.kind != KindArray {
		return nil
	}
	return v.data.([]Value)
}

func (v Value) Dictionary() *Dictionary {
	if v.kind != KindDictionary {
		return nil
	}
	return v.data.(*Dictionary)
}

func (v Value) RawArray() []byte {
	if v.kind != KindRawArray {
		return nil
	}
	return v.data.([]byte)
}

func (v Value) IntArray() []int64 {
	if v.kind != KindIntArray {
		return nil
	}
	return v.data.([]int64)
}

func (v Value) RealArray() []float64 {
	if v.kind != KindRealArray {
		return nil
	}
	return v.data.([]float64)
}

func (v Value) StringArray() []string {
	if v.kind != KindStringArray {
		return nil
	}
	return v.data.([]string)
}

func (v Value) Vector2Array() []Vector2 {
	if v.kind != KindVector2Array {
		return nil
	}
	return v.data.([]Vector2)
}

func (v Value) Vector3Array() []Vector3 {
	if v.kind != KindVector3Array {
		return nil
	}
	return v.data.([]Vector3)
}

func (v Value) ColorArray() []Color {
	if v.kind != KindColorArray {
		return nil
	}
	return v.data.([]Color)
}

// Len returns the element count of array and dictionary kinds, and 0 for
// everything else.
func (v Value) Len() int {
	switch v.kind {
	case KindArray:
		return len(v.data.([]Value))
	case KindDictionary:
		return v.data.(*Dictionary).Len()
	case KindRawArray:
		return len(v.data.([]byte))
	case KindIntArray:
		return len(v.data.([]int64))
	case KindRealArray:
		return len(v.data.([]float64))
	case KindStringArray:
		return len(v.data.([]string))
	case KindVector2Array:
		return len(v.data.([]Vector2))
	case KindVector3Array:
		return len(v.data.([]Vector3))
	case KindColorArray:
		return len(v.data.([]Color))
	default:
		return 0
	}
}
