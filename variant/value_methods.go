package variant

import (
	"fmt"
	"slices"
	"strconv"
	"strings"
)

var kindNames = [kindCount]string{
	KindNil:          "Nil",
	KindBool:         "bool",
	KindInt:          "int",
	KindReal:         "float",
	KindString:       "String",
	KindObject:       "Object",
	KindVector2:      "Vector2",
	KindRect2:        "Rect2",
	KindVector3:      "Vector3",
	KindTransform2D:  "Transform2D",
	KindPlane:        "Plane",
	KindQuat:         "Quat",
	KindAABB:         "AABB",
	KindBasis:        "Basis",
	KindTransform:    "Transform",
	KindColor:        "Color",
	KindNodePath:     "NodePath",
	KindRID:          "RID",
	KindArray:        "Array",
	KindDictionary:   "Dictionary",
	KindRawArray:     "RawArray",
	KindIntArray:     "IntArray",
	KindRealArray:    "FloatArray",
	KindStringArray:  "StringArray",
	KindVector2Array: "Vector2Array",
	KindVector3Array: "Vector3Array",
	KindColorArray:   "ColorArray",
}

func (k Kind) String() string {
	if k >= 0 && k < kindCount {
		return kindNames[k]
	}
	return fmt.Sprintf("kind(%d)", int(k))
}

// KindByName maps a builtin type name (as exposed to scripts) to its kind.
func KindByName(name string) (Kind, bool) {
	for k, n := range kindNames {
		if n == name {
			return Kind(k), true
		}
	}
	return KindNil, false
}

// CompoundKinds lists every boxed kind in declaration order.
func CompoundKinds() []Kind {
	kinds := make([]Kind, 0, int(kindCount-KindVector2))
	for k := KindVector2; k < kindCount; k++ {
		kinds = append(kinds, k)
	}
	return kinds
}

func formatReal(f float64) string {
	return strconv.FormatFloat(f, 'g', -1, 64)
}

func (v Vector2) String() string {
	return fmt.Sprintf("(%s, %s)", formatReal(v.X), formatReal(v.Y))
}

func (v Vector3) String() string {
	return fmt.Sprintf("(%s, %s, %s)", formatReal(v.X), formatReal(v.Y), formatReal(v.Z))
}

func (c Color) String() string {
	return fmt.Sprintf("%s,%s,%s,%s", formatReal(c.R), formatReal(c.G), formatReal(c.B), formatReal(c.A))
}

func (v Value) String() string {
	switch v.kind {
	case KindNil:
		return ""
	case KindBool:
		if v.Bool() {
			return "true"
		}
		return "false"
	case KindInt:
		return strconv.FormatInt(v.data.(int64), 10)
	case KindReal:
		return formatReal(v.data.(float64))
	case KindString:
		return v.data.(string)
	case KindObject:
		obj := v.Object()
		if obj == nil {
			return "[Object:null]"
		}
		return fmt.Sprintf("[%s]", obj.ClassName())
	case KindVector2:
		return v.Vector2().String()
	case KindRect2:
		r := v.Rect2()
		return fmt.Sprintf("%s, %s", r.Position, r.Size)
	case KindVector3:
		return v.Vector3().String()
	case KindTransform2D:
		t := v.Transform2D()
		return fmt.Sprintf("%s, %s, %s", t.X, t.Y, t.Origin)
	case KindPlane:
		p := v.Plane()
		return fmt.Sprintf("%s, %s", p.Normal, formatReal(p.D))
	case KindQuat:
		q := v.Quat()
		return fmt.Sprintf("%s, %s, %s, %s", formatReal(q.X), formatReal(q.Y), formatReal(q.Z), formatReal(q.W))
	case KindAABB:
		b := v.AABB()
		return fmt.Sprintf("%s - %s", b.Position, b.Size)
	case KindBasis:
		b := v.Basis()
		return fmt.Sprintf("%s, %s, %s", b.X, b.Y, b.Z)
	case KindTransform:
		t := v.Transform()
		return fmt.Sprintf("%s, %s, %s - %s", t.Basis.X, t.Basis.Y, t.Basis.Z, t.Origin)
	case KindColor:
		return v.Color().String()
	case KindNodePath:
		return string(v.NodePath())
	case KindRID:
		return fmt.Sprintf("RID(%d)", uint64(v.RID()))
	case KindArray:
		elems := v.Array()
		parts := make([]string, len(elems))
		for i, e := range elems {
			parts[i] = e.String()
		}
		return fmt.Sprintf("[%s]", strings.Join(parts, ", "))
	case KindDictionary:
		d := v.Dictionary()
		if d.Len() == 0 {
			return "{}"
		}
		parts := make([]string, 0, d.Len())
		d.Each(func(key, val Value) bool {
			parts = append(parts, fmt.Sprintf("%s: %s", key.String(), val.String()))
			return true
		})
		return fmt.Sprintf("{%s}", strings.Join(parts, ", "))
	default:
		return formatPacked(v)
	}
}

func formatPacked(v Value) string {
	var parts []string
	switch v.kind {
	case KindRawArray:
		for _, b := range v.RawArray() {
			parts = append(parts, strconv.Itoa(int(b)))
		}
	case KindIntArray:
		for _, i := range v.IntArray() {
			parts = append(parts, strconv.FormatInt(i, 10))
		}
	case KindRealArray:
		for _, f := range v.RealArray() {
			parts = append(parts, formatReal(f))
		}
	case KindStringArray:
		parts = append(parts, v.StringArray()...)
	case KindVector2Array:
		for _, e := range v.Vector2Array() {
			parts = append(parts, e.String())
		}
	case KindVector3Array:
		for _, e := range v.Vector3Array() {
			parts = append(parts, e.String())
		}
	case KindColorArray:
		for _, e := range v.ColorArray() {
			parts = append(parts, e.String())
		}
	default:
		return fmt.Sprintf("<%v>", v.kind)
	}
	return fmt.Sprintf("[%s]", strings.Join(parts, ", "))
}

func (v Value) Truthy() bool {
	switch v.kind {
	case KindNil:
		return false
	case KindBool:
		return v.Bool()
	case KindInt:
		return v.data.(int64) != 0
	case KindReal:
		return v.data.(float64) != 0
	case KindString:
		return v.data.(string) != ""
	case KindObject:
		return v.Object() != nil
	default:
		return true
	}
}

// Equal compares values structurally. INT and REAL compare numerically, the
// way the host treats mixed numeric comparisons; objects compare by identity.
func (v Value) Equal(other Value) bool {
	if v.kind.IsNumeric() && other.kind.IsNumeric() {
		if v.kind == KindInt && other.kind == KindInt {
			return v.data.(int64) == other.data.(int64)
		}
		return v.Real() == other.Real()
	}
	if v.kind != other.kind {
		return false
	}
	switch v.kind {
	case KindNil:
		return true
	case KindObject:
		return v.Object() == other.Object()
	case KindArray:
		return slices.EqualFunc(v.Array(), other.Array(), func(a, b Value) bool { return a.Equal(b) })
	case KindDictionary:
		a, b := v.Dictionary(), other.Dictionary()
		if a.Len() != b.Len() {
			return false
		}
		equal := true
		a.Each(func(key, val Value) bool {
			got, ok := b.Get(key)
			equal = ok && got.Equal(val)
			return equal
		})
		return equal
	case KindRawArray:
		return slices.Equal(v.RawArray(), other.RawArray())
	case KindIntArray:
		return slices.Equal(v.IntArray(), other.IntArray())
	case KindRealArray:
		return slices.Equal(v.RealArray(), other.RealArray())
	case KindStringArray:
		return slices.Equal(v.StringArray(), other.StringArray())
	case KindVector2Array:
		return slices.Equal(v.Vector2Array(), other.Vector2Array())
	case KindVector3Array:
		return slices.Equal(v.Vector3Array(), other.Vector3Array())
	case KindColorArray:
		return slices.Equal(v.ColorArray(), other.ColorArray())
	default:
		return v.data == other.data
	}
}

// Duplicate returns a deep copy. Scalars and fixed-size compounds are plain
// values already; arrays and dictionaries get fresh backing storage.
func (v Value) Duplicate() Value {
	switch v.kind {
	case KindArray:
		src := v.Array()
		out := make([]Value, len(src))
		for i, e := range src {
			out[i] = e.Duplicate()
		}
		return NewArray(out)
	case KindDictionary:
		out := &Dictionary{}
		v.Dictionary().Each(func(key, val Value) bool {
			out.Set(key.Duplicate(), val.Duplicate())
			return true
		})
		return NewDictionary(out)
	case KindRawArray:
		return NewRawArray(slices.Clone(v.RawArray()))
	case KindIntArray:
		return NewIntArray(slices.Clone(v.IntArray()))
	case KindRealArray:
		return NewRealArray(slices.Clone(v.RealArray()))
	case KindStringArray:
		return NewStringArray(slices.Clone(v.StringArray()))
	case KindVector2Array:
		return NewVector2Array(slices.Clone(v.Vector2Array()))
	case KindVector3Array:
		return NewVector3Array(slices.Clone(v.Vector3Array()))
	case KindColorArray:
		return NewColorArray(slices.Clone(v.ColorArray()))
	default:
		return v
	}
}
