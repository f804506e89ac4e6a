package variant

import (
	"errors"
	"fmt"
	"math"
)

// ErrFieldNotSettable reports a field write that the target kind cannot
// accept, either because the name is not part of its shape or because the
// value has the wrong type. The target is left unchanged.
var ErrFieldNotSettable = errors.New("field not settable")

func notSettable(key Value, kind Kind) error {
	return fmt.Errorf("%w: '%s' on %s", ErrFieldNotSettable, key.String(), kind)
}

// AsReal converts numeric values to float64.
func AsReal(v Value) (float64, bool) {
	if !v.kind.IsNumeric() {
		return 0, false
	}
	return v.Real(), true
}

// AsIndex converts integral numeric values to an int index.
func AsIndex(v Value) (int, bool) {
	switch v.kind {
	case KindInt:
		return int(v.Int()), true
	case KindReal:
		f := v.Real()
		if f != math.Trunc(f) {
			return 0, false
		}
		return int(f), true
	default:
		return 0, false
	}
}

// Get reads a named field or indexed element. The second result is false
// when the key does not address anything on this kind.
func (v Value) Get(key Value) (Value, bool) {
	switch v.kind {
	case KindArray:
		if i, ok := AsIndex(key); ok && i >= 0 && i < v.Len() {
			return v.Array()[i], true
		}
		return NewNil(), false
	case KindDictionary:
		return v.Dictionary().Get(key)
	case KindRawArray, KindIntArray, KindRealArray, KindStringArray, KindVector2Array, KindVector3Array, KindColorArray:
		if i, ok := AsIndex(key); ok && i >= 0 && i < v.Len() {
			return packedAt(v, i), true
		}
		return NewNil(), false
	}
	if key.kind != KindString {
		return NewNil(), false
	}
	name := key.String()
	switch v.kind {
	case KindVector2:
		return vector2Field(v.Vector2(), name)
	case KindVector3:
		return vector3Field(v.Vector3(), name)
	case KindRect2:
		r := v.Rect2()
		switch name {
		case "pos", "position":
			return NewVector2(r.Position), true
		case "size":
			return NewVector2(r.Size), true
		case "end":
			return NewVector2(r.End()), true
		}
	case KindTransform2D:
		t := v.Transform2D()
		switch name {
		case "x":
			return NewVector2(t.X), true
		case "y":
			return NewVector2(t.Y), true
		case "o", "origin":
			return NewVector2(t.Origin), true
		}
	case KindPlane:
		p := v.Plane()
		switch name {
		case "normal":
			return NewVector3(p.Normal), true
		case "d":
			return NewReal(p.D), true
		case "x", "y", "z":
			return vector3Field(p.Normal, name)
		}
	case KindQuat:
		q := v.Quat()
		switch name {
		case "x":
			return NewReal(q.X), true
		case "y":
			return NewReal(q.Y), true
		case "z":
			return NewReal(q.Z), true
		case "w":
			return NewReal(q.W), true
		}
	case KindAABB:
		b := v.AABB()
		switch name {
		case "pos", "position":
			return NewVector3(b.Position), true
		case "size":
			return NewVector3(b.Size), true
		case "end":
			return NewVector3(b.End()), true
		}
	case KindBasis:
		b := v.Basis()
		switch name {
		case "x":
			return NewVector3(b.X), true
		case "y":
			return NewVector3(b.Y), true
		case "z":
			return NewVector3(b.Z), true
		}
	case KindTransform:
		t := v.Transform()
		switch name {
		case "basis":
			return NewBasis(t.Basis), true
		case "origin":
			return NewVector3(t.Origin), true
		}
	case KindColor:
		return colorField(v.Color(), name)
	case KindRID:
		if name == "id" {
			return NewInt(int64(v.RID())), true
		}
	}
	return NewNil(), false
}

func vector2Field(vec Vector2, name string) (Value, bool) {
	switch name {
	case "x", "width":
		return NewReal(vec.X), true
	case "y", "height":
		return NewReal(vec.Y), true
	}
	return NewNil(), false
}

func vector3Field(vec Vector3, name string) (Value, bool) {
	switch name {
	case "x":
		return NewReal(vec.X), true
	case "y":
		return NewReal(vec.Y), true
	case "z":
		return NewReal(vec.Z), true
	}
	return NewNil(), false
}

func colorField(c Color, name string) (Value, bool) {
	switch name {
	case "r":
		return NewReal(c.R), true
	case "g":
		return NewReal(c.G), true
	case "b":
		return NewReal(c.B), true
	case "a":
		return NewReal(c.A), true
	case "r8":
		return NewInt(to8(c.R)), true
	case "g8":
		return NewInt(to8(c.G)), true
	case "b8":
		return NewInt(to8(c.B)), true
	case "a8":
		return NewInt(to8(c.A)), true
	case "h", "s", "v":
		h, s, val := c.HSV()
		switch name {
		case "h":
			return NewReal(h), true
		case "s":
			return NewReal(s), true
		default:
			return NewReal(val), true
		}
	}
	return NewNil(), false
}

// Set writes a field or element and returns the updated value. Fixed-size
// kinds are copied; arrays and dictionaries are updated in place and the same
// backing storage is returned. On error the receiver is untouched.
func (v Value) Set(key, val Value) (Value, error) {
	switch v.kind {
	case KindArray:
		i, ok := AsIndex(key)
		if !ok || i < 0 || i >= v.Len() {
			return v, notSettable(key, v.kind)
		}
		v.Array()[i] = val
		return v, nil
	case KindDictionary:
		v.Dictionary().Set(key, val)
		return v, nil
	case KindRawArray, KindIntArray, KindRealArray, KindStringArray, KindVector2Array, KindVector3Array, KindColorArray:
		i, ok := AsIndex(key)
		if !ok || i < 0 || i >= v.Len() {
			return v, notSettable(key, v.kind)
		}
		if !setPacked(v, i, val) {
			return v, notSettable(key, v.kind)
		}
		return v, nil
	}
	if key.kind != KindString {
		return v, notSettable(key, v.kind)
	}
	name := key.String()
	var (
		out Value
		ok  bool
	)
	switch v.kind {
	case KindVector2:
		var vec Vector2
		vec, ok = setVector2Field(v.Vector2(), name, val)
		out = NewVector2(vec)
	case KindVector3:
		var vec Vector3
		vec, ok = setVector3Field(v.Vector3(), name, val)
		out = NewVector3(vec)
	case KindRect2:
		r := v.Rect2()
		switch name {
		case "pos", "position":
			r.Position, ok = val.Vector2(), val.kind == KindVector2
		case "size":
			r.Size, ok = val.Vector2(), val.kind == KindVector2
		case "end":
			r.Size, ok = val.Vector2().Sub(r.Position), val.kind == KindVector2
		}
		out = NewRect2(r)
	case KindTransform2D:
		t := v.Transform2D()
		switch name {
		case "x":
			t.X, ok = val.Vector2(), val.kind == KindVector2
		case "y":
			t.Y, ok = val.Vector2(), val.kind == KindVector2
		case "o", "origin":
			t.Origin, ok = val.Vector2(), val.kind == KindVector2
		}
		out = NewTransform2D(t)
	case KindPlane:
		p := v.Plane()
		switch name {
		case "normal":
			p.Normal, ok = val.Vector3(), val.kind == KindVector3
		case "d":
			p.D, ok = AsReal(val)
		case "x", "y", "z":
			p.Normal, ok = setVector3Field(p.Normal, name, val)
		}
		out = NewPlane(p)
	case KindQuat:
		q := v.Quat()
		switch name {
		case "x":
			q.X, ok = AsReal(val)
		case "y":
			q.Y, ok = AsReal(val)
		case "z":
			q.Z, ok = AsReal(val)
		case "w":
			q.W, ok = AsReal(val)
		}
		out = NewQuat(q)
	case KindAABB:
		b := v.AABB()
		switch name {
		case "pos", "position":
			b.Position, ok = val.Vector3(), val.kind == KindVector3
		case "size":
			b.Size, ok = val.Vector3(), val.kind == KindVector3
		case "end":
			b.Size, ok = val.Vector3().Sub(b.Position), val.kind == KindVector3
		}
		out = NewAABB(b)
	case KindBasis:
		b := v.Basis()
		switch name {
		case "x":
			b.X, ok = val.Vector3(), val.kind == KindVector3
		case "y":
			b.Y, ok = val.Vector3(), val.kind == KindVector3
		case "z":
			b.Z, ok = val.Vector3(), val.kind == KindVector3
		}
		out = NewBasis(b)
	case KindTransform:
		t := v.Transform()
		switch name {
		case "basis":
			t.Basis, ok = val.Basis(), val.kind == KindBasis
		case "origin":
			t.Origin, ok = val.Vector3(), val.kind == KindVector3
		}
		out = NewTransform(t)
	case KindColor:
		var c Color
		c, ok = setColorField(v.Color(), name, val)
		out = NewColor(c)
	}
	if !ok {
		return v, notSettable(key, v.kind)
	}
	return out, nil
}

func setVector2Field(vec Vector2, name string, val Value) (Vector2, bool) {
	f, ok := AsReal(val)
	if !ok {
		return vec, false
	}
	switch name {
	case "x", "width":
		vec.X = f
	case "y", "height":
		vec.Y = f
	default:
		return vec, false
	}
	return vec, true
}

func setVector3Field(vec Vector3, name string, val Value) (Vector3, bool) {
	f, ok := AsReal(val)
	if !ok {
		return vec, false
	}
	switch name {
	case "x":
		vec.X = f
	case "y":
		vec.Y = f
	case "z":
		vec.Z = f
	default:
		return vec, false
	}
	return vec, true
}

// h, s and v are derived and read-only.
func setColorField(c Color, name string, val Value) (Color, bool) {
	f, ok := AsReal(val)
	if !ok {
		return c, false
	}
	switch name {
	case "r":
		c.R = f
	case "g":
		c.G = f
	case "b":
		c.B = f
	case "a":
		c.A = f
	case "r8":
		c.R = f / 255
	case "g8":
		c.G = f / 255
	case "b8":
		c.B = f / 255
	case "a8":
		c.A = f / 255
	default:
		return c, false
	}
	return c, true
}

func packedAt(v Value, i int) Value {
	switch v.kind {
	case KindRawArray:
		return NewInt(int64(v.RawArray()[i]))
	case KindIntArray:
		return NewInt(v.IntArray()[i])
	case KindRealArray:
		return NewReal(v.RealArray()[i])
	case KindStringArray:
		return NewString(v.StringArray()[i])
	case KindVector2Array:
		return NewVector2(v.Vector2Array()[i])
	case KindVector3Array:
		return NewVector3(v.Vector3Array()[i])
	case KindColorArray:
		return NewColor(v.ColorArray()[i])
	default:
		return NewNil()
	}
}

func setPacked(v Value, i int, val Value) bool {
	switch v.kind {
	case KindRawArray:
		n, ok := AsIndex(val)
		if !ok || n < 0 || n > 255 {
			return false
		}
		v.RawArray()[i] = byte(n)
	case KindIntArray:
		if !val.kind.IsNumeric() {
			return false
		}
		v.IntArray()[i] = val.Int()
	case KindRealArray:
		f, ok := AsReal(val)
		if !ok {
			return false
		}
		v.RealArray()[i] = f
	case KindStringArray:
		if val.kind != KindString {
			return false
		}
		v.StringArray()[i] = val.String()
	case KindVector2Array:
		if val.kind != KindVector2 {
			return false
		}
		v.Vector2Array()[i] = val.Vector2()
	case KindVector3Array:
		if val.kind != KindVector3 {
			return false
		}
		v.Vector3Array()[i] = val.Vector3()
	case KindColorArray:
		if val.kind != KindColor {
			return false
		}
		v.ColorArray()[i] = val.Color()
	default:
		return false
	}
	return true
}

// appendPacked appends an element converted to the packed element type.
func appendPacked(v Value, val Value) (Value, bool) {
	switch v.kind {
	case KindArray:
		return NewArray(append(v.Array(), val)), true
	case KindRawArray:
		n, ok := AsIndex(val)
		if !ok || n < 0 || n > 255 {
			return v, false
		}
		return NewRawArray(append(v.RawArray(), byte(n))), true
	case KindIntArray:
		if !val.kind.IsNumeric() {
			return v, false
		}
		return NewIntArray(append(v.IntArray(), val.Int())), true
	case KindRealArray:
		f, ok := AsReal(val)
		if !ok {
			return v, false
		}
		return NewRealArray(append(v.RealArray(), f)), true
	case KindStringArray:
		if val.kind != KindString {
			return v, false
		}
		return NewStringArray(append(v.StringArray(), val.String())), true
	case KindVector2Array:
		if val.kind != KindVector2 {
			return v, false
		}
		return NewVector2Array(append(v.Vector2Array(), val.Vector2())), true
	case KindVector3Array:
		if val.kind != KindVector3 {
			return v, false
		}
		return NewVector3Array(append(v.Vector3Array(), val.Vector3())), true
	case KindColorArray:
		if val.kind != KindColor {
			return v, false
		}
		return NewColorArray(append(v.ColorArray(), val.Color())), true
	default:
		return v, false
	}
}
