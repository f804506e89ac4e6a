package variant

type Kind int

const (
	KindNil Kind = iota
	KindBool
	KindInt
	KindReal
	KindString
	KindObject
	KindVector2
	KindRect2
	KindVector3
	KindTransform2D
	KindPlane
	KindQuat
	KindAABB
	KindBasis
	KindTransform
	KindColor
	KindNodePath
	KindRID
	KindArray
	KindDictionary
	KindRawArray
	KindIntArray
	KindRealArray
	KindStringArray
	KindVector2Array
	KindVector3Array
	KindColorArray
	kindCount
)

// Object is the native side of an OBJECT value. The host package supplies
// the full object model; values only need a class name to describe it.
type Object interface {
	ClassName() string
}

// Value is a tagged native value. The zero Value is nil.
type Value struct {
	kind Kind
	data any
}

type Vector2 struct {
	X, Y float64
}

type Vector3 struct {
	X, Y, Z float64
}

type Rect2 struct {
	Position Vector2
	Size     Vector2
}

type Transform2D struct {
	X, Y   Vector2
	Origin Vector2
}

type Plane struct {
	Normal Vector3
	D      float64
}

type Quat struct {
	X, Y, Z, W float64
}

type AABB struct {
	Position Vector3
	Size     Vector3
}

// Basis stores the three column axes of a 3x3 matrix.
type Basis struct {
	X, Y, Z Vector3
}

type Transform struct {
	Basis  Basis
	Origin Vector3
}

type Color struct {
	R, G, B, A float64
}

type NodePath string

type RID uint64

// IsCompound reports whether values of this kind are boxed when they cross
// into the dynamic runtime.
func (k Kind) IsCompound() bool {
	return k >= KindVector2 && k < kindCount
}

func (k Kind) IsNumeric() bool {
	return k == KindInt || k == KindReal
}
