package variant

import "math"

func IdentityTransform2D() Transform2D {
	return Transform2D{X: Vector2{X: 1}, Y: Vector2{Y: 1}}
}

func IdentityBasis() Basis {
	return Basis{X: Vector3{X: 1}, Y: Vector3{Y: 1}, Z: Vector3{Z: 1}}
}

func (v Vector2) Add(o Vector2) Vector2        { return Vector2{v.X + o.X, v.Y + o.Y} }
func (v Vector2) Sub(o Vector2) Vector2        { return Vector2{v.X - o.X, v.Y - o.Y} }
func (v Vector2) Scale(f float64) Vector2      { return Vector2{v.X * f, v.Y * f} }
func (v Vector2) Dot(o Vector2) float64        { return v.X*o.X + v.Y*o.Y }
func (v Vector2) LengthSquared() float64       { return v.Dot(v) }
func (v Vector2) Length() float64              { return math.Sqrt(v.LengthSquared()) }
func (v Vector2) Angle() float64               { return math.Atan2(v.Y, v.X) }
func (v Vector2) DistanceTo(o Vector2) float64 { return v.Sub(o).Length() }
func (v Vector2) Abs() Vector2                 { return Vector2{math.Abs(v.X), math.Abs(v.Y)} }
func (v Vector2) Floor() Vector2               { return Vector2{math.Floor(v.X), math.Floor(v.Y)} }

func (v Vector2) Normalized() Vector2 {
	l := v.Length()
	if l == 0 {
		return v
	}
	return v.Scale(1 / l)
}

func (v Vector2) Rotated(phi float64) Vector2 {
	sin, cos := math.Sincos(phi)
	return Vector2{v.X*cos - v.Y*sin, v.X*sin + v.Y*cos}
}

func (v Vector3) Add(o Vector3) Vector3        { return Vector3{v.X + o.X, v.Y + o.Y, v.Z + o.Z} }
func (v Vector3) Sub(o Vector3) Vector3        { return Vector3{v.X - o.X, v.Y - o.Y, v.Z - o.Z} }
func (v Vector3) Scale(f float64) Vector3      { return Vector3{v.X * f, v.Y * f, v.Z * f} }
func (v Vector3) Dot(o Vector3) float64        { return v.X*o.X + v.Y*o.Y + v.Z*o.Z }
func (v Vector3) Length() float64              { return math.Sqrt(v.Dot(v)) }
func (v Vector3) DistanceTo(o Vector3) float64 { return v.Sub(o).Length() }

func (v Vector3) Cross(o Vector3) Vector3 {
	return Vector3{
		v.Y*o.Z - v.Z*o.Y,
		v.Z*o.X - v.X*o.Z,
		v.X*o.Y - v.Y*o.X,
	}
}

func (v Vector3) Normalized() Vector3 {
	l := v.Length()
	if l == 0 {
		return v
	}
	return v.Scale(1 / l)
}

func (r Rect2) End() Vector2 { return r.Position.Add(r.Size) }

func (r Rect2) Area() float64 { return r.Size.X * r.Size.Y }

func (r Rect2) HasPoint(p Vector2) bool {
	end := r.End()
	return p.X >= r.Position.X && p.Y >= r.Position.Y && p.X < end.X && p.Y < end.Y
}

func (r Rect2) Intersects(o Rect2) bool {
	a, b := r.End(), o.End()
	return r.Position.X < b.X && o.Position.X < a.X && r.Position.Y < b.Y && o.Position.Y < a.Y
}

func (r Rect2) Grow(by float64) Rect2 {
	return Rect2{
		Position: Vector2{r.Position.X - by, r.Position.Y - by},
		Size:     Vector2{r.Size.X + 2*by, r.Size.Y + 2*by},
	}
}

func (b AABB) End() Vector3 { return b.Position.Add(b.Size) }

func (b AABB) Volume() float64 { return b.Size.X * b.Size.Y * b.Size.Z }

func (b AABB) HasPoint(p Vector3) bool {
	end := b.End()
	return p.X >= b.Position.X && p.Y >= b.Position.Y && p.Z >= b.Position.Z &&
		p.X < end.X && p.Y < end.Y && p.Z < end.Z
}

func (t Transform2D) Xform(v Vector2) Vector2 {
	return Vector2{
		t.X.X*v.X + t.Y.X*v.Y + t.Origin.X,
		t.X.Y*v.X + t.Y.Y*v.Y + t.Origin.Y,
	}
}

func (p Plane) DistanceTo(point Vector3) float64 {
	return p.Normal.Dot(point) - p.D
}

func (p Plane) HasPoint(point Vector3, epsilon float64) bool {
	return math.Abs(p.DistanceTo(point)) <= epsilon
}

func (q Quat) Dot(o Quat) float64 { return q.X*o.X + q.Y*o.Y + q.Z*o.Z + q.W*o.W }
func (q Quat) Length() float64    { return math.Sqrt(q.Dot(q)) }
func (q Quat) Inverse() Quat      { return Quat{-q.X, -q.Y, -q.Z, q.W} }

func (q Quat) Normalized() Quat {
	l := q.Length()
	if l == 0 {
		return q
	}
	return Quat{q.X / l, q.Y / l, q.Z / l, q.W / l}
}

// QuatFromAxisAngle builds a rotation of angle radians around axis.
func QuatFromAxisAngle(axis Vector3, angle float64) Quat {
	n := axis.Normalized()
	sin, cos := math.Sincos(angle / 2)
	return Quat{n.X * sin, n.Y * sin, n.Z * sin, cos}
}

func (b Basis) Xform(v Vector3) Vector3 {
	return b.X.Scale(v.X).Add(b.Y.Scale(v.Y)).Add(b.Z.Scale(v.Z))
}

func (b Basis) Determinant() float64 {
	return b.X.Dot(b.Y.Cross(b.Z))
}

func (t Transform) Xform(v Vector3) Vector3 {
	return t.Basis.Xform(v).Add(t.Origin)
}
