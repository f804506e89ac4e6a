package variant

import (
	"errors"
	"math"
	"testing"

	"github.com/google/go-cmp/cmp"
)

type testObject struct{ class string }

func (o *testObject) ClassName() string { return o.class }

func TestEqualComparesNumbersAcrossKinds(t *testing.T) {
	if !NewInt(3).Equal(NewReal(3)) {
		t.Fatalf("expected 3 == 3.0")
	}
	if NewInt(3).Equal(NewReal(3.5)) {
		t.Fatalf("expected 3 != 3.5")
	}
	if NewString("3").Equal(NewInt(3)) {
		t.Fatalf("strings never equal numbers")
	}
}

func TestObjectIdentity(t *testing.T) {
	a, b := &testObject{class: "Node"}, &testObject{class: "Node"}
	if !NewObject(a).Equal(NewObject(a)) {
		t.Fatalf("same object must be equal")
	}
	if NewObject(a).Equal(NewObject(b)) {
		t.Fatalf("distinct objects must differ")
	}
	null := NewObject(nil)
	if null.Kind() != KindObject || null.Object() != nil || null.Truthy() {
		t.Fatalf("unexpected null object: %#v", null)
	}
	if got := null.String(); got != "[Object:null]" {
		t.Fatalf("unexpected null rendering %q", got)
	}
}

func TestDuplicateDoesNotAlias(t *testing.T) {
	inner := NewArray([]Value{NewInt(1)})
	d := &Dictionary{}
	d.Set(NewString("items"), inner)
	orig := NewDictionary(d)

	dup := orig.Duplicate()
	if diff := cmp.Diff(orig, dup); diff != "" {
		t.Fatalf("duplicate differs (-orig +dup):\n%s", diff)
	}

	items, _ := dup.Dictionary().Get(NewString("items"))
	items.Array()[0] = NewInt(99)
	if inner.Array()[0].Int() != 1 {
		t.Fatalf("duplicate aliased nested array")
	}
}

func TestDictionaryOrderAndNumericKeys(t *testing.T) {
	d := &Dictionary{}
	d.Set(NewString("b"), NewInt(2))
	d.Set(NewInt(1), NewString("one"))
	d.Set(NewString("a"), NewInt(1))
	d.Set(NewReal(1), NewString("uno"))

	want := []Value{NewString("b"), NewInt(1), NewString("a")}
	if diff := cmp.Diff(want, d.Keys()); diff != "" {
		t.Fatalf("keys mismatch (-want +got):\n%s", diff)
	}
	if got, _ := d.Get(NewInt(1)); got.String() != "uno" {
		t.Fatalf("expected REAL 1 to overwrite INT 1, got %v", got)
	}
	if !d.Erase(NewString("b")) || d.Len() != 2 {
		t.Fatalf("erase failed: %d entries", d.Len())
	}
}

func TestKindNames(t *testing.T) {
	for _, kind := range CompoundKinds() {
		got, ok := KindByName(kind.String())
		if !ok || got != kind {
			t.Fatalf("kind %v does not round trip through its name", kind)
		}
	}
	if KindRealArray.String() != "FloatArray" {
		t.Fatalf("unexpected name %q", KindRealArray.String())
	}
}

func TestConstruct(t *testing.T) {
	tests := []struct {
		name string
		kind Kind
		args []Value
		want Value
	}{
		{name: "zero vector", kind: KindVector2, want: NewVector2(Vector2{})},
		{name: "vector", kind: KindVector3, args: []Value{NewInt(1), NewReal(2.5), NewInt(3)}, want: NewVector3(Vector3{1, 2.5, 3})},
		{name: "rect from numbers", kind: KindRect2, args: []Value{NewInt(1), NewInt(2), NewInt(3), NewInt(4)}, want: NewRect2(Rect2{Vector2{1, 2}, Vector2{3, 4}})},
		{name: "rgb color", kind: KindColor, args: []Value{NewReal(0.5), NewInt(0), NewInt(1)}, want: NewColor(Color{0.5, 0, 1, 1})},
		{name: "html color", kind: KindColor, args: []Value{NewString("#ff0000")}, want: NewColor(Color{1, 0, 0, 1})},
		{name: "identity basis", kind: KindBasis, want: NewBasis(IdentityBasis())},
		{name: "array", kind: KindArray, args: []Value{NewInt(1), NewString("x")}, want: NewArray([]Value{NewInt(1), NewString("x")})},
		{name: "packed from array", kind: KindIntArray, args: []Value{NewArray([]Value{NewInt(1), NewReal(2)})}, want: NewIntArray([]int64{1, 2})},
		{name: "array from packed", kind: KindArray, args: []Value{NewStringArray([]string{"a"})}, want: NewArray([]Value{NewString("a")})},
	}

	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			got, err := Construct(tc.kind, tc.args)
			if err != nil {
				t.Fatalf("construct: %v", err)
			}
			if diff := cmp.Diff(tc.want, got); diff != "" {
				t.Fatalf("mismatch (-want +got):\n%s", diff)
			}
		})
	}
}

func TestConstructRejectsBadArguments(t *testing.T) {
	cases := map[string]struct {
		kind Kind
		args []Value
	}{
		"vector arity":  {KindVector2, []Value{NewInt(1)}},
		"vector types":  {KindVector2, []Value{NewInt(1), NewString("2")}},
		"bad html":      {KindColor, []Value{NewString("#zzz")}},
		"dict pairs":    {KindDictionary, []Value{NewString("k")}},
		"packed values": {KindRawArray, []Value{NewInt(300)}},
	}
	for name, tc := range cases {
		if _, err := Construct(tc.kind, tc.args); !errors.Is(err, ErrInvalidConstruction) {
			t.Fatalf("%s: expected ErrInvalidConstruction, got %v", name, err)
		}
	}
}

func TestBuiltinMethods(t *testing.T) {
	call := func(t *testing.T, recv *Value, name string, args ...Value) Value {
		t.Helper()
		fn, ok := LookupMethod(recv.Kind(), name)
		if !ok {
			t.Fatalf("%s has no method %s", recv.Kind(), name)
		}
		out, err := fn(recv, args)
		if err != nil {
			t.Fatalf("%s.%s: %v", recv.Kind(), name, err)
		}
		return out
	}

	vec := NewVector2(Vector2{X: 3, Y: 4})
	if got := call(t, &vec, "length"); got.Real() != 5 {
		t.Fatalf("expected length 5, got %v", got)
	}

	arr := NewArray(nil)
	call(t, &arr, "append", NewInt(1))
	call(t, &arr, "push_back", NewString("x"))
	if got := call(t, &arr, "size"); got.Int() != 2 {
		t.Fatalf("expected size 2, got %v", got)
	}
	call(t, &arr, "erase", NewInt(1))
	if diff := cmp.Diff(NewArray([]Value{NewString("x")}), arr); diff != "" {
		t.Fatalf("array after erase (-want +got):\n%s", diff)
	}

	red := NewColor(Color{R: 1, A: 1})
	if got := call(t, &red, "to_html", NewBool(false)); got.String() != "ff0000" {
		t.Fatalf("unexpected html %q", got.String())
	}
	light := call(t, &red, "lightened", NewReal(0.5)).Color()
	if math.Abs(light.G-0.5) > 1e-9 || light.R != 1 {
		t.Fatalf("unexpected lightened color %v", light)
	}

	packed := NewVector2Array(nil)
	fn, _ := LookupMethod(KindVector2Array, "append")
	if _, err := fn(&packed, []Value{NewInt(1)}); !errors.Is(err, ErrInvalidArgument) {
		t.Fatalf("expected ErrInvalidArgument, got %v", err)
	}

	if _, ok := LookupMethod(KindVector2, "append"); ok {
		t.Fatalf("vectors have no append")
	}
	if names := Methods(KindDictionary); len(names) == 0 || names[0] != "clear" {
		t.Fatalf("unexpected dictionary methods %v", names)
	}
}

func TestHTMLColorRoundTrip(t *testing.T) {
	c, err := ParseHTMLColor("#00ff0080")
	if err != nil {
		t.Fatalf("parse: %v", err)
	}
	if c.G != 1 || math.Abs(c.A-128.0/255.0) > 1e-9 {
		t.Fatalf("unexpected color %v", c)
	}
	if got := c.HTML(true); got != "00ff0080" {
		t.Fatalf("unexpected html %q", got)
	}
}
