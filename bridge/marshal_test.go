package bridge

import (
	"context"
	"errors"
	"testing"

	"github.com/google/go-cmp/cmp"
	lua "github.com/yuin/gopher-lua"

	"github.com/mgomes/luabridge/host"
	"github.com/mgomes/luabridge/variant"
)

func TestMarshalRoundTrip(t *testing.T) {
	rt := newTestRuntime(t, Config{})
	ctx := context.Background()

	dict := variant.NewDictionary(nil)
	dict.Dictionary().Set(variant.NewString("k"), variant.NewInt(1))

	cases := []struct {
		name  string
		value variant.Value
	}{
		{"nil", variant.NewNil()},
		{"bool", variant.NewBool(true)},
		{"int", variant.NewInt(-12)},
		{"real", variant.NewReal(2.5)},
		{"string", variant.NewString("héllo")},
		{"vector2", variant.NewVector2(variant.Vector2{X: 1, Y: 2})},
		{"color", variant.NewColor(variant.Color{R: 1, G: 0.5, B: 0, A: 1})},
		{"array", variant.NewArray([]variant.Value{variant.NewInt(1), variant.NewString("two")})},
		{"dictionary", dict},
		{"int array", variant.NewIntArray([]int64{1, 2, 3})},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			got := rt.ToNative(ctx, rt.ToDynamic(ctx, tc.value))
			if diff := cmp.Diff(tc.value, got); diff != "" {
				t.Fatalf("round trip mismatch (-want +got):\n%s", diff)
			}
		})
	}
}

func TestMarshalNumbers(t *testing.T) {
	rt := newTestRuntime(t, Config{})
	ctx := context.Background()

	if got := rt.ToNative(ctx, lua.LNumber(3)); got.Kind() != variant.KindInt || got.Int() != 3 {
		t.Fatalf("expected INT 3, got %s", got.Kind())
	}
	// Lua has one number type, so an integral REAL comes back as INT.
	real := variant.NewReal(2)
	if got := rt.ToNative(ctx, rt.ToDynamic(ctx, real)); !got.Equal(real) || got.Kind() != variant.KindInt {
		t.Fatalf("expected integral REAL to come back as an equal INT, got %s %v", got.Kind(), got)
	}
	if got := rt.ToNative(ctx, lua.LNumber(1<<60)); got.Kind() != variant.KindReal {
		t.Fatalf("integers beyond 2^53 should come back as REAL, got %s", got.Kind())
	}
	if got := rt.ToNative(ctx, rt.L.NewFunction(func(*lua.LState) int { return 0 })); !got.IsNil() {
		t.Fatalf("functions have no native form, got %s", got.Kind())
	}
}

func TestMarshalBoxesDoNotAlias(t *testing.T) {
	rt := newTestRuntime(t, Config{})
	ctx := context.Background()

	arr := variant.NewArray([]variant.Value{variant.NewInt(1), variant.NewInt(2)})
	lv := rt.ToDynamic(ctx, arr)
	if _, err := arr.Set(variant.NewInt(0), variant.NewInt(99)); err != nil {
		t.Fatalf("set: %v", err)
	}
	out := rt.ToNative(ctx, lv)
	if first, _ := out.Get(variant.NewInt(0)); first.Int() != 1 {
		t.Fatalf("boxed value aliased its source: %v", first)
	}
	if _, err := out.Set(variant.NewInt(1), variant.NewInt(42)); err != nil {
		t.Fatalf("set: %v", err)
	}
	again := rt.ToNative(ctx, lv)
	if second, _ := again.Get(variant.NewInt(1)); second.Int() != 2 {
		t.Fatalf("native copy aliased the box: %v", second)
	}
}

func TestMarshalObjectIdentity(t *testing.T) {
	rt := newTestRuntime(t, Config{})
	ctx := context.Background()
	node := host.NewNode("n")

	if got := rt.ToNative(ctx, rt.ToDynamic(ctx, variant.NewObject(node))); got.Object() != node {
		t.Fatalf("expected the same node back, got %v", got)
	}
	if lv := rt.ToDynamic(ctx, variant.NewObject(nil)); lv != lua.LNil {
		t.Fatalf("null object should marshal to nil, got %v", lv)
	}

	attachTestObject(t, rt, node, nil)
	first := rt.ToDynamic(ctx, variant.NewObject(node))
	second := rt.ToDynamic(ctx, variant.NewObject(node))
	if first != second {
		t.Fatalf("a bound object must always marshal to its instance userdata")
	}

	node.Free(ctx)
	if got := rt.ToNative(ctx, first); !got.IsNil() {
		t.Fatalf("userdata of a freed object should read as nil, got %s", got.Kind())
	}
}

func TestReleaseBox(t *testing.T) {
	rt := newTestRuntime(t, Config{})
	ctx := context.Background()

	lv := rt.ToDynamic(ctx, variant.NewVector2(variant.Vector2{X: 1, Y: 1}))
	before := rt.Stats(ctx).Boxes
	if err := rt.ReleaseBox(ctx, lv); err != nil {
		t.Fatalf("release: %v", err)
	}
	if got := rt.Stats(ctx).Boxes; got != before-1 {
		t.Fatalf("expected %d boxes, got %d", before-1, got)
	}
	if err := rt.ReleaseBox(ctx, lv); !errors.Is(err, ErrStaleHandle) {
		t.Fatalf("expected ErrStaleHandle, got %v", err)
	}
	if got := rt.ToNative(ctx, lv); !got.IsNil() {
		t.Fatalf("released box should read as nil, got %s", got.Kind())
	}
	if err := rt.ReleaseBox(ctx, lua.LString("x")); !errors.Is(err, ErrInvalidReceiver) {
		t.Fatalf("expected ErrInvalidReceiver, got %v", err)
	}
}

func TestBoxedFieldsFromScript(t *testing.T) {
	rt := newTestRuntime(t, Config{})
	ctx := context.Background()

	got, err := rt.Eval(ctx, `local v = Vector2(1, 2)
v.x = 5
return v.x + v.y`)
	if err != nil {
		t.Fatalf("eval: %v", err)
	}
	if got.Real() != 7 {
		t.Fatalf("expected 7, got %v", got)
	}

	_, err = rt.Eval(ctx, `local v = Vector2(1, 2)
v.z = 3`)
	if !errors.Is(err, variant.ErrFieldNotSettable) {
		t.Fatalf("expected ErrFieldNotSettable, got %v", err)
	}
	requireErrorContains(t, err, "Unable to set field: 'z'")

	length, err := rt.Eval(ctx, `Vector2(3, 4):length()`)
	if err != nil {
		t.Fatalf("eval: %v", err)
	}
	if length.Real() != 5 {
		t.Fatalf("expected length 5, got %v", length)
	}

	str, err := rt.Eval(ctx, `tostring(Vector2(1, 2))`)
	if err != nil {
		t.Fatalf("eval: %v", err)
	}
	if str.String() != "Vector2: (1, 2)" {
		t.Fatalf("unexpected rendering %q", str.String())
	}
}

func TestBoxMethodsWriteBack(t *testing.T) {
	rt := newTestRuntime(t, Config{})
	ctx := context.Background()

	got, err := rt.Eval(ctx, `local a = Array()
a:append(1)
a:push_back("two")
return #a`)
	if err != nil {
		t.Fatalf("eval: %v", err)
	}
	if got.Int() != 2 {
		t.Fatalf("expected 2 elements, got %v", got)
	}

	_, err = rt.Eval(ctx, `local a = Array()
local v = Vector2(1, 1)
a.size(v)`)
	if !errors.Is(err, ErrInvalidReceiver) {
		t.Fatalf("expected ErrInvalidReceiver, got %v", err)
	}
}
