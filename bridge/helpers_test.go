package bridge

import (
	"context"
	"errors"
	"path/filepath"
	"strings"
	"testing"

	"golang.org/x/sync/errgroup"

	"github.com/mgomes/luabridge/host"
	"github.com/mgomes/luabridge/variant"
)

var testScriptPaths = []string{filepath.Join("testdata", "scripts")}

func newTestRuntime(t testing.TB, cfg Config) *Runtime {
	t.Helper()
	rt, err := NewRuntime(cfg)
	if err != nil {
		t.Fatalf("new runtime: %v", err)
	}
	t.Cleanup(func() {
		if err := rt.Close(context.Background()); err != nil && !errors.Is(err, ErrRuntimeClosed) {
			t.Errorf("close runtime: %v", err)
		}
	})
	return rt
}

func compileTestScript(t testing.TB, rt *Runtime, name, source string, parent *Script) *Script {
	t.Helper()
	script, err := rt.CompileScript(context.Background(), name, source, parent)
	if err != nil {
		t.Fatalf("compile %s: %v", name, err)
	}
	return script
}

func attachTestObject(t testing.TB, rt *Runtime, obj host.Object, script *Script) *Instance {
	t.Helper()
	inst, err := rt.Attach(context.Background(), obj, script)
	if err != nil {
		t.Fatalf("attach: %v", err)
	}
	return inst
}

func requireErrorContains(t testing.TB, err error, want string) {
	t.Helper()
	if err == nil {
		t.Fatalf("expected error containing %q, got nil", want)
	}
	if !strings.Contains(err.Error(), want) {
		t.Fatalf("expected error containing %q, got %v", want, err)
	}
}

// gadget is a reference-counted test class that records what the bridge does
// to it.
type gadget struct {
	host.RefCounted
	value variant.Value
	sets  int
	made  []*gadget
}

func (p *gadget) ClassName() string { return "Gadget" }

type gadgetEnv struct {
	rt *Runtime
	db *host.ClassDB
}

// newGadgetEnv builds a runtime whose class database carries the Gadget class.
// Gadget methods that call back into the runtime use env.rt.
func newGadgetEnv(t testing.TB) *gadgetEnv {
	t.Helper()
	env := &gadgetEnv{db: host.NewStandardClassDB()}
	env.db.MustRegister(host.ClassInfo{
		Name:   "Gadget",
		Parent: "RefCounted",
		New:    func() host.Object { return &gadget{} },
		Properties: []host.Property{
			{
				Name: "value",
				Get:  func(self host.Object) variant.Value { return self.(*gadget).value },
				Set: func(self host.Object, value variant.Value) error {
					p := self.(*gadget)
					p.sets++
					p.value = value
					return nil
				},
			},
		},
		Constants: map[string]int64{"ANSWER": 42},
		Methods: map[string]host.MethodFunc{
			"make": func(_ context.Context, self host.Object, _ []variant.Value) (variant.Value, error) {
				p := self.(*gadget)
				child := &gadget{}
				p.made = append(p.made, child)
				return variant.NewObject(child), nil
			},
			"refs": func(_ context.Context, _ host.Object, args []variant.Value) (variant.Value, error) {
				if len(args) != 1 {
					return variant.NewNil(), errors.New("refs expects 1 argument")
				}
				ref, ok := args[0].Object().(host.Referenced)
				if !ok {
					return variant.NewNil(), errors.New("refs expects a reference-counted object")
				}
				return variant.NewInt(int64(ref.RefCount())), nil
			},
			"depth": func(context.Context, host.Object, []variant.Value) (variant.Value, error) {
				return variant.NewInt(int64(env.rt.depth())), nil
			},
			"reenter": func(ctx context.Context, self host.Object, args []variant.Value) (variant.Value, error) {
				if len(args) != 1 || args[0].Kind() != variant.KindString {
					return variant.NewNil(), errors.New("reenter expects a method name")
				}
				return env.rt.Call(ctx, self, args[0].String())
			},
			"fan": func(ctx context.Context, _ host.Object, args []variant.Value) (variant.Value, error) {
				if len(args) != 1 || args[0].Kind() != variant.KindInt {
					return variant.NewNil(), errors.New("fan expects a goroutine count")
				}
				var g errgroup.Group
				for range args[0].Int() {
					g.Go(func() error {
						_, err := env.rt.Eval(ctx, "fanned = (fanned or 0) + 1")
						return err
					})
				}
				return variant.NewNil(), g.Wait()
			},
			"has": func(ctx context.Context, self host.Object, args []variant.Value) (variant.Value, error) {
				if len(args) != 1 || args[0].Kind() != variant.KindString {
					return variant.NewNil(), errors.New("has expects a method name")
				}
				inst := env.rt.InstanceOf(ctx, self)
				if inst == nil {
					return variant.NewBool(false), nil
				}
				return variant.NewBool(inst.HasMethod(ctx, args[0].String())), nil
			},
			"echo": func(_ context.Context, _ host.Object, args []variant.Value) (variant.Value, error) {
				if len(args) == 0 {
					return variant.NewNil(), nil
				}
				return args[0], nil
			},
			"fail": func(context.Context, host.Object, []variant.Value) (variant.Value, error) {
				return variant.NewNil(), errGadgetFailed
			},
		},
	})
	env.rt = newTestRuntime(t, Config{ClassDB: env.db})
	return env
}

var errGadgetFailed = errors.New("gadget failed")
