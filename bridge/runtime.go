package bridge

import (
	"context"
	"fmt"
	"os"
	"strings"

	lua "github.com/yuin/gopher-lua"
	"go.uber.org/zap"

	"github.com/mgomes/luabridge/host"
	"github.com/mgomes/luabridge/variant"
)

// Config controls how a Runtime is built. Zero values select defaults.
type Config struct {
	Logger           *zap.Logger
	ClassDB          *host.ClassDB
	ScriptPaths      []string
	MaxCachedScripts int
	// OpenLibs opens the table, string and math libraries next to the base
	// library, which is always available.
	OpenLibs      bool
	CallStackSize int
}

// Runtime binds one Lua state to the host object model. All methods are
// safe for concurrent use; calls are serialized by the runtime's guard.
type Runtime struct {
	cfg     Config
	log     *zap.Logger
	classes *host.ClassDB
	L       *lua.LState
	guard   *guard

	tables   *Arena[*lua.LTable]
	boxes    *Arena[variant.Value]
	releases releaseQueue

	loader    *Loader
	wrappers  map[*host.MethodBind]*lua.LFunction
	instances map[*Instance]struct{}

	objectMeta  *lua.LTable
	variantMeta *lua.LTable
	closed      bool
}

// Stats is a snapshot of the runtime's live resources.
type Stats struct {
	Tables    int
	Boxes     int
	Instances int
	Scripts   int
}

// NewRuntime builds a runtime with sane defaults and exposes every class of
// the configured class database to scripts.
func NewRuntime(cfg Config) (*Runtime, error) {
	if cfg.Logger == nil {
		cfg.Logger = zap.NewNop()
	}
	if cfg.ClassDB == nil {
		cfg.ClassDB = host.NewStandardClassDB()
	}
	if cfg.MaxCachedScripts == 0 {
		cfg.MaxCachedScripts = 1000
	}
	if cfg.CallStackSize <= 0 {
		cfg.CallStackSize = 120
	}
	if err := validateScriptPaths(cfg.ScriptPaths); err != nil {
		return nil, err
	}

	L := lua.NewState(lua.Options{SkipOpenLibs: true, CallStackSize: cfg.CallStackSize})
	if err := openLibs(L, cfg.OpenLibs); err != nil {
		L.Close()
		return nil, err
	}

	rt := &Runtime{
		cfg:       cfg,
		log:       cfg.Logger,
		classes:   cfg.ClassDB,
		L:         L,
		tables:    NewArena[*lua.LTable](),
		boxes:     NewArena[variant.Value](),
		wrappers:  make(map[*host.MethodBind]*lua.LFunction),
		instances: make(map[*Instance]struct{}),
	}
	rt.guard = newGuard(rt.drainReleases)
	rt.loader = newLoader(rt, cfg.ScriptPaths, cfg.MaxCachedScripts)

	registerErrorType(L)
	rt.registerObjectType()
	rt.registerVariantType()
	rt.registerConstructors()
	rt.exposeClasses()
	return rt, nil
}

// MustNewRuntime constructs a Runtime or panics if the config is invalid.
func MustNewRuntime(cfg Config) *Runtime {
	rt, err := NewRuntime(cfg)
	if err != nil {
		panic(err)
	}
	return rt
}

func validateScriptPaths(paths []string) error {
	for _, path := range paths {
		if strings.TrimSpace(path) == "" {
			return fmt.Errorf("bridge: script path cannot be empty")
		}
		stat, err := os.Stat(path)
		if err != nil {
			return fmt.Errorf("bridge: invalid script path %q: %w", path, err)
		}
		if !stat.IsDir() {
			return fmt.Errorf("bridge: script path %q is not a directory", path)
		}
	}
	return nil
}

type luaLib struct {
	name string
	fn   lua.LGFunction
}

func openLibs(L *lua.LState, all bool) error {
	libs := []luaLib{{lua.BaseLibName, lua.OpenBase}}
	if all {
		libs = append(libs,
			luaLib{lua.TabLibName, lua.OpenTable},
			luaLib{lua.StringLibName, lua.OpenString},
			luaLib{lua.MathLibName, lua.OpenMath},
		)
	}
	for _, lib := range libs {
		if err := L.CallByParam(lua.P{
			Fn:      L.NewFunction(lib.fn),
			NRet:    0,
			Protect: true,
		}, lua.LString(lib.name)); err != nil {
			return fmt.Errorf("bridge: open %s library: %w", lib.name, err)
		}
	}
	return nil
}

// begin enters the guard and fails once the runtime is closed.
func (rt *Runtime) begin(ctx context.Context) (context.Context, *callToken, error) {
	ctx, tok := rt.guard.enter(ctx)
	if rt.closed {
		tok.leave()
		return ctx, nil, ErrRuntimeClosed
	}
	return ctx, tok, nil
}

func (rt *Runtime) Logger() *zap.Logger { return rt.log }

func (rt *Runtime) ClassDB() *host.ClassDB { return rt.classes }

func (rt *Runtime) Loader() *Loader { return rt.loader }

// ExposeClasses publishes classes registered after the runtime was built.
func (rt *Runtime) ExposeClasses(ctx context.Context) error {
	_, tok, err := rt.begin(ctx)
	if err != nil {
		return err
	}
	defer tok.leave()
	rt.exposeClasses()
	return nil
}

// SetGlobal marshals value and stores it as a script global.
func (rt *Runtime) SetGlobal(ctx context.Context, name string, value variant.Value) error {
	_, tok, err := rt.begin(ctx)
	if err != nil {
		return err
	}
	defer tok.leave()
	rt.L.SetGlobal(name, rt.toDynamic(value))
	return nil
}

func (rt *Runtime) Global(ctx context.Context, name string) (variant.Value, error) {
	_, tok, err := rt.begin(ctx)
	if err != nil {
		return variant.NewNil(), err
	}
	defer tok.leave()
	return rt.toNative(rt.L.GetGlobal(name)), nil
}

// Eval runs a chunk of Lua and returns its first result. Expressions are
// accepted as well as statements.
func (rt *Runtime) Eval(ctx context.Context, source string) (variant.Value, error) {
	_, tok, err := rt.begin(ctx)
	if err != nil {
		return variant.NewNil(), err
	}
	defer tok.leave()

	fn, err := rt.L.LoadString("return " + source)
	if err != nil {
		fn, err = rt.L.LoadString(source)
		if err != nil {
			return variant.NewNil(), fmt.Errorf("compile: %w", err)
		}
	}
	ret, err := rt.invoke(fn)
	if err != nil {
		return variant.NewNil(), err
	}
	return rt.toNative(ret), nil
}

// invoke calls fn in protected mode and returns its first result.
func (rt *Runtime) invoke(fn *lua.LFunction, args ...lua.LValue) (lua.LValue, error) {
	L := rt.L
	top := L.GetTop()
	if err := L.CallByParam(lua.P{Fn: fn, NRet: 1, Protect: true}, args...); err != nil {
		L.SetTop(top)
		return lua.LNil, scriptError(err)
	}
	ret := L.Get(-1)
	L.SetTop(top)
	return ret, nil
}

func (rt *Runtime) Stats(ctx context.Context) Stats {
	_, tok := rt.guard.enter(ctx)
	defer tok.leave()
	return Stats{
		Tables:    rt.tables.Len(),
		Boxes:     rt.boxes.Len(),
		Instances: len(rt.instances),
		Scripts:   rt.loader.cached(),
	}
}

// depth reports the guard's nesting depth. Zero outside any call.
func (rt *Runtime) depth() int { return rt.guard.depth() }

// Close tears down every instance, drops cached scripts and closes the Lua
// state. Later calls fail with ErrRuntimeClosed.
func (rt *Runtime) Close(ctx context.Context) error {
	ctx, tok, err := rt.begin(ctx)
	if err != nil {
		return err
	}
	defer tok.leave()

	for inst := range rt.instances {
		inst.teardown(ctx)
	}
	rt.loader.reset()
	rt.closed = true
	rt.L.Close()
	return nil
}
