package bridge

import (
	"context"
	"fmt"
	"strings"

	lua "github.com/yuin/gopher-lua"

	"github.com/mgomes/luabridge/host"
)

// extendsField names a script's parent inside its member table.
const extendsField = "extends"

// Script is a compiled member table with an optional parent. Scripts are
// reference counted: every instance and every derived script holds one
// reference, as does whoever compiled or loaded it.
type Script struct {
	rt     *Runtime
	name   string
	path   string
	parent *Script
	// chain is [self, parent, ..., root], fixed at compile time.
	chain     []*Script
	handle    Handle
	refs      int
	instances map[host.Object]*Instance
}

func (rt *Runtime) newScript(name, path string, tbl *lua.LTable, parent *Script) *Script {
	s := &Script{
		rt:        rt,
		name:      name,
		path:      path,
		parent:    parent,
		handle:    rt.tables.Register(tbl),
		refs:      1,
		instances: make(map[host.Object]*Instance),
	}
	s.chain = []*Script{s}
	if parent != nil {
		parent.retain()
		s.chain = append(s.chain, parent.chain...)
	}
	return s
}

func (s *Script) Name() string { return s.name }

// Path is the file the script was loaded from, empty for in-memory scripts.
func (s *Script) Path() string { return s.path }

func (s *Script) Parent() *Script { return s.parent }

// Chain returns the script names from this script to its root.
func (s *Script) Chain() []string {
	names := make([]string, len(s.chain))
	for i, c := range s.chain {
		names[i] = c.name
	}
	return names
}

func (s *Script) members() *lua.LTable {
	tbl, err := s.rt.tables.Resolve(s.handle)
	if err != nil {
		return nil
	}
	return tbl
}

func (s *Script) retain() { s.refs++ }

// release drops one reference. The last one frees the member table and
// releases the parent.
func (s *Script) release() {
	if s.refs <= 0 {
		return
	}
	s.refs--
	if s.refs > 0 {
		return
	}
	if err := s.rt.tables.Release(s.handle); err != nil {
		s.rt.log.Warn("script table already released")
	}
	if s.parent != nil {
		s.parent.release()
	}
}

// Release drops the caller's reference.
func (s *Script) Release(ctx context.Context) {
	_, tok := s.rt.guard.enter(ctx)
	defer tok.leave()
	s.release()
}

// InstanceFor returns the live instance of this script bound to obj.
func (s *Script) InstanceFor(ctx context.Context, obj host.Object) (*Instance, bool) {
	_, tok := s.rt.guard.enter(ctx)
	defer tok.leave()
	inst, ok := s.instances[obj]
	return inst, ok
}

func (s *Script) InstanceCount(ctx context.Context) int {
	_, tok := s.rt.guard.enter(ctx)
	defer tok.leave()
	return len(s.instances)
}

// HasMethod reports whether any script in the chain defines name.
func (s *Script) HasMethod(ctx context.Context, name string) bool {
	_, tok := s.rt.guard.enter(ctx)
	defer tok.leave()
	for _, c := range s.chain {
		if tbl := c.members(); tbl != nil {
			if _, ok := tbl.RawGetString(name).(*lua.LFunction); ok {
				return true
			}
		}
	}
	return false
}

// compileChunk runs source and returns the member table it produced along
// with the declared parent name, if any.
func (rt *Runtime) compileChunk(name, source string) (*lua.LTable, string, error) {
	fn, err := rt.L.Load(strings.NewReader(source), name)
	if err != nil {
		return nil, "", fmt.Errorf("%w: %s: %w", ErrInvalidScript, name, err)
	}
	ret, err := rt.invoke(fn)
	if err != nil {
		return nil, "", fmt.Errorf("%w: %s: %w", ErrInvalidScript, name, err)
	}
	tbl, ok := ret.(*lua.LTable)
	if !ok {
		return nil, "", fmt.Errorf("%w: %s must return a table, got %s", ErrInvalidScript, name, ret.Type())
	}

	var parent string
	switch ext := tbl.RawGetString(extendsField).(type) {
	case lua.LString:
		parent = string(ext)
		tbl.RawSetString(extendsField, lua.LNil)
	case *lua.LNilType:
	default:
		return nil, "", fmt.Errorf("%w: %s: extends must be a script name, got %s", ErrInvalidScript, name, ext.Type())
	}
	return tbl, parent, nil
}

// CompileScript compiles source held in memory. When parent is nil and the
// script declares extends, the parent is loaded through the loader. The
// caller owns one reference to the returned script.
func (rt *Runtime) CompileScript(ctx context.Context, name, source string, parent *Script) (*Script, error) {
	ctx, tok, err := rt.begin(ctx)
	if err != nil {
		return nil, err
	}
	defer tok.leave()

	tbl, extends, err := rt.compileChunk(name, source)
	if err != nil {
		return nil, err
	}
	if parent == nil && extends != "" {
		loaded, err := rt.loader.load(ctx, extends)
		if err != nil {
			return nil, fmt.Errorf("%s: %w", name, err)
		}
		parent = loaded
	}
	if parent != nil && parent.rt != rt {
		return nil, fmt.Errorf("%w: parent %s belongs to another runtime", ErrInvalidScript, parent.name)
	}
	return rt.newScript(name, "", tbl, parent), nil
}
