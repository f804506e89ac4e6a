package bridge

import (
	"context"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"slices"
	"strings"

	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"
)

const scriptExt = ".lua"

// Loader resolves script names against the configured search paths and
// caches compiled scripts by normalized name. Cached scripts live until the
// runtime closes.
type Loader struct {
	rt    *Runtime
	paths []string
	limit int
	cache map[string]*Script
	// stack holds the scripts being compiled, outermost first.
	stack []string
}

type scriptSource struct {
	key    string
	path   string
	source string
}

func newLoader(rt *Runtime, paths []string, limit int) *Loader {
	cleaned := make([]string, len(paths))
	for i, p := range paths {
		cleaned[i] = filepath.Clean(p)
	}
	return &Loader{
		rt:    rt,
		paths: cleaned,
		limit: limit,
		cache: make(map[string]*Script),
	}
}

func (l *Loader) Paths() []string { return slices.Clone(l.paths) }

// Load returns the script called name, compiling it and its ancestors on
// first use.
func (l *Loader) Load(ctx context.Context, name string) (*Script, error) {
	ctx, tok, err := l.rt.begin(ctx)
	if err != nil {
		return nil, err
	}
	defer tok.leave()
	return l.load(ctx, name)
}

func (l *Loader) load(ctx context.Context, name string) (*Script, error) {
	key, err := normalizeScriptName(name)
	if err != nil {
		return nil, err
	}
	if s, ok := l.cache[key]; ok {
		return s, nil
	}
	if cycle, ok := cycleFromLoadStack(l.stack, key); ok {
		return nil, fmt.Errorf("%w: %s", ErrInheritanceCycle, formatCycle(cycle))
	}
	src, err := l.read(key)
	if err != nil {
		return nil, err
	}
	return l.compile(ctx, src)
}

// compile builds src and its ancestors. The caller holds the guard.
func (l *Loader) compile(ctx context.Context, src scriptSource) (*Script, error) {
	l.stack = append(l.stack, src.key)
	defer func() { l.stack = l.stack[:len(l.stack)-1] }()

	display := scriptDisplayName(src.key)
	tbl, extends, err := l.rt.compileChunk(display, src.source)
	if err != nil {
		return nil, err
	}
	var parent *Script
	if extends != "" {
		parent, err = l.load(ctx, extends)
		if err != nil {
			return nil, fmt.Errorf("%s: %w", display, err)
		}
	}

	if s, ok := l.cache[src.key]; ok {
		return s, nil
	}
	if len(l.cache) >= l.limit {
		return nil, fmt.Errorf("%w (%d scripts)", ErrScriptCacheFull, l.limit)
	}
	s := l.rt.newScript(display, src.path, tbl, parent)
	l.cache[src.key] = s
	l.rt.log.Debug("script loaded",
		zap.String("script", display),
		zap.String("path", src.path),
		zap.Strings("chain", s.Chain()))
	return s, nil
}

// read finds key in the first search path that has it.
func (l *Loader) read(key string) (scriptSource, error) {
	if len(l.paths) == 0 {
		return scriptSource{}, fmt.Errorf("%w: %q (no script paths configured)", ErrScriptNotFound, scriptDisplayName(key))
	}
	for _, root := range l.paths {
		candidate := filepath.Join(root, key)
		data, err := os.ReadFile(candidate)
		if err != nil {
			if errors.Is(err, fs.ErrNotExist) {
				continue
			}
			return scriptSource{}, fmt.Errorf("bridge: reading %s: %w", candidate, err)
		}
		if err := withinRoot(root, candidate); err != nil {
			return scriptSource{}, err
		}
		return scriptSource{key: key, path: candidate, source: string(data)}, nil
	}
	return scriptSource{}, fmt.Errorf("%w: %q", ErrScriptNotFound, scriptDisplayName(key))
}

// Preload reads the named scripts concurrently and compiles them in order.
func (l *Loader) Preload(ctx context.Context, names ...string) error {
	keys := make([]string, len(names))
	for i, name := range names {
		key, err := normalizeScriptName(name)
		if err != nil {
			return err
		}
		keys[i] = key
	}

	sources := make([]scriptSource, len(keys))
	g, gctx := errgroup.WithContext(ctx)
	for i, key := range keys {
		g.Go(func() error {
			if err := gctx.Err(); err != nil {
				return err
			}
			src, err := l.read(key)
			if err != nil {
				return err
			}
			sources[i] = src
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return err
	}

	ctx, tok, err := l.rt.begin(ctx)
	if err != nil {
		return err
	}
	defer tok.leave()
	for _, src := range sources {
		if _, ok := l.cache[src.key]; ok {
			continue
		}
		if _, err := l.compile(ctx, src); err != nil {
			return err
		}
	}
	return nil
}

func (l *Loader) cached() int { return len(l.cache) }

// reset drops the loader's reference to every cached script.
func (l *Loader) reset() {
	for key, s := range l.cache {
		s.release()
		delete(l.cache, key)
	}
	l.stack = nil
}

func normalizeScriptName(name string) (string, error) {
	trimmed := strings.TrimSpace(name)
	if trimmed == "" {
		return "", fmt.Errorf("bridge: script name must be non-empty")
	}
	normalized := strings.ReplaceAll(trimmed, "\\", "/")
	if filepath.Ext(normalized) == "" {
		normalized += scriptExt
	}
	normalized = filepath.Clean(filepath.FromSlash(normalized))
	if normalized == "." {
		return "", fmt.Errorf("bridge: script name %q resolves to current directory", name)
	}
	if filepath.IsAbs(normalized) || strings.HasPrefix(trimmed, "/") {
		return "", fmt.Errorf("bridge: script name %q must be relative", name)
	}
	if slices.Contains(strings.Split(filepath.ToSlash(normalized), "/"), "..") {
		return "", fmt.Errorf("bridge: script name %q escapes search paths", name)
	}
	return normalized, nil
}

func scriptDisplayName(key string) string {
	return strings.TrimSuffix(filepath.ToSlash(key), scriptExt)
}

func cycleFromLoadStack(stack []string, next string) ([]string, bool) {
	for idx, key := range stack {
		if key == next {
			return append(slices.Clone(stack[idx:]), next), true
		}
	}
	return nil, false
}

func formatCycle(cycle []string) string {
	parts := make([]string, len(cycle))
	for i, key := range cycle {
		parts[i] = scriptDisplayName(key)
	}
	return strings.Join(parts, " -> ")
}

// withinRoot rejects files that resolve outside root through symlinks.
func withinRoot(root, path string) error {
	resolvedRoot, err := filepath.EvalSymlinks(root)
	if err != nil {
		return err
	}
	resolvedPath, err := filepath.EvalSymlinks(path)
	if err != nil {
		return err
	}
	rel, err := filepath.Rel(resolvedRoot, resolvedPath)
	if err != nil {
		return err
	}
	if rel == ".." || strings.HasPrefix(rel, ".."+string(filepath.Separator)) || filepath.IsAbs(rel) {
		return fmt.Errorf("bridge: script path %q escapes search path %q", path, root)
	}
	return nil
}
