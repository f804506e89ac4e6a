package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"go.uber.org/zap"

	"github.com/mgomes/luabridge/bridge"
	"github.com/mgomes/luabridge/variant"
)

func main() {
	if err := runCLI(os.Args); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

func runCLI(args []string) error {
	if len(args) < 2 {
		return usageError()
	}
	switch args[1] {
	case "run":
		return runCommand(args[2:])
	case "check":
		return checkCommand(args[2:])
	case "repl":
		return replCommand(args[2:])
	case "help", "-h", "--help":
		printUsage()
		return nil
	default:
		return usageError()
	}
}

// commonFlags are shared by every subcommand that builds a runtime.
type commonFlags struct {
	configPath  string
	scriptPaths pathList
}

func (c *commonFlags) register(fs *flag.FlagSet) {
	fs.StringVar(&c.configPath, "config", "", "path to a luabridge.toml config file")
	fs.Var(&c.scriptPaths, "script-path", "add a script search directory (repeatable)")
}

func runCommand(args []string) error {
	fs := flag.NewFlagSet("run", flag.ContinueOnError)
	fs.SetOutput(new(flagErrorSink))
	var common commonFlags
	common.register(fs)
	function := fs.String("function", "run", "method to invoke on the scripted object")
	class := fs.String("class", "Node", "host class to instantiate and attach the script to")
	if err := fs.Parse(args); err != nil {
		return err
	}
	remaining := fs.Args()
	if len(remaining) == 0 {
		return errors.New("luabridge run: script path required")
	}

	ctx := context.Background()
	rt, script, err := loadEntryScript(ctx, common, remaining[0])
	if err != nil {
		return err
	}
	defer func() { _ = rt.Close(ctx) }()

	obj, err := rt.ClassDB().Instantiate(*class)
	if err != nil {
		return fmt.Errorf("instantiate %s: %w", *class, err)
	}
	if _, err := rt.Attach(ctx, obj, script); err != nil {
		return fmt.Errorf("attach failed: %w", err)
	}

	argValues := make([]variant.Value, len(remaining)-1)
	for i, raw := range remaining[1:] {
		argValues[i] = variant.NewString(raw)
	}
	result, err := rt.Call(ctx, obj, *function, argValues...)
	if err != nil {
		return fmt.Errorf("execution failed: %w", err)
	}
	if !result.IsNil() {
		fmt.Println(result.String())
	}
	return nil
}

func checkCommand(args []string) error {
	fs := flag.NewFlagSet("check", flag.ContinueOnError)
	fs.SetOutput(new(flagErrorSink))
	var common commonFlags
	common.register(fs)
	if err := fs.Parse(args); err != nil {
		return err
	}
	remaining := fs.Args()
	if len(remaining) == 0 {
		return errors.New("luabridge check: script path required")
	}

	ctx := context.Background()
	rt, script, err := loadEntryScript(ctx, common, remaining[0])
	if err != nil {
		return err
	}
	defer func() { _ = rt.Close(ctx) }()
	fmt.Printf("%s ok (%s)\n", script.Name(), strings.Join(script.Chain(), " -> "))
	return nil
}

func replCommand(args []string) error {
	fs := flag.NewFlagSet("repl", flag.ContinueOnError)
	fs.SetOutput(new(flagErrorSink))
	var common commonFlags
	common.register(fs)
	if err := fs.Parse(args); err != nil {
		return err
	}
	cfg, err := runtimeConfig(common, nil)
	if err != nil {
		return err
	}
	return runREPL(cfg)
}

// loadEntryScript builds a runtime searching the script's own directory
// first and loads the script through it.
func loadEntryScript(ctx context.Context, common commonFlags, scriptPath string) (*bridge.Runtime, *bridge.Script, error) {
	absScriptPath, err := filepath.Abs(scriptPath)
	if err != nil {
		return nil, nil, fmt.Errorf("resolve script path: %w", err)
	}
	if _, err := os.Stat(absScriptPath); err != nil {
		return nil, nil, fmt.Errorf("read script: %w", err)
	}
	cfg, err := runtimeConfig(common, []string{filepath.Dir(absScriptPath)})
	if err != nil {
		return nil, nil, err
	}
	rt, err := bridge.NewRuntime(cfg)
	if err != nil {
		return nil, nil, err
	}
	script, err := rt.Loader().Load(ctx, filepath.Base(absScriptPath))
	if err != nil {
		_ = rt.Close(ctx)
		return nil, nil, fmt.Errorf("load failed: %w", err)
	}
	return rt, script, nil
}

// runtimeConfig merges the config file with command line search paths.
// leading paths are searched before anything else.
func runtimeConfig(common commonFlags, leading []string) (bridge.Config, error) {
	file := defaultFileConfig()
	if common.configPath != "" {
		loaded, err := loadFileConfig(common.configPath)
		if err != nil {
			return bridge.Config{}, err
		}
		file = loaded
	}
	logger, err := newLogger(file.LogLevel)
	if err != nil {
		return bridge.Config{}, err
	}
	extras := append(append([]string(nil), file.ScriptPaths...), common.scriptPaths...)
	paths, err := computeScriptPaths(leading, extras)
	if err != nil {
		return bridge.Config{}, err
	}
	logger.Debug("runtime configured", zap.Strings("script_paths", paths), zap.Bool("open_libs", file.openLibs()))
	return bridge.Config{
		Logger:      logger,
		ScriptPaths: paths,
		OpenLibs:    file.openLibs(),
	}, nil
}

func usageError() error {
	printUsage()
	return errors.New("invalid command")
}

func printUsage() {
	prog := filepath.Base(os.Args[0])
	fmt.Fprintf(os.Stderr, "Usage: %s <run|check|repl> [flags] [script] [args...]\n", prog)
	fmt.Fprintln(os.Stderr, "Flags:")
	fmt.Fprintln(os.Stderr, "  -config <file>")
	fmt.Fprintln(os.Stderr, "    load settings from a luabridge.toml file")
	fmt.Fprintln(os.Stderr, "  -script-path <dir>")
	fmt.Fprintln(os.Stderr, "    add a directory to script search paths (repeatable)")
	fmt.Fprintln(os.Stderr, "  -function string")
	fmt.Fprintln(os.Stderr, "    run: method to invoke on the scripted object (default \"run\")")
	fmt.Fprintln(os.Stderr, "  -class string")
	fmt.Fprintln(os.Stderr, "    run: host class the script is attached to (default \"Node\")")
}

type flagErrorSink struct{}

func (flagErrorSink) Write(p []byte) (int, error) {
	return len(p), nil
}

type pathList []string

func (l *pathList) String() string {
	return strings.Join(*l, string(os.PathListSeparator))
}

func (l *pathList) Set(value string) error {
	*l = append(*l, value)
	return nil
}

func computeScriptPaths(leading, extras []string) ([]string, error) {
	seen := make(map[string]struct{})
	var dirs []string
	addPath := func(label, p string) error {
		abs, err := filepath.Abs(p)
		if err != nil {
			return fmt.Errorf("resolve %s %q: %w", label, p, err)
		}
		info, err := os.Stat(abs)
		if err != nil {
			return fmt.Errorf("access %s %q: %w", label, abs, err)
		}
		if !info.IsDir() {
			return fmt.Errorf("%s %q is not a directory", label, abs)
		}
		if _, ok := seen[abs]; ok {
			return nil
		}
		seen[abs] = struct{}{}
		dirs = append(dirs, abs)
		return nil
	}
	for _, dir := range leading {
		if err := addPath("script directory", dir); err != nil {
			return nil, err
		}
	}
	for _, extra := range extras {
		if err := addPath("script path", extra); err != nil {
			return nil, err
		}
	}
	return dirs, nil
}
