package main

import (
	"bytes"
	"io"
	"os"
	"path/filepath"
	"strings"
	"testing"
)

func TestRunCLIHelp(t *testing.T) {
	if err := runCLI([]string{"luabridge", "help"}); err != nil {
		t.Fatalf("runCLI help failed: %v", err)
	}
}

func TestRunCLIInvalidCommand(t *testing.T) {
	for _, args := range [][]string{{"luabridge"}, {"luabridge", "unknown"}} {
		err := runCLI(args)
		if err == nil {
			t.Fatalf("expected invalid command error for %v", args)
		}
		if !strings.Contains(err.Error(), "invalid command") {
			t.Fatalf("unexpected error: %v", err)
		}
	}
}

func TestRunCommandExecutesFunctionAndPrintsResult(t *testing.T) {
	scriptPath := writeScript(t, t.TempDir(), "main.lua", `return {
  greet = function(self, name)
    self.name = "node"
    return name .. " from " .. self.name
  end,
}`)

	out, err := captureStdout(t, func() error {
		return runCommand([]string{"-function", "greet", scriptPath, "hello"})
	})
	if err != nil {
		t.Fatalf("runCommand failed: %v", err)
	}
	if got := strings.TrimSpace(out); got != "hello from node" {
		t.Fatalf("unexpected stdout: %q", got)
	}
}

func TestRunCommandDefaultsToRun(t *testing.T) {
	scriptPath := writeScript(t, t.TempDir(), "main.lua", `return {
  run = function(self)
    self.name = "ran"
    return self.name
  end,
}`)

	out, err := captureStdout(t, func() error {
		return runCommand([]string{scriptPath})
	})
	if err != nil {
		t.Fatalf("runCommand failed: %v", err)
	}
	if got := strings.TrimSpace(out); got != "ran" {
		t.Fatalf("unexpected stdout: %q", got)
	}
}

func TestRunCommandReportsMissingFunction(t *testing.T) {
	scriptPath := writeScript(t, t.TempDir(), "main.lua", `return {}`)

	err := runCommand([]string{"-function", "nope", scriptPath})
	if err == nil {
		t.Fatalf("expected a missing method error")
	}
	if !strings.Contains(err.Error(), "execution failed") {
		t.Fatalf("unexpected error: %v", err)
	}
}

func TestRunCommandRejectsUnknownClass(t *testing.T) {
	scriptPath := writeScript(t, t.TempDir(), "main.lua", `return {}`)

	err := runCommand([]string{"-class", "Missing", scriptPath})
	if err == nil || !strings.Contains(err.Error(), "instantiate Missing") {
		t.Fatalf("unexpected error: %v", err)
	}
}

func TestRunCommandRequiresScriptPath(t *testing.T) {
	err := runCommand(nil)
	if err == nil {
		t.Fatalf("expected script path error")
	}
	if !strings.Contains(err.Error(), "script path required") {
		t.Fatalf("unexpected error: %v", err)
	}
}

func TestCheckCommandResolvesParentsFromScriptPath(t *testing.T) {
	libDir := t.TempDir()
	writeScript(t, libDir, "base.lua", `return { label = "base" }`)
	scriptPath := writeScript(t, t.TempDir(), "main.lua", `return { extends = "base" }`)

	out, err := captureStdout(t, func() error {
		return checkCommand([]string{"-script-path", libDir, scriptPath})
	})
	if err != nil {
		t.Fatalf("checkCommand failed: %v", err)
	}
	if got := strings.TrimSpace(out); got != "main ok (main -> base)" {
		t.Fatalf("unexpected stdout: %q", got)
	}

	err = checkCommand([]string{scriptPath})
	if err == nil || !strings.Contains(err.Error(), "load failed") {
		t.Fatalf("expected a load failure without the library path, got %v", err)
	}
}

func TestCheckCommandUsesConfigFile(t *testing.T) {
	root := t.TempDir()
	writeScript(t, filepath.Join(root, "lib"), "base.lua", `return {}`)
	configPath := filepath.Join(root, "luabridge.toml")
	config := "script_paths = [\"lib\"]\nlog_level = \"error\"\nopen_libs = false\n"
	if err := os.WriteFile(configPath, []byte(config), 0o644); err != nil {
		t.Fatalf("write config: %v", err)
	}
	scriptPath := writeScript(t, t.TempDir(), "main.lua", `return { extends = "base" }`)

	if _, err := captureStdout(t, func() error {
		return checkCommand([]string{"-config", configPath, scriptPath})
	}); err != nil {
		t.Fatalf("checkCommand failed: %v", err)
	}
}

func TestLoadFileConfig(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "luabridge.toml")
	if err := os.WriteFile(path, []byte("script_paths = [\"lib\", \"/abs\"]\nopen_libs = false\n"), 0o644); err != nil {
		t.Fatalf("write config: %v", err)
	}

	cfg, err := loadFileConfig(path)
	if err != nil {
		t.Fatalf("loadFileConfig failed: %v", err)
	}
	if cfg.ScriptPaths[0] != filepath.Join(dir, "lib") || cfg.ScriptPaths[1] != "/abs" {
		t.Fatalf("unexpected script paths %v", cfg.ScriptPaths)
	}
	if cfg.openLibs() {
		t.Fatalf("open_libs = false should be honored")
	}
	if cfg.LogLevel != defaultLogLevel {
		t.Fatalf("expected default log level, got %q", cfg.LogLevel)
	}
	if !defaultFileConfig().openLibs() {
		t.Fatalf("libraries should be open by default")
	}

	if err := os.WriteFile(path, []byte("scripts = []\n"), 0o644); err != nil {
		t.Fatalf("write config: %v", err)
	}
	_, err = loadFileConfig(path)
	if err == nil || !strings.Contains(err.Error(), "unknown keys scripts") {
		t.Fatalf("expected unknown key error, got %v", err)
	}
}

func TestNewLoggerRejectsBadLevel(t *testing.T) {
	if _, err := newLogger("loud"); err == nil {
		t.Fatalf("expected a log level error")
	}
	if _, err := newLogger("debug"); err != nil {
		t.Fatalf("newLogger failed: %v", err)
	}
}

func TestComputeScriptPathsKeepsLeadingAndDedupesExtras(t *testing.T) {
	scriptDir := t.TempDir()
	extraDir := t.TempDir()

	dirs, err := computeScriptPaths([]string{scriptDir}, []string{scriptDir, extraDir, extraDir})
	if err != nil {
		t.Fatalf("computeScriptPaths failed: %v", err)
	}
	if len(dirs) != 2 {
		t.Fatalf("expected 2 dirs, got %d (%v)", len(dirs), dirs)
	}

	wantScript, _ := filepath.Abs(scriptDir)
	wantExtra, _ := filepath.Abs(extraDir)
	if dirs[0] != wantScript {
		t.Fatalf("expected first dir %q, got %q", wantScript, dirs[0])
	}
	if dirs[1] != wantExtra {
		t.Fatalf("expected second dir %q, got %q", wantExtra, dirs[1])
	}
}

func TestComputeScriptPathsRejectsNonDirectoryExtra(t *testing.T) {
	file := filepath.Join(t.TempDir(), "not-a-dir")
	if err := os.WriteFile(file, []byte("x"), 0o644); err != nil {
		t.Fatalf("write temp file: %v", err)
	}

	_, err := computeScriptPaths(nil, []string{file})
	if err == nil {
		t.Fatalf("expected non-directory script path error")
	}
	if !strings.Contains(err.Error(), "is not a directory") {
		t.Fatalf("unexpected error: %v", err)
	}
}

func writeScript(t *testing.T, dir, name, source string) string {
	t.Helper()
	if err := os.MkdirAll(dir, 0o755); err != nil {
		t.Fatalf("mkdir: %v", err)
	}
	path := filepath.Join(dir, name)
	if err := os.WriteFile(path, []byte(source), 0o644); err != nil {
		t.Fatalf("write script: %v", err)
	}
	return path
}

func captureStdout(t *testing.T, fn func() error) (string, error) {
	t.Helper()

	orig := os.Stdout
	r, w, err := os.Pipe()
	if err != nil {
		t.Fatalf("pipe: %v", err)
	}
	os.Stdout = w

	runErr := fn()
	_ = w.Close()
	os.Stdout = orig

	var buf bytes.Buffer
	if _, copyErr := io.Copy(&buf, r); copyErr != nil {
		t.Fatalf("read stdout: %v", copyErr)
	}
	_ = r.Close()
	return buf.String(), runErr
}
