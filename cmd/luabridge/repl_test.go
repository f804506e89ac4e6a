package main

import (
	"bytes"
	"strings"
	"testing"

	tea "github.com/charmbracelet/bubbletea"

	"github.com/mgomes/luabridge/bridge"
)

func newTestSession(t *testing.T) *replSession {
	t.Helper()
	session, err := newREPLSession(bridge.Config{OpenLibs: true})
	if err != nil {
		t.Fatalf("new session: %v", err)
	}
	t.Cleanup(session.close)
	return session
}

func TestUpdateQuitCommandReturnsQuit(t *testing.T) {
	m := newREPLModel(newTestSession(t))
	m.textInput.SetValue(":quit")

	model, cmd := m.Update(tea.KeyMsg{Type: tea.KeyEnter})
	rm, ok := model.(replModel)
	if !ok {
		t.Fatalf("unexpected model type %T", model)
	}

	if !rm.quitting {
		t.Fatalf("quitting flag not set")
	}
	if rm.textInput.Value() != "" {
		t.Fatalf("input not cleared after quit command")
	}
	if cmd == nil {
		t.Fatalf("expected tea.Quit command")
	}
	if msg := cmd(); msg != nil {
		if _, ok := msg.(tea.QuitMsg); !ok {
			t.Fatalf("expected QuitMsg, got %T", msg)
		}
	}
}

func TestUpdateNonQuitCommandDoesNotReturnCmd(t *testing.T) {
	m := newREPLModel(newTestSession(t))
	m.textInput.SetValue(":help")

	model, cmd := m.Update(tea.KeyMsg{Type: tea.KeyEnter})
	rm, ok := model.(replModel)
	if !ok {
		t.Fatalf("unexpected model type %T", model)
	}

	if cmd != nil {
		t.Fatalf("expected no command for non-quit input")
	}
	if rm.quitting {
		t.Fatalf("quitting should remain false")
	}
	if !rm.showHelp {
		t.Fatalf("help toggle should be enabled")
	}
	if rm.textInput.Value() != "" {
		t.Fatalf("input not cleared after command")
	}
}

func TestUpdateEvaluatesAndRecordsHistory(t *testing.T) {
	m := newREPLModel(newTestSession(t))
	m.textInput.SetValue("1 + 2")

	model, _ := m.Update(tea.KeyMsg{Type: tea.KeyEnter})
	rm := model.(replModel)
	if len(rm.history) != 1 || rm.history[0].output != "3" || rm.history[0].isErr {
		t.Fatalf("unexpected history %+v", rm.history)
	}
	if len(rm.cmdHistory) != 1 || rm.cmdHistory[0] != "1 + 2" {
		t.Fatalf("unexpected command history %v", rm.cmdHistory)
	}

	model, _ = rm.Update(tea.KeyMsg{Type: tea.KeyUp})
	rm = model.(replModel)
	if rm.textInput.Value() != "1 + 2" {
		t.Fatalf("up should recall the last command, got %q", rm.textInput.Value())
	}
}

func TestStatsCommandReportsBoundInstance(t *testing.T) {
	m := newREPLModel(newTestSession(t))
	m, _ = m.handleCommand(":stats")
	if len(m.history) != 1 || !strings.Contains(m.history[0].output, "instances=1") {
		t.Fatalf("unexpected stats output %+v", m.history)
	}

	m, _ = m.handleCommand(":bogus")
	if last := m.history[len(m.history)-1]; !last.isErr || last.output != "Unknown command: :bogus" {
		t.Fatalf("unexpected unknown command entry %+v", last)
	}
}

func TestEvaluateKeepsGlobalsBetweenInputs(t *testing.T) {
	session := newTestSession(t)

	if output, isErr := session.evaluate("score = 42"); isErr || output != "nil" {
		t.Fatalf("unexpected assignment result %q err=%v", output, isErr)
	}
	output, isErr := session.evaluate("score")
	if isErr || output != "42" {
		t.Fatalf("expected 42, got %q err=%v", output, isErr)
	}
	output, isErr = session.evaluate("_ + 1")
	if isErr || output != "43" {
		t.Fatalf("expected the previous result in _, got %q err=%v", output, isErr)
	}
}

func TestEvaluateExposesSelf(t *testing.T) {
	session := newTestSession(t)

	output, isErr := session.evaluate("self.name")
	if isErr || output != `"repl"` {
		t.Fatalf("unexpected self name %q err=%v", output, isErr)
	}
	if _, isErr := session.evaluate("self:missing()"); !isErr {
		t.Fatalf("calling a missing method should report an error")
	}
}

func TestAutocompleteSingleMatch(t *testing.T) {
	m := newREPLModel(newTestSession(t))
	m.textInput.SetValue("local n = RefC")

	m = m.handleAutocomplete()
	if got := m.textInput.Value(); got != "local n = RefCounted" {
		t.Fatalf("unexpected completion %q", got)
	}

	m.textInput.SetValue("Vec")
	m = m.handleAutocomplete()
	if len(m.history) != 1 || !strings.HasPrefix(m.history[0].output, "Completions: Vector2") {
		t.Fatalf("expected a completion list, got %+v", m.history)
	}
}

func TestRunPlainREPL(t *testing.T) {
	session := newTestSession(t)
	in := strings.NewReader("x = 2\nx * 3\n:stats\nbogus(\n:quit\nx\n")
	var out bytes.Buffer

	if err := runPlainREPL(session, in, &out); err != nil {
		t.Fatalf("runPlainREPL failed: %v", err)
	}
	lines := strings.Split(strings.TrimSpace(out.String()), "\n")
	if len(lines) != 4 {
		t.Fatalf("expected 4 output lines, got %q", out.String())
	}
	if lines[0] != "nil" || lines[1] != "6" {
		t.Fatalf("unexpected results %q", lines[:2])
	}
	if !strings.HasPrefix(lines[2], "tables=") {
		t.Fatalf("unexpected stats line %q", lines[2])
	}
	if !strings.HasPrefix(lines[3], "error: compile") {
		t.Fatalf("unexpected error line %q", lines[3])
	}
}

func TestViewShowsTranscriptAndPanels(t *testing.T) {
	m := newREPLModel(newTestSession(t))
	model, _ := m.Update(tea.WindowSizeMsg{Width: 80, Height: 40})
	m = model.(replModel)
	m.textInput.SetValue("40 + 2")
	model, _ = m.Update(tea.KeyMsg{Type: tea.KeyEnter})
	m = model.(replModel)
	m, _ = m.handleCommand(":help")
	m.showStats = true

	view := m.View()
	for _, want := range []string{"40 + 2", "42", ":stats", "instances=1", "ctrl+k"} {
		if !strings.Contains(view, want) {
			t.Fatalf("view missing %q:\n%s", want, view)
		}
	}

	m.height = 6
	if strings.Contains(m.View(), "40 + 2") {
		t.Fatalf("transcript should be dropped when the panels fill the screen")
	}
}
