package main

import (
	"bufio"
	"context"
	"fmt"
	"io"
	"os"
	"sort"
	"strings"

	"github.com/charmbracelet/bubbles/key"
	"github.com/charmbracelet/bubbles/textinput"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"
	"github.com/dustin/go-humanize"
	"github.com/mattn/go-isatty"

	"github.com/mgomes/luabridge/bridge"
	"github.com/mgomes/luabridge/host"
	"github.com/mgomes/luabridge/variant"
)

// replStyles holds the few styles the REPL draws with.
type replStyles struct {
	prompt lipgloss.Style
	result lipgloss.Style
	err    lipgloss.Style
	muted  lipgloss.Style
	key    lipgloss.Style
	panel  lipgloss.Style
}

func newREPLStyles() replStyles {
	accent := lipgloss.AdaptiveColor{Light: "#1D4ED8", Dark: "#60A5FA"}
	muted := lipgloss.AdaptiveColor{Light: "#4B5563", Dark: "#9CA3AF"}
	return replStyles{
		prompt: lipgloss.NewStyle().Foreground(accent).Bold(true),
		result: lipgloss.NewStyle().Foreground(lipgloss.Color("#10B981")),
		err:    lipgloss.NewStyle().Foreground(lipgloss.Color("#EF4444")),
		muted:  lipgloss.NewStyle().Foreground(muted),
		key:    lipgloss.NewStyle().Foreground(accent),
		panel:  lipgloss.NewStyle().Border(lipgloss.NormalBorder(), false, false, false, true).BorderForeground(accent).PaddingLeft(1),
	}
}

var styles = newREPLStyles()

var luaKeywords = []string{
	"and", "break", "do", "else", "elseif", "end", "false", "for", "function",
	"if", "in", "local", "nil", "not", "or", "repeat", "return", "then", "true",
	"until", "while",
}

type historyEntry struct {
	input  string
	output string
	isErr  bool
}

// replSession owns the runtime behind a REPL and the node bound to the
// `self` global.
type replSession struct {
	rt   *bridge.Runtime
	self *bridge.Instance
}

func newREPLSession(cfg bridge.Config) (*replSession, error) {
	rt, err := bridge.NewRuntime(cfg)
	if err != nil {
		return nil, err
	}
	ctx := context.Background()
	node := host.NewNode("repl")
	inst, err := rt.Attach(ctx, node, nil)
	if err != nil {
		_ = rt.Close(ctx)
		return nil, err
	}
	if err := rt.SetGlobal(ctx, "self", variant.NewObject(node)); err != nil {
		_ = rt.Close(ctx)
		return nil, err
	}
	return &replSession{rt: rt, self: inst}, nil
}

func (s *replSession) close() {
	_ = s.rt.Close(context.Background())
}

// evaluate runs input and remembers a non-nil result as `_`.
func (s *replSession) evaluate(input string) (string, bool) {
	ctx := context.Background()
	result, err := s.rt.Eval(ctx, input)
	if err != nil {
		return err.Error(), true
	}
	if result.IsNil() {
		return "nil", false
	}
	if err := s.rt.SetGlobal(ctx, "_", result); err != nil {
		return err.Error(), true
	}
	return formatValue(result), false
}

func (s *replSession) stats() string {
	st := s.rt.Stats(context.Background())
	return fmt.Sprintf("tables=%s boxes=%s instances=%s scripts=%s",
		humanize.Comma(int64(st.Tables)),
		humanize.Comma(int64(st.Boxes)),
		humanize.Comma(int64(st.Instances)),
		humanize.Comma(int64(st.Scripts)))
}

func (s *replSession) completions(prefix string) []string {
	candidates := append([]string{"self", "_"}, luaKeywords...)
	candidates = append(candidates, s.rt.ClassDB().Classes()...)
	for _, kind := range variant.CompoundKinds() {
		candidates = append(candidates, kind.String())
	}
	seen := make(map[string]struct{})
	var out []string
	for _, c := range candidates {
		if _, dup := seen[c]; dup || !strings.HasPrefix(c, prefix) {
			continue
		}
		seen[c] = struct{}{}
		out = append(out, c)
	}
	sort.Strings(out)
	return out
}

func formatValue(v variant.Value) string {
	if v.Kind() == variant.KindString {
		return fmt.Sprintf("%q", v.String())
	}
	return v.String()
}

type replModel struct {
	textInput   textinput.Model
	session     *replSession
	history     []historyEntry
	cmdHistory  []string
	historyIdx  int
	width       int
	height      int
	showHelp    bool
	showStats   bool
	quitting    bool
	initialized bool
}

// replKeys are the bindings the model reacts to. Everything else goes to the
// text input.
var replKeys = struct {
	quit, clear, prev, next, complete, run, stats, help key.Binding
}{
	quit:     key.NewBinding(key.WithKeys("ctrl+c", "ctrl+d"), key.WithHelp("ctrl+c", "quit")),
	clear:    key.NewBinding(key.WithKeys("ctrl+l"), key.WithHelp("ctrl+l", "clear")),
	prev:     key.NewBinding(key.WithKeys("up")),
	next:     key.NewBinding(key.WithKeys("down")),
	complete: key.NewBinding(key.WithKeys("tab")),
	run:      key.NewBinding(key.WithKeys("enter")),
	stats:    key.NewBinding(key.WithKeys("ctrl+t"), key.WithHelp("ctrl+t", "stats")),
	help:     key.NewBinding(key.WithKeys("ctrl+k"), key.WithHelp("ctrl+k", "help")),
}

func newREPLModel(session *replSession) replModel {
	ti := textinput.New()
	ti.Placeholder = "type Lua..."
	ti.Focus()
	ti.CharLimit = 500
	ti.Width = 60
	ti.PromptStyle = styles.prompt
	ti.Prompt = "lua> "

	return replModel{
		textInput:  ti,
		session:    session,
		history:    make([]historyEntry, 0),
		cmdHistory: make([]string, 0),
		historyIdx: -1,
	}
}

func (m replModel) Init() tea.Cmd {
	return tea.Batch(textinput.Blink, tea.EnterAltScreen)
}

func (m replModel) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	var cmd tea.Cmd

	switch msg := msg.(type) {
	case tea.WindowSizeMsg:
		m.width = msg.Width
		m.height = msg.Height
		m.textInput.Width = msg.Width - 10
		m.initialized = true
		return m, nil

	case tea.KeyMsg:
		switch {
		case key.Matches(msg, replKeys.quit):
			m.quitting = true
			return m, tea.Quit

		case key.Matches(msg, replKeys.clear):
			m.history = make([]historyEntry, 0)
			return m, nil

		case key.Matches(msg, replKeys.stats):
			m.showStats = !m.showStats
			return m, nil

		case key.Matches(msg, replKeys.help):
			m.showHelp = !m.showHelp
			return m, nil

		case key.Matches(msg, replKeys.prev):
			if len(m.cmdHistory) > 0 {
				if m.historyIdx == -1 {
					m.historyIdx = len(m.cmdHistory) - 1
				} else if m.historyIdx > 0 {
					m.historyIdx--
				}
				m.textInput.SetValue(m.cmdHistory[m.historyIdx])
				m.textInput.CursorEnd()
			}
			return m, nil

		case key.Matches(msg, replKeys.next):
			if m.historyIdx != -1 {
				if m.historyIdx < len(m.cmdHistory)-1 {
					m.historyIdx++
					m.textInput.SetValue(m.cmdHistory[m.historyIdx])
				} else {
					m.historyIdx = -1
					m.textInput.SetValue("")
				}
				m.textInput.CursorEnd()
			}
			return m, nil

		case key.Matches(msg, replKeys.complete):
			m = m.handleAutocomplete()
			return m, nil

		case key.Matches(msg, replKeys.run):
			input := strings.TrimSpace(m.textInput.Value())
			if input == "" {
				return m, nil
			}

			if strings.HasPrefix(input, ":") {
				var cmd tea.Cmd
				m, cmd = m.handleCommand(input)
				m.textInput.SetValue("")
				m.historyIdx = -1
				return m, cmd
			}

			output, isErr := m.session.evaluate(input)
			m.history = append(m.history, historyEntry{
				input:  input,
				output: output,
				isErr:  isErr,
			})
			m.cmdHistory = append(m.cmdHistory, input)
			m.textInput.SetValue("")
			m.historyIdx = -1
			return m, nil
		}
	}

	m.textInput, cmd = m.textInput.Update(msg)
	return m, cmd
}

func (m replModel) handleCommand(input string) (replModel, tea.Cmd) {
	cmd := strings.Fields(input)[0]

	switch cmd {
	case ":help", ":h":
		m.showHelp = !m.showHelp
	case ":clear", ":c":
		m.history = make([]historyEntry, 0)
	case ":stats", ":s":
		m.history = append(m.history, historyEntry{
			input:  input,
			output: m.session.stats(),
		})
	case ":quit", ":q":
		m.quitting = true
		return m, tea.Quit
	default:
		m.history = append(m.history, historyEntry{
			input:  input,
			output: fmt.Sprintf("Unknown command: %s", cmd),
			isErr:  true,
		})
	}
	return m, nil
}

func (m replModel) handleAutocomplete() replModel {
	input := m.textInput.Value()
	words := strings.Fields(input)
	if len(words) == 0 {
		return m
	}
	lastWord := words[len(words)-1]

	completions := m.session.completions(lastWord)
	if len(completions) == 1 {
		prefix := strings.TrimSuffix(input, lastWord)
		m.textInput.SetValue(prefix + completions[0])
		m.textInput.CursorEnd()
	} else if len(completions) > 1 {
		m.history = append(m.history, historyEntry{
			output: "Completions: " + strings.Join(completions, ", "),
		})
	}
	return m
}

func (m replModel) View() string {
	switch {
	case !m.initialized:
		return ""
	case m.quitting:
		return styles.muted.Render("bye") + "\n"
	}

	var panels []string
	if m.showStats {
		panels = append(panels, styles.panel.Render(m.session.stats()))
	}
	if m.showHelp {
		panels = append(panels, styles.panel.Render(helpText(func(s string) string { return styles.key.Render(s) })))
	}

	sections := []string{styles.muted.Render("luabridge · self is a bound Node")}
	budget := m.height - 4
	for _, p := range panels {
		budget -= lipgloss.Height(p)
	}
	if transcript := m.transcript(budget); transcript != "" {
		sections = append(sections, transcript)
	}
	sections = append(sections, panels...)
	sections = append(sections, m.textInput.View(), m.footer())
	return lipgloss.JoinVertical(lipgloss.Left, sections...)
}

// transcript renders the newest history entries that fit in maxLines.
func (m replModel) transcript(maxLines int) string {
	var lines []string
	for i := len(m.history) - 1; i >= 0; i-- {
		entry := m.history[i]
		out := styles.result.Render("= " + entry.output)
		if entry.isErr {
			out = styles.err.Render("! " + entry.output)
		}
		chunk := []string{out}
		if entry.input != "" {
			chunk = []string{styles.muted.Render("> ") + entry.input, out}
		}
		if len(lines)+len(chunk) > maxLines {
			break
		}
		lines = append(chunk, lines...)
	}
	return strings.Join(lines, "\n")
}

func (m replModel) footer() string {
	var parts []string
	for _, b := range []key.Binding{replKeys.help, replKeys.stats, replKeys.clear, replKeys.quit} {
		h := b.Help()
		parts = append(parts, styles.key.Render(h.Key)+" "+styles.muted.Render(h.Desc))
	}
	return strings.Join(parts, "  ")
}

// replCommands lists the colon commands, shared by both REPL modes.
var replCommands = [][2]string{
	{":help", "toggle this help"},
	{":stats", "live tables, boxes, instances and scripts"},
	{":clear", "clear the transcript"},
	{":quit", "exit"},
	{"tab", "complete the last word"},
	{"up/down", "walk command history"},
}

// helpText lists replCommands, passing each name through styleKey.
func helpText(styleKey func(string) string) string {
	lines := make([]string, len(replCommands))
	for i, c := range replCommands {
		lines[i] = styleKey(fmt.Sprintf("%-8s", c[0])) + "  " + c[1]
	}
	return strings.Join(lines, "\n")
}

// runPlainREPL reads one chunk per line. It serves piped input, where the
// full screen program has no terminal to draw on.
func runPlainREPL(session *replSession, in io.Reader, out io.Writer) error {
	scanner := bufio.NewScanner(in)
	for scanner.Scan() {
		input := strings.TrimSpace(scanner.Text())
		switch {
		case input == "":
			continue
		case input == ":quit" || input == ":q":
			return nil
		case input == ":stats" || input == ":s":
			fmt.Fprintln(out, session.stats())
			continue
		case input == ":help" || input == ":h":
			fmt.Fprintln(out, helpText(func(s string) string { return s }))
			continue
		case strings.HasPrefix(input, ":"):
			fmt.Fprintf(out, "error: unknown command: %s\n", strings.Fields(input)[0])
			continue
		}
		output, isErr := session.evaluate(input)
		if isErr {
			fmt.Fprintf(out, "error: %s\n", output)
			continue
		}
		fmt.Fprintln(out, output)
	}
	return scanner.Err()
}

func runREPL(cfg bridge.Config) error {
	session, err := newREPLSession(cfg)
	if err != nil {
		return err
	}
	defer session.close()

	fd := os.Stdin.Fd()
	if !isatty.IsTerminal(fd) && !isatty.IsCygwinTerminal(fd) {
		return runPlainREPL(session, os.Stdin, os.Stdout)
	}
	p := tea.NewProgram(newREPLModel(session), tea.WithAltScreen())
	_, err = p.Run()
	return err
}
