package repl

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"os"
	"path/filepath"
	"reflect"
	"strings"

	"github.com/charmbracelet/bubbles/textinput"
	"github.com/charmbracelet/lipgloss"
	"github.com/mattn/go-isatty"

	tea "github.com/charmbracelet/bubbletea"

	"github.com/vrde/trabant/lang"
	"github.com/vrde/trabant/log"
)

// inputMode selects what a submitted line is: template source or a control
// command.
type inputMode int

const (
	modeEval inputMode = iota
	modeCtrl
)

const (
	evalPrompt = "➜ "
	contPrompt = "… "
	ctrlPrompt = " :"
)

const helpText = `
Commands (Esc switches between template input and commands):

  help     show this text
  vars     list bound variables and definitions
  edit     open the session source in $EDITOR and run it again
  reset    forget every variable and definition
  clear    clear the screen
  quit     leave

Each template line is rendered as soon as it is complete. A directive that
opens a block holds input (prompt "…") until the matching "% end".

  Tab, Shift-Tab          cycle completions; Space or Enter accepts
  Up, Down                walk history, switching mode with the entry
  Shift-Up, Shift-Down    walk history of the current mode only
  Ctrl-C                  drop the current line and any held block
  Ctrl-D                  quit on an empty line
`

var (
	promptStyle        = lipgloss.NewStyle().Foreground(lipgloss.Color("6")).Bold(true)
	ctrlPromptStyle    = lipgloss.NewStyle().Foreground(lipgloss.Color("5")).Bold(true)
	inputStyle         = lipgloss.NewStyle().Foreground(lipgloss.Color("15"))
	resultStyle        = lipgloss.NewStyle().Foreground(lipgloss.Color("2"))
	errorStyle         = lipgloss.NewStyle().Foreground(lipgloss.Color("1"))
	hintStyle          = lipgloss.NewStyle().Foreground(lipgloss.Color("8"))
	suggestionStyle    = lipgloss.NewStyle().Foreground(lipgloss.Color("4"))
	matchStyle         = suggestionStyle.Bold(true).Underline(true)
	selectedStyle      = lipgloss.NewStyle().Foreground(lipgloss.Color("0")).Background(lipgloss.Color("4"))
	selectedMatchStyle = selectedStyle.Bold(true).Underline(true)
	signatureStyle     = hintStyle
	signatureNameStyle = lipgloss.NewStyle().Foreground(lipgloss.Color("6"))
	currentParamStyle  = lipgloss.NewStyle().Foreground(lipgloss.Color("3")).Bold(true)
)

// editDoneMsg reports the end of an external edit. An empty source with a
// nil error means the user cleared the file.
type editDoneMsg struct {
	source string
	err    error
}

// draft is the unsubmitted input of one mode.
type draft struct {
	text   string
	cursor int
}

// model is the Bubble Tea model of an interactive template session.
type model struct {
	ctx      context.Context
	input    textinput.Model
	session  *Session
	history  *History
	logger   log.Logger
	mode     inputMode
	drafts   [2]draft // input put aside by the mode not shown
	browsing int      // history index shown; history.Len() when not browsing
	comp     completion
	width    int
	quitting bool
}

const defaultWidth = 80

// Run starts the REPL. Templates named by include and rebase directives
// resolve through r, and vars are bound before the first input. Template
// source read from src, if not nil, is run first.
func Run(
	ctx context.Context,
	r *lang.Renderer,
	vars lang.Env,
	src io.Reader,
	cacheDir string,
	logger log.Logger,
) (err error) {
	ctx, cancel := context.WithCancelCause(ctx)

	defer func(err *error) { cancel(*err) }(&err)

	if fd := os.Stdin.Fd(); !isatty.IsTerminal(fd) && !isatty.IsCygwinTerminal(fd) {
		return ErrNoTerminal
	}

	session := NewSession(r, vars, logger)

	if src != nil {
		out, err := session.RunReader(ctx, src)
		if err != nil {
			return err
		}

		fmt.Print(out)
	}

	history := NewHistory(filepath.Join(cacheDir, baseHistory))
	if err := history.Load(); err != nil {
		logger.WarnContext(ctx, "could not load history", slog.Any("error", err))
	}

	logger.TraceContext(ctx, "repl start",
		slog.String("cache_dir", cacheDir),
		slog.Int("vars", len(session.Names())),
		slog.Int("history", history.Len()),
	)

	_, err = tea.NewProgram(newModel(ctx, session, history, logger), tea.WithContext(ctx)).Run()

	return err
}

func newModel(ctx context.Context, session *Session, history *History, logger log.Logger) model {
	ti := textinput.New()
	ti.Prompt = promptStyle.Render(evalPrompt)
	ti.CharLimit = 1024
	ti.Width = defaultWidth
	ti.Focus()

	return model{
		ctx:      ctx,
		input:    ti,
		session:  session,
		history:  history,
		logger:   logger,
		browsing: history.Len(),
		comp:     completion{selected: -1},
		width:    defaultWidth,
	}
}

// source returns the completion candidates of the current session.
func (m model) source() candidateSource {
	return candidateSource{vars: m.session.vars}
}

// prompt returns the styled prompt for the mode and session state.
func (m model) prompt() string {
	switch {
	case m.mode == modeCtrl:
		return ctrlPromptStyle.Render(ctrlPrompt)
	case m.session.Pending():
		return promptStyle.Render(contPrompt)
	default:
		return promptStyle.Render(evalPrompt)
	}
}

func (m model) Init() tea.Cmd {
	return textinput.Blink
}

func (m model) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.KeyMsg:
		return m.handleKey(msg)

	case tea.WindowSizeMsg:
		m.width = msg.Width
		m.input.Width = msg.Width - lipgloss.Width(evalPrompt) - 2

		return m, nil

	case editDoneMsg:
		return m.finishEdit(msg)
	}

	var cmd tea.Cmd

	m.input, cmd = m.input.Update(msg)

	return m, cmd
}

func (m model) View() string {
	if m.quitting {
		return ""
	}

	return m.input.View() + "\n" + m.hint() + "\n"
}

// hint returns the line shown below the input: the history position, a
// usage hint, a signature, or the completion candidates.
func (m model) hint() string {
	value := m.input.Value()

	if n := m.history.Len(); m.browsing < n {
		return hintStyle.Render(fmt.Sprintf("history %d/%d", m.browsing+1, n))
	}

	if strings.TrimSpace(value) == "" {
		switch {
		case m.mode == modeCtrl:
			return hintStyle.Render("help, vars, edit, reset, clear, quit (Esc returns)")
		case m.session.Pending():
			return hintStyle.Render(`continue the block, or close it with "% end"`)
		default:
			return hintStyle.Render("type a template line, or Esc for commands")
		}
	}

	if m.mode == modeEval {
		if call := detectFunctionCall(value, m.input.Position()); call.inCall {
			if params, ok := m.signature(call.name); ok {
				return renderSignatureHint(call.name, params, call.argIndex)
			}
		}
	}

	return m.candidateBar()
}

// candidateBar renders the current matches, marking candidates that name
// functions.
func (m model) candidateBar() string {
	var isFunc func(string) bool

	if m.mode == modeEval {
		src := m.source()
		parent := parentPath(m.input.Value(), m.comp.start)

		isFunc = func(name string) bool {
			if parent != "" {
				name = parent + "." + name
			}

			return src.isFunction(name)
		}
	}

	return renderCandidateBar(m.comp.matches, m.comp.selected, m.comp.cycling, m.width, isFunc)
}

// submit runs the input line in the current mode.
func (m model) submit() (model, tea.Cmd) {
	raw := m.input.Value()
	line := strings.TrimSpace(raw)

	// Blank template lines only matter inside a held block.
	if line == "" && (m.mode == modeCtrl || !m.session.Pending()) {
		return m, nil
	}

	if m.mode == modeCtrl {
		raw = line
	}

	if err := m.history.Append(raw, m.mode); err != nil {
		m.logger.WarnContext(m.ctx, "history write failed", slog.Any("error", err))
	}

	echo := m.prompt() + inputStyle.Render(raw)

	m.drafts[m.mode] = draft{}
	m = m.setInput("")
	m.browsing = m.history.Len()

	if m.mode == modeCtrl {
		return m.command(line, tea.Println(echo))
	}

	out, more, err := m.session.Eval(m.ctx, raw)
	m.input.Prompt = m.prompt()

	m.logger.TraceContext(m.ctx, "repl eval",
		slog.String("input", raw),
		slog.Bool("more", more),
		slog.Any("error", err),
	)

	cmds := []tea.Cmd{tea.Println(echo), printOutput(out)}
	if err != nil {
		cmds = append(cmds, tea.Println(errorStyle.Render("error: "+err.Error())))
	}

	return m, tea.Sequence(cmds...)
}

// command runs a control command. Commands may be abbreviated to their first
// letter.
func (m model) command(line string, echo tea.Cmd) (model, tea.Cmd) {
	name, _, _ := strings.Cut(line, " ")

	m.logger.TraceContext(m.ctx, "repl command", slog.String("command", name))

	switch name {
	case "q", "quit", "exit":
		m.quitting = true

		return m, tea.Sequence(echo, tea.Quit)

	case "h", "help":
		return m, tea.Sequence(echo, tea.Println(helpText))

	case "v", "vars":
		return m, tea.Sequence(echo, tea.Println(m.listVars()))

	case "r", "reset":
		m.session.Reset()
		m.drafts[modeEval] = draft{}

		return m, tea.Sequence(echo, tea.Println(hintStyle.Render("session reset")))

	case "c", "clear":
		return m, tea.ClearScreen

	case "e", "edit":
		edit := &editSourceCommand{ctx: m.ctx, session: m.session, logger: m.logger}

		return m, tea.Sequence(echo, tea.Exec(edit, func(err error) tea.Msg {
			return editDoneMsg{source: edit.source, err: err}
		}))
	}

	return m, tea.Sequence(echo,
		tea.Println(errorStyle.Render("unknown command "+name+" (try help)")))
}

// finishEdit replaces the session with the edited source.
func (m model) finishEdit(msg editDoneMsg) (model, tea.Cmd) {
	switch {
	case errors.Is(msg.err, ErrEditDeclined):
		m.quitting = true

		return m, tea.Quit

	case msg.err != nil:
		return m, tea.Println(errorStyle.Render("edit failed: " + msg.err.Error()))

	case msg.source == "":
		return m, tea.Println(hintStyle.Render("edit cancelled"))
	}

	m.session.Reset()

	out, err := m.session.Run(m.ctx, msg.source)
	m.input.Prompt = m.prompt()

	m.logger.TraceContext(m.ctx, "repl edit",
		slog.Int("vars", len(m.session.Names())),
		slog.Any("error", err),
	)

	status := tea.Println(resultStyle.Render("session source replaced"))
	if err != nil {
		status = tea.Println(errorStyle.Render("error: " + err.Error()))
	}

	return m, tea.Sequence(printOutput(out), status)
}

// printOutput prints rendered template output, if any.
func printOutput(out string) tea.Cmd {
	if out = strings.TrimSuffix(out, "\n"); out == "" {
		return nil
	}

	return tea.Println(resultStyle.Render(out))
}

// listVars renders each bound variable with a short preview of its value.
func (m model) listVars() string {
	var b strings.Builder

	for _, name := range m.session.Names() {
		preview := formatPreview(m.session.vars[name])
		if params, ok := m.session.Params(name); ok {
			preview = "def(" + strings.Join(params, ", ") + ")"
		}

		fmt.Fprintf(&b, "  %s %s\n", name, hintStyle.Render(preview))
	}

	if b.Len() == 0 {
		return hintStyle.Render("  (no variables)")
	}

	return b.String()
}

const previewWidth = 48

// formatPreview summarizes a value on one line.
func formatPreview(v any) string {
	if v == nil {
		return "nil"
	}

	if reflect.TypeOf(v).Kind() == reflect.Func {
		return "func"
	}

	s := strings.Join(strings.Fields(fmt.Sprint(v)), " ")
	if r := []rune(s); len(r) > previewWidth {
		s = string(r[:previewWidth-1]) + "…"
	}

	return s
}
