package repl

import (
	"log/slog"

	"github.com/sahilm/fuzzy"

	tea "github.com/charmbracelet/bubbletea"
)

// completion is the state of word completion at the cursor.
type completion struct {
	matches    fuzzy.Matches
	start, end int   // byte bounds of the word being completed
	selected   int   // index into matches, -1 when nothing is selected
	cycling    bool  // Tab has been pressed since the last edit
	before     draft // input before cycling began
}

func (m model) handleKey(msg tea.KeyMsg) (model, tea.Cmd) {
	m.logger.TraceContext(m.ctx, "repl key", slog.String("key", msg.String()))

	switch msg.Type {
	case tea.KeyCtrlC:
		return m.interrupt()

	case tea.KeyCtrlD:
		if m.input.Value() == "" {
			m.quitting = true

			return m, tea.Quit
		}

		return m, nil

	case tea.KeyEnter:
		if m.comp.cycling && len(m.comp.matches) > 0 {
			m.comp.cycling = false
			m.refresh(true)

			return m, nil
		}

		return m.submit()

	case tea.KeyTab:
		return m.cycle(1), nil

	case tea.KeyShiftTab:
		return m.cycle(-1), nil

	case tea.KeyUp:
		return m.browse(-1, false), nil

	case tea.KeyDown:
		return m.browse(1, false), nil

	case tea.KeyShiftUp:
		return m.browse(-1, true), nil

	case tea.KeyShiftDown:
		return m.browse(1, true), nil

	case tea.KeyEsc:
		if m.comp.cycling {
			m.comp.cycling = false
			m.input.SetValue(m.comp.before.text)
			m.input.SetCursor(m.comp.before.cursor)
			m.refresh(false)

			return m, nil
		}

		if m.mode == modeEval {
			return m.setMode(modeCtrl), nil
		}

		return m.setMode(modeEval), nil
	}

	// Typing may complete a word on its own; deleting and moving never do.
	typed := msg.Type == tea.KeyRunes || msg.Type == tea.KeySpace
	if !typed || msg.Type == tea.KeySpace {
		m.comp.cycling = false
	}

	var cmd tea.Cmd

	m.browsing = m.history.Len()
	m.input, cmd = m.input.Update(msg)
	m.refresh(typed)

	return m, cmd
}

// interrupt drops the input line and any held block, or quits when there is
// nothing to drop.
func (m model) interrupt() (model, tea.Cmd) {
	if m.input.Value() == "" && !m.session.Pending() {
		m.quitting = true

		return m, tea.Quit
	}

	m.session.pending = nil
	m.browsing = m.history.Len()
	m.comp.cycling = false
	m = m.setInput("")
	m.input.Prompt = m.prompt()

	return m, nil
}

// refresh recomputes the matches for the word at the cursor. With confirm, a
// word that already equals its only candidate is accepted.
func (m *model) refresh(confirm bool) {
	m.comp.matches, m.comp.start, m.comp.end = m.computeMatches()

	if !m.comp.cycling {
		m.comp.selected = -1
	}

	if confirm && len(m.comp.matches) == 1 &&
		m.input.Value()[m.comp.start:m.comp.end] == m.comp.matches[0].Str {
		m.comp = completion{selected: -1}
	}
}

// cycle moves the selection by step through the matches, wrapping at either
// end, and puts the selected candidate in place of the word. A sole
// candidate is accepted outright.
func (m model) cycle(step int) model {
	n := len(m.comp.matches)

	switch {
	case n == 0:
		return m

	case n == 1:
		m.replaceWord(m.comp.matches[0].Str)
		m.comp = completion{selected: -1}

		return m

	case !m.comp.cycling:
		m.comp.cycling = true
		m.comp.before = draft{text: m.input.Value(), cursor: m.input.Position()}
		m.comp.selected = -1

		if step < 0 {
			m.comp.selected = 0
		}
	}

	m.comp.selected = (m.comp.selected + step + n) % n
	m.replaceWord(m.comp.matches[m.comp.selected].Str)

	return m
}

// replaceWord puts s in place of the word being completed.
func (m *model) replaceWord(s string) {
	v := m.input.Value()
	cursor := m.comp.start + len(s)

	m.input.SetValue(v[:m.comp.start] + s + v[m.comp.end:])
	m.input.SetCursor(cursor)
	m.comp.end = cursor
}

// browse moves through history by step. With sameMode only entries of the
// current mode are shown; otherwise the mode follows the entry. Moving past
// the newest entry returns to an empty line.
func (m model) browse(step int, sameMode bool) model {
	n := m.history.Len()

	for i := m.browsing + step; i >= 0 && i < n; i += step {
		entry, err := m.history.Entry(i)
		if err != nil {
			break
		}

		if entry.Mode != m.mode {
			if sameMode {
				continue
			}

			m = m.setMode(entry.Mode)
		}

		m.browsing = i

		return m.setInput(entry.Line)
	}

	if step > 0 && m.browsing < n {
		m.browsing = n
		m = m.setInput("")
	}

	return m
}

// setMode shows the input of mode, putting the current input aside.
func (m model) setMode(mode inputMode) model {
	if mode == m.mode {
		return m
	}

	m.drafts[m.mode] = draft{text: m.input.Value(), cursor: m.input.Position()}
	m.mode = mode
	m.input.Prompt = m.prompt()
	m.input.SetValue(m.drafts[mode].text)
	m.input.SetCursor(m.drafts[mode].cursor)
	m.refresh(false)

	return m
}

// setInput replaces the input line, leaving the cursor at its end.
func (m model) setInput(s string) model {
	m.input.SetValue(s)
	m.input.SetCursor(len(s))
	m.refresh(false)

	return m
}
