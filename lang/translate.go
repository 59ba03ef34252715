package lang

import (
	"iter"
	"log/slog"
	"regexp"
	"strconv"
	"strings"

	"github.com/vrde/trabant/log"
)

// Names bound by the executor for generated code.
const (
	nameStdout    = "_stdout"
	namePrintlist = "_printlist"
	nameInclude   = "_include"
	nameRebase    = "_rebase"
	nameStr       = "_str"
	nameEscape    = "_escape"
	nameBase      = "_base"
)

// controlNames lists every name bound by the executor.
var controlNames = []string{
	nameStdout, namePrintlist, nameInclude, nameRebase, nameStr, nameEscape, nameBase,
}

// Directive keywords handled by the translator itself.
const (
	keywordEnd     = "end"
	keywordInclude = "include"
	keywordRebase  = "rebase"
)

// keywordArg matches one "name = value" keyword argument.
var keywordArg = regexp.MustCompile(`^\s*([A-Za-z_][A-Za-z0-9_]*)\s*=\s*([^=\s].*?)\s*$`)

// textLine is one pending literal line, split lazily at flush.
type textLine struct {
	pos    int
	tokens iter.Seq[Token]
}

// translator turns template source lines into generated code. It carries the
// block stack, the pending text buffer, and the multiline and oneline markers
// across the whole pass.
type translator struct {
	tracker

	name      string
	strictEnd bool
	logger    log.Logger

	lines   []Line
	pending []textLine

	// multiline holds the keyword of a block directive continued onto the
	// next line, or "".
	multiline string
	// oneline is set when the last block directive was a single-line
	// compound statement that did not open a block.
	oneline bool
}

// translate produces the generated code for decoded template source.
func translate(name string, src []sourceLine, o *options) ([]Line, error) {
	t := translator{
		name:      name,
		strictEnd: o.strictEnd,
		logger:    o.logger,
		lines:     make([]Line, 0, len(src)),
	}

	for _, line := range src {
		c := classifyLine(line.Text)

		var err error
		if c.kind == lineDirective {
			err = t.directive(line.Number, c)
		} else {
			err = t.text(line.Number, c.text)
		}

		if err != nil {
			return nil, err
		}
	}

	if err := t.flush(); err != nil {
		return nil, err
	}

	if f, ok := t.pop(); ok {
		return nil, ErrCompile.At(name, f.Line).Wrap(
			ErrUnterminatedBlock.With(slog.String("keyword", f.Keyword)),
		)
	}

	return t.lines, nil
}

func (t *translator) emit(pos int, text string) {
	t.emitAt(t.depth(), pos, text)
}

func (t *translator) emitAt(depth, pos int, text string) {
	t.lines = append(t.lines, Line{Depth: depth, Text: text, Pos: pos})
}

func (t *translator) fail(pos int, detail *Error) error {
	return ErrCompile.At(t.name, pos).Wrap(detail)
}

// text buffers a literal line. A line ending in a doubled backslash joins
// with the next one: both backslashes and the line break are dropped.
func (t *translator) text(pos int, line string) error {
	if t.multiline != "" {
		return t.fail(pos, ErrUnterminatedContinuation.With(
			slog.String("keyword", t.multiline),
		))
	}

	for _, nl := range []string{"\r\n", "\n"} {
		if s, ok := strings.CutSuffix(line, `\\`+nl); ok {
			line = s

			break
		}
	}

	t.pending = append(t.pending, textLine{pos: pos, tokens: splitExpressions(line)})

	return nil
}

// flush emits the pending text as a single output statement.
func (t *translator) flush() error {
	if len(t.pending) == 0 {
		return nil
	}

	pending := t.pending
	t.pending = nil

	items := make([]string, 0, len(pending))

	for _, line := range pending {
		for tok := range line.tokens {
			if tok.Kind != TokenText && strings.TrimSpace(tok.Value) == "" {
				return t.fail(line.pos, ErrExpression.With(
					slog.String("expression", exprOpen+tok.Value+exprClose),
				))
			}

			switch tok.Kind {
			case TokenText:
				items = append(items, strconv.Quote(tok.Value))
			case TokenRaw:
				items = append(items, nameStr+"("+tok.Value+")")
			case TokenEscaped:
				items = append(items, nameEscape+"("+tok.Value+")")
			}
		}
	}

	if len(items) == 0 {
		return nil
	}

	t.emit(pending[0].pos, namePrintlist+"(["+strings.Join(items, ", ")+"])")

	return nil
}

func (t *translator) directive(pos int, c classified) error {
	if err := t.flush(); err != nil {
		return err
	}

	cmd := keyword(c.code)

	switch {
	case blockKeywords[cmd] || t.multiline != "":
		return t.block(pos, cmd, c.code)

	case cmd == keywordEnd:
		return t.end(pos, c.body)

	case cmd == keywordInclude:
		return t.include(pos, c.code)

	case cmd == keywordRebase:
		return t.rebase(pos, c.code)

	case c.code == "":
		// Comment-only directive.
		if c.body != "" {
			t.emit(pos, c.body)
		}

	default:
		t.emit(pos, c.code)
	}

	return nil
}

func (t *translator) block(pos int, cmd, code string) error {
	if t.multiline != "" {
		cmd = t.multiline
	}

	opened := pos

	if dedentKeywords[cmd] && !t.oneline && t.multiline == "" {
		f, ok := t.pop()
		if !ok {
			return t.fail(pos, ErrOrphanClause.With(slog.String("keyword", cmd)))
		}

		cmd, opened = f.Keyword, f.Line
	}

	t.emit(pos, code)

	t.oneline = !strings.HasSuffix(code, ":")
	t.multiline = ""

	if strings.HasSuffix(code, string(continuation)) {
		t.multiline = cmd
	}

	if !t.oneline && t.multiline == "" {
		t.push(frame{Keyword: cmd, Line: opened})
	}

	return nil
}

func (t *translator) end(pos int, body string) error {
	depth := t.depth()

	f, ok := t.pop()
	if !ok {
		if t.strictEnd {
			return t.fail(pos, ErrStrayEnd)
		}

		t.logger.Debug("stray end ignored",
			slog.String("template", t.name),
			slog.Int("line", pos),
		)

		return nil
	}

	marker := "#end(" + f.Keyword + ")"
	if rest := strings.TrimSpace(strings.TrimPrefix(body, keywordEnd)); rest != "" {
		marker += " " + rest
	}

	t.emitAt(depth, pos, marker)

	return nil
}

// include emits a sub-template inclusion, or re-emits the captured base
// content when no template is named.
func (t *translator) include(pos int, code string) error {
	name, extra, err := directiveArgs(strings.TrimPrefix(code, keywordInclude))
	if err != nil {
		return t.fail(pos, ErrArguments.Wrap(err).With(slog.String("directive", code)))
	}

	if name == "" {
		t.emit(pos, namePrintlist+"("+nameBase+")")

		return nil
	}

	call := nameInclude + "(" + strconv.Quote(name) + ", " + nameStdout
	if extra != "" {
		call += ", " + extra
	}

	t.emit(pos, call+")")

	return nil
}

// rebase emits a request to wrap the output in a parent layout.
func (t *translator) rebase(pos int, code string) error {
	name, extra, err := directiveArgs(strings.TrimPrefix(code, keywordRebase))
	if err == nil && name == "" {
		err = NewError("missing template name")
	}

	if err != nil {
		return t.fail(pos, ErrArguments.Wrap(err).With(slog.String("directive", code)))
	}

	if extra == "" {
		extra = "{}"
	}

	t.emit(pos, nameRebase+"("+strconv.Quote(name)+", "+extra+")")

	return nil
}

// directiveArgs parses the arguments of an include or rebase directive: a
// template name, bare or quoted, optionally followed by extra variables. The
// extra variables are either keyword arguments (a = 1, b = "x") or a single
// expression evaluating to a map. They are returned as expression source.
func directiveArgs(args string) (name, extra string, err error) {
	args = strings.TrimSpace(args)
	if args == "" {
		return "", "", nil
	}

	var rest string

	switch args[0] {
	case '"', '\'', '`':
		end := strings.IndexByte(args[1:], args[0])
		if end < 0 {
			return "", "", NewError("unterminated template name")
		}

		name, rest = args[1:end+1], args[end+2:]

	default:
		end := strings.IndexFunc(args, func(r rune) bool {
			return r == ',' || r == ' ' || r == '\t'
		})
		if end < 0 {
			end = len(args)
		}

		name, rest = args[:end], args[end:]
	}

	if name == "" {
		return "", "", NewError("empty template name")
	}

	rest = strings.TrimSpace(rest)
	rest = strings.TrimSpace(strings.TrimPrefix(rest, ","))

	if rest == "" {
		return name, "", nil
	}

	extra, err = extraVars(rest)

	return name, extra, err
}

// extraVars converts directive extra variables to map expression source.
func extraVars(s string) (string, error) {
	var (
		parts = splitTopLevel(s, ',')
		items = make([]string, 0, len(parts))
	)

	for _, part := range parts {
		if m := keywordArg.FindStringSubmatch(part); m != nil {
			items = append(items, strconv.Quote(m[1])+": "+m[2])
		}
	}

	switch {
	case len(items) == len(parts):
		return "{" + strings.Join(items, ", ") + "}", nil

	case len(items) == 0 && len(parts) == 1:
		return parts[0], nil

	default:
		return "", NewError("cannot mix keyword arguments and expressions")
	}
}

// splitTopLevel splits s at each sep that is outside string literals and
// brackets. Empty parts are dropped and the rest are trimmed.
func splitTopLevel(s string, sep rune) []string {
	var (
		parts []string
		quote rune
		depth int
		esc   bool
		start int
	)

	add := func(p string) {
		if p = strings.TrimSpace(p); p != "" {
			parts = append(parts, p)
		}
	}

	for i, r := range s {
		switch {
		case esc:
			esc = false

		case quote != 0:
			switch r {
			case '\\':
				esc = quote != '`'
			case quote:
				quote = 0
			}

		case r == '"' || r == '\'' || r == '`':
			quote = r

		case r == '(' || r == '[' || r == '{':
			depth++

		case r == ')' || r == ']' || r == '}':
			depth--

		case r == sep && depth == 0:
			add(s[start:i])
			start = i + len(string(sep))
		}
	}

	add(s[start:])

	return parts
}
