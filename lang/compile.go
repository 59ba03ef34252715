package lang

import (
	"log/slog"
	"regexp"
	"strings"
)

// Statement patterns of generated code.
var (
	identList     = `[A-Za-z_][A-Za-z0-9_]*(?:\s*,\s*[A-Za-z_][A-Za-z0-9_]*)*`
	assignPattern = regexp.MustCompile(`^(` + identList + `)\s*([-+*/]?=)([^=].*)$`)
	forPattern    = regexp.MustCompile(`^for\s+\(?\s*(` + identList + `)\s*\)?\s+in\s+(.+)$`)
	exceptPattern = regexp.MustCompile(`^except(?:\s+(.+?))??(?:\s+as\s+([A-Za-z_][A-Za-z0-9_]*))?$`)
	withPattern   = regexp.MustCompile(`^with\s+(.+?)(?:\s+as\s+([A-Za-z_][A-Za-z0-9_]*))?$`)
	defPattern    = regexp.MustCompile(`^def\s+([A-Za-z_][A-Za-z0-9_]*)\s*\((.*)\)$`)
	classPattern  = regexp.MustCompile(`^class\s+([A-Za-z_][A-Za-z0-9_]*)\s*(?:\(\s*\))?$`)
	paramPattern  = regexp.MustCompile(`^([A-Za-z_][A-Za-z0-9_]*)(?:\s*=\s*(.+))?$`)
)

// logical is one statement of generated code after comments are dropped and
// continued lines are joined.
type logical struct {
	depth int
	pos   int
	text  string
}

// compiler builds the executable statement tree from generated code. Block
// structure comes from line depth alone.
type compiler struct {
	name  string
	lines []logical
	next  int
	loops int // enclosing loops of the statement being compiled
}

// compileCode compiles generated code into executable statements.
func compileCode(name string, code []Line) ([]stmt, error) {
	lines, err := joinLines(name, code)
	if err != nil {
		return nil, err
	}

	c := compiler{name: name, lines: lines}

	return c.block(0)
}

// joinLines drops comment lines and joins lines ending in a continuation
// marker with the line that follows.
func joinLines(name string, code []Line) ([]logical, error) {
	lines := make([]logical, 0, len(code))

	var open *logical

	for _, line := range code {
		text := strings.TrimSpace(line.Text)
		if text == "" || text[0] == commentMarker {
			continue
		}

		if open != nil {
			open.text += " " + text
		} else {
			lines = append(lines, logical{depth: line.Depth, pos: line.Pos, text: text})
			open = &lines[len(lines)-1]
		}

		if s, ok := strings.CutSuffix(open.text, string(continuation)); ok {
			open.text = strings.TrimSpace(s)
		} else {
			open = nil
		}
	}

	if open != nil {
		return nil, ErrCompile.At(name, open.pos).Wrap(
			ErrUnterminatedContinuation.With(slog.String("statement", open.text)),
		)
	}

	return lines, nil
}

func (c *compiler) fail(pos int, detail *Error) error {
	return ErrCompile.At(c.name, pos).Wrap(detail)
}

func (c *compiler) syntax(l logical, reason string) error {
	return c.fail(l.pos, ErrSyntax.Wrap(NewError(reason)).With(
		slog.String("statement", l.text),
	))
}

func (c *compiler) peek() (logical, bool) {
	if c.next >= len(c.lines) {
		return logical{}, false
	}

	return c.lines[c.next], true
}

// block compiles consecutive statements at depth.
func (c *compiler) block(depth int) ([]stmt, error) {
	var body []stmt

	for {
		l, ok := c.peek()
		if !ok || l.depth < depth {
			return body, nil
		}

		if l.depth > depth {
			return nil, c.fail(l.pos, ErrIndent.With(slog.String("statement", l.text)))
		}

		s, err := c.statement(l)
		if err != nil {
			return nil, err
		}

		body = append(body, s...)
	}
}

func (c *compiler) statement(l logical) ([]stmt, error) {
	kw := keyword(l.text)

	if !blockKeywords[kw] {
		c.next++

		return c.simple(l, l.text)
	}

	if dedentKeywords[kw] {
		return nil, c.syntax(l, "'"+kw+"' without a matching block")
	}

	var (
		s   stmt
		err error
	)

	switch kw {
	case "if":
		s, err = c.ifStmt(l)
	case "for":
		s, err = c.forStmt(l)
	case "while":
		s, err = c.whileStmt(l)
	case "try":
		s, err = c.tryStmt(l)
	case "with":
		s, err = c.withStmt(l)
	case "def":
		s, err = c.defStmt(l)
	case "class":
		s, err = c.classStmt(l)
	}

	if err != nil {
		return nil, err
	}

	return []stmt{s}, nil
}

// clause compiles one header line and its body. parse validates the header
// (without the trailing ':'). A header that does not end in ':' is a one-line
// clause: the first top-level ':' that leaves a valid header separates it from
// the inline body.
func (c *compiler) clause(
	l logical,
	parse func(header string) error,
) ([]stmt, error) {
	depth := l.depth
	c.next++

	if header, ok := strings.CutSuffix(l.text, ":"); ok {
		if err := parse(strings.TrimSpace(header)); err != nil {
			return nil, err
		}

		return c.block(depth + 1)
	}

	var first error

	for _, at := range topLevelColons(l.text) {
		err := parse(strings.TrimSpace(l.text[:at]))
		if err != nil {
			if first == nil {
				first = err
			}

			continue
		}

		var body []stmt

		for _, part := range splitTopLevel(l.text[at+1:], ';') {
			s, err := c.simple(l, part)
			if err != nil {
				return nil, err
			}

			body = append(body, s...)
		}

		return body, nil
	}

	if first != nil {
		return nil, first
	}

	return nil, c.syntax(l, "expected ':'")
}

// nextClause reports whether the next statement at depth is a clause with
// the given keyword.
func (c *compiler) nextClause(depth int, kw string) (logical, bool) {
	l, ok := c.peek()
	if !ok || l.depth != depth || keyword(l.text) != kw {
		return logical{}, false
	}

	return l, true
}

// condition returns a header parser that compiles the expression following
// kw into *dst.
func (c *compiler) condition(l logical, kw string, dst **expression) func(string) error {
	return func(header string) error {
		src := strings.TrimSpace(strings.TrimPrefix(header, kw))
		if src == "" || keyword(header) != kw {
			return c.syntax(l, "'"+kw+"' requires an expression")
		}

		e, err := compileExpression(src)
		if err != nil {
			return c.fail(l.pos, WrapError(err))
		}

		*dst = e

		return nil
	}
}

// bare returns a header parser that accepts exactly kw.
func (c *compiler) bare(l logical, kw string) func(string) error {
	return func(header string) error {
		if header != kw {
			return c.syntax(l, "unexpected text after '"+kw+"'")
		}

		return nil
	}
}

func (c *compiler) ifStmt(l logical) (stmt, error) {
	s := &ifStmt{at: l.pos}

	for kw := "if"; ; kw = "elif" {
		var b branch

		body, err := c.clause(l, c.condition(l, kw, &b.cond))
		if err != nil {
			return nil, err
		}

		b.body = body
		s.branches = append(s.branches, b)

		next, ok := c.nextClause(l.depth, "elif")
		if !ok {
			break
		}

		l = next
	}

	if next, ok := c.nextClause(l.depth, "else"); ok {
		body, err := c.clause(next, c.bare(next, "else"))
		if err != nil {
			return nil, err
		}

		s.orElse = body
	}

	return s, nil
}

func (c *compiler) loopBody(l logical, parse func(string) error) ([]stmt, error) {
	c.loops++
	defer func() { c.loops-- }()

	return c.clause(l, parse)
}

func (c *compiler) loopElse(depth int) ([]stmt, error) {
	next, ok := c.nextClause(depth, "else")
	if !ok {
		return nil, nil
	}

	return c.clause(next, c.bare(next, "else"))
}

func (c *compiler) forStmt(l logical) (stmt, error) {
	s := &forStmt{at: l.pos}

	body, err := c.loopBody(l, func(header string) error {
		m := forPattern.FindStringSubmatch(header)
		if m == nil {
			return c.syntax(l, "expected 'for <names> in <expression>'")
		}

		e, err := compileExpression(m[2])
		if err != nil {
			return c.fail(l.pos, WrapError(err))
		}

		s.targets = splitNames(m[1])
		s.iter = e

		return nil
	})
	if err != nil {
		return nil, err
	}

	s.body = body

	if s.orElse, err = c.loopElse(l.depth); err != nil {
		return nil, err
	}

	return s, nil
}

func (c *compiler) whileStmt(l logical) (stmt, error) {
	s := &whileStmt{at: l.pos}

	body, err := c.loopBody(l, c.condition(l, "while", &s.cond))
	if err != nil {
		return nil, err
	}

	s.body = body

	if s.orElse, err = c.loopElse(l.depth); err != nil {
		return nil, err
	}

	return s, nil
}

func (c *compiler) tryStmt(l logical) (stmt, error) {
	s := &tryStmt{at: l.pos}

	body, err := c.clause(l, c.bare(l, "try"))
	if err != nil {
		return nil, err
	}

	s.body = body

	for {
		next, ok := c.nextClause(l.depth, "except")
		if !ok {
			break
		}

		var h handler

		body, err := c.clause(next, func(header string) error {
			m := exceptPattern.FindStringSubmatch(header)
			if m == nil {
				return c.syntax(next, "expected 'except [<expression>] [as <name>]'")
			}

			if m[1] != "" {
				e, err := compileExpression(m[1])
				if err != nil {
					return c.fail(next.pos, WrapError(err))
				}

				h.match = e
			}

			h.name = m[2]

			return nil
		})
		if err != nil {
			return nil, err
		}

		h.body = body
		s.handlers = append(s.handlers, h)
	}

	if next, ok := c.nextClause(l.depth, "else"); ok {
		if len(s.handlers) == 0 {
			return nil, c.syntax(next, "'else' requires an 'except' clause")
		}

		if s.orElse, err = c.clause(next, c.bare(next, "else")); err != nil {
			return nil, err
		}
	}

	if next, ok := c.nextClause(l.depth, "finally"); ok {
		if s.finally, err = c.clause(next, c.bare(next, "finally")); err != nil {
			return nil, err
		}

		s.hasFinally = true
	}

	if len(s.handlers) == 0 && !s.hasFinally {
		return nil, c.syntax(l, "'try' requires 'except' or 'finally'")
	}

	return s, nil
}

func (c *compiler) withStmt(l logical) (stmt, error) {
	s := &withStmt{at: l.pos}

	body, err := c.clause(l, func(header string) error {
		m := withPattern.FindStringSubmatch(header)
		if m == nil {
			return c.syntax(l, "expected 'with <expression> [as <name>]'")
		}

		e, err := compileExpression(m[1])
		if err != nil {
			return c.fail(l.pos, WrapError(err))
		}

		s.value, s.name = e, m[2]

		return nil
	})
	if err != nil {
		return nil, err
	}

	s.body = body

	return s, nil
}

func (c *compiler) defStmt(l logical) (stmt, error) {
	s := &defStmt{at: l.pos}

	loops := c.loops
	c.loops = 0

	defer func() { c.loops = loops }()

	body, err := c.clause(l, func(header string) error {
		m := defPattern.FindStringSubmatch(header)
		if m == nil {
			return c.syntax(l, "expected 'def <name>(<parameters>)'")
		}

		s.name = m[1]
		s.params = s.params[:0]

		for _, p := range splitTopLevel(m[2], ',') {
			pm := paramPattern.FindStringSubmatch(p)
			if pm == nil {
				return c.syntax(l, "invalid parameter "+p)
			}

			par := param{name: pm[1]}

			if pm[2] != "" {
				e, err := compileExpression(pm[2])
				if err != nil {
					return c.fail(l.pos, WrapError(err))
				}

				par.value = e
			} else if len(s.params) > 0 && s.params[len(s.params)-1].value != nil {
				return c.syntax(l, "parameter without default follows parameter with default")
			}

			s.params = append(s.params, par)
		}

		return nil
	})
	if err != nil {
		return nil, err
	}

	s.body = body

	return s, nil
}

func (c *compiler) classStmt(l logical) (stmt, error) {
	s := &classStmt{at: l.pos}

	body, err := c.clause(l, func(header string) error {
		m := classPattern.FindStringSubmatch(header)
		if m == nil {
			return c.syntax(l, "expected 'class <name>'")
		}

		s.name = m[1]

		return nil
	})
	if err != nil {
		return nil, err
	}

	s.body = body

	return s, nil
}

// simple compiles a statement that has no body.
func (c *compiler) simple(l logical, text string) ([]stmt, error) {
	text = strings.TrimSpace(text)
	kw := keyword(text)
	rest := strings.TrimSpace(strings.TrimPrefix(text, kw))

	switch {
	case text == "pass":
		return nil, nil

	case text == "break" || text == "continue":
		if c.loops == 0 {
			return nil, c.syntax(l, "'"+text+"' outside loop")
		}

		if text == "break" {
			return []stmt{&breakStmt{at: l.pos}}, nil
		}

		return []stmt{&continueStmt{at: l.pos}}, nil

	case kw == "return":
		s := &returnStmt{at: l.pos}

		if rest != "" {
			e, err := compileExpression(rest)
			if err != nil {
				return nil, c.fail(l.pos, WrapError(err))
			}

			s.value = e
		}

		return []stmt{s}, nil

	case kw == "raise":
		s := &raiseStmt{at: l.pos}

		if rest != "" {
			e, err := compileExpression(rest)
			if err != nil {
				return nil, c.fail(l.pos, WrapError(err))
			}

			s.value = e
		}

		return []stmt{s}, nil
	}

	if m := assignPattern.FindStringSubmatch(text); m != nil {
		return c.assign(l, m[1], m[2], m[3])
	}

	e, err := compileExpression(text)
	if err != nil {
		return nil, c.fail(l.pos, WrapError(err))
	}

	return []stmt{&exprStmt{at: l.pos, value: e}}, nil
}

func (c *compiler) assign(l logical, names, op, value string) ([]stmt, error) {
	targets := splitNames(names)
	value = strings.TrimSpace(value)

	if len(splitTopLevel(value, ',')) > 1 {
		value = "[" + value + "]"
	}

	if op != "=" {
		if len(targets) != 1 {
			return nil, c.syntax(l, "augmented assignment requires a single target")
		}

		value = targets[0] + " " + op[:1] + " (" + value + ")"
	}

	e, err := compileExpression(value)
	if err != nil {
		return nil, c.fail(l.pos, WrapError(err))
	}

	return []stmt{&assignStmt{at: l.pos, targets: targets, value: e}}, nil
}

func splitNames(list string) []string {
	return splitTopLevel(list, ',')
}

// topLevelColons returns the byte offsets of every ':' outside string
// literals and brackets.
func topLevelColons(s string) []int {
	var (
		at    []int
		quote rune
		depth int
		esc   bool
	)

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

		case r == ':' && depth == 0:
			at = append(at, i)
		}
	}

	return at
}
