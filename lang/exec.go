package lang

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"maps"
	"strings"
)

// flow is the control transfer requested by an executed statement.
type flow int

const (
	flowNext flow = iota
	flowBreak
	flowContinue
	flowReturn
)

// stmt is one executable statement.
type stmt interface {
	exec(r *run, env Env) (flow, error)
}

// run is the state of one template execution.
type run struct {
	ctx   context.Context
	tpl   *Template
	cache *Cache
	depth int // include and call nesting
	input Env // merged caller variables, passed on to includes

	rebase  *rebaseRequest
	pending error // error raised inside a host function call
	caught  error // error handled by the innermost except clause
	result  any   // value of the last return statement
}

type rebaseRequest struct {
	name string
	vars Env
}

func (r *run) fail(pos int, detail *Error) error {
	return ErrRender.At(r.tpl.name, pos).Wrap(detail)
}

// raise records err for the expression evaluation that called into a host
// function, so it reaches the caller unchanged instead of as an evaluation
// failure of the calling expression.
func (r *run) raise(err error) error {
	if isClassified(err) {
		r.pending = err
	}

	return err
}

func (r *run) takePending() error {
	err := r.pending
	r.pending = nil

	return err
}

// block executes statements in order until one transfers control.
func (r *run) block(body []stmt, env Env) (flow, error) {
	for _, s := range body {
		if err := r.ctx.Err(); err != nil {
			return flowNext, ErrRender.At(r.tpl.name, 0).Wrap(err)
		}

		f, err := s.exec(r, env)
		if err != nil || f != flowNext {
			return f, err
		}
	}

	return flowNext, nil
}

type exprStmt struct {
	at    int
	value *expression
}

func (s *exprStmt) exec(r *run, env Env) (flow, error) {
	_, err := s.value.eval(r, env, s.at)

	return flowNext, err
}

type assignStmt struct {
	at      int
	targets []string
	value   *expression
}

func (s *assignStmt) exec(r *run, env Env) (flow, error) {
	v, err := s.value.eval(r, env, s.at)
	if err != nil {
		return flowNext, err
	}

	return flowNext, r.assign(env, s.at, s.targets, v)
}

// assign binds v to targets, unpacking v when there is more than one target.
func (r *run) assign(env Env, pos int, targets []string, v any) error {
	if len(targets) == 1 {
		env[targets[0]] = v

		return nil
	}

	items, err := unpack(v, len(targets))
	if err != nil {
		return r.fail(pos, ErrInvalidValueType.Wrap(err))
	}

	for i, name := range targets {
		env[name] = items[i]
	}

	return nil
}

type branch struct {
	cond *expression
	body []stmt
}

type ifStmt struct {
	at       int
	branches []branch
	orElse   []stmt
}

func (s *ifStmt) exec(r *run, env Env) (flow, error) {
	for _, b := range s.branches {
		v, err := b.cond.eval(r, env, s.at)
		if err != nil {
			return flowNext, err
		}

		if truthy(v) {
			return r.block(b.body, env)
		}
	}

	return r.block(s.orElse, env)
}

type forStmt struct {
	at      int
	targets []string
	iter    *expression
	body    []stmt
	orElse  []stmt
}

func (s *forStmt) exec(r *run, env Env) (flow, error) {
	v, err := s.iter.eval(r, env, s.at)
	if err != nil {
		return flowNext, err
	}

	items, err := iterate(v, len(s.targets))
	if err != nil {
		return flowNext, r.fail(s.at, ErrInvalidValueType.Wrap(err).With(
			slog.String("expression", s.iter.src),
		))
	}

	for _, item := range items {
		if err := r.assign(env, s.at, s.targets, item); err != nil {
			return flowNext, err
		}

		f, err := r.block(s.body, env)
		if err != nil {
			return f, err
		}

		switch f {
		case flowBreak:
			return flowNext, nil
		case flowReturn:
			return f, nil
		}
	}

	return r.block(s.orElse, env)
}

type whileStmt struct {
	at     int
	cond   *expression
	body   []stmt
	orElse []stmt
}

func (s *whileStmt) exec(r *run, env Env) (flow, error) {
	for {
		if err := r.ctx.Err(); err != nil {
			return flowNext, ErrRender.At(r.tpl.name, s.at).Wrap(err)
		}

		v, err := s.cond.eval(r, env, s.at)
		if err != nil {
			return flowNext, err
		}

		if !truthy(v) {
			break
		}

		f, err := r.block(s.body, env)
		if err != nil {
			return f, err
		}

		switch f {
		case flowBreak:
			return flowNext, nil
		case flowReturn:
			return f, nil
		}
	}

	return r.block(s.orElse, env)
}

type handler struct {
	match *expression // nil matches every error
	name  string
	body  []stmt
}

type tryStmt struct {
	at         int
	body       []stmt
	handlers   []handler
	orElse     []stmt
	finally    []stmt
	hasFinally bool
}

func (s *tryStmt) exec(r *run, env Env) (flow, error) {
	f, err := r.block(s.body, env)

	switch {
	case err == nil:
		if f == flowNext {
			f, err = r.block(s.orElse, env)
		}

	case !errors.Is(err, context.Canceled) && !errors.Is(err, context.DeadlineExceeded):
		f, err = s.handle(r, env, err)
	}

	if !s.hasFinally {
		return f, err
	}

	ff, ferr := r.block(s.finally, env)
	if ferr != nil || ff != flowNext {
		return ff, ferr
	}

	return f, err
}

// handle runs the first handler matching err, or returns err unchanged.
func (s *tryStmt) handle(r *run, env Env, err error) (flow, error) {
	for _, h := range s.handlers {
		if h.match != nil {
			v, merr := h.match.eval(r, env, s.at)
			if merr != nil {
				return flowNext, merr
			}

			if !strings.Contains(err.Error(), r.tpl.str(v)) {
				continue
			}
		}

		if h.name != "" {
			env[h.name] = err.Error()
		}

		outer := r.caught
		r.caught = err

		f, herr := r.block(h.body, env)

		r.caught = outer

		return f, herr
	}

	return flowNext, err
}

type withStmt struct {
	at    int
	value *expression
	name  string
	body  []stmt
}

func (s *withStmt) exec(r *run, env Env) (flow, error) {
	v, err := s.value.eval(r, env, s.at)
	if err != nil {
		return flowNext, err
	}

	if s.name != "" {
		env[s.name] = v
	}

	return r.block(s.body, env)
}

type param struct {
	name  string
	value *expression // default, evaluated at definition
}

type defStmt struct {
	at     int
	name   string
	params []param
	body   []stmt
}

// exec binds a callable. A call runs the body against a copy of the defining
// environment with its own output buffer, and returns the value of a return
// statement or else the rendered output.
func (s *defStmt) exec(r *run, env Env) (flow, error) {
	defaults := make([]any, len(s.params))

	for i, p := range s.params {
		if p.value == nil {
			continue
		}

		v, err := p.value.eval(r, env, s.at)
		if err != nil {
			return flowNext, err
		}

		defaults[i] = v
	}

	env[s.name] = func(args ...any) (any, error) {
		if len(args) > len(s.params) {
			return nil, r.raise(r.fail(s.at, ErrArguments.With(
				slog.String("function", s.name),
				slog.Int("want", len(s.params)),
				slog.Int("got", len(args)),
			)))
		}

		if r.depth >= r.tpl.opts.maxDepth {
			return nil, r.raise(r.fail(s.at, ErrMaxDepthExceeded.With(
				slog.String("function", s.name),
			)))
		}

		local := maps.Clone(env)

		for i, p := range s.params {
			switch {
			case i < len(args):
				local[p.name] = args[i]
			case p.value != nil:
				local[p.name] = defaults[i]
			default:
				return nil, r.raise(r.fail(s.at, ErrArguments.With(
					slog.String("function", s.name),
					slog.String("missing", p.name),
				)))
			}
		}

		out := new(Buffer)
		r.bind(local, out)

		r.depth++
		f, err := r.block(s.body, local)
		r.depth--

		if err != nil {
			return nil, r.raise(err)
		}

		if f == flowReturn {
			v := r.result
			r.result = nil

			return v, nil
		}

		return out.String(), nil
	}

	return flowNext, nil
}

type classStmt struct {
	at   int
	name string
	body []stmt
}

// exec runs the body in a copy of env and binds the names it assigns as a
// map.
func (s *classStmt) exec(r *run, env Env) (flow, error) {
	local := maps.Clone(env)

	if _, err := r.block(s.body, local); err != nil {
		return flowNext, err
	}

	members := make(map[string]any)

	for _, name := range boundNames(s.body) {
		members[name] = local[name]
	}

	env[s.name] = members

	return flowNext, nil
}

type breakStmt struct{ at int }

func (*breakStmt) exec(*run, Env) (flow, error) { return flowBreak, nil }

type continueStmt struct{ at int }

func (*continueStmt) exec(*run, Env) (flow, error) { return flowContinue, nil }

type returnStmt struct {
	at    int
	value *expression
}

func (s *returnStmt) exec(r *run, env Env) (flow, error) {
	r.result = nil

	if s.value != nil {
		v, err := s.value.eval(r, env, s.at)
		if err != nil {
			return flowNext, err
		}

		r.result = v
	}

	return flowReturn, nil
}

type raiseStmt struct {
	at    int
	value *expression
}

func (s *raiseStmt) exec(r *run, env Env) (flow, error) {
	if s.value == nil {
		if r.caught == nil {
			return flowNext, r.fail(s.at, ErrRaised.Wrap(NewError("no active error to re-raise")))
		}

		return flowNext, r.caught
	}

	v, err := s.value.eval(r, env, s.at)
	if err != nil {
		return flowNext, err
	}

	if e, ok := v.(error); ok {
		return flowNext, r.fail(s.at, ErrRaised.Wrap(e))
	}

	return flowNext, r.fail(s.at, ErrRaised.Wrap(errors.New(r.tpl.str(v))))
}

// boundNames returns the names assigned by the top level of body.
func boundNames(body []stmt) []string {
	var names []string

	for _, s := range body {
		switch s := s.(type) {
		case *assignStmt:
			names = append(names, s.targets...)
		case *defStmt:
			names = append(names, s.name)
		case *classStmt:
			names = append(names, s.name)
		case *forStmt:
			names = append(names, s.targets...)
		case *withStmt:
			if s.name != "" {
				names = append(names, s.name)
			}
		}
	}

	return names
}

// bind installs the control bindings used by generated code, writing output
// to out.
func (r *run) bind(env Env, out *Buffer) {
	env[nameStdout] = out
	env[namePrintlist] = func(items any) (any, error) {
		parts, err := printItems(items, r.tpl.str)
		if err != nil {
			return nil, err
		}

		out.Append(parts...)

		return nil, nil
	}
	env[nameInclude] = r.include
	env[nameRebase] = r.requestRebase
	env[nameStr] = r.tpl.str
	env[nameEscape] = r.tpl.esc
}

// include executes a named sub-template and appends its output to the buffer
// passed as the second argument. Maps in the remaining arguments are merged in
// order, then overridden by the variables this template was executed with.
func (r *run) include(args ...any) (any, error) {
	if len(args) < 2 {
		return nil, fmt.Errorf("%s: want name and output buffer, got %d arguments", nameInclude, len(args))
	}

	name, ok := args[0].(string)
	if !ok {
		return nil, fmt.Errorf("%s: template name must be a string, got %T", nameInclude, args[0])
	}

	out, ok := args[1].(*Buffer)
	if !ok {
		return nil, fmt.Errorf("%s: output must be %s, got %T", nameInclude, nameStdout, args[1])
	}

	vars := make([]Env, 0, len(args)-1)

	for _, a := range args[2:] {
		m, err := toEnv(a)
		if err != nil {
			return nil, fmt.Errorf("%s: %w", nameInclude, err)
		}

		vars = append(vars, m)
	}

	vars = append(vars, r.input)

	child, err := r.lookup(name)
	if err != nil {
		return nil, r.raise(err)
	}

	r.tpl.opts.logger.TraceContext(r.ctx, "include",
		slog.String("template", r.tpl.name),
		slog.String("include", name),
		slog.Int("depth", r.depth+1),
	)

	buf := new(Buffer)
	if _, err := child.execute(r.ctx, buf, r.cache, r.depth+1, vars...); err != nil {
		return nil, r.raise(err)
	}

	out.Append(buf.Snapshot()...)

	return nil, nil
}

// requestRebase records that the output is to be wrapped by the named
// template once execution completes. The last request wins.
func (r *run) requestRebase(name string, vars any) (any, error) {
	m, err := toEnv(vars)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", nameRebase, err)
	}

	r.rebase = &rebaseRequest{name: name, vars: m}

	return nil, nil
}

// lookup resolves a sub-template through the renderer the template is bound
// to, memoized in the execution cache.
func (r *run) lookup(name string) (*Template, error) {
	if r.tpl.opts.renderer == nil {
		return nil, ErrResolve.At(name, 0).Wrap(ErrNoRenderer)
	}

	return r.cache.load(r.ctx, r.tpl.opts.renderer, name)
}
