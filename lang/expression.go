package lang

import (
	"log/slog"
	"slices"
	"strings"

	"github.com/expr-lang/expr"
	"github.com/expr-lang/expr/ast"
	"github.com/expr-lang/expr/vm"
)

// expression is a compiled expr-lang program together with the free names it
// reads from the environment.
type expression struct {
	src   string
	prog  *vm.Program
	names []string
}

// compileExpression compiles src without a typed environment, so the same
// program can run against any [Env]. Names are checked at evaluation time.
func compileExpression(src string) (*expression, error) {
	src = strings.TrimSpace(src)
	if src == "" {
		return nil, ErrExpression.With(slog.String("expression", src))
	}

	names := nameCollector{
		used:     map[string]struct{}{},
		declared: map[string]struct{}{},
	}

	prog, err := expr.Compile(src, expr.Patch(&names))
	if err != nil {
		return nil, ErrExpression.Wrap(err).With(slog.String("expression", src))
	}

	return &expression{src: src, prog: prog, names: names.free()}, nil
}

// eval runs the program against env. Every free name must be bound.
func (e *expression) eval(r *run, env Env, pos int) (any, error) {
	for _, name := range e.names {
		if _, ok := env[name]; !ok {
			return nil, r.fail(pos, ErrUndefined.With(
				slog.String("name", name),
				slog.String("expression", e.src),
			))
		}
	}

	out, err := vm.Run(e.prog, env)
	if err != nil {
		if cause := r.takePending(); cause != nil {
			return nil, cause
		}

		return nil, r.fail(pos, ErrEvaluate.Wrap(err).With(
			slog.String("expression", e.src),
		))
	}

	return out, nil
}

// nameCollector gathers the identifiers an expression reads. Names declared
// with let and names starting with '$' are not free.
type nameCollector struct {
	used     map[string]struct{}
	declared map[string]struct{}
}

// Visit implements ast.Visitor for nameCollector.
func (c *nameCollector) Visit(node *ast.Node) {
	switch n := (*node).(type) {
	case *ast.IdentifierNode:
		if !strings.HasPrefix(n.Value, "$") {
			c.used[n.Value] = struct{}{}
		}

	case *ast.VariableDeclaratorNode:
		c.declared[n.Name] = struct{}{}
	}
}

func (c *nameCollector) free() []string {
	names := make([]string, 0, len(c.used))

	for name := range c.used {
		if _, ok := c.declared[name]; !ok {
			names = append(names, name)
		}
	}

	slices.Sort(names)

	return names
}
