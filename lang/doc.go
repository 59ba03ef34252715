// Package lang compiles and renders text templates.
//
// A template is plain text with two kinds of markup:
//
//   - Inline substitutions: {{expr}} inserts the escaped value of expr,
//     {{!expr}} inserts it unescaped.
//   - Directive lines: a line whose first non-blank character is '%' holds a
//     statement. A line starting with "%%" is literal text starting with '%'.
//
// Block statements end with ':' and are closed by %end:
//
//	%for item in items:
//	  <li>{{item.name}}</li>
//	%end
//	%if len(items) == 0:
//	  <p>nothing here</p>
//	%else:
//	  <p>{{len(items)}} items</p>
//	%end
//
// Expressions use the expr-lang syntax (github.com/expr-lang/expr). The
// statement forms are if/elif/else, for/else, while/else,
// try/except/else/finally, with, def, class, assignment, pass, break,
// continue, return and raise.
//
// %include name [vars] renders another template in place and %rebase name
// [vars] renders the output of this one inside a layout, which re-emits it
// with a bare %include. Names are resolved by a [Renderer].
//
// # Compilation
//
// Compilation has two stages. The first classifies each source line,
// tracks open blocks and emits generated code, one statement per line with
// its block depth; see [Code]. The second parses the generated code into a
// statement tree with every expression compiled to an expr-lang program.
//
// An encoding declaration on the first or second line selects the source
// encoding:
//
//	%# coding: latin-1
//
// # Scoping
//
// Innermost shadows outermost:
//
//  1. Builtins (platform, hostname, cwd, env, html, file.*, path.*, mung.*)
//  2. Template defaults ([WithDefaults])
//  3. Control bindings used by generated code (_stdout, _printlist, ...)
//  4. Variables passed to [Template.Execute], left to right
package lang
