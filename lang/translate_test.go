package lang

import (
	"errors"
	"slices"
	"testing"
)

// generate translates src and returns the generated code as text.
func generate(t *testing.T, src string, opts ...Option) (string, error) {
	t.Helper()

	var o options

	applyDefaults(&o)
	applyOptions(&o, opts...)

	lines, _, err := decodeLines("test", []byte(src), o.encoding)
	if err != nil {
		return "", err
	}

	code, err := translate("test", lines, &o)
	if err != nil {
		return "", err
	}

	return (&Code{Lines: code}).String(), nil
}

func TestTranslate(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name string
		src  string
		want string
	}{
		{
			name: "expressions",
			src:  "Hello {{name}}!\n",
			want: `_printlist(["Hello ", _escape(name), "!\n"])
`,
		},
		{
			name: "batched text",
			src:  "a\nb {{!x}}\n",
			want: `_printlist(["a\n", "b ", _str(x), "\n"])
`,
		},
		{
			name: "if else",
			src:  "%if x:\nA\n%else:\nB\n%end\n",
			want: `if x:
  _printlist(["A\n"])
else:
  _printlist(["B\n"])
  #end(if)
`,
		},
		{
			name: "end with trailing text",
			src:  "%for i in xs:\n{{i}}\n%end for loop\n",
			want: `for i in xs:
  _printlist([_escape(i), "\n"])
  #end(for) for loop
`,
		},
		{
			name: "nested blocks",
			src:  "%for i in xs:\n%if i > 1:\n{{i}}\n%end\n%end\n",
			want: `for i in xs:
  if i > 1:
    _printlist([_escape(i), "\n"])
    #end(if)
  #end(for)
`,
		},
		{
			name: "include and rebase",
			src: "%rebase layout title=\"T\"\n" +
				"%include header\n" +
				"%include 'footer', {\"a\": 1}\n" +
				"%include\n",
			want: `_rebase("layout", {"title": "T"})
_include("header", _stdout)
_include("footer", _stdout, {"a": 1})
_printlist(_base)
`,
		},
		{
			name: "comment directive",
			src:  "%# note\ntext\n",
			want: `# note
_printlist(["text\n"])
`,
		},
		{
			name: "multiline directive",
			src:  "%if a and \\\n%b:\nx\n%end\n",
			want: `if a and \
b:
  _printlist(["x\n"])
  #end(if)
`,
		},
		{
			name: "line joining",
			src:  "a\\\\\nb\n",
			want: `_printlist(["a", "b\n"])
`,
		},
		{
			name: "one-line block",
			src:  "%if x: y = 1\n%end\n",
			want: `if x: y = 1
`,
		},
		{
			name: "one-line if then block else",
			src:  "%if x: y = 1\n%else:\ny\n%end\n",
			want: `if x: y = 1
else:
  _printlist(["y\n"])
  #end(else)
`,
		},
		{
			name: "escaped marker",
			src:  "%%d\n",
			want: `_printlist(["%d\n"])
`,
		},
		{
			name: "empty",
			src:  "",
			want: "",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()

			got, err := generate(t, tt.src)
			if err != nil {
				t.Fatalf("translate error: %v", err)
			}

			if got != tt.want {
				t.Errorf("generated code mismatch\ngot:\n%s\nwant:\n%s", got, tt.want)
			}
		})
	}
}

func TestTranslateErrors(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name   string
		src    string
		opts   []Option
		detail *Error
		line   int
	}{
		{"unterminated block", "%if x:\nA\n", nil, ErrUnterminatedBlock, 1},
		{"unterminated outer block", "x\n%for x in y:\n%if x:\n%end\n", nil, ErrUnterminatedBlock, 2},
		{"orphan clause", "a\n%else:\n", nil, ErrOrphanClause, 2},
		{"text after continuation", "%if a and \\\ntext\n", nil, ErrUnterminatedContinuation, 2},
		{"empty expression", "ok\n{{ }}\n", nil, ErrExpression, 2},
		{"rebase without name", "%rebase\n", nil, ErrArguments, 1},
		{"mixed arguments", "%include sub a=1, b\n", nil, ErrArguments, 1},
		{"unterminated name", "%include \"sub\n", nil, ErrArguments, 1},
		{"strict stray end", "a\n%end\n", []Option{WithStrictEnd(true)}, ErrStrayEnd, 2},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()

			_, err := generate(t, tt.src, tt.opts...)
			if err == nil {
				t.Fatal("expected error")
			}

			if !errors.Is(err, ErrCompile) {
				t.Errorf("error %v is not ErrCompile", err)
			}

			if !errors.Is(err, tt.detail) {
				t.Errorf("error %v is not %v", err, tt.detail)
			}

			var e *Error
			if !errors.As(err, &e) {
				t.Fatalf("error %T is not *Error", err)
			}

			if e.Template() != "test" || e.Line() != tt.line {
				t.Errorf("error at %q line %d, want %q line %d", e.Template(), e.Line(), "test", tt.line)
			}
		})
	}
}

func TestTranslateStrayEnd(t *testing.T) {
	t.Parallel()

	got, err := generate(t, "a\n%end\nb\n")
	if err != nil {
		t.Fatalf("translate error: %v", err)
	}

	want := `_printlist(["a\n"])
_printlist(["b\n"])
`
	if got != want {
		t.Errorf("got:\n%s\nwant:\n%s", got, want)
	}
}

func TestDirectiveArgs(t *testing.T) {
	t.Parallel()

	tests := []struct {
		args, name, extra string
	}{
		{"", "", ""},
		{"sub", "sub", ""},
		{`"sub dir/page"`, "sub dir/page", ""},
		{"sub, x=1", "sub", `{"x": 1}`},
		{`sub x = 1, y = "a,b"`, "sub", `{"x": 1, "y": "a,b"}`},
		{"sub vars", "sub", "vars"},
		{`sub {"k": [1, 2]}`, "sub", `{"k": [1, 2]}`},
	}

	for _, tt := range tests {
		name, extra, err := directiveArgs(tt.args)
		if err != nil {
			t.Errorf("directiveArgs(%q) error: %v", tt.args, err)

			continue
		}

		if name != tt.name || extra != tt.extra {
			t.Errorf("directiveArgs(%q) = %q, %q, want %q, %q",
				tt.args, name, extra, tt.name, tt.extra)
		}
	}
}

func TestSplitTopLevel(t *testing.T) {
	t.Parallel()

	tests := []struct {
		in   string
		want []string
	}{
		{"a, b", []string{"a", "b"}},
		{`f(a, b), "c,d", [e, f]`, []string{"f(a, b)", `"c,d"`, "[e, f]"}},
		{" , a ,, ", []string{"a"}},
		{`'it\'s, fine', x`, []string{`'it\'s, fine'`, "x"}},
	}

	for _, tt := range tests {
		if got := splitTopLevel(tt.in, ','); !slices.Equal(got, tt.want) {
			t.Errorf("splitTopLevel(%q) = %q, want %q", tt.in, got, tt.want)
		}
	}
}
