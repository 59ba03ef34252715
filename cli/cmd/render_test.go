package cmd

import (
	"bytes"
	"errors"
	"os"
	"path/filepath"
	"testing"

	"github.com/vrde/trabant/lang"
)

func TestRenderRun(t *testing.T) {
	t.Parallel()

	dir := t.TempDir()
	writeFiles(t, dir, map[string]string{
		"layout.tpl": "<main>\n%include\n</main>\n",
		"page.tpl":   "%rebase layout\nHello {{name}}!\n",
	})

	var buf bytes.Buffer

	r := &Render{Name: "page", Vars: Vars{Var: map[string]string{"name": "<you>"}}}

	if err := r.Run(commandContext(t, dir, &buf)); err != nil {
		t.Fatalf("Run error: %v", err)
	}

	want := "<main>\nHello &lt;you&gt;!\n</main>\n"
	if buf.String() != want {
		t.Errorf("output = %q, want %q", buf.String(), want)
	}
}

func TestRenderRunOutputFile(t *testing.T) {
	t.Parallel()

	dir := t.TempDir()
	writeFiles(t, dir, map[string]string{"page.tpl": "%for i in [1, 2, 3]:\n{{i}}\n%end\n"})

	out := filepath.Join(dir, "out.txt")
	r := &Render{Name: "page", Output: out}

	if err := r.Run(commandContext(t, dir, &bytes.Buffer{})); err != nil {
		t.Fatalf("Run error: %v", err)
	}

	data, err := os.ReadFile(out)
	if err != nil {
		t.Fatal(err)
	}

	if string(data) != "1\n2\n3\n" {
		t.Errorf("output file = %q", data)
	}
}

func TestRenderRunErrors(t *testing.T) {
	t.Parallel()

	dir := t.TempDir()
	writeFiles(t, dir, map[string]string{"broken.tpl": "%if true:\nopen\n"})

	tests := []struct {
		name string
		want error
	}{
		{"missing", lang.ErrResolve},
		{"broken", lang.ErrCompile},
	}

	for _, tt := range tests {
		r := &Render{Name: tt.name}

		err := r.Run(commandContext(t, dir, &bytes.Buffer{}))
		if !errors.Is(err, tt.want) {
			t.Errorf("%s: error = %v, want %v", tt.name, err, tt.want)
		}
	}
}
