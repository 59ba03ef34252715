package cmd

import (
	"errors"
	"path/filepath"
	"testing"

	"github.com/alecthomas/kong"

	"github.com/vrde/trabant/pkg"
)

func TestReplRejectsStdin(t *testing.T) {
	ctx := WithSourceFiles(commandContext(t, t.TempDir(), &lockedBuffer{}), []string{"-"})

	err := (&Repl{}).Run(ctx)
	if !errors.Is(err, ErrRepl) || !errors.Is(err, ErrStdinSource) {
		t.Errorf("error = %v, want %v", err, ErrStdinSource)
	}
}

func TestCacheDir(t *testing.T) {
	if got := cacheDir(t.Context()); got != pkg.CacheDir() {
		t.Errorf("cacheDir without kong = %q, want %q", got, pkg.CacheDir())
	}

	want := filepath.Join(t.TempDir(), "cache")

	var cli struct{}

	parser, err := kong.New(&cli, kong.Vars{CacheIdentifier: want})
	if err != nil {
		t.Fatal(err)
	}

	ktx, err := parser.Parse(nil)
	if err != nil {
		t.Fatal(err)
	}

	if got := cacheDir(WithContext(t.Context(), ktx)); got != want {
		t.Errorf("cacheDir = %q, want %q", got, want)
	}
}
