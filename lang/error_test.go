package lang

import (
	"errors"
	"log/slog"
	"strings"
	"testing"
)

func TestErrorFormat(t *testing.T) {
	t.Parallel()

	err := ErrCompile.At("page", 7).Wrap(
		ErrUnterminatedBlock.With(slog.String("keyword", "if")),
	)

	want := `compile template "page" line 7: unterminated block (keyword="if")`
	if got := err.Error(); got != want {
		t.Errorf("Error() = %q, want %q", got, want)
	}

	if !errors.Is(err, ErrCompile) || !errors.Is(err, ErrUnterminatedBlock) {
		t.Error("error does not match its class and detail")
	}

	if errors.Is(err, ErrRender) {
		t.Error("compile error matches ErrRender")
	}

	if err.Template() != "page" || err.Line() != 7 {
		t.Errorf("location = %q:%d", err.Template(), err.Line())
	}
}

func TestErrorImmutable(t *testing.T) {
	t.Parallel()

	_ = ErrRender.At("x", 1).With(slog.Int("n", 1))

	if ErrRender.Template() != "" || ErrRender.Line() != 0 || ErrRender.Error() != "render template" {
		t.Errorf("sentinel modified: %q", ErrRender.Error())
	}
}

func TestWrapError(t *testing.T) {
	t.Parallel()

	inner := ErrRaised.At("t", 2)
	if got := WrapError(inner); got != inner {
		t.Error("WrapError did not return the existing *Error")
	}

	plain := errors.New("plain")
	if got := WrapError(plain); !errors.Is(got, plain) {
		t.Error("WrapError lost the wrapped error")
	}
}

func TestErrorLogValue(t *testing.T) {
	t.Parallel()

	err := ErrRender.At("page", 3).Wrap(errors.New("cause")).With(slog.String("k", "v"))

	var sb strings.Builder

	slog.New(slog.NewTextHandler(&sb, nil)).Error("failed", slog.Any("error", err))

	for _, want := range []string{
		`error.error="render template"`,
		"error.template=page",
		"error.line=3",
		"error.cause=cause",
		"error.k=v",
	} {
		if !strings.Contains(sb.String(), want) {
			t.Errorf("log output %q lacks %q", sb.String(), want)
		}
	}
}
