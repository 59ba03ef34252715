package log

import (
	"bytes"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"sync"
	"testing"
)

func typeName(v any) string { return fmt.Sprintf("%T", v) }

// plain returns a logger whose records carry no timestamp.
func plain(buf *bytes.Buffer, opts ...Option) Logger {
	return Make(buf, append([]Option{WithTimeLayout("none")}, opts...)...)
}

func TestMakeDefaults(t *testing.T) {
	t.Parallel()

	var buf bytes.Buffer

	l := Make(&buf)

	if l.Level() != DefaultLevel || l.Format() != DefaultFormat {
		t.Errorf("level %v format %v", l.Level(), l.Format())
	}

	if l.caller != DefaultCaller || l.pretty != DefaultPretty {
		t.Errorf("caller %v pretty %v", l.caller, l.pretty)
	}
}

func TestZeroLogger(t *testing.T) {
	t.Parallel()

	var l Logger

	l.Info("dropped")
	l.TraceContext(t.Context(), "dropped")

	if l.Level() != DefaultLevel || l.Format() != DefaultFormat {
		t.Errorf("zero logger level %v format %v", l.Level(), l.Format())
	}

	if l.Enabled(t.Context(), LevelError) {
		t.Error("zero logger enabled")
	}

	if w := l.With(slog.String("k", "v")); w.Logger != nil {
		t.Error("With on zero logger produced a live logger")
	}
}

func TestLevelFiltering(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name   string
		log    func(Logger, string, ...slog.Attr)
		min    Level
		logged bool
	}{
		{"trace at trace", Logger.Trace, LevelTrace, true},
		{"trace at debug", Logger.Trace, LevelDebug, false},
		{"debug at info", Logger.Debug, LevelInfo, false},
		{"info at info", Logger.Info, LevelInfo, true},
		{"warn at error", Logger.Warn, LevelError, false},
		{"error at debug", Logger.Error, LevelDebug, true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()

			var buf bytes.Buffer

			tt.log(plain(&buf, WithLevel(tt.min)), "message")

			if got := buf.Len() > 0; got != tt.logged {
				t.Errorf("logged = %v, want %v: %q", got, tt.logged, buf.String())
			}
		})
	}
}

func TestPrettyText(t *testing.T) {
	t.Parallel()

	var buf bytes.Buffer

	l := plain(&buf, WithLevel(LevelTrace))
	l.Trace("compiled", slog.String("template", "page"), slog.Int("lines", 3))

	want := "level=TRACE msg=compiled template=page lines=3\n"
	if buf.String() != want {
		t.Errorf("output = %q, want %q", buf.String(), want)
	}
}

func TestPrettyTextQuoting(t *testing.T) {
	t.Parallel()

	var buf bytes.Buffer

	plain(&buf).Warn("two words",
		slog.String("empty", ""),
		slog.Bool("ok", false),
		slog.Any("err", errors.New("bad input")),
	)

	want := `level=WARN msg="two words" empty="" ok=false err="bad input"` + "\n"
	if buf.String() != want {
		t.Errorf("output = %q, want %q", buf.String(), want)
	}
}

func TestPrettyTextGroups(t *testing.T) {
	t.Parallel()

	var buf bytes.Buffer

	l := plain(&buf)
	l = l.With(slog.String("cmd", "render"))
	l.Logger = l.WithGroup("tpl")
	l.Info("done", slog.String("name", "a"), slog.Group("pos", slog.Int("line", 2)))

	want := "level=INFO msg=done cmd=render tpl.name=a tpl.pos.line=2\n"
	if buf.String() != want {
		t.Errorf("output = %q, want %q", buf.String(), want)
	}
}

func TestPrettyJSON(t *testing.T) {
	t.Parallel()

	var buf bytes.Buffer

	l := plain(&buf, WithFormat(FormatJSON)).With(slog.String("cmd", "render"))
	l.Error("failed",
		slog.Group("template", slog.String("name", "page"), slog.Int("line", 4)),
		slog.Any("err", errors.New("boom")),
	)

	if !strings.Contains(buf.String(), "\n  ") {
		t.Errorf("output not indented: %q", buf.String())
	}

	var got map[string]any
	if err := json.Unmarshal(buf.Bytes(), &got); err != nil {
		t.Fatalf("invalid JSON %q: %v", buf.String(), err)
	}

	if got["level"] != "ERROR" || got["msg"] != "failed" || got["cmd"] != "render" || got["err"] != "boom" {
		t.Errorf("record = %v", got)
	}

	tpl, ok := got["template"].(map[string]any)
	if !ok || tpl["name"] != "page" || tpl["line"] != 4.0 {
		t.Errorf("template group = %v", got["template"])
	}
}

func TestStandardHandlers(t *testing.T) {
	t.Parallel()

	var buf bytes.Buffer

	plain(&buf, WithFormat(FormatJSON), WithPretty(false), WithLevel(LevelTrace)).
		Trace("step", slog.String("key", "value"))

	var got map[string]any
	if err := json.Unmarshal(buf.Bytes(), &got); err != nil {
		t.Fatalf("invalid JSON %q: %v", buf.String(), err)
	}

	if got["level"] != "TRACE" || got["key"] != "value" {
		t.Errorf("record = %v", got)
	}

	if _, ok := got["time"]; ok {
		t.Errorf("timestamp present: %v", got)
	}

	buf.Reset()
	plain(&buf, WithPretty(false)).Info("step", slog.String("key", "value"))

	if buf.String() != "level=INFO msg=step key=value\n" {
		t.Errorf("text output = %q", buf.String())
	}
}

func TestCaller(t *testing.T) {
	t.Parallel()

	var buf bytes.Buffer

	plain(&buf, WithCaller(true)).Info("here")

	if !strings.Contains(buf.String(), "source=") || !strings.Contains(buf.String(), "log_test.go:") {
		t.Errorf("caller missing: %q", buf.String())
	}

	buf.Reset()
	plain(&buf).Info("here")

	if strings.Contains(buf.String(), "source=") {
		t.Errorf("caller present: %q", buf.String())
	}
}

func TestWrap(t *testing.T) {
	t.Parallel()

	var buf bytes.Buffer

	base := plain(&buf)
	debug := base.Wrap(WithLevel(LevelDebug))

	if base.Level() != LevelInfo || debug.Level() != LevelDebug {
		t.Errorf("levels = %v, %v", base.Level(), debug.Level())
	}

	debug.Debug("visible")

	if !strings.Contains(buf.String(), "visible") {
		t.Errorf("wrapped logger lost output: %q", buf.String())
	}

	var zero Logger
	if zero.Wrap(WithLevel(LevelWarn)).Level() != LevelWarn {
		t.Error("Wrap on zero logger ignored options")
	}
}

func TestConcurrentLogging(t *testing.T) {
	t.Parallel()

	var buf bytes.Buffer

	l := plain(&buf)

	var wg sync.WaitGroup

	for i := range 100 {
		wg.Go(func() { l.Info("message", slog.Int("id", i)) })
	}

	wg.Wait()

	if n := strings.Count(buf.String(), "\n"); n != 100 {
		t.Errorf("got %d lines, want 100", n)
	}
}
