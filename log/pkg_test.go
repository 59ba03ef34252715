package log

import (
	"bytes"
	"log/slog"
	"strings"
	"testing"
)

func TestPackageFunctions(t *testing.T) {
	saved := Default()
	t.Cleanup(func() { defaultLog = saved })

	var buf bytes.Buffer

	Config(WithOutput(&buf), WithLevel(LevelTrace), WithTimeLayout("none"), WithPretty(false))

	tests := []struct {
		fn    func(string, ...slog.Attr)
		level string
	}{
		{Trace, "TRACE"},
		{Debug, "DEBUG"},
		{Info, "INFO"},
		{Warn, "WARN"},
		{Error, "ERROR"},
	}

	for _, tt := range tests {
		buf.Reset()
		tt.fn("message", slog.String("key", "value"))

		want := "level=" + tt.level + " msg=message key=value\n"
		if buf.String() != want {
			t.Errorf("output = %q, want %q", buf.String(), want)
		}
	}

	buf.Reset()
	With(slog.String("scope", "test")).Info("scoped")

	if !strings.Contains(buf.String(), "scope=test") {
		t.Errorf("With output = %q", buf.String())
	}
}

func TestPackageCaller(t *testing.T) {
	saved := Default()
	t.Cleanup(func() { defaultLog = saved })

	var buf bytes.Buffer

	Config(WithOutput(&buf), WithCaller(true), WithPretty(false))
	InfoContext(t.Context(), "here")

	if !strings.Contains(buf.String(), "pkg_test.go:") {
		t.Errorf("caller is not the call site: %q", buf.String())
	}
}
