// Package log is the leveled, structured logger used throughout trabant.
//
// It wraps [log/slog] with a [Logger] value type that is safe to copy and
// share, adds a [LevelTrace] below [LevelDebug] for the template compiler's
// stage-by-stage output, and styles terminal output with lipgloss.
//
//	logger := log.Make(os.Stderr, log.WithLevel(log.LevelDebug))
//	logger.Info("rendered", slog.String("template", name))
//
// The zero [Logger] discards everything. Packages that accept a logger
// through an option can therefore leave it unset.
//
// # Package-level logger
//
// The functions [Trace], [Info], [Error] and friends write through a
// package-level logger, which the command-line front end reconfigures with
// [Config] while it parses flags:
//
//	log.Config(log.WithFormat(log.FormatJSON), log.WithCaller(true))
//
// Functions without a context argument use [DefaultContextProvider].
//
// # Output
//
// Records are written as key=value text ([FormatText], the default) or as
// JSON ([FormatJSON]). With [WithPretty] enabled, text records are colored
// and JSON records are indented. Colors are only emitted when the output is
// a terminal that supports them.
//
// Timestamps follow [WithTimeLayout], which accepts the names of the
// layouts in package [time] or any custom layout.
package log
