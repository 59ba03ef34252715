// Package cli contains the command line interface for trabant.
//
// # Usage
//
// Without a command, the named template is rendered to standard output:
//
//	trabant --path views --var user=ann page
//
// Other commands print the generated code of a template, render it again
// whenever its sources change, start an interactive session, or write the
// current flag values to the configuration file:
//
//	trabant compile --format yaml page
//	trabant watch --vars site.yaml page
//	trabant repl
//	trabant init
//
// # Configuration
//
// Flag defaults are read from config.yaml and config.json in the user's
// configuration directory. The YAML loader ([resolve]) maps flag names to
// values; hyphens in a name may be written as underscores:
//
//	log-level: debug
//	path: ./views
//	max_depth: 16
//
// Command-line flags override config file values.
//
// # Logging Options
//
//   - --log-level: Set minimum log level (trace, debug, info, warn, error)
//   - --log-format: Set log output format (text, json)
//   - --log-time-layout: Set timestamp format (Kitchen, RFC3339, none, etc.)
//   - --log-caller: Include caller information in log output
//   - --log-pretty: Colorize log output
//
// # Profiling Options
//
// Profiling is only available when built with the pprof build tag:
//
//	go build -tags pprof -o trabant .
//
// The profiling flags are:
//
//   - --pprof-mode: Enable profiling (allocs, block, clock, cpu, goroutine,
//     heap, mem, mutex, thread, trace)
//   - --pprof-dir: Set profile output directory (default:
//     ~/.cache/trabant/pprof)
package cli
