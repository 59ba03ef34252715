// Package profile starts optional runtime profiling for the command.
//
// Profiling is compiled in only with the "pprof" build tag:
//
//	go build -tags pprof .
//
// Without the tag, [Modes] is empty and [Profiler.Start] returns a no-op
// [Stopper], so callers never need build constraints of their own.
//
// With the tag, [github.com/pkg/profile] writes one profile per run into
// [Profiler.Path], named after the mode (cpu.pprof, mem.pprof and so on),
// and [net/http/pprof] handlers are registered on the default mux. Inspect
// the output with
//
//	go tool pprof -http=: trabant cpu.pprof
//
// Rendering many templates under the "cpu" or "allocs" mode is the usual
// way to find hot spots in the template compiler.
package profile

// Tag is the build tag that enables profiling.
const Tag = `pprof`
