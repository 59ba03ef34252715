package lang

// Builtins form the lowest layer of every template environment. Any of them
// may be shadowed by defaults or caller variables.

import (
	"html"
	"maps"
	"os"
	"path/filepath"
	"reflect"
	"runtime"
	"slices"
	"strings"
	"sync"

	"github.com/ardnew/mung"
)

//nolint:gochecknoglobals
var (
	builtinOnce  sync.Once
	builtinCache Env
)

// builtins returns a fresh copy of the builtin environment with env() reading
// processEnv, or the process environment when processEnv is nil.
func builtins(processEnv []string) Env {
	builtinOnce.Do(func() {
		builtinCache = Env{
			"platform": platform{OS: runtime.GOOS, Arch: runtime.GOARCH},
			"hostname": hostname(),
			"cwd":      cwd,
			"html":     html.EscapeString,

			"file": map[string]any{
				"exists":    fileExists,
				"isDir":     fileIsDir,
				"isRegular": fileIsRegular,
			},

			"path": map[string]any{
				"abs":  pathAbs,
				"base": filepath.Base,
				"dir":  filepath.Dir,
				"ext":  filepath.Ext,
				"join": pathJoin,
				"rel":  pathRel,
			},

			"mung": map[string]any{
				"prefix":   mungPrefix,
				"prefixif": mungPrefixIf,
			},
		}
	})

	env := maps.Clone(builtinCache)
	env["env"] = envFunc(processEnvMap(processEnv))

	return env
}

// BuiltinNames returns the sorted names bound by the builtin environment.
func BuiltinNames() []string {
	return slices.Sorted(maps.Keys(builtins(nil)))
}

// BuiltinLookup returns the sorted member names of the builtin namespace at
// the dot-separated path, or nil if the path is not a namespace. The empty
// path names the top level.
func BuiltinLookup(path string) []string {
	if path == "" {
		return BuiltinNames()
	}

	v, _ := Builtin(path)

	m, ok := v.(map[string]any)
	if !ok {
		return nil
	}

	return slices.Sorted(maps.Keys(m))
}

// Builtin returns the builtin value at the dot-separated path.
func Builtin(path string) (any, bool) {
	var current any = builtins(nil)

	for seg := range strings.SplitSeq(path, ".") {
		m, ok := current.(map[string]any)
		if !ok {
			return nil, false
		}

		if current, ok = m[seg]; !ok {
			return nil, false
		}
	}

	return current, true
}

// Locals returns the variables of an environment returned by
// [Template.Execute], without the builtins and the bindings the executor
// installs. A builtin that was rebound to a different value is kept.
func Locals(env Env) Env {
	builtin := builtins(nil)
	locals := make(Env, len(env))

	for k, v := range env {
		if slices.Contains(controlNames, k) {
			continue
		}

		if b, ok := builtin[k]; ok && sameValue(b, v) {
			continue
		}

		locals[k] = v
	}

	return locals
}

// sameValue reports whether a and b are the same value, comparing functions
// and maps by identity.
func sameValue(a, b any) bool {
	va, vb := reflect.ValueOf(a), reflect.ValueOf(b)
	if !va.IsValid() || !vb.IsValid() || va.Type() != vb.Type() {
		return false
	}

	switch va.Kind() {
	case reflect.Func, reflect.Map, reflect.Pointer:
		return va.Pointer() == vb.Pointer()
	default:
		return va.Comparable() && va.Equal(vb)
	}
}

// platform identifies the host operating system and architecture using Go
// naming conventions.
type platform struct {
	OS   string
	Arch string
}

func hostname() string {
	h, err := os.Hostname()
	if err != nil {
		return ""
	}

	return h
}

func cwd() string {
	dir, err := os.Getwd()
	if err != nil {
		return pathAbs(".")
	}

	return dir
}

func fileExists(path string) bool {
	_, err := os.Stat(path)

	return !os.IsNotExist(err)
}

func fileIsDir(path string) bool {
	info, err := os.Stat(path)

	return err == nil && info.IsDir()
}

func fileIsRegular(path string) bool {
	info, err := os.Stat(path)

	return err == nil && info.Mode().IsRegular()
}

func pathAbs(path string) string {
	p, err := filepath.Abs(path)
	if err != nil {
		return path
	}

	return p
}

func pathJoin(elem ...string) string {
	return filepath.Join(elem...)
}

func pathRel(from, to string) string {
	p, err := filepath.Rel(pathAbs(from), pathAbs(to))
	if err != nil {
		return pathJoin(from, to)
	}

	return p
}

// mungPrefix prepends items to a PATH-like list, removing duplicates.
func mungPrefix(list string, prefix ...string) string {
	return mung.Make(
		mung.WithSubjectItems(list),
		mung.WithDelim(string(os.PathListSeparator)),
		mung.WithPrefixItems(prefix...),
	).String()
}

// mungPrefixIf is mungPrefix keeping only the items accepted by predicate.
func mungPrefixIf(list string, predicate func(string) bool, prefix ...string) string {
	return mung.Make(
		mung.WithSubjectItems(list),
		mung.WithDelim(string(os.PathListSeparator)),
		mung.WithPrefixItems(prefix...),
		mung.WithFilter(predicate),
	).String()
}

// processEnvMap converts "KEY=VALUE" entries to a map. If entries is nil,
// os.Environ() is used.
func processEnvMap(entries []string) map[string]string {
	if entries == nil {
		entries = os.Environ()
	}

	m := make(map[string]string, len(entries))

	for _, entry := range entries {
		if key, value, ok := strings.Cut(entry, "="); ok {
			m[key] = value
		}
	}

	return m
}

func envFunc(vars map[string]string) func(string) string {
	return func(key string) string {
		return vars[key]
	}
}
