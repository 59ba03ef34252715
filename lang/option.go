package lang

import (
	"html"
	"maps"

	"github.com/vrde/trabant/log"
)

// DefaultMaxDepth is the default maximum nesting of includes and calls of
// template-defined functions. Users may modify this before parsing to change
// the default.
var DefaultMaxDepth = 64

// options holds the settings of a [Template]. They are fixed when the
// template is built.
type options struct {
	defaults   Env
	escape     func(string) string
	noEscape   bool
	encoding   string
	strictEnd  bool
	maxDepth   int
	processEnv []string
	cache      *Cache
	renderer   *Renderer
	logger     log.Logger // zero value is a no-op
}

// Option configures how a [Template] is built and executed.
type Option func(*options)

// WithDefaults sets variables bound in every execution, below the variables
// passed by the caller. Repeated use merges, later values winning.
func WithDefaults(vars Env) Option {
	return func(o *options) {
		o.defaults = mergeEnv(o.defaults, vars)
	}
}

// WithEscape sets the function applied to the text of {{expr}} substitutions.
// The default escapes HTML special characters.
func WithEscape(escape func(string) string) Option {
	return func(o *options) {
		if escape != nil {
			o.escape = escape
		}
	}
}

// WithNoEscape disables escaping, so {{expr}} and {{!expr}} are equivalent.
func WithNoEscape(noEscape bool) Option {
	return func(o *options) {
		o.noEscape = noEscape
	}
}

// WithEncoding sets the encoding of template source and of byte values
// substituted into the output. A declaration in the first two lines of the
// source overrides it.
func WithEncoding(name string) Option {
	return func(o *options) {
		if name != "" {
			o.encoding = name
		}
	}
}

// WithStrictEnd makes an %end directive with no open block a compile error
// instead of being ignored.
func WithStrictEnd(strict bool) Option {
	return func(o *options) {
		o.strictEnd = strict
	}
}

// WithMaxDepth sets the maximum nesting of includes and function calls.
func WithMaxDepth(depth int) Option {
	return func(o *options) {
		if depth > 0 {
			o.maxDepth = depth
		}
	}
}

// WithProcessEnv sets the variables read by the env() builtin.
// The format is []string{"KEY=VALUE", ...}. If nil, os.Environ() is used.
func WithProcessEnv(env []string) Option {
	return func(o *options) {
		o.processEnv = env
	}
}

// WithCache shares a sub-template cache across executions. Without it, each
// execution uses its own cache.
func WithCache(cache *Cache) Option {
	return func(o *options) {
		o.cache = cache
	}
}

// WithRenderer binds the template to the renderer that resolves its
// includes and rebases.
func WithRenderer(r *Renderer) Option {
	return func(o *options) {
		o.renderer = r
	}
}

// WithLogger sets the structured logger for trace-level debugging.
// If not provided, the logger is zero-valued and all logging is a no-op.
func WithLogger(logger log.Logger) Option {
	return func(o *options) {
		o.logger = logger
	}
}

// applyDefaults sets default option values.
func applyDefaults(o *options) {
	o.escape = html.EscapeString
	o.encoding = DefaultEncoding
	o.maxDepth = DefaultMaxDepth
}

// applyOptions applies functional options.
func applyOptions(o *options, opts ...Option) {
	for _, opt := range opts {
		opt(o)
	}

	o.defaults = maps.Clone(o.defaults)
}
