package cmd

import (
	"context"
	"io"
	"os"
	"path/filepath"
	"slices"
	"syscall"

	"github.com/alecthomas/kong"

	"github.com/vrde/trabant/lang"
	"github.com/vrde/trabant/log"
	"github.com/vrde/trabant/pkg"
)

// ContextKey is used to store a [kong.Context] value in [context.Context].
type contextKey struct{}

// WithContext returns a new context.Context containing the given kong.Context.
func WithContext(ctx context.Context, ktx *kong.Context) context.Context {
	return context.WithValue(ctx, contextKey{}, ktx)
}

func kongContextFrom(ctx context.Context) *kong.Context {
	ktx, ok := ctx.Value(contextKey{}).(*kong.Context)
	if !ok || ktx == nil {
		return nil
	}

	return ktx
}

// stdout returns the writer commands print results to.
func stdout(ctx context.Context) io.Writer {
	if ktx := kongContextFrom(ctx); ktx != nil && ktx.Kong != nil && ktx.Stdout != nil {
		return ktx.Stdout
	}

	return os.Stdout
}

// Templates holds the global settings used to resolve and compile
// templates.
type Templates struct {
	Path      string `default:"."      help:"Directory template names are resolved against" short:"P" type:"path"`
	Ext       string `default:"${ext}" help:"Extension appended to template names"`
	Encoding  string `default:"utf-8"  help:"Encoding of template source without a coding declaration"`
	NoEscape  bool   `                 help:"Substitute {{expr}} without HTML escaping"`
	StrictEnd bool   `                 help:"Reject %end directives with no open block"`
	MaxDepth  int    `default:"64"     help:"Maximum nesting of includes and function calls"`
}

// Renderer returns a renderer resolving template names under t.Path.
// Templates it builds log through the package-level logger.
func (t *Templates) Renderer(opts ...lang.Option) *lang.Renderer {
	return &lang.Renderer{
		Path: t.Path,
		Ext:  t.Ext,
		Options: append([]lang.Option{
			lang.WithEncoding(t.Encoding),
			lang.WithNoEscape(t.NoEscape),
			lang.WithStrictEnd(t.StrictEnd),
			lang.WithMaxDepth(t.MaxDepth),
			lang.WithLogger(log.Default()),
		}, opts...),
	}
}

type templatesKey struct{}

// WithTemplates returns a new context.Context containing the given template
// settings.
func WithTemplates(ctx context.Context, t *Templates) context.Context {
	return context.WithValue(ctx, templatesKey{}, t)
}

// templatesFrom returns the template settings stored in ctx, or settings
// resolving names in the working directory with the default extension.
func templatesFrom(ctx context.Context) *Templates {
	if t, ok := ctx.Value(templatesKey{}).(*Templates); ok && t != nil {
		return t
	}

	return &Templates{Path: ".", Ext: pkg.TemplateExt}
}

// load compiles the named template. When source files are stored in ctx,
// their contents are the template source and name only labels it.
// Otherwise the name is resolved through r.
func load(ctx context.Context, r *lang.Renderer, name string) (*lang.Template, error) {
	src := sourceFilesFrom(ctx)
	if src == nil {
		return r.Lookup(ctx, name)
	}

	opts := append(slices.Clone(r.Options), lang.WithRenderer(r))

	return lang.ParseReader(ctx, name, src, opts...)
}

type (
	sourceFilesKey struct{}
	sourceFiles    struct {
		read     []io.Reader
		paths    []string
		hasStdin bool
	}

	SourceFiles interface {
		IsZero() bool
		Stdin() io.Reader
		Paths() []string
		io.Reader
		io.WriterTo
	}
)

// IsZero reports whether there are no source files.
func (s *sourceFiles) IsZero() bool { return len(s.read) == 0 && !s.hasStdin }

// Stdin returns os.Stdin if stdin was included as a source, or nil otherwise.
func (s *sourceFiles) Stdin() io.Reader {
	if s.hasStdin {
		return os.Stdin
	}

	return nil
}

// Paths returns the resolved paths of the regular source files.
func (s *sourceFiles) Paths() []string { return s.paths }

// Read implements io.Reader by reading from all source files in order,
// including stdin if present.
func (s *sourceFiles) Read(p []byte) (n int, err error) {
	return io.MultiReader(s.readers()...).Read(p)
}

// WriteTo implements io.WriterTo by writing all source files to w in order,
// including stdin if present.
func (s *sourceFiles) WriteTo(w io.Writer) (n int64, err error) {
	return io.Copy(w, io.MultiReader(s.readers()...))
}

func (s *sourceFiles) readers() []io.Reader {
	if s.hasStdin {
		return append(slices.Clip(s.read), os.Stdin)
	}

	return s.read
}

// fileKey uniquely identifies a file by its device and inode numbers.
// This handles deduplication across symlinks, absolute/relative paths, and
// special device files.
type fileKey struct {
	dev uint64
	ino uint64
}

// stdinSource is the special source indicator for reading from stdin.
const stdinSource = "-"

// WithSourceFiles returns a new context.Context containing an [io.Reader] that
// reads from the given template source files.
//
// The function deduplicates readers by resolving symlinks and comparing device/
// inode pairs. All occurrences of "-" are replaced with a single stdin reader.
// The stdin reader is placed last so it reads after all regular files.
func WithSourceFiles(ctx context.Context, sources []string) context.Context {
	return context.WithValue(ctx, sourceFilesKey{}, buildSourceFiles(sources))
}

// buildSourceFiles constructs a SourceFiles from the given source paths.
func buildSourceFiles(sources []string) SourceFiles {
	if len(sources) == 0 {
		return nil
	}

	var srcs sourceFiles

	srcs.read = make([]io.Reader, 0, len(sources))
	seen := make(map[fileKey]struct{})

	stdinInfo, _ := os.Stdin.Stat()
	stdinKey, _ := makeFileKey(stdinInfo)

	for _, src := range sources {
		if src == stdinSource {
			seen[stdinKey] = struct{}{}

			continue
		}

		reader, path, ok := openUniqueFile(src, seen)
		if !ok {
			continue
		}

		srcs.read = append(srcs.read, reader)
		srcs.paths = append(srcs.paths, path)
	}

	// Stdin may have been included via "-" or as a named file.
	// Both of which will be represented by stdinKey in seen.
	_, srcs.hasStdin = seen[stdinKey]
	delete(seen, stdinKey)

	if srcs.IsZero() {
		return nil
	}

	return &srcs
}

// openUniqueFile opens the file at path if it hasn't been seen before.
// It resolves symlinks and uses device/inode to detect duplicates.
// Returns the opened file and its resolved path, or false if the file is a
// duplicate or cannot be opened.
func openUniqueFile(
	path string,
	seen map[fileKey]struct{},
) (io.Reader, string, bool) {
	absPath, err := filepath.Abs(path)
	if err != nil {
		return nil, "", false
	}

	resolved, err := filepath.EvalSymlinks(absPath)
	if err != nil {
		return nil, "", false
	}

	info, err := os.Stat(resolved)
	if err != nil {
		return nil, "", false
	}

	key, ok := makeFileKey(info)
	if !ok {
		return nil, "", false
	}

	if _, exists := seen[key]; exists {
		return nil, "", false
	}

	seen[key] = struct{}{}

	file, err := os.Open(resolved)
	if err != nil {
		return nil, "", false
	}

	return file, resolved, true
}

// makeFileKey creates a fileKey from os.FileInfo.
// Returns false if the underlying Sys() data is not of type *syscall.Stat_t.
func makeFileKey(info os.FileInfo) (key fileKey, ok bool) {
	if info == nil {
		return key, false
	}

	stat, ok := info.Sys().(*syscall.Stat_t)
	if !ok {
		return key, false
	}

	return fileKey{dev: uint64(stat.Dev), ino: stat.Ino}, true //nolint:unconvert
}

// sourceFilesFrom retrieves the SourceFiles stored in ctx by WithSourceFiles.
// Returns nil if none were stored.
func sourceFilesFrom(ctx context.Context) SourceFiles {
	r, _ := ctx.Value(sourceFilesKey{}).(SourceFiles)

	return r
}
