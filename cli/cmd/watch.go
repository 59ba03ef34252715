package cmd

import (
	"context"
	"io"
	"io/fs"
	"log/slog"
	"path/filepath"
	"slices"
	"strings"
	"time"

	"github.com/fsnotify/fsnotify"
	"github.com/zeebo/xxh3"

	"github.com/vrde/trabant/lang"
	"github.com/vrde/trabant/log"
)

// Watch renders a template, then renders it again each time a template file
// changes. Output is written only when it differs from the last output.
type Watch struct {
	Vars `embed:""`

	Delay time.Duration `default:"100ms" help:"Quiet period after a change before rendering again"`

	Name string `arg:"" help:"Template name, resolved against --path" name:"name"`
}

// Run executes the watch command. It returns when ctx is canceled.
func (w *Watch) Run(ctx context.Context) (err error) {
	ctx, cancel := context.WithCancelCause(ctx)

	defer func(err *error) { cancel(*err) }(&err)

	var paths []string

	if src := sourceFilesFrom(ctx); src != nil {
		if src.Stdin() != nil {
			return ErrWatch.Wrap(ErrStdinSource)
		}

		paths = src.Paths()
	}

	env, err := w.Env(ctx)
	if err != nil {
		return err
	}

	tpls := templatesFrom(ctx)

	watcher, err := fsnotify.NewWatcher()
	if err != nil {
		return ErrWatch.Wrap(err)
	}
	defer watcher.Close()

	dirs := []string{tpls.Path}
	for _, p := range paths {
		dirs = append(dirs, filepath.Dir(p))
	}

	for _, dir := range dirs {
		if err = addRecursive(watcher, dir); err != nil {
			return ErrWatch.With(slog.String("dir", dir)).Wrap(err)
		}
	}

	log.DebugContext(ctx, "watching",
		slog.String("template", w.Name),
		slog.Any("dirs", dirs),
	)

	r := tpls.Renderer()
	out := stdout(ctx)

	var last uint64

	update := func() {
		text, err := w.render(ctx, r, paths, env)
		if err != nil {
			log.ErrorContext(ctx, "render failed",
				slog.String("template", w.Name),
				slog.Any("error", err),
			)

			return
		}

		sum := xxh3.HashString(text)
		if sum == last {
			log.DebugContext(ctx, "output unchanged", slog.String("template", w.Name))

			return
		}

		last = sum

		if _, err := io.WriteString(out, text); err != nil {
			log.ErrorContext(ctx, "write failed", slog.Any("error", ErrWriteOutput.Wrap(err)))
		}
	}

	update()

	var quiet <-chan time.Time

	for {
		select {
		case <-ctx.Done():
			return nil

		case ev, ok := <-watcher.Events:
			if !ok {
				return nil
			}

			if !w.relevant(ev, tpls.Ext, paths) {
				continue
			}

			log.DebugContext(ctx, "template changed",
				slog.String("file", ev.Name),
				slog.String("op", ev.Op.String()),
			)

			if ev.Has(fsnotify.Create) {
				if err := watchCreated(watcher, ev.Name); err != nil {
					log.WarnContext(ctx, "watch error", slog.Any("error", err))
				}
			}

			quiet = time.After(w.Delay)

		case err, ok := <-watcher.Errors:
			if !ok {
				return nil
			}

			log.WarnContext(ctx, "watch error", slog.Any("error", err))

		case <-quiet:
			quiet = nil

			update()
		}
	}
}

func (w *Watch) render(
	ctx context.Context,
	r *lang.Renderer,
	paths []string,
	env lang.Env,
) (string, error) {
	if paths != nil {
		ctx = WithSourceFiles(ctx, paths)
	}

	tpl, err := load(ctx, r, w.Name)
	if err != nil {
		return "", err
	}

	return tpl.Render(ctx, env)
}

// relevant reports whether ev may change the rendered output: a content
// change to a file with the template extension or to a source file.
func (*Watch) relevant(ev fsnotify.Event, ext string, paths []string) bool {
	if !ev.Has(fsnotify.Write) && !ev.Has(fsnotify.Create) &&
		!ev.Has(fsnotify.Remove) && !ev.Has(fsnotify.Rename) {
		return false
	}

	if slices.Contains(paths, ev.Name) {
		return true
	}

	if ext = strings.TrimPrefix(ext, "."); ext == "" {
		return true
	}

	return strings.TrimPrefix(filepath.Ext(ev.Name), ".") == ext
}

// watchCreated adds the directories under a newly created path to watcher.
func watchCreated(watcher *fsnotify.Watcher, name string) error {
	if err := addRecursive(watcher, name); err != nil {
		return ErrWatch.With(slog.String("path", name)).Wrap(err)
	}

	return nil
}

// addRecursive watches dir and every directory below it. A path that is not
// a directory is ignored.
func addRecursive(watcher *fsnotify.Watcher, dir string) error {
	return filepath.WalkDir(dir, func(path string, d fs.DirEntry, err error) error {
		if err != nil {
			return err
		}

		if d.IsDir() {
			return watcher.Add(path)
		}

		return nil
	})
}
