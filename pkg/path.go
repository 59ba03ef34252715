package pkg

import (
	"os"
	"path/filepath"
	"regexp"
	"strings"
	"sync"
)

// DirMode is the permission mode of directories created for the command.
const DirMode os.FileMode = 0o700

// Prefix returns the name used for the configuration and cache directories
// and as the prefix of environment variables read by the command.
//
// It is the base name of the running executable without extension, except
// that a debugger build ("__debug_bin123") maps to [Name] and leading dots
// are removed.
//
//nolint:gochecknoglobals
var Prefix = sync.OnceValue(func() string {
	id := os.Args[0]
	if exe, err := os.Executable(); err == nil {
		id = exe
	}

	id = filepath.Base(id)
	id = strings.TrimSuffix(id, filepath.Ext(id))
	id = debugBin.ReplaceAllString(id, Name)
	id = strings.TrimLeft(id, ".")

	if id == "" {
		return Name
	}

	return id
})

var debugBin = regexp.MustCompile(`^__debug_bin\d*$`)

// ConfigDir returns the per-user configuration directory of the command.
//
//nolint:gochecknoglobals
var ConfigDir = sync.OnceValue(func() string {
	return userDir(os.UserConfigDir, ".config")
})

// CacheDir returns the per-user cache directory of the command.
//
//nolint:gochecknoglobals
var CacheDir = sync.OnceValue(func() string {
	return userDir(os.UserCacheDir, ".cache")
})

// userDir joins [Prefix] to the directory returned by base, falling back to
// a hidden directory under the home directory and finally to the working
// directory.
func userDir(base func() (string, error), hidden string) string {
	dir, err := base()
	if err != nil {
		if home, herr := os.UserHomeDir(); herr == nil {
			dir = filepath.Join(home, hidden)
		} else if dir, err = os.Getwd(); err != nil {
			dir = "."
		}
	}

	return filepath.Join(dir, Prefix())
}

// MkdirAll creates the configuration and cache directories.
func MkdirAll() error {
	for _, dir := range []string{ConfigDir(), CacheDir()} {
		if err := os.MkdirAll(dir, DirMode); err != nil {
			return err
		}
	}

	return nil
}
