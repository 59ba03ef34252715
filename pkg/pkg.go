package pkg

import (
	_ "embed"
	"strings"
)

//go:embed VERSION
var version string

// Version returns the semantic version of the module, embedded at build time.
func Version() string { return strings.TrimSpace(version) }

const (
	// Name is the command name. It also names the configuration and cache
	// directories.
	Name = "trabant"

	// Description is the one-line summary shown in help output.
	Description = "Line-oriented template compiler and renderer"

	// TemplateExt is the file extension appended to template names that the
	// command line resolves against its search path.
	TemplateExt = "tpl"
)

// AuthorInfo names a project author.
type AuthorInfo struct {
	Name  string
	Email string
}

// Author lists the project authors.
//
//nolint:gochecknoglobals
var Author = []AuthorInfo{
	{Name: "vrde"},
}
