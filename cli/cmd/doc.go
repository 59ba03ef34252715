// Package cmd implements the subcommands of trabant: render, compile, watch
// and init.
//
// Commands receive a [context.Context] carrying the parsed [kong.Context]
// ([WithContext]), the global template settings ([WithTemplates]) and the
// template source files named on the command line ([WithSourceFiles]).
package cmd

var (
	// CacheIdentifier is the kong variable identifier containing the path to
	// the runtime cache directory.
	CacheIdentifier = "cache"

	// ConfigIdentifier is the kong variable identifier containing the path to
	// the YAML configuration file.
	ConfigIdentifier = "config"

	// ExtIdentifier is the kong variable identifier containing the default
	// template file extension.
	ExtIdentifier = "ext"
)
