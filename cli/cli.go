package cli

import (
	"context"
	"path/filepath"

	"github.com/alecthomas/kong"

	"github.com/vrde/trabant/cli/cmd"
	"github.com/vrde/trabant/pkg"
)

// CLI is the top-level command-line interface for trabant.
type CLI struct {
	Log       logConfig     `embed:"" group:"log"      prefix:"log-"`
	Pprof     pprofConfig   `embed:"" group:"pprof"    prefix:"pprof-"`
	Templates cmd.Templates `embed:"" group:"template"`

	Source  []string         `help:"Template source file(s) or '-' for stdin, used instead of resolving the template name" name:"source" short:"s" type:"existingfile"`
	Version kong.VersionFlag `help:"Print version and exit"`

	Init    cmd.Init    `cmd:"" help:"Initialize configuration file"`
	Compile cmd.Compile `cmd:"" help:"Print the code generated for a template"`
	Watch   cmd.Watch   `cmd:"" help:"Render a template again whenever its sources change"`
	Repl    cmd.Repl    `cmd:"" help:"Render template lines interactively"`

	Render cmd.Render `cmd:"" default:"withargs" help:"Render a template"`
}

// Run executes the trabant CLI with the given context and arguments.
// The exit function is called with the appropriate exit code upon completion.
func Run(
	ctx context.Context,
	exit func(code int),
	args ...string,
) error {
	var cli CLI

	if err := pkg.MkdirAll(); err != nil {
		return err
	}

	configFilePath := filepath.Join(pkg.ConfigDir(), baseConfig+".yaml")

	vars := kong.Vars{
		cmd.ConfigIdentifier: configFilePath,
		cmd.CacheIdentifier:  pkg.CacheDir(),
		cmd.ExtIdentifier:    pkg.TemplateExt,
		"version":            pkg.Version(),
	}.
		CloneWith(cli.Log.vars()).
		CloneWith(cli.Pprof.vars())

	ctx, cancel := context.WithCancel(ctx)
	defer cancel()

	// Pre-scan for logger flags to ensure early configuration regardless of
	// flag position. TextUnmarshaler on logFormat/logLevel handles those flags
	// during normal parsing, but this early scan also catches boolean flags
	// like --log-pretty.
	cli.Log.scan(args)

	parser, err := kong.New(&cli,
		kong.Name(pkg.Name),
		kong.Description(pkg.Description),
		kong.UsageOnError(),
		kong.Exit(exit),
		kong.ExplicitGroups(
			[]kong.Group{cli.Log.group(), cli.Pprof.group(), templateGroup()},
		),
		kong.BindSingletonProvider(func() context.Context {
			return ctx
		}),
		kong.ConfigureHelp(
			kong.HelpOptions{
				Compact:             true,
				Summary:             true,
				Tree:                true,
				FlagsLast:           false,
				NoAppSummary:        false,
				NoExpandSubcommands: true,
			}),
		kong.Configuration(kong.JSON, filepath.Join(pkg.ConfigDir(), baseConfig+".json")),
		kong.Configuration(resolve, configFilePath),
		vars,
	)
	if err != nil {
		return err
	}

	ktx, err := parser.Parse(args)
	if err != nil {
		return err
	}

	// Stuff additional context values for use by commands
	ctx = cmd.WithContext(ctx, ktx)
	ctx = cmd.WithTemplates(ctx, &cli.Templates)
	ctx = cmd.WithSourceFiles(ctx, cli.Source)

	// Finalize logger configuration with all parsed values including
	// TimeLayout and Caller which don't use TextUnmarshaler.
	cli.Log.start(ctx)

	// [pprofConfig.start] is no-op unless built with tag pprof and enabled.
	defer cli.Pprof.start(ctx)()

	return ktx.Run(ctx, &cli)
}

func templateGroup() kong.Group {
	var group kong.Group

	group.Key = "template"
	group.Title = "Template options"

	return group
}
