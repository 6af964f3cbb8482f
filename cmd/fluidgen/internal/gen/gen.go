package gen

import (
	"context"
	"path/filepath"

	"github.com/cockroachdb/errors"
	"go.uber.org/zap"

	"github.com/broady/fluidgen/config"
	fgen "github.com/broady/fluidgen/gen"
	"github.com/broady/fluidgen/internal/discover"
	"github.com/broady/fluidgen/internal/runner"
)

type Cmd struct {
	Package  string `help:"Package to scan (default: current directory)." short:"p" default:"."`
	Export   string `help:"Export function name (required if multiple exports exist)." short:"e"`
	Root     string `help:"Project root (default: the package's module directory)."`
	Strategy string `help:"Output strategy: mirror or co-locate."`
	Target   string `help:"Target environment from fluid.config." short:"t"`
	Location string `help:"Output directory for the mirror strategy, relative to the project root." short:"o"`
	NoConfig bool   `help:"Ignore the config function."`
	DryRun   bool   `help:"Run generation without writing files." name:"dry-run"`
	Watch    bool   `help:"Watch for changes and regenerate." short:"w"`
}

func (c *Cmd) Run(ctx context.Context, log *zap.Logger) error {
	result, err := discover.Find(c.Package)
	if err != nil {
		return errors.Wrap(err, "discover")
	}
	export, err := discover.SelectExport(result.Exports, c.Export)
	if err != nil {
		return err
	}
	log.Debug("found export",
		zap.String("export", export.Name),
		zap.Stringer("type", export.Type),
		zap.String("at", export.Position()))

	opts, err := c.runnerOptions(result, export, log.Core().Enabled(zap.DebugLevel))
	if err != nil {
		return err
	}

	if !c.Watch {
		return Generate(ctx, log, opts)
	}
	root := opts.ProjectRoot
	if root == "" {
		root = result.ModuleDir
	}
	w := &Watcher{Root: root, Log: log}
	return w.Run(ctx, func(ctx context.Context) error {
		return Generate(ctx, log, opts)
	})
}

func (c *Cmd) overrides() config.Overrides {
	return config.Overrides{Strategy: c.Strategy, Target: c.Target, Location: c.Location}
}

func (c *Cmd) runnerOptions(result *discover.Result, export *discover.Export, verbose bool) (runner.Options, error) {
	opts := runner.Options{
		Export:    *export,
		NoConfig:  c.NoConfig,
		PkgDir:    result.Dir,
		Overrides: c.overrides().Query(),
		DryRun:    c.DryRun,
		Verbose:   verbose,
	}
	if result.ConfigFunc != nil {
		opts.ConfigFunc = result.ConfigFunc.Name
	}

	root := c.Root
	if root == "" && export.Type == discover.ExportTypeApp {
		root = result.ModuleDir
	}
	if root != "" {
		abs, err := filepath.Abs(root)
		if err != nil {
			return opts, errors.Wrap(err, "resolve project root")
		}
		opts.ProjectRoot = abs
	}
	return opts, nil
}

// Generate runs one generation pass and logs its report.
func Generate(ctx context.Context, log *zap.Logger, opts runner.Options) error {
	report, err := runner.Exec(ctx, opts)
	if err != nil {
		return err
	}
	logReport(log, report)
	return nil
}

func logReport(log *zap.Logger, r *fgen.Report) {
	for _, w := range r.Warnings {
		log.Warn(w.Message, zap.String("code", w.Code), zap.String("source", w.Source))
	}
	for _, p := range r.Deleted {
		log.Info("removed stale file", zap.String("path", p))
	}
	log.Info("generated",
		zap.Int("routes", r.Routes),
		zap.Int("models", r.Models),
		zap.Int("files", len(r.Written)),
		zap.Int("deleted", len(r.Deleted)),
		zap.Int("warnings", len(r.Warnings)))
}
