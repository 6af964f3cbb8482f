package check

import (
	"context"
	"io"
	"os"

	"github.com/cockroachdb/errors"
	"go.uber.org/zap"
	"gopkg.in/yaml.v3"

	"github.com/broady/fluidgen/config"
	"github.com/broady/fluidgen/internal/discover"
	"github.com/broady/fluidgen/internal/runner"
	"github.com/broady/fluidgen/ir"
)

type Cmd struct {
	Export  string `help:"Export function name (required if multiple exports exist)." short:"e"`
	Package string `help:"Package to scan (default: current directory)." short:"p" default:"."`
	Root    string `help:"Project root (default: the package's module directory)."`
	Target  string `help:"Target environment from fluid.config." short:"t"`
	NoRun   bool   `help:"Only list exports; do not build and run the generator." name:"no-run"`
}

// Report is what check prints, as YAML.
type Report struct {
	discover.Result `yaml:",inline"`

	Selected string       `yaml:"selected,omitempty"`
	Routes   int          `yaml:"routes,omitempty"`
	Models   int          `yaml:"models,omitempty"`
	Files    []string     `yaml:"files,omitempty"`
	Warnings []ir.Warning `yaml:"warnings,omitempty"`
}

func (c *Cmd) Run(ctx context.Context, log *zap.Logger) error {
	result, err := discover.Find(c.Package)
	if err != nil {
		return errors.Wrap(err, "discover")
	}
	report := Report{Result: *result}
	if c.NoRun {
		return Write(os.Stdout, report)
	}

	export, err := discover.SelectExport(result.Exports, c.Export)
	if err != nil {
		return err
	}
	report.Selected = export.Name

	opts := runner.Options{
		Export:    *export,
		PkgDir:    result.Dir,
		Overrides: config.Overrides{Target: c.Target}.Query(),
		DryRun:    true,
		Verbose:   log.Core().Enabled(zap.DebugLevel),
	}
	if result.ConfigFunc != nil {
		opts.ConfigFunc = result.ConfigFunc.Name
	}
	switch {
	case c.Root != "":
		opts.ProjectRoot = c.Root
	case export.Type == discover.ExportTypeApp:
		opts.ProjectRoot = result.ModuleDir
	}

	out, err := runner.Exec(ctx, opts)
	if err != nil {
		return err
	}
	report.Routes = out.Routes
	report.Models = out.Models
	report.Files = out.Written
	report.Warnings = out.Warnings
	return Write(os.Stdout, report)
}

// Write encodes r as YAML.
func Write(w io.Writer, r Report) error {
	enc := yaml.NewEncoder(w)
	enc.SetIndent(2)
	if err := enc.Encode(r); err != nil {
		return errors.Wrap(err, "encode report")
	}
	return enc.Close()
}
