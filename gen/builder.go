package gen

import (
	"context"
	"time"

	"go.uber.org/zap"

	"github.com/broady/fluidgen"
	"github.com/broady/fluidgen/config"
	"github.com/broady/fluidgen/sink"
)

// Builder provides a fluent API over Generate.
// Create with FromApp() and configure with method chaining.
//
// Example:
//
//	gen.FromApp(app).
//	    WithProjectRoot(".").
//	    WithOverrides("strategy=co-locate").
//	    Run(ctx)
type Builder struct {
	app   *fluidgen.App
	opts  Options
	query string
}

// FromApp creates a new Builder for the given app.
func FromApp(app *fluidgen.App) *Builder {
	return &Builder{app: app}
}

// WithProjectRoot sets the project root. Defaults to the working directory.
func (b *Builder) WithProjectRoot(dir string) *Builder {
	b.opts.ProjectRoot = dir
	return b
}

// WithConfig uses cfg instead of loading fluid.config from the project root.
func (b *Builder) WithConfig(cfg *config.Config) *Builder {
	b.opts.Config = cfg
	return b
}

// WithOverrides applies command-line overrides encoded as a query string,
// e.g. "strategy=co-locate&target=production".
func (b *Builder) WithOverrides(query string) *Builder {
	b.query = query
	return b
}

// WithMainPackage sets the directory of the main package that built the App.
func (b *Builder) WithMainPackage(dir string) *Builder {
	b.opts.MainDir = dir
	return b
}

// WithLogger sets the logger. Defaults to zap.NewNop().
func (b *Builder) WithLogger(l *zap.Logger) *Builder {
	b.opts.Logger = l
	return b
}

// WithSink sends output to s instead of the filesystem.
func (b *Builder) WithSink(s sink.OutputSink) *Builder {
	b.opts.Sink = s
	return b
}

// WithClock sets the time source used to stamp the manifest.
func (b *Builder) WithClock(now func() time.Time) *Builder {
	b.opts.Now = now
	return b
}

// Run executes the pipeline.
func (b *Builder) Run(ctx context.Context) (*Result, error) {
	o, err := config.ParseOverrides(b.query)
	if err != nil {
		return nil, err
	}
	opts := b.opts
	opts.Overrides = o
	return Generate(ctx, b.app, opts)
}
