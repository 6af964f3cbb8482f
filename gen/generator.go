// Package gen runs a full generation pass: it introspects an App, renders
// TypeScript, writes it through a sink and removes output that the previous
// run produced but this one did not.
package gen

import (
	"context"
	"maps"
	"path/filepath"
	"slices"
	"time"

	"github.com/cockroachdb/errors"
	"go.uber.org/zap"

	"github.com/broady/fluidgen"
	"github.com/broady/fluidgen/config"
	"github.com/broady/fluidgen/convert"
	"github.com/broady/fluidgen/internal/gosrc"
	"github.com/broady/fluidgen/introspect"
	"github.com/broady/fluidgen/ir"
	"github.com/broady/fluidgen/manifest"
	"github.com/broady/fluidgen/resolve"
	"github.com/broady/fluidgen/sink"
	"github.com/broady/fluidgen/typescript"
)

// Options configures one run.
type Options struct {
	// ProjectRoot bounds project membership and anchors output paths.
	// Defaults to the current directory.
	ProjectRoot string

	// Config is used as given when set; otherwise it is loaded from
	// ProjectRoot. Overrides are applied either way.
	Config    *config.Config
	Overrides config.Overrides

	// MainDir is the directory of the package main that built the App, if
	// any of its types or handlers are declared there.
	MainDir string

	// Sink receives the output. Defaults to a FilesystemSink at ProjectRoot.
	Sink sink.OutputSink

	Logger *zap.Logger

	// Now stamps the manifest. Defaults to time.Now.
	Now func() time.Time
}

// Result reports what a run produced.
type Result struct {
	Files []typescript.File

	// Written holds the project-relative paths written, manifest included.
	Written []string

	// WriteErrors maps a file that could not be written to the reason.
	WriteErrors map[string]error

	// Deleted holds the stale files removed by cleanup.
	Deleted []string

	Warnings []ir.Warning
	App      *ir.App
	Config   *config.Config
}

// Generate runs the pipeline for app. Node, write and delete failures are
// returned as warnings; the error is reserved for problems that stop the
// run as a whole, such as an invalid configuration.
func Generate(ctx context.Context, app *fluidgen.App, opts Options) (*Result, error) {
	if app == nil {
		return nil, errors.New("gen: nil App")
	}
	log := opts.Logger
	if log == nil {
		log = zap.NewNop()
	}
	root := opts.ProjectRoot
	if root == "" {
		root = "."
	}
	root, err := filepath.Abs(root)
	if err != nil {
		return nil, errors.Wrap(err, "resolve project root")
	}

	res := &Result{WriteErrors: make(map[string]error)}

	cfg := opts.Config
	if cfg == nil {
		if cfg, err = config.Load(root); err != nil {
			return nil, err
		}
	}
	opts.Overrides.Apply(cfg)
	res.Warnings = append(res.Warnings, cfg.Normalize()...)
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	res.Config = cfg

	var idxOpts []gosrc.Option
	if opts.MainDir != "" {
		idxOpts = append(idxOpts, gosrc.WithMainPackage(opts.MainDir))
	}
	idx, err := gosrc.New(root, idxOpts...)
	if err != nil {
		return nil, err
	}
	conv := convert.New(idx)
	in := &introspect.Introspector{App: app, Conv: conv, Index: idx, Logger: log}

	routes, warnings := in.Routes()
	res.Warnings = append(res.Warnings, warnings...)
	models, warnings := in.DiscoverModels(routes)
	res.Warnings = append(res.Warnings, warnings...)
	res.Warnings = append(res.Warnings, conv.Warnings()...)
	res.App = &ir.App{Models: models, Routes: routes}
	log.Debug("introspected app", zap.Int("routes", len(routes)), zap.Int("models", len(models)))

	resolver := &resolve.Resolver{
		Strategy:    resolve.Strategy(cfg.Output.Strategy),
		ProjectRoot: idx.Root(),
		Location:    cfg.Output.Location,
	}
	tg := &typescript.Generator{
		Resolver: resolver,
		Renderer: convert.Renderer{IsProject: idx.IsProjectType},
		Runtime:  RuntimeOptions(cfg),
	}
	files, warnings := tg.Generate(res.App)
	res.Warnings = append(res.Warnings, warnings...)
	res.Files = files

	out := opts.Sink
	if out == nil {
		out = sink.NewFilesystemSink(idx.Root())
	}
	now := time.Now
	if opts.Now != nil {
		now = opts.Now
	}

	m := manifest.New(now())
	m.HasStreamingRoutes = res.App.HasStreamingRoutes()
	for _, f := range files {
		rel, err := resolver.ProjectRelative(f.Path)
		if err != nil {
			res.writeFailed(log, f.Path, err)
			continue
		}
		// Recorded even if the write fails, so cleanup never removes a file
		// this run was meant to produce.
		m.Add(rel, sourcePaths(resolver, f.Sources)...)
		if err := out.WriteFile(ctx, rel, []byte(f.Content)); err != nil {
			res.writeFailed(log, rel, err)
			continue
		}
		res.Written = append(res.Written, rel)
	}

	manifestPath, err := resolver.ProjectRelative(resolver.ManifestPath())
	if err != nil {
		return nil, err
	}
	prev, err := manifest.Load(ctx, out, manifestPath)
	if err != nil {
		res.warn(log, ir.WarnManifest, manifestPath, "previous manifest unreadable, skipping cleanup: "+err.Error())
		prev = nil
	}
	if prev != nil {
		if err := prev.Compatible(); err != nil {
			res.warn(log, ir.WarnManifest, manifestPath, "skipping cleanup: "+err.Error())
			prev = nil
		}
	}

	data, err := m.Marshal()
	if err == nil {
		err = out.WriteFile(ctx, manifestPath, data)
	}
	if err != nil {
		res.WriteErrors[manifestPath] = err
		res.warn(log, ir.WarnManifest, manifestPath, "write manifest: "+err.Error())
	} else {
		res.Written = append(res.Written, manifestPath)
	}

	var stale []string
	for _, p := range manifest.Stale(prev, m) {
		if !manifest.Owned(p, resolver.Strategy, resolver.Location) {
			res.warn(log, ir.WarnManifest, p, "not a generated file, leaving it in place")
			continue
		}
		stale = append(stale, p)
	}
	deleted, failed := manifest.Cleanup(ctx, out, stale)
	res.Deleted = deleted
	for _, p := range deleted {
		log.Info("removed stale file", zap.String("path", p))
	}
	for _, p := range slices.Sorted(maps.Keys(failed)) {
		res.warn(log, ir.WarnDeleteFailed, p, failed[p].Error())
	}

	res.App.Warnings = res.Warnings
	log.Info("generated TypeScript",
		zap.Int("files", len(res.Written)),
		zap.Int("deleted", len(res.Deleted)),
		zap.Int("warnings", len(res.Warnings)))
	return res, nil
}

// RuntimeOptions derives the runtime file settings from cfg's target
// environment.
func RuntimeOptions(cfg *config.Config) typescript.RuntimeOptions {
	env := cfg.TargetEnvironment()
	return typescript.RuntimeOptions{
		Target:      cfg.Target,
		Mode:        env.Mode,
		APIURL:      env.APIURL,
		BackendHost: cfg.Backend.Host,
		BackendPort: cfg.Backend.Port,
	}
}

func sourcePaths(r *resolve.Resolver, sources []string) []string {
	var out []string
	for _, src := range sources {
		if rel, err := r.ProjectRelative(src); err == nil {
			out = append(out, rel)
		}
	}
	return out
}

func (res *Result) writeFailed(log *zap.Logger, path string, err error) {
	res.WriteErrors[path] = err
	res.warn(log, ir.WarnWriteFailed, path, err.Error())
}

func (res *Result) warn(log *zap.Logger, code, source, msg string) {
	log.Warn("generation warning", zap.String("code", code), zap.String("source", source), zap.String("message", msg))
	res.Warnings = append(res.Warnings, ir.Warning{Code: code, Message: msg, Source: source})
}
