package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/alecthomas/kong"
	"github.com/cockroachdb/errors"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"

	"github.com/broady/fluidgen/cmd/fluidgen/internal/check"
	"github.com/broady/fluidgen/cmd/fluidgen/internal/gen"
	"github.com/broady/fluidgen/cmd/fluidgen/internal/initcmd"
)

type CLI struct {
	Verbose bool `help:"Enable debug logging." short:"v"`

	Version VersionCmd  `cmd:"" help:"Print version information."`
	Gen     gen.Cmd     `cmd:"" help:"Generate TypeScript clients from a fluidgen.App."`
	Check   check.Cmd   `cmd:"" help:"List exports and validate generation without writing files."`
	Init    initcmd.Cmd `cmd:"" help:"Write a default fluid.config.json."`
}

type VersionCmd struct{}

func (c *VersionCmd) Run() error {
	fmt.Println(Version())
	return nil
}

func newLogger(verbose bool) (*zap.Logger, error) {
	cfg := zap.NewDevelopmentConfig()
	cfg.DisableStacktrace = true
	if !verbose {
		cfg.Level = zap.NewAtomicLevelAt(zapcore.InfoLevel)
	}
	return cfg.Build()
}

func main() {
	cli := &CLI{}
	kctx := kong.Parse(cli,
		kong.Name("fluidgen"),
		kong.Description("Generate typed TypeScript clients for a fluidgen.App."),
		kong.UsageOnError(),
	)

	log, err := newLogger(cli.Verbose)
	kctx.FatalIfErrorf(err)
	defer func() { _ = log.Sync() }()

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	kctx.Bind(log)
	kctx.BindTo(ctx, (*context.Context)(nil))
	if err := kctx.Run(); err != nil {
		fmt.Fprintf(os.Stderr, "fluidgen: error: %v\n", err)
		for _, hint := range errors.GetAllHints(err) {
			fmt.Fprintf(os.Stderr, "hint: %s\n", hint)
		}
		stop()
		_ = log.Sync()
		os.Exit(1)
	}
}
