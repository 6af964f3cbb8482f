package gen

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"os"

	"github.com/cockroachdb/errors"
	"go.uber.org/zap"

	"github.com/broady/fluidgen/ir"
	"github.com/broady/fluidgen/sink"
)

// Report is the machine-readable summary of a run that Main prints.
type Report struct {
	Routes   int          `json:"routes"`
	Models   int          `json:"models"`
	Written  []string     `json:"written"`
	Deleted  []string     `json:"deleted,omitempty"`
	Warnings []ir.Warning `json:"warnings,omitempty"`
}

// Report summarizes res.
func (res *Result) Report() Report {
	r := Report{
		Written:  res.Written,
		Deleted:  res.Deleted,
		Warnings: res.Warnings,
	}
	if res.App != nil {
		r.Routes = len(res.App.Routes)
		r.Models = len(res.App.Models)
	}
	return r
}

// DryRun sends output to memory, leaving the project untouched.
func (b *Builder) DryRun() *Builder {
	return b.WithSink(sink.NewMemorySink())
}

// Main runs b, prints a JSON Report to stdout and exits. It is the body of
// the program fluidgen gen builds around a user's package; verbose enables
// debug logging to stderr.
func Main(b *Builder, verbose bool) {
	os.Exit(run(context.Background(), b, verbose, os.Stdout, os.Stderr))
}

func run(ctx context.Context, b *Builder, verbose bool, stdout, stderr io.Writer) int {
	if verbose {
		if l, err := zap.NewDevelopment(); err == nil {
			defer func() { _ = l.Sync() }()
			b.WithLogger(l)
		}
	}
	res, err := b.Run(ctx)
	if err != nil {
		fmt.Fprintf(stderr, "fluidgen: %v\n", err)
		if hint := errors.FlattenHints(err); hint != "" {
			fmt.Fprintf(stderr, "hint: %s\n", hint)
		}
		return 1
	}
	if err := json.NewEncoder(stdout).Encode(res.Report()); err != nil {
		fmt.Fprintf(stderr, "fluidgen: encode report: %v\n", err)
		return 1
	}
	return 0
}
