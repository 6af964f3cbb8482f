// Package runner executes fluidgen code generation by building and running
// a modified version of the user's package.
//
// It uses Go's -overlay flag to replace the user's main() with a runner
// that calls the export function and runs the generation pipeline.
package runner

import (
	"bytes"
	"context"
	"encoding/json"
	"go/ast"
	"go/format"
	"go/parser"
	"go/token"
	"io"
	"os"
	"os/exec"
	"path/filepath"
	"strings"

	"github.com/cockroachdb/errors"
	"github.com/dave/jennifer/jen"

	"github.com/broady/fluidgen/gen"
	"github.com/broady/fluidgen/internal/discover"
)

const (
	genPkg     = "github.com/broady/fluidgen/gen"
	runnerFile = "fluidgen_runner_main_.go"
)

// Options configures the runner.
type Options struct {
	// Export is the function to call.
	Export discover.Export

	// ConfigFunc is the optional config function name.
	ConfigFunc string

	// NoConfig disables the config function even if one exists.
	NoConfig bool

	// PkgDir is the directory containing the package.
	PkgDir string

	// ProjectRoot is passed to WithProjectRoot. For *gen.Builder exports it
	// is only applied when set, so the export's own choice wins.
	ProjectRoot string

	// Overrides is a query string passed to WithOverrides.
	Overrides string

	// DryRun generates into memory without touching the project.
	DryRun bool

	// Verbose enables debug logging in the runner.
	Verbose bool

	// Stderr receives the runner's log output. Defaults to os.Stderr.
	Stderr io.Writer
}

// Exec builds and runs the generator and returns its report.
//
// It creates an overlay that:
// 1. Replaces files containing func main() with versions that have main() removed
// 2. Adds a runner file with our own main()
//
// The overlay approach lets us work with package main and unexported functions.
func Exec(ctx context.Context, opts Options) (*gen.Report, error) {
	tmpDir, err := os.MkdirTemp("", "fluidgen-gen-*")
	if err != nil {
		return nil, errors.Wrap(err, "create temp dir")
	}
	defer os.RemoveAll(tmpDir)

	overlay := make(map[string]string)

	files, err := filepath.Glob(filepath.Join(opts.PkgDir, "*.go"))
	if err != nil {
		return nil, errors.Wrap(err, "glob")
	}
	for _, file := range files {
		if strings.HasSuffix(file, "_test.go") {
			continue
		}
		hasMain, modified, err := removeMain(file)
		if err != nil {
			return nil, errors.Wrapf(err, "process %s", file)
		}
		if !hasMain {
			continue
		}
		tmpFile := filepath.Join(tmpDir, filepath.Base(file))
		if err := os.WriteFile(tmpFile, modified, 0644); err != nil {
			return nil, errors.Wrapf(err, "write modified %s", file)
		}
		overlay[file] = tmpFile
	}

	runnerSrc, err := Generate(opts)
	if err != nil {
		return nil, errors.Wrap(err, "generate runner")
	}
	tmpRunner := filepath.Join(tmpDir, runnerFile)
	if err := os.WriteFile(tmpRunner, runnerSrc, 0644); err != nil {
		return nil, errors.Wrap(err, "write runner")
	}
	overlay[filepath.Join(opts.PkgDir, runnerFile)] = tmpRunner

	overlayJSON, err := json.Marshal(struct {
		Replace map[string]string `json:"Replace"`
	}{Replace: overlay})
	if err != nil {
		return nil, errors.Wrap(err, "marshal overlay")
	}
	overlayFile := filepath.Join(tmpDir, "overlay.json")
	if err := os.WriteFile(overlayFile, overlayJSON, 0644); err != nil {
		return nil, errors.Wrap(err, "write overlay")
	}

	// -mod=mod allows updating go.mod/go.sum if needed.
	binaryPath := filepath.Join(tmpDir, "runner")
	buildCmd := exec.CommandContext(ctx, "go", "build", "-mod=mod", "-overlay", overlayFile, "-o", binaryPath, ".")
	buildCmd.Dir = opts.PkgDir
	buildCmd.Env = append(os.Environ(), "GOWORK=off")
	if out, err := buildCmd.CombinedOutput(); err != nil {
		return nil, errors.WithDetail(errors.Wrap(err, "build"), string(out))
	}

	stderr := opts.Stderr
	if stderr == nil {
		stderr = os.Stderr
	}
	var stdout bytes.Buffer
	runCmd := exec.CommandContext(ctx, binaryPath)
	runCmd.Dir = opts.PkgDir
	runCmd.Stdout = &stdout
	runCmd.Stderr = stderr
	if err := runCmd.Run(); err != nil {
		return nil, errors.Wrap(err, "run")
	}

	var report gen.Report
	if err := json.Unmarshal(stdout.Bytes(), &report); err != nil {
		return nil, errors.Wrapf(err, "decode runner report %q", stdout.String())
	}
	return &report, nil
}

// removeMain parses a Go file and returns a version with func main() removed.
// Returns (hasMain, modifiedSource, error).
func removeMain(filename string) (bool, []byte, error) {
	fset := token.NewFileSet()
	f, err := parser.ParseFile(fset, filename, nil, parser.ParseComments)
	if err != nil {
		return false, nil, err
	}

	hasMain := false
	var newDecls []ast.Decl
	for _, decl := range f.Decls {
		fn, ok := decl.(*ast.FuncDecl)
		if ok && fn.Name.Name == "main" && fn.Recv == nil {
			hasMain = true
			continue
		}
		newDecls = append(newDecls, decl)
	}
	if !hasMain {
		return false, nil, nil
	}
	f.Decls = newDecls

	var buf bytes.Buffer
	if err := format.Node(&buf, fset, f); err != nil {
		return false, nil, err
	}
	return true, buf.Bytes(), nil
}

// Generate renders the runner's main() source.
func Generate(opts Options) ([]byte, error) {
	var start *jen.Statement
	switch opts.Export.Type {
	case discover.ExportTypeApp:
		start = jen.Qual(genPkg, "FromApp").Call(jen.Id(opts.Export.Name).Call())
		if opts.ProjectRoot == "" {
			return nil, errors.New("project root is required for *fluidgen.App exports")
		}
	case discover.ExportTypeBuilder:
		start = jen.Id(opts.Export.Name).Call()
	default:
		return nil, errors.Newf("unknown export type: %v", opts.Export.Type)
	}

	body := []jen.Code{jen.Id("b").Op(":=").Add(start)}
	if opts.ProjectRoot != "" {
		body = append(body, jen.Id("b").Dot("WithProjectRoot").Call(jen.Lit(opts.ProjectRoot)))
	}
	body = append(body, jen.Id("b").Dot("WithMainPackage").Call(jen.Lit(opts.PkgDir)))
	if opts.ConfigFunc != "" && !opts.NoConfig {
		body = append(body, jen.Id("b").Op("=").Id(opts.ConfigFunc).Call(jen.Id("b")))
	}
	// Command-line overrides apply after the config function.
	if opts.Overrides != "" {
		body = append(body, jen.Id("b").Dot("WithOverrides").Call(jen.Lit(opts.Overrides)))
	}
	if opts.DryRun {
		body = append(body, jen.Id("b").Dot("DryRun").Call())
	}
	body = append(body, jen.Qual(genPkg, "Main").Call(jen.Id("b"), jen.Lit(opts.Verbose)))

	f := jen.NewFile("main")
	f.HeaderComment("Code generated by fluidgen. DO NOT EDIT.")
	f.Func().Id("main").Params().Block(body...)

	var buf bytes.Buffer
	if err := f.Render(&buf); err != nil {
		return nil, err
	}
	return buf.Bytes(), nil
}
