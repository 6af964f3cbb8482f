// Package discover finds fluidgen export functions by signature.
//
// It scans a Go package for functions with these signatures:
//   - func() *fluidgen.App
//   - func() *gen.Builder
//
// and an optional config hook func(*gen.Builder) *gen.Builder.
package discover

import (
	"fmt"
	"go/token"
	"go/types"
	"path/filepath"
	"strings"

	"github.com/cockroachdb/errors"
	"golang.org/x/tools/go/packages"
)

const (
	appPkgPath = "github.com/broady/fluidgen"
	genPkgPath = "github.com/broady/fluidgen/gen"
)

// ExportType represents the return type of an export function.
type ExportType int

const (
	ExportTypeApp     ExportType = iota // func() *fluidgen.App
	ExportTypeBuilder                   // func() *gen.Builder
)

func (t ExportType) String() string {
	switch t {
	case ExportTypeApp:
		return "*fluidgen.App"
	case ExportTypeBuilder:
		return "*gen.Builder"
	default:
		return "unknown"
	}
}

// MarshalYAML renders the type the way it is written in Go.
func (t ExportType) MarshalYAML() (any, error) {
	return t.String(), nil
}

// Export represents a discovered export function.
type Export struct {
	Name string         `yaml:"name"`
	Type ExportType     `yaml:"type"`
	Pos  token.Position `yaml:"-"`
}

// Position returns the export's location as file:line.
func (e Export) Position() string {
	return fmt.Sprintf("%s:%d", filepath.Base(e.Pos.Filename), e.Pos.Line)
}

// ConfigFunc represents a discovered config function.
// Signature: func(*gen.Builder) *gen.Builder
type ConfigFunc struct {
	Name string         `yaml:"name"`
	Pos  token.Position `yaml:"-"`
}

// Result contains discovered exports and package info.
type Result struct {
	Exports     []Export    `yaml:"exports"`
	ConfigFunc  *ConfigFunc `yaml:"config,omitempty"`
	PackagePath string      `yaml:"package"`
	ModulePath  string      `yaml:"module"`
	ModuleDir   string      `yaml:"moduleDir"` // directory containing go.mod
	Dir         string      `yaml:"dir"`       // directory containing the package
}

// Find scans a Go package for export functions.
//
// The pattern follows go command semantics:
//   - "." for current directory
//   - Import path like "github.com/foo/bar"
//   - Absolute or relative directory path
func Find(pattern string) (*Result, error) {
	return FindDir(pattern, "")
}

// FindDir is like Find but allows specifying a working directory.
func FindDir(pattern, dir string) (*Result, error) {
	// Type-check from source: export data omits the unexported funcs that
	// a package main usually declares.
	cfg := &packages.Config{
		Mode: packages.NeedName | packages.NeedFiles | packages.NeedModule |
			packages.NeedTypes | packages.NeedSyntax | packages.NeedTypesInfo |
			packages.NeedImports | packages.NeedDeps,
		Dir: dir,
	}

	pkgs, err := packages.Load(cfg, pattern)
	if err != nil {
		return nil, errors.Wrap(err, "load package")
	}
	if len(pkgs) == 0 {
		return nil, errors.Newf("no packages found matching %q", pattern)
	}
	if len(pkgs) > 1 {
		return nil, errors.WithHint(
			errors.Newf("multiple packages found matching %q", pattern),
			"specify a single package with --package")
	}

	pkg := pkgs[0]
	if len(pkg.Errors) > 0 {
		return nil, errors.Newf("package errors: %v", pkg.Errors[0])
	}

	result := &Result{
		PackagePath: pkg.PkgPath,
	}
	if pkg.Module != nil {
		result.ModulePath = pkg.Module.Path
		result.ModuleDir = pkg.Module.Dir
	}
	if len(pkg.GoFiles) > 0 {
		result.Dir = filepath.Dir(pkg.GoFiles[0])
	}

	scope := pkg.Types.Scope()
	for _, name := range scope.Names() {
		fn, ok := scope.Lookup(name).(*types.Func)
		if !ok {
			continue
		}
		sig, ok := fn.Type().(*types.Signature)
		if !ok || sig.Recv() != nil || sig.TypeParams().Len() > 0 {
			continue
		}

		if isConfigFunc(sig) {
			result.ConfigFunc = &ConfigFunc{
				Name: fn.Name(),
				Pos:  pkg.Fset.Position(fn.Pos()),
			}
			continue
		}

		if sig.Params().Len() != 0 || sig.Results().Len() != 1 {
			continue
		}
		exportType, ok := classifyType(sig.Results().At(0).Type())
		if !ok {
			continue
		}
		result.Exports = append(result.Exports, Export{
			Name: fn.Name(),
			Type: exportType,
			Pos:  pkg.Fset.Position(fn.Pos()),
		})
	}

	return result, nil
}

// isConfigFunc checks if a signature matches func(*gen.Builder) *gen.Builder.
func isConfigFunc(sig *types.Signature) bool {
	if sig.Params().Len() != 1 || sig.Results().Len() != 1 {
		return false
	}
	return isNamedPtr(sig.Params().At(0).Type(), genPkgPath, "Builder") &&
		isNamedPtr(sig.Results().At(0).Type(), genPkgPath, "Builder")
}

func isNamedPtr(t types.Type, pkgPath, name string) bool {
	ptr, ok := t.(*types.Pointer)
	if !ok {
		return false
	}
	named, ok := ptr.Elem().(*types.Named)
	if !ok {
		return false
	}
	pkg := named.Obj().Pkg()
	return pkg != nil && pkg.Path() == pkgPath && named.Obj().Name() == name
}

// classifyType checks if a type is *fluidgen.App or *gen.Builder.
func classifyType(t types.Type) (ExportType, bool) {
	switch {
	case isNamedPtr(t, appPkgPath, "App"):
		return ExportTypeApp, true
	case isNamedPtr(t, genPkgPath, "Builder"):
		return ExportTypeBuilder, true
	default:
		return 0, false
	}
}

// SelectExport picks the export to use based on found exports and optional name.
//
// If name is empty:
//   - Returns the export if exactly one found
//   - Returns error if zero or multiple found
//
// If name is specified:
//   - Returns the export with that name
//   - Returns error if not found
func SelectExport(exports []Export, name string) (*Export, error) {
	if name != "" {
		for i := range exports {
			if exports[i].Name == name {
				return &exports[i], nil
			}
		}
		return nil, errors.Newf("export %q not found", name)
	}

	switch len(exports) {
	case 0:
		return nil, errors.WithHint(errors.New("no export found"),
			"add a function that returns *fluidgen.App:\n\n"+
				"    func SetupApp() *fluidgen.App {\n"+
				"        app := fluidgen.NewApp()\n"+
				"        // ...\n"+
				"        return app\n"+
				"    }")
	case 1:
		return &exports[0], nil
	default:
		var b strings.Builder
		b.WriteString("multiple exports found:\n")
		for _, e := range exports {
			fmt.Fprintf(&b, "  - %s() %s\n", e.Name, e.Type)
		}
		return nil, errors.WithHint(errors.New(strings.TrimSuffix(b.String(), "\n")),
			"specify which one: fluidgen gen --export <name>")
	}
}
