// Package resolve maps IR node locations to generated file paths and
// computes the relative imports between generated files.
package resolve

import (
	"fmt"
	"path/filepath"
	"sort"
	"strings"

	"github.com/cockroachdb/errors"

	"github.com/broady/fluidgen/ir"
)

// Strategy decides where generated files are placed.
type Strategy string

const (
	// Mirror recreates the source tree under the output location.
	Mirror Strategy = "mirror"

	// CoLocate writes each generated file next to its source file.
	CoLocate Strategy = "co-locate"
)

const (
	RuntimeFile  = "runtime.ts"
	ManifestFile = ".manifest.json"
)

// ErrOutsideProject is returned when a mirrored source file does not live
// under the project root.
var ErrOutsideProject = errors.New("source file is outside the project root")

// Resolver computes output paths for one generation run.
type Resolver struct {
	Strategy Strategy

	// ProjectRoot is the directory paths are resolved against.
	ProjectRoot string

	// Location is the output directory, relative to ProjectRoot.
	Location string
}

// root returns the absolute, symlink-resolved project root. Source
// locations are already symlink-resolved, so both sides must agree.
func (r *Resolver) root() string {
	abs, err := filepath.Abs(r.ProjectRoot)
	if err != nil {
		abs = filepath.Clean(r.ProjectRoot)
	}
	if real, err := filepath.EvalSymlinks(abs); err == nil {
		return real
	}
	return abs
}

// OutputPath returns the absolute path of the .ts file generated for loc.
func (r *Resolver) OutputPath(loc ir.ModuleLocation) (string, error) {
	if loc.FilePath == "" {
		return "", errors.Newf("location %s has no file path", loc.ModulePath)
	}
	src := filepath.Clean(loc.FilePath)

	switch r.Strategy {
	case CoLocate:
		return swapExt(src, ".ts"), nil
	case Mirror, "":
		root := r.root()
		rel, err := filepath.Rel(root, src)
		if err != nil || rel == ".." || strings.HasPrefix(rel, ".."+string(filepath.Separator)) || filepath.IsAbs(rel) {
			return "", errors.Wrapf(ErrOutsideProject, "%s is not under %s", src, root)
		}
		return filepath.Join(root, r.Location, swapExt(rel, ".ts")), nil
	}
	return "", errors.Newf("unknown output strategy %q", r.Strategy)
}

// RuntimePath returns the absolute path of the shared runtime file.
func (r *Resolver) RuntimePath() string {
	return filepath.Join(r.root(), r.Location, RuntimeFile)
}

// ManifestPath returns the absolute path of the generation manifest.
func (r *Resolver) ManifestPath() string {
	return filepath.Join(r.root(), r.Location, ManifestFile)
}

// ProjectRelative converts an absolute output path into the slash-separated
// form sinks and manifests use.
func (r *Resolver) ProjectRelative(path string) (string, error) {
	root := r.root()
	rel, err := filepath.Rel(root, path)
	if err != nil || rel == ".." || strings.HasPrefix(rel, ".."+string(filepath.Separator)) {
		return "", errors.Wrapf(ErrOutsideProject, "%s is not under %s", path, root)
	}
	return filepath.ToSlash(rel), nil
}

func swapExt(path, ext string) string {
	return strings.TrimSuffix(path, filepath.Ext(path)) + ext
}

// RelativeImportPath returns the module specifier that the generated file
// from uses to import the generated file to. It reports false when both
// paths name the same file.
func RelativeImportPath(from, to string) (string, bool) {
	from, to = filepath.Clean(from), filepath.Clean(to)
	if from == to {
		return "", false
	}
	rel, err := filepath.Rel(filepath.Dir(from), to)
	if err != nil {
		// Different volumes; fall back to the absolute target.
		rel = to
	}
	rel = filepath.ToSlash(swapExt(rel, ""))
	if strings.HasPrefix(rel, "../") {
		return rel, true
	}
	return "./" + rel, true
}

// TypeImports groups the referenced project types by the import path the
// generated file at file needs for each. Types generated into file itself
// are left out. refs maps type names to where they are declared.
func (r *Resolver) TypeImports(file string, refs map[string]ir.ModuleLocation) (map[string][]string, error) {
	out := make(map[string][]string)
	for name, loc := range refs {
		target, err := r.OutputPath(loc)
		if err != nil {
			return nil, errors.Wrapf(err, "import %s", name)
		}
		path, ok := RelativeImportPath(file, target)
		if !ok {
			continue
		}
		out[path] = append(out[path], name)
	}
	return out, nil
}

// ImportBlock renders one `import type` statement per path. Paths and the
// symbols within each statement are sorted.
func ImportBlock(imports map[string][]string) []string {
	paths := make([]string, 0, len(imports))
	for p := range imports {
		paths = append(paths, p)
	}
	sort.Strings(paths)

	lines := make([]string, 0, len(paths))
	for _, p := range paths {
		names := dedupe(imports[p])
		if len(names) == 0 {
			continue
		}
		lines = append(lines, fmt.Sprintf("import type { %s } from '%s';", strings.Join(names, ", "), p))
	}
	return lines
}

// RuntimeImports renders the imports of runtime symbols. Types are imported
// with `import type`; functions with a plain import. Either line is omitted
// when it would be empty.
func RuntimeImports(path string, types, funcs []string) []string {
	var lines []string
	if t := dedupe(types); len(t) > 0 {
		lines = append(lines, fmt.Sprintf("import type { %s } from '%s';", strings.Join(t, ", "), path))
	}
	if f := dedupe(funcs); len(f) > 0 {
		lines = append(lines, fmt.Sprintf("import { %s } from '%s';", strings.Join(f, ", "), path))
	}
	return lines
}

func dedupe(in []string) []string {
	seen := make(map[string]bool, len(in))
	out := make([]string, 0, len(in))
	for _, s := range in {
		if s == "" || seen[s] {
			continue
		}
		seen[s] = true
		out = append(out, s)
	}
	sort.Strings(out)
	return out
}
