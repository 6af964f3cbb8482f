// Package gosrc answers source-level questions about runtime values: where a
// type or function is declared, its doc comment, and the constants of an
// enum-like type. Packages are loaded lazily with go/packages and cached for
// the life of an Index, which is meant to last a single generation run.
package gosrc

import (
	"go/ast"
	"go/constant"
	"go/token"
	"go/types"
	"path/filepath"
	"reflect"
	"sort"
	"strings"
	"sync"

	"github.com/cockroachdb/errors"
	"golang.org/x/tools/go/packages"
)

const loadMode = packages.NeedName |
	packages.NeedFiles |
	packages.NeedCompiledGoFiles |
	packages.NeedImports |
	packages.NeedTypes |
	packages.NeedSyntax |
	packages.NeedTypesInfo

// Index loads and caches packages on demand.
type Index struct {
	root    string
	mainDir string

	mu       sync.Mutex
	fset     *token.FileSet
	pkgs     map[string]*packages.Package
	loadErrs map[string]error
	member   map[reflect.Type]bool
	realpath map[string]string
}

// Option configures an Index.
type Option func(*Index)

// WithMainPackage sets the directory loaded for the package path "main".
// Types and functions declared in a command's main package report that path,
// which go/packages cannot resolve on its own.
func WithMainPackage(dir string) Option {
	return func(x *Index) { x.mainDir = dir }
}

// New returns an Index whose project-membership test is bounded by root.
func New(root string, opts ...Option) (*Index, error) {
	abs, err := filepath.Abs(root)
	if err != nil {
		return nil, errors.Wrapf(err, "resolve project root %s", root)
	}
	real, err := filepath.EvalSymlinks(abs)
	if err != nil {
		return nil, errors.Wrapf(err, "resolve project root %s", root)
	}
	x := &Index{
		root:     real,
		fset:     token.NewFileSet(),
		pkgs:     make(map[string]*packages.Package),
		loadErrs: make(map[string]error),
		member:   make(map[reflect.Type]bool),
		realpath: make(map[string]string),
	}
	for _, opt := range opts {
		opt(x)
	}
	return x, nil
}

// Root returns the symlink-resolved project root.
func (x *Index) Root() string { return x.root }

// Package loads the package with the given import path.
func (x *Index) Package(path string) (*packages.Package, error) {
	x.mu.Lock()
	defer x.mu.Unlock()
	return x.loadLocked(path)
}

func (x *Index) loadLocked(path string) (*packages.Package, error) {
	if pkg, ok := x.pkgs[path]; ok {
		return pkg, nil
	}
	if err, ok := x.loadErrs[path]; ok {
		return nil, err
	}

	cfg := &packages.Config{Mode: loadMode, Dir: x.root, Fset: x.fset}
	pattern := path
	if path == "main" {
		if x.mainDir == "" {
			err := errors.New("package main has no known directory")
			x.loadErrs[path] = err
			return nil, err
		}
		cfg.Dir = x.mainDir
		pattern = "."
	}

	pkgs, err := packages.Load(cfg, pattern)
	if err == nil && len(pkgs) == 0 {
		err = errors.Newf("package %s not found", path)
	}
	if err == nil && len(pkgs[0].Errors) > 0 {
		err = errors.Newf("package %s has errors: %v", path, pkgs[0].Errors)
	}
	if err != nil {
		err = errors.Wrapf(err, "load %s", path)
		x.loadErrs[path] = err
		return nil, err
	}
	x.pkgs[path] = pkgs[0]
	return pkgs[0], nil
}

// Fset returns the file set shared by every loaded package.
func (x *Index) Fset() *token.FileSet { return x.fset }

// baseName strips generic instantiation arguments from a reflect type name.
func baseName(t reflect.Type) string {
	name := t.Name()
	if i := strings.IndexByte(name, '['); i >= 0 {
		name = name[:i]
	}
	return name
}

// TypeName finds the declaration of a named type.
func (x *Index) TypeName(t reflect.Type) (*types.TypeName, *packages.Package, error) {
	if t.Name() == "" || t.PkgPath() == "" {
		return nil, nil, errors.Newf("%s is not a declared type", t)
	}
	pkg, err := x.Package(t.PkgPath())
	if err != nil {
		return nil, nil, err
	}
	obj, ok := pkg.Types.Scope().Lookup(baseName(t)).(*types.TypeName)
	if !ok {
		return nil, nil, errors.Newf("type %s not found in %s", baseName(t), t.PkgPath())
	}
	return obj, pkg, nil
}

// TypeFile returns the symlink-resolved file declaring t.
func (x *Index) TypeFile(t reflect.Type) (string, error) {
	obj, _, err := x.TypeName(t)
	if err != nil {
		return "", err
	}
	return x.RealPath(x.fset.Position(obj.Pos()).Filename)
}

// RealPath resolves symlinks in an absolute path, memoized.
func (x *Index) RealPath(path string) (string, error) {
	x.mu.Lock()
	if p, ok := x.realpath[path]; ok {
		x.mu.Unlock()
		return p, nil
	}
	x.mu.Unlock()

	real, err := filepath.EvalSymlinks(path)
	if err != nil {
		return "", errors.Wrapf(err, "resolve %s", path)
	}
	x.mu.Lock()
	x.realpath[path] = real
	x.mu.Unlock()
	return real, nil
}

// UnderRoot reports whether the resolved file lies inside the project root.
func (x *Index) UnderRoot(file string) bool {
	rel, err := filepath.Rel(x.root, file)
	if err != nil {
		return false
	}
	return rel != ".." && !strings.HasPrefix(rel, ".."+string(filepath.Separator)) && !filepath.IsAbs(rel)
}

// IsProjectType is the project-membership test: t's declaring file resolves
// under the project root. Types that cannot be located are not members.
func (x *Index) IsProjectType(t reflect.Type) bool {
	if t == nil {
		return false
	}
	x.mu.Lock()
	if v, ok := x.member[t]; ok {
		x.mu.Unlock()
		return v
	}
	x.mu.Unlock()

	ok := false
	if file, err := x.TypeFile(t); err == nil {
		ok = x.UnderRoot(file)
	}

	x.mu.Lock()
	x.member[t] = ok
	x.mu.Unlock()
	return ok
}

// Doc is a parsed doc comment.
type Doc struct {
	Text       string
	Deprecated string
}

// parseDoc splits a comment group into text and a Deprecated: paragraph.
func parseDoc(cg *ast.CommentGroup) Doc {
	if cg == nil {
		return Doc{}
	}
	lines := strings.Split(strings.TrimSpace(cg.Text()), "\n")
	var doc Doc
	for i, line := range lines {
		if strings.HasPrefix(line, "Deprecated:") {
			doc.Deprecated = strings.TrimSpace(strings.TrimPrefix(line, "Deprecated:"))
			lines = append(lines[:i], lines[i+1:]...)
			break
		}
	}
	doc.Text = strings.TrimSpace(strings.Join(lines, "\n"))
	return doc
}

// typeSpec finds the AST spec of a declared type and its enclosing decl.
func (x *Index) typeSpec(t reflect.Type) (*ast.TypeSpec, *ast.GenDecl, error) {
	obj, pkg, err := x.TypeName(t)
	if err != nil {
		return nil, nil, err
	}
	pos := obj.Pos()
	for _, file := range pkg.Syntax {
		if file.Pos() > pos || file.End() < pos {
			continue
		}
		for _, decl := range file.Decls {
			gd, ok := decl.(*ast.GenDecl)
			if !ok || gd.Tok != token.TYPE {
				continue
			}
			for _, spec := range gd.Specs {
				if ts, ok := spec.(*ast.TypeSpec); ok && ts.Name.Pos() == pos {
					return ts, gd, nil
				}
			}
		}
	}
	return nil, nil, errors.Newf("declaration of %s not found", t)
}

// TypeDoc returns the doc comment of a declared type.
func (x *Index) TypeDoc(t reflect.Type) Doc {
	ts, gd, err := x.typeSpec(t)
	if err != nil {
		return Doc{}
	}
	if ts.Doc != nil {
		return parseDoc(ts.Doc)
	}
	return parseDoc(gd.Doc)
}

// FieldDocs returns each struct field's doc or trailing line comment, keyed
// by Go field name.
func (x *Index) FieldDocs(t reflect.Type) map[string]Doc {
	out := make(map[string]Doc)
	ts, _, err := x.typeSpec(t)
	if err != nil {
		return out
	}
	st, ok := ts.Type.(*ast.StructType)
	if !ok {
		return out
	}
	for _, f := range st.Fields.List {
		cg := f.Doc
		if cg == nil {
			cg = f.Comment
		}
		if cg == nil {
			continue
		}
		doc := parseDoc(cg)
		for _, name := range f.Names {
			out[name.Name] = doc
		}
		if len(f.Names) == 0 {
			if id := embeddedName(f.Type); id != "" {
				out[id] = doc
			}
		}
	}
	return out
}

func embeddedName(e ast.Expr) string {
	switch e := e.(type) {
	case *ast.Ident:
		return e.Name
	case *ast.StarExpr:
		return embeddedName(e.X)
	case *ast.SelectorExpr:
		return e.Sel.Name
	case *ast.IndexExpr:
		return embeddedName(e.X)
	case *ast.IndexListExpr:
		return embeddedName(e.X)
	}
	return ""
}

// EnumConstant is a declared constant of an enum-like type.
type EnumConstant struct {
	Name  string
	Value any // string, int64, float64 or bool
	Doc   string
}

// EnumConstants returns the package-level constants whose type is exactly t,
// in declaration order. A named basic type with at least one such constant is
// treated as an enum.
func (x *Index) EnumConstants(t reflect.Type) ([]EnumConstant, error) {
	obj, pkg, err := x.TypeName(t)
	if err != nil {
		return nil, err
	}
	named, ok := obj.Type().(*types.Named)
	if !ok {
		return nil, nil
	}
	if _, ok := named.Underlying().(*types.Basic); !ok {
		return nil, nil
	}

	var consts []*types.Const
	scope := pkg.Types.Scope()
	for _, name := range scope.Names() {
		if c, ok := scope.Lookup(name).(*types.Const); ok && types.Identical(c.Type(), named) {
			consts = append(consts, c)
		}
	}
	sort.Slice(consts, func(i, j int) bool { return consts[i].Pos() < consts[j].Pos() })

	docs := x.constDocs(pkg)
	out := make([]EnumConstant, 0, len(consts))
	for _, c := range consts {
		out = append(out, EnumConstant{
			Name:  c.Name(),
			Value: constantValue(c.Val()),
			Doc:   docs[c.Pos()],
		})
	}
	return out, nil
}

func (x *Index) constDocs(pkg *packages.Package) map[token.Pos]string {
	docs := make(map[token.Pos]string)
	for _, file := range pkg.Syntax {
		for _, decl := range file.Decls {
			gd, ok := decl.(*ast.GenDecl)
			if !ok || gd.Tok != token.CONST {
				continue
			}
			for _, spec := range gd.Specs {
				vs := spec.(*ast.ValueSpec)
				cg := vs.Doc
				if cg == nil {
					cg = vs.Comment
				}
				if cg == nil {
					continue
				}
				for _, name := range vs.Names {
					docs[name.Pos()] = strings.TrimSpace(cg.Text())
				}
			}
		}
	}
	return docs
}

// constantValue converts a constant.Value to string, int64, float64 or bool.
func constantValue(v constant.Value) any {
	switch v.Kind() {
	case constant.String:
		return constant.StringVal(v)
	case constant.Int:
		i64, _ := constant.Int64Val(v)
		return i64
	case constant.Float:
		f64, _ := constant.Float64Val(v)
		return f64
	case constant.Bool:
		return constant.BoolVal(v)
	default:
		return v.String()
	}
}

// IsEnum reports whether t is a named basic type with at least one declared
// constant.
func (x *Index) IsEnum(t reflect.Type) bool {
	consts, err := x.EnumConstants(t)
	return err == nil && len(consts) > 0
}
