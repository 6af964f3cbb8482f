package gosrc

import (
	"go/ast"
	"go/types"
	"reflect"
	"runtime"
	"strings"

	"github.com/cockroachdb/errors"
	"golang.org/x/tools/go/packages"
)

// FuncSource is the located source of a runtime function value.
type FuncSource struct {
	// Name is the bare Go identifier, e.g. "GetUser". Function literals get
	// the compiler's name, e.g. "func1".
	Name string

	// File is the symlink-resolved declaring file.
	File    string
	Package *packages.Package

	// Exactly one of Decl or Lit is set.
	Decl *ast.FuncDecl
	Lit  *ast.FuncLit
}

// Type returns the function's signature syntax.
func (f *FuncSource) Type() *ast.FuncType {
	if f.Decl != nil {
		return f.Decl.Type
	}
	return f.Lit.Type
}

// Body returns the function body.
func (f *FuncSource) Body() *ast.BlockStmt {
	if f.Decl != nil {
		return f.Decl.Body
	}
	return f.Lit.Body
}

// Doc returns the declaration's doc comment. Function literals have none.
func (f *FuncSource) Doc() Doc {
	if f.Decl == nil {
		return Doc{}
	}
	return parseDoc(f.Decl.Doc)
}

// Info returns type information for the package holding the function.
func (f *FuncSource) Info() *types.Info { return f.Package.TypesInfo }

// FuncName splits a runtime function name such as
// "example.com/app/api.(*Server).GetUser-fm" into its package path and the
// final identifier.
func FuncName(full string) (pkgPath, name string) {
	slash := strings.LastIndexByte(full, '/')
	dot := strings.IndexByte(full[slash+1:], '.')
	if dot < 0 {
		return "", full
	}
	pkgPath = full[:slash+1+dot]
	rest := full[slash+1+dot+1:]
	rest = strings.TrimSuffix(rest, "-fm")
	// Generic instantiations carry a "[...]" suffix.
	rest = strings.ReplaceAll(rest, "[...]", "")
	if i := strings.LastIndexByte(rest, '.'); i >= 0 {
		rest = rest[i+1:]
	}
	return pkgPath, rest
}

// Func locates the source of fn, which must be a non-nil function value.
func (x *Index) Func(fn any) (*FuncSource, error) {
	v := reflect.ValueOf(fn)
	if v.Kind() != reflect.Func || v.IsNil() {
		return nil, errors.Newf("%T is not a function", fn)
	}
	rf := runtime.FuncForPC(v.Pointer())
	if rf == nil {
		return nil, errors.New("function has no runtime information")
	}
	file, line := rf.FileLine(rf.Entry())
	pkgPath, name := FuncName(rf.Name())

	pkg, err := x.Package(pkgPath)
	if err != nil {
		return nil, err
	}
	real, err := x.RealPath(file)
	if err != nil {
		// Method value wrappers report an autogenerated file; match by name.
		return x.funcByName(pkg, name)
	}

	for _, f := range pkg.Syntax {
		pos := x.fset.Position(f.Pos())
		fileReal, err := x.RealPath(pos.Filename)
		if err != nil || fileReal != real {
			continue
		}
		src := &FuncSource{Name: name, File: real, Package: pkg}
		if found := x.findFunc(f, name, line, src); found {
			return src, nil
		}
	}
	return nil, errors.Newf("source of %s not found in %s", rf.Name(), file)
}

func (x *Index) funcByName(pkg *packages.Package, name string) (*FuncSource, error) {
	for _, f := range pkg.Syntax {
		for _, decl := range f.Decls {
			fd, ok := decl.(*ast.FuncDecl)
			if !ok || fd.Body == nil || fd.Name.Name != name {
				continue
			}
			file, err := x.RealPath(x.fset.Position(fd.Pos()).Filename)
			if err != nil {
				return nil, err
			}
			return &FuncSource{Name: name, File: file, Package: pkg, Decl: fd}, nil
		}
	}
	return nil, errors.Newf("function %s not found in %s", name, pkg.PkgPath)
}

// findFunc picks the function whose body spans line. Named declarations are
// matched by name; literals by being the innermost literal containing line.
func (x *Index) findFunc(f *ast.File, name string, line int, src *FuncSource) bool {
	var best ast.Node
	ast.Inspect(f, func(n ast.Node) bool {
		switch n := n.(type) {
		case *ast.FuncDecl:
			if n.Body != nil && n.Name.Name == name && x.spans(n, line) {
				best = n
			}
		case *ast.FuncLit:
			if x.spans(n, line) {
				best = n
			}
		}
		return true
	})
	switch n := best.(type) {
	case *ast.FuncDecl:
		src.Decl = n
		return true
	case *ast.FuncLit:
		src.Lit = n
		return true
	}
	return false
}

func (x *Index) spans(n ast.Node, line int) bool {
	start := x.fset.Position(n.Pos()).Line
	end := x.fset.Position(n.End()).Line
	return start <= line && line <= end
}
