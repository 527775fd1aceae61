package pkgutil

import (
	"fmt"
	"go/ast"
	"go/types"
	"os"
	"path/filepath"
	"regexp"
	"runtime"
	"strings"

	"golang.org/x/tools/go/packages"
)

// CheckPkgInGoroot checks whether a package is declared in GOROOT.
func CheckPkgInGoroot(pkg *types.Package) bool {
	path := filepath.Join(runtime.GOROOT(), "src", pkg.Path())
	if fi, err := os.Stat(path); err == nil && fi.IsDir() {
		return true
	}
	return false
}

// Function is a function body found in the syntax of a loaded package.
type Function struct {
	Pkg  *packages.Package
	File *ast.File
	// Node is either an *ast.FuncDecl or an *ast.FuncLit.
	Node ast.Node
	// Name follows the ssa naming scheme: f, (T).m, (*T).m, and f$1, f$1$2
	// for function literals nested in f.
	Name string
}

func (f *Function) Body() *ast.BlockStmt {
	switch n := f.Node.(type) {
	case *ast.FuncDecl:
		return n.Body
	case *ast.FuncLit:
		return n.Body
	}
	return nil
}

func (f *Function) String() string {
	return f.Pkg.PkgPath + "." + f.Name
}

// Functions enumerates every function with a body in the package, in source
// order. Function literals follow their enclosing function.
func Functions(pkg *packages.Package) (funs []*Function) {
	for _, file := range pkg.Syntax {
		for _, decl := range file.Decls {
			fd, ok := decl.(*ast.FuncDecl)
			if !ok || fd.Body == nil {
				continue
			}
			name := declName(fd)
			funs = append(funs, &Function{pkg, file, fd, name})
			funs = append(funs, literals(pkg, file, fd.Body, name)...)
		}
	}
	return
}

// literals collects the function literals directly nested in body, and
// recursively the literals nested in those.
func literals(pkg *packages.Package, file *ast.File, body *ast.BlockStmt, parent string) (funs []*Function) {
	count := 0
	ast.Inspect(body, func(n ast.Node) bool {
		lit, ok := n.(*ast.FuncLit)
		if !ok {
			return true
		}
		count++
		name := fmt.Sprintf("%s$%d", parent, count)
		funs = append(funs, &Function{pkg, file, lit, name})
		funs = append(funs, literals(pkg, file, lit.Body, name)...)
		return false
	})
	return
}

func declName(fd *ast.FuncDecl) string {
	if fd.Recv == nil || len(fd.Recv.List) == 0 {
		return fd.Name.Name
	}

	recv := fd.Recv.List[0].Type
	star := ""
	if s, ok := recv.(*ast.StarExpr); ok {
		star, recv = "*", s.X
	}
	// Drop type parameters of generic receivers.
	switch r := recv.(type) {
	case *ast.IndexExpr:
		recv = r.X
	case *ast.IndexListExpr:
		recv = r.X
	}
	return fmt.Sprintf("(%s%s).%s", star, types.ExprString(recv), fd.Name.Name)
}

// MatchFunctions returns the functions of the given packages whose names
// match the regular expression. Packages in GOROOT are skipped.
func MatchFunctions(pkgs []*packages.Package, pattern string) ([]*Function, error) {
	re, err := regexp.Compile(pattern)
	if err != nil {
		return nil, fmt.Errorf("invalid function pattern %q: %w", pattern, err)
	}

	var funs []*Function
	for _, pkg := range pkgs {
		if pkg.Types != nil && CheckPkgInGoroot(pkg.Types) {
			continue
		}
		for _, fun := range Functions(pkg) {
			if re.MatchString(fun.Name) {
				funs = append(funs, fun)
			}
		}
	}
	return funs, nil
}

// FunctionByName finds a function by its exact name. Used by tests.
func FunctionByName(pkg *packages.Package, name string) (*Function, bool) {
	for _, fun := range Functions(pkg) {
		if fun.Name == name || strings.TrimPrefix(fun.String(), pkg.PkgPath+".") == name {
			return fun, true
		}
	}
	return nil, false
}
