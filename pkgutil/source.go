package pkgutil

import (
	"fmt"
	"go/ast"
	"go/importer"
	"go/parser"
	"go/token"
	"go/types"

	"golang.org/x/tools/go/packages"
)

// NewInfo allocates a types.Info recording everything the analyses consume.
func NewInfo() *types.Info {
	return &types.Info{
		Types:      make(map[ast.Expr]types.TypeAndValue),
		Defs:       make(map[*ast.Ident]types.Object),
		Uses:       make(map[*ast.Ident]types.Object),
		Implicits:  make(map[ast.Node]types.Object),
		Instances:  make(map[*ast.Ident]types.Instance),
		Scopes:     make(map[ast.Node]*types.Scope),
		Selections: make(map[*ast.SelectorExpr]*types.Selection),
	}
}

// CheckSource parses and type checks a single file package from a string.
// Imports are type checked from source, so the go command is not involved.
// The result is shaped like a package returned by LoadPackages.
func CheckSource(source string) (*packages.Package, error) {
	fset := token.NewFileSet()
	file, err := parser.ParseFile(fset, "main.go", source, parser.AllErrors|parser.ParseComments)
	if err != nil {
		return nil, err
	}

	var errs []error
	conf := &types.Config{
		Importer: importer.ForCompiler(fset, "source", nil),
		Error:    func(err error) { errs = append(errs, err) },
	}

	info := NewInfo()
	tpkg, _ := conf.Check(file.Name.Name, fset, []*ast.File{file}, info)
	if len(errs) > 0 {
		return nil, fmt.Errorf("%w: %v (and %d more)", ErrLoad, errs[0], len(errs)-1)
	}

	return &packages.Package{
		ID:         file.Name.Name,
		Name:       file.Name.Name,
		PkgPath:    file.Name.Name,
		Fset:       fset,
		Syntax:     []*ast.File{file},
		Types:      tpkg,
		TypesInfo:  info,
		TypesSizes: types.SizesFor("gc", "amd64"),
	}, nil
}
