package rewrite

import (
	"fmt"
	"go/types"

	"github.com/cs-au-dk/gflow/pkgutil"

	"golang.org/x/tools/go/packages"
)

type (
	// importer resolves imports to the already loaded, and possibly already
	// re-checked, packages.
	importer []*types.Package

	// Transformer rewrites the syntax of a package in place. It may rely on
	// the type information computed before any rewriting.
	Transformer func(pkg *packages.Package) error
)

var _ types.Importer = importer(nil)

// Import retrieves the package at the given path.
func (fi importer) Import(path string) (*types.Package, error) {
	for _, pkg := range fi {
		if pkg.Path() == path {
			return pkg, nil
		}
	}
	return nil, fmt.Errorf("cannot import %s", path)
}

// ASTTransform applies transform to every package outside GOROOT,
// dependencies first, and re-computes the type information of the rewritten
// packages. The first error stops the rewriting of further packages.
func ASTTransform(pkgs []*packages.Package, transform Transformer) (rerr error) {
	newPkgs := map[*types.Package]*types.Package{}
	packages.Visit(pkgs, func(pkg *packages.Package) bool {
		if pkg.Types == nil || pkgutil.CheckPkgInGoroot(pkg.Types) {
			return false
		}
		newPkgs[pkg.Types] = types.NewPackage(pkg.Types.Path(), pkg.Types.Name())
		return true
	}, func(pkg *packages.Package) {
		if rerr != nil || pkg.Types == nil || pkgutil.CheckPkgInGoroot(pkg.Types) {
			return
		}

		if err := transform(pkg); err != nil {
			rerr = fmt.Errorf("rewriting %s: %w", pkg.PkgPath, err)
			return
		}

		// Mirrors how go/packages type checks a package it loads from source.
		info := pkgutil.NewInfo()
		tpkg := newPkgs[pkg.Types]

		// Replace imported packages with their re-checked versions.
		imps := pkg.Types.Imports()
		for i, imp := range imps {
			if npkg, found := newPkgs[imp]; found {
				imps[i] = npkg
			}
		}

		if err := types.NewChecker(
			&types.Config{Importer: importer(imps)},
			pkg.Fset, tpkg, info,
		).Files(pkg.Syntax); err != nil {
			rerr = fmt.Errorf("%w: %s: %v", ErrIllTyped, pkg.PkgPath, err)
			return
		}

		pkg.Types = tpkg
		pkg.TypesInfo = info
	})

	return
}
