package pkgutil

import (
	"errors"
	"fmt"
	"go/ast"
	"go/parser"
	"go/token"
	"os"
	"path/filepath"
	"regexp"

	"golang.org/x/exp/slices"
	"golang.org/x/tools/go/packages"
)

// LoadConfig selects where packages are loaded from. With a ModulePath the
// go command runs in module-aware mode inside that module, otherwise in
// GOPATH mode. IncludeTests also loads the _test.go files of each package.
type LoadConfig struct {
	GoPath, ModulePath string
	IncludeTests       bool
}

// Folding needs syntax and types for the loaded packages only.
const loadMode = packages.NeedName | packages.NeedFiles | packages.NeedCompiledGoFiles |
	packages.NeedImports | packages.NeedTypes | packages.NeedTypesSizes | packages.NeedSyntax |
	packages.NeedTypesInfo | packages.NeedDeps

// ErrLoad is returned when the loaded packages contain parse or type errors.
var ErrLoad = errors.New("errors encountered while loading packages")

var moduleDirective = regexp.MustCompile(`(?m)^module\s+(\S+)`)

// ModuleName reads the module path declared by the go.mod file in dir.
func ModuleName(dir string) (string, error) {
	contents, err := os.ReadFile(filepath.Join(dir, "go.mod"))
	if err != nil {
		return "", fmt.Errorf("unable to load 'go.mod' file at %s: %w", dir, err)
	}
	m := moduleDirective.FindSubmatch(contents)
	if m == nil {
		return "", fmt.Errorf("unable to locate module name in 'go.mod' file at %s", dir)
	}
	return string(m[1]), nil
}

// parseRelative parses files under names relative to the working directory,
// so printed positions do not depend on where the repository is checked out.
func parseRelative() func(*token.FileSet, string, []byte) (*ast.File, error) {
	cwd, err := os.Getwd()
	return func(fset *token.FileSet, filename string, src []byte) (*ast.File, error) {
		if err == nil {
			if rel, err := filepath.Rel(cwd, filename); err == nil {
				filename = rel
			}
		}
		return parser.ParseFile(fset, filename, src, parser.AllErrors|parser.ParseComments)
	}
}

func (cfg LoadConfig) packagesConfig() (*packages.Config, error) {
	gopath, err := filepath.Abs(cfg.GoPath)
	if err != nil {
		return nil, err
	}

	config := &packages.Config{
		Mode:      loadMode,
		Tests:     cfg.IncludeTests,
		ParseFile: parseRelative(),
		Env:       append(os.Environ(), "GOPATH="+gopath, "GO111MODULE=off"),
	}
	if cfg.ModulePath == "" {
		return config, nil
	}

	dir, err := filepath.Abs(cfg.ModulePath)
	if err != nil {
		return nil, err
	}
	if _, err := ModuleName(dir); err != nil {
		return nil, err
	}
	config.Dir = dir
	config.Env[len(config.Env)-1] = "GO111MODULE=on"
	return config, nil
}

// LoadPackages loads and type checks the packages matching pattern. The
// packages are sorted by import path.
func LoadPackages(cfg LoadConfig, pattern string) ([]*packages.Package, error) {
	config, err := cfg.packagesConfig()
	if err != nil {
		return nil, err
	}
	return load(config, pattern)
}

// LoadPackagesFromSource loads a single file main package from a string
// through the go command. CheckSource does the same without the go command.
func LoadPackagesFromSource(source string) ([]*packages.Package, error) {
	const file = "/fake/testpackage/main.go"
	return load(&packages.Config{
		Mode:    loadMode,
		Env:     append(os.Environ(), "GO111MODULE=off", "GOPATH=/fake"),
		Overlay: map[string][]byte{file: []byte(source)},
	}, file)
}

func load(config *packages.Config, pattern string) ([]*packages.Package, error) {
	pkgs, err := packages.Load(config, pattern)
	if err != nil {
		return nil, err
	}
	if n := packages.PrintErrors(pkgs); n > 0 {
		return nil, fmt.Errorf("%w (%d errors)", ErrLoad, n)
	}

	if config.Tests {
		// A package with tests is also loaded as "p [p.test]". Only that
		// variant is kept, so every function is seen once.
		ids := make(map[string]bool, len(pkgs))
		for _, pkg := range pkgs {
			ids[pkg.ID] = true
		}
		kept := pkgs[:0]
		for _, pkg := range pkgs {
			if !ids[pkg.ID+" ["+pkg.ID+".test]"] {
				kept = append(kept, pkg)
			}
		}
		pkgs = kept
	}

	slices.SortStableFunc(pkgs, func(a, b *packages.Package) bool {
		return a.PkgPath < b.PkgPath
	})
	return pkgs, nil
}
