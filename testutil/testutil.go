package testutil

import (
	"bytes"
	"os"
	"path/filepath"
	"sort"
	"strings"
	"testing"

	"github.com/cs-au-dk/gflow/analysis/cfg"
	"github.com/cs-au-dk/gflow/pkgutil"

	"golang.org/x/tools/go/packages"
)

// LoadSource type checks the content of a single main.go file.
func LoadSource(t *testing.T, content string) *packages.Package {
	t.Helper()

	// Invoking the package tools is slow because it uses `go list` under the
	// hood. Files without imports are type checked directly.
	if !bytes.Contains([]byte(content), []byte("import")) {
		pkg, err := pkgutil.CheckSource(content)
		if err != nil {
			t.Fatal(err)
		}
		return pkg
	}

	pkgs, err := pkgutil.LoadPackagesFromSource(content)
	if err != nil {
		t.Fatal(err)
	}
	return pkgs[0]
}

// Function finds the function with the given name, failing the test if
// there is none.
func Function(t *testing.T, pkg *packages.Package, name string) *pkgutil.Function {
	t.Helper()
	fun, ok := pkgutil.FunctionByName(pkg, name)
	if !ok {
		t.Fatalf("function %s not found in %s", name, pkg.PkgPath)
	}
	return fun
}

// BuildCfg builds the control flow graph of the named function in content.
func BuildCfg(t *testing.T, content string, name string) *cfg.Cfg {
	t.Helper()
	pkg := LoadSource(t, content)
	fun := Function(t, pkg, name)
	return cfg.Build(pkg.Fset, pkg.TypesInfo, fun.Node)
}

// LoadExamplePackage loads a package under examples/src.
func LoadExamplePackage(t *testing.T, pathToRoot string, pkg string) *packages.Package {
	t.Helper()
	pkgs, err := pkgutil.LoadPackages(pkgutil.LoadConfig{GoPath: filepath.Join(pathToRoot, "examples")}, pkg)
	if err != nil {
		t.Fatal(err)
	}
	if len(pkgs) == 0 {
		t.Fatalf("no packages found for %s", pkg)
	}
	return pkgs[0]
}

// ListExamples lists the packages under examples/src that declare a main
// function, relative to examples/src.
func ListExamples(t *testing.T, pathToRoot string) []string {
	t.Helper()
	root := filepath.Join(pathToRoot, "examples", "src")

	found := map[string]bool{}
	err := filepath.Walk(root, func(path string, info os.FileInfo, e error) error {
		if e != nil {
			return e
		}
		if info.IsDir() && path != root {
			// Modules need module-aware loading.
			if _, err := os.Stat(filepath.Join(path, "go.mod")); err == nil {
				return filepath.SkipDir
			}
			return nil
		}
		if !info.Mode().IsRegular() || !strings.HasSuffix(path, ".go") || strings.HasSuffix(path, "_test.go") {
			return nil
		}
		content, err := os.ReadFile(path)
		if err != nil {
			return err
		}
		if bytes.Contains(content, []byte("func main()")) {
			rel, err := filepath.Rel(root, filepath.Dir(path))
			if err != nil {
				return err
			}
			found[filepath.ToSlash(rel)] = true
		}
		return nil
	})
	if err != nil {
		t.Fatal(err)
	}

	pkgs := make([]string, 0, len(found))
	for pkg := range found {
		pkgs = append(pkgs, pkg)
	}
	sort.Strings(pkgs)
	return pkgs
}
