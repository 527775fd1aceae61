package pkgutil

import "testing"

func TestLoadWithModule(t *testing.T) {
	if pkgs, err := LoadPackages(LoadConfig{
		GoPath:     "../examples",
		ModulePath: "../examples/src/pkg-with-module",
	}, "unrelated-name/..."); err != nil {
		t.Fatal(err)
	} else if len(pkgs) != 2 {
		t.Errorf("Expected load result to contain 2 packages, got: %s", pkgs)
	}
}

func TestLoadFromGoPath(t *testing.T) {
	if pkgs, err := LoadPackages(LoadConfig{GoPath: "../examples"}, "pkg-with-test/..."); err != nil {
		t.Fatal(err)
	} else if len(pkgs) != 2 {
		t.Errorf("Expected load result to contain 2 packages, got: %s", pkgs)
	}
}

func TestLoadDemo(t *testing.T) {
	pkgs, err := LoadPackages(LoadConfig{GoPath: "../examples"}, "constfold-demo")
	if err != nil {
		t.Fatal(err)
	}

	funs, err := MatchFunctions(pkgs, "^(counter|loop)$")
	if err != nil {
		t.Fatal(err)
	}
	if len(funs) != 2 {
		t.Errorf("Expected 2 matching functions, got %v", funs)
	}
}

func TestModuleName(t *testing.T) {
	name, err := ModuleName("../examples/src/pkg-with-module")
	if err != nil {
		t.Fatal(err)
	}
	if name != "unrelated-name" {
		t.Errorf("Expected module unrelated-name, got %q", name)
	}

	if _, err := ModuleName("../examples"); err == nil {
		t.Error("Expected an error for a directory without go.mod")
	}
}
