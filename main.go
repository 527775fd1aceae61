package main

import (
	"log"
	"os"
	"regexp"

	"github.com/cs-au-dk/gflow/pkgutil"
	"github.com/cs-au-dk/gflow/utils"

	"github.com/fatih/color"
)

var (
	opts = utils.Opts()
	task = opts.Task()
)

func main() {
	utils.ParseArgs()
	path := utils.MakePath()

	pkgs, err := pkgutil.LoadPackages(pkgutil.LoadConfig{
		GoPath:       opts.GoPath(),
		ModulePath:   opts.ModulePath(),
		IncludeTests: opts.IncludeTests(),
	}, path)
	if err != nil {
		log.Println("Failed pkgutil.LoadPackages")
		log.Println(err)
		os.Exit(1)
	}

	pattern := "."
	if !opts.AnalyzeAllFuncs() {
		// Methods may be selected without their receiver.
		pattern = `(^|\.)` + regexp.QuoteMeta(opts.Function()) + "$"
	}
	funs, err := pkgutil.MatchFunctions(pkgs, pattern)
	if err != nil {
		log.Fatalln(err)
	}
	if len(funs) == 0 {
		log.Println(color.YellowString("No functions matching %q in %s", opts.Function(), path))
		return
	}

	utils.VerbosePrint("Selected %d functions from %d packages\n", len(funs), len(pkgs))
	for _, fun := range funs {
		utils.VerbosePrint("  %s at %s\n", fun, fun.Pkg.Fset.Position(fun.Node.Pos()))
	}

	pl := pipeline{pkgs: pkgs, funs: funs}

	switch {
	case task.IsCfg():
		pl.printCfgs()
	case task.IsAnalyze():
		pl.analyze()
	case task.IsOptimize():
		pl.optimize()
	case task.IsCfgToDot():
		pl.cfgToDot()
	case task.IsExportFacts():
		pl.exportFacts()
	}
}
