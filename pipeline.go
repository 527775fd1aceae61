package main

import (
	"bytes"
	"fmt"
	"go/ast"
	"go/format"
	"log"
	"os"
	"strconv"
	"strings"
	"sync"
	"time"

	"github.com/cs-au-dk/gflow/analysis/cfg"
	"github.com/cs-au-dk/gflow/analysis/constprop"
	"github.com/cs-au-dk/gflow/analysis/dce"
	"github.com/cs-au-dk/gflow/analysis/rewrite"
	"github.com/cs-au-dk/gflow/pkgutil"
	"github.com/cs-au-dk/gflow/utils"
	"github.com/cs-au-dk/gflow/utils/worklist"

	"github.com/fatih/color"
	"golang.org/x/tools/go/packages"
)

// pipeline runs a task over the selected functions of the loaded packages.
type pipeline struct {
	pkgs []*packages.Package
	funs []*pkgutil.Function
}

// solved is the outcome of analyzing one function.
type solved struct {
	fun *pkgutil.Function
	g   *cfg.Cfg
	// res is nil if the analysis was not run or failed.
	res  *constprop.Result
	err  error
	time time.Duration
}

// solveAll builds the CFG of every selected function and, if analyze is set,
// runs constant propagation on it. Up to -jobs functions are processed at
// once. The results are in the order of the selected functions.
func (p pipeline) solveAll(analyze bool) []solved {
	out := make([]solved, len(p.funs))

	W := worklist.Empty[int]()
	for i := range p.funs {
		W.Add(i)
	}

	var wg sync.WaitGroup
	for j := 0; j < opts.Jobs(); j++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			for {
				i, ok := W.TryGetNextConc()
				if !ok {
					return
				}
				out[i] = p.solve(p.funs[i], analyze)
			}
		}()
	}
	wg.Wait()

	for _, s := range out {
		if s.err != nil {
			log.Println(color.RedString("Analysis of %s failed:", s.fun), s.err)
		}
	}
	return out
}

func (p pipeline) solve(fun *pkgutil.Function, analyze bool) (s solved) {
	start := time.Now()
	defer func() { s.time = time.Since(start) }()

	s.fun = fun
	s.g = cfg.Build(fun.Pkg.Fset, fun.Pkg.TypesInfo, fun.Node)
	if !analyze {
		return
	}
	s.res, s.err = constprop.NewFactory(fun.Pkg).Solve(s.g)
	if s.err != nil {
		s.res = nil
	}
	return
}

func header(fun *pkgutil.Function) string {
	return utils.FuncString(fun.Pkg.PkgPath, fun.Name) + " at " + fun.Pkg.Fset.Position(fun.Node.Pos()).String()
}

// printCfgs prints the trace of every selected function.
func (p pipeline) printCfgs() {
	results := p.solveAll(false)
	for _, s := range results {
		fmt.Println(header(s.fun))
		fmt.Println(cfg.Printer{Colorize: !opts.NoColorize()}.Print(s.g))
	}
	gatherMetrics(results, nil)
}

// analyze prints the trace of every selected function with its facts.
func (p pipeline) analyze() {
	results := p.solveAll(true)
	for _, s := range results {
		if s.res == nil {
			continue
		}
		fmt.Println(header(s.fun))
		fmt.Println(constprop.Printer(s.res, !opts.NoColorize()).Print(s.g))
	}
	gatherMetrics(results, nil)
}

// optimize folds the constant reads of the selected functions and, with -dce,
// eliminates the code this makes dead. The files declaring the selected
// functions are printed, or written back with -w.
func (p pipeline) optimize() {
	results := p.solveAll(true)

	byPkg := make(map[*packages.Package][]solved)
	for _, s := range results {
		if s.res != nil {
			byPkg[s.fun.Pkg] = append(byPkg[s.fun.Pkg], s)
		}
	}

	stats := &optimizeStats{}
	err := rewrite.ASTTransform(p.pkgs, func(pkg *packages.Package) error {
		for _, s := range byPkg[pkg] {
			f := constprop.NewFactory(pkg)
			st := rewrite.Function(f.Fset, f.Types, f.Info, s.g.Fun, f.Folds(s.g, s.res))
			stats.rewrite.Add(st)
		}
		return nil
	})
	if err != nil {
		log.Fatalln(color.RedString("Constant folding failed:"), err)
	}

	if opts.DCE() {
		err := rewrite.ASTTransform(p.pkgs, func(pkg *packages.Package) error {
			if len(byPkg[pkg]) > 0 {
				stats.dce.Add(dce.Package(pkg))
			}
			return nil
		})
		if err != nil {
			log.Fatalln(color.RedString("Dead code elimination failed:"), err)
		}
	}

	if err := p.output(); err != nil {
		log.Fatalln(err)
	}
	gatherMetrics(results, stats)
}

// output prints or writes the files declaring the selected functions.
func (p pipeline) output() error {
	seen := make(map[*ast.File]bool)
	for _, fun := range p.funs {
		if seen[fun.File] {
			continue
		}
		seen[fun.File] = true

		var buf bytes.Buffer
		if err := format.Node(&buf, fun.Pkg.Fset, fun.File); err != nil {
			return fmt.Errorf("failed to format %s: %w", fun.Pkg.PkgPath, err)
		}

		name := fun.Pkg.Fset.File(fun.File.Pos()).Name()
		if opts.Write() {
			if err := os.WriteFile(name, buf.Bytes(), 0o644); err != nil {
				return fmt.Errorf("failed to write %s: %w", name, err)
			}
			opts.OnVerbose(func() { log.Println("Wrote", name) })
			continue
		}
		fmt.Println(color.HiBlackString("// " + name))
		fmt.Print(buf.String())
	}
	return nil
}

// cfgToDot renders the CFG of every selected function, with its facts, to
// an image.
func (p pipeline) cfgToDot() {
	results := p.solveAll(true)
	for i, s := range results {
		var fact func(cfg.EdgeID) string
		if s.res != nil {
			fact = constprop.Labeler(s.res)
		}

		out := opts.Output()
		switch {
		case out == "":
			out = sanitize(s.fun.Name)
		case len(results) > 1:
			out += "-" + strconv.Itoa(i+1)
		}

		path, err := s.g.Visualize(s.fun.String(), fact, out, opts.OutputFormat())
		if err != nil {
			log.Println(color.RedString("Rendering %s failed:", s.fun), err)
			continue
		}
		log.Println("Rendered", s.fun, "to", path)
	}
	gatherMetrics(results, nil)
}

// sanitize turns a function name into a file name.
func sanitize(name string) string {
	return strings.NewReplacer("(", "", ")", "", "*", "", "$", "_", ".", "_").Replace(name)
}

// exportFacts writes the fact tables of the selected functions as MessagePack
// to -o, or to gflow_facts.msgpack.
func (p pipeline) exportFacts() {
	results := p.solveAll(true)

	var facts []constprop.FunctionFacts
	for _, s := range results {
		if s.res != nil {
			facts = append(facts, constprop.Facts(s.fun.String(), s.g, s.res))
		}
	}

	path := opts.Output()
	if path == "" {
		path = "gflow_facts.msgpack"
	}
	f, err := os.Create(path)
	if err != nil {
		log.Fatalln(err)
	}
	defer f.Close()

	if err := constprop.Export(f, facts); err != nil {
		log.Fatalln(err)
	}
	log.Printf("Exported the facts of %d functions to %s", len(facts), path)
	gatherMetrics(results, nil)
}
