package utils

import (
	"flag"
	"fmt"
	"log"
	"strings"
)

type options struct {
	minlen       uint
	jobs         uint
	nodesep      float64
	function     string
	outputFormat string
	output       string
	gopath       string
	modulePath   string
	task         string
	config       string
	metrics      bool
	noColorize   bool
	verbose      bool
	includeTests bool
	write        bool
	dce          bool
}

const (
	_CFG = iota
	_ANALYZE
	_OPTIMIZE
	_CFG_TO_DOT
	_EXPORT_FACTS
)

func CanColorize(col func(...interface{}) string) func(...interface{}) string {
	if opts.noColorize {
		return func(is ...interface{}) string {
			return fmt.Sprintf(strings.Repeat("%s", len(is)), is...)
		}
	}
	return col
}

var task = []struct{ flag, explanation string }{{
	"cfg",
	"Print the control-flow graph trace of the selected functions",
}, {
	"analyze",
	"Print the control-flow graph trace annotated with the converged constant facts",
}, {
	"optimize",
	"Fold constant reads in the selected functions and print (or write) the rewritten files",
}, {
	"cfg-to-dot",
	"Render the control-flow graph of the selected function, with facts, to an image",
}, {
	"export-facts",
	"Write the converged fact tables of the selected functions as MessagePack",
}}

var opts = &options{}

type optInterface struct{}

type taskInterface struct{}

func Opts() optInterface {
	return optInterface{}
}

func (optInterface) NoColorize() bool {
	return opts.noColorize
}
func (optInterface) Minlen() uint {
	return opts.minlen
}
func (optInterface) Nodesep() float64 {
	return opts.nodesep
}
func (optInterface) Function() string {
	return opts.function
}
func (optInterface) OutputFormat() string {
	return opts.outputFormat
}
func (optInterface) Output() string {
	return opts.output
}
func (optInterface) GoPath() string {
	return opts.gopath
}
func (optInterface) ModulePath() string {
	return opts.modulePath
}

// Jobs is the number of functions analyzed concurrently. It is at least 1.
func (optInterface) Jobs() int {
	if opts.jobs == 0 {
		return 1
	}
	return int(opts.jobs)
}
func (optInterface) Task() taskInterface {
	return taskInterface{}
}
func (taskInterface) IsCfg() bool {
	return opts.task == task[_CFG].flag
}
func (taskInterface) IsAnalyze() bool {
	return opts.task == task[_ANALYZE].flag
}
func (taskInterface) IsOptimize() bool {
	return opts.task == task[_OPTIMIZE].flag
}
func (taskInterface) IsCfgToDot() bool {
	return opts.task == task[_CFG_TO_DOT].flag
}
func (taskInterface) IsExportFacts() bool {
	return opts.task == task[_EXPORT_FACTS].flag
}
func (optInterface) Metrics() bool {
	return opts.metrics
}
func (optInterface) Verbose() bool {
	return opts.verbose
}
func (optInterface) IncludeTests() bool {
	return opts.includeTests
}
func (optInterface) Write() bool {
	return opts.write
}
func (optInterface) DCE() bool {
	return opts.dce
}

func init() {
	taskFlag := "\n"
	for _, task := range task {
		taskFlag += task.flag + " -- " + task.explanation + "\n"
	}
	taskFlag += "\n"

	flag.UintVar(&(opts.minlen), "minlen", 2, "Minimum edge length (for wider output).")
	flag.Float64Var(&(opts.nodesep), "nodesep", 0.35, "Minimum space between two adjacent nodes in the same rank (for taller output).")
	flag.UintVar(&(opts.jobs), "jobs", 1, "Number of functions analyzed concurrently.")
	flag.StringVar(&(opts.function), "fun", ".", "target a specific function w. r. t. the given task.\n"+
		"- Function names need not be fully qualified w.r.t. package name. Methods are written Type.Method.\n"+
		"- Use '.' to target all functions in the loaded packages.\n")
	flag.StringVar(&(opts.outputFormat), "format", "svg", "output file format [dot | svg | png | jpg | ...]")
	flag.StringVar(&(opts.output), "o", "", "output file (without extension for cfg-to-dot)")
	flag.StringVar(&(opts.gopath), "gopath", "examples", "specify GOPATH to be used for packages.Load")
	flag.StringVar(&(opts.modulePath), "modulepath", "", `specify a path to a directory containing a Go module.
- If provided this will make our code loading tools (that piggyback on Go's tools) run
in "module-aware" mode (GO111MODULE=on).`)
	flag.StringVar(&(opts.task), "task", task[_ANALYZE].flag, "Set the task to do during execution. Options:"+taskFlag)
	flag.StringVar(&(opts.config), "config", "", "YAML file with option overrides (flags given on the command line take precedence)")
	flag.BoolVar(&(opts.metrics), "metrics", false, "Report per-function analysis metrics")
	flag.BoolVar(&(opts.noColorize), "no-colorize", false, "Disable pretty printer colorization")
	flag.BoolVar(&(opts.verbose), "verbose", false, "enable verbose output")
	flag.BoolVar(&(opts.includeTests), "include-tests", false, "include test files in the analysis.")
	flag.BoolVar(&(opts.write), "w", false, "write rewritten files back instead of printing them")
	flag.BoolVar(&(opts.dce), "dce", false, "run dead-code elimination after folding constants")

	// Set up logging
	log.SetFlags(log.Ltime | log.Lshortfile)
}

func ParseArgs() {
	// Calling flag.Parse in init messes up unit tests.
	// See https://stackoverflow.com/questions/60235896/flag-provided-but-not-defined-test-v
	flag.Parse()

	if opts.config != "" {
		set := make(map[string]bool)
		flag.Visit(func(f *flag.Flag) { set[f.Name] = true })

		cfg, err := ReadConfig(opts.config)
		if err != nil {
			log.Fatalln(err)
		}
		cfg.apply(opts, set)
	}

	validTask := false
	for _, task := range task {
		if task.flag == opts.task {
			validTask = true
			break
		}
	}

	if !validTask {
		log.Fatalf("Value \"%s\" is not valid for -task", opts.task)
	}

	if Opts().Task().IsCfgToDot() || Opts().Task().IsExportFacts() || opts.write {
		opts.noColorize = true
	}
}

func (optInterface) AnalyzeAllFuncs() bool {
	return opts.function == "."
}

func (optInterface) OnVerbose(do func()) {
	if Opts().Verbose() {
		do()
	}
}
