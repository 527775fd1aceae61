package main

import (
	"fmt"
	"time"

	"github.com/cs-au-dk/gflow/analysis/constprop"
	"github.com/cs-au-dk/gflow/analysis/dce"
	"github.com/cs-au-dk/gflow/analysis/rewrite"

	"github.com/fatih/color"
)

// optimizeStats sums up the rewriting of all functions.
type optimizeStats struct {
	rewrite rewrite.Stats
	dce     dce.Stats
}

func gatherMetrics(results []solved, stats *optimizeStats) {
	if !opts.Metrics() || len(results) == 0 {
		return
	}

	msg := "================ Results =====================\n\n"

	var (
		total                        time.Duration
		nodes, edges, visits, folded int
		failed                       int
	)
	for _, r := range results {
		msg += "Function: " + r.fun.String() + "\n"
		msg += fmt.Sprintf("Nodes: %d, edges: %d, variables: %d\n", r.g.Len(), r.g.NumEdges(), r.g.Vars.Len())
		nodes += r.g.Len()
		edges += r.g.NumEdges()
		total += r.time

		switch {
		case r.err != nil:
			msg += "Outcome: " + color.RedString("failed") + "\n" + r.err.Error() + "\n"
			failed++
		case r.res != nil:
			folds := len(constprop.NewFactory(r.fun.Pkg).Folds(r.g, r.res))
			msg += fmt.Sprintf("Visits: %d, constant reads: %d\n", r.res.Visits, folds)
			visits += r.res.Visits
			folded += folds
		}
		msg += "Time: " + r.time.String() + "\n"
		msg += "Function finished\n\n"
	}

	msg += fmt.Sprintf("Functions: %d (%d failed)\n", len(results), failed)
	msg += fmt.Sprintf("Nodes: %d, edges: %d, visits: %d\n", nodes, edges, visits)
	msg += fmt.Sprintf("Constant reads: %d\n", folded)
	msg += "Time: " + total.String() + "\n"

	if stats != nil {
		rw := stats.rewrite
		msg += fmt.Sprintf("Substituted: %d, rejected: %d, kept alive: %d\n",
			rw.Substituted, rw.Rejected, rw.KeptAlive)
		if opts.DCE() {
			d := stats.dce
			msg += fmt.Sprintf("Eliminated branches: %d, loops: %d, variables: %d, imports: %d\n",
				d.Branches, d.Loops, d.Vars, d.Imports)
		}
	}
	msg += "================ Results ====================="
	fmt.Println(msg)
}
