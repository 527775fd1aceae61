package utils

import (
	"flag"
)

// MakePath returns the package pattern to load.
// The first non-flag argument passed to gflow is the target package.
// If no path is provided, it defaults to "constfold-demo".
func MakePath() string {
	if args := flag.Args(); len(args) >= 1 {
		return args[0]
	}
	return "constfold-demo"
}
