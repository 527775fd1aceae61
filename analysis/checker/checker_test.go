package checker_test

import (
	"testing"

	"github.com/cs-au-dk/gflow/analysis/checker"

	"golang.org/x/tools/go/analysis/analysistest"
)

func TestAnalyzer(t *testing.T) {
	analysistest.RunWithSuggestedFixes(t, analysistest.TestData(), checker.Analyzer, "a")
}
