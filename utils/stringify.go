package utils

import (
	"github.com/fatih/color"
)

var pkgColor = func(is ...interface{}) string {
	return CanColorize(color.New(color.FgBlue).SprintFunc())(is...)
}
var funColor = func(is ...interface{}) string {
	return CanColorize(color.New(color.FgHiYellow).SprintFunc())(is...)
}
var nodeColor = func(is ...interface{}) string {
	return CanColorize(color.New(color.FgHiCyan).SprintFunc())(is...)
}
var labelColor = func(is ...interface{}) string {
	return CanColorize(color.New(color.FgHiGreen).SprintFunc())(is...)
}
var factColor = func(is ...interface{}) string {
	return CanColorize(color.New(color.FgHiWhite, color.Faint).SprintFunc())(is...)
}

// FuncString renders a function name qualified by its package path.
func FuncString(pkg, fun string) string {
	if pkg == "" {
		return funColor(fun)
	}
	return pkgColor(pkg) + "." + funColor(fun)
}

// NodeString colors the kind and operands of a trace line.
func NodeString(s string) string {
	return nodeColor(s)
}

// LabelString colors an edge label or node number of a trace line.
func LabelString(s string) string {
	return labelColor(s)
}

// FactString colors the rendering of a fact.
func FactString(s string) string {
	return factColor(s)
}
