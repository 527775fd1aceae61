package lattice

import (
	"errors"
	"strings"

	"github.com/fatih/color"

	"github.com/cs-au-dk/gflow/analysis/variable"
	"github.com/cs-au-dk/gflow/utils"
)

var colorize = struct {
	Element func(...interface{}) string
	Const   func(...interface{}) string
	Key     func(...interface{}) string
}{
	Element: func(is ...interface{}) string {
		return utils.CanColorize(color.New(color.FgCyan).SprintFunc())(is...)
	},
	Const: func(is ...interface{}) string {
		return utils.CanColorize(color.New(color.FgHiWhite).SprintFunc())(is...)
	},
	Key: func(is ...interface{}) string {
		return utils.CanColorize(color.New(color.FgYellow).SprintFunc())(is...)
	},
}

var errInternal = errors.New("internal error")

// Pretty is String with colors for terminal output.
func (a Assumption) Pretty() string {
	switch {
	case a.mp == nil:
		return colorize.Element("⊥")
	case a.mp.Len() == 0:
		return colorize.Element("T")
	}

	strs := make([]string, 0, a.mp.Len())
	a.ForEach(func(v *variable.Variable, val Value) {
		var vs string
		if val.IsConstant() {
			vs = colorize.Const(val)
		} else {
			vs = colorize.Element(val)
		}
		strs = append(strs, colorize.Key(v.Name())+"="+vs)
	})
	return "{" + strings.Join(strs, ", ") + "}"
}
