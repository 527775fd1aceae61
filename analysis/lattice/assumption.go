package lattice

import (
	"strings"

	"github.com/benbjohnson/immutable"

	"github.com/cs-au-dk/gflow/analysis/variable"
)

// indexComparer orders variables by their index in the function's table.
type indexComparer struct{}

func (indexComparer) Compare(a, b int) int {
	switch {
	case a < b:
		return -1
	case a > b:
		return 1
	}
	return 0
}

// entry is the value stored under a variable index.
type entry struct {
	v   *variable.Variable
	val Value
}

// Assumption is the set of facts known about the variables of a function
// at a program point. Variables without an entry are unobserved.
//
// The zero value is ⊥, the fact of an edge that has not been reached.
// Unconstrained() is the empty map.
type Assumption struct {
	mp *immutable.SortedMap[int, entry]
}

// None is the not yet computed fact.
var None = Assumption{}

// Unconstrained returns the fact that constrains no variable.
func Unconstrained() Assumption {
	return Assumption{immutable.NewSortedMap[int, entry](indexComparer{})}
}

// IsNone holds for the ⊥ fact.
func (a Assumption) IsNone() bool {
	return a.mp == nil
}

// Get returns the recorded value for v.
func (a Assumption) Get(v *variable.Variable) (Value, bool) {
	if a.mp == nil {
		return Value{}, false
	}
	e, ok := a.mp.Get(v.Index)
	return e.val, ok
}

// Literal returns the literal v is pinned to, if any.
func (a Assumption) Literal(v *variable.Variable) (Literal, bool) {
	if val, ok := a.Get(v); ok {
		return val.Literal()
	}
	return Literal{}, false
}

// Set records val for v. Setting on ⊥ starts from the unconstrained fact.
func (a Assumption) Set(v *variable.Variable, val Value) Assumption {
	if a.mp == nil {
		a = Unconstrained()
	}
	return Assumption{a.mp.Set(v.Index, entry{v, val})}
}

// Remove forgets everything about v, making it unobserved.
func (a Assumption) Remove(v *variable.Variable) Assumption {
	if a.mp == nil {
		return a
	}
	return Assumption{a.mp.Delete(v.Index)}
}

// Len is the number of observed variables.
func (a Assumption) Len() int {
	if a.mp == nil {
		return 0
	}
	return a.mp.Len()
}

// ForEach visits the observed variables by increasing index.
func (a Assumption) ForEach(do func(*variable.Variable, Value)) {
	if a.mp == nil {
		return
	}
	for iter := a.mp.Iterator(); !iter.Done(); {
		_, e, _ := iter.Next()
		do(e.v, e.val)
	}
}

// Join keeps the variables recorded on both sides with equal values.
// Joining with ⊥ is the identity.
func (a Assumption) Join(b Assumption) Assumption {
	switch {
	case a.mp == nil:
		return b
	case b.mp == nil:
		return a
	}

	// Iterate the smaller map.
	small, large := a, b
	if large.mp.Len() < small.mp.Len() {
		small, large = large, small
	}

	res := small
	small.ForEach(func(v *variable.Variable, val Value) {
		if other, ok := large.Get(v); !ok || !other.Equal(val) {
			res.mp = res.mp.Delete(v.Index)
		}
	})
	return res
}

// Equal is structural equality. ⊥ only equals ⊥.
func (a Assumption) Equal(b Assumption) bool {
	if a.mp == nil || b.mp == nil {
		return a.mp == nil && b.mp == nil
	}
	if a.mp == b.mp {
		return true
	}
	if a.mp.Len() != b.mp.Len() {
		return false
	}

	ia, ib := a.mp.Iterator(), b.mp.Iterator()
	for !ia.Done() {
		ka, xa, _ := ia.Next()
		kb, xb, _ := ib.Next()
		if ka != kb || !xa.val.Equal(xb.val) {
			return false
		}
	}
	return true
}

// Height bounds the length of any ascending chain of facts over n variables:
// every variable moves at most twice, and ⊥ adds one more step.
func Height(n int) int {
	return 2*n + 1
}

// String renders ⊥ as "⊥", the unconstrained fact as "T", and otherwise the
// observed variables as {a=1, b=⊤}.
func (a Assumption) String() string {
	switch {
	case a.mp == nil:
		return "⊥"
	case a.mp.Len() == 0:
		return "T"
	}

	strs := make([]string, 0, a.mp.Len())
	a.ForEach(func(v *variable.Variable, val Value) {
		strs = append(strs, v.Name()+"="+val.String())
	})
	return "{" + strings.Join(strs, ", ") + "}"
}
