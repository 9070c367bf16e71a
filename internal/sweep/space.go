package sweep

import (
	"fmt"

	"github.com/zclconf/go-cty/cty"
)

// Space is the swept parameter space: parameter names in declaration
// order, each with its ordered candidate values. A Space is read-only
// after construction.
type Space struct {
	names  []string
	values map[string][]float64
}

// NewSpace builds a Space from the declared parameter order and the
// value lists. Every name must be unique and carry at least one value.
func NewSpace(order []string, values map[string][]float64) (*Space, error) {
	seen := make(map[string]bool, len(order))
	for _, name := range order {
		if seen[name] {
			return nil, fmt.Errorf("duplicate parameter %q", name)
		}
		seen[name] = true
		vals, ok := values[name]
		if !ok {
			return nil, fmt.Errorf("parameter %q has no value list", name)
		}
		if len(vals) == 0 {
			return nil, fmt.Errorf("parameter %q has an empty value list", name)
		}
	}
	if len(order) != len(values) {
		return nil, fmt.Errorf("parameter order names %d parameters, value map has %d", len(order), len(values))
	}

	vals := make(map[string][]float64, len(values))
	for name, v := range values {
		vals[name] = append([]float64(nil), v...)
	}
	return &Space{names: append([]string(nil), order...), values: vals}, nil
}

// Names returns the parameter names in declaration order.
func (s *Space) Names() []string {
	return append([]string(nil), s.names...)
}

// Size returns the number of combinations the full Cartesian product holds.
func (s *Space) Size() int {
	if len(s.names) == 0 {
		return 0
	}
	total := 1
	for _, name := range s.names {
		total *= len(s.values[name])
	}
	return total
}

// Combination is one fully-specified assignment of values to all swept
// parameters. Combinations are treated as read-only once produced.
type Combination map[string]float64

// Vars converts the combination into an HCL evaluation namespace, one
// number variable per parameter.
func (c Combination) Vars() map[string]cty.Value {
	vars := make(map[string]cty.Value, len(c))
	for name, v := range c {
		vars[name] = cty.NumberFloatVal(v)
	}
	return vars
}

// Combinations enumerates the ordered Cartesian product of the space.
// Ordering is lexicographic in the value indices, with the last declared
// parameter varying fastest. An empty space yields an empty result;
// callers decide whether that is fatal.
func (s *Space) Combinations() []Combination {
	if len(s.names) == 0 {
		return nil
	}

	out := make([]Combination, 0, s.Size())
	idx := make([]int, len(s.names))
	for {
		combo := make(Combination, len(s.names))
		for i, name := range s.names {
			combo[name] = s.values[name][idx[i]]
		}
		out = append(out, combo)

		i := len(idx) - 1
		for ; i >= 0; i-- {
			idx[i]++
			if idx[i] < len(s.values[s.names[i]]) {
				break
			}
			idx[i] = 0
		}
		if i < 0 {
			return out
		}
	}
}
