package sweep

import (
	"fmt"
	"math/rand"

	"github.com/hashicorp/hcl/v2"
	"github.com/zclconf/go-cty/cty"
)

// Rule is an exclusion rule: a boolean predicate over a combination plus
// the probability that a matching combination is dropped.
type Rule struct {
	// When is the predicate expression, evaluated with one number
	// variable per swept parameter.
	When hcl.Expression
	// SampleRate is the exclusion probability in [0,1] applied when the
	// predicate holds.
	SampleRate float64
}

// Matches evaluates the rule's predicate against a combination.
func (r Rule) Matches(c Combination) (bool, error) {
	val, diags := r.When.Value(&hcl.EvalContext{Variables: c.Vars()})
	if diags.HasErrors() {
		return false, fmt.Errorf("evaluate exclusion predicate: %w", diags)
	}
	if val.Type() != cty.Bool {
		return false, fmt.Errorf("exclusion predicate must yield a boolean, got %s", val.Type().FriendlyName())
	}
	return val.True(), nil
}

// Sampler reduces a full combination enumeration to the target
// population: probabilistic thinning of rule-matching combinations, then
// a random truncation down to the hard budget. All randomness comes from
// the injected generator, so a fixed seed reproduces the run exactly.
type Sampler struct {
	rules  []Rule
	target int
	rng    *rand.Rand
}

// NewSampler builds a Sampler. A target of zero disables the hard cap.
func NewSampler(rules []Rule, target int, rng *rand.Rand) *Sampler {
	return &Sampler{rules: rules, target: target, rng: rng}
}

// Apply runs the two-stage reduction and returns the retained
// combinations in their post-permutation order, together with the number
// of combinations dropped by rule thinning. Under-delivery (fewer
// retained than the target) is not an error; callers report it.
func (s *Sampler) Apply(combos []Combination) ([]Combination, int, error) {
	retained := make([]Combination, 0, len(combos))
	excluded := 0

	for _, combo := range combos {
		drop, err := s.thin(combo)
		if err != nil {
			return nil, 0, err
		}
		if drop {
			excluded++
			continue
		}
		retained = append(retained, combo)
	}

	if s.target > 0 && len(retained) > s.target {
		s.rng.Shuffle(len(retained), func(i, j int) {
			retained[i], retained[j] = retained[j], retained[i]
		})
		retained = retained[:s.target]
	}
	return retained, excluded, nil
}

// thin reports whether a combination is dropped. The first rule whose
// predicate holds performs the Bernoulli trial and decides.
func (s *Sampler) thin(c Combination) (bool, error) {
	for _, rule := range s.rules {
		matched, err := rule.Matches(c)
		if err != nil {
			return false, err
		}
		if matched {
			return s.rng.Float64() < rule.SampleRate, nil
		}
	}
	return false, nil
}
