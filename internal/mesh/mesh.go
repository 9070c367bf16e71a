// Package mesh derives mesh sizing quantities from the geometric
// parameters of one combination: an interior mesh size plus, per axis, an
// integer cell count and the mesh size that tiles the axis exactly.
package mesh

import (
	"errors"
	"fmt"
	"math"
	"sort"

	"github.com/hashicorp/hcl/v2"
	"github.com/zclconf/go-cty/cty"

	"github.com/vk/sweepgridgo/internal/sweep"
)

// Axis holds the derived sizing for one axis dimension. Size*Cells
// reproduces Dimension exactly by construction.
type Axis struct {
	Dimension float64 `json:"dimension"`
	Cells     int     `json:"cells"`
	Size      float64 `json:"mesh_size"`
}

// Params is the derived mesh record attached to one combination.
type Params struct {
	InteriorSize float64         `json:"interior_mesh_size"`
	Axes         map[string]Axis `json:"axes"`
}

// Calculator evaluates the configured mesh expressions against a
// combination. The interior expression (e.g. "K_ch / 5") yields the base
// discretization length; each axis expression yields the dimension that
// axis must tile.
type Calculator struct {
	interior  hcl.Expression
	axes      map[string]hcl.Expression
	axisNames []string
}

// NewCalculator builds a Calculator from pre-parsed expressions.
func NewCalculator(interior hcl.Expression, axes map[string]hcl.Expression) *Calculator {
	names := make([]string, 0, len(axes))
	for name := range axes {
		names = append(names, name)
	}
	sort.Strings(names)
	return &Calculator{interior: interior, axes: axes, axisNames: names}
}

// Compute derives the mesh parameters for one combination. A
// non-positive interior size or axis dimension is a configuration
// problem and returns an error.
func (c *Calculator) Compute(combo sweep.Combination) (Params, error) {
	if c.interior == nil {
		return Params{}, errors.New("no interior mesh size expression configured")
	}
	evalCtx := &hcl.EvalContext{Variables: combo.Vars()}

	interior, err := evalNumber(c.interior, evalCtx)
	if err != nil {
		return Params{}, fmt.Errorf("interior mesh size: %w", err)
	}
	if interior <= 0 {
		return Params{}, fmt.Errorf("interior mesh size must be positive, got %g", interior)
	}

	params := Params{InteriorSize: interior, Axes: make(map[string]Axis, len(c.axes))}
	for _, name := range c.axisNames {
		dim, err := evalNumber(c.axes[name], evalCtx)
		if err != nil {
			return Params{}, fmt.Errorf("axis %q: %w", name, err)
		}
		if dim <= 0 {
			return Params{}, fmt.Errorf("axis %q: dimension must be positive, got %g", name, dim)
		}
		cells := int(math.Round(dim / interior))
		if cells < 1 {
			cells = 1
		}
		params.Axes[name] = Axis{
			Dimension: dim,
			Cells:     cells,
			Size:      dim / float64(cells),
		}
	}
	return params, nil
}

func evalNumber(expr hcl.Expression, evalCtx *hcl.EvalContext) (float64, error) {
	val, diags := expr.Value(evalCtx)
	if diags.HasErrors() {
		return 0, diags
	}
	if val.Type() != cty.Number {
		return 0, fmt.Errorf("expression must yield a number, got %s", val.Type().FriendlyName())
	}
	f, _ := val.AsBigFloat().Float64()
	return f, nil
}
