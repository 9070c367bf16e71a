package mesh

import (
	"testing"

	"github.com/hashicorp/hcl/v2"
	"github.com/hashicorp/hcl/v2/hclsyntax"
	"github.com/stretchr/testify/require"

	"github.com/vk/sweepgridgo/internal/sweep"
)

func mustExpr(t *testing.T, src string) hcl.Expression {
	t.Helper()
	expr, diags := hclsyntax.ParseExpression([]byte(src), "test", hcl.InitialPos)
	require.False(t, diags.HasErrors(), "parse %q: %v", src, diags)
	return expr
}

func channelCalculator(t *testing.T) *Calculator {
	t.Helper()
	return NewCalculator(mustExpr(t, "K_ch / 5"), map[string]hcl.Expression{
		"stream_width": mustExpr(t, "K_ch"),
		"stream_depth": mustExpr(t, "W_ch"),
	})
}

func TestCompute_ChannelExample(t *testing.T) {
	t.Parallel()

	params, err := channelCalculator(t).Compute(sweep.Combination{"K_ch": 2.5, "W_ch": 3.0})
	require.NoError(t, err)

	require.InDelta(t, 0.5, params.InteriorSize, 1e-12)

	depth := params.Axes["stream_depth"]
	require.Equal(t, 6, depth.Cells)
	require.InDelta(t, 0.5, depth.Size, 1e-12)

	width := params.Axes["stream_width"]
	require.Equal(t, 5, width.Cells)
	require.InDelta(t, 0.5, width.Size, 1e-12)
}

func TestCompute_SizeTimesCellsReproducesDimension(t *testing.T) {
	t.Parallel()

	calc := channelCalculator(t)
	for _, combo := range []sweep.Combination{
		{"K_ch": 1.0, "W_ch": 1.0},
		{"K_ch": 2.5, "W_ch": 3.0},
		{"K_ch": 3.0, "W_ch": 0.7},
		{"K_ch": 0.123, "W_ch": 9.99},
	} {
		params, err := calc.Compute(combo)
		require.NoError(t, err)
		for name, axis := range params.Axes {
			require.GreaterOrEqual(t, axis.Cells, 1, "axis %s", name)
			require.InDelta(t, axis.Dimension, axis.Size*float64(axis.Cells), 1e-9, "axis %s", name)
		}
	}
}

func TestCompute_TinyDimensionClampsToOneCell(t *testing.T) {
	t.Parallel()

	// raw cells = 0.1/0.5 = 0.2, rounds to 0, clamps to 1.
	params, err := channelCalculator(t).Compute(sweep.Combination{"K_ch": 2.5, "W_ch": 0.1})
	require.NoError(t, err)

	depth := params.Axes["stream_depth"]
	require.Equal(t, 1, depth.Cells)
	require.InDelta(t, 0.1, depth.Size, 1e-12)
}

func TestCompute_ZeroDimensionIsError(t *testing.T) {
	t.Parallel()

	calc := channelCalculator(t)

	_, err := calc.Compute(sweep.Combination{"K_ch": 0, "W_ch": 1})
	require.ErrorContains(t, err, "interior mesh size must be positive")

	_, err = calc.Compute(sweep.Combination{"K_ch": 2.5, "W_ch": 0})
	require.ErrorContains(t, err, `axis "stream_depth"`)
}

func TestCompute_MissingParameterIsError(t *testing.T) {
	t.Parallel()

	_, err := channelCalculator(t).Compute(sweep.Combination{"K_ch": 2.5})
	require.Error(t, err)
}

func TestCompute_NoInteriorExpressionIsError(t *testing.T) {
	t.Parallel()

	calc := NewCalculator(nil, nil)
	_, err := calc.Compute(sweep.Combination{"K_ch": 2.5})
	require.ErrorContains(t, err, "no interior mesh size expression")
}
