package config

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/require"
)

func writeConfig(t *testing.T, body string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "sweep.json")
	require.NoError(t, os.WriteFile(path, []byte(body), 0o600))
	return path
}

const validConfig = `{
  "parameters": {
    "K_ch": [1.0, 2.0, 3.0],
    "W_ch": [1.0, 3.0],
    "W_rib": [5.0, 10.0]
  },
  "parameter_units": {"K_ch": "mm", "W_ch": "mm", "W_rib": "mm"},
  "batch_filtering": {
    "exclude_condition": {"when": "K_ch > 2.4 && W_ch > 2.4 && W_rib > 9"},
    "sample_rate": 0.5,
    "target_count": 868
  },
  "mesh_settings": {
    "interior": "K_ch / 5",
    "axes": {"stream_width": "K_ch", "stream_depth": "W_ch"}
  },
  "file_naming": {"format": "batch_model_Kch_{K_ch}_Wch_{W_ch}_Wrib_{W_rib}"},
  "template_model": "templates/base.mph",
  "output_directory": "out",
  "execution_settings": {"log_level": "info", "error_tolerance": "continue"},
  "post_processing": {"verify_output": true}
}`

func TestLoad_Valid(t *testing.T) {
	t.Parallel()

	cfg, err := Load(writeConfig(t, validConfig))
	require.NoError(t, err)

	require.Equal(t, []string{"K_ch", "W_ch", "W_rib"}, cfg.ParameterOrder)
	require.Equal(t, 868, cfg.Filtering.TargetCount)
	require.Equal(t, 0.5, *cfg.Filtering.SampleRate)
	require.Equal(t, ToleranceContinue, cfg.Execution.ErrorTolerance)
	require.True(t, cfg.Post.Verify())

	rules := cfg.Filtering.Rules()
	require.Len(t, rules, 1)
	require.NotNil(t, rules[0].Expression())
	require.Equal(t, 0.5, rules[0].Rate(*cfg.Filtering.SampleRate))

	// Defaults.
	require.Equal(t, ".mph", cfg.Naming.Extension)
	require.Equal(t, "comsol", cfg.Engine.Binary)
	require.Equal(t, 60, cfg.Engine.SolveTimeoutMinutes)

	require.NotNil(t, cfg.Mesh.InteriorExpression())
	require.Len(t, cfg.Mesh.AxisExpressions(), 2)
}

func TestLoad_MissingFile(t *testing.T) {
	t.Parallel()

	_, err := Load(filepath.Join(t.TempDir(), "absent.json"))
	var cfgErr *Error
	require.ErrorAs(t, err, &cfgErr)
}

func TestLoad_ValidationFailures(t *testing.T) {
	t.Parallel()

	cases := []struct {
		name    string
		body    string
		wantKey string
	}{
		{
			name:    "no parameters",
			body:    `{"template_model": "t.mph", "output_directory": "out", "file_naming": {"format": "m"}}`,
			wantKey: "parameters",
		},
		{
			name: "empty value list",
			body: `{"parameters": {"K_ch": []}, "template_model": "t.mph",
				"output_directory": "out", "file_naming": {"format": "m"}}`,
			wantKey: "parameters.K_ch",
		},
		{
			name: "missing template",
			body: `{"parameters": {"K_ch": [1]}, "output_directory": "out",
				"file_naming": {"format": "m"}}`,
			wantKey: "template_model",
		},
		{
			name: "unknown placeholder",
			body: `{"parameters": {"K_ch": [1]}, "template_model": "t.mph",
				"output_directory": "out", "file_naming": {"format": "m_{W_ch}"}}`,
			wantKey: "file_naming.format",
		},
		{
			name: "rule references unknown parameter",
			body: `{"parameters": {"K_ch": [1]}, "template_model": "t.mph",
				"output_directory": "out", "file_naming": {"format": "m_{K_ch}"},
				"batch_filtering": {"exclude_condition": {"when": "W_ch > 1"}}}`,
			wantKey: "batch_filtering.exclude_condition[0]",
		},
		{
			name: "sample rate out of range",
			body: `{"parameters": {"K_ch": [1]}, "template_model": "t.mph",
				"output_directory": "out", "file_naming": {"format": "m_{K_ch}"},
				"batch_filtering": {"sample_rate": 1.5}}`,
			wantKey: "batch_filtering.sample_rate",
		},
		{
			name: "missing mesh settings",
			body: `{"parameters": {"K_ch": [1]}, "template_model": "t.mph",
				"output_directory": "out", "file_naming": {"format": "m_{K_ch}"}}`,
			wantKey: "mesh_settings.interior",
		},
		{
			name: "unit for unknown parameter",
			body: `{"parameters": {"K_ch": [1]}, "template_model": "t.mph",
				"output_directory": "out", "file_naming": {"format": "m_{K_ch}"},
				"mesh_settings": {"interior": "K_ch / 5"},
				"parameter_units": {"W_ch": "mm"}}`,
			wantKey: "parameter_units.W_ch",
		},
		{
			name: "bad error tolerance",
			body: `{"parameters": {"K_ch": [1]}, "template_model": "t.mph",
				"output_directory": "out", "file_naming": {"format": "m_{K_ch}"},
				"mesh_settings": {"interior": "K_ch / 5"},
				"execution_settings": {"error_tolerance": "maybe"}}`,
			wantKey: "execution_settings.error_tolerance",
		},
	}

	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			t.Parallel()
			_, err := Load(writeConfig(t, tc.body))
			var cfgErr *Error
			require.ErrorAs(t, err, &cfgErr)
			require.Equal(t, tc.wantKey, cfgErr.Key)
		})
	}
}

func TestLoad_UnparseablePredicate(t *testing.T) {
	t.Parallel()

	body := `{"parameters": {"K_ch": [1]}, "template_model": "t.mph",
		"output_directory": "out", "file_naming": {"format": "m_{K_ch}"},
		"batch_filtering": {"exclude_condition": {"when": "K_ch >"}}}`
	_, err := Load(writeConfig(t, body))
	var cfgErr *Error
	require.ErrorAs(t, err, &cfgErr)
}

func TestLoad_RuleLevelSampleRateOverride(t *testing.T) {
	t.Parallel()

	body := `{"parameters": {"K_ch": [1]}, "template_model": "t.mph",
		"output_directory": "out", "file_naming": {"format": "m_{K_ch}"},
		"mesh_settings": {"interior": "K_ch / 5"},
		"batch_filtering": {
			"exclude_conditions": [
				{"when": "K_ch > 0.5", "sample_rate": 1.0},
				{"when": "K_ch > 0.9"}
			]
		}}`
	cfg, err := Load(writeConfig(t, body))
	require.NoError(t, err)

	rules := cfg.Filtering.Rules()
	require.Len(t, rules, 2)
	require.Equal(t, 1.0, rules[0].Rate(*cfg.Filtering.SampleRate))
	require.Equal(t, 0.5, rules[1].Rate(*cfg.Filtering.SampleRate))
}

func TestLoad_ParameterOrderSurvivesReordering(t *testing.T) {
	t.Parallel()

	body := `{"parameters": {"zeta": [1], "alpha": [2], "mid": [3]},
		"template_model": "t.mph", "output_directory": "out",
		"mesh_settings": {"interior": "zeta / 5"},
		"file_naming": {"format": "m_{zeta}"}}`
	cfg, err := Load(writeConfig(t, body))
	require.NoError(t, err)
	require.Equal(t, []string{"zeta", "alpha", "mid"}, cfg.ParameterOrder)
}

func TestLoad_UnknownTopLevelKey(t *testing.T) {
	t.Parallel()

	body := `{"parameters": {"K_ch": [1]}, "template_model": "t.mph",
		"output_directory": "out", "file_naming": {"format": "m_{K_ch}"},
		"surprise": true}`
	_, err := Load(writeConfig(t, body))
	var cfgErr *Error
	require.ErrorAs(t, err, &cfgErr)
}
