package main

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/vk/sweepgridgo/internal/cli"
)

func TestRun_NoArgsIsCleanExit(t *testing.T) {
	t.Parallel()

	var out bytes.Buffer
	err := run(context.Background(), &out, nil)
	require.NoError(t, err)
	require.Contains(t, out.String(), "Usage:")
}

func TestRun_UnknownFlag(t *testing.T) {
	t.Parallel()

	var out bytes.Buffer
	err := run(context.Background(), &out, []string{"-bogus"})

	var exitErr *cli.ExitError
	require.ErrorAs(t, err, &exitErr)
	require.Equal(t, 2, exitErr.Code)
}

func TestRun_MissingConfigFile(t *testing.T) {
	t.Parallel()

	var out bytes.Buffer
	err := run(context.Background(), &out, []string{filepath.Join(t.TempDir(), "nope.json")})
	require.ErrorContains(t, err, "read")
}

// TestRun_DryRunEndToEnd drives the whole pipeline through the dry-run
// engine: enumerate, filter, derive mesh parameters, save models and the
// summary artifact.
func TestRun_DryRunEndToEnd(t *testing.T) {
	t.Parallel()

	dir := t.TempDir()
	outputDir := filepath.Join(dir, "generated")
	cfgJSON := fmt.Sprintf(`{
  "parameters": {
    "K_ch": [1.0, 2.0],
    "W_ch": [3.0]
  },
  "parameter_units": {"K_ch": "mm", "W_ch": "mm"},
  "batch_filtering": {"target_count": 0},
  "mesh_settings": {
    "interior": "K_ch / 5",
    "axes": {"stream_depth": "W_ch"}
  },
  "file_naming": {"format": "m_K{K_ch}_W{W_ch}"},
  "template_model": "templates/base.mph",
  "output_directory": %q,
  "execution_settings": {"log_level": "error"}
}`, outputDir)
	cfgPath := filepath.Join(dir, "sweep.json")
	require.NoError(t, os.WriteFile(cfgPath, []byte(cfgJSON), 0o644))

	var out bytes.Buffer
	err := run(context.Background(), &out, []string{"-seed", "1", "-dry-run", cfgPath})
	require.NoError(t, err)

	require.FileExists(t, filepath.Join(outputDir, "m_K1.000_W3.000.mph"))
	require.FileExists(t, filepath.Join(outputDir, "m_K2.000_W3.000.mph"))
	require.FileExists(t, filepath.Join(outputDir, "m_K1.000_W3.000_metadata.json"))

	raw, err := os.ReadFile(filepath.Join(outputDir, "generation_summary.json"))
	require.NoError(t, err)

	var summary struct {
		Attempted int    `json:"total_attempted"`
		Succeeded int    `json:"successful_generations"`
		Failed    int    `json:"failed_generations"`
		Rate      string `json:"success_rate"`
	}
	require.NoError(t, json.Unmarshal(raw, &summary))
	require.Equal(t, 2, summary.Attempted)
	require.Equal(t, 2, summary.Succeeded)
	require.Zero(t, summary.Failed)
	require.Equal(t, "100.0%", summary.Rate)
}
