package engine

import (
	"context"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/require"
)

func TestSolver_MissingInstallation(t *testing.T) {
	if os.Getenv("ENGINE_HOME") != "" {
		t.Skip("ENGINE_HOME is set in the environment")
	}

	solver := NewSolver("", "", time.Minute)
	_, err := solver.RunSolve(context.Background(), "model.mph", t.TempDir())
	require.ErrorContains(t, err, "engine installation not found")
}

func TestSolver_FailedJobIsReported(t *testing.T) {
	t.Parallel()

	// A home without a bin/<binary> makes the job fail immediately.
	solver := NewSolver(t.TempDir(), "nonexistent-solver", time.Minute)
	resultsDir := filepath.Join(t.TempDir(), "results")

	_, err := solver.RunSolve(context.Background(), "model.mph", resultsDir)
	require.ErrorContains(t, err, "batch job for model.mph failed")

	// The results directory is still created before the job runs.
	info, statErr := os.Stat(resultsDir)
	require.NoError(t, statErr)
	require.True(t, info.IsDir())
}

func TestSolver_Defaults(t *testing.T) {
	t.Parallel()

	solver := NewSolver("/opt/engine", "", 0)
	require.Equal(t, time.Hour, solver.Timeout)
	require.Equal(t, "comsol", solver.Binary)
}
