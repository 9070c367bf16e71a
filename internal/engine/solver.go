package engine

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"os"
	"os/exec"
	"path/filepath"
	"time"
)

// commonEngineHomes are probed when no installation root is configured.
var commonEngineHomes = []string{
	"/Applications/COMSOL/COMSOL56/Multiphysics",
	"/usr/local/comsol56/multiphysics",
	"C:/Program Files/COMSOL/COMSOL56/Multiphysics",
}

// Solver runs fully externalized batch jobs against a locally installed
// engine. Each job is bounded by a hard timeout; a job that exceeds it
// is terminated and reported as failed rather than left hanging.
type Solver struct {
	Home    string
	Binary  string
	Timeout time.Duration
}

// NewSolver builds a Solver. An empty home falls back to the ENGINE_HOME
// environment variable and then to well-known installation paths.
func NewSolver(home, binary string, timeout time.Duration) *Solver {
	if timeout <= 0 {
		timeout = time.Hour
	}
	if binary == "" {
		binary = "comsol"
	}
	return &Solver{Home: home, Binary: binary, Timeout: timeout}
}

// SolveResult describes one completed batch job.
type SolveResult struct {
	ModelFile  string        `json:"model_file"`
	ResultsDir string        `json:"results_dir"`
	Files      []string      `json:"files_generated"`
	Duration   time.Duration `json:"-"`
}

// RunSolve executes the engine's batch mode on one saved model and scans
// the results directory. A deadline overrun is surfaced as an error
// wrapping context.DeadlineExceeded so callers can classify it.
func (s *Solver) RunSolve(ctx context.Context, modelFile, resultsDir string) (*SolveResult, error) {
	bin, err := s.command()
	if err != nil {
		return nil, err
	}
	if err := os.MkdirAll(resultsDir, 0o755); err != nil {
		return nil, fmt.Errorf("create results directory: %w", err)
	}

	ctx, cancel := context.WithTimeout(ctx, s.Timeout)
	defer cancel()

	start := time.Now()
	cmd := exec.CommandContext(ctx, bin,
		"batch",
		"-inputfile", modelFile,
		"-batchlog", filepath.Join(resultsDir, "solve.log"),
		"-outputfile", filepath.Join(resultsDir, "solved_"+filepath.Base(modelFile)),
	)
	var output bytes.Buffer
	cmd.Stdout = &output
	cmd.Stderr = &output

	if err := cmd.Run(); err != nil {
		if errors.Is(ctx.Err(), context.DeadlineExceeded) {
			return nil, fmt.Errorf("batch job for %s exceeded %s: %w", modelFile, s.Timeout, context.DeadlineExceeded)
		}
		return nil, fmt.Errorf("batch job for %s failed: %w: %s", modelFile, err, bytes.TrimSpace(output.Bytes()))
	}

	result := &SolveResult{ModelFile: modelFile, ResultsDir: resultsDir, Duration: time.Since(start)}
	entries, err := os.ReadDir(resultsDir)
	if err != nil {
		return nil, fmt.Errorf("scan results: %w", err)
	}
	for _, entry := range entries {
		if !entry.IsDir() {
			result.Files = append(result.Files, entry.Name())
		}
	}
	return result, nil
}

// command resolves the engine binary path from the configured home, the
// environment, or well-known installation locations.
func (s *Solver) command() (string, error) {
	home := s.Home
	if home == "" {
		home = os.Getenv("ENGINE_HOME")
	}
	if home == "" {
		for _, candidate := range commonEngineHomes {
			if _, err := os.Stat(candidate); err == nil {
				home = candidate
				break
			}
		}
	}
	if home == "" {
		return "", errors.New("engine installation not found; set engine.home or ENGINE_HOME")
	}
	return filepath.Join(home, "bin", s.Binary), nil
}
