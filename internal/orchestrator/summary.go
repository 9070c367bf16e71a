package orchestrator

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"time"

	"gonum.org/v1/gonum/floats"
	"gonum.org/v1/gonum/stat"

	"github.com/vk/sweepgridgo/internal/config"
)

// SummaryFilename is the aggregate artifact written once per run, kept
// distinct from the individual model outputs.
const SummaryFilename = "generation_summary.json"

// ParameterStats describes the coverage of one swept parameter across
// the attempted population.
type ParameterStats struct {
	Min  float64 `json:"min"`
	Max  float64 `json:"max"`
	Mean float64 `json:"mean"`
}

// FileInfo describes one generated model artifact.
type FileInfo struct {
	Filename     string `json:"filename"`
	RelativePath string `json:"relative_path"`
	SizeBytes    int64  `json:"size_bytes"`
}

// Summary aggregates all per-combination results with the configuration
// echoed for provenance.
type Summary struct {
	RunID          string                    `json:"run_id"`
	GeneratedAt    time.Time                 `json:"generated_at"`
	Attempted      int                       `json:"total_attempted"`
	Succeeded      int                       `json:"successful_generations"`
	Failed         int                       `json:"failed_generations"`
	SuccessRate    string                    `json:"success_rate"`
	Interrupted    bool                      `json:"interrupted,omitempty"`
	UnderDelivered bool                      `json:"under_delivered,omitempty"`
	Coverage       map[string]ParameterStats `json:"parameter_coverage"`
	Files          []FileInfo                `json:"generated_files"`
	Results        []Result                  `json:"results"`
	Configuration  *config.Config            `json:"configuration"`
}

func newSummary(runID string, cfg *config.Config, results []Result, interrupted bool) *Summary {
	s := &Summary{
		RunID:         runID,
		GeneratedAt:   time.Now().UTC(),
		Attempted:     len(results),
		Interrupted:   interrupted,
		Coverage:      coverage(cfg.ParameterOrder, results),
		Results:       results,
		Configuration: cfg,
	}
	for _, r := range results {
		if r.Succeeded {
			s.Succeeded++
			s.Files = append(s.Files, fileInfo(cfg.OutputDir, r.OutputPath))
		} else {
			s.Failed++
		}
	}
	if s.Attempted > 0 {
		s.SuccessRate = fmt.Sprintf("%.1f%%", float64(s.Succeeded)/float64(s.Attempted)*100)
	} else {
		s.SuccessRate = "0%"
	}
	target := cfg.Filtering.TargetCount
	s.UnderDelivered = target > 0 && len(results) < target
	return s
}

// coverage computes min/max/mean of every swept parameter over the
// attempted combinations.
func coverage(names []string, results []Result) map[string]ParameterStats {
	out := make(map[string]ParameterStats, len(names))
	if len(results) == 0 {
		return out
	}
	for _, name := range names {
		xs := make([]float64, 0, len(results))
		for _, r := range results {
			if v, ok := r.Values[name]; ok {
				xs = append(xs, v)
			}
		}
		if len(xs) == 0 {
			continue
		}
		out[name] = ParameterStats{
			Min:  floats.Min(xs),
			Max:  floats.Max(xs),
			Mean: stat.Mean(xs, nil),
		}
	}
	return out
}

func fileInfo(outputDir, path string) FileInfo {
	info := FileInfo{Filename: filepath.Base(path)}
	if rel, err := filepath.Rel(outputDir, path); err == nil {
		info.RelativePath = rel
	} else {
		info.RelativePath = path
	}
	if st, err := os.Stat(path); err == nil {
		info.SizeBytes = st.Size()
	}
	return info
}

// Write persists the summary into the output directory and returns the
// artifact path.
func (s *Summary) Write(outputDir string) (string, error) {
	raw, err := json.MarshalIndent(s, "", "  ")
	if err != nil {
		return "", fmt.Errorf("encode summary: %w", err)
	}
	path := filepath.Join(outputDir, SummaryFilename)
	if err := os.WriteFile(path, raw, 0o644); err != nil {
		return "", fmt.Errorf("write summary: %w", err)
	}
	return path, nil
}
