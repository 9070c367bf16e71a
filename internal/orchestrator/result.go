package orchestrator

import (
	"fmt"

	"github.com/vk/sweepgridgo/internal/mesh"
	"github.com/vk/sweepgridgo/internal/sweep"
)

// ResourceError marks a run-level failure (output directory, engine
// connectivity) that aborts the batch before any combination runs.
type ResourceError struct {
	Op  string
	Err error
}

func (e *ResourceError) Error() string {
	return fmt.Sprintf("%s: %v", e.Op, e.Err)
}

func (e *ResourceError) Unwrap() error { return e.Err }

// Result is the terminal outcome of one combination. A combination
// either succeeded with an output path or failed with a captured error
// description; there is no retry within a run.
type Result struct {
	Index      int               `json:"index"`
	Values     sweep.Combination `json:"values"`
	Succeeded  bool              `json:"succeeded"`
	Error      string            `json:"error,omitempty"`
	Warning    string            `json:"warning,omitempty"`
	OutputPath string            `json:"output_path,omitempty"`
	Mesh       *mesh.Params      `json:"mesh_parameters,omitempty"`
}

func failure(idx int, values sweep.Combination, format string, args ...any) Result {
	return Result{Index: idx, Values: values, Error: fmt.Sprintf(format, args...)}
}
