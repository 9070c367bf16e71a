// Package engine defines the boundary to the external Model Engine: a
// connection that loads model templates into scoped sessions, and the
// session operations the orchestrator drives (parameterize, mesh, save).
// The engine owns all physics and meshing behavior; this package only
// specifies the contract and provides a dry-run stand-in, a remote HTTP
// client and an externalized batch solver.
package engine

import (
	"context"
	"errors"

	"github.com/vk/sweepgridgo/internal/mesh"
)

// ErrUnknownParameter marks a parameter name the loaded model does not
// carry. The orchestrator logs it as a warning, never a failure.
var ErrUnknownParameter = errors.New("unknown model parameter")

// Engine is a connection to the Model Engine. It is a single stateful
// session holder: one loaded model at a time, no concurrent access.
type Engine interface {
	// Load opens the model template into a new scoped session.
	Load(ctx context.Context, template string) (Session, error)
	// Close releases the engine connection.
	Close() error
}

// Session is one loaded model. Callers must reach Close on every path;
// the external resource must never leak across iterations.
type Session interface {
	// SetParameter applies one parameter value, formatted with its unit
	// annotation (e.g. "2.50[mm]").
	SetParameter(name, value string) error
	// Parameter reads a parameter back from the model.
	Parameter(name string) (string, error)
	// RunMesh executes the engine's meshing step with derived sizing.
	RunMesh(ctx context.Context, params mesh.Params) error
	// Save persists the model under the given path.
	Save(ctx context.Context, path string) error
	// Close unloads the model.
	Close() error
}

// Pinger is implemented by engines that can verify connectivity before
// the batch loop starts.
type Pinger interface {
	Ping(ctx context.Context) error
}
