package orchestrator

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"path/filepath"
	"strings"

	"github.com/google/uuid"

	"github.com/vk/sweepgridgo/internal/config"
	"github.com/vk/sweepgridgo/internal/ctxlog"
	"github.com/vk/sweepgridgo/internal/engine"
	"github.com/vk/sweepgridgo/internal/fsutil"
	"github.com/vk/sweepgridgo/internal/mesh"
	"github.com/vk/sweepgridgo/internal/naming"
	"github.com/vk/sweepgridgo/internal/sweep"
)

const defaultProgressStride = 100

// Option tunes an Orchestrator.
type Option func(*Orchestrator)

// WithSolver enables externalized batch solving of each saved model.
func WithSolver(s *engine.Solver) Option {
	return func(o *Orchestrator) { o.solver = s }
}

// WithProgressStride overrides how often progress observations are
// emitted. Intended for tests.
func WithProgressStride(n int) Option {
	return func(o *Orchestrator) {
		if n > 0 {
			o.stride = n
		}
	}
}

// Orchestrator iterates the filtered combination set against the Model
// Engine, one combination at a time. The engine session is a single
// stateful resource; only the orchestrator touches it.
type Orchestrator struct {
	cfg    *config.Config
	eng    engine.Engine
	calc   *mesh.Calculator
	enc    *naming.Encoder
	solver *engine.Solver
	stride int
}

// New builds an Orchestrator.
func New(cfg *config.Config, eng engine.Engine, calc *mesh.Calculator, enc *naming.Encoder, opts ...Option) *Orchestrator {
	o := &Orchestrator{cfg: cfg, eng: eng, calc: calc, enc: enc, stride: defaultProgressStride}
	for _, opt := range opts {
		opt(o)
	}
	return o
}

// Run drives the whole batch. Run-level failures before the loop return
// a *ResourceError; per-combination failures are folded into the summary
// and never abort the run. The summary artifact is written even when the
// context is cancelled mid-run, so partial progress is never lost.
func (o *Orchestrator) Run(ctx context.Context, combos []sweep.Combination) (*Summary, error) {
	runID := uuid.NewString()
	logger := ctxlog.FromContext(ctx).With("run", runID)
	ctx = ctxlog.WithLogger(ctx, logger)

	if err := fsutil.EnsureDir(o.cfg.OutputDir); err != nil {
		return nil, &ResourceError{Op: "prepare output directory", Err: err}
	}
	if pinger, ok := o.eng.(engine.Pinger); ok {
		if err := pinger.Ping(ctx); err != nil {
			return nil, &ResourceError{Op: "connect to model engine", Err: err}
		}
	}

	total := len(combos)
	logger.Info("🚀 Starting batch generation", "combinations", total, "output", o.cfg.OutputDir)

	results := make([]Result, 0, total)
	succeeded, failed := 0, 0
	interrupted := false

	for i, combo := range combos {
		if ctx.Err() != nil {
			logger.Warn("Interrupt received, stopping before next combination", "completed", len(results))
			interrupted = true
			break
		}

		idx := i + 1
		res := o.processOne(ctx, idx, total, combo)
		results = append(results, res)
		if res.Succeeded {
			succeeded++
		} else {
			failed++
		}

		if idx%o.stride == 0 || idx == total {
			logger.Info("Progress", "processed", idx, "total", total, "succeeded", succeeded, "failed", failed)
		}
	}

	summary := newSummary(runID, o.cfg, results, interrupted)
	path, err := summary.Write(o.cfg.OutputDir)
	if err != nil {
		return summary, &ResourceError{Op: "persist summary report", Err: err}
	}
	if summary.UnderDelivered {
		logger.Info("Retained population is below the configured target; this is expected, not an error",
			"attempted", summary.Attempted, "target", o.cfg.Filtering.TargetCount)
	}
	logger.Info("🏁 Batch generation complete",
		"attempted", summary.Attempted, "succeeded", summary.Succeeded, "failed", summary.Failed, "summary", path)
	return summary, nil
}

// processOne runs a single combination through the engine. Every exit
// path releases the scoped session exactly once; any error is captured
// into the result and never propagates past this combination.
func (o *Orchestrator) processOne(ctx context.Context, idx, total int, combo sweep.Combination) Result {
	logger := ctxlog.FromContext(ctx).With("combination", idx)
	logger.Info("▶️ Processing combination", "of", total, "values", comboAttr(o.cfg.ParameterOrder, combo))

	session, err := o.eng.Load(ctx, o.cfg.Template)
	if err != nil {
		return failure(idx, combo, "load template %s: %v", o.cfg.Template, err)
	}
	defer func() {
		if err := session.Close(); err != nil {
			logger.Warn("Failed to release engine session", "error", err)
		}
	}()

	if err := o.applyParameters(logger, session, combo); err != nil {
		return failure(idx, combo, "set parameters: %v", err)
	}

	meshParams, err := o.calc.Compute(combo)
	if err != nil {
		return failure(idx, combo, "derive mesh parameters: %v", err)
	}

	var warning string
	if err := session.RunMesh(ctx, meshParams); err != nil {
		if o.cfg.Execution.ErrorTolerance != config.ToleranceContinue {
			return failure(idx, combo, "mesh generation: %v", err)
		}
		warning = fmt.Sprintf("mesh generation failed, model saved without validated mesh: %v", err)
		logger.Warn("Mesh generation failed, continuing per error tolerance", "error", err)
	}

	filename, err := o.enc.Encode(combo)
	if err != nil {
		return failure(idx, combo, "encode filename: %v", err)
	}
	outPath := filepath.Join(o.cfg.OutputDir, filename)

	if err := session.Save(ctx, outPath); err != nil {
		return failure(idx, combo, "save model %s: %v", filename, err)
	}

	if o.cfg.Post.Verify() {
		size, err := fsutil.VerifyFile(outPath)
		if err != nil {
			return failure(idx, combo, "verify output: %v", err)
		}
		logger.Debug("Output verified.", "file", filename, "bytes", size)
	}

	if o.solver != nil {
		resultsDir := filepath.Join(o.cfg.OutputDir, "results", strings.TrimSuffix(filename, filepath.Ext(filename)))
		if _, err := o.solver.RunSolve(ctx, outPath, resultsDir); err != nil {
			if errors.Is(err, context.DeadlineExceeded) {
				return failure(idx, combo, "batch solve timed out: %v", err)
			}
			return failure(idx, combo, "batch solve: %v", err)
		}
	}

	logger.Info("✅ Combination complete", "file", filename)
	return Result{
		Index:      idx,
		Values:     combo,
		Succeeded:  true,
		Warning:    warning,
		OutputPath: outPath,
		Mesh:       &meshParams,
	}
}

// applyParameters pushes every swept value into the model in declaration
// order. Names the model does not carry are warned about and skipped;
// any other failure aborts the combination.
func (o *Orchestrator) applyParameters(logger *slog.Logger, session engine.Session, combo sweep.Combination) error {
	for _, name := range o.cfg.ParameterOrder {
		value, ok := combo[name]
		if !ok {
			continue
		}
		formatted := fmt.Sprintf("%.2f[%s]", value, o.cfg.Units[name])
		if err := session.SetParameter(name, formatted); err != nil {
			if errors.Is(err, engine.ErrUnknownParameter) {
				logger.Warn("Parameter not found in model, skipping", "parameter", name)
				continue
			}
			return fmt.Errorf("parameter %s: %w", name, err)
		}
		logger.Debug("Parameter set.", "parameter", name, "value", formatted)
	}
	return nil
}

// comboAttr renders a combination as ordered slog attributes so log
// lines stay deterministic.
func comboAttr(order []string, combo sweep.Combination) slog.Value {
	attrs := make([]slog.Attr, 0, len(order))
	for _, name := range order {
		if v, ok := combo[name]; ok {
			attrs = append(attrs, slog.Float64(name, v))
		}
	}
	return slog.GroupValue(attrs...)
}
