package app

import (
	"context"
	"fmt"
	"math/rand"
	"os"
	"time"

	"github.com/vk/sweepgridgo/internal/ctxlog"
	"github.com/vk/sweepgridgo/internal/engine"
	"github.com/vk/sweepgridgo/internal/mesh"
	"github.com/vk/sweepgridgo/internal/naming"
	"github.com/vk/sweepgridgo/internal/orchestrator"
	"github.com/vk/sweepgridgo/internal/sweep"
)

// Run executes the batch generation pipeline: enumerate, filter/sample,
// then orchestrate every surviving combination against the engine.
func (a *App) Run(ctx context.Context) error {
	ctx = ctxlog.WithLogger(ctx, a.logger)

	seed := a.cli.Seed
	if seed == 0 {
		seed = time.Now().UnixNano()
	}
	rng := rand.New(rand.NewSource(seed))
	a.logger.Debug("Random source ready.", "seed", seed)

	space, err := sweep.NewSpace(a.cfg.ParameterOrder, a.cfg.Parameters)
	if err != nil {
		return fmt.Errorf("build parameter space: %w", err)
	}
	combos := space.Combinations()
	a.logger.Info("Enumerated parameter combinations", "total", len(combos))

	var rules []sweep.Rule
	for _, r := range a.cfg.Filtering.Rules() {
		rules = append(rules, sweep.Rule{
			When:       r.Expression(),
			SampleRate: r.Rate(*a.cfg.Filtering.SampleRate),
		})
	}
	sampler := sweep.NewSampler(rules, a.cfg.Filtering.TargetCount, rng)
	kept, excluded, err := sampler.Apply(combos)
	if err != nil {
		return fmt.Errorf("filter combinations: %w", err)
	}
	a.logger.Info("Filtered combinations",
		"kept", len(kept), "excluded_by_rules", excluded, "target", a.cfg.Filtering.TargetCount)

	calc := mesh.NewCalculator(a.cfg.Mesh.InteriorExpression(), a.cfg.Mesh.AxisExpressions())
	enc := naming.NewEncoder(a.cfg.Naming.Format, a.cfg.Naming.Extension)

	eng := a.buildEngine()
	defer func() {
		if err := eng.Close(); err != nil {
			a.logger.Warn("Failed to close engine connection", "error", err)
		}
	}()

	var opts []orchestrator.Option
	if a.cfg.Post.Solve {
		timeout := a.cfg.Engine.SolveTimeout()
		if a.cli.SolveTimeout > 0 {
			timeout = a.cli.SolveTimeout
		}
		opts = append(opts, orchestrator.WithSolver(
			engine.NewSolver(a.cfg.Engine.Home, a.cfg.Engine.Binary, timeout)))
	}

	orch := orchestrator.New(a.cfg, eng, calc, enc, opts...)
	summary, err := orch.Run(ctx, kept)
	if err != nil {
		return fmt.Errorf("batch generation failed: %w", err)
	}
	if summary.Interrupted {
		a.logger.Warn("Run interrupted; summary covers completed work only")
	}
	return nil
}

// buildEngine selects the engine implementation: dry-run unless a remote
// address is configured (or the dry-run flag forces it).
func (a *App) buildEngine() engine.Engine {
	if a.cli.DryRun || a.cfg.Engine.Address == "" {
		a.logger.Info("Using dry-run engine; no external modeling software required")
		return engine.NewDryRun()
	}
	a.logger.Info("Using remote engine", "address", a.cfg.Engine.Address)
	return engine.NewRemote(a.cfg.Engine.Address, a.cfg.Engine.FallbackAddress, os.Getenv("ENGINE_API_KEY"))
}
