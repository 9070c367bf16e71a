package config

import (
	"fmt"
	"time"

	"github.com/hashicorp/hcl/v2"
)

// Error marks a malformed or missing configuration value. It is fatal:
// the run aborts before any combination is processed.
type Error struct {
	Key    string
	Reason string
}

func (e *Error) Error() string {
	if e.Key == "" {
		return "config: " + e.Reason
	}
	return fmt.Sprintf("config: %s: %s", e.Key, e.Reason)
}

func errf(key, format string, args ...any) *Error {
	return &Error{Key: key, Reason: fmt.Sprintf(format, args...)}
}

// Config is the validated in-memory sweep configuration.
type Config struct {
	Parameters map[string][]float64 `json:"parameters"`
	Units      map[string]string    `json:"parameter_units,omitempty"`
	Filtering  Filtering            `json:"batch_filtering"`
	Mesh       MeshSettings         `json:"mesh_settings"`
	Naming     Naming               `json:"file_naming"`
	Template   string               `json:"template_model"`
	OutputDir  string               `json:"output_directory"`
	Execution  Execution            `json:"execution_settings"`
	Engine     EngineSettings       `json:"engine,omitempty"`
	Post       PostProcessing       `json:"post_processing"`

	// ParameterOrder preserves the declaration order of the parameters
	// object; JSON maps do not. Combination ordering depends on it.
	ParameterOrder []string `json:"-"`
}

// Filtering configures the two-stage down-sampling of the enumeration.
type Filtering struct {
	// ExcludeCondition is the legacy single-rule form.
	ExcludeCondition *FilterRule `json:"exclude_condition,omitempty"`
	// ExcludeConditions lists additional rules, evaluated in order.
	ExcludeConditions []*FilterRule `json:"exclude_conditions,omitempty"`
	// SampleRate is the default exclusion probability for rules that do
	// not carry their own.
	SampleRate *float64 `json:"sample_rate,omitempty"`
	// TargetCount caps the surviving population; zero disables the cap.
	TargetCount int `json:"target_count"`
}

// Rules returns the merged rule list: the legacy single rule first, then
// the explicit list.
func (f *Filtering) Rules() []*FilterRule {
	var rules []*FilterRule
	if f.ExcludeCondition != nil {
		rules = append(rules, f.ExcludeCondition)
	}
	return append(rules, f.ExcludeConditions...)
}

// FilterRule is one declarative exclusion rule.
type FilterRule struct {
	// When is the predicate source, e.g. "K_ch > 2.4 && W_rib > 9".
	When string `json:"when"`
	// SampleRate overrides the filtering-level default for this rule.
	SampleRate *float64 `json:"sample_rate,omitempty"`

	expr hcl.Expression
}

// Expression returns the compiled predicate. Valid after Load.
func (r *FilterRule) Expression() hcl.Expression { return r.expr }

// Rate resolves the rule's exclusion probability against the default.
func (r *FilterRule) Rate(def float64) float64 {
	if r.SampleRate != nil {
		return *r.SampleRate
	}
	return def
}

// MeshSettings holds the mesh derivation expressions: the interior mesh
// size (e.g. "K_ch / 5") and one dimension expression per axis.
type MeshSettings struct {
	Interior string            `json:"interior"`
	Axes     map[string]string `json:"axes"`

	interiorExpr hcl.Expression
	axisExprs    map[string]hcl.Expression
}

// InteriorExpression returns the compiled interior size expression.
func (m *MeshSettings) InteriorExpression() hcl.Expression { return m.interiorExpr }

// AxisExpressions returns the compiled per-axis dimension expressions.
func (m *MeshSettings) AxisExpressions() map[string]hcl.Expression { return m.axisExprs }

// Naming configures the Filename Encoder.
type Naming struct {
	Format    string `json:"format"`
	Extension string `json:"extension"`
}

// Execution tunes run-wide behavior.
type Execution struct {
	// LogLevel is one of debug, info, warn, error.
	LogLevel string `json:"log_level"`
	// ErrorTolerance decides whether a meshing failure fails the
	// combination ("strict") or demotes to a warning ("continue").
	ErrorTolerance string `json:"error_tolerance"`
}

// Tolerance values for Execution.ErrorTolerance.
const (
	ToleranceStrict   = "strict"
	ToleranceContinue = "continue"
)

// EngineSettings locates the external Model Engine. An empty address
// selects the dry-run engine.
type EngineSettings struct {
	Address         string `json:"address,omitempty"`
	FallbackAddress string `json:"fallback_address,omitempty"`
	// Home is the local engine installation root used for externalized
	// batch solving.
	Home   string `json:"home,omitempty"`
	Binary string `json:"binary,omitempty"`
	// SolveTimeoutMinutes bounds one externalized batch job.
	SolveTimeoutMinutes int `json:"solve_timeout_minutes,omitempty"`
}

// SolveTimeout returns the hard per-job timeout.
func (e *EngineSettings) SolveTimeout() time.Duration {
	return time.Duration(e.SolveTimeoutMinutes) * time.Minute
}

// PostProcessing configures what happens after a model is saved.
type PostProcessing struct {
	// VerifyOutput checks existence and size of each saved model.
	VerifyOutput *bool `json:"verify_output,omitempty"`
	// Solve runs the externalized batch solver on each saved model.
	Solve bool `json:"solve,omitempty"`
}

// Verify reports whether output verification is enabled (default true).
func (p *PostProcessing) Verify() bool {
	return p.VerifyOutput == nil || *p.VerifyOutput
}
