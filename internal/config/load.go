package config

import (
	"bytes"
	"encoding/json"
	"fmt"
	"os"

	"github.com/hashicorp/hcl/v2"
	"github.com/hashicorp/hcl/v2/hclsyntax"

	"github.com/vk/sweepgridgo/internal/naming"
)

const (
	defaultSampleRate          = 0.5
	defaultExtension           = ".mph"
	defaultLogLevel            = "info"
	defaultEngineBinary        = "comsol"
	defaultSolveTimeoutMinutes = 60
)

// Load reads, defaults, compiles and validates a configuration file.
// Every failure is reported as an *Error.
func Load(path string) (*Config, error) {
	raw, err := os.ReadFile(path)
	if err != nil {
		return nil, errf("", "read %s: %v", path, err)
	}

	var cfg Config
	dec := json.NewDecoder(bytes.NewReader(raw))
	dec.DisallowUnknownFields()
	if err := dec.Decode(&cfg); err != nil {
		return nil, errf("", "parse %s: %v", path, err)
	}

	order, err := parameterOrder(raw)
	if err != nil {
		return nil, errf("parameters", "recover declaration order: %v", err)
	}
	cfg.ParameterOrder = order

	cfg.applyDefaults()
	if err := cfg.compile(); err != nil {
		return nil, err
	}
	if err := cfg.validate(); err != nil {
		return nil, err
	}
	return &cfg, nil
}

func (c *Config) applyDefaults() {
	if c.Filtering.SampleRate == nil {
		rate := defaultSampleRate
		c.Filtering.SampleRate = &rate
	}
	if c.Naming.Extension == "" {
		c.Naming.Extension = defaultExtension
	}
	if c.Execution.LogLevel == "" {
		c.Execution.LogLevel = defaultLogLevel
	}
	if c.Execution.ErrorTolerance == "" {
		c.Execution.ErrorTolerance = ToleranceStrict
	}
	if c.Engine.Binary == "" {
		c.Engine.Binary = defaultEngineBinary
	}
	if c.Engine.SolveTimeoutMinutes == 0 {
		c.Engine.SolveTimeoutMinutes = defaultSolveTimeoutMinutes
	}
}

// compile parses every expression-valued field exactly once.
func (c *Config) compile() error {
	for i, rule := range c.Filtering.Rules() {
		expr, err := parseExpression(rule.When, fmt.Sprintf("batch_filtering.exclude_condition[%d]", i))
		if err != nil {
			return err
		}
		rule.expr = expr
	}

	if c.Mesh.Interior != "" {
		expr, err := parseExpression(c.Mesh.Interior, "mesh_settings.interior")
		if err != nil {
			return err
		}
		c.Mesh.interiorExpr = expr
	}
	c.Mesh.axisExprs = make(map[string]hcl.Expression, len(c.Mesh.Axes))
	for axis, src := range c.Mesh.Axes {
		expr, err := parseExpression(src, "mesh_settings.axes."+axis)
		if err != nil {
			return err
		}
		c.Mesh.axisExprs[axis] = expr
	}
	return nil
}

func parseExpression(src, key string) (hcl.Expression, error) {
	if src == "" {
		return nil, errf(key, "expression is empty")
	}
	expr, diags := hclsyntax.ParseExpression([]byte(src), key, hcl.InitialPos)
	if diags.HasErrors() {
		return nil, errf(key, "parse %q: %v", src, diags)
	}
	return expr, nil
}

// parameterOrder re-reads the raw document to recover the declaration
// order of the parameters object, which encoding/json discards.
func parameterOrder(raw []byte) ([]string, error) {
	dec := json.NewDecoder(bytes.NewReader(raw))
	if _, err := dec.Token(); err != nil { // opening brace
		return nil, err
	}
	for dec.More() {
		keyTok, err := dec.Token()
		if err != nil {
			return nil, err
		}
		key, _ := keyTok.(string)
		if key != "parameters" {
			var skip json.RawMessage
			if err := dec.Decode(&skip); err != nil {
				return nil, err
			}
			continue
		}
		if _, err := dec.Token(); err != nil { // opening brace of parameters
			return nil, err
		}
		var names []string
		for dec.More() {
			nameTok, err := dec.Token()
			if err != nil {
				return nil, err
			}
			name, ok := nameTok.(string)
			if !ok {
				return nil, fmt.Errorf("unexpected token %v in parameters object", nameTok)
			}
			names = append(names, name)
			var values json.RawMessage
			if err := dec.Decode(&values); err != nil {
				return nil, err
			}
		}
		return names, nil
	}
	return nil, nil
}

// validate enforces the structural invariants. It runs after defaults
// and compilation, so expressions can be checked for unknown names.
func (c *Config) validate() error {
	if len(c.Parameters) == 0 {
		return errf("parameters", "at least one swept parameter is required")
	}
	for name, values := range c.Parameters {
		if len(values) == 0 {
			return errf("parameters."+name, "value list is empty")
		}
	}
	if c.Template == "" {
		return errf("template_model", "path is required")
	}
	if c.OutputDir == "" {
		return errf("output_directory", "path is required")
	}
	if c.Naming.Format == "" {
		return errf("file_naming.format", "template is required")
	}
	for _, name := range naming.Placeholders(c.Naming.Format) {
		if _, ok := c.Parameters[name]; !ok {
			return errf("file_naming.format", "placeholder {%s} does not name a swept parameter", name)
		}
	}

	if rate := *c.Filtering.SampleRate; rate < 0 || rate > 1 {
		return errf("batch_filtering.sample_rate", "must be in [0,1], got %g", rate)
	}
	if c.Filtering.TargetCount < 0 {
		return errf("batch_filtering.target_count", "must not be negative, got %d", c.Filtering.TargetCount)
	}
	for i, rule := range c.Filtering.Rules() {
		key := fmt.Sprintf("batch_filtering.exclude_condition[%d]", i)
		if rule.SampleRate != nil && (*rule.SampleRate < 0 || *rule.SampleRate > 1) {
			return errf(key+".sample_rate", "must be in [0,1], got %g", *rule.SampleRate)
		}
		if err := c.checkVariables(rule.expr, key); err != nil {
			return err
		}
	}

	// The orchestrator derives mesh parameters for every combination, so
	// a missing interior expression must be rejected here, not at run time.
	if c.Mesh.interiorExpr == nil {
		return errf("mesh_settings.interior", "expression is required")
	}
	if err := c.checkVariables(c.Mesh.interiorExpr, "mesh_settings.interior"); err != nil {
		return err
	}
	for axis, expr := range c.Mesh.axisExprs {
		if err := c.checkVariables(expr, "mesh_settings.axes."+axis); err != nil {
			return err
		}
	}

	for name := range c.Units {
		if _, ok := c.Parameters[name]; !ok {
			return errf("parameter_units."+name, "does not name a swept parameter")
		}
	}

	switch c.Execution.ErrorTolerance {
	case ToleranceStrict, ToleranceContinue:
	default:
		return errf("execution_settings.error_tolerance", "must be %q or %q, got %q",
			ToleranceStrict, ToleranceContinue, c.Execution.ErrorTolerance)
	}
	switch c.Execution.LogLevel {
	case "debug", "info", "warn", "error":
	default:
		return errf("execution_settings.log_level", "must be debug, info, warn or error, got %q", c.Execution.LogLevel)
	}

	if c.Post.Solve && c.Engine.Home == "" && os.Getenv("ENGINE_HOME") == "" {
		return errf("engine.home", "required when post_processing.solve is enabled")
	}
	return nil
}

// checkVariables ensures an expression only references swept parameters.
func (c *Config) checkVariables(expr hcl.Expression, key string) error {
	for _, traversal := range expr.Variables() {
		name := traversal.RootName()
		if _, ok := c.Parameters[name]; !ok {
			return errf(key, "references unknown parameter %q", name)
		}
	}
	return nil
}
