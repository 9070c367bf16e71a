package engine

import (
	"context"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/vk/sweepgridgo/internal/mesh"
)

const generatorName = "sweepgridgo"
const generatorVersion = "1.0"

// DryRun is a Model Engine stand-in that needs no external software. It
// accepts every parameter, skips meshing, and saves a placeholder model
// file plus a sibling metadata document describing what the real engine
// would have built.
type DryRun struct {
	now func() time.Time
}

// NewDryRun creates a dry-run engine.
func NewDryRun() *DryRun {
	return &DryRun{now: time.Now}
}

// Load opens a dry-run session for the template. The template is not
// read; its path is recorded in the metadata for provenance.
func (d *DryRun) Load(_ context.Context, template string) (Session, error) {
	return &dryRunSession{template: template, now: d.now, params: map[string]string{}}, nil
}

// Close implements Engine. The dry-run engine holds no connection.
func (d *DryRun) Close() error { return nil }

// Ping implements Pinger; a dry run is always reachable.
func (d *DryRun) Ping(context.Context) error { return nil }

type dryRunSession struct {
	template string
	now      func() time.Time
	params   map[string]string
	mesh     *mesh.Params
	closed   bool
}

func (s *dryRunSession) SetParameter(name, value string) error {
	if s.closed {
		return fmt.Errorf("set %s: session closed", name)
	}
	s.params[name] = value
	return nil
}

func (s *dryRunSession) Parameter(name string) (string, error) {
	v, ok := s.params[name]
	if !ok {
		return "", fmt.Errorf("%s: %w", name, ErrUnknownParameter)
	}
	return v, nil
}

func (s *dryRunSession) RunMesh(_ context.Context, params mesh.Params) error {
	s.mesh = &params
	return nil
}

// modelMetadata is the per-model companion document; its shape mirrors
// what the generator records for every successful combination.
type modelMetadata struct {
	ModelParameters map[string]string `json:"model_parameters"`
	MeshParameters  *mesh.Params      `json:"mesh_parameters,omitempty"`
	TemplateSource  string            `json:"template_source"`
	GeneratedAt     time.Time         `json:"generation_timestamp"`
	Generator       string            `json:"generation_script"`
	Version         string            `json:"version"`
}

func (s *dryRunSession) Save(_ context.Context, path string) error {
	if s.closed {
		return fmt.Errorf("save %s: session closed", path)
	}

	var b strings.Builder
	b.WriteString("# Model file (dry run)\n")
	b.WriteString("# template: " + s.template + "\n")
	for name, value := range s.params {
		fmt.Fprintf(&b, "# parameter %s = %s\n", name, value)
	}
	if err := os.WriteFile(path, []byte(b.String()), 0o644); err != nil {
		return fmt.Errorf("write model: %w", err)
	}

	meta := modelMetadata{
		ModelParameters: s.params,
		MeshParameters:  s.mesh,
		TemplateSource:  s.template,
		GeneratedAt:     s.now().UTC(),
		Generator:       generatorName,
		Version:         generatorVersion,
	}
	raw, err := json.MarshalIndent(meta, "", "  ")
	if err != nil {
		return fmt.Errorf("encode metadata: %w", err)
	}
	if err := os.WriteFile(metadataPath(path), raw, 0o644); err != nil {
		return fmt.Errorf("write metadata: %w", err)
	}
	return nil
}

func (s *dryRunSession) Close() error {
	s.closed = true
	return nil
}

// metadataPath derives the sibling metadata file name for a model path.
func metadataPath(modelPath string) string {
	ext := filepath.Ext(modelPath)
	return strings.TrimSuffix(modelPath, ext) + "_metadata.json"
}
