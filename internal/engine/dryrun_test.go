package engine

import (
	"context"
	"encoding/json"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/vk/sweepgridgo/internal/mesh"
)

func TestDryRun_SaveWritesModelAndMetadata(t *testing.T) {
	t.Parallel()

	eng := NewDryRun()
	session, err := eng.Load(context.Background(), "templates/base.mph")
	require.NoError(t, err)

	require.NoError(t, session.SetParameter("K_ch", "2.50[mm]"))
	require.NoError(t, session.SetParameter("W_ch", "3.00[mm]"))
	require.NoError(t, session.RunMesh(context.Background(), mesh.Params{
		InteriorSize: 0.5,
		Axes:         map[string]mesh.Axis{"stream_depth": {Dimension: 3.0, Cells: 6, Size: 0.5}},
	}))

	dir := t.TempDir()
	modelPath := filepath.Join(dir, "model.mph")
	require.NoError(t, session.Save(context.Background(), modelPath))
	require.NoError(t, session.Close())

	info, err := os.Stat(modelPath)
	require.NoError(t, err)
	require.Positive(t, info.Size())

	raw, err := os.ReadFile(filepath.Join(dir, "model_metadata.json"))
	require.NoError(t, err)

	var meta struct {
		ModelParameters map[string]string `json:"model_parameters"`
		MeshParameters  *mesh.Params      `json:"mesh_parameters"`
		TemplateSource  string            `json:"template_source"`
	}
	require.NoError(t, json.Unmarshal(raw, &meta))
	require.Equal(t, "2.50[mm]", meta.ModelParameters["K_ch"])
	require.Equal(t, "templates/base.mph", meta.TemplateSource)
	require.NotNil(t, meta.MeshParameters)
	require.Equal(t, 6, meta.MeshParameters.Axes["stream_depth"].Cells)
}

func TestDryRun_ParameterReadback(t *testing.T) {
	t.Parallel()

	session, err := NewDryRun().Load(context.Background(), "t.mph")
	require.NoError(t, err)

	require.NoError(t, session.SetParameter("K_ch", "1.00[mm]"))
	v, err := session.Parameter("K_ch")
	require.NoError(t, err)
	require.Equal(t, "1.00[mm]", v)

	_, err = session.Parameter("never_set")
	require.ErrorIs(t, err, ErrUnknownParameter)
}

func TestDryRun_ClosedSessionRejectsWrites(t *testing.T) {
	t.Parallel()

	session, err := NewDryRun().Load(context.Background(), "t.mph")
	require.NoError(t, err)
	require.NoError(t, session.Close())

	require.Error(t, session.SetParameter("K_ch", "1.00[mm]"))
	require.Error(t, session.Save(context.Background(), filepath.Join(t.TempDir(), "m.mph")))
}
