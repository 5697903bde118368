package bom_test

import (
	"bytes"
	"testing"

	"github.com/CZERTAINLY/blastweb/internal/bom"
	"github.com/CZERTAINLY/blastweb/internal/model"

	cdx "github.com/CycloneDX/cyclonedx-go"
	"github.com/stretchr/testify/require"
)

func TestBuilder(t *testing.T) {
	t.Parallel()

	installs := []model.Installation{
		{Platform: "Windows-Powershell", Version: "2.16.0+"},
		{Platform: "Windows-WSL2", Prefix: []string{"wsl"}, Version: "2.12.0+"},
	}
	b := bom.NewBuilder().AppendInstallations(installs...)

	doc := b.BOM()
	require.Equal(t, cdx.SpecVersion1_6, doc.SpecVersion)
	require.Equal(t, "blastweb", doc.Metadata.Component.Name)
	require.Len(t, *doc.Components, 2)

	wsl := (*doc.Components)[1]
	require.Equal(t, cdx.ComponentTypeApplication, wsl.Type)
	require.Equal(t, "blastn", wsl.Name)
	require.Equal(t, "2.12.0+", wsl.Version)
	require.Contains(t, *wsl.Properties, cdx.Property{Name: bom.PropPrefix, Value: "wsl"})
	require.Contains(t, *wsl.Properties, cdx.Property{Name: bom.PropPlatform, Value: "Windows-WSL2"})
	require.NotContains(t, *(*doc.Components)[0].Properties, cdx.Property{Name: bom.PropPrefix, Value: ""})

	err := b.AsJSON(t.Output())
	require.NoError(t, err)
}

func TestValidator(t *testing.T) {
	t.Parallel()
	validator, err := bom.NewValidator(cdx.SpecVersion1_6)
	require.NoError(t, err)

	var buf bytes.Buffer
	err = bom.NewBuilder().
		AppendInstallations(model.Installation{Platform: "Linux-bash", Version: "2.16.0+"}).
		AsJSON(&buf)
	require.NoError(t, err)
	require.NoError(t, validator.ValidateBytes(t.Context(), buf.Bytes()))

	t.Run("empty", func(t *testing.T) {
		var buf bytes.Buffer
		require.NoError(t, bom.NewBuilder().AsJSON(&buf))
		require.NoError(t, validator.ValidateBytes(t.Context(), buf.Bytes()))
	})

	t.Run("invalid", func(t *testing.T) {
		err := validator.ValidateBytes(t.Context(), []byte(`{"bomFormat": "SPDX", "specVersion": "1.6"}`))
		require.ErrorIs(t, err, bom.ErrInvalidBOM)
	})
	t.Run("unsupported version", func(t *testing.T) {
		err := validator.ValidateBytes(t.Context(), []byte(`{"specVersion": "1.4"}`))
		require.Error(t, err)
	})
	t.Run("unknown schema", func(t *testing.T) {
		_, err := bom.NewValidator(cdx.SpecVersion1_5)
		require.Error(t, err)
	})
}
