package check

import (
	"bytes"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gopkg.in/yaml.v3"

	"github.com/broady/fluidgen/internal/discover"
	"github.com/broady/fluidgen/ir"
)

func TestWrite(t *testing.T) {
	r := Report{
		Result: discover.Result{
			Exports:     []discover.Export{{Name: "SetupApp", Type: discover.ExportTypeApp}},
			PackagePath: "example.com/shop/cmd/server",
			ModulePath:  "example.com/shop",
		},
		Selected: "SetupApp",
		Routes:   4,
		Models:   3,
		Files:    []string{".fluidgen/runtime.ts"},
		Warnings: []ir.Warning{{Code: ir.WarnRouteSkipped, Message: "no handler", Source: "/broken"}},
	}

	var buf bytes.Buffer
	require.NoError(t, Write(&buf, r))
	out := buf.String()

	assert.Contains(t, out, "package: example.com/shop/cmd/server\n")
	assert.Contains(t, out, "selected: SetupApp\n")
	assert.Contains(t, out, "routes: 4\n")
	assert.Contains(t, out, "  - name: SetupApp\n")

	var decoded map[string]any
	require.NoError(t, yaml.Unmarshal(buf.Bytes(), &decoded))
	assert.Equal(t, "example.com/shop", decoded["module"])
	assert.NotContains(t, decoded, "config")
	warnings := decoded["warnings"].([]any)
	require.Len(t, warnings, 1)
	assert.Equal(t, ir.WarnRouteSkipped, warnings[0].(map[string]any)["code"])
}

func TestWrite_ExportsOnly(t *testing.T) {
	var buf bytes.Buffer
	require.NoError(t, Write(&buf, Report{Result: discover.Result{PackagePath: "example.com/empty"}}))
	assert.NotContains(t, buf.String(), "routes:")
	assert.NotContains(t, buf.String(), "selected:")
}
