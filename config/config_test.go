package config

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/broady/fluidgen/ir"
)

func writeFile(t *testing.T, dir, name, content string) {
	t.Helper()
	require.NoError(t, os.WriteFile(filepath.Join(dir, name), []byte(content), 0644))
}

func TestLoad_Defaults(t *testing.T) {
	c, err := Load(t.TempDir())
	require.NoError(t, err)
	assert.Empty(t, c.Normalize())
	require.NoError(t, c.Validate())

	assert.Equal(t, Default(), c)
	assert.Equal(t, Environment{Mode: "separate", APIURL: "http://localhost:8000"}, c.TargetEnvironment())
}

func TestLoad_JSON(t *testing.T) {
	dir := t.TempDir()
	writeFile(t, dir, "fluid.config.json", `{
  "target": "production",
  "output": {"strategy": "co-locate"},
  "backend": {"host": "api.internal", "port": 9000},
  "environments": {
    "development": {"mode": "unified", "apiUrl": "/api"},
    "production": {"mode": "separate", "apiUrl": "https://shop.example.com"}
  }
}`)

	c, err := Load(dir)
	require.NoError(t, err)
	assert.Empty(t, c.Normalize())
	require.NoError(t, c.Validate())

	assert.Equal(t, "production", c.Target)
	assert.Equal(t, "co-locate", c.Output.Strategy)
	assert.Equal(t, ".fluidgen", c.Output.Location)
	assert.Equal(t, Backend{Host: "api.internal", Port: 9000}, c.Backend)
	assert.Equal(t, Environment{Mode: "unified", APIURL: "/api"}, c.Environments["development"])
	assert.Equal(t, "https://shop.example.com", c.TargetEnvironment().APIURL)
}

func TestLoad_YAMLAndEnv(t *testing.T) {
	dir := t.TempDir()
	writeFile(t, dir, "fluid.config.yaml", "output:\n  location: gen/ts\nbackend:\n  port: 8080\n")
	writeFile(t, dir, ".env", "FLUIDGEN_BACKEND_HOST=10.0.0.5\n")
	t.Setenv("FLUIDGEN_OUTPUT_STRATEGY", "co-locate")
	t.Cleanup(func() { os.Unsetenv("FLUIDGEN_BACKEND_HOST") })

	c, err := Load(dir)
	require.NoError(t, err)
	c.Normalize()
	require.NoError(t, c.Validate())

	assert.Equal(t, "gen/ts", c.Output.Location)
	assert.Equal(t, "co-locate", c.Output.Strategy)
	assert.Equal(t, Backend{Host: "10.0.0.5", Port: 8080}, c.Backend)
	assert.Equal(t, "http://10.0.0.5:8080", c.Environments["development"].APIURL)
}

func TestNormalize_UnknownTarget(t *testing.T) {
	c := Default()
	c.Target = "staging"

	warnings := c.Normalize()
	require.Len(t, warnings, 1)
	assert.Equal(t, ir.WarnConfig, warnings[0].Code)
	assert.Contains(t, warnings[0].Message, `unknown target "staging"`)
	assert.Equal(t, "development", c.Target)
}

func TestValidate(t *testing.T) {
	c := Default()
	c.Output.Strategy = "scatter"
	err := c.Validate()
	require.Error(t, err)
	assert.Contains(t, err.Error(), "Strategy")

	c = Default()
	c.Environments["development"] = Environment{Mode: "proxy", APIURL: "/api"}
	assert.Error(t, c.Validate())

	c = Default()
	c.Backend.Port = 0
	assert.Error(t, c.Validate())
}

func TestWriteDefault(t *testing.T) {
	dir := t.TempDir()
	path, err := WriteDefault(dir)
	require.NoError(t, err)
	assert.Equal(t, filepath.Join(dir, "fluid.config.json"), path)

	c, err := Load(dir)
	require.NoError(t, err)
	assert.Equal(t, Default(), c)

	_, err = WriteDefault(dir)
	assert.ErrorContains(t, err, "already exists")
}

func TestOverrides(t *testing.T) {
	o, err := ParseOverrides("strategy=co-locate&target=production")
	require.NoError(t, err)
	assert.Equal(t, Overrides{Strategy: "co-locate", Target: "production"}, o)
	assert.Equal(t, "strategy=co-locate&target=production", o.Query())

	c := Default()
	o.Apply(c)
	assert.Equal(t, "co-locate", c.Output.Strategy)
	assert.Equal(t, "production", c.Target)
	assert.Equal(t, DefaultLocation, c.Output.Location)

	o, err = ParseOverrides("")
	require.NoError(t, err)
	assert.Equal(t, Overrides{}, o)

	_, err = ParseOverrides("color=blue")
	assert.Error(t, err)
}
