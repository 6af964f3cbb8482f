package resolve

import (
	"path/filepath"
	"testing"

	"github.com/cockroachdb/errors"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/broady/fluidgen/ir"
)

func newResolver(t *testing.T, strategy Strategy) (*Resolver, string) {
	t.Helper()
	root, err := filepath.EvalSymlinks(t.TempDir())
	require.NoError(t, err)
	return &Resolver{Strategy: strategy, ProjectRoot: root, Location: ".fluidgen"}, root
}

func loc(path string) ir.ModuleLocation {
	return ir.ModuleLocation{ModulePath: "example.com/app", FilePath: path}
}

func TestOutputPath_Mirror(t *testing.T) {
	r, root := newResolver(t, Mirror)

	got, err := r.OutputPath(loc(filepath.Join(root, "api", "users.go")))
	require.NoError(t, err)
	assert.Equal(t, filepath.Join(root, ".fluidgen", "api", "users.ts"), got)

	_, err = r.OutputPath(loc(filepath.Join(filepath.Dir(root), "elsewhere", "x.go")))
	assert.True(t, errors.Is(err, ErrOutsideProject))

	_, err = r.OutputPath(ir.ModuleLocation{ModulePath: "example.com/app"})
	assert.Error(t, err)
}

func TestOutputPath_CoLocate(t *testing.T) {
	r, root := newResolver(t, CoLocate)

	got, err := r.OutputPath(loc(filepath.Join(root, "api", "users.go")))
	require.NoError(t, err)
	assert.Equal(t, filepath.Join(root, "api", "users.ts"), got)

	// Co-location does not require the source to be in the project.
	outside := filepath.Join(filepath.Dir(root), "lib", "types.go")
	got, err = r.OutputPath(loc(outside))
	require.NoError(t, err)
	assert.Equal(t, filepath.Join(filepath.Dir(root), "lib", "types.ts"), got)
}

func TestOutputPath_UnknownStrategy(t *testing.T) {
	r, root := newResolver(t, "flat")
	_, err := r.OutputPath(loc(filepath.Join(root, "a.go")))
	assert.ErrorContains(t, err, "unknown output strategy")
}

func TestRuntimeAndManifestPaths(t *testing.T) {
	r, root := newResolver(t, Mirror)
	assert.Equal(t, filepath.Join(root, ".fluidgen", "runtime.ts"), r.RuntimePath())
	assert.Equal(t, filepath.Join(root, ".fluidgen", ".manifest.json"), r.ManifestPath())

	rel, err := r.ProjectRelative(r.RuntimePath())
	require.NoError(t, err)
	assert.Equal(t, ".fluidgen/runtime.ts", rel)

	_, err = r.ProjectRelative(filepath.Dir(root))
	assert.True(t, errors.Is(err, ErrOutsideProject))
}

func TestRelativeImportPath(t *testing.T) {
	tests := []struct {
		from, to string
		want     string
	}{
		{"/p/app.ts", "/p/models/user.ts", "./models/user"},
		{"/p/routes/api.ts", "/p/models/user.ts", "../models/user"},
		{"/p/deep/nested/route.ts", "/p/models/user.ts", "../../models/user"},
		{"/p/models/user.ts", "/p/models/order.ts", "./order"},
		{"/p/api/users.ts", "/p/runtime.ts", "../runtime"},
	}
	for _, tt := range tests {
		t.Run(tt.want, func(t *testing.T) {
			got, ok := RelativeImportPath(filepath.FromSlash(tt.from), filepath.FromSlash(tt.to))
			require.True(t, ok)
			assert.Equal(t, tt.want, got)
		})
	}

	_, ok := RelativeImportPath("/p/a.ts", "/p/./a.ts")
	assert.False(t, ok)
}

func TestTypeImports(t *testing.T) {
	r, root := newResolver(t, Mirror)
	file, err := r.OutputPath(loc(filepath.Join(root, "api", "orders.go")))
	require.NoError(t, err)

	imports, err := r.TypeImports(file, map[string]ir.ModuleLocation{
		"Order": loc(filepath.Join(root, "api", "orders.go")),
		"User":  loc(filepath.Join(root, "models", "user.go")),
		"Role":  loc(filepath.Join(root, "models", "user.go")),
		"Page":  loc(filepath.Join(root, "api", "page.go")),
	})
	require.NoError(t, err)
	assert.Equal(t, []string{
		"import type { Role, User } from '../models/user';",
		"import type { Page } from './page';",
	}, ImportBlock(imports))

	_, err = r.TypeImports(file, map[string]ir.ModuleLocation{
		"Ext": loc(filepath.Join(filepath.Dir(root), "ext.go")),
	})
	assert.True(t, errors.Is(err, ErrOutsideProject))
}

func TestRuntimeImports(t *testing.T) {
	got := RuntimeImports("../runtime",
		[]string{"SSEConnection", "ApiResult", "SSECallbacks", "ApiResult"},
		[]string{"handleResponse", "getBaseUrl"})
	assert.Equal(t, []string{
		"import type { ApiResult, SSECallbacks, SSEConnection } from '../runtime';",
		"import { getBaseUrl, handleResponse } from '../runtime';",
	}, got)

	assert.Equal(t, []string{"import type { FluidTypes } from './runtime';"},
		RuntimeImports("./runtime", []string{"FluidTypes"}, nil))
	assert.Empty(t, RuntimeImports("./runtime", nil, nil))
}
