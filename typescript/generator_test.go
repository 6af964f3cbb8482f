package typescript

import (
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/broady/fluidgen/ir"
	"github.com/broady/fluidgen/resolve"
)

func projectRoot(t *testing.T) string {
	t.Helper()
	root, err := filepath.EvalSymlinks(t.TempDir())
	require.NoError(t, err)
	return root
}

func loc(root, rel string) ir.ModuleLocation {
	return ir.ModuleLocation{ModulePath: "example.com/shop", FilePath: filepath.Join(root, filepath.FromSlash(rel))}
}

func shopApp(root string) *ir.App {
	user := userModel()
	user.Location = loc(root, "models/user.go")

	role := &ir.ModelNode{
		Name:     "Role",
		IsEnum:   true,
		Location: loc(root, "models/user.go"),
		Fields:   []ir.Field{{Name: "Admin", Default: "admin"}},
	}
	order := &ir.ModelNode{
		Name:     "Order",
		Location: loc(root, "models/order.go"),
		Fields: []ir.Field{
			{Name: "buyer", Annotation: ir.Optional(ir.Custom("User", nil))},
			{Name: "role", Annotation: ir.Custom("Role", nil)},
		},
	}
	getUser := getUserRoute()
	getUser.Location = loc(root, "api/users.go")

	return &ir.App{
		Models: []*ir.ModelNode{user, role, order},
		Routes: []*ir.RouteNode{getUser},
	}
}

func newGenerator(root string, strategy resolve.Strategy) *Generator {
	return &Generator{
		Resolver: &resolve.Resolver{Strategy: strategy, ProjectRoot: root, Location: ".fluidgen"},
		Runtime:  RuntimeOptions{Target: "development", Mode: ModeSeparate, APIURL: "http://localhost:8000"},
	}
}

func filesByPath(root string, files []File) map[string]File {
	out := make(map[string]File)
	for _, f := range files {
		rel, _ := filepath.Rel(root, f.Path)
		out[filepath.ToSlash(rel)] = f
	}
	return out
}

func TestGenerate_Mirror(t *testing.T) {
	root := projectRoot(t)
	files, warnings := newGenerator(root, resolve.Mirror).Generate(shopApp(root))
	assert.Empty(t, warnings)

	require.Len(t, files, 4)
	assert.Equal(t, filepath.Join(root, ".fluidgen", "runtime.ts"), files[len(files)-1].Path)

	byPath := filesByPath(root, files)
	require.Contains(t, byPath, ".fluidgen/models/user.ts")
	require.Contains(t, byPath, ".fluidgen/models/order.ts")
	require.Contains(t, byPath, ".fluidgen/api/users.ts")

	user := byPath[".fluidgen/models/user.ts"]
	assert.Equal(t, []string{filepath.Join(root, "models", "user.go")}, user.Sources)
	assert.True(t, strings.HasPrefix(user.Content, Header+"\n\n"+
		"import type { FluidTypes } from '../runtime';\n"+
		"import type { Order } from './order';\n\n"+
		"/**\n * User is a registered account."))
	assert.Contains(t, user.Content, "}\n\nexport enum Role {\n")
	assert.True(t, strings.HasSuffix(user.Content, "}\n"))

	order := byPath[".fluidgen/models/order.ts"]
	assert.Contains(t, order.Content, "import type { Role, User } from './user';\n")
	assert.NotContains(t, order.Content, "runtime")

	api := byPath[".fluidgen/api/users.ts"]
	assert.True(t, strings.HasPrefix(api.Content, Header+"\n\n"+
		"import type { ApiResult } from '../runtime';\n"+
		"import { getBaseUrl, handleResponse } from '../runtime';\n"+
		"import type { User } from '../models/user';\n\n"+
		"/**\n * GetUser returns a single user."))

	runtime := files[len(files)-1]
	assert.Nil(t, runtime.Sources)
	assert.NotContains(t, runtime.Content, "SSECallbacks")
}

func TestGenerate_CoLocate(t *testing.T) {
	root := projectRoot(t)
	files, warnings := newGenerator(root, resolve.CoLocate).Generate(shopApp(root))
	assert.Empty(t, warnings)

	byPath := filesByPath(root, files)
	require.Contains(t, byPath, "models/user.ts")
	require.Contains(t, byPath, "api/users.ts")
	require.Contains(t, byPath, ".fluidgen/runtime.ts")
	assert.Contains(t, byPath["api/users.ts"].Content, "import { getBaseUrl, handleResponse } from '../.fluidgen/runtime';\n")
}

func TestGenerate_SkipsUnresolvable(t *testing.T) {
	root := projectRoot(t)
	app := shopApp(root)
	app.Models = append(app.Models, &ir.ModelNode{
		Name:     "Stranger",
		Location: ir.ModuleLocation{FilePath: filepath.Join(filepath.Dir(root), "elsewhere", "x.go")},
	})

	files, warnings := newGenerator(root, resolve.Mirror).Generate(app)
	require.Len(t, warnings, 1)
	assert.Equal(t, ir.WarnPathResolution, warnings[0].Code)
	assert.Equal(t, "Stranger", warnings[0].Source)
	assert.Len(t, files, 4)
}

func TestGenerate_StreamingRuntime(t *testing.T) {
	root := projectRoot(t)
	app := shopApp(root)
	app.Routes[0].Streaming = &ir.Streaming{ClientType: ir.StreamEventSource, MediaType: "text/event-stream"}

	files, _ := newGenerator(root, resolve.Mirror).Generate(app)
	byPath := filesByPath(root, files)

	api := byPath[".fluidgen/api/users.ts"].Content
	assert.Contains(t, api, "import type { SSECallbacks, SSEConnection, SSERequestInit } from '../runtime';\n")
	assert.Contains(t, api, "import { getBaseUrl } from '../runtime';\n")
	// Streaming clients do not render the return type.
	assert.NotContains(t, api, "import type { User }")

	assert.Contains(t, byPath[".fluidgen/runtime.ts"].Content, "export interface SSECallbacks {")
}

func TestRuntime(t *testing.T) {
	separate := Runtime(RuntimeOptions{Target: "production", Mode: ModeSeparate, APIURL: "https://api.example.com"}, false)
	assert.True(t, strings.HasPrefix(separate, Header+"\n"))
	assert.Contains(t, separate, "export interface ApiResult<T = any> {")
	assert.Contains(t, separate, "export namespace FluidTypes {")
	assert.Contains(t, separate, "  export type Decimal = string;\n")
	assert.Contains(t, separate, "  export type UploadFile = Blob;\n")
	assert.Contains(t, separate, "export function getBaseUrl(): string {\n"+
		"  // target: production\n"+
		"  return 'https://api.example.com';\n"+
		"}")
	assert.Contains(t, separate, "error = errorBody.detail || errorBody.message || response.statusText;")
	assert.NotContains(t, separate, "TextStreamCallbacks")

	unified := Runtime(RuntimeOptions{Mode: ModeUnified, APIURL: "/api", BackendHost: "localhost", BackendPort: 8000}, true)
	assert.Contains(t, unified, "export function getBaseUrl(): string {\n"+
		"  if (typeof window !== 'undefined') {\n"+
		"    return '/api';\n"+
		"  }\n"+
		"  return 'http://localhost:8000';\n"+
		"}")
	assert.Contains(t, unified, "export interface TextStreamCallbacks {")
	assert.Contains(t, unified, "export interface StreamingCallbacks<T> {")
}
