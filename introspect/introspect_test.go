package introspect

import (
	"context"
	"path/filepath"
	"reflect"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/broady/fluidgen"
	"github.com/broady/fluidgen/convert"
	"github.com/broady/fluidgen/internal/gosrc"
	"github.com/broady/fluidgen/internal/testfixtures"
	"github.com/broady/fluidgen/ir"
)

func newIntrospector(t *testing.T, app *fluidgen.App) *Introspector {
	t.Helper()
	idx, err := gosrc.New("..")
	require.NoError(t, err)
	return &Introspector{App: app, Conv: convert.New(idx), Index: idx}
}

func routesByPath(t *testing.T, in *Introspector) map[string]*ir.RouteNode {
	t.Helper()
	nodes, warnings := in.Routes()
	require.Empty(t, warnings)
	out := make(map[string]*ir.RouteNode)
	for _, n := range nodes {
		if _, dup := out[n.Path]; dup {
			out[n.Path+" "+n.Methods[0]] = n
			continue
		}
		out[n.Path] = n
	}
	return out
}

func paramsByName(fields []ir.Field) map[string]ir.Field {
	out := make(map[string]ir.Field)
	for _, f := range fields {
		out[f.Name] = f
	}
	return out
}

func TestRouteToNode(t *testing.T) {
	in := newIntrospector(t, testfixtures.NewApp())
	routes := routesByPath(t, in)

	getUser := routes["/users/{id}"]
	require.NotNil(t, getUser)
	assert.Equal(t, "getUser", getUser.Name)
	assert.Equal(t, []string{"GET"}, getUser.Methods)
	assert.Equal(t, "GetUser returns a single user.", getUser.Doc)
	assert.Equal(t, "endpoints.go", filepath.Base(getUser.Location.FilePath))
	assert.Equal(t, "github.com/broady/fluidgen/internal/testfixtures", getUser.Location.ModulePath)
	assert.False(t, getUser.Location.External)
	assert.Nil(t, getUser.Streaming)
	require.NotNil(t, getUser.ReturnType)
	assert.Equal(t, []string{"User"}, getUser.ReturnType.ReferencedTypes())

	var kinds []ir.ParameterType
	for _, p := range getUser.Parameters {
		kinds = append(kinds, p.Constraints.ParameterType)
	}
	assert.Equal(t, []ir.ParameterType{ir.ParamPath, ir.ParamQuery, ir.ParamHeader}, kinds)
	expand := paramsByName(getUser.Parameters)["expand"]
	assert.Equal(t, false, expand.Default)
	assert.True(t, expand.IsOptional())
	assert.Equal(t, "Include orders.", expand.Description)

	update := routes["/users/{id} PUT"]
	require.NotNil(t, update)
	assert.Equal(t, "updateUser", update.Name)
	assert.Equal(t, []string{"PUT", "PATCH"}, update.Methods)
	require.Len(t, update.Security, 1)
	assert.Equal(t, ir.SecurityRequirement{
		SchemeName:    "apiKey",
		SchemeType:    "apiKey",
		Location:      "header",
		ParameterName: "X-API-Key",
	}, update.Security[0])

	admin := routes["/admins/{id}"]
	require.NotNil(t, admin)
	assert.Equal(t, "getAdmin", admin.Name)
	assert.Empty(t, admin.Doc)
}

func TestRouteToNode_Parameters(t *testing.T) {
	in := newIntrospector(t, testfixtures.NewApp())
	routes := routesByPath(t, in)

	list := routes["/users/{user_id}/orders"]
	require.NotNil(t, list)
	params := paramsByName(list.Parameters)

	limit := params["limit"]
	assert.Equal(t, int64(20), limit.Default)
	require.NotNil(t, limit.Constraints.MinValue)
	require.NotNil(t, limit.Constraints.MaxValue)
	assert.Equal(t, 1.0, *limit.Constraints.MinValue)
	assert.Equal(t, 100.0, *limit.Constraints.MaxValue)

	assert.True(t, params["status"].Annotation.Equal(ir.StringLiterals("open", "closed")))
	assert.True(t, params["cursor"].Annotation.IsOptional())
	assert.Equal(t, ir.ParamSecurity, params["oauth"].Constraints.ParameterType)
	assert.Equal(t, ir.ParamDependency, params["Store"].Constraints.ParameterType)
	assert.False(t, params["Store"].Documented())

	require.Len(t, list.Security, 1)
	assert.Equal(t, "oauth2", list.Security[0].SchemeType)
	assert.Equal(t, "OAuth2 password flow", list.Security[0].Description)
	assert.Equal(t, []string{"orders.read"}, list.Security[0].Scopes)
	assert.Equal(t, []string{"PageOrder"}, list.ReturnType.ReferencedTypes())

	upload := paramsByName(routes["/users/{id}/avatar"].Parameters)
	assert.Equal(t, ir.ParamForm, upload["caption"].Constraints.ParameterType)
	require.NotNil(t, upload["caption"].Constraints.MaxLength)
	assert.Equal(t, 140, *upload["caption"].Constraints.MaxLength)
	assert.Equal(t, ir.ParamFile, upload["file"].Constraints.ParameterType)
	assert.Equal(t, "file", upload["file"].Constraints.Annotation)

	create := paramsByName(routes["/orders"].Parameters)
	assert.Equal(t, ir.ParamBody, create["order"].Constraints.ParameterType)
	assert.Equal(t, ir.ParamBackground, create["Tasks"].Constraints.ParameterType)
}

func TestRouteToNode_Streaming(t *testing.T) {
	in := newIntrospector(t, testfixtures.NewApp())
	routes := routesByPath(t, in)

	events := routes["/orders/events"]
	require.True(t, events.IsStreaming())
	require.NotNil(t, events.ReturnType)
	assert.Equal(t, "Order", events.ReturnType.CustomType)

	export := routes["/orders/export"]
	require.True(t, export.IsStreaming())
	assert.Nil(t, export.ReturnType)

	assert.False(t, routes["/lookalike"].IsStreaming())
}

func TestRouteName_FunctionLiteral(t *testing.T) {
	app := fluidgen.NewApp()
	app.Handle("/users/{id}", fluidgen.NewHandler(func(ctx context.Context, req struct{}) (string, error) {
		return "", nil
	}).Method("GET"))
	assert.Equal(t, "getUsersById", routeName(app.Routes()[0]))

	assert.True(t, isLiteralName("func1"))
	assert.True(t, isLiteralName("func2.1"))
	assert.False(t, isLiteralName("funcs"))
	assert.False(t, isLiteralName("GetUser"))
}

func TestDiscoverModels(t *testing.T) {
	in := newIntrospector(t, testfixtures.NewApp())
	routes, _ := in.Routes()
	models, warnings := in.DiscoverModels(routes)
	require.Empty(t, warnings)

	byName := make(map[string]*ir.ModelNode)
	var names []string
	for _, m := range models {
		names = append(names, m.Name)
		byName[m.Name] = m
	}
	assert.ElementsMatch(t, []string{
		"User", "Entity", "Role", "Order", "Priority", "PageOrder", "Admin", "StreamingResponse", "Location",
	}, names)

	user := byName["User"]
	assert.Equal(t, []string{"Entity"}, user.Inheritance)
	assert.Equal(t, "User is a registered account.", user.Doc)
	fields := paramsByName(user.Fields)
	assert.NotContains(t, fields, "Secret")
	assert.NotContains(t, fields, "-")
	assert.Equal(t, "Name is the display name.", fields["name"].Description)
	assert.Equal(t, 64, *fields["name"].Constraints.MaxLength)
	assert.Equal(t, "member", fields["role"].Default)
	assert.True(t, fields["orders"].IsOptional())
	assert.True(t, fields["email"].Annotation.External)

	role := byName["Role"]
	assert.True(t, role.IsEnum)
	require.Len(t, role.Fields, 2)
	assert.Equal(t, "Admin", role.Fields[0].Name)
	assert.Equal(t, "admin", role.Fields[0].Default)
	assert.Equal(t, "RoleAdmin can manage every order.", role.Fields[0].Description)

	prio := byName["Priority"]
	assert.Equal(t, []any{int64(0), int64(1)}, []any{prio.Fields[0].Default, prio.Fields[1].Default})

	admin := byName["Admin"]
	assert.Equal(t, []string{"User"}, admin.Inheritance)
	assert.Equal(t, "Admin is a user with elevated rights.", admin.Doc)

	loc := paramsByName(byName["Location"].Fields)
	assert.Contains(t, loc, "X")
	assert.Contains(t, loc, "Y")
	assert.Contains(t, loc, "label")
	assert.Empty(t, byName["Location"].Inheritance)

	assert.Equal(t, "Total in the store currency.", paramsByName(byName["Order"].Fields)["total"].Description)
}

func TestDiscoverModels_Cycle(t *testing.T) {
	in := newIntrospector(t, fluidgen.NewApp())
	ann := in.Conv.ToIR(reflect.TypeFor[testfixtures.Order]())
	models, _ := in.DiscoverModels([]*ir.RouteNode{{ReturnType: &ann}})

	seen := make(map[string]int)
	for _, m := range models {
		seen[m.Name]++
	}
	for name, n := range seen {
		assert.Equal(t, 1, n, "model %s discovered more than once", name)
	}
	assert.Equal(t, "Order", models[0].Name)
}

func TestConstraints(t *testing.T) {
	type sample struct {
		Count int      `validate:"gt=0,lt=10"`
		Code  string   `validate:"len=4" pattern:"^[A-Z]+$" deprecated:""`
		Tags  []string `validate:"min=1,dive,max=3"`
	}
	st := reflect.TypeFor[sample]()

	count := Constraints(st.Field(0))
	assert.Equal(t, 0.0, *count.MinValue)
	assert.Equal(t, true, count.Custom["min_exclusive"])
	assert.Equal(t, true, count.Custom["max_exclusive"])

	code := Constraints(st.Field(1))
	assert.Equal(t, 4, *code.MinLength)
	assert.Equal(t, 4, *code.MaxLength)
	assert.Equal(t, "^[A-Z]+$", code.Pattern)
	assert.True(t, code.Deprecated)

	tags := Constraints(st.Field(2))
	assert.Equal(t, 1, *tags.MinLength)
	assert.Nil(t, tags.MaxLength, "rules after dive apply to elements")
}

func TestEnumMemberName(t *testing.T) {
	assert.Equal(t, "Admin", enumMemberName("Role", "RoleAdmin"))
	assert.Equal(t, "Rolex", enumMemberName("Role", "Rolex"))
	assert.Equal(t, "Other", enumMemberName("Role", "Other"))
	assert.Equal(t, "Role", enumMemberName("Role", "Role"))
}
