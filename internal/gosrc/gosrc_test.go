package gosrc

import (
	"net/http"
	"path/filepath"
	"reflect"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/broady/fluidgen/internal/testfixtures"
)

func newIndex(t *testing.T) *Index {
	t.Helper()
	x, err := New(filepath.Join("..", ".."))
	require.NoError(t, err)
	return x
}

func TestIsProjectType(t *testing.T) {
	x := newIndex(t)
	assert.True(t, x.IsProjectType(reflect.TypeFor[testfixtures.User]()))
	assert.True(t, x.IsProjectType(reflect.TypeFor[testfixtures.Page[testfixtures.Order]]()))
	assert.False(t, x.IsProjectType(reflect.TypeFor[http.Cookie]()))
	assert.False(t, x.IsProjectType(reflect.TypeFor[int]()))
	assert.False(t, x.IsProjectType(nil))
}

func TestUnderRoot(t *testing.T) {
	x := newIndex(t)
	assert.True(t, x.UnderRoot(filepath.Join(x.Root(), "ir", "app.go")))
	assert.False(t, x.UnderRoot(filepath.Dir(x.Root())))
	assert.False(t, x.UnderRoot(filepath.Join(x.Root(), "..", "elsewhere.go")))
}

func TestTypeDoc(t *testing.T) {
	x := newIndex(t)

	doc := x.TypeDoc(reflect.TypeFor[testfixtures.Admin]())
	assert.Equal(t, "Admin is a user with elevated rights.", doc.Text)
	assert.Equal(t, "grant RoleAdmin instead.", doc.Deprecated)

	fields := x.FieldDocs(reflect.TypeFor[testfixtures.User]())
	assert.Equal(t, "Name is the display name.", fields["Name"].Text)
	_, ok := fields["Email"]
	assert.False(t, ok)
}

func TestEnumConstants(t *testing.T) {
	x := newIndex(t)

	roles, err := x.EnumConstants(reflect.TypeFor[testfixtures.Role]())
	require.NoError(t, err)
	require.Len(t, roles, 2)
	assert.Equal(t, EnumConstant{Name: "RoleAdmin", Value: "admin", Doc: "RoleAdmin can manage every order."}, roles[0])
	assert.Equal(t, EnumConstant{Name: "RoleMember", Value: "member", Doc: "Default role."}, roles[1])

	prios, err := x.EnumConstants(reflect.TypeFor[testfixtures.Priority]())
	require.NoError(t, err)
	require.Len(t, prios, 2)
	assert.Equal(t, int64(0), prios[0].Value)
	assert.Equal(t, int64(1), prios[1].Value)

	assert.True(t, x.IsEnum(reflect.TypeFor[testfixtures.Role]()))
	assert.False(t, x.IsEnum(reflect.TypeFor[testfixtures.Color]()))
	assert.False(t, x.IsEnum(reflect.TypeFor[testfixtures.User]()))
}

func TestFunc(t *testing.T) {
	x := newIndex(t)

	src, err := x.Func(testfixtures.GetUser)
	require.NoError(t, err)
	require.NotNil(t, src.Decl)
	assert.Equal(t, "GetUser", src.Name)
	assert.Equal(t, "GetUser returns a single user.", src.Doc().Text)
	assert.Equal(t, "endpoints.go", filepath.Base(src.File))

	var lit any
	for _, r := range testfixtures.NewApp().Routes() {
		if r.Name == "getAdmin" {
			lit = r.Func
		}
	}
	require.NotNil(t, lit)
	src, err = x.Func(lit)
	require.NoError(t, err)
	assert.NotNil(t, src.Lit)
	assert.Empty(t, src.Doc().Text)

	_, err = x.Func("not a func")
	assert.Error(t, err)
}

func TestFuncName(t *testing.T) {
	tests := []struct {
		full     string
		wantPkg  string
		wantName string
	}{
		{"example.com/app/api.GetUser", "example.com/app/api", "GetUser"},
		{"example.com/app/api.(*Server).GetUser-fm", "example.com/app/api", "GetUser"},
		{"example.com/app/api.NewApp.func1", "example.com/app/api", "func1"},
		{"example.com/app/api.List[...]", "example.com/app/api", "List"},
		{"main.handler", "main", "handler"},
	}
	for _, tt := range tests {
		t.Run(tt.full, func(t *testing.T) {
			pkg, name := FuncName(tt.full)
			assert.Equal(t, tt.wantPkg, pkg)
			assert.Equal(t, tt.wantName, name)
		})
	}
}
