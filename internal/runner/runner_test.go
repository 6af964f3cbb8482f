package runner

import (
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/broady/fluidgen/internal/discover"
)

func TestGenerate(t *testing.T) {
	tests := []struct {
		name     string
		opts     Options
		contains []string // strings that must appear in output
		excludes []string // strings that must not appear in output
	}{
		{
			name: "app export simple",
			opts: Options{
				Export:      discover.Export{Name: "setupApp", Type: discover.ExportTypeApp},
				PkgDir:      "/src/shop/cmd/server",
				ProjectRoot: "/src/shop",
			},
			contains: []string{
				"// Code generated by fluidgen. DO NOT EDIT.",
				"package main",
				`"github.com/broady/fluidgen/gen"`,
				"b := gen.FromApp(setupApp())",
				`b.WithProjectRoot("/src/shop")`,
				`b.WithMainPackage("/src/shop/cmd/server")`,
				"gen.Main(b, false)",
			},
			excludes: []string{
				"WithOverrides",
				"DryRun",
			},
		},
		{
			name: "app export with overrides",
			opts: Options{
				Export:      discover.Export{Name: "setupApp", Type: discover.ExportTypeApp},
				ProjectRoot: "/src/shop",
				Overrides:   "strategy=co-locate&target=production",
				Verbose:     true,
			},
			contains: []string{
				`b.WithOverrides("strategy=co-locate&target=production")`,
				"gen.Main(b, true)",
			},
		},
		{
			name: "app export with config",
			opts: Options{
				Export:      discover.Export{Name: "setupApp", Type: discover.ExportTypeApp},
				ProjectRoot: "/src/shop",
				ConfigFunc:  "configure",
				Overrides:   "target=production",
			},
			contains: []string{
				"b = configure(b)",
			},
		},
		{
			name: "app export with config disabled",
			opts: Options{
				Export:      discover.Export{Name: "setupApp", Type: discover.ExportTypeApp},
				ProjectRoot: "/src/shop",
				ConfigFunc:  "configure",
				NoConfig:    true,
			},
			excludes: []string{
				"configure",
			},
		},
		{
			name: "builder export",
			opts: Options{
				Export: discover.Export{Name: "Gen", Type: discover.ExportTypeBuilder},
				PkgDir: "/src/shop",
				DryRun: true,
			},
			contains: []string{
				"b := Gen()",
				"b.DryRun()",
			},
			excludes: []string{
				"FromApp",
				"WithProjectRoot",
			},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			src, err := Generate(tt.opts)
			if err != nil {
				t.Fatalf("Generate() error = %v", err)
			}
			out := string(src)
			for _, s := range tt.contains {
				if !strings.Contains(out, s) {
					t.Errorf("output missing %q:\n%s", s, out)
				}
			}
			for _, s := range tt.excludes {
				if strings.Contains(out, s) {
					t.Errorf("output should not contain %q:\n%s", s, out)
				}
			}
		})
	}
}

func TestGenerate_ConfigBeforeOverrides(t *testing.T) {
	src, err := Generate(Options{
		Export:      discover.Export{Name: "setupApp", Type: discover.ExportTypeApp},
		ProjectRoot: "/src/shop",
		ConfigFunc:  "configure",
		Overrides:   "target=production",
	})
	if err != nil {
		t.Fatal(err)
	}
	out := string(src)
	if strings.Index(out, "configure(b)") > strings.Index(out, "WithOverrides") {
		t.Errorf("overrides must follow the config function:\n%s", out)
	}
}

func TestGenerate_Errors(t *testing.T) {
	if _, err := Generate(Options{Export: discover.Export{Name: "setupApp", Type: discover.ExportTypeApp}}); err == nil {
		t.Error("expected error for app export without project root")
	}
	if _, err := Generate(Options{Export: discover.Export{Name: "x", Type: discover.ExportType(99)}}); err == nil {
		t.Error("expected error for unknown export type")
	}
}

func TestRemoveMain(t *testing.T) {
	dir := t.TempDir()

	withMain := filepath.Join(dir, "main.go")
	src := `package main

import "fmt"

// setupApp builds the app.
func setupApp() int { return 1 }

func main() {
	fmt.Println(setupApp())
}
`
	if err := os.WriteFile(withMain, []byte(src), 0644); err != nil {
		t.Fatal(err)
	}
	hasMain, out, err := removeMain(withMain)
	if err != nil {
		t.Fatal(err)
	}
	if !hasMain {
		t.Fatal("expected main to be found")
	}
	if strings.Contains(string(out), "func main()") {
		t.Errorf("main not removed:\n%s", out)
	}
	if !strings.Contains(string(out), "// setupApp builds the app.") {
		t.Errorf("comments lost:\n%s", out)
	}

	noMain := filepath.Join(dir, "lib.go")
	if err := os.WriteFile(noMain, []byte("package main\n\nfunc helper() {}\n"), 0644); err != nil {
		t.Fatal(err)
	}
	hasMain, out, err = removeMain(noMain)
	if err != nil || hasMain || out != nil {
		t.Errorf("removeMain(lib.go) = %v, %q, %v", hasMain, out, err)
	}

	broken := filepath.Join(dir, "broken.go")
	if err := os.WriteFile(broken, []byte("package main\nfunc {"), 0644); err != nil {
		t.Fatal(err)
	}
	if _, _, err := removeMain(broken); err == nil {
		t.Error("expected parse error")
	}
}
