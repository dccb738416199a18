package manifest

import (
	"os"
	"path/filepath"
	"reflect"
	"strings"
	"testing"
)

const demoPackage = `{
  "name": "demo",
  "productName": "Demo App",
  "version": "1.2.3",
  "description": "A demo",
  "main": "src/main.js",
  "dependencies": {"left-pad": "^1.3.0", "@scope/util": "2.0.0"},
  "config": {
    "company-name": "Acme",
    "legal-copyright": "(c) Acme",
    "icon": "assets/icon.png",
    "identifier": "com.acme.demo"
  }
}`

func TestParse(t *testing.T) {
	pkg, err := Parse([]byte(demoPackage))
	if err != nil {
		t.Fatalf("Parse() error = %v", err)
	}
	if pkg.ProductName != "Demo App" || pkg.Version != "1.2.3" {
		t.Errorf("unexpected package: %+v", pkg)
	}
	if pkg.Config.CompanyName != "Acme" || pkg.Config.Identifier != "com.acme.demo" {
		t.Errorf("unexpected config: %+v", pkg.Config)
	}
	if got := pkg.ExecutableName(); got != "DemoApp" {
		t.Errorf("ExecutableName() = %q", got)
	}
	if got := pkg.IconFileName(".icns"); got != "demo.icns" {
		t.Errorf("IconFileName() = %q", got)
	}
	want := []string{"@scope/util", "left-pad"}
	if got := pkg.DependencyNames(); !reflect.DeepEqual(got, want) {
		t.Errorf("DependencyNames() = %v, want %v", got, want)
	}
}

func TestParseRejects(t *testing.T) {
	tests := []struct {
		name        string
		doc         string
		errContains string
	}{
		{"not json", `{`, "parse package descriptor"},
		{"missing productName", `{"name":"a","version":"1.0.0"}`, "invalid package descriptor"},
		{"dependency not string", `{"name":"a","productName":"A","version":"1.0.0","dependencies":{"x":1}}`, "invalid package descriptor"},
		{"bad version", `{"name":"a","productName":"A","version":"one"}`, "not a semantic version"},
		{"bad identifier", `{"name":"a","productName":"A","version":"1.0.0","config":{"identifier":"com acme"}}`, "invalid package descriptor"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := Parse([]byte(tt.doc))
			if err == nil {
				t.Fatal("Parse() expected error")
			}
			if !strings.Contains(err.Error(), tt.errContains) {
				t.Errorf("Parse() error = %q, want containing %q", err, tt.errContains)
			}
		})
	}
}

func TestLoad(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "package.json")
	if err := os.WriteFile(path, []byte(demoPackage), 0o644); err != nil {
		t.Fatal(err)
	}
	pkg, err := Load(path)
	if err != nil {
		t.Fatal(err)
	}
	if pkg.Name != "demo" {
		t.Errorf("Name = %q", pkg.Name)
	}

	if _, err := Load(filepath.Join(dir, "missing.json")); err == nil {
		t.Error("Load(missing) expected error")
	}
}

func TestHelperIdentifier(t *testing.T) {
	pkg := &Package{Config: Config{Identifier: "com.acme.demo"}}
	tests := map[string]string{
		"":         "com.acme.demo.helper",
		"EH":       "com.acme.demo.helper.eh",
		"NP":       "com.acme.demo.helper.np",
		"(GPU)":    "com.acme.demo.helper.gpu",
		"Renderer": "com.acme.demo.helper.renderer",
	}
	for suffix, want := range tests {
		if got := pkg.HelperIdentifier(suffix); got != want {
			t.Errorf("HelperIdentifier(%q) = %q, want %q", suffix, got, want)
		}
	}

	if got := (&Package{}).HelperIdentifier("EH"); got != "" {
		t.Errorf("HelperIdentifier without identifier = %q", got)
	}
}
