package project

import (
	"path/filepath"
	"testing"
)

func TestLayoutPaths(t *testing.T) {
	root := filepath.Join(t.TempDir(), "demo")
	l := New(root)

	tests := []struct {
		name string
		got  string
		want string
	}{
		{"source", l.Source(), filepath.Join(root, "src")},
		{"style", l.StyleSource(), filepath.Join(root, "src", "scss")},
		{"modules", l.Modules(), filepath.Join(root, "node_modules")},
		{"scoped dependency", l.Dependency("@scope/pkg"), filepath.Join(root, "node_modules", "@scope", "pkg")},
		{"staging", l.Staging(), filepath.Join(root, "asar")},
		{"sealed", l.SealedArchive(), filepath.Join(root, "build", "app.asar")},
		{"temp icon", l.TempIcon(), filepath.Join(root, "build", "icon.ico")},
		{"output", l.Output("electron-v3.0.7-win32-x64.zip"), filepath.Join(root, "build", "electron-v3.0.7-win32-x64")},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if tt.got != tt.want {
				t.Errorf("got %q, want %q", tt.got, tt.want)
			}
		})
	}
}

func TestArchiveBase(t *testing.T) {
	tests := map[string]string{
		"electron-v3.0.7-darwin-x64.zip":     "electron-v3.0.7-darwin-x64",
		"runtime-v1.0.0-linux-x64.tar.gz":    "runtime-v1.0.0-linux-x64",
		"runtime-v1.0.0-linux-x64.tar.lz4":   "runtime-v1.0.0-linux-x64",
		"runtime-v1.0.0-linux-arm64.tar.xz":  "runtime-v1.0.0-linux-arm64",
		"plain":                              "plain",
	}
	for in, want := range tests {
		if got := ArchiveBase(in); got != want {
			t.Errorf("ArchiveBase(%q) = %q, want %q", in, got, want)
		}
	}
}
