package main

import (
	"bytes"
	"context"
	"errors"
	"io"
	"io/fs"
	"os"
	"path/filepath"
	"testing"

	"github.com/klauspost/compress/zip"
	"go.uber.org/zap"

	"github.com/aebs/aebs/internal/build"
	"github.com/aebs/aebs/internal/bundle"
	"github.com/aebs/aebs/internal/catalog"
	"github.com/aebs/aebs/internal/config"
	"github.com/aebs/aebs/internal/fetch"
	"github.com/aebs/aebs/internal/project"
	ui "github.com/aebs/aebs/internal/ui"
)

// errMock is a generic error for test assertions.
var errMock = errors.New("mock error")

func testReleases() []catalog.Release {
	return []catalog.Release{
		{TagName: "v3.0.7", Assets: []catalog.Asset{
			{Name: "electron-v3.0.7-linux-x64.zip", URL: "https://example.invalid/1", Size: 2048},
			{Name: "electron-v3.0.7-linux-x64-symbols.zip", URL: "https://example.invalid/2", Size: 9000},
			{Name: "electron-v3.0.7-win32-x64.zip", URL: "https://example.invalid/3", Size: 4096},
		}},
		{TagName: "v4.0.0-beta.1", Prerelease: true},
		{TagName: "v2.0.18"},
	}
}

// mockCatalog implements build.Catalog.
type mockCatalog struct {
	releases []catalog.Release
	err      error
	calls    int
}

func (m *mockCatalog) FetchReleases(ctx context.Context, endpoint string) ([]catalog.Release, error) {
	m.calls++
	return m.releases, m.err
}

// mockPrompter implements Prompter with canned responses.
type mockPrompter struct {
	responses   []string
	prompts     []string
	interactive bool
}

func (m *mockPrompter) ReadLine(prompt string) (string, error) {
	m.prompts = append(m.prompts, prompt)
	if len(m.responses) == 0 {
		return "", io.EOF
	}
	r := m.responses[0]
	m.responses = m.responses[1:]
	return r, nil
}

func (m *mockPrompter) IsInteractive() bool { return m.interactive }

// runtimeDownloader writes a small linux runtime zip instead of fetching.
type runtimeDownloader struct {
	t     *testing.T
	calls int
}

func (r *runtimeDownloader) Download(_ context.Context, url, dest string, progress fetch.ProgressFunc) error {
	r.calls++
	if err := os.MkdirAll(filepath.Dir(dest), 0o755); err != nil {
		return err
	}
	f, err := os.Create(dest)
	if err != nil {
		return err
	}
	defer f.Close()
	zw := zip.NewWriter(f)
	for _, e := range []struct {
		name string
		mode fs.FileMode
	}{
		{"electron", 0o755},
		{"resources/default_app.asar", 0o644},
	} {
		h := &zip.FileHeader{Name: e.name, Method: zip.Deflate}
		h.SetMode(e.mode)
		w, err := zw.CreateHeader(h)
		if err != nil {
			return err
		}
		if _, err := io.WriteString(w, e.name); err != nil {
			return err
		}
	}
	if progress != nil {
		progress(2048, 2048)
	}
	return zw.Close()
}

func plainPrinter(format string, buf *bytes.Buffer) ui.Printer {
	p := ui.NewPrinter(format).WithWriter(buf)
	p.Colors = &ui.ColorConfig{Theme: ui.DefaultTheme()}
	return p
}

func testDeps(t *testing.T, format string, cat build.Catalog) (*Deps, *bytes.Buffer) {
	t.Helper()
	var buf bytes.Buffer
	cfg := config.Defaults()
	cfg.CacheDir = ""
	return &Deps{
		Cfg: cfg,
		Builder: &build.Builder{
			Catalog: cat,
			Fetcher: &runtimeDownloader{t: t},
			NewBundler: func(l project.Layout) build.Bundler {
				b := bundle.New(l, nil)
				b.Styles = nil
				return b
			},
			CheckSpace:  func(string, int64) error { return nil },
			AssetPrefix: cfg.AssetPrefix,
		},
		Printer:  plainPrinter(format, &buf),
		Prompter: &mockPrompter{},
		Output:   &buf,
		Log:      zap.NewNop(),
	}, &buf
}

func writeProject(t *testing.T) string {
	t.Helper()
	root := t.TempDir()
	files := map[string]string{
		"package.json":                   `{"name":"demo","productName":"Demo App","version":"1.2.3","main":"src/main.js","dependencies":{"left-pad":"1.3.0"}}`,
		"src/main.js":                    "require('electron')",
		"node_modules/left-pad/index.js": "module.exports = pad",
	}
	for name, content := range files {
		p := filepath.Join(root, filepath.FromSlash(name))
		if err := os.MkdirAll(filepath.Dir(p), 0o755); err != nil {
			t.Fatal(err)
		}
		if err := os.WriteFile(p, []byte(content), 0o644); err != nil {
			t.Fatal(err)
		}
	}
	return root
}
