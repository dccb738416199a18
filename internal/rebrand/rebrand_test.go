package rebrand

import (
	"context"
	"errors"
	"io/fs"
	"os"
	"path/filepath"
	"sync"
	"testing"

	"howett.net/plist"

	"github.com/aebs/aebs/internal/builderr"
	"github.com/aebs/aebs/internal/manifest"
)

const demoDescriptor = `{
  "name": "demo",
  "productName": "Demo App",
  "version": "1.2.3",
  "description": "A demo application",
  "config": {
    "company-name": "Acme Corp",
    "legal-copyright": "(c) Acme",
    "icon": "assets/icon.png",
    "identifier": "com.acme.demo"
  }
}`

func demoPackage(t *testing.T) *manifest.Package {
	t.Helper()
	pkg, err := manifest.Parse([]byte(demoDescriptor))
	if err != nil {
		t.Fatal(err)
	}
	return pkg
}

func writeFile(t *testing.T, path, content string) {
	t.Helper()
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		t.Fatal(err)
	}
	if err := os.WriteFile(path, []byte(content), 0o755); err != nil {
		t.Fatal(err)
	}
}

func writePlist(t *testing.T, path string, dict map[string]any, format int) {
	t.Helper()
	data, err := plist.Marshal(dict, format)
	if err != nil {
		t.Fatal(err)
	}
	writeFile(t, path, string(data))
}

func readPlist(t *testing.T, path string) (map[string]any, int) {
	t.Helper()
	data, err := os.ReadFile(path)
	if err != nil {
		t.Fatal(err)
	}
	var dict map[string]any
	format, err := plist.Unmarshal(data, &dict)
	if err != nil {
		t.Fatal(err)
	}
	return dict, format
}

func mustExist(t *testing.T, path string) {
	t.Helper()
	if _, err := os.Lstat(path); err != nil {
		t.Errorf("expected %s to exist: %v", path, err)
	}
}

func mustNotExist(t *testing.T, path string) {
	t.Helper()
	if _, err := os.Lstat(path); !errors.Is(err, fs.ErrNotExist) {
		t.Errorf("expected %s to be absent", path)
	}
}

// fakeIcons records conversions and writes placeholder bytes.
type fakeIcons struct {
	mu   sync.Mutex
	srcs []string
	err  error
}

func (f *fakeIcons) write(src, dest, content string) error {
	f.mu.Lock()
	f.srcs = append(f.srcs, src)
	f.mu.Unlock()
	if f.err != nil {
		return f.err
	}
	if err := os.MkdirAll(filepath.Dir(dest), 0o755); err != nil {
		return err
	}
	return os.WriteFile(dest, []byte(content), 0o644)
}

func (f *fakeIcons) WriteICO(src, dest string) error  { return f.write(src, dest, "ico") }
func (f *fakeIcons) WriteICNS(src, dest string) error { return f.write(src, dest, "icns") }

type fixture struct {
	root    string
	runtime string
	sealed  string
}

func newFixture(t *testing.T, runtimeName string) fixture {
	t.Helper()
	root := t.TempDir()
	fx := fixture{
		root:    root,
		runtime: filepath.Join(root, "build", runtimeName),
		sealed:  filepath.Join(root, "build", "app.asar"),
	}
	writeFile(t, fx.sealed, "sealed-app")
	return fx
}

func (fx fixture) input(pkg *manifest.Package) Input {
	return Input{Package: pkg, SealedArchive: fx.sealed, ProjectRoot: fx.root, RuntimeDir: fx.runtime}
}

func macRuntime(t *testing.T, fx fixture, format int) {
	t.Helper()
	contents := filepath.Join(fx.runtime, "Electron.app", "Contents")
	writePlist(t, filepath.Join(contents, "Info.plist"), map[string]any{
		"CFBundleDisplayName":    "Electron",
		"CFBundleExecutable":     "Electron",
		"CFBundleIdentifier":     "com.github.Electron",
		"CFBundleName":           "Electron",
		"CFBundleIconFile":       "electron.icns",
		"LSMinimumSystemVersion": "10.9.0",
	}, format)
	writeFile(t, filepath.Join(contents, "MacOS", "Electron"), "mach-o")
	writeFile(t, filepath.Join(contents, "Resources", "default_app.asar"), "default")
	writeFile(t, filepath.Join(contents, "Resources", "electron.icns"), "icns")
	for _, helper := range []string{"Electron Helper", "Electron Helper EH", "Electron Helper NP"} {
		hc := filepath.Join(contents, "Frameworks", helper+".app", "Contents")
		writePlist(t, filepath.Join(hc, "Info.plist"), map[string]any{
			"CFBundleExecutable": helper,
			"CFBundleIdentifier": "com.github.Electron.helper",
		}, format)
		writeFile(t, filepath.Join(hc, "MacOS", helper), "mach-o")
	}
}

func TestDarwinRebrand(t *testing.T) {
	fx := newFixture(t, "electron-v3.0.7-darwin-x64")
	macRuntime(t, fx, plist.XMLFormat)
	pkg := demoPackage(t)
	icons := &fakeIcons{}

	app, err := For(Darwin, Options{Icons: icons}).Rebrand(context.Background(), fx.input(pkg))
	if err != nil {
		t.Fatalf("Rebrand() error = %v", err)
	}

	wantApp := filepath.Join(fx.runtime, "Demo App.app")
	if app != wantApp {
		t.Errorf("app = %q, want %q", app, wantApp)
	}
	mustNotExist(t, filepath.Join(fx.runtime, "Electron.app"))
	contents := filepath.Join(wantApp, "Contents")
	mustExist(t, filepath.Join(contents, "MacOS", "DemoApp"))
	mustNotExist(t, filepath.Join(contents, "MacOS", "Electron"))
	mustNotExist(t, filepath.Join(contents, "Resources", "default_app.asar"))
	mustNotExist(t, filepath.Join(contents, "Resources", "electron.icns"))
	mustExist(t, filepath.Join(contents, "Resources", "demo.icns"))
	mustNotExist(t, fx.sealed)

	payload, err := os.ReadFile(filepath.Join(contents, "Resources", "app.asar"))
	if err != nil || string(payload) != "sealed-app" {
		t.Errorf("app.asar = %q, %v", payload, err)
	}
	if len(icons.srcs) != 1 || icons.srcs[0] != filepath.Join(fx.root, "assets", "icon.png") {
		t.Errorf("icon sources = %v", icons.srcs)
	}

	info, format := readPlist(t, filepath.Join(contents, "Info.plist"))
	if format != plist.XMLFormat {
		t.Errorf("plist format = %d, want XML", format)
	}
	want := map[string]string{
		"CFBundleDisplayName":        "Demo App",
		"CFBundleExecutable":         "DemoApp",
		"CFBundleName":               "DemoApp",
		"CFBundleIdentifier":         "com.acme.demo",
		"CFBundleIconFile":           "demo.icns",
		"CFBundleShortVersionString": "1.2.3",
		"CFBundleVersion":            "1.2.3",
		"LSMinimumSystemVersion":     "10.9.0",
	}
	for k, v := range want {
		if info[k] != v {
			t.Errorf("Info.plist %s = %v, want %q", k, info[k], v)
		}
	}

	helpers := []struct {
		name, exe, id string
	}{
		{"Demo App Helper", "DemoApp Helper", "com.acme.demo.helper"},
		{"Demo App Helper EH", "DemoApp Helper EH", "com.acme.demo.helper.eh"},
		{"Demo App Helper NP", "DemoApp Helper NP", "com.acme.demo.helper.np"},
	}
	for _, h := range helpers {
		hc := filepath.Join(contents, "Frameworks", h.name+".app", "Contents")
		mustExist(t, filepath.Join(hc, "MacOS", h.exe))
		mustNotExist(t, filepath.Join(hc, "MacOS", h.name))
		hinfo, _ := readPlist(t, filepath.Join(hc, "Info.plist"))
		if hinfo["CFBundleIdentifier"] != h.id {
			t.Errorf("%s identifier = %v, want %q", h.name, hinfo["CFBundleIdentifier"], h.id)
		}
		if hinfo["CFBundleExecutable"] != h.exe {
			t.Errorf("%s CFBundleExecutable = %v, want %q", h.name, hinfo["CFBundleExecutable"], h.exe)
		}
		if hinfo["CFBundleDisplayName"] != h.name || hinfo["CFBundleName"] != h.name {
			t.Errorf("%s plist = %v", h.name, hinfo)
		}
	}
	mustNotExist(t, filepath.Join(contents, "Frameworks", "Electron Helper.app"))
}

func TestDarwinKeepsBinaryPlistAndSkipsIcon(t *testing.T) {
	fx := newFixture(t, "electron-v3.0.7-mas-x64")
	macRuntime(t, fx, plist.BinaryFormat)
	pkg := demoPackage(t)
	pkg.Config.Icon = ""
	pkg.Config.Identifier = ""
	icons := &fakeIcons{}

	if _, err := For(PlatformFromToken("mas-x64"), Options{Icons: icons}).Rebrand(context.Background(), fx.input(pkg)); err != nil {
		t.Fatalf("Rebrand() error = %v", err)
	}
	if len(icons.srcs) != 0 {
		t.Error("no icon should be generated without config.icon")
	}
	contents := filepath.Join(fx.runtime, "Demo App.app", "Contents")
	mustExist(t, filepath.Join(contents, "Resources", "electron.icns"))

	info, format := readPlist(t, filepath.Join(contents, "Info.plist"))
	if format != plist.BinaryFormat {
		t.Errorf("plist format = %d, want binary", format)
	}
	if info["CFBundleIdentifier"] != "com.github.Electron" {
		t.Errorf("identifier should be untouched, got %v", info["CFBundleIdentifier"])
	}
	if info["CFBundleIconFile"] != "electron.icns" {
		t.Errorf("icon file should be untouched, got %v", info["CFBundleIconFile"])
	}
}

type fakeEditor struct {
	exe      string
	strs     VersionStrings
	iconPath string
	iconSeen bool
	err      error
}

func (f *fakeEditor) Edit(exe string, strs VersionStrings, iconPath string) error {
	f.exe, f.strs, f.iconPath = exe, strs, iconPath
	if iconPath != "" {
		_, err := os.Stat(iconPath)
		f.iconSeen = err == nil
	}
	return f.err
}

func winRuntime(t *testing.T, fx fixture) {
	t.Helper()
	writeFile(t, filepath.Join(fx.runtime, "electron.exe"), "MZ")
	writeFile(t, filepath.Join(fx.runtime, "resources", "default_app.asar"), "default")
}

func TestWindowsRebrand(t *testing.T) {
	fx := newFixture(t, "electron-v3.0.7-win32-x64")
	winRuntime(t, fx)
	pkg := demoPackage(t)
	editor := &fakeEditor{}

	exe, err := For(Windows, Options{Icons: &fakeIcons{}, Resources: editor}).Rebrand(context.Background(), fx.input(pkg))
	if err != nil {
		t.Fatalf("Rebrand() error = %v", err)
	}
	if exe != filepath.Join(fx.runtime, "DemoApp.exe") {
		t.Errorf("exe = %q", exe)
	}
	mustExist(t, exe)
	mustNotExist(t, filepath.Join(fx.runtime, "electron.exe"))
	mustNotExist(t, filepath.Join(fx.runtime, "resources", "default_app.asar"))
	mustExist(t, filepath.Join(fx.runtime, "resources", "app.asar"))

	icoPath := filepath.Join(fx.root, "build", "icon.ico")
	if editor.iconPath != icoPath || !editor.iconSeen {
		t.Errorf("editor icon = %q (seen %v), want %q", editor.iconPath, editor.iconSeen, icoPath)
	}
	mustNotExist(t, icoPath)

	want := VersionStrings{
		CompanyName:     "Acme Corp",
		FileDescription: "A demo application",
		LegalCopyright:  "(c) Acme",
		ProductName:     "Demo App",
		FileVersion:     "1.2.3",
		ProductVersion:  "1.2.3",
	}
	if editor.strs != want {
		t.Errorf("version strings = %+v, want %+v", editor.strs, want)
	}
}

func TestWindowsEditorFailure(t *testing.T) {
	fx := newFixture(t, "electron-v3.0.7-win32-ia32")
	winRuntime(t, fx)
	editor := &fakeEditor{err: errors.New("bad PE")}

	_, err := For(Windows, Options{Icons: &fakeIcons{}, Resources: editor}).Rebrand(context.Background(), fx.input(demoPackage(t)))
	if !errors.Is(err, builderr.ErrMetadata) {
		t.Fatalf("Rebrand() error = %v, want ErrMetadata", err)
	}
	mustExist(t, filepath.Join(fx.runtime, "electron.exe"))
}

func TestLinuxRebrand(t *testing.T) {
	fx := newFixture(t, "electron-v3.0.7-linux-x64")
	writeFile(t, filepath.Join(fx.runtime, "electron"), "elf")
	writeFile(t, filepath.Join(fx.runtime, "resources", "default_app.asar"), "default")

	exe, err := For(Linux, Options{}).Rebrand(context.Background(), fx.input(demoPackage(t)))
	if err != nil {
		t.Fatalf("Rebrand() error = %v", err)
	}
	if exe != filepath.Join(fx.runtime, "DemoApp") {
		t.Errorf("exe = %q", exe)
	}
	mustNotExist(t, filepath.Join(fx.runtime, "electron"))
	mustExist(t, filepath.Join(fx.runtime, "resources", "app.asar"))
}

func TestRenameTargetExists(t *testing.T) {
	fx := newFixture(t, "electron-v3.0.7-linux-x64")
	writeFile(t, filepath.Join(fx.runtime, "electron"), "elf")
	writeFile(t, filepath.Join(fx.runtime, "resources", "default_app.asar"), "default")
	writeFile(t, filepath.Join(fx.runtime, "DemoApp"), "from an earlier run")

	_, err := For(Linux, Options{}).Rebrand(context.Background(), fx.input(demoPackage(t)))
	if !errors.Is(err, builderr.ErrRename) {
		t.Fatalf("Rebrand() error = %v, want ErrRename", err)
	}
	data, _ := os.ReadFile(filepath.Join(fx.runtime, "DemoApp"))
	if string(data) != "from an earlier run" {
		t.Error("existing target was overwritten")
	}
}

func TestDarwinSecondRunFails(t *testing.T) {
	fx := newFixture(t, "electron-v3.0.7-darwin-x64")
	macRuntime(t, fx, plist.XMLFormat)
	pkg := demoPackage(t)
	s := For(Darwin, Options{Icons: &fakeIcons{}})
	if _, err := s.Rebrand(context.Background(), fx.input(pkg)); err != nil {
		t.Fatal(err)
	}

	// Re-extracting without clearing the output leaves the renamed bundle.
	macRuntime(t, fx, plist.XMLFormat)
	writeFile(t, fx.sealed, "sealed-again")
	_, err := s.Rebrand(context.Background(), fx.input(pkg))
	if !errors.Is(err, builderr.ErrRename) {
		t.Fatalf("second Rebrand() error = %v, want ErrRename", err)
	}
}

func TestMissingSealedArchive(t *testing.T) {
	for _, p := range []Platform{Darwin, Windows, Linux} {
		t.Run(p.String(), func(t *testing.T) {
			fx := newFixture(t, "runtime")
			if err := os.Remove(fx.sealed); err != nil {
				t.Fatal(err)
			}
			macRuntime(t, fx, plist.XMLFormat)
			winRuntime(t, fx)
			_, err := For(p, Options{Icons: &fakeIcons{}, Resources: &fakeEditor{}}).Rebrand(context.Background(), fx.input(demoPackage(t)))
			if !errors.Is(err, builderr.ErrMissingPrerequisite) {
				t.Errorf("Rebrand() error = %v, want ErrMissingPrerequisite", err)
			}
		})
	}
}

func TestIconFailureAborts(t *testing.T) {
	fx := newFixture(t, "electron-v3.0.7-darwin-x64")
	macRuntime(t, fx, plist.XMLFormat)
	icons := &fakeIcons{err: builderr.New(builderr.ErrIconConversion, "convert", errors.New("empty output"))}

	_, err := For(Darwin, Options{Icons: icons}).Rebrand(context.Background(), fx.input(demoPackage(t)))
	if !errors.Is(err, builderr.ErrIconConversion) {
		t.Fatalf("Rebrand() error = %v, want ErrIconConversion", err)
	}
	mustExist(t, filepath.Join(fx.runtime, "Electron.app"))
}

func TestResolveIcon(t *testing.T) {
	pkg := demoPackage(t)
	root := filepath.FromSlash("/projects/demo")
	if got := resolveIcon(pkg, root); got != filepath.Join(root, "assets", "icon.png") {
		t.Errorf("relative icon = %q", got)
	}
	abs := filepath.Join(t.TempDir(), "icon.png")
	pkg.Config.Icon = abs
	if got := resolveIcon(pkg, root); got != abs {
		t.Errorf("absolute icon = %q", got)
	}
	pkg.Config.Icon = ""
	if got := resolveIcon(pkg, root); got != "" {
		t.Errorf("unset icon = %q", got)
	}
}

func TestPlatformFromToken(t *testing.T) {
	tests := map[string]Platform{
		"darwin-x64":   Darwin,
		"mas-arm64":    Darwin,
		"win32-ia32":   Windows,
		"win32-x64":    Windows,
		"linux-armv7l": Linux,
		"linux-x64":    Linux,
	}
	for token, want := range tests {
		if got := PlatformFromToken(token); got != want {
			t.Errorf("PlatformFromToken(%q) = %v, want %v", token, got, want)
		}
	}
}
