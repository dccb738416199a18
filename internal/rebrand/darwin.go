package rebrand

import (
	"context"
	"errors"
	"io/fs"
	"os"
	"path/filepath"
	"strings"

	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"
	"howett.net/plist"

	"github.com/aebs/aebs/internal/builderr"
	"github.com/aebs/aebs/internal/manifest"
)

const (
	macBundle      = "Electron.app"
	macExecutable  = "Electron"
	macDefaultIcon = "electron.icns"
	helperPrefix   = "Electron Helper"
)

// macHelpers are the helper bundles shipped in Contents/Frameworks across
// runtime generations. Absent ones are skipped.
var macHelpers = []string{
	"Electron Helper.app",
	"Electron Helper EH.app",
	"Electron Helper NP.app",
	"Electron Helper (GPU).app",
	"Electron Helper (Renderer).app",
	"Electron Helper (Plugin).app",
}

type darwin struct {
	opts Options
}

func (d *darwin) Rebrand(ctx context.Context, in Input) (string, error) {
	pkg := in.Package
	contents := filepath.Join(in.RuntimeDir, macBundle, "Contents")
	resources := filepath.Join(contents, "Resources")
	log := d.opts.Log.With(zap.String("platform", "darwin"), zap.String("runtime", in.RuntimeDir))

	if err := stripDefaultPayload(resources); err != nil {
		return "", err
	}
	if _, err := installPayload(in.SealedArchive, resources); err != nil {
		return "", err
	}

	iconFile := ""
	if src := resolveIcon(pkg, in.ProjectRoot); src != "" {
		iconFile = pkg.IconFileName(".icns")
		if err := d.opts.Icons.WriteICNS(src, filepath.Join(resources, iconFile)); err != nil {
			return "", err
		}
		old := filepath.Join(resources, macDefaultIcon)
		if err := os.Remove(old); err != nil && !errors.Is(err, fs.ErrNotExist) {
			return "", builderr.WithPath(builderr.ErrIconConversion, "remove default icon", old, err)
		}
		log.Debug("icon generated", zap.String("icon", iconFile))
	}

	if err := patchPlist(filepath.Join(contents, "Info.plist"), mainBundleKeys(pkg, iconFile)); err != nil {
		return "", err
	}
	if err := d.patchHelpers(ctx, filepath.Join(contents, "Frameworks"), pkg); err != nil {
		return "", err
	}

	macos := filepath.Join(contents, "MacOS")
	if err := renameArtifact(filepath.Join(macos, macExecutable), filepath.Join(macos, pkg.ExecutableName())); err != nil {
		return "", err
	}
	app := filepath.Join(in.RuntimeDir, pkg.ProductName+".app")
	if err := renameArtifact(filepath.Join(in.RuntimeDir, macBundle), app); err != nil {
		return "", err
	}
	log.Info("application bundle ready", zap.String("app", app))
	return app, nil
}

func mainBundleKeys(pkg *manifest.Package, iconFile string) map[string]any {
	keys := map[string]any{
		"CFBundleDisplayName":        pkg.ProductName,
		"CFBundleExecutable":         pkg.ExecutableName(),
		"CFBundleName":               pkg.ExecutableName(),
		"CFBundleShortVersionString": pkg.Version,
		"CFBundleVersion":            pkg.Version,
	}
	if iconFile != "" {
		keys["CFBundleIconFile"] = iconFile
	}
	if pkg.Config.Identifier != "" {
		keys["CFBundleIdentifier"] = pkg.Config.Identifier
	}
	return keys
}

// helperJob carries everything one helper rename needs, so goroutines share
// nothing but the read-only package.
type helperJob struct {
	dir     string // .../Frameworks/Electron Helper EH.app
	oldName string // Electron Helper EH
	newName string // Demo App Helper EH, bundle and display name
	exeName string // DemoApp Helper EH
	id      string
}

func helperJobs(frameworks string, pkg *manifest.Package) []helperJob {
	var jobs []helperJob
	for _, bundle := range macHelpers {
		dir := filepath.Join(frameworks, bundle)
		if info, err := os.Stat(dir); err != nil || !info.IsDir() {
			continue
		}
		oldName := strings.TrimSuffix(bundle, ".app")
		suffix := strings.TrimSpace(strings.TrimPrefix(oldName, helperPrefix))
		jobs = append(jobs, helperJob{
			dir:     dir,
			oldName: oldName,
			newName: strings.Replace(oldName, "Electron", pkg.ProductName, 1),
			exeName: strings.Replace(oldName, "Electron", pkg.ExecutableName(), 1),
			id:      pkg.HelperIdentifier(suffix),
		})
	}
	return jobs
}

func (d *darwin) patchHelpers(ctx context.Context, frameworks string, pkg *manifest.Package) error {
	jobs := helperJobs(frameworks, pkg)
	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(d.opts.Workers)
	for _, job := range jobs {
		g.Go(func() error {
			if err := gctx.Err(); err != nil {
				return err
			}
			return patchHelper(job)
		})
	}
	if err := g.Wait(); err != nil {
		return err
	}
	d.opts.Log.Debug("helpers patched", zap.Int("count", len(jobs)))
	return nil
}

func patchHelper(job helperJob) error {
	contents := filepath.Join(job.dir, "Contents")
	keys := map[string]any{
		"CFBundleDisplayName": job.newName,
		"CFBundleExecutable":  job.exeName,
		"CFBundleName":        job.newName,
	}
	if job.id != "" {
		keys["CFBundleIdentifier"] = job.id
	}
	if err := patchPlist(filepath.Join(contents, "Info.plist"), keys); err != nil {
		return err
	}
	macos := filepath.Join(contents, "MacOS")
	if err := renameArtifact(filepath.Join(macos, job.oldName), filepath.Join(macos, job.exeName)); err != nil {
		return err
	}
	return renameArtifact(job.dir, filepath.Join(filepath.Dir(job.dir), job.newName+".app"))
}

// patchPlist sets keys in the property list at path, keeping every other
// key and the file's original encoding (XML or binary).
func patchPlist(path string, keys map[string]any) error {
	data, err := os.ReadFile(path)
	if err != nil {
		return builderr.WithPath(builderr.ErrMissingPrerequisite, "read Info.plist", path, err)
	}
	var dict map[string]any
	format, err := plist.Unmarshal(data, &dict)
	if err != nil {
		return builderr.WithPath(builderr.ErrMetadata, "parse Info.plist", path, err)
	}
	if dict == nil {
		dict = map[string]any{}
	}
	for k, v := range keys {
		dict[k] = v
	}

	var out []byte
	if format == plist.XMLFormat || format == plist.OpenStepFormat || format == plist.GNUStepFormat {
		// Text formats are rewritten as XML, which every macOS tool reads.
		out, err = plist.MarshalIndent(dict, plist.XMLFormat, "\t")
	} else {
		out, err = plist.Marshal(dict, format)
	}
	if err != nil {
		return builderr.WithPath(builderr.ErrMetadata, "encode Info.plist", path, err)
	}
	if err := os.WriteFile(path, out, 0o644); err != nil {
		return builderr.WithPath(builderr.ErrMetadata, "write Info.plist", path, err)
	}
	return nil
}
