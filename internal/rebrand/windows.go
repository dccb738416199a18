package rebrand

import (
	"context"
	"errors"
	"io/fs"
	"os"
	"path/filepath"

	"go.uber.org/zap"

	"github.com/aebs/aebs/internal/builderr"
	"github.com/aebs/aebs/internal/fsops"
	"github.com/aebs/aebs/internal/manifest"
	"github.com/aebs/aebs/internal/project"
)

const winExecutable = "electron.exe"

type windows struct {
	opts Options
}

func (w *windows) Rebrand(ctx context.Context, in Input) (string, error) {
	pkg := in.Package
	resources := filepath.Join(in.RuntimeDir, resourcesDir)
	exe := filepath.Join(in.RuntimeDir, winExecutable)
	log := w.opts.Log.With(zap.String("platform", "windows"), zap.String("runtime", in.RuntimeDir))

	if err := stripDefaultPayload(resources); err != nil {
		return "", err
	}
	if _, err := installPayload(in.SealedArchive, resources); err != nil {
		return "", err
	}

	icoPath := ""
	if src := resolveIcon(pkg, in.ProjectRoot); src != "" {
		icoPath = project.New(in.ProjectRoot).TempIcon()
		if err := w.opts.Icons.WriteICO(src, icoPath); err != nil {
			return "", err
		}
	}

	if !fsops.Exists(exe) {
		return "", builderr.WithPath(builderr.ErrMissingPrerequisite, "edit executable resources", exe,
			errors.New("runtime executable not found"))
	}
	if err := ctx.Err(); err != nil {
		return "", err
	}
	if err := w.opts.Resources.Edit(exe, versionStrings(pkg), icoPath); err != nil {
		return "", builderr.WithPath(builderr.ErrMetadata, "edit executable resources", exe, err)
	}

	final := filepath.Join(in.RuntimeDir, pkg.ExecutableName()+".exe")
	if err := renameArtifact(exe, final); err != nil {
		return "", err
	}

	if icoPath != "" {
		if err := os.Remove(icoPath); err != nil && !errors.Is(err, fs.ErrNotExist) {
			log.Warn("could not remove temporary icon", zap.String("path", icoPath), zap.Error(err))
		}
	}
	log.Info("executable ready", zap.String("exe", final))
	return final, nil
}

func versionStrings(pkg *manifest.Package) VersionStrings {
	return VersionStrings{
		CompanyName:     pkg.Config.CompanyName,
		FileDescription: pkg.Description,
		LegalCopyright:  pkg.Config.LegalCopyright,
		ProductName:     pkg.ProductName,
		FileVersion:     pkg.Version,
		ProductVersion:  pkg.Version,
	}
}
