// Package project describes the fixed working-tree layout of an Electron
// project: where sources, dependencies and transient build output live.
package project

import (
	"path/filepath"
	"strings"
)

const (
	SourceDirName   = "src"
	ModulesDirName  = "node_modules"
	BuildDirName    = "build"
	StagingDirName  = "asar"
	StyleDirName    = "scss"
	CSSDirName      = "css"
	ManifestName    = "package.json"
	SealedName      = "app.asar"
	TempIconName    = "icon.ico"
	ConfigFileName  = ".aebs.yaml"
	archiveZipExt   = ".zip"
)

// Layout resolves working-tree paths relative to a project root.
type Layout struct {
	Root string
}

// New returns the layout for root, made absolute when possible.
func New(root string) Layout {
	if abs, err := filepath.Abs(root); err == nil {
		root = abs
	}
	return Layout{Root: root}
}

func (l Layout) Source() string        { return filepath.Join(l.Root, SourceDirName) }
func (l Layout) StyleSource() string   { return filepath.Join(l.Source(), StyleDirName) }
func (l Layout) Modules() string       { return filepath.Join(l.Root, ModulesDirName) }
func (l Layout) Manifest() string      { return filepath.Join(l.Root, ManifestName) }
func (l Layout) Build() string         { return filepath.Join(l.Root, BuildDirName) }
func (l Layout) Staging() string       { return filepath.Join(l.Root, StagingDirName) }
func (l Layout) SealedArchive() string { return filepath.Join(l.Build(), SealedName) }
func (l Layout) TempIcon() string      { return filepath.Join(l.Build(), TempIconName) }
func (l Layout) ConfigFile() string    { return filepath.Join(l.Root, ConfigFileName) }

// Dependency returns the installed tree of a named dependency.
func (l Layout) Dependency(name string) string {
	return filepath.Join(l.Modules(), filepath.FromSlash(name))
}

// Output returns the per-architecture output directory for a runtime
// archive, named after the archive without its extension
// (electron-v3.0.7-win32-x64.zip -> build/electron-v3.0.7-win32-x64).
func (l Layout) Output(assetName string) string {
	return filepath.Join(l.Build(), ArchiveBase(assetName))
}

// ArchiveBase strips known archive extensions from name.
func ArchiveBase(name string) string {
	for _, ext := range []string{".tar.gz", ".tar.xz", ".tar.lz4", ".tar.zst", ".tgz", archiveZipExt} {
		if strings.HasSuffix(name, ext) {
			return strings.TrimSuffix(name, ext)
		}
	}
	return name
}
