// Package rebrand turns an extracted Electron runtime into a branded
// application: it installs the sealed archive, generates icons, patches
// platform metadata and renames the executables.
//
// Every platform runs the same fixed sequence; only the individual steps
// differ. A failure aborts the sequence and leaves the tree as it is.
package rebrand

import (
	"context"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"strings"

	"go.uber.org/zap"

	"github.com/aebs/aebs/internal/builderr"
	"github.com/aebs/aebs/internal/fsops"
	"github.com/aebs/aebs/internal/icon"
	"github.com/aebs/aebs/internal/manifest"
)

const (
	defaultPayload = "default_app.asar"
	payloadName    = "app.asar"
	resourcesDir   = "resources"
)

// Platform selects a rebranding strategy.
type Platform int

const (
	Linux Platform = iota
	Darwin
	Windows
)

func (p Platform) String() string {
	switch p {
	case Darwin:
		return "darwin"
	case Windows:
		return "windows"
	default:
		return "linux"
	}
}

// PlatformFromToken maps a release platform token ("darwin-x64",
// "mas-arm64", "win32-ia32", "linux-armv7l") to its Platform.
func PlatformFromToken(token string) Platform {
	osName, _, _ := strings.Cut(strings.ToLower(token), "-")
	switch osName {
	case "darwin", "mas":
		return Darwin
	case "win32":
		return Windows
	default:
		return Linux
	}
}

// Input is what a strategy needs to rebrand one runtime tree.
type Input struct {
	Package       *manifest.Package
	SealedArchive string // build/app.asar
	ProjectRoot   string
	RuntimeDir    string // extracted runtime, build/<asset basename>
}

// Strategy rebrands a runtime tree and returns the path of the finished
// application (bundle directory or main executable).
type Strategy interface {
	Rebrand(ctx context.Context, in Input) (string, error)
}

// IconWriter produces platform icon files from a source image.
type IconWriter interface {
	WriteICO(src, dest string) error
	WriteICNS(src, dest string) error
}

// Options are the collaborators shared by all strategies.
type Options struct {
	Icons     IconWriter     // default icon.Converter
	Resources ResourceEditor // windows only; default WinresEditor
	Workers   int            // concurrent helper bundles on darwin
	Log       *zap.Logger
}

func (o Options) withDefaults() Options {
	if o.Icons == nil {
		o.Icons = icon.Converter{}
	}
	if o.Resources == nil {
		o.Resources = WinresEditor{}
	}
	if o.Workers <= 0 {
		o.Workers = 4
	}
	if o.Log == nil {
		o.Log = zap.NewNop()
	}
	return o
}

// For returns the strategy for platform.
func For(p Platform, opts Options) Strategy {
	opts = opts.withDefaults()
	switch p {
	case Darwin:
		return &darwin{opts: opts}
	case Windows:
		return &windows{opts: opts}
	default:
		return &linux{opts: opts}
	}
}

// stripDefaultPayload removes the runtime's bundled default application.
func stripDefaultPayload(resources string) error {
	p := filepath.Join(resources, defaultPayload)
	if err := os.Remove(p); err != nil && !errors.Is(err, fs.ErrNotExist) {
		return builderr.WithPath(builderr.ErrRename, "remove default payload", p, err)
	}
	return nil
}

// installPayload moves the sealed archive into resources, replacing any
// earlier placement.
func installPayload(sealed, resources string) (string, error) {
	if !fsops.Exists(sealed) {
		return "", builderr.WithPath(builderr.ErrMissingPrerequisite, "install application archive", sealed,
			errors.New("sealed archive not found; bundle the application first"))
	}
	if !fsops.IsDir(resources) {
		return "", builderr.WithPath(builderr.ErrMissingPrerequisite, "install application archive", resources,
			errors.New("runtime resources directory not found"))
	}
	dest := filepath.Join(resources, payloadName)
	if err := os.Remove(dest); err != nil && !errors.Is(err, fs.ErrNotExist) {
		return "", builderr.WithPath(builderr.ErrRename, "replace application archive", dest, err)
	}
	if err := os.Rename(sealed, dest); err != nil {
		return "", builderr.WithPath(builderr.ErrRename, "install application archive", dest, err)
	}
	return dest, nil
}

// resolveIcon returns the configured icon as an absolute path, or "" when
// none is configured.
func resolveIcon(pkg *manifest.Package, projectRoot string) string {
	if !pkg.HasIcon() {
		return ""
	}
	p := filepath.FromSlash(strings.TrimSpace(pkg.Config.Icon))
	if filepath.IsAbs(p) {
		return p
	}
	return filepath.Join(projectRoot, p)
}

// renameArtifact renames from to to, refusing to overwrite.
func renameArtifact(from, to string) error {
	if err := fsops.Rename(from, to); err != nil {
		return builderr.WithPath(builderr.ErrRename, fmt.Sprintf("rename %s", filepath.Base(from)), to, err)
	}
	return nil
}
