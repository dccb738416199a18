// Package bundle stages an application's sources and runtime dependencies
// and seals them into build/app.asar.
package bundle

import (
	"context"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"runtime"

	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"

	"github.com/aebs/aebs/internal/asar"
	"github.com/aebs/aebs/internal/builderr"
	"github.com/aebs/aebs/internal/fsops"
	"github.com/aebs/aebs/internal/manifest"
	"github.com/aebs/aebs/internal/project"
)

// Sealer turns a staging directory into a single archive file.
type Sealer interface {
	Seal(srcDir, dest string) error
}

// SealFunc adapts a function to Sealer.
type SealFunc func(srcDir, dest string) error

func (f SealFunc) Seal(srcDir, dest string) error { return f(srcDir, dest) }

// ASARSealer writes Electron ASAR archives.
var ASARSealer Sealer = SealFunc(asar.Pack)

// Bundler builds the sealed application archive for one project.
type Bundler struct {
	Layout  project.Layout
	Sealer  Sealer        // default: ASARSealer
	Styles  StyleCompiler // nil skips stylesheet compilation
	Workers int           // concurrent dependency copies; default GOMAXPROCS
	Log     *zap.Logger
}

// New returns a Bundler for layout with the ASAR sealer and the sass
// compiler.
func New(layout project.Layout, log *zap.Logger) *Bundler {
	return &Bundler{
		Layout: layout,
		Sealer: ASARSealer,
		Styles: &SassCompiler{},
		Log:    log,
	}
}

func (b *Bundler) logger() *zap.Logger {
	if b.Log == nil {
		return zap.NewNop()
	}
	return b.Log
}

// Bundle stages the application described by pkg and seals it. It returns
// the path of the sealed archive. On failure the staging directory is left
// in place; the next run empties it.
func (b *Bundler) Bundle(ctx context.Context, pkg *manifest.Package) (string, error) {
	staging := b.Layout.Staging()
	log := b.logger().With(zap.String("staging", staging))

	if err := fsops.EnsureEmptyDir(staging); err != nil {
		return "", builderr.WithPath(builderr.ErrBundling, "prepare staging", staging, err)
	}

	if err := b.copyDependencies(ctx, pkg, staging); err != nil {
		return "", err
	}
	log.Debug("dependencies staged", zap.Int("count", len(pkg.Dependencies)))

	src := b.Layout.Source()
	if fsops.IsDir(src) {
		if err := fsops.CopyTree(src, filepath.Join(staging, project.SourceDirName), []string{b.Layout.StyleSource()}); err != nil {
			return "", builderr.WithPath(builderr.ErrBundling, "stage sources", src, err)
		}
	} else {
		log.Warn("project has no source directory", zap.String("path", src))
	}

	if b.Styles != nil && fsops.IsDir(b.Layout.StyleSource()) {
		out := filepath.Join(staging, project.CSSDirName)
		if err := b.Styles.Compile(ctx, b.Layout.StyleSource(), out); err != nil {
			return "", builderr.WithPath(builderr.ErrBundling, "compile stylesheets", b.Layout.StyleSource(), err)
		}
	}

	if err := fsops.LinkOrCopy(b.Layout.Manifest(), filepath.Join(staging, project.ManifestName)); err != nil {
		return "", builderr.WithPath(builderr.ErrBundling, "stage package descriptor", b.Layout.Manifest(), err)
	}

	sealed := b.Layout.SealedArchive()
	if err := os.MkdirAll(filepath.Dir(sealed), 0o755); err != nil {
		return "", builderr.WithPath(builderr.ErrBundling, "create build directory", filepath.Dir(sealed), err)
	}
	sealer := b.Sealer
	if sealer == nil {
		sealer = ASARSealer
	}
	if err := sealer.Seal(staging, sealed); err != nil {
		return "", builderr.WithPath(builderr.ErrBundling, "seal archive", sealed, err)
	}

	if err := fsops.RemoveTree(staging); err != nil {
		return "", builderr.WithPath(builderr.ErrBundling, "remove staging", staging, err)
	}
	log.Info("application sealed", zap.String("archive", sealed))
	return sealed, nil
}

// copyDependencies mirrors node_modules/<name> for every dependency into the
// staging tree. Targets are disjoint so copies run in parallel.
func (b *Bundler) copyDependencies(ctx context.Context, pkg *manifest.Package, staging string) error {
	names := pkg.DependencyNames()
	for _, name := range names {
		if src := b.Layout.Dependency(name); !fsops.IsDir(src) {
			return builderr.WithPath(builderr.ErrMissingDependency, fmt.Sprintf("dependency %q not installed", name), src,
				errors.New("run the package manager install first"))
		}
	}

	workers := b.Workers
	if workers <= 0 {
		workers = runtime.GOMAXPROCS(0)
	}
	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(workers)
	for _, name := range names {
		g.Go(func() error {
			if err := gctx.Err(); err != nil {
				return err
			}
			dest := filepath.Join(staging, project.ModulesDirName, filepath.FromSlash(name))
			if err := fsops.CopyTree(b.Layout.Dependency(name), dest, nil); err != nil {
				return builderr.WithPath(builderr.ErrBundling, "stage dependency "+name, b.Layout.Dependency(name), err)
			}
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		var be *builderr.Error
		if errors.As(err, &be) {
			return err
		}
		return builderr.New(builderr.ErrBundling, "stage dependencies", err)
	}
	return nil
}
