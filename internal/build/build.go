// Package build runs the end-to-end packaging pipeline: resolve the runtime
// archive, download it unless cached, seal the application, extract the
// runtime and rebrand it for the target platform.
package build

import (
	"context"
	"errors"
	"io/fs"
	"os"
	"path/filepath"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/aebs/aebs/internal/builderr"
	"github.com/aebs/aebs/internal/bundle"
	"github.com/aebs/aebs/internal/cache"
	"github.com/aebs/aebs/internal/catalog"
	"github.com/aebs/aebs/internal/extract"
	"github.com/aebs/aebs/internal/fetch"
	"github.com/aebs/aebs/internal/fsops"
	"github.com/aebs/aebs/internal/manifest"
	"github.com/aebs/aebs/internal/project"
	"github.com/aebs/aebs/internal/rebrand"
)

// Catalog lists releases.
type Catalog interface {
	FetchReleases(ctx context.Context, endpoint string) ([]catalog.Release, error)
}

// Downloader stores a remote archive at dest.
type Downloader interface {
	Download(ctx context.Context, url, dest string, progress fetch.ProgressFunc) error
}

// Extractor unpacks an archive into an emptied directory.
type Extractor interface {
	Extract(ctx context.Context, archivePath, destDir string, progress extract.ProgressFunc) error
}

// Bundler seals the application sources.
type Bundler interface {
	Bundle(ctx context.Context, pkg *manifest.Package) (string, error)
}

// Builder wires the pipeline stages. Nil fields fall back to the default
// implementations.
type Builder struct {
	Catalog     Catalog
	Fetcher     Downloader
	Extractor   Extractor
	NewBundler  func(project.Layout) Bundler
	NewStrategy func(rebrand.Platform) rebrand.Strategy
	CheckSpace  func(dir string, need int64) error
	Log         *zap.Logger

	CatalogURL  string
	AssetPrefix string

	OnDownload fetch.ProgressFunc
	OnExtract  extract.ProgressFunc
}

// Request describes one build.
type Request struct {
	ProjectRoot string
	CacheDir    string // optional shared archive cache
	Target      catalog.Target
}

// Result summarizes a finished build.
type Result struct {
	RunID    string
	Target   catalog.Target
	Archive  string // where the runtime archive was read from
	Reused   bool   // no download was needed
	Cached   bool   // archive lives in the shared cache
	Output   string // build/<asset basename>
	App      string // rebranded bundle or executable
	Duration time.Duration
}

func (b *Builder) logger() *zap.Logger {
	if b.Log == nil {
		return zap.NewNop()
	}
	return b.Log
}

func (b *Builder) catalog() Catalog {
	if b.Catalog == nil {
		return catalog.NewClient("")
	}
	return b.Catalog
}

func (b *Builder) endpoint() string {
	if b.CatalogURL == "" {
		return catalog.DefaultEndpoint
	}
	return b.CatalogURL
}

// Releases fetches the catalog.
func (b *Builder) Releases(ctx context.Context) ([]catalog.Release, error) {
	return b.catalog().FetchReleases(ctx, b.endpoint())
}

// Resolve fetches the catalog and picks the archive for tag and platform.
// tag may be "latest".
func (b *Builder) Resolve(ctx context.Context, tag, platform string) (catalog.Target, error) {
	releases, err := b.Releases(ctx)
	if err != nil {
		return catalog.Target{}, err
	}
	target, err := catalog.ResolveTarget(releases, tag, platform, b.AssetPrefix)
	if err != nil {
		return catalog.Target{}, builderr.New(builderr.ErrMissingPrerequisite, "resolve runtime", err)
	}
	return target, nil
}

// Package builds the project at req.ProjectRoot for req.Target.
func (b *Builder) Package(ctx context.Context, req Request) (*Result, error) {
	start := time.Now()
	runID := uuid.NewString()
	log := b.logger().With(zap.String("run", runID))
	layout := project.New(req.ProjectRoot)
	asset := req.Target.Asset

	log.Info("build started",
		zap.String("project", layout.Root),
		zap.String("release", req.Target.Release.TagName),
		zap.String("platform", req.Target.Platform),
		zap.String("asset", asset.Name))

	pkg, err := manifest.Load(layout.Manifest())
	if err != nil {
		return nil, builderr.WithPath(builderr.ErrMissingPrerequisite, "load package descriptor", layout.Manifest(), err)
	}

	res, err := cache.Resolve(req.CacheDir, layout.Build(), asset.Name)
	if err != nil {
		return nil, err
	}
	result := &Result{RunID: runID, Target: req.Target, Archive: res.Path, Reused: res.Reuse, Cached: res.Cached}

	if res.Reuse {
		log.Info("reusing runtime archive", zap.String("path", res.Path), zap.Bool("cached", res.Cached))
	} else {
		if err := b.download(ctx, log, req, res, asset); err != nil {
			return nil, err
		}
	}

	sealed, err := b.bundler(layout, log).Bundle(ctx, pkg)
	if err != nil {
		return nil, err
	}

	out := layout.Output(asset.Name)
	if err := b.extractor(log).Extract(ctx, res.Path, out, b.OnExtract); err != nil {
		return nil, err
	}
	result.Output = out

	platform := rebrand.PlatformFromToken(req.Target.Platform)
	app, err := b.strategy(platform, log).Rebrand(ctx, rebrand.Input{
		Package:       pkg,
		SealedArchive: sealed,
		ProjectRoot:   layout.Root,
		RuntimeDir:    out,
	})
	if err != nil {
		return nil, err
	}
	result.App = app

	if !res.Cached {
		if err := os.Remove(res.Path); err != nil && !errors.Is(err, fs.ErrNotExist) {
			log.Warn("could not remove downloaded archive", zap.String("path", res.Path), zap.Error(err))
		}
	}

	result.Duration = time.Since(start)
	log.Info("build finished", zap.String("app", app), zap.Duration("took", result.Duration))
	return result, nil
}

func (b *Builder) download(ctx context.Context, log *zap.Logger, req Request, res cache.Resolution, asset catalog.Asset) error {
	check := b.CheckSpace
	if check == nil {
		check = cache.CheckFreeSpace
	}
	if err := check(filepath.Dir(res.Path), asset.Size); err != nil {
		return err
	}

	fetcher := b.Fetcher
	if fetcher == nil {
		fetcher = fetch.New(fetch.Options{Logger: log})
	}
	log.Info("downloading runtime archive", zap.String("url", asset.DownloadURL()), zap.String("dest", res.Path))
	if err := fetcher.Download(ctx, asset.DownloadURL(), res.Path, b.OnDownload); err != nil {
		return err
	}

	if res.Cached {
		// Index failures are logged only.
		idx, err := cache.LoadIndex(req.CacheDir)
		if err == nil {
			if _, err = idx.Record(asset.Name); err == nil {
				err = idx.Save()
			}
		}
		if err != nil {
			log.Warn("could not update cache index", zap.String("cache", req.CacheDir), zap.Error(err))
		}
	}
	return nil
}

func (b *Builder) bundler(layout project.Layout, log *zap.Logger) Bundler {
	if b.NewBundler != nil {
		return b.NewBundler(layout)
	}
	return bundle.New(layout, log)
}

func (b *Builder) extractor(log *zap.Logger) Extractor {
	if b.Extractor != nil {
		return b.Extractor
	}
	return extract.New(log)
}

func (b *Builder) strategy(p rebrand.Platform, log *zap.Logger) rebrand.Strategy {
	if b.NewStrategy != nil {
		return b.NewStrategy(p)
	}
	return rebrand.For(p, rebrand.Options{Log: log})
}

// Clean removes build output and any staging directory left by a failed
// run.
func Clean(layout project.Layout) error {
	if err := fsops.EmptyTree(layout.Build()); err != nil {
		return err
	}
	return fsops.RemoveTree(layout.Staging())
}
