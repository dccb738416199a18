package main

import (
	"context"
	"fmt"
	"io"
	"runtime"
	"strings"

	"github.com/spf13/cobra"

	"github.com/aebs/aebs/internal/build"
	"github.com/aebs/aebs/internal/builderr"
	"github.com/aebs/aebs/internal/catalog"
	"github.com/aebs/aebs/internal/exitcodes"
	ui "github.com/aebs/aebs/internal/ui"
)

func init() {
	var tag, arch string
	buildCmd := &cobra.Command{
		Use:   "build [dir]",
		Short: "Build the project for one runtime release and platform",
		Args:  cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			root := projectArg(args)
			d, err := newDeps(root)
			if err != nil {
				return err
			}
			ctx, cancel := commandContext(cmd)
			defer cancel()
			return handleBuild(ctx, d, root, tag, arch)
		},
	}
	buildCmd.Flags().StringVar(&tag, "electron", "", "Runtime release tag, e.g. v3.0.7 or latest")
	buildCmd.Flags().StringVar(&arch, "arch", "", "Target platform as <os>-<arch>, e.g. win32-x64")
	rootCmd.AddCommand(buildCmd)
}

type buildSummary struct {
	RunID    string  `json:"run_id" yaml:"run_id"`
	Release  string  `json:"release" yaml:"release"`
	Platform string  `json:"platform" yaml:"platform"`
	Asset    string  `json:"asset" yaml:"asset"`
	Archive  string  `json:"archive" yaml:"archive"`
	Reused   bool    `json:"reused" yaml:"reused"`
	Cached   bool    `json:"cached" yaml:"cached"`
	Output   string  `json:"output" yaml:"output"`
	App      string  `json:"app" yaml:"app"`
	Seconds  float64 `json:"seconds" yaml:"seconds"`
}

func handleBuild(ctx context.Context, d *Deps, root, tag, arch string) error {
	target, err := resolveTarget(ctx, d, tag, arch)
	if err != nil {
		return err
	}

	p := d.Printer
	prog := &buildProgress{out: d.Output, label: target.Asset.Name}
	if !p.Structured() {
		if !ui.GetGlobal().Quiet {
			d.Builder.OnDownload = prog.download
			d.Builder.OnExtract = prog.extract
		}
		p.Info(fmt.Sprintf("Building %s for %s (%s)", root, target.Platform, target.Release.TagName))
	}

	res, err := d.Builder.Package(ctx, build.Request{
		ProjectRoot: root,
		CacheDir:    d.Cfg.CacheDir,
		Target:      target,
	})
	prog.finish()
	if err != nil {
		return err
	}

	sum := buildSummary{
		RunID:    res.RunID,
		Release:  res.Target.Release.TagName,
		Platform: res.Target.Platform,
		Asset:    res.Target.Asset.Name,
		Archive:  res.Archive,
		Reused:   res.Reused,
		Cached:   res.Cached,
		Output:   res.Output,
		App:      res.App,
		Seconds:  res.Duration.Seconds(),
	}
	if handled, err := p.Emit(sum); handled {
		return err
	}

	archive := "downloaded"
	switch {
	case res.Reused && res.Cached:
		archive = "reused from cache"
	case res.Reused:
		archive = "reused from build/"
	case res.Cached:
		archive = "downloaded to cache"
	}
	p.Success("Build complete")
	p.Box(strings.Join([]string{
		p.Colors.Label("App:      ") + res.App,
		p.Colors.Label("Runtime:  ") + res.Target.Release.TagName + " " + res.Target.Platform,
		p.Colors.Label("Archive:  ") + archive,
		p.Colors.Label("Took:     ") + ui.FormatDuration(res.Duration),
	}, "\n"))
	return nil
}

// resolveTarget fetches the catalog and pairs tag and arch with a runtime
// archive, prompting for whichever is missing when a terminal is attached.
func resolveTarget(ctx context.Context, d *Deps, tag, arch string) (catalog.Target, error) {
	if (tag == "" || arch == "") && !d.Prompter.IsInteractive() {
		return catalog.Target{}, exitcodes.InvalidArgsErrorf("--electron and --arch are required when not running interactively")
	}

	releases, err := d.Builder.Releases(ctx)
	if err != nil {
		return catalog.Target{}, err
	}

	if tag == "" {
		line, err := d.Prompter.ReadLine("Electron version [latest]: ")
		if err != nil {
			return catalog.Target{}, fmt.Errorf("read version: %w", err)
		}
		tag = line
		if tag == "" {
			tag = "latest"
		}
	}

	if arch == "" {
		rel, err := catalog.SelectRelease(releases, tag)
		if err != nil {
			return catalog.Target{}, builderr.New(builderr.ErrMissingPrerequisite, "resolve runtime", err)
		}
		platforms := catalog.Platforms(*rel, d.Cfg.AssetPrefix)
		d.Printer.Info(fmt.Sprintf("Platforms in %s: %s", rel.TagName, strings.Join(platforms, ", ")))
		def := hostPlatform()
		line, err := d.Prompter.ReadLine(fmt.Sprintf("Platform [%s]: ", def))
		if err != nil {
			return catalog.Target{}, fmt.Errorf("read platform: %w", err)
		}
		arch = line
		if arch == "" {
			arch = def
		}
	}

	target, err := catalog.ResolveTarget(releases, tag, arch, d.Cfg.AssetPrefix)
	if err != nil {
		return catalog.Target{}, builderr.New(builderr.ErrMissingPrerequisite, "resolve runtime", err)
	}
	return target, nil
}

// hostPlatform names the running system the way runtime archives do.
func hostPlatform() string {
	goos, arch := runtime.GOOS, runtime.GOARCH
	if goos == "windows" {
		goos = "win32"
	}
	switch arch {
	case "amd64":
		arch = "x64"
	case "386":
		arch = "ia32"
	case "arm":
		arch = "armv7l"
	}
	return goos + "-" + arch
}

// buildProgress shows the download bar until extraction starts, then the
// extraction counter.
type buildProgress struct {
	out   io.Writer
	label string
	dl    *ui.DownloadBar
	ex    *ui.ExtractBar
}

func (b *buildProgress) download(current, total int64) {
	if b.dl == nil {
		b.dl = ui.NewDownloadBar(b.out, b.label)
	}
	b.dl.Update(current, total)
}

func (b *buildProgress) extract(current, total int64, name string) {
	if b.dl != nil {
		b.dl.Finish()
		b.dl = nil
	}
	if b.ex == nil {
		b.ex = ui.NewExtractBar(b.out, "extracting")
	}
	b.ex.Update(current, total, name)
}

func (b *buildProgress) finish() {
	if b.dl != nil {
		b.dl.Finish()
		b.dl = nil
	}
	if b.ex != nil {
		b.ex.Finish()
		b.ex = nil
	}
}
