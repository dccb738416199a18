package main

import (
	"context"
	"fmt"
	"strings"

	"github.com/spf13/cobra"

	"github.com/aebs/aebs/internal/builderr"
	"github.com/aebs/aebs/internal/catalog"
	ui "github.com/aebs/aebs/internal/ui"
)

func init() {
	var withPre bool
	releasesCmd := &cobra.Command{
		Use:   "releases",
		Short: "List runtime releases from the catalog",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			d, err := newDeps(".")
			if err != nil {
				return err
			}
			ctx, cancel := commandContext(cmd)
			defer cancel()
			return handleReleases(ctx, d, withPre)
		},
	}
	releasesCmd.Flags().BoolVar(&withPre, "prerelease", false, "Also list pre-releases")

	assetsCmd := &cobra.Command{
		Use:   "assets <tag>",
		Short: "List the runtime archives of a release",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			d, err := newDeps(".")
			if err != nil {
				return err
			}
			ctx, cancel := commandContext(cmd)
			defer cancel()
			return handleAssets(ctx, d, args[0])
		},
	}

	rootCmd.AddCommand(releasesCmd, assetsCmd)
}

type releaseList struct {
	Stable     []string `json:"stable" yaml:"stable"`
	Prerelease []string `json:"prerelease,omitempty" yaml:"prerelease,omitempty"`
}

func handleReleases(ctx context.Context, d *Deps, withPre bool) error {
	releases, err := d.Builder.Releases(ctx)
	if err != nil {
		return err
	}
	stable, pre := catalog.Partition(releases)
	out := releaseList{Stable: catalog.SortedTags(stable)}
	if withPre {
		out.Prerelease = catalog.SortedTags(pre)
	}

	p := d.Printer
	if handled, err := p.Emit(out); handled {
		return err
	}

	p.Section(fmt.Sprintf("Stable (%d)", len(out.Stable)))
	for _, tag := range out.Stable {
		p.Textf("  %s %s\n", p.Colors.StatusIcon("stable"), tag)
	}
	if withPre {
		p.Section(fmt.Sprintf("Pre-release (%d)", len(out.Prerelease)))
		for _, tag := range out.Prerelease {
			p.Textf("  %s %s\n", p.Colors.StatusIcon("prerelease"), tag)
		}
	}
	return nil
}

type assetRow struct {
	Platform string `json:"platform" yaml:"platform"`
	Name     string `json:"name" yaml:"name"`
	Size     int64  `json:"size" yaml:"size"`
	URL      string `json:"url" yaml:"url"`
}

func handleAssets(ctx context.Context, d *Deps, tag string) error {
	releases, err := d.Builder.Releases(ctx)
	if err != nil {
		return err
	}
	rel, err := catalog.SelectRelease(releases, tag)
	if err != nil {
		return builderr.New(builderr.ErrMissingPrerequisite, "find release", err)
	}

	prefix := d.Cfg.AssetPrefix
	assets := catalog.SelectAssets(*rel, prefix)
	rows := make([]assetRow, 0, len(assets))
	for _, a := range assets {
		rows = append(rows, assetRow{
			Platform: catalog.PlatformToken(*rel, a, prefix),
			Name:     a.Name,
			Size:     a.Size,
			URL:      a.DownloadURL(),
		})
	}

	p := d.Printer
	if handled, err := p.Emit(rows); handled {
		return err
	}

	p.Header(rel.TagName)
	if len(rows) == 0 {
		p.Warn("no runtime archives in this release")
		return nil
	}
	table := make([][]string, 0, len(rows))
	for _, r := range rows {
		table = append(table, []string{r.Platform, r.Name, ui.FormatBytes(r.Size)})
	}
	p.Textf("%s", ui.Table(p.Colors, []string{"PLATFORM", "ASSET", "SIZE"}, table))
	p.Textf("%s\n", p.Colors.Description(strings.Join([]string{"build with: aebs build --electron", rel.TagName, "--arch <platform>"}, " ")))
	return nil
}
