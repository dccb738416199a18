package main

import (
	"fmt"
	"time"

	"github.com/spf13/cobra"

	"github.com/aebs/aebs/internal/cache"
	"github.com/aebs/aebs/internal/exitcodes"
	ui "github.com/aebs/aebs/internal/ui"
)

func init() {
	cacheCmd := &cobra.Command{
		Use:   "cache",
		Short: "Inspect the shared runtime archive cache",
	}
	cacheCmd.AddCommand(
		&cobra.Command{
			Use:   "list",
			Short: "List cached runtime archives",
			Args:  cobra.NoArgs,
			RunE: func(cmd *cobra.Command, args []string) error {
				cfg, err := loadCfg(".")
				if err != nil {
					return err
				}
				return handleCacheList(getPrinter(), cfg.CacheDir)
			},
		},
		&cobra.Command{
			Use:   "verify",
			Short: "Check cached archives against their recorded size and hash",
			Args:  cobra.NoArgs,
			RunE: func(cmd *cobra.Command, args []string) error {
				cfg, err := loadCfg(".")
				if err != nil {
					return err
				}
				return handleCacheVerify(getPrinter(), cfg.CacheDir)
			},
		},
	)
	rootCmd.AddCommand(cacheCmd)
}

func handleCacheList(p ui.Printer, dir string) error {
	idx, err := cache.LoadIndex(dir)
	if err != nil {
		return err
	}
	entries := idx.List()
	if handled, err := p.Emit(entries); handled {
		return err
	}
	if len(entries) == 0 {
		p.Info(fmt.Sprintf("No archives recorded in %s", dir))
		return nil
	}
	rows := make([][]string, 0, len(entries))
	for _, e := range entries {
		rows = append(rows, []string{e.Name, ui.FormatBytes(e.Size), e.StoredAt.Local().Format(time.DateTime)})
	}
	p.Textf("%s", ui.Table(p.Colors, []string{"ARCHIVE", "SIZE", "STORED"}, rows))
	return nil
}

func handleCacheVerify(p ui.Printer, dir string) error {
	idx, err := cache.LoadIndex(dir)
	if err != nil {
		return err
	}
	statuses := idx.Verify()
	bad := 0
	for _, s := range statuses {
		if !s.OK {
			bad++
		}
	}

	if handled, err := p.Emit(statuses); handled {
		if err != nil {
			return err
		}
	} else {
		for _, s := range statuses {
			state := "ok"
			switch {
			case !s.Present:
				state = "missing"
			case !s.OK:
				state = "changed"
			}
			line := fmt.Sprintf("  %s %s", p.Colors.StatusIcon(state), s.Name)
			if s.Reason != "" {
				line += " " + p.Colors.Description("("+s.Reason+")")
			}
			p.Textf("%s\n", line)
		}
	}

	if bad > 0 {
		return silentErr{exitcodes.NewErrorf(exitcodes.ValidationError, "%d cached archive(s) failed verification", bad)}
	}
	if !p.Structured() {
		p.Success(fmt.Sprintf("%d archive(s) verified", len(statuses)))
	}
	return nil
}
