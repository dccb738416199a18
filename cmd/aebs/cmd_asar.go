package main

import (
	"context"
	"fmt"

	"github.com/spf13/cobra"

	"github.com/aebs/aebs/internal/asar"
	"github.com/aebs/aebs/internal/builderr"
	"github.com/aebs/aebs/internal/bundle"
	"github.com/aebs/aebs/internal/manifest"
	"github.com/aebs/aebs/internal/project"
	ui "github.com/aebs/aebs/internal/ui"
)

func init() {
	asarCmd := &cobra.Command{
		Use:   "asar [dir]",
		Short: "Seal the project into build/app.asar without packaging a runtime",
		Args:  cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			root := projectArg(args)
			d, err := newDeps(root)
			if err != nil {
				return err
			}
			ctx, cancel := commandContext(cmd)
			defer cancel()
			return handleAsar(ctx, d, root)
		},
	}

	listCmd := &cobra.Command{
		Use:   "list <file>",
		Short: "List the files sealed in an archive",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return handleAsarList(getPrinter(), args[0])
		},
	}

	asarCmd.AddCommand(listCmd)
	rootCmd.AddCommand(asarCmd)
}

func handleAsar(ctx context.Context, d *Deps, root string) error {
	layout := project.New(root)
	pkg, err := manifest.Load(layout.Manifest())
	if err != nil {
		return builderr.WithPath(builderr.ErrMissingPrerequisite, "load package descriptor", layout.Manifest(), err)
	}
	b := bundle.New(layout, d.Log)
	b.Workers = d.Cfg.Workers
	sealed, err := b.Bundle(ctx, pkg)
	if err != nil {
		return err
	}
	d.Printer.Success(fmt.Sprintf("Sealed %s %s into %s", pkg.ProductName, pkg.Version, sealed))
	return nil
}

type asarEntry struct {
	Path       string `json:"path" yaml:"path"`
	Size       int64  `json:"size" yaml:"size"`
	Executable bool   `json:"executable,omitempty" yaml:"executable,omitempty"`
}

func handleAsarList(p ui.Printer, file string) error {
	a, err := asar.Open(file)
	if err != nil {
		return builderr.WithPath(builderr.ErrMissingPrerequisite, "open archive", file, err)
	}
	defer a.Close()

	names := a.List()
	entries := make([]asarEntry, 0, len(names))
	var total int64
	for _, name := range names {
		size, exec, err := a.Stat(name)
		if err != nil {
			return err
		}
		total += size
		entries = append(entries, asarEntry{Path: name, Size: size, Executable: exec})
	}

	if handled, err := p.Emit(entries); handled {
		return err
	}
	for _, e := range entries {
		p.Textf("%s\n", e.Path)
	}
	p.Info(fmt.Sprintf("%s files, %s", ui.FormatNumber(int64(len(entries))), ui.FormatBytes(total)))
	return nil
}
