package main

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/aebs/aebs/internal/build"
	"github.com/aebs/aebs/internal/project"
	ui "github.com/aebs/aebs/internal/ui"
)

func init() {
	rootCmd.AddCommand(&cobra.Command{
		Use:   "clean [dir]",
		Short: "Empty build/ and remove staging left by a failed build",
		Args:  cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return handleClean(getPrinter(), projectArg(args))
		},
	})
}

func handleClean(p ui.Printer, root string) error {
	layout := project.New(root)
	if err := build.Clean(layout); err != nil {
		return fmt.Errorf("clean %s: %w", layout.Root, err)
	}
	p.Success(fmt.Sprintf("Cleaned %s", layout.Build()))
	return nil
}
