package main

import (
	"context"
	"errors"
	"fmt"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/spf13/cobra"

	"github.com/aebs/aebs/internal/config"
	"github.com/aebs/aebs/internal/exitcodes"
	ui "github.com/aebs/aebs/internal/ui"
)

// Version information - set via -ldflags during build
var (
	Version   = "dev"
	Commit    = "unknown"
	BuildDate = "unknown"
)

// rootCmd wires the CLI surface using Cobra. Persistent flags are applied
// to the loaded config in loadCfg().
var rootCmd = &cobra.Command{
	Use:           "aebs",
	Short:         "Electron application build orchestrator",
	Long:          "Package an Electron project: fetch the runtime, seal the app into app.asar and rebrand the result.",
	SilenceUsage:  true,
	SilenceErrors: true,
	PersistentPreRun: func(cmd *cobra.Command, args []string) {
		ui.InitGlobal(ui.Config{
			NoColor:        flagNoColor,
			NoEmoji:        flagNoEmoji,
			NonInteractive: flagNonInteractive,
			Quiet:          flagQuiet,
			Debug:          flagDebug,
		})
		// lipgloss reads NO_COLOR itself
		if flagNoColor {
			os.Setenv("NO_COLOR", "1")
		}
	},
}

var (
	flagOutput         string
	flagQuiet          bool
	flagDebug          bool
	flagNoColor        bool
	flagNoEmoji        bool
	flagNonInteractive bool
	flagCache          string
	flagCatalogURL     string
	flagTimeout        time.Duration
)

func init() {
	rootCmd.PersistentFlags().StringVarP(&flagOutput, "output", "o", "text", "Output format: json|yaml|text")
	rootCmd.PersistentFlags().BoolVarP(&flagQuiet, "quiet", "q", false, "Quiet mode: only warnings and errors")
	rootCmd.PersistentFlags().BoolVarP(&flagDebug, "debug", "d", false, "Debug output: extra diagnostic logs")
	rootCmd.PersistentFlags().BoolVar(&flagNoColor, "no-color", false, "Disable ANSI colors")
	rootCmd.PersistentFlags().BoolVar(&flagNoEmoji, "no-emoji", false, "Disable emoji output")
	rootCmd.PersistentFlags().BoolVar(&flagNonInteractive, "non-interactive", false, "Fail instead of prompting")
	rootCmd.PersistentFlags().StringVar(&flagCache, "cache", "", "Shared runtime archive cache directory (overrides config)")
	rootCmd.PersistentFlags().StringVar(&flagCatalogURL, "catalog-url", "", "Release catalog endpoint (overrides config)")
	rootCmd.PersistentFlags().DurationVar(&flagTimeout, "timeout", 0, "Abort the command after this long (0 = no limit)")
}

// silentErr marks an error already reported to the user.
type silentErr struct{ error }

func (s silentErr) Unwrap() error { return s.error }

// Execute runs the root command with SIGINT/SIGTERM cancelling the context.
func Execute() {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	if err := rootCmd.ExecuteContext(ctx); err != nil {
		var se silentErr
		if !errors.As(err, &se) {
			reportError(err)
		}
		stop()
		os.Exit(exitcodes.CodeForError(err))
	}
}

func reportError(err error) {
	if flagOutput == "json" || flagOutput == "yaml" {
		fmt.Fprintln(os.Stderr, err)
		return
	}
	c := ui.NewColorConfigFromGlobal()
	fmt.Fprint(os.Stderr, ui.ErrorMessageFor(err).Format(c))
}

// commandContext applies --timeout to the command's context.
func commandContext(cmd *cobra.Command) (context.Context, context.CancelFunc) {
	ctx := cmd.Context()
	if ctx == nil {
		ctx = context.Background()
	}
	if flagTimeout > 0 {
		return context.WithTimeout(ctx, flagTimeout)
	}
	return context.WithCancel(ctx)
}

// loadCfg reads defaults, the project's .aebs.yaml and env via
// config.Load and then applies overrides from persistent flags.
func loadCfg(projectRoot string) (config.Config, error) {
	cfg, err := config.Load(projectRoot)
	if err != nil {
		return cfg, exitcodes.WrapError(exitcodes.PreconditionFailed, "load config", err)
	}
	if flagCache != "" {
		cfg.CacheDir = flagCache
	}
	if flagCatalogURL != "" {
		cfg.CatalogURL = flagCatalogURL
	}
	return cfg, nil
}

func getPrinter() ui.Printer { return ui.NewPrinterFromGlobal(flagOutput) }

func projectArg(args []string) string {
	if len(args) > 0 {
		return args[0]
	}
	return "."
}
