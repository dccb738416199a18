package main

import (
	"bufio"
	"fmt"
	"io"
	"net/http"
	"os"
	"strings"

	"go.uber.org/zap"
	"golang.org/x/term"

	"github.com/aebs/aebs/internal/build"
	"github.com/aebs/aebs/internal/bundle"
	"github.com/aebs/aebs/internal/catalog"
	"github.com/aebs/aebs/internal/config"
	"github.com/aebs/aebs/internal/fetch"
	"github.com/aebs/aebs/internal/logging"
	"github.com/aebs/aebs/internal/project"
	ui "github.com/aebs/aebs/internal/ui"
)

// Prompter abstracts interactive terminal I/O for testability.
type Prompter interface {
	// ReadLine displays the prompt and reads a line of input.
	ReadLine(prompt string) (string, error)
	// IsInteractive returns whether the terminal supports interactive input.
	IsInteractive() bool
}

// Deps holds all injectable dependencies for command handlers.
type Deps struct {
	Cfg      config.Config
	Builder  *build.Builder
	Printer  ui.Printer
	Prompter Prompter
	Output   io.Writer
	Log      *zap.Logger
}

// ttyPrompter is the production implementation of Prompter.
// It uses /dev/tty when stdin is not a terminal (e.g., piped input).
type ttyPrompter struct{}

func (p *ttyPrompter) ReadLine(prompt string) (string, error) {
	fmt.Print(prompt)

	var reader *bufio.Reader
	if term.IsTerminal(int(os.Stdin.Fd())) {
		reader = bufio.NewReader(os.Stdin)
	} else {
		tty, err := os.OpenFile("/dev/tty", os.O_RDONLY, 0)
		if err != nil {
			return "", fmt.Errorf("no interactive terminal available: %w", err)
		}
		defer tty.Close()
		reader = bufio.NewReader(tty)
	}

	line, err := reader.ReadString('\n')
	if err != nil {
		return "", err
	}
	return strings.TrimSpace(line), nil
}

func (p *ttyPrompter) IsInteractive() bool {
	if flagNonInteractive {
		return false
	}
	return ui.IsInteractive()
}

// newDeps creates production dependencies for the project at root.
func newDeps(root string) (*Deps, error) {
	cfg, err := loadCfg(root)
	if err != nil {
		return nil, err
	}
	log := logging.New(flagDebug, flagQuiet)
	return &Deps{
		Cfg:      cfg,
		Builder:  newBuilder(cfg, log),
		Printer:  getPrinter(),
		Prompter: &ttyPrompter{},
		Output:   os.Stdout,
		Log:      log,
	}, nil
}

func newBuilder(cfg config.Config, log *zap.Logger) *build.Builder {
	client := catalog.NewClient(cfg.UserAgent)
	client.HTTP = &http.Client{Timeout: cfg.HTTPTimeout}

	fetcher := fetch.New(fetch.Options{
		HTTP: &http.Client{
			Timeout: cfg.HTTPTimeout,
			CheckRedirect: func(*http.Request, []*http.Request) error {
				return http.ErrUseLastResponse
			},
		},
		UserAgent:    cfg.UserAgent,
		MaxRedirects: cfg.MaxRedirects,
		Logger:       log,
	})

	workers := cfg.Workers
	return &build.Builder{
		Catalog: client,
		Fetcher: fetcher,
		NewBundler: func(l project.Layout) build.Bundler {
			b := bundle.New(l, log)
			b.Workers = workers
			return b
		},
		Log:         log,
		CatalogURL:  cfg.CatalogURL,
		AssetPrefix: cfg.AssetPrefix,
	}
}
