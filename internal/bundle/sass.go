package bundle

import (
	"bytes"
	"context"
	"fmt"
	"os"
	"os/exec"
	"path/filepath"
	"strings"

	"github.com/aebs/aebs/internal/fsops"
)

// StyleCompiler turns a stylesheet source tree into CSS.
type StyleCompiler interface {
	Compile(ctx context.Context, srcDir, outDir string) error
}

// SassCompiler shells out to the sass executable once per entry stylesheet.
// Partials (names starting with "_") are only compiled through imports.
type SassCompiler struct {
	Binary string // default "sass"
}

func (s *SassCompiler) Compile(ctx context.Context, srcDir, outDir string) error {
	files, err := fsops.Walk(srcDir)
	if err != nil {
		return err
	}
	bin := s.Binary
	if bin == "" {
		bin = "sass"
	}
	if _, err := exec.LookPath(bin); err != nil {
		return fmt.Errorf("stylesheet compiler %q not found: %w", bin, err)
	}

	for _, rel := range files {
		if !strings.HasSuffix(rel, ".scss") || strings.HasPrefix(filepath.Base(rel), "_") {
			continue
		}
		in := filepath.Join(srcDir, filepath.FromSlash(rel))
		out := filepath.Join(outDir, filepath.FromSlash(strings.TrimSuffix(rel, ".scss")+".css"))
		if err := os.MkdirAll(filepath.Dir(out), 0o755); err != nil {
			return err
		}

		var stderr bytes.Buffer
		cmd := exec.CommandContext(ctx, bin, in, out)
		cmd.Stderr = &stderr
		if err := cmd.Run(); err != nil {
			msg := strings.TrimSpace(stderr.String())
			if msg == "" {
				return fmt.Errorf("%s %s: %w", bin, rel, err)
			}
			return fmt.Errorf("%s %s: %w: %s", bin, rel, err, msg)
		}
	}
	return nil
}
