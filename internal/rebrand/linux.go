package rebrand

import (
	"context"
	"path/filepath"

	"go.uber.org/zap"
)

const linuxExecutable = "electron"

// linux has no metadata to patch; the desktop entry is out of scope.
type linux struct {
	opts Options
}

func (l *linux) Rebrand(ctx context.Context, in Input) (string, error) {
	resources := filepath.Join(in.RuntimeDir, resourcesDir)
	if err := stripDefaultPayload(resources); err != nil {
		return "", err
	}
	if _, err := installPayload(in.SealedArchive, resources); err != nil {
		return "", err
	}
	if err := ctx.Err(); err != nil {
		return "", err
	}

	final := filepath.Join(in.RuntimeDir, in.Package.ExecutableName())
	if err := renameArtifact(filepath.Join(in.RuntimeDir, linuxExecutable), final); err != nil {
		return "", err
	}
	l.opts.Log.Info("executable ready", zap.String("platform", "linux"), zap.String("exe", final))
	return final, nil
}
