// Package extract unpacks runtime archives into an output directory.
package extract

import (
	"archive/tar"
	"context"
	"errors"
	"fmt"
	"io"
	"io/fs"
	"os"
	"path/filepath"
	"strings"

	"github.com/klauspost/compress/gzip"
	"github.com/klauspost/compress/zip"
	"github.com/klauspost/compress/zstd"
	"github.com/pierrec/lz4/v4"
	"github.com/ulikunitz/xz"
	"go.uber.org/zap"

	"github.com/aebs/aebs/internal/builderr"
	"github.com/aebs/aebs/internal/fsops"
)

// ProgressFunc reports extraction progress.
// current: entries processed so far (1-based)
// total: total entries (-1 if unknown)
// name: current entry
type ProgressFunc func(current, total int64, name string)

// Format identifies an archive container.
type Format int

const (
	FormatUnknown Format = iota
	FormatZip
	FormatTarGz
	FormatTarXz
	FormatTarLz4
	FormatTarZst
)

func (f Format) String() string {
	switch f {
	case FormatZip:
		return "zip"
	case FormatTarGz:
		return "tar.gz"
	case FormatTarXz:
		return "tar.xz"
	case FormatTarLz4:
		return "tar.lz4"
	case FormatTarZst:
		return "tar.zst"
	default:
		return "unknown"
	}
}

// DetectFormat picks the container format from the file name.
func DetectFormat(name string) Format {
	lower := strings.ToLower(name)
	switch {
	case strings.HasSuffix(lower, ".zip"):
		return FormatZip
	case strings.HasSuffix(lower, ".tar.gz"), strings.HasSuffix(lower, ".tgz"):
		return FormatTarGz
	case strings.HasSuffix(lower, ".tar.xz"):
		return FormatTarXz
	case strings.HasSuffix(lower, ".tar.lz4"):
		return FormatTarLz4
	case strings.HasSuffix(lower, ".tar.zst"):
		return FormatTarZst
	}
	return FormatUnknown
}

// Extractor unpacks archives. The zero value is usable.
type Extractor struct {
	Log *zap.Logger
}

// New returns an Extractor that logs to log (nil for none).
func New(log *zap.Logger) *Extractor {
	return &Extractor{Log: log}
}

func (e *Extractor) logger() *zap.Logger {
	if e == nil || e.Log == nil {
		return zap.NewNop()
	}
	return e.Log
}

// Extract empties destDir (creating it if needed) and unpacks archivePath
// into it. Symbolic links are skipped; file modes are preserved.
func (e *Extractor) Extract(ctx context.Context, archivePath, destDir string, progress ProgressFunc) error {
	format := DetectFormat(archivePath)
	if format == FormatUnknown {
		return builderr.WithPath(builderr.ErrExtraction, "detect format", archivePath,
			errors.New("unsupported archive type"))
	}
	if err := fsops.EnsureEmptyDir(destDir); err != nil {
		return builderr.WithPath(builderr.ErrExtraction, "prepare output", destDir, err)
	}

	var (
		n   int
		err error
	)
	if format == FormatZip {
		n, err = extractZip(ctx, archivePath, destDir, progress)
	} else {
		n, err = extractTar(ctx, format, archivePath, destDir, progress)
	}
	if err != nil {
		var be *builderr.Error
		if errors.As(err, &be) {
			return err
		}
		return builderr.WithPath(builderr.ErrExtraction, "extract", archivePath, err)
	}
	e.logger().Debug("archive extracted",
		zap.String("archive", archivePath),
		zap.String("format", format.String()),
		zap.String("dest", destDir),
		zap.Int("entries", n))
	return nil
}

func extractZip(ctx context.Context, archivePath, destDir string, progress ProgressFunc) (int, error) {
	r, err := zip.OpenReader(archivePath)
	if err != nil {
		return 0, fmt.Errorf("open archive: %w", err)
	}
	defer r.Close()

	total := int64(len(r.File))
	for i, f := range r.File {
		if err := ctx.Err(); err != nil {
			return i, err
		}
		if progress != nil {
			progress(int64(i+1), total, f.Name)
		}

		mode := f.Mode()
		if mode&fs.ModeSymlink != 0 {
			continue
		}
		target, err := safeJoin(destDir, f.Name)
		if err != nil {
			return i, err
		}
		if mode.IsDir() {
			if err := os.MkdirAll(target, 0o755); err != nil {
				return i, fmt.Errorf("create dir %s: %w", f.Name, err)
			}
			continue
		}
		if !mode.IsRegular() {
			continue
		}

		rc, err := f.Open()
		if err != nil {
			return i, fmt.Errorf("open entry %s: %w", f.Name, err)
		}
		err = writeFile(target, rc, mode.Perm(), int64(f.UncompressedSize64))
		rc.Close()
		if err != nil {
			return i, fmt.Errorf("write %s: %w", f.Name, err)
		}
	}
	return len(r.File), nil
}

func extractTar(ctx context.Context, format Format, archivePath, destDir string, progress ProgressFunc) (int, error) {
	f, err := os.Open(archivePath)
	if err != nil {
		return 0, fmt.Errorf("open archive: %w", err)
	}
	defer f.Close()

	var src io.Reader
	switch format {
	case FormatTarGz:
		gz, err := gzip.NewReader(f)
		if err != nil {
			return 0, fmt.Errorf("create gzip reader: %w", err)
		}
		defer gz.Close()
		src = gz
	case FormatTarXz:
		xr, err := xz.NewReader(f)
		if err != nil {
			return 0, fmt.Errorf("create xz reader: %w", err)
		}
		src = xr
	case FormatTarLz4:
		src = lz4.NewReader(f)
	case FormatTarZst:
		zr, err := zstd.NewReader(f)
		if err != nil {
			return 0, fmt.Errorf("create zstd reader: %w", err)
		}
		defer zr.Close()
		src = zr
	}

	tr := tar.NewReader(src)
	var count int
	for {
		if err := ctx.Err(); err != nil {
			return count, err
		}
		header, err := tr.Next()
		if err == io.EOF {
			break
		}
		if err != nil {
			return count, fmt.Errorf("read tar header: %w", err)
		}
		count++
		if progress != nil {
			progress(int64(count), -1, header.Name)
		}

		switch header.Typeflag {
		case tar.TypeDir:
			target, err := safeJoin(destDir, header.Name)
			if err != nil {
				return count, err
			}
			if err := os.MkdirAll(target, 0o755); err != nil {
				return count, fmt.Errorf("create dir %s: %w", header.Name, err)
			}
		case tar.TypeReg:
			target, err := safeJoin(destDir, header.Name)
			if err != nil {
				return count, err
			}
			perm := fs.FileMode(header.Mode).Perm()
			if err := writeFile(target, tr, perm, header.Size); err != nil {
				return count, fmt.Errorf("write %s: %w", header.Name, err)
			}
		default:
			// Links and device nodes are not part of an application tree.
			continue
		}
	}
	return count, nil
}

// safeJoin resolves name below destDir and rejects entries that would land
// outside of it.
func safeJoin(destDir, name string) (string, error) {
	rel := filepath.FromSlash(strings.TrimSuffix(name, "/"))
	if rel == "" || rel == "." {
		return filepath.Clean(destDir), nil
	}
	if !filepath.IsLocal(rel) {
		return "", builderr.WithPath(builderr.ErrExtraction, "extract", name,
			errors.New("entry escapes destination"))
	}
	return filepath.Join(destDir, rel), nil
}

func writeFile(target string, r io.Reader, perm fs.FileMode, size int64) error {
	if perm == 0 {
		perm = 0o644
	}
	if err := os.MkdirAll(filepath.Dir(target), 0o755); err != nil {
		return err
	}
	out, err := os.OpenFile(target, os.O_CREATE|os.O_WRONLY|os.O_TRUNC, perm)
	if err != nil {
		return err
	}
	written, err := io.Copy(out, r)
	if err != nil {
		out.Close()
		return err
	}
	if size > 0 && written != size {
		out.Close()
		return fmt.Errorf("wrote %d of %d bytes (disk full?)", written, size)
	}
	if err := out.Close(); err != nil {
		return err
	}
	// OpenFile is subject to the umask.
	return os.Chmod(target, perm)
}
