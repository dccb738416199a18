// Package cache decides where a runtime archive lives and whether an
// existing copy can be reused instead of downloading it again.
package cache

import (
	"fmt"
	"os"
	"path/filepath"

	"github.com/shirou/gopsutil/v3/disk"

	"github.com/aebs/aebs/internal/builderr"
)

// Resolution is the outcome of Resolve.
type Resolution struct {
	Path   string // where the archive is (or will be) stored
	Reuse  bool   // an archive is already present at Path
	Cached bool   // Path lives in the shared cache directory
}

// Resolve picks the storage location for assetName. A usable cacheDir wins;
// otherwise the project's buildRoot is used and created on demand.
//
// Presence of the file is the only validity check. Cached archives are not
// re-hashed; see Index.Verify for an explicit integrity check.
func Resolve(cacheDir, buildRoot, assetName string) (Resolution, error) {
	if cacheDir != "" {
		if info, err := os.Stat(cacheDir); err == nil && info.IsDir() {
			p := filepath.Join(cacheDir, assetName)
			return Resolution{Path: p, Reuse: fileExists(p), Cached: true}, nil
		}
	}

	if err := os.MkdirAll(buildRoot, 0o755); err != nil {
		return Resolution{}, builderr.WithPath(builderr.ErrDestinationUnavailable, "create build directory", buildRoot, err)
	}
	p := filepath.Join(buildRoot, assetName)
	if info, err := os.Stat(filepath.Dir(p)); err != nil || !info.IsDir() {
		return Resolution{}, builderr.WithPath(builderr.ErrDestinationUnavailable, "resolve download directory", filepath.Dir(p), err)
	}
	return Resolution{Path: p, Reuse: fileExists(p)}, nil
}

func fileExists(p string) bool {
	info, err := os.Stat(p)
	return err == nil && info.Mode().IsRegular()
}

// usageFunc is swapped in tests.
var usageFunc = disk.Usage

// CheckFreeSpace fails when the volume holding dir has less than need bytes
// available. A zero or unknown size is not checked.
func CheckFreeSpace(dir string, need int64) error {
	if need <= 0 {
		return nil
	}
	stat, err := usageFunc(dir)
	if err != nil {
		// Not every filesystem reports usage; the download itself will fail
		// if space runs out.
		return nil
	}
	if stat.Free < uint64(need) {
		return builderr.WithPath(builderr.ErrDestinationUnavailable, "check free space", dir,
			fmt.Errorf("need %d bytes, %d available", need, stat.Free))
	}
	return nil
}
