package cache

import (
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"io/fs"
	"os"
	"path/filepath"
	"sort"
	"time"

	"github.com/cespare/xxhash/v2"
)

const indexFileName = "aebs-cache.json"

// Entry describes one archive recorded in the cache index.
type Entry struct {
	Name     string    `json:"name" yaml:"name"`
	Size     int64     `json:"size" yaml:"size"`
	XXHash   string    `json:"xxhash" yaml:"xxhash"`
	StoredAt time.Time `json:"stored_at" yaml:"stored_at"`
}

// Index is the cache directory's record of downloaded archives.
type Index struct {
	dir     string
	Entries map[string]Entry `json:"entries"`
}

// Status is the verification outcome for one entry.
type Status struct {
	Entry
	Present bool   `json:"present" yaml:"present"`
	OK      bool   `json:"ok" yaml:"ok"`
	Reason  string `json:"reason,omitempty" yaml:"reason,omitempty"`
}

// LoadIndex reads the index of cacheDir. A missing index is empty.
func LoadIndex(cacheDir string) (*Index, error) {
	idx := &Index{dir: cacheDir, Entries: map[string]Entry{}}
	data, err := os.ReadFile(filepath.Join(cacheDir, indexFileName))
	if errors.Is(err, fs.ErrNotExist) {
		return idx, nil
	}
	if err != nil {
		return nil, err
	}
	if err := json.Unmarshal(data, idx); err != nil {
		return nil, fmt.Errorf("parse cache index: %w", err)
	}
	if idx.Entries == nil {
		idx.Entries = map[string]Entry{}
	}
	return idx, nil
}

// Save writes the index back to the cache directory.
func (idx *Index) Save() error {
	data, err := json.MarshalIndent(idx, "", "  ")
	if err != nil {
		return err
	}
	return os.WriteFile(filepath.Join(idx.dir, indexFileName), data, 0o644)
}

// Record hashes the archive called name and stores its fingerprint.
func (idx *Index) Record(name string) (Entry, error) {
	size, sum, err := fingerprint(filepath.Join(idx.dir, name))
	if err != nil {
		return Entry{}, err
	}
	e := Entry{Name: name, Size: size, XXHash: sum, StoredAt: time.Now().UTC()}
	idx.Entries[name] = e
	return e, nil
}

// List returns the recorded entries sorted by name.
func (idx *Index) List() []Entry {
	out := make([]Entry, 0, len(idx.Entries))
	for _, e := range idx.Entries {
		out = append(out, e)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Name < out[j].Name })
	return out
}

// Verify recomputes the fingerprint of every recorded archive.
func (idx *Index) Verify() []Status {
	var out []Status
	for _, e := range idx.List() {
		st := Status{Entry: e}
		size, sum, err := fingerprint(filepath.Join(idx.dir, e.Name))
		switch {
		case errors.Is(err, fs.ErrNotExist):
			st.Reason = "missing"
		case err != nil:
			st.Present = true
			st.Reason = err.Error()
		case size != e.Size:
			st.Present = true
			st.Reason = fmt.Sprintf("size %d, recorded %d", size, e.Size)
		case sum != e.XXHash:
			st.Present = true
			st.Reason = "content changed"
		default:
			st.Present = true
			st.OK = true
		}
		out = append(out, st)
	}
	return out
}

func fingerprint(path string) (int64, string, error) {
	f, err := os.Open(path)
	if err != nil {
		return 0, "", err
	}
	defer f.Close()

	h := xxhash.New()
	n, err := io.Copy(h, f)
	if err != nil {
		return 0, "", err
	}
	return n, fmt.Sprintf("%016x", h.Sum64()), nil
}
