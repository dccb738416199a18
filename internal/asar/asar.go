// Package asar reads and writes Electron ASAR archives.
//
// An archive is a pickle-framed JSON header followed by the concatenated
// file contents:
//
//	uint32 4 | uint32 headerLen | uint32 headerLen-4 | uint32 jsonLen | json | pad to 4 | data...
//
// All integers are little-endian. File offsets in the header are decimal
// strings relative to the start of the data section.
package asar

import (
	"encoding/binary"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"io/fs"
	"os"
	"path"
	"path/filepath"
	"sort"
	"strconv"
	"strings"
)

// node is one header entry. Directories carry Files (possibly empty);
// files carry Size and Offset.
type node struct {
	Files      map[string]*node `json:"files,omitzero"`
	Size       *int64           `json:"size,omitempty"`
	Offset     string           `json:"offset,omitempty"`
	Executable bool             `json:"executable,omitempty"`
	Unpacked   bool             `json:"unpacked,omitempty"`
	Link       string           `json:"link,omitempty"`

	src string // on-disk source while packing
}

func (n *node) isDir() bool { return n.Files != nil }

func newDir() *node { return &node{Files: map[string]*node{}} }

func align4(n int) int { return (n + 3) &^ 3 }

// Pack writes the contents of srcDir into a new archive at dest.
func Pack(srcDir, dest string) error {
	root, err := scan(srcDir)
	if err != nil {
		return err
	}
	files := assignOffsets(root)

	header, err := json.Marshal(root)
	if err != nil {
		return fmt.Errorf("encode header: %w", err)
	}

	if err := os.MkdirAll(filepath.Dir(dest), 0o755); err != nil {
		return err
	}
	out, err := os.Create(dest)
	if err != nil {
		return err
	}
	if err := writeArchive(out, header, files); err != nil {
		out.Close()
		_ = os.Remove(dest)
		return err
	}
	return out.Close()
}

// scan builds the header tree for srcDir. Symlinked files are stored as
// regular files; symlinked directories are skipped.
func scan(srcDir string) (*node, error) {
	info, err := os.Stat(srcDir)
	if err != nil {
		return nil, err
	}
	if !info.IsDir() {
		return nil, fmt.Errorf("%s: not a directory", srcDir)
	}

	root := newDir()
	type frame struct {
		dir  string
		node *node
	}
	stack := []frame{{srcDir, root}}
	for len(stack) > 0 {
		cur := stack[len(stack)-1]
		stack = stack[:len(stack)-1]

		entries, err := os.ReadDir(cur.dir)
		if err != nil {
			return nil, err
		}
		for _, entry := range entries {
			full := filepath.Join(cur.dir, entry.Name())
			fi, err := os.Stat(full)
			if err != nil {
				if entry.Type()&fs.ModeSymlink != 0 {
					continue
				}
				return nil, err
			}
			switch {
			case fi.IsDir():
				if entry.Type()&fs.ModeSymlink != 0 {
					continue
				}
				child := newDir()
				cur.node.Files[entry.Name()] = child
				stack = append(stack, frame{full, child})
			case fi.Mode().IsRegular():
				size := fi.Size()
				cur.node.Files[entry.Name()] = &node{
					Size:       &size,
					Executable: fi.Mode().Perm()&0o111 != 0,
					src:        full,
				}
			}
		}
	}
	return root, nil
}

// assignOffsets lays files out in header order (names sorted at each level)
// and returns them in that order.
func assignOffsets(root *node) []*node {
	var (
		files  []*node
		offset int64
	)
	stack := []*node{root}
	for len(stack) > 0 {
		n := stack[len(stack)-1]
		stack = stack[:len(stack)-1]
		if !n.isDir() {
			n.Offset = strconv.FormatInt(offset, 10)
			offset += *n.Size
			files = append(files, n)
			continue
		}
		names := sortedNames(n)
		for i := len(names) - 1; i >= 0; i-- {
			stack = append(stack, n.Files[names[i]])
		}
	}
	return files
}

func sortedNames(n *node) []string {
	names := make([]string, 0, len(n.Files))
	for name := range n.Files {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

func writeArchive(w io.Writer, header []byte, files []*node) error {
	padded := align4(len(header))
	headerPickle := 8 + padded

	frame := make([]byte, 16+padded)
	binary.LittleEndian.PutUint32(frame[0:], 4)
	binary.LittleEndian.PutUint32(frame[4:], uint32(headerPickle))
	binary.LittleEndian.PutUint32(frame[8:], uint32(headerPickle-4))
	binary.LittleEndian.PutUint32(frame[12:], uint32(len(header)))
	copy(frame[16:], header)
	if _, err := w.Write(frame); err != nil {
		return err
	}

	for _, f := range files {
		if err := appendFile(w, f); err != nil {
			return err
		}
	}
	return nil
}

func appendFile(w io.Writer, f *node) error {
	in, err := os.Open(f.src)
	if err != nil {
		return err
	}
	defer in.Close()
	n, err := io.Copy(w, io.LimitReader(in, *f.Size))
	if err != nil {
		return fmt.Errorf("pack %s: %w", f.src, err)
	}
	if n != *f.Size {
		return fmt.Errorf("pack %s: file shrank to %d of %d bytes", f.src, n, *f.Size)
	}
	return nil
}

// Archive is an opened ASAR file.
type Archive struct {
	f    *os.File
	base int64
	root *node
}

// Open reads the header of the archive at path.
func Open(path string) (*Archive, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, err
	}
	a, err := readHeader(f)
	if err != nil {
		f.Close()
		return nil, fmt.Errorf("%s: %w", path, err)
	}
	return a, nil
}

var errCorrupt = errors.New("asar: malformed header")

func readHeader(f *os.File) (*Archive, error) {
	var size [8]byte
	if _, err := io.ReadFull(f, size[:]); err != nil {
		return nil, errCorrupt
	}
	if binary.LittleEndian.Uint32(size[0:]) != 4 {
		return nil, errCorrupt
	}
	headerPickle := int64(binary.LittleEndian.Uint32(size[4:]))
	if headerPickle < 8 {
		return nil, errCorrupt
	}
	if fi, err := f.Stat(); err == nil && 8+headerPickle > fi.Size() {
		return nil, errCorrupt
	}

	buf := make([]byte, headerPickle)
	if _, err := io.ReadFull(f, buf); err != nil {
		return nil, errCorrupt
	}
	strLen := int64(binary.LittleEndian.Uint32(buf[4:]))
	if 8+strLen > headerPickle {
		return nil, errCorrupt
	}
	root := &node{}
	if err := json.Unmarshal(buf[8:8+strLen], root); err != nil {
		return nil, fmt.Errorf("%w: %v", errCorrupt, err)
	}
	if !root.isDir() {
		return nil, errCorrupt
	}
	return &Archive{f: f, base: 8 + headerPickle, root: root}, nil
}

// Close releases the underlying file.
func (a *Archive) Close() error { return a.f.Close() }

// List returns the slash-separated paths of all files, sorted.
func (a *Archive) List() []string {
	var out []string
	type frame struct {
		prefix string
		node   *node
	}
	stack := []frame{{"", a.root}}
	for len(stack) > 0 {
		cur := stack[len(stack)-1]
		stack = stack[:len(stack)-1]
		for name, child := range cur.node.Files {
			p := path.Join(cur.prefix, name)
			if child.isDir() {
				stack = append(stack, frame{p, child})
			} else {
				out = append(out, p)
			}
		}
	}
	sort.Strings(out)
	return out
}

func (a *Archive) lookup(name string) (*node, error) {
	n := a.root
	for _, part := range strings.Split(strings.Trim(path.Clean("/"+name), "/"), "/") {
		if part == "" {
			continue
		}
		if !n.isDir() {
			return nil, fs.ErrNotExist
		}
		next, ok := n.Files[part]
		if !ok {
			return nil, fs.ErrNotExist
		}
		n = next
	}
	return n, nil
}

// Stat reports the size and executable bit of the file called name.
func (a *Archive) Stat(name string) (size int64, executable bool, err error) {
	n, err := a.lookup(name)
	if err != nil {
		return 0, false, &fs.PathError{Op: "stat", Path: name, Err: err}
	}
	if n.isDir() || n.Size == nil {
		return 0, false, &fs.PathError{Op: "stat", Path: name, Err: errors.New("is a directory")}
	}
	return *n.Size, n.Executable, nil
}

// ReadFile returns the contents of the file called name.
func (a *Archive) ReadFile(name string) ([]byte, error) {
	n, err := a.lookup(name)
	if err != nil {
		return nil, &fs.PathError{Op: "read", Path: name, Err: err}
	}
	if n.isDir() || n.Size == nil {
		return nil, &fs.PathError{Op: "read", Path: name, Err: errors.New("is a directory")}
	}
	if n.Unpacked {
		return nil, &fs.PathError{Op: "read", Path: name, Err: errors.New("stored outside the archive")}
	}
	off, err := strconv.ParseInt(n.Offset, 10, 64)
	if err != nil {
		return nil, &fs.PathError{Op: "read", Path: name, Err: errCorrupt}
	}
	buf := make([]byte, *n.Size)
	if _, err := a.f.ReadAt(buf, a.base+off); err != nil {
		return nil, &fs.PathError{Op: "read", Path: name, Err: err}
	}
	return buf, nil
}
