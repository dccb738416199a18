// Package fsops holds the directory primitives shared by the bundler, the
// extractor and the rebranding strategies. Walks use an explicit stack so
// deep dependency trees do not grow the goroutine stack.
package fsops

import (
	"errors"
	"fmt"
	"io"
	"io/fs"
	"os"
	"path/filepath"
	"sort"
)

// Exists reports whether path exists (following symlinks).
func Exists(path string) bool {
	_, err := os.Stat(path)
	return err == nil
}

// IsDir reports whether path exists and is a directory.
func IsDir(path string) bool {
	info, err := os.Stat(path)
	return err == nil && info.IsDir()
}

type copyJob struct {
	src  string
	dest string
}

// CopyTree mirrors src into dest. Subtrees whose cleaned path appears in
// ignore are skipped. dest is created if absent; files are hard-linked when
// possible and copied otherwise. Symlinks are resolved and their targets
// copied; dangling links are skipped.
func CopyTree(src, dest string, ignore []string) error {
	skip := make(map[string]struct{}, len(ignore))
	for _, p := range ignore {
		skip[filepath.Clean(p)] = struct{}{}
	}

	info, err := os.Stat(src)
	if err != nil {
		return fmt.Errorf("copy %s: %w", src, err)
	}
	if !info.IsDir() {
		if err := os.MkdirAll(filepath.Dir(dest), 0o755); err != nil {
			return err
		}
		return LinkOrCopy(src, dest)
	}

	visited := map[string]struct{}{}
	stack := []copyJob{{src: filepath.Clean(src), dest: dest}}
	for len(stack) > 0 {
		job := stack[len(stack)-1]
		stack = stack[:len(stack)-1]

		if _, ok := skip[job.src]; ok {
			continue
		}
		real, err := filepath.EvalSymlinks(job.src)
		if err != nil {
			return fmt.Errorf("resolve %s: %w", job.src, err)
		}
		if _, seen := visited[real]; seen {
			continue
		}
		visited[real] = struct{}{}

		dirInfo, err := os.Stat(job.src)
		if err != nil {
			return err
		}
		if err := os.MkdirAll(job.dest, dirInfo.Mode().Perm()|0o700); err != nil {
			return fmt.Errorf("create %s: %w", job.dest, err)
		}

		entries, err := os.ReadDir(job.src)
		if err != nil {
			return fmt.Errorf("read %s: %w", job.src, err)
		}
		for _, entry := range entries {
			from := filepath.Join(job.src, entry.Name())
			to := filepath.Join(job.dest, entry.Name())
			if _, ok := skip[from]; ok {
				continue
			}

			target, err := os.Stat(from)
			if err != nil {
				if entry.Type()&fs.ModeSymlink != 0 && errors.Is(err, fs.ErrNotExist) {
					continue
				}
				return err
			}
			if target.IsDir() {
				stack = append(stack, copyJob{src: from, dest: to})
				continue
			}
			if !target.Mode().IsRegular() {
				continue
			}
			if entry.Type()&fs.ModeSymlink != 0 {
				if err := copyFile(from, to, target.Mode().Perm()); err != nil {
					return err
				}
				continue
			}
			if err := LinkOrCopy(from, to); err != nil {
				return err
			}
		}
	}
	return nil
}

// LinkOrCopy hard-links src to dst, falling back to a byte copy when linking
// is not possible (different volumes, unsupported filesystem).
func LinkOrCopy(src, dst string) error {
	if err := os.Link(src, dst); err == nil {
		return nil
	}
	info, err := os.Stat(src)
	if err != nil {
		return err
	}
	return copyFile(src, dst, info.Mode().Perm())
}

func copyFile(src, dst string, mode fs.FileMode) error {
	in, err := os.Open(src)
	if err != nil {
		return err
	}
	defer in.Close()

	out, err := os.OpenFile(dst, os.O_CREATE|os.O_WRONLY|os.O_TRUNC, mode)
	if err != nil {
		return err
	}
	if _, err := io.Copy(out, in); err != nil {
		out.Close()
		return fmt.Errorf("copy %s: %w", src, err)
	}
	return out.Close()
}

// EmptyTree deletes everything below path but keeps path itself. Absent
// paths are a no-op.
func EmptyTree(path string) error {
	entries, err := os.ReadDir(path)
	if errors.Is(err, fs.ErrNotExist) {
		return nil
	}
	if err != nil {
		return err
	}
	for _, entry := range entries {
		if err := os.RemoveAll(filepath.Join(path, entry.Name())); err != nil {
			return fmt.Errorf("remove %s: %w", entry.Name(), err)
		}
	}
	return nil
}

// RemoveTree empties path and then removes it.
func RemoveTree(path string) error {
	if err := EmptyTree(path); err != nil {
		return err
	}
	if err := os.Remove(path); err != nil && !errors.Is(err, fs.ErrNotExist) {
		return err
	}
	return nil
}

// EnsureEmptyDir creates path if needed and removes any previous content.
func EnsureEmptyDir(path string) error {
	if err := os.MkdirAll(path, 0o755); err != nil {
		return err
	}
	return EmptyTree(path)
}

// Walk returns the slash-separated paths of all regular files below root,
// relative to root, in lexical order.
func Walk(root string) ([]string, error) {
	var files []string
	stack := []string{""}
	for len(stack) > 0 {
		rel := stack[len(stack)-1]
		stack = stack[:len(stack)-1]

		entries, err := os.ReadDir(filepath.Join(root, filepath.FromSlash(rel)))
		if err != nil {
			return nil, err
		}
		for _, entry := range entries {
			child := entry.Name()
			if rel != "" {
				child = rel + "/" + entry.Name()
			}
			switch {
			case entry.IsDir():
				stack = append(stack, child)
			case entry.Type().IsRegular():
				files = append(files, child)
			}
		}
	}
	sort.Strings(files)
	return files, nil
}

// Rename moves from to to and refuses to replace an existing target.
func Rename(from, to string) error {
	if _, err := os.Lstat(to); err == nil {
		return fmt.Errorf("%s: %w", to, fs.ErrExist)
	}
	return os.Rename(from, to)
}
