// Package fsbox executes validated file operations against a sandboxed
// root directory.
//
// Every path argument is resolved against a session's current working
// directory and the fixed root; any resolution that would leave the
// root is rejected before the filesystem is touched. The package does
// no chunking and keeps no session state — it is a pure, synchronous
// I/O boundary.
package fsbox

import (
	"fmt"
	"io"
	"io/fs"
	"os"
	"path"
	"path/filepath"
	"sort"
	"strings"

	"fileshell/internal/errors"
	"fileshell/internal/proto"
)

// Box is a filesystem adapter rooted at a fixed sandbox directory.
// Working directories are slash-separated paths relative to the root;
// "" denotes the root itself.
type Box struct {
	root string // absolute, cleaned
}

// New verifies that root exists and is a directory, and returns an
// adapter rooted there.
func New(root string) (*Box, error) {
	abs, err := filepath.Abs(root)
	if err != nil {
		return nil, fmt.Errorf("resolve root %q: %w", root, err)
	}
	fi, err := os.Stat(abs)
	if err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			return nil, fmt.Errorf("root %q: %w", root, errors.ErrNotFound)
		}
		return nil, fmt.Errorf("stat root %q: %w", root, err)
	}
	if !fi.IsDir() {
		return nil, fmt.Errorf("root %q: %w", root, errors.ErrNotADirectory)
	}
	return &Box{root: filepath.Clean(abs)}, nil
}

// Root returns the absolute sandbox root.
func (b *Box) Root() string { return b.root }

// resolve joins cwd and target lexically and rejects anything that
// would land outside the root. It returns the new root-relative path
// and its on-disk location. The check is purely lexical, so it runs
// before any syscall.
func (b *Box) resolve(cwd, target string) (rel, abs string, err error) {
	t := filepath.ToSlash(target)
	if path.IsAbs(t) || strings.Contains(t, "\x00") {
		return "", "", errors.ErrPathEscape
	}
	joined := path.Join(cwd, t) // Clean is implied
	if joined == ".." || strings.HasPrefix(joined, "../") {
		return "", "", errors.ErrPathEscape
	}
	if joined == "." {
		joined = ""
	}
	return joined, filepath.Join(b.root, filepath.FromSlash(joined)), nil
}

// mapError converts an os error into the adapter's typed failures.
func mapError(err error) error {
	switch {
	case err == nil:
		return nil
	case errors.Is(err, fs.ErrNotExist):
		return errors.ErrNotFound
	case errors.Is(err, fs.ErrExist):
		return errors.ErrAlreadyExists
	case errors.Is(err, fs.ErrPermission):
		return errors.ErrPermissionDenied
	default:
		return err
	}
}

// List returns the entries of the session's current directory, sorted
// by name with directories flagged.
func (b *Box) List(cwd string) ([]proto.DirEntry, error) {
	_, abs, err := b.resolve(cwd, ".")
	if err != nil {
		return nil, err
	}
	entries, err := os.ReadDir(abs)
	if err != nil {
		return nil, mapError(err)
	}
	out := make([]proto.DirEntry, 0, len(entries))
	for _, e := range entries {
		out = append(out, proto.DirEntry{Name: e.Name(), IsDir: e.IsDir()})
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Name < out[j].Name })
	return out, nil
}

// ChangeDir resolves target against cwd and returns the new working
// directory. The target must exist and be a directory.
func (b *Box) ChangeDir(cwd, target string) (string, error) {
	rel, abs, err := b.resolve(cwd, target)
	if err != nil {
		return "", err
	}
	fi, err := os.Stat(abs)
	if err != nil {
		return "", mapError(err)
	}
	if !fi.IsDir() {
		return "", errors.ErrNotADirectory
	}
	return rel, nil
}

// Up returns cwd's parent. At the root it fails rather than escape.
func (b *Box) Up(cwd string) (string, error) {
	if cwd == "" {
		return "", fmt.Errorf("already at root: %w", errors.ErrPathEscape)
	}
	parent := path.Dir(cwd)
	if parent == "." || parent == "/" {
		parent = ""
	}
	return parent, nil
}

// MakeDir creates a single directory named name under cwd.
func (b *Box) MakeDir(cwd, name string) error {
	_, abs, err := b.resolve(cwd, name)
	if err != nil {
		return err
	}
	return mapError(os.Mkdir(abs, 0o755))
}

// Copy duplicates the file at src to dst, both resolved against cwd,
// and reports the number of bytes copied. An existing dst is
// truncated.
func (b *Box) Copy(cwd, src, dst string) (int64, error) {
	_, srcAbs, err := b.resolve(cwd, src)
	if err != nil {
		return 0, err
	}
	_, dstAbs, err := b.resolve(cwd, dst)
	if err != nil {
		return 0, err
	}

	in, err := os.Open(srcAbs)
	if err != nil {
		return 0, mapError(err)
	}
	defer in.Close()

	fi, err := in.Stat()
	if err != nil {
		return 0, mapError(err)
	}
	if fi.IsDir() {
		return 0, fmt.Errorf("%q is a directory", src)
	}

	out, err := os.OpenFile(dstAbs, os.O_CREATE|os.O_WRONLY|os.O_TRUNC, 0o644)
	if err != nil {
		return 0, mapError(err)
	}

	n, err := io.Copy(out, in)
	if err != nil {
		out.Close()
		return n, err
	}
	if err := out.Sync(); err != nil {
		out.Close()
		return n, err
	}
	return n, out.Close()
}

// OpenForWrite creates the upload destination dir/name under cwd and
// returns a writable handle. Missing intermediate directories are
// created.
func (b *Box) OpenForWrite(cwd, dir, name string) (*os.File, error) {
	if name == "" || strings.ContainsAny(name, "/\\") {
		return nil, fmt.Errorf("invalid file name %q", name)
	}
	target := name
	if dir != "" && dir != "." {
		target = path.Join(dir, name)
	}
	_, abs, err := b.resolve(cwd, target)
	if err != nil {
		return nil, err
	}
	if err := os.MkdirAll(filepath.Dir(abs), 0o755); err != nil {
		return nil, mapError(err)
	}
	f, err := os.OpenFile(abs, os.O_CREATE|os.O_WRONLY|os.O_TRUNC, 0o644)
	if err != nil {
		return nil, mapError(err)
	}
	return f, nil
}

// OpenForRead opens the file at p (resolved against cwd) and returns
// the handle together with its base name and size.
func (b *Box) OpenForRead(cwd, p string) (*os.File, string, uint64, error) {
	rel, abs, err := b.resolve(cwd, p)
	if err != nil {
		return nil, "", 0, err
	}
	f, err := os.Open(abs)
	if err != nil {
		return nil, "", 0, mapError(err)
	}
	fi, err := f.Stat()
	if err != nil {
		f.Close()
		return nil, "", 0, mapError(err)
	}
	if fi.IsDir() {
		f.Close()
		return nil, "", 0, fmt.Errorf("%q is a directory", p)
	}
	name := path.Base(rel)
	return f, name, uint64(fi.Size()), nil
}
