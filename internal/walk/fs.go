// Package walk expands the paths of sequence files given on a command line.
package walk

import (
	"context"
	"fmt"
	"io"
	"io/fs"
	"iter"
	"os"
	"path/filepath"

	"github.com/CZERTAINLY/blastweb/internal/seqfile"
)

// Entry is a sequence file found by Sequences
type Entry interface {
	Path() string
	Open() (io.ReadCloser, error)
	Stat() (fs.FileInfo, error)
}

// Sequences yields an Entry for every path. A regular file is yielded as it
// is, so its extension is checked by the caller. A directory is walked
// recursively and only files with a sequence extension are yielded, in
// lexical order. Symlinks are not followed.
func Sequences(ctx context.Context, paths ...string) iter.Seq2[Entry, error] {
	return func(yield func(Entry, error) bool) {
		for _, path := range paths {
			if ctx.Err() != nil {
				return
			}
			info, err := os.Stat(path)
			if err != nil {
				if !yield(fileEntry{path: path, infoErr: err}, err) {
					return
				}
				continue
			}
			if !info.IsDir() {
				if !yield(fileEntry{path: path, info: info}, nil) {
					return
				}
				continue
			}
			if !walkDir(ctx, path, yield) {
				return
			}
		}
	}
}

func walkDir(ctx context.Context, dir string, yield func(Entry, error) bool) bool {
	root, err := os.OpenRoot(dir)
	if err != nil {
		return yield(fileEntry{path: dir, infoErr: err}, fmt.Errorf("opening directory: %w", err))
	}
	defer func() {
		_ = root.Close()
	}()
	for entry, err := range FS(ctx, root.FS(), dir) {
		if err == nil && !seqfile.AllowedExt(entry.Path()) {
			continue
		}
		if !yield(entry, err) {
			return false
		}
	}
	return true
}

// FS recursively walks the filesystem rooted at root and return a handle for every regular file found.
// Or an error if file information retrieval fails.
// Each Entry's Path() is prefixed with name of a filesystem. It does not follow symlinks.
func FS(ctx context.Context, root fs.FS, name string) iter.Seq2[Entry, error] {
	if root == nil {
		panic("root is nil")
	}

	return func(yield func(Entry, error) bool) {
		fn := func(path string, d fs.DirEntry, err error) error {
			if ctx.Err() != nil {
				return fs.SkipAll
			}
			var entry = fsEntry{
				root:    root,
				abspath: filepath.Join(name, path),
				path:    path,
			}
			var yieldErr error
			if err != nil {
				yieldErr = err
			} else {
				info, err := d.Info()
				if err != nil {
					entry.infoErr = err
					yieldErr = err
				} else {
					if !info.Mode().IsRegular() {
						return nil
					}
					entry.info = info
				}
			}

			if !yield(entry, yieldErr) {
				return fs.SkipAll
			}
			return nil
		}
		_ = fs.WalkDir(root, ".", fn)
	}
}

// fsEntry implements Entry for a filesystem
// it uses root.Open to open the file
type fsEntry struct {
	root    fs.FS
	abspath string
	path    string
	info    fs.FileInfo
	infoErr error
}

func (e fsEntry) Path() string {
	return e.abspath
}

func (e fsEntry) Open() (io.ReadCloser, error) {
	if e.infoErr != nil {
		return nil, e.infoErr
	}
	return e.root.Open(e.path)
}

func (e fsEntry) Stat() (fs.FileInfo, error) {
	return e.info, e.infoErr
}

// fileEntry is a path given directly
type fileEntry struct {
	path    string
	info    fs.FileInfo
	infoErr error
}

func (e fileEntry) Path() string {
	return e.path
}

func (e fileEntry) Open() (io.ReadCloser, error) {
	if e.infoErr != nil {
		return nil, e.infoErr
	}
	return os.Open(e.path)
}

func (e fileEntry) Stat() (fs.FileInfo, error) {
	return e.info, e.infoErr
}
