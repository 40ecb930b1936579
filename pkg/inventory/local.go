package inventory

import (
	"context"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"runtime"

	"golang.org/x/sync/errgroup"

	"github.com/yuya-takeyama/site-sync/pkg/syncerr"
)

// LocalOptions tune BuildLocal.
type LocalOptions struct {
	Excludes Excludes
	// Workers bounds concurrent file hashing. Zero means GOMAXPROCS.
	Workers int
}

type localFile struct {
	key  string
	path string
	size int64
}

// BuildLocal walks root and returns an inventory of every regular file below
// it. A symlinked root is followed; symlinks below it are skipped. Any unreadable path fails the
// whole build with an IOError.
func BuildLocal(ctx context.Context, root string, opts LocalOptions) (Inventory, error) {
	info, err := os.Stat(root)
	if err != nil {
		return Inventory{}, &syncerr.IOError{Path: root, Err: err}
	}
	if !info.IsDir() {
		return Inventory{}, &syncerr.IOError{Path: root, Err: fmt.Errorf("not a directory")}
	}

	// WalkDir does not descend into a symlinked root.
	resolved, err := filepath.EvalSymlinks(root)
	if err != nil {
		return Inventory{}, &syncerr.IOError{Path: root, Err: err}
	}

	files, err := walk(resolved, opts.Excludes)
	if err != nil {
		return Inventory{}, err
	}

	workers := opts.Workers
	if workers <= 0 {
		workers = runtime.GOMAXPROCS(0)
	}

	objects := make([]Object, len(files))
	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(workers)
	for i, f := range files {
		g.Go(func() error {
			if err := gctx.Err(); err != nil {
				return err
			}
			digest, err := FileDigest(f.path)
			if err != nil {
				return &syncerr.IOError{Path: f.path, Err: err}
			}
			objects[i] = Object{Key: f.key, Size: f.size, Digest: digest}
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return Inventory{}, err
	}

	return New(objects), nil
}

func walk(root string, excludes Excludes) ([]localFile, error) {
	var files []localFile

	err := filepath.WalkDir(root, func(path string, d fs.DirEntry, err error) error {
		if err != nil {
			return &syncerr.IOError{Path: path, Err: err}
		}
		if path == root {
			return nil
		}

		relPath, err := filepath.Rel(root, path)
		if err != nil {
			return &syncerr.IOError{Path: path, Err: err}
		}
		key := filepath.ToSlash(relPath)

		if d.IsDir() {
			if excludes.MatchDir(key) {
				return fs.SkipDir
			}
			return nil
		}
		if !d.Type().IsRegular() || excludes.Match(key) {
			return nil
		}

		info, err := d.Info()
		if err != nil {
			return &syncerr.IOError{Path: path, Err: err}
		}

		files = append(files, localFile{key: key, path: path, size: info.Size()})
		return nil
	})
	if err != nil {
		return nil, err
	}

	return files, nil
}

// LocalPath maps key back to a path under root.
func LocalPath(root, key string) string {
	return filepath.Join(root, filepath.FromSlash(key))
}
