// © 2025 Ilya Mateyko. All rights reserved.
// Use of this source code is governed by the ISC
// license that can be found in the LICENSE.md file.

// Package tree lists candidate files in a directory tree.
package tree

import (
	"context"
	"errors"
	"fmt"
	"io/fs"
	"log/slog"
	"os"
	"path/filepath"

	"github.com/bmatcuk/doublestar/v4"
	"github.com/go4org/hashtriemap"

	"go.astrophena.name/copyright/logger"
)

// DefaultInclude matches Python source files at any depth.
const DefaultInclude = "**/*.py"

// ErrBadPattern is returned for malformed include or exclude patterns.
var ErrBadPattern = errors.New("tree: bad pattern")

// Walker lists regular files in a directory tree.
//
// Patterns use doublestar syntax and are matched against slash-separated
// paths relative to the root. A directory matched by an exclude pattern is
// not descended into.
//
// Symbolic links are skipped unless FollowSymlinks is set. When following,
// each real directory is entered through a symlink at most once, so cycles
// terminate, and a file reachable through several paths is listed once.
type Walker struct {
	// Include lists patterns of files to list. If empty, DefaultInclude is
	// used.
	Include []string
	// Exclude lists patterns of files and directories to skip.
	Exclude []string
	// FollowSymlinks makes the walker descend into symlinked directories and
	// list symlinked files.
	FollowSymlinks bool
}

// List returns files under root matching the walker's patterns, in lexical
// order. Returned paths are root joined with the path relative to it.
//
// Unreadable directories below root are logged and skipped.
func (w *Walker) List(ctx context.Context, root string) ([]string, error) {
	l := &lister{
		ctx:     ctx,
		root:    root,
		include: w.Include,
		exclude: w.Exclude,
		follow:  w.FollowSymlinks,
	}
	if len(l.include) == 0 {
		l.include = []string{DefaultInclude}
	}
	for _, patterns := range [][]string{l.include, l.exclude} {
		for _, p := range patterns {
			if !doublestar.ValidatePattern(p) {
				return nil, fmt.Errorf("%w: %q", ErrBadPattern, p)
			}
		}
	}

	fi, err := os.Stat(root)
	if err != nil {
		return nil, err
	}
	if !fi.IsDir() {
		return nil, fmt.Errorf("tree: %s is not a directory", root)
	}

	if err := l.walk(root, root); err != nil {
		return nil, err
	}
	return l.files, nil
}

type lister struct {
	ctx              context.Context
	root             string
	include, exclude []string
	follow           bool

	dirs  hashtriemap.HashTrieMap[string, struct{}] // real paths of walked directories
	seen  hashtriemap.HashTrieMap[string, struct{}] // real paths of listed files
	files []string
}

// walk lists files in dir, naming them as if dir was located at base.
func (l *lister) walk(dir, base string) error {
	return filepath.WalkDir(dir, func(path string, d fs.DirEntry, err error) error {
		if cerr := l.ctx.Err(); cerr != nil {
			return cerr
		}

		name := base
		if path != dir {
			sub, rerr := filepath.Rel(dir, path)
			if rerr != nil {
				return rerr
			}
			name = filepath.Join(base, sub)
		}
		rel := l.rel(name)

		if err != nil {
			if path == dir {
				return err
			}
			logger.Warn(l.ctx, "skipping unreadable path", slog.String("path", name), slog.Any("err", err))
			if d != nil && d.IsDir() {
				return fs.SkipDir
			}
			return nil
		}

		switch {
		case d.IsDir():
			if path != dir && l.excluded(rel) {
				return fs.SkipDir
			}
			if l.follow {
				if real, err := filepath.EvalSymlinks(path); err == nil {
					l.dirs.LoadOrStore(real, struct{}{})
				}
			}
		case d.Type()&fs.ModeSymlink != 0:
			if !l.follow {
				logger.Debug(l.ctx, "skipping symlink", slog.String("path", name))
				return nil
			}
			return l.symlink(path, name, rel)
		case d.Type().IsRegular():
			l.add(path, name, rel)
		}
		return nil
	})
}

func (l *lister) symlink(path, name, rel string) error {
	fi, err := os.Stat(path)
	if err != nil {
		logger.Warn(l.ctx, "skipping broken symlink", slog.String("path", name), slog.Any("err", err))
		return nil
	}
	switch {
	case fi.Mode().IsRegular():
		l.add(path, name, rel)
	case fi.IsDir():
		if l.excluded(rel) {
			return nil
		}
		real, err := filepath.EvalSymlinks(path)
		if err != nil {
			logger.Warn(l.ctx, "skipping unresolvable symlink", slog.String("path", name), slog.Any("err", err))
			return nil
		}
		if _, loaded := l.dirs.LoadOrStore(real, struct{}{}); loaded {
			logger.Debug(l.ctx, "skipping already visited directory", slog.String("path", name), slog.String("target", real))
			return nil
		}
		if err := l.walk(real, name); err != nil {
			if cerr := l.ctx.Err(); cerr != nil {
				return cerr
			}
			logger.Warn(l.ctx, "skipping unreadable directory", slog.String("path", name), slog.Any("err", err))
		}
	}
	return nil
}

func (l *lister) add(path, name, rel string) {
	if !l.matches(rel) {
		return
	}
	if l.follow {
		real, err := filepath.EvalSymlinks(path)
		if err == nil {
			if _, loaded := l.seen.LoadOrStore(real, struct{}{}); loaded {
				return
			}
		}
	}
	l.files = append(l.files, name)
}

func (l *lister) rel(name string) string {
	rel, err := filepath.Rel(l.root, name)
	if err != nil {
		return filepath.ToSlash(name)
	}
	return filepath.ToSlash(rel)
}

func (l *lister) matches(rel string) bool {
	return matchAny(l.include, rel) && !l.excluded(rel)
}

func (l *lister) excluded(rel string) bool { return matchAny(l.exclude, rel) }

func matchAny(patterns []string, name string) bool {
	for _, p := range patterns {
		if ok, err := doublestar.Match(p, name); err == nil && ok {
			return true
		}
	}
	return false
}
