// © 2025 Ilya Mateyko. All rights reserved.
// Use of this source code is governed by the ISC
// license that can be found in the LICENSE.md file.

// Package batch applies notice operations to every candidate file in a
// directory tree.
//
// Files are processed one at a time, each to completion, in the order the
// walker lists them. A failure on one file is recorded in its report entry
// and never stops the batch. The tool assumes exclusive access to the tree
// for the duration of a batch: a file modified by someone else between the
// membership test and the mutation is not detected.
package batch

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"go.astrophena.name/copyright/block"
	"go.astrophena.name/copyright/logger"
	"go.astrophena.name/copyright/tree"
)

// Op names a batch operation.
type Op string

// Batch operations.
const (
	OpCreate Op = "create"
	OpDelete Op = "delete"
	OpUpdate Op = "update"
	OpStatus Op = "status"
)

// ErrNoNotice is returned when a Batch is run without a notice.
var ErrNoNotice = errors.New("batch: no notice")

// Batch runs notice operations over the files under Root.
type Batch struct {
	// Root is the directory to process. If empty, the current working
	// directory is used.
	Root string
	// Notice is the canonical notice text.
	Notice string
	// Lister lists the files to process. If nil, a zero [tree.Walker] is
	// used.
	Lister Lister
}

// Lister lists candidate files under a root directory.
type Lister interface {
	List(ctx context.Context, root string) ([]string, error)
}

// Create appends the notice to every file that lacks it.
func (b *Batch) Create(ctx context.Context) (*Report, error) {
	return b.run(ctx, OpCreate, func(e *Entry) {
		e.Result, e.Err = block.Create(e.Path, b.Notice)
		switch {
		case e.Err != nil:
		case e.Result == block.Created:
			e.Before, e.After = Absent, Present
		case e.Result == block.AlreadyPresent:
			e.Before, e.After = Present, Present
		}
	})
}

// Delete removes the notice from every file that has it. Membership is
// tested before and after the removal.
func (b *Batch) Delete(ctx context.Context) (*Report, error) {
	return b.run(ctx, OpDelete, func(e *Entry) {
		if e.Before, e.Err = b.status(e.Path); e.Err != nil {
			return
		}
		if e.Before == Absent {
			e.Result, e.After = block.NotPresent, Absent
			return
		}
		if e.Result, e.Err = block.Delete(e.Path, b.Notice); e.Err != nil {
			return
		}
		e.After, e.Err = b.status(e.Path)
	})
}

// Update replaces old with the notice in every file.
func (b *Batch) Update(ctx context.Context, old string) (*Report, error) {
	if old == "" {
		return nil, fmt.Errorf("batch: %w", block.ErrEmptyNotice)
	}
	return b.run(ctx, OpUpdate, func(e *Entry) {
		if e.Before, e.Err = b.status(e.Path); e.Err != nil {
			return
		}
		if e.Result, e.Err = block.Update(e.Path, old, b.Notice); e.Err != nil {
			return
		}
		e.After, e.Err = b.status(e.Path)
	})
}

// Status reports whether each file contains the notice. It doesn't modify
// any file.
func (b *Batch) Status(ctx context.Context) (*Report, error) {
	return b.run(ctx, OpStatus, func(e *Entry) {
		e.Before, e.Err = b.status(e.Path)
		e.After = e.Before
	})
}

func (b *Batch) status(path string) (Status, error) {
	ok, err := block.Has(path, b.Notice)
	if err != nil {
		return Unknown, err
	}
	if ok {
		return Present, nil
	}
	return Absent, nil
}

// run lists files and calls process for each of them. The returned error is
// only non-nil if files could not be listed or ctx was canceled; per-file
// errors are recorded in the report.
func (b *Batch) run(ctx context.Context, op Op, process func(*Entry)) (*Report, error) {
	if b.Notice == "" {
		return nil, ErrNoNotice
	}
	root := b.Root
	if root == "" {
		root = "."
	}
	var l Lister = new(tree.Walker)
	if b.Lister != nil {
		l = b.Lister
	}

	start := time.Now()
	logger.Debug(ctx, "listing files", slog.String("root", root), slog.String("op", string(op)))
	files, err := l.List(ctx, root)
	if err != nil {
		return nil, fmt.Errorf("listing files in %s: %w", root, err)
	}

	rep := &Report{Op: op, Root: root, Entries: make([]Entry, 0, len(files))}
	for _, path := range files {
		if err := ctx.Err(); err != nil {
			return rep, err
		}
		e := Entry{Path: path}
		process(&e)
		if e.Err != nil {
			logger.Warn(ctx, "processing failed", slog.String("path", path), slog.Any("err", e.Err))
		} else {
			logger.Debug(ctx, "processed", slog.String("path", path), slog.String("result", e.Result.String()))
		}
		rep.Entries = append(rep.Entries, e)
	}
	logger.Debug(ctx, "batch finished",
		slog.String("op", string(op)),
		slog.Int("files", len(rep.Entries)),
		slog.Int("failed", rep.Failed()),
		slog.Duration("took", time.Since(start)),
	)
	return rep, nil
}
