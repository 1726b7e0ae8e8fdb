// © 2025 Ilya Mateyko. All rights reserved.
// Use of this source code is governed by the ISC
// license that can be found in the LICENSE.md file.

// Package block detects, inserts, updates and removes a notice text block
// in a single file.
//
// The notice is treated as an opaque byte sequence: membership is an exact
// substring test and mutations are plain substring replacements, independent
// of the syntax of the host file.
//
// Every mutation is a read-modify-write. The new content is written to a
// temporary file in the same directory which then replaces the original in
// one rename, so a failed mutation leaves the original file untouched and no
// temporary file behind. Symbolic links are written through: the link is
// kept and its target gets the new content.
package block

import (
	"bytes"
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"

	"github.com/natefinch/atomic"
)

// ErrEmptyNotice is returned when an operation is given an empty notice.
var ErrEmptyNotice = errors.New("block: empty notice")

// Result is the outcome of a mutation.
type Result int

const (
	// None means no mutation was attempted.
	None Result = iota
	// Created means the notice was appended to the file.
	Created
	// AlreadyPresent means the file already had the notice and was not
	// modified.
	AlreadyPresent
	// Updated means at least one occurrence of the old text was replaced.
	Updated
	// NoOpIdentical means old and new text are identical, so the file was
	// not touched.
	NoOpIdentical
	// Deleted means the notice was removed from the file.
	Deleted
	// NotPresent means the text to replace or remove wasn't found and the
	// file was not modified.
	NotPresent
)

var resultNames = [...]string{
	None:           "none",
	Created:        "created",
	AlreadyPresent: "already present",
	Updated:        "updated",
	NoOpIdentical:  "identical",
	Deleted:        "deleted",
	NotPresent:     "not present",
}

func (r Result) String() string {
	if r < 0 || int(r) >= len(resultNames) {
		return fmt.Sprintf("Result(%d)", int(r))
	}
	return resultNames[r]
}

// Changed reports whether r means the file was rewritten.
func (r Result) Changed() bool {
	return r == Created || r == Updated || r == Deleted
}

// Separator is placed between the existing content and an appended notice.
const Separator = "\n\n"

// Block returns the exact text that [Create] appends for notice.
func Block(notice string) string { return Separator + notice + "\n" }

// Contains reports whether content contains notice.
func Contains(content []byte, notice string) bool {
	return bytes.Contains(content, []byte(notice))
}

// Has reports whether the file at path contains notice.
func Has(path, notice string) (bool, error) {
	if notice == "" {
		return false, ErrEmptyNotice
	}
	content, err := os.ReadFile(path)
	if err != nil {
		return false, err
	}
	return Contains(content, notice), nil
}

// Create appends notice to the file at path unless the file already
// contains it.
func Create(path, notice string) (Result, error) {
	if notice == "" {
		return None, ErrEmptyNotice
	}
	content, err := os.ReadFile(path)
	if err != nil {
		return None, err
	}
	if Contains(content, notice) {
		return AlreadyPresent, nil
	}
	buf := bytes.NewBuffer(content)
	buf.WriteString(Block(notice))
	if err := replace(path, buf.Bytes()); err != nil {
		return None, err
	}
	return Created, nil
}

// Update replaces all occurrences of old with new in the whole content of
// the file at path, not only inside the notice.
//
// It returns [NoOpIdentical] without touching the file if old equals new and
// [NotPresent] without writing if old doesn't occur in the file.
func Update(path, old, new string) (Result, error) {
	if old == new {
		return NoOpIdentical, nil
	}
	if old == "" {
		return None, ErrEmptyNotice
	}
	content, err := os.ReadFile(path)
	if err != nil {
		return None, err
	}
	if !Contains(content, old) {
		return NotPresent, nil
	}
	if err := replace(path, bytes.ReplaceAll(content, []byte(old), []byte(new))); err != nil {
		return None, err
	}
	return Updated, nil
}

// Delete removes notice from the file at path.
//
// A block exactly as appended by [Create] is removed together with its
// separator and trailing newline, so deleting undoes creating byte for byte.
// Any other occurrence of notice is replaced with nothing.
func Delete(path, notice string) (Result, error) {
	if notice == "" {
		return None, ErrEmptyNotice
	}
	content, err := os.ReadFile(path)
	if err != nil {
		return None, err
	}
	if !Contains(content, notice) {
		return NotPresent, nil
	}
	content = bytes.ReplaceAll(content, []byte(Block(notice)), nil)
	content = bytes.ReplaceAll(content, []byte(notice), nil)
	if err := replace(path, content); err != nil {
		return None, err
	}
	return Deleted, nil
}

// newReader returns the reader new file content is copied from. Tests
// replace it to interrupt writes.
var newReader = func(b []byte) io.Reader { return bytes.NewReader(b) }

// replace atomically replaces the file at path with content, keeping its
// permissions. If path is a symbolic link, the file it points to is replaced
// and the link stays in place.
func replace(path string, content []byte) error {
	target, err := filepath.EvalSymlinks(path)
	if err != nil {
		return fmt.Errorf("replacing %s: %w", path, err)
	}
	if err := atomic.WriteFile(target, newReader(content)); err != nil {
		return fmt.Errorf("replacing %s: %w", path, err)
	}
	return nil
}
