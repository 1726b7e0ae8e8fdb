// © 2025 Ilya Mateyko. All rights reserved.
// Use of this source code is governed by the ISC
// license that can be found in the LICENSE.md file.

// Package notice provides the canonical copyright notice text.
//
// The notice is loaded once per [Provider] and every caller observes the
// same bytes. A failed load is reported as an error wrapping
// [ErrUnavailable] and is never replaced with placeholder text, because the
// text is used verbatim both as a search needle and as inserted content.
package notice

import (
	"embed"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"

	"go.astrophena.name/copyright/syncx"
)

// DefaultName is the name of the notice resource shipped with the program.
const DefaultName = "copyright.txt"

//go:embed copyright.txt
var embedded embed.FS

var (
	// ErrUnavailable is returned when the notice resource can't be read.
	ErrUnavailable = errors.New("notice unavailable")
	// ErrEmpty is returned when the notice resource is empty.
	ErrEmpty = errors.New("notice is empty")
)

// Provider supplies the canonical notice text.
type Provider struct {
	fsys   fs.FS
	name   string
	source string

	text syncx.Lazy[string]
}

// Embedded returns a Provider for the notice compiled into the program.
func Embedded() *Provider {
	return &Provider{fsys: embedded, name: DefaultName, source: "embedded:" + DefaultName}
}

// File returns a Provider that reads the notice from the file at path.
func File(path string) *Provider {
	dir, name := filepath.Split(path)
	if dir == "" {
		dir = "."
	}
	return &Provider{fsys: os.DirFS(dir), name: name, source: path}
}

// FS returns a Provider that reads the notice from name in fsys.
func FS(fsys fs.FS, name string) *Provider {
	return &Provider{fsys: fsys, name: name, source: name}
}

// Static returns a Provider that always returns text. It's useful for
// notices that come from configuration files.
func Static(text, source string) *Provider {
	p := &Provider{source: source}
	p.text.GetErr(func() (string, error) { return check(text, source) })
	return p
}

// Source describes where the notice text comes from.
func (p *Provider) Source() string { return p.source }

// Text returns the notice text. The resource is read on the first call only.
func (p *Provider) Text() (string, error) {
	return p.text.GetErr(p.load)
}

func (p *Provider) load() (string, error) {
	b, err := fs.ReadFile(p.fsys, p.name)
	if err != nil {
		return "", fmt.Errorf("%w: %w", ErrUnavailable, err)
	}
	return check(string(b), p.source)
}

func check(text, source string) (string, error) {
	if text == "" {
		return "", fmt.Errorf("%s: %w", source, ErrEmpty)
	}
	return text, nil
}
