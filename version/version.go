// © 2024 Ilya Mateyko. All rights reserved.
// Use of this source code is governed by the ISC
// license that can be found in the LICENSE.md file.

// Package version reports the version of the running program, as recorded in
// its build information.
package version

import (
	"fmt"
	"os"
	"path/filepath"
	"runtime/debug"
	"slices"
	"strings"

	"golang.org/x/mod/semver"

	"go.astrophena.name/copyright/syncx"
)

// Devel is the version reported for builds without a semantic version, such
// as those from a working tree.
const Devel = "devel"

// Info describes a build of the program.
type Info struct {
	// Module is the main module path.
	Module string
	// Version is the canonical semantic version, or Devel.
	Version string
	// Commit is the VCS revision, if known.
	Commit string
	// Dirty reports whether the working tree had local modifications.
	Dirty bool
	// Go is the version of the Go toolchain that built the program.
	Go string
}

// String returns a single line describing the build.
func (i Info) String() string {
	var sb strings.Builder
	fmt.Fprintf(&sb, "%s %s", CmdName(), i.Version)
	if i.Commit != "" {
		commit := i.Commit
		if len(commit) > 12 {
			commit = commit[:12]
		}
		fmt.Fprintf(&sb, " (%s", commit)
		if i.Dirty {
			sb.WriteString(", dirty")
		}
		sb.WriteString(")")
	}
	if i.Go != "" {
		fmt.Fprintf(&sb, " built with %s", i.Go)
	}
	sb.WriteString("\n")
	return sb.String()
}

// Dep is a dependency module compiled into the program.
type Dep struct {
	Path    string
	Version string
}

func (d Dep) String() string { return d.Path + " " + d.Version }

var (
	info syncx.Lazy[Info]
	deps syncx.Lazy[[]Dep]

	readBuildInfo = debug.ReadBuildInfo
)

// Version returns information about the running program.
func Version() Info { return info.Get(load) }

// Semver returns the semantic version of the running program, or Devel.
func Semver() string { return Version().Version }

// Deps returns the dependencies of the running program sorted by module path.
func Deps() []Dep {
	return slices.Clone(deps.Get(func() []Dep {
		bi, ok := readBuildInfo()
		if !ok {
			return nil
		}
		var ds []Dep
		for _, d := range bi.Deps {
			if d.Replace != nil {
				d = d.Replace
			}
			ds = append(ds, Dep{Path: d.Path, Version: d.Version})
		}
		slices.SortFunc(ds, func(a, b Dep) int { return strings.Compare(strings.ToLower(a.Path), strings.ToLower(b.Path)) })
		return ds
	}))
}

func load() Info {
	bi, ok := readBuildInfo()
	if !ok {
		return Info{Version: Devel}
	}
	return fromBuildInfo(bi)
}

func fromBuildInfo(bi *debug.BuildInfo) Info {
	i := Info{
		Module:  bi.Main.Path,
		Version: Canonical(bi.Main.Version),
		Go:      bi.GoVersion,
	}
	for _, s := range bi.Settings {
		switch s.Key {
		case "vcs.revision":
			i.Commit = s.Value
		case "vcs.modified":
			i.Dirty = s.Value == "true"
		}
	}
	return i
}

// Canonical returns v as a canonical semantic version with a "v" prefix, or
// Devel if v isn't a valid semantic version.
func Canonical(v string) string {
	if v != "" && !strings.HasPrefix(v, "v") {
		v = "v" + v
	}
	if !semver.IsValid(v) {
		return Devel
	}
	return semver.Canonical(v)
}

// CmdName returns the base name of the running executable.
func CmdName() string {
	name := filepath.Base(os.Args[0])
	return strings.TrimSuffix(name, ".exe")
}
