// © 2025 Ilya Mateyko. All rights reserved.
// Use of this source code is governed by the ISC
// license that can be found in the LICENSE.md file.

/*
Copyright manages a canonical copyright notice across a tree of source files.

Usage:

	copyright [flags] <command> [args]

It walks the current directory recursively and considers every file matching
the include patterns (by default, all *.py files). The notice is matched as an
exact, contiguous piece of text; nothing in a file is parsed.

The apply command appends the notice to the end of every file that doesn't
contain it yet, separated by a blank line. Running it again changes nothing.
The remove command deletes the notice from every file that contains it and
undoes apply byte for byte. The update command replaces an old notice, read
from a file, with the current one in every file. The status command only
reports which files contain the notice.

The hook command installs a Git pre-commit hook in the current repository
that runs "copyright status -check". An existing hook is left alone, and
nothing is installed when the CI environment variable is set to "true".

Files are rewritten atomically: new content goes to a temporary file in the
same directory which then replaces the original. A file that can't be
processed is reported and skipped, and the command exits with a failure
status after the whole tree was processed.

The notice defaults to the text shipped with the program. It can be replaced
with the -notice flag or with a .copyright.txtar file in the current
directory. That file is a txtar archive and can contain the following files:

  - notice.txt: The notice text.
  - include.json: A JSON array of patterns of files to process.
  - exclusions.json: A JSON array of patterns of files and directories to
    skip.

Patterns are matched against slash-separated paths relative to the current
directory and support ** for any number of directories. Flags take
precedence over the configuration file.
*/
package main

import (
	_ "embed"

	"go.astrophena.name/copyright/cli"
)

//go:embed doc.go
var doc []byte

func init() { cli.SetDocComment(doc) }
