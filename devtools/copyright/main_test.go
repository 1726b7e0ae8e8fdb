// © 2025 Ilya Mateyko. All rights reserved.
// Use of this source code is governed by the ISC
// license that can be found in the LICENSE.md file.

package main

import (
	"errors"
	"maps"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"go.astrophena.name/copyright/cli"
	"go.astrophena.name/copyright/cli/clitest"
	"go.astrophena.name/copyright/notice"
	"go.astrophena.name/copyright/testutil"
	"go.astrophena.name/copyright/version"
)

const testConfig = `-- notice.txt --
# Copyright 2023 Example
-- exclusions.json --
["vendor/**"]
`

var testTree = map[string]string{
	configFile:      testConfig,
	"with.py":       "a = 1\n\n\n# Copyright 2023 Example\n\n",
	"without.py":    "b = 2\n",
	"sub/nested.py": "c = 3\n",
	"vendor/lib.py": "d = 4\n",
	"old.txt":       "# Copyright 2022 Example\n",
	"old.py":        "e = 5\n\n\n# Copyright 2022 Example\n\n",
}

func setupTree(files map[string]string) func(t *testing.T) *app {
	return func(t *testing.T) *app {
		dir := t.TempDir()
		testutil.WriteTree(t, dir, files)
		t.Chdir(dir)
		return new(app)
	}
}

func wantFile(path, want string) func(*testing.T, *app) {
	return func(t *testing.T, _ *app) {
		t.Helper()
		testutil.AssertEqual(t, testutil.ReadFile(t, path), want)
	}
}

func TestRun(t *testing.T) {
	clitest.Run(t, setupTree(testTree), map[string]clitest.Case[*app]{
		"status": {
			Args: []string{"status"},
			WantInStdout: "✗ old.py: notice not found\n" +
				"✗ sub/nested.py: notice not found\n" +
				"✓ with.py: notice found\n" +
				"✗ without.py: notice not found\n" +
				"status: 4 files, 1 with notice, 3 without, 0 failed\n",
		},
		"status check": {
			Args:    []string{"-check", "status"},
			WantErr: errNoticeMissing,
		},
		"status json": {
			Args:         []string{"-json", "status"},
			WantInStdout: `"present": 1,`,
		},
		"status html": {
			Args: []string{"-html", "report.html", "status"},
			CheckFunc: func(t *testing.T, _ *app) {
				html := testutil.ReadFile(t, "report.html")
				if !strings.Contains(html, "<code>with.py</code>") {
					t.Fatalf("HTML report must list with.py, got:\n%s", html)
				}
			},
		},
		"apply": {
			Args:         []string{"apply"},
			WantInStdout: "create: 4 files, 4 with notice, 0 without, 3 changed, 0 failed\n",
			CheckFunc: func(t *testing.T, a *app) {
				wantFile("without.py", "b = 2\n\n\n# Copyright 2023 Example\n\n")(t, a)
				wantFile("with.py", "a = 1\n\n\n# Copyright 2023 Example\n\n")(t, a)
				wantFile(filepath.Join("vendor", "lib.py"), "d = 4\n")(t, a)
			},
		},
		"remove": {
			Args:         []string{"remove"},
			WantInStdout: "delete: 4 files, 0 with notice, 4 without, 1 changed, 0 failed\n",
			CheckFunc:    wantFile("with.py", "a = 1\n"),
		},
		"update": {
			Args:         []string{"update", "old.txt"},
			WantInStdout: "update: 4 files, 2 with notice, 2 without, 1 changed, 0 failed\n",
			CheckFunc:    wantFile("old.py", "e = 5\n\n\n# Copyright 2023 Example\n\n"),
		},
		"update without file": {
			Args:    []string{"update"},
			WantErr: cli.ErrInvalidArgs,
		},
		"update with missing file": {
			Args:    []string{"update", "missing.txt"},
			WantErr: notice.ErrUnavailable,
		},
		"include flag": {
			Args:         []string{"-include", "**/*.txt", "status"},
			WantInStdout: "✗ old.txt: notice not found\nstatus: 1 files, 0 with notice, 1 without, 0 failed\n",
		},
		"exclude flag": {
			Args:         []string{"-exclude", "sub/**, old.py,vendor/**", "status"},
			WantInStdout: "status: 2 files, 1 with notice, 1 without, 0 failed\n",
		},
		"notice flag": {
			Args:         []string{"-notice", "old.txt", "status"},
			WantInStdout: "✓ old.py: notice found\n",
		},
		"missing notice file": {
			Args:    []string{"-notice", "nope.txt", "apply"},
			WantErr: notice.ErrUnavailable,
			CheckFunc: func(t *testing.T, a *app) {
				wantFile("without.py", "b = 2\n")(t, a)
			},
		},
		"show": {
			Args:         []string{"show"},
			WantInStdout: "# Copyright 2023 Example\n",
		},
		"commands": {
			Args:         []string{"commands"},
			WantInStdout: "apply",
		},
		"version": {
			Args:         []string{"version"},
			WantInStdout: version.Semver() + "\n",
		},
		"info": {
			Args:         []string{"info"},
			WantInStdout: "installation details and dependencies:",
		},
		"unexpected arguments": {
			Args:    []string{"status", "extra"},
			WantErr: cli.ErrInvalidArgs,
		},
		"unknown command": {
			Args:    []string{"frobnicate"},
			WantErr: cli.ErrInvalidArgs,
		},
		"no command": {
			Args:    []string{},
			WantErr: cli.ErrInvalidArgs,
		},
	})
}

func TestRunWithoutConfig(t *testing.T) {
	clitest.Run(t, setupTree(map[string]string{"hello_world.py": "def hello(): ...\n"}), map[string]clitest.Case[*app]{
		"show built-in notice": {
			Args:         []string{"show"},
			WantInStdout: "Copyright 2023 Sandia National Laboratories",
		},
		"apply built-in notice": {
			Args:         []string{"apply"},
			WantInStdout: "✓ hello_world.py: created\n",
			CheckFunc: func(t *testing.T, _ *app) {
				text, err := notice.Embedded().Text()
				if err != nil {
					t.Fatal(err)
				}
				testutil.AssertEqual(t, testutil.ReadFile(t, "hello_world.py"), "def hello(): ...\n\n\n"+text+"\n")
			},
		},
	})
}

func TestRunFailingFile(t *testing.T) {
	if os.Geteuid() == 0 {
		t.Skip("permissions are not enforced for root")
	}
	setup := func(t *testing.T) *app {
		a := setupTree(map[string]string{
			"a.py": "a = 1\n",
			"b.py": "b = 2\n",
			"c.py": "c = 3\n",
		})(t)
		if err := os.Chmod("b.py", 0o000); err != nil {
			t.Fatal(err)
		}
		return a
	}
	clitest.Run(t, setup, map[string]clitest.Case[*app]{
		"apply continues after failure": {
			Args:         []string{"apply"},
			WantErr:      errFilesFailed,
			WantInStdout: "! b.py: error: ",
			CheckFunc: func(t *testing.T, _ *app) {
				text, err := notice.Embedded().Text()
				if err != nil {
					t.Fatal(err)
				}
				if !strings.HasSuffix(testutil.ReadFile(t, "c.py"), text+"\n") {
					t.Fatal("c.py must have the notice")
				}
			},
		},
	})
}

func TestParseConfig(t *testing.T) {
	dir := t.TempDir()

	cases := map[string]struct {
		content string
		missing bool
		want    *config
		wantErr bool
	}{
		"missing": {
			missing: true,
			want:    &config{},
		},
		"full": {
			content: testConfig + "-- include.json --\n[\"**/*.go\"]\n",
			want: &config{
				notice:     "# Copyright 2023 Example\n",
				hasNotice:  true,
				include:    []string{"**/*.go"},
				exclusions: []string{"vendor/**"},
			},
		},
		"empty notice": {
			content: "-- notice.txt --\n",
			want:    &config{hasNotice: true},
		},
		"bad json": {
			content: "-- exclusions.json --\n{\n",
			wantErr: true,
		},
	}

	for name, tc := range cases {
		t.Run(name, func(t *testing.T) {
			path := filepath.Join(dir, name+".txtar")
			if !tc.missing {
				if err := os.WriteFile(path, []byte(tc.content), 0o644); err != nil {
					t.Fatal(err)
				}
			}
			got, err := parseConfig(path)
			if (err != nil) != tc.wantErr {
				t.Fatalf("parseConfig: got error %v, want error: %v", err, tc.wantErr)
			}
			if !tc.wantErr {
				testutil.AssertEqual(t, got, tc.want)
			}
		})
	}
}

func TestEmptyConfigNotice(t *testing.T) {
	a := setupTree(map[string]string{configFile: "-- notice.txt --\n"})(t)
	_, _, err := a.noticeText(t.Context())
	if !errors.Is(err, notice.ErrEmpty) {
		t.Fatalf("got error %v, want %v", err, notice.ErrEmpty)
	}
}

func TestHook(t *testing.T) {
	withGit := maps.Clone(testTree)
	withGit[".git/hooks/.keep"] = ""
	withHook := maps.Clone(withGit)
	withHook[".git/hooks/pre-commit"] = "#!/bin/sh\nexit 0\n"

	clitest.Run(t, setupTree(withGit), map[string]clitest.Case[*app]{
		"installs": {
			Args:         []string{"hook"},
			WantInStdout: "installed .git/hooks/pre-commit\n",
			CheckFunc: func(t *testing.T, _ *app) {
				fi, err := os.Stat(filepath.Join(".git", "hooks", "pre-commit"))
				if err != nil {
					t.Fatal(err)
				}
				if fi.Mode().Perm()&0o100 == 0 {
					t.Fatalf("hook is not executable: %v", fi.Mode())
				}
				testutil.AssertEqual(t, testutil.ReadFile(t, ".git/hooks/pre-commit"), hookShellScript)
			},
		},
		"skipped in CI": {
			Args: []string{"hook"},
			Env:  map[string]string{"CI": "true"},
			CheckFunc: func(t *testing.T, _ *app) {
				if _, err := os.Stat(filepath.Join(".git", "hooks", "pre-commit")); !errors.Is(err, os.ErrNotExist) {
					t.Fatalf("hook must not be installed in CI, stat error: %v", err)
				}
			},
		},
		"unexpected args": {
			Args:    []string{"hook", "now"},
			WantErr: cli.ErrInvalidArgs,
		},
	})

	clitest.Run(t, setupTree(withHook), map[string]clitest.Case[*app]{
		"keeps existing": {
			Args:         []string{"hook"},
			WantInStderr: "already exists",
			CheckFunc:    wantFile(".git/hooks/pre-commit", "#!/bin/sh\nexit 0\n"),
		},
	})

	clitest.Run(t, setupTree(testTree), map[string]clitest.Case[*app]{
		"not a repository": {
			Args:    []string{"hook"},
			WantErr: os.ErrNotExist,
		},
	})
}
