// © 2025 Ilya Mateyko. All rights reserved.
// Use of this source code is governed by the ISC
// license that can be found in the LICENSE.md file.

package batch

import (
	"bytes"
	"context"
	"errors"
	"flag"
	"io/fs"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"golang.org/x/tools/txtar"

	"go.astrophena.name/copyright/block"
	"go.astrophena.name/copyright/testutil"
	"go.astrophena.name/copyright/tree"
)

var update = flag.Bool("update", false, "update golden files")

const testNotice = "# Copyright 2023 Example\n"

func TestGolden(t *testing.T) {
	// Subtests change the working directory, so golden files need absolute
	// paths.
	testdata, err := filepath.Abs("testdata")
	if err != nil {
		t.Fatal(err)
	}
	testutil.RunGolden(t, filepath.Join(testdata, "*.txtar"), func(t *testing.T, match string) []byte {
		ar, err := txtar.ParseFile(match)
		if err != nil {
			t.Fatal(err)
		}
		dir := t.TempDir()
		testutil.ExtractTxtar(t, ar, dir)
		t.Chdir(dir)

		b := &Batch{Notice: testutil.ReadFile(t, "notice.txt")}
		var rep *Report
		switch op := Op(strings.TrimSpace(string(ar.Comment))); op {
		case OpCreate:
			rep, err = b.Create(context.Background())
		case OpDelete:
			rep, err = b.Delete(context.Background())
		case OpStatus:
			rep, err = b.Status(context.Background())
		default:
			t.Fatalf("unknown operation %q", op)
		}
		if err != nil {
			t.Fatal(err)
		}

		var buf bytes.Buffer
		if err := rep.WriteText(&buf); err != nil {
			t.Fatal(err)
		}
		got := txtar.Parse(testutil.BuildTxtar(t, "."))
		got.Comment = buf.Bytes()
		return txtar.Format(got)
	}, *update)
}

func TestStatusCounts(t *testing.T) {
	dir := t.TempDir()
	testutil.WriteTree(t, dir, map[string]string{
		"hello_world.py":                     "def hello(): ...\n",
		"module_with_copyright.py":           "def f(): ...\n\n\n" + testNotice + "\n",
		"module_without_copyright.py":        "def g(): ...\n",
		"nested_files/hello_world_nested.py": testNotice,
	})
	before := testutil.BuildTxtar(t, dir)

	rep, err := (&Batch{Root: dir, Notice: testNotice}).Status(context.Background())
	if err != nil {
		t.Fatal(err)
	}
	testutil.AssertEqual(t, len(rep.Entries), 4)
	testutil.AssertEqual(t, rep.Count(Present), 2)
	testutil.AssertEqual(t, rep.Count(Absent), 2)
	testutil.AssertEqual(t, rep.Failed(), 0)
	testutil.AssertEqual(t, rep.Changed(), 0)

	// Status is read-only.
	testutil.AssertEqual(t, string(testutil.BuildTxtar(t, dir)), string(before))
}

func TestCreateIdempotent(t *testing.T) {
	dir := t.TempDir()
	testutil.WriteTree(t, dir, map[string]string{
		"a.py":     "a = 1\n",
		"sub/b.py": "b = 2\n",
	})
	b := &Batch{Root: dir, Notice: testNotice}

	rep, err := b.Create(context.Background())
	if err != nil {
		t.Fatal(err)
	}
	testutil.AssertEqual(t, rep.Changed(), 2)
	once := testutil.BuildTxtar(t, dir)

	rep, err = b.Create(context.Background())
	if err != nil {
		t.Fatal(err)
	}
	testutil.AssertEqual(t, rep.Changed(), 0)
	for _, e := range rep.Entries {
		testutil.AssertEqual(t, e.Result, block.AlreadyPresent)
		testutil.AssertEqual(t, e.Before, Present)
	}
	testutil.AssertEqual(t, string(testutil.BuildTxtar(t, dir)), string(once))
}

func TestRoundTrip(t *testing.T) {
	dir := t.TempDir()
	testutil.WriteTree(t, dir, map[string]string{
		"a.py":        "a = 1\n",
		"b.py":        "",
		"deep/c/d.py": "print('hi')",
	})
	orig := testutil.BuildTxtar(t, dir)
	b := &Batch{Root: dir, Notice: testNotice}

	if _, err := b.Create(context.Background()); err != nil {
		t.Fatal(err)
	}
	rep, err := b.Delete(context.Background())
	if err != nil {
		t.Fatal(err)
	}
	for _, e := range rep.Entries {
		testutil.AssertEqual(t, e.Before, Present)
		testutil.AssertEqual(t, e.After, Absent)
		testutil.AssertEqual(t, e.Result, block.Deleted)
	}
	testutil.AssertEqual(t, string(testutil.BuildTxtar(t, dir)), string(orig))
}

func TestUpdate(t *testing.T) {
	const oldNotice = "# Copyright 2022 Example\n"

	dir := t.TempDir()
	testutil.WriteTree(t, dir, map[string]string{
		"old.py":     "x = 1\n\n\n" + oldNotice + "\n",
		"current.py": "y = 2\n\n\n" + testNotice + "\n",
		"none.py":    "z = 3\n",
	})
	b := &Batch{Root: dir, Notice: testNotice}

	rep, err := b.Update(context.Background(), oldNotice)
	if err != nil {
		t.Fatal(err)
	}

	got := make(map[string]Entry)
	for _, e := range rep.Entries {
		got[filepath.Base(e.Path)] = e
	}
	testutil.AssertEqual(t, got["old.py"].Result, block.Updated)
	testutil.AssertEqual(t, got["old.py"].Before, Absent)
	testutil.AssertEqual(t, got["old.py"].After, Present)
	testutil.AssertEqual(t, got["current.py"].Result, block.NotPresent)
	testutil.AssertEqual(t, got["current.py"].After, Present)
	testutil.AssertEqual(t, got["none.py"].Result, block.NotPresent)
	testutil.AssertEqual(t, got["none.py"].After, Absent)
	testutil.AssertEqual(t, testutil.ReadFile(t, filepath.Join(dir, "old.py")), "x = 1\n\n\n"+testNotice+"\n")

	if _, err := b.Update(context.Background(), ""); !errors.Is(err, block.ErrEmptyNotice) {
		t.Fatalf("Update with empty old text: got error %v, want %v", err, block.ErrEmptyNotice)
	}
}

type staticLister []string

func (l staticLister) List(ctx context.Context, root string) ([]string, error) {
	paths := make([]string, 0, len(l))
	for _, p := range l {
		paths = append(paths, filepath.Join(root, p))
	}
	return paths, nil
}

func TestCreateFollowedSymlink(t *testing.T) {
	base := t.TempDir()
	testutil.WriteTree(t, base, map[string]string{
		"outside/real.py": "x = 1\n",
		"root/own.py":     "y = 2\n",
	})
	root := filepath.Join(base, "root")
	link := filepath.Join(root, "link.py")
	if err := os.Symlink(filepath.Join(base, "outside", "real.py"), link); err != nil {
		t.Fatal(err)
	}

	b := &Batch{Root: root, Notice: testNotice, Lister: &tree.Walker{FollowSymlinks: true}}
	rep, err := b.Create(context.Background())
	if err != nil {
		t.Fatal(err)
	}
	testutil.AssertEqual(t, rep.Failed(), 0)
	testutil.AssertEqual(t, rep.Count(Present), 2)

	fi, err := os.Lstat(link)
	if err != nil {
		t.Fatal(err)
	}
	if fi.Mode()&fs.ModeSymlink == 0 {
		t.Fatalf("link.py is no longer a symlink: %v", fi.Mode())
	}
	testutil.AssertEqual(t, testutil.ReadFile(t, filepath.Join(base, "outside", "real.py")), "x = 1\n"+block.Block(testNotice))
}

func TestFailureIsolation(t *testing.T) {
	dir := t.TempDir()
	testutil.WriteTree(t, dir, map[string]string{
		"a.py": "a = 1\n",
		"c.py": "c = 3\n",
	})
	b := &Batch{
		Root:   dir,
		Notice: testNotice,
		// b.py vanishes between listing and processing.
		Lister: staticLister{"a.py", "b.py", "c.py"},
	}

	ops := map[string]func(context.Context) (*Report, error){
		"create": b.Create,
		"status": b.Status,
		"delete": b.Delete,
	}
	for _, name := range []string{"create", "status", "delete"} {
		t.Run(name, func(t *testing.T) {
			rep, err := ops[name](context.Background())
			if err != nil {
				t.Fatal(err)
			}
			testutil.AssertEqual(t, len(rep.Entries), 3)
			testutil.AssertEqual(t, rep.Failed(), 1)

			failed := rep.Entries[1]
			if !errors.Is(failed.Err, fs.ErrNotExist) {
				t.Fatalf("b.py: got error %v, want fs.ErrNotExist", failed.Err)
			}
			testutil.AssertEqual(t, failed.After, Unknown)
			for _, i := range []int{0, 2} {
				if rep.Entries[i].Err != nil {
					t.Fatalf("%s: unexpected error %v", rep.Entries[i].Path, rep.Entries[i].Err)
				}
			}

			var buf bytes.Buffer
			if err := rep.WriteText(&buf); err != nil {
				t.Fatal(err)
			}
			if !strings.Contains(buf.String(), IconError+" "+filepath.Join(dir, "b.py")+": error: ") {
				t.Fatalf("report must contain the failed file, got:\n%s", buf.String())
			}
		})
	}
}

func TestBatchErrors(t *testing.T) {
	t.Run("no notice", func(t *testing.T) {
		if _, err := (&Batch{Root: t.TempDir()}).Status(context.Background()); !errors.Is(err, ErrNoNotice) {
			t.Fatalf("got error %v, want %v", err, ErrNoNotice)
		}
	})

	t.Run("listing fails", func(t *testing.T) {
		b := &Batch{
			Root:   t.TempDir(),
			Notice: testNotice,
			Lister: &tree.Walker{Include: []string{"["}},
		}
		if _, err := b.Create(context.Background()); !errors.Is(err, tree.ErrBadPattern) {
			t.Fatalf("got error %v, want %v", err, tree.ErrBadPattern)
		}
	})

	t.Run("canceled", func(t *testing.T) {
		dir := t.TempDir()
		testutil.WriteTree(t, dir, map[string]string{"a.py": "a = 1\n"})
		ctx, cancel := context.WithCancel(context.Background())
		cancel()
		b := &Batch{Root: dir, Notice: testNotice, Lister: staticLister{"a.py"}}
		if _, err := b.Create(ctx); !errors.Is(err, context.Canceled) {
			t.Fatalf("got error %v, want %v", err, context.Canceled)
		}
		testutil.AssertEqual(t, testutil.ReadFile(t, filepath.Join(dir, "a.py")), "a = 1\n")
	})
}
