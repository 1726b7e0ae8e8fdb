// © 2025 Ilya Mateyko. All rights reserved.
// Use of this source code is governed by the ISC
// license that can be found in the LICENSE.md file.

package main

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"flag"
	"fmt"
	"io/fs"
	"log/slog"
	"os"
	"path/filepath"
	"strings"

	"github.com/natefinch/atomic"
	"golang.org/x/tools/txtar"

	"go.astrophena.name/copyright/batch"
	"go.astrophena.name/copyright/cli"
	"go.astrophena.name/copyright/logger"
	"go.astrophena.name/copyright/notice"
	"go.astrophena.name/copyright/tree"
	"go.astrophena.name/copyright/version"
)

const configFile = ".copyright.txtar"

const hookShellScript = `#!/bin/sh
echo "==> Checking copyright notices..."
exec copyright status -check
`

var (
	errFilesFailed   = errors.New("some files could not be processed")
	errNoticeMissing = errors.New("some files lack the notice")
)

type config struct {
	notice     string
	hasNotice  bool
	include    []string
	exclusions []string
}

// parseConfig reads the configuration file at path. A missing file is not an
// error.
func parseConfig(path string) (*config, error) {
	cfg := new(config)

	ar, err := txtar.ParseFile(path)
	if errors.Is(err, fs.ErrNotExist) {
		return cfg, nil
	}
	if err != nil {
		return nil, err
	}

	for _, f := range ar.Files {
		switch f.Name {
		case "notice.txt":
			cfg.notice, cfg.hasNotice = string(f.Data), true
		case "include.json":
			if err := json.Unmarshal(f.Data, &cfg.include); err != nil {
				return nil, fmt.Errorf("%s: %s: %w", path, f.Name, err)
			}
		case "exclusions.json":
			if err := json.Unmarshal(f.Data, &cfg.exclusions); err != nil {
				return nil, fmt.Errorf("%s: %s: %w", path, f.Name, err)
			}
		}
	}

	return cfg, nil
}

func main() { cli.Main(new(app)) }

type app struct {
	notice  string
	include string
	exclude string
	follow  bool
	json    bool
	html    string
	check   bool
}

func (a *app) Flags(fs *flag.FlagSet) {
	fs.StringVar(&a.notice, "notice", "", "Read the notice from `file` instead of the built-in one.")
	fs.StringVar(&a.include, "include", "", "Comma-separated `patterns` of files to process (default "+tree.DefaultInclude+").")
	fs.StringVar(&a.exclude, "exclude", "", "Comma-separated `patterns` of files and directories to skip.")
	fs.BoolVar(&a.follow, "follow", false, "Follow symbolic links.")
	fs.BoolVar(&a.json, "json", false, "Print reports as JSON.")
	fs.StringVar(&a.html, "html", "", "Also write the status report as HTML to `file`.")
	fs.BoolVar(&a.check, "check", false, "Make status fail if any file lacks the notice.")
}

func (a *app) Commands() []cli.Command {
	return []cli.Command{
		{Name: "apply", Help: "Append the notice to every file that lacks it.", Run: a.apply},
		{Name: "remove", Help: "Remove the notice from every file.", Run: a.remove},
		{Name: "update", Args: "<old-notice-file>", Help: "Replace the old notice with the current one in every file.", Run: a.update},
		{Name: "status", Help: "Report which files contain the notice.", Run: a.status},
		{Name: "show", Help: "Print the notice.", Run: a.show},
		{Name: "hook", Help: "Install a Git pre-commit hook that runs status -check.", Run: a.hook},
		{Name: "version", Help: "Print the version.", Run: a.version},
		{Name: "info", Help: "Print installation details and dependencies.", Run: a.info},
		{Name: "commands", Help: "List available commands.", Run: a.commands},
	}
}

func (a *app) Run(ctx context.Context) error {
	return cli.Dispatch(ctx, a.Commands())
}

// provider picks the notice source: the -notice flag, then the configuration
// file, then the built-in notice.
func (a *app) provider(cfg *config) *notice.Provider {
	switch {
	case a.notice != "":
		return notice.File(a.notice)
	case cfg.hasNotice:
		return notice.Static(cfg.notice, configFile+":notice.txt")
	default:
		return notice.Embedded()
	}
}

func (a *app) noticeText(ctx context.Context) (string, *config, error) {
	cfg, err := parseConfig(configFile)
	if err != nil {
		return "", nil, err
	}
	p := a.provider(cfg)
	text, err := p.Text()
	if err != nil {
		return "", nil, err
	}
	logger.Debug(ctx, "loaded notice", slog.String("source", p.Source()), slog.Int("bytes", len(text)))
	return text, cfg, nil
}

func (a *app) batch(ctx context.Context, args []string) (*batch.Batch, error) {
	if len(args) > 0 {
		return nil, fmt.Errorf("%w: unexpected arguments %q", cli.ErrInvalidArgs, args)
	}
	text, cfg, err := a.noticeText(ctx)
	if err != nil {
		return nil, err
	}
	w := &tree.Walker{
		Include:        cfg.include,
		Exclude:        cfg.exclusions,
		FollowSymlinks: a.follow,
	}
	if a.include != "" {
		w.Include = splitList(a.include)
	}
	if a.exclude != "" {
		w.Exclude = splitList(a.exclude)
	}
	return &batch.Batch{Root: ".", Notice: text, Lister: w}, nil
}

func splitList(s string) []string {
	var list []string
	for item := range strings.SplitSeq(s, ",") {
		if item = strings.TrimSpace(item); item != "" {
			list = append(list, item)
		}
	}
	return list
}

func (a *app) apply(ctx context.Context, args []string) error {
	b, err := a.batch(ctx, args)
	if err != nil {
		return err
	}
	logger.Info(ctx, "marking files with the notice", slog.String("root", b.Root))
	rep, err := b.Create(ctx)
	if err != nil {
		return err
	}
	return a.report(ctx, rep)
}

func (a *app) remove(ctx context.Context, args []string) error {
	b, err := a.batch(ctx, args)
	if err != nil {
		return err
	}
	logger.Info(ctx, "removing the notice from files", slog.String("root", b.Root))
	rep, err := b.Delete(ctx)
	if err != nil {
		return err
	}
	return a.report(ctx, rep)
}

func (a *app) update(ctx context.Context, args []string) error {
	if len(args) != 1 {
		return fmt.Errorf("%w: update needs exactly one old notice file", cli.ErrInvalidArgs)
	}
	old, err := notice.File(args[0]).Text()
	if err != nil {
		return err
	}
	b, err := a.batch(ctx, nil)
	if err != nil {
		return err
	}
	if old == b.Notice {
		logger.Info(ctx, "old and current notice are identical, nothing to update")
		return nil
	}
	rep, err := b.Update(ctx, old)
	if err != nil {
		return err
	}
	return a.report(ctx, rep)
}

func (a *app) status(ctx context.Context, args []string) error {
	b, err := a.batch(ctx, args)
	if err != nil {
		return err
	}
	rep, err := b.Status(ctx)
	if err != nil {
		return err
	}
	if a.html != "" {
		var buf bytes.Buffer
		if err := rep.HTML().Render(ctx, &buf); err != nil {
			return err
		}
		if err := atomic.WriteFile(a.html, &buf); err != nil {
			return err
		}
		logger.Debug(ctx, "wrote HTML report", slog.String("path", a.html))
	}
	if err := a.report(ctx, rep); err != nil {
		return err
	}
	if missing := rep.Count(batch.Absent); a.check && missing > 0 {
		return fmt.Errorf("%w: %d of %d", errNoticeMissing, missing, len(rep.Entries))
	}
	return nil
}

// report prints rep and returns an error if any file failed.
func (a *app) report(ctx context.Context, rep *batch.Report) error {
	env := cli.GetEnv(ctx)
	var err error
	if a.json {
		err = rep.WriteJSON(env.Stdout)
	} else {
		err = rep.WriteText(env.Stdout)
	}
	if err != nil {
		return err
	}
	if n := rep.Failed(); n > 0 {
		return fmt.Errorf("%w: %d of %d", errFilesFailed, n, len(rep.Entries))
	}
	return nil
}

func (a *app) show(ctx context.Context, args []string) error {
	text, _, err := a.noticeText(ctx)
	if err != nil {
		return err
	}
	env := cli.GetEnv(ctx)
	if !strings.HasSuffix(text, "\n") {
		text += "\n"
	}
	_, err = fmt.Fprint(env.Stdout, text)
	return err
}

func (a *app) hook(ctx context.Context, args []string) error {
	if len(args) > 0 {
		return fmt.Errorf("%w: unexpected arguments %q", cli.ErrInvalidArgs, args)
	}
	env := cli.GetEnv(ctx)
	if env.Getenv("CI") == "true" {
		logger.Info(ctx, "running in CI, not installing the hook")
		return nil
	}

	hooks := filepath.Join(".git", "hooks")
	if _, err := os.Stat(hooks); err != nil {
		return fmt.Errorf("not a Git repository root: %w", err)
	}
	hookPath := filepath.Join(hooks, "pre-commit")
	if _, err := os.Stat(hookPath); err == nil {
		fmt.Fprintf(env.Stderr, "%s already exists, leaving it alone\n", hookPath)
		return nil
	} else if !errors.Is(err, fs.ErrNotExist) {
		return err
	}
	if err := os.WriteFile(hookPath, []byte(hookShellScript), 0o755); err != nil {
		return err
	}
	fmt.Fprintf(env.Stdout, "installed %s\n", hookPath)
	return nil
}

func (a *app) version(ctx context.Context, args []string) error {
	_, err := fmt.Fprintln(cli.GetEnv(ctx).Stdout, version.Semver())
	return err
}

func (a *app) info(ctx context.Context, args []string) error {
	env := cli.GetEnv(ctx)
	v := version.Version()

	location, err := os.Executable()
	if err != nil {
		location = "unknown"
	}

	fmt.Fprintf(env.Stdout, "%s installation details and dependencies:\n", version.CmdName())
	fmt.Fprintf(env.Stdout, "module: %s\n", v.Module)
	fmt.Fprintf(env.Stdout, "location: %s\n", location)
	fmt.Fprintf(env.Stdout, "version: %s\n", v.Version)
	fmt.Fprint(env.Stdout, "full stack:\n")
	for _, d := range version.Deps() {
		fmt.Fprintf(env.Stdout, "- %s\n", d)
	}
	return nil
}

func (a *app) commands(ctx context.Context, args []string) error {
	env := cli.GetEnv(ctx)
	fmt.Fprintf(env.Stdout, "Available commands:\n\n")
	cli.PrintCommands(env.Stdout, a.Commands())
	return nil
}
