// © 2025 Levi Webb. All rights reserved.
// Use of this source code is governed by the ISC
// license that can be found in the LICENSE.md file.

package main

import (
	"bytes"
	"context"
	"errors"
	"flag"
	"fmt"
	"io"
	"io/fs"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/sirupsen/logrus"

	"github.com/jarcode-foss/iheaders/internal/atomicio"
	"github.com/jarcode-foss/iheaders/internal/cli"
	"github.com/jarcode-foss/iheaders/internal/scanner"
)

func main() { cli.Main(new(app)) }

type app struct {
	// flags
	token     string
	tabIndent int
	headerDir string
	rootDir   string
	recurse   string
	singleOut string
	pipe      bool
	stripMode bool
	timestamp bool
	verbose   bool
}

func (a *app) Flags(fs *flag.FlagSet) {
	fs.StringVar(&a.token, "token", "@", "Annotation `token` the processing rules look for.")
	fs.StringVar(&a.token, "t", "@", "Shorthand for -token.")
	fs.IntVar(&a.tabIndent, "tab-indent", 4, "`Spaces` a tab occupies when trimming block indentation; 0 preserves all indentation.")
	fs.IntVar(&a.tabIndent, "I", 4, "Shorthand for -tab-indent.")
	fs.StringVar(&a.headerDir, "header-dir", "", "`Directory` for generated headers to be placed into.")
	fs.StringVar(&a.headerDir, "d", "", "Shorthand for -header-dir.")
	fs.StringVar(&a.rootDir, "root-dir", "", "Root source `directory`; with -header-dir, headers mirror the source tree.")
	fs.StringVar(&a.rootDir, "r", "", "Shorthand for -root-dir.")
	fs.StringVar(&a.recurse, "root-dir-recursive", "", "Like -root-dir, but process every C source under the `directory`.")
	fs.StringVar(&a.recurse, "R", "", "Shorthand for -root-dir-recursive.")
	fs.StringVar(&a.singleOut, "single-output", "", "Combine all sources into one output `file`.")
	fs.StringVar(&a.singleOut, "s", "", "Shorthand for -single-output.")
	fs.BoolVar(&a.pipe, "stdout", false, "Pipe the combined result to stdout instead.")
	fs.BoolVar(&a.pipe, "O", false, "Shorthand for -stdout.")
	fs.BoolVar(&a.stripMode, "strip", false, "Strip the annotation syntax from sources instead of extracting headers.")
	fs.BoolVar(&a.stripMode, "S", false, "Shorthand for -strip.")
	fs.BoolVar(&a.timestamp, "timestamp-mode", false, "Record timestamps in generated headers and only regenerate stale ones.")
	fs.BoolVar(&a.timestamp, "T", false, "Shorthand for -timestamp-mode.")
	fs.BoolVar(&a.verbose, "verbose", false, "Show detailed information about inline header processing.")
	fs.BoolVar(&a.verbose, "v", false, "Shorthand for -verbose.")
}

func (a *app) validate(nargs int) error {
	dirMode := a.headerDir != "" || a.rootDir != "" || a.recurse != ""
	singleMode := a.singleOut != ""

	conflicts := 0
	for _, on := range []bool{dirMode, singleMode, a.pipe} {
		if on {
			conflicts++
		}
	}
	if conflicts > 1 {
		return fmt.Errorf("%w: the pipe mode ('-O'), directory mode ('-d', '-r', and '-R'), and single-header mode ('-s') cannot be used together", cli.ErrInvalidArgs)
	}
	if a.rootDir != "" && a.recurse != "" {
		return fmt.Errorf("%w: use either '-r' or '-R', not both", cli.ErrInvalidArgs)
	}
	if (a.rootDir != "" || a.recurse != "") && a.headerDir == "" {
		return fmt.Errorf("%w: header directory ('-d') must be specified with the root source directory", cli.ErrInvalidArgs)
	}
	if a.stripMode && dirMode {
		return fmt.Errorf("%w: strip mode ('-S') cannot be combined with directory mode", cli.ErrInvalidArgs)
	}
	if a.tabIndent < 0 {
		return fmt.Errorf("%w: tab indent size must be non-negative", cli.ErrInvalidArgs)
	}
	if a.token == "" {
		return fmt.Errorf("%w: token must be non-empty", cli.ErrInvalidArgs)
	}
	if nargs == 0 && a.recurse == "" {
		return fmt.Errorf("%w: no source files provided", cli.ErrInvalidArgs)
	}
	return nil
}

func (a *app) Run(ctx context.Context, env *cli.Env) error {
	if err := a.validate(len(env.Args)); err != nil {
		return err
	}

	logger := logrus.New()
	logger.SetOutput(env.Stderr)
	logger.SetLevel(logrus.WarnLevel)
	if a.verbose {
		logger.SetLevel(logrus.DebugLevel)
	}

	cfg := scanner.Config{
		Token:     a.token,
		TabIndent: a.tabIndent,
		Strip:     a.stripMode,
		Logger:    logger,
	}

	targets := env.Args
	rootDir := a.rootDir
	if a.recurse != "" {
		rootDir = a.recurse
		var err error
		if targets, err = findSources(a.recurse); err != nil {
			return err
		}
		if len(targets) == 0 {
			return fmt.Errorf("no C sources found under %q", a.recurse)
		}
	}

	switch {
	case a.pipe || (a.stripMode && a.singleOut == ""):
		return mergeInto(ctx, cfg, targets, env.Stdout)
	case a.singleOut != "":
		return a.single(ctx, cfg, targets)
	default:
		return a.each(ctx, cfg, targets, rootDir, env)
	}
}

// each generates one header per target. A syntax error aborts only the
// failing target; I/O errors abort the whole run.
func (a *app) each(ctx context.Context, cfg scanner.Config, targets []string, rootDir string, env *cli.Env) error {
	failed := 0
	for _, tgt := range targets {
		dest, err := a.destPath(tgt, rootDir)
		if err != nil {
			return err
		}
		cfg.Logger.Debugf("generating %q", dest)
		if err := a.generate(ctx, cfg, tgt, dest); err != nil {
			var serr *scanner.SyntaxError
			if errors.As(err, &serr) {
				env.Logf("failed to process target %q: %v", tgt, err)
				failed++
				continue
			}
			return err
		}
	}
	if failed > 0 {
		return fmt.Errorf("%d target(s) failed", failed)
	}
	return nil
}

// destPath maps a source path to its header path for the current mode.
func (a *app) destPath(src, rootDir string) (string, error) {
	switch {
	case rootDir != "":
		absSrc, err := filepath.Abs(src)
		if err != nil {
			return "", err
		}
		absRoot, err := filepath.Abs(rootDir)
		if err != nil {
			return "", err
		}
		rel, err := filepath.Rel(absRoot, absSrc)
		if err != nil || rel == ".." || strings.HasPrefix(rel, ".."+string(filepath.Separator)) {
			return "", fmt.Errorf("target %q is not a member of the root directory %q", src, rootDir)
		}
		return filepath.Join(a.headerDir, swapExt(rel)), nil
	case a.headerDir != "":
		return filepath.Join(a.headerDir, swapExt(filepath.Base(src))), nil
	default:
		return swapExt(src), nil
	}
}

// generate extracts one source into one header file, wrapped in an include
// guard and written atomically.
func (a *app) generate(ctx context.Context, cfg scanner.Config, src, dest string) error {
	si, err := os.Stat(src)
	if err != nil {
		return err
	}
	if a.timestamp {
		if di, err := os.Stat(dest); err == nil && di.ModTime().After(si.ModTime()) {
			cfg.Logger.Debugf("%q is up to date", dest)
			return nil
		}
	}

	f, err := os.Open(src)
	if err != nil {
		return err
	}
	defer f.Close()

	var buf bytes.Buffer
	if a.timestamp {
		fmt.Fprintf(&buf, "/* generated from %s, last modified %s */\n", src, si.ModTime().UTC().Format(time.RFC3339))
	}
	guard := guardName(dest)
	fmt.Fprintf(&buf, "#ifndef %s\n#define %s\n\n", guard, guard)
	if err := scanner.New(cfg, src, f, &buf).Run(ctx); err != nil {
		return err
	}
	fmt.Fprintf(&buf, "\n#endif /* %s */\n", guard)

	if err := os.MkdirAll(filepath.Dir(dest), 0o755); err != nil {
		return err
	}
	return atomicio.WriteFile(dest, buf.Bytes(), 0o644)
}

// single combines every target into the one output file.
func (a *app) single(ctx context.Context, cfg scanner.Config, targets []string) error {
	if a.timestamp && upToDate(a.singleOut, targets) {
		cfg.Logger.Debugf("%q is up to date", a.singleOut)
		return nil
	}

	var buf bytes.Buffer
	guard := guardName(a.singleOut)
	if !a.stripMode {
		fmt.Fprintf(&buf, "#ifndef %s\n#define %s\n\n", guard, guard)
	}
	if err := mergeInto(ctx, cfg, targets, &buf); err != nil {
		return err
	}
	if !a.stripMode {
		fmt.Fprintf(&buf, "\n#endif /* %s */\n", guard)
	}

	if err := os.MkdirAll(filepath.Dir(a.singleOut), 0o755); err != nil {
		return err
	}
	return atomicio.WriteFile(a.singleOut, buf.Bytes(), 0o644)
}

// mergeInto processes targets strictly in order into a shared destination
// stream. The first failing target aborts the remaining sequence.
func mergeInto(ctx context.Context, cfg scanner.Config, targets []string, dst io.Writer) error {
	for _, tgt := range targets {
		f, err := os.Open(tgt)
		if err != nil {
			return err
		}
		err = scanner.New(cfg, tgt, f, dst).Run(ctx)
		f.Close()
		if err != nil {
			return err
		}
	}
	return nil
}

func findSources(root string) ([]string, error) {
	var targets []string
	err := filepath.WalkDir(root, func(path string, d fs.DirEntry, err error) error {
		if err != nil {
			return err
		}
		if !d.IsDir() && filepath.Ext(path) == ".c" {
			targets = append(targets, path)
		}
		return nil
	})
	return targets, err
}

// upToDate reports whether dest is newer than every source.
func upToDate(dest string, srcs []string) bool {
	di, err := os.Stat(dest)
	if err != nil {
		return false
	}
	for _, s := range srcs {
		si, err := os.Stat(s)
		if err != nil || !di.ModTime().After(si.ModTime()) {
			return false
		}
	}
	return true
}

func swapExt(p string) string {
	return strings.TrimSuffix(p, filepath.Ext(p)) + ".h"
}

// guardName derives an include guard from the destination file name:
// "include/foo-bar.h" becomes "FOO_BAR_H".
func guardName(dest string) string {
	base := strings.ToUpper(filepath.Base(dest))
	g := strings.Map(func(r rune) rune {
		switch {
		case r >= 'A' && r <= 'Z', r >= '0' && r <= '9':
			return r
		default:
			return '_'
		}
	}, base)
	if g == "" || g[0] >= '0' && g[0] <= '9' {
		g = "_" + g
	}
	return g
}
