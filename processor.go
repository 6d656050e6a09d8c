package main

import (
	"errors"
	"fmt"
	"io"
	"io/fs"
	"os"
	"path/filepath"
	"unicode/utf8"

	gitignore "github.com/monochromegane/go-gitignore"
	"github.com/sirupsen/logrus"
)

// LineCounter walks a directory, counts lines in source files and reports
// each counted file together with the running total.
type LineCounter struct {
	Matcher   *ExtensionSet
	Reporter  Reporter
	Recursive bool
	Ignore    gitignore.IgnoreMatcher // optional
	Log       logrus.FieldLogger

	// openFile is swapped in tests to simulate files vanishing after listing.
	openFile func(name string) (io.ReadCloser, error)

	// visited holds the resolved path of every directory entered during one
	// Count call so linked directories that loop back are not walked twice.
	visited map[string]bool
}

// Count traverses start and returns the total number of lines in every
// countable file. On any failure no total is returned.
func (c *LineCounter) Count(start string) (int, error) {
	c.visited = make(map[string]bool)
	defer func() { c.visited = nil }()

	total, err := c.countlines(start, 0, true, "")
	if err != nil {
		return 0, err
	}
	return total, nil
}

// countlines processes the files directly inside start, then, when recursive,
// descends into its directories. displayRoot is the top-level start that
// reported paths are made relative to; empty means start itself.
func (c *LineCounter) countlines(start string, lines int, header bool, displayRoot string) (int, error) {
	if header {
		if err := c.Reporter.Header(); err != nil {
			return 0, err
		}
	}
	if displayRoot == "" {
		displayRoot = start
	}

	entries, err := listDir(start)
	if err != nil {
		return 0, err
	}

	// A directory reached again through a symlink has already been counted.
	first, err := c.enter(start)
	if err != nil {
		return 0, err
	}
	if !first {
		c.logger().WithField("path", start).Debug("skipping already visited directory")
		return lines, nil
	}

	for _, entry := range entries {
		path := filepath.Join(start, entry.Name())

		// 1. Regular files only. Stat follows symlinks, so a link to a
		// regular file is counted; a dangling link is simply not a file.
		info, err := os.Stat(path)
		if err != nil {
			if errors.Is(err, fs.ErrNotExist) {
				c.logger().WithField("path", path).Debug("skipping dangling entry")
				continue
			}
			return 0, &IOError{Op: "stat", Path: path, Err: err}
		}
		if !info.Mode().IsRegular() {
			continue // directories are handled below when recursive
		}

		// 2. Source extension
		if !c.Matcher.IsSourceFile(entry.Name()) {
			c.logger().WithField("path", path).Debug("skipping non-source file")
			continue
		}

		// 3. .gitignore
		if c.Ignore != nil && c.Ignore.Match(path, false) {
			c.logger().WithField("path", path).Debug("skipping ignored file")
			continue
		}

		// Count, accumulate and report straight away.
		added, err := c.countFile(path)
		if err != nil {
			return 0, err
		}
		lines += added

		rel, err := relativeTo(displayRoot, path)
		if err != nil {
			return 0, err
		}
		if err := c.Reporter.File(FileReport{RelativePath: rel, LinesAdded: added, RunningTotal: lines}); err != nil {
			return 0, err
		}
	}

	if !c.Recursive {
		return lines, nil
	}

	// Second pass over the same listing: descend into directories, following
	// symlinks. Reports stay relative to the top-level start.
	for _, entry := range entries {
		path := filepath.Join(start, entry.Name())
		info, err := os.Stat(path)
		if err != nil {
			if errors.Is(err, fs.ErrNotExist) {
				continue
			}
			return 0, &IOError{Op: "stat", Path: path, Err: err}
		}
		if !info.IsDir() {
			continue
		}
		if c.Ignore != nil && c.Ignore.Match(path, true) {
			c.logger().WithField("path", path).Debug("skipping ignored directory")
			continue
		}
		c.logger().WithField("path", path).Debug("descending")
		lines, err = c.countlines(path, lines, false, displayRoot)
		if err != nil {
			return 0, err
		}
	}
	return lines, nil
}

// enter records dir as visited. It returns false when the directory it
// resolves to was already entered during this Count.
func (c *LineCounter) enter(dir string) (bool, error) {
	real, err := filepath.EvalSymlinks(dir)
	if err != nil {
		return false, &IOError{Op: "stat", Path: dir, Err: err}
	}
	if real, err = filepath.Abs(real); err != nil {
		return false, &IOError{Op: "stat", Path: dir, Err: err}
	}
	if c.visited == nil {
		c.visited = make(map[string]bool)
	}
	if c.visited[real] {
		return false, nil
	}
	c.visited[real] = true
	return true, nil
}

// countFile reads a whole file and returns its line count.
func (c *LineCounter) countFile(path string) (int, error) {
	open := c.openFile
	if open == nil {
		open = func(name string) (io.ReadCloser, error) { return os.Open(name) }
	}

	f, err := open(path)
	if err != nil {
		return 0, &IOError{Op: "open", Path: path, Err: err}
	}
	defer f.Close()

	content, err := io.ReadAll(f)
	if err != nil {
		return 0, &IOError{Op: "read", Path: path, Err: err}
	}
	if !utf8.Valid(content) {
		return 0, &IOError{Op: "decode", Path: path, Err: ErrInvalidEncoding}
	}
	return countLines(content), nil
}

func (c *LineCounter) logger() logrus.FieldLogger {
	if c.Log == nil {
		return logrus.StandardLogger()
	}
	return c.Log
}

// listDir returns the entries of dir in the order the file system yields them.
// os.ReadDir would sort them by name.
func listDir(dir string) ([]os.DirEntry, error) {
	d, err := os.Open(dir)
	if err != nil {
		return nil, &IOError{Op: "list", Path: dir, Err: err}
	}
	defer d.Close()

	entries, err := d.ReadDir(-1)
	if err != nil {
		return nil, &IOError{Op: "list", Path: dir, Err: err}
	}
	return entries, nil
}

// countLines counts lines the way a universal-newline reader splits them:
// "\n", "\r\n" and a lone "\r" each end a line, and a trailing unterminated
// line counts as one.
func countLines(content []byte) int {
	n := 0
	for i := 0; i < len(content); i++ {
		switch content[i] {
		case '\n':
			n++
		case '\r':
			n++
			if i+1 < len(content) && content[i+1] == '\n' {
				i++
			}
		}
	}
	if len(content) > 0 {
		if last := content[len(content)-1]; last != '\n' && last != '\r' {
			n++
		}
	}
	return n
}

// relativeTo renders path relative to root in the "./sub/file.py" form.
func relativeTo(root, path string) (string, error) {
	rel, err := filepath.Rel(root, path)
	if err != nil {
		return "", fmt.Errorf("error making %s relative to %s: %w", path, root, err)
	}
	return "." + string(filepath.Separator) + rel, nil
}

// loadIgnoreMatcher loads root/.gitignore. It returns nil when the file does not exist.
func loadIgnoreMatcher(root string) (gitignore.IgnoreMatcher, error) {
	gitIgnorePath := filepath.Join(root, ".gitignore")
	if _, err := os.Stat(gitIgnorePath); err != nil {
		if os.IsNotExist(err) {
			return nil, nil
		}
		return nil, &IOError{Op: "stat", Path: gitIgnorePath, Err: err}
	}
	matcher, err := gitignore.NewGitIgnore(gitIgnorePath)
	if err != nil {
		return nil, fmt.Errorf("could not parse .gitignore file %s: %w", gitIgnorePath, err)
	}
	return matcher, nil
}
