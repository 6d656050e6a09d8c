package main

import (
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
)

const (
	locatorMarker = "marker"
	locatorGit    = "git"
)

// RootLocator finds the directory a count starts from.
type RootLocator interface {
	Locate() (string, error)
}

// newLocator picks a locator from the options. An explicit start path wins.
func newLocator(opts Options, cwd string) (RootLocator, error) {
	if opts.StartPath != "" {
		return pathLocator{path: opts.StartPath}, nil
	}
	switch opts.Locator {
	case locatorMarker, "":
		return markerLocator{start: cwd, marker: opts.Marker, maxLevels: opts.MaxLevels, enter: opts.EnterMarker}, nil
	case locatorGit:
		return gitLocator{start: cwd, marker: opts.Marker, enter: opts.EnterMarker}, nil
	default:
		return nil, fmt.Errorf("unsupported locator: %s. Use 'marker' or 'git'", opts.Locator)
	}
}

// pathLocator returns a directory given on the command line.
type pathLocator struct {
	path string
}

func (l pathLocator) Locate() (string, error) {
	info, err := os.Stat(l.path)
	if err != nil {
		return "", &IOError{Op: "stat", Path: l.path, Err: err}
	}
	if !info.IsDir() {
		return "", fmt.Errorf("%s is not a directory", l.path)
	}
	return l.path, nil
}

// markerLocator walks up from start, at most maxLevels directories, looking
// for one that contains a directory named marker.
type markerLocator struct {
	start     string
	marker    string
	maxLevels int
	enter     bool // return the marker directory itself rather than its parent
}

func (l markerLocator) Locate() (string, error) {
	cur := l.start
	for i := 0; i < l.maxLevels; i++ {
		found, err := hasMarkerDir(cur, l.marker)
		if err != nil {
			return "", err
		}
		if found {
			return markerResult(cur, l.marker, l.enter), nil
		}
		cur = filepath.Join(cur, "..")
	}
	return "", fmt.Errorf("%w: %q not found within %d levels of %s", ErrRootNotFound, l.marker, l.maxLevels, l.start)
}

func hasMarkerDir(dir, marker string) (bool, error) {
	info, err := os.Stat(filepath.Join(dir, marker))
	if err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			return false, nil
		}
		return false, &IOError{Op: "stat", Path: filepath.Join(dir, marker), Err: err}
	}
	return info.IsDir(), nil
}

func markerResult(dir, marker string, enter bool) string {
	if enter {
		return filepath.Join(dir, marker)
	}
	return dir
}
