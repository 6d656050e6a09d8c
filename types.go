package main

import (
	"errors"
	"fmt"
)

// FileReport is emitted once per counted file and handed straight to the Reporter.
type FileReport struct {
	RelativePath string `yaml:"file"`
	LinesAdded   int    `yaml:"added"`
	RunningTotal int    `yaml:"total"`
}

// Options is the resolved configuration for a single run.
type Options struct {
	StartPath     string // explicit start directory; empty means use a RootLocator
	Extensions    []string
	LanguagesFile string
	Languages     []string

	Locator     string // "marker" or "git"
	Marker      string
	MaxLevels   int
	EnterMarker bool

	Recursive bool
	GitIgnore bool

	Output      string // "table" or "yaml"
	Clipboard   bool
	NoPause     bool
	Interactive bool
	Verbose     bool
}

var (
	// ErrRootNotFound is returned when no root directory could be located.
	ErrRootNotFound = errors.New("root not found")

	// ErrInvalidEncoding marks a countable file whose content is not valid UTF-8.
	ErrInvalidEncoding = errors.New("invalid UTF-8 content")
)

// IOError reports a file system failure during a traversal.
type IOError struct {
	Op   string // list, stat, open, read or decode
	Path string
	Err  error
}

func (e *IOError) Error() string {
	return fmt.Sprintf("%s %s: %v", e.Op, e.Path, e.Err)
}

func (e *IOError) Unwrap() error { return e.Err }
