package main

import (
	"fmt"

	"github.com/go-git/go-git/v5"
)

// gitLocator uses the root of the enclosing Git worktree, optionally
// descending into the marker directory inside it.
type gitLocator struct {
	start  string
	marker string
	enter  bool
}

func (l gitLocator) Locate() (string, error) {
	repo, err := git.PlainOpenWithOptions(l.start, &git.PlainOpenOptions{DetectDotGit: true})
	if err != nil {
		return "", fmt.Errorf("%w: no git repository at or above %s: %w", ErrRootNotFound, l.start, err)
	}
	wt, err := repo.Worktree()
	if err != nil {
		return "", fmt.Errorf("%w: repository above %s has no worktree: %w", ErrRootNotFound, l.start, err)
	}
	root := wt.Filesystem.Root()

	if l.marker == "" {
		return root, nil
	}
	found, err := hasMarkerDir(root, l.marker)
	if err != nil {
		return "", err
	}
	if !found {
		return "", fmt.Errorf("%w: %q not found in repository root %s", ErrRootNotFound, l.marker, root)
	}
	return markerResult(root, l.marker, l.enter), nil
}
