package main

import (
	"bytes"
	"fmt"
	"path/filepath"
	"strings"
	"testing"

	"github.com/spf13/viper"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newTestViper() *viper.Viper {
	v := viper.New()
	setDefaults(v)
	return v
}

func TestLoadOptions_Defaults(t *testing.T) {
	opts, err := loadOptions(newTestViper(), nil)
	require.NoError(t, err)

	assert.Equal(t, []string{"py", "cpp", "h", "hpp"}, opts.Extensions)
	assert.Empty(t, opts.Languages)
	assert.Equal(t, locatorMarker, opts.Locator)
	assert.Equal(t, "apps", opts.Marker)
	assert.Equal(t, 5, opts.MaxLevels)
	assert.True(t, opts.EnterMarker)
	assert.False(t, opts.Recursive)
	assert.Equal(t, outputTable, opts.Output)
	assert.False(t, opts.NoPause)
	assert.Empty(t, opts.StartPath)
}

func TestLoadOptions_OverridesAndArgs(t *testing.T) {
	v := newTestViper()
	v.Set("extensions", []string{"go"})
	v.Set("recursive", true)
	v.Set("output", "YAML")
	v.Set("locator", "Git")
	v.Set("no_pause", true)

	opts, err := loadOptions(v, []string{"some/dir"})
	require.NoError(t, err)
	assert.Equal(t, []string{"go"}, opts.Extensions)
	assert.True(t, opts.Recursive)
	assert.Equal(t, outputYAML, opts.Output)
	assert.Equal(t, locatorGit, opts.Locator)
	assert.True(t, opts.NoPause)
	assert.Equal(t, "some/dir", opts.StartPath)
}

func TestLoadOptions_FromEnv(t *testing.T) {
	t.Setenv("LOC_MAX_LEVELS", "7")
	t.Setenv("LOC_RECURSIVE", "true")

	v := newTestViper()
	v.SetEnvPrefix("LOC")
	v.AutomaticEnv()

	opts, err := loadOptions(v, nil)
	require.NoError(t, err)
	assert.Equal(t, 7, opts.MaxLevels)
	assert.True(t, opts.Recursive)
}

func TestLoadOptions_Invalid(t *testing.T) {
	for key, value := range map[string]any{
		"output":     "xml",
		"locator":    "svn",
		"max_levels": 0,
		"marker":     "",
	} {
		t.Run(key, func(t *testing.T) {
			v := newTestViper()
			v.Set(key, value)
			_, err := loadOptions(v, nil)
			assert.Error(t, err)
		})
	}
}

func TestRun_TableReport(t *testing.T) {
	root := t.TempDir()
	write(t, root, "apps/main.cpp", "a\nb\n")
	write(t, root, "apps/lib/util.h", "a\n")
	write(t, root, "apps/readme.txt", "skip\n")

	opts := Options{
		Extensions:  defaultExtensions,
		Locator:     locatorMarker,
		Marker:      "apps",
		MaxLevels:   5,
		EnterMarker: true,
		Recursive:   true,
		Output:      outputTable,
	}
	var out bytes.Buffer
	err := run(opts, filepath.Join(root, "apps", "lib"), strings.NewReader("\n"), &out)
	require.NoError(t, err)

	lines := strings.Split(out.String(), "\n")
	require.GreaterOrEqual(t, len(lines), 7)
	assert.Equal(t, filepath.Join(root, "apps"), lines[0])
	assert.Equal(t, "     ADDED |     TOTAL | FILE                ", lines[1])
	assert.Equal(t, fmt.Sprintf("%10d |%10d | %-20s", 2, 2, rel("main.cpp")), lines[3])
	assert.Equal(t, fmt.Sprintf("%10d |%10d | %-20s", 1, 3, rel("lib", "util.h")), lines[4])
	assert.Equal(t, "Total lines: 3", lines[5])
	assert.Equal(t, "Press a key to continue...", lines[7])
}

func TestRun_ExplicitPathNonRecursiveNoPause(t *testing.T) {
	root := t.TempDir()
	write(t, root, "a.py", "1\n2\n3\n")
	write(t, root, "sub/b.py", "1\n")

	opts := Options{StartPath: root, MaxLevels: 5, Output: outputTable, NoPause: true}
	var out bytes.Buffer
	require.NoError(t, run(opts, "/", strings.NewReader(""), &out))

	assert.Contains(t, out.String(), "Total lines: 3\n")
	assert.NotContains(t, out.String(), "Press a key")
}

func TestRun_YAMLWithGitIgnore(t *testing.T) {
	root := t.TempDir()
	write(t, root, ".gitignore", "build\n")
	write(t, root, "a.py", "1\n")
	write(t, root, "build/gen.py", "1\n2\n")

	opts := Options{StartPath: root, Output: outputYAML, Recursive: true, GitIgnore: true, NoPause: true}
	var out bytes.Buffer
	require.NoError(t, run(opts, "/", strings.NewReader(""), &out))

	assert.NotContains(t, out.String(), root)
	assert.Contains(t, out.String(), "file: "+rel("a.py"))
	assert.NotContains(t, out.String(), "gen.py")
	assert.Contains(t, out.String(), "total_lines: 1")
}

func TestRun_RootNotFound(t *testing.T) {
	opts := Options{Locator: locatorMarker, Marker: "apps", MaxLevels: 2, Output: outputTable}
	var out bytes.Buffer
	err := run(opts, t.TempDir(), strings.NewReader("\n"), &out)

	assert.ErrorIs(t, err, ErrRootNotFound)
	assert.Empty(t, out.String())
}

func TestRun_FailureShowsNoTotalOrPrompt(t *testing.T) {
	root := t.TempDir()
	write(t, root, "ok.py", "1\n")
	write(t, root, "bad.py", "\xff\n")

	opts := Options{StartPath: root, Output: outputTable}
	var out bytes.Buffer
	err := run(opts, "/", strings.NewReader("\n"), &out)

	assert.ErrorIs(t, err, ErrInvalidEncoding)
	assert.NotContains(t, out.String(), "Total lines")
	assert.NotContains(t, out.String(), "Press a key")
}

func TestWaitForKey(t *testing.T) {
	var out bytes.Buffer
	in := strings.NewReader("\nleftover")
	waitForKey(in, &out)
	assert.Equal(t, "\nPress a key to continue...", out.String())

	// A closed stdin must not block.
	out.Reset()
	waitForKey(strings.NewReader(""), &out)
	assert.Equal(t, "\nPress a key to continue...", out.String())
}
