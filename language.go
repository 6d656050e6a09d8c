package main

import (
	"fmt"
	"os"
	"sort"
	"strings"

	"gopkg.in/yaml.v3"
)

// defaultExtensions are counted when no other extensions are configured.
var defaultExtensions = []string{"py", "cpp", "h", "hpp"}

// ExtensionSet decides whether a file name is source code to be counted.
// Matching is a case-sensitive suffix test against "." + ext.
type ExtensionSet struct {
	suffixes []string
}

// NewExtensionSet builds a set from extensions given with or without the leading dot.
func NewExtensionSet(exts ...string) *ExtensionSet {
	seen := make(map[string]bool, len(exts))
	set := &ExtensionSet{}
	for _, ext := range exts {
		ext = strings.TrimPrefix(strings.TrimSpace(ext), ".")
		if ext == "" || seen[ext] {
			continue
		}
		seen[ext] = true
		set.suffixes = append(set.suffixes, "."+ext)
	}
	return set
}

// IsSourceFile reports whether name ends with one of the configured extensions.
func (s *ExtensionSet) IsSourceFile(name string) bool {
	if s == nil {
		return false
	}
	for _, suffix := range s.suffixes {
		if strings.HasSuffix(name, suffix) {
			return true
		}
	}
	return false
}

// Extensions returns the configured extensions without their dots.
func (s *ExtensionSet) Extensions() []string {
	exts := make([]string, 0, len(s.suffixes))
	for _, suffix := range s.suffixes {
		exts = append(exts, suffix[1:])
	}
	return exts
}

// LanguageInfo holds the extensions for one named language group.
type LanguageInfo struct {
	Extensions []string `yaml:"extensions"`
}

// LanguageMap maps language names (e.g., "C++") to their details.
type LanguageMap map[string]LanguageInfo

// loadLanguageMap reads a YAML language definitions file.
func loadLanguageMap(path string) (LanguageMap, error) {
	yamlFile, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("error reading language file %s: %w", path, err)
	}

	var langs LanguageMap
	if err := yaml.Unmarshal(yamlFile, &langs); err != nil {
		return nil, fmt.Errorf("error parsing language file %s: %w", path, err)
	}
	return langs, nil
}

// Select returns the union of the extensions of the named languages.
func (lm LanguageMap) Select(names []string) ([]string, error) {
	var exts []string
	for _, name := range names {
		info, ok := lm[name]
		if !ok {
			return nil, fmt.Errorf("unknown language %q (known: %s)", name, strings.Join(lm.names(), ", "))
		}
		exts = append(exts, info.Extensions...)
	}
	return exts, nil
}

func (lm LanguageMap) names() []string {
	names := make([]string, 0, len(lm))
	for name := range lm {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

// buildExtensionSet resolves the configured extensions, preferring selected
// language groups over the plain extension list.
func buildExtensionSet(opts Options) (*ExtensionSet, error) {
	if len(opts.Languages) == 0 {
		if len(opts.Extensions) == 0 {
			return NewExtensionSet(defaultExtensions...), nil
		}
		return NewExtensionSet(opts.Extensions...), nil
	}

	if opts.LanguagesFile == "" {
		return nil, fmt.Errorf("languages %v selected but no languages file configured", opts.Languages)
	}
	langs, err := loadLanguageMap(opts.LanguagesFile)
	if err != nil {
		return nil, err
	}
	exts, err := langs.Select(opts.Languages)
	if err != nil {
		return nil, err
	}
	return NewExtensionSet(exts...), nil
}
