package main

import (
	"fmt"
	"io"
	"strings"

	"gopkg.in/yaml.v3"
)

const (
	outputTable = "table"
	outputYAML  = "yaml"
)

// Reporter receives the header, one FileReport per counted file, and the final total.
type Reporter interface {
	Header() error
	File(r FileReport) error
	Total(lines int) error
}

// newReporter returns the reporter for the given output format.
func newReporter(format string, w io.Writer) (Reporter, error) {
	switch strings.ToLower(format) {
	case outputTable, "":
		return &tableReporter{w: w}, nil
	case outputYAML:
		return newYAMLReporter(w), nil
	default:
		return nil, fmt.Errorf("unsupported output format: %s. Use 'table' or 'yaml'", format)
	}
}

// tableReporter prints the three-column ADDED / TOTAL / FILE table.
type tableReporter struct {
	w io.Writer
}

func (t *tableReporter) Header() error {
	if _, err := fmt.Fprintf(t.w, "%10s |%10s | %-20s\n", "ADDED", "TOTAL", "FILE"); err != nil {
		return err
	}
	_, err := fmt.Fprintf(t.w, "%s|%s|%s\n", strings.Repeat("-", 11), strings.Repeat("-", 11), strings.Repeat("-", 20))
	return err
}

func (t *tableReporter) File(r FileReport) error {
	_, err := fmt.Fprintf(t.w, "%10d |%10d | %-20s\n", r.LinesAdded, r.RunningTotal, r.RelativePath)
	return err
}

func (t *tableReporter) Total(lines int) error {
	_, err := fmt.Fprintf(t.w, "Total lines: %d\n", lines)
	return err
}

// yamlReporter streams every record as its own YAML document.
type yamlReporter struct {
	enc *yaml.Encoder
}

func newYAMLReporter(w io.Writer) *yamlReporter {
	enc := yaml.NewEncoder(w)
	enc.SetIndent(2)
	return &yamlReporter{enc: enc}
}

func (y *yamlReporter) Header() error { return nil }

func (y *yamlReporter) File(r FileReport) error {
	return y.enc.Encode(r)
}

func (y *yamlReporter) Total(lines int) error {
	if err := y.enc.Encode(struct {
		TotalLines int `yaml:"total_lines"`
	}{lines}); err != nil {
		return err
	}
	return y.enc.Close()
}
