// Package corpus loads labeled example texts used to build an intent index.
package corpus

import (
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"gopkg.in/yaml.v3"
)

// ErrUnsupportedFormat is returned for corpus files with an unknown extension.
var ErrUnsupportedFormat = errors.New("unsupported corpus format")

// Example is one labeled utterance.
type Example struct {
	Text  string `json:"text" yaml:"text"`
	Label string `json:"label" yaml:"label"`
}

// Options selects the part of a corpus file to read.
type Options struct {
	// Sheet is the spreadsheet to read for .xlsx corpora; empty means the first sheet.
	Sheet string
	// Table is the SQLite table holding text and label columns; empty means "examples".
	Table string
}

// Load reads examples from path. The format is chosen by extension:
// .json (array of {"text","label"}), .yaml/.yml, .xlsx and .db/.sqlite/.sqlite3.
// Rows are returned in file order; duplicates are kept.
func Load(path string, opts Options) ([]Example, error) {
	switch strings.ToLower(filepath.Ext(path)) {
	case ".json":
		return loadJSON(path)
	case ".yaml", ".yml":
		return loadYAML(path)
	case ".xlsx":
		return LoadXLSX(path, opts.Sheet)
	case ".db", ".sqlite", ".sqlite3":
		return LoadSQLite(path, opts.Table)
	default:
		return nil, fmt.Errorf("%w: %s", ErrUnsupportedFormat, path)
	}
}

func loadJSON(path string) ([]Example, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read corpus: %w", err)
	}
	var examples []Example
	if err := json.Unmarshal(data, &examples); err != nil {
		return nil, fmt.Errorf("parse corpus: %w", err)
	}
	if err := validate(examples); err != nil {
		return nil, err
	}
	return examples, nil
}

func loadYAML(path string) ([]Example, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read corpus: %w", err)
	}
	var examples []Example
	if err := yaml.Unmarshal(data, &examples); err != nil {
		return nil, fmt.Errorf("parse corpus: %w", err)
	}
	if err := validate(examples); err != nil {
		return nil, err
	}
	return examples, nil
}

func validate(examples []Example) error {
	for i, ex := range examples {
		if strings.TrimSpace(ex.Text) == "" {
			return fmt.Errorf("example %d: empty text", i)
		}
		if strings.TrimSpace(ex.Label) == "" {
			return fmt.Errorf("example %d: empty label", i)
		}
	}
	return nil
}

// Labels counts examples per label.
func Labels(examples []Example) map[string]int {
	counts := make(map[string]int)
	for _, ex := range examples {
		counts[ex.Label]++
	}
	return counts
}
