package e2e

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"

	"github.com/xuri/excelize/v2"
	"gopkg.in/yaml.v3"

	"github.com/hyperjump/intently/internal/corpus"
)

// SupportedCorpusExtensions is the list of corpus formats exercised by E2E tests.
var SupportedCorpusExtensions = []string{".json", ".yaml", ".xlsx", ".db"}

// WriteCorpusFile writes examples to dir in the format given by ext and returns the path.
func WriteCorpusFile(dir, ext string, examples []corpus.Example) (string, error) {
	path := filepath.Join(dir, "corpus"+ext)
	switch ext {
	case ".json":
		data, err := json.MarshalIndent(examples, "", "  ")
		if err != nil {
			return "", err
		}
		return path, os.WriteFile(path, data, 0644)
	case ".yaml":
		data, err := yaml.Marshal(examples)
		if err != nil {
			return "", err
		}
		return path, os.WriteFile(path, data, 0644)
	case ".xlsx":
		return path, writeXLSX(path, examples)
	case ".db":
		return path, corpus.SaveSQLite(path, "examples", examples)
	default:
		return "", fmt.Errorf("unsupported extension %q", ext)
	}
}

func writeXLSX(path string, examples []corpus.Example) error {
	f := excelize.NewFile()
	defer f.Close()
	sheet := f.GetSheetName(0)
	if err := f.SetSheetRow(sheet, "A1", &[]interface{}{"text", "label"}); err != nil {
		return err
	}
	for i, ex := range examples {
		cell, err := excelize.CoordinatesToCellName(1, i+2)
		if err != nil {
			return err
		}
		if err := f.SetSheetRow(sheet, cell, &[]interface{}{ex.Text, ex.Label}); err != nil {
			return err
		}
	}
	return f.SaveAs(path)
}
