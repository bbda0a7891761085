package corpus

import (
	"fmt"
	"strings"

	"github.com/xuri/excelize/v2"
)

// LoadXLSX reads examples from the first two columns (text, label) of a sheet.
// A first row reading "text", "label" (any case) is treated as a header and skipped.
func LoadXLSX(path, sheet string) ([]Example, error) {
	f, err := excelize.OpenFile(path)
	if err != nil {
		return nil, fmt.Errorf("open spreadsheet: %w", err)
	}
	defer f.Close()

	if sheet == "" {
		sheets := f.GetSheetList()
		if len(sheets) == 0 {
			return nil, nil
		}
		sheet = sheets[0]
	}
	rows, err := f.GetRows(sheet)
	if err != nil {
		return nil, fmt.Errorf("get rows for sheet %q: %w", sheet, err)
	}

	var examples []Example
	for i, row := range rows {
		if len(row) < 2 {
			if len(strings.Join(row, "")) == 0 {
				continue
			}
			return nil, fmt.Errorf("sheet %q row %d: expected text and label columns", sheet, i+1)
		}
		text, label := strings.TrimSpace(row[0]), strings.TrimSpace(row[1])
		if i == 0 && strings.EqualFold(text, "text") && strings.EqualFold(label, "label") {
			continue
		}
		examples = append(examples, Example{Text: text, Label: label})
	}
	if err := validate(examples); err != nil {
		return nil, err
	}
	return examples, nil
}
