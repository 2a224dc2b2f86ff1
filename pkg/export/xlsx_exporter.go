package export

import (
	"fmt"

	"github.com/xuri/excelize/v2"
)

// XLSXExporter renders timetable documents into a spreadsheet with one
// sheet per day (or exam date).
type XLSXExporter struct{}

// NewXLSXExporter constructs an XLSX exporter.
func NewXLSXExporter() *XLSXExporter {
	return &XLSXExporter{}
}

// RenderSheets writes one sheet per key, in the given order. The first key
// replaces the default sheet so the workbook never carries an empty "Sheet1".
func (e *XLSXExporter) RenderSheets(title string, keys []string, sheets map[string]Dataset) ([]byte, error) {
	if len(keys) == 0 {
		return nil, fmt.Errorf("xlsx requires at least one sheet")
	}

	f := excelize.NewFile()
	defer f.Close() //nolint:errcheck

	for i, key := range keys {
		data, ok := sheets[key]
		if !ok {
			data = Dataset{}
		}
		sheet := sanitizeSheetName(key)
		if i == 0 {
			if err := f.SetSheetName("Sheet1", sheet); err != nil {
				return nil, fmt.Errorf("rename sheet: %w", err)
			}
		} else {
			if _, err := f.NewSheet(sheet); err != nil {
				return nil, fmt.Errorf("create sheet %s: %w", sheet, err)
			}
		}

		rowIdx := 1
		if title != "" {
			cell, _ := excelize.CoordinatesToCellName(1, rowIdx)
			if err := f.SetCellValue(sheet, cell, title); err != nil {
				return nil, fmt.Errorf("write title: %w", err)
			}
			rowIdx += 2
		}

		headerRow := make([]interface{}, len(data.Headers))
		for j, header := range data.Headers {
			headerRow[j] = header
		}
		if len(headerRow) > 0 {
			cell, _ := excelize.CoordinatesToCellName(1, rowIdx)
			if err := f.SetSheetRow(sheet, cell, &headerRow); err != nil {
				return nil, fmt.Errorf("write headers: %w", err)
			}
			rowIdx++
		}

		for _, row := range data.Rows {
			record := make([]interface{}, len(data.Headers))
			for j, header := range data.Headers {
				record[j] = row[header]
			}
			cell, _ := excelize.CoordinatesToCellName(1, rowIdx)
			if err := f.SetSheetRow(sheet, cell, &record); err != nil {
				return nil, fmt.Errorf("write row: %w", err)
			}
			rowIdx++
		}
	}

	buf, err := f.WriteToBuffer()
	if err != nil {
		return nil, fmt.Errorf("render xlsx: %w", err)
	}
	return buf.Bytes(), nil
}

// sanitizeSheetName keeps sheet names within Excel's 31-character limit and
// strips characters Excel rejects.
func sanitizeSheetName(name string) string {
	replaced := make([]rune, 0, len(name))
	for _, r := range name {
		switch r {
		case ':', '\\', '/', '?', '*', '[', ']':
			replaced = append(replaced, '-')
		default:
			replaced = append(replaced, r)
		}
	}
	if len(replaced) > 31 {
		replaced = replaced[:31]
	}
	if len(replaced) == 0 {
		return "Sheet"
	}
	return string(replaced)
}
