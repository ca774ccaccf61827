package export

import (
	"fmt"
	"io"

	"github.com/xuri/excelize/v2"
)

const defaultSheetName = "Sheet1"

// WriteXLSX writes records as a single-sheet workbook to w, using the same
// header projection as ConvertToCSV. Numbers and booleans keep their cell
// types and nil values stay blank. An empty input yields a workbook with an
// empty sheet.
func WriteXLSX(w io.Writer, sheet string, records []Record) error {
	f := excelize.NewFile()
	defer f.Close()

	if sheet == "" {
		sheet = defaultSheetName
	}
	if sheet != defaultSheetName {
		if err := f.SetSheetName(defaultSheetName, sheet); err != nil {
			return fmt.Errorf("WriteXLSX: rename sheet: %w", err)
		}
	}

	if len(records) > 0 {
		header := records[0].Keys()

		headerRow := make([]interface{}, len(header))
		for i, name := range header {
			headerRow[i] = name
		}
		if err := f.SetSheetRow(sheet, "A1", &headerRow); err != nil {
			return fmt.Errorf("WriteXLSX: write header: %w", err)
		}

		for n, r := range records {
			row := make([]interface{}, len(header))
			for i, name := range header {
				row[i] = cellValue(r.valueAt(i, name))
			}

			cell, err := excelize.CoordinatesToCellName(1, n+2)
			if err != nil {
				return fmt.Errorf("WriteXLSX: row %d: %w", n, err)
			}
			if err := f.SetSheetRow(sheet, cell, &row); err != nil {
				return fmt.Errorf("WriteXLSX: write row %d: %w", n, err)
			}
		}
	}

	if err := f.Write(w); err != nil {
		return fmt.Errorf("WriteXLSX: write workbook: %w", err)
	}
	return nil
}

// cellValue keeps values excelize stores natively and renders everything else
// through FormatValue.
func cellValue(v interface{}) interface{} {
	switch v.(type) {
	case nil, string, bool, int, int8, int16, int32, int64,
		uint, uint8, uint16, uint32, uint64, float32, float64:
		return v
	}
	s, isNull := FormatValue(v)
	if isNull {
		return nil
	}
	return s
}
