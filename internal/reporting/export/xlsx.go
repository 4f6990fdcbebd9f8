package export

import (
	"fmt"
	"io"

	"github.com/xuri/excelize/v2"
)

// WriteXLSX writes each table to its own worksheet.
func WriteXLSX(w io.Writer, tables ...Table) error {
	if len(tables) == 0 {
		return fmt.Errorf("export: no tables to write")
	}
	f := excelize.NewFile()
	defer func() { _ = f.Close() }()

	bold, err := f.NewStyle(&excelize.Style{Font: &excelize.Font{Bold: true}})
	if err != nil {
		return fmt.Errorf("export: header style: %w", err)
	}
	amount, err := f.NewStyle(&excelize.Style{NumFmt: 4})
	if err != nil {
		return fmt.Errorf("export: amount style: %w", err)
	}

	for i, t := range tables {
		sheet := t.Name
		if i == 0 {
			if err := f.SetSheetName("Sheet1", sheet); err != nil {
				return fmt.Errorf("export: rename sheet: %w", err)
			}
		} else if _, err := f.NewSheet(sheet); err != nil {
			return fmt.Errorf("export: new sheet %s: %w", sheet, err)
		}
		if err := writeSheet(f, sheet, t, bold, amount); err != nil {
			return err
		}
	}
	if _, err := f.WriteTo(w); err != nil {
		return fmt.Errorf("export: write xlsx: %w", err)
	}
	return nil
}

func writeSheet(f *excelize.File, sheet string, t Table, headerStyle, amountStyle int) error {
	header := make([]any, len(t.Header))
	for i, h := range t.Header {
		header[i] = h
	}
	if err := f.SetSheetRow(sheet, "A1", &header); err != nil {
		return fmt.Errorf("export: %s header: %w", sheet, err)
	}
	last, _ := excelize.CoordinatesToCellName(len(t.Header), 1)
	if err := f.SetCellStyle(sheet, "A1", last, headerStyle); err != nil {
		return err
	}

	for r, row := range t.Rows {
		cell, _ := excelize.CoordinatesToCellName(1, r+2)
		values := append([]any(nil), row...)
		if err := f.SetSheetRow(sheet, cell, &values); err != nil {
			return fmt.Errorf("export: %s row %d: %w", sheet, r+1, err)
		}
		for c, v := range row {
			if _, ok := v.(float64); !ok {
				continue
			}
			name, _ := excelize.CoordinatesToCellName(c+1, r+2)
			if err := f.SetCellStyle(sheet, name, name, amountStyle); err != nil {
				return err
			}
		}
	}

	for i := range t.Header {
		col, _ := excelize.ColumnNumberToName(i + 1)
		if err := f.SetColWidth(sheet, col, col, 18); err != nil {
			return err
		}
	}
	return nil
}
