package export

import (
	"io"

	"github.com/xuri/excelize/v2"

	"sofdesk/internal/domain"
)

// SheetName is the worksheet holding the result set.
const SheetName = "Processed Data"

// BuildWorkbook lays records out on a single sheet: a bold header row from
// Header, then one row per record.
func BuildWorkbook(records []*domain.Record) (*excelize.File, error) {
	if len(records) == 0 {
		return nil, domain.ErrEmptyExport
	}

	f := excelize.NewFile()
	if err := f.SetSheetName("Sheet1", SheetName); err != nil {
		_ = f.Close()
		return nil, err
	}

	header := Header(records)
	headerRow := make([]interface{}, len(header))
	for i, h := range header {
		headerRow[i] = h
	}
	if err := f.SetSheetRow(SheetName, "A1", &headerRow); err != nil {
		_ = f.Close()
		return nil, err
	}

	headerStyle, err := f.NewStyle(&excelize.Style{
		Font:      &excelize.Font{Bold: true},
		Fill:      excelize.Fill{Type: "pattern", Color: []string{"#E2E8F0"}, Pattern: 1},
		Alignment: &excelize.Alignment{Horizontal: "center"},
	})
	if err != nil {
		_ = f.Close()
		return nil, err
	}
	if err := f.SetRowStyle(SheetName, 1, 1, headerStyle); err != nil {
		_ = f.Close()
		return nil, err
	}

	for i, r := range records {
		cells := recordToRow(r, header)
		row := make([]interface{}, len(cells))
		for j, c := range cells {
			row[j] = c
		}
		cell, err := excelize.CoordinatesToCellName(1, i+2)
		if err != nil {
			_ = f.Close()
			return nil, err
		}
		if err := f.SetSheetRow(SheetName, cell, &row); err != nil {
			_ = f.Close()
			return nil, err
		}
	}

	if err := f.SetPanes(SheetName, &excelize.Panes{
		Freeze:      true,
		YSplit:      1,
		TopLeftCell: "A2",
		ActivePane:  "bottomLeft",
	}); err != nil {
		_ = f.Close()
		return nil, err
	}

	return f, nil
}

// WriteWorkbook writes the XLSX workbook for records to out.
func WriteWorkbook(out io.Writer, records []*domain.Record) error {
	f, err := BuildWorkbook(records)
	if err != nil {
		return err
	}
	defer func() { _ = f.Close() }()
	return f.Write(out)
}
