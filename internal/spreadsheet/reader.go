// Package spreadsheet converts uploaded workbooks to flat text and renders
// validation results back into a workbook.
package spreadsheet

import (
	"bytes"
	"encoding/csv"
	"errors"
	"fmt"
	"io"
	"strings"

	"github.com/extrame/xls"
	"github.com/tealeg/xlsx"
)

// FileType is a supported upload format.
type FileType string

// Supported upload formats.
const (
	XLSX FileType = "xlsx"
	XLS  FileType = "xls"
	CSV  FileType = "csv"
)

// SupportedTypes lists the accepted formats in display order.
var SupportedTypes = []FileType{XLSX, XLS, CSV}

// MIMETypes maps each format to the content types it is recognised by.
var MIMETypes = map[FileType][]string{
	XLSX: {"application/vnd.openxmlformats-officedocument.spreadsheetml.sheet"},
	XLS:  {"application/vnd.ms-excel"},
	CSV:  {"text/csv", "application/csv"},
}

// ErrUnsupportedType is returned for a FileType outside SupportedTypes.
var ErrUnsupportedType = errors.New("unsupported file type")

// ReadText flattens every sheet of the workbook in data into CSV-like text:
// one line per row, cells joined by commas, sheets concatenated in order.
func ReadText(data []byte, ft FileType) (string, error) {
	var rows [][]string
	var err error
	switch ft {
	case XLSX:
		rows, err = readXLSX(data)
	case XLS:
		rows, err = readXLS(data)
	case CSV:
		rows, err = readCSV(data)
	default:
		return "", fmt.Errorf("%w: %q", ErrUnsupportedType, ft)
	}
	if err != nil {
		return "", err
	}

	var b strings.Builder
	for _, row := range rows {
		b.WriteString(strings.Join(row, ","))
		b.WriteByte('\n')
	}
	return b.String(), nil
}

func readXLSX(data []byte) ([][]string, error) {
	file, err := xlsx.OpenBinary(data)
	if err != nil {
		return nil, fmt.Errorf("opening xlsx workbook: %w", err)
	}
	var rows [][]string
	for _, sheet := range file.Sheets {
		for _, row := range sheet.Rows {
			if row == nil {
				continue
			}
			cells := make([]string, 0, len(row.Cells))
			for _, cell := range row.Cells {
				if cell == nil {
					cells = append(cells, "")
					continue
				}
				cells = append(cells, cell.String())
			}
			rows = append(rows, cells)
		}
	}
	return rows, nil
}

func readXLS(data []byte) ([][]string, error) {
	wb, err := xls.OpenReader(bytes.NewReader(data), "utf-8")
	if err != nil {
		return nil, fmt.Errorf("opening xls workbook: %w", err)
	}
	var rows [][]string
	for i := 0; i < wb.NumSheets(); i++ {
		sheet := wb.GetSheet(i)
		if sheet == nil {
			continue
		}
		for r := 0; r <= int(sheet.MaxRow); r++ {
			row := sheet.Row(r)
			if row == nil {
				continue
			}
			cells := make([]string, 0, row.LastCol())
			for c := row.FirstCol(); c < row.LastCol(); c++ {
				cells = append(cells, row.Col(c))
			}
			rows = append(rows, cells)
		}
	}
	return rows, nil
}

func readCSV(data []byte) ([][]string, error) {
	r := csv.NewReader(bytes.NewReader(bytes.TrimPrefix(data, []byte("\xef\xbb\xbf"))))
	r.FieldsPerRecord = -1
	r.LazyQuotes = true
	r.TrimLeadingSpace = true

	var rows [][]string
	for {
		rec, err := r.Read()
		if errors.Is(err, io.EOF) {
			break
		}
		if err != nil {
			return nil, fmt.Errorf("reading csv: %w", err)
		}
		rows = append(rows, rec)
	}
	return rows, nil
}
