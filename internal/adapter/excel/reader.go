// Package excel reads spreadsheet workbooks into tables, one per sheet.
package excel

import (
	"fmt"
	"io"
	"log/slog"
	"strconv"
	"strings"

	"github.com/xuri/excelize/v2"

	"github.com/couchcryptid/rio-sonora-etl/internal/domain"
	"github.com/couchcryptid/rio-sonora-etl/internal/table"
)

const dateLayout = "2006-01-02"

// Reader loads every sheet of a workbook. The first row of each sheet is the
// header. A column whose non-empty cells all parse as numbers becomes a float
// column; any other column is text.
type Reader struct {
	logger *slog.Logger

	// DateColumns hold Excel serial dates, rewritten as YYYY-MM-DD text.
	DateColumns []string
}

// NewReader creates a workbook reader.
func NewReader(logger *slog.Logger, dateColumns ...string) *Reader {
	return &Reader{logger: logger, DateColumns: dateColumns}
}

// ReadFile opens the workbook at path and returns its sheets in workbook
// order.
func (r *Reader) ReadFile(path string) ([]*table.Table, error) {
	f, err := excelize.OpenFile(path)
	if err != nil {
		return nil, &domain.MalformedSourceError{Source: path, Reason: "not a readable workbook", Err: err}
	}
	defer f.Close()

	return r.read(f, path)
}

// Read is ReadFile for an already opened stream.
func (r *Reader) Read(src io.Reader, name string) ([]*table.Table, error) {
	f, err := excelize.OpenReader(src)
	if err != nil {
		return nil, &domain.MalformedSourceError{Source: name, Reason: "not a readable workbook", Err: err}
	}
	defer f.Close()

	return r.read(f, name)
}

func (r *Reader) read(f *excelize.File, name string) ([]*table.Table, error) {
	sheets := f.GetSheetList()
	out := make([]*table.Table, 0, len(sheets))
	for _, sheet := range sheets {
		rows, err := f.GetRows(sheet, excelize.Options{RawCellValue: true})
		if err != nil {
			return nil, &domain.MalformedSourceError{Source: name, Reason: "read sheet " + strconv.Quote(sheet), Err: err}
		}
		t, err := r.sheetTable(f, name, sheet, rows)
		if err != nil {
			return nil, err
		}
		r.logger.Debug("sheet read", "source", name, "sheet", sheet, "rows", t.Len(), "columns", t.Width())
		out = append(out, t)
	}
	r.logger.Info("workbook read", "source", name, "sheets", len(out))
	return out, nil
}

func (r *Reader) sheetTable(f *excelize.File, name, sheet string, rows [][]string) (*table.Table, error) {
	if len(rows) == 0 {
		return table.New()
	}

	header := headerNames(rows[0])
	body := make([][]string, 0, len(rows)-1)
	for i, row := range rows[1:] {
		if blank(row) {
			continue
		}
		if len(row) > len(header) && !blank(row[len(header):]) {
			return nil, &domain.MalformedSourceError{
				Source: name,
				Reason: fmt.Sprintf("sheet %q row %d has %d cells for %d columns", sheet, i+2, len(row), len(header)),
			}
		}
		body = append(body, row)
	}

	t, err := table.New(header...)
	if err != nil {
		return nil, err
	}

	numeric := make([]bool, len(header))
	dates := make([]bool, len(header))
	for j, h := range header {
		numeric[j] = numericColumn(body, j)
		for _, d := range r.DateColumns {
			dates[j] = dates[j] || h == d
		}
	}

	date1904 := false
	if props, err := f.GetWorkbookProps(); err == nil && props.Date1904 != nil {
		date1904 = *props.Date1904
	}

	vals := make([]table.Value, len(header))
	for _, row := range body {
		for j := range header {
			vals[j] = cellValue(cell(row, j), numeric[j], dates[j], date1904)
		}
		if err := t.Append(vals...); err != nil {
			return nil, err
		}
	}
	return t, nil
}

func cellValue(raw string, numeric, date, date1904 bool) table.Value {
	if strings.TrimSpace(raw) == "" {
		return table.Null()
	}
	if date {
		if serial, err := strconv.ParseFloat(raw, 64); err == nil {
			if tm, err := excelize.ExcelDateToTime(serial, date1904); err == nil {
				return table.Str(tm.Format(dateLayout))
			}
		}
		return table.Str(raw)
	}
	if numeric {
		f, _ := strconv.ParseFloat(strings.TrimSpace(raw), 64)
		return table.Float(f)
	}
	return table.Str(raw)
}

func numericColumn(body [][]string, j int) bool {
	seen := false
	for _, row := range body {
		c := strings.TrimSpace(cell(row, j))
		if c == "" {
			continue
		}
		if _, err := strconv.ParseFloat(c, 64); err != nil {
			return false
		}
		seen = true
	}
	return seen
}

// headerNames fills unnamed columns and suffixes repeats with .1, .2, ...
func headerNames(raw []string) []string {
	names := make([]string, len(raw))
	used := make(map[string]bool, len(raw))
	for i, h := range raw {
		if strings.TrimSpace(h) == "" {
			h = "Unnamed: " + strconv.Itoa(i)
		}
		name := h
		for n := 1; used[name]; n++ {
			name = h + "." + strconv.Itoa(n)
		}
		used[name] = true
		names[i] = name
	}
	return names
}

func cell(row []string, j int) string {
	if j < len(row) {
		return row[j]
	}
	return ""
}

func blank(cells []string) bool {
	for _, c := range cells {
		if strings.TrimSpace(c) != "" {
			return false
		}
	}
	return true
}
