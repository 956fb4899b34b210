package sheet

import (
	"bytes"
	"errors"
	"fmt"
	"io"
	"path/filepath"
	"strconv"
	"strings"
	"time"

	"github.com/extrame/xls"
	"github.com/xuri/excelize/v2"

	"github.com/phillip-england/lmsportal/internal/api"
	"github.com/phillip-england/lmsportal/internal/view"
)

const (
	historySheet   = "Leave History"
	employeesSheet = "Employees"
	maxImportRows  = 100000
)

var (
	historyColumns   = []string{"Title", "Start Date", "End Date", "Days", "Status", "Description"}
	employeesColumns = []string{"Employee ID", "Name", "Email", "Department", "Status"}
)

// WriteLeaveHistory writes the leaves as an .xlsx workbook.
func WriteLeaveHistory(w io.Writer, leaves []api.Leave) error {
	rows := make([][]any, 0, len(leaves))
	for _, l := range leaves {
		title := l.Title
		if strings.TrimSpace(title) == "" {
			title = view.DefaultTitle
		}
		var days any = l.Days
		if n, err := strconv.Atoi(l.Days); err == nil {
			days = n
		}
		status := string(l.Status)
		if status == "" {
			status = string(api.StatusPending)
		}
		rows = append(rows, []any{title, l.StartDate, l.EndDate, days, status, l.Description})
	}
	return writeWorkbook(w, historySheet, historyColumns, rows)
}

// WriteEmployees writes the HR roster as an .xlsx workbook.
func WriteEmployees(w io.Writer, records []api.EmployeeRecord) error {
	rows := make([][]any, 0, len(records))
	for _, r := range records {
		status := r.Status
		if status == "" {
			status = "Active"
		}
		rows = append(rows, []any{r.EmployeeID, r.Name, r.Email, r.Department, status})
	}
	return writeWorkbook(w, employeesSheet, employeesColumns, rows)
}

func writeWorkbook(w io.Writer, sheetName string, header []string, rows [][]any) error {
	f := excelize.NewFile()
	defer func() { _ = f.Close() }()

	if err := f.SetSheetName(f.GetSheetName(0), sheetName); err != nil {
		return fmt.Errorf("rename sheet: %w", err)
	}

	headerRow := make([]any, len(header))
	for i, h := range header {
		headerRow[i] = h
	}
	if err := f.SetSheetRow(sheetName, "A1", &headerRow); err != nil {
		return fmt.Errorf("write header: %w", err)
	}
	bold, err := f.NewStyle(&excelize.Style{Font: &excelize.Font{Bold: true}})
	if err != nil {
		return fmt.Errorf("create header style: %w", err)
	}
	lastCol, err := excelize.ColumnNumberToName(len(header))
	if err != nil {
		return err
	}
	if err := f.SetCellStyle(sheetName, "A1", lastCol+"1", bold); err != nil {
		return fmt.Errorf("style header: %w", err)
	}

	for i, row := range rows {
		cell, err := excelize.CoordinatesToCellName(1, i+2)
		if err != nil {
			return err
		}
		if err := f.SetSheetRow(sheetName, cell, &row); err != nil {
			return fmt.Errorf("write row %d: %w", i+2, err)
		}
	}
	if err := f.SetColWidth(sheetName, "A", lastCol, 18); err != nil {
		return err
	}

	if _, err := f.WriteTo(w); err != nil {
		return fmt.Errorf("write workbook: %w", err)
	}
	return nil
}

// ReadRows returns the cells of the single worksheet in an .xls or .xlsx file.
func ReadRows(reader io.Reader, filename string) ([][]string, error) {
	data, err := io.ReadAll(reader)
	if err != nil {
		return nil, err
	}

	ext := strings.ToLower(filepath.Ext(filename))
	switch ext {
	case ".xls":
		workbook, err := xls.OpenReader(bytes.NewReader(data), "utf-8")
		if err != nil {
			return nil, err
		}
		if workbook.NumSheets() == 0 {
			return nil, errors.New("no worksheet found")
		}
		if workbook.NumSheets() > 1 {
			return nil, errors.New("multiple worksheets found; please upload a file with a single sheet")
		}
		rows := workbook.ReadAllCells(maxImportRows)
		if len(rows) == 0 {
			return nil, errors.New("worksheet is empty")
		}
		return rows, nil
	default:
		file, err := excelize.OpenReader(bytes.NewReader(data))
		if err != nil {
			return nil, err
		}
		defer func() { _ = file.Close() }()

		sheetName := file.GetSheetName(0)
		if sheetName == "" {
			return nil, errors.New("no worksheet found")
		}
		rows, err := file.GetRows(sheetName)
		if err != nil {
			return nil, err
		}
		if len(rows) == 0 {
			return nil, errors.New("worksheet is empty")
		}
		return rows, nil
	}
}

// LeaveRow is one leave request read from an import sheet.
type LeaveRow struct {
	Line        int
	Title       string
	StartDate   string
	EndDate     string
	Description string
}

var headerAliases = map[string]string{
	"title":       "title",
	"leave title": "title",
	"leavetitle":  "title",
	"start":       "start",
	"start date":  "start",
	"startdate":   "start",
	"from":        "start",
	"end":         "end",
	"end date":    "end",
	"enddate":     "end",
	"to":          "end",
	"description": "description",
	"reason":      "description",
	"notes":       "description",
}

// ParseLeaveRows maps sheet rows to leave rows using the header line. Dates are
// normalized to YYYY-MM-DD; blank lines are skipped.
func ParseLeaveRows(rows [][]string) ([]LeaveRow, error) {
	if len(rows) == 0 {
		return nil, errors.New("worksheet is empty")
	}
	index := map[string]int{}
	for i, h := range rows[0] {
		if key, ok := headerAliases[normalizeHeader(h)]; ok {
			if _, seen := index[key]; !seen {
				index[key] = i
			}
		}
	}
	for _, required := range []string{"start", "end"} {
		if _, ok := index[required]; !ok {
			return nil, fmt.Errorf("missing %q column", required)
		}
	}

	out := make([]LeaveRow, 0, len(rows)-1)
	for i, row := range rows[1:] {
		line := i + 2
		if rowIsBlank(row) {
			continue
		}
		out = append(out, LeaveRow{
			Line:        line,
			Title:       cellValue(row, index, "title"),
			StartDate:   NormalizeDate(cellValue(row, index, "start")),
			EndDate:     NormalizeDate(cellValue(row, index, "end")),
			Description: cellValue(row, index, "description"),
		})
	}
	return out, nil
}

// NormalizeDate converts common spreadsheet date renderings, including Excel
// serial numbers, to YYYY-MM-DD. Unrecognized values are returned trimmed.
func NormalizeDate(value string) string {
	trimmed := strings.TrimSpace(value)
	if trimmed == "" {
		return ""
	}
	if serial, err := strconv.ParseFloat(trimmed, 64); err == nil {
		if serial >= 20000 && serial <= 80000 {
			if parsed, err := excelize.ExcelDateToTime(serial, false); err == nil {
				return parsed.Format("2006-01-02")
			}
		}
	}
	layouts := []string{
		"2006-01-02",
		"1/2/2006",
		"01/02/2006",
		"1/2/06",
		"01-02-06",
		"1-2-2006",
		"01-02-2006",
		"2006/01/02",
		"Jan 2, 2006",
		"January 2, 2006",
		"2 Jan 2006",
		"2006-01-02 15:04:05",
		time.RFC3339,
	}
	for _, layout := range layouts {
		if parsed, err := time.Parse(layout, trimmed); err == nil {
			return parsed.Format("2006-01-02")
		}
	}
	return trimmed
}

func normalizeHeader(header string) string {
	return strings.Join(strings.Fields(strings.ToLower(strings.ReplaceAll(header, "_", " "))), " ")
}

func cellValue(row []string, index map[string]int, key string) string {
	idx, ok := index[key]
	if !ok || idx < 0 || idx >= len(row) {
		return ""
	}
	return strings.TrimSpace(row[idx])
}

func rowIsBlank(row []string) bool {
	for _, cell := range row {
		if strings.TrimSpace(cell) != "" {
			return false
		}
	}
	return true
}
