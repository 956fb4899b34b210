package sheet

import (
	"bytes"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/xuri/excelize/v2"

	"github.com/phillip-england/lmsportal/internal/api"
)

func TestWriteLeaveHistoryReadsBack(t *testing.T) {
	var buf bytes.Buffer
	require.NoError(t, WriteLeaveHistory(&buf, []api.Leave{
		{Title: "Trip", StartDate: "2024-01-01", EndDate: "2024-01-03", Days: "3", Status: api.StatusApproved, Description: "beach"},
		{StartDate: "2024-02-01", EndDate: "2024-02-01"},
	}))

	rows, err := ReadRows(bytes.NewReader(buf.Bytes()), "history.xlsx")
	require.NoError(t, err)
	require.Len(t, rows, 3)
	assert.Equal(t, historyColumns, rows[0])
	assert.Equal(t, []string{"Trip", "2024-01-01", "2024-01-03", "3", "Approved", "beach"}, rows[1])
	assert.Equal(t, "Untitled Application", rows[2][0])
	assert.Equal(t, "Pending", rows[2][4])

	f, err := excelize.OpenReader(bytes.NewReader(buf.Bytes()))
	require.NoError(t, err)
	defer f.Close()
	assert.Equal(t, historySheet, f.GetSheetName(0))
}

func TestWriteEmployees(t *testing.T) {
	var buf bytes.Buffer
	require.NoError(t, WriteEmployees(&buf, []api.EmployeeRecord{{EmployeeID: "E1", Name: "Ann", Email: "a@x.io", Department: "IT"}}))

	rows, err := ReadRows(bytes.NewReader(buf.Bytes()), "roster.xlsx")
	require.NoError(t, err)
	require.Len(t, rows, 2)
	assert.Equal(t, []string{"E1", "Ann", "a@x.io", "IT", "Active"}, rows[1])
}

func TestReadRowsRejectsGarbage(t *testing.T) {
	_, err := ReadRows(bytes.NewReader([]byte("not a workbook")), "leaves.xlsx")
	assert.Error(t, err)
}

func TestParseLeaveRows(t *testing.T) {
	rows := [][]string{
		{"Leave Title", "Start_Date", "End Date", "Reason"},
		{"Trip", "45292", "1/3/2024", "family"},
		{"", "", "", ""},
		{"Flu", "2024-02-05", "Feb 6, 2024"},
	}
	parsed, err := ParseLeaveRows(rows)
	require.NoError(t, err)
	require.Len(t, parsed, 2)

	assert.Equal(t, LeaveRow{Line: 2, Title: "Trip", StartDate: "2024-01-01", EndDate: "2024-01-03", Description: "family"}, parsed[0])
	assert.Equal(t, LeaveRow{Line: 4, Title: "Flu", StartDate: "2024-02-05", EndDate: "2024-02-06"}, parsed[1])
}

func TestParseLeaveRowsRequiresDates(t *testing.T) {
	_, err := ParseLeaveRows([][]string{{"Title", "Start"}})
	require.Error(t, err)
	assert.Contains(t, err.Error(), `"end"`)

	_, err = ParseLeaveRows(nil)
	assert.Error(t, err)
}

func TestNormalizeDate(t *testing.T) {
	assert.Equal(t, "", NormalizeDate("  "))
	assert.Equal(t, "2024-03-09", NormalizeDate("03/09/2024"))
	assert.Equal(t, "2024-03-09", NormalizeDate("2024/03/09"))
	assert.Equal(t, "someday", NormalizeDate(" someday "))
}
