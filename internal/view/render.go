package view

import (
	"bytes"
	"embed"
	"errors"
	"fmt"
	"html/template"
	"math"
	"strings"
	"time"

	"github.com/phillip-england/lmsportal/internal/api"
)

//go:embed fragments.html
var fragmentFS embed.FS

var fragments = template.Must(template.ParseFS(fragmentFS, "fragments.html"))

const (
	DefaultTitle    = "Untitled Application"
	dateLayout      = "2006-01-02"
	displayLayout   = "Jan 2, 2006"
	missingValue    = "-"
	unknownEmployee = "Unknown"
	activeStatus    = "Active"
)

type leaveCard struct {
	ID       string
	Title    string
	Employee string
	Start    string
	End      string
	Days     string
	Status   string
}

type profileField struct {
	Label string
	Value string
}

// StatusCards renders one card per leave, or the empty placeholder.
func StatusCards(leaves []api.Leave) template.HTML {
	cards := make([]leaveCard, 0, len(leaves))
	for _, l := range leaves {
		cards = append(cards, leaveCard{
			Title:  titleOrDefault(l.Title),
			Start:  FormatDate(l.StartDate),
			End:    FormatDate(l.EndDate),
			Status: orDefault(string(l.Status), string(api.StatusPending)),
		})
	}
	return render("status_cards", cards)
}

func StatusError(message string) template.HTML {
	return render("status_error", message)
}

// HistoryRows renders one five-cell table row per leave.
func HistoryRows(leaves []api.Leave) template.HTML {
	rows := make([]leaveCard, 0, len(leaves))
	for _, l := range leaves {
		rows = append(rows, leaveCard{
			Title:  titleOrDefault(l.Title),
			Start:  FormatDate(l.StartDate),
			End:    FormatDate(l.EndDate),
			Days:   orDefault(l.Days, missingValue),
			Status: orDefault(string(l.Status), missingValue),
		})
	}
	return render("history_rows", rows)
}

func HistoryError(message string) template.HTML {
	return render("history_error", message)
}

// PendingCards renders actionable cards. Leaves without an id are skipped.
func PendingCards(leaves []api.Leave) template.HTML {
	cards := make([]leaveCard, 0, len(leaves))
	for _, l := range leaves {
		if strings.TrimSpace(l.ID) == "" {
			continue
		}
		cards = append(cards, leaveCard{
			ID:       l.ID,
			Title:    titleOrDefault(l.Title),
			Employee: orDefault(l.EmployeeName, unknownEmployee),
			Start:    FormatDate(l.StartDate),
			End:      FormatDate(l.EndDate),
		})
	}
	return render("pending_cards", cards)
}

func PendingError(message string) template.HTML {
	return render("pending_error", message)
}

func EmployeeRows(records []api.EmployeeRecord) template.HTML {
	rows := make([]api.EmployeeRecord, 0, len(records))
	for _, r := range records {
		rows = append(rows, api.EmployeeRecord{
			EmployeeID: orDefault(r.EmployeeID, missingValue),
			Name:       orDefault(r.Name, missingValue),
			Email:      orDefault(r.Email, missingValue),
			Department: orDefault(r.Department, missingValue),
			Status:     orDefault(r.Status, activeStatus),
		})
	}
	return render("employee_rows", rows)
}

func EmployeesError(message string) template.HTML {
	return render("employees_error", message)
}

// Profile renders the principal as a definition list. withRole adds the role
// line shown on the HR dashboard.
func Profile(p api.Principal, withRole bool) template.HTML {
	fields := []profileField{
		{Label: "Name", Value: orDefault(p.Name, missingValue)},
		{Label: "Email", Value: orDefault(p.Email, missingValue)},
		{Label: "Department", Value: orDefault(p.Department, missingValue)},
		{Label: "ID", Value: orDefault(p.ID, missingValue)},
	}
	if withRole {
		fields = append(fields, profileField{Label: "Role", Value: orDefault(p.Role, missingValue)})
	}
	return render("profile", fields)
}

func ProfileError(message string) template.HTML {
	return render("profile_error", message)
}

// FormatDate renders an ISO date as "Jan 2, 2006". Empty input becomes "-" and
// anything unparseable is returned unchanged.
func FormatDate(value string) string {
	trimmed := strings.TrimSpace(value)
	if trimmed == "" {
		return missingValue
	}
	layouts := []string{
		dateLayout,
		time.RFC3339Nano,
		time.RFC3339,
		"2006-01-02T15:04:05",
		"2006-01-02 15:04:05",
	}
	for _, layout := range layouts {
		if parsed, err := time.Parse(layout, trimmed); err == nil {
			return parsed.UTC().Format(displayLayout)
		}
	}
	return value
}

var ErrInvalidDate = errors.New("invalid date")

// ParseDate parses a YYYY-MM-DD form value as midnight UTC.
func ParseDate(value string) (time.Time, error) {
	parsed, err := time.Parse(dateLayout, strings.TrimSpace(value))
	if err != nil {
		return time.Time{}, fmt.Errorf("%w: %q", ErrInvalidDate, value)
	}
	return parsed, nil
}

// CountDays returns the inclusive day count ceil((end-start)/24h) + 1. It
// works on Unix seconds so spans past the time.Duration range stay exact.
func CountDays(start, end time.Time) int {
	seconds := end.Unix() - start.Unix()
	return int(math.Ceil(float64(seconds)/secondsPerDay)) + 1
}

const secondsPerDay = 24 * 60 * 60

func titleOrDefault(title string) string {
	return orDefault(title, DefaultTitle)
}

func orDefault(value, def string) string {
	if strings.TrimSpace(value) == "" {
		return def
	}
	return value
}

func render(name string, data any) template.HTML {
	var buf bytes.Buffer
	if err := fragments.ExecuteTemplate(&buf, name, data); err != nil {
		return template.HTML(template.HTMLEscapeString("render " + name + ": " + err.Error()))
	}
	return template.HTML(buf.String())
}
