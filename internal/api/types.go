package api

import (
	"bytes"
	"encoding/json"
	"strconv"
	"strings"
)

type LeaveStatus string

const (
	StatusPending  LeaveStatus = "Pending"
	StatusApproved LeaveStatus = "Approved"
	StatusRejected LeaveStatus = "Rejected"
)

// Principal is the signed-in user as reported by the /me endpoints.
type Principal struct {
	ID         string `json:"id"`
	Name       string `json:"name"`
	Email      string `json:"email"`
	Department string `json:"department"`
	Role       string `json:"role"`
}

func (p *Principal) UnmarshalJSON(data []byte) error {
	var raw struct {
		EmployeeID json.RawMessage `json:"employee_id"`
		UserID     json.RawMessage `json:"user_id"`
		ID         json.RawMessage `json:"id"`
		Name       string          `json:"name"`
		Email      string          `json:"email"`
		Department string          `json:"department"`
		Role       string          `json:"role"`
	}
	if err := json.Unmarshal(data, &raw); err != nil {
		return err
	}
	*p = Principal{
		ID:         firstScalar(raw.EmployeeID, raw.UserID, raw.ID),
		Name:       raw.Name,
		Email:      raw.Email,
		Department: raw.Department,
		Role:       raw.Role,
	}
	return nil
}

// Leave is one leave request in any of the shapes the backend returns.
type Leave struct {
	ID           string      `json:"id"`
	Title        string      `json:"title"`
	StartDate    string      `json:"startDate"`
	EndDate      string      `json:"endDate"`
	Days         string      `json:"days"`
	Description  string      `json:"description"`
	Status       LeaveStatus `json:"status"`
	EmployeeName string      `json:"employeeName"`
}

func (l *Leave) UnmarshalJSON(data []byte) error {
	var raw struct {
		MongoID      json.RawMessage `json:"_id"`
		ID           json.RawMessage `json:"id"`
		LeaveID      json.RawMessage `json:"leave_id"`
		LeaveTitle   string          `json:"leaveTitle"`
		Title        string          `json:"title"`
		StartDate    string          `json:"startDate"`
		EndDate      string          `json:"endDate"`
		Days         json.RawMessage `json:"days"`
		Description  string          `json:"description"`
		Status       string          `json:"status"`
		Employee     json.RawMessage `json:"employee"`
		EmployeeName string          `json:"employee_name"`
		Name         string          `json:"name"`
	}
	if err := json.Unmarshal(data, &raw); err != nil {
		return err
	}

	*l = Leave{
		ID:           firstScalar(raw.MongoID, raw.ID, raw.LeaveID),
		Title:        firstNonEmpty(raw.LeaveTitle, raw.Title),
		StartDate:    raw.StartDate,
		EndDate:      raw.EndDate,
		Days:         numberString(raw.Days),
		Description:  raw.Description,
		Status:       LeaveStatus(raw.Status),
		EmployeeName: firstNonEmpty(employeeRefName(raw.Employee), raw.EmployeeName, raw.Name),
	}
	return nil
}

// EmployeeRecord is a row of the HR roster.
type EmployeeRecord struct {
	EmployeeID string `json:"employee_id"`
	Name       string `json:"name"`
	Email      string `json:"email"`
	Department string `json:"department"`
	Status     string `json:"status"`
}

func (e *EmployeeRecord) UnmarshalJSON(data []byte) error {
	var raw struct {
		EmployeeID json.RawMessage `json:"employee_id"`
		Name       string          `json:"name"`
		Email      string          `json:"email"`
		Department string          `json:"department"`
		Status     string          `json:"status"`
	}
	if err := json.Unmarshal(data, &raw); err != nil {
		return err
	}
	*e = EmployeeRecord{
		EmployeeID: scalarString(raw.EmployeeID),
		Name:       raw.Name,
		Email:      raw.Email,
		Department: raw.Department,
		Status:     raw.Status,
	}
	return nil
}

// LeaveSubmission is the body of a leave submit call.
type LeaveSubmission struct {
	LeaveTitle  string `json:"leaveTitle"`
	StartDate   string `json:"startDate"`
	EndDate     string `json:"endDate"`
	Days        int    `json:"days"`
	Description string `json:"description"`
}

type RegisterRequest struct {
	Name       string `json:"name"`
	Email      string `json:"email"`
	Department string `json:"department"`
	Password   string `json:"password"`
}

type LoginRequest struct {
	Email    string `json:"email"`
	Password string `json:"password"`
}

type LoginResponse struct {
	AccessToken string          `json:"access_token"`
	TokenType   string          `json:"token_type"`
	User        json.RawMessage `json:"user,omitempty"`
}

func firstNonEmpty(values ...string) string {
	for _, v := range values {
		if strings.TrimSpace(v) != "" {
			return v
		}
	}
	return ""
}

func firstScalar(values ...json.RawMessage) string {
	for _, v := range values {
		if s := scalarString(v); s != "" {
			return s
		}
	}
	return ""
}

// scalarString renders a JSON string or number as text. null, false, 0, ""
// and compound values all come back empty.
func scalarString(raw json.RawMessage) string {
	return scalarText(raw, false)
}

// numberString is scalarString for counts, where 0 is a real value.
func numberString(raw json.RawMessage) string {
	return scalarText(raw, true)
}

func scalarText(raw json.RawMessage, keepZero bool) string {
	raw = bytes.TrimSpace(raw)
	if len(raw) == 0 {
		return ""
	}
	switch raw[0] {
	case '"':
		var s string
		if err := json.Unmarshal(raw, &s); err != nil {
			return ""
		}
		return s
	case '-', '0', '1', '2', '3', '4', '5', '6', '7', '8', '9':
		n, err := strconv.ParseFloat(string(raw), 64)
		if err != nil || (n == 0 && !keepZero) {
			return ""
		}
		return string(raw)
	default:
		return ""
	}
}

func employeeRefName(raw json.RawMessage) string {
	raw = bytes.TrimSpace(raw)
	if len(raw) == 0 || raw[0] != '{' {
		return ""
	}
	var ref struct {
		Name string `json:"name"`
	}
	if err := json.Unmarshal(raw, &ref); err != nil {
		return ""
	}
	return ref.Name
}
