package portal

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"strings"

	"github.com/phillip-england/lmsportal/internal/api"
	"github.com/phillip-england/lmsportal/internal/logger"
	"github.com/phillip-england/lmsportal/internal/view"
)

type LeaveForm struct {
	Title       string
	StartDate   string
	EndDate     string
	Description string
}

// Action is a manager decision on a pending leave.
type Action string

const (
	ActionApprove Action = "approve"
	ActionReject  Action = "reject"
)

func (a Action) pastTense() string {
	if a == ActionApprove {
		return "approved"
	}
	return "rejected"
}

// ParseAction accepts "approve" or "reject" in any case.
func ParseAction(raw string) (Action, error) {
	switch Action(strings.ToLower(strings.TrimSpace(raw))) {
	case ActionApprove:
		return ActionApprove, nil
	case ActionReject:
		return ActionReject, nil
	default:
		return "", &ValidationError{Message: fmt.Sprintf("Unknown action %q", raw)}
	}
}

// BuildSubmission validates a leave form and computes its inclusive day count.
func BuildSubmission(form LeaveForm) (api.LeaveSubmission, error) {
	if strings.TrimSpace(form.StartDate) == "" || strings.TrimSpace(form.EndDate) == "" {
		return api.LeaveSubmission{}, &ValidationError{Message: msgDatesRequired}
	}
	start, err := view.ParseDate(form.StartDate)
	if err != nil {
		return api.LeaveSubmission{}, &ValidationError{Message: msgInvalidDates}
	}
	end, err := view.ParseDate(form.EndDate)
	if err != nil {
		return api.LeaveSubmission{}, &ValidationError{Message: msgInvalidDates}
	}

	title := strings.TrimSpace(form.Title)
	if title == "" {
		title = view.DefaultTitle
	}
	return api.LeaveSubmission{
		LeaveTitle:  title,
		StartDate:   strings.TrimSpace(form.StartDate),
		EndDate:     strings.TrimSpace(form.EndDate),
		Days:        view.CountDays(start, end),
		Description: strings.TrimSpace(form.Description),
	}, nil
}

// SubmitLeave posts a leave request and, on success, resets the form and
// refreshes the status and history regions.
func (p *Portal) SubmitLeave(ctx context.Context, form LeaveForm) error {
	token, err := p.requireToken(ctx)
	if err != nil {
		if errors.Is(err, ErrNoSession) {
			p.vp.Notify(msgLoginFirst)
		}
		return err
	}

	submission, err := BuildSubmission(form)
	if err != nil {
		p.vp.Notify(Message(err))
		return err
	}

	if _, err := p.client.Do(ctx, http.MethodPost, p.endpoints.SubmitLeave(), submission, token); err != nil {
		logger.WarnLog(ctx, "submit leave failed: %v", err)
		p.vp.Notify(msgSubmitFailed + Message(err))
		return err
	}

	logger.InfoLog(ctx, "leave submitted: %s %s..%s (%d days)", submission.LeaveTitle, submission.StartDate, submission.EndDate, submission.Days)
	p.vp.Notify(msgLeaveSubmitted)
	p.vp.ResetForm(view.FormApplyLeave)
	if p.skipReloads {
		return nil
	}
	// failures are already rendered into their regions
	_, _ = p.LoadLeaveStatus(ctx)
	_, _ = p.LoadLeaveHistory(ctx)
	return nil
}

// FetchMyLeaves returns the signed-in employee's leaves without rendering.
func (p *Portal) FetchMyLeaves(ctx context.Context) ([]api.Leave, error) {
	token, err := p.requireToken(ctx)
	if err != nil {
		return nil, err
	}
	var leaves []api.Leave
	if err := p.getJSON(ctx, p.endpoints.MyLeaves(), token, &leaves); err != nil {
		return nil, err
	}
	return leaves, nil
}

func (p *Portal) LoadLeaveStatus(ctx context.Context) ([]api.Leave, error) {
	leaves, err := p.FetchMyLeaves(ctx)
	if err != nil {
		if !errors.Is(err, ErrNoSession) {
			p.vp.Replace(view.RegionLeaveStatus, view.StatusError(Message(err)))
		}
		return nil, err
	}
	p.vp.Replace(view.RegionLeaveStatus, view.StatusCards(leaves))
	return leaves, nil
}

func (p *Portal) LoadLeaveHistory(ctx context.Context) ([]api.Leave, error) {
	leaves, err := p.FetchMyLeaves(ctx)
	if err != nil {
		if !errors.Is(err, ErrNoSession) {
			p.vp.Replace(view.RegionLeaveHistory, view.HistoryError(Message(err)))
		}
		return nil, err
	}
	p.vp.Replace(view.RegionLeaveHistory, view.HistoryRows(leaves))
	return leaves, nil
}

// LoadPendingLeaves renders the actionable pending requests and returns them.
// Requests without an identifier are dropped.
func (p *Portal) LoadPendingLeaves(ctx context.Context) ([]api.Leave, error) {
	token, err := p.requireToken(ctx)
	if err != nil {
		return nil, err
	}
	var leaves []api.Leave
	if err := p.getJSON(ctx, p.endpoints.LeaveRequests(), token, &leaves); err != nil {
		p.vp.Replace(view.RegionPendingLeaves, view.PendingError(Message(err)))
		return nil, err
	}

	actionable := make([]api.Leave, 0, len(leaves))
	for _, l := range leaves {
		if strings.TrimSpace(l.ID) == "" {
			logger.DebugLog(ctx, "skipping pending leave without id: %q", l.Title)
			continue
		}
		actionable = append(actionable, l)
	}
	p.vp.Replace(view.RegionPendingLeaves, view.PendingCards(actionable))
	return actionable, nil
}

// DecideLeave approves or rejects one leave, then reloads the pending list.
func (p *Portal) DecideLeave(ctx context.Context, leaveID string, action Action) error {
	if _, err := ParseAction(string(action)); err != nil {
		p.vp.Notify(Message(err))
		return err
	}
	token, err := p.requireToken(ctx)
	if err != nil {
		if errors.Is(err, ErrNoSession) {
			p.vp.Notify(msgLoginFirst)
		}
		return err
	}
	leaveID = strings.TrimSpace(leaveID)
	if leaveID == "" {
		return p.invalid("Missing leave id")
	}

	res, err := p.client.Do(ctx, http.MethodPost, p.endpoints.Decision(string(action), leaveID), nil, token)
	if err != nil {
		logger.WarnLog(ctx, "%s leave %s failed: %v", action, leaveID, err)
		p.vp.Notify(msgDecisionFailed + Message(err))
		return err
	}

	message := res.Message()
	if message == "" {
		message = fmt.Sprintf("Leave %s successfully!", action.pastTense())
	}
	logger.InfoLog(ctx, "leave %s %s", leaveID, action.pastTense())
	p.vp.Notify(message)
	_, _ = p.LoadPendingLeaves(ctx)
	return nil
}

// FetchEmployees returns the HR roster without rendering.
func (p *Portal) FetchEmployees(ctx context.Context) ([]api.EmployeeRecord, error) {
	token, err := p.requireToken(ctx)
	if err != nil {
		return nil, err
	}
	var records []api.EmployeeRecord
	if err := p.getJSON(ctx, p.endpoints.Employees(), token, &records); err != nil {
		return nil, err
	}
	return records, nil
}

func (p *Portal) LoadEmployees(ctx context.Context) ([]api.EmployeeRecord, error) {
	records, err := p.FetchEmployees(ctx)
	if err != nil {
		if !errors.Is(err, ErrNoSession) {
			p.vp.Replace(view.RegionEmployees, view.EmployeesError(Message(err)))
		}
		return nil, err
	}
	p.vp.Replace(view.RegionEmployees, view.EmployeeRows(records))
	return records, nil
}

// OpenEmployeeDashboard loads every employee dashboard region.
func (p *Portal) OpenEmployeeDashboard(ctx context.Context) error {
	if _, err := p.requireToken(ctx); err != nil {
		return err
	}
	_, profileErr := p.LoadEmployeeProfile(ctx)
	_, statusErr := p.LoadLeaveStatus(ctx)
	_, historyErr := p.LoadLeaveHistory(ctx)
	return errors.Join(profileErr, statusErr, historyErr)
}

// OpenHRDashboard loads every HR dashboard region.
func (p *Portal) OpenHRDashboard(ctx context.Context) error {
	if _, err := p.requireToken(ctx); err != nil {
		return err
	}
	_, profileErr := p.LoadHRProfile(ctx)
	_, pendingErr := p.LoadPendingLeaves(ctx)
	_, employeesErr := p.LoadEmployees(ctx)
	return errors.Join(profileErr, pendingErr, employeesErr)
}

func (p *Portal) getJSON(ctx context.Context, url, token string, out any) error {
	res, err := p.client.Do(ctx, http.MethodGet, url, nil, token)
	if err != nil {
		return err
	}
	if err := res.Decode(out); err != nil {
		return &api.RequestError{Status: res.Status, Message: invalidListMessage, Err: err}
	}
	return nil
}

const invalidListMessage = "Server returned invalid response"
