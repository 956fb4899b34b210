package portal

import (
	"context"
	"strings"
)

const (
	approveButtonClass = "approve-btn"
	rejectButtonClass  = "reject-btn"
)

// Click describes one click inside the pending-requests container: the class
// list of the clicked element and the data-leave-id of the closest card.
type Click struct {
	Class   string
	LeaveID string
}

// ParseDecision splits a button value of the form "approve:<id>".
func ParseDecision(value string) Click {
	action, id, ok := strings.Cut(value, ":")
	if !ok {
		return Click{}
	}
	switch Action(action) {
	case ActionApprove:
		return Click{Class: approveButtonClass, LeaveID: id}
	case ActionReject:
		return Click{Class: rejectButtonClass, LeaveID: id}
	default:
		return Click{}
	}
}

// HandlePendingClick is the single handler for the whole pending container.
// Clicks that are not on a decision button of an identified card are ignored
// and report false.
func (p *Portal) HandlePendingClick(ctx context.Context, click Click) (bool, error) {
	id := strings.TrimSpace(click.LeaveID)
	if id == "" {
		return false, nil
	}
	classes := strings.Fields(click.Class)
	for _, class := range classes {
		switch class {
		case approveButtonClass:
			return true, p.DecideLeave(ctx, id, ActionApprove)
		case rejectButtonClass:
			return true, p.DecideLeave(ctx, id, ActionReject)
		}
	}
	return false, nil
}
