package view

// View is a top-level page the user can be navigated to.
type View string

const (
	ViewLogin             View = "login"
	ViewRegister          View = "register"
	ViewEmployeeDashboard View = "employee_dashboard"
	ViewHRDashboard       View = "hr_dashboard"
)

// Path is the web route of the view.
func (v View) Path() string {
	switch v {
	case ViewEmployeeDashboard:
		return "/employee_dashboard"
	case ViewHRDashboard:
		return "/hr_dashboard"
	case ViewRegister:
		return "/?page=register"
	default:
		return "/"
	}
}

// Region is a named container whose content is replaced wholesale.
type Region string

const (
	RegionProfile       Region = "profile"
	RegionLeaveStatus   Region = "leaveStatusCards"
	RegionLeaveHistory  Region = "leaveHistoryTableBody"
	RegionPendingLeaves Region = "hrLeaveRequests"
	RegionEmployees     Region = "hrEmployeeTableBody"
)

// Section is a dashboard tab.
type Section string

const (
	SectionProfile       Section = "profile"
	SectionApply         Section = "apply"
	SectionStatus        Section = "status"
	SectionHistory       Section = "history"
	SectionLeaveRequests Section = "leave_requests"
	SectionEmployeeList  Section = "employee_list"
)

// Form identifies a resettable input form.
type Form string

const (
	FormApplyLeave Form = "applyLeaveForm"
)
