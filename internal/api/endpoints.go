package api

import (
	"net/url"
	"strings"
)

// Role distinguishes the two account kinds of the LMS.
type Role string

const (
	RoleEmployee Role = "Employee"
	RoleManager  Role = "Manager"
)

// Endpoints resolves every backend URL from a base URL and four path prefixes.
type Endpoints struct {
	EmpAuth string
	EmpDash string
	ManAuth string
	ManDash string
}

func NewEndpoints(baseURL, empAuth, empDash, manAuth, manDash string) Endpoints {
	base := strings.TrimRight(baseURL, "/")
	join := func(prefix string) string {
		return base + "/" + strings.Trim(prefix, "/")
	}
	return Endpoints{
		EmpAuth: join(empAuth),
		EmpDash: join(empDash),
		ManAuth: join(manAuth),
		ManDash: join(manDash),
	}
}

func (e Endpoints) Signup(role Role) string {
	if role == RoleManager {
		return e.ManAuth + "/Manager_signup"
	}
	return e.EmpAuth + "/Employee_signup"
}

func (e Endpoints) Login(role Role) string {
	if role == RoleManager {
		return e.ManAuth + "/Manager_login"
	}
	return e.EmpAuth + "/Employee_login"
}

func (e Endpoints) Me(role Role) string {
	if role == RoleManager {
		return e.ManAuth + "/me"
	}
	return e.EmpAuth + "/me"
}

func (e Endpoints) SubmitLeave() string {
	return e.EmpDash + "/submit"
}

func (e Endpoints) MyLeaves() string {
	return e.EmpDash + "/my_leaves"
}

func (e Endpoints) LeaveRequests() string {
	return e.ManDash + "/leave_requests"
}

// Decision returns {MAN_DASH}/{action}_leave/{id}; action is "approve" or "reject".
func (e Endpoints) Decision(action, leaveID string) string {
	return e.ManDash + "/" + action + "_leave/" + url.PathEscape(leaveID)
}

func (e Endpoints) Employees() string {
	return e.ManDash + "/employees"
}
