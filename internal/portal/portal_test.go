package portal

import (
	"context"
	"encoding/json"
	"html/template"
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/phillip-england/lmsportal/internal/api"
	"github.com/phillip-england/lmsportal/internal/session"
	"github.com/phillip-england/lmsportal/internal/view"
)

type recordingView struct {
	mu         sync.Mutex
	notices    []string
	navigated  []view.View
	regions    map[view.Region]template.HTML
	resets     []view.Form
	confirm    bool
	active     map[view.Section]bool
	replaceHit chan view.Region
}

func newRecordingView() *recordingView {
	return &recordingView{
		regions: map[view.Region]template.HTML{},
		active:  map[view.Section]bool{},
		confirm: true,
	}
}

func (v *recordingView) Notify(msg string) {
	v.mu.Lock()
	defer v.mu.Unlock()
	v.notices = append(v.notices, msg)
}

func (v *recordingView) Confirm(string) bool {
	v.mu.Lock()
	defer v.mu.Unlock()
	return v.confirm
}

func (v *recordingView) Navigate(target view.View) {
	v.mu.Lock()
	defer v.mu.Unlock()
	v.navigated = append(v.navigated, target)
}

func (v *recordingView) Replace(r view.Region, html template.HTML) {
	v.mu.Lock()
	v.regions[r] = html
	hit := v.replaceHit
	v.mu.Unlock()
	if hit != nil {
		select {
		case hit <- r:
		default:
		}
	}
}

func (v *recordingView) ResetForm(f view.Form) {
	v.mu.Lock()
	defer v.mu.Unlock()
	v.resets = append(v.resets, f)
}

func (v *recordingView) SectionActive(s view.Section) bool {
	v.mu.Lock()
	defer v.mu.Unlock()
	return v.active[s]
}

func (v *recordingView) lastNotice() string {
	v.mu.Lock()
	defer v.mu.Unlock()
	if len(v.notices) == 0 {
		return ""
	}
	return v.notices[len(v.notices)-1]
}

func (v *recordingView) region(r view.Region) string {
	v.mu.Lock()
	defer v.mu.Unlock()
	return string(v.regions[r])
}

type recordedRequest struct {
	Method string
	Path   string
	Auth   string
	Body   map[string]any
}

// fakeBackend answers with canned responses keyed by "METHOD path".
type fakeBackend struct {
	mu        sync.Mutex
	requests  []recordedRequest
	responses map[string]func(w http.ResponseWriter)
	server    *httptest.Server
}

func newFakeBackend(t *testing.T) *fakeBackend {
	t.Helper()
	fb := &fakeBackend{responses: map[string]func(w http.ResponseWriter){}}
	fb.server = httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		rec := recordedRequest{Method: r.Method, Path: r.URL.EscapedPath(), Auth: r.Header.Get("Authorization")}
		raw, _ := io.ReadAll(r.Body)
		if len(raw) > 0 {
			_ = json.Unmarshal(raw, &rec.Body)
		}
		fb.mu.Lock()
		fb.requests = append(fb.requests, rec)
		handler, ok := fb.responses[r.Method+" "+rec.Path]
		fb.mu.Unlock()
		if !ok {
			w.WriteHeader(http.StatusNotFound)
			_, _ = io.WriteString(w, `{"detail":"Not Found"}`)
			return
		}
		handler(w)
	}))
	t.Cleanup(fb.server.Close)
	return fb
}

func (fb *fakeBackend) on(method, path string, status int, body string) {
	fb.mu.Lock()
	defer fb.mu.Unlock()
	fb.responses[method+" "+path] = func(w http.ResponseWriter) {
		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(status)
		_, _ = io.WriteString(w, body)
	}
}

func (fb *fakeBackend) calls() []recordedRequest {
	fb.mu.Lock()
	defer fb.mu.Unlock()
	return append([]recordedRequest(nil), fb.requests...)
}

func (fb *fakeBackend) endpoints() api.Endpoints {
	return api.NewEndpoints(fb.server.URL, "/api/v1/Emp_auth", "/api/v1/Emp_Dash", "/api/v1/Man_auth", "/api/v1/Man_Dash")
}

func newTestPortal(t *testing.T) (*Portal, *fakeBackend, *recordingView, session.Store) {
	t.Helper()
	fb := newFakeBackend(t)
	vp := newRecordingView()
	store := session.NewMemoryStore()
	p := New(Options{
		Client:       api.NewClient(0),
		Endpoints:    fb.endpoints(),
		Store:        store,
		View:         vp,
		PollInterval: 20 * time.Millisecond,
	})
	t.Cleanup(p.Close)
	return p, fb, vp, store
}

func signIn(t *testing.T, store session.Store, token string) {
	t.Helper()
	require.NoError(t, store.Set(context.Background(), token))
}

func TestRegisterSuccessNavigatesToLoginWithoutToken(t *testing.T) {
	p, fb, vp, store := newTestPortal(t)
	fb.on(http.MethodPost, "/api/v1/Emp_auth/Employee_signup", http.StatusOK, `{"message":"created","access_token":"should-not-store"}`)

	err := p.RegisterEmployee(context.Background(), RegisterForm{
		Name: " Ann ", Email: " ann@x.io ", Department: "IT", Password: "pw", ConfirmPassword: "pw",
	})
	require.NoError(t, err)
	assert.Equal(t, "Employee registered successfully!", vp.lastNotice())
	assert.Equal(t, []view.View{view.ViewLogin}, vp.navigated)

	_, ok, err := store.Get(context.Background())
	require.NoError(t, err)
	assert.False(t, ok)

	calls := fb.calls()
	require.Len(t, calls, 1)
	assert.Equal(t, "Ann", calls[0].Body["name"])
	assert.Equal(t, "ann@x.io", calls[0].Body["email"])
	assert.Empty(t, calls[0].Auth)
}

func TestRegisterValidationSkipsNetwork(t *testing.T) {
	p, fb, vp, _ := newTestPortal(t)

	err := p.RegisterHR(context.Background(), RegisterForm{Name: "A", Email: "a@x.io", Department: "HR", Password: "one", ConfirmPassword: "two"})
	var valErr *ValidationError
	require.ErrorAs(t, err, &valErr)
	assert.Equal(t, "Passwords do not match!", valErr.Message)
	assert.Equal(t, "Passwords do not match!", vp.lastNotice())

	err = p.RegisterEmployee(context.Background(), RegisterForm{Name: "   ", Email: "a@x.io", Department: "HR", Password: "x", ConfirmPassword: "x"})
	require.ErrorAs(t, err, &valErr)
	assert.Equal(t, "All fields are required!", valErr.Message)

	assert.Empty(t, fb.calls())
	assert.Empty(t, vp.navigated)
}

func TestRegisterFailureReportsServerMessage(t *testing.T) {
	p, fb, vp, _ := newTestPortal(t)
	fb.on(http.MethodPost, "/api/v1/Man_auth/Manager_signup", http.StatusBadRequest, `{"detail":"Email already registered"}`)

	err := p.RegisterHR(context.Background(), RegisterForm{Name: "A", Email: "a@x.io", Department: "HR", Password: "x", ConfirmPassword: "x"})
	require.Error(t, err)
	assert.Equal(t, "HR registration failed: Email already registered", vp.lastNotice())
	assert.Empty(t, vp.navigated)
}

func TestLoginStoresTokenUsedAsBearer(t *testing.T) {
	p, fb, vp, store := newTestPortal(t)
	fb.on(http.MethodPost, "/api/v1/Emp_auth/Employee_login", http.StatusOK, `{"access_token":"tok-1","token_type":"bearer","user":{"name":"Ann"}}`)
	fb.on(http.MethodGet, "/api/v1/Emp_Dash/my_leaves", http.StatusOK, `[]`)

	require.NoError(t, p.LoginEmployee(context.Background(), LoginForm{Email: " ann@x.io ", Password: "pw"}))
	assert.Equal(t, "Login successful!", vp.lastNotice())
	assert.Equal(t, []view.View{view.ViewEmployeeDashboard}, vp.navigated)

	token, ok, err := store.Get(context.Background())
	require.NoError(t, err)
	require.True(t, ok)
	assert.Equal(t, "tok-1", token)

	_, err = p.LoadLeaveStatus(context.Background())
	require.NoError(t, err)
	calls := fb.calls()
	require.Len(t, calls, 2)
	assert.Equal(t, "ann@x.io", calls[0].Body["email"])
	assert.Equal(t, "Bearer tok-1", calls[1].Auth)
}

func TestHRLoginNavigatesToHRDashboard(t *testing.T) {
	p, fb, vp, _ := newTestPortal(t)
	fb.on(http.MethodPost, "/api/v1/Man_auth/Manager_login", http.StatusOK, `{"access_token":"hr-1"}`)

	require.NoError(t, p.LoginHR(context.Background(), LoginForm{Email: "boss@x.io", Password: "pw"}))
	assert.Equal(t, "HR login successful!", vp.lastNotice())
	assert.Equal(t, []view.View{view.ViewHRDashboard}, vp.navigated)
}

func TestLoginFailureStoresNothing(t *testing.T) {
	p, fb, vp, store := newTestPortal(t)
	fb.on(http.MethodPost, "/api/v1/Man_auth/Manager_login", http.StatusUnauthorized, `{"detail":"Invalid credentials"}`)
	fb.on(http.MethodPost, "/api/v1/Emp_auth/Employee_login", http.StatusOK, `{"token_type":"bearer"}`)

	err := p.LoginHR(context.Background(), LoginForm{Email: "a@x.io", Password: "bad"})
	var reqErr *api.RequestError
	require.ErrorAs(t, err, &reqErr)
	assert.Equal(t, "HR login failed: Invalid credentials", vp.lastNotice())

	err = p.LoginEmployee(context.Background(), LoginForm{Email: "a@x.io", Password: "pw"})
	require.Error(t, err)
	assert.True(t, strings.HasPrefix(vp.lastNotice(), "Login failed: "))

	_, ok, _ := store.Get(context.Background())
	assert.False(t, ok)
	assert.Empty(t, vp.navigated)
}

func TestLogoutThenSessionCallsFailWithoutNetwork(t *testing.T) {
	p, fb, vp, store := newTestPortal(t)
	signIn(t, store, "tok")

	vp.confirm = false
	done, err := p.Logout(context.Background())
	require.NoError(t, err)
	assert.False(t, done)
	_, ok, _ := store.Get(context.Background())
	assert.True(t, ok, "declined logout keeps the session")

	vp.confirm = true
	done, err = p.Logout(context.Background())
	require.NoError(t, err)
	assert.True(t, done)
	assert.Equal(t, []view.View{view.ViewLogin}, vp.navigated)

	ctx := context.Background()
	_, err = p.LoadLeaveStatus(ctx)
	assert.ErrorIs(t, err, ErrNoSession)
	_, err = p.LoadLeaveHistory(ctx)
	assert.ErrorIs(t, err, ErrNoSession)
	_, err = p.LoadPendingLeaves(ctx)
	assert.ErrorIs(t, err, ErrNoSession)
	_, err = p.LoadEmployees(ctx)
	assert.ErrorIs(t, err, ErrNoSession)
	_, err = p.LoadEmployeeProfile(ctx)
	assert.ErrorIs(t, err, ErrNoSession)
	err = p.DecideLeave(ctx, "L1", ActionApprove)
	assert.ErrorIs(t, err, ErrNoSession)
	err = p.SubmitLeave(ctx, LeaveForm{StartDate: "2024-01-01", EndDate: "2024-01-02"})
	var stateErr *StateError
	require.ErrorAs(t, err, &stateErr)
	assert.Equal(t, "Please login first!", vp.lastNotice())

	assert.Empty(t, fb.calls())
}

func TestSubmitLeaveComputesInclusiveDays(t *testing.T) {
	p, fb, vp, store := newTestPortal(t)
	signIn(t, store, "tok")
	fb.on(http.MethodPost, "/api/v1/Emp_Dash/submit", http.StatusOK, `{"message":"Leave submitted"}`)
	fb.on(http.MethodGet, "/api/v1/Emp_Dash/my_leaves", http.StatusOK, `[{"leaveId":1,"leaveTitle":"Untitled Application","startDate":"2024-01-01","endDate":"2024-01-03","days":3,"status":"Pending"}]`)

	err := p.SubmitLeave(context.Background(), LeaveForm{StartDate: "2024-01-01", EndDate: "2024-01-03", Description: "  rest  "})
	require.NoError(t, err)

	calls := fb.calls()
	require.Len(t, calls, 3)
	body := calls[0].Body
	assert.Equal(t, float64(3), body["days"])
	assert.Equal(t, "Untitled Application", body["leaveTitle"])
	assert.Equal(t, "rest", body["description"])
	assert.Equal(t, "2024-01-01", body["startDate"])
	assert.Equal(t, "Bearer tok", calls[0].Auth)

	assert.Contains(t, vp.notices, "Leave submitted successfully!")
	assert.Equal(t, []view.Form{view.FormApplyLeave}, vp.resets)
	assert.Contains(t, vp.region(view.RegionLeaveStatus), "Status: Pending")
	assert.Contains(t, vp.region(view.RegionLeaveHistory), "<td>3</td>")
}

func TestSubmitLeaveSkipReloads(t *testing.T) {
	fb := newFakeBackend(t)
	vp := newRecordingView()
	store := session.NewMemoryStore()
	p := New(Options{Endpoints: fb.endpoints(), Store: store, View: vp, SkipReloads: true})
	t.Cleanup(p.Close)
	signIn(t, store, "tok")
	fb.on(http.MethodPost, "/api/v1/Emp_Dash/submit", http.StatusOK, `{"message":"Leave submitted"}`)

	require.NoError(t, p.SubmitLeave(context.Background(), LeaveForm{StartDate: "2024-01-01", EndDate: "2024-01-01"}))
	calls := fb.calls()
	require.Len(t, calls, 1)
	assert.Equal(t, http.MethodPost, calls[0].Method)
	assert.Equal(t, "Leave submitted successfully!", vp.lastNotice())
	assert.Empty(t, vp.region(view.RegionLeaveHistory))
}

func TestSubmitLeaveValidation(t *testing.T) {
	p, fb, vp, store := newTestPortal(t)
	signIn(t, store, "tok")

	err := p.SubmitLeave(context.Background(), LeaveForm{StartDate: "2024-01-01"})
	var valErr *ValidationError
	require.ErrorAs(t, err, &valErr)
	assert.Equal(t, "Please provide start and end dates!", vp.lastNotice())

	err = p.SubmitLeave(context.Background(), LeaveForm{StartDate: "2024-01-01", EndDate: "soon"})
	require.ErrorAs(t, err, &valErr)
	assert.Equal(t, "Invalid start or end date!", valErr.Message)

	assert.Empty(t, fb.calls())
}

func TestSubmitLeaveFailureKeepsForm(t *testing.T) {
	p, fb, vp, store := newTestPortal(t)
	signIn(t, store, "tok")
	fb.on(http.MethodPost, "/api/v1/Emp_Dash/submit", http.StatusBadRequest, `{"detail":"Overlapping leave"}`)

	err := p.SubmitLeave(context.Background(), LeaveForm{StartDate: "2024-01-01", EndDate: "2024-01-01"})
	require.Error(t, err)
	assert.Equal(t, "Error submitting leave: Overlapping leave", vp.lastNotice())
	assert.Empty(t, vp.resets)
	assert.Len(t, fb.calls(), 1)
}

func TestLoadListsRenderPlaceholdersAndErrors(t *testing.T) {
	p, fb, vp, store := newTestPortal(t)
	signIn(t, store, "tok")
	fb.on(http.MethodGet, "/api/v1/Emp_Dash/my_leaves", http.StatusOK, `[]`)
	fb.on(http.MethodGet, "/api/v1/Man_Dash/employees", http.StatusInternalServerError, `{"detail":"db down"}`)

	_, err := p.LoadLeaveStatus(context.Background())
	require.NoError(t, err)
	assert.Equal(t, "<p>No leaves found</p>", vp.region(view.RegionLeaveStatus))

	_, err = p.LoadLeaveHistory(context.Background())
	require.NoError(t, err)
	assert.Equal(t, `<tr><td colspan="5">No leave history found</td></tr>`, vp.region(view.RegionLeaveHistory))

	_, err = p.LoadEmployees(context.Background())
	require.Error(t, err)
	assert.Equal(t, `<tr><td colspan="5">Error: db down</td></tr>`, vp.region(view.RegionEmployees))

	_, err = p.LoadPendingLeaves(context.Background())
	require.Error(t, err)
	assert.Equal(t, `<p>Error loading pending leaves: Not Found</p>`, vp.region(view.RegionPendingLeaves))
}

func TestPendingWithoutIDNeverReachesDecide(t *testing.T) {
	p, fb, vp, store := newTestPortal(t)
	signIn(t, store, "tok")
	fb.on(http.MethodGet, "/api/v1/Man_Dash/leave_requests", http.StatusOK, `[
		{"leaveTitle":"No id","employee_name":"Ghost"},
		{"id":7,"leaveTitle":"Trip","employee_name":"Ann","startDate":"2024-01-01","endDate":"2024-01-02","status":"Pending"}
	]`)
	fb.on(http.MethodPost, "/api/v1/Man_Dash/approve_leave/7", http.StatusOK, `{}`)

	pending, err := p.LoadPendingLeaves(context.Background())
	require.NoError(t, err)
	require.Len(t, pending, 1)
	assert.Equal(t, "7", pending[0].ID)
	assert.NotContains(t, vp.region(view.RegionPendingLeaves), "Ghost")

	handled, err := p.HandlePendingClick(context.Background(), Click{Class: "approve-btn"})
	require.NoError(t, err)
	assert.False(t, handled)

	handled, err = p.HandlePendingClick(context.Background(), Click{Class: "leave-card", LeaveID: "7"})
	require.NoError(t, err)
	assert.False(t, handled)

	handled, err = p.HandlePendingClick(context.Background(), Click{Class: "btn approve-btn", LeaveID: "7"})
	require.NoError(t, err)
	assert.True(t, handled)
	assert.Contains(t, vp.notices, "Leave approved successfully!")

	for _, c := range fb.calls() {
		if c.Method == http.MethodPost {
			assert.Equal(t, "/api/v1/Man_Dash/approve_leave/7", c.Path)
		}
	}
}

func TestDecideLeave(t *testing.T) {
	p, fb, vp, store := newTestPortal(t)
	signIn(t, store, "tok")
	fb.on(http.MethodPost, "/api/v1/Man_Dash/reject_leave/L1", http.StatusOK, `{"message":"Leave rejected by HR"}`)
	fb.on(http.MethodPost, "/api/v1/Man_Dash/reject_leave/L2", http.StatusOK, `{"ok":true}`)
	fb.on(http.MethodPost, "/api/v1/Man_Dash/approve_leave/L3", http.StatusNotFound, `{"detail":"Leave not found"}`)
	fb.on(http.MethodGet, "/api/v1/Man_Dash/leave_requests", http.StatusOK, `[]`)

	require.NoError(t, p.DecideLeave(context.Background(), "L1", ActionReject))
	assert.Contains(t, vp.notices, "Leave rejected by HR")

	require.NoError(t, p.DecideLeave(context.Background(), "L2", ActionReject))
	assert.Contains(t, vp.notices, "Leave rejected successfully!")
	assert.Equal(t, "<p>No pending leave requests.</p>", vp.region(view.RegionPendingLeaves))

	before := len(fb.calls())
	err := p.DecideLeave(context.Background(), "L3", ActionApprove)
	require.Error(t, err)
	assert.Equal(t, "Error: Leave not found", vp.lastNotice())
	assert.Len(t, fb.calls(), before+1, "failed decision does not reload")

	err = p.DecideLeave(context.Background(), "L1", Action("escalate"))
	var valErr *ValidationError
	assert.ErrorAs(t, err, &valErr)
}

func TestParseDecision(t *testing.T) {
	assert.Equal(t, Click{Class: "approve-btn", LeaveID: "12"}, ParseDecision("approve:12"))
	assert.Equal(t, Click{Class: "reject-btn", LeaveID: "a:b"}, ParseDecision("reject:a:b"))
	assert.Equal(t, Click{}, ParseDecision("archive:1"))
	assert.Equal(t, Click{}, ParseDecision("approve"))
}

func TestOpenHRDashboardLoadsAllRegions(t *testing.T) {
	p, fb, vp, store := newTestPortal(t)
	signIn(t, store, "tok")
	fb.on(http.MethodGet, "/api/v1/Man_auth/me", http.StatusOK, `{"user_id":3,"name":"Boss","email":"b@x.io","department":"HR","role":"Manager"}`)
	fb.on(http.MethodGet, "/api/v1/Man_Dash/leave_requests", http.StatusOK, `[]`)
	fb.on(http.MethodGet, "/api/v1/Man_Dash/employees", http.StatusOK, `[{"employee_id":"E1","name":"Ann","email":"a@x.io","department":"IT"}]`)

	require.NoError(t, p.OpenHRDashboard(context.Background()))
	assert.Contains(t, vp.region(view.RegionProfile), "<dd>Boss</dd>")
	assert.Contains(t, vp.region(view.RegionProfile), "<dd>Manager</dd>")
	assert.Equal(t, "<p>No pending leave requests.</p>", vp.region(view.RegionPendingLeaves))
	assert.Equal(t, `<tr><td>E1</td><td>Ann</td><td>a@x.io</td><td>IT</td><td>Active</td></tr>`, vp.region(view.RegionEmployees))
}

func TestOpenEmployeeDashboardJoinsErrors(t *testing.T) {
	p, fb, vp, store := newTestPortal(t)
	signIn(t, store, "tok")
	fb.on(http.MethodGet, "/api/v1/Emp_auth/me", http.StatusOK, `{"employee_id":"E1","name":"Ann"}`)

	err := p.OpenEmployeeDashboard(context.Background())
	require.Error(t, err)
	assert.Contains(t, vp.region(view.RegionProfile), "<dd>E1</dd>")
	assert.Contains(t, vp.region(view.RegionLeaveStatus), "Error loading leaves: Not Found")
	assert.Contains(t, vp.region(view.RegionLeaveHistory), "Error loading history: Not Found")
}

func TestEmployeePollerFollowsSection(t *testing.T) {
	p, fb, vp, store := newTestPortal(t)
	signIn(t, store, "tok")
	var hits atomic.Int32
	fb.mu.Lock()
	fb.responses["GET /api/v1/Man_Dash/employees"] = func(w http.ResponseWriter) {
		hits.Add(1)
		_, _ = io.WriteString(w, `[]`)
	}
	fb.mu.Unlock()
	vp.replaceHit = make(chan view.Region, 8)

	vp.mu.Lock()
	vp.active[view.SectionEmployeeList] = true
	vp.mu.Unlock()
	p.EnterSection(context.Background(), view.SectionEmployeeList)
	p.EnterSection(context.Background(), view.SectionEmployeeList)
	assert.True(t, p.Polling())

	select {
	case r := <-vp.replaceHit:
		assert.Equal(t, view.RegionEmployees, r)
	case <-time.After(2 * time.Second):
		t.Fatal("poller never refreshed the employee list")
	}

	p.EnterSection(context.Background(), view.SectionProfile)
	assert.False(t, p.Polling())
	stopped := hits.Load()
	time.Sleep(80 * time.Millisecond)
	assert.Equal(t, stopped, hits.Load())
}

func TestPollerRestartsAfterContextEnds(t *testing.T) {
	p, fb, vp, store := newTestPortal(t)
	signIn(t, store, "tok")
	fb.on(http.MethodGet, "/api/v1/Man_Dash/employees", http.StatusOK, `[]`)
	vp.mu.Lock()
	vp.active[view.SectionEmployeeList] = true
	vp.mu.Unlock()

	ctx, cancel := context.WithCancel(context.Background())
	p.EnterSection(ctx, view.SectionEmployeeList)
	require.True(t, p.Polling())
	cancel()
	require.Eventually(t, func() bool { return !p.Polling() }, time.Second, 5*time.Millisecond)

	vp.mu.Lock()
	vp.replaceHit = make(chan view.Region, 8)
	vp.mu.Unlock()
	p.EnterSection(context.Background(), view.SectionEmployeeList)
	assert.True(t, p.Polling())
	select {
	case r := <-vp.replaceHit:
		assert.Equal(t, view.RegionEmployees, r)
	case <-time.After(2 * time.Second):
		t.Fatal("restarted poller never refreshed the employee list")
	}
}

func TestPollerSkipsInactiveSection(t *testing.T) {
	p, fb, _, store := newTestPortal(t)
	signIn(t, store, "tok")
	fb.on(http.MethodGet, "/api/v1/Man_Dash/employees", http.StatusOK, `[]`)

	p.EnterSection(context.Background(), view.SectionEmployeeList)
	time.Sleep(80 * time.Millisecond)
	p.LeaveSection(view.SectionEmployeeList)
	assert.False(t, p.Polling())
	assert.Empty(t, fb.calls())
}

func TestLogoutStopsPoller(t *testing.T) {
	p, _, _, store := newTestPortal(t)
	signIn(t, store, "tok")
	p.EnterSection(context.Background(), view.SectionEmployeeList)
	require.True(t, p.Polling())

	_, err := p.Logout(context.Background())
	require.NoError(t, err)
	assert.False(t, p.Polling())
}

func TestStartPollerStopIsIdempotent(t *testing.T) {
	var n atomic.Int32
	poller := StartPoller(context.Background(), 5*time.Millisecond, func(context.Context) { n.Add(1) })
	time.Sleep(30 * time.Millisecond)
	poller.Stop()
	poller.Stop()
	select {
	case <-poller.Done():
	default:
		t.Fatal("poller goroutine still running")
	}
	assert.Positive(t, n.Load())
}
