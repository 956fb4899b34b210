package webapp

import (
	"bytes"
	"context"
	"embed"
	"errors"
	"fmt"
	"html/template"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/phillip-england/lmsportal/internal/api"
	"github.com/phillip-england/lmsportal/internal/config"
	"github.com/phillip-england/lmsportal/internal/logger"
	"github.com/phillip-england/lmsportal/internal/middleware"
	"github.com/phillip-england/lmsportal/internal/portal"
	"github.com/phillip-england/lmsportal/internal/security"
	"github.com/phillip-england/lmsportal/internal/session"
	"github.com/phillip-england/lmsportal/internal/view"
)

const sessionCookieName = "lmsportal_session"

//go:embed templates/layout.html templates/login.html templates/employee_dashboard.html templates/hr_dashboard.html
var templatesFS embed.FS

type Config struct {
	Addr           string
	Endpoints      api.Endpoints
	RequestTimeout time.Duration
	PollInterval   time.Duration
	Sessions       session.Provider
	SessionTTL     time.Duration
	SecureCookie   bool
	ReadTimeout    time.Duration
	WriteTimeout   time.Duration
}

// ConfigFrom builds the web client configuration. Sessions still has to be
// set by the caller.
func ConfigFrom(cfg config.Config) Config {
	return Config{
		Addr:           cfg.ClientAddr,
		Endpoints:      api.NewEndpoints(cfg.APIBaseURL, cfg.EmpAuthPath, cfg.EmpDashPath, cfg.ManAuthPath, cfg.ManDashPath),
		RequestTimeout: cfg.RequestTimeout,
		PollInterval:   cfg.EmployeePollInterval,
		SessionTTL:     cfg.SessionTTL,
		ReadTimeout:    5 * time.Second,
		WriteTimeout:   30 * time.Second,
	}
}

// OpenSessions returns the session provider selected by the configuration and
// a function that releases it.
func OpenSessions(ctx context.Context, cfg config.Config) (session.Provider, func() error, error) {
	switch cfg.SessionBackend {
	case config.SessionBackendRedis:
		provider := session.NewRedisProvider(session.RedisOptions{
			Addr:     cfg.RedisAddr,
			Password: cfg.RedisPassword,
			DB:       cfg.RedisDB,
			TTL:      cfg.SessionTTL,
		})
		if err := provider.Ping(ctx); err != nil {
			_ = provider.Close()
			return nil, nil, err
		}
		return provider, provider.Close, nil
	default:
		return session.NewMemoryProvider(cfg.SessionTTL), func() error { return nil }, nil
	}
}

type leaveFormData struct {
	Title       string
	StartDate   string
	EndDate     string
	Description string
}

type pageData struct {
	Error    string
	Message  string
	Tab      string
	Register bool
	Section  string

	Profile      template.HTML
	StatusCards  template.HTML
	HistoryRows  template.HTML
	PendingCards template.HTML
	EmployeeRows template.HTML

	Form       leaveFormData
	PollMillis int64
}

type server struct {
	client       *api.Client
	endpoints    api.Endpoints
	sessions     session.Provider
	pollInterval time.Duration
	secureCookie bool

	loginTmpl    *template.Template
	employeeTmpl *template.Template
	hrTmpl       *template.Template
}

func parsePage(name string) *template.Template {
	return template.Must(template.ParseFS(templatesFS, "templates/"+name, "templates/layout.html"))
}

// NewHandler returns the browser front end with its middleware applied.
func NewHandler(cfg Config) http.Handler {
	if cfg.Sessions == nil {
		cfg.Sessions = session.NewMemoryProvider(cfg.SessionTTL)
	}
	if cfg.PollInterval <= 0 {
		cfg.PollInterval = 5 * time.Second
	}
	s := &server{
		client:       api.NewClient(cfg.RequestTimeout),
		endpoints:    cfg.Endpoints,
		sessions:     cfg.Sessions,
		pollInterval: cfg.PollInterval,
		secureCookie: cfg.SecureCookie,
		loginTmpl:    parsePage("login.html"),
		employeeTmpl: parsePage("employee_dashboard.html"),
		hrTmpl:       parsePage("hr_dashboard.html"),
	}

	mux := http.NewServeMux()
	mux.Handle("/", http.HandlerFunc(s.loginPage))
	mux.Handle("/login/employee", s.loginHandler(api.RoleEmployee))
	mux.Handle("/login/hr", s.loginHandler(api.RoleManager))
	mux.Handle("/register/employee", s.registerHandler(api.RoleEmployee))
	mux.Handle("/register/hr", s.registerHandler(api.RoleManager))
	mux.Handle("/logout", http.HandlerFunc(s.logout))
	mux.Handle("/employee_dashboard", http.HandlerFunc(s.employeeDashboard))
	mux.Handle("/employee_dashboard/leave", http.HandlerFunc(s.submitLeave))
	mux.Handle("/employee_dashboard/fragments/", http.HandlerFunc(s.employeeFragments))
	mux.Handle("/hr_dashboard", http.HandlerFunc(s.hrDashboard))
	mux.Handle("/hr_dashboard/leaves", http.HandlerFunc(s.decideLeave))
	mux.Handle("/hr_dashboard/fragments/", http.HandlerFunc(s.hrFragments))

	csp := strings.Join([]string{
		"default-src 'self'",
		"style-src 'self' 'unsafe-inline'",
		"img-src 'self' data:",
		"script-src 'self' 'unsafe-inline'",
		"connect-src 'self'",
		"frame-ancestors 'none'",
	}, "; ")

	return middleware.Chain(
		mux,
		middleware.RequestLogger,
		middleware.SecurityHeaders(middleware.SecurityHeadersConfig{ContentSecurityPolicy: csp, NoStore: true}),
	)
}

func Run(ctx context.Context, cfg Config) error {
	httpServer := &http.Server{
		Addr:              cfg.Addr,
		Handler:           NewHandler(cfg),
		ReadHeaderTimeout: cfg.ReadTimeout,
		WriteTimeout:      cfg.WriteTimeout,
	}

	errCh := make(chan error, 1)
	go func() {
		logger.InfoLog(ctx, "client listening on http://localhost%s", cfg.Addr)
		errCh <- httpServer.ListenAndServe()
	}()

	select {
	case <-ctx.Done():
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		_ = httpServer.Shutdown(shutdownCtx)
		return ctx.Err()
	case err := <-errCh:
		if err == nil || errors.Is(err, http.ErrServerClosed) {
			return nil
		}
		return err
	}
}

func (s *server) loginPage(w http.ResponseWriter, r *http.Request) {
	if r.URL.Path != "/" {
		http.NotFound(w, r)
		return
	}
	if r.Method != http.MethodGet {
		http.Error(w, "method not allowed", http.StatusMethodNotAllowed)
		return
	}
	query := r.URL.Query()
	data := pageData{
		Error:    query.Get("error"),
		Message:  query.Get("message"),
		Tab:      tabFor(query.Get("tab")),
		Register: query.Get("page") == "register",
	}
	if err := renderHTMLTemplate(w, s.loginTmpl, data); err != nil {
		http.Error(w, "template render failed", http.StatusInternalServerError)
		logger.ErrorLog(r.Context(), err, "login template render failed")
	}
}

func (s *server) loginHandler(role api.Role) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.Method != http.MethodPost {
			http.Error(w, "method not allowed", http.StatusMethodNotAllowed)
			return
		}
		back := loginPath(role, false)
		if err := r.ParseForm(); err != nil {
			http.Redirect(w, r, withQuery(back, "error", "Invalid form submission"), http.StatusFound)
			return
		}

		// every login gets a fresh session id; a cookie the browser already
		// holds is never promoted to a signed-in session
		previous := sessionID(r)
		sid := security.NewSessionID()
		vp := newPageView("", false)
		p := s.portalFor(sid, vp)
		form := portal.LoginForm{
			Email:    r.FormValue("email"),
			Password: r.FormValue("password"),
		}
		var err error
		if role == api.RoleManager {
			err = p.LoginHR(r.Context(), form)
		} else {
			err = p.LoginEmployee(r.Context(), form)
		}
		if err != nil {
			http.Redirect(w, r, withQuery(back, "error", vp.notice()), http.StatusFound)
			return
		}
		if previous != "" {
			if err := s.sessions.Open(previous).Clear(r.Context()); err != nil {
				logger.WarnLog(r.Context(), "clear previous session: %v", err)
			}
		}
		s.setSessionCookie(w, sid)
		http.Redirect(w, r, withQuery(vp.target().Path(), "message", vp.notice()), http.StatusFound)
	})
}

func (s *server) registerHandler(role api.Role) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.Method != http.MethodPost {
			http.Error(w, "method not allowed", http.StatusMethodNotAllowed)
			return
		}
		back := loginPath(role, true)
		if err := r.ParseForm(); err != nil {
			http.Redirect(w, r, withQuery(back, "error", "Invalid form submission"), http.StatusFound)
			return
		}

		vp := newPageView("", false)
		p := s.portalFor("", vp)
		form := portal.RegisterForm{
			Name:            r.FormValue("name"),
			Email:           r.FormValue("email"),
			Department:      r.FormValue("department"),
			Password:        r.FormValue("password"),
			ConfirmPassword: r.FormValue("confirm_password"),
		}
		var err error
		if role == api.RoleManager {
			err = p.RegisterHR(r.Context(), form)
		} else {
			err = p.RegisterEmployee(r.Context(), form)
		}
		if err != nil {
			http.Redirect(w, r, withQuery(back, "error", vp.notice()), http.StatusFound)
			return
		}
		http.Redirect(w, r, withQuery(loginPath(role, false), "message", vp.notice()), http.StatusFound)
	})
}

func (s *server) logout(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		http.Error(w, "method not allowed", http.StatusMethodNotAllowed)
		return
	}
	if err := r.ParseForm(); err != nil {
		http.Redirect(w, r, "/", http.StatusFound)
		return
	}
	sid := sessionID(r)
	if sid == "" {
		http.Redirect(w, r, "/", http.StatusFound)
		return
	}

	vp := newPageView("", r.FormValue("confirm") == "yes")
	confirmed, err := s.portalFor(sid, vp).Logout(r.Context())
	if err != nil {
		logger.ErrorLog(r.Context(), err, "logout failed")
		http.Redirect(w, r, withQuery("/", "error", "Logout failed"), http.StatusFound)
		return
	}
	if !confirmed {
		http.Redirect(w, r, fallbackReferer(r), http.StatusFound)
		return
	}
	http.SetCookie(w, &http.Cookie{
		Name:     sessionCookieName,
		Value:    "",
		Path:     "/",
		MaxAge:   -1,
		HttpOnly: true,
		Secure:   s.secureCookie,
		SameSite: http.SameSiteLaxMode,
	})
	http.Redirect(w, r, vp.target().Path(), http.StatusFound)
}

func (s *server) employeeDashboard(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		http.Error(w, "method not allowed", http.StatusMethodNotAllowed)
		return
	}
	section := sectionFor(r.URL.Query().Get("section"), view.SectionProfile,
		view.SectionProfile, view.SectionApply, view.SectionStatus, view.SectionHistory)
	vp := newPageView(section, false)
	p, ok := s.sessionPortal(w, r, vp)
	if !ok {
		return
	}
	if err := p.OpenEmployeeDashboard(r.Context()); err != nil {
		if errors.Is(err, portal.ErrNoSession) {
			redirectToLogin(w, r, portal.Message(err))
			return
		}
		logger.WarnLog(r.Context(), "employee dashboard partially loaded: %v", err)
	}
	s.renderEmployeeDashboard(w, r, http.StatusOK, vp, pageData{
		Error:   r.URL.Query().Get("error"),
		Message: r.URL.Query().Get("message"),
		Section: string(section),
	})
}

func (s *server) renderEmployeeDashboard(w http.ResponseWriter, r *http.Request, status int, vp *pageView, data pageData) {
	data.Profile = vp.region(view.RegionProfile)
	data.StatusCards = vp.region(view.RegionLeaveStatus)
	data.HistoryRows = vp.region(view.RegionLeaveHistory)
	if err := renderHTMLTemplateStatus(w, status, s.employeeTmpl, data); err != nil {
		http.Error(w, "template render failed", http.StatusInternalServerError)
		logger.ErrorLog(r.Context(), err, "employee dashboard render failed")
	}
}

// submitLeave redirects after a successful submit. A rejected submit renders
// the dashboard directly so the form keeps what the user typed.
func (s *server) submitLeave(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		http.Error(w, "method not allowed", http.StatusMethodNotAllowed)
		return
	}
	if err := r.ParseForm(); err != nil {
		http.Redirect(w, r, withQuery("/employee_dashboard?section=apply", "error", "Invalid form submission"), http.StatusFound)
		return
	}
	vp := newPageView(view.SectionApply, false)
	p, ok := s.sessionPortal(w, r, vp)
	if !ok {
		return
	}

	form := portal.LeaveForm{
		Title:       r.FormValue("leaveTitle"),
		StartDate:   r.FormValue("startDate"),
		EndDate:     r.FormValue("endDate"),
		Description: r.FormValue("description"),
	}
	err := p.SubmitLeave(r.Context(), form)
	if errors.Is(err, portal.ErrNoSession) {
		redirectToLogin(w, r, vp.notice())
		return
	}
	if err == nil {
		http.Redirect(w, r, withQuery("/employee_dashboard?section=status", "message", vp.notice()), http.StatusFound)
		return
	}

	if openErr := p.OpenEmployeeDashboard(r.Context()); openErr != nil {
		logger.WarnLog(r.Context(), "employee dashboard partially loaded: %v", openErr)
	}
	status := http.StatusUnprocessableEntity
	var reqErr *api.RequestError
	if errors.As(err, &reqErr) {
		status = http.StatusBadGateway
	}
	s.renderEmployeeDashboard(w, r, status, vp, pageData{
		Error:   vp.notice(),
		Section: string(view.SectionApply),
		Form:    leaveFormData(form),
	})
}

func (s *server) employeeFragments(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		http.Error(w, "method not allowed", http.StatusMethodNotAllowed)
		return
	}
	var region view.Region
	var load func(*portal.Portal, context.Context) error
	switch strings.TrimPrefix(r.URL.Path, "/employee_dashboard/fragments/") {
	case "status":
		region = view.RegionLeaveStatus
		load = func(p *portal.Portal, ctx context.Context) error { _, err := p.LoadLeaveStatus(ctx); return err }
	case "history":
		region = view.RegionLeaveHistory
		load = func(p *portal.Portal, ctx context.Context) error { _, err := p.LoadLeaveHistory(ctx); return err }
	default:
		http.NotFound(w, r)
		return
	}
	s.serveFragment(w, r, region, load)
}

func (s *server) hrDashboard(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		http.Error(w, "method not allowed", http.StatusMethodNotAllowed)
		return
	}
	section := sectionFor(r.URL.Query().Get("section"), view.SectionProfile,
		view.SectionProfile, view.SectionLeaveRequests, view.SectionEmployeeList)
	vp := newPageView(section, false)
	p, ok := s.sessionPortal(w, r, vp)
	if !ok {
		return
	}
	if err := p.OpenHRDashboard(r.Context()); err != nil {
		if errors.Is(err, portal.ErrNoSession) {
			redirectToLogin(w, r, portal.Message(err))
			return
		}
		logger.WarnLog(r.Context(), "hr dashboard partially loaded: %v", err)
	}
	data := pageData{
		Error:        r.URL.Query().Get("error"),
		Message:      r.URL.Query().Get("message"),
		Section:      string(section),
		Profile:      vp.region(view.RegionProfile),
		PendingCards: vp.region(view.RegionPendingLeaves),
		EmployeeRows: vp.region(view.RegionEmployees),
		PollMillis:   s.pollInterval.Milliseconds(),
	}
	if err := renderHTMLTemplate(w, s.hrTmpl, data); err != nil {
		http.Error(w, "template render failed", http.StatusInternalServerError)
		logger.ErrorLog(r.Context(), err, "hr dashboard render failed")
	}
}

// decideLeave is the one handler behind every decision button of the
// pending list. Each button posts decision=<action>:<leave id>.
func (s *server) decideLeave(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		http.Error(w, "method not allowed", http.StatusMethodNotAllowed)
		return
	}
	back := "/hr_dashboard?section=leave_requests"
	if err := r.ParseForm(); err != nil {
		http.Redirect(w, r, withQuery(back, "error", "Invalid form submission"), http.StatusFound)
		return
	}
	vp := newPageView(view.SectionLeaveRequests, false)
	p, ok := s.sessionPortal(w, r, vp)
	if !ok {
		return
	}

	handled, err := p.HandlePendingClick(r.Context(), portal.ParseDecision(r.FormValue("decision")))
	switch {
	case !handled:
		http.Redirect(w, r, back, http.StatusFound)
	case errors.Is(err, portal.ErrNoSession):
		redirectToLogin(w, r, vp.notice())
	case err != nil:
		http.Redirect(w, r, withQuery(back, "error", vp.notice()), http.StatusFound)
	default:
		http.Redirect(w, r, withQuery(back, "message", vp.notice()), http.StatusFound)
	}
}

func (s *server) hrFragments(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		http.Error(w, "method not allowed", http.StatusMethodNotAllowed)
		return
	}
	var region view.Region
	var load func(*portal.Portal, context.Context) error
	switch strings.TrimPrefix(r.URL.Path, "/hr_dashboard/fragments/") {
	case "employees":
		region = view.RegionEmployees
		load = func(p *portal.Portal, ctx context.Context) error { _, err := p.LoadEmployees(ctx); return err }
	case "pending":
		region = view.RegionPendingLeaves
		load = func(p *portal.Portal, ctx context.Context) error { _, err := p.LoadPendingLeaves(ctx); return err }
	default:
		http.NotFound(w, r)
		return
	}
	s.serveFragment(w, r, region, load)
}

// serveFragment writes the bare HTML of one region. Backend failures are part
// of the fragment; a missing session is a 401 with no body.
func (s *server) serveFragment(w http.ResponseWriter, r *http.Request, region view.Region, load func(*portal.Portal, context.Context) error) {
	sid := sessionID(r)
	if sid == "" {
		w.WriteHeader(http.StatusUnauthorized)
		return
	}
	vp := newPageView("", false)
	if err := load(s.portalFor(sid, vp), r.Context()); err != nil {
		if errors.Is(err, portal.ErrNoSession) {
			w.WriteHeader(http.StatusUnauthorized)
			return
		}
		logger.WarnLog(r.Context(), "fragment %s: %v", region, err)
	}
	w.Header().Set("Content-Type", "text/html; charset=utf-8")
	_, _ = w.Write([]byte(vp.region(region)))
}

func (s *server) portalFor(sid string, vp *pageView) *portal.Portal {
	store := session.Store(session.NewMemoryStore())
	if sid != "" {
		store = s.sessions.Open(sid)
	}
	return portal.New(portal.Options{
		Client:       s.client,
		Endpoints:    s.endpoints,
		Store:        store,
		View:         vp,
		PollInterval: s.pollInterval,
	})
}

// sessionPortal opens the portal of the browser session, redirecting to the
// login page when the request carries no session cookie.
func (s *server) sessionPortal(w http.ResponseWriter, r *http.Request, vp *pageView) (*portal.Portal, bool) {
	sid := sessionID(r)
	if sid == "" {
		redirectToLogin(w, r, "Please login first!")
		return nil, false
	}
	return s.portalFor(sid, vp), true
}

func (s *server) setSessionCookie(w http.ResponseWriter, sid string) {
	http.SetCookie(w, &http.Cookie{
		Name:     sessionCookieName,
		Value:    sid,
		Path:     "/",
		HttpOnly: true,
		Secure:   s.secureCookie,
		SameSite: http.SameSiteLaxMode,
	})
}

func sessionID(r *http.Request) string {
	c, err := r.Cookie(sessionCookieName)
	if err != nil || !security.ValidSessionID(c.Value) {
		return ""
	}
	return c.Value
}

func redirectToLogin(w http.ResponseWriter, r *http.Request, message string) {
	if message == "" {
		message = "Please login first!"
	}
	http.Redirect(w, r, withQuery("/", "error", message), http.StatusFound)
}

func loginPath(role api.Role, register bool) string {
	query := url.Values{}
	if role == api.RoleManager {
		query.Set("tab", "hr")
	}
	if register {
		query.Set("page", "register")
	}
	if len(query) == 0 {
		return "/"
	}
	return "/?" + query.Encode()
}

// withQuery adds key=value to a local path that may already carry a query.
func withQuery(path, key, value string) string {
	if value == "" {
		return path
	}
	u, err := url.Parse(path)
	if err != nil {
		return path
	}
	query := u.Query()
	query.Set(key, value)
	u.RawQuery = query.Encode()
	return u.String()
}

func fallbackReferer(r *http.Request) string {
	ref, err := url.Parse(r.Referer())
	if err != nil || ref.Path == "" || (ref.Host != "" && ref.Host != r.Host) {
		return "/"
	}
	if ref.RawQuery == "" {
		return ref.Path
	}
	return ref.Path + "?" + ref.RawQuery
}

func tabFor(raw string) string {
	if strings.EqualFold(strings.TrimSpace(raw), "hr") {
		return "hr"
	}
	return "employee"
}

func sectionFor(raw string, def view.Section, allowed ...view.Section) view.Section {
	for _, s := range allowed {
		if string(s) == raw {
			return s
		}
	}
	return def
}

func renderHTMLTemplate(w http.ResponseWriter, tmpl *template.Template, data pageData) error {
	return renderHTMLTemplateStatus(w, http.StatusOK, tmpl, data)
}

func renderHTMLTemplateStatus(w http.ResponseWriter, status int, tmpl *template.Template, data pageData) error {
	var buf bytes.Buffer
	if err := tmpl.Execute(&buf, data); err != nil {
		return fmt.Errorf("execute %s: %w", tmpl.Name(), err)
	}
	w.Header().Set("Content-Type", "text/html; charset=utf-8")
	w.WriteHeader(status)
	_, err := w.Write(buf.Bytes())
	return err
}
