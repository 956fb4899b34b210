package devapi

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/phillip-england/lmsportal/internal/api"
	"github.com/phillip-england/lmsportal/internal/config"
	"github.com/phillip-england/lmsportal/internal/logger"
	"github.com/phillip-england/lmsportal/internal/middleware"
	"github.com/phillip-england/lmsportal/internal/security"
	"github.com/phillip-england/lmsportal/internal/view"
)

type contextKey string

const userContextKey contextKey = "user"

// Config describes the development backend. Path prefixes match the ones the
// client is configured with.
type Config struct {
	Addr        string
	Secret      string
	TokenTTL    time.Duration
	EmpAuthPath string
	EmpDashPath string
	ManAuthPath string
	ManDashPath string
}

func ConfigFrom(cfg config.Config) Config {
	return Config{
		Addr:        cfg.DevAPIAddr,
		Secret:      cfg.DevAPISecret,
		TokenTTL:    cfg.SessionTTL,
		EmpAuthPath: cfg.EmpAuthPath,
		EmpDashPath: cfg.EmpDashPath,
		ManAuthPath: cfg.ManAuthPath,
		ManDashPath: cfg.ManDashPath,
	}
}

func DefaultConfig() Config {
	return Config{
		Addr:        ":8000",
		Secret:      "lmsportal-dev-secret",
		TokenTTL:    12 * time.Hour,
		EmpAuthPath: config.DefaultEmpAuthPath,
		EmpDashPath: config.DefaultEmpDashPath,
		ManAuthPath: config.DefaultManAuthPath,
		ManDashPath: config.DefaultManDashPath,
	}
}

type signupRequest struct {
	Name       string `json:"name"`
	Email      string `json:"email"`
	Department string `json:"department"`
	Password   string `json:"password"`
}

type loginRequest struct {
	Email    string `json:"email"`
	Password string `json:"password"`
}

type submitRequest struct {
	LeaveTitle  string `json:"leaveTitle"`
	StartDate   string `json:"startDate"`
	EndDate     string `json:"endDate"`
	Days        int    `json:"days"`
	Description string `json:"description"`
}

type validationIssue struct {
	Loc  []string `json:"loc"`
	Msg  string   `json:"msg"`
	Type string   `json:"type"`
}

type server struct {
	store  *memoryStore
	tokens *security.TokenManager
}

// NewHandler returns the backend's routes with fresh, empty state.
func NewHandler(cfg Config) http.Handler {
	if cfg.TokenTTL <= 0 {
		cfg.TokenTTL = 12 * time.Hour
	}
	s := &server{
		store:  newMemoryStore(),
		tokens: security.NewTokenManager(cfg.Secret, "lmsportal-devapi", cfg.TokenTTL),
	}

	empAuth := "/" + strings.Trim(cfg.EmpAuthPath, "/")
	empDash := "/" + strings.Trim(cfg.EmpDashPath, "/")
	manAuth := "/" + strings.Trim(cfg.ManAuthPath, "/")
	manDash := "/" + strings.Trim(cfg.ManDashPath, "/")

	mux := http.NewServeMux()
	mux.Handle(empAuth+"/Employee_signup", s.signup(api.RoleEmployee))
	mux.Handle(empAuth+"/Employee_login", s.login(api.RoleEmployee))
	mux.Handle(empAuth+"/me", middleware.Chain(http.HandlerFunc(s.me), s.requireRole(api.RoleEmployee)))
	mux.Handle(manAuth+"/Manager_signup", s.signup(api.RoleManager))
	mux.Handle(manAuth+"/Manager_login", s.login(api.RoleManager))
	mux.Handle(manAuth+"/me", middleware.Chain(http.HandlerFunc(s.me), s.requireRole(api.RoleManager)))
	mux.Handle(empDash+"/submit", middleware.Chain(http.HandlerFunc(s.submitLeave), s.requireRole(api.RoleEmployee)))
	mux.Handle(empDash+"/my_leaves", middleware.Chain(http.HandlerFunc(s.myLeaves), s.requireRole(api.RoleEmployee)))
	mux.Handle(manDash+"/leave_requests", middleware.Chain(http.HandlerFunc(s.leaveRequests), s.requireRole(api.RoleManager)))
	mux.Handle(manDash+"/employees", middleware.Chain(http.HandlerFunc(s.employees), s.requireRole(api.RoleManager)))
	mux.Handle(manDash+"/", middleware.Chain(s.decisionRoutes(manDash), s.requireRole(api.RoleManager)))
	mux.Handle("/health", http.HandlerFunc(s.health))

	return middleware.Chain(mux, middleware.RequestLogger)
}

func Run(ctx context.Context, cfg Config) error {
	httpServer := &http.Server{
		Addr:              cfg.Addr,
		Handler:           NewHandler(cfg),
		ReadHeaderTimeout: 5 * time.Second,
	}

	errCh := make(chan error, 1)
	go func() {
		logger.InfoLog(ctx, "dev api listening on http://localhost%s", cfg.Addr)
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

func (s *server) health(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		writeError(w, http.StatusMethodNotAllowed, "Method Not Allowed")
		return
	}
	writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}

func (s *server) signup(role api.Role) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.Method != http.MethodPost {
			writeError(w, http.StatusMethodNotAllowed, "Method Not Allowed")
			return
		}
		var req signupRequest
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
			writeError(w, http.StatusBadRequest, "Invalid request body")
			return
		}
		req.Name = strings.TrimSpace(req.Name)
		req.Email = strings.TrimSpace(req.Email)
		req.Department = strings.TrimSpace(req.Department)

		var issues []validationIssue
		fields := []struct{ name, value string }{
			{"name", req.Name},
			{"email", req.Email},
			{"department", req.Department},
			{"password", req.Password},
		}
		for _, f := range fields {
			if f.value == "" {
				issues = append(issues, validationIssue{Loc: []string{"body", f.name}, Msg: "Field required: " + f.name, Type: "missing"})
			}
		}
		if req.Email != "" && !strings.Contains(req.Email, "@") {
			issues = append(issues, validationIssue{Loc: []string{"body", "email"}, Msg: "value is not a valid email address", Type: "value_error"})
		}
		if len(issues) > 0 {
			writeValidation(w, issues)
			return
		}

		hash, err := security.HashPassword(req.Password)
		if err != nil {
			writeError(w, http.StatusBadRequest, err.Error())
			return
		}
		user, err := s.store.createUser(userRecord{
			Name:         req.Name,
			Email:        req.Email,
			Department:   req.Department,
			Role:         role,
			PasswordHash: hash,
		})
		if errors.Is(err, errDuplicateEmail) {
			writeError(w, http.StatusBadRequest, "Email already registered")
			return
		}
		if err != nil {
			writeError(w, http.StatusInternalServerError, "Registration failed")
			return
		}

		logger.InfoLog(r.Context(), "registered %s %s", role, user.EmployeeID)
		label := "Employee"
		if role == api.RoleManager {
			label = "Manager"
		}
		writeJSON(w, http.StatusOK, map[string]any{
			"message":     label + " registered successfully",
			"user_id":     user.ID,
			"employee_id": user.EmployeeID,
		})
	})
}

func (s *server) login(role api.Role) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.Method != http.MethodPost {
			writeError(w, http.StatusMethodNotAllowed, "Method Not Allowed")
			return
		}
		var req loginRequest
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
			writeError(w, http.StatusBadRequest, "Invalid request body")
			return
		}
		user, err := s.store.userByEmail(role, req.Email)
		if err != nil || !security.VerifyPassword(req.Password, user.PasswordHash) {
			writeError(w, http.StatusUnauthorized, "Invalid email or password")
			return
		}

		token, err := s.tokens.Generate(strconv.FormatInt(user.ID, 10), user.Email, string(role))
		if err != nil {
			writeError(w, http.StatusInternalServerError, "Login failed")
			return
		}
		writeJSON(w, http.StatusOK, map[string]any{
			"access_token": token,
			"token_type":   "bearer",
			"user":         profilePayload(user),
		})
	})
}

func (s *server) me(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		writeError(w, http.StatusMethodNotAllowed, "Method Not Allowed")
		return
	}
	user := userFromContext(r.Context())
	if user == nil {
		writeError(w, http.StatusUnauthorized, "Not authenticated")
		return
	}
	writeJSON(w, http.StatusOK, profilePayload(*user))
}

func (s *server) submitLeave(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		writeError(w, http.StatusMethodNotAllowed, "Method Not Allowed")
		return
	}
	user := userFromContext(r.Context())
	var req submitRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "Invalid request body")
		return
	}
	start, err := view.ParseDate(req.StartDate)
	if err != nil {
		writeValidation(w, []validationIssue{{Loc: []string{"body", "startDate"}, Msg: "Input should be a valid date", Type: "date_from_datetime_parsing"}})
		return
	}
	end, err := view.ParseDate(req.EndDate)
	if err != nil {
		writeValidation(w, []validationIssue{{Loc: []string{"body", "endDate"}, Msg: "Input should be a valid date", Type: "date_from_datetime_parsing"}})
		return
	}
	if end.Before(start) {
		writeError(w, http.StatusBadRequest, "End date cannot be before start date")
		return
	}
	if req.Days <= 0 {
		req.Days = view.CountDays(start, end)
	}

	leave := s.store.createLeave(leaveRecord{
		UserID:      user.ID,
		Title:       strings.TrimSpace(req.LeaveTitle),
		StartDate:   req.StartDate,
		EndDate:     req.EndDate,
		Days:        req.Days,
		Description: req.Description,
	})
	writeJSON(w, http.StatusOK, map[string]any{
		"message": "Leave submitted successfully",
		"leaveId": leave.ID,
	})
}

func (s *server) myLeaves(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		writeError(w, http.StatusMethodNotAllowed, "Method Not Allowed")
		return
	}
	user := userFromContext(r.Context())
	leaves := s.store.leavesForUser(user.ID)
	out := make([]map[string]any, 0, len(leaves))
	for _, l := range leaves {
		out = append(out, map[string]any{
			"_id":         l.ID,
			"leaveTitle":  l.Title,
			"startDate":   l.StartDate,
			"endDate":     l.EndDate,
			"days":        l.Days,
			"description": l.Description,
			"status":      l.Status,
		})
	}
	writeJSON(w, http.StatusOK, out)
}

func (s *server) leaveRequests(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		writeError(w, http.StatusMethodNotAllowed, "Method Not Allowed")
		return
	}
	leaves := s.store.pendingLeaves()
	out := make([]map[string]any, 0, len(leaves))
	for _, l := range leaves {
		name := ""
		if owner, err := s.store.userByID(l.UserID); err == nil {
			name = owner.Name
		}
		out = append(out, map[string]any{
			"id":            l.ID,
			"leaveTitle":    l.Title,
			"employee_name": name,
			"startDate":     l.StartDate,
			"endDate":       l.EndDate,
			"days":          l.Days,
			"status":        l.Status,
		})
	}
	writeJSON(w, http.StatusOK, out)
}

// decisionRoutes serves {MAN_DASH}/approve_leave/{id} and reject_leave/{id}.
func (s *server) decisionRoutes(manDash string) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		rest := strings.TrimPrefix(r.URL.Path, manDash+"/")
		action, id, ok := strings.Cut(rest, "/")
		if !ok || id == "" || strings.Contains(id, "/") {
			writeError(w, http.StatusNotFound, "Not Found")
			return
		}
		var status api.LeaveStatus
		switch action {
		case "approve_leave":
			status = api.StatusApproved
		case "reject_leave":
			status = api.StatusRejected
		default:
			writeError(w, http.StatusNotFound, "Not Found")
			return
		}
		if r.Method != http.MethodPost {
			writeError(w, http.StatusMethodNotAllowed, "Method Not Allowed")
			return
		}

		manager := userFromContext(r.Context())
		leave, err := s.store.decideLeave(id, status, manager.ID)
		switch {
		case errors.Is(err, errNotFound):
			writeError(w, http.StatusNotFound, "Leave not found")
			return
		case errors.Is(err, errNotPending):
			writeError(w, http.StatusBadRequest, "Leave already processed")
			return
		case err != nil:
			writeError(w, http.StatusInternalServerError, "Decision failed")
			return
		}
		logger.InfoLog(r.Context(), "leave %s %s by %s", leave.ID, strings.ToLower(string(status)), manager.EmployeeID)
		writeJSON(w, http.StatusOK, map[string]any{
			"message": fmt.Sprintf("Leave %s successfully", strings.ToLower(string(status))),
			"leaveId": leave.ID,
			"status":  leave.Status,
		})
	})
}

func (s *server) employees(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		writeError(w, http.StatusMethodNotAllowed, "Method Not Allowed")
		return
	}
	users := s.store.listEmployees()
	out := make([]map[string]any, 0, len(users))
	for _, u := range users {
		out = append(out, map[string]any{
			"employee_id": u.EmployeeID,
			"name":        u.Name,
			"email":       u.Email,
			"department":  u.Department,
			"status":      "Active",
		})
	}
	writeJSON(w, http.StatusOK, out)
}

// requireRole authenticates the bearer token and checks the account kind.
func (s *server) requireRole(role api.Role) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			token, ok := bearerToken(r)
			if !ok {
				writeError(w, http.StatusUnauthorized, "Not authenticated")
				return
			}
			claims, err := s.tokens.Verify(token)
			if err != nil {
				writeError(w, http.StatusUnauthorized, "Could not validate credentials")
				return
			}
			if claims.Role != string(role) {
				writeError(w, http.StatusForbidden, "Not authorized")
				return
			}
			id, err := strconv.ParseInt(claims.Subject, 10, 64)
			if err != nil {
				writeError(w, http.StatusUnauthorized, "Could not validate credentials")
				return
			}
			user, err := s.store.userByID(id)
			if err != nil {
				writeError(w, http.StatusUnauthorized, "Could not validate credentials")
				return
			}
			ctx := context.WithValue(r.Context(), userContextKey, &user)
			next.ServeHTTP(w, r.WithContext(ctx))
		})
	}
}

func bearerToken(r *http.Request) (string, bool) {
	header := strings.TrimSpace(r.Header.Get("Authorization"))
	scheme, token, ok := strings.Cut(header, " ")
	if !ok || !strings.EqualFold(scheme, "Bearer") {
		return "", false
	}
	token = strings.TrimSpace(token)
	return token, token != ""
}

func userFromContext(ctx context.Context) *userRecord {
	record, ok := ctx.Value(userContextKey).(*userRecord)
	if !ok {
		return nil
	}
	return record
}

func profilePayload(u userRecord) map[string]any {
	payload := map[string]any{
		"user_id":     u.ID,
		"employee_id": u.EmployeeID,
		"name":        u.Name,
		"email":       u.Email,
		"department":  u.Department,
	}
	if u.Role == api.RoleManager {
		payload["role"] = string(api.RoleManager)
	}
	return payload
}

func writeValidation(w http.ResponseWriter, issues []validationIssue) {
	writeJSON(w, http.StatusUnprocessableEntity, map[string]any{"detail": issues})
}

func writeError(w http.ResponseWriter, status int, message string) {
	writeJSON(w, status, map[string]string{"detail": message})
}

func writeJSON(w http.ResponseWriter, status int, payload any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(payload)
}
