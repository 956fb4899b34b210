package portal

import (
	"context"
	"fmt"
	"net/http"
	"strings"

	"github.com/phillip-england/lmsportal/internal/api"
	"github.com/phillip-england/lmsportal/internal/logger"
	"github.com/phillip-england/lmsportal/internal/view"
)

type RegisterForm struct {
	Name            string
	Email           string
	Department      string
	Password        string
	ConfirmPassword string
}

type LoginForm struct {
	Email    string
	Password string
}

// roleCopy holds the per-role notification text and landing view.
type roleCopy struct {
	registered     string
	registerFailed string
	loggedIn       string
	loginFailed    string
	dashboard      view.View
}

var copyByRole = map[api.Role]roleCopy{
	api.RoleEmployee: {
		registered:     "Employee registered successfully!",
		registerFailed: "Registration failed: ",
		loggedIn:       "Login successful!",
		loginFailed:    "Login failed: ",
		dashboard:      view.ViewEmployeeDashboard,
	},
	api.RoleManager: {
		registered:     "HR registered successfully!",
		registerFailed: "HR registration failed: ",
		loggedIn:       "HR login successful!",
		loginFailed:    "HR login failed: ",
		dashboard:      view.ViewHRDashboard,
	},
}

func (p *Portal) RegisterEmployee(ctx context.Context, form RegisterForm) error {
	return p.register(ctx, api.RoleEmployee, form)
}

func (p *Portal) RegisterHR(ctx context.Context, form RegisterForm) error {
	return p.register(ctx, api.RoleManager, form)
}

func (p *Portal) LoginEmployee(ctx context.Context, form LoginForm) error {
	return p.login(ctx, api.RoleEmployee, form)
}

func (p *Portal) LoginHR(ctx context.Context, form LoginForm) error {
	return p.login(ctx, api.RoleManager, form)
}

// register validates locally, then creates the account. A successful signup
// never stores a token; the user is sent back to the login view.
func (p *Portal) register(ctx context.Context, role api.Role, form RegisterForm) error {
	texts := copyByRole[role]
	name := strings.TrimSpace(form.Name)
	email := strings.TrimSpace(form.Email)
	if name == "" || email == "" || form.Department == "" || form.Password == "" || form.ConfirmPassword == "" {
		return p.invalid(msgAllFieldsRequired)
	}
	if form.Password != form.ConfirmPassword {
		return p.invalid(msgPasswordMismatch)
	}

	body := api.RegisterRequest{
		Name:       name,
		Email:      email,
		Department: form.Department,
		Password:   form.Password,
	}
	if _, err := p.client.Do(ctx, http.MethodPost, p.endpoints.Signup(role), body, ""); err != nil {
		logger.WarnLog(ctx, "%s signup failed for %s: %v", role, email, err)
		p.vp.Notify(texts.registerFailed + Message(err))
		return err
	}

	logger.InfoLog(ctx, "%s registered: %s", role, email)
	p.vp.Notify(texts.registered)
	p.vp.Navigate(view.ViewLogin)
	return nil
}

// login stores the returned access token and opens the role's dashboard.
// Nothing is stored unless the backend returns a token.
func (p *Portal) login(ctx context.Context, role api.Role, form LoginForm) error {
	texts := copyByRole[role]
	body := api.LoginRequest{
		Email:    strings.TrimSpace(form.Email),
		Password: form.Password,
	}

	res, err := p.client.Do(ctx, http.MethodPost, p.endpoints.Login(role), body, "")
	if err != nil {
		p.vp.Notify(texts.loginFailed + Message(err))
		return err
	}

	var payload api.LoginResponse
	if err := res.Decode(&payload); err != nil || payload.AccessToken == "" {
		missing := &api.RequestError{Status: res.Status, Message: msgMissingToken, Err: err}
		p.vp.Notify(texts.loginFailed + missing.Message)
		return missing
	}

	if err := p.store.Set(ctx, payload.AccessToken); err != nil {
		p.vp.Notify(texts.loginFailed + err.Error())
		return fmt.Errorf("store session: %w", err)
	}

	logger.InfoLog(ctx, "%s logged in: %s", role, body.Email)
	p.vp.Notify(texts.loggedIn)
	p.vp.Navigate(texts.dashboard)
	return nil
}

// Logout asks for confirmation, then drops the local token and returns to the
// login view. The backend is not contacted. It reports whether the user
// confirmed.
func (p *Portal) Logout(ctx context.Context) (bool, error) {
	if !p.vp.Confirm(msgLogoutPrompt) {
		return false, nil
	}
	p.stopPoller()
	if err := p.store.Clear(ctx); err != nil {
		return false, fmt.Errorf("clear session: %w", err)
	}
	p.vp.Navigate(view.ViewLogin)
	return true, nil
}

func (p *Portal) LoadEmployeeProfile(ctx context.Context) (api.Principal, error) {
	return p.loadProfile(ctx, api.RoleEmployee)
}

func (p *Portal) LoadHRProfile(ctx context.Context) (api.Principal, error) {
	return p.loadProfile(ctx, api.RoleManager)
}

func (p *Portal) loadProfile(ctx context.Context, role api.Role) (api.Principal, error) {
	token, err := p.requireToken(ctx)
	if err != nil {
		return api.Principal{}, err
	}
	res, err := p.client.Do(ctx, http.MethodGet, p.endpoints.Me(role), nil, token)
	if err != nil {
		p.vp.Replace(view.RegionProfile, view.ProfileError(Message(err)))
		return api.Principal{}, err
	}
	var me api.Principal
	if err := res.Decode(&me); err != nil {
		p.vp.Replace(view.RegionProfile, view.ProfileError("invalid profile response"))
		return api.Principal{}, fmt.Errorf("decode profile: %w", err)
	}
	p.vp.Replace(view.RegionProfile, view.Profile(me, role == api.RoleManager))
	return me, nil
}
