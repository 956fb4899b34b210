package lmscli

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"strings"
	"text/tabwriter"
	"time"

	"github.com/phillip-england/lmsportal/internal/api"
	"github.com/phillip-england/lmsportal/internal/portal"
	"github.com/phillip-england/lmsportal/internal/security"
	"github.com/phillip-england/lmsportal/internal/view"
)

func (c *CLI) runRegister(ctx context.Context, args []string) error {
	role, err := parseRole("register", args)
	if err != nil {
		return err
	}
	fs := flag.NewFlagSet("register", flag.ContinueOnError)
	fs.SetOutput(c.Out)
	name := fs.String("name", "", "full name")
	email := fs.String("email", "", "email address")
	department := fs.String("department", "", "department")
	password := fs.String("password", "", "password (prompted when omitted)")
	confirm := fs.String("confirm-password", "", "password again (prompted when omitted)")
	if err := parseFlags(fs, args[1:]); err != nil {
		return err
	}

	w, err := c.open()
	if err != nil {
		return err
	}
	defer w.close()

	if *password == "" {
		*password = w.term.ReadSecret("Password")
	}
	if *confirm == "" {
		*confirm = w.term.ReadSecret("Confirm password")
	}

	form := portal.RegisterForm{
		Name:            *name,
		Email:           *email,
		Department:      *department,
		Password:        *password,
		ConfirmPassword: *confirm,
	}
	if role == api.RoleManager {
		return w.portal.RegisterHR(ctx, form)
	}
	return w.portal.RegisterEmployee(ctx, form)
}

func (c *CLI) runLogin(ctx context.Context, args []string) error {
	role, err := parseRole("login", args)
	if err != nil {
		return err
	}
	fs := flag.NewFlagSet("login", flag.ContinueOnError)
	fs.SetOutput(c.Out)
	email := fs.String("email", "", "email address")
	password := fs.String("password", "", "password (prompted when omitted)")
	if err := parseFlags(fs, args[1:]); err != nil {
		return err
	}

	w, err := c.open()
	if err != nil {
		return err
	}
	defer w.close()

	if *password == "" {
		*password = w.term.ReadSecret("Password")
	}

	form := portal.LoginForm{Email: *email, Password: *password}
	if role == api.RoleManager {
		return w.portal.LoginHR(ctx, form)
	}
	return w.portal.LoginEmployee(ctx, form)
}

func (c *CLI) runLogout(ctx context.Context, args []string) error {
	fs := flag.NewFlagSet("logout", flag.ContinueOnError)
	fs.SetOutput(c.Out)
	yes := fs.Bool("yes", false, "do not ask for confirmation")
	if err := parseFlags(fs, args); err != nil {
		return err
	}

	w, err := c.open()
	if err != nil {
		return err
	}
	defer w.close()

	w.term.AssumeYes(*yes)
	confirmed, err := w.portal.Logout(ctx)
	if err != nil {
		return err
	}
	if !confirmed {
		fmt.Fprintln(c.Out, "Logout cancelled.")
		return nil
	}
	fmt.Fprintln(c.Out, "Logged out.")
	return nil
}

// runSession describes the stored token without contacting the backend.
func (c *CLI) runSession(ctx context.Context) error {
	w, err := c.open()
	if err != nil {
		return err
	}
	defer w.close()

	token, ok, err := w.portal.Token(ctx)
	if err != nil {
		return err
	}
	if !ok {
		fmt.Fprintln(c.Out, "No active session.")
		return nil
	}

	tw := tabwriter.NewWriter(c.Out, 0, 0, 2, ' ', 0)
	fmt.Fprintf(tw, "Session file:\t%s\n", w.store.Path())
	claims, err := security.PeekClaims(token)
	if err != nil {
		fmt.Fprintf(tw, "Token:\topaque (%d bytes)\n", len(token))
		return tw.Flush()
	}
	if claims.Role != "" {
		fmt.Fprintf(tw, "Role:\t%s\n", claims.Role)
	}
	if claims.Email != "" {
		fmt.Fprintf(tw, "Email:\t%s\n", claims.Email)
	}
	if claims.Subject != "" {
		fmt.Fprintf(tw, "Subject:\t%s\n", claims.Subject)
	}
	if !claims.ExpiresAt.IsZero() {
		state := "valid"
		if claims.Expired(time.Now()) {
			state = "expired"
		}
		fmt.Fprintf(tw, "Expires:\t%s (%s)\n", claims.ExpiresAt.Local().Format(time.RFC1123), state)
	}
	return tw.Flush()
}

func (c *CLI) runProfile(ctx context.Context, args []string) error {
	role, err := parseRole("profile", args)
	if err != nil {
		return err
	}
	w, err := c.open()
	if err != nil {
		return err
	}
	defer w.close()

	if role == api.RoleManager {
		_, err = w.portal.LoadHRProfile(ctx)
	} else {
		_, err = w.portal.LoadEmployeeProfile(ctx)
	}
	return err
}

func (c *CLI) runLeave(ctx context.Context, args []string) error {
	if len(args) < 1 {
		return fmt.Errorf("%w: lmsportal leave submit|status|history", ErrUsage)
	}

	switch args[0] {
	case "submit":
		fs := flag.NewFlagSet("leave submit", flag.ContinueOnError)
		fs.SetOutput(c.Out)
		title := fs.String("title", "", "leave title")
		start := fs.String("start", "", "first day, YYYY-MM-DD")
		end := fs.String("end", "", "last day, YYYY-MM-DD")
		description := fs.String("description", "", "reason for the leave")
		if err := parseFlags(fs, args[1:]); err != nil {
			return err
		}
		w, err := c.open()
		if err != nil {
			return err
		}
		defer w.close()
		return w.portal.SubmitLeave(ctx, portal.LeaveForm{
			Title:       *title,
			StartDate:   *start,
			EndDate:     *end,
			Description: *description,
		})
	case "status", "history":
		w, err := c.open()
		if err != nil {
			return err
		}
		defer w.close()
		if args[0] == "status" {
			_, err = w.portal.LoadLeaveStatus(ctx)
		} else {
			_, err = w.portal.LoadLeaveHistory(ctx)
		}
		return err
	default:
		return fmt.Errorf("%w: lmsportal leave submit|status|history", ErrUsage)
	}
}

func (c *CLI) runHR(ctx context.Context, args []string) error {
	if len(args) < 1 {
		return fmt.Errorf("%w: lmsportal hr pending|employees|approve|reject", ErrUsage)
	}

	switch args[0] {
	case "pending":
		w, err := c.open()
		if err != nil {
			return err
		}
		defer w.close()
		_, err = w.portal.LoadPendingLeaves(ctx)
		return err
	case "employees":
		fs := flag.NewFlagSet("hr employees", flag.ContinueOnError)
		fs.SetOutput(c.Out)
		watch := fs.Bool("watch", false, "keep refreshing the list until interrupted")
		if err := parseFlags(fs, args[1:]); err != nil {
			return err
		}
		w, err := c.open()
		if err != nil {
			return err
		}
		defer w.close()
		if _, err := w.portal.LoadEmployees(ctx); err != nil {
			return err
		}
		if !*watch {
			return nil
		}
		return watchEmployees(ctx, w)
	case "approve", "reject":
		if len(args) != 2 || strings.TrimSpace(args[1]) == "" {
			return fmt.Errorf("%w: lmsportal hr %s <leave-id>", ErrUsage, args[0])
		}
		action, err := portal.ParseAction(args[0])
		if err != nil {
			return err
		}
		w, err := c.open()
		if err != nil {
			return err
		}
		defer w.close()
		return w.portal.DecideLeave(ctx, args[1], action)
	default:
		return fmt.Errorf("%w: lmsportal hr pending|employees|approve|reject", ErrUsage)
	}
}

// watchEmployees keeps the employee section active so the portal's poller
// refreshes it, until ctx is cancelled.
func watchEmployees(ctx context.Context, w *workspace) error {
	w.term.SetActive(view.SectionEmployeeList, true)
	w.portal.EnterSection(ctx, view.SectionEmployeeList)
	defer func() {
		w.term.SetActive(view.SectionEmployeeList, false)
		w.portal.LeaveSection(view.SectionEmployeeList)
	}()

	<-ctx.Done()
	if errors.Is(ctx.Err(), context.Canceled) {
		return nil
	}
	return ctx.Err()
}
