package portal

import (
	"context"
	"fmt"
	"html/template"
	"sync"
	"time"

	"github.com/phillip-england/lmsportal/internal/api"
	"github.com/phillip-england/lmsportal/internal/session"
	"github.com/phillip-england/lmsportal/internal/view"
)

// ViewPort is everything the workflows need from a user interface.
type ViewPort interface {
	Notify(msg string)
	Confirm(prompt string) bool
	Navigate(v view.View)
	Replace(r view.Region, html template.HTML)
	ResetForm(f view.Form)
	SectionActive(s view.Section) bool
}

const (
	msgAllFieldsRequired = "All fields are required!"
	msgPasswordMismatch  = "Passwords do not match!"
	msgLoginFirst        = "Please login first!"
	msgDatesRequired     = "Please provide start and end dates!"
	msgInvalidDates      = "Invalid start or end date!"
	msgLeaveSubmitted    = "Leave submitted successfully!"
	msgSubmitFailed      = "Error submitting leave: "
	msgDecisionFailed    = "Error: "
	msgLogoutPrompt      = "Are you sure you want to logout?"
	msgMissingToken      = "Login response did not include an access token"
)

type Options struct {
	Client       *api.Client
	Endpoints    api.Endpoints
	Store        session.Store
	View         ViewPort
	PollInterval time.Duration
	// SkipReloads stops SubmitLeave from reloading the status and history
	// regions afterwards. Bulk callers that render nothing set it.
	SkipReloads bool
}

// Portal runs the auth and leave workflows against one session store and one
// viewport. It is safe for concurrent use.
type Portal struct {
	client       *api.Client
	endpoints    api.Endpoints
	store        session.Store
	vp           ViewPort
	pollInterval time.Duration
	skipReloads  bool

	mu     sync.Mutex
	poller *Poller
}

func New(opts Options) *Portal {
	if opts.Client == nil {
		opts.Client = api.NewClient(0)
	}
	if opts.Store == nil {
		opts.Store = session.NewMemoryStore()
	}
	if opts.View == nil {
		opts.View = discardView{}
	}
	if opts.PollInterval <= 0 {
		opts.PollInterval = 5 * time.Second
	}
	return &Portal{
		client:       opts.Client,
		endpoints:    opts.Endpoints,
		store:        opts.Store,
		vp:           opts.View,
		pollInterval: opts.PollInterval,
		skipReloads:  opts.SkipReloads,
	}
}

// Token returns the stored session token, if any.
func (p *Portal) Token(ctx context.Context) (string, bool, error) {
	return p.store.Get(ctx)
}

// requireToken short-circuits with a StateError when no session is stored.
func (p *Portal) requireToken(ctx context.Context) (string, error) {
	token, ok, err := p.store.Get(ctx)
	if err != nil {
		return "", fmt.Errorf("read session: %w", err)
	}
	if !ok {
		return "", &StateError{Message: msgLoginFirst}
	}
	return token, nil
}

func (p *Portal) invalid(message string) error {
	p.vp.Notify(message)
	return &ValidationError{Message: message}
}

// Close stops background work started by the portal.
func (p *Portal) Close() {
	p.stopPoller()
}

type discardView struct{}

func (discardView) Notify(string)                      {}
func (discardView) Confirm(string) bool                { return true }
func (discardView) Navigate(view.View)                 {}
func (discardView) Replace(view.Region, template.HTML) {}
func (discardView) ResetForm(view.Form)                {}
func (discardView) SectionActive(view.Section) bool    { return false }
