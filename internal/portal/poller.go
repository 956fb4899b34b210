package portal

import (
	"context"
	"sync"
	"time"

	"github.com/phillip-england/lmsportal/internal/logger"
	"github.com/phillip-england/lmsportal/internal/view"
)

// Poller calls a function on a fixed interval until stopped. A tick that
// fires while the previous call is still running is dropped.
type Poller struct {
	cancel context.CancelFunc
	done   chan struct{}
	once   sync.Once
}

// StartPoller runs fn every interval on its own goroutine.
func StartPoller(ctx context.Context, interval time.Duration, fn func(context.Context)) *Poller {
	ctx, cancel := context.WithCancel(ctx)
	p := &Poller{cancel: cancel, done: make(chan struct{})}

	go func() {
		defer close(p.done)
		ticker := time.NewTicker(interval)
		defer ticker.Stop()
		for {
			select {
			case <-ctx.Done():
				return
			case <-ticker.C:
				fn(ctx)
			}
		}
	}()
	return p
}

// Stop cancels the poller and waits for its goroutine to exit.
func (p *Poller) Stop() {
	p.once.Do(p.cancel)
	<-p.done
}

// Done is closed once the poller goroutine has exited.
func (p *Poller) Done() <-chan struct{} {
	return p.done
}

func (p *Poller) exited() bool {
	select {
	case <-p.done:
		return true
	default:
		return false
	}
}

// EnterSection records that the user switched dashboard tabs. Entering the
// employee list starts the roster poller; entering any other section stops it.
func (p *Portal) EnterSection(ctx context.Context, section view.Section) {
	if section != view.SectionEmployeeList {
		p.stopPoller()
		return
	}

	p.mu.Lock()
	defer p.mu.Unlock()
	if p.poller != nil && !p.poller.exited() {
		return
	}
	logger.DebugLog(ctx, "starting employee poller every %s", p.pollInterval)
	poller := StartPoller(ctx, p.pollInterval, func(ctx context.Context) {
		if !p.vp.SectionActive(view.SectionEmployeeList) {
			return
		}
		if _, err := p.LoadEmployees(ctx); err != nil && ctx.Err() == nil {
			logger.WarnLog(ctx, "refresh employees: %v", err)
		}
	})
	p.poller = poller

	// ctx may end before the section is left
	go func() {
		<-poller.Done()
		p.mu.Lock()
		if p.poller == poller {
			p.poller = nil
		}
		p.mu.Unlock()
	}()
}

// LeaveSection stops any polling tied to section.
func (p *Portal) LeaveSection(section view.Section) {
	if section == view.SectionEmployeeList {
		p.stopPoller()
	}
}

// Polling reports whether the roster poller is running.
func (p *Portal) Polling() bool {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.poller != nil
}

func (p *Portal) stopPoller() {
	p.mu.Lock()
	poller := p.poller
	p.poller = nil
	p.mu.Unlock()
	if poller != nil {
		poller.Stop()
	}
}
