package webapp

import (
	"html/template"
	"sync"

	"github.com/phillip-england/lmsportal/internal/view"
)

// pageView is the ViewPort of a single browser request. Workflows write into
// it and the handler turns the result into a redirect or a rendered page.
type pageView struct {
	mu        sync.Mutex
	notices   []string
	navigated view.View
	regions   map[view.Region]template.HTML
	resets    map[view.Form]bool
	confirmed bool
	section   view.Section
}

func newPageView(section view.Section, confirmed bool) *pageView {
	return &pageView{
		regions:   map[view.Region]template.HTML{},
		resets:    map[view.Form]bool{},
		confirmed: confirmed,
		section:   section,
	}
}

func (v *pageView) Notify(msg string) {
	v.mu.Lock()
	defer v.mu.Unlock()
	v.notices = append(v.notices, msg)
}

// Confirm answers with whatever the browser already confirmed client-side.
func (v *pageView) Confirm(string) bool {
	v.mu.Lock()
	defer v.mu.Unlock()
	return v.confirmed
}

func (v *pageView) Navigate(target view.View) {
	v.mu.Lock()
	defer v.mu.Unlock()
	v.navigated = target
}

func (v *pageView) Replace(r view.Region, html template.HTML) {
	v.mu.Lock()
	defer v.mu.Unlock()
	v.regions[r] = html
}

func (v *pageView) ResetForm(f view.Form) {
	v.mu.Lock()
	defer v.mu.Unlock()
	v.resets[f] = true
}

func (v *pageView) SectionActive(s view.Section) bool {
	v.mu.Lock()
	defer v.mu.Unlock()
	return v.section == s
}

func (v *pageView) notice() string {
	v.mu.Lock()
	defer v.mu.Unlock()
	if len(v.notices) == 0 {
		return ""
	}
	return v.notices[len(v.notices)-1]
}

func (v *pageView) target() view.View {
	v.mu.Lock()
	defer v.mu.Unlock()
	return v.navigated
}

func (v *pageView) region(r view.Region) template.HTML {
	v.mu.Lock()
	defer v.mu.Unlock()
	return v.regions[r]
}
