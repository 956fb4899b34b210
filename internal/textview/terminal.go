package textview

import (
	"bufio"
	"fmt"
	"html/template"
	"io"
	"os"
	"strings"
	"sync"

	"golang.org/x/term"

	"github.com/phillip-england/lmsportal/internal/view"
)

var regionTitles = map[view.Region]string{
	view.RegionProfile:       "Profile",
	view.RegionLeaveStatus:   "Leave status",
	view.RegionLeaveHistory:  "Leave history",
	view.RegionPendingLeaves: "Pending leave requests",
	view.RegionEmployees:     "Employees",
}

var (
	historyHeader  = []string{"Title", "Start", "End", "Days", "Status"}
	employeeHeader = []string{"ID", "Name", "Email", "Department", "Status"}
)

// Terminal is a ViewPort that prints to a writer and reads confirmations from
// a reader. It is safe for use by a background poller.
type Terminal struct {
	mu        sync.Mutex
	out       io.Writer
	in        *bufio.Reader
	rawIn     io.Reader
	assumeYes bool
	current   view.View
	active    map[view.Section]bool
}

func NewTerminal(out io.Writer, in io.Reader) *Terminal {
	t := &Terminal{out: out, active: map[view.Section]bool{}}
	if in != nil {
		t.in = bufio.NewReader(in)
		t.rawIn = in
	}
	return t
}

// AssumeYes answers every confirmation with yes.
func (t *Terminal) AssumeYes(yes bool) {
	t.mu.Lock()
	t.assumeYes = yes
	t.mu.Unlock()
}

func (t *Terminal) Notify(msg string) {
	t.mu.Lock()
	defer t.mu.Unlock()
	fmt.Fprintln(t.out, msg)
}

func (t *Terminal) Confirm(prompt string) bool {
	t.mu.Lock()
	defer t.mu.Unlock()
	if t.assumeYes {
		return true
	}
	if t.in == nil {
		return false
	}
	fmt.Fprintf(t.out, "%s [y/N]: ", prompt)
	line, err := t.in.ReadString('\n')
	if err != nil && line == "" {
		return false
	}
	answer := strings.ToLower(strings.TrimSpace(line))
	return answer == "y" || answer == "yes"
}

// ReadSecret prompts for a value such as a password. Input from a terminal is
// not echoed. It returns "" when there is nothing to read.
func (t *Terminal) ReadSecret(label string) string {
	t.mu.Lock()
	defer t.mu.Unlock()
	if t.in == nil {
		return ""
	}
	fmt.Fprintf(t.out, "%s: ", label)
	if f, ok := t.rawIn.(*os.File); ok && term.IsTerminal(int(f.Fd())) {
		secret, err := term.ReadPassword(int(f.Fd()))
		fmt.Fprintln(t.out)
		if err != nil {
			return ""
		}
		return string(secret)
	}
	line, err := t.in.ReadString('\n')
	if err != nil && line == "" {
		return ""
	}
	return strings.TrimRight(line, "\r\n")
}

func (t *Terminal) Navigate(v view.View) {
	t.mu.Lock()
	t.current = v
	t.mu.Unlock()
}

// Current returns the last view navigated to.
func (t *Terminal) Current() view.View {
	t.mu.Lock()
	defer t.mu.Unlock()
	return t.current
}

func (t *Terminal) Replace(r view.Region, fragment template.HTML) {
	text, err := ToText(fragment)
	if err != nil {
		text = string(fragment) + "\n"
	}
	switch r {
	case view.RegionLeaveHistory:
		text = withHeader(historyHeader, fragment, text)
	case view.RegionEmployees:
		text = withHeader(employeeHeader, fragment, text)
	}

	t.mu.Lock()
	defer t.mu.Unlock()
	title := regionTitles[r]
	if title == "" {
		title = string(r)
	}
	fmt.Fprintf(t.out, "== %s ==\n%s", title, text)
}

func (t *Terminal) ResetForm(view.Form) {}

func (t *Terminal) SectionActive(s view.Section) bool {
	t.mu.Lock()
	defer t.mu.Unlock()
	return t.active[s]
}

// SetActive marks a dashboard section as shown or hidden.
func (t *Terminal) SetActive(s view.Section, active bool) {
	t.mu.Lock()
	defer t.mu.Unlock()
	t.active[s] = active
}

// withHeader re-renders multi-row tables with a header line so the columns
// align. Placeholder rows (a single colspan cell) are left as they are.
func withHeader(header []string, fragment template.HTML, text string) string {
	if strings.Contains(string(fragment), `<td colspan=`) {
		return text
	}
	withHead, err := ToText(template.HTML(headerRow(header)) + fragment)
	if err != nil {
		return text
	}
	return withHead
}

func headerRow(header []string) string {
	var b strings.Builder
	b.WriteString("<tr>")
	for _, col := range header {
		b.WriteString("<th>")
		b.WriteString(template.HTMLEscapeString(col))
		b.WriteString("</th>")
	}
	b.WriteString("</tr>")
	return b.String()
}
