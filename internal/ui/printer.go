package ui

import (
	"fmt"
	"io"
	"sync"

	"github.com/imamik/osclean/internal/cleanup"
	"github.com/imamik/osclean/internal/resource"
)

// Printer writes one line per outcome as the run progresses.
// It implements cleanup.Reporter, cleanup.DetailReporter and
// cleanup.CategoryReporter.
type Printer struct {
	mu sync.Mutex
	w  io.Writer
}

// NewPrinter returns a printer writing to w.
func NewPrinter(w io.Writer) *Printer {
	return &Printer{w: w}
}

// StartCategory prints a category heading.
func (p *Printer) StartCategory(c cleanup.Category) {
	p.write("\n" + sectionStyle.Render(fmt.Sprintf("  Cleaning %s resources", c)) + "\n")
}

// Report prints the outcome of one resource.
func (p *Printer) Report(o resource.Outcome) {
	p.write("    " + p.line(o.Kind.Label(), o.Name, o.Status, o.Reason) + "\n")
}

// ReportDetail prints a sub-step, indented under its resource.
func (p *Printer) ReportDetail(label, name string, status resource.Status) {
	p.write("      " + p.line(label, name, status, "") + "\n")
}

func (p *Printer) line(label, name string, status resource.Status, reason string) string {
	switch status {
	case resource.StatusDeleted:
		return okStyle.Render(markDeleted) + fmt.Sprintf(" %s %s is successfully deleted", label, name)
	case resource.StatusWouldDelete:
		return okStyle.Render(markDeleted) + fmt.Sprintf(" %s %s (but is not deleted: dry run)", label, name)
	case resource.StatusAlreadyGone:
		return warningStyle.Render(markMissing) + fmt.Sprintf(" %s %s not found (already deleted?)", label, name)
	case resource.StatusSkipped:
		return dimStyle.Render(fmt.Sprintf("%s %s %s skipped: %s", markSkipped, label, name, reason))
	case resource.StatusTimedOut:
		return failedStyle.Render(markFailed) + fmt.Sprintf(" %s %s TIMED OUT: %s", label, name, reason)
	default:
		return failedStyle.Render(markFailed) + fmt.Sprintf(" %s %s ERROR: %s", label, name, reason)
	}
}

func (p *Printer) write(s string) {
	p.mu.Lock()
	defer p.mu.Unlock()
	_, _ = io.WriteString(p.w, s)
}
