package cleanup

import (
	"sync"
	"time"

	"k8s.io/apimachinery/pkg/util/sets"

	"github.com/imamik/osclean/internal/resource"
)

// Reporter receives every recorded outcome, in order.
type Reporter interface {
	Report(o resource.Outcome)
}

// DetailReporter is implemented by reporters that also show sub-steps such as
// a router gateway being cleared. Details are informational and never counted.
type DetailReporter interface {
	ReportDetail(label, name string, status resource.Status)
}

// CategoryReporter is implemented by reporters that mark category boundaries.
type CategoryReporter interface {
	StartCategory(c Category)
}

// CategoryTiming is how long one category took.
type CategoryTiming struct {
	Category Category
	Duration time.Duration
}

// Summary is the result of a run. It is produced even when every resource failed.
type Summary struct {
	DryRun    bool
	Counts    map[resource.Status]int
	Timings   []CategoryTiming
	Processed int
	Outcomes  []resource.Outcome
}

// Count returns the number of outcomes with status s.
func (s Summary) Count(st resource.Status) int {
	return s.Counts[st]
}

// Problems returns the number of failed and timed out resources.
func (s Summary) Problems() int {
	return s.Counts[resource.StatusFailed] + s.Counts[resource.StatusTimedOut]
}

// Recorder stores one outcome per resource and fans outcomes out to reporters.
type Recorder struct {
	mu        sync.Mutex
	seen      sets.Set[string]
	outcomes  []resource.Outcome
	reporters []Reporter
}

// NewRecorder returns a recorder that forwards to reporters.
func NewRecorder(reporters ...Reporter) *Recorder {
	return &Recorder{seen: sets.New[string](), reporters: reporters}
}

// Record stores o. A second outcome for the same resource is dropped and
// Record returns false.
func (r *Recorder) Record(o resource.Outcome) bool {
	r.mu.Lock()
	key := o.Key()
	if r.seen.Has(key) {
		r.mu.Unlock()
		return false
	}
	r.seen.Insert(key)
	r.outcomes = append(r.outcomes, o)
	reporters := r.reporters
	r.mu.Unlock()

	for _, rep := range reporters {
		rep.Report(o)
	}
	return true
}

// Has reports whether an outcome was recorded for ref.
func (r *Recorder) Has(ref resource.Ref) bool {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.seen.Has(ref.Key())
}

// Detail forwards a sub-step line to reporters that show details.
func (r *Recorder) Detail(label, name string, status resource.Status) {
	for _, rep := range r.reporters {
		if d, ok := rep.(DetailReporter); ok {
			d.ReportDetail(label, name, status)
		}
	}
}

func (r *Recorder) startCategory(c Category) {
	for _, rep := range r.reporters {
		if cr, ok := rep.(CategoryReporter); ok {
			cr.StartCategory(c)
		}
	}
}

// Outcomes returns a copy of the recorded outcomes in recording order.
func (r *Recorder) Outcomes() []resource.Outcome {
	r.mu.Lock()
	defer r.mu.Unlock()
	out := make([]resource.Outcome, len(r.outcomes))
	copy(out, r.outcomes)
	return out
}

// Summarize builds the run summary.
func (r *Recorder) Summarize(dryRun bool, timings []CategoryTiming) Summary {
	outcomes := r.Outcomes()
	counts := make(map[resource.Status]int)
	for _, o := range outcomes {
		counts[o.Status]++
	}
	return Summary{
		DryRun:    dryRun,
		Counts:    counts,
		Timings:   timings,
		Processed: len(outcomes),
		Outcomes:  outcomes,
	}
}
