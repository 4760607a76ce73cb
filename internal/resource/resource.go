package resource

import (
	"fmt"
	"sort"
	"time"
)

// DescriptionDisplayLength caps how much of a floating IP description is shown
// next to its address.
const DescriptionDisplayLength = 50

// Resource is a read-only snapshot of a backend object taken at discovery time.
type Resource struct {
	Kind        Kind
	ID          string
	Name        string
	Description string
	// Address is set for floating IPs only.
	Address string
}

// DisplayName returns the name used in reports.
// Floating IPs are shown by address, annotated with a truncated description.
func (r Resource) DisplayName() string {
	if r.Kind == FloatingIP && r.Address != "" {
		if r.Description == "" {
			return r.Address
		}
		return fmt.Sprintf("%s (desc: %s)", r.Address, Truncate(r.Description, DescriptionDisplayLength))
	}
	if r.Name == "" {
		return r.ID
	}
	return r.Name
}

// Ref returns a lightweight reference to the resource.
func (r Resource) Ref() Ref {
	return Ref{Kind: r.Kind, ID: r.ID, Name: r.DisplayName()}
}

// Ref identifies a resource by kind and id, carrying its display name.
type Ref struct {
	Kind Kind
	ID   string
	Name string
}

// Key returns a run-unique key for the referenced resource.
func (r Ref) Key() string {
	return r.Kind.String() + "/" + r.ID
}

// Truncate shortens s to n characters, appending "..." when it was cut.
func Truncate(s string, n int) string {
	if n <= 0 || len(s) <= n {
		return s
	}
	return s[:n] + "..."
}

// Status is the terminal state of one resource in a run.
type Status string

const (
	StatusDeleted     Status = "deleted"
	StatusWouldDelete Status = "would-delete"
	StatusAlreadyGone Status = "already-gone"
	StatusSkipped     Status = "skipped"
	StatusFailed      Status = "failed"
	StatusTimedOut    Status = "timed-out"
)

// Statuses lists every status in report order.
func Statuses() []Status {
	return []Status{StatusDeleted, StatusWouldDelete, StatusAlreadyGone, StatusSkipped, StatusTimedOut, StatusFailed}
}

// Outcome records what happened to one resource.
type Outcome struct {
	Ref
	Status   Status
	Reason   string
	Duration time.Duration
}

// Inventory maps each kind to its selected resources, id to display name.
type Inventory map[Kind]map[string]string

// Set adds or replaces one entry.
func (inv Inventory) Set(kind Kind, id, name string) {
	if inv[kind] == nil {
		inv[kind] = make(map[string]string)
	}
	inv[kind][id] = name
}

// Has reports whether the inventory carries an entry set for kind, even an empty one.
func (inv Inventory) Has(kind Kind) bool {
	_, ok := inv[kind]
	return ok
}

// Count returns the total number of resources across all kinds.
func (inv Inventory) Count() int {
	n := 0
	for _, m := range inv {
		n += len(m)
	}
	return n
}

// Merge copies every entry of other into inv.
func (inv Inventory) Merge(other Inventory) {
	for kind, m := range other {
		if inv[kind] == nil {
			inv[kind] = make(map[string]string, len(m))
		}
		for id, name := range m {
			inv[kind][id] = name
		}
	}
}

// Refs returns the entries of one kind sorted by display name, then id.
func (inv Inventory) Refs(kind Kind) []Ref {
	m := inv[kind]
	out := make([]Ref, 0, len(m))
	for id, name := range m {
		out = append(out, Ref{Kind: kind, ID: id, Name: name})
	}
	sort.Slice(out, func(i, j int) bool {
		if out[i].Name != out[j].Name {
			return out[i].Name < out[j].Name
		}
		return out[i].ID < out[j].ID
	})
	return out
}

// Rows returns all entries ordered by kind, then display name.
func (inv Inventory) Rows() []Ref {
	var out []Ref
	for _, kind := range AllKinds() {
		out = append(out, inv.Refs(kind)...)
	}
	return out
}
