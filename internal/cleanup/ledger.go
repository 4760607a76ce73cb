package cleanup

import (
	"sync"

	"k8s.io/apimachinery/pkg/util/sets"

	"github.com/imamik/osclean/internal/resource"
)

// Ledger is the run-wide set of resources a cleaner has taken ownership of.
// A resource is claimed once, before its first delete attempt; later claims
// for the same kind/id fail so no resource is deleted or reported twice.
type Ledger struct {
	mu      sync.Mutex
	claimed sets.Set[string]
}

// NewLedger returns an empty ledger.
func NewLedger() *Ledger {
	return &Ledger{claimed: sets.New[string]()}
}

// Claim takes ownership of ref. It returns false if ref was already claimed.
func (l *Ledger) Claim(ref resource.Ref) bool {
	l.mu.Lock()
	defer l.mu.Unlock()
	key := ref.Key()
	if l.claimed.Has(key) {
		return false
	}
	l.claimed.Insert(key)
	return true
}

// Claimed reports whether ref has been claimed.
func (l *Ledger) Claimed(ref resource.Ref) bool {
	l.mu.Lock()
	defer l.mu.Unlock()
	return l.claimed.Has(ref.Key())
}

// Len returns the number of claimed resources.
func (l *Ledger) Len() int {
	l.mu.Lock()
	defer l.mu.Unlock()
	return l.claimed.Len()
}
