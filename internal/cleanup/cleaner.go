package cleanup

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/go-logr/logr"

	"github.com/imamik/osclean/internal/config"
	"github.com/imamik/osclean/internal/platform/openstack"
	"github.com/imamik/osclean/internal/resource"
	"github.com/imamik/osclean/internal/util/retry"
)

// Category is one top-level resource domain with its own internal ordering.
type Category int

const (
	CategoryAdvancedServices Category = iota + 1
	CategoryCompute
	CategoryStorage
	CategoryLoadBalancer
	CategoryNetwork
)

func (c Category) String() string {
	switch c {
	case CategoryAdvancedServices:
		return "AdvancedServices"
	case CategoryCompute:
		return "Compute"
	case CategoryStorage:
		return "Storage"
	case CategoryLoadBalancer:
		return "LoadBalancer"
	case CategoryNetwork:
		return "Network"
	default:
		return fmt.Sprintf("category(%d)", int(c))
	}
}

// Cleaner owns the deletion procedure of one category.
type Cleaner interface {
	Category() Category
	// Enumerate discovers the category's selected resources.
	Enumerate(ctx context.Context) resource.Inventory
	// Clean deletes the enumerated resources. Every resource ends with exactly
	// one recorded outcome; no error escapes.
	Clean(ctx context.Context, dryRun bool)
}

// Deps are the collaborators shared by all cleaners of a run.
type Deps struct {
	Client    openstack.Client
	Discovery *Discovery
	Verifier  *Verifier
	Policy    Policy
	Recorder  *Recorder
	Ledger    *Ledger
	Timeouts  *config.Timeouts
	// Sweep enables the live floating IP and port sweeps of the network cleaner.
	Sweep bool
}

// NewDeps wires default collaborators around client.
func NewDeps(client openstack.Client, discovery *Discovery, timeouts *config.Timeouts, reporters ...Reporter) *Deps {
	return &Deps{
		Client:    client,
		Discovery: discovery,
		Verifier:  NewVerifier(client, timeouts),
		Policy:    NewPolicy(timeouts),
		Recorder:  NewRecorder(reporters...),
		Ledger:    NewLedger(),
		Timeouts:  timeouts,
		Sweep:     true,
	}
}

// base carries what every cleaner shares: its kinds, the cached selection
// and the uniform claim/delete/record flow.
type base struct {
	deps     *Deps
	category Category
	kinds    []resource.Kind
	selected resource.Inventory
}

func (b *base) Category() Category {
	return b.category
}

func (b *base) Enumerate(ctx context.Context) resource.Inventory {
	ctx = logr.NewContext(ctx, b.logger(ctx))
	inv := resource.Inventory{}
	for _, kind := range b.kinds {
		inv[kind] = b.deps.Discovery.Discover(ctx, kind, b.lister(kind))
	}
	b.selected = inv
	return inv
}

func (b *base) lister(kind resource.Kind) FetchFunc {
	return func(ctx context.Context) ([]resource.Resource, error) {
		return b.deps.Client.List(ctx, kind)
	}
}

// refs returns the selected resources of kind, enumerating first if needed.
func (b *base) refs(ctx context.Context, kind resource.Kind) []resource.Ref {
	if b.selected == nil {
		b.Enumerate(ctx)
	}
	return b.selected.Refs(kind)
}

func (b *base) logger(ctx context.Context) logr.Logger {
	return logr.FromContextOrDiscard(ctx).WithValues("category", b.category.String())
}

// claim takes ownership of ref in the run ledger.
func (b *base) claim(ctx context.Context, ref resource.Ref) bool {
	if b.deps.Ledger.Claim(ref) {
		return true
	}
	logr.FromContextOrDiscard(ctx).V(1).Info("already handled in this run", "kind", ref.Kind.String(), "id", ref.ID)
	return false
}

func (b *base) record(ref resource.Ref, status resource.Status, why string, started time.Time) {
	b.deps.Recorder.Record(resource.Outcome{
		Ref:      ref,
		Status:   status,
		Reason:   resource.Truncate(why, maxReasonLength),
		Duration: time.Since(started),
	})
}

// removal tunes the shared delete flow for one resource.
type removal struct {
	opts openstack.DeleteOpts
	// backoff enables conflict retry. Nil means one attempt.
	backoff *Backoff
	// exhausted prefixes the failure reason once retries run out.
	exhausted string
	// checkInDryRun does a read-only existence check in dry-run so missing
	// resources show as already gone.
	checkInDryRun bool
	// target overrides the identifier sent to the API (keypairs use names).
	target string
	// deferred leaves a successful live delete unrecorded; the caller
	// finalizes it after verification.
	deferred bool
}

// remove claims ref and runs the delete flow. It returns false when ref was
// already claimed, in which case nothing happens.
func (b *base) remove(ctx context.Context, ref resource.Ref, dryRun bool, r removal) (resource.Status, bool) {
	if !b.claim(ctx, ref) {
		return "", false
	}
	return b.deleteClaimed(ctx, ref, dryRun, r), true
}

// deleteClaimed deletes an already claimed resource and records its outcome.
// NotFound is AlreadyGone. Conflicts are retried under r.backoff. Anything
// else fails at once.
func (b *base) deleteClaimed(ctx context.Context, ref resource.Ref, dryRun bool, r removal) resource.Status {
	started := time.Now()
	log := logr.FromContextOrDiscard(ctx).WithValues("kind", ref.Kind.String(), "name", ref.Name)

	if dryRun {
		if r.checkInDryRun {
			if _, err := b.deps.Client.Get(ctx, ref.Kind, ref.ID); err != nil {
				if Classify(err) == ClassNotFound {
					b.record(ref, resource.StatusAlreadyGone, "", started)
					return resource.StatusAlreadyGone
				}
				b.record(ref, resource.StatusFailed, reason(err), started)
				return resource.StatusFailed
			}
		}
		b.record(ref, resource.StatusWouldDelete, "", started)
		return resource.StatusWouldDelete
	}

	target := ref.ID
	if r.target != "" {
		target = r.target
	}
	del := func() error {
		return b.deps.Client.Delete(ctx, ref.Kind, target, r.opts)
	}

	var err error
	if r.backoff != nil {
		err = b.deps.Policy.run(ctx, *r.backoff, ref.Kind.Label()+" "+ref.Name, del)
	} else {
		err = del()
	}

	status, why := b.outcomeFor(err, r.exhausted)
	if status == resource.StatusDeleted && r.deferred {
		log.V(1).Info("delete requested")
		return status
	}
	if status == resource.StatusFailed {
		log.Info("delete failed", "reason", why)
	}
	b.record(ref, status, why, started)
	return status
}

// outcomeFor maps a delete error onto a terminal status and reason.
func (b *base) outcomeFor(err error, exhausted string) (resource.Status, string) {
	if err == nil {
		return resource.StatusDeleted, ""
	}
	var ex *retry.ExhaustedError
	if errors.As(err, &ex) {
		if exhausted == "" {
			exhausted = "Conflict"
		}
		return resource.StatusFailed, fmt.Sprintf("%s after retries: %s", exhausted, reason(ex.Err))
	}
	switch Classify(err) {
	case ClassNotFound:
		return resource.StatusAlreadyGone, ""
	default:
		return resource.StatusFailed, reason(err)
	}
}

// finalize records deferred deletes after verification: confirmed resources
// are Deleted, the rest TimedOut.
func (b *base) finalize(report BulkReport, started map[string]time.Time, timeoutReason string) {
	for _, ref := range report.Gone {
		b.record(ref, resource.StatusDeleted, "", started[ref.Key()])
	}
	for _, ref := range report.Remaining {
		b.record(ref, resource.StatusTimedOut, timeoutReason, started[ref.Key()])
	}
}

// fipRef builds the reference for a floating IP, named by its address.
func fipRef(fip openstack.FloatingIP) resource.Ref {
	return resource.Resource{
		Kind:        resource.FloatingIP,
		ID:          fip.ID,
		Address:     fip.Address,
		Description: fip.Description,
	}.Ref()
}

// portRef builds the reference for a port, named by its name or id.
func portRef(p openstack.Port) resource.Ref {
	return resource.Resource{Kind: resource.Port, ID: p.ID, Name: p.Name}.Ref()
}
