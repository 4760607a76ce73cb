package cleanup

import (
	"context"
	"errors"
	"time"

	"github.com/go-logr/logr"
	"k8s.io/apimachinery/pkg/util/wait"

	"github.com/imamik/osclean/internal/config"
	"github.com/imamik/osclean/internal/platform/openstack"
	"github.com/imamik/osclean/internal/resource"
)

// BulkReport splits a batch into resources confirmed gone and those still present.
type BulkReport struct {
	Gone      []resource.Ref
	Remaining []resource.Ref
}

// Verifier polls the API to confirm that deleted resources have disappeared.
// Every wait is bounded by an attempt count or a wall-clock budget.
type Verifier struct {
	client   openstack.ResourceLister
	timeouts *config.Timeouts
	// Enabled turns VerifyOne and VerifyBulk on. WaitGone always polls.
	Enabled bool

	dryRun bool
}

// NewVerifier returns an enabled verifier.
func NewVerifier(client openstack.ResourceLister, timeouts *config.Timeouts) *Verifier {
	return &Verifier{client: client, timeouts: timeouts, Enabled: true}
}

// forRun returns a copy bound to one run mode. In dry-run nothing was
// deleted, so every method succeeds at once without API calls.
func (v *Verifier) forRun(dryRun bool) *Verifier {
	cp := *v
	cp.dryRun = dryRun
	return &cp
}

// VerifyOne polls until id is gone or the attempt budget runs out. A backend
// error other than NotFound counts as gone. Running out of attempts or an
// interrupted context returns false.
func (v *Verifier) VerifyOne(ctx context.Context, kind resource.Kind, id string) bool {
	if v.dryRun || !v.Enabled {
		return true
	}
	log := logr.FromContextOrDiscard(ctx).WithValues("kind", kind.String(), "id", id)

	maxAttempts := v.attemptsFor(kind)
	attempts := 0
	gone := false
	err := wait.PollUntilContextCancel(ctx, v.timeouts.VerifyInterval, false, func(ctx context.Context) (bool, error) {
		attempts++
		_, err := v.client.Get(ctx, kind, id)
		switch {
		case err == nil:
			return attempts >= maxAttempts, nil
		case Classify(err) == ClassNotFound:
			gone = true
			return true, nil
		case interrupted(ctx, err):
			return false, err
		default:
			log.V(1).Info("verification read failed, assuming deleted", "error", reason(err))
			gone = true
			return true, nil
		}
	})
	if err != nil {
		log.Info("verification interrupted", "error", err.Error())
		return false
	}
	if !gone {
		log.Info("resource still present after verification", "attempts", attempts)
	}
	return gone
}

// attemptsFor returns the poll budget for kind. Heat stacks delete
// asynchronously and get the longer stack timeout.
func (v *Verifier) attemptsFor(kind resource.Kind) int {
	if kind == resource.HeatStack && v.timeouts.StackDeleteTimeout > 0 && v.timeouts.VerifyInterval > 0 {
		if n := int(v.timeouts.StackDeleteTimeout / v.timeouts.VerifyInterval); n > 0 {
			return n
		}
	}
	if v.timeouts.VerifyAttempts < 1 {
		return 1
	}
	return v.timeouts.VerifyAttempts
}

// VerifyBulk polls the remaining set at a fixed interval within the bulk
// budget. As with VerifyOne, a backend read error counts as gone. Resources
// still unconfirmed when the budget or the context ends stay remaining.
func (v *Verifier) VerifyBulk(ctx context.Context, kind resource.Kind, refs []resource.Ref) BulkReport {
	if v.dryRun || !v.Enabled || len(refs) == 0 {
		return BulkReport{Gone: refs}
	}
	log := logr.FromContextOrDiscard(ctx).WithValues("kind", kind.String())
	log.Info("monitoring deletions", "count", len(refs))

	report := v.poll(ctx, kind, refs, false,
		func(ctx context.Context, cond wait.ConditionWithContextFunc) error {
			return wait.PollUntilContextTimeout(ctx, v.timeouts.BulkVerifyInterval, v.timeouts.BulkVerifyBudget, false, cond)
		})

	if len(report.Remaining) > 0 {
		log.Info("deletions not confirmed within budget", "remaining", len(report.Remaining), "budget", v.timeouts.BulkVerifyBudget)
	} else {
		log.Info("all deletions confirmed", "count", len(report.Gone))
	}
	return report
}

// WaitGone is the strict variant of VerifyBulk used for instances: only
// NotFound removes a resource, any other error keeps it pending. It polls
// immediately and then every interval, up to attempts times.
func (v *Verifier) WaitGone(ctx context.Context, kind resource.Kind, refs []resource.Ref, attempts int, interval time.Duration) BulkReport {
	if v.dryRun || len(refs) == 0 {
		return BulkReport{Gone: refs}
	}
	if attempts < 1 {
		attempts = 1
	}
	log := logr.FromContextOrDiscard(ctx).WithValues("kind", kind.String())
	log.Info("waiting for deletions to complete", "count", len(refs))

	polls := 0
	report := v.poll(ctx, kind, refs, true,
		func(ctx context.Context, cond wait.ConditionWithContextFunc) error {
			return wait.PollUntilContextCancel(ctx, interval, true, func(ctx context.Context) (bool, error) {
				polls++
				done, err := cond(ctx)
				return done || polls >= attempts, err
			})
		})

	if len(report.Remaining) > 0 {
		log.Info("resources may still be deleting", "remaining", len(report.Remaining), "polls", polls)
	}
	return report
}

// poll runs loop with a condition that re-reads every remaining resource.
// NotFound always removes it. Other backend errors remove it unless strict.
// Context errors never do: the reference and everything after it stay
// remaining and polling stops.
func (v *Verifier) poll(
	ctx context.Context,
	kind resource.Kind,
	refs []resource.Ref,
	strict bool,
	loop func(context.Context, wait.ConditionWithContextFunc) error,
) BulkReport {
	log := logr.FromContextOrDiscard(ctx).WithValues("kind", kind.String())
	remaining := append([]resource.Ref(nil), refs...)
	var gone []resource.Ref

	cond := func(ctx context.Context) (bool, error) {
		still := remaining[:0:0]
		for i, ref := range remaining {
			_, err := v.client.Get(ctx, kind, ref.ID)
			switch {
			case err == nil:
				still = append(still, ref)
			case interrupted(ctx, err):
				remaining = append(still, remaining[i:]...)
				return false, err
			case Classify(err) == ClassNotFound, !strict:
				gone = append(gone, ref)
				log.Info("deletion confirmed", "name", resource.Truncate(ref.Name, resource.DescriptionDisplayLength))
			default:
				still = append(still, ref)
			}
		}
		if len(still) != len(remaining) {
			log.V(1).Info("deletion progress", "deleted", len(remaining)-len(still), "remaining", len(still))
		}
		remaining = still
		return len(remaining) == 0, nil
	}

	if err := loop(ctx, cond); err != nil && !wait.Interrupted(err) {
		log.Info("polling stopped", "error", err.Error())
	}
	return BulkReport{Gone: gone, Remaining: remaining}
}

// interrupted reports whether err comes from the caller's context rather
// than from the API.
func interrupted(ctx context.Context, err error) bool {
	return ctx.Err() != nil || errors.Is(err, context.Canceled) || errors.Is(err, context.DeadlineExceeded)
}
