package cleanup

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/go-logr/logr"

	"github.com/imamik/osclean/internal/platform/openstack"
	"github.com/imamik/osclean/internal/resource"
	"github.com/imamik/osclean/internal/util/retry"
)

const pendingPrefix = "PENDING_"

// loadBalancerCleaner cascade-deletes load balancers, which also removes
// listeners, pools and members in one request. A load balancer in a
// PENDING_* state rejects mutations, so the cleaner waits with the load
// balancer backoff until it settles.
type loadBalancerCleaner struct {
	base
}

func newLoadBalancerCleaner(deps *Deps) *loadBalancerCleaner {
	return &loadBalancerCleaner{base: base{
		deps:     deps,
		category: CategoryLoadBalancer,
		kinds:    []resource.Kind{resource.LoadBalancer},
	}}
}

func (c *loadBalancerCleaner) Clean(ctx context.Context, dryRun bool) {
	var deleted []resource.Ref
	started := make(map[string]time.Time)

	for _, ref := range c.refs(ctx, resource.LoadBalancer) {
		if !c.claim(ctx, ref) {
			continue
		}
		start := time.Now()
		if dryRun {
			c.record(ref, resource.StatusWouldDelete, "", start)
			continue
		}

		status, why := c.deleteLoadBalancer(ctx, ref)
		if status != resource.StatusDeleted {
			c.record(ref, status, why, start)
			continue
		}
		deleted = append(deleted, ref)
		started[ref.Key()] = start
	}

	report := c.deps.Verifier.forRun(dryRun).VerifyBulk(ctx, resource.LoadBalancer, deleted)
	c.finalize(report, started, "deletion not confirmed within "+c.deps.Timeouts.BulkVerifyBudget.String())
}

func (c *loadBalancerCleaner) deleteLoadBalancer(ctx context.Context, ref resource.Ref) (resource.Status, string) {
	log := logr.FromContextOrDiscard(ctx).WithValues("name", ref.Name)
	lastState := ""

	err := c.deps.Policy.run(ctx, c.deps.Policy.LoadBalancer, "load balancer "+ref.Name, func() error {
		lb, err := c.deps.Client.GetLoadBalancer(ctx, ref.ID)
		if err != nil {
			return err
		}
		if strings.HasPrefix(lb.ProvisioningStatus, pendingPrefix) {
			lastState = lb.ProvisioningStatus
			log.Info("load balancer is transitioning, waiting", "state", lb.ProvisioningStatus)
			return fmt.Errorf("%w: %s", errPending, lb.ProvisioningStatus)
		}
		lastState = ""
		return c.deps.Client.Delete(ctx, resource.LoadBalancer, ref.ID, openstack.DeleteOpts{Cascade: true})
	})

	var ex *retry.ExhaustedError
	if errors.As(err, &ex) && errors.Is(ex.Err, errPending) {
		return resource.StatusFailed, fmt.Sprintf("Still in %s state after retries", lastState)
	}
	return c.outcomeFor(err, "Conflict")
}
