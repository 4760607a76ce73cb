package cleanup

import (
	"context"
	"time"

	"github.com/imamik/osclean/internal/resource"
)

// advancedCleaner removes Heat stacks and then DNS zones. Stacks go first
// because they may own zones. An unavailable service contributes nothing.
type advancedCleaner struct {
	base
	services ServiceAvailability
}

func newAdvancedCleaner(deps *Deps, services ServiceAvailability) *advancedCleaner {
	var kinds []resource.Kind
	if services.Orchestration {
		kinds = append(kinds, resource.HeatStack)
	}
	if services.DNS {
		kinds = append(kinds, resource.DNSZone)
	}
	return &advancedCleaner{
		base:     base{deps: deps, category: CategoryAdvancedServices, kinds: kinds},
		services: services,
	}
}

func (c *advancedCleaner) Clean(ctx context.Context, dryRun bool) {
	log := c.logger(ctx)
	if !c.services.Any() {
		log.V(1).Info("no advanced services available, skipping")
		return
	}
	verifier := c.deps.Verifier.forRun(dryRun)

	for _, ref := range c.refs(ctx, resource.HeatStack) {
		started := time.Now()
		status, ok := c.remove(ctx, ref, dryRun, removal{deferred: true})
		if !ok || status != resource.StatusDeleted {
			continue
		}
		log.Info("waiting for stack deletion", "name", ref.Name)
		if verifier.VerifyOne(ctx, resource.HeatStack, ref.ID) {
			c.record(ref, resource.StatusDeleted, "", started)
		} else {
			c.record(ref, resource.StatusTimedOut, "stack deletion did not complete in "+c.deps.Timeouts.StackDeleteTimeout.String(), started)
		}
	}

	for _, ref := range c.refs(ctx, resource.DNSZone) {
		c.remove(ctx, ref, dryRun, removal{})
	}
}
