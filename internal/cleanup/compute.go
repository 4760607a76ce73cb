package cleanup

import (
	"context"
	"fmt"
	"time"

	"github.com/go-logr/logr"

	"github.com/imamik/osclean/internal/platform/openstack"
	"github.com/imamik/osclean/internal/resource"
)

// computeCleaner removes instances (with their floating IPs), then flavors,
// keypairs and images. It blocks until deleted instances are gone because
// storage and network teardown depend on it.
type computeCleaner struct {
	base
}

func newComputeCleaner(deps *Deps) *computeCleaner {
	return &computeCleaner{base: base{
		deps:     deps,
		category: CategoryCompute,
		kinds:    []resource.Kind{resource.Instance, resource.Flavor, resource.Keypair, resource.Image},
	}}
}

func (c *computeCleaner) Clean(ctx context.Context, dryRun bool) {
	c.cleanInstances(ctx, dryRun)

	for _, ref := range c.refs(ctx, resource.Flavor) {
		c.remove(ctx, ref, dryRun, removal{})
	}
	for _, ref := range c.refs(ctx, resource.Keypair) {
		c.remove(ctx, ref, dryRun, removal{target: ref.Name})
	}
	for _, ref := range c.refs(ctx, resource.Image) {
		c.remove(ctx, ref, dryRun, removal{})
	}
}

func (c *computeCleaner) cleanInstances(ctx context.Context, dryRun bool) {
	log := c.logger(ctx)
	fips := &fipIndex{client: c.deps.Client}

	var pending []resource.Ref
	started := make(map[string]time.Time)

	for _, ref := range c.refs(ctx, resource.Instance) {
		if !c.claim(ctx, ref) {
			continue
		}
		start := time.Now()

		server, err := c.deps.Client.GetServer(ctx, ref.ID)
		if err != nil {
			status, why := c.outcomeFor(err, "")
			c.record(ref, status, why, start)
			continue
		}

		for _, addr := range server.FloatingAddresses {
			fip, ok := fips.lookup(ctx, addr)
			if !ok {
				log.V(1).Info("floating address not found in floating IP list", "instance", ref.Name, "address", addr)
				continue
			}
			c.remove(ctx, fipRef(fip), dryRun, removal{})
		}

		if dryRun {
			c.record(ref, resource.StatusWouldDelete, "", start)
			continue
		}

		if err := c.deps.Client.Delete(ctx, resource.Instance, ref.ID, openstack.DeleteOpts{}); err != nil {
			status, why := c.outcomeFor(err, "")
			c.record(ref, status, why, start)
			continue
		}
		pending = append(pending, ref)
		started[ref.Key()] = start
	}

	if len(pending) == 0 {
		return
	}
	t := c.deps.Timeouts
	report := c.deps.Verifier.forRun(dryRun).WaitGone(ctx, resource.Instance, pending, t.InstancePollAttempts, t.InstancePollInterval)
	c.finalize(report, started, fmt.Sprintf("still deleting after %d polls", t.InstancePollAttempts))
}

// fipIndex resolves floating addresses to floating IPs, listing them once.
type fipIndex struct {
	client openstack.NetworkInspector
	loaded bool
	byAddr map[string]openstack.FloatingIP
}

func (x *fipIndex) lookup(ctx context.Context, addr string) (openstack.FloatingIP, bool) {
	if !x.loaded {
		x.loaded = true
		x.byAddr = make(map[string]openstack.FloatingIP)
		all, err := x.client.ListFloatingIPs(ctx)
		if err != nil {
			warn(logr.FromContextOrDiscard(ctx), "failed to list floating IPs", "error", reason(err))
		}
		for _, fip := range all {
			x.byAddr[fip.Address] = fip
		}
	}
	fip, ok := x.byAddr[addr]
	return fip, ok
}
