package cleanup

import (
	"context"
	"time"

	"github.com/go-logr/logr"
	"k8s.io/apimachinery/pkg/util/sets"

	"github.com/imamik/osclean/internal/platform/openstack"
	"github.com/imamik/osclean/internal/resource"
	"github.com/imamik/osclean/internal/util/retry"
)

// Ports with these owners go away with their router or network.
var (
	sweepSkipOwners = sets.New(
		openstack.DeviceOwnerRouterInterface,
		openstack.DeviceOwnerDHCP,
		openstack.DeviceOwnerRouterGateway,
	)
	networkSkipOwners = sweepSkipOwners.Clone().Insert(openstack.DeviceOwnerFloatingIP)
)

// networkCleaner tears down the network domain in dependency order:
// floating IPs, sweeps, routers, networks and finally security groups.
type networkCleaner struct {
	base
}

func newNetworkCleaner(deps *Deps) *networkCleaner {
	return &networkCleaner{base: base{
		deps:     deps,
		category: CategoryNetwork,
		kinds:    []resource.Kind{resource.FloatingIP, resource.SecurityGroup, resource.Network, resource.Router},
	}}
}

func (c *networkCleaner) Clean(ctx context.Context, dryRun bool) {
	for _, ref := range c.refs(ctx, resource.FloatingIP) {
		c.remove(ctx, ref, dryRun, removal{checkInDryRun: true})
	}

	if c.deps.Sweep {
		c.sweepFloatingIPs(ctx, dryRun)
		c.sweepPorts(ctx, dryRun)
	}

	c.cleanRouters(ctx, dryRun)
	c.cleanNetworks(ctx, dryRun)
	c.cleanSecurityGroups(ctx, dryRun)
}

// sweepFloatingIPs re-matches every live floating IP by address, id and
// description. It catches addresses released by earlier categories and may
// match IPs created after discovery.
func (c *networkCleaner) sweepFloatingIPs(ctx context.Context, dryRun bool) {
	log := logr.FromContextOrDiscard(ctx)
	all, err := c.deps.Client.ListFloatingIPs(ctx)
	if err != nil {
		warn(log, "could not list floating IPs for sweep", "error", reason(err))
		return
	}
	log.Info("sweeping live floating IPs; matches may include resources created after discovery")

	matcher := c.deps.Discovery.Matcher()
	for _, fip := range all {
		if !matcher.Matches(fip.Address, fip.ID, fip.Description) {
			continue
		}
		c.remove(ctx, fipRef(fip), dryRun, removal{})
	}
}

// sweepPorts re-matches every live port by name and id. System-owned ports
// are skipped; their router or network removes them.
func (c *networkCleaner) sweepPorts(ctx context.Context, dryRun bool) {
	log := logr.FromContextOrDiscard(ctx)
	all, err := c.deps.Client.ListPorts(ctx, openstack.PortFilter{})
	if err != nil {
		warn(log, "could not list ports for sweep", "error", reason(err))
		return
	}
	log.Info("sweeping live ports; matches may include resources created after discovery")

	matcher := c.deps.Discovery.Matcher()
	for _, port := range all {
		if !matcher.Matches(port.Name, port.ID) {
			continue
		}
		ref := portRef(port)
		if sweepSkipOwners.Has(port.DeviceOwner) {
			if c.claim(ctx, ref) {
				c.record(ref, resource.StatusSkipped, "owned by "+port.DeviceOwner, time.Now())
			}
			continue
		}
		c.remove(ctx, ref, dryRun, removal{})
	}
}

func (c *networkCleaner) cleanRouters(ctx context.Context, dryRun bool) {
	var deleted []resource.Ref
	started := make(map[string]time.Time)

	for _, ref := range c.refs(ctx, resource.Router) {
		if !c.claim(ctx, ref) {
			continue
		}
		start := time.Now()

		router, err := c.deps.Client.GetRouter(ctx, ref.ID)
		if err != nil {
			status, why := c.outcomeFor(err, "")
			c.record(ref, status, why, start)
			continue
		}

		if dryRun {
			c.previewRouter(ctx, router, ref)
			c.record(ref, resource.StatusWouldDelete, "", start)
			continue
		}

		c.detachRouter(ctx, router, ref)
		status := c.deleteClaimed(ctx, ref, false, removal{
			backoff:   &c.deps.Policy.Network,
			exhausted: "Conflict (may have dependencies)",
			deferred:  true,
		})
		if status == resource.StatusDeleted {
			deleted = append(deleted, ref)
			started[ref.Key()] = start
		}
	}

	// Networks cannot go while a router still holds an interface on them.
	report := c.deps.Verifier.forRun(dryRun).VerifyBulk(ctx, resource.Router, deleted)
	c.finalize(report, started, "deletion not confirmed within "+c.deps.Timeouts.BulkVerifyBudget.String())
}

// previewRouter lists what a live run would detach from the router.
func (c *networkCleaner) previewRouter(ctx context.Context, router *openstack.Router, ref resource.Ref) {
	if router.HasGateway {
		c.deps.Recorder.Detail("ROUTER GATEWAY", ref.Name, resource.StatusWouldDelete)
	}
	ports, err := c.deps.Client.ListPorts(ctx, openstack.PortFilter{DeviceID: router.ID})
	if err != nil {
		warn(logr.FromContextOrDiscard(ctx), "could not list router ports", "router", ref.Name, "error", reason(err))
		return
	}
	for _, p := range ports {
		if len(p.FixedIPs) > 0 {
			c.deps.Recorder.Detail("ROUTER INTERFACE", p.FixedIPs[0].IPAddress, resource.StatusWouldDelete)
		}
	}
}

// detachRouter deletes floating IPs bound to the router's ports, clears the
// external gateway and removes subnet interfaces. Failures are logged and
// left for the router delete to surface.
func (c *networkCleaner) detachRouter(ctx context.Context, router *openstack.Router, ref resource.Ref) {
	log := logr.FromContextOrDiscard(ctx).WithValues("router", ref.Name)

	if n := c.deleteRouterFloatingIPs(ctx, router.ID); n > 0 {
		log.Info("waiting for floating IPs to be released", "count", n)
		if err := retry.Sleep(ctx, c.deps.Timeouts.RouterFIPWait); err != nil {
			return
		}
	}

	if router.HasGateway {
		if err := c.deps.Client.ClearRouterGateway(ctx, router.ID); err != nil {
			warn(log, "could not clear router gateway", "error", reason(err))
		} else {
			c.deps.Recorder.Detail("ROUTER GATEWAY", ref.Name, resource.StatusDeleted)
		}
	}

	ports, err := c.deps.Client.ListPorts(ctx, openstack.PortFilter{DeviceID: router.ID})
	if err != nil {
		warn(log, "could not list router ports", "error", reason(err))
		return
	}
	for _, p := range ports {
		if len(p.FixedIPs) == 0 {
			continue
		}
		fixed := p.FixedIPs[0]
		if err := c.deps.Client.RemoveRouterInterface(ctx, router.ID, fixed.SubnetID); err != nil {
			log.V(1).Info("interface removal failed", "subnet", fixed.SubnetID, "error", reason(err))
			continue
		}
		c.deps.Recorder.Detail("ROUTER INTERFACE", fixed.IPAddress, resource.StatusDeleted)
	}
}

// deleteRouterFloatingIPs deletes floating IPs bound to any port of the
// router and returns how many were deleted.
func (c *networkCleaner) deleteRouterFloatingIPs(ctx context.Context, routerID string) int {
	log := logr.FromContextOrDiscard(ctx)

	ports, err := c.deps.Client.ListPorts(ctx, openstack.PortFilter{DeviceID: routerID})
	if err != nil {
		warn(log, "could not list router ports", "error", reason(err))
		return 0
	}
	portIDs := sets.New[string]()
	for _, p := range ports {
		portIDs.Insert(p.ID)
	}

	fips, err := c.deps.Client.ListFloatingIPs(ctx)
	if err != nil {
		warn(log, "could not list floating IPs", "error", reason(err))
		return 0
	}

	deleted := 0
	for _, fip := range fips {
		if fip.PortID == "" || !portIDs.Has(fip.PortID) {
			continue
		}
		log.Info("deleting floating IP attached to router", "address", fip.Address)
		if status, ok := c.remove(ctx, fipRef(fip), false, removal{}); ok && status == resource.StatusDeleted {
			deleted++
		}
	}
	return deleted
}

func (c *networkCleaner) cleanNetworks(ctx context.Context, dryRun bool) {
	for _, ref := range c.refs(ctx, resource.Network) {
		if !c.claim(ctx, ref) {
			continue
		}
		if !dryRun {
			c.deleteNetworkPorts(ctx, ref)
		}
		c.deleteClaimed(ctx, ref, dryRun, removal{
			backoff:       &c.deps.Policy.Network,
			exhausted:     "Still has dependencies",
			checkInDryRun: true,
		})
	}
}

// deleteNetworkPorts removes leftover non-system ports so the network can go.
func (c *networkCleaner) deleteNetworkPorts(ctx context.Context, network resource.Ref) {
	log := logr.FromContextOrDiscard(ctx).WithValues("network", network.Name)
	ports, err := c.deps.Client.ListPorts(ctx, openstack.PortFilter{NetworkID: network.ID})
	if err != nil {
		warn(log, "could not list network ports", "error", reason(err))
		return
	}
	if len(ports) > 0 {
		log.Info("network has remaining ports", "count", len(ports))
	}
	for _, p := range ports {
		if networkSkipOwners.Has(p.DeviceOwner) {
			continue
		}
		c.remove(ctx, portRef(p), false, removal{})
	}
}

// cleanSecurityGroups runs last. A live run first waits for instance
// teardown to settle since referenced groups cannot be deleted.
func (c *networkCleaner) cleanSecurityGroups(ctx context.Context, dryRun bool) {
	refs := c.refs(ctx, resource.SecurityGroup)
	if len(refs) == 0 {
		return
	}
	if !dryRun {
		logr.FromContextOrDiscard(ctx).Info("waiting for instance teardown to settle", "delay", c.deps.Timeouts.SecGroupSettle)
		_ = retry.Sleep(ctx, c.deps.Timeouts.SecGroupSettle)
	}
	for _, ref := range refs {
		c.remove(ctx, ref, dryRun, removal{
			backoff:       &c.deps.Policy.Network,
			exhausted:     "Still in use",
			checkInDryRun: true,
		})
	}
}
