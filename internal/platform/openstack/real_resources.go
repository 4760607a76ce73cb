package openstack

import (
	"context"
	"fmt"

	"github.com/gophercloud/gophercloud/v2"
	"github.com/gophercloud/gophercloud/v2/openstack/blockstorage/v3/snapshots"
	"github.com/gophercloud/gophercloud/v2/openstack/blockstorage/v3/volumes"
	"github.com/gophercloud/gophercloud/v2/openstack/compute/v2/flavors"
	"github.com/gophercloud/gophercloud/v2/openstack/compute/v2/keypairs"
	"github.com/gophercloud/gophercloud/v2/openstack/compute/v2/servers"
	"github.com/gophercloud/gophercloud/v2/openstack/dns/v2/zones"
	"github.com/gophercloud/gophercloud/v2/openstack/image/v2/images"
	"github.com/gophercloud/gophercloud/v2/openstack/loadbalancer/v2/loadbalancers"
	"github.com/gophercloud/gophercloud/v2/openstack/networking/v2/extensions/layer3/floatingips"
	"github.com/gophercloud/gophercloud/v2/openstack/networking/v2/extensions/layer3/routers"
	"github.com/gophercloud/gophercloud/v2/openstack/networking/v2/extensions/security/groups"
	"github.com/gophercloud/gophercloud/v2/openstack/networking/v2/networks"
	"github.com/gophercloud/gophercloud/v2/openstack/networking/v2/ports"
	"github.com/gophercloud/gophercloud/v2/openstack/orchestration/v1/stacks"
	"github.com/gophercloud/gophercloud/v2/pagination"

	"github.com/imamik/osclean/internal/resource"
)

// stackDeleteComplete is the Heat status of a stack that is gone but still listed.
const stackDeleteComplete = "DELETE_COMPLETE"

var kindService = map[resource.Kind]serviceType{
	resource.Instance:       svcCompute,
	resource.Flavor:         svcCompute,
	resource.Keypair:        svcCompute,
	resource.Image:          svcImage,
	resource.Volume:         svcBlockStorage,
	resource.VolumeSnapshot: svcBlockStorage,
	resource.Network:        svcNetwork,
	resource.Router:         svcNetwork,
	resource.Port:           svcNetwork,
	resource.SecurityGroup:  svcNetwork,
	resource.FloatingIP:     svcNetwork,
	resource.LoadBalancer:   svcLoadBalancer,
	resource.DNSZone:        svcDNS,
	resource.HeatStack:      svcOrchestration,
}

func (c *RealClient) serviceFor(kind resource.Kind) (*gophercloud.ServiceClient, error) {
	svc, ok := kindService[kind]
	if !ok {
		return nil, fmt.Errorf("unsupported resource kind %v", kind)
	}
	return c.service(svc)
}

// listAll drains a pager and converts every item into a Resource.
func listAll[T any](
	ctx context.Context,
	op string,
	pager pagination.Pager,
	extract func(pagination.Page) ([]T, error),
	convert func(T) resource.Resource,
) ([]resource.Resource, error) {
	page, err := pager.AllPages(ctx)
	if err != nil {
		return nil, wrapErr(op, err)
	}
	items, err := extract(page)
	if err != nil {
		return nil, wrapErr(op, err)
	}
	out := make([]resource.Resource, 0, len(items))
	for _, item := range items {
		out = append(out, convert(item))
	}
	return out, nil
}

// List returns every resource of kind visible to the project.
func (c *RealClient) List(ctx context.Context, kind resource.Kind) ([]resource.Resource, error) {
	sc, err := c.serviceFor(kind)
	if err != nil {
		return nil, err
	}
	op := "list " + kind.String()

	switch kind {
	case resource.Instance:
		return listAll(ctx, op, servers.List(sc, servers.ListOpts{}), servers.ExtractServers,
			func(s servers.Server) resource.Resource {
				return resource.Resource{Kind: kind, ID: s.ID, Name: s.Name}
			})
	case resource.Flavor:
		return listAll(ctx, op, flavors.ListDetail(sc, flavors.ListOpts{AccessType: flavors.AllAccess}), flavors.ExtractFlavors,
			func(f flavors.Flavor) resource.Resource {
				return resource.Resource{Kind: kind, ID: f.ID, Name: f.Name}
			})
	case resource.Keypair:
		return listAll(ctx, op, keypairs.List(sc, keypairs.ListOpts{}), keypairs.ExtractKeyPairs,
			func(k keypairs.KeyPair) resource.Resource {
				return resource.Resource{Kind: kind, ID: k.Name, Name: k.Name}
			})
	case resource.Image:
		return listAll(ctx, op, images.List(sc, images.ListOpts{}), images.ExtractImages,
			func(i images.Image) resource.Resource {
				return resource.Resource{Kind: kind, ID: i.ID, Name: i.Name}
			})
	case resource.Volume:
		return listAll(ctx, op, volumes.List(sc, volumes.ListOpts{}), volumes.ExtractVolumes,
			func(v volumes.Volume) resource.Resource {
				return resource.Resource{Kind: kind, ID: v.ID, Name: v.Name, Description: v.Description}
			})
	case resource.VolumeSnapshot:
		return listAll(ctx, op, snapshots.List(sc, snapshots.ListOpts{}), snapshots.ExtractSnapshots,
			func(s snapshots.Snapshot) resource.Resource {
				return resource.Resource{Kind: kind, ID: s.ID, Name: s.Name, Description: s.Description}
			})
	case resource.Network:
		return listAll(ctx, op, networks.List(sc, networks.ListOpts{}), networks.ExtractNetworks,
			func(n networks.Network) resource.Resource {
				return resource.Resource{Kind: kind, ID: n.ID, Name: n.Name, Description: n.Description}
			})
	case resource.Router:
		return listAll(ctx, op, routers.List(sc, routers.ListOpts{}), routers.ExtractRouters,
			func(r routers.Router) resource.Resource {
				return resource.Resource{Kind: kind, ID: r.ID, Name: r.Name, Description: r.Description}
			})
	case resource.Port:
		return listAll(ctx, op, ports.List(sc, ports.ListOpts{}), ports.ExtractPorts,
			func(p ports.Port) resource.Resource {
				return resource.Resource{Kind: kind, ID: p.ID, Name: p.Name, Description: p.Description}
			})
	case resource.SecurityGroup:
		return listAll(ctx, op, groups.List(sc, groups.ListOpts{}), groups.ExtractGroups,
			func(g groups.SecGroup) resource.Resource {
				return resource.Resource{Kind: kind, ID: g.ID, Name: g.Name, Description: g.Description}
			})
	case resource.FloatingIP:
		return listAll(ctx, op, floatingips.List(sc, floatingips.ListOpts{}), floatingips.ExtractFloatingIPs,
			func(f floatingips.FloatingIP) resource.Resource {
				return resource.Resource{Kind: kind, ID: f.ID, Address: f.FloatingIP, Description: f.Description}
			})
	case resource.LoadBalancer:
		return listAll(ctx, op, loadbalancers.List(sc, loadbalancers.ListOpts{}), loadbalancers.ExtractLoadBalancers,
			func(lb loadbalancers.LoadBalancer) resource.Resource {
				return resource.Resource{Kind: kind, ID: lb.ID, Name: lb.Name, Description: lb.Description}
			})
	case resource.DNSZone:
		return listAll(ctx, op, zones.List(sc, zones.ListOpts{}), zones.ExtractZones,
			func(z zones.Zone) resource.Resource {
				return resource.Resource{Kind: kind, ID: z.ID, Name: z.Name, Description: z.Description}
			})
	case resource.HeatStack:
		return listAll(ctx, op, stacks.List(sc, stacks.ListOpts{}), stacks.ExtractStacks,
			func(s stacks.ListedStack) resource.Resource {
				return resource.Resource{Kind: kind, ID: s.ID, Name: s.Name, Description: s.Description}
			})
	}
	return nil, fmt.Errorf("unsupported resource kind %v", kind)
}

// Get reads one resource. Heat stacks in DELETE_COMPLETE read as not found.
func (c *RealClient) Get(ctx context.Context, kind resource.Kind, id string) (*resource.Resource, error) {
	sc, err := c.serviceFor(kind)
	if err != nil {
		return nil, err
	}
	op := fmt.Sprintf("get %s %s", kind, id)
	res := &resource.Resource{Kind: kind, ID: id}

	switch kind {
	case resource.Instance:
		s, err := servers.Get(ctx, sc, id).Extract()
		if err != nil {
			return nil, wrapErr(op, err)
		}
		res.Name = s.Name
	case resource.Flavor:
		f, err := flavors.Get(ctx, sc, id).Extract()
		if err != nil {
			return nil, wrapErr(op, err)
		}
		res.Name = f.Name
	case resource.Keypair:
		k, err := keypairs.Get(ctx, sc, id, keypairs.GetOpts{}).Extract()
		if err != nil {
			return nil, wrapErr(op, err)
		}
		res.Name = k.Name
	case resource.Image:
		i, err := images.Get(ctx, sc, id).Extract()
		if err != nil {
			return nil, wrapErr(op, err)
		}
		res.Name = i.Name
	case resource.Volume:
		v, err := volumes.Get(ctx, sc, id).Extract()
		if err != nil {
			return nil, wrapErr(op, err)
		}
		res.Name, res.Description = v.Name, v.Description
	case resource.VolumeSnapshot:
		s, err := snapshots.Get(ctx, sc, id).Extract()
		if err != nil {
			return nil, wrapErr(op, err)
		}
		res.Name, res.Description = s.Name, s.Description
	case resource.Network:
		n, err := networks.Get(ctx, sc, id).Extract()
		if err != nil {
			return nil, wrapErr(op, err)
		}
		res.Name, res.Description = n.Name, n.Description
	case resource.Router:
		r, err := routers.Get(ctx, sc, id).Extract()
		if err != nil {
			return nil, wrapErr(op, err)
		}
		res.Name, res.Description = r.Name, r.Description
	case resource.Port:
		p, err := ports.Get(ctx, sc, id).Extract()
		if err != nil {
			return nil, wrapErr(op, err)
		}
		res.Name, res.Description = p.Name, p.Description
	case resource.SecurityGroup:
		g, err := groups.Get(ctx, sc, id).Extract()
		if err != nil {
			return nil, wrapErr(op, err)
		}
		res.Name, res.Description = g.Name, g.Description
	case resource.FloatingIP:
		f, err := floatingips.Get(ctx, sc, id).Extract()
		if err != nil {
			return nil, wrapErr(op, err)
		}
		res.Address, res.Description = f.FloatingIP, f.Description
	case resource.LoadBalancer:
		lb, err := loadbalancers.Get(ctx, sc, id).Extract()
		if err != nil {
			return nil, wrapErr(op, err)
		}
		res.Name, res.Description = lb.Name, lb.Description
	case resource.DNSZone:
		z, err := zones.Get(ctx, sc, id).Extract()
		if err != nil {
			return nil, wrapErr(op, err)
		}
		res.Name, res.Description = z.Name, z.Description
	case resource.HeatStack:
		s, err := stacks.Find(ctx, sc, id).Extract()
		if err != nil {
			return nil, wrapErr(op, err)
		}
		if s.Status == stackDeleteComplete {
			return nil, NewNotFound(op)
		}
		res.Name, res.Description = s.Name, s.Description
	default:
		return nil, fmt.Errorf("unsupported resource kind %v", kind)
	}
	return res, nil
}

// Delete issues the delete call for kind. Keypairs are addressed by name and
// Heat stacks are resolved to their name first.
func (c *RealClient) Delete(ctx context.Context, kind resource.Kind, id string, opts DeleteOpts) error {
	sc, err := c.serviceFor(kind)
	if err != nil {
		return err
	}
	op := fmt.Sprintf("delete %s %s", kind, id)

	switch kind {
	case resource.Instance:
		err = servers.Delete(ctx, sc, id).Err
	case resource.Flavor:
		err = flavors.Delete(ctx, sc, id).Err
	case resource.Keypair:
		err = keypairs.Delete(ctx, sc, id, keypairs.DeleteOpts{}).Err
	case resource.Image:
		err = images.Delete(ctx, sc, id).Err
	case resource.Volume:
		if opts.Force {
			err = volumes.ForceDelete(ctx, sc, id).Err
		} else {
			err = volumes.Delete(ctx, sc, id, volumes.DeleteOpts{Cascade: opts.Cascade}).Err
		}
	case resource.VolumeSnapshot:
		err = snapshots.Delete(ctx, sc, id).Err
	case resource.Network:
		err = networks.Delete(ctx, sc, id).Err
	case resource.Router:
		err = routers.Delete(ctx, sc, id).Err
	case resource.Port:
		err = ports.Delete(ctx, sc, id).Err
	case resource.SecurityGroup:
		err = groups.Delete(ctx, sc, id).Err
	case resource.FloatingIP:
		err = floatingips.Delete(ctx, sc, id).Err
	case resource.LoadBalancer:
		err = loadbalancers.Delete(ctx, sc, id, loadbalancers.DeleteOpts{Cascade: opts.Cascade}).Err
	case resource.DNSZone:
		err = zones.Delete(ctx, sc, id).Err
	case resource.HeatStack:
		stack, findErr := stacks.Find(ctx, sc, id).Extract()
		if findErr != nil {
			return wrapErr(op, findErr)
		}
		if stack.Status == stackDeleteComplete {
			return NewNotFound(op)
		}
		err = stacks.Delete(ctx, sc, stack.Name, stack.ID).Err
	default:
		return fmt.Errorf("unsupported resource kind %v", kind)
	}
	return wrapErr(op, err)
}

func (c *RealClient) probeDNS(ctx context.Context) error {
	sc, err := c.service(svcDNS)
	if err != nil {
		return err
	}
	err = zones.List(sc, zones.ListOpts{Limit: 1}).EachPage(ctx, func(context.Context, pagination.Page) (bool, error) {
		return false, nil
	})
	return wrapErr("probe dns", err)
}

func (c *RealClient) probeOrchestration(ctx context.Context) error {
	sc, err := c.service(svcOrchestration)
	if err != nil {
		return err
	}
	err = stacks.List(sc, stacks.ListOpts{Limit: 1}).EachPage(ctx, func(context.Context, pagination.Page) (bool, error) {
		return false, nil
	})
	return wrapErr("probe orchestration", err)
}
