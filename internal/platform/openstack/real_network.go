package openstack

import (
	"context"
	"fmt"
	"sort"

	"github.com/gophercloud/gophercloud/v2/openstack/compute/v2/servers"
	"github.com/gophercloud/gophercloud/v2/openstack/loadbalancer/v2/loadbalancers"
	"github.com/gophercloud/gophercloud/v2/openstack/networking/v2/extensions/layer3/floatingips"
	"github.com/gophercloud/gophercloud/v2/openstack/networking/v2/extensions/layer3/routers"
	"github.com/gophercloud/gophercloud/v2/openstack/networking/v2/ports"
)

// GetServer returns an instance with the floating addresses from its address map.
func (c *RealClient) GetServer(ctx context.Context, id string) (*Server, error) {
	sc, err := c.service(svcCompute)
	if err != nil {
		return nil, err
	}
	s, err := servers.Get(ctx, sc, id).Extract()
	if err != nil {
		return nil, wrapErr("get server "+id, err)
	}
	return &Server{
		ID:                s.ID,
		Name:              s.Name,
		Status:            s.Status,
		FloatingAddresses: floatingAddresses(s.Addresses),
	}, nil
}

// floatingAddresses extracts addresses tagged OS-EXT-IPS:type=floating from a
// server's per-network address lists. Networks are visited in sorted order.
func floatingAddresses(addresses map[string]interface{}) []string {
	names := make([]string, 0, len(addresses))
	for name := range addresses {
		names = append(names, name)
	}
	sort.Strings(names)

	var out []string
	for _, name := range names {
		list, ok := addresses[name].([]interface{})
		if !ok {
			continue
		}
		for _, entry := range list {
			m, ok := entry.(map[string]interface{})
			if !ok {
				continue
			}
			if t, _ := m["OS-EXT-IPS:type"].(string); t != "floating" {
				continue
			}
			if addr, _ := m["addr"].(string); addr != "" {
				out = append(out, addr)
			}
		}
	}
	return out
}

// ListFloatingIPs returns every floating IP in the project.
func (c *RealClient) ListFloatingIPs(ctx context.Context) ([]FloatingIP, error) {
	sc, err := c.service(svcNetwork)
	if err != nil {
		return nil, err
	}
	page, err := floatingips.List(sc, floatingips.ListOpts{}).AllPages(ctx)
	if err != nil {
		return nil, wrapErr("list floating_ips", err)
	}
	all, err := floatingips.ExtractFloatingIPs(page)
	if err != nil {
		return nil, wrapErr("list floating_ips", err)
	}
	out := make([]FloatingIP, 0, len(all))
	for _, f := range all {
		out = append(out, FloatingIP{
			ID:          f.ID,
			Address:     f.FloatingIP,
			Description: f.Description,
			PortID:      f.PortID,
			RouterID:    f.RouterID,
			Status:      f.Status,
		})
	}
	return out, nil
}

// ListPorts returns ports filtered by device and/or network.
func (c *RealClient) ListPorts(ctx context.Context, filter PortFilter) ([]Port, error) {
	sc, err := c.service(svcNetwork)
	if err != nil {
		return nil, err
	}
	opts := ports.ListOpts{DeviceID: filter.DeviceID, NetworkID: filter.NetworkID}
	page, err := ports.List(sc, opts).AllPages(ctx)
	if err != nil {
		return nil, wrapErr("list ports", err)
	}
	all, err := ports.ExtractPorts(page)
	if err != nil {
		return nil, wrapErr("list ports", err)
	}
	out := make([]Port, 0, len(all))
	for _, p := range all {
		out = append(out, convertPort(p))
	}
	return out, nil
}

// GetPort returns a single port.
func (c *RealClient) GetPort(ctx context.Context, id string) (*Port, error) {
	sc, err := c.service(svcNetwork)
	if err != nil {
		return nil, err
	}
	p, err := ports.Get(ctx, sc, id).Extract()
	if err != nil {
		return nil, wrapErr("get port "+id, err)
	}
	out := convertPort(*p)
	return &out, nil
}

func convertPort(p ports.Port) Port {
	fixed := make([]FixedIP, 0, len(p.FixedIPs))
	for _, ip := range p.FixedIPs {
		fixed = append(fixed, FixedIP{SubnetID: ip.SubnetID, IPAddress: ip.IPAddress})
	}
	return Port{
		ID:          p.ID,
		Name:        p.Name,
		DeviceOwner: p.DeviceOwner,
		DeviceID:    p.DeviceID,
		NetworkID:   p.NetworkID,
		FixedIPs:    fixed,
	}
}

// GetRouter returns a router and whether it has an external gateway.
func (c *RealClient) GetRouter(ctx context.Context, id string) (*Router, error) {
	sc, err := c.service(svcNetwork)
	if err != nil {
		return nil, err
	}
	r, err := routers.Get(ctx, sc, id).Extract()
	if err != nil {
		return nil, wrapErr("get router "+id, err)
	}
	return &Router{ID: r.ID, Name: r.Name, HasGateway: r.GatewayInfo.NetworkID != ""}, nil
}

// ClearRouterGateway removes the external gateway of a router.
func (c *RealClient) ClearRouterGateway(ctx context.Context, id string) error {
	sc, err := c.service(svcNetwork)
	if err != nil {
		return err
	}
	_, err = routers.Update(ctx, sc, id, routers.UpdateOpts{GatewayInfo: &routers.GatewayInfo{}}).Extract()
	return wrapErr("clear gateway of router "+id, err)
}

// RemoveRouterInterface detaches a subnet from a router.
func (c *RealClient) RemoveRouterInterface(ctx context.Context, routerID, subnetID string) error {
	sc, err := c.service(svcNetwork)
	if err != nil {
		return err
	}
	_, err = routers.RemoveInterface(ctx, sc, routerID, routers.RemoveInterfaceOpts{SubnetID: subnetID}).Extract()
	return wrapErr(fmt.Sprintf("remove subnet %s from router %s", subnetID, routerID), err)
}

// GetLoadBalancer returns a load balancer and its provisioning status.
func (c *RealClient) GetLoadBalancer(ctx context.Context, id string) (*LoadBalancer, error) {
	sc, err := c.service(svcLoadBalancer)
	if err != nil {
		return nil, err
	}
	lb, err := loadbalancers.Get(ctx, sc, id).Extract()
	if err != nil {
		return nil, wrapErr("get loadbalancer "+id, err)
	}
	return &LoadBalancer{ID: lb.ID, Name: lb.Name, ProvisioningStatus: lb.ProvisioningStatus}, nil
}
