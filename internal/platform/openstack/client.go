package openstack

import (
	"context"

	"github.com/imamik/osclean/internal/resource"
)

// Port device owners that the cleanup engine treats specially.
const (
	DeviceOwnerRouterInterface = "network:router_interface"
	DeviceOwnerRouterGateway   = "network:router_gateway"
	DeviceOwnerDHCP            = "network:dhcp"
	DeviceOwnerFloatingIP      = "network:floatingip"
)

// Service is an optional OpenStack service that may be absent from a cloud.
type Service string

const (
	ServiceDNS           Service = "dns"
	ServiceOrchestration Service = "orchestration"
)

// DeleteOpts modifies a delete call. Cascade applies to load balancers,
// Force to volumes. Other kinds ignore both.
type DeleteOpts struct {
	Cascade bool
	Force   bool
}

// Server is an instance with the floating addresses attached to it.
type Server struct {
	ID                string
	Name              string
	Status            string
	FloatingAddresses []string
}

// FloatingIP is a floating IP and its current binding.
type FloatingIP struct {
	ID          string
	Address     string
	Description string
	PortID      string
	RouterID    string
	Status      string
}

// FixedIP is one address of a port.
type FixedIP struct {
	SubnetID  string
	IPAddress string
}

// Port is a network port.
type Port struct {
	ID          string
	Name        string
	DeviceOwner string
	DeviceID    string
	NetworkID   string
	FixedIPs    []FixedIP
}

// PortFilter narrows ListPorts. Empty fields do not filter.
type PortFilter struct {
	DeviceID  string
	NetworkID string
}

// Router is a router and whether it has an external gateway set.
type Router struct {
	ID         string
	Name       string
	HasGateway bool
}

// LoadBalancer is a load balancer and its provisioning state.
type LoadBalancer struct {
	ID                 string
	Name               string
	ProvisioningStatus string
}

// ResourceLister lists and reads resources of any kind.
type ResourceLister interface {
	// List returns every resource of kind visible to the project.
	List(ctx context.Context, kind resource.Kind) ([]resource.Resource, error)
	// Get returns one resource. A missing resource is an APIError with status 404.
	Get(ctx context.Context, kind resource.Kind, id string) (*resource.Resource, error)
}

// ResourceDeleter deletes resources of any kind.
type ResourceDeleter interface {
	// Delete issues a delete request. Keypairs are addressed by name.
	Delete(ctx context.Context, kind resource.Kind, id string, opts DeleteOpts) error
}

// NetworkInspector exposes the relationships teardown ordering depends on.
type NetworkInspector interface {
	GetServer(ctx context.Context, id string) (*Server, error)
	ListFloatingIPs(ctx context.Context) ([]FloatingIP, error)
	ListPorts(ctx context.Context, filter PortFilter) ([]Port, error)
	GetPort(ctx context.Context, id string) (*Port, error)
	GetRouter(ctx context.Context, id string) (*Router, error)
	ClearRouterGateway(ctx context.Context, id string) error
	RemoveRouterInterface(ctx context.Context, routerID, subnetID string) error
	GetLoadBalancer(ctx context.Context, id string) (*LoadBalancer, error)
}

// ServiceProber reports whether an optional service is usable.
type ServiceProber interface {
	Probe(ctx context.Context, service Service) error
}

// Client combines all operations the cleanup engine needs.
type Client interface {
	ResourceLister
	ResourceDeleter
	NetworkInspector
	ServiceProber
}
