package openstack

import (
	"context"
	"fmt"
	"sync"

	"github.com/imamik/osclean/internal/resource"
)

// Call is one recorded MockClient invocation.
type Call struct {
	Method string
	Kind   resource.Kind
	ID     string
	Arg    string
}

// String renders the call as "Method kind/id arg".
func (c Call) String() string {
	s := c.Method
	if c.Kind.Valid() {
		s += " " + c.Kind.String()
		if c.ID != "" {
			s += "/" + c.ID
		}
	} else if c.ID != "" {
		s += " " + c.ID
	}
	if c.Arg != "" {
		s += " " + c.Arg
	}
	return s
}

// MockClient is a mock implementation of Client. Unset funcs succeed with
// empty results, except Get which reports not found.
type MockClient struct {
	ListFunc   func(ctx context.Context, kind resource.Kind) ([]resource.Resource, error)
	GetFunc    func(ctx context.Context, kind resource.Kind, id string) (*resource.Resource, error)
	DeleteFunc func(ctx context.Context, kind resource.Kind, id string, opts DeleteOpts) error

	GetServerFunc             func(ctx context.Context, id string) (*Server, error)
	ListFloatingIPsFunc       func(ctx context.Context) ([]FloatingIP, error)
	ListPortsFunc             func(ctx context.Context, filter PortFilter) ([]Port, error)
	GetPortFunc               func(ctx context.Context, id string) (*Port, error)
	GetRouterFunc             func(ctx context.Context, id string) (*Router, error)
	ClearRouterGatewayFunc    func(ctx context.Context, id string) error
	RemoveRouterInterfaceFunc func(ctx context.Context, routerID, subnetID string) error
	GetLoadBalancerFunc       func(ctx context.Context, id string) (*LoadBalancer, error)

	ProbeFunc func(ctx context.Context, service Service) error

	mu    sync.Mutex
	calls []Call
}

// Ensure interface compliance
var _ Client = (*MockClient)(nil)

func (m *MockClient) record(c Call) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.calls = append(m.calls, c)
}

// Calls returns a copy of the recorded calls in order.
func (m *MockClient) Calls() []Call {
	m.mu.Lock()
	defer m.mu.Unlock()
	return append([]Call(nil), m.calls...)
}

// CallsTo returns recorded calls of one method.
func (m *MockClient) CallsTo(method string) []Call {
	var out []Call
	for _, c := range m.Calls() {
		if c.Method == method {
			out = append(out, c)
		}
	}
	return out
}

// Mutations returns recorded calls that change cloud state.
func (m *MockClient) Mutations() []Call {
	var out []Call
	for _, c := range m.Calls() {
		switch c.Method {
		case "Delete", "ClearRouterGateway", "RemoveRouterInterface":
			out = append(out, c)
		}
	}
	return out
}

// List mocks listing resources.
func (m *MockClient) List(ctx context.Context, kind resource.Kind) ([]resource.Resource, error) {
	m.record(Call{Method: "List", Kind: kind})
	if m.ListFunc != nil {
		return m.ListFunc(ctx, kind)
	}
	return nil, nil
}

// Get mocks reading a resource.
func (m *MockClient) Get(ctx context.Context, kind resource.Kind, id string) (*resource.Resource, error) {
	m.record(Call{Method: "Get", Kind: kind, ID: id})
	if m.GetFunc != nil {
		return m.GetFunc(ctx, kind, id)
	}
	return nil, NewNotFound(fmt.Sprintf("get %s %s", kind, id))
}

// Delete mocks deleting a resource.
func (m *MockClient) Delete(ctx context.Context, kind resource.Kind, id string, opts DeleteOpts) error {
	m.record(Call{Method: "Delete", Kind: kind, ID: id})
	if m.DeleteFunc != nil {
		return m.DeleteFunc(ctx, kind, id, opts)
	}
	return nil
}

// GetServer mocks reading a server.
func (m *MockClient) GetServer(ctx context.Context, id string) (*Server, error) {
	m.record(Call{Method: "GetServer", ID: id})
	if m.GetServerFunc != nil {
		return m.GetServerFunc(ctx, id)
	}
	return &Server{ID: id}, nil
}

// ListFloatingIPs mocks listing floating IPs.
func (m *MockClient) ListFloatingIPs(ctx context.Context) ([]FloatingIP, error) {
	m.record(Call{Method: "ListFloatingIPs"})
	if m.ListFloatingIPsFunc != nil {
		return m.ListFloatingIPsFunc(ctx)
	}
	return nil, nil
}

// ListPorts mocks listing ports.
func (m *MockClient) ListPorts(ctx context.Context, filter PortFilter) ([]Port, error) {
	m.record(Call{Method: "ListPorts", ID: filter.DeviceID + filter.NetworkID})
	if m.ListPortsFunc != nil {
		return m.ListPortsFunc(ctx, filter)
	}
	return nil, nil
}

// GetPort mocks reading a port.
func (m *MockClient) GetPort(ctx context.Context, id string) (*Port, error) {
	m.record(Call{Method: "GetPort", ID: id})
	if m.GetPortFunc != nil {
		return m.GetPortFunc(ctx, id)
	}
	return &Port{ID: id}, nil
}

// GetRouter mocks reading a router.
func (m *MockClient) GetRouter(ctx context.Context, id string) (*Router, error) {
	m.record(Call{Method: "GetRouter", ID: id})
	if m.GetRouterFunc != nil {
		return m.GetRouterFunc(ctx, id)
	}
	return &Router{ID: id}, nil
}

// ClearRouterGateway mocks clearing a router gateway.
func (m *MockClient) ClearRouterGateway(ctx context.Context, id string) error {
	m.record(Call{Method: "ClearRouterGateway", ID: id})
	if m.ClearRouterGatewayFunc != nil {
		return m.ClearRouterGatewayFunc(ctx, id)
	}
	return nil
}

// RemoveRouterInterface mocks detaching a subnet.
func (m *MockClient) RemoveRouterInterface(ctx context.Context, routerID, subnetID string) error {
	m.record(Call{Method: "RemoveRouterInterface", ID: routerID, Arg: subnetID})
	if m.RemoveRouterInterfaceFunc != nil {
		return m.RemoveRouterInterfaceFunc(ctx, routerID, subnetID)
	}
	return nil
}

// GetLoadBalancer mocks reading a load balancer.
func (m *MockClient) GetLoadBalancer(ctx context.Context, id string) (*LoadBalancer, error) {
	m.record(Call{Method: "GetLoadBalancer", ID: id})
	if m.GetLoadBalancerFunc != nil {
		return m.GetLoadBalancerFunc(ctx, id)
	}
	return &LoadBalancer{ID: id, ProvisioningStatus: "ACTIVE"}, nil
}

// Probe mocks a service probe.
func (m *MockClient) Probe(ctx context.Context, service Service) error {
	m.record(Call{Method: "Probe", Arg: string(service)})
	if m.ProbeFunc != nil {
		return m.ProbeFunc(ctx, service)
	}
	return nil
}
