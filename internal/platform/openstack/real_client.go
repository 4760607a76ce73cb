package openstack

import (
	"context"
	"errors"
	"fmt"
	"os"
	"sync"

	"github.com/gophercloud/gophercloud/v2"
	gcopenstack "github.com/gophercloud/gophercloud/v2/openstack"
	gcconfig "github.com/gophercloud/gophercloud/v2/openstack/config"
	"github.com/gophercloud/gophercloud/v2/openstack/config/clouds"
)

type serviceType string

const (
	svcCompute       serviceType = "compute"
	svcImage         serviceType = "image"
	svcBlockStorage  serviceType = "block-storage"
	svcNetwork       serviceType = "network"
	svcLoadBalancer  serviceType = "load-balancer"
	svcDNS           serviceType = "dns"
	svcOrchestration serviceType = "orchestration"
)

// RealClient implements Client using gophercloud. Service clients are built
// on first use so a cloud without, say, Octavia only fails load balancer calls.
type RealClient struct {
	provider  *gophercloud.ProviderClient
	endpoints gophercloud.EndpointOpts

	mu       sync.Mutex
	services map[serviceType]*gophercloud.ServiceClient
}

var _ Client = (*RealClient)(nil)

// ClientOption configures a RealClient.
type ClientOption func(*RealClient)

// withServiceClient injects a prebuilt service client (useful for testing).
func withServiceClient(svc serviceType, sc *gophercloud.ServiceClient) ClientOption {
	return func(c *RealClient) {
		c.services[svc] = sc
	}
}

// WithRegion overrides the region used for endpoint lookup.
func WithRegion(region string) ClientOption {
	return func(c *RealClient) {
		c.endpoints.Region = region
	}
}

// Connect authenticates and returns a RealClient. A non-empty cloud selects a
// clouds.yaml profile; otherwise OS_* environment variables are used.
func Connect(ctx context.Context, cloud string, opts ...ClientOption) (*RealClient, error) {
	var (
		provider *gophercloud.ProviderClient
		eo       gophercloud.EndpointOpts
		err      error
	)

	if cloud != "" {
		ao, endpointOpts, tlsConfig, parseErr := clouds.Parse(clouds.WithCloudName(cloud))
		if parseErr != nil {
			return nil, fmt.Errorf("failed to load cloud %q from clouds.yaml: %w", cloud, parseErr)
		}
		ao.AllowReauth = true
		provider, err = gcconfig.NewProviderClient(ctx, ao, gcconfig.WithTLSConfig(tlsConfig))
		eo = endpointOpts
	} else {
		ao, envErr := gcopenstack.AuthOptionsFromEnv()
		if envErr != nil {
			return nil, fmt.Errorf("failed to read auth options from environment: %w", envErr)
		}
		ao.AllowReauth = true
		provider, err = gcopenstack.AuthenticatedClient(ctx, ao)
		eo = gophercloud.EndpointOpts{Region: os.Getenv("OS_REGION_NAME")}
	}
	if err != nil {
		return nil, wrapErr("authenticate", err)
	}

	return NewRealClient(provider, eo, opts...), nil
}

// NewRealClient wraps an authenticated provider.
func NewRealClient(provider *gophercloud.ProviderClient, eo gophercloud.EndpointOpts, opts ...ClientOption) *RealClient {
	c := &RealClient{
		provider:  provider,
		endpoints: eo,
		services:  make(map[serviceType]*gophercloud.ServiceClient),
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

// service returns the cached service client for svc, building it on first use.
func (c *RealClient) service(svc serviceType) (*gophercloud.ServiceClient, error) {
	c.mu.Lock()
	defer c.mu.Unlock()

	if sc, ok := c.services[svc]; ok {
		return sc, nil
	}
	if c.provider == nil {
		return nil, fmt.Errorf("%w: no %s service configured", ErrEndpointDiscovery, svc)
	}

	var (
		sc  *gophercloud.ServiceClient
		err error
	)
	switch svc {
	case svcCompute:
		sc, err = gcopenstack.NewComputeV2(c.provider, c.endpoints)
	case svcImage:
		sc, err = gcopenstack.NewImageV2(c.provider, c.endpoints)
	case svcBlockStorage:
		sc, err = gcopenstack.NewBlockStorageV3(c.provider, c.endpoints)
	case svcNetwork:
		sc, err = gcopenstack.NewNetworkV2(c.provider, c.endpoints)
	case svcLoadBalancer:
		sc, err = gcopenstack.NewLoadBalancerV2(c.provider, c.endpoints)
	case svcDNS:
		sc, err = gcopenstack.NewDNSV2(c.provider, c.endpoints)
	case svcOrchestration:
		sc, err = gcopenstack.NewOrchestrationV1(c.provider, c.endpoints)
	default:
		return nil, fmt.Errorf("%w: unknown service %s", ErrEndpointDiscovery, svc)
	}
	if err != nil {
		return nil, fmt.Errorf("%w: %s: %v", ErrEndpointDiscovery, svc, err)
	}

	c.services[svc] = sc
	return sc, nil
}

// wrapErr converts a gophercloud error into an APIError carrying the status code.
func wrapErr(op string, err error) error {
	if err == nil {
		return nil
	}
	var apiErr *APIError
	if errors.As(err, &apiErr) || errors.Is(err, ErrEndpointDiscovery) {
		return err
	}
	var codeErr gophercloud.ErrUnexpectedResponseCode
	if errors.As(err, &codeErr) {
		return &APIError{StatusCode: codeErr.Actual, Op: op, Err: err}
	}
	return &APIError{Op: op, Err: err}
}

// Probe reports whether the optional service answers a minimal list call.
func (c *RealClient) Probe(ctx context.Context, service Service) error {
	switch service {
	case ServiceDNS:
		return c.probeDNS(ctx)
	case ServiceOrchestration:
		return c.probeOrchestration(ctx)
	default:
		return fmt.Errorf("unknown service %q", service)
	}
}
