package cleanup

import (
	"context"
	"net/http"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/imamik/osclean/internal/platform/openstack"
	"github.com/imamik/osclean/internal/resource"
)

var allServices = ServiceAvailability{DNS: true, Orchestration: true}

func TestStorage_ForceDeletesVolumesThenSnapshots(t *testing.T) {
	t.Parallel()
	var forced []string
	m := &openstack.MockClient{DeleteFunc: func(_ context.Context, kind resource.Kind, id string, opts openstack.DeleteOpts) error {
		if opts.Force {
			forced = append(forced, kind.String()+"/"+id)
		}
		return nil
	}}
	deps := newTestDeps(m, resource.Inventory{
		resource.Volume:         {"v1": "test-vol"},
		resource.VolumeSnapshot: {"s1": "test-snap"},
	})

	newStorageCleaner(deps).Clean(testContext(t), false)

	assert.Equal(t, []string{"Delete volumes/v1", "Delete volume_snapshots/s1"}, mutationStrings(m))
	assert.Equal(t, []string{"volumes/v1"}, forced)
	assert.Equal(t, resource.StatusDeleted, outcomeFor(t, deps, resource.Volume, "v1").Status)
	assert.Equal(t, resource.StatusDeleted, outcomeFor(t, deps, resource.VolumeSnapshot, "s1").Status)
}

func TestStorage_DryRunChecksExistence(t *testing.T) {
	t.Parallel()
	m := &openstack.MockClient{GetFunc: func(_ context.Context, kind resource.Kind, id string) (*resource.Resource, error) {
		if id == "gone" {
			return nil, openstack.NewNotFound("get")
		}
		return &resource.Resource{Kind: kind, ID: id}, nil
	}}
	deps := newTestDeps(m, resource.Inventory{resource.Volume: {"v1": "test-vol", "gone": "test-old"}})

	newStorageCleaner(deps).Clean(testContext(t), true)

	assert.Empty(t, m.Mutations())
	assert.Equal(t, resource.StatusWouldDelete, outcomeFor(t, deps, resource.Volume, "v1").Status)
	assert.Equal(t, resource.StatusAlreadyGone, outcomeFor(t, deps, resource.Volume, "gone").Status)
}

func TestCompute_InstanceFloatingIPsGoFirst(t *testing.T) {
	t.Parallel()
	m := &openstack.MockClient{
		GetServerFunc: func(_ context.Context, id string) (*openstack.Server, error) {
			return &openstack.Server{ID: id, FloatingAddresses: []string{"203.0.113.5"}}, nil
		},
		ListFloatingIPsFunc: func(context.Context) ([]openstack.FloatingIP, error) {
			return []openstack.FloatingIP{{ID: "f9", Address: "203.0.113.5"}, {ID: "f10", Address: "203.0.113.6"}}, nil
		},
	}
	deps := newTestDeps(m, resource.Inventory{
		resource.Instance: {"i1": "test-vm"},
		resource.Keypair:  {"0": "test-kp"},
		resource.Flavor:   {"fl1": "test-flavor"},
	})

	newComputeCleaner(deps).Clean(testContext(t), false)

	assert.Equal(t, []string{
		"Delete floating_ips/f9",
		"Delete instances/i1",
		"Delete flavors/fl1",
		"Delete keypairs/test-kp",
	}, mutationStrings(m))
	assert.Equal(t, resource.StatusDeleted, outcomeFor(t, deps, resource.FloatingIP, "f9").Status)
	assert.Equal(t, "203.0.113.5", outcomeFor(t, deps, resource.FloatingIP, "f9").Name)
	assert.Equal(t, resource.StatusDeleted, outcomeFor(t, deps, resource.Instance, "i1").Status)
	assert.Equal(t, resource.StatusDeleted, outcomeFor(t, deps, resource.Keypair, "0").Status)
}

func TestCompute_InstanceStillPresentTimesOut(t *testing.T) {
	t.Parallel()
	m := &openstack.MockClient{GetFunc: exists}
	deps := newTestDeps(m, resource.Inventory{resource.Instance: {"i1": "test-vm"}})

	newComputeCleaner(deps).Clean(testContext(t), false)

	o := outcomeFor(t, deps, resource.Instance, "i1")
	assert.Equal(t, resource.StatusTimedOut, o.Status)
	assert.Contains(t, o.Reason, "still deleting after 3 polls")
	assert.Len(t, m.CallsTo("Get"), 3)
}

func TestCompute_MissingInstanceIsAlreadyGone(t *testing.T) {
	t.Parallel()
	m := &openstack.MockClient{GetServerFunc: func(context.Context, string) (*openstack.Server, error) {
		return nil, openstack.NewNotFound("get server")
	}}
	deps := newTestDeps(m, resource.Inventory{resource.Instance: {"i1": "test-vm"}})

	newComputeCleaner(deps).Clean(testContext(t), false)

	assert.Empty(t, m.Mutations())
	assert.Equal(t, resource.StatusAlreadyGone, outcomeFor(t, deps, resource.Instance, "i1").Status)
}

func TestLoadBalancer_WaitsOutPendingState(t *testing.T) {
	t.Parallel()
	reads := 0
	cascade := false
	m := &openstack.MockClient{
		GetLoadBalancerFunc: func(_ context.Context, id string) (*openstack.LoadBalancer, error) {
			reads++
			if reads == 1 {
				return &openstack.LoadBalancer{ID: id, ProvisioningStatus: "PENDING_UPDATE"}, nil
			}
			return &openstack.LoadBalancer{ID: id, ProvisioningStatus: "ACTIVE"}, nil
		},
		DeleteFunc: func(_ context.Context, _ resource.Kind, _ string, opts openstack.DeleteOpts) error {
			cascade = opts.Cascade
			return nil
		},
	}
	deps := newTestDeps(m, resource.Inventory{resource.LoadBalancer: {"lb1": "test-lb"}})

	newLoadBalancerCleaner(deps).Clean(testContext(t), false)

	assert.Equal(t, 2, reads)
	assert.True(t, cascade)
	assert.Equal(t, resource.StatusDeleted, outcomeFor(t, deps, resource.LoadBalancer, "lb1").Status)
}

func TestLoadBalancer_Failures(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name       string
		state      string
		deleteErr  error
		wantReason string
		wantDelete int
	}{
		{"stuck pending", "PENDING_UPDATE", nil, "Still in PENDING_UPDATE state after retries", 0},
		{"conflict", "ACTIVE", apiErr(http.StatusConflict), "Conflict after retries", 3},
		{"forbidden", "ACTIVE", apiErr(http.StatusForbidden), "status 403", 1},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()
			m := &openstack.MockClient{
				GetLoadBalancerFunc: func(_ context.Context, id string) (*openstack.LoadBalancer, error) {
					return &openstack.LoadBalancer{ID: id, ProvisioningStatus: tt.state}, nil
				},
				DeleteFunc: func(context.Context, resource.Kind, string, openstack.DeleteOpts) error {
					return tt.deleteErr
				},
			}
			deps := newTestDeps(m, resource.Inventory{resource.LoadBalancer: {"lb1": "test-lb"}})

			newLoadBalancerCleaner(deps).Clean(testContext(t), false)

			o := outcomeFor(t, deps, resource.LoadBalancer, "lb1")
			assert.Equal(t, resource.StatusFailed, o.Status)
			assert.Contains(t, o.Reason, tt.wantReason)
			assert.Len(t, m.CallsTo("Delete"), tt.wantDelete)
		})
	}
}

func TestLoadBalancer_UnconfirmedDeleteTimesOut(t *testing.T) {
	t.Parallel()
	m := &openstack.MockClient{GetFunc: exists}
	deps := newTestDeps(m, resource.Inventory{resource.LoadBalancer: {"lb1": "test-lb"}})

	newLoadBalancerCleaner(deps).Clean(testContext(t), false)

	assert.Equal(t, resource.StatusTimedOut, outcomeFor(t, deps, resource.LoadBalancer, "lb1").Status)
}

func TestLoadBalancer_HungVerificationTimesOut(t *testing.T) {
	t.Parallel()
	m := &openstack.MockClient{GetFunc: hangs}
	deps := newTestDeps(m, resource.Inventory{resource.LoadBalancer: {"lb1": "test-lb"}})

	newLoadBalancerCleaner(deps).Clean(testContext(t), false)

	assert.Equal(t, resource.StatusTimedOut, outcomeFor(t, deps, resource.LoadBalancer, "lb1").Status)
}

func TestLoadBalancer_InterruptedVerificationTimesOut(t *testing.T) {
	t.Parallel()
	ctx, cancel := context.WithCancel(testContext(t))
	defer cancel()
	m := &openstack.MockClient{GetFunc: func(context.Context, resource.Kind, string) (*resource.Resource, error) {
		cancel()
		return nil, context.Canceled
	}}
	deps := newTestDeps(m, resource.Inventory{resource.LoadBalancer: {"lb1": "test-lb-1", "lb2": "test-lb-2"}})

	newLoadBalancerCleaner(deps).Clean(ctx, false)

	for _, id := range []string{"lb1", "lb2"} {
		assert.Equal(t, resource.StatusTimedOut, outcomeFor(t, deps, resource.LoadBalancer, id).Status, id)
	}
}

func TestAdvanced_StackThenZone(t *testing.T) {
	t.Parallel()
	m := &openstack.MockClient{}
	deps := newTestDeps(m, resource.Inventory{
		resource.HeatStack: {"st1": "test-stack"},
		resource.DNSZone:   {"z1": "test.example.org."},
	})

	newAdvancedCleaner(deps, allServices).Clean(testContext(t), false)

	assert.Equal(t, []string{"Delete heat_stacks/st1", "Delete dns_zones/z1"}, mutationStrings(m))
	assert.Equal(t, resource.StatusDeleted, outcomeFor(t, deps, resource.HeatStack, "st1").Status)
	assert.Equal(t, resource.StatusDeleted, outcomeFor(t, deps, resource.DNSZone, "z1").Status)
}

func TestAdvanced_StackDeleteTimesOut(t *testing.T) {
	t.Parallel()
	m := &openstack.MockClient{GetFunc: exists}
	deps := newTestDeps(m, resource.Inventory{resource.HeatStack: {"st1": "test-stack"}})

	newAdvancedCleaner(deps, ServiceAvailability{Orchestration: true}).Clean(testContext(t), false)

	o := outcomeFor(t, deps, resource.HeatStack, "st1")
	assert.Equal(t, resource.StatusTimedOut, o.Status)
	assert.Contains(t, o.Reason, "stack deletion did not complete")
}

func TestAdvanced_UnavailableServicesContributeNothing(t *testing.T) {
	t.Parallel()
	m := &openstack.MockClient{}
	deps := newTestDeps(m, resource.Inventory{resource.DNSZone: {"z1": "test-zone"}})
	c := newAdvancedCleaner(deps, ServiceAvailability{Orchestration: true})
	ctx := testContext(t)

	inv := c.Enumerate(ctx)
	assert.False(t, inv.Has(resource.DNSZone))
	c.Clean(ctx, false)
	assert.Empty(t, m.Mutations())

	fresh := &openstack.MockClient{}
	none := newAdvancedCleaner(newTestDeps(fresh, nil), ServiceAvailability{})
	assert.Equal(t, 0, none.Enumerate(ctx).Count())
	none.Clean(ctx, false)
	assert.Empty(t, fresh.Calls())
}

func TestNetwork_RouterScenario(t *testing.T) {
	t.Parallel()
	routerPort := openstack.Port{
		ID:          "p-r1",
		DeviceOwner: openstack.DeviceOwnerRouterInterface,
		DeviceID:    "r1",
		FixedIPs:    []openstack.FixedIP{{SubnetID: "s1", IPAddress: "10.0.0.1"}},
	}
	m := &openstack.MockClient{
		GetRouterFunc: func(_ context.Context, id string) (*openstack.Router, error) {
			return &openstack.Router{ID: id, Name: "test-router", HasGateway: true}, nil
		},
		ListPortsFunc: func(_ context.Context, f openstack.PortFilter) ([]openstack.Port, error) {
			if f.DeviceID == "r1" || f == (openstack.PortFilter{}) {
				return []openstack.Port{routerPort}, nil
			}
			return nil, nil
		},
		ListFloatingIPsFunc: func(context.Context) ([]openstack.FloatingIP, error) {
			return []openstack.FloatingIP{{ID: "f1", Address: "198.51.100.7", PortID: "p-r1"}}, nil
		},
	}
	deps := newTestDeps(m, resource.Inventory{
		resource.Router:  {"r1": "test-router"},
		resource.Network: {"n1": "test-net"},
	})

	newNetworkCleaner(deps).Clean(testContext(t), false)

	assert.Equal(t, []string{
		"Delete floating_ips/f1",
		"ClearRouterGateway r1",
		"RemoveRouterInterface r1 s1",
		"Delete routers/r1",
		"Delete networks/n1",
	}, mutationStrings(m))
	assert.Equal(t, resource.StatusDeleted, outcomeFor(t, deps, resource.FloatingIP, "f1").Status)
	assert.Equal(t, resource.StatusDeleted, outcomeFor(t, deps, resource.Router, "r1").Status)
	assert.Equal(t, resource.StatusDeleted, outcomeFor(t, deps, resource.Network, "n1").Status)
}

func TestNetwork_RouterDryRunPreview(t *testing.T) {
	t.Parallel()
	rep := &captureReporter{}
	m := &openstack.MockClient{
		GetRouterFunc: func(_ context.Context, id string) (*openstack.Router, error) {
			return &openstack.Router{ID: id, HasGateway: true}, nil
		},
		ListPortsFunc: func(_ context.Context, f openstack.PortFilter) ([]openstack.Port, error) {
			if f.DeviceID == "r1" {
				return []openstack.Port{{ID: "p1", FixedIPs: []openstack.FixedIP{{SubnetID: "s1", IPAddress: "10.0.0.1"}}}}, nil
			}
			return nil, nil
		},
	}
	deps := newTestDeps(m, resource.Inventory{resource.Router: {"r1": "test-router"}})
	deps.Recorder = NewRecorder(rep)

	newNetworkCleaner(deps).Clean(testContext(t), true)

	assert.Empty(t, m.Mutations())
	assert.Equal(t, []string{
		"ROUTER GATEWAY test-router would-delete",
		"ROUTER INTERFACE 10.0.0.1 would-delete",
	}, rep.details)
	assert.Equal(t, resource.StatusWouldDelete, outcomeFor(t, deps, resource.Router, "r1").Status)
}

func TestNetwork_NetworkPortsCleared(t *testing.T) {
	t.Parallel()
	m := &openstack.MockClient{
		ListPortsFunc: func(_ context.Context, f openstack.PortFilter) ([]openstack.Port, error) {
			if f.NetworkID != "n1" {
				return nil, nil
			}
			return []openstack.Port{
				{ID: "dhcp", DeviceOwner: openstack.DeviceOwnerDHCP},
				{ID: "fip", DeviceOwner: openstack.DeviceOwnerFloatingIP},
				{ID: "vm-port", Name: "leftover", DeviceOwner: "compute:nova"},
			}, nil
		},
	}
	deps := newTestDeps(m, resource.Inventory{resource.Network: {"n1": "test-net"}})

	newNetworkCleaner(deps).Clean(testContext(t), false)

	assert.Equal(t, []string{"Delete ports/vm-port", "Delete networks/n1"}, mutationStrings(m))
}

func TestNetwork_NetworkInUseRetried(t *testing.T) {
	t.Parallel()
	attempts := 0
	m := &openstack.MockClient{DeleteFunc: func(context.Context, resource.Kind, string, openstack.DeleteOpts) error {
		attempts++
		if attempts < 2 {
			return apiErr(http.StatusConflict)
		}
		return nil
	}}
	deps := newTestDeps(m, resource.Inventory{resource.Network: {"n1": "test-net"}})

	newNetworkCleaner(deps).Clean(testContext(t), false)

	assert.Equal(t, 2, attempts)
	assert.Equal(t, resource.StatusDeleted, outcomeFor(t, deps, resource.Network, "n1").Status)
}

func TestNetwork_SecurityGroupConflict(t *testing.T) {
	t.Parallel()

	t.Run("exhausted", func(t *testing.T) {
		t.Parallel()
		m := &openstack.MockClient{DeleteFunc: func(context.Context, resource.Kind, string, openstack.DeleteOpts) error {
			return apiErr(http.StatusConflict)
		}}
		deps := newTestDeps(m, resource.Inventory{resource.SecurityGroup: {"sg1": "test-sg"}})

		newNetworkCleaner(deps).Clean(testContext(t), false)

		o := outcomeFor(t, deps, resource.SecurityGroup, "sg1")
		assert.Equal(t, resource.StatusFailed, o.Status)
		assert.Contains(t, o.Reason, "after retries")
		assert.Contains(t, o.Reason, "Still in use")
		assert.Len(t, m.CallsTo("Delete"), 3)
	})

	t.Run("recovers", func(t *testing.T) {
		t.Parallel()
		calls := 0
		m := &openstack.MockClient{DeleteFunc: func(context.Context, resource.Kind, string, openstack.DeleteOpts) error {
			calls++
			if calls < 3 {
				return apiErr(http.StatusConflict)
			}
			return nil
		}}
		deps := newTestDeps(m, resource.Inventory{resource.SecurityGroup: {"sg1": "test-sg"}})

		newNetworkCleaner(deps).Clean(testContext(t), false)

		assert.Equal(t, resource.StatusDeleted, outcomeFor(t, deps, resource.SecurityGroup, "sg1").Status)
	})
}

func TestNetwork_Sweeps(t *testing.T) {
	t.Parallel()
	m := &openstack.MockClient{
		ListFloatingIPsFunc: func(context.Context) ([]openstack.FloatingIP, error) {
			return []openstack.FloatingIP{
				{ID: "f1", Address: "203.0.113.1", Description: "test-cluster api"},
				{ID: "f2", Address: "203.0.113.2", Description: "production"},
			}, nil
		},
		ListPortsFunc: func(_ context.Context, f openstack.PortFilter) ([]openstack.Port, error) {
			if f != (openstack.PortFilter{}) {
				return nil, nil
			}
			return []openstack.Port{
				{ID: "p1", Name: "test-port"},
				{ID: "p2", Name: "test-gw", DeviceOwner: openstack.DeviceOwnerRouterGateway},
				{ID: "p3", Name: "prod-port"},
			}, nil
		},
	}

	t.Run("enabled", func(t *testing.T) {
		deps := newTestDeps(m, resource.Inventory{})
		newNetworkCleaner(deps).Clean(testContext(t), false)

		assert.Equal(t, resource.StatusDeleted, outcomeFor(t, deps, resource.FloatingIP, "f1").Status)
		assert.Equal(t, resource.StatusDeleted, outcomeFor(t, deps, resource.Port, "p1").Status)
		skipped := outcomeFor(t, deps, resource.Port, "p2")
		assert.Equal(t, resource.StatusSkipped, skipped.Status)
		assert.Contains(t, skipped.Reason, openstack.DeviceOwnerRouterGateway)
		assert.Len(t, deps.Recorder.Outcomes(), 3)
	})

	t.Run("disabled", func(t *testing.T) {
		mm := &openstack.MockClient{ListFloatingIPsFunc: m.ListFloatingIPsFunc, ListPortsFunc: m.ListPortsFunc}
		deps := newTestDeps(mm, resource.Inventory{})
		deps.Sweep = false
		newNetworkCleaner(deps).Clean(testContext(t), false)

		assert.Empty(t, mm.Mutations())
		assert.Empty(t, mm.CallsTo("ListFloatingIPs"))
		assert.Empty(t, mm.CallsTo("ListPorts"))
	})
}

func TestDetectServices(t *testing.T) {
	t.Parallel()
	m := &openstack.MockClient{ProbeFunc: func(_ context.Context, s openstack.Service) error {
		if s == openstack.ServiceDNS {
			return openstack.ErrEndpointDiscovery
		}
		return nil
	}}

	avail := DetectServices(testContext(t), m)

	assert.Equal(t, ServiceAvailability{DNS: false, Orchestration: true}, avail)
	assert.True(t, avail.Any())
	assert.False(t, ServiceAvailability{}.Any())
	require.Len(t, m.CallsTo("Probe"), 2)
}
