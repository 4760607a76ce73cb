// Package openstack is the boundary between the cleanup engine and an
// OpenStack cloud.
//
// The engine only sees the [Client] interface: list, get and delete by
// [resource.Kind], plus the handful of relationship lookups that teardown
// ordering needs (server floating addresses, ports by device or network,
// router gateway and interfaces, load balancer provisioning state) and
// service probes for optional services.
//
// Every error crossing the boundary is either an [*APIError] carrying the
// HTTP status code, or wraps [ErrEndpointDiscovery] when the service catalog
// has no endpoint for the requested service. Callers classify with
// [IsNotFound], [IsConflict] and [IsUnauthorized] instead of inspecting
// messages.
//
// [RealClient] implements the interface with gophercloud and authenticates
// from clouds.yaml, an openrc-populated environment, or plain OS_* variables.
// [MockClient] is a function-field mock for tests.
package openstack
