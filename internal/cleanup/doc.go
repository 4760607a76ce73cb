// Package cleanup implements the deletion orchestration engine.
//
// An Orchestrator runs five category cleaners in a fixed order that encodes
// the control plane's dependencies:
//
//  1. advanced services (Heat stacks, then DNS zones)
//  2. compute (instances with their floating IPs, flavors, keypairs, images)
//  3. storage (volumes, then snapshots)
//  4. load balancers (cascade delete)
//  5. network (floating IPs, sweeps, routers, networks, security groups)
//
// Each resource is claimed in a run-wide Ledger before its first delete and
// ends with exactly one Outcome in the Recorder. Errors are classified per
// resource: NotFound is AlreadyGone, conflicts are retried under a fixed
// Policy backoff, and everything else fails that resource only.
//
// Logging uses the logr.Logger carried by the context.
package cleanup
