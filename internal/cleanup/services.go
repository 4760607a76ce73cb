package cleanup

import (
	"context"

	"github.com/go-logr/logr"

	"github.com/imamik/osclean/internal/platform/openstack"
	"github.com/imamik/osclean/internal/util/async"
)

// ServiceAvailability records which optional services the cloud offers.
// It is computed once per run and handed to the advanced services cleaner.
type ServiceAvailability struct {
	DNS           bool
	Orchestration bool
}

// Any reports whether at least one optional service is available.
func (s ServiceAvailability) Any() bool {
	return s.DNS || s.Orchestration
}

// DetectServices probes the optional services in parallel. A failed probe
// marks the service unavailable; it is never an error.
func DetectServices(ctx context.Context, prober openstack.ServiceProber) ServiceAvailability {
	log := logr.FromContextOrDiscard(ctx)

	var dnsErr, heatErr error
	tasks := []async.Task{
		{Name: string(openstack.ServiceDNS), Func: func(ctx context.Context) error {
			dnsErr = prober.Probe(ctx, openstack.ServiceDNS)
			return dnsErr
		}},
		{Name: string(openstack.ServiceOrchestration), Func: func(ctx context.Context) error {
			heatErr = prober.Probe(ctx, openstack.ServiceOrchestration)
			return heatErr
		}},
	}
	if err := async.RunParallel(ctx, tasks); err != nil {
		log.V(1).Info("some optional services are unavailable", "error", err.Error())
	}

	avail := ServiceAvailability{DNS: dnsErr == nil, Orchestration: heatErr == nil}
	log.V(1).Info("optional services detected", "dns", avail.DNS, "orchestration", avail.Orchestration)
	return avail
}
