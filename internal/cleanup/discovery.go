package cleanup

import (
	"context"
	"sync"

	"github.com/go-logr/logr"

	"github.com/imamik/osclean/internal/filter"
	"github.com/imamik/osclean/internal/platform/openstack"
	"github.com/imamik/osclean/internal/resource"
)

// FetchFunc lists every resource of one kind.
type FetchFunc func(ctx context.Context) ([]resource.Resource, error)

// Discovery reduces live listings to the filtered {id: display name} sets
// that drive a run, or hands out a supplied inventory unchanged.
type Discovery struct {
	matcher  *filter.Matcher
	supplied resource.Inventory

	forbiddenOnce sync.Once
}

// NewDiscovery returns a Discovery. supplied may be nil.
func NewDiscovery(matcher *filter.Matcher, supplied resource.Inventory) *Discovery {
	return &Discovery{matcher: matcher, supplied: supplied}
}

// Matcher returns the filter used for live discovery and sweeps.
func (d *Discovery) Matcher() *filter.Matcher {
	return d.matcher
}

// Supplied reports whether the run was given a pre-supplied inventory.
func (d *Discovery) Supplied() bool {
	return d.supplied != nil
}

// Discover returns the selected resources of kind. Supplied entries are
// trusted as-is. A failed listing is logged and yields an empty set.
func (d *Discovery) Discover(ctx context.Context, kind resource.Kind, fetch FetchFunc) map[string]string {
	if d.supplied.Has(kind) {
		out := make(map[string]string, len(d.supplied[kind]))
		for id, name := range d.supplied[kind] {
			out[id] = name
		}
		return out
	}

	log := logr.FromContextOrDiscard(ctx).WithValues("kind", kind.String())
	items, err := fetch(ctx)
	if err != nil {
		d.reportFetchError(log, err)
		return map[string]string{}
	}

	selected := make(map[string]string)
	for _, r := range items {
		if d.matcher.Matches(matchName(r), r.Description) {
			selected[r.ID] = r.DisplayName()
		}
	}
	log.V(1).Info("discovered resources", "listed", len(items), "selected", len(selected))
	return selected
}

// matchName is the first filter candidate. Floating IPs have no name and
// match on their address. The id is never matched.
func matchName(r resource.Resource) string {
	if r.Kind == resource.FloatingIP {
		return r.Address
	}
	return r.Name
}

func (d *Discovery) reportFetchError(log logr.Logger, err error) {
	switch {
	case openstack.IsForbidden(err):
		d.forbiddenOnce.Do(func() {
			log.Info("insufficient permissions to list some resources")
		})
	case openstack.IsUnauthorized(err), openstack.IsEndpointDiscovery(err):
		log.Error(err, "authentication or endpoint discovery failed, skipping kind")
	default:
		if Classify(err) == ClassUnauthorized {
			d.forbiddenOnce.Do(func() {
				log.Info("insufficient permissions to list some resources")
			})
			return
		}
		warn(log, "failed to list resources", "error", reason(err))
	}
}

// warn logs msg at info level with a warning marker.
func warn(log logr.Logger, msg string, keysAndValues ...any) {
	log.Info(msg, append([]any{"warning", true}, keysAndValues...)...)
}
