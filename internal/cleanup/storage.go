package cleanup

import (
	"context"

	"github.com/imamik/osclean/internal/platform/openstack"
	"github.com/imamik/osclean/internal/resource"
)

// storageCleaner force-deletes volumes and then removes volume snapshots.
// It runs after compute so volumes are no longer attached.
type storageCleaner struct {
	base
}

func newStorageCleaner(deps *Deps) *storageCleaner {
	return &storageCleaner{base: base{
		deps:     deps,
		category: CategoryStorage,
		kinds:    []resource.Kind{resource.Volume, resource.VolumeSnapshot},
	}}
}

func (c *storageCleaner) Clean(ctx context.Context, dryRun bool) {
	for _, ref := range c.refs(ctx, resource.Volume) {
		c.remove(ctx, ref, dryRun, removal{
			opts:          openstack.DeleteOpts{Force: true},
			checkInDryRun: true,
		})
	}
	for _, ref := range c.refs(ctx, resource.VolumeSnapshot) {
		c.remove(ctx, ref, dryRun, removal{checkInDryRun: true})
	}
}
