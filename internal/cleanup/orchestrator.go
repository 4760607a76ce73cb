package cleanup

import (
	"context"
	"time"

	"github.com/go-logr/logr"

	"github.com/imamik/osclean/internal/resource"
)

// Orchestrator runs the category cleaners in their fixed dependency order.
type Orchestrator struct {
	deps     *Deps
	cleaners []Cleaner
}

// NewOrchestrator builds the cleaners in order: advanced services, compute,
// storage, load balancers, network.
func NewOrchestrator(deps *Deps, services ServiceAvailability) *Orchestrator {
	return &Orchestrator{
		deps: deps,
		cleaners: []Cleaner{
			newAdvancedCleaner(deps, services),
			newComputeCleaner(deps),
			newStorageCleaner(deps),
			newLoadBalancerCleaner(deps),
			newNetworkCleaner(deps),
		},
	}
}

// Cleaners returns the cleaners in run order.
func (o *Orchestrator) Cleaners() []Cleaner {
	return o.cleaners
}

// Enumerate discovers every category and returns the combined inventory.
func (o *Orchestrator) Enumerate(ctx context.Context) resource.Inventory {
	log := logr.FromContextOrDiscard(ctx)
	if !o.deps.Discovery.Supplied() {
		log.Info("discovering resources", "filter", o.deps.Discovery.Matcher().String())
	}

	inv := resource.Inventory{}
	for _, c := range o.cleaners {
		inv.Merge(c.Enumerate(ctx))
	}
	return inv
}

// Run cleans every category in order. Failures stay with their resource;
// the summary is always returned.
func (o *Orchestrator) Run(ctx context.Context, dryRun bool) Summary {
	log := logr.FromContextOrDiscard(ctx).WithValues("dryRun", dryRun)
	runStart := time.Now()

	timings := make([]CategoryTiming, 0, len(o.cleaners))
	for _, c := range o.cleaners {
		clog := log.WithValues("category", c.Category().String())
		clog.Info("cleaning category")
		o.deps.Recorder.startCategory(c.Category())

		start := time.Now()
		c.Clean(logr.NewContext(ctx, clog), dryRun)
		elapsed := time.Since(start)

		clog.Info("category finished", "duration", elapsed.Round(time.Millisecond))
		timings = append(timings, CategoryTiming{Category: c.Category(), Duration: elapsed})
	}

	summary := o.deps.Recorder.Summarize(dryRun, timings)
	log.Info("run finished", "processed", summary.Processed, "problems", summary.Problems(),
		"duration", time.Since(runStart).Round(time.Millisecond))
	return summary
}
