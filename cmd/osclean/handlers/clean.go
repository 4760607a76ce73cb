// Package handlers implements the business logic behind the CLI commands.
package handlers

import (
	"context"
	"fmt"
	"io"
	"os"
	"time"

	"github.com/go-logr/logr"
	"github.com/go-logr/logr/funcr"
	utilerrors "k8s.io/apimachinery/pkg/util/errors"

	"github.com/imamik/osclean/internal/cleanup"
	"github.com/imamik/osclean/internal/config"
	"github.com/imamik/osclean/internal/filter"
	"github.com/imamik/osclean/internal/inventory"
	"github.com/imamik/osclean/internal/metrics"
	"github.com/imamik/osclean/internal/platform/openstack"
	"github.com/imamik/osclean/internal/resource"
	"github.com/imamik/osclean/internal/ui"
)

// listStore loads and saves resource lists.
type listStore interface {
	Load(ctx context.Context, src string) (resource.Inventory, error)
	Save(ctx context.Context, dst string, inv resource.Inventory) error
}

// Factory function variables for clean - can be replaced in tests.
var (
	// connectClient authenticates against the selected cloud.
	connectClient = func(ctx context.Context, auth config.Auth) (openstack.Client, error) {
		return openstack.Connect(ctx, auth.Cloud)
	}

	// newListStore returns the store used for --file and --export.
	newListStore = func() listStore {
		return inventory.NewLoader()
	}

	// confirmDeletion asks before a live run.
	confirmDeletion = ui.Confirm

	// isInteractive reports whether a prompt can be shown.
	isInteractive = func() bool {
		return ui.IsInteractive(os.Stdin) && ui.IsInteractive(os.Stdout)
	}

	// now is the clock used for metrics timestamps.
	now = time.Now

	stdout io.Writer = os.Stdout
	stderr io.Writer = os.Stderr
)

var version = "dev"

// SetVersion sets the version shown in the run banner.
func SetVersion(v string) {
	version = v
}

// Clean handles the clean command.
//
// It resolves the configuration, discovers or loads the resources to delete,
// asks for confirmation when needed and runs the five cleanup categories in
// order. Per-resource failures never fail the command; configuration and
// connection problems do.
func Clean(ctx context.Context, opts config.Options) error {
	settings, err := config.Resolve(opts)
	if err != nil {
		return err
	}
	matcher, err := filter.New(settings.Filter)
	if err != nil {
		return config.Wrap(err, "invalid filter")
	}

	log := newLogger(opts.Verbose)
	ctx = logr.NewContext(ctx, log)

	auth, err := config.ResolveAuth(opts)
	if err != nil {
		return err
	}

	store := newListStore()
	var supplied resource.Inventory
	if opts.File != "" {
		supplied, err = store.Load(ctx, opts.File)
		if supplied == nil {
			return &config.Error{Field: "file", Msg: "failed to load resource list", Err: err}
		}
		if err != nil {
			log.Info("ignoring invalid lines in resource list", "warning", true, "file", opts.File, "error", err.Error())
		}
	}

	fmt.Fprint(stdout, ui.RenderBanner(ui.Banner{
		Version:  version,
		DryRun:   opts.DryRun,
		Filter:   settings.Filter,
		ListFile: opts.File,
		Auth:     auth.String(),
	}))

	client, err := connectClient(ctx, auth)
	if err != nil {
		return fmt.Errorf("failed to connect to OpenStack: %w", err)
	}

	services := cleanup.DetectServices(ctx, client)
	log.V(1).Info("service availability", "dns", services.DNS, "orchestration", services.Orchestration)

	reporters := []cleanup.Reporter{ui.NewPrinter(stdout)}
	var collector *metrics.Collector
	if opts.MetricsFile != "" || opts.Pushgateway != "" {
		collector = metrics.NewCollector()
		reporters = append(reporters, collector)
	}

	deps := cleanup.NewDeps(client, cleanup.NewDiscovery(matcher, supplied), settings.Timeouts, reporters...)
	deps.Sweep = settings.Sweep
	deps.Verifier.Enabled = settings.Verify
	orch := cleanup.NewOrchestrator(deps, services)

	inv := orch.Enumerate(ctx)

	var sideErrs []error
	if opts.Export != "" {
		if err := store.Save(ctx, opts.Export, inv); err != nil {
			sideErrs = append(sideErrs, fmt.Errorf("failed to export resource list: %w", err))
		} else {
			log.Info("exported resource list", "destination", opts.Export, "count", inv.Count())
		}
	}

	if inv.Count() == 0 {
		shown := settings.Filter
		if opts.File != "" {
			shown = ""
		}
		fmt.Fprint(stdout, ui.RenderNoMatches(shown))
		reportSideErrors(log, sideErrs)
		return nil
	}

	fmt.Fprint(stdout, ui.RenderInventory(inv))

	if !opts.DryRun && opts.File == "" && !opts.Yes {
		if !isInteractive() {
			return &config.Error{Field: "yes", Msg: "refusing to delete without confirmation on a non-interactive terminal; pass --yes"}
		}
		approved, err := confirmDeletion(ctx, inv.Count())
		if err != nil {
			return err
		}
		if !approved {
			fmt.Fprintln(stdout, "Aborted. Nothing was deleted.")
			return nil
		}
	}

	summary := orch.Run(ctx, opts.DryRun)

	fmt.Fprint(stdout, ui.RenderSummary(summary))
	fmt.Fprint(stdout, ui.RenderClosing(summary, inv.Count()))

	if collector != nil {
		sideErrs = append(sideErrs, exportMetrics(ctx, collector, summary, opts)...)
	}
	reportSideErrors(log, sideErrs)

	if err := ctx.Err(); err != nil {
		return fmt.Errorf("run interrupted: %w", err)
	}
	return nil
}

func exportMetrics(ctx context.Context, c *metrics.Collector, summary cleanup.Summary, opts config.Options) []error {
	c.ObserveSummary(summary, now())

	var errs []error
	if opts.MetricsFile != "" {
		if err := c.WriteTextfile(opts.MetricsFile); err != nil {
			errs = append(errs, err)
		}
	}
	if opts.Pushgateway != "" {
		instance, _ := os.Hostname()
		if err := c.Push(ctx, opts.Pushgateway, instance); err != nil {
			errs = append(errs, err)
		}
	}
	return errs
}

// reportSideErrors logs export failures. They never change the exit code
// because the cleanup itself already happened.
func reportSideErrors(log logr.Logger, errs []error) {
	if agg := utilerrors.NewAggregate(errs); agg != nil {
		log.Error(agg, "failed to export run results")
	}
}

func newLogger(verbose bool) logr.Logger {
	verbosity := 0
	if verbose {
		verbosity = 1
	}
	return funcr.New(func(prefix, args string) {
		if prefix != "" {
			fmt.Fprintf(stderr, "%s: %s\n", prefix, args)
			return
		}
		fmt.Fprintln(stderr, args)
	}, funcr.Options{Verbosity: verbosity})
}
