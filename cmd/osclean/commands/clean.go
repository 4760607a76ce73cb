package commands

import (
	"github.com/spf13/cobra"

	"github.com/imamik/osclean/cmd/osclean/handlers"
	"github.com/imamik/osclean/internal/config"
	"github.com/imamik/osclean/internal/filter"
)

// Clean returns the clean command.
func Clean() *cobra.Command {
	var opts config.Options

	cmd := &cobra.Command{
		Use:   "clean",
		Short: "Delete OpenStack resources matching a filter or listed in a file",
		Long: `Clean finds OpenStack resources whose name or description matches a
regular expression, shows them, and deletes them in dependency order:

  1. Heat stacks and DNS zones (when those services exist)
  2. Instances (with their floating IPs), flavors, keypairs and images
  3. Volumes and volume snapshots
  4. Load balancers (cascade)
  5. Floating IPs, ports, routers, networks and security groups

With --file, the resources are read from a "type|name|id" list instead of
being discovered, and no confirmation is asked. --export saves the selected
resources in the same format for a later --file run. Lists may live on
local disk or at s3://bucket/key.

Examples:
  osclean clean --cloud mycloud --dryrun
  osclean clean -r openrc.sh --filter '^ci-[0-9]+-' --yes
  osclean clean -c mycloud -f leftovers.txt

WARNING: deletion is irreversible. Run with --dryrun first.`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			return handlers.Clean(cmd.Context(), opts)
		},
	}

	f := cmd.Flags()
	f.StringVarP(&opts.RCFile, "rc", "r", "", "OpenStack openrc file to load credentials from")
	f.StringVarP(&opts.Cloud, "cloud", "c", "", "Cloud name from clouds.yaml")
	f.StringVarP(&opts.File, "file", "f", "", "Resource list (type|name|id per line) to delete instead of discovering")
	f.BoolVarP(&opts.DryRun, "dryrun", "d", false, "Show what would be deleted without deleting anything")
	f.StringVar(&opts.Filter, "filter", "", "Regular expression matched against names and descriptions (default \""+filter.DefaultPattern+"\")")
	f.BoolVarP(&opts.Yes, "yes", "y", false, "Delete without asking for confirmation")
	f.StringVar(&opts.ConfigFile, "config", "", "YAML file with filter, sweep, verify and timeout settings")
	f.BoolVar(&opts.NoSweep, "no-sweep", false, "Do not sweep live floating IPs and ports beyond the selected inventory")
	f.BoolVar(&opts.NoVerify, "no-verify", false, "Do not poll to confirm asynchronous deletions")
	f.StringVar(&opts.Export, "export", "", "Save the selected resources to a list file or s3:// location")
	f.StringVar(&opts.MetricsFile, "metrics-file", "", "Write Prometheus metrics for the run to this file")
	f.StringVar(&opts.Pushgateway, "pushgateway", "", "Push Prometheus metrics for the run to this pushgateway URL")
	f.BoolVarP(&opts.Verbose, "verbose", "v", false, "Enable detailed logging")

	cmd.MarkFlagsMutuallyExclusive("rc", "cloud")

	return cmd
}
