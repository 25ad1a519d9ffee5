package main

import (
	"fmt"

	"github.com/spf13/cobra"
	"golang.org/x/sync/errgroup"
	ctrl "sigs.k8s.io/controller-runtime"

	"github.com/yuriy-kovalchuk/yk-bind-ddns/internal/config"
	"github.com/yuriy-kovalchuk/yk-bind-ddns/internal/controller"
	"github.com/yuriy-kovalchuk/yk-bind-ddns/internal/dns"
	"github.com/yuriy-kovalchuk/yk-bind-ddns/internal/metrics"
	"github.com/yuriy-kovalchuk/yk-bind-ddns/internal/source"
	_ "github.com/yuriy-kovalchuk/yk-bind-ddns/internal/source/providers"
)

func runCommand() *cobra.Command {
	return &cobra.Command{
		Use:   "run",
		Short: "Bootstrap if needed, apply static records and poll containers",
		Args:  cobra.NoArgs,
		RunE:  runDriver,
	}
}

func bootstrapCommand() *cobra.Command {
	return &cobra.Command{
		Use:   "bootstrap",
		Short: "Provision the nameserver configuration and TSIG key, then exit",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			log := ctrl.Log.WithName("setup")
			cfg, err := config.Load()
			if err != nil {
				return fmt.Errorf("unable to load config: %w", err)
			}
			if _, err := controller.Setup(log, cfg); err != nil {
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "bootstrapped %s in %s\n", cfg.Zone, cfg.BindHome)
			return nil
		},
	}
}

func listCommand() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "list",
		Short: "Print the records managed by this client",
		Long: `List transfers the zone and prints every name that carries this
client's ownership tag, together with its A, CNAME and PTR records.

Without --zone both the primary zone and, when configured, the reverse
zone are listed.`,
		Args: cobra.NoArgs,
		RunE: runList,
	}
	cmd.Flags().String("zone", "", "Zone to list (defaults to ZONE and REVERSE_ZONE)")
	return cmd
}

func deleteCommand() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "delete <name>",
		Short: "Remove every record at a name",
		Long: `Delete removes all record sets at <name>, ownership tag included.
<name> is relative to the zone unless it ends with a dot.

Examples:
  yk-bind-ddns delete app
  yk-bind-ddns delete 10 --zone 1.168.192.in-addr.arpa`,
		Args: cobra.ExactArgs(1),
		RunE: runDelete,
	}
	cmd.Flags().String("zone", "", "Zone holding the name (defaults to ZONE)")
	return cmd
}

func runDriver(*cobra.Command, []string) error {
	log := ctrl.Log.WithName("setup")
	log.Info("starting yk-bind-ddns", "version", Version)

	cfg, err := config.Load()
	if err != nil {
		return fmt.Errorf("unable to load config: %w", err)
	}
	log.Info("loaded config", "zone", cfg.Zone, "reverseZone", cfg.ReverseZone, "source", cfg.Source,
		"staticRecords", len(cfg.StaticRecords), "pollInterval", cfg.PollInterval)

	provider, err := controller.Setup(log, cfg)
	if err != nil {
		return err
	}

	lister, err := source.New(cfg.Source, ctrl.Log.WithName("source-"+cfg.Source), cfg.SourceSettings)
	if err != nil {
		return fmt.Errorf("unable to create source: %w", err)
	}

	reconciler := &controller.Reconciler{
		Log:      ctrl.Log.WithName("reconciler"),
		DNS:      provider,
		Lister:   provider,
		Source:   lister,
		Zone:     cfg.Zone,
		Static:   cfg.StaticRecords,
		Interval: cfg.PollInterval,
	}

	g, ctx := errgroup.WithContext(ctrl.SetupSignalHandler())
	if cfg.MetricsAddress != "" {
		log.Info("serving metrics", "address", cfg.MetricsAddress)
		g.Go(func() error {
			return metrics.Serve(ctx, cfg.MetricsAddress)
		})
	}
	g.Go(func() error {
		return reconciler.Run(ctx)
	})
	return g.Wait()
}

func runList(cmd *cobra.Command, _ []string) error {
	cfg, provider, err := client()
	if err != nil {
		return err
	}
	ctx := ctrl.SetupSignalHandler()

	zones := []string{cfg.Zone}
	if cfg.ReverseZone != "" {
		zones = append(zones, cfg.ReverseZone)
	}
	if zone, _ := cmd.Flags().GetString("zone"); zone != "" {
		zones = []string{zone}
	}

	for _, zone := range zones {
		managed, err := provider.ListManaged(ctx, zone)
		if err != nil {
			return err
		}
		fmt.Fprint(cmd.OutOrStdout(), controller.FormatManaged(zone, managed))
	}
	return nil
}

func runDelete(cmd *cobra.Command, args []string) error {
	cfg, provider, err := client()
	if err != nil {
		return err
	}
	ctx := ctrl.SetupSignalHandler()

	zone := cfg.Zone
	if z, _ := cmd.Flags().GetString("zone"); z != "" {
		zone = z
	}
	record := dns.Record{Zone: zone, Name: args[0]}
	if err := dns.Apply(ctx, provider, record, dns.ModeDelete).Err(); err != nil {
		return err
	}
	fmt.Fprintf(cmd.OutOrStdout(), "deleted %s\n", record.Fqdn())
	return nil
}

// client loads the config and connects with the persisted TSIG key. It
// never bootstraps: list and delete leave the bind home untouched.
func client() (*config.Config, dns.Provider, error) {
	cfg, err := config.Load()
	if err != nil {
		return nil, nil, fmt.Errorf("unable to load config: %w", err)
	}
	provider, err := controller.Connect(ctrl.Log.WithName("setup"), cfg)
	if err != nil {
		return nil, nil, err
	}
	return cfg, provider, nil
}
