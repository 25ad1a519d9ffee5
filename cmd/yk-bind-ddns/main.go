package main

import (
	"flag"
	"fmt"
	"os"

	"github.com/spf13/cobra"
	ctrl "sigs.k8s.io/controller-runtime"
	"sigs.k8s.io/controller-runtime/pkg/log/zap"
)

var Version = "dev"

func main() {
	opts := zap.Options{
		Development: true,
	}
	goflags := flag.NewFlagSet("zap", flag.ExitOnError)
	opts.BindFlags(goflags)

	root := rootCmd()
	root.PersistentFlags().AddGoFlagSet(goflags)
	root.PersistentPreRun = func(*cobra.Command, []string) {
		ctrl.SetLogger(zap.New(zap.UseFlagOptions(&opts)))
	}

	if err := root.Execute(); err != nil {
		fmt.Fprintf(os.Stderr, "error: %v\n", err)
		os.Exit(1)
	}
}

func rootCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "yk-bind-ddns",
		Short: "Keep a BIND zone in sync with the containers running on this host",
		Long: `yk-bind-ddns bootstraps a BIND nameserver for a zone and keeps it updated
with records for static entries and running docker containers, using
TSIG-signed RFC 2136 dynamic updates.

Configuration is read from the environment and from the file named by
ENV_FILE (default .env).

Examples:
  yk-bind-ddns                     # bootstrap if needed, then poll forever
  yk-bind-ddns bootstrap           # provision the nameserver only
  yk-bind-ddns list                # show the records managed by this client
  yk-bind-ddns delete app          # remove every record at app.<zone>`,
		Version:       Version,
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE:          runDriver,
	}

	cmd.AddCommand(runCommand())
	cmd.AddCommand(bootstrapCommand())
	cmd.AddCommand(listCommand())
	cmd.AddCommand(deleteCommand())
	return cmd
}
