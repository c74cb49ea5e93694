package main

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"
	"github.com/ternarybob/arbor"
	"github.com/ternarybob/shiftlog/internal/common"
)

// options are the command-line flags shared by every command
type options struct {
	configFiles []string // Later files override earlier ones
	port        int
	host        string
}

func main() {
	if err := newRootCmd().Execute(); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
}

// newRootCmd creates the top-level command. Running it without a subcommand starts the server.
func newRootCmd() *cobra.Command {
	opts := &options{}

	root := &cobra.Command{
		Use:           "shiftlog",
		Short:         "Volunteer time-tracking service",
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runServe(cmd, opts)
		},
	}

	root.PersistentFlags().StringArrayVarP(&opts.configFiles, "config", "c", nil, "Configuration file path (repeatable, later files override earlier ones)")
	root.PersistentFlags().IntVarP(&opts.port, "port", "p", 0, "Server port (overrides config)")
	root.PersistentFlags().StringVar(&opts.host, "host", "", "Server host (overrides config)")

	root.AddCommand(
		newServeCmd(opts),
		newVersionCmd(),
	)

	return root
}

// loadConfig resolves configuration: defaults -> files -> env -> flags
func loadConfig(opts *options) (*common.Config, error) {
	if len(opts.configFiles) == 0 {
		for _, candidate := range []string{"shiftlog.toml", "deployments/local/shiftlog.toml"} {
			if _, err := os.Stat(candidate); err == nil {
				opts.configFiles = append(opts.configFiles, candidate)
				break
			}
		}
	}

	config, err := common.LoadFromFiles(opts.configFiles...)
	if err != nil {
		return nil, err
	}

	common.ApplyFlagOverrides(config, opts.port, opts.host)
	return config, nil
}

// startupLogger is used before the configured logger exists
func startupLogger() arbor.ILogger {
	return common.GetLogger()
}
