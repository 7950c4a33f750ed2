// Command combgraphctl is the maintenance CLI for a combgraph deployment:
// registering networks, listing registry state, taking and rolling back
// snapshots, and printing the effective configuration, one file per
// subcommand group.
package main

import (
	"fmt"
	"os"

	"github.com/joho/godotenv"
	"github.com/spf13/cobra"

	"combgraph/pkg/config"
	"combgraph/pkg/utils"
)

func main() {
	_ = godotenv.Load(utils.EnvOrDefault("COMBGRAPHCTL_ENV_FILE", ".env"))

	root := &cobra.Command{
		Use:   "combgraphctl",
		Short: "maintenance CLI for a combgraph deployment",
	}
	root.AddCommand(networksCmd())
	root.AddCommand(snapshotCmd())
	root.AddCommand(configCmd())

	if err := root.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

func loadConfig() (*config.Config, error) {
	return config.LoadFromEnv()
}
