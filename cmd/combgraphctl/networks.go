package main

import (
	"encoding/json"
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"combgraph/internal/graph"
	"combgraph/internal/registry"
)

func networksCmd() *cobra.Command {
	cmd := &cobra.Command{Use: "networks", Short: "inspect and register namespaced networks"}
	cmd.AddCommand(networksListCmd())
	cmd.AddCommand(networksRegisterCmd())
	return cmd
}

// openRegistry loads the registry from disk using a dialer that never
// actually connects: combgraphctl reads and writes registry bookkeeping
// without needing a live graph store channel.
func openRegistry(cfg dataDirProvider) (*registry.Registry, error) {
	dialer := func(prefix string) (*graph.Client, error) {
		return nil, fmt.Errorf("combgraphctl does not dial the graph store")
	}
	reg := registry.New(cfg.dataDir(), "", dialer, nil)
	if err := reg.Load(); err != nil {
		return nil, err
	}
	return reg, nil
}

type dataDirProvider interface{ dataDir() string }

type cfgDataDir struct{ dir string }

func (c cfgDataDir) dataDir() string { return c.dir }

func networksListCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "list",
		Short: "list every registered network",
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := loadConfig()
			if err != nil {
				return err
			}
			reg, err := openRegistry(cfgDataDir{cfg.Registry.DataDir})
			if err != nil {
				return err
			}
			defer reg.Close()

			enc := json.NewEncoder(os.Stdout)
			enc.SetIndent("", "  ")
			return enc.Encode(reg.All())
		},
	}
}

func networksRegisterCmd() *cobra.Command {
	var name, description string
	var tokenSymbol, tokenName string

	c := &cobra.Command{
		Use:   "register [prefix]",
		Short: "register a new namespaced network",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := loadConfig()
			if err != nil {
				return err
			}
			reg, err := openRegistry(cfgDataDir{cfg.Registry.DataDir})
			if err != nil {
				return err
			}
			defer reg.Close()

			netCfg := registry.Config{Name: name, Description: description}
			if tokenSymbol != "" {
				netCfg.Tokens = []registry.TokenDescriptor{{Symbol: tokenSymbol, Name: tokenName}}
			}
			net, err := reg.Register(args[0], netCfg)
			if err != nil {
				return err
			}
			fmt.Printf("registered %s (%s)\n", net.Prefix, net.Name)
			return nil
		},
	}
	c.Flags().StringVar(&name, "name", "", "human-readable network name")
	c.Flags().StringVar(&description, "description", "", "network description")
	c.Flags().StringVar(&tokenSymbol, "token-symbol", "", "initial token symbol")
	c.Flags().StringVar(&tokenName, "token-name", "", "initial token name")
	return c
}
