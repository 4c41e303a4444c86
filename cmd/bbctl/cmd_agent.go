package main

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/neteng-tools/popctl/pkg/billboard"
	"github.com/neteng-tools/popctl/pkg/peers"
)

func newAgentCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "agent",
		Short: "Drain and undrain a whole billboard agent",
		Long: `Drain or undrain every peer of a server at once.

Examples:
  bbctl agent drain sub-mad01-data01 -t prod_global,monitor
  bbctl agent undrain sub-mad01-data01 -p -x`,
	}
	cmd.AddCommand(newAgentActionCmd(billboard.ActionDrain), newAgentActionCmd(billboard.ActionUndrain))
	return cmd
}

func newAgentActionCmd(action billboard.Action) *cobra.Command {
	var (
		typeList string
		prod     bool
		monitor  bool
	)
	cmd := &cobra.Command{
		Use:   string(action) + " <server>",
		Short: fmt.Sprintf("%s the billboard agent of a server", titleCase(string(action))),
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx := cmd.Context()
			types, err := pathTypes(typeList, prod, monitor)
			if err != nil {
				return err
			}
			runner, err := newRunner(ctx)
			if err != nil {
				return err
			}
			cmds := []billboard.Command{peers.Agent(args[0], action, types)}
			return applyCommands(ctx, os.Stdout, runner, cmds, executeMode)
		},
	}
	cmd.Flags().StringVarP(&typeList, "type", "t", "", "path types, comma separated")
	cmd.Flags().BoolVarP(&prod, "prod", "p", false, "include prod_global")
	cmd.Flags().BoolVarP(&monitor, "monitor", "m", false, "include monitor")
	addWriteFlags(cmd)
	return cmd
}
