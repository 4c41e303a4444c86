package main

import (
	"encoding/json"
	"errors"
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/neteng-tools/popctl/pkg/billboard"
	"github.com/neteng-tools/popctl/pkg/cli"
	"github.com/neteng-tools/popctl/pkg/peers"
	"github.com/neteng-tools/popctl/pkg/util"
)

func newPeerCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "peer",
		Short: "Show, drain and undrain billboard peers",
		Long: `Show billboard peers of a server, or drain and undrain the peers whose
circuits are on selected interfaces.

Examples:
  bbctl peer show sub-mxp01-data01
  bbctl peer undrain sub-mxp01-data01 -i mcx1p1 -p
  bbctl peer drain sub-mxp01-data01 -e mcx1p1,mcx1p2 -p -m -x`,
	}
	cmd.AddCommand(
		newPeerShowCmd(),
		newPeerDrainCmd(billboard.ActionDrain),
		newPeerDrainCmd(billboard.ActionUndrain),
	)
	return cmd
}

func newPeerShowCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "show <server>",
		Short: "Show billboard peers",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx := cmd.Context()
			runner, err := newRunner(ctx)
			if err != nil {
				return err
			}
			list, err := runner.GetPeers(ctx, args[0])
			if errors.Is(err, billboard.ErrNoOutput) {
				list, err = []billboard.PeerRecord{}, nil
			}
			if err != nil {
				return err
			}

			if jsonOutput {
				return json.NewEncoder(os.Stdout).Encode(list)
			}
			if len(list) == 0 {
				fmt.Println("No peers found")
				return nil
			}
			t := cli.NewTable("NAME", "AS", "IP", "TYPE", "STATE", "MAX PREFIX", "FILTER")
			for _, p := range list {
				t.Row(p.Name, p.ASN, p.IP, p.Type, pathState(p.State), p.MaxPrefix, p.FilterRegex)
			}
			t.Flush()
			return nil
		},
	}
	addOutputFlags(cmd)
	return cmd
}

func newPeerDrainCmd(action billboard.Action) *cobra.Command {
	var (
		include  string
		exclude  string
		typeList string
		prod     bool
		monitor  bool
	)
	cmd := &cobra.Command{
		Use:   string(action) + " <server>",
		Short: fmt.Sprintf("%s billboard peers on selected interfaces", titleCase(string(action))),
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx := cmd.Context()
			server := args[0]
			sel := peers.Selection{
				Include: util.SplitCommaSeparated(include),
				Exclude: util.SplitCommaSeparated(exclude),
			}
			if err := sel.Validate(); err != nil {
				return err
			}
			types, err := pathTypes(typeList, prod, monitor)
			if err != nil {
				return err
			}

			runner, err := newRunner(ctx)
			if err != nil {
				return err
			}
			nb, err := newNetBox(ctx)
			if err != nil {
				return err
			}
			planner := &peers.Planner{Billboard: runner, NetBox: nb}
			cmds, err := planner.Plan(ctx, server, sel, action, types)
			if err != nil {
				return err
			}
			return applyCommands(ctx, os.Stdout, runner, cmds, executeMode)
		},
	}
	cmd.Flags().StringVarP(&include, "include", "i", "", "only peers on these interfaces, comma separated")
	cmd.Flags().StringVarP(&exclude, "exclude", "e", "", "peers on all interfaces except these, comma separated")
	cmd.Flags().StringVarP(&typeList, "type", "t", "", "path types, comma separated")
	cmd.Flags().BoolVarP(&prod, "prod", "p", false, "include prod_global")
	cmd.Flags().BoolVarP(&monitor, "monitor", "m", false, "include monitor")
	cmd.MarkFlagsMutuallyExclusive("include", "exclude")
	addWriteFlags(cmd)
	return cmd
}
