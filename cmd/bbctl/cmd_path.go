package main

import (
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"strings"

	"github.com/spf13/cobra"

	"github.com/neteng-tools/popctl/pkg/billboard"
	"github.com/neteng-tools/popctl/pkg/cli"
	"github.com/neteng-tools/popctl/pkg/paths"
)

func newPathCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "path",
		Short: "Announce, withdraw and show billboard paths",
		Long: `Announce, withdraw and show billboard paths of a POP device.

Path types: prod_global, monitor, site_local, int_local, or all.

Examples:
  bbctl path announce sub-mad01-data01 -t prod_global,monitor
  bbctl path withdraw sub-mad01-data01 -t all -x
  bbctl path show sub-mad01-data01 --peer 185.70.203.32`,
	}
	cmd.AddCommand(newPathAnnounceCmd(), newPathWithdrawCmd(), newPathShowCmd())
	return cmd
}

func newPathAnnounceCmd() *cobra.Command {
	var typeList string
	cmd := &cobra.Command{
		Use:   "announce <device>",
		Short: "Announce the paths NetBox assigns to each billboard peer",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx := cmd.Context()
			device := args[0]
			types, err := billboard.ParsePathTypes(typeList)
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
			planner := &paths.Planner{Billboard: runner, NetBox: nb}

			site, err := planner.ResolveSite(ctx, device)
			if err != nil {
				return err
			}
			cmds, err := planner.Announce(ctx, device, site, types)
			if err != nil {
				return err
			}
			return applyCommands(ctx, os.Stdout, runner, cmds, executeMode)
		},
	}
	cmd.Flags().StringVarP(&typeList, "type", "t", "", "path types, comma separated (required)")
	cmd.MarkFlagRequired("type")
	addWriteFlags(cmd)
	return cmd
}

func newPathWithdrawCmd() *cobra.Command {
	var typeList string
	cmd := &cobra.Command{
		Use:   "withdraw <device>",
		Short: "Withdraw the device's billboard paths of the given types",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx := cmd.Context()
			types, err := billboard.ParsePathTypes(typeList)
			if err != nil {
				return err
			}
			runner, err := newRunner(ctx)
			if err != nil {
				return err
			}
			planner := &paths.Planner{Billboard: runner}
			cmds, err := planner.Withdraw(ctx, args[0], types)
			if err != nil {
				return err
			}
			return applyCommands(ctx, os.Stdout, runner, cmds, executeMode)
		},
	}
	cmd.Flags().StringVarP(&typeList, "type", "t", "", "path types, comma separated (required)")
	cmd.MarkFlagRequired("type")
	addWriteFlags(cmd)
	return cmd
}

func newPathShowCmd() *cobra.Command {
	var (
		peerIP   string
		typeName string
		byPeer   bool
	)
	cmd := &cobra.Command{
		Use:   "show <device>",
		Short: "Show the device's billboard paths",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx := cmd.Context()
			q := billboard.PathQuery{Hostname: args[0], PeerIP: peerIP}
			if typeName != "" {
				t, err := billboard.ParsePathType(typeName)
				if err != nil {
					return err
				}
				q.Type = t
			}

			runner, err := newRunner(ctx)
			if err != nil {
				return err
			}
			records, err := runner.GetPaths(ctx, q)
			if errors.Is(err, billboard.ErrNoOutput) {
				records, err = []billboard.PathRecord{}, nil
			}
			if err != nil {
				return err
			}

			if jsonOutput {
				enc := json.NewEncoder(os.Stdout)
				enc.SetIndent("", "  ")
				if byPeer {
					return enc.Encode(billboard.SortPaths(records))
				}
				return enc.Encode(records)
			}
			if len(records) == 0 {
				fmt.Println("No paths found")
				return nil
			}
			if byPeer {
				printPathIndex(billboard.SortPaths(records))
				return nil
			}

			t := cli.NewTable("PEER", "NAME", "AS", "PREFIX", "TYPE", "STATE", "PREPEND", "COMMUNITIES")
			for _, r := range records {
				t.Row(r.PeerIP, r.PeerName, r.ASN, r.CIDR(), r.PathType, pathState(r.PathState), r.PrependAS, r.Communities.String())
			}
			t.Flush()
			return nil
		},
	}
	cmd.Flags().StringVar(&peerIP, "peer", "", "only paths to this peer IP")
	cmd.Flags().StringVar(&typeName, "type", "", "only paths of this type")
	cmd.Flags().BoolVar(&byPeer, "by-peer", false, "group prefixes by peer, type and state")
	addOutputFlags(cmd)
	return cmd
}

func printPathIndex(idx billboard.PathIndex) {
	for _, peer := range idx.Peers() {
		fmt.Println(bold(peer))
		byKey := idx[peer]
		for _, key := range sortedKeys(byKey) {
			fmt.Printf("  %-12s %s\n", key, strings.Join(byKey[key], " "))
		}
	}
}

func pathState(s string) string {
	switch s {
	case "ENABLED":
		return green(s)
	case "DISABLED", "DRAINED":
		return yellow(s)
	}
	return s
}
