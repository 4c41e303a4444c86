package main

import (
	"os"

	"github.com/spf13/cobra"

	"github.com/neteng-tools/popctl/pkg/billboard"
	"github.com/neteng-tools/popctl/pkg/paths"
	"github.com/neteng-tools/popctl/pkg/util"
)

func newCommunityCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "community",
		Short: "Manage BGP communities on billboard paths",
	}
	cmd.AddCommand(newCommunityAddCmd())
	return cmd
}

func newCommunityAddCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "add <server> <peer_ip> <communities>",
		Short: "Add communities to the prod_global and monitor paths of a peer",
		Long: `Add communities to every prod_global and monitor path between a server
and one billboard peer. Existing communities are kept.

Examples:
  bbctl community add sub-eze01-data01 185.70.203.32 0:100,0:200
  bbctl community add sub-eze01-data01 185.70.203.32 6762:1000 -x`,
		Args: cobra.ExactArgs(3),
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx := cmd.Context()
			server, peerIP := args[0], args[1]
			tokens := billboard.ParseCommunityList(args[2])
			if tokens.Len() == 0 {
				return util.NewValidationError("no communities given")
			}

			runner, err := newRunner(ctx)
			if err != nil {
				return err
			}
			planner := &paths.Planner{Billboard: runner}
			cmds, err := planner.AddCommunities(ctx, server, peerIP, tokens)
			if err != nil {
				return err
			}
			return applyCommands(ctx, os.Stdout, runner, cmds, executeMode)
		},
	}
	addWriteFlags(cmd)
	return cmd
}
