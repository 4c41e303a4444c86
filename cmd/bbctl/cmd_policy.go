package main

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"os"
	"strconv"
	"strings"

	"github.com/spf13/cobra"

	"github.com/neteng-tools/popctl/pkg/billboard"
	"github.com/neteng-tools/popctl/pkg/cli"
	"github.com/neteng-tools/popctl/pkg/policy"
	"github.com/neteng-tools/popctl/pkg/util"
)

var policyDir string

func newPolicyCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "policy",
		Short: "Sync billboard paths with the BGP community policy",
		Long: `Show and apply the BGP community policy in global.yml, regional.yml and
pops.yml. The files are read from --policy-dir, the policy.dir setting, or
neteng/policy in the current git checkout.

Examples:
  bbctl policy show sub-mad01-data01
  bbctl policy sync sub-mad01-data01 -t prod_global,monitor
  bbctl policy sync sub-mad01-data01 --asn 174 --undrained -x
  bbctl policy sync --region eu --asn 6762 -x`,
	}
	cmd.PersistentFlags().StringVar(&policyDir, "policy-dir", "", "policy directory")
	cmd.AddCommand(newPolicyShowCmd(), newPolicySyncCmd())
	return cmd
}

func loadPolicy(ctx context.Context) (*policy.Policy, error) {
	dir := policyDir
	if dir == "" {
		dir = userSettings.Policy.Dir
	}
	if dir == "" {
		var err error
		if dir, err = policy.FindDir(ctx); err != nil {
			return nil, err
		}
	}
	util.WithField("dir", dir).Debugf("loading community policy")
	return policy.Load(dir)
}

func newPolicySyncer(ctx context.Context) (*policy.Syncer, *billboard.Runner, error) {
	pol, err := loadPolicy(ctx)
	if err != nil {
		return nil, nil, err
	}
	runner, err := newRunner(ctx)
	if err != nil {
		return nil, nil, err
	}
	nb, err := newNetBox(ctx)
	if err != nil {
		return nil, nil, err
	}
	return &policy.Syncer{Policy: pol, Billboard: runner, NetBox: nb}, runner, nil
}

func newPolicyShowCmd() *cobra.Command {
	var region string
	cmd := &cobra.Command{
		Use:   "show <server>",
		Short: "Show the effective community policy of a server",
		Long: `Show, per peer ASN, the communities and AS prepend the policy layers
resolve to on a server. Without --region the region is looked up in NetBox.`,
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx := cmd.Context()
			server := args[0]
			pol, err := loadPolicy(ctx)
			if err != nil {
				return err
			}
			if region == "" {
				nb, err := newNetBox(ctx)
				if err != nil {
					return err
				}
				s := &policy.Syncer{Policy: pol, NetBox: nb}
				if _, region, err = s.ServerRegion(ctx, server); err != nil {
					return err
				}
			}

			var resolved []policy.Resolved
			for _, asn := range pol.ASNs(server, region) {
				resolved = append(resolved, pol.Resolve(server, region, asn))
			}
			if jsonOutput {
				enc := json.NewEncoder(os.Stdout)
				enc.SetIndent("", "  ")
				return enc.Encode(resolved)
			}
			fmt.Printf("%s (region %s)\n\n", bold(server), regionLabel(region))
			writeResolved(os.Stdout, resolved)
			return nil
		},
	}
	cmd.Flags().StringVar(&region, "region", "", "region code: "+strings.Join(policy.RegionCodes(), ", "))
	addOutputFlags(cmd)
	return cmd
}

func regionLabel(region string) string {
	if region == "" {
		return "none"
	}
	return region
}

func writeResolved(w io.Writer, resolved []policy.Resolved) {
	if len(resolved) == 0 {
		fmt.Fprintln(w, "No policy applies")
		return
	}
	t := cli.NewTable("ASN", "NAME", "PREPEND", "RS", "COMMUNITIES").WithWriter(w)
	for _, r := range resolved {
		rs := ""
		if r.RSPolicy {
			rs = "yes"
		}
		t.Row(strconv.Itoa(r.ASN), r.Name, strconv.Itoa(r.Prepend), rs, r.Communities.String())
	}
	t.Flush()
}

func newPolicySyncCmd() *cobra.Command {
	var (
		asn       int
		region    string
		typeList  string
		undrained bool
	)
	cmd := &cobra.Command{
		Use:   "sync [<server>]",
		Short: "Update, announce and withdraw paths to match the policy",
		Long: `Compare a server's billboard paths with the paths NetBox assigns and the
communities the policy gives each peer ASN, and plan:

  update    communities or AS prepend differ from policy
            (site_local and int_local paths are cleared of communities)
  withdraw  NetBox no longer assigns the path, or the peer is midgress-only
  announce  NetBox assigns a path billboard does not have

New prod_global paths are announced disabled unless --undrained is given and
the server is not drained.

With --region and --asn, every POP server of the region peering with that
ASN is synced.`,
		Args: cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx := cmd.Context()
			var server string
			if len(args) == 1 {
				server = args[0]
			}
			if err := validateSyncTarget(server, region, asn); err != nil {
				return err
			}
			types, err := billboard.ParsePathTypes(typeList)
			if err != nil {
				return err
			}

			s, runner, err := newPolicySyncer(ctx)
			if err != nil {
				return err
			}
			opts := policy.Options{Types: types, ASN: asn, Region: region, Undrained: undrained}
			var plan policy.Plan
			if server != "" {
				plan, err = s.SyncServer(ctx, server, opts)
			} else {
				plan, err = s.SyncRegion(ctx, region, opts)
			}
			if err != nil {
				return err
			}

			if jsonOutput {
				enc := json.NewEncoder(os.Stdout)
				enc.SetIndent("", "  ")
				return enc.Encode(plan.Changes)
			}
			writePlan(os.Stdout, plan)
			return applyCommands(ctx, os.Stdout, runner, plan.Commands(), executeMode)
		},
	}
	cmd.Flags().IntVar(&asn, "asn", 0, "only peers of this ASN")
	cmd.Flags().StringVar(&region, "region", "", "region code; without a server, sync the whole region")
	cmd.Flags().StringVarP(&typeList, "type", "t", "all", "path types, comma separated")
	cmd.Flags().BoolVar(&undrained, "undrained", false, "announce new prod_global paths enabled")
	addWriteFlags(cmd)
	addOutputFlags(cmd)
	return cmd
}

func validateSyncTarget(server, region string, asn int) error {
	v := &util.ValidationBuilder{}
	if server == "" {
		v.Add(region != "", "a server, or --region with --asn, is required")
		v.Add(region == "" || asn != 0, "--region without a server needs --asn")
	}
	v.Add(asn >= 0, "--asn must not be negative")
	return v.Build()
}

// writePlan prints the planned changes and a summary line.
func writePlan(w io.Writer, plan policy.Plan) {
	if len(plan.Changes) == 0 {
		return
	}
	t := cli.NewTable("ACTION", "SERVER", "PEER", "AS", "PREFIX", "TYPE", "COMMUNITIES").WithWriter(w)
	for _, c := range plan.Changes {
		t.Row(actionLabel(c.Action), c.Path.Hostname, c.Peer.IP, c.Peer.ASN, c.Path.CIDR(), c.Path.PathType, communityDelta(c))
	}
	t.Flush()
	fmt.Fprintf(w, "\n%d update, %d announce, %d withdraw\n\n",
		plan.Count(policy.ActionUpdate), plan.Count(policy.ActionAnnounce), plan.Count(policy.ActionWithdraw))
}

func actionLabel(a policy.Action) string {
	switch a {
	case policy.ActionAnnounce:
		return green(string(a))
	case policy.ActionWithdraw:
		return red(string(a))
	}
	return yellow(string(a))
}

// communityDelta renders added tokens as +tok and removed ones as -tok.
func communityDelta(c policy.Change) string {
	var parts []string
	for _, tok := range c.Added.Sorted() {
		parts = append(parts, "+"+tok)
	}
	if c.Action != policy.ActionWithdraw {
		for _, tok := range c.Removed.Sorted() {
			parts = append(parts, "-"+tok)
		}
	}
	return strings.Join(parts, " ")
}
