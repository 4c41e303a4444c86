package main

import (
	"encoding/json"
	"fmt"
	"io"
	"os"
	"strings"

	"github.com/spf13/cobra"

	"github.com/neteng-tools/popctl/pkg/cli"
	"github.com/neteng-tools/popctl/pkg/netbox"
)

func newReportCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "report",
		Short: "Read-only NetBox reports",
		Long: `Read-only NetBox reports.

Examples:
  bbctl report prefixes
  bbctl report interfaces sub-mad01-data01`,
	}
	cmd.AddCommand(newReportPrefixesCmd(), newReportInterfacesCmd())
	return cmd
}

func newReportPrefixesCmd() *cobra.Command {
	var role string
	cmd := &cobra.Command{
		Use:   "prefixes",
		Short: "List advertisement prefixes without exactly one address",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx := cmd.Context()
			nb, err := newNetBox(ctx)
			if err != nil {
				return err
			}
			findings, err := nb.AuditPrefixes(ctx, role)
			if err != nil {
				return err
			}
			if jsonOutput {
				enc := json.NewEncoder(os.Stdout)
				enc.SetIndent("", "  ")
				return enc.Encode(findings)
			}
			writePrefixFindings(os.Stdout, findings)
			return nil
		},
	}
	cmd.Flags().StringVar(&role, "role", netbox.RoleAdvertisementRange, "prefix role to audit")
	addOutputFlags(cmd)
	return cmd
}

func writePrefixFindings(w io.Writer, findings []netbox.PrefixFinding) {
	if len(findings) == 0 {
		fmt.Fprintln(w, green("Every prefix has exactly one address."))
		return
	}
	for _, f := range findings {
		site := ""
		if f.Prefix.Site != nil {
			site = " " + f.Prefix.Site.Name
		}
		if f.Empty() {
			fmt.Fprintf(w, "%s%s has no addresses\n", red(f.Prefix.Prefix), site)
			continue
		}
		fmt.Fprintf(w, "%s%s has %d addresses:\n", yellow(f.Prefix.Prefix), site, len(f.Addresses))
		for _, ip := range f.Addresses {
			if ip.AssignedObject == nil {
				fmt.Fprintf(w, "  %s\n", ip.Address)
				continue
			}
			fmt.Fprintf(w, "  %s %s %s\n", ip.Address, ip.AssignedObject.Name, ip.AssignedObject.Device.Name)
		}
	}
}

func newReportInterfacesCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "interfaces <server>",
		Short: "Show a server's interfaces, circuits and addresses",
		Long: `Show each interface of a server as NetBox has it: the connected
circuit's type, LACP requirement, status, provider, CID and description, and
the interface addresses coloured by tag.`,
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx := cmd.Context()
			nb, err := newNetBox(ctx)
			if err != nil {
				return err
			}
			dev, reports, err := nb.ServerInterfaces(ctx, strings.ToLower(args[0]))
			if err != nil {
				return err
			}
			if jsonOutput {
				enc := json.NewEncoder(os.Stdout)
				enc.SetIndent("", "  ")
				return enc.Encode(reports)
			}
			model := ""
			if dev.DeviceType != nil {
				model = " (" + dev.DeviceType.Model + ")"
			}
			fmt.Printf("%s%s\n\n", bold(dev.Name), model)
			writeInterfaceReports(os.Stdout, reports)
			return nil
		},
	}
	addOutputFlags(cmd)
	return cmd
}

func writeInterfaceReports(w io.Writer, reports []netbox.InterfaceReport) {
	t := cli.NewTable("NAME", "TYPE", "LACP", "STATUS", "PROVIDER", "CID", "DESCRIPTION", "ADDRESSES").WithWriter(w)
	for _, r := range reports {
		var ctype, lacp, status, provider, cid, desc string
		if c := r.Circuit; c != nil {
			ctype, status, provider, cid, desc = c.Type.Slug, c.Status.Value, c.Provider.Name, c.CID, c.Description
			if c.LACPRequired() {
				lacp = "yes"
			}
		}
		addrs := make([]string, len(r.Addresses))
		for i, ip := range r.Addresses {
			addrs[i] = addressLabel(ip)
		}
		t.Row(r.Interface.Name, ctype, lacp, status, provider, cid, desc, strings.Join(addrs, " "))
	}
	t.Flush()
	fmt.Fprintf(w, "\naddresses: %s %s %s %s\n",
		green("anycast-ip"), yellow("site-local-ip"), bold("circuit-interface-ip"), red("no tag"))
}

// addressLabel colours an address by its first tag.
func addressLabel(ip netbox.IPAddress) string {
	if len(ip.Tags) == 0 {
		return red(ip.Address)
	}
	switch ip.Tags[0].Slug {
	case "anycast-ip":
		return green(ip.Address)
	case "site-local-ip", "interface-local-ip":
		return yellow(ip.Address)
	case "circuit-interface-ip":
		return bold(ip.Address)
	case "oob-ip":
		return cli.Dim(ip.Address)
	}
	return ip.Address
}
