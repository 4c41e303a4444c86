package main

import (
	"fmt"
	"io"
	"strconv"
	"strings"

	"github.com/neteng-tools/popctl/pkg/cli"
	"github.com/neteng-tools/popctl/pkg/health"
	"github.com/neteng-tools/popctl/pkg/ifcheck"
)

const progressWidth = 50

func printInventory(w io.Writer, server string, ifaces []*ifcheck.Interface) {
	fmt.Fprintf(w, "Checking %d interfaces on %s\n\n", len(ifaces), cli.Bold(server))
	t := cli.NewTable("INTERFACE", "CIRCUIT", "PROVIDER", "TYPE", "STATUS", "IP").WithWriter(w)
	for _, i := range ifaces {
		t.Row(i.Name, i.CircuitID, i.Provider, string(i.Type), i.Status, i.IP)
	}
	t.Flush()
	fmt.Fprintln(w)
}

// progressPrinter prints one line per finished stage.
func progressPrinter(w io.Writer) func(stage string, done bool) {
	return func(stage string, done bool) {
		if done {
			fmt.Fprintf(w, "%s [%s]\n", cli.DotPad(stage, progressWidth), cli.Green("Completed"))
		}
	}
}

func printResults(w io.Writer, ifaces []*ifcheck.Interface, reports map[string]*health.Report) {
	fmt.Fprintln(w)
	t := cli.NewTable("INTERFACE", "LINK", "SPEED", "LIGHT (dBm)", "LOSS", "RX", "TX", "CRC", "STATUS").WithWriter(w)
	for _, i := range ifaces {
		d := i.Delta()
		t.Row(
			i.Name,
			orDash(i.State),
			orDash(i.Speed),
			formatLight(i.Light),
			formatLoss(i),
			formatDelta(d.RX, d.RXTXValid),
			formatDelta(d.TX, d.RXTXValid),
			formatDelta(d.CRC, d.CRCValid),
			cli.Status(string(reports[i.Name].Overall)),
		)
	}
	t.Flush()

	for _, i := range ifaces {
		problems := reports[i.Name].Problems()
		if len(problems) == 0 && len(i.Errors) == 0 {
			continue
		}
		fmt.Fprintf(w, "\n%s\n", cli.Bold(i.Name))
		for _, p := range problems {
			fmt.Fprintf(w, "  %-8s %-12s %s\n", cli.Status(string(p.Status)), p.Check, p.Message)
		}
		for _, e := range i.Errors {
			fmt.Fprintf(w, "  %s\n", cli.Dim(e))
		}
	}
}

func orDash(s string) string {
	if s == "" {
		return "-"
	}
	return s
}

func formatLight(light []float64) string {
	if len(light) == 0 {
		return "-"
	}
	parts := make([]string, len(light))
	for i, l := range light {
		if l == ifcheck.NoLight {
			parts[i] = "none"
			continue
		}
		parts[i] = strconv.FormatFloat(l, 'f', 2, 64)
	}
	return strings.Join(parts, " ")
}

func formatLoss(i *ifcheck.Interface) string {
	if !i.LossMeasured {
		return "-"
	}
	return strconv.FormatFloat(i.PacketLoss, 'g', -1, 64) + "%"
}

func formatDelta(n int64, valid bool) string {
	if !valid {
		return "-"
	}
	return "+" + strconv.FormatInt(n, 10)
}

type interfaceResult struct {
	*ifcheck.Interface
	Report *health.Report `json:"report"`
}

type results struct {
	Server     string            `json:"server"`
	Overall    health.Status     `json:"overall"`
	Interfaces []interfaceResult `json:"interfaces"`
}

func newResults(server string, ifaces []*ifcheck.Interface, reports map[string]*health.Report) results {
	r := results{Server: server, Overall: worst(reports)}
	for _, i := range ifaces {
		r.Interfaces = append(r.Interfaces, interfaceResult{Interface: i, Report: reports[i.Name]})
	}
	return r
}

func worst(reports map[string]*health.Report) health.Status {
	s := health.StatusOK
	for _, r := range reports {
		s = health.Worse(s, r.Overall)
	}
	return s
}
