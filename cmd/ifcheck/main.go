// ifcheck - interface health checker for POP servers
//
// ifcheck reads a server's circuit interfaces from NetBox, then over SSH
// checks link state, optical light levels, packet loss to the far end and
// incrementing CRC/RX/TX error counters.
//
// Usage:
//
//	ifcheck <server>                       Check every circuit interface
//	ifcheck <server> -i mcx1p1,mcx1p2      Check selected interfaces
//	ifcheck <server> --diagnostic          Light levels of interfaces without a circuit
//	ifcheck <server> --textfile out.prom   Also write node_exporter metrics
package main

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/spf13/cobra"

	"github.com/neteng-tools/popctl/pkg/billboard"
	"github.com/neteng-tools/popctl/pkg/cli"
	"github.com/neteng-tools/popctl/pkg/credentials"
	"github.com/neteng-tools/popctl/pkg/health"
	"github.com/neteng-tools/popctl/pkg/ifcheck"
	"github.com/neteng-tools/popctl/pkg/netbox"
	"github.com/neteng-tools/popctl/pkg/settings"
	"github.com/neteng-tools/popctl/pkg/util"
	"github.com/neteng-tools/popctl/pkg/version"
)

var (
	configPath  string
	verbose     bool
	logJSON     bool
	showVersion bool

	interfaceList string
	diagnostic    bool
	interval      time.Duration
	pingCount     int
	jsonOutput    bool
	textfile      string
)

// errUnhealthy makes the exit status non-zero when an interface is critical.
var errUnhealthy = errors.New("unhealthy interfaces found")

func main() {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()
	if err := rootCmd.ExecuteContext(ctx); err != nil {
		fmt.Fprintln(os.Stderr, cli.Red("Error:"), err)
		stop()
		os.Exit(1)
	}
}

var rootCmd = &cobra.Command{
	Use:               "ifcheck <server>",
	Short:             "Check the circuit interfaces of a POP server",
	SilenceUsage:      true,
	SilenceErrors:     true,
	CompletionOptions: cobra.CompletionOptions{HiddenDefaultCmd: true},
	Args: func(cmd *cobra.Command, args []string) error {
		if showVersion {
			return nil
		}
		return cobra.ExactArgs(1)(cmd, args)
	},
	RunE: func(cmd *cobra.Command, args []string) error {
		if showVersion {
			fmt.Println(version.Banner("ifcheck"))
			return nil
		}
		util.SetVerbose(verbose)
		if logJSON {
			util.SetJSONFormat()
		}
		if configPath == "" {
			configPath = settings.DefaultSettingsPath()
		}
		s, err := settings.LoadFrom(configPath)
		if err != nil {
			return fmt.Errorf("loading settings: %w", err)
		}
		if err := s.Validate(); err != nil {
			return fmt.Errorf("settings %s: %w", configPath, err)
		}
		return run(cmd.Context(), s, args[0])
	},
}

func init() {
	flags := rootCmd.Flags()
	flags.StringVar(&configPath, "config", "", "settings file (default ~/.popctl/config.yaml)")
	flags.BoolVarP(&verbose, "verbose", "v", false, "verbose output")
	flags.BoolVar(&logJSON, "log-json", false, "log in JSON")
	flags.BoolVar(&showVersion, "version", false, "print version information")

	flags.StringVarP(&interfaceList, "interface", "i", "", "interfaces to check, comma separated (default all)")
	flags.BoolVar(&diagnostic, "diagnostic", false, "light levels only, for interfaces without a circuit")
	flags.DurationVar(&interval, "interval", ifcheck.DefaultInterval, "time between the two counter samples")
	flags.IntVar(&pingCount, "ping-count", ifcheck.DefaultPingCount, "packets per flood ping")
	flags.BoolVar(&jsonOutput, "json", false, "JSON output")
	flags.StringVar(&textfile, "textfile", "", "also write Prometheus metrics to this file")
}

func run(ctx context.Context, s *settings.Settings, server string) error {
	nbToken, err := credentials.Source{EnvVar: s.NetBox.TokenEnv}.Resolve(ctx)
	if err != nil {
		return fmt.Errorf("netbox token: %w", err)
	}
	nb := netbox.NewClient(netbox.Config{URL: s.NetBox.URL, Token: nbToken, Timeout: s.NetBox.Timeout})

	all, err := ifcheck.Collect(ctx, nb, server, diagnostic)
	if err != nil {
		return err
	}
	ifaces, err := ifcheck.Select(all, util.SplitCommaSeparated(interfaceList))
	if err != nil {
		return err
	}
	if len(ifaces) == 0 {
		fmt.Println("No interfaces to check")
		return nil
	}
	if !jsonOutput {
		printInventory(os.Stdout, server, ifaces)
	}

	host, err := dial(s, server)
	if err != nil {
		return err
	}
	defer host.Close()

	checker := &ifcheck.Checker{
		Server:     server,
		Host:       host,
		Peers:      peerSource(ctx, s),
		Interval:   interval,
		PingCount:  pingCount,
		Diagnostic: diagnostic,
	}
	if !jsonOutput {
		checker.Progress = progressPrinter(os.Stdout)
	}
	if err := checker.Run(ctx, ifaces); err != nil {
		return err
	}

	reports := make(map[string]*health.Report, len(ifaces))
	for _, iface := range ifaces {
		reports[iface.Name] = ifcheck.Evaluate(iface, diagnostic)
	}

	if textfile != "" {
		if err := ifcheck.WriteTextfile(textfile, ifcheck.NewCollector(server, ifaces, reports)); err != nil {
			return fmt.Errorf("writing %s: %w", textfile, err)
		}
	}

	if jsonOutput {
		enc := json.NewEncoder(os.Stdout)
		enc.SetIndent("", "  ")
		if err := enc.Encode(newResults(server, ifaces, reports)); err != nil {
			return err
		}
	} else {
		printResults(os.Stdout, ifaces, reports)
	}

	if worst(reports) == health.StatusCritical {
		return errUnhealthy
	}
	return nil
}

func dial(s *settings.Settings, server string) (*ifcheck.SSHHost, error) {
	cfg := ifcheck.SSHConfig{User: s.SSH.User, KeyFile: s.SSH.KeyFile, Timeout: s.SSH.Timeout}
	addr := s.SSHAddress(server)
	if cfg.KeyFile == "" {
		pw, err := cli.ReadPassword(fmt.Sprintf("SSH password for %s@%s: ", cfg.User, addr))
		if err != nil {
			return nil, fmt.Errorf("no ssh.key_file configured and cannot prompt for a password: %w", err)
		}
		cfg.Password = pw
	}
	return ifcheck.DialSSH(addr, cfg)
}

// peerSource returns a billboard runner for far-end lookups, or nil when no
// billboard token is available.
func peerSource(ctx context.Context, s *settings.Settings) ifcheck.PeerSource {
	token, err := credentials.Source{
		EnvVar:      s.Billboard.TokenEnv,
		SecretsFile: s.Billboard.SecretsFile,
		SecretKey:   s.SecretKey(),
	}.Resolve(ctx)
	if err != nil {
		util.Warnf("billboard peers unavailable, IXP far ends will not be pinged: %v", err)
		return nil
	}
	host, port := s.BillboardHost()
	return billboard.NewRunner(billboard.Config{
		Binary:   s.Billboard.Binary,
		Host:     host,
		Port:     port,
		TokenEnv: s.Billboard.TokenEnv,
		Token:    token,
	})
}
