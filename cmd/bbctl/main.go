// bbctl - billboard path and peer operations for POP servers
//
// bbctl plans billboard commands from billboard's own state and the NetBox
// address plan, prints them, and runs them against billboard with -x.
//
// Usage:
//
//	bbctl path announce <device> -t prod_global,monitor [-x]
//	bbctl path withdraw <device> -t all [-x]
//	bbctl path show <device> [--peer ip] [--type t] [--by-peer]
//	bbctl community add <server> <peer_ip> <c1,c2,...> [-x]
//	bbctl peer show <server>
//	bbctl peer drain <server> -i mcx1p1 -p -m [-x]
//	bbctl agent undrain <server> -t prod_global [-x]
//	bbctl policy sync <server> [--asn n] [-t types] [--undrained] [-x]
//	bbctl policy sync --region eu --asn n [-x]
//	bbctl report prefixes
//	bbctl report interfaces <server>
//
// Write commands preview by default; -x executes them.
package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"

	"github.com/neteng-tools/popctl/pkg/audit"
	"github.com/neteng-tools/popctl/pkg/cli"
	"github.com/neteng-tools/popctl/pkg/settings"
	"github.com/neteng-tools/popctl/pkg/util"
)

var (
	configPath  string
	envName     string
	verbose     bool
	logJSON     bool
	executeMode bool
	jsonOutput  bool

	userSettings *settings.Settings
	auditLogger  audit.Logger = audit.NopLogger{}
)

func main() {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()
	if err := rootCmd.ExecuteContext(ctx); err != nil {
		fmt.Fprintln(os.Stderr, red("Error:"), err)
		stop()
		os.Exit(1)
	}
}

var rootCmd = &cobra.Command{
	Use:               "bbctl",
	Short:             "Billboard path and peer operations",
	SilenceUsage:      true,
	SilenceErrors:     true,
	CompletionOptions: cobra.CompletionOptions{HiddenDefaultCmd: true},
	Long: `bbctl plans billboard announce, withdraw, community and drain commands
for a POP server from billboard and NetBox.

Write commands preview by default. Use -x to execute.

  bbctl path announce <device> -t prod_global [-x]`,
	PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
		util.SetVerbose(verbose)
		if logJSON {
			util.SetJSONFormat()
		}

		if configPath == "" {
			configPath = settings.DefaultSettingsPath()
		}
		var err error
		userSettings, err = settings.LoadFrom(configPath)
		if err != nil {
			return fmt.Errorf("loading settings: %w", err)
		}
		if envName != "" {
			if err := userSettings.Set("environment", envName); err != nil {
				return fmt.Errorf("--env: %w", err)
			}
		}

		if isMetaCommand(cmd) {
			return nil
		}
		if err := userSettings.Validate(); err != nil {
			return fmt.Errorf("settings %s: %w", configPath, err)
		}

		fl, err := audit.NewFileLogger(userSettings.Audit.Path, audit.RotationConfig{
			MaxSizeMB:  userSettings.Audit.MaxSizeMB,
			MaxBackups: userSettings.Audit.MaxBackups,
		})
		if err != nil {
			util.Warnf("Could not initialize audit logging: %v", err)
		} else {
			auditLogger = fl
		}
		return nil
	},
	PersistentPostRunE: func(cmd *cobra.Command, args []string) error {
		return auditLogger.Close()
	},
}

func init() {
	rootCmd.PersistentFlags().StringVar(&configPath, "config", "", "settings file (default ~/.popctl/config.yaml)")
	rootCmd.PersistentFlags().StringVar(&envName, "env", "", "billboard environment: prod, alpha or local")
	rootCmd.PersistentFlags().BoolVarP(&verbose, "verbose", "v", false, "verbose output")
	rootCmd.PersistentFlags().BoolVar(&logJSON, "log-json", false, "log in JSON")

	rootCmd.AddGroup(
		&cobra.Group{ID: "billboard", Title: "Billboard Operations:"},
		&cobra.Group{ID: "netbox", Title: "NetBox Reports:"},
		&cobra.Group{ID: "meta", Title: "Configuration & Meta:"},
	)
	for _, cmd := range []*cobra.Command{newPathCmd(), newCommunityCmd(), newPeerCmd(), newAgentCmd(), newPolicyCmd()} {
		cmd.GroupID = "billboard"
		rootCmd.AddCommand(cmd)
	}
	reportCmd := newReportCmd()
	reportCmd.GroupID = "netbox"
	rootCmd.AddCommand(reportCmd)
	for _, cmd := range []*cobra.Command{newSettingsCmd(), newAuditCmd(), newVersionCmd()} {
		cmd.GroupID = "meta"
		rootCmd.AddCommand(cmd)
	}
}

// isMetaCommand reports whether cmd runs without billboard or NetBox access.
func isMetaCommand(cmd *cobra.Command) bool {
	for c := cmd; c != nil; c = c.Parent() {
		switch c.Name() {
		case "help", "version", "settings", "audit":
			return true
		}
	}
	return false
}

// addWriteFlags registers -x/--execute.
func addWriteFlags(cmd *cobra.Command) {
	cmd.Flags().BoolVarP(&executeMode, "execute", "x", false, "execute commands (default is preview)")
}

// addOutputFlags registers --json.
func addOutputFlags(cmd *cobra.Command) {
	cmd.Flags().BoolVar(&jsonOutput, "json", false, "JSON output")
}

// Color helpers delegate to pkg/cli
func green(s string) string  { return cli.Green(s) }
func yellow(s string) string { return cli.Yellow(s) }
func red(s string) string    { return cli.Red(s) }
func bold(s string) string   { return cli.Bold(s) }
