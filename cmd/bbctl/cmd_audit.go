package main

import (
	"encoding/json"
	"fmt"
	"os"
	"time"

	"github.com/spf13/cobra"

	"github.com/neteng-tools/popctl/pkg/audit"
	"github.com/neteng-tools/popctl/pkg/cli"
)

func newAuditCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "audit",
		Short: "View audit logs",
		Long: `View the log of executed billboard commands.

Every executed command is logged with:
  - Timestamp
  - User who ran it
  - Device affected
  - Operation performed
  - Success/failure status

Examples:
  bbctl audit list --device sub-mad01-data01
  bbctl audit list --last 24h
  bbctl audit list --user alice --failures`,
	}
	cmd.AddCommand(newAuditListCmd())
	return cmd
}

func newAuditListCmd() *cobra.Command {
	var (
		filter audit.Filter
		last   string
	)
	cmd := &cobra.Command{
		Use:   "list",
		Short: "List audit events",
		RunE: func(cmd *cobra.Command, args []string) error {
			if last != "" {
				d, err := time.ParseDuration(last)
				if err != nil {
					return fmt.Errorf("invalid duration: %s", last)
				}
				filter.StartTime = time.Now().Add(-d)
			}

			logger, err := audit.NewFileLogger(userSettings.Audit.Path, audit.RotationConfig{})
			if err != nil {
				return err
			}
			defer logger.Close()

			events, err := logger.Query(filter)
			if err != nil {
				return fmt.Errorf("querying audit log: %w", err)
			}

			if jsonOutput {
				return json.NewEncoder(os.Stdout).Encode(events)
			}
			if len(events) == 0 {
				fmt.Println("No audit events found")
				return nil
			}

			t := cli.NewTable("TIMESTAMP", "USER", "DEVICE", "OPERATION", "STATUS", "COMMAND")
			for _, e := range events {
				status := green("ok")
				if !e.Success {
					status = red("failed")
				}
				if e.DryRun {
					status = yellow("preview")
				}
				t.Row(e.Timestamp.Format("2006-01-02 15:04:05"), e.User, e.Device, e.Operation, status, joinCommand(e.Command))
			}
			t.Flush()
			return nil
		},
	}
	cmd.Flags().StringVar(&filter.Device, "device", "", "filter by device")
	cmd.Flags().StringVar(&filter.User, "user", "", "filter by user")
	cmd.Flags().StringVar(&filter.Operation, "operation", "", "filter by operation, e.g. path.announce")
	cmd.Flags().StringVar(&last, "last", "", "events from the last duration (e.g. 24h)")
	cmd.Flags().IntVar(&filter.Limit, "limit", 100, "maximum events to show")
	cmd.Flags().BoolVar(&filter.FailureOnly, "failures", false, "only failed commands")
	addOutputFlags(cmd)
	return cmd
}
