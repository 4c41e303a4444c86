package main

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/neteng-tools/popctl/pkg/cli"
	"github.com/neteng-tools/popctl/pkg/settings"
)

func newSettingsCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "settings",
		Short: "Manage persistent settings",
		Long: `Manage persistent settings stored in ~/.popctl/config.yaml (or --config).

Examples:
  bbctl settings show
  bbctl settings set environment alpha
  bbctl settings set billboard.secrets_file ~/secrets/billboard.enc.env
  bbctl settings get netbox.url
  bbctl settings clear`,
	}
	cmd.AddCommand(
		newSettingsShowCmd(),
		newSettingsGetCmd(),
		newSettingsSetCmd(),
		newSettingsPathCmd(),
		newSettingsClearCmd(),
	)
	return cmd
}

// loadFileSettings reads the settings file without command-line overrides.
func loadFileSettings() (*settings.Settings, error) {
	s, err := settings.LoadFrom(configPath)
	if err != nil {
		return nil, fmt.Errorf("loading settings: %w", err)
	}
	return s, nil
}

func newSettingsShowCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "show",
		Short: "Show current settings",
		RunE: func(cmd *cobra.Command, args []string) error {
			s, err := loadFileSettings()
			if err != nil {
				return err
			}
			fmt.Printf("Settings file: %s\n\n", configPath)

			t := cli.NewTable("SETTING", "VALUE")
			for _, key := range settings.Keys() {
				value, _ := s.Get(key)
				if value == "" {
					value = "(not set)"
				}
				t.Row(key, value)
			}
			t.Flush()
			return nil
		},
	}
}

func newSettingsGetCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "get <setting>",
		Short: "Get a setting value",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			s, err := loadFileSettings()
			if err != nil {
				return err
			}
			value, err := s.Get(args[0])
			if err != nil {
				return err
			}
			if value == "" {
				fmt.Println("(not set)")
			} else {
				fmt.Println(value)
			}
			return nil
		},
	}
}

func newSettingsSetCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "set <setting> <value>",
		Short: "Set a setting value",
		Args:  cobra.ExactArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			s, err := loadFileSettings()
			if err != nil {
				return err
			}
			if err := s.Set(args[0], args[1]); err != nil {
				return err
			}
			if err := s.SaveTo(configPath); err != nil {
				return fmt.Errorf("saving settings: %w", err)
			}
			fmt.Printf("%s set to: %s\n", args[0], args[1])
			return nil
		},
	}
}

func newSettingsPathCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "path",
		Short: "Print the settings file path",
		Run: func(cmd *cobra.Command, args []string) {
			fmt.Println(configPath)
		},
	}
}

func newSettingsClearCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "clear",
		Short: "Reset all settings to defaults",
		RunE: func(cmd *cobra.Command, args []string) error {
			s := settings.Default()
			if err := s.SaveTo(configPath); err != nil {
				return fmt.Errorf("saving settings: %w", err)
			}
			fmt.Println("Settings cleared.")
			return nil
		},
	}
}
