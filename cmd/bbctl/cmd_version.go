package main

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/neteng-tools/popctl/pkg/version"
)

func newVersionCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "version",
		Short: "Print version information",
		Run: func(cmd *cobra.Command, args []string) {
			fmt.Println(version.Banner("bbctl"))
		},
	}
}
