package main

import (
	"fmt"

	"github.com/spf13/cobra"
)

// version はビルド時に -ldflags "-X main.version=..." で埋め込む。
var version = "dev"

func newVersionCommand() *cobra.Command {
	return &cobra.Command{
		Use:   "version",
		Short: "バージョンを表示する",
		Args:  cobra.NoArgs,
		Run: func(cmd *cobra.Command, _ []string) {
			fmt.Fprintln(cmd.OutOrStdout(), version)
		},
	}
}
