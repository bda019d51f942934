package main

import (
	"runtime"

	"github.com/spf13/cobra"

	"github.com/merchantmoh-debug/ArkLang/ark"
)

var versionCmd = newVersionCmd()

func newVersionCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "version",
		Short: "Show version information",
		Run: func(cmd *cobra.Command, _ []string) {
			cmd.Println("ark version\t", ark.Version)
			cmd.Println("go version\t", runtime.Version())
		},
	}
}

func init() {
	rootCmd.AddCommand(versionCmd)
}
