package main

import (
	"github.com/spf13/cobra"

	"github.com/merchantmoh-debug/ArkLang/ark"
)

var checkCmd = newCheckCmd()

func newCheckCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "check <file>",
		Short: "Type check a program without running it",
		Long: `Check enforces the linear discipline: every linear value must be
consumed exactly once. Violations are reported with source positions.`,
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			prog, err := ark.LoadFile(args[0])
			if err != nil {
				return err
			}
			if err := ark.Check(prog); err != nil {
				return err
			}
			cmd.Printf("%s: ok (hash %s)\n", args[0], prog.Hash)
			return nil
		},
	}
}

func init() {
	rootCmd.AddCommand(checkCmd)
}
