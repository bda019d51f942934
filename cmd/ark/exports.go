package main

import (
	"os"

	"github.com/spf13/cobra"

	"github.com/merchantmoh-debug/ArkLang/errors"
	"github.com/merchantmoh-debug/ArkLang/wasm"
)

var exportsCmd = newExportsCmd()

func newExportsCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "exports <module.wasm>",
		Short: "List the function exports of a WASM module",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			data, err := os.ReadFile(args[0])
			if err != nil {
				return errors.Load(args[0], err)
			}
			names, err := wasm.FunctionExports(data)
			if err != nil {
				return err
			}
			for _, name := range names {
				cmd.Println(name)
			}
			return nil
		},
	}
}

func init() {
	rootCmd.AddCommand(exportsCmd)
}
