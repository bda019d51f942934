package main

import (
	"os"

	"github.com/spf13/cobra"
	"github.com/spf13/viper"

	"github.com/merchantmoh-debug/ArkLang/ark"
)

var witPackageFlag string
var witOutputFlag string

var witCmd = newWitCmd()

func newWitCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "wit <file>",
		Short: "Emit the WIT interface of a program's exports",
		Long: `Wit renders the Component Model interface a compiled module
exposes: one record per struct declaration and one function per
exported function, using the same export policy as the WASM backend.`,
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			prog, err := ark.LoadFile(args[0])
			if err != nil {
				return err
			}
			text, err := ark.GenerateWIT(prog, viper.GetString(packageConfigKey))
			if err != nil {
				return err
			}
			if witOutputFlag == "" {
				cmd.Print(text)
				return nil
			}
			if err := os.WriteFile(witOutputFlag, []byte(text), 0o644); err != nil {
				return err
			}
			cmd.Printf("wrote %s\n", witOutputFlag)
			return nil
		},
	}

	cmd.Flags().StringVarP(&witPackageFlag, packageFlagName, "p", defaultWitPackage, "WIT package name")
	bindFlagToConfig(cmd.Flags().Lookup(packageFlagName), packageConfigKey)
	cmd.Flags().StringVarP(&witOutputFlag, outputFlagName, "o", "", "output path (defaults to stdout)")

	return cmd
}

func init() {
	rootCmd.AddCommand(witCmd)
}
