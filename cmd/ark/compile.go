package main

import (
	"fmt"
	"os"
	"strings"

	"github.com/spf13/cobra"

	"github.com/merchantmoh-debug/ArkLang/ark"
	"github.com/merchantmoh-debug/ArkLang/interop"
)

var compileTargetFlag string
var compileOutputFlag string

var compileCmd = newCompileCmd()

func newCompileCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "compile <file>",
		Short: "Compile a program to a WASM module or MAST envelope",
		Long: `Compile lowers a checked program for the chosen target:

  wasm    a WASM module linked against the ark_host imports
  mast    the hashed JSON envelope of the syntax tree`,
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			prog, err := ark.LoadFile(args[0])
			if err != nil {
				return err
			}

			var out []byte
			switch strings.ToLower(compileTargetFlag) {
			case "wasm":
				out, err = ark.CompileWASM(prog)
				if err != nil {
					return err
				}
				ctx := cmd.Context()
				engine, err := interop.NewEngine(ctx)
				if err != nil {
					return err
				}
				defer engine.Close(ctx)
				if err := engine.Validate(ctx, out); err != nil {
					return err
				}
			case "mast":
				if err := ark.Check(prog); err != nil {
					return err
				}
				out, err = prog.Encode()
				if err != nil {
					return err
				}
			default:
				return fmt.Errorf("unknown target %q (want wasm or mast)", compileTargetFlag)
			}

			dest := compileOutputFlag
			if dest == "" {
				dest = outputName(args[0], compileTargetFlag)
			}
			if err := os.WriteFile(dest, out, 0o644); err != nil {
				return err
			}
			cmd.Printf("wrote %s (%d bytes)\n", dest, len(out))
			return nil
		},
	}

	cmd.Flags().StringVarP(&compileTargetFlag, "target", "t", "wasm", "compilation target (wasm or mast)")
	cmd.Flags().StringVarP(&compileOutputFlag, outputFlagName, "o", "", "output path (defaults next to the input)")

	return cmd
}

func outputName(input, target string) string {
	base := strings.TrimSuffix(input, ".ark")
	if target == "mast" {
		return base + ".json"
	}
	return base + ".wasm"
}

func init() {
	rootCmd.AddCommand(compileCmd)
}
