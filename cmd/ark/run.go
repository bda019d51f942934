package main

import (
	"github.com/spf13/cobra"
	"github.com/spf13/viper"

	"github.com/merchantmoh-debug/ArkLang/ark"
	"github.com/merchantmoh-debug/ArkLang/interop"
	"github.com/merchantmoh-debug/ArkLang/runtime"
	"github.com/merchantmoh-debug/ArkLang/vm"
)

var runFuelFlag uint64
var runExecFlag bool
var runJSONFlag bool

var runCmd = newRunCmd()

func newRunCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "run <file>",
		Short: "Type check and execute a program",
		Long: `Run loads a program, enforces the linear discipline, compiles it
to bytecode and executes it on the fuel-metered virtual machine.
Loaded WASM modules are available through the wasm_* intrinsics.`,
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			prog, err := ark.LoadFile(args[0])
			if err != nil {
				return err
			}

			ctx := cmd.Context()
			engine, err := interop.NewEngine(ctx)
			if err != nil {
				return err
			}
			defer engine.Close(ctx)
			registry := interop.NewRegistry(engine)
			defer registry.Close(ctx)

			opts := []vm.Option{
				vm.WithStdout(cmd.OutOrStdout()),
				vm.WithWasm(registry.Bridge()),
			}
			if viper.GetBool(execConfigKey) {
				opts = append(opts, vm.WithExec())
			}

			result, err := ark.Run(ctx, prog, viper.GetUint64(fuelConfigKey), opts...)
			if err != nil {
				return err
			}
			if runJSONFlag {
				data, err := runtime.ToJSON(result)
				if err != nil {
					return err
				}
				cmd.Println(string(data))
				return nil
			}
			if result.Kind() != runtime.KindUnit {
				cmd.Println(result.String())
			}
			return nil
		},
	}

	cmd.Flags().Uint64Var(&runFuelFlag, fuelFlagName, defaultFuel, "instruction budget for execution")
	bindFlagToConfig(cmd.Flags().Lookup(fuelFlagName), fuelConfigKey)
	cmd.Flags().BoolVar(&runExecFlag, execFlagName, false, "allow the exec intrinsic to reach the host shell")
	bindFlagToConfig(cmd.Flags().Lookup(execFlagName), execConfigKey)
	cmd.Flags().BoolVar(&runJSONFlag, "json", false, "print the result as JSON")

	return cmd
}

func init() {
	rootCmd.AddCommand(runCmd)
}
