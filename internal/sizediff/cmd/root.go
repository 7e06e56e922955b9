package cmd

import (
	"context"
	"fmt"
	"os"
	"os/signal"

	"github.com/charmbracelet/fang"
	"github.com/charmbracelet/x/term"
	"github.com/spf13/cobra"

	"sizediff/internal/sizediff/log"
)

func init() {
	rootCmd.PersistentFlags().StringP("cwd", "c", "", "Current working directory")
	rootCmd.PersistentFlags().BoolP("debug", "d", false, "Debug")
	rootCmd.PersistentFlags().String("config", "", "Path to a YAML config file")

	rootCmd.AddCommand(disasmCmd)
}

var rootCmd = &cobra.Command{
	Use:   "sizediff",
	Short: "Disassembly diffs for the native symbols whose size changed the most",
	Long: `Sizediff post-processes a binary size-delta report. It finds the before and
after binaries on disk, runs objdump over the symbols whose code size changed
the most, and attaches a unified diff of the two listings to each of them.`,
	Example: `
# Annotate a report and print the diffs
sizediff disasm report.json --before-dir out/before --after-dir out/after

# Write the annotated report to a file
sizediff disasm report.json -b out/before -a out/after -o annotated.json
  `,
	SilenceUsage: true,
	PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
		debug, _ := cmd.Flags().GetBool("debug")
		log.Setup(debug)
		return nil
	},
}

func Execute() {
	// Bypass fang's markdown rendering when output is being piped
	if !term.IsTerminal(os.Stdout.Fd()) {
		ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt)
		err := rootCmd.ExecuteContext(ctx)
		stop()
		if err != nil {
			os.Exit(1)
		}
		return
	}

	if err := fang.Execute(
		context.Background(),
		rootCmd,
		fang.WithNotifySignal(os.Interrupt),
	); err != nil {
		os.Exit(1)
	}
}

func ResolveCwd(cmd *cobra.Command) (string, error) {
	cwd, _ := cmd.Flags().GetString("cwd")
	if cwd != "" {
		err := os.Chdir(cwd)
		if err != nil {
			return "", fmt.Errorf("failed to change directory: %v", err)
		}
		return cwd, nil
	}
	cwd, err := os.Getwd()
	if err != nil {
		return "", fmt.Errorf("failed to get current working directory: %v", err)
	}
	return cwd, nil
}
