package cmd

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"os"
	"path/filepath"

	"github.com/charmbracelet/x/term"
	"github.com/spf13/afero"
	"github.com/spf13/cobra"

	"sizediff/internal/config"
	"sizediff/internal/disassembly"
	"sizediff/internal/elfx"
	"sizediff/internal/models"
	"sizediff/internal/objdump"
	"sizediff/internal/pathres"
	"sizediff/internal/ui/colorize"
)

type outputFormat string

const (
	formatText     outputFormat = "text"
	formatJSON     outputFormat = "json"
	formatMarkdown outputFormat = "markdown"
)

type disasmOptions struct {
	report     string
	configPath string
	beforeDir  string
	afterDir   string
	output     string
	format     outputFormat
	color      bool
	// overrides are applied on top of the loaded config when set.
	overrides func(*config.Config)
}

var disasmCmd = &cobra.Command{
	Use:   "disasm <report.json>",
	Short: "Attach disassembly diffs to the top changed symbols of a report",
	Long: `Disasm selects the .text symbols whose size changed the most, disassembles
them in the before and after binaries and attaches a unified diff to each.
Binaries are looked up by their elf_file_name metadata under --before-dir and
--after-dir; partitioned libraries fall back to their __combined.so artifact.`,
	Example: `
# Print diffs for the top 10 symbols
sizediff disasm report.json -b out/before -a out/after

# Only the top 3, whole symbols, as markdown
sizediff disasm report.json -b out/before -a out/after --budget 3 --max-bytes 0 --format markdown
  `,
	Args: cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		if _, err := ResolveCwd(cmd); err != nil {
			return err
		}

		opts := disasmOptions{report: args[0]}
		opts.configPath, _ = cmd.Flags().GetString("config")
		opts.beforeDir, _ = cmd.Flags().GetString("before-dir")
		opts.afterDir, _ = cmd.Flags().GetString("after-dir")
		opts.output, _ = cmd.Flags().GetString("output")
		format, _ := cmd.Flags().GetString("format")
		opts.format = outputFormat(format)

		out := cmd.OutOrStdout()
		if f, ok := out.(*os.File); ok && term.IsTerminal(f.Fd()) {
			opts.color = colorize.Enabled()
		}

		flags := cmd.Flags()
		opts.overrides = func(c *config.Config) {
			if flags.Changed("objdump") {
				c.Objdump, _ = flags.GetString("objdump")
			}
			if flags.Changed("max-bytes") {
				c.MaxBytes, _ = flags.GetInt("max-bytes")
			}
			if flags.Changed("budget") {
				c.Budget, _ = flags.GetInt("budget")
			}
			if flags.Changed("min-delta") {
				c.MinDelta, _ = flags.GetInt("min-delta")
			}
			if flags.Changed("timeout") {
				c.Timeout, _ = flags.GetDuration("timeout")
			}
		}

		return runDisasm(cmd.Context(), afero.NewOsFs(), out, opts)
	},
}

func init() {
	disasmCmd.Flags().StringP("before-dir", "b", "", "Directory the before build's binaries are resolved against")
	disasmCmd.Flags().StringP("after-dir", "a", "", "Directory the after build's binaries are resolved against")
	disasmCmd.Flags().StringP("output", "o", "", "Write the annotated report to this file")
	disasmCmd.Flags().String("format", string(formatText), "Summary format: text, json or markdown")
	disasmCmd.Flags().String("objdump", "", "Disassembler to run (overrides config)")
	disasmCmd.Flags().Int("max-bytes", objdump.DefaultMaxBytes, "Bytes of each symbol to disassemble, 0 for whole symbols")
	disasmCmd.Flags().Int("budget", disassembly.DefaultBudget, "Number of symbols to diff")
	disasmCmd.Flags().Int("min-delta", disassembly.DefaultMinDelta, "Smallest size change in bytes worth a diff")
	disasmCmd.Flags().Duration("timeout", 0, "Stop the pass after this long, 0 for no limit")
}

func runDisasm(ctx context.Context, fs afero.Fs, w io.Writer, opts disasmOptions) error {
	switch opts.format {
	case formatText, formatJSON, formatMarkdown:
	default:
		return fmt.Errorf("unknown format %q", opts.format)
	}

	cfg, err := config.Load(fs, opts.configPath)
	if err != nil {
		return err
	}
	if opts.overrides != nil {
		opts.overrides(&cfg)
		if err := cfg.Validate(); err != nil {
			return err
		}
	}

	report, err := models.LoadReport(fs, opts.report)
	if err != nil {
		return err
	}

	if cfg.Timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, cfg.Timeout)
		defer cancel()
	}

	prober := elfx.NewProber()
	prober.Fs = fs
	invoker := objdump.New(prober, cfg.Tool)
	invoker.MaxBytes = cfg.MaxBytes

	resolver := pathres.New()
	resolver.Fs = fs

	orch := disassembly.New(invoker, resolver)
	orch.Fs = fs
	orch.Budget = cfg.Budget
	orch.MinDelta = float64(cfg.MinDelta)
	orch.ContextLines = cfg.ContextLines

	stats := orch.AddDisassembly(ctx, report, under(opts.beforeDir), under(opts.afterDir))
	slog.Info("Disassembly pass finished",
		"candidates", stats.Candidates,
		"annotated", stats.Annotated,
		"skipped", stats.Skipped,
		"aborted", stats.Aborted)

	if opts.output != "" {
		if err := models.SaveReport(fs, opts.output, report); err != nil {
			return err
		}
	}

	switch opts.format {
	case formatJSON:
		return models.WriteReport(w, report)
	case formatMarkdown:
		return renderMarkdown(w, report, stats, opts.color)
	default:
		return renderText(w, report, stats, opts.color)
	}
}

// under resolves logical binary names inside dir.
func under(dir string) disassembly.PathFunc {
	return func(name string) string {
		if name == "" {
			return ""
		}
		if dir == "" || filepath.IsAbs(name) {
			return name
		}
		return filepath.Join(dir, name)
	}
}
