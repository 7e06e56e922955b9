// Package objdump runs an external disassembler over a single symbol's
// address range and streams the result.
package objdump

import (
	"context"
	"log/slog"
	"os/exec"
	"path/filepath"

	"github.com/alessio/shellescape"

	"sizediff/internal/models"
)

// DefaultTool is used when no per-architecture disassembler is configured.
const DefaultTool = "llvm-objdump"

// ArchProber reports the instruction set of a binary.
type ArchProber interface {
	Arch(path string) (string, error)
}

// ToolFinder returns the disassembler to run for an architecture.
type ToolFinder func(arch string) string

// Invoker disassembles symbols with an external objdump.
type Invoker struct {
	Prober ArchProber
	Tools  ToolFinder
	Logger *slog.Logger

	// MaxBytes caps the disassembled window. Zero or negative disables the cap.
	MaxBytes int
}

// New returns an Invoker with the default byte cap.
func New(prober ArchProber, tools ToolFinder) *Invoker {
	return &Invoker{Prober: prober, Tools: tools, MaxBytes: DefaultMaxBytes}
}

// Disassemble starts the disassembler for sym and returns its listing, or nil
// if nothing could be disassembled. Failures are logged, not returned: they
// only affect this one symbol. The caller must Close a non-nil listing.
func (in *Invoker) Disassemble(ctx context.Context, sym *models.Symbol, outputDir, elfPath string) *Listing {
	lg := in.logger()
	if sym.SizeWithoutPadding < 1 {
		lg.Info("Skipping due to zero size", "symbol", sym)
		return nil
	}

	arch, err := in.Prober.Arch(elfPath)
	if err != nil {
		lg.Warn("Could not determine architecture", "path", elfPath, "error", err)
		return nil
	}

	req := NewRequest(sym, outputDir, elfPath, in.MaxBytes)
	req.Arch = arch
	tool := in.tool(arch)
	args := req.Args(tool)
	cmdStr := shellescape.QuoteCommand(args)

	lg.Info("Disassembling symbol", "symbol", sym)
	lg.Info("Running", "cmd", cmdStr, "cwd", req.Dir())

	cmd := exec.CommandContext(ctx, execPath(tool), args[1:]...)
	cmd.Args[0] = args[0]
	cmd.Dir = req.Dir()
	stdout, err := cmd.StdoutPipe()
	if err != nil {
		lg.Warn("objdump failed", "cmd", cmdStr, "cwd", req.Dir(), "error", err)
		return nil
	}
	if err := cmd.Start(); err != nil {
		lg.Warn("objdump failed", "cmd", cmdStr, "cwd", req.Dir(), "error", err)
		return nil
	}

	l := NewListing(stdout, req.Banner(cmdStr)...)
	l.cmd = cmd
	return l
}

func (in *Invoker) tool(arch string) string {
	if in.Tools != nil {
		if t := in.Tools(arch); t != "" {
			return t
		}
	}
	return DefaultTool
}

// execPath makes tool paths absolute, since a relative Cmd.Path is resolved
// against Cmd.Dir rather than the current directory.
func execPath(tool string) string {
	if filepath.Base(tool) == tool {
		return tool
	}
	if abs, err := filepath.Abs(tool); err == nil {
		return abs
	}
	return tool
}

func (in *Invoker) logger() *slog.Logger {
	if in.Logger == nil {
		return slog.Default()
	}
	return in.Logger
}
