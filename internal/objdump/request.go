package objdump

import (
	"fmt"
	"path/filepath"

	"sizediff/internal/models"
)

// DefaultMaxBytes bounds how much of a symbol gets disassembled, since
// thunks and other generated functions can be enormous.
const DefaultMaxBytes = 2 * 1024

// Request describes one disassembler run over a symbol's address window.
type Request struct {
	Symbol    *models.Symbol
	ElfPath   string
	OutputDir string
	Arch      string
	Start     uint64
	Stop      uint64
	Truncated bool
}

// NewRequest computes the address window for sym. A positive maxBytes caps
// the window at Address+maxBytes.
func NewRequest(sym *models.Symbol, outputDir, elfPath string, maxBytes int) Request {
	stop := sym.EndAddress()
	if maxBytes > 0 {
		stop = min(stop, sym.Address+uint64(maxBytes))
	}
	return Request{
		Symbol:    sym,
		ElfPath:   elfPath,
		OutputDir: outputDir,
		Start:     sym.Address,
		Stop:      stop,
		Truncated: stop != sym.EndAddress(),
	}
}

// Dir is the working directory for the disassembler. Running from the build
// output directory lets it find the sources named in debug info.
func (r Request) Dir() string {
	if r.OutputDir != "" {
		return r.OutputDir
	}
	return "."
}

// Args returns the full command line, tool first. Paths are relative to Dir.
func (r Request) Args(tool string) []string {
	dir := r.Dir()
	if filepath.Base(tool) != tool {
		tool = relPath(tool, dir)
	}
	args := []string{
		tool,
		"--disassemble",
		"--line-numbers",
		"--demangle",
		fmt.Sprintf("--start-address=0x%x", r.Start),
		fmt.Sprintf("--stop-address=0x%x", r.Stop),
		relPath(r.ElfPath, dir),
	}
	if r.OutputDir != "" {
		args = append(args, "--source")
	}
	return args
}

// Banner returns the lines shown ahead of the disassembler output.
func (r Request) Banner(cmd string) []string {
	truncated := ""
	if r.Truncated {
		truncated = " (truncated)"
	}
	return []string{
		fmt.Sprintf("Showing disassembly for %s", r.Symbol),
		fmt.Sprintf("Captured via: %s%s", cmd, truncated),
		"",
	}
}

func relPath(path, dir string) string {
	absPath, err := filepath.Abs(path)
	if err != nil {
		return path
	}
	absDir, err := filepath.Abs(dir)
	if err != nil {
		return path
	}
	rel, err := filepath.Rel(absDir, absPath)
	if err != nil {
		return path
	}
	return rel
}
