// Package disassembly attaches before/after disassembly diffs to the native
// symbols whose size changed the most.
package disassembly

import (
	"context"
	"log/slog"

	"github.com/spf13/afero"

	"sizediff/internal/difftext"
	"sizediff/internal/models"
	"sizediff/internal/objdump"
)

// DefaultBudget is how many symbols get a diff.
const DefaultBudget = 10

// PathFunc maps a logical binary name to a path for one of the builds.
type PathFunc func(name string) string

// Disassembler produces a listing for a symbol, or nil when it cannot.
type Disassembler interface {
	Disassemble(ctx context.Context, sym *models.Symbol, outputDir, elfPath string) *objdump.Listing
}

// Resolver finds the binary on disk for a candidate path.
type Resolver interface {
	Resolve(path string) (string, error)
}

// Orchestrator drives selection, resolution, disassembly and diffing.
type Orchestrator struct {
	Disassembler Disassembler
	Resolver     Resolver

	// Fs is used to check that the after build's output directory exists.
	Fs           afero.Fs
	Budget       int
	MinDelta     float64
	ContextLines int
	Logger       *slog.Logger
}

// Stats summarizes one AddDisassembly pass.
type Stats struct {
	Candidates int
	Annotated  int
	Skipped    int

	// Aborted is set when an after binary could not be found (or the context
	// was cancelled) before the budget ran out.
	Aborted bool
}

// New returns an Orchestrator with the default budget, size threshold and
// diff context, reading the OS filesystem.
func New(d Disassembler, r Resolver) *Orchestrator {
	return &Orchestrator{
		Disassembler: d,
		Resolver:     r,
		Fs:           afero.NewOsFs(),
		Budget:       DefaultBudget,
		MinDelta:     DefaultMinDelta,
		ContextLines: difftext.DefaultContext,
	}
}

// AddDisassembly sets Disassembly on the after symbol of up to Budget of the
// top changed symbols in report.
//
// Failing to find an after binary stops the whole pass, since every remaining
// symbol is likely to hit the same problem; diffs already attached are kept.
// A missing before binary only means the diff shows all code as new.
func (o *Orchestrator) AddDisassembly(ctx context.Context, report *models.DeltaReport, beforePath, afterPath PathFunc) Stats {
	lg := o.logger()
	lg.Debug("Computing top changed symbols")
	candidates := selectTopChanged(report.Symbols, o.MinDelta)
	stats := Stats{Candidates: len(candidates)}

	lg.Debug("Adding disassembly to top changed native symbols", "budget", o.Budget)
	remaining := o.Budget
	for _, delta := range candidates {
		if remaining <= 0 {
			break
		}
		if err := ctx.Err(); err != nil {
			lg.Warn("Disassembly interrupted", "error", err)
			stats.Aborted = true
			break
		}
		lg.Debug("Symbols to go", "count", remaining)

		after := delta.After
		elfPath, err := o.Resolver.Resolve(afterPath(after.Container.ElfFileName()))
		if err != nil {
			stats.Aborted = true
			break
		}

		outDir := report.After.OutDirectory()
		if outDir != "" && !o.dirExists(outDir) {
			outDir = ""
		}
		afterLines, ok := o.collect(ctx, after, outDir, elfPath)
		if !ok {
			stats.Skipped++
			continue
		}

		var beforeLines []string
		if before := delta.Before; before != nil {
			if path, err := o.Resolver.Resolve(beforePath(before.Container.ElfFileName())); err == nil {
				// The source tree matches the after build, so source lines
				// would be wrong for the before side.
				beforeLines, _ = o.collect(ctx, before, "", path)
			}
		}

		lg.Info("Creating unified diff", "symbol", delta.FullName())
		after.SetDisassembly(difftext.DiffContext(delta.FullName(), beforeLines, afterLines, o.ContextLines))
		stats.Annotated++
		remaining--
	}
	return stats
}

// collect drains one listing. ok is false when nothing could be disassembled.
func (o *Orchestrator) collect(ctx context.Context, sym *models.Symbol, outDir, elfPath string) (lines []string, ok bool) {
	l := o.Disassembler.Disassemble(ctx, sym, outDir, elfPath)
	if l == nil {
		return nil, false
	}
	defer l.Close()
	lines = l.Collect()
	if err := l.Err(); err != nil {
		o.logger().Warn("Reading disassembly failed", "symbol", sym, "error", err)
	}
	return lines, true
}

func (o *Orchestrator) dirExists(dir string) bool {
	fs := o.Fs
	if fs == nil {
		fs = afero.NewOsFs()
	}
	ok, err := afero.DirExists(fs, dir)
	return err == nil && ok
}

func (o *Orchestrator) logger() *slog.Logger {
	if o.Logger == nil {
		return slog.Default()
	}
	return o.Logger
}
