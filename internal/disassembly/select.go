package disassembly

import (
	"cmp"
	"slices"

	"github.com/samber/lo"

	"sizediff/internal/models"
)

// DefaultMinDelta is the smallest size change worth a diff, in bytes.
const DefaultMinDelta = 10

// IsCandidate reports whether d is worth disassembling: it must still exist
// in the after build, live in a .text section, have changed by at least
// minDelta bytes and have a real address (aggregate padding symbols do not).
func IsCandidate(d *models.SymbolDelta, minDelta float64) bool {
	if d == nil || d.After == nil {
		return false
	}
	if !d.After.IsText() {
		return false
	}
	if d.AbsPSSWithoutPadding() < minDelta {
		return false
	}
	return d.After.Address != 0
}

// CompareDelta orders deltas by decreasing magnitude of size change.
func CompareDelta(a, b *models.SymbolDelta) int {
	return cmp.Compare(b.AbsPSSWithoutPadding(), a.AbsPSSWithoutPadding())
}

// SelectTopChanged returns the candidate deltas of report, largest change
// first. Equal changes keep their report order.
func SelectTopChanged(report *models.DeltaReport) []*models.SymbolDelta {
	return selectTopChanged(report.Symbols, DefaultMinDelta)
}

func selectTopChanged(symbols []*models.SymbolDelta, minDelta float64) []*models.SymbolDelta {
	out := lo.Filter(symbols, func(d *models.SymbolDelta, _ int) bool {
		return IsCandidate(d, minDelta)
	})
	slices.SortStableFunc(out, CompareDelta)
	return out
}
