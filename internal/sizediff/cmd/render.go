package cmd

import (
	"fmt"
	"io"
	"math"
	"slices"
	"strings"

	"github.com/dustin/go-humanize"

	"sizediff/internal/disassembly"
	"sizediff/internal/models"
	"sizediff/internal/sizediff/styles"
	"sizediff/internal/ui/colorize"
)

const markdownWidth = 100

// ranked returns the annotated deltas, largest change first.
func ranked(report *models.DeltaReport) []*models.SymbolDelta {
	out := report.Annotated()
	slices.SortStableFunc(out, disassembly.CompareDelta)
	return out
}

func formatDelta(d *models.SymbolDelta) string {
	pss := int64(math.Round(d.PSSWithoutPadding()))
	sign := ""
	if pss >= 0 {
		sign = "+"
	}
	return fmt.Sprintf("%s%s bytes (%s → %s)", sign, humanize.Comma(pss), sideSize(d.Before), sideSize(d.After))
}

func sideSize(s *models.Symbol) string {
	if s == nil {
		return "absent"
	}
	return humanize.Bytes(uint64(max(s.SizeWithoutPadding, 0)))
}

func summary(stats disassembly.Stats) string {
	return fmt.Sprintf("Diffed %d of %d candidate symbols", stats.Annotated, stats.Candidates)
}

func stoppedNote(stats disassembly.Stats) string {
	if !stats.Aborted {
		return ""
	}
	return "Stopped early: an after binary could not be found or the run was interrupted."
}

func renderText(w io.Writer, report *models.DeltaReport, stats disassembly.Stats, color bool) error {
	var b strings.Builder
	for _, d := range ranked(report) {
		title, detail := d.After.DisplayName(), formatDelta(d)
		diff := *d.After.Disassembly
		if color {
			title = styles.Title.Render(title)
			detail = styles.Faint.Render(detail)
			if colored, err := colorize.Diff(diff); err == nil {
				diff = colored
			}
		}
		fmt.Fprintf(&b, "%s  %s\n%s", title, detail, diff)
		if diff != "" && !strings.HasSuffix(diff, "\n") {
			b.WriteByte('\n')
		}
		b.WriteByte('\n')
	}

	b.WriteString(summary(stats) + "\n")
	if note := stoppedNote(stats); note != "" {
		if color {
			note = styles.Warn.Render(note)
		}
		b.WriteString(note + "\n")
	}
	_, err := io.WriteString(w, b.String())
	return err
}

func markdown(report *models.DeltaReport, stats disassembly.Stats) string {
	var b strings.Builder
	b.WriteString("# Disassembly diffs\n\n")
	fmt.Fprintf(&b, "%s.\n\n", summary(stats))
	if note := stoppedNote(stats); note != "" {
		fmt.Fprintf(&b, "**%s**\n\n", note)
	}
	for _, d := range ranked(report) {
		fmt.Fprintf(&b, "## `%s`\n\n", d.After.DisplayName())
		fmt.Fprintf(&b, "Size change: %s\n\n", formatDelta(d))
		diff := *d.After.Disassembly
		if diff == "" {
			b.WriteString("_No differences._\n\n")
			continue
		}
		fmt.Fprintf(&b, "```diff\n%s", diff)
		if !strings.HasSuffix(diff, "\n") {
			b.WriteByte('\n')
		}
		b.WriteString("```\n\n")
	}
	return b.String()
}

func renderMarkdown(w io.Writer, report *models.DeltaReport, stats disassembly.Stats, color bool) error {
	md := markdown(report, stats)
	if color {
		r, err := styles.GetMarkdownRenderer(markdownWidth)
		if err == nil {
			if rendered, err := r.Render(md); err == nil {
				md = rendered
			}
		}
	}
	_, err := io.WriteString(w, md)
	return err
}
