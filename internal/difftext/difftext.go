// Package difftext renders unified diffs between two disassembly listings.
package difftext

import (
	"strings"

	"github.com/pmezard/go-difflib/difflib"
)

// DefaultContext is the number of unchanged lines kept around each change.
const DefaultContext = 10

// Diff returns a unified diff of before against after, both labeled name,
// with DefaultContext lines of context.
func Diff(name string, before, after []string) string {
	return DiffContext(name, before, after, DefaultContext)
}

// DiffContext is Diff with an explicit context size. The file header is
// dropped, so the result starts at the first hunk. Identical inputs give "".
func DiffContext(name string, before, after []string, context int) string {
	text, err := difflib.GetUnifiedDiffString(difflib.UnifiedDiff{
		A:        terminate(before),
		B:        terminate(after),
		FromFile: name,
		ToFile:   name,
		Context:  context,
		Eol:      "\n",
	})
	if err != nil {
		// Writes go to a strings.Builder and cannot fail.
		return ""
	}
	if strings.HasPrefix(text, "@@") {
		return text
	}
	if i := strings.Index(text, "\n@@"); i >= 0 {
		return text[i+1:]
	}
	return ""
}

func terminate(lines []string) []string {
	out := make([]string, len(lines))
	for i, l := range lines {
		out[i] = strings.TrimRight(l, "\r\n") + "\n"
	}
	return out
}
