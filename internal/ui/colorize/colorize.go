// Package colorize highlights disassembly diffs for terminal output.
package colorize

import (
	"os"
	"strings"

	"github.com/alecthomas/chroma/v2"
	"github.com/alecthomas/chroma/v2/formatters"
	"github.com/alecthomas/chroma/v2/lexers"
	"github.com/alecthomas/chroma/v2/styles"
)

// Enabled reports whether color output is allowed by the environment.
func Enabled() bool {
	return os.Getenv("SIZEDIFF_NO_COLOR") == "" && os.Getenv("NO_COLOR") == ""
}

// getDiffLexer returns the unified diff lexer with fallbacks
func getDiffLexer() chroma.Lexer {
	for _, name := range []string{"diff", "udiff"} {
		if lexer := lexers.Get(name); lexer != nil {
			return lexer
		}
	}
	return nil
}

// getDiffStyle returns the diff style with fallbacks
func getDiffStyle() *chroma.Style {
	// Try our custom style first, then fallbacks
	candidates := []string{"disasm-diff-dark", "dracula", "monokai"}
	for _, name := range candidates {
		if style := styles.Get(name); style != nil {
			return style
		}
	}
	return styles.Fallback
}

// getTerminalFormatter returns an appropriate terminal formatter
func getTerminalFormatter() chroma.Formatter {
	// Try high-color first, then fallback
	candidates := []string{"terminal16m", "terminal256"}
	for _, name := range candidates {
		if formatter := formatters.Get(name); formatter != nil {
			return formatter
		}
	}
	return formatters.Fallback
}

// Diff highlights a unified diff. The input is returned unchanged when
// colors are disabled or highlighting fails.
func Diff(diff string) (string, error) {
	if !Enabled() || diff == "" {
		return diff, nil
	}

	lexer := getDiffLexer()
	if lexer == nil {
		return diff, nil
	}

	iterator, err := lexer.Tokenise(nil, diff)
	if err != nil {
		return diff, err
	}

	var buf strings.Builder
	if err := getTerminalFormatter().Format(&buf, getDiffStyle(), iterator); err != nil {
		return diff, err
	}
	return buf.String(), nil
}
