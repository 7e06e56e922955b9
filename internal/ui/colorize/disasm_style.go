package colorize

import (
	"github.com/alecthomas/chroma/v2"
	"github.com/alecthomas/chroma/v2/styles"
)

// DisasmDiffDark is the style used for disassembly diffs.
var DisasmDiffDark = styles.Register(chroma.MustNewStyle("disasm-diff-dark", chroma.StyleEntries{
	chroma.Text:       "#D4D4D4",
	chroma.Background: "bg:#1e1e1e",

	chroma.GenericInserted:   "#87D787", // added lines in green
	chroma.GenericDeleted:    "#FF5F87", // removed lines in pink
	chroma.GenericSubheading: "#7C9C9D", // @@ hunk headers in teal
	chroma.GenericHeading:    "bold #FFD700",
}))
