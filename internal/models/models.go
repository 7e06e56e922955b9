// Package models holds the size-delta report consumed by the disassembly pass:
// symbols, their before/after pairing and the per-build configuration.
package models

import (
	"fmt"
	"math"
	"strings"

	"github.com/ianlancetaylor/demangle"
)

// Metadata and build config keys read by the disassembly pass.
const (
	MetadataElfFileName = "elf_file_name"
	BuildConfigOutDir   = "out_directory"
)

// Container describes the binary a symbol lives in.
type Container struct {
	Name     string            `json:"name"`
	Metadata map[string]string `json:"metadata,omitempty"`
}

// ElfFileName returns the logical path of the container's ELF file.
func (c *Container) ElfFileName() string {
	if c == nil {
		return ""
	}
	return c.Metadata[MetadataElfFileName]
}

// Symbol is a named, address-ranged unit of a binary.
type Symbol struct {
	Address            uint64 `json:"address"`
	SizeWithoutPadding int64  `json:"size_without_padding"`
	Padding            int64  `json:"padding,omitempty"`
	NumAliases         int    `json:"num_aliases,omitempty"`
	SectionName        string `json:"section_name"`
	FullName           string `json:"full_name"`
	ContainerName      string `json:"container,omitempty"`

	// Disassembly is nil until a diff has been computed. An empty string is a
	// computed diff with no content.
	Disassembly *string `json:"disassembly,omitempty"`

	Container *Container `json:"-"`
}

// EndAddress is the first address past the symbol.
func (s *Symbol) EndAddress() uint64 {
	if s.SizeWithoutPadding <= 0 {
		return s.Address
	}
	return s.Address + uint64(s.SizeWithoutPadding)
}

// Size includes alignment padding.
func (s *Symbol) Size() int64 {
	return s.SizeWithoutPadding + s.Padding
}

// IsText reports whether the symbol lives in an executable code section.
func (s *Symbol) IsText() bool {
	return strings.HasSuffix(s.SectionName, ".text")
}

// PSSWithoutPadding splits the symbol's size across its aliases.
func (s *Symbol) PSSWithoutPadding() float64 {
	if s == nil {
		return 0
	}
	n := s.NumAliases
	if n <= 0 {
		n = 1
	}
	return float64(s.SizeWithoutPadding) / float64(n)
}

// DisplayName demangles FullName when it is an Itanium-mangled name.
func (s *Symbol) DisplayName() string {
	return demangle.Filter(s.FullName, demangle.NoClones)
}

// SetDisassembly attaches a computed diff.
func (s *Symbol) SetDisassembly(diff string) {
	s.Disassembly = &diff
}

func (s *Symbol) String() string {
	return fmt.Sprintf("Symbol(%s@0x%x size=%d section=%s)", s.DisplayName(), s.Address, s.SizeWithoutPadding, s.SectionName)
}

// SymbolDelta pairs the two views of one symbol. Either side may be nil.
type SymbolDelta struct {
	Before *Symbol `json:"before,omitempty"`
	After  *Symbol `json:"after,omitempty"`
}

// PSSWithoutPadding is the signed size change, absent sides counting as zero.
func (d *SymbolDelta) PSSWithoutPadding() float64 {
	return d.After.PSSWithoutPadding() - d.Before.PSSWithoutPadding()
}

// AbsPSSWithoutPadding is the magnitude used for ranking.
func (d *SymbolDelta) AbsPSSWithoutPadding() float64 {
	return math.Abs(d.PSSWithoutPadding())
}

func (d *SymbolDelta) side() *Symbol {
	if d.After != nil {
		return d.After
	}
	return d.Before
}

// SectionName prefers the after side.
func (d *SymbolDelta) SectionName() string {
	if s := d.side(); s != nil {
		return s.SectionName
	}
	return ""
}

// FullName prefers the after side.
func (d *SymbolDelta) FullName() string {
	if s := d.side(); s != nil {
		return s.FullName
	}
	return ""
}

// BuildInfo is one side's build description.
type BuildInfo struct {
	BuildConfig map[string]string `json:"build_config,omitempty"`
}

// OutDirectory returns the build output directory, or "" if unknown.
func (b BuildInfo) OutDirectory() string {
	return b.BuildConfig[BuildConfigOutDir]
}

// DeltaReport is the upstream size-delta report.
type DeltaReport struct {
	Before     BuildInfo             `json:"before"`
	After      BuildInfo             `json:"after"`
	Containers map[string]*Container `json:"containers,omitempty"`
	Symbols    []*SymbolDelta        `json:"symbols"`
}

// Annotated returns the deltas whose after symbol carries a disassembly diff.
func (r *DeltaReport) Annotated() []*SymbolDelta {
	var out []*SymbolDelta
	for _, d := range r.Symbols {
		if d.After != nil && d.After.Disassembly != nil {
			out = append(out, d)
		}
	}
	return out
}
