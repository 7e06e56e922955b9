// Package elfx reads just enough of an ELF file to tell which architecture's
// disassembler should be used on it.
package elfx

import (
	"debug/elf"
	"errors"
	"fmt"
	"io"

	"github.com/spf13/afero"
)

var (
	ErrNotELF         = errors.New("elfx: not an ELF file")
	ErrUnknownMachine = errors.New("elfx: unsupported machine")
)

// Architecture names, matching the toolchain naming of the build.
const (
	ArchARM     = "arm"
	ArchARM64   = "arm64"
	ArchX86     = "x86"
	ArchX64     = "x64"
	ArchMIPS    = "mips"
	ArchMIPS64  = "mips64"
	ArchRISCV64 = "riscv64"
)

// File is an opened ELF header plus its section table.
type File struct {
	Path string
	ELF  *elf.File
	f    io.Closer
}

// Open opens path on fs and parses its ELF headers.
func Open(fs afero.Fs, path string) (*File, error) {
	f, err := fs.Open(path)
	if err != nil {
		return nil, fmt.Errorf("elfx: open: %w", err)
	}
	ef, err := elf.NewFile(f)
	if err != nil {
		f.Close()
		return nil, fmt.Errorf("%w: %s: %v", ErrNotELF, path, err)
	}
	return &File{Path: path, ELF: ef, f: f}, nil
}

// Close releases the underlying file.
func (f *File) Close() error {
	if f.f == nil {
		return nil
	}
	err := f.f.Close()
	f.f = nil
	return err
}

// Arch maps the ELF machine to an architecture name.
func (f *File) Arch() (string, error) {
	return MachineArch(f.ELF.Machine, f.ELF.Class)
}

// MachineArch maps an ELF machine and class to an architecture name.
func MachineArch(m elf.Machine, c elf.Class) (string, error) {
	switch m {
	case elf.EM_ARM:
		return ArchARM, nil
	case elf.EM_AARCH64:
		return ArchARM64, nil
	case elf.EM_386:
		return ArchX86, nil
	case elf.EM_X86_64:
		return ArchX64, nil
	case elf.EM_MIPS:
		if c == elf.ELFCLASS64 {
			return ArchMIPS64, nil
		}
		return ArchMIPS, nil
	case elf.EM_RISCV:
		return ArchRISCV64, nil
	}
	return "", fmt.Errorf("%w: %v", ErrUnknownMachine, m)
}

// Prober determines the architecture of binaries on a filesystem.
type Prober struct {
	Fs afero.Fs
}

// NewProber returns a Prober over the OS filesystem.
func NewProber() *Prober {
	return &Prober{Fs: afero.NewOsFs()}
}

// Arch opens path and reports its architecture.
func (p *Prober) Arch(path string) (string, error) {
	fs := p.Fs
	if fs == nil {
		fs = afero.NewOsFs()
	}
	f, err := Open(fs, path)
	if err != nil {
		return "", err
	}
	defer f.Close()
	return f.Arch()
}
