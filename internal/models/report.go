package models

import (
	"encoding/json"
	"errors"
	"fmt"
	"io"

	"github.com/spf13/afero"
)

// ErrUnknownContainer is returned when a symbol names a container the report
// does not define.
var ErrUnknownContainer = errors.New("models: unknown container")

// LoadReport reads a JSON delta report from fs and links symbols to their
// containers.
func LoadReport(fs afero.Fs, path string) (*DeltaReport, error) {
	f, err := fs.Open(path)
	if err != nil {
		return nil, fmt.Errorf("open report: %w", err)
	}
	defer f.Close()
	return DecodeReport(f)
}

// DecodeReport parses a JSON delta report.
func DecodeReport(r io.Reader) (*DeltaReport, error) {
	var report DeltaReport
	if err := json.NewDecoder(r).Decode(&report); err != nil {
		return nil, fmt.Errorf("decode report: %w", err)
	}
	if err := report.Link(); err != nil {
		return nil, err
	}
	return &report, nil
}

// Link resolves each symbol's ContainerName into its Container pointer.
// Symbols that already carry a Container are left alone.
func (r *DeltaReport) Link() error {
	for i, d := range r.Symbols {
		if d == nil {
			return fmt.Errorf("symbol %d: empty delta", i)
		}
		for _, s := range []*Symbol{d.Before, d.After} {
			if s == nil || s.Container != nil || s.ContainerName == "" {
				continue
			}
			c, ok := r.Containers[s.ContainerName]
			if !ok {
				return fmt.Errorf("symbol %d (%s): %w %q", i, s.FullName, ErrUnknownContainer, s.ContainerName)
			}
			if c.Name == "" {
				c.Name = s.ContainerName
			}
			s.Container = c
		}
	}
	return nil
}

// WriteReport encodes the report, including any disassembly annotations.
func WriteReport(w io.Writer, r *DeltaReport) error {
	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	if err := enc.Encode(r); err != nil {
		return fmt.Errorf("encode report: %w", err)
	}
	return nil
}

// SaveReport writes the report to path on fs.
func SaveReport(fs afero.Fs, path string, r *DeltaReport) error {
	f, err := fs.Create(path)
	if err != nil {
		return fmt.Errorf("create report: %w", err)
	}
	if err := WriteReport(f, r); err != nil {
		f.Close()
		return err
	}
	return f.Close()
}
