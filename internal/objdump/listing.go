package objdump

import (
	"bufio"
	"errors"
	"io"
	"iter"
	"os"
	"os/exec"
)

const maxLineSize = 1 << 20

// Listing streams disassembly text. Banner lines come first, then the
// disassembler's stdout, read lazily. A Listing can be iterated once and must
// be closed; Close kills the disassembler if it is still running.
type Listing struct {
	banner []string
	r      io.Reader
	cmd    *exec.Cmd
	err    error
	closed bool
}

// NewListing returns a Listing over r. If r is an io.Closer it is closed by
// Close.
func NewListing(r io.Reader, banner ...string) *Listing {
	return &Listing{banner: banner, r: r}
}

// Lines yields the listing line by line, without trailing newlines.
func (l *Listing) Lines() iter.Seq[string] {
	return func(yield func(string) bool) {
		for _, b := range l.banner {
			if !yield(b) {
				return
			}
		}
		if l.r == nil || l.closed {
			return
		}
		sc := bufio.NewScanner(l.r)
		sc.Buffer(make([]byte, 0, 64*1024), maxLineSize)
		for sc.Scan() {
			if !yield(sc.Text()) {
				return
			}
		}
		l.err = sc.Err()
	}
}

// Collect drains the listing into a slice.
func (l *Listing) Collect() []string {
	var lines []string
	for line := range l.Lines() {
		lines = append(lines, line)
	}
	return lines
}

// Err returns the first read error seen while iterating.
func (l *Listing) Err() error {
	return l.err
}

// Close terminates the disassembler and releases the output stream. It is
// safe to call more than once.
func (l *Listing) Close() error {
	if l.closed {
		return nil
	}
	l.closed = true
	if l.cmd == nil {
		if c, ok := l.r.(io.Closer); ok {
			return c.Close()
		}
		return nil
	}
	var killErr error
	if l.cmd.Process != nil {
		if err := l.cmd.Process.Kill(); err != nil && !errors.Is(err, os.ErrProcessDone) {
			killErr = err
		}
	}
	// The process was killed, so its exit status carries no information.
	_ = l.cmd.Wait()
	return killErr
}
