// Package pathres finds the on-disk file for a logical binary path, following
// the convention that partitioned libraries are recombined into a single
// "__combined" artifact.
package pathres

import (
	"errors"
	"fmt"
	"log/slog"
	"path/filepath"
	"strings"

	"github.com/spf13/afero"
)

const (
	partitionSuffix = "_partition.so"
	combinedSuffix  = "__combined.so"
)

// ErrNotFound means neither the logical path nor its combined variant exist.
var ErrNotFound = errors.New("pathres: binary not found")

// Resolver looks up binaries on a filesystem.
type Resolver struct {
	Fs     afero.Fs
	Logger *slog.Logger
}

// New returns a Resolver over the OS filesystem.
func New() *Resolver {
	return &Resolver{Fs: afero.NewOsFs()}
}

// CombinedPath returns the recombined-artifact name for path. For
// "dir/libmonochrome_partition.so" that is "dir/libmonochrome__combined.so";
// for other names the extension is replaced.
func CombinedPath(path string) string {
	if strings.HasSuffix(path, partitionSuffix) {
		dir, name := filepath.Split(path)
		if i := strings.Index(name, "_"); i >= 0 {
			name = name[:i]
		}
		return dir + name + combinedSuffix
	}
	return strings.TrimSuffix(path, filepath.Ext(path)) + combinedSuffix
}

// Resolve returns path if it exists, else its combined variant if that
// exists, else ErrNotFound.
func (r *Resolver) Resolve(path string) (string, error) {
	if r.exists(path) {
		return path, nil
	}
	combined := CombinedPath(path)
	if r.exists(combined) {
		return combined, nil
	}
	r.logger().Warn("Binary does not exist", "path", path, "combined", combined)
	return "", fmt.Errorf("%w: %s (nor %s)", ErrNotFound, path, combined)
}

func (r *Resolver) exists(path string) bool {
	if path == "" {
		return false
	}
	ok, err := afero.Exists(r.fs(), path)
	return err == nil && ok
}

func (r *Resolver) fs() afero.Fs {
	if r.Fs == nil {
		return afero.NewOsFs()
	}
	return r.Fs
}

func (r *Resolver) logger() *slog.Logger {
	if r.Logger == nil {
		return slog.Default()
	}
	return r.Logger
}
