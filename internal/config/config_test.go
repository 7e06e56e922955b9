package config

import (
	"testing"
	"time"

	"github.com/spf13/afero"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLoadDefaults(t *testing.T) {
	cfg, err := Load(afero.NewMemMapFs(), "")
	require.NoError(t, err)
	assert.Equal(t, Default(), cfg)
	assert.Equal(t, 2048, cfg.MaxBytes)
	assert.Equal(t, 10, cfg.Budget)
	assert.Equal(t, 10, cfg.MinDelta)
	assert.Equal(t, 10, cfg.ContextLines)
}

func TestLoadFileAndEnv(t *testing.T) {
	fs := afero.NewMemMapFs()
	require.NoError(t, afero.WriteFile(fs, "sizediff.yaml", []byte(`
objdump: /opt/llvm/bin/llvm-objdump
objdump_by_arch:
  arm: third_party/arm/objdump
max_bytes: 4096
budget: 5
timeout: 90s
`), 0o644))
	t.Setenv("SIZEDIFF_BUDGET", "3")

	cfg, err := Load(fs, "sizediff.yaml")
	require.NoError(t, err)
	assert.Equal(t, 4096, cfg.MaxBytes)
	assert.Equal(t, 3, cfg.Budget)
	assert.Equal(t, 10, cfg.MinDelta)
	assert.Equal(t, 90*time.Second, cfg.Timeout)
	assert.Equal(t, "third_party/arm/objdump", cfg.Tool("arm"))
	assert.Equal(t, "/opt/llvm/bin/llvm-objdump", cfg.Tool("arm64"))
}

func TestLoadErrors(t *testing.T) {
	fs := afero.NewMemMapFs()
	require.NoError(t, afero.WriteFile(fs, "bad.yaml", []byte("budget: [1, 2"), 0o644))
	require.NoError(t, afero.WriteFile(fs, "zero.yaml", []byte("budget: 0\nmax_bytes: -1\n"), 0o644))

	_, err := Load(fs, "missing.yaml")
	assert.Error(t, err)

	_, err = Load(fs, "bad.yaml")
	assert.Error(t, err)

	_, err = Load(fs, "zero.yaml")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "budget")
	assert.Contains(t, err.Error(), "max_bytes")

	t.Setenv("SIZEDIFF_TIMEOUT", "soon")
	_, err = Load(fs, "")
	assert.ErrorContains(t, err, "SIZEDIFF_TIMEOUT")
	t.Setenv("SIZEDIFF_TIMEOUT", "")

	t.Setenv("SIZEDIFF_MAX_BYTES", "lots")
	_, err = Load(fs, "")
	assert.ErrorContains(t, err, "SIZEDIFF_MAX_BYTES")
}

func TestToolFallback(t *testing.T) {
	assert.Equal(t, "llvm-objdump", Config{}.Tool("x64"))
}
