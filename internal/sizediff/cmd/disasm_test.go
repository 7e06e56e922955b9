package cmd

import (
	"bytes"
	"context"
	"debug/elf"
	"encoding/binary"
	"os"
	"path/filepath"
	"runtime"
	"strings"
	"testing"

	"github.com/spf13/afero"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"sizediff/internal/config"
	"sizediff/internal/disassembly"
	"sizediff/internal/models"
)

// arm64Header is the smallest ELF the arch probe accepts.
func arm64Header() []byte {
	ident := []byte{0x7f, 'E', 'L', 'F', byte(elf.ELFCLASS64), byte(elf.ELFDATA2LSB), byte(elf.EV_CURRENT)}
	ident = append(ident, make([]byte, elf.EI_NIDENT-len(ident))...)

	le := binary.LittleEndian
	buf := append([]byte{}, ident...)
	buf = le.AppendUint16(buf, uint16(elf.ET_DYN))
	buf = le.AppendUint16(buf, uint16(elf.EM_AARCH64))
	buf = le.AppendUint32(buf, uint32(elf.EV_CURRENT))
	buf = le.AppendUint64(buf, 0)
	buf = le.AppendUint64(buf, 0)
	buf = le.AppendUint64(buf, 0)
	buf = le.AppendUint32(buf, 0)
	buf = le.AppendUint16(buf, 64)
	buf = le.AppendUint16(buf, 56)
	for range 4 {
		buf = le.AppendUint16(buf, 0)
	}
	return buf
}

const e2eReport = `{
  "containers": {"libfoo": {"metadata": {"elf_file_name": "libfoo.so"}}},
  "symbols": [
    {
      "before": {"address": 4096, "size_without_padding": 40, "section_name": ".text", "full_name": "_ZN3foo3barEv", "container": "libfoo"},
      "after": {"address": 4096, "size_without_padding": 64, "section_name": ".text", "full_name": "_ZN3foo3barEv", "container": "libfoo"}
    },
    {
      "after": {"address": 8192, "size_without_padding": 400, "section_name": ".rodata", "full_name": "kTable", "container": "libfoo"}
    }
  ]
}`

type e2eFixture struct {
	dir    string
	report string
	config string
	before string
	after  string
}

// newE2EFixture lays out a report, both builds and a fake objdump that
// emits an extra instruction for the after build.
func newE2EFixture(t *testing.T) e2eFixture {
	t.Helper()
	if runtime.GOOS == "windows" {
		t.Skip("shell script tools need a POSIX shell")
	}
	dir := t.TempDir()
	f := e2eFixture{
		dir:    dir,
		report: filepath.Join(dir, "report.json"),
		config: filepath.Join(dir, "sizediff.yaml"),
		before: filepath.Join(dir, "before"),
		after:  filepath.Join(dir, "after"),
	}
	for _, d := range []string{f.before, f.after} {
		require.NoError(t, os.MkdirAll(d, 0o755))
		require.NoError(t, os.WriteFile(filepath.Join(d, "libfoo.so"), arm64Header(), 0o644))
	}

	tool := filepath.Join(dir, "fake-objdump")
	script := `#!/bin/sh
for a; do last=$a; done
echo "0000000000001000 <foo::bar()>:"
case "$last" in
*after*) echo "    1000: add x0, x0, #1" ;;
esac
echo "    1004: ret"
`
	require.NoError(t, os.WriteFile(tool, []byte(script), 0o755))
	require.NoError(t, os.WriteFile(f.report, []byte(e2eReport), 0o644))
	require.NoError(t, os.WriteFile(f.config, []byte("objdump: "+tool+"\n"), 0o644))
	return f
}

func (f e2eFixture) options(format outputFormat) disasmOptions {
	return disasmOptions{
		report:     f.report,
		configPath: f.config,
		beforeDir:  f.before,
		afterDir:   f.after,
		format:     format,
	}
}

func TestRunDisasmText(t *testing.T) {
	f := newE2EFixture(t)

	var out bytes.Buffer
	require.NoError(t, runDisasm(context.Background(), afero.NewOsFs(), &out, f.options(formatText)))

	got := out.String()
	assert.Contains(t, got, "foo::bar()  +24 bytes (40 B → 64 B)\n@@ ")
	assert.Contains(t, got, "\n+    1000: add x0, x0, #1\n")
	assert.Contains(t, got, "\n     1004: ret\n")
	assert.NotContains(t, got, "kTable")
	assert.True(t, strings.HasSuffix(got, "Diffed 1 of 1 candidate symbols\n"))
}

func TestRunDisasmJSONAndOutputFile(t *testing.T) {
	f := newE2EFixture(t)
	opts := f.options(formatJSON)
	opts.output = filepath.Join(f.dir, "annotated.json")

	var out bytes.Buffer
	require.NoError(t, runDisasm(context.Background(), afero.NewOsFs(), &out, opts))

	printed, err := models.DecodeReport(&out)
	require.NoError(t, err)
	saved, err := models.LoadReport(afero.NewOsFs(), opts.output)
	require.NoError(t, err)

	for _, r := range []*models.DeltaReport{printed, saved} {
		require.Len(t, r.Symbols, 2)
		require.NotNil(t, r.Symbols[0].After.Disassembly)
		assert.Contains(t, *r.Symbols[0].After.Disassembly, "+    1000: add x0, x0, #1")
		assert.Nil(t, r.Symbols[0].Before.Disassembly)
		assert.Nil(t, r.Symbols[1].After.Disassembly)
	}
}

func TestRunDisasmOverrides(t *testing.T) {
	f := newE2EFixture(t)
	opts := f.options(formatText)
	opts.overrides = func(c *config.Config) { c.MinDelta = 100 }

	var out bytes.Buffer
	require.NoError(t, runDisasm(context.Background(), afero.NewOsFs(), &out, opts))
	assert.Equal(t, "Diffed 0 of 0 candidate symbols\n", out.String())

	opts.overrides = func(c *config.Config) { c.Budget = -1 }
	require.Error(t, runDisasm(context.Background(), afero.NewOsFs(), &out, opts))
}

func TestRunDisasmErrors(t *testing.T) {
	fs := afero.NewMemMapFs()
	require.NoError(t, afero.WriteFile(fs, "report.json", []byte(`{"symbols": []}`), 0o644))

	tests := []struct {
		name string
		opts disasmOptions
		want string
	}{
		{
			name: "unknown format",
			opts: disasmOptions{report: "report.json", format: "html"},
			want: `unknown format "html"`,
		},
		{
			name: "missing report",
			opts: disasmOptions{report: "nope.json", format: formatText},
			want: "open report",
		},
		{
			name: "missing config",
			opts: disasmOptions{report: "report.json", configPath: "nope.yaml", format: formatText},
			want: "read config",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := runDisasm(context.Background(), fs, &bytes.Buffer{}, tt.opts)
			require.Error(t, err)
			assert.Contains(t, err.Error(), tt.want)
		})
	}
}

func TestUnder(t *testing.T) {
	tests := []struct {
		dir  string
		name string
		want string
	}{
		{"out", "libfoo.so", filepath.Join("out", "libfoo.so")},
		{"", "libfoo.so", "libfoo.so"},
		{"out", "", ""},
		{"out", "/abs/libfoo.so", "/abs/libfoo.so"},
	}
	for _, tt := range tests {
		assert.Equal(t, tt.want, under(tt.dir)(tt.name), "under(%q)(%q)", tt.dir, tt.name)
	}
}

func annotatedReport() *models.DeltaReport {
	grown := "@@ -1 +1,2 @@\n+add\n ret\n"
	empty := ""
	return &models.DeltaReport{
		Symbols: []*models.SymbolDelta{
			{
				Before: &models.Symbol{SizeWithoutPadding: 2000, SectionName: ".text", FullName: "shrunk"},
				After:  &models.Symbol{SizeWithoutPadding: 800, SectionName: ".text", FullName: "shrunk", Disassembly: &empty},
			},
			{
				After: &models.Symbol{SizeWithoutPadding: 4, SectionName: ".text", FullName: "grown", Disassembly: &grown},
			},
			{
				After: &models.Symbol{SizeWithoutPadding: 4000, SectionName: ".text", FullName: "untouched"},
			},
		},
	}
}

func TestRenderText(t *testing.T) {
	var out bytes.Buffer
	stats := disassembly.Stats{Candidates: 3, Annotated: 2, Aborted: true}
	require.NoError(t, renderText(&out, annotatedReport(), stats, false))

	want := "shrunk  -1,200 bytes (2.0 kB → 800 B)\n\n" +
		"grown  +4 bytes (absent → 4 B)\n@@ -1 +1,2 @@\n+add\n ret\n\n" +
		"Diffed 2 of 3 candidate symbols\n" +
		"Stopped early: an after binary could not be found or the run was interrupted.\n"
	assert.Equal(t, want, out.String())
}

func TestRenderMarkdown(t *testing.T) {
	var out bytes.Buffer
	require.NoError(t, renderMarkdown(&out, annotatedReport(), disassembly.Stats{Candidates: 2, Annotated: 2}, false))

	got := out.String()
	assert.True(t, strings.HasPrefix(got, "# Disassembly diffs\n\nDiffed 2 of 2 candidate symbols.\n\n"))
	assert.Contains(t, got, "## `shrunk`\n\nSize change: -1,200 bytes (2.0 kB → 800 B)\n\n_No differences._\n")
	assert.Contains(t, got, "```diff\n@@ -1 +1,2 @@\n+add\n ret\n```\n")
	assert.NotContains(t, got, "Stopped early")
	assert.Less(t, strings.Index(got, "shrunk"), strings.Index(got, "grown"))
}

func TestSchemaCommand(t *testing.T) {
	tests := []struct {
		args []string
		want string
	}{
		{[]string{"schema"}, `"max_bytes"`},
		{[]string{"schema", "report"}, `"symbols"`},
	}
	for _, tt := range tests {
		t.Run(strings.Join(tt.args, " "), func(t *testing.T) {
			var out bytes.Buffer
			rootCmd.SetOut(&out)
			rootCmd.SetArgs(tt.args)
			t.Cleanup(func() {
				rootCmd.SetOut(nil)
				rootCmd.SetArgs(nil)
			})
			require.NoError(t, rootCmd.Execute())
			assert.Contains(t, out.String(), tt.want)
		})
	}
}
