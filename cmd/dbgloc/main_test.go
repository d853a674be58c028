package main

import (
	"bytes"
	"context"
	"strings"
	"testing"

	"github.com/fatih/color"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/spf13/afero"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/grafana/dbgloc/pkg/dbgloc"
	"github.com/grafana/dbgloc/pkg/debuginfo"
	"github.com/grafana/dbgloc/pkg/ir"
	"github.com/grafana/dbgloc/pkg/linetable"
)

const testLines = `Directory a.c .
f 1 10
f 2 18
f 5 20
f 3 28
`

const testModule = `name: sample
functions:
  - name: sub_10
    blocks:
      - name: block_10
        instructions:
          - {op: alloca}
          - {op: load, addr: 0x10}
          - {op: add, addr: 0x10}
          - {op: store, addr: 0x18}
      - name: block_20
        instructions:
          - {op: cmp, addr: 0x20}
          - {op: jne, addr: 0x20}
          - {op: call, addr: 0x28}
      - name: block_30
        instructions:
          - {op: load, addr: 0x30}
          - {op: ret, addr: 0x30}
  - name: printf
    origin: external
`

func testFs(t *testing.T) afero.Fs {
	t.Helper()
	fs := afero.NewMemMapFs()
	require.NoError(t, afero.WriteFile(fs, "lines.txt", []byte(testLines), 0o644))
	require.NoError(t, afero.WriteFile(fs, "module.yaml", []byte(testModule), 0o644))
	return fs
}

func blockLines(fn *ir.Function) map[string][]uint32 {
	out := make(map[string][]uint32)
	for _, b := range fn.Blocks {
		lines := make([]uint32, 0, len(b.Insts))
		for _, inst := range b.Insts {
			var line uint32
			if l := inst.DebugLoc(); l != nil {
				line = l.Line
			}
			lines = append(lines, line)
		}
		out[b.Name] = lines
	}
	return out
}

func TestLoadConfig(t *testing.T) {
	fs := afero.NewMemMapFs()

	conf, err := loadConfig(fs, "")
	require.NoError(t, err)
	assert.Equal(t, "_init", conf.DbgLoc.ExclusionMarker)
	assert.Equal(t, uint64(4000), conf.DbgLoc.SubprogramCounterSeed)
	assert.Equal(t, "dbgloc", conf.LineTable.Producer)
	assert.Equal(t, uint16(debuginfo.LangC), conf.LineTable.Language)

	require.NoError(t, afero.WriteFile(fs, "config.yaml", []byte("dbgloc:\n  exclusion_marker: stub\nlinetable:\n  language: 4\n"), 0o644))
	conf, err = loadConfig(fs, "config.yaml")
	require.NoError(t, err)
	assert.Equal(t, "stub", conf.DbgLoc.ExclusionMarker)
	assert.Equal(t, "_", conf.DbgLoc.BlockAddressSeparator, "unset fields keep their defaults")
	assert.Equal(t, uint16(debuginfo.LangCPlusPlus), conf.LineTable.Language)

	require.NoError(t, afero.WriteFile(fs, "bad.yaml", []byte("dbgloc:\n  block_address_separator: \"\"\n"), 0o644))
	_, err = loadConfig(fs, "bad.yaml")
	require.Error(t, err)

	require.NoError(t, afero.WriteFile(fs, "unknown.yaml", []byte("nope: 1\n"), 0o644))
	_, err = loadConfig(fs, "unknown.yaml")
	require.Error(t, err)

	_, err = loadConfig(fs, "missing.yaml")
	require.Error(t, err)
}

func TestReplay(t *testing.T) {
	fs := testFs(t)
	conf, err := loadConfig(fs, "")
	require.NoError(t, err)

	dib := debuginfo.NewMetadataBuilder(nil)
	table := linetable.New(conf.LineTable, dib, nil)
	require.NoError(t, table.Parse(fs, "lines.txt"))
	f, err := fs.Open("module.yaml")
	require.NoError(t, err)
	defer f.Close()
	desc, err := ir.Load(f)
	require.NoError(t, err)

	cache, err := dbgloc.NewCache(conf.DbgLoc, table, dib, nil, prometheus.NewRegistry())
	require.NoError(t, err)
	m := replay(cache, desc)

	require.Len(t, m.Funcs, 2)
	assert.Equal(t, map[string][]uint32{
		"block_10": {1, 1, 1, 2},
		"block_20": {0, 5, 3},
		"block_30": {0, 0},
	}, blockLines(m.Func("sub_10")))
	assert.Nil(t, cache.Lines(m.Func("printf")))

	cache.Petrify()
	recreate(m, "_")
	require.Nil(t, m.Func("sub_10"))
	cache.FillMissing(m)
	assert.Equal(t, map[string][]uint32{
		"block_10": {1, 1, 1, 2},
		"block_20": {5, 5, 5},
		"block_30": {3, 3},
	}, blockLines(m.Func("_sub_10")))
}

func TestAnnotate(t *testing.T) {
	color.NoColor = true
	fs := testFs(t)
	conf, err := loadConfig(fs, "")
	require.NoError(t, err)

	var out bytes.Buffer
	err = annotate(withOutput(context.Background(), &out), fs, conf, &annotateParams{
		lines:        "lines.txt",
		module:       "module.yaml",
		recreate:     true,
		manglePrefix: "_",
		emitMetadata: true,
	})
	require.NoError(t, err)

	got := out.String()
	assert.Contains(t, got, "_sub_10 (lifted) 9/9 located\n")
	assert.Contains(t, got, "_printf (external) 0/0 located\n")
	assert.Contains(t, got, "line 5\n")
	assert.Contains(t, got, `distinct !DISubprogram(name: "sub_10"`)
	assert.Equal(t, 4, strings.Count(got, "!DILocation("))
}

func TestAnnotate_Errors(t *testing.T) {
	fs := testFs(t)
	conf, err := loadConfig(fs, "")
	require.NoError(t, err)
	ctx := withOutput(context.Background(), &bytes.Buffer{})

	err = annotate(ctx, fs, conf, &annotateParams{lines: "missing.txt", module: "module.yaml"})
	require.Error(t, err)

	err = annotate(ctx, fs, conf, &annotateParams{lines: "lines.txt", module: "missing.yaml"})
	require.ErrorContains(t, err, "missing.yaml")

	require.NoError(t, afero.WriteFile(fs, "dup.yaml", []byte("functions:\n  - name: f\n    origin: external\n  - name: f\n    origin: external\n"), 0o644))
	err = annotate(ctx, fs, conf, &annotateParams{lines: "lines.txt", module: "dup.yaml"})
	require.Error(t, err)
}

func TestPrintLines(t *testing.T) {
	fs := testFs(t)
	conf, err := loadConfig(fs, "")
	require.NoError(t, err)

	var out bytes.Buffer
	require.NoError(t, printLines(withOutput(context.Background(), &out), fs, conf, &linesParams{file: "lines.txt"}))
	got := out.String()
	assert.Contains(t, got, "0x28")
	assert.Contains(t, got, "a.c")
	assert.True(t, strings.HasSuffix(got, "4 records, 1 directories\n"))
}
