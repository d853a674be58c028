package ir

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/grafana/dbgloc/pkg/debuginfo"
)

func TestFunction_CloneHasNewIdentity(t *testing.T) {
	f := NewFunction("sub_1000", OriginLifted)
	b := f.NewBlock("block_1000")
	inst := b.Append("add", 0x1000)
	loc := &debuginfo.Location{Line: 3}
	inst.SetDebugLoc(loc)

	c := f.Clone("_sub_1000")
	require.NotSame(t, f, c)
	require.Equal(t, "_sub_1000", c.Name())
	require.Len(t, c.Blocks, 1)
	require.NotSame(t, b, c.Blocks[0])
	require.Same(t, c, c.Blocks[0].Parent())
	require.Same(t, loc, c.Blocks[0].Insts[0].DebugLoc())
	require.Same(t, c.Blocks[0], c.Blocks[0].Insts[0].Parent())
}

func TestBlock_Accessors(t *testing.T) {
	b := NewFunction("f", OriginLifted).NewBlock("entry")
	require.Nil(t, b.First())
	require.Nil(t, b.Last())

	first := b.Append("a", 1)
	last := b.Append("b", 2)
	assert.Same(t, first, b.First())
	assert.Same(t, last, b.Last())
	assert.Equal(t, 1, b.Index(last))
	assert.Equal(t, -1, b.Index(&Instruction{}))
}

func TestModule_RemoveAndReplace(t *testing.T) {
	m := NewModule("m")
	a := m.NewFunction("a", OriginLifted)
	b := m.NewFunction("b", OriginLifted)

	fresh := a.Clone("a")
	require.True(t, m.Replace(a, fresh))
	require.Same(t, fresh, m.Func("a"))
	require.False(t, m.Replace(a, fresh))

	require.True(t, m.RemoveFunction(b))
	require.False(t, m.RemoveFunction(b))
	require.Nil(t, m.Func("b"))
	require.Len(t, m.Funcs, 1)
}

func TestModule_Validate(t *testing.T) {
	m := NewModule("m")
	m.NewFunction("dup", OriginLifted).NewBlock("b_1")
	f := m.NewFunction("dup", OriginLifted)
	f.NewBlock("b_2")
	f.NewBlock("b_2")
	m.NewFunction("empty", OriginLifted)
	m.NewFunction("decl", OriginExternal)

	err := m.Validate()
	require.Error(t, err)
	msg := err.Error()
	assert.Contains(t, msg, `duplicate function name "dup"`)
	assert.Contains(t, msg, `duplicate block name "b_2"`)
	assert.Contains(t, msg, `lifted function "empty" has no blocks`)
	assert.NotContains(t, msg, `"decl"`)
}

func TestOrigin(t *testing.T) {
	o, err := ParseOrigin("external")
	require.NoError(t, err)
	require.Equal(t, OriginExternal, o)
	require.Equal(t, "external", o.String())

	_, err = ParseOrigin("bogus")
	require.Error(t, err)
	require.Equal(t, "origin(9)", Origin(9).String())
}

func TestLoad(t *testing.T) {
	const doc = `
name: example
functions:
  - name: sub_401000
    blocks:
      - name: block_401000
        instructions:
          - {op: load, addr: 0x401000}
          - {op: add}
      - name: block_401008
        instructions:
          - {op: ret, addr: 0x401008}
  - name: printf
    origin: external
`
	m, err := Load(strings.NewReader(doc))
	require.NoError(t, err)
	require.Equal(t, "example", m.Name)
	require.Len(t, m.Funcs, 2)

	f := m.Func("sub_401000")
	require.NotNil(t, f)
	require.Equal(t, OriginLifted, f.Origin)
	require.Len(t, f.Blocks, 2)
	require.Equal(t, uint64(0x401000), f.Blocks[0].Insts[0].Addr)
	require.Equal(t, uint64(0), f.Blocks[0].Insts[1].Addr)
	require.Equal(t, OriginExternal, m.Func("printf").Origin)
}

func TestLoad_Errors(t *testing.T) {
	for _, tc := range []struct {
		name string
		doc  string
		err  string
	}{
		{"unknown field", "name: m\nbogus: 1\n", "decoding module"},
		{"bad origin", "functions:\n  - name: f\n    origin: alien\n", `unknown function origin "alien"`},
		{"invalid", "functions:\n  - name: f\n", `lifted function "f" has no blocks`},
	} {
		t.Run(tc.name, func(t *testing.T) {
			_, err := Load(strings.NewReader(tc.doc))
			require.Error(t, err)
			require.Contains(t, err.Error(), tc.err)
		})
	}
}
