package dbgloc

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/grafana/dbgloc/pkg/debuginfo"
)

func loc(line uint32) *debuginfo.Location {
	return &debuginfo.Location{Line: line}
}

func TestLines_InsertKeepsOrder(t *testing.T) {
	var l Lines
	l1, l2, l3 := loc(1), loc(2), loc(3)
	require.True(t, l.Insert(0x30, l3))
	require.True(t, l.Insert(0x10, l1))
	require.True(t, l.Insert(0x20, l2))
	require.False(t, l.Insert(0x20, loc(9)))

	var addrs []uint64
	for addr, got := range l.All() {
		addrs = append(addrs, addr)
		require.NotNil(t, got)
	}
	require.Equal(t, []uint64{0x10, 0x20, 0x30}, addrs)
	require.Same(t, l2, l.Get(0x20))
	require.Nil(t, l.Get(0x25))
	require.Equal(t, 3, l.Len())
}

func TestLines_Preceding(t *testing.T) {
	var l Lines
	l1, l2 := loc(1), loc(2)
	l.Insert(0x10, l1)
	l.Insert(0x30, l2)

	assert.Nil(t, l.Preceding(0x05))
	assert.Nil(t, l.Preceding(0x10))
	assert.Same(t, l1, l.Preceding(0x11))
	assert.Same(t, l1, l.Preceding(0x30))
	assert.Same(t, l2, l.Preceding(0x1000))

	var empty *Lines
	assert.Nil(t, empty.Preceding(0x10))
	assert.Nil(t, empty.Get(0x10))
	assert.Zero(t, empty.Len())
}

func TestLines_CloneIsIndependent(t *testing.T) {
	var l Lines
	l.Insert(0x10, loc(1))
	c := l.Clone()
	l.Insert(0x20, loc(2))

	require.Equal(t, 1, c.Len())
	require.Nil(t, c.Get(0x20))
	require.Same(t, l.Get(0x10), c.Get(0x10))

	var nilLines *Lines
	require.Zero(t, nilLines.Clone().Len())
}

func TestSnapshot_Match(t *testing.T) {
	s := newSnapshot()
	first, second := &Lines{}, &Lines{}
	s.put("sub_10", first)
	s.put("10", second)
	s.put("sub_10", second)

	require.Equal(t, []string{"sub_10", "10"}, s.Names())
	require.Equal(t, 2, s.Len())

	name, lines, ok := s.Match("_sub_10")
	require.True(t, ok)
	require.Equal(t, "sub_10", name)
	require.Same(t, second, lines)

	name, _, ok = s.Match("x10")
	require.True(t, ok)
	require.Equal(t, "10", name)

	_, _, ok = s.Match("sub_20")
	require.False(t, ok)

	got, ok := s.Lookup("10")
	require.True(t, ok)
	require.Same(t, second, got)
}
