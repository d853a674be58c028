package dbgloc

import (
	"iter"
	"sort"
	"strings"

	"github.com/grafana/dbgloc/pkg/debuginfo"
)

// Lines maps addresses to debug locations, ordered by address.
type Lines struct {
	addrs []uint64
	locs  []*debuginfo.Location
}

func (l *Lines) Len() int {
	if l == nil {
		return 0
	}
	return len(l.addrs)
}

// lowerBound returns the index of the first address >= addr.
func (l *Lines) lowerBound(addr uint64) int {
	return sort.Search(len(l.addrs), func(i int) bool {
		return l.addrs[i] >= addr
	})
}

// Get returns the location stored at exactly addr.
func (l *Lines) Get(addr uint64) *debuginfo.Location {
	if l.Len() == 0 {
		return nil
	}
	i := l.lowerBound(addr)
	if i < len(l.addrs) && l.addrs[i] == addr {
		return l.locs[i]
	}
	return nil
}

// Insert stores loc at addr unless addr is already present.
func (l *Lines) Insert(addr uint64, loc *debuginfo.Location) bool {
	i := l.lowerBound(addr)
	if i < len(l.addrs) && l.addrs[i] == addr {
		return false
	}
	l.addrs = append(l.addrs, 0)
	copy(l.addrs[i+1:], l.addrs[i:])
	l.addrs[i] = addr
	l.locs = append(l.locs, nil)
	copy(l.locs[i+1:], l.locs[i:])
	l.locs[i] = loc
	return true
}

// Preceding returns the location of the greatest address strictly below
// addr, or nil when addr precedes every entry.
func (l *Lines) Preceding(addr uint64) *debuginfo.Location {
	if l.Len() == 0 {
		return nil
	}
	i := l.lowerBound(addr)
	if i == 0 {
		return nil
	}
	return l.locs[i-1]
}

// All iterates entries in ascending address order.
func (l *Lines) All() iter.Seq2[uint64, *debuginfo.Location] {
	return func(yield func(uint64, *debuginfo.Location) bool) {
		if l == nil {
			return
		}
		for i, addr := range l.addrs {
			if !yield(addr, l.locs[i]) {
				return
			}
		}
	}
}

func (l *Lines) Clone() *Lines {
	if l == nil {
		return &Lines{}
	}
	return &Lines{
		addrs: append([]uint64(nil), l.addrs...),
		locs:  append([]*debuginfo.Location(nil), l.locs...),
	}
}

// Snapshot holds location maps keyed by function name. It outlives the
// function objects it was taken from.
type Snapshot struct {
	names []string
	lines map[string]*Lines
}

func newSnapshot() *Snapshot {
	return &Snapshot{lines: make(map[string]*Lines)}
}

func (s *Snapshot) put(name string, lines *Lines) {
	if _, ok := s.lines[name]; !ok {
		s.names = append(s.names, name)
	}
	s.lines[name] = lines
}

func (s *Snapshot) Len() int {
	return len(s.names)
}

// Names returns the petrified names in petrification order.
func (s *Snapshot) Names() []string {
	return s.names
}

func (s *Snapshot) Lookup(name string) (*Lines, bool) {
	l, ok := s.lines[name]
	return l, ok
}

// Match returns the first petrified entry, in petrification order, whose
// name is a suffix of fnName.
func (s *Snapshot) Match(fnName string) (string, *Lines, bool) {
	for _, name := range s.names {
		if strings.HasSuffix(fnName, name) {
			return name, s.lines[name], true
		}
	}
	return "", nil, false
}
