package dbgloc

import (
	"strconv"
	"strings"

	"github.com/grafana/dbgloc/pkg/debuginfo"
	"github.com/grafana/dbgloc/pkg/ir"
)

// Propagator fills and corrects the locations of one already built function
// from a location map, one block at a time.
type Propagator struct {
	fn        *ir.Function
	lines     *Lines
	separator string
}

func NewPropagator(fn *ir.Function, lines *Lines, separator string) *Propagator {
	if separator == "" {
		separator = "_"
	}
	return &Propagator{fn: fn, lines: lines, separator: separator}
}

// Address returns the address encoded in the block name after the first
// separator. Names without one, or encoding zero, have no address.
func (p *Propagator) Address(b *ir.Block) (uint64, bool) {
	return blockAddress(b.Name, p.separator)
}

func blockAddress(name, separator string) (uint64, bool) {
	_, suffix, ok := strings.Cut(name, separator)
	if !ok {
		return 0, false
	}
	if len(suffix) > 1 && suffix[0] == '0' && (suffix[1] == 'x' || suffix[1] == 'X') {
		suffix = suffix[2:]
	}
	if end := strings.IndexFunc(suffix, func(r rune) bool { return !isHexDigit(r) }); end >= 0 {
		suffix = suffix[:end]
	}
	addr, err := strconv.ParseUint(suffix, 16, 64)
	if err != nil || addr == 0 {
		return 0, false
	}
	return addr, true
}

func isHexDigit(r rune) bool {
	return '0' <= r && r <= '9' || 'a' <= r && r <= 'f' || 'A' <= r && r <= 'F'
}

// ExactLine returns the location recorded at the block's own address.
func (p *Propagator) ExactLine(b *ir.Block) *debuginfo.Location {
	addr, ok := p.Address(b)
	if !ok {
		return nil
	}
	return p.lines.Get(addr)
}

// NearestPrecedingLine returns the location recorded at the closest address
// below the block's address, nil if the block precedes every entry.
func (p *Propagator) NearestPrecedingLine(b *ir.Block) *debuginfo.Location {
	addr, ok := p.Address(b)
	if !ok {
		return nil
	}
	return p.lines.Preceding(addr)
}

// Init returns the location a block starts with.
func (p *Propagator) Init(b *ir.Block) *debuginfo.Location {
	if exact := p.ExactLine(b); exact != nil {
		return exact
	}
	return p.NearestPrecedingLine(b)
}

// Run processes every block, unless the first instruction of the function
// carries no location. It reports whether any block was processed.
func (p *Propagator) Run() bool {
	entry := p.fn.Entry()
	if entry == nil {
		return false
	}
	if first := entry.First(); first == nil || first.DebugLoc() == nil {
		return false
	}
	for _, b := range p.fn.Blocks {
		p.Work(b)
	}
	return true
}

// Work walks b carrying the best known location. Located instructions whose
// line does not advance past it are overwritten with it; the others become
// the new best. Unlocated instructions receive it.
func (p *Propagator) Work(b *ir.Block) {
	current := p.Init(b)
	for _, inst := range b.Insts {
		loc := inst.DebugLoc()
		switch {
		case loc != nil && current != nil && loc.Line <= current.Line:
			inst.SetDebugLoc(current)
		case loc != nil:
			current = loc
		case current != nil:
			inst.SetDebugLoc(current)
		}
	}
}
