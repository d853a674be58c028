package dbgloc

import (
	"github.com/go-kit/log/level"

	"github.com/grafana/dbgloc/pkg/debuginfo"
	"github.com/grafana/dbgloc/pkg/ir"
)

// Annotate resolves the location of addr and paints it forward from the
// cursor of the current forward fill session.
func (c *Cache) Annotate(fn *ir.Function, addr uint64) {
	c.cursor.PropagateForward(c.Fetch(fn, addr))
}

// OneBlockAnnotate assigns the location of addr to every instruction of b
// that has none.
func (c *Cache) OneBlockAnnotate(fn *ir.Function, b *ir.Block, addr uint64) {
	loc := c.Fetch(fn, addr)
	if loc == nil {
		return
	}
	for _, inst := range b.Insts {
		if inst.DebugLoc() == nil {
			inst.SetDebugLoc(loc)
		}
	}
}

// FillMissing runs a Propagator over every function of m whose name ends
// with a petrified name, using that name's location map. The first match in
// petrification order wins.
func (c *Cache) FillMissing(m *ir.Module) {
	for _, fn := range m.Funcs {
		name, lines, ok := c.snapshot.Match(fn.Name())
		if !ok {
			c.metrics.backfillFunctions.WithLabelValues(backfillUnmatched).Inc()
			continue
		}
		if NewPropagator(fn, lines, c.cfg.BlockAddressSeparator).Run() {
			c.metrics.backfillFunctions.WithLabelValues(backfillFilled).Inc()
			level.Debug(c.logger).Log("msg", "backfilled function", "function", fn.Name(), "petrified", name, "lines", lines.Len())
			continue
		}
		c.metrics.backfillFunctions.WithLabelValues(backfillSkipped).Inc()
		level.Debug(c.logger).Log("msg", "function has no leading location, not backfilled", "function", fn.Name())
	}
}

// FillFunc copies, within each block of fn, the location of the closest
// located instruction onto the unlocated instructions that follow it.
func FillFunc(fn *ir.Function) {
	for _, b := range fn.Blocks {
		var current *debuginfo.Location
		for _, inst := range b.Insts {
			if loc := inst.DebugLoc(); loc != nil {
				current = loc
			} else if current != nil {
				inst.SetDebugLoc(current)
			}
		}
	}
}
