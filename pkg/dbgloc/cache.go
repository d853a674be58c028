// Package dbgloc attaches source debug locations to lifted instructions.
//
// A Cache owns the debug scopes of the functions of one module. During
// lifting, instructions are emitted in address order and Annotate paints the
// location of each crossed address forward onto them. After transformation
// passes, which may delete and recreate functions, Petrify and FillMissing
// restore and propagate locations block by block.
package dbgloc

import (
	"strings"

	"github.com/go-kit/log"
	"github.com/go-kit/log/level"
	"github.com/prometheus/client_golang/prometheus"

	"github.com/grafana/dbgloc/pkg/debuginfo"
	"github.com/grafana/dbgloc/pkg/ir"
	"github.com/grafana/dbgloc/pkg/linetable"
)

type Cache struct {
	cfg     Config
	logger  log.Logger
	metrics *metrics

	table *linetable.Table
	dib   debuginfo.Builder

	// funcs keeps tracked functions in the order their scope was created.
	funcs       []*ir.Function
	subprograms map[*ir.Function]*debuginfo.Subprogram
	lines       map[*ir.Function]*Lines
	snapshot    *Snapshot

	// counter is advanced once per subprogram. Nothing reads it back yet.
	counter uint64

	cursor Cursor
	closed bool
}

func NewCache(cfg Config, table *linetable.Table, dib debuginfo.Builder, logger log.Logger, reg prometheus.Registerer) (*Cache, error) {
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	if logger == nil {
		logger = log.NewNopLogger()
	}
	return &Cache{
		cfg:         cfg,
		logger:      logger,
		metrics:     newMetrics(reg),
		table:       table,
		dib:         dib,
		subprograms: make(map[*ir.Function]*debuginfo.Subprogram),
		lines:       make(map[*ir.Function]*Lines),
		snapshot:    newSnapshot(),
		counter:     cfg.SubprogramCounterSeed,
	}, nil
}

func (c *Cache) eligible(fn *ir.Function) (string, bool) {
	if fn.Origin != ir.OriginLifted {
		return skipOrigin, false
	}
	if c.cfg.ExclusionMarker != "" && strings.Contains(fn.Name(), c.cfg.ExclusionMarker) {
		return skipExcluded, false
	}
	return "", true
}

// CreateSubprogram returns the debug scope of fn, creating it on first use.
// Functions that were not lifted, or whose name carries the exclusion
// marker, never get one.
func (c *Cache) CreateSubprogram(fn *ir.Function) *debuginfo.Subprogram {
	if reason, ok := c.eligible(fn); !ok {
		c.metrics.subprogramsSkipped.WithLabelValues(reason).Inc()
		level.Debug(c.logger).Log("msg", "function not eligible for a debug scope", "function", fn.Name(), "reason", reason)
		return nil
	}
	if sp, ok := c.subprograms[fn]; ok {
		return sp
	}

	file := c.table.FirstFile()
	if file == nil {
		c.metrics.subprogramsSkipped.WithLabelValues(skipNoFile).Inc()
		level.Warn(c.logger).Log("msg", "no source directory registered, cannot scope function", "function", fn.Name())
		return nil
	}

	id := c.counter
	c.counter++

	typ := c.dib.CreateSubroutineType(nil)
	sp := c.dib.CreateSubprogram(file, fn.Name(), file, 0, typ, false, true, 0)
	c.subprograms[fn] = sp
	c.lines[fn] = &Lines{}
	c.funcs = append(c.funcs, fn)

	c.metrics.subprogramsCreated.Inc()
	level.Debug(c.logger).Log("msg", "created subprogram", "function", fn.Name(), "file", file.Filename, "counter", id)
	return sp
}

// CreateLocation materializes the location of addr in fn. Addresses without
// a known line are ignored.
func (c *Cache) CreateLocation(fn *ir.Function, addr uint64) {
	line, ok := c.table.Line(addr)
	if !ok {
		return
	}
	sp := c.CreateSubprogram(fn)
	if sp == nil {
		return
	}
	lines := c.lines[fn]
	if lines.Get(addr) != nil {
		return
	}
	lines.Insert(addr, c.dib.CreateLocation(line, 0, sp))
	c.metrics.locationsCreated.Inc()
}

// Fetch returns the location of addr in fn, or nil if fn has no debug scope
// or addr has no known line.
func (c *Cache) Fetch(fn *ir.Function, addr uint64) *debuginfo.Location {
	if _, ok := c.subprograms[fn]; !ok {
		return nil
	}
	if loc := c.lines[fn].Get(addr); loc != nil {
		return loc
	}
	c.CreateLocation(fn, addr)
	loc := c.lines[fn].Get(addr)
	if loc == nil {
		c.metrics.lookupMisses.Inc()
	}
	return loc
}

// Petrify copies the location map of every tracked function into the
// snapshot under the function's current name. It must run before passes
// that may delete or recreate functions.
func (c *Cache) Petrify() {
	for _, fn := range c.funcs {
		c.snapshot.put(fn.Name(), c.lines[fn].Clone())
	}
	level.Debug(c.logger).Log("msg", "petrified debug locations", "functions", len(c.funcs))
}

func (c *Cache) Snapshot() *Snapshot {
	return c.snapshot
}

// Lines returns the live location map of fn, or nil if fn is not tracked.
func (c *Cache) Lines(fn *ir.Function) *Lines {
	return c.lines[fn]
}

// SetFunction starts a forward fill session over fn.
func (c *Cache) SetFunction(fn *ir.Function) {
	c.cursor.Reset(fn)
}

// SetBlock moves the forward fill session to b.
func (c *Cache) SetBlock(b *ir.Block) {
	c.cursor.SetBlock(b)
}

// Close finalizes the debug info builder. Further calls are no-ops.
func (c *Cache) Close() error {
	if c.closed {
		return nil
	}
	c.closed = true
	return c.dib.Finalize()
}
