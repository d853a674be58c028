package dbgloc

import (
	"github.com/grafana/dbgloc/pkg/debuginfo"
	"github.com/grafana/dbgloc/pkg/ir"
)

// Cursor paints locations forward while a function is emitted in address
// order. It is either uninitialized, and resolves to the first instruction
// of its block on the next propagation, or positioned at an instruction.
type Cursor struct {
	block   *ir.Block
	current *ir.Instruction
	pending *debuginfo.Location
}

// Reset clears every location in fn and positions the cursor at the last
// instruction of the entry block. That instruction is not painted.
func (c *Cursor) Reset(fn *ir.Function) {
	fn.Instructions(func(inst *ir.Instruction) {
		inst.SetDebugLoc(nil)
	})
	c.pending = nil
	c.block = fn.Entry()
	c.current = nil
	if c.block != nil {
		c.current = c.block.Last()
	}
}

// SetBlock switches to b and leaves the cursor uninitialized.
func (c *Cursor) SetBlock(b *ir.Block) {
	c.block = b
	c.current = nil
}

// PropagateForward assigns loc to every instruction after the cursor up to
// the end of the block and moves the cursor to the block's last instruction.
// A cursor already at the end of its block only records loc as pending.
func (c *Cursor) PropagateForward(loc *debuginfo.Location) {
	c.pending = loc
	if c.block == nil {
		return
	}
	if c.current == nil {
		c.current = c.block.First()
		if c.current == nil {
			return
		}
	}

	i := c.block.Index(c.current)
	if i < 0 {
		// The instruction was removed from the block; restart from its head.
		c.current = c.block.First()
		if c.current == nil {
			return
		}
		i = 0
	}
	if i+1 >= len(c.block.Insts) {
		return
	}
	for _, inst := range c.block.Insts[i+1:] {
		inst.SetDebugLoc(loc)
	}
	c.current = c.block.Last()
}

func (c *Cursor) Block() *ir.Block { return c.block }

// Current returns the instruction the cursor is positioned at, nil while
// uninitialized.
func (c *Cursor) Current() *ir.Instruction { return c.current }

// Pending returns the location most recently handed to PropagateForward.
func (c *Cursor) Pending() *debuginfo.Location { return c.pending }
