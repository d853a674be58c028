// Package ir is the control-flow graph representation lifted functions are
// built into. It carries just enough structure for debug locations to be
// attached to instructions: names, block order and instruction order.
package ir

import (
	"fmt"
	"slices"

	"github.com/grafana/dbgloc/pkg/debuginfo"
)

// Origin records where a function came from.
type Origin uint8

const (
	OriginUnknown Origin = iota
	// OriginLifted marks functions reconstructed from machine code.
	OriginLifted
	// OriginExternal marks declarations and helpers not backed by lifted code.
	OriginExternal
)

var originNames = []string{"unknown", "lifted", "external"}

func (o Origin) String() string {
	if int(o) < len(originNames) {
		return originNames[o]
	}
	return fmt.Sprintf("origin(%d)", uint8(o))
}

func ParseOrigin(s string) (Origin, error) {
	if i := slices.Index(originNames, s); i >= 0 {
		return Origin(i), nil
	}
	return OriginUnknown, fmt.Errorf("unknown function origin %q", s)
}

type Instruction struct {
	Op string
	// Addr is the machine address the instruction was lifted from, zero for
	// synthesized instructions.
	Addr uint64

	loc    *debuginfo.Location
	parent *Block
}

func (i *Instruction) DebugLoc() *debuginfo.Location { return i.loc }

func (i *Instruction) SetDebugLoc(loc *debuginfo.Location) { i.loc = loc }

func (i *Instruction) Parent() *Block { return i.parent }

type Block struct {
	Name  string
	Insts []*Instruction

	parent *Function
}

// Append adds a new instruction at the end of the block.
func (b *Block) Append(op string, addr uint64) *Instruction {
	inst := &Instruction{Op: op, Addr: addr, parent: b}
	b.Insts = append(b.Insts, inst)
	return inst
}

func (b *Block) Parent() *Function { return b.parent }

// Index returns the position of inst in the block, or -1.
func (b *Block) Index(inst *Instruction) int {
	return slices.Index(b.Insts, inst)
}

func (b *Block) First() *Instruction {
	if len(b.Insts) == 0 {
		return nil
	}
	return b.Insts[0]
}

func (b *Block) Last() *Instruction {
	if len(b.Insts) == 0 {
		return nil
	}
	return b.Insts[len(b.Insts)-1]
}

type Function struct {
	Origin Origin
	Blocks []*Block

	name string
}

func NewFunction(name string, origin Origin) *Function {
	return &Function{name: name, Origin: origin}
}

func (f *Function) Name() string { return f.name }

// SetName renames the function in place; its identity is unchanged.
func (f *Function) SetName(name string) { f.name = name }

func (f *Function) NewBlock(name string) *Block {
	b := &Block{Name: name, parent: f}
	f.Blocks = append(f.Blocks, b)
	return b
}

// Entry returns the first block, or nil for a declaration.
func (f *Function) Entry() *Block {
	if len(f.Blocks) == 0 {
		return nil
	}
	return f.Blocks[0]
}

// Instructions calls fn for every instruction in block order.
func (f *Function) Instructions(fn func(*Instruction)) {
	for _, b := range f.Blocks {
		for _, inst := range b.Insts {
			fn(inst)
		}
	}
}

// Clone returns a structurally identical function with a new identity. Debug
// locations are copied.
func (f *Function) Clone(name string) *Function {
	c := NewFunction(name, f.Origin)
	for _, b := range f.Blocks {
		nb := c.NewBlock(b.Name)
		for _, inst := range b.Insts {
			ni := nb.Append(inst.Op, inst.Addr)
			ni.loc = inst.loc
		}
	}
	return c
}

type Module struct {
	Name  string
	Funcs []*Function
}

func NewModule(name string) *Module {
	return &Module{Name: name}
}

func (m *Module) NewFunction(name string, origin Origin) *Function {
	f := NewFunction(name, origin)
	m.Funcs = append(m.Funcs, f)
	return f
}

// Func returns the function with the given name, or nil.
func (m *Module) Func(name string) *Function {
	for _, f := range m.Funcs {
		if f.name == name {
			return f
		}
	}
	return nil
}

// RemoveFunction drops f from the module and reports whether it was present.
func (m *Module) RemoveFunction(f *Function) bool {
	i := slices.Index(m.Funcs, f)
	if i < 0 {
		return false
	}
	m.Funcs = slices.Delete(m.Funcs, i, i+1)
	return true
}

// Replace swaps old for fresh in place, keeping function order.
func (m *Module) Replace(old, fresh *Function) bool {
	i := slices.Index(m.Funcs, old)
	if i < 0 {
		return false
	}
	m.Funcs[i] = fresh
	return true
}
