// Package debuginfo describes the debug metadata nodes attached to lifted
// instructions and the facility that constructs them.
//
// Nodes are opaque to most callers: the location cache only needs to hand
// them to instructions and to compare location line numbers.
package debuginfo

// Language is a DWARF source language code recorded on a compile unit.
type Language uint16

const (
	LangC89         Language = 0x0001
	LangC           Language = 0x0002
	LangCPlusPlus   Language = 0x0004
	LangC99         Language = 0x000c
	LangCPlusPlus11 Language = 0x001a
)

// Node is any debug metadata node. IDs are unique within one Builder.
type Node interface {
	ID() uint64
}

type node struct {
	id uint64
}

func (n node) ID() uint64 { return n.id }

// File is a source file within a directory.
type File struct {
	node
	Filename  string
	Directory string
}

// CompileUnit is the root scope every subprogram belongs to.
type CompileUnit struct {
	node
	Language       Language
	File           *File
	Producer       string
	Optimized      bool
	Flags          string
	RuntimeVersion uint32
}

// SubroutineType is the signature of a subprogram. A nil entry in Params
// denotes a void return type.
type SubroutineType struct {
	node
	Params []Node
}

// Subprogram is the debug scope of one function.
type Subprogram struct {
	node
	Scope        Node
	Name         string
	File         *File
	Line         uint32
	Type         *SubroutineType
	IsLocal      bool
	IsDefinition bool
	ScopeLine    uint32
	// Unit is set when the builder is finalized.
	Unit *CompileUnit
}

// Location binds a line and column to a subprogram scope.
type Location struct {
	node
	Line   uint32
	Column uint32
	Scope  *Subprogram
}

// Builder constructs debug metadata nodes. Finalize is called once, when the
// owner of the builder is done creating nodes.
type Builder interface {
	CreateFile(filename, directory string) *File
	CreateCompileUnit(lang Language, file *File, producer string, optimized bool, flags string, runtimeVersion uint32) *CompileUnit
	CreateSubroutineType(params []Node) *SubroutineType
	CreateSubprogram(scope Node, name string, file *File, line uint32, typ *SubroutineType, isLocal, isDefinition bool, scopeLine uint32) *Subprogram
	CreateLocation(line, column uint32, scope *Subprogram) *Location
	Finalize() error
}
