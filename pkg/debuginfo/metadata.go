package debuginfo

import (
	"errors"
	"fmt"
	"io"
	"strings"

	"github.com/go-kit/log"
	"github.com/go-kit/log/level"
	"github.com/hashicorp/go-multierror"
)

var (
	ErrAlreadyFinalized = errors.New("debug info builder already finalized")
	ErrNoCompileUnit    = errors.New("subprograms created without a compile unit")
)

// MetadataBuilder is an in-memory Builder. Nodes receive sequential IDs in
// creation order and can be rendered as LLVM metadata text.
type MetadataBuilder struct {
	logger log.Logger

	nextID      uint64
	nodes       []Node
	units       []*CompileUnit
	subprograms []*Subprogram

	finalized bool
	late      int
}

func NewMetadataBuilder(logger log.Logger) *MetadataBuilder {
	if logger == nil {
		logger = log.NewNopLogger()
	}
	return &MetadataBuilder{logger: logger}
}

func (b *MetadataBuilder) add(n Node) {
	if b.finalized {
		b.late++
		level.Warn(b.logger).Log("msg", "debug metadata node created after finalize", "id", n.ID())
	}
	b.nodes = append(b.nodes, n)
}

func (b *MetadataBuilder) next() node {
	n := node{id: b.nextID}
	b.nextID++
	return n
}

func (b *MetadataBuilder) CreateFile(filename, directory string) *File {
	f := &File{node: b.next(), Filename: filename, Directory: directory}
	b.add(f)
	return f
}

func (b *MetadataBuilder) CreateCompileUnit(lang Language, file *File, producer string, optimized bool, flags string, runtimeVersion uint32) *CompileUnit {
	cu := &CompileUnit{
		node:           b.next(),
		Language:       lang,
		File:           file,
		Producer:       producer,
		Optimized:      optimized,
		Flags:          flags,
		RuntimeVersion: runtimeVersion,
	}
	b.add(cu)
	b.units = append(b.units, cu)
	return cu
}

func (b *MetadataBuilder) CreateSubroutineType(params []Node) *SubroutineType {
	t := &SubroutineType{node: b.next(), Params: params}
	b.add(t)
	return t
}

func (b *MetadataBuilder) CreateSubprogram(scope Node, name string, file *File, line uint32, typ *SubroutineType, isLocal, isDefinition bool, scopeLine uint32) *Subprogram {
	sp := &Subprogram{
		node:         b.next(),
		Scope:        scope,
		Name:         name,
		File:         file,
		Line:         line,
		Type:         typ,
		IsLocal:      isLocal,
		IsDefinition: isDefinition,
		ScopeLine:    scopeLine,
	}
	b.add(sp)
	b.subprograms = append(b.subprograms, sp)
	return sp
}

func (b *MetadataBuilder) CreateLocation(line, column uint32, scope *Subprogram) *Location {
	l := &Location{node: b.next(), Line: line, Column: column, Scope: scope}
	b.add(l)
	return l
}

// Finalize attaches every subprogram to the first compile unit. Calling it
// again, or creating nodes after it, is reported as an error.
func (b *MetadataBuilder) Finalize() error {
	var result error
	if b.finalized {
		result = multierror.Append(result, ErrAlreadyFinalized)
	}
	if b.late > 0 {
		result = multierror.Append(result, fmt.Errorf("%d nodes created after finalize", b.late))
		b.late = 0
	}
	b.finalized = true

	if len(b.units) == 0 {
		if len(b.subprograms) > 0 {
			result = multierror.Append(result, ErrNoCompileUnit)
		}
		return result
	}
	cu := b.units[0]
	for _, sp := range b.subprograms {
		if sp.Unit == nil {
			sp.Unit = cu
		}
	}
	level.Debug(b.logger).Log("msg", "debug info finalized", "nodes", len(b.nodes), "subprograms", len(b.subprograms))
	return result
}

// Nodes returns all nodes in creation order.
func (b *MetadataBuilder) Nodes() []Node {
	return b.nodes
}

var languageNames = map[Language]string{
	LangC89:         "DW_LANG_C89",
	LangC:           "DW_LANG_C",
	LangCPlusPlus:   "DW_LANG_C_plus_plus",
	LangC99:         "DW_LANG_C99",
	LangCPlusPlus11: "DW_LANG_C_plus_plus_11",
}

func (l Language) String() string {
	if s, ok := languageNames[l]; ok {
		return s
	}
	return fmt.Sprintf("0x%04x", uint16(l))
}

func ref(n Node) string {
	if n == nil {
		return "null"
	}
	return fmt.Sprintf("!%d", n.ID())
}

// WriteTo renders the nodes in LLVM metadata syntax, one per line.
func (b *MetadataBuilder) WriteTo(w io.Writer) (int64, error) {
	var total int64
	for _, n := range b.nodes {
		written, err := fmt.Fprintf(w, "!%d = %s\n", n.ID(), render(n))
		total += int64(written)
		if err != nil {
			return total, err
		}
	}
	return total, nil
}

func render(n Node) string {
	switch n := n.(type) {
	case *File:
		return fmt.Sprintf("!DIFile(filename: %q, directory: %q)", n.Filename, n.Directory)
	case *CompileUnit:
		return fmt.Sprintf("distinct !DICompileUnit(language: %s, file: %s, producer: %q, isOptimized: %t, flags: %q, runtimeVersion: %d)",
			n.Language, ref(fileNode(n.File)), n.Producer, n.Optimized, n.Flags, n.RuntimeVersion)
	case *SubroutineType:
		types := make([]string, 0, len(n.Params))
		for _, p := range n.Params {
			types = append(types, ref(p))
		}
		return fmt.Sprintf("!DISubroutineType(types: !{%s})", strings.Join(types, ", "))
	case *Subprogram:
		var flags []string
		if n.IsLocal {
			flags = append(flags, "DISPFlagLocalToUnit")
		}
		if n.IsDefinition {
			flags = append(flags, "DISPFlagDefinition")
		}
		spFlags := "0"
		if len(flags) > 0 {
			spFlags = strings.Join(flags, " | ")
		}
		var unit, typ Node
		if n.Unit != nil {
			unit = n.Unit
		}
		if n.Type != nil {
			typ = n.Type
		}
		return fmt.Sprintf("distinct !DISubprogram(name: %q, scope: %s, file: %s, line: %d, type: %s, scopeLine: %d, spFlags: %s, unit: %s)",
			n.Name, ref(n.Scope), ref(fileNode(n.File)), n.Line, ref(typ), n.ScopeLine, spFlags, ref(unit))
	case *Location:
		var scope Node
		if n.Scope != nil {
			scope = n.Scope
		}
		return fmt.Sprintf("!DILocation(line: %d, column: %d, scope: %s)", n.Line, n.Column, ref(scope))
	default:
		return fmt.Sprintf("!{} ; unknown node %T", n)
	}
}

// fileNode avoids wrapping a nil *File in a non-nil Node.
func fileNode(f *File) Node {
	if f == nil {
		return nil
	}
	return f
}
