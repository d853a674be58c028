package ir

import (
	"fmt"
	"io"

	"gopkg.in/yaml.v3"
)

type moduleDesc struct {
	Name      string         `yaml:"name"`
	Functions []functionDesc `yaml:"functions"`
}

type functionDesc struct {
	Name   string      `yaml:"name"`
	Origin string      `yaml:"origin"`
	Blocks []blockDesc `yaml:"blocks"`
}

type blockDesc struct {
	Name         string            `yaml:"name"`
	Instructions []instructionDesc `yaml:"instructions"`
}

type instructionDesc struct {
	Op   string `yaml:"op"`
	Addr uint64 `yaml:"addr"`
}

// Load decodes a YAML module description and validates it. Functions
// without an explicit origin are lifted.
//
//	name: example
//	functions:
//	  - name: sub_401000
//	    blocks:
//	      - name: block_401000
//	        instructions:
//	          - {op: load, addr: 0x401000}
func Load(r io.Reader) (*Module, error) {
	var desc moduleDesc
	dec := yaml.NewDecoder(r)
	dec.KnownFields(true)
	if err := dec.Decode(&desc); err != nil {
		return nil, fmt.Errorf("decoding module: %w", err)
	}

	m := NewModule(desc.Name)
	for _, fd := range desc.Functions {
		origin := OriginLifted
		if fd.Origin != "" {
			var err error
			if origin, err = ParseOrigin(fd.Origin); err != nil {
				return nil, fmt.Errorf("function %q: %w", fd.Name, err)
			}
		}
		f := m.NewFunction(fd.Name, origin)
		for _, bd := range fd.Blocks {
			b := f.NewBlock(bd.Name)
			for _, id := range bd.Instructions {
				b.Append(id.Op, id.Addr)
			}
		}
	}
	if err := m.Validate(); err != nil {
		return nil, fmt.Errorf("invalid module %q: %w", m.Name, err)
	}
	return m, nil
}
