package ir

import (
	"fmt"

	"github.com/hashicorp/go-multierror"
	"github.com/samber/lo"
)

// Validate reports structural problems that make names ambiguous or leave
// lifted functions without a body. All problems are returned together.
func (m *Module) Validate() error {
	var result error

	names := lo.Map(m.Funcs, func(f *Function, _ int) string { return f.name })
	for _, name := range lo.FindDuplicates(names) {
		result = multierror.Append(result, fmt.Errorf("duplicate function name %q", name))
	}

	for _, f := range m.Funcs {
		if f.name == "" {
			result = multierror.Append(result, fmt.Errorf("function without a name"))
		}
		if f.Origin == OriginLifted && len(f.Blocks) == 0 {
			result = multierror.Append(result, fmt.Errorf("lifted function %q has no blocks", f.name))
		}
		blocks := lo.Map(f.Blocks, func(b *Block, _ int) string { return b.Name })
		for _, name := range lo.FindDuplicates(blocks) {
			result = multierror.Append(result, fmt.Errorf("function %q: duplicate block name %q", f.name, name))
		}
	}
	return result
}
