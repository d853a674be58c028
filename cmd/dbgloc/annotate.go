package main

import (
	"context"
	"fmt"
	"io"

	"github.com/fatih/color"
	"github.com/go-kit/log/level"
	"github.com/pkg/errors"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/samber/lo"
	"github.com/spf13/afero"
	"gopkg.in/alecthomas/kingpin.v2"

	"github.com/grafana/dbgloc/pkg/dbgloc"
	"github.com/grafana/dbgloc/pkg/debuginfo"
	"github.com/grafana/dbgloc/pkg/ir"
	"github.com/grafana/dbgloc/pkg/linetable"
)

type annotateParams struct {
	lines        string
	module       string
	recreate     bool
	manglePrefix string
	emitMetadata bool
}

func addAnnotateParams(cmd *kingpin.CmdClause) *annotateParams {
	params := &annotateParams{}
	cmd.Flag("lines", "Address to line table.").Required().StringVar(&params.lines)
	cmd.Flag("recreate", "Recreate every function under a mangled name between petrification and backfill.").Default("false").BoolVar(&params.recreate)
	cmd.Flag("mangle-prefix", "Prefix prepended to the names of recreated functions.").Default("_").StringVar(&params.manglePrefix)
	cmd.Flag("emit-metadata", "Print the debug metadata after backfill.").Default("false").BoolVar(&params.emitMetadata)
	cmd.Arg("module", "YAML module description.").Required().StringVar(&params.module)
	return params
}

func annotate(ctx context.Context, fs afero.Fs, conf *config, params *annotateParams) error {
	dib := debuginfo.NewMetadataBuilder(logger)
	table := linetable.New(conf.LineTable, dib, logger)
	if err := table.Parse(fs, params.lines); err != nil {
		return err
	}
	if !table.Is() {
		level.Warn(logger).Log("msg", "line table has no records", "file", params.lines)
	}

	f, err := fs.Open(params.module)
	if err != nil {
		return errors.Wrapf(err, "opening module %s", params.module)
	}
	desc, err := ir.Load(f)
	f.Close()
	if err != nil {
		return errors.Wrapf(err, "loading module %s", params.module)
	}

	cache, err := dbgloc.NewCache(conf.DbgLoc, table, dib, logger, prometheus.NewRegistry())
	if err != nil {
		return err
	}

	m := replay(cache, desc)
	cache.Petrify()
	if params.recreate {
		recreate(m, params.manglePrefix)
	}
	cache.FillMissing(m)
	if err := cache.Close(); err != nil {
		return errors.Wrap(err, "finalizing debug info")
	}

	out := output(ctx)
	printModule(out, m)
	if params.emitMetadata {
		if _, err := dib.WriteTo(out); err != nil {
			return err
		}
	}
	return nil
}

// replay rebuilds desc instruction by instruction the way a lifter emits it,
// annotating after every run of instructions sharing an address. Leading
// instructions of the entry block with no address form the prologue, which is
// annotated once the function is complete.
func replay(cache *dbgloc.Cache, desc *ir.Module) *ir.Module {
	m := ir.NewModule(desc.Name)
	for _, src := range desc.Funcs {
		fn := m.NewFunction(src.Name(), src.Origin)
		cache.CreateSubprogram(fn)
		if len(src.Blocks) == 0 {
			continue
		}

		entry := fn.NewBlock(src.Blocks[0].Name)
		insts := src.Blocks[0].Insts
		for len(insts) > 0 && insts[0].Addr == 0 {
			entry.Append(insts[0].Op, 0)
			insts = insts[1:]
		}
		cache.SetFunction(fn)

		var entryAddr uint64
		for i, sb := range src.Blocks {
			b := entry
			if i > 0 {
				b = fn.NewBlock(sb.Name)
				cache.SetBlock(b)
				insts = sb.Insts
			}
			for len(insts) > 0 {
				addr := insts[0].Addr
				n := 1
				for n < len(insts) && (insts[n].Addr == addr || insts[n].Addr == 0) {
					n++
				}
				for _, inst := range insts[:n] {
					b.Append(inst.Op, inst.Addr)
				}
				if i == 0 && entryAddr == 0 {
					entryAddr = addr
				}
				cache.Annotate(fn, addr)
				insts = insts[n:]
			}
		}
		if entryAddr != 0 {
			cache.OneBlockAnnotate(fn, entry, entryAddr)
		}
	}
	return m
}

func recreate(m *ir.Module, prefix string) {
	for _, fn := range append([]*ir.Function(nil), m.Funcs...) {
		m.Replace(fn, fn.Clone(prefix+fn.Name()))
	}
}

func printModule(out io.Writer, m *ir.Module) {
	missing := color.New(color.FgYellow)
	for _, fn := range m.Funcs {
		insts := lo.FlatMap(fn.Blocks, func(b *ir.Block, _ int) []*ir.Instruction { return b.Insts })
		located := lo.CountBy(insts, func(inst *ir.Instruction) bool { return inst.DebugLoc() != nil })
		fmt.Fprintf(out, "%s (%s) %d/%d located\n", fn.Name(), fn.Origin, located, len(insts))
		for _, b := range fn.Blocks {
			fmt.Fprintf(out, "  %s:\n", b.Name)
			for _, inst := range b.Insts {
				if l := inst.DebugLoc(); l != nil {
					fmt.Fprintf(out, "    0x%-8x %-10s line %d\n", inst.Addr, inst.Op, l.Line)
					continue
				}
				fmt.Fprintf(out, "    0x%-8x %-10s %s\n", inst.Addr, inst.Op, missing.Sprint("-"))
			}
		}
	}
}
