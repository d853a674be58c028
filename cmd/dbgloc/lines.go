package main

import (
	"context"
	"fmt"
	"strconv"

	"github.com/olekukonko/tablewriter"
	"github.com/spf13/afero"
	"gopkg.in/alecthomas/kingpin.v2"

	"github.com/grafana/dbgloc/pkg/debuginfo"
	"github.com/grafana/dbgloc/pkg/linetable"
)

type linesParams struct {
	file string
}

func addLinesParams(cmd *kingpin.CmdClause) *linesParams {
	params := &linesParams{}
	cmd.Arg("file", "Address to line table.").Required().StringVar(&params.file)
	return params
}

func printLines(ctx context.Context, fs afero.Fs, conf *config, params *linesParams) error {
	table := linetable.New(conf.LineTable, debuginfo.NewMetadataBuilder(logger), logger)
	if err := table.Parse(fs, params.file); err != nil {
		return err
	}

	out := output(ctx)
	dirs := tablewriter.NewWriter(out)
	dirs.SetHeader([]string{"Filename", "Directory"})
	for _, d := range table.Directories() {
		dirs.Append([]string{d.Filename, d.Name})
	}
	dirs.Render()

	records := tablewriter.NewWriter(out)
	records.SetHeader([]string{"Address", "Line"})
	for _, e := range table.Entries() {
		records.Append([]string{fmt.Sprintf("0x%x", e.Addr), strconv.FormatUint(uint64(e.Line), 10)})
	}
	records.Render()

	fmt.Fprintf(out, "%d records, %d directories\n", table.Len(), len(table.Directories()))
	return nil
}
