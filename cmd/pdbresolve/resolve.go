package main

import (
	"context"
	"fmt"
	"os"
	"strconv"

	"github.com/dustin/go-humanize"
	"github.com/fatih/color"
	"github.com/go-kit/log/level"
	"github.com/olekukonko/tablewriter"

	"github.com/grafana/pdbresolve/pkg/resolver"
)

type resolveParams struct {
	path      string
	className string
	method    string
	offset    uint32
}

func addResolveParams(cmd commander) *resolveParams {
	params := new(resolveParams)
	cmd.Arg("file", "pdbx file path").Required().ExistingFileVar(&params.path)
	cmd.Arg("class", "Fully qualified class name, e.g. MyApp.Services.OrderService").Required().StringVar(&params.className)
	cmd.Arg("method", "Method name").Required().StringVar(&params.method)
	cmd.Flag("offset", "IL offset within the method.").Default("0").Uint32Var(&params.offset)
	return params
}

func openResolver(path string) (*resolver.Resolver, error) {
	return resolver.Open(path, resolver.WithLogger(logger))
}

func resolve(ctx context.Context, params *resolveParams) error {
	r, err := openResolver(params.path)
	if err != nil {
		return err
	}
	loc, err := r.FindLocationAt(params.className, params.method, params.offset)
	if err != nil {
		return err
	}
	out := output(ctx)
	if loc == nil {
		level.Debug(logger).Log("msg", "method not indexed", "class", params.className, "method", params.method)
		fmt.Fprintf(out, "%s.%s+IL_0x%x: %s\n", params.className, params.method, params.offset, color.YellowString("no source mapping"))
		return nil
	}
	fmt.Fprintf(out, "%s (%s)\n", color.GreenString(loc.String()), loc.Language)
	return nil
}

func info(ctx context.Context, path string) error {
	stat, err := os.Stat(path)
	if err != nil {
		return err
	}
	r, err := openResolver(path)
	if err != nil {
		return err
	}

	sourceServer := "no"
	if r.SourceServerData() != "" {
		sourceServer = "yes (" + humanize.Bytes(uint64(len(r.SourceServerData()))) + ")"
	}

	out := output(ctx)
	fmt.Fprintln(out, "Debug ID:      ", color.CyanString(r.DebugID().String()))
	fmt.Fprintln(out, "GUID:          ", r.GUID())
	fmt.Fprintln(out, "Age:           ", r.Age())
	fmt.Fprintln(out, "Source server: ", sourceServer)
	fmt.Fprintln(out, "Methods:       ", humanize.Comma(int64(r.Len())))
	fmt.Fprintln(out, "File size:     ", humanize.Bytes(uint64(stat.Size())))
	return nil
}

func methods(ctx context.Context, path string) error {
	r, err := openResolver(path)
	if err != nil {
		return err
	}

	table := tablewriter.NewWriter(output(ctx))
	table.SetHeader([]string{"Module", "Method", "Blocks", "First line"})
	for _, m := range r.Methods() {
		firstLine := "-"
		if blocks := r.Blocks(m.Module, m.Name); len(blocks) > 0 {
			firstLine = blocks[0].File + ":" + strconv.FormatUint(uint64(blocks[0].Line), 10)
		}
		table.Append([]string{m.Module, m.Name, strconv.Itoa(m.Blocks), firstLine})
	}
	table.Render()
	return nil
}
