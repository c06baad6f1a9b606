package main

import (
	"bytes"
	"context"
	"fmt"
	"io"
	"os"

	"github.com/go-kit/log/level"
	"github.com/google/uuid"
	"gopkg.in/yaml.v3"

	"github.com/grafana/pdbresolve/pdbx"
	"github.com/grafana/pdbresolve/pkg/pdb"
)

type packParams struct {
	src         string
	dst         string
	compression string
}

func addPackParams(cmd commander) *packParams {
	params := new(packParams)
	cmd.Arg("src", "YAML listing of decoded symbols.").Required().ExistingFileVar(&params.src)
	cmd.Arg("dst", "Destination pdbx file.").Required().StringVar(&params.dst)
	cmd.Flag("compression", "Compression of the written file: none, gzip or zstd.").Default("zstd").EnumVar(&params.compression, "none", "gzip", "zstd")
	return params
}

// symbolListing is the YAML form of decoded symbols, as exported by
// external PDB readers or written by hand for fixtures.
type symbolListing struct {
	GUID             string            `yaml:"guid"`
	Age              uint32            `yaml:"age"`
	SourceServerData string            `yaml:"source_server_data"`
	Functions        []functionListing `yaml:"functions"`
}

type functionListing struct {
	Module string         `yaml:"module"`
	Name   string         `yaml:"name"`
	Groups []groupListing `yaml:"groups"`
}

type groupListing struct {
	File string `yaml:"file"`
	// Language is a display name such as "C#" or a GUID.
	Language string        `yaml:"language"`
	Lines    []lineListing `yaml:"lines"`
}

type lineListing struct {
	Offset uint32 `yaml:"offset"`
	Line   uint32 `yaml:"line"`
}

func parseLanguage(s string) (uuid.UUID, error) {
	if s == "" {
		return uuid.Nil, nil
	}
	if id, ok := pdb.LanguageByName(s); ok {
		return id, nil
	}
	id, err := uuid.Parse(s)
	if err != nil {
		return uuid.Nil, fmt.Errorf("unknown language %q", s)
	}
	return id, nil
}

func (l *symbolListing) info() (*pdb.Info, error) {
	info := &pdb.Info{
		Age:              l.Age,
		SourceServerData: l.SourceServerData,
		Functions:        make([]pdb.Function, 0, len(l.Functions)),
	}
	if l.GUID != "" {
		guid, err := uuid.Parse(l.GUID)
		if err != nil {
			return nil, fmt.Errorf("invalid guid: %w", err)
		}
		info.GUID = guid
	}

	for _, f := range l.Functions {
		fn := pdb.Function{Module: f.Module, Name: f.Name}
		for _, g := range f.Groups {
			lang, err := parseLanguage(g.Language)
			if err != nil {
				return nil, fmt.Errorf("%s.%s: %w", f.Module, f.Name, err)
			}
			group := pdb.LineGroup{File: g.File, Language: lang}
			for _, ln := range g.Lines {
				group.Lines = append(group.Lines, pdb.Line{Offset: ln.Offset, Line: ln.Line})
			}
			fn.Lines = append(fn.Lines, group)
		}
		info.Functions = append(info.Functions, fn)
	}
	return info, nil
}

func readListing(r io.Reader) (*pdb.Info, error) {
	var l symbolListing
	dec := yaml.NewDecoder(r)
	dec.KnownFields(true)
	if err := dec.Decode(&l); err != nil && err != io.EOF {
		return nil, err
	}
	return l.info()
}

func pack(_ context.Context, params *packParams) error {
	c, err := pdbx.ParseCompression(params.compression)
	if err != nil {
		return err
	}

	src, err := os.Open(params.src)
	if err != nil {
		return err
	}
	defer src.Close()
	info, err := readListing(src)
	if err != nil {
		return fmt.Errorf("read %s: %w", params.src, err)
	}

	var buf bytes.Buffer
	if err := pdbx.Write(&buf, info, pdbx.WithCompression(c)); err != nil {
		return err
	}
	if err := os.WriteFile(params.dst, buf.Bytes(), 0o644); err != nil {
		return err
	}
	level.Info(logger).Log("msg", "symbol file written", "path", params.dst, "debug_id", info.DebugID(), "methods", len(info.Functions), "compression", c)
	return nil
}
