package main

import (
	"bufio"
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strconv"
	"strings"

	"github.com/fatih/color"
	"github.com/go-kit/log/level"

	"github.com/grafana/pdbresolve/pkg/pdb"
	"github.com/grafana/pdbresolve/pkg/symbolizer"
)

func newSymbolizer(params *storeParams) (*symbolizer.Symbolizer, error) {
	c, err := loadConfig(cfg.configFile, params)
	if err != nil {
		return nil, err
	}
	if c.StorageDir == "" {
		level.Warn(logger).Log("msg", "no storage directory configured, using an empty in-memory symbol store")
	}
	bucket, err := symbolizer.NewBucket(c)
	if err != nil {
		return nil, err
	}
	return symbolizer.New(logger, c, nil, symbolizer.NewObjstoreSymbolStore(bucket))
}

type uploadParams struct {
	*storeParams
	paths   []string
	pdbName string
}

func addUploadParams(cmd commander) *uploadParams {
	params := new(uploadParams)
	params.storeParams = addStoreParams(cmd)
	cmd.Arg("path", "Path(s) to pdbx file(s) to upload").Required().ExistingFilesVar(&params.paths)
	cmd.Flag("pdb-name", "Name of the PDB the file was produced from. Derived from the file name when empty.").Default("").StringVar(&params.pdbName)
	return params
}

// pdbNameFromPath maps "out/MyLib.pdbx" to "MyLib.pdb".
func pdbNameFromPath(path string) string {
	base := filepath.Base(path)
	return strings.TrimSuffix(base, filepath.Ext(base)) + ".pdb"
}

func upload(ctx context.Context, params *uploadParams) error {
	if params.pdbName != "" && len(params.paths) > 1 {
		return errors.New("--pdb-name can only be used with a single file")
	}
	s, err := newSymbolizer(params.storeParams)
	if err != nil {
		return err
	}

	out := output(ctx)
	for _, path := range params.paths {
		name := params.pdbName
		if name == "" {
			name = pdbNameFromPath(path)
		}
		if err := uploadFile(ctx, s, name, path); err != nil {
			return err
		}
		fmt.Fprintf(out, "uploaded %s as %s\n", path, name)
	}
	return nil
}

func uploadFile(ctx context.Context, s *symbolizer.Symbolizer, name, path string) error {
	f, err := os.Open(path)
	if err != nil {
		return err
	}
	defer f.Close()
	id, err := s.Upload(ctx, name, f)
	if err != nil {
		return fmt.Errorf("upload %s: %w", path, err)
	}
	level.Info(logger).Log("msg", "symbol file uploaded", "path", path, "pdb", name, "debug_id", id)
	return nil
}

type symbolizeParams struct {
	*storeParams
}

func addSymbolizeParams(cmd commander) *symbolizeParams {
	return &symbolizeParams{storeParams: addStoreParams(cmd)}
}

// parseFrame parses "PDBNAME DEBUGID CLASS METHOD [OFFSET]". The offset
// may be decimal or 0x prefixed hex.
func parseFrame(line string) (symbolizer.Frame, error) {
	fields := strings.Fields(line)
	if len(fields) != 4 && len(fields) != 5 {
		return symbolizer.Frame{}, fmt.Errorf("expected 4 or 5 fields, got %d", len(fields))
	}
	id, err := pdb.ParseDebugID(fields[1])
	if err != nil {
		return symbolizer.Frame{}, err
	}
	f := symbolizer.Frame{
		PDBName:    fields[0],
		DebugID:    id,
		ClassName:  fields[2],
		MethodName: fields[3],
	}
	if len(fields) == 5 {
		off, err := strconv.ParseUint(fields[4], 0, 32)
		if err != nil {
			return symbolizer.Frame{}, fmt.Errorf("invalid offset %q: %w", fields[4], err)
		}
		f.ILOffset = uint32(off)
	}
	return f, nil
}

func readFrames(r io.Reader) ([]symbolizer.Frame, error) {
	var (
		frames []symbolizer.Frame
		sc     = bufio.NewScanner(r)
		n      int
	)
	for sc.Scan() {
		n++
		line := strings.TrimSpace(sc.Text())
		if line == "" || strings.HasPrefix(line, "#") {
			continue
		}
		f, err := parseFrame(line)
		if err != nil {
			return nil, fmt.Errorf("line %d: %w", n, err)
		}
		frames = append(frames, f)
	}
	return frames, sc.Err()
}

func symbolize(ctx context.Context, params *symbolizeParams, in io.Reader) error {
	frames, err := readFrames(in)
	if err != nil {
		return err
	}
	s, err := newSymbolizer(params.storeParams)
	if err != nil {
		return err
	}

	results, err := s.Symbolize(ctx, frames)
	if results == nil {
		return err
	}
	out := output(ctx)
	for _, r := range results {
		if r.Location == nil {
			fmt.Fprintln(out, color.YellowString(r.String()))
			continue
		}
		fmt.Fprintln(out, r.String())
	}
	return err
}
