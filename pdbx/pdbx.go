// Package pdbx implements a compact binary container for decoded managed
// debug symbols.
//
// A pdbx file carries the per-method line tables of one PDB together with
// the PDB identity (GUID and age) and its source server stream. It is the
// form in which decoded symbols are stored and shipped, so that resolving
// a stack frame never needs the original PDB decoder.
package pdbx

import (
	"bytes"
	"encoding/binary"
	"fmt"
	"io"

	"github.com/grafana/pdbresolve/pkg/pdb"
)

// Decoder decodes pdbx files with CRC checking enabled. It implements
// pdb.Decoder.
type Decoder struct{}

var _ pdb.Decoder = Decoder{}

func (Decoder) Decode(r io.Reader) (*pdb.Info, error) {
	return Decode(r, WithCRC())
}

// Decode reads a complete pdbx file from r. Gzip and zstd compressed files
// are detected and decompressed transparently. Files larger than the
// configured maximum size once decompressed are rejected with ErrTooLarge.
func Decode(r io.Reader, opt ...Option) (*pdb.Info, error) {
	o := newOptions(opt)
	data, err := readAll(r, o.maxSize)
	if err != nil {
		return nil, err
	}
	return decode(data, o)
}

// IsPdbx reports whether data starts like an uncompressed pdbx file.
func IsPdbx(data []byte) bool {
	return len(data) >= len(magic) && bytes.Equal(data[:len(magic)], magic)
}

func decode(data []byte, o options) (*pdb.Info, error) {
	hdr, err := readHeader(data)
	if err != nil {
		return nil, fmt.Errorf("failed to read header: %w", err)
	}
	if !bytes.Equal(hdr.magic[:], magic) {
		return nil, ErrInvalidMagic
	}
	if hdr.version != version {
		return nil, fmt.Errorf("%w: expected %d, got %d", ErrUnsupportedVersion, version, hdr.version)
	}

	strs, err := section(data, hdr.stringsTable, 1, "strings")
	if err != nil {
		return nil, err
	}
	funcs, err := section(data, hdr.functionsTable, functionEntrySize, "functions")
	if err != nil {
		return nil, err
	}
	groups, err := section(data, hdr.groupsTable, groupEntrySize, "groups")
	if err != nil {
		return nil, err
	}
	lines, err := section(data, hdr.linesTable, lineEntrySize, "lines")
	if err != nil {
		return nil, err
	}

	if o.crc {
		for _, c := range []struct {
			b    []byte
			crc  uint32
			name string
		}{
			{strs, hdr.stringsTable.crc, "strings"},
			{funcs, hdr.functionsTable.crc, "functions"},
			{groups, hdr.groupsTable.crc, "groups"},
			{lines, hdr.linesTable.crc, "lines"},
		} {
			if err := checkCRC(c.b, c.crc, c.name); err != nil {
				return nil, fmt.Errorf("CRC check failed: %w", err)
			}
		}
	}

	info := &pdb.Info{
		Age:       hdr.age,
		GUID:      hdr.guid,
		Functions: make([]pdb.Function, 0, hdr.functionsTable.count),
	}
	if info.SourceServerData, err = str(strs, hdr.sourceServer); err != nil {
		return nil, fmt.Errorf("source server data: %w", err)
	}

	for i := uint64(0); i < hdr.functionsTable.count; i++ {
		e := funcs[i*functionEntrySize:]
		fn, err := decodeFunction(strs, groups, lines, e, hdr)
		if err != nil {
			return nil, fmt.Errorf("function %d: %w", i, err)
		}
		info.Functions = append(info.Functions, fn)
	}
	return info, nil
}

func decodeFunction(strs, groups, lines, e []byte, hdr header) (pdb.Function, error) {
	var (
		fn  pdb.Function
		err error
	)
	if fn.Module, err = str(strs, stringOffset(binary.LittleEndian.Uint32(e[0:]))); err != nil {
		return fn, err
	}
	if fn.Name, err = str(strs, stringOffset(binary.LittleEndian.Uint32(e[4:]))); err != nil {
		return fn, err
	}
	first := uint64(binary.LittleEndian.Uint32(e[8:]))
	count := uint64(binary.LittleEndian.Uint32(e[12:]))
	if count == 0 {
		return fn, nil
	}
	if first+count > hdr.groupsTable.count {
		return fn, fmt.Errorf("line groups [%d, %d): %w", first, first+count, ErrTruncated)
	}

	fn.Lines = make([]pdb.LineGroup, 0, count)
	for g := first; g < first+count; g++ {
		ge := groups[g*groupEntrySize:]
		var lg pdb.LineGroup
		if lg.File, err = str(strs, stringOffset(binary.LittleEndian.Uint32(ge[0:]))); err != nil {
			return fn, err
		}
		copy(lg.Language[:], ge[4:20])
		lfirst := uint64(binary.LittleEndian.Uint32(ge[20:]))
		lcount := uint64(binary.LittleEndian.Uint32(ge[24:]))
		if lfirst+lcount > hdr.linesTable.count {
			return fn, fmt.Errorf("lines [%d, %d): %w", lfirst, lfirst+lcount, ErrTruncated)
		}
		if lcount > 0 {
			lg.Lines = make([]pdb.Line, lcount)
		}
		for l := uint64(0); l < lcount; l++ {
			le := lines[(lfirst+l)*lineEntrySize:]
			lg.Lines[l] = pdb.Line{
				Offset: binary.LittleEndian.Uint32(le[0:]),
				Line:   binary.LittleEndian.Uint32(le[4:]),
			}
		}
		fn.Lines = append(fn.Lines, lg)
	}
	return fn, nil
}
