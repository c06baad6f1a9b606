package pdbx

import (
	"encoding/binary"
	"errors"
	"fmt"
	"hash/crc32"
	"io"
	"math"

	"github.com/grafana/pdbresolve/pkg/pdb"
)

type stringBuilder struct {
	buf     []byte
	offsets map[string]stringOffset
}

func newStringBuilder() *stringBuilder {
	// offset 0 is reserved for the empty string
	return &stringBuilder{
		buf:     make([]byte, 4),
		offsets: make(map[string]stringOffset),
	}
}

func (sb *stringBuilder) add(s string) (stringOffset, error) {
	if s == "" {
		return 0, nil
	}
	if off, ok := sb.offsets[s]; ok {
		return off, nil
	}
	if uint64(len(sb.buf))+4+uint64(len(s)) > math.MaxUint32 {
		return 0, errors.New("strings table overflow")
	}
	off := stringOffset(len(sb.buf))
	sb.buf = binary.LittleEndian.AppendUint32(sb.buf, uint32(len(s)))
	sb.buf = append(sb.buf, s...)
	sb.offsets[s] = off
	return off, nil
}

type tablesBuilder struct {
	sb        *stringBuilder
	functions []byte
	groups    []byte
	lines     []byte

	groupCount uint64
	lineCount  uint64
}

func (tb *tablesBuilder) addFunction(fn *pdb.Function) error {
	module, err := tb.sb.add(fn.Module)
	if err != nil {
		return err
	}
	name, err := tb.sb.add(fn.Name)
	if err != nil {
		return err
	}
	firstGroup := tb.groupCount
	for i := range fn.Lines {
		if err := tb.addGroup(&fn.Lines[i]); err != nil {
			return err
		}
	}
	if tb.groupCount > math.MaxUint32 {
		return errors.New("too many line groups")
	}
	tb.functions = binary.LittleEndian.AppendUint32(tb.functions, uint32(module))
	tb.functions = binary.LittleEndian.AppendUint32(tb.functions, uint32(name))
	tb.functions = binary.LittleEndian.AppendUint32(tb.functions, uint32(firstGroup))
	tb.functions = binary.LittleEndian.AppendUint32(tb.functions, uint32(len(fn.Lines)))
	return nil
}

func (tb *tablesBuilder) addGroup(g *pdb.LineGroup) error {
	file, err := tb.sb.add(g.File)
	if err != nil {
		return err
	}
	firstLine := tb.lineCount
	for _, l := range g.Lines {
		tb.lines = binary.LittleEndian.AppendUint32(tb.lines, l.Offset)
		tb.lines = binary.LittleEndian.AppendUint32(tb.lines, l.Line)
	}
	tb.lineCount += uint64(len(g.Lines))
	if tb.lineCount > math.MaxUint32 {
		return errors.New("too many line entries")
	}
	tb.groups = binary.LittleEndian.AppendUint32(tb.groups, uint32(file))
	tb.groups = append(tb.groups, g.Language[:]...)
	tb.groups = binary.LittleEndian.AppendUint32(tb.groups, uint32(firstLine))
	tb.groups = binary.LittleEndian.AppendUint32(tb.groups, uint32(len(g.Lines)))
	tb.groupCount++
	return nil
}

// Write encodes info as a pdbx file.
func Write(w io.Writer, info *pdb.Info, opt ...Option) error {
	if info == nil {
		return errors.New("nil symbol info")
	}
	o := newOptions(opt)

	tb := &tablesBuilder{sb: newStringBuilder()}
	hdr := header{
		version: version,
		age:     info.Age,
		guid:    info.GUID,
	}
	copy(hdr.magic[:], magic)

	var err error
	if hdr.sourceServer, err = tb.sb.add(info.SourceServerData); err != nil {
		return err
	}
	for i := range info.Functions {
		if err := tb.addFunction(&info.Functions[i]); err != nil {
			return fmt.Errorf("failed to add function %s.%s: %w", info.Functions[i].Module, info.Functions[i].Name, err)
		}
	}

	data := make([]byte, headerSize, headerSize+len(tb.sb.buf)+len(tb.functions)+len(tb.groups)+len(tb.lines))
	for _, t := range []struct {
		hdr   *tableHeader
		b     []byte
		count uint64
	}{
		{&hdr.stringsTable, tb.sb.buf, uint64(len(tb.sb.buf))},
		{&hdr.functionsTable, tb.functions, uint64(len(info.Functions))},
		{&hdr.groupsTable, tb.groups, tb.groupCount},
		{&hdr.linesTable, tb.lines, tb.lineCount},
	} {
		t.hdr.offset = uint64(len(data))
		t.hdr.count = t.count
		t.hdr.crc = crc32.Checksum(t.b, castagnoli)
		data = append(data, t.b...)
	}
	writeHeader(data[:headerSize], &hdr)

	if err := compress(w, o.compression, data); err != nil {
		return fmt.Errorf("failed to write pdbx file: %w", err)
	}
	return nil
}
