package pdbx

import (
	"encoding/binary"
	"errors"
	"fmt"
	"hash/crc32"

	"github.com/google/uuid"
)

var (
	ErrInvalidMagic       = errors.New("invalid magic number")
	ErrUnsupportedVersion = errors.New("unsupported version")
	ErrTruncated          = errors.New("unexpected end of pdbx data")
	ErrTooLarge           = errors.New("pdbx data exceeds the size limit")
)

// CRCError reports a checksum mismatch in one of the tables.
type CRCError struct {
	Table    string
	Expected uint32
	Actual   uint32
}

func (e *CRCError) Error() string {
	return fmt.Sprintf("crc mismatch in %s table: expected %08x, got %08x", e.Table, e.Expected, e.Actual)
}

type stringOffset uint32

type tableHeader struct {
	offset uint64
	// number of entries, or number of bytes for the strings table
	count uint64
	crc   uint32
}

type header struct {
	magic        [4]byte
	version      uint32
	age          uint32
	sourceServer stringOffset
	guid         uuid.UUID

	stringsTable   tableHeader
	functionsTable tableHeader
	groupsTable    tableHeader
	linesTable     tableHeader
}

func (h *header) tables() []*tableHeader {
	return []*tableHeader{&h.stringsTable, &h.functionsTable, &h.groupsTable, &h.linesTable}
}

func readHeader(data []byte) (header, error) {
	var h header
	if len(data) < headerSize {
		return h, ErrTruncated
	}
	copy(h.magic[:], data[0:4])
	h.version = binary.LittleEndian.Uint32(data[0x04:])
	h.age = binary.LittleEndian.Uint32(data[0x08:])
	h.sourceServer = stringOffset(binary.LittleEndian.Uint32(data[0x0c:]))
	copy(h.guid[:], data[0x10:0x20])
	off := 0x20
	for _, t := range h.tables() {
		t.offset = binary.LittleEndian.Uint64(data[off:])
		t.count = binary.LittleEndian.Uint64(data[off+8:])
		t.crc = binary.LittleEndian.Uint32(data[off+16:])
		off += tableHeaderSize
	}
	return h, nil
}

func writeHeader(buf []byte, h *header) {
	copy(buf[0:4], h.magic[:])
	binary.LittleEndian.PutUint32(buf[0x04:], h.version)
	binary.LittleEndian.PutUint32(buf[0x08:], h.age)
	binary.LittleEndian.PutUint32(buf[0x0c:], uint32(h.sourceServer))
	copy(buf[0x10:0x20], h.guid[:])
	off := 0x20
	for _, t := range h.tables() {
		binary.LittleEndian.PutUint64(buf[off:], t.offset)
		binary.LittleEndian.PutUint64(buf[off+8:], t.count)
		binary.LittleEndian.PutUint32(buf[off+16:], t.crc)
		off += tableHeaderSize
	}
}

// section returns the bytes covered by t, validating bounds.
func section(data []byte, t tableHeader, entrySize uint64, name string) ([]byte, error) {
	size := uint64(len(data))
	if t.offset > size {
		return nil, fmt.Errorf("%s table offset %d: %w", name, t.offset, ErrTruncated)
	}
	if t.count > (size-t.offset)/entrySize {
		return nil, fmt.Errorf("%s table with %d entries: %w", name, t.count, ErrTruncated)
	}
	return data[t.offset : t.offset+t.count*entrySize], nil
}

func checkCRC(b []byte, expected uint32, name string) error {
	if actual := crc32.Checksum(b, castagnoli); actual != expected {
		return &CRCError{Table: name, Expected: expected, Actual: actual}
	}
	return nil
}

func str(strs []byte, offset stringOffset) (string, error) {
	if offset == 0 {
		return "", nil
	}
	o := uint64(offset)
	if o+4 > uint64(len(strs)) {
		return "", fmt.Errorf("string offset %d: %w", offset, ErrTruncated)
	}
	n := uint64(binary.LittleEndian.Uint32(strs[o:]))
	if o+4+n > uint64(len(strs)) {
		return "", fmt.Errorf("string at offset %d with length %d: %w", offset, n, ErrTruncated)
	}
	return string(strs[o+4 : o+4+n]), nil
}
