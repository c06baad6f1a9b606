package pdbx

import "hash/crc32"

// File format constants
const (
	// Current version of the pdbx format
	version uint32 = 1

	// Size of the file header in bytes
	headerSize = 0x80

	// Size of a table header within the file header
	tableHeaderSize = 24

	// Size of a function entry: module, name, first group, group count
	functionEntrySize = 4 * 4

	// Size of a line group entry: file, language guid, first line, line count
	groupEntrySize = 4 + 16 + 4 + 4

	// Size of a line entry: il offset, line number
	lineEntrySize = 2 * 4
)

// CRC32 table using the Castagnoli polynomial
var (
	castagnoli = crc32.MakeTable(crc32.Castagnoli)
	magic      = []byte{0x2e, 0x70, 0x64, 0x78} // ".pdx"
)
