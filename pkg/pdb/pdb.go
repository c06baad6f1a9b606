// Package pdb describes debug symbol data as produced by a PDB decoder:
// per-function line tables together with the identity of the symbol file.
//
// The package does not parse PDB/MSF containers itself. Decoders plug in
// through the Decoder interface and yield already structured records.
package pdb

import (
	"io"

	"github.com/google/uuid"
)

// HiddenLine marks a compiler generated region without source. Line
// entries carrying it must never be resolved.
const HiddenLine uint32 = 0xFEEFEE

// Info is the result of decoding one symbol file.
type Info struct {
	Functions []Function

	// Age and GUID identify the symbol file; they are passed through as
	// decoded and are not validated against any binary.
	Age  uint32
	GUID uuid.UUID

	// SourceServerData is the raw source server (srcsrv) stream, empty
	// when the symbol file carries none.
	SourceServerData string
}

// DebugID returns the identity of the decoded symbol file.
func (i *Info) DebugID() DebugID {
	return DebugID{GUID: i.GUID, Age: i.Age}
}

// Function holds the line information of one method.
type Function struct {
	// Module is the declaring type including its namespace, e.g.
	// "MyNamespace.MyClass".
	Module string
	Name   string
	Lines  []LineGroup
}

// LineGroup is a batch of line mappings sharing a source file.
type LineGroup struct {
	File     string
	Language uuid.UUID
	Lines    []Line
}

// Line maps an IL offset within a method to a source line.
type Line struct {
	Offset uint32
	Line   uint32
}

// Decoder turns the bytes of a symbol file into decoded records.
type Decoder interface {
	Decode(r io.Reader) (*Info, error)
}

// DecoderFunc adapts a plain function to the Decoder interface.
type DecoderFunc func(r io.Reader) (*Info, error)

func (f DecoderFunc) Decode(r io.Reader) (*Info, error) {
	return f(r)
}
