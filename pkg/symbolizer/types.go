package symbolizer

import (
	"fmt"

	"github.com/grafana/pdbresolve/pkg/pdb"
	"github.com/grafana/pdbresolve/pkg/resolver"
)

// Frame is a managed stack frame to be symbolized.
type Frame struct {
	// PDBName is the file name of the symbol file, e.g. "MyLib.pdb".
	PDBName    string
	DebugID    pdb.DebugID
	ClassName  string
	MethodName string
	ILOffset   uint32
}

func (f Frame) String() string {
	class := f.ClassName
	if class == "" {
		class = "unknown"
	}
	return fmt.Sprintf("%s.%s+IL_0x%x", class, f.MethodName, f.ILOffset)
}

// SymbolizedFrame is the result of symbolizing a Frame. Location is nil
// when no source mapping is available, in which case Fallback holds a
// printable name derived from the frame itself.
type SymbolizedFrame struct {
	Frame    Frame
	Location *resolver.CodeLocation
	Fallback string
}

func (f SymbolizedFrame) String() string {
	if f.Location == nil {
		return f.Fallback
	}
	return fmt.Sprintf("%s.%s (%s)", f.Frame.ClassName, f.Frame.MethodName, f.Location)
}

type storeKey struct {
	pdbName string
	id      pdb.DebugID
}

func (k storeKey) String() string {
	return k.pdbName + "/" + k.id.String()
}
