package pdb

import (
	"fmt"
	"strconv"
	"strings"

	"github.com/google/uuid"
)

// DebugID names a symbol file the way symbol servers do: the GUID
// followed by the age.
type DebugID struct {
	GUID uuid.UUID
	Age  uint32
}

// String renders the id as 32 upper-case hex digits of the GUID followed
// by the age in hex, e.g. "3F5162F807C611D3905300C04FA302A11".
func (id DebugID) String() string {
	g := strings.ToUpper(strings.ReplaceAll(id.GUID.String(), "-", ""))
	return g + strings.ToUpper(strconv.FormatUint(uint64(id.Age), 16))
}

func (id DebugID) IsZero() bool {
	return id.GUID == uuid.Nil && id.Age == 0
}

type invalidDebugIDError struct {
	id string
}

func (e invalidDebugIDError) Error() string {
	return fmt.Sprintf("invalid debug id: %q", e.id)
}

// ParseDebugID parses the String form. Dashes in the GUID part are
// accepted and the comparison is case-insensitive.
func ParseDebugID(s string) (DebugID, error) {
	compact := strings.ReplaceAll(s, "-", "")
	if len(compact) < 33 || len(compact) > 40 {
		return DebugID{}, invalidDebugIDError{id: s}
	}
	guid, err := uuid.Parse(compact[:32])
	if err != nil {
		return DebugID{}, invalidDebugIDError{id: s}
	}
	age, err := strconv.ParseUint(compact[32:], 16, 32)
	if err != nil {
		return DebugID{}, invalidDebugIDError{id: s}
	}
	return DebugID{GUID: guid, Age: uint32(age)}, nil
}
