package symbolizer

import (
	"errors"
	"fmt"
)

type symbolsNotFoundError struct {
	key storeKey
}

func (e symbolsNotFoundError) Error() string {
	return fmt.Sprintf("symbols not found: %s", e.key)
}

type invalidPDBNameError struct {
	name string
}

func (e invalidPDBNameError) Error() string {
	return fmt.Sprintf("invalid pdb name: %q", e.name)
}

// IsNotFound reports whether err means that the store holds no symbols
// for the requested file.
func IsNotFound(err error) bool {
	var nf symbolsNotFoundError
	return errors.As(err, &nf)
}

func isInvalidPDBNameError(err error) bool {
	var e invalidPDBNameError
	return errors.As(err, &e)
}
