package kvstore

import (
	"errors"
	"fmt"
	"strings"
)

// Sentinel kinds for storage errors.
var (
	// ErrNotFound signals that no item exists under the requested key.
	// Callers treat this as a normal outcome, not a failure.
	ErrNotFound = errors.New("item not found")

	// ErrMissingKeys matches any MissingKeysError via errors.Is.
	ErrMissingKeys = errors.New("missing key attributes")

	// ErrScanUnsupported is returned by backends that only provide
	// independent get/put semantics.
	ErrScanUnsupported = errors.New("scan not supported by this backend")
)

// MissingKeysError reports which declared key attributes were absent from
// an item passed to GetItem or PutItem.
type MissingKeysError struct {
	Missing []string
}

func (e *MissingKeysError) Error() string {
	return fmt.Sprintf("item must carry key attributes: %s", strings.Join(e.Missing, ", "))
}

// Is makes errors.Is(err, ErrMissingKeys) succeed for any MissingKeysError.
func (e *MissingKeysError) Is(target error) bool {
	return target == ErrMissingKeys
}
