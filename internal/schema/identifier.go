package schema

import (
	"errors"
	"regexp"
)

// ErrInvalidIdent is returned for table or column names that fail the
// allow-list. Identifiers cannot be bound as query parameters, so this
// check is the sole injection defense for the structural parts of every
// generated statement; values are always bound.
var ErrInvalidIdent = errors.New("invalid identifier")

var identPattern = regexp.MustCompile(`^[A-Za-z_][A-Za-z0-9_]*$`)

// ValidIdent reports whether name is safe to interpolate into SQL as a
// table or column name.
func ValidIdent(name string) bool {
	return identPattern.MatchString(name)
}

// CheckIdent returns ErrInvalidIdent unless name passes the allow-list.
func CheckIdent(name string) error {
	if !ValidIdent(name) {
		return ErrInvalidIdent
	}
	return nil
}
