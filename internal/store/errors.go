package store

import (
	"errors"
	"fmt"
)

// ErrNotFound is returned when a record does not exist.
var ErrNotFound = errors.New("not found")

// ErrDuplicate is returned when a write violates a uniqueness constraint.
var ErrDuplicate = errors.New("duplicate")

var (
	ErrDuplicateEmail    = fmt.Errorf("%w: email", ErrDuplicate)
	ErrDuplicateUsername = fmt.Errorf("%w: username", ErrDuplicate)
)

// PostFilter narrows a post listing. When ByAuthor is set only posts whose
// author is in AuthorIDs are returned, so an empty AuthorIDs yields nothing.
type PostFilter struct {
	ByAuthor  bool
	AuthorIDs []string
}
