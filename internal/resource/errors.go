package resource

import (
	"fmt"
	"reflect"
)

// FetchErrorKind discriminates the ways a resource lookup can fail.
type FetchErrorKind int

const (
	// ValueNotFound means no value of the requested type is present.
	ValueNotFound FetchErrorKind = iota
	// BorrowConflictImm means an immutable borrow was requested while a
	// mutable borrow of the same type is outstanding.
	BorrowConflictImm
	// BorrowConflictMut means a mutable borrow was requested while any
	// borrow of the same type is outstanding.
	BorrowConflictMut
)

func (k FetchErrorKind) String() string {
	switch k {
	case ValueNotFound:
		return "ValueNotFound"
	case BorrowConflictImm:
		return "BorrowConflictImm"
	case BorrowConflictMut:
		return "BorrowConflictMut"
	default:
		return "Unknown"
	}
}

// ResourceFetchError is returned by Store operations that fail due to
// absence or aliasing conflicts, never via panic — see §7 of the
// specification: structural failures are values, not control-flow escapes.
type ResourceFetchError struct {
	Kind      FetchErrorKind
	Type      reflect.Type
	Qualifier string
}

func (e *ResourceFetchError) Error() string {
	if e.Qualifier == "" {
		return fmt.Sprintf("resource: %s: %v", e.Kind, e.Type)
	}
	return fmt.Sprintf("resource: %s: %v[%s]", e.Kind, e.Type, e.Qualifier)
}

// IsNotFound reports whether err is a ResourceFetchError of kind
// ValueNotFound.
func IsNotFound(err error) bool {
	rfe, ok := err.(*ResourceFetchError)
	return ok && rfe.Kind == ValueNotFound
}

// IsBorrowConflict reports whether err is a ResourceFetchError of either
// borrow-conflict kind.
func IsBorrowConflict(err error) bool {
	rfe, ok := err.(*ResourceFetchError)
	return ok && (rfe.Kind == BorrowConflictImm || rfe.Kind == BorrowConflictMut)
}
