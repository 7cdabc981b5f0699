package store

import (
	"errors"
	"fmt"
)

// ErrorKind classifies a persistence failure.
type ErrorKind int

const (
	KindIOFailure ErrorKind = iota
	KindNotFound
	KindCorruptFile
	KindLockContention
)

func (k ErrorKind) String() string {
	switch k {
	case KindNotFound:
		return "not found"
	case KindCorruptFile:
		return "corrupt file"
	case KindLockContention:
		return "lock contention"
	default:
		return "io failure"
	}
}

// Error is a classified storage failure. A corrupt file on read is
// reported, not fatal: the caller may reset the store and continue.
type Error struct {
	Kind ErrorKind
	Name string
	Err  error
}

func (e *Error) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("storage %s: %s: %v", e.Kind, e.Name, e.Err)
	}
	return fmt.Sprintf("storage %s: %s", e.Kind, e.Name)
}

func (e *Error) Unwrap() error { return e.Err }

// IsNotFound reports whether err is a storage not-found failure.
func IsNotFound(err error) bool {
	var storageErr *Error
	return errors.As(err, &storageErr) && storageErr.Kind == KindNotFound
}

// IsCorrupt reports whether err is a corrupt-file failure.
func IsCorrupt(err error) bool {
	var storageErr *Error
	return errors.As(err, &storageErr) && storageErr.Kind == KindCorruptFile
}
