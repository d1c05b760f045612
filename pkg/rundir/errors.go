package rundir

import (
	"errors"
	"fmt"
)

// Kind classifies which stage of run directory management failed.
type Kind int

const (
	KindPathResolution Kind = iota + 1
	KindDeletion
	KindCreation
	KindLink
)

func (k Kind) String() string {
	switch k {
	case KindPathResolution:
		return "PathResolutionError"
	case KindDeletion:
		return "DeletionError"
	case KindCreation:
		return "CreationError"
	case KindLink:
		return "LinkError"
	default:
		return "UnknownError"
	}
}

// Sentinels usable with errors.Is against any *Error of the matching kind.
var (
	ErrPathResolution = &Error{Kind: KindPathResolution}
	ErrDeletion       = &Error{Kind: KindDeletion}
	ErrCreation       = &Error{Kind: KindCreation}
	ErrLink           = &Error{Kind: KindLink}

	// ErrInvalidName is wrapped when prefix and tag do not form a single legal path segment.
	ErrInvalidName = errors.New("invalid run directory name")
)

// Error reports the failing step and the path it was operating on.
type Error struct {
	Kind Kind
	Op   string
	Path string
	Err  error
}

func (e *Error) Error() string {
	if e.Err == nil {
		return fmt.Sprintf("rundir: %s", e.Kind)
	}
	return fmt.Sprintf("rundir: %s %s: %v", e.Op, e.Path, e.Err)
}

func (e *Error) Unwrap() error { return e.Err }

// Is matches sentinels by kind only.
func (e *Error) Is(target error) bool {
	t, ok := target.(*Error)
	if !ok {
		return false
	}
	return t.Op == "" && t.Path == "" && t.Err == nil && t.Kind == e.Kind
}

// KindOf returns the kind of the first *Error in err's chain, or 0.
func KindOf(err error) Kind {
	var e *Error
	if errors.As(err, &e) {
		return e.Kind
	}
	return 0
}

func newError(kind Kind, op, path string, err error) *Error {
	return &Error{Kind: kind, Op: op, Path: path, Err: err}
}
