package domain

import "errors"

// Kind is the closed set of error categories a component can raise.
type Kind int

const (
	ErrConfigInvalid Kind = iota
	ErrManifestFetchFailed
	ErrManifestParseFailed
	ErrDuplicateParentPool
	ErrMissingParentPool
	ErrMissingDeployment
	ErrNetworkNotActive
	ErrRPCReadFailed
	ErrRPCWriteFailed
	ErrAllowanceFailed
	ErrReceiptTimeout
	ErrCancelled
)

func (k Kind) String() string {
	switch k {
	case ErrConfigInvalid:
		return "ConfigInvalid"
	case ErrManifestFetchFailed:
		return "ManifestFetchFailed"
	case ErrManifestParseFailed:
		return "ManifestParseFailed"
	case ErrDuplicateParentPool:
		return "DuplicateParentPool"
	case ErrMissingParentPool:
		return "MissingParentPool"
	case ErrMissingDeployment:
		return "MissingDeployment"
	case ErrNetworkNotActive:
		return "NetworkNotActive"
	case ErrRPCReadFailed:
		return "RpcReadFailed"
	case ErrRPCWriteFailed:
		return "RpcWriteFailed"
	case ErrAllowanceFailed:
		return "AllowanceFailed"
	case ErrReceiptTimeout:
		return "ReceiptTimeout"
	case ErrCancelled:
		return "Cancelled"
	default:
		return "Unknown"
	}
}

// Error wraps an underlying cause with a Kind and the operation that raised it.
type Error struct {
	Kind Kind
	Op   string
	Err  error
}

func (e *Error) Error() string {
	if e.Err == nil {
		return e.Op + ": " + e.Kind.String()
	}
	return e.Op + ": " + e.Kind.String() + ": " + e.Err.Error()
}

func (e *Error) Unwrap() error { return e.Err }

// NewError constructs a *Error for op with the given kind and cause.
func NewError(kind Kind, op string, err error) *Error {
	return &Error{Kind: kind, Op: op, Err: err}
}

// Is reports whether err (or anything it wraps) is a *Error of kind.
func Is(err error, kind Kind) bool {
	var de *Error
	if errors.As(err, &de) {
		return de.Kind == kind
	}
	return false
}
