// Package vfsstatus defines the small status vocabulary the virtual
// filesystem handler returns instead of a Go error, so host bindings
// (NT-style or POSIX-style) can translate it into whatever their own
// calling convention expects (spec §6/§7).
package vfsstatus

// Status is a handler-level outcome. The zero value, Success, means the
// operation completed normally.
type Status int

const (
	Success Status = iota
	AccessDenied
	NotFound
	InvalidRequest
	FileIsDirectory
	NotADirectory
	BufferOverflow
	NotImplemented
	FatalOpen
)

func (s Status) String() string {
	switch s {
	case Success:
		return "SUCCESS"
	case AccessDenied:
		return "ACCESS_DENIED"
	case NotFound:
		return "NOT_FOUND"
	case InvalidRequest:
		return "INVALID_REQUEST"
	case FileIsDirectory:
		return "FILE_IS_DIRECTORY"
	case NotADirectory:
		return "NOT_A_DIRECTORY"
	case BufferOverflow:
		return "BUFFER_OVERFLOW"
	case NotImplemented:
		return "NOT_IMPLEMENTED"
	case FatalOpen:
		return "FATAL_OPEN"
	default:
		return "UNKNOWN"
	}
}

// Error adapts a Status to the error interface so it can travel through
// ordinary Go error-returning code paths (e.g. the mount orchestrator)
// before being translated at the host boundary.
type Error struct {
	Status Status
	Detail string
}

func (e *Error) Error() string {
	if e.Detail == "" {
		return e.Status.String()
	}
	return e.Status.String() + ": " + e.Detail
}

// New wraps a Status with a human-readable detail as an error.
func New(s Status, detail string) error {
	return &Error{Status: s, Detail: detail}
}

// FromError unwraps an error produced by New back to its Status,
// defaulting to InvalidRequest for anything else (spec §7 "unexpected
// panics map to a generic failure status").
func FromError(err error) Status {
	if err == nil {
		return Success
	}
	if se, ok := err.(*Error); ok {
		return se.Status
	}
	return InvalidRequest
}
