// Package errs defines the error taxonomy shared across the remote device
// session core.
package errs

import "fmt"

// Kind is the abstract error category a RemoteError belongs to.
type Kind int

const (
	ConfigMissing Kind = iota
	NetworkError
	AuthFailure
	NotEnoughDevices
	VersionIncompatible
	ProtocolError
	Timeout
	MappingRejected
	LivenessLost
	TimeExpired
)

func (k Kind) String() string {
	switch k {
	case ConfigMissing:
		return "ConfigMissing"
	case NetworkError:
		return "NetworkError"
	case AuthFailure:
		return "AuthFailure"
	case NotEnoughDevices:
		return "NotEnoughDevices"
	case VersionIncompatible:
		return "VersionIncompatible"
	case ProtocolError:
		return "ProtocolError"
	case Timeout:
		return "Timeout"
	case MappingRejected:
		return "MappingRejected"
	case LivenessLost:
		return "LivenessLost"
	case TimeExpired:
		return "TimeExpired"
	default:
		return "Unknown"
	}
}

// RemoteError wraps a Kind with a human message and an optional cause.
type RemoteError struct {
	Kind    Kind
	Message string
	Cause   error
}

func (e *RemoteError) Error() string {
	if e.Cause != nil {
		return fmt.Sprintf("%s: %s: %v", e.Kind, e.Message, e.Cause)
	}
	return fmt.Sprintf("%s: %s", e.Kind, e.Message)
}

func (e *RemoteError) Unwrap() error { return e.Cause }

// New builds a RemoteError with no wrapped cause.
func New(kind Kind, message string) error {
	return &RemoteError{Kind: kind, Message: message}
}

// Wrap builds a RemoteError carrying an underlying cause.
func Wrap(kind Kind, message string, cause error) error {
	return &RemoteError{Kind: kind, Message: message, Cause: cause}
}
