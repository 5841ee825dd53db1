package geotiff

import "fmt"

// Reason classifies why a container failed to decode.
type Reason int

const (
	// MalformedHeader means the byte stream is not a TIFF container at all,
	// or its IFD structure is corrupt.
	MalformedHeader Reason = iota + 1
	// Truncated means the structure parsed but sample data ran short.
	Truncated
	// Unsupported means a valid TIFF feature this decoder does not handle.
	Unsupported
)

func (r Reason) String() string {
	switch r {
	case MalformedHeader:
		return "malformed header"
	case Truncated:
		return "truncated"
	case Unsupported:
		return "unsupported"
	}
	return "unknown"
}

// DecodeError reports a failed container decode. The previous image, if the
// caller holds one, remains valid; decoding has no side effects.
type DecodeError struct {
	Reason Reason
	Detail string
}

func (e *DecodeError) Error() string {
	return fmt.Sprintf("geotiff: %s: %s", e.Reason, e.Detail)
}

func malformed(format string, args ...any) *DecodeError {
	return &DecodeError{Reason: MalformedHeader, Detail: fmt.Sprintf(format, args...)}
}

func truncated(format string, args ...any) *DecodeError {
	return &DecodeError{Reason: Truncated, Detail: fmt.Sprintf(format, args...)}
}

func unsupported(format string, args ...any) *DecodeError {
	return &DecodeError{Reason: Unsupported, Detail: fmt.Sprintf(format, args...)}
}
