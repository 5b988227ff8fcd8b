package plate

import (
	"errors"
	"fmt"
)

// Sentinel errors for frame processing.
var (
	// ErrEmptyFrame is returned when Process receives an empty Mat.
	ErrEmptyFrame = errors.New("plate: empty frame")

	// ErrInvalidFrame is returned for frames that are not 3-channel BGR.
	ErrInvalidFrame = errors.New("plate: frame must be 3-channel BGR")

	// ErrPreprocess is returned when the gray/blur/edge stages fail.
	ErrPreprocess = errors.New("plate: preprocessing failed")

	// ErrAnnotate is returned when drawing the box or label fails.
	ErrAnnotate = errors.New("plate: annotate failed")

	// ErrUnknownDecoder is returned by NewDecoder for unsupported backend names.
	ErrUnknownDecoder = errors.New("plate: unknown decoder")

	// ErrInvalidConfig is returned by SetConfig when validation fails.
	ErrInvalidConfig = errors.New("plate: invalid config")
)

// DecodeError wraps a decoder backend fault with its backend name and region.
// "No symbol found" is not an error; only faults that stop processing are.
type DecodeError struct {
	Backend string
	Region  Region
	Err     error
}

// Error implements the error interface.
func (e *DecodeError) Error() string {
	return fmt.Sprintf("plate [%s]: decode region %v: %v", e.Backend, e.Region.Rect, e.Err)
}

// Unwrap returns the underlying error.
func (e *DecodeError) Unwrap() error {
	return e.Err
}
