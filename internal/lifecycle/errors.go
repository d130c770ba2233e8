package lifecycle

import "errors"

// unknownComponentError signals an operation on a name never registered.
type unknownComponentError struct{ name string }

func (e unknownComponentError) Error() string { return "unknown component: " + e.name }

// ErrUnknownComponent constructs an error for an unregistered component name.
func ErrUnknownComponent(name string) error { return unknownComponentError{name: name} }

// IsUnknownComponent reports whether err indicates an unregistered name.
func IsUnknownComponent(err error) bool {
	var e unknownComponentError
	return errors.As(err, &e)
}

// loadTimeoutError signals a caller gave up waiting for another caller's
// in-flight load. The load itself keeps running.
type loadTimeoutError struct{ name string }

func (e loadTimeoutError) Error() string { return "load timeout: " + e.name }

// ErrLoadTimeout constructs a loadTimeoutError.
func ErrLoadTimeout(name string) error { return loadTimeoutError{name: name} }

// IsLoadTimeout reports whether err indicates a bounded-wait timeout.
func IsLoadTimeout(err error) bool {
	var e loadTimeoutError
	return errors.As(err, &e)
}

// loadFailedError wraps a loader failure. The component moves to the error
// state; the next Acquire retries.
type loadFailedError struct {
	name  string
	cause error
}

func (e loadFailedError) Error() string { return "load " + e.name + ": " + e.cause.Error() }
func (e loadFailedError) Unwrap() error { return e.cause }

// ErrLoadFailed constructs a loadFailedError carrying the underlying cause.
func ErrLoadFailed(name string, cause error) error { return loadFailedError{name: name, cause: cause} }

// IsLoadFailed reports whether err indicates a loader failure.
func IsLoadFailed(err error) bool {
	var e loadFailedError
	return errors.As(err, &e)
}

// managerClosedError signals an operation after Close.
type managerClosedError struct{}

func (managerClosedError) Error() string { return "lifecycle manager closed" }

// ErrManagerClosed constructs a managerClosedError.
func ErrManagerClosed() error { return managerClosedError{} }

// IsManagerClosed reports whether err indicates the manager was closed.
func IsManagerClosed(err error) bool {
	var e managerClosedError
	return errors.As(err, &e)
}
