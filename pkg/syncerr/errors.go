// Package syncerr defines the error kinds a sync run can fail with.
//
// ConfigError and IOError are fatal for the whole run. BackendError is fatal
// during listing and per-key during uploads and deletes.
package syncerr

import (
	"errors"
	"fmt"
)

var (
	// ErrMissing is wrapped by a ConfigError when a required setting is empty.
	ErrMissing = errors.New("not set")

	// ErrInvalid is wrapped by a ConfigError when a setting cannot be parsed.
	ErrInvalid = errors.New("invalid value")

	// ErrUnknownBackend is wrapped by a ConfigError for an unrecognized backend type.
	ErrUnknownBackend = errors.New("unknown backend type")
)

// ConfigError reports a missing or malformed setting.
type ConfigError struct {
	Key string
	Err error
}

func (e *ConfigError) Error() string {
	return fmt.Sprintf("config %s: %v", e.Key, e.Err)
}

func (e *ConfigError) Unwrap() error { return e.Err }

// Missing returns a ConfigError for an empty required setting.
func Missing(key string) *ConfigError {
	return &ConfigError{Key: key, Err: ErrMissing}
}

// Invalid returns a ConfigError for a malformed setting.
func Invalid(key, format string, args ...any) *ConfigError {
	return &ConfigError{Key: key, Err: fmt.Errorf("%w: %s", ErrInvalid, fmt.Sprintf(format, args...))}
}

// IOError reports an unreadable local path.
type IOError struct {
	Path string
	Err  error
}

func (e *IOError) Error() string {
	return fmt.Sprintf("local %s: %v", e.Path, e.Err)
}

func (e *IOError) Unwrap() error { return e.Err }

// BackendError reports a failed list, upload, or delete call.
type BackendError struct {
	Op      string // "list", "upload" or "delete"
	Backend string
	Key     string
	Err     error
}

func (e *BackendError) Error() string {
	if e.Key != "" {
		return fmt.Sprintf("%s.%s %s: %v", e.Backend, e.Op, e.Key, e.Err)
	}
	return fmt.Sprintf("%s.%s: %v", e.Backend, e.Op, e.Err)
}

func (e *BackendError) Unwrap() error { return e.Err }

// IsConfig reports whether err is or wraps a ConfigError.
func IsConfig(err error) bool {
	var ce *ConfigError
	return errors.As(err, &ce)
}
