// Package store defines remote object handle types and the opener
// interface for direct, range-based access to granule objects.
package store

import (
	"errors"
	"fmt"
	"io"
)

// ErrClosed is returned by reads on a closed handle.
var ErrClosed = errors.New("handle is closed")

// ErrNoAccessLink means a granule descriptor carries no link the opener
// can serve.
var ErrNoAccessLink = errors.New("granule has no usable access link")

// Handle is an open, authenticated reference to one remote binary
// object. Reads fetch byte ranges on demand; the object is never
// downloaded wholesale. A handle becomes unusable once the credentials
// it was opened with expire.
type Handle interface {
	io.ReaderAt
	io.ReadSeeker
	io.Closer

	// Name identifies the underlying object (object key or URL path).
	Name() string

	// Size returns the object's byte size as reported at open time.
	Size() int64
}

// AuthError marks an authorization failure against the object store,
// typically expired storage credentials. The caller must re-authenticate
// and re-open; no internal retry is performed.
type AuthError struct {
	Op     string
	Object string
	Err    error
}

func (e *AuthError) Error() string {
	return fmt.Sprintf("%s %s: authorization failed: %v", e.Op, e.Object, e.Err)
}

func (e *AuthError) Unwrap() error {
	return e.Err
}

// IsAuthError reports whether err is (or wraps) an AuthError.
func IsAuthError(err error) bool {
	var ae *AuthError
	return errors.As(err, &ae)
}
