package s3

import (
	"context"
	"fmt"
	"io"
	"sync"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/service/s3"

	"github.com/polarpath/earthdata/pkg/credentials"
	"github.com/polarpath/earthdata/pkg/store"
)

// object is a seekable handle over one S3 object. Every read issues a
// ranged GetObject; the object is never fetched wholesale.
type object struct {
	opener *Opener
	ctx    context.Context
	creds  *credentials.Credentials
	bucket string
	key    string
	size   int64

	mu     sync.Mutex
	pos    int64
	closed bool
}

// Name returns the object path within its bucket.
func (f *object) Name() string {
	return f.bucket + "/" + f.key
}

// Size returns the object size reported at open time.
func (f *object) Size() int64 {
	return f.size
}

// ReadAt reads len(p) bytes at offset off via a ranged GetObject.
// Expired credentials surface as a store.AuthError here, not at open.
func (f *object) ReadAt(p []byte, off int64) (int, error) {
	f.mu.Lock()
	closed := f.closed
	f.mu.Unlock()
	if closed {
		return 0, store.ErrClosed
	}
	if off < 0 {
		return 0, fmt.Errorf("read %s: negative offset", f.Name())
	}
	if len(p) == 0 {
		return 0, nil
	}
	if off >= f.size {
		return 0, io.EOF
	}

	if f.creds != nil && f.creds.Expired(f.opener.now()) {
		return 0, &store.AuthError{Op: "read", Object: f.Name(), Err: credentials.ErrExpired}
	}

	end := off + int64(len(p)) - 1
	if end > f.size-1 {
		end = f.size - 1
	}

	out, err := f.opener.client.GetObject(f.ctx, &s3.GetObjectInput{
		Bucket: aws.String(f.bucket),
		Key:    aws.String(f.key),
		Range:  aws.String(fmt.Sprintf("bytes=%d-%d", off, end)),
	})
	if err != nil {
		return 0, f.opener.classify("read", f.Name(), err)
	}
	defer func() { _ = out.Body.Close() }()

	n, err := io.ReadFull(out.Body, p[:end-off+1])
	if err == io.ErrUnexpectedEOF {
		err = io.EOF
	}
	if err == nil && int64(n) < int64(len(p)) {
		// Short read because the range was clamped at object end.
		err = io.EOF
	}
	return n, err
}

// Read reads from the current position.
func (f *object) Read(p []byte) (int, error) {
	f.mu.Lock()
	pos := f.pos
	f.mu.Unlock()

	n, err := f.ReadAt(p, pos)

	f.mu.Lock()
	f.pos = pos + int64(n)
	f.mu.Unlock()
	return n, err
}

// Seek sets the position for the next Read.
func (f *object) Seek(offset int64, whence int) (int64, error) {
	f.mu.Lock()
	defer f.mu.Unlock()

	var next int64
	switch whence {
	case io.SeekStart:
		next = offset
	case io.SeekCurrent:
		next = f.pos + offset
	case io.SeekEnd:
		next = f.size + offset
	default:
		return 0, fmt.Errorf("seek %s: invalid whence %d", f.Name(), whence)
	}
	if next < 0 {
		return 0, fmt.Errorf("seek %s: negative position", f.Name())
	}
	f.pos = next
	return next, nil
}

// Close marks the handle closed. No remote call is needed.
func (f *object) Close() error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.closed = true
	return nil
}

// Verify interface compliance.
var _ store.Handle = (*object)(nil)
