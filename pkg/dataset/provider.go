package dataset

import (
	"context"
	"io"
)

// Source is what a decoder needs from a remote handle: random access
// byte reads. store.Handle satisfies it.
type Source interface {
	io.Reader
	io.ReaderAt
	io.Seeker
	io.Closer
}

// Decoder materializes a named subgroup of a self-describing
// hierarchical container as a labeled array group. The nc adapter
// implements this; the decoding logic itself lives in the external
// container library.
type Decoder interface {
	// Name returns the decoder name.
	Name() string

	// Load decodes the subgroup at groupPath ("" or "/" for the root)
	// from src. Loading the same path from the same source twice
	// yields structurally identical groups.
	Load(ctx context.Context, src Source, groupPath string) (*Group, error)

	// Close releases resources.
	Close() error
}
