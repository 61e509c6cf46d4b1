package octreeio

import "errors"

// Sentinel errors, one per failure mode rather than a single shared error
// type. ErrMalformed, ErrUnknownType, ErrTruncated and ErrDepthExceeded
// are all returned wrapped via fmt.Errorf("...: %w", ...) so callers can
// errors.Is against the specific cause.
var (
	// ErrMalformed means the stream could not be decoded: the text header
	// ended before its "data" marker, the compact root marker is unknown,
	// or the LZF-compressed body failed to decompress.
	ErrMalformed = errors.New("octreeio: malformed header")
	// ErrUnknownType means the header named a tree type with no
	// registered constructor.
	ErrUnknownType = errors.New("octreeio: unknown tree type id in header")
	// ErrTruncated means the binary body ended before the header's
	// declared structure was fully read.
	ErrTruncated = errors.New("octreeio: truncated binary stream")
	// ErrDepthExceeded means the binary body encodes a node deeper than
	// the tree's configured depth, which cannot happen from a
	// well-formed writer and indicates a corrupt or adversarial stream.
	ErrDepthExceeded = errors.New("octreeio: encoded depth exceeds tree depth")
	// ErrFileLocked means WriteFileLocked or ReadFileLocked could not
	// acquire the advisory lock on the target path.
	ErrFileLocked = errors.New("octreeio: file is locked by another process")
)
