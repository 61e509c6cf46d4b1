package octreeio

import (
	"bufio"
	"bytes"
	"encoding/binary"
	"fmt"
	"io"

	"github.com/zhuyie/golzf"

	"octomap/pkg/occupancy"
)

// WriteCompressed encodes tr like Write, but LZF-compresses the binary
// body. The header stays plain text (so a file can still be identified
// with "head -1" without decompressing it); the body is framed as
// uint32be(plain length), uint32be(compressed length), compressed bytes —
// a fixed-width prefix is all this single length pair needs, so there is
// no reason to frame it with a variable-length encoding.
func WriteCompressed(w io.Writer, tr *occupancy.Tree, typeName string) error {
	ot := tr.Octree()
	if err := writeHeader(w, typeName, ot.NumNodes(), tr.Resolution(), ot.Depth()); err != nil {
		return fmt.Errorf("octreeio: write header: %w", err)
	}

	var plain bytes.Buffer
	if err := writeBody(&plain, tr); err != nil {
		return fmt.Errorf("octreeio: write body: %w", err)
	}

	// LZF needs a worst-case output buffer; uncompressible input expands
	// slightly, so size generously rather than retrying on failure.
	compressed := make([]byte, plain.Len()+plain.Len()/16+64)
	n, err := golzf.Compress(plain.Bytes(), compressed)
	if err != nil {
		return fmt.Errorf("octreeio: lzf compress: %w", err)
	}
	compressed = compressed[:n]

	var lenBuf [8]byte
	binary.BigEndian.PutUint32(lenBuf[0:4], uint32(plain.Len()))
	binary.BigEndian.PutUint32(lenBuf[4:8], uint32(len(compressed)))
	if _, err := w.Write(lenBuf[:]); err != nil {
		return err
	}
	if _, err := w.Write(compressed); err != nil {
		return err
	}
	logger.Debug().Str("type", typeName).Int("plain", plain.Len()).Int("compressed", len(compressed)).Msg("wrote compressed tree")
	return nil
}

// ReadCompressed decodes a tree previously written by WriteCompressed.
func ReadCompressed(r io.Reader, reg *Registry) (*occupancy.Tree, error) {
	br := bufio.NewReader(r)
	h, err := parseHeader(br)
	if err != nil {
		return nil, err
	}
	ctor, ok := reg.Lookup(h.id)
	if !ok {
		return nil, fmt.Errorf("%w: %q", ErrUnknownType, h.id)
	}
	tr := ctor(h.res, uint8(h.depth))

	var lenBuf [8]byte
	if _, err := io.ReadFull(br, lenBuf[:]); err != nil {
		return nil, fmt.Errorf("%w: length prefix: %v", ErrTruncated, err)
	}
	plainLen := binary.BigEndian.Uint32(lenBuf[0:4])
	compressedLen := binary.BigEndian.Uint32(lenBuf[4:8])

	compressed := make([]byte, compressedLen)
	if _, err := io.ReadFull(br, compressed); err != nil {
		return nil, fmt.Errorf("%w: compressed body: %v", ErrTruncated, err)
	}
	plain := make([]byte, plainLen)
	n, err := golzf.Decompress(compressed, plain)
	if err != nil {
		return nil, fmt.Errorf("%w: lzf decompress: %v", ErrMalformed, err)
	}
	plain = plain[:n]

	if err := readBody(bytes.NewReader(plain), tr, uint8(h.depth)); err != nil {
		return nil, err
	}
	logger.Debug().Str("type", h.id).Int("plain", len(plain)).Msg("read compressed tree")
	return tr, nil
}
