package jwe

import (
	"bytes"
	"fmt"
	"io"

	"github.com/klauspost/compress/flate"
	jose "github.com/lokera666/jose/pkg"
)

// DefaultMaxDecompressSize bounds the plaintext size produced when
// inflating a compressed JWE, so that a small ciphertext cannot expand
// into an arbitrarily large allocation.
const DefaultMaxDecompressSize = 10 * 1024 * 1024

// deflate compresses the plaintext with raw DEFLATE, as required by the
// "DEF" value of the "zip" header parameter.
//
// https://datatracker.ietf.org/doc/html/rfc7516#section-4.1.3
func deflate(plaintext []byte) ([]byte, error) {
	var buf bytes.Buffer

	w, err := flate.NewWriter(&buf, flate.DefaultCompression)
	if err != nil {
		return nil, fmt.Errorf("failed to create deflate writer: %w", err)
	}

	if _, err := w.Write(plaintext); err != nil {
		return nil, fmt.Errorf("failed to compress plaintext: %w", err)
	}

	if err := w.Close(); err != nil {
		return nil, fmt.Errorf("failed to compress plaintext: %w", err)
	}

	return buf.Bytes(), nil
}

// inflate decompresses a raw DEFLATE stream, refusing to produce more
// than maxSize bytes.
func inflate(compressed []byte, maxSize int64) ([]byte, error) {
	r := flate.NewReader(bytes.NewReader(compressed))
	defer r.Close()

	var buf bytes.Buffer

	n, err := io.Copy(&buf, io.LimitReader(r, maxSize+1))
	if err != nil {
		return nil, fmt.Errorf("%w: failed to decompress plaintext: %v", jose.ErrValidation, err)
	}
	if n > maxSize {
		return nil, fmt.Errorf("%w: decompressed plaintext exceeds %d bytes", jose.ErrValidation, maxSize)
	}

	return buf.Bytes(), nil
}
