package jwe

import (
	"crypto/cipher"
	"crypto/subtle"
	"encoding/binary"
	"fmt"

	jose "github.com/lokera666/jose/pkg"
)

// AES Key Wrap as defined in RFC 3394, used by the A*KW algorithms and
// the key-wrapping variants of ECDH-ES and PBES2.
//
// https://datatracker.ietf.org/doc/html/rfc3394

const keywrapChunkSize = 8

var keywrapDefaultIV = [keywrapChunkSize]byte{0xa6, 0xa6, 0xa6, 0xa6, 0xa6, 0xa6, 0xa6, 0xa6}

// keyWrap wraps the content encryption key with the given block cipher.
func keyWrap(kek cipher.Block, cek []byte) ([]byte, error) {
	if len(cek)%keywrapChunkSize != 0 || len(cek) < 2*keywrapChunkSize {
		return nil, fmt.Errorf("%w: key to wrap must be a multiple of %d bytes", jose.ErrValidation, keywrapChunkSize)
	}

	n := len(cek) / keywrapChunkSize
	r := make([][]byte, n)
	for i := range r {
		r[i] = make([]byte, keywrapChunkSize)
		copy(r[i], cek[i*keywrapChunkSize:])
	}

	buffer := make([]byte, 2*keywrapChunkSize)
	copy(buffer, keywrapDefaultIV[:])

	var counter [keywrapChunkSize]byte

	for t := 0; t < 6*n; t++ {
		copy(buffer[keywrapChunkSize:], r[t%n])

		kek.Encrypt(buffer, buffer)

		binary.BigEndian.PutUint64(counter[:], uint64(t+1))
		for i := 0; i < keywrapChunkSize; i++ {
			buffer[i] ^= counter[i]
		}

		copy(r[t%n], buffer[keywrapChunkSize:])
	}

	out := make([]byte, (n+1)*keywrapChunkSize)
	copy(out, buffer[:keywrapChunkSize])
	for i := range r {
		copy(out[(i+1)*keywrapChunkSize:], r[i])
	}

	return out, nil
}

// keyUnwrap reverses keyWrap, failing with a generic cryptographic
// error when the integrity check value does not match.
func keyUnwrap(kek cipher.Block, wrapped []byte) ([]byte, error) {
	if len(wrapped)%keywrapChunkSize != 0 || len(wrapped) < 3*keywrapChunkSize {
		return nil, fmt.Errorf("%w: failed to unwrap key", jose.ErrCryptographic)
	}

	n := len(wrapped)/keywrapChunkSize - 1
	r := make([][]byte, n)
	for i := range r {
		r[i] = make([]byte, keywrapChunkSize)
		copy(r[i], wrapped[(i+1)*keywrapChunkSize:])
	}

	buffer := make([]byte, 2*keywrapChunkSize)
	copy(buffer, wrapped[:keywrapChunkSize])

	var counter [keywrapChunkSize]byte

	for t := 6*n - 1; t >= 0; t-- {
		binary.BigEndian.PutUint64(counter[:], uint64(t+1))
		for i := 0; i < keywrapChunkSize; i++ {
			buffer[i] ^= counter[i]
		}
		copy(buffer[keywrapChunkSize:], r[t%n])

		kek.Decrypt(buffer, buffer)

		copy(r[t%n], buffer[keywrapChunkSize:])
	}

	if subtle.ConstantTimeCompare(buffer[:keywrapChunkSize], keywrapDefaultIV[:]) != 1 {
		return nil, fmt.Errorf("%w: failed to unwrap key", jose.ErrCryptographic)
	}

	out := make([]byte, n*keywrapChunkSize)
	for i := range r {
		copy(out[i*keywrapChunkSize:], r[i])
	}

	return out, nil
}
