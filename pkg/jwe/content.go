package jwe

import (
	"crypto/aes"
	"crypto/cipher"
	"crypto/hmac"
	"crypto/sha256"
	"crypto/sha512"
	"crypto/subtle"
	"encoding/binary"
	"fmt"
	"hash"

	jose "github.com/lokera666/jose/pkg"
	"github.com/lokera666/jose/pkg/jwa"
)

// seal performs authenticated encryption of the plaintext under the
// given content encryption algorithm, validating the CEK and IV lengths
// before any primitive runs.
func seal(enc jwa.Algorithm, cek, plaintext, iv, aad []byte) (ciphertext, tag []byte, err error) {
	if err := checkContentKey(enc, cek, iv); err != nil {
		return nil, nil, err
	}

	switch enc {
	case jwa.A128GCM, jwa.A192GCM, jwa.A256GCM:
		aead, err := newGCM(cek)
		if err != nil {
			return nil, nil, err
		}
		sealed := aead.Seal(nil, iv, plaintext, aad)
		split := len(sealed) - aead.Overhead()
		return sealed[:split], sealed[split:], nil
	case jwa.A128CBCHS256, jwa.A192CBCHS384, jwa.A256CBCHS512:
		return cbcHMACSeal(cek, plaintext, iv, aad)
	default:
		return nil, nil, fmt.Errorf("%w: content encryption algorithm %q", jose.ErrNotSupported, enc)
	}
}

// open reverses seal, verifying the authentication tag. Any mismatch is
// reported as a generic jose.ErrCryptographic.
func open(enc jwa.Algorithm, cek, ciphertext, iv, tag, aad []byte) ([]byte, error) {
	if err := checkContentKey(enc, cek, iv); err != nil {
		return nil, err
	}

	switch enc {
	case jwa.A128GCM, jwa.A192GCM, jwa.A256GCM:
		aead, err := newGCM(cek)
		if err != nil {
			return nil, err
		}
		sealed := make([]byte, 0, len(ciphertext)+len(tag))
		sealed = append(sealed, ciphertext...)
		sealed = append(sealed, tag...)
		plaintext, err := aead.Open(nil, iv, sealed, aad)
		if err != nil {
			return nil, fmt.Errorf("%w: failed to open content", jose.ErrCryptographic)
		}
		return plaintext, nil
	case jwa.A128CBCHS256, jwa.A192CBCHS384, jwa.A256CBCHS512:
		return cbcHMACOpen(cek, ciphertext, iv, tag, aad)
	default:
		return nil, fmt.Errorf("%w: content encryption algorithm %q", jose.ErrNotSupported, enc)
	}
}

// checkContentKey validates the CEK and IV lengths mandated by the
// content encryption algorithm, before the provider is invoked.
func checkContentKey(enc jwa.Algorithm, cek, iv []byte) error {
	keySize, err := jwa.CEKSize(enc)
	if err != nil {
		return fmt.Errorf("%w: %v", jose.ErrNotSupported, err)
	}
	if len(cek) != keySize {
		return fmt.Errorf("%w: content encryption key for %q must be %d bytes, got %d",
			jose.ErrValidation, enc, keySize, len(cek))
	}

	ivSize, err := jwa.IVSize(enc)
	if err != nil {
		return fmt.Errorf("%w: %v", jose.ErrNotSupported, err)
	}
	if len(iv) != ivSize {
		return fmt.Errorf("%w: initialization vector for %q must be %d bytes, got %d",
			jose.ErrValidation, enc, ivSize, len(iv))
	}

	return nil
}

func newGCM(cek []byte) (cipher.AEAD, error) {
	block, err := aes.NewCipher(cek)
	if err != nil {
		return nil, fmt.Errorf("failed to create AES cipher: %w", err)
	}
	aead, err := cipher.NewGCM(block)
	if err != nil {
		return nil, fmt.Errorf("failed to create GCM: %w", err)
	}
	return aead, nil
}

// cbcHMACHash returns the HMAC hash constructor for the composite
// algorithm, keyed by the size of the MAC half of the CEK.
func cbcHMACHash(macKeySize int) (func() hash.Hash, error) {
	switch macKeySize {
	case 16:
		return sha256.New, nil
	case 24:
		return sha512.New384, nil
	case 32:
		return sha512.New, nil
	default:
		return nil, fmt.Errorf("unsupported CBC-HMAC key size %d", macKeySize)
	}
}

// cbcHMACTag computes the truncated authentication tag of the composite
// AES_CBC_HMAC_SHA2 construction: HMAC over AAD || IV || ciphertext ||
// the big-endian bit length of the AAD, truncated to half the hash.
//
// https://datatracker.ietf.org/doc/html/rfc7518#section-5.2.2.1
func cbcHMACTag(macKey, iv, ciphertext, aad []byte) ([]byte, error) {
	hashFunc, err := cbcHMACHash(len(macKey))
	if err != nil {
		return nil, err
	}

	var aadLen [8]byte
	binary.BigEndian.PutUint64(aadLen[:], uint64(len(aad))*8)

	h := hmac.New(hashFunc, macKey)
	h.Write(aad)
	h.Write(iv)
	h.Write(ciphertext)
	h.Write(aadLen[:])

	return h.Sum(nil)[:len(macKey)], nil
}

// cbcHMACSeal implements the encrypt side of AES_CBC_HMAC_SHA2. The CEK
// splits into a MAC half followed by an encryption half of equal size.
func cbcHMACSeal(cek, plaintext, iv, aad []byte) (ciphertext, tag []byte, err error) {
	macKey, encKey := cek[:len(cek)/2], cek[len(cek)/2:]

	block, err := aes.NewCipher(encKey)
	if err != nil {
		return nil, nil, fmt.Errorf("failed to create AES cipher: %w", err)
	}

	padded := padPKCS7(plaintext, block.BlockSize())
	ciphertext = make([]byte, len(padded))
	cipher.NewCBCEncrypter(block, iv).CryptBlocks(ciphertext, padded)

	tag, err = cbcHMACTag(macKey, iv, ciphertext, aad)
	if err != nil {
		return nil, nil, err
	}

	return ciphertext, tag, nil
}

// cbcHMACOpen implements the decrypt side of AES_CBC_HMAC_SHA2,
// checking the tag in constant time before touching the padding.
func cbcHMACOpen(cek, ciphertext, iv, tag, aad []byte) ([]byte, error) {
	macKey, encKey := cek[:len(cek)/2], cek[len(cek)/2:]

	block, err := aes.NewCipher(encKey)
	if err != nil {
		return nil, fmt.Errorf("failed to create AES cipher: %w", err)
	}

	if len(ciphertext) == 0 || len(ciphertext)%block.BlockSize() != 0 {
		return nil, fmt.Errorf("%w: invalid ciphertext length", jose.ErrCryptographic)
	}

	expectedTag, err := cbcHMACTag(macKey, iv, ciphertext, aad)
	if err != nil {
		return nil, err
	}

	if subtle.ConstantTimeCompare(expectedTag, tag) != 1 {
		return nil, fmt.Errorf("%w: failed to open content", jose.ErrCryptographic)
	}

	padded := make([]byte, len(ciphertext))
	cipher.NewCBCDecrypter(block, iv).CryptBlocks(padded, ciphertext)

	plaintext, err := unpadPKCS7(padded, block.BlockSize())
	if err != nil {
		return nil, fmt.Errorf("%w: failed to open content", jose.ErrCryptographic)
	}

	return plaintext, nil
}

func padPKCS7(buf []byte, blockSize int) []byte {
	rem := blockSize - len(buf)%blockSize
	padded := make([]byte, len(buf)+rem)
	copy(padded, buf)
	for i := len(buf); i < len(padded); i++ {
		padded[i] = byte(rem)
	}
	return padded
}

func unpadPKCS7(buf []byte, blockSize int) ([]byte, error) {
	if len(buf) == 0 || len(buf)%blockSize != 0 {
		return nil, fmt.Errorf("invalid padded length")
	}

	rem := int(buf[len(buf)-1])
	if rem == 0 || rem > blockSize || rem > len(buf) {
		return nil, fmt.Errorf("invalid padding")
	}

	for _, b := range buf[len(buf)-rem:] {
		if int(b) != rem {
			return nil, fmt.Errorf("invalid padding")
		}
	}

	return buf[:len(buf)-rem], nil
}
