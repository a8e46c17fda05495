package jwe

import (
	"crypto/aes"
	"crypto/rand"
	"crypto/rsa"
	"crypto/sha1"
	"crypto/sha256"
	"crypto/sha512"
	"fmt"
	"hash"
	"io"

	jose "github.com/lokera666/jose/pkg"
	"github.com/lokera666/jose/pkg/base64"
	"github.com/lokera666/jose/pkg/header"
	"github.com/lokera666/jose/pkg/jwa"
	"golang.org/x/crypto/pbkdf2"
)

// DefaultPBES2Count is the PBES2 iteration count used on encrypt when
// the caller does not supply "p2c".
const DefaultPBES2Count = 10000

// DefaultMaxPBES2Count bounds the "p2c" value accepted on decrypt, so
// that a maliciously large iteration count cannot be used to burn CPU
// before any authentication happens.
const DefaultMaxPBES2Count = 1000000

const pbes2SaltSize = 16

// keyManagementResult is the outcome of the encrypt-side key
// management step for one recipient: the content encryption key, the
// wrapped key bytes to transport (if any), and extra header parameters
// to merge into the recipient's header (if any).
type keyManagementResult struct {
	cek          []byte
	encryptedKey []byte
	params       header.Parameters
}

// symmetricKey converts a shared secret given as a byte slice or
// string into bytes.
func symmetricKey(alg jwa.Algorithm, key any) ([]byte, error) {
	switch key := key.(type) {
	case []byte:
		return key, nil
	case string:
		return []byte(key), nil
	default:
		return nil, fmt.Errorf("%w: invalid key type %T for %q, want a byte slice or string",
			jose.ErrValidation, key, alg)
	}
}

func randomBytes(n int) ([]byte, error) {
	b := make([]byte, n)
	if _, err := io.ReadFull(rand.Reader, b); err != nil {
		return nil, fmt.Errorf("failed to read random bytes: %w", err)
	}
	return b, nil
}

// proposedOrRandomCEK returns the CEK shared across recipients if one
// is already fixed, or generates a fresh one of the size mandated by
// the content encryption algorithm.
func proposedOrRandomCEK(enc jwa.Algorithm, proposed []byte) ([]byte, error) {
	if proposed != nil {
		return proposed, nil
	}

	size, err := jwa.CEKSize(enc)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", jose.ErrNotSupported, err)
	}
	return randomBytes(size)
}

// oaepHash returns the OAEP digest for the RSA-OAEP algorithm variants.
func oaepHash(alg jwa.Algorithm) (hash.Hash, error) {
	switch alg {
	case jwa.RSAOAEP:
		return sha1.New(), nil
	case jwa.RSAOAEP256:
		return sha256.New(), nil
	case jwa.RSAOAEP384:
		return sha512.New384(), nil
	case jwa.RSAOAEP512:
		return sha512.New(), nil
	default:
		return nil, fmt.Errorf("%w: algorithm %q", jose.ErrNotSupported, alg)
	}
}

// pbes2Hash returns the PBKDF2 digest for the PBES2 algorithm variants.
func pbes2Hash(alg jwa.Algorithm) (func() hash.Hash, error) {
	switch alg {
	case jwa.PBES2HS256A128KW:
		return sha256.New, nil
	case jwa.PBES2HS384A192KW:
		return sha512.New384, nil
	case jwa.PBES2HS512A256KW:
		return sha512.New, nil
	default:
		return nil, fmt.Errorf("%w: algorithm %q", jose.ErrNotSupported, alg)
	}
}

// pbes2Salt builds the PBKDF2 salt: the algorithm identifier, a zero
// byte, then the "p2s" salt input.
//
// https://datatracker.ietf.org/doc/html/rfc7518#section-4.8.1.1
func pbes2Salt(alg jwa.Algorithm, saltInput []byte) []byte {
	salt := make([]byte, 0, len(alg)+1+len(saltInput))
	salt = append(salt, alg...)
	salt = append(salt, 0x00)
	return append(salt, saltInput...)
}

// wrapWithAES wraps the CEK under the given KEK with AES Key Wrap,
// validating the KEK size mandated by the algorithm.
func wrapWithAES(alg jwa.Algorithm, kek, cek []byte) ([]byte, error) {
	size, err := jwa.KeyWrapKEKSize(alg)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", jose.ErrNotSupported, err)
	}
	if len(kek) != size {
		return nil, fmt.Errorf("%w: key for %q must be %d bytes, got %d",
			jose.ErrValidation, alg, size, len(kek))
	}

	block, err := aes.NewCipher(kek)
	if err != nil {
		return nil, fmt.Errorf("failed to create AES cipher: %w", err)
	}
	return keyWrap(block, cek)
}

func unwrapWithAES(alg jwa.Algorithm, kek, encryptedKey []byte) ([]byte, error) {
	size, err := jwa.KeyWrapKEKSize(alg)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", jose.ErrNotSupported, err)
	}
	if len(kek) != size {
		return nil, fmt.Errorf("%w: key for %q must be %d bytes, got %d",
			jose.ErrValidation, alg, size, len(kek))
	}

	block, err := aes.NewCipher(kek)
	if err != nil {
		return nil, fmt.Errorf("failed to create AES cipher: %w", err)
	}
	return keyUnwrap(block, encryptedKey)
}

// encryptCEK performs the encrypt-side key management step for one
// recipient: it produces (or accepts) the content encryption key and
// derives the wrapped key bytes and header parameters to emit.
//
// proposedCEK carries the CEK already fixed by an earlier recipient of
// a multi-recipient JWE, or an explicit caller-supplied CEK; it must be
// nil for "dir" and "ECDH-ES", whose CEK is determined by the key
// itself. configured is the recipient's merged header as configured so
// far, consulted for "apu", "apv", and "p2c" inputs.
func encryptCEK(alg, enc jwa.Algorithm, key any, proposedCEK []byte, configured header.Parameters) (*keyManagementResult, error) {
	switch alg {
	case jwa.Direct:
		if proposedCEK != nil {
			return nil, fmt.Errorf("%w: cannot supply a content encryption key for %q", jose.ErrValidation, alg)
		}
		cek, err := symmetricKey(alg, key)
		if err != nil {
			return nil, err
		}
		return &keyManagementResult{cek: cek}, nil

	case jwa.ECDHES:
		if proposedCEK != nil {
			return nil, fmt.Errorf("%w: cannot supply a content encryption key for %q", jose.ErrValidation, alg)
		}
		apu, err := agreementPartyInfo(configured, header.AgreementPartyUInfo)
		if err != nil {
			return nil, err
		}
		apv, err := agreementPartyInfo(configured, header.AgreementPartyVInfo)
		if err != nil {
			return nil, err
		}
		cek, epk, err := deriveECDHESForEncrypt(alg, enc, key, apu, apv)
		if err != nil {
			return nil, err
		}
		return &keyManagementResult{
			cek:    cek,
			params: header.Parameters{header.EphemeralPublicKey: epk},
		}, nil

	case jwa.ECDHESA128KW, jwa.ECDHESA192KW, jwa.ECDHESA256KW:
		apu, err := agreementPartyInfo(configured, header.AgreementPartyUInfo)
		if err != nil {
			return nil, err
		}
		apv, err := agreementPartyInfo(configured, header.AgreementPartyVInfo)
		if err != nil {
			return nil, err
		}
		kek, epk, err := deriveECDHESForEncrypt(alg, enc, key, apu, apv)
		if err != nil {
			return nil, err
		}
		cek, err := proposedOrRandomCEK(enc, proposedCEK)
		if err != nil {
			return nil, err
		}
		encryptedKey, err := wrapWithAES(alg, kek, cek)
		if err != nil {
			return nil, err
		}
		return &keyManagementResult{
			cek:          cek,
			encryptedKey: encryptedKey,
			params:       header.Parameters{header.EphemeralPublicKey: epk},
		}, nil

	case jwa.RSA1_5, jwa.RSAOAEP, jwa.RSAOAEP256, jwa.RSAOAEP384, jwa.RSAOAEP512:
		publicKey, ok := key.(*rsa.PublicKey)
		if !ok {
			return nil, fmt.Errorf("%w: invalid key type %T for %q, want *rsa.PublicKey",
				jose.ErrValidation, key, alg)
		}
		cek, err := proposedOrRandomCEK(enc, proposedCEK)
		if err != nil {
			return nil, err
		}

		var encryptedKey []byte
		if alg == jwa.RSA1_5 {
			encryptedKey, err = rsa.EncryptPKCS1v15(rand.Reader, publicKey, cek)
		} else {
			var digest hash.Hash
			digest, err = oaepHash(alg)
			if err != nil {
				return nil, err
			}
			encryptedKey, err = rsa.EncryptOAEP(digest, rand.Reader, publicKey, cek, nil)
		}
		if err != nil {
			return nil, fmt.Errorf("%w: failed to encrypt key", jose.ErrCryptographic)
		}
		return &keyManagementResult{cek: cek, encryptedKey: encryptedKey}, nil

	case jwa.A128KW, jwa.A192KW, jwa.A256KW:
		kek, err := symmetricKey(alg, key)
		if err != nil {
			return nil, err
		}
		cek, err := proposedOrRandomCEK(enc, proposedCEK)
		if err != nil {
			return nil, err
		}
		encryptedKey, err := wrapWithAES(alg, kek, cek)
		if err != nil {
			return nil, err
		}
		return &keyManagementResult{cek: cek, encryptedKey: encryptedKey}, nil

	case jwa.A128GCMKW, jwa.A192GCMKW, jwa.A256GCMKW:
		kek, err := symmetricKey(alg, key)
		if err != nil {
			return nil, err
		}
		size, err := jwa.KeyWrapKEKSize(alg)
		if err != nil {
			return nil, fmt.Errorf("%w: %v", jose.ErrNotSupported, err)
		}
		if len(kek) != size {
			return nil, fmt.Errorf("%w: key for %q must be %d bytes, got %d",
				jose.ErrValidation, alg, size, len(kek))
		}
		cek, err := proposedOrRandomCEK(enc, proposedCEK)
		if err != nil {
			return nil, err
		}

		aead, err := newGCM(kek)
		if err != nil {
			return nil, err
		}
		iv, err := randomBytes(aead.NonceSize())
		if err != nil {
			return nil, err
		}

		sealed := aead.Seal(nil, iv, cek, nil)
		split := len(sealed) - aead.Overhead()

		return &keyManagementResult{
			cek:          cek,
			encryptedKey: sealed[:split],
			params: header.Parameters{
				header.InitializationVector: base64.Encode(iv),
				header.AuthenticationTag:    base64.Encode(sealed[split:]),
			},
		}, nil

	case jwa.PBES2HS256A128KW, jwa.PBES2HS384A192KW, jwa.PBES2HS512A256KW:
		password, err := symmetricKey(alg, key)
		if err != nil {
			return nil, err
		}
		hashFunc, err := pbes2Hash(alg)
		if err != nil {
			return nil, err
		}
		keySize, err := jwa.KeyWrapKEKSize(alg)
		if err != nil {
			return nil, fmt.Errorf("%w: %v", jose.ErrNotSupported, err)
		}

		count := DefaultPBES2Count
		if value, ok := configured[header.PBES2Count]; ok {
			configuredCount, ok := value.(int)
			if !ok {
				return nil, fmt.Errorf("%w: header paramater %q is not an integer, is %T",
					jose.ErrValidation, header.PBES2Count, value)
			}
			count = configuredCount
		}
		if count <= 0 {
			return nil, fmt.Errorf("%w: header paramater %q must be positive", jose.ErrValidation, header.PBES2Count)
		}

		saltInput, err := randomBytes(pbes2SaltSize)
		if err != nil {
			return nil, err
		}

		kek := pbkdf2.Key(password, pbes2Salt(alg, saltInput), count, keySize, hashFunc)

		cek, err := proposedOrRandomCEK(enc, proposedCEK)
		if err != nil {
			return nil, err
		}
		encryptedKey, err := wrapWithAES(alg, kek, cek)
		if err != nil {
			return nil, err
		}
		return &keyManagementResult{
			cek:          cek,
			encryptedKey: encryptedKey,
			params: header.Parameters{
				header.PBES2SaltInput: base64.Encode(saltInput),
				header.PBES2Count:     count,
			},
		}, nil

	default:
		return nil, fmt.Errorf("%w: key management algorithm %q", jose.ErrNotSupported, alg)
	}
}

// decryptCEK is the algebraic inverse of encryptCEK: it recovers the
// content encryption key for one recipient from the wrapped key bytes
// and the merged header. Any primitive failure surfaces as a single
// generic jose.ErrCryptographic, never distinguishing cause.
func decryptCEK(alg, enc jwa.Algorithm, key any, encryptedKey []byte, merged header.Parameters, maxPBES2Count int) ([]byte, error) {
	switch alg {
	case jwa.Direct:
		if len(encryptedKey) != 0 {
			return nil, fmt.Errorf("%w: unexpected encrypted key for %q", jose.ErrValidation, alg)
		}
		return symmetricKey(alg, key)

	case jwa.ECDHES:
		if len(encryptedKey) != 0 {
			return nil, fmt.Errorf("%w: unexpected encrypted key for %q", jose.ErrValidation, alg)
		}
		return deriveECDHESForDecrypt(alg, enc, key, merged)

	case jwa.ECDHESA128KW, jwa.ECDHESA192KW, jwa.ECDHESA256KW:
		kek, err := deriveECDHESForDecrypt(alg, enc, key, merged)
		if err != nil {
			return nil, err
		}
		return unwrapWithAES(alg, kek, encryptedKey)

	case jwa.RSA1_5:
		privateKey, ok := key.(*rsa.PrivateKey)
		if !ok {
			return nil, fmt.Errorf("%w: invalid key type %T for %q, want *rsa.PrivateKey",
				jose.ErrValidation, key, alg)
		}

		size, err := jwa.CEKSize(enc)
		if err != nil {
			return nil, fmt.Errorf("%w: %v", jose.ErrNotSupported, err)
		}

		if len(encryptedKey) != privateKey.PublicKey.Size() {
			return nil, fmt.Errorf("%w: failed to decrypt key", jose.ErrCryptographic)
		}

		// Decrypt into a random CEK so that padding failures are
		// indistinguishable from a wrong key; a mismatch then fails at
		// the content authentication tag (Bleichenbacher countermeasure
		// from RFC 3218).
		cek, err := randomBytes(size)
		if err != nil {
			return nil, err
		}
		_ = rsa.DecryptPKCS1v15SessionKey(rand.Reader, privateKey, encryptedKey, cek)
		return cek, nil

	case jwa.RSAOAEP, jwa.RSAOAEP256, jwa.RSAOAEP384, jwa.RSAOAEP512:
		privateKey, ok := key.(*rsa.PrivateKey)
		if !ok {
			return nil, fmt.Errorf("%w: invalid key type %T for %q, want *rsa.PrivateKey",
				jose.ErrValidation, key, alg)
		}
		digest, err := oaepHash(alg)
		if err != nil {
			return nil, err
		}
		cek, err := rsa.DecryptOAEP(digest, rand.Reader, privateKey, encryptedKey, nil)
		if err != nil {
			return nil, fmt.Errorf("%w: failed to decrypt key", jose.ErrCryptographic)
		}
		return cek, nil

	case jwa.A128KW, jwa.A192KW, jwa.A256KW:
		kek, err := symmetricKey(alg, key)
		if err != nil {
			return nil, err
		}
		return unwrapWithAES(alg, kek, encryptedKey)

	case jwa.A128GCMKW, jwa.A192GCMKW, jwa.A256GCMKW:
		kek, err := symmetricKey(alg, key)
		if err != nil {
			return nil, err
		}
		size, err := jwa.KeyWrapKEKSize(alg)
		if err != nil {
			return nil, fmt.Errorf("%w: %v", jose.ErrNotSupported, err)
		}
		if len(kek) != size {
			return nil, fmt.Errorf("%w: key for %q must be %d bytes, got %d",
				jose.ErrValidation, alg, size, len(kek))
		}

		iv, err := headerBytes(merged, header.InitializationVector)
		if err != nil {
			return nil, err
		}
		tag, err := headerBytes(merged, header.AuthenticationTag)
		if err != nil {
			return nil, err
		}

		aead, err := newGCM(kek)
		if err != nil {
			return nil, err
		}
		if len(iv) != aead.NonceSize() {
			return nil, fmt.Errorf("%w: header paramater %q must be %d bytes",
				jose.ErrValidation, header.InitializationVector, aead.NonceSize())
		}

		sealed := make([]byte, 0, len(encryptedKey)+len(tag))
		sealed = append(sealed, encryptedKey...)
		sealed = append(sealed, tag...)

		cek, err := aead.Open(nil, iv, sealed, nil)
		if err != nil {
			return nil, fmt.Errorf("%w: failed to decrypt key", jose.ErrCryptographic)
		}
		return cek, nil

	case jwa.PBES2HS256A128KW, jwa.PBES2HS384A192KW, jwa.PBES2HS512A256KW:
		password, err := symmetricKey(alg, key)
		if err != nil {
			return nil, err
		}
		hashFunc, err := pbes2Hash(alg)
		if err != nil {
			return nil, err
		}
		keySize, err := jwa.KeyWrapKEKSize(alg)
		if err != nil {
			return nil, fmt.Errorf("%w: %v", jose.ErrNotSupported, err)
		}

		saltInput, err := headerBytes(merged, header.PBES2SaltInput)
		if err != nil {
			return nil, err
		}

		count, err := pbes2CountValue(merged)
		if err != nil {
			return nil, err
		}
		// The iteration count is attacker-controlled until the content
		// authentication tag is checked; it must be bounded before
		// PBKDF2 executes.
		if count > maxPBES2Count {
			return nil, fmt.Errorf("%w: header paramater %q value %d exceeds maximum %d",
				jose.ErrValidation, header.PBES2Count, count, maxPBES2Count)
		}

		kek := pbkdf2.Key(password, pbes2Salt(alg, saltInput), count, keySize, hashFunc)
		return unwrapWithAES(alg, kek, encryptedKey)

	default:
		return nil, fmt.Errorf("%w: key management algorithm %q", jose.ErrNotSupported, alg)
	}
}

// headerBytes decodes a required base64url string header parameter.
func headerBytes(merged header.Parameters, name header.ParamaterName) ([]byte, error) {
	str, err := merged.GetString(name)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", jose.ErrValidation, err)
	}
	decoded, err := base64.Decode(str)
	if err != nil {
		return nil, fmt.Errorf("%w: header paramater %q is not base64url: %v", jose.ErrValidation, name, err)
	}
	return decoded, nil
}

// pbes2CountValue reads "p2c", which decodes from JSON as float64 but
// may be constructed in Go as int.
func pbes2CountValue(merged header.Parameters) (int, error) {
	value, ok := merged[header.PBES2Count]
	if !ok {
		return 0, fmt.Errorf("%w: header does not contain a %q paramater", jose.ErrValidation, header.PBES2Count)
	}

	var count int
	switch v := value.(type) {
	case int:
		count = v
	case int64:
		count = int(v)
	case float64:
		count = int(v)
	default:
		return 0, fmt.Errorf("%w: header paramater %q is not an integer, is %T",
			jose.ErrValidation, header.PBES2Count, value)
	}

	if count <= 0 {
		return 0, fmt.Errorf("%w: header paramater %q must be positive", jose.ErrValidation, header.PBES2Count)
	}

	return count, nil
}
