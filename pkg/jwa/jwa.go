package jwa

import (
	"golang.org/x/exp/slices"
)

// https://datatracker.ietf.org/doc/html/rfc7518#section-3.1
type Algorithm = string

// HMAC with SHA-2 Functions
//
// These algorithms are used to construct a MAC using a shared secret
// and the Hash-based Message Authentication Code (HMAC) construction
// [RFC2104] employing SHA-2 [SHS] hash functions.
//
// https://datatracker.ietf.org/doc/html/rfc7518#section-3.2
const (
	HS256 Algorithm = "HS256"
	HS384 Algorithm = "HS384"
	HS512 Algorithm = "HS512"
)

// RSASSA-PKCS1-v1_5
//
// These algorithms are used to digitally sign a JWS and produce a
// JWS Signature using PKCS #1 v1.5 methods.
//
// # RSA Key Size
//
// A key of size 2048 bits or larger MUST be used with these algorithms.
//
// https://datatracker.ietf.org/doc/html/rfc7518#section-3.3
const (
	RS256 Algorithm = "RS256"
	RS384 Algorithm = "RS384"
	RS512 Algorithm = "RS512"
)

// ECDSA
//
// These algorithms are used to digitally sign a JWS and produce a
// JWS Signature using ECDSA algorithms.
//
// https://datatracker.ietf.org/doc/html/rfc7518#section-3.4
const (
	ES256 Algorithm = "ES256"
	ES384 Algorithm = "ES384"
	ES512 Algorithm = "ES512"
)

// RSASSA-PSS
//
// These algorithms are used to digitally sign a JWS and produce a
// JWS Signature using the RSASSA-PSS algorithms.
//
// # RSA Key Size
//
// A key of size 2048 bits or larger MUST be used with these algorithms.
//
// https://datatracker.ietf.org/doc/html/rfc7518#section-3.5
const (
	PS256 Algorithm = "PS256"
	PS384 Algorithm = "PS384"
	PS512 Algorithm = "PS512"
)

// No signature or MAC performed (unprotected JWS). This algorithm is
// intended to be used to create a JWS that is not integrity protected.
//
// # Warning
//
// The use of this algorithm is considered dangerous. Do NOT use this
// algorithm, it's only implemented for completeness.
//
// https://datatracker.ietf.org/doc/html/rfc7518#section-3.6
const None Algorithm = "none"

// I have no idea where these are documented, but other libraries implement them?
const (
	ES256K Algorithm = "ES256K"
	EdDSA  Algorithm = "EdDSA"
)

// Key management algorithms, used by JWE to determine or transport the
// content encryption key (CEK) for a recipient.
//
// https://datatracker.ietf.org/doc/html/rfc7518#section-4.1
const (
	// Direct use of a shared symmetric key as the CEK.
	Direct Algorithm = "dir"

	// RSAES-PKCS1-v1_5 and RSAES-OAEP key encryption.
	RSA1_5     Algorithm = "RSA1_5"
	RSAOAEP    Algorithm = "RSA-OAEP"
	RSAOAEP256 Algorithm = "RSA-OAEP-256"
	RSAOAEP384 Algorithm = "RSA-OAEP-384"
	RSAOAEP512 Algorithm = "RSA-OAEP-512"

	// AES Key Wrap using 128/192/256-bit keys.
	A128KW Algorithm = "A128KW"
	A192KW Algorithm = "A192KW"
	A256KW Algorithm = "A256KW"

	// Key wrapping with AES GCM using 128/192/256-bit keys.
	A128GCMKW Algorithm = "A128GCMKW"
	A192GCMKW Algorithm = "A192GCMKW"
	A256GCMKW Algorithm = "A256GCMKW"

	// Elliptic Curve Diffie-Hellman Ephemeral Static key agreement,
	// either used directly ("ECDH-ES") or to wrap the CEK with AES
	// Key Wrap ("ECDH-ES+A128KW", etc).
	ECDHES       Algorithm = "ECDH-ES"
	ECDHESA128KW Algorithm = "ECDH-ES+A128KW"
	ECDHESA192KW Algorithm = "ECDH-ES+A192KW"
	ECDHESA256KW Algorithm = "ECDH-ES+A256KW"

	// PBES2 password-based key encryption.
	PBES2HS256A128KW Algorithm = "PBES2-HS256+A128KW"
	PBES2HS384A192KW Algorithm = "PBES2-HS384+A192KW"
	PBES2HS512A256KW Algorithm = "PBES2-HS512+A256KW"
)

// Content encryption algorithms, used by JWE as the value of the "enc"
// header parameter to perform authenticated encryption of the plaintext.
//
// https://datatracker.ietf.org/doc/html/rfc7518#section-5.1
const (
	A128CBCHS256 Algorithm = "A128CBC-HS256"
	A192CBCHS384 Algorithm = "A192CBC-HS384"
	A256CBCHS512 Algorithm = "A256CBC-HS512"

	A128GCM Algorithm = "A128GCM"
	A192GCM Algorithm = "A192GCM"
	A256GCM Algorithm = "A256GCM"
)

// AllowedAlgorithms is an ordered allow-list of algorithms a caller
// accepts for a cryptographic operation.
type AllowedAlgorithms []Algorithm

// NewAllowedAlgorithms returns an allow-list for the given algorithms,
// dropping duplicates while preserving order.
func NewAllowedAlgorithms(algs ...Algorithm) AllowedAlgorithms {
	allowed := make(AllowedAlgorithms, 0, len(algs))
	for _, alg := range algs {
		if !slices.Contains(allowed, alg) {
			allowed = append(allowed, alg)
		}
	}
	return allowed
}

// List returns a copy of the allowed algorithms.
func (a AllowedAlgorithms) List() []Algorithm {
	return slices.Clone(a)
}

// Allowed reports whether every given algorithm is in the allow-list.
func (a AllowedAlgorithms) Allowed(algs ...Algorithm) bool {
	if len(algs) == 0 {
		return false
	}
	for _, alg := range algs {
		if !slices.Contains(a, alg) {
			return false
		}
	}
	return true
}

// DefaultAllowedAlgorithms returns the algorithms that are allowed to be
// used when the caller does not configure an allow-list.
func DefaultAllowedAlgorithms() AllowedAlgorithms {
	return AllowedAlgorithms{
		RS256, ES256,
	}
}

// CEKSize returns the required content encryption key size in bytes
// for the given content encryption ("enc") algorithm.
//
// The composite CBC-HMAC algorithms require keys twice the size of the
// underlying AES key, split evenly into a MAC half and an encryption half.
func CEKSize(enc Algorithm) (int, error) {
	switch enc {
	case A128GCM:
		return 16, nil
	case A192GCM:
		return 24, nil
	case A256GCM:
		return 32, nil
	case A128CBCHS256:
		return 32, nil
	case A192CBCHS384:
		return 48, nil
	case A256CBCHS512:
		return 64, nil
	default:
		return 0, &UnsupportedError{Algorithm: enc}
	}
}

// IVSize returns the required initialization vector size in bytes for
// the given content encryption ("enc") algorithm: 96 bits for the GCM
// family, 128 bits for the CBC-HMAC family.
func IVSize(enc Algorithm) (int, error) {
	switch enc {
	case A128GCM, A192GCM, A256GCM:
		return 12, nil
	case A128CBCHS256, A192CBCHS384, A256CBCHS512:
		return 16, nil
	default:
		return 0, &UnsupportedError{Algorithm: enc}
	}
}

// KeyWrapKEKSize returns the key encryption key size in bytes used by
// the AES based key wrapping algorithms, including their ECDH-ES and
// PBES2 variants.
func KeyWrapKEKSize(alg Algorithm) (int, error) {
	switch alg {
	case A128KW, A128GCMKW, ECDHESA128KW, PBES2HS256A128KW:
		return 16, nil
	case A192KW, A192GCMKW, ECDHESA192KW, PBES2HS384A192KW:
		return 24, nil
	case A256KW, A256GCMKW, ECDHESA256KW, PBES2HS512A256KW:
		return 32, nil
	default:
		return 0, &UnsupportedError{Algorithm: alg}
	}
}

// KeyManagementAlgorithms returns the closed set of key management
// algorithms understood by the JWE engine.
func KeyManagementAlgorithms() []Algorithm {
	return []Algorithm{
		Direct,
		RSA1_5, RSAOAEP, RSAOAEP256, RSAOAEP384, RSAOAEP512,
		A128KW, A192KW, A256KW,
		A128GCMKW, A192GCMKW, A256GCMKW,
		ECDHES, ECDHESA128KW, ECDHESA192KW, ECDHESA256KW,
		PBES2HS256A128KW, PBES2HS384A192KW, PBES2HS512A256KW,
	}
}

// ContentEncryptionAlgorithms returns the closed set of content
// encryption algorithms understood by the JWE engine.
func ContentEncryptionAlgorithms() []Algorithm {
	return []Algorithm{
		A128CBCHS256, A192CBCHS384, A256CBCHS512,
		A128GCM, A192GCM, A256GCM,
	}
}

// UnsupportedError is returned when an algorithm identifier is outside
// the closed set implemented by this module.
type UnsupportedError struct {
	Algorithm Algorithm
}

func (e *UnsupportedError) Error() string {
	return "jwa: unsupported algorithm " + string(e.Algorithm)
}
