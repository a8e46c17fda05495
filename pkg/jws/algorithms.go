package jws

import (
	"crypto"
	"crypto/ecdsa"
	"crypto/ed25519"
	"crypto/hmac"
	"crypto/rand"
	"crypto/rsa"
	"fmt"
	"math/big"

	jose "github.com/lokera666/jose/pkg"
	"github.com/lokera666/jose/pkg/jwa"
)

// algorithm to corresponding hash function
var algHash = map[jwa.Algorithm]crypto.Hash{
	jwa.HS256: crypto.SHA256,
	jwa.HS384: crypto.SHA384,
	jwa.HS512: crypto.SHA512,
	jwa.RS256: crypto.SHA256,
	jwa.RS384: crypto.SHA384,
	jwa.RS512: crypto.SHA512,
	jwa.ES256: crypto.SHA256,
	jwa.ES384: crypto.SHA384,
	jwa.ES512: crypto.SHA512,
	jwa.PS256: crypto.SHA256,
	jwa.PS384: crypto.SHA384,
	jwa.PS512: crypto.SHA512,
	jwa.EdDSA: crypto.Hash(0), // no hashing for EdDSA
}

// algorithm to ECDSA signature component size in bytes
var algECKeySize = map[jwa.Algorithm]int{
	jwa.ES256: 32,
	jwa.ES384: 48,
	jwa.ES512: 66,
}

// symmetricKeyBytes converts a shared secret given as a byte slice or
// string into bytes.
func symmetricKeyBytes(key any) ([]byte, error) {
	switch key := key.(type) {
	case []byte:
		return key, nil
	case string:
		return []byte(key), nil
	default:
		return nil, fmt.Errorf("secret key is %T, not a byte slice or string", key)
	}
}

// ComputeSignature signs the given data with the given algorithm and
// key, returning the raw signature bytes.
//
// Algorithm(s) to Supported Key Type(s):
//   - HS256, HS384, HS512: []byte or string
//   - RS256, RS384, RS512, PS256, PS384, PS512: *rsa.PrivateKey
//   - ES256, ES384, ES512: *ecdsa.PrivateKey
//   - EdDSA: ed25519.PrivateKey
//   - none: no key, empty signature
func ComputeSignature(alg jwa.Algorithm, key any, data []byte) ([]byte, error) {
	switch alg {
	case jwa.HS256, jwa.HS384, jwa.HS512:
		return hmacSignature(algHash[alg], key, data)
	case jwa.RS256, jwa.RS384, jwa.RS512:
		privateKey, ok := key.(*rsa.PrivateKey)
		if !ok {
			return nil, fmt.Errorf("invalid secret key type %T for %q", key, alg)
		}
		return rsaSignature(algHash[alg], privateKey, data)
	case jwa.PS256, jwa.PS384, jwa.PS512:
		privateKey, ok := key.(*rsa.PrivateKey)
		if !ok {
			return nil, fmt.Errorf("invalid secret key type %T for %q", key, alg)
		}
		return rsaPSSSignature(algHash[alg], privateKey, data)
	case jwa.ES256, jwa.ES384, jwa.ES512:
		privateKey, ok := key.(*ecdsa.PrivateKey)
		if !ok {
			return nil, fmt.Errorf("invalid secret key type %T for %q", key, alg)
		}
		return ecdsaSignature(alg, privateKey, data)
	case jwa.EdDSA:
		privateKey, ok := key.(ed25519.PrivateKey)
		if !ok {
			return nil, fmt.Errorf("invalid secret key type %T for %q", key, alg)
		}
		if len(privateKey) != ed25519.PrivateKeySize {
			return nil, fmt.Errorf("invalid EdDSA private key size")
		}
		return ed25519.Sign(privateKey, data), nil
	case jwa.None:
		return nil, nil
	default:
		return nil, fmt.Errorf("%w: algorithm %q not implemented", jose.ErrNotSupported, alg)
	}
}

// CheckSignature verifies the given signature over data with the given
// algorithm and key. Any mismatch is reported as a generic
// jose.ErrCryptographic, never distinguishing cause.
func CheckSignature(alg jwa.Algorithm, key any, data, signature []byte) error {
	switch alg {
	case jwa.HS256, jwa.HS384, jwa.HS512:
		expected, err := hmacSignature(algHash[alg], key, data)
		if err != nil {
			return err
		}
		if !hmac.Equal(signature, expected) {
			return fmt.Errorf("%w: invalid HMAC", jose.ErrCryptographic)
		}
		return nil
	case jwa.RS256, jwa.RS384, jwa.RS512:
		publicKey, ok := key.(*rsa.PublicKey)
		if !ok {
			return fmt.Errorf("invalid public key type %T for %q", key, alg)
		}
		hash := algHash[alg]
		h := hash.New()
		h.Write(data)
		if err := rsa.VerifyPKCS1v15(publicKey, hash, h.Sum(nil), signature); err != nil {
			return fmt.Errorf("%w: invalid RSA signature", jose.ErrCryptographic)
		}
		return nil
	case jwa.PS256, jwa.PS384, jwa.PS512:
		publicKey, ok := key.(*rsa.PublicKey)
		if !ok {
			return fmt.Errorf("invalid public key type %T for %q", key, alg)
		}
		hash := algHash[alg]
		h := hash.New()
		h.Write(data)
		opts := &rsa.PSSOptions{SaltLength: rsa.PSSSaltLengthEqualsHash, Hash: hash}
		if err := rsa.VerifyPSS(publicKey, hash, h.Sum(nil), signature, opts); err != nil {
			return fmt.Errorf("%w: invalid RSA-PSS signature", jose.ErrCryptographic)
		}
		return nil
	case jwa.ES256, jwa.ES384, jwa.ES512:
		publicKey, ok := key.(*ecdsa.PublicKey)
		if !ok {
			return fmt.Errorf("invalid public key type %T for %q", key, alg)
		}
		return checkECDSASignature(alg, publicKey, data, signature)
	case jwa.EdDSA:
		publicKey, ok := key.(ed25519.PublicKey)
		if !ok {
			return fmt.Errorf("invalid public key type %T for %q", key, alg)
		}
		if len(publicKey) != ed25519.PublicKeySize {
			return fmt.Errorf("invalid EdDSA public key size")
		}
		if !ed25519.Verify(publicKey, data, signature) {
			return fmt.Errorf("%w: invalid EdDSA signature", jose.ErrCryptographic)
		}
		return nil
	case jwa.None:
		if len(signature) != 0 {
			return fmt.Errorf("%w: unexpected signature for %q", jose.ErrCryptographic, jwa.None)
		}
		return nil
	default:
		return fmt.Errorf("%w: algorithm %q not implemented", jose.ErrNotSupported, alg)
	}
}

func hmacSignature(hash crypto.Hash, key any, data []byte) ([]byte, error) {
	secretKey, err := symmetricKeyBytes(key)
	if err != nil {
		return nil, err
	}

	if len(secretKey) == 0 {
		return nil, fmt.Errorf("no secret key provided, cannot complete operation")
	}

	if !hash.Available() {
		return nil, fmt.Errorf("requested hash is not available")
	}

	h := hmac.New(hash.New, secretKey)
	h.Write(data)
	return h.Sum(nil), nil
}

func rsaSignature(hash crypto.Hash, privateKey *rsa.PrivateKey, data []byte) ([]byte, error) {
	if !hash.Available() {
		return nil, fmt.Errorf("requested hash is not available")
	}

	if privateKey == nil {
		return nil, fmt.Errorf("no RSA private key")
	}

	h := hash.New()
	h.Write(data)

	return rsa.SignPKCS1v15(rand.Reader, privateKey, hash, h.Sum(nil))
}

func rsaPSSSignature(hash crypto.Hash, privateKey *rsa.PrivateKey, data []byte) ([]byte, error) {
	if !hash.Available() {
		return nil, fmt.Errorf("requested hash is not available")
	}

	if privateKey == nil {
		return nil, fmt.Errorf("no RSA private key")
	}

	h := hash.New()
	h.Write(data)

	opts := &rsa.PSSOptions{SaltLength: rsa.PSSSaltLengthEqualsHash, Hash: hash}
	return rsa.SignPSS(rand.Reader, privateKey, hash, h.Sum(nil), opts)
}

// ecdsaSignature produces the fixed-width R || S signature encoding
// required by JWS, padding each component to the curve byte size.
func ecdsaSignature(alg jwa.Algorithm, privateKey *ecdsa.PrivateKey, data []byte) ([]byte, error) {
	hash := algHash[alg]
	if !hash.Available() {
		return nil, fmt.Errorf("requested hash is not available")
	}

	if privateKey == nil {
		return nil, fmt.Errorf("no ECDSA private key")
	}

	keySize := algECKeySize[alg]
	expectedBits := privateKey.Curve.Params().BitSize
	if (expectedBits+7)/8 != keySize {
		return nil, fmt.Errorf("invalid ECDSA key, curve size does not match algorithm %q", alg)
	}

	h := hash.New()
	h.Write(data)

	r, s, err := ecdsa.Sign(rand.Reader, privateKey, h.Sum(nil))
	if err != nil {
		return nil, fmt.Errorf("failed to sign with ECDSA private key: %w", err)
	}

	out := make([]byte, 2*keySize)

	rBytes := r.Bytes()
	copy(out[keySize-len(rBytes):], rBytes)

	sBytes := s.Bytes()
	copy(out[2*keySize-len(sBytes):], sBytes)

	return out, nil
}

func checkECDSASignature(alg jwa.Algorithm, publicKey *ecdsa.PublicKey, data, signature []byte) error {
	hash := algHash[alg]
	if !hash.Available() {
		return fmt.Errorf("requested hash is not available")
	}

	if publicKey == nil {
		return fmt.Errorf("no ECDSA public key")
	}

	keySize := algECKeySize[alg]
	if len(signature) != 2*keySize {
		return fmt.Errorf("%w: invalid ECDSA signature length", jose.ErrCryptographic)
	}

	h := hash.New()
	h.Write(data)

	r := big.NewInt(0).SetBytes(signature[:keySize])
	s := big.NewInt(0).SetBytes(signature[keySize:])

	if !ecdsa.Verify(publicKey, h.Sum(nil), r, s) {
		return fmt.Errorf("%w: invalid ECDSA signature", jose.ErrCryptographic)
	}

	return nil
}
