package jwe

import (
	"crypto/ecdsa"
	"crypto/rand"
	"fmt"

	jose "github.com/lokera666/jose/pkg"
	"github.com/lokera666/jose/pkg/base64"
	"github.com/lokera666/jose/pkg/header"
	"github.com/lokera666/jose/pkg/jwa"
	"github.com/lokera666/jose/pkg/jwk"
)

// ecdhesAlgorithmID returns the Concat KDF AlgorithmID and derived key
// size for an ECDH-ES family algorithm: the content encryption
// algorithm and its key size for direct key agreement, the key
// management algorithm and its KEK size for the key-wrapping variants.
//
// https://datatracker.ietf.org/doc/html/rfc7518#section-4.6.2
func ecdhesAlgorithmID(alg, enc jwa.Algorithm) (string, int, error) {
	if alg == jwa.ECDHES {
		size, err := jwa.CEKSize(enc)
		if err != nil {
			return "", 0, fmt.Errorf("%w: %v", jose.ErrNotSupported, err)
		}
		return enc, size, nil
	}

	size, err := jwa.KeyWrapKEKSize(alg)
	if err != nil {
		return "", 0, fmt.Errorf("%w: %v", jose.ErrNotSupported, err)
	}
	return alg, size, nil
}

// deriveECDHESForEncrypt generates an ephemeral key on the recipient
// key's curve, derives the shared key via ECDH and the Concat KDF, and
// returns it along with the "epk" header parameter to emit.
func deriveECDHESForEncrypt(alg, enc jwa.Algorithm, recipientKey any, apu, apv []byte) ([]byte, jwk.Value, error) {
	publicKey, ok := recipientKey.(*ecdsa.PublicKey)
	if !ok {
		return nil, nil, fmt.Errorf("%w: invalid key type %T for %q, want *ecdsa.PublicKey",
			jose.ErrValidation, recipientKey, alg)
	}

	ephemeral, err := ecdsa.GenerateKey(publicKey.Curve, rand.Reader)
	if err != nil {
		return nil, nil, fmt.Errorf("failed to generate ephemeral key: %w", err)
	}

	sharedKey, err := deriveECDHES(alg, enc, ephemeral, publicKey, apu, apv)
	if err != nil {
		return nil, nil, err
	}

	epk, err := jwk.FromECDSAPublicKey(&ephemeral.PublicKey)
	if err != nil {
		return nil, nil, fmt.Errorf("failed to build %q header: %w", header.EphemeralPublicKey, err)
	}

	return sharedKey, epk, nil
}

// deriveECDHESForDecrypt recovers the shared key from the recipient's
// private key and the sender's ephemeral public key carried in the
// "epk" header parameter of the merged header.
func deriveECDHESForDecrypt(alg, enc jwa.Algorithm, recipientKey any, merged header.Parameters) ([]byte, error) {
	privateKey, ok := recipientKey.(*ecdsa.PrivateKey)
	if !ok {
		return nil, fmt.Errorf("%w: invalid key type %T for %q, want *ecdsa.PrivateKey",
			jose.ErrValidation, recipientKey, alg)
	}

	epkValue, ok := merged[header.EphemeralPublicKey]
	if !ok {
		return nil, fmt.Errorf("%w: header does not contain a %q paramater",
			jose.ErrValidation, header.EphemeralPublicKey)
	}

	epk, ok := epkValue.(map[string]any)
	if !ok {
		return nil, fmt.Errorf("%w: header paramater %q is not an object, is %T",
			jose.ErrValidation, header.EphemeralPublicKey, epkValue)
	}

	ephemeral, err := jwk.ECDSAPublicKey(epk)
	if err != nil {
		return nil, fmt.Errorf("%w: invalid %q header: %v",
			jose.ErrValidation, header.EphemeralPublicKey, err)
	}

	apu, err := agreementPartyInfo(merged, header.AgreementPartyUInfo)
	if err != nil {
		return nil, err
	}
	apv, err := agreementPartyInfo(merged, header.AgreementPartyVInfo)
	if err != nil {
		return nil, err
	}

	return deriveECDHES(alg, enc, privateKey, ephemeral, apu, apv)
}

// deriveECDHES computes Z over the curve and feeds it through the
// Concat KDF keyed by the algorithm identifier and party info.
func deriveECDHES(alg, enc jwa.Algorithm, privateKey *ecdsa.PrivateKey, publicKey *ecdsa.PublicKey, apu, apv []byte) ([]byte, error) {
	algorithmID, keySize, err := ecdhesAlgorithmID(alg, enc)
	if err != nil {
		return nil, err
	}

	ecdhPrivate, err := privateKey.ECDH()
	if err != nil {
		return nil, fmt.Errorf("%w: invalid ECDH private key", jose.ErrCryptographic)
	}

	ecdhPublic, err := publicKey.ECDH()
	if err != nil {
		return nil, fmt.Errorf("%w: invalid ECDH public key", jose.ErrCryptographic)
	}

	z, err := ecdhPrivate.ECDH(ecdhPublic)
	if err != nil {
		// Curve mismatch and point validity failures collapse here.
		return nil, fmt.Errorf("%w: failed to agree on key", jose.ErrCryptographic)
	}

	return concatKDF(z, algorithmID, apu, apv, keySize)
}

// agreementPartyInfo decodes an optional "apu" or "apv" header value.
func agreementPartyInfo(merged header.Parameters, name header.ParamaterName) ([]byte, error) {
	value, ok := merged[name]
	if !ok {
		return nil, nil
	}

	str, ok := value.(string)
	if !ok {
		return nil, fmt.Errorf("%w: header paramater %q is not a string, is %T", jose.ErrValidation, name, value)
	}

	decoded, err := base64.Decode(str)
	if err != nil {
		return nil, fmt.Errorf("%w: header paramater %q is not base64url: %v", jose.ErrValidation, name, err)
	}

	return decoded, nil
}
