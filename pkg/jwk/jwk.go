package jwk

import (
	"crypto/ecdsa"
	"crypto/ed25519"
	"crypto/elliptic"
	"crypto/rsa"
	"fmt"
	"math/big"

	"github.com/lokera666/jose/pkg/base64"
)

// https://datatracker.ietf.org/doc/html/rfc7517#section-4
type (
	ParamaterName = string

	RSA       = ParamaterName
	ECDSA     = ParamaterName
	Symmetric = ParamaterName
)

const (
	KeyType              ParamaterName = "kty"      // https://datatracker.ietf.org/doc/html/rfc7517#section-4.1
	PublicKeyUse         ParamaterName = "use"      // https://datatracker.ietf.org/doc/html/rfc7517#section-4.2
	KeyOperations        ParamaterName = "key_ops"  // https://datatracker.ietf.org/doc/html/rfc7517#section-4.3
	Algorithm            ParamaterName = "alg"      // https://datatracker.ietf.org/doc/html/rfc7517#section-4.4
	KeyID                ParamaterName = "kid"      // https://datatracker.ietf.org/doc/html/rfc7517#section-4.5
	X509URL              ParamaterName = "x5u"      // https://datatracker.ietf.org/doc/html/rfc7517#section-4.6
	X509CertificateChain ParamaterName = "x5c"      // https://datatracker.ietf.org/doc/html/rfc7517#section-4.7
	X509SHA1Thumbprint   ParamaterName = "x5t"      // https://datatracker.ietf.org/doc/html/rfc7517#section-4.8
	X509SHA256Thumbprint ParamaterName = "x5t#S256" // https://datatracker.ietf.org/doc/html/rfc7517#section-4.9

	// K is the symmetric key value within a JWK.
	// https://datatracker.ietf.org/doc/html/rfc7517#appendix-A.3
	K Symmetric = "k"

	// Curve is the curve value within an ECDSA JWK, such as "P-256".
	// https://datatracker.ietf.org/doc/html/rfc7517#appendix-A.3
	Curve ECDSA = "crv"
	X     ECDSA = "x" // X is the x-coordinate for the elliptic curve point.
	Y     ECDSA = "y" // Y is the y-coordinate for the elliptic curve point.

	N RSA = "n" // N is the RSA public modulus value.
	E RSA = "e" // E is the RSA public exponent value.
	D RSA = "d" // D is the RSA private exponent value.
)

// Value is a JSON object containing the parameters describing
// the cryptographic operations and parameters employed.
//
// https://datatracker.ietf.org/doc/html/rfc7517#section-4
type Value = map[ParamaterName]any

// Validate checks that the required parameters are present for
// the given key type, and that the values are valid.
func Validate(v Value) error {
	_, ok := v[KeyType]
	if !ok {
		return fmt.Errorf("missing required paramater %q", KeyType)
	}

	switch v[KeyType] {
	case "EC":
		curveValue, ok := v[Curve]
		if !ok {
			return fmt.Errorf("missing required paramater %q", Curve)
		}

		if curve, ok := curveValue.(string); ok {
			switch curve {
			case "P-256", "P-384", "P-521":
				// ok
			default:
				return fmt.Errorf("invalid curve %q", curve)
			}
		} else {
			return fmt.Errorf("invalid curve type %T", curveValue)
		}

		for _, name := range []ParamaterName{X, Y} {
			value, ok := v[name]
			if !ok {
				return fmt.Errorf("missing required paramater %q", name)
			}
			coord, ok := value.(string)
			if !ok {
				return fmt.Errorf("invalid type for %q", name)
			}
			if _, err := base64.Decode(coord); err != nil {
				return fmt.Errorf("invalid base64 encoding for %q: %w", name, err)
			}
		}
	case "RSA":
		for _, name := range []ParamaterName{N, E} {
			value, ok := v[name]
			if !ok {
				return fmt.Errorf("missing required paramater %q", name)
			}
			str, ok := value.(string)
			if !ok {
				return fmt.Errorf("invalid type for %q", name)
			}
			if _, err := base64.Decode(str); err != nil {
				return fmt.Errorf("invalid base64 encoding for %q: %w", name, err)
			}
		}

		if dValue, ok := v[D]; ok { // optional
			d, ok := dValue.(string)
			if !ok {
				return fmt.Errorf("invalid type for %q", D)
			}
			if _, err := base64.Decode(d); err != nil {
				return fmt.Errorf("invalid base64 encoding for %q: %w", D, err)
			}
		}
	case "OKP":
		if v[Curve] != "Ed25519" {
			return fmt.Errorf("invalid curve %q", v[Curve])
		}
		xValue, ok := v[X]
		if !ok {
			return fmt.Errorf("missing required paramater %q", X)
		}
		x, ok := xValue.(string)
		if !ok {
			return fmt.Errorf("invalid type for %q", X)
		}
		if _, err := base64.Decode(x); err != nil {
			return fmt.Errorf("invalid base64 encoding for %q: %w", X, err)
		}
	case "oct":
		kValue, ok := v[K]
		if !ok {
			return fmt.Errorf("missing required paramater %q", K)
		}
		k, ok := kValue.(string)
		if !ok {
			return fmt.Errorf("invalid type for %q", K)
		}
		if _, err := base64.Decode(k); err != nil {
			return fmt.Errorf("invalid base64 encoding for %q: %w", K, err)
		}
	default:
		return fmt.Errorf("unknown key type %q", v[KeyType])
	}

	return nil
}

// RSAValues returns the values for the RSA key type.
func RSAValues(v Value) (n, e, d string, err error) {
	if v[KeyType] != "RSA" {
		err = fmt.Errorf("JWK value is not RSA")
		return
	}

	if nValue, ok := v[N]; ok {
		n = fmt.Sprintf("%v", nValue)
	} else {
		err = fmt.Errorf("no %q set", N)
		return
	}

	if eValue, ok := v[E]; ok {
		e = fmt.Sprintf("%v", eValue)
	} else {
		err = fmt.Errorf("no %q set", E)
		return
	}

	if dValue, ok := v[D]; ok {
		d = fmt.Sprintf("%v", dValue)
	}
	// d can be empty

	return
}

// ECDSAValues returns the values for the ECDSA key type.
func ECDSAValues(v Value) (crv, x, y string, err error) {
	if v[KeyType] != "EC" {
		err = fmt.Errorf("JWK value is not EC")
		return
	}

	crv = fmt.Sprintf("%v", v[Curve])
	if crv == "" {
		err = fmt.Errorf("no %q set", Curve)
		return
	}

	x = fmt.Sprintf("%v", v[X])
	if x == "" {
		err = fmt.Errorf("no %q set", X)
		return
	}

	y = fmt.Sprintf("%v", v[Y])
	if y == "" {
		err = fmt.Errorf("no %q set", Y)
		return
	}

	return
}

// Ed25519Values returns the values for the Ed25519 key type.
func Ed25519Values(v Value) (x string, err error) {
	if v[KeyType] != "OKP" {
		err = fmt.Errorf("JWK value is not OKP")
		return
	}

	if v[Curve] != "Ed25519" {
		err = fmt.Errorf("JWK value is not Ed25519")
		return
	}

	x = fmt.Sprintf("%v", v[X])
	if x == "" {
		err = fmt.Errorf("no %q set", X)
		return
	}

	return
}

// SymmetricKey returns the symmetric key.
func SymmetricKey(v Value) (k string, err error) {
	if value, ok := v[K]; ok {
		k = fmt.Sprintf("%v", value)
	}

	if k == "" {
		err = fmt.Errorf("no symmetric key value set")
	}

	return
}

// HMACSecretKey returns the HMAC secret key (symmetric key).
func HMACSecretKey(v Value) ([]byte, error) {
	key, err := SymmetricKey(v)
	if err != nil {
		return nil, fmt.Errorf("failed to get symmetric key: %w", err)
	}
	return base64.Decode(key)
}

// minRSAModulusBits is the smallest RSA modulus size accepted for
// public keys, matching the minimum required by RFC 7518 for the
// RSA based JWS and JWE algorithms.
const minRSAModulusBits = 2048

// RSAPublicKey returns the RSA public key and blinding value, or an error
// if the key is not an RSA public key, the modulus is too small, or the
// exponent is out of range.
func RSAPublicKey(v Value) (pkey *rsa.PublicKey, blindingValue []byte, err error) {
	nEnc, eEnc, dEnc, err := RSAValues(v)
	if err != nil {
		err = fmt.Errorf("failed to get RSA public key: %w", err)
		return
	}

	var (
		// n is the RSA public modulus.
		n = new(big.Int)

		// e is the RSA public exponent.
		e = new(big.Int)
	)

	pkey = &rsa.PublicKey{}

	nBytes, err := base64.Decode(nEnc)
	if err != nil {
		err = fmt.Errorf("failed to decode RSA public key N: %w", err)
		return
	}
	n.SetBytes(nBytes)

	if n.BitLen() < minRSAModulusBits {
		err = fmt.Errorf("RSA public key modulus too small: %d bits, need at least %d bits", n.BitLen(), minRSAModulusBits)
		return
	}

	pkey.N = n

	eBytes, err := base64.Decode(eEnc)
	if err != nil {
		err = fmt.Errorf("failed to decode RSA public key E: %w", err)
		return
	}
	e.SetBytes(eBytes)

	if e.BitLen() > 31 {
		err = fmt.Errorf("RSA public key exponent too large: %d bits", e.BitLen())
		return
	}

	pkey.E = int(e.Int64())

	if pkey.E <= 1 {
		err = fmt.Errorf("invalid RSA public key exponent: %d", pkey.E)
		return
	}

	// d is optional
	if len(dEnc) > 0 {
		blindingValue, err = base64.Decode(dEnc)
		if err != nil {
			err = fmt.Errorf("failed to decode RSA public key D: %w", err)
			return
		}
	}

	return
}

// CurveByName returns the elliptic curve for the given JWK "crv" value.
func CurveByName(crv string) (elliptic.Curve, error) {
	switch crv {
	case "P-256":
		return elliptic.P256(), nil
	case "P-384":
		return elliptic.P384(), nil
	case "P-521":
		return elliptic.P521(), nil
	default:
		return nil, fmt.Errorf("invalid curve %q", crv)
	}
}

// CurveName returns the JWK "crv" value for the given elliptic curve.
func CurveName(curve elliptic.Curve) (string, error) {
	switch curve {
	case elliptic.P256():
		return "P-256", nil
	case elliptic.P384():
		return "P-384", nil
	case elliptic.P521():
		return "P-521", nil
	default:
		return "", fmt.Errorf("invalid curve %v", curve)
	}
}

// ECDSAPublicKey returns the ECDSA public key, or an error if the key
// is not an ECDSA public key, the curve is unknown, or the point is not
// on the curve.
func ECDSAPublicKey(v Value) (pkey *ecdsa.PublicKey, err error) {
	crv, xEnc, yEnc, err := ECDSAValues(v)
	if err != nil {
		err = fmt.Errorf("failed to get ECDSA values for public key: %w", err)
		return
	}

	curve, err := CurveByName(crv)
	if err != nil {
		err = fmt.Errorf("failed to get ECDSA curve for public key: %w", err)
		return
	}

	pkey = &ecdsa.PublicKey{
		Curve: curve,
		X:     new(big.Int),
		Y:     new(big.Int),
	}

	xBytes, err := base64.Decode(xEnc)
	if err != nil {
		err = fmt.Errorf("failed to decode ECDSA public key X: %w", err)
		return
	}
	pkey.X.SetBytes(xBytes)

	yBytes, err := base64.Decode(yEnc)
	if err != nil {
		err = fmt.Errorf("failed to decode ECDSA public key Y: %w", err)
		return
	}
	pkey.Y.SetBytes(yBytes)

	if !curve.IsOnCurve(pkey.X, pkey.Y) {
		err = fmt.Errorf("ECDSA public key point is not on curve %q", crv)
		return
	}

	return
}

// Ed25519PublicKey returns the Ed25519 public key, or an error if the
// key is not an Ed25519 public key.
func Ed25519PublicKey(v Value) (pkey ed25519.PublicKey, err error) {
	x, err := Ed25519Values(v)
	if err != nil {
		err = fmt.Errorf("failed to get Ed25519 values for public key: %w", err)
		return
	}

	xBytes, err := base64.Decode(x)
	if err != nil {
		err = fmt.Errorf("failed to decode Ed25519 public key X: %w", err)
		return
	}

	// check the length of the key to make sure it is 32 bytes
	if len(xBytes) != ed25519.PublicKeySize {
		err = fmt.Errorf("invalid Ed25519 public key X length: %d", len(xBytes))
		return
	}

	pkey = xBytes

	return
}

// FromECDSAPublicKey returns a minimal EC JWK value for the given public
// key, with the coordinates zero-padded to the curve's byte length as
// required for interoperable "epk" header parameters.
func FromECDSAPublicKey(pubKey *ecdsa.PublicKey) (Value, error) {
	crv, err := CurveName(pubKey.Curve)
	if err != nil {
		return nil, fmt.Errorf("failed to get curve name for JWK value: %w", err)
	}

	size := (pubKey.Curve.Params().BitSize + 7) / 8

	return Value{
		KeyType: "EC",
		Curve:   crv,
		X:       base64.Encode(padCoordinate(pubKey.X, size)),
		Y:       base64.Encode(padCoordinate(pubKey.Y, size)),
	}, nil
}

func padCoordinate(v *big.Int, size int) []byte {
	b := v.Bytes()
	if len(b) >= size {
		return b
	}
	padded := make([]byte, size)
	copy(padded[size-len(b):], b)
	return padded
}

// ValueFromPublicKey returns a JWK value from the given public key.
func ValueFromPublicKey(pubKey any) (Value, error) {
	switch pubKey := pubKey.(type) {
	case *rsa.PublicKey:
		value := Value{
			KeyType:      "RSA",
			PublicKeyUse: "sig",
			N:            base64.Encode(pubKey.N.Bytes()),
			E:            base64.Encode(big.NewInt(int64(pubKey.E)).Bytes()),
		}

		return value, nil
	case *ecdsa.PublicKey:
		value, err := FromECDSAPublicKey(pubKey)
		if err != nil {
			return nil, err
		}
		value[PublicKeyUse] = "sig"

		return value, nil
	case ed25519.PublicKey:
		return Value{
			KeyType:      "OKP",
			PublicKeyUse: "sig",
			Curve:        "Ed25519",
			X:            base64.Encode(pubKey),
		}, nil
	default:
		return nil, fmt.Errorf("invalid public key type %T used for JWK value", pubKey)
	}
}

// PublicKey returns the Go public key for the given JWK value.
func PublicKey(v Value) (any, error) {
	switch v[KeyType] {
	case "RSA":
		key, _, err := RSAPublicKey(v)
		return key, err
	case "EC":
		return ECDSAPublicKey(v)
	case "OKP":
		return Ed25519PublicKey(v)
	case "oct":
		return HMACSecretKey(v)
	default:
		return nil, fmt.Errorf("unknown key type %q", v[KeyType])
	}
}

// Set is a JWK set as defined in RFC 7517.
//
// https://datatracker.ietf.org/doc/html/rfc7517#section-5
type Set struct {
	Keys []Value `json:"keys"`
}

// Validate validates the JWK set, returning an error if any
// of the keys are invalid.
func (s *Set) Validate() error {
	for _, key := range s.Keys {
		if err := Validate(key); err != nil {
			return fmt.Errorf("invalid JWK set: %w", err)
		}
	}
	return nil
}

// Get returns the key that matches the given key id.
func (s *Set) Get(keyID string) (Value, error) {
	for _, key := range s.Keys {
		if key[KeyID] == keyID {
			return key, nil
		}
	}
	return nil, fmt.Errorf("key %q not found in set", keyID)
}
