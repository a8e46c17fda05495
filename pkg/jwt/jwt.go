package jwt

import (
	"bytes"
	"crypto"
	"crypto/ecdsa"
	"crypto/ed25519"
	"crypto/hmac"
	"crypto/rsa"
	"encoding/json"
	"fmt"
	"net/http"
	"strings"
	"time"

	"github.com/lokera666/jose/pkg/base64"
	"github.com/lokera666/jose/pkg/header"
	"github.com/lokera666/jose/pkg/jwa"
	"github.com/lokera666/jose/pkg/jws"
)

// Type "JWT" is the media type used by JSON Web Token (JWT).
//
// # Example
//
//	header := header.Parameters{
//		header.Type:      jwt.Type,
//		header.Algorithm: jwa.HS256,
//	}
//
// https://www.rfc-editor.org/rfc/rfc7515.html#section-3.3
const Type header.ParamaterName = "JWT"

// HeaderType is the value used for the "typ" header parameter of
// a JWT, an alias of Type.
const HeaderType = Type

// minRSAKeySize is the smallest RSA modulus accepted for signing or
// verifying, in bytes. RFC 7518 section 3.3 requires a key of 2048
// bits or larger for the RS and PS algorithm families.
const minRSAKeySize = 256 // 2048 bits

// Token is a decoded JSON Web Token, a string representing a
// set of claims as a JSON object that is encoded in a JWS or
// JWE, enabling the claims to be digitally signed or MACed
// and/or encrypted.
//
// At this time, only JWS JWTs are supported. In other words,
// these tokens are only signed, not encrypted.
//
// JWTs contain three parts, separated by dots (".") which are:
//
//  1. Header
//  2. Claims (Payload)
//  3. Signature
//
// https://datatracker.ietf.org/doc/html/rfc7519#section-1
type Token struct {
	// Header is the set of parameters that are used to describe
	// the cryptographic operations applied to the JWT claims set.
	Header header.Parameters

	// Claims is the set of claims that are asserted by the JWT.
	//
	// This is sometimes referred to as the "payload".
	Claims ClaimsSet

	// Signature is the cryptographic signature or MAC value
	// that is used to validate the JWT.
	Signature []byte

	// Raw is the (original) string representation of the JWT.
	raw string
}

// New can be used to create a signed Token object. If this fails for any
// reason, an error is returned with a nil token.
//
// Using this function does not require the given header parameters define
// the "typ" (header.Type), which is always set to "JWT" (header.TypeJWT), but
// callers can include it if they like.
//
// The claims set must not be empty, or will return an error.
//
// The given key can be a symmetric or asymmetric (private) key. The type for this
// argument depends on the algorithm "alg" defined in the header.
//
// Algorithm(s) to Supported Key Type(s):
//   - HS256, HS384, HS512: []byte or string
//   - RS256, RS384, RS512, PS256, PS384, PS512: *rsa.PrivateKey
//   - ES256, ES384, ES512: *ecdsa.PrivateKey
//   - EdDSA: ed25519.PrivateKey
func New(params header.Parameters, claims ClaimsSet, key any) (*Token, error) {
	// Given params set cannot be empty.
	if len(params) == 0 {
		return nil, fmt.Errorf("cannot create token with empty header parameters")
	}

	// Given claims set cannot be empty.
	if len(claims) == 0 {
		return nil, fmt.Errorf("cannot create token with empty claims set: %w", ErrNoClaimSet)
	}

	// Verify or otherwise handle registered claim types nicely.
	for name, value := range claims {
		switch name {
		case ExpirationTime, NotBefore, IssuedAt:
			switch v := value.(type) {
			// good
			case int64:
			// ok
			case time.Time:
				claims[name] = v.Unix()
			// bad
			default:
				return nil, fmt.Errorf("cannot use %T with %q", v, name)
			}
		case Issuer, Subject, JWTID:
			switch v := value.(type) {
			// good
			case string:
			// ok
			case fmt.Stringer:
				claims[name] = v.String()
			// bad
			default:
				return nil, fmt.Errorf("cannot use %T with %q", v, name)
			}
		case Audience:
			switch v := value.(type) {
			// good
			case string:
			// ok
			case fmt.Stringer:
				claims[name] = v.String()
			// also fine, one value for each audience
			case []string:
			case []any:
				for _, entry := range v {
					if _, ok := entry.(string); !ok {
						return nil, fmt.Errorf("cannot use %T with %q", entry, name)
					}
				}
			// bad
			default:
				return nil, fmt.Errorf("cannot use %T with %q", v, name)
			}
		}
	}

	// Ensure the "typ" header parameter is set to "JWT", as it is required.
	if _, ok := params[header.Type]; !ok {
		params[header.Type] = Type
	} else if params[header.Type] != Type {
		return nil, fmt.Errorf("header type %q is not supported", params[header.Type])
	}

	// Create a token, in preparation to sign it.
	token := &Token{
		Header: params,
		Claims: claims,
	}

	// Sign it.
	_, err := token.Sign(key)
	if err != nil {
		return nil, fmt.Errorf("failed to sign token: %w", err)
	}

	return token, nil
}

// computeString computes the string representation of the token,
// which is used for signing and verifying the token.
func (t *Token) computeString() string {
	buff := bytes.NewBuffer(nil)

	header, err := t.Header.Base64URLString()
	if err != nil {
		buff.Write([]byte(fmt.Sprintf("<invalid-header %#+v>.", header)))
	} else {
		buff.Write([]byte(header + "."))
	}

	if len(t.Claims) > 0 {
		buff.WriteString(t.Claims.String())
	}

	if len(t.Signature) != 0 {
		buff.Write([]byte("."))
		buff.WriteString(base64.Encode(t.Signature))
	}

	if len(t.raw) == 0 {
		t.raw = buff.String()
	}

	return buff.String()
}

// String returns the string representation of the token, which is
// the raw JWT string of three base64url encoded parts, separated
// by a period.
func (t *Token) String() string {
	// Return the raw string if it is set.
	if len(t.raw) != 0 {
		return t.raw
	}

	// If there raw string is not set, compute it.
	return t.computeString()
}

// signingInput returns the portion of the token that is covered by
// the signature, the base64url encoded header and claims joined by
// a period.
func (t *Token) signingInput() (string, error) {
	if len(t.raw) == 0 {
		t.raw = t.String()
	}

	parts := strings.Split(t.raw, ".")
	if len(parts) < 2 {
		return "", fmt.Errorf("incorrect number of JWT parts: %d", len(parts))
	}

	return strings.Join(parts[0:2], "."), nil
}

// PrivateKey is a type that can be used to sign a JWT,
// such as a *rsa.PrivateKey or *ecdsa.PrivateKey.
//
// This may be a shared secret key, such as a []byte or string, but
// this is not recommended.
type PrivateKey interface {
	*rsa.PrivateKey | *ecdsa.PrivateKey | ed25519.PrivateKey | []byte | string
}

// AsymmetricKey is a type that can be used to verify a JWT using
// an asymmetric algorithm, such as *rsa.PublicKey or *ecdsa.PublicKey.
type AsymmetricKey interface {
	*rsa.PublicKey | *ecdsa.PublicKey | ed25519.PublicKey
}

// SymmetricKey is a type that can be used to sign or verify a JWT using
// a symmetric algorithm, such as HMAC.
type SymmetricKey interface {
	[]byte | string
}

// VerifyKey is a type that can be used to verify a JWT using
// either a symmetric or asymmetric algorithm.
type VerifyKey interface {
	AsymmetricKey | SymmetricKey
}

// SigningKey is a type that can be used to sign a JWT using
// either a symmetric or asymmetric algorithm.
type SigningKey interface {
	PrivateKey | SymmetricKey
}

// Parseable is a type that can be parsed into a JWT,
// either a string or byte slice.
type Parseable interface {
	~string | ~[]byte
}

// Parse parses a given JWT, and returns a Token or an error
// if the JWT fails to parse.
//
// # Warning
//
// This is a low-level function that does not verify the
// signature of the token. Use ParseAndVerify to parse
// and verify the signature of a token in one step.
// Otherwise, use Parse to parse a token, and then
// use the VerifySignature method to verify the signature.
func Parse[T Parseable](input T) (*Token, error) {
	return ParseString(string(input))
}

// ParseAndVerify parses a given JWT, and verifies the signature
// using the given verification configuration options.
func ParseAndVerify[T Parseable](input T, veryifyOptions ...VerifyOption) (*Token, error) {
	token, err := Parse(input)
	if err != nil {
		return nil, fmt.Errorf("failed to parse JWT: %w", err)
	}

	err = token.Verify(veryifyOptions...)
	if err != nil {
		return nil, fmt.Errorf("failed to verify JWT signature: %w", err)
	}

	return token, nil
}

// ParseString parses a given JWT string, and returns a Token
// or an error if the JWT fails to parse.
//
// # Warning
//
// This is a low-level function that does not verify the
// signature of the token. Use ParseAndVerify to parse
// and verify the signature of a token in one step.
// Otherwise, use Parse to parse a token, and then
// use the VerifySignature method to verify the signature.
func ParseString(input string) (*Token, error) {
	token := &Token{}

	token.raw = input

	// Anything past the second period is the signature, which may
	// itself be empty, but never contains a period.
	fields := strings.SplitN(input, ".", 3)

	if len(fields) != 3 {
		return nil, fmt.Errorf("incorrect number of JWT parts: %d", len(fields))
	}

	b, err := base64.Decode(fields[0])
	if err != nil {
		return nil, fmt.Errorf("failed to decode JOSE header base64: %w", err)
	}
	h := jws.Header{}
	err = json.NewDecoder(bytes.NewReader(b)).Decode(&h)
	if err != nil {
		return nil, fmt.Errorf("failed to decode JOSE header JSON: %w", err)
	}
	token.Header = h

	// ensure using JWA types instead of raw string
	if _, ok := token.Header[header.Algorithm]; ok {
		token.Header[header.Algorithm] = jwa.Algorithm(fmt.Sprintf("%v", token.Header[header.Algorithm]))
	}

	b, err = base64.Decode(fields[1])
	if err != nil {
		return nil, fmt.Errorf("failed to decode claims base64: %w", err)
	}
	claims := ClaimsSet{}
	err = json.NewDecoder(bytes.NewReader(b)).Decode(&claims)
	if err != nil {
		return nil, fmt.Errorf("failed to decode claims JSON: %w", err)
	}
	token.Claims = claims

	for claimName, claimValue := range token.Claims {
		// parsing JSON values into an interface can be tricky
		switch claimName {
		case IssuedAt, ExpirationTime, NotBefore:
			switch v := claimValue.(type) {
			case int64: // good
			case float64: // ok
				token.Claims[claimName] = int64(v)
			default: // bad
				return nil, fmt.Errorf("invalid type %T used for %q", v, claimName)
			}
		}
	}

	b, err = base64.Decode(fields[2])
	if err != nil {
		return nil, fmt.Errorf("failed to decode signature base64: %w", err)
	}
	token.Signature = b

	return token, nil
}

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

// hash function to corresponding algorithm, per family
var (
	hmacAlg = map[crypto.Hash]jwa.Algorithm{
		crypto.SHA256: jwa.HS256,
		crypto.SHA384: jwa.HS384,
		crypto.SHA512: jwa.HS512,
	}
	rsaAlg = map[crypto.Hash]jwa.Algorithm{
		crypto.SHA256: jwa.RS256,
		crypto.SHA384: jwa.RS384,
		crypto.SHA512: jwa.RS512,
	}
	rsaPSSAlg = map[crypto.Hash]jwa.Algorithm{
		crypto.SHA256: jwa.PS256,
		crypto.SHA384: jwa.PS384,
		crypto.SHA512: jwa.PS512,
	}
	ecdsaAlg = map[crypto.Hash]jwa.Algorithm{
		crypto.SHA256: jwa.ES256,
		crypto.SHA384: jwa.ES384,
		crypto.SHA512: jwa.ES512,
	}
)

// validateRSAKeySize checks that an RSA key meets the RFC 7518
// minimum of 2048 bits before it is used to sign or verify.
func validateRSAKeySize(key any) error {
	var size int

	switch key := key.(type) {
	case *rsa.PrivateKey:
		size = key.Size()
	case *rsa.PublicKey:
		size = key.Size()
	default:
		return fmt.Errorf("invalid RSA key type: %T", key)
	}

	if size < minRSAKeySize {
		return fmt.Errorf("RSA key size %d bytes (%d bits) is below minimum required %d bytes (%d bits)",
			size, size*8, minRSAKeySize, minRSAKeySize*8)
	}

	return nil
}

// HMACSignature returns the HMAC signature of the token using the
// given hash and key.
//
// A key given as a byte slice must be at least as large as the hash
// output, per RFC 2104. String keys are accepted as-is to support
// passphrase-style shared secrets.
func (t *Token) HMACSignature(hash crypto.Hash, key any) ([]byte, error) {
	switch key := key.(type) {
	case []byte:
		if len(key) < hash.Size() {
			return nil, fmt.Errorf("HMAC key must be at least %d bytes", hash.Size())
		}
	case string:
		// ok
	default:
		return nil, fmt.Errorf("secret key is %T, not a byte slice or string", key)
	}

	data, err := t.signingInput()
	if err != nil {
		return nil, err
	}

	return jws.ComputeSignature(hmacAlg[hash], key, []byte(data))
}

// VerifyHMACSignature verifies the HMAC signature of the token using the
// given hash and key.
func (t *Token) VerifyHMACSignature(hash crypto.Hash, key any) error {
	// Compute the HMAC signature.
	sig, err := t.HMACSignature(hash, key)
	if err != nil {
		return fmt.Errorf("failed to generate HMAC signature: %w", err)
	}

	// Compare the signature to the token's signature.
	if !hmac.Equal(t.Signature, sig) {
		return fmt.Errorf("invalid HMAC signature")
	}

	return nil
}

// RSASignature returns the RSASSA-PKCS1-v1_5 signature of the token
// using the given hash and private key.
func (t *Token) RSASignature(hash crypto.Hash, privateKey *rsa.PrivateKey) ([]byte, error) {
	if privateKey == nil {
		return nil, fmt.Errorf("no RSA private key")
	}

	if err := validateRSAKeySize(privateKey); err != nil {
		return nil, fmt.Errorf("RSA key validation failed: %w", err)
	}

	data, err := t.signingInput()
	if err != nil {
		return nil, err
	}

	return jws.ComputeSignature(rsaAlg[hash], privateKey, []byte(data))
}

// VerifyRSASignature verifies the RSASSA-PKCS1-v1_5 signature of the
// token using the given hash and public key.
func (t *Token) VerifyRSASignature(hash crypto.Hash, publicKey *rsa.PublicKey) error {
	if publicKey == nil {
		return fmt.Errorf("no RSA public key")
	}

	if err := validateRSAKeySize(publicKey); err != nil {
		return fmt.Errorf("RSA key validation failed: %w", err)
	}

	data, err := t.signingInput()
	if err != nil {
		return fmt.Errorf("failed to split token: %w", err)
	}

	err = jws.CheckSignature(rsaAlg[hash], publicKey, []byte(data), t.Signature)
	if err != nil {
		return fmt.Errorf("failed to verify RSA signature: %w", err)
	}

	return nil
}

// RSAPSSSignature returns the RSASSA-PSS signature of the token using
// the given hash and private key.
func (t *Token) RSAPSSSignature(hash crypto.Hash, privateKey *rsa.PrivateKey) ([]byte, error) {
	if privateKey == nil {
		return nil, fmt.Errorf("no RSA private key")
	}

	if err := validateRSAKeySize(privateKey); err != nil {
		return nil, fmt.Errorf("RSA key validation failed: %w", err)
	}

	data, err := t.signingInput()
	if err != nil {
		return nil, err
	}

	return jws.ComputeSignature(rsaPSSAlg[hash], privateKey, []byte(data))
}

// VerifyRSAPSSSignature verifies the RSASSA-PSS signature of the token
// using the given hash and public key.
func (t *Token) VerifyRSAPSSSignature(hash crypto.Hash, publicKey *rsa.PublicKey) error {
	if publicKey == nil {
		return fmt.Errorf("no RSA public key")
	}

	if err := validateRSAKeySize(publicKey); err != nil {
		return fmt.Errorf("RSA key validation failed: %w", err)
	}

	data, err := t.signingInput()
	if err != nil {
		return fmt.Errorf("failed to split token: %w", err)
	}

	err = jws.CheckSignature(rsaPSSAlg[hash], publicKey, []byte(data), t.Signature)
	if err != nil {
		return fmt.Errorf("failed to verify RSA-PSS signature: %w", err)
	}

	return nil
}

// ECDSASignature returns the ECDSA signature of the token using the
// given hash and private key.
func (t *Token) ECDSASignature(hash crypto.Hash, privateKey *ecdsa.PrivateKey) ([]byte, error) {
	if privateKey == nil {
		return nil, fmt.Errorf("no ECDSA private key")
	}

	alg, ok := ecdsaAlg[hash]
	if !ok {
		return nil, fmt.Errorf("invalid hash %v requested", hash)
	}

	data, err := t.signingInput()
	if err != nil {
		return nil, err
	}

	return jws.ComputeSignature(alg, privateKey, []byte(data))
}

// VerifyECDSASignature verifies the ECDSA signature of the token using the
// given hash and public key.
func (t *Token) VerifyECDSASignature(hash crypto.Hash, publicKey *ecdsa.PublicKey) error {
	if publicKey == nil {
		return fmt.Errorf("no ECDSA public key")
	}

	alg, ok := ecdsaAlg[hash]
	if !ok {
		return fmt.Errorf("invalid hash %v requested", hash)
	}

	data, err := t.signingInput()
	if err != nil {
		return fmt.Errorf("failed to split token: %w", err)
	}

	err = jws.CheckSignature(alg, publicKey, []byte(data), t.Signature)
	if err != nil {
		return fmt.Errorf("failed to validate ECDSA signature: %w", err)
	}

	return nil
}

// EdDSASignature returns the EdDSA signature of the token using the
// given private key.
func (t *Token) EdDSASignature(privateKey ed25519.PrivateKey) ([]byte, error) {
	if len(privateKey) == 0 {
		return nil, fmt.Errorf("no EdDSA private key")
	}

	if len(privateKey) != ed25519.PrivateKeySize {
		return nil, fmt.Errorf("invalid Ed25519 private key size")
	}

	data, err := t.signingInput()
	if err != nil {
		return nil, err
	}

	return jws.ComputeSignature(jwa.EdDSA, privateKey, []byte(data))
}

// VerifyEdDSASignature verifies the EdDSA signature of the token using the
// given public key.
func (t *Token) VerifyEdDSASignature(publicKey ed25519.PublicKey) error {
	if len(publicKey) == 0 {
		return fmt.Errorf("no EdDSA public key")
	}

	if len(publicKey) != ed25519.PublicKeySize {
		return fmt.Errorf("invalid Ed25519 public key size")
	}

	data, err := t.signingInput()
	if err != nil {
		return fmt.Errorf("failed to split token: %w", err)
	}

	err = jws.CheckSignature(jwa.EdDSA, publicKey, []byte(data), t.Signature)
	if err != nil {
		return fmt.Errorf("failed to validate EdDSA signature: %w", err)
	}

	return nil
}

// Sign signs the token with the given key, using the algorithm defined
// in the header, and returns the signature.
func (t *Token) Sign(key any) ([]byte, error) {
	typ, err := t.Header.Type()
	if err != nil {
		return nil, fmt.Errorf("invalid JWT header type: %w", err)
	}

	if typ != Type {
		return nil, fmt.Errorf("invalid JWT header type: %q", typ)
	}

	alg, err := t.Header.Algorithm()
	if err != nil {
		return nil, fmt.Errorf("missing JWT header algorithm: %w", err)
	}

	switch alg {
	case jwa.HS256, jwa.HS384, jwa.HS512:
		sig, err := t.HMACSignature(algHash[alg], key)
		if err != nil {
			return nil, err
		}
		t.Signature = sig
	case jwa.RS256, jwa.RS384, jwa.RS512:
		privateKey, ok := key.(*rsa.PrivateKey)
		if !ok {
			return nil, fmt.Errorf("invalid secret key type %T for %q", key, alg)
		}
		sig, err := t.RSASignature(algHash[alg], privateKey)
		if err != nil {
			return nil, err
		}
		t.Signature = sig
	case jwa.PS256, jwa.PS384, jwa.PS512:
		privateKey, ok := key.(*rsa.PrivateKey)
		if !ok {
			return nil, fmt.Errorf("invalid secret key type %T for %q", key, alg)
		}
		sig, err := t.RSAPSSSignature(algHash[alg], privateKey)
		if err != nil {
			return nil, err
		}
		t.Signature = sig
	case jwa.ES256, jwa.ES384, jwa.ES512:
		privateKey, ok := key.(*ecdsa.PrivateKey)
		if !ok {
			return nil, fmt.Errorf("invalid secret key type %T for %q", key, alg)
		}
		sig, err := t.ECDSASignature(algHash[alg], privateKey)
		if err != nil {
			return nil, err
		}
		t.Signature = sig
	case jwa.EdDSA:
		privateKey, ok := key.(ed25519.PrivateKey)
		if !ok {
			return nil, fmt.Errorf("invalid secret key type %T for %q", key, alg)
		}
		sig, err := t.EdDSASignature(privateKey)
		if err != nil {
			return nil, err
		}
		t.Signature = sig
	case jwa.None:
		// no signature
	default:
		return nil, fmt.Errorf("algorithm %q not implemented", alg)
	}

	t.raw = t.computeString()

	return t.Signature, nil
}

// Clock is type used to represent a function that returns the current time.
type Clock func() time.Time

// Expired returns true if the token is expired, false otherwise.
// If an error occurs while checking expiration, it is returned.
//
// Only use the boolean value if error is nil.
func (t *Token) Expired(clock Clock) (bool, error) {
	expValue, ok := t.Claims[ExpirationTime]
	if !ok {
		return false, nil
	}

	exp, err := claimTime(expValue)
	if err != nil {
		return false, fmt.Errorf("invalid value %q for %q", expValue, ExpirationTime)
	}

	return exp.Before(clock()), nil
}

// Expires returns true if the token has an expiration time claim,
// false otherwise. If an error occurs while checking expiration,
// it is returned.
//
// Only use the boolean value if error is nil.
func (t *Token) Expires() (bool, error) {
	expValue, ok := t.Claims[ExpirationTime]
	if !ok {
		return false, nil
	}

	if _, err := claimTime(expValue); err != nil {
		return false, fmt.Errorf("invalid value %q for %q", expValue, ExpirationTime)
	}

	return true, nil
}

// claimTime converts a numeric date claim value to a time.Time.
//
// https://datatracker.ietf.org/doc/html/rfc7519#section-2
func claimTime(value ClaimValue) (time.Time, error) {
	switch v := value.(type) {
	case int64:
		return time.Unix(v, 0), nil
	case float64:
		return time.Unix(int64(v), 0), nil
	default:
		return time.Time{}, fmt.Errorf("invalid numeric date type %T", value)
	}
}

// Set is a set of comparable values for JWT operations.
type Set[T comparable] map[T]struct{}

// NewSet creates a new set of strings.
func NewSet(strings ...string) Set[string] {
	m := make(Set[string])
	for _, s := range strings {
		m[s] = struct{}{}
	}
	return m
}

// Issuers is a set of issuers.
type Issuers = []string

// FromHTTPAuthorizationHeader extracts a JWT string from the Authorization header of an HTTP request.
// If the Authorization header is not set, then an error is returned.
//
// # Warning
//
// This value needs to be parsed and verified before it can be used safely.
func FromHTTPAuthorizationHeader(r *http.Request) (string, error) {
	authHeader := r.Header.Get("Authorization")
	if authHeader == "" {
		return "", fmt.Errorf("missing authorization header")
	}

	parts := strings.Split(authHeader, " ")
	if len(parts) != 2 {
		return "", fmt.Errorf("invalid authorization header format")
	}

	if strings.ToLower(parts[0]) != "bearer" {
		return "", fmt.Errorf("invalid authorization header format")
	}

	return parts[1], nil
}

// HTTPHeaderValue is a type that can be used as a value when setting
// an HTTP request header.
type HTTPHeaderValue interface {
	string | Token
}

// SetHTTPAuthorizationHeader sets the Authorization header of an HTTP request
// to the given JWT. The JWT is prefixed with "Bearer ", as required by the
// HTTP Authorization header specification.
//
// https://tools.ietf.org/html/rfc6750#section-2.1
func SetHTTPAuthorizationHeader[T HTTPHeaderValue](r *http.Request, jwt T) {
	r.Header.Set("Authorization", fmt.Sprintf("Bearer %s", jwt))
}
