package jwt

import (
	"crypto/ecdsa"
	"crypto/ed25519"
	"crypto/rsa"
	"fmt"
	"time"

	"github.com/lokera666/jose/pkg/header"
	"github.com/lokera666/jose/pkg/jwa"
	"golang.org/x/exp/slices"
)

// VerifyConfig is a configuration type for verifying JWTs.
type VerifyConfig struct {
	// InsecureAllowNone allows the "none" algorithm to be used, which
	// is considered insecure, dangerous, and disabled by default. It must be
	// set in addition to being enabled in the allowed algorithms.
	InsecureAllowNone bool

	// AllowedAlgorithms is a set of allowed algorithms for the JWT.
	//
	// If not set, then jwt.DefaultAllowedAlgorithms will be used.
	AllowedAlgorithms []jwa.Algorithm

	// AllowedIssuers is a set of allowed issuers for the JWT.
	//
	// If not set, then any issuers are allowed.
	AllowedIssuers []string

	// AllowedSubjects is a set of allowed subjects for the JWT.
	//
	// If not set, then any subjects are allowed.
	AllowedSubjects []string

	// AllowedAudiences is a set of allowed audiences for the JWT.
	//
	// If not set, then any audiences are allowed.
	AllowedAudiences []string

	// ExpectedID is the required "jti" claim value for the JWT.
	//
	// If not set, then any token ID (or none at all) is allowed.
	ExpectedID string

	// AllowedKeys is a set of allowed keys for the JWT.
	//
	// If not set, then verification will fail if the algorithm
	// is not "none".
	AllowedKeys []any

	// SupportedCriticalHeaders is the set of "crit" extension header
	// parameter names this application understands and can process.
	//
	// https://datatracker.ietf.org/doc/html/rfc7515#section-4.1.11
	SupportedCriticalHeaders []string

	// Clock is a function that returns the current time.
	//
	// This is used to verify the "exp", "nbf", and "iat" claims.
	//
	// If not set, then time.Now will be used.
	Clock Clock

	// ClockSkewTolerance is the amount of leeway applied when
	// verifying time-based claims, to account for clock drift
	// between the issuer and the verifier.
	ClockSkewTolerance time.Duration

	// identifiedKeys are keys registered with a key ID, only tried
	// when the token's "kid" header matches, or is absent.
	identifiedKeys map[string]any
}

// VerifyOption is a functional option type used to configure
// the verification requirements for JWTs.
type VerifyOption func(*VerifyConfig) error

// WithAllowInsecureNoneAlgorithm allows the "none" algorithm to be used.
// Users must explicitly enable this option, as it is
// considered insecure, dangerous, and disabled by default.
//
// # WARNING
//
// This is not recommended, and should only be used
// for testing purposes.
func WithAllowInsecureNoneAlgorithm(value bool) VerifyOption {
	return func(vc *VerifyConfig) error {
		vc.InsecureAllowNone = value
		return nil
	}
}

// WithAllowedIssuers sets the allowed issuers for the JWT.
func WithAllowedIssuers(issuers ...string) VerifyOption {
	return func(vc *VerifyConfig) error {
		vc.AllowedIssuers = issuers
		return nil
	}
}

// WithAllowedSubjects sets the allowed subjects for the JWT.
func WithAllowedSubjects(subjects ...string) VerifyOption {
	return func(vc *VerifyConfig) error {
		vc.AllowedSubjects = subjects
		return nil
	}
}

// WithAllowedAudiences sets the allowed audiences for the JWT.
func WithAllowedAudiences(audiences ...string) VerifyOption {
	return func(vc *VerifyConfig) error {
		vc.AllowedAudiences = audiences
		return nil
	}
}

// WithExpectedID requires the "jti" claim of the JWT to match the
// given value.
func WithExpectedID(id string) VerifyOption {
	return func(vc *VerifyConfig) error {
		vc.ExpectedID = id
		return nil
	}
}

// WithAllowedAlgorithms sets the allowed algorithms for the JWT.
func WithAllowedAlgorithms(algs ...jwa.Algorithm) VerifyOption {
	return func(vc *VerifyConfig) error {
		vc.AllowedAlgorithms = algs
		return nil
	}
}

// AllowedAlgorithms sets the allowed algorithms for the JWT, an
// alias of WithAllowedAlgorithms.
func AllowedAlgorithms(algs ...jwa.Algorithm) VerifyOption {
	return WithAllowedAlgorithms(algs...)
}

// WithKey appends a key to the set of allowed keys for the JWT.
//
// This is the preferred way to add a key to the set of allowed keys,
// because it will ensure that the given key is of the correct type
// at compile time.
func WithKey[T VerifyKey](key T) VerifyOption {
	return func(vc *VerifyConfig) error {
		vc.AllowedKeys = append(vc.AllowedKeys, key)
		return nil
	}
}

// WithKeys sets the allowed keys for the JWT.
func WithKeys(values ...any) VerifyOption {
	return func(vc *VerifyConfig) error {
		vc.AllowedKeys = values
		return nil
	}
}

// WithIdentifiableKey appends a key identified by the given key ID
// ("kid") to the set of allowed keys for the JWT. The key is only
// tried when the token's "kid" header parameter matches, or when the
// token carries no "kid" at all.
func WithIdentifiableKey(kid string, key any) VerifyOption {
	return func(vc *VerifyConfig) error {
		if vc.identifiedKeys == nil {
			vc.identifiedKeys = map[string]any{}
		}
		vc.identifiedKeys[kid] = key
		return nil
	}
}

// SecretKey appends a symmetric secret key to the set of allowed keys
// for the JWT.
func SecretKey[T SymmetricKey](key T) VerifyOption {
	return WithKey(key)
}

// PublicKey appends an asymmetric public key to the set of allowed
// keys for the JWT.
func PublicKey[T AsymmetricKey](key T) VerifyOption {
	return func(vc *VerifyConfig) error {
		vc.AllowedKeys = append(vc.AllowedKeys, key)
		return nil
	}
}

// WithClock sets the clock function for verifying the JWT.
func WithClock(clock Clock) VerifyOption {
	return func(vc *VerifyConfig) error {
		vc.Clock = clock
		return nil
	}
}

// WithDefaultClock sets the clock function for verifying the JWT
// to time.Now.
func WithDefaultClock() VerifyOption {
	return func(vc *VerifyConfig) error {
		vc.Clock = time.Now
		return nil
	}
}

// WithClockSkewTolerance sets the amount of leeway applied when
// verifying the time-based claims of the JWT.
func WithClockSkewTolerance(tolerance time.Duration) VerifyOption {
	return func(vc *VerifyConfig) error {
		vc.ClockSkewTolerance = tolerance
		return nil
	}
}

// WithSupportedCriticalHeaders declares the "crit" extension header
// parameter names this application understands.
func WithSupportedCriticalHeaders(names ...string) VerifyOption {
	return func(vc *VerifyConfig) error {
		vc.SupportedCriticalHeaders = append(vc.SupportedCriticalHeaders, names...)
		return nil
	}
}

var defaultAllowedAlgorithms = []jwa.Algorithm{
	jwa.RS256, jwa.RS384, jwa.RS512,
	jwa.ES256, jwa.ES384, jwa.ES512,
	jwa.HS256, jwa.HS384, jwa.HS512,
	jwa.PS256, jwa.PS384, jwa.PS512,
	jwa.EdDSA,
}

// DefaultAllowedAlgorithms returns the algorithms accepted when a
// verification does not configure an explicit allow-list. The "none"
// algorithm is never part of this set.
func DefaultAllowedAlgorithms() []jwa.Algorithm {
	return slices.Clone(defaultAllowedAlgorithms)
}

// standardHeaderNames are the registered JOSE header parameter names
// that must never be listed in the "crit" header parameter.
//
// https://datatracker.ietf.org/doc/html/rfc7515#section-4.1.11
var standardHeaderNames = []string{
	header.Algorithm,
	header.JWKSetURL,
	header.JSONWebKey,
	header.KeyID,
	header.X509URL,
	header.X509CertificateChain,
	header.X509CertificateSHA1Thumbprint,
	header.X509CertificateSHA256Thumbprint,
	header.Type,
	header.ContentType,
	header.Critical,
}

// validateCriticalHeaders checks the "crit" header parameter of the
// token against the extension names the verifier declared support for.
func validateCriticalHeaders(params header.Parameters, supported []string) error {
	value, ok := params[header.Critical]
	if !ok {
		return nil
	}

	var names []any
	switch v := value.(type) {
	case []any:
		names = v
	case []string:
		names = make([]any, 0, len(v))
		for _, name := range v {
			names = append(names, name)
		}
	default:
		return fmt.Errorf("critical header parameter %q must be an array", header.Critical)
	}

	if len(names) == 0 {
		return fmt.Errorf("critical header parameter %q must not be empty", header.Critical)
	}

	for _, entry := range names {
		name, ok := entry.(string)
		if !ok {
			return fmt.Errorf("critical header parameter names must be strings")
		}

		if slices.Contains(standardHeaderNames, name) {
			return fmt.Errorf("critical header parameter %q is a standard header and cannot be marked as critical", name)
		}

		if _, ok := params[name]; !ok {
			return fmt.Errorf("critical header parameter %q is missing from header", name)
		}

		if !slices.Contains(supported, name) {
			return fmt.Errorf("unsupported critical header parameter: %q", name)
		}
	}

	return nil
}

// VerifySignature verifies the signature of the token using the
// given algorithms and keys, trying each key in order until one
// succeeds.
//
// # Warning
//
// This only verifies the signature, and does not verify any
// other claims, such as expiration time, issuer, audience, etc.
func (t *Token) VerifySignature(allowedAlgs []jwa.Algorithm, allowedKeys ...any) error {
	alg, err := t.Header.Algorithm()
	if err != nil {
		return fmt.Errorf("failed to verify alg: algorithm parameter not found: %w", err)
	}

	if !slices.Contains(allowedAlgs, alg) {
		return fmt.Errorf("%w: requested algorithm %q is not allowed", ErrInvalidToken, alg)
	}

	// Require a key (symmetric or asymmetric) for all algorithms except "none".
	if len(allowedKeys) == 0 && alg != jwa.None {
		return fmt.Errorf("no key provided to verify signature using algorithm %q", alg)
	}

	// Verify the signature based on the algorithm. A key of the wrong
	// type is skipped, not reported, so that a mixed key set does not
	// reveal which key was expected.
	switch alg {
	case jwa.HS256, jwa.HS384, jwa.HS512:
		for _, key := range allowedKeys {
			if err := t.VerifyHMACSignature(algHash[alg], key); err == nil {
				return nil
			}
		}
		return fmt.Errorf("%w: failed to verify HMAC signature using any of the allowed keys", ErrInvalidToken)
	case jwa.RS256, jwa.RS384, jwa.RS512:
		for _, key := range allowedKeys {
			publicKey, ok := key.(*rsa.PublicKey)
			if !ok {
				continue
			}
			if err := validateRSAKeySize(publicKey); err != nil {
				return fmt.Errorf("RSA key validation failed: %w", err)
			}
			if err := t.VerifyRSASignature(algHash[alg], publicKey); err == nil {
				return nil
			}
		}
		return fmt.Errorf("%w: failed to verify RSA signature using any of the allowed keys", ErrInvalidToken)
	case jwa.PS256, jwa.PS384, jwa.PS512:
		for _, key := range allowedKeys {
			publicKey, ok := key.(*rsa.PublicKey)
			if !ok {
				continue
			}
			if err := validateRSAKeySize(publicKey); err != nil {
				return fmt.Errorf("RSA key validation failed: %w", err)
			}
			if err := t.VerifyRSAPSSSignature(algHash[alg], publicKey); err == nil {
				return nil
			}
		}
		return fmt.Errorf("%w: failed to verify RSA-PSS signature using any of the allowed keys", ErrInvalidToken)
	case jwa.ES256, jwa.ES384, jwa.ES512:
		for _, key := range allowedKeys {
			publicKey, ok := key.(*ecdsa.PublicKey)
			if !ok {
				continue
			}
			if err := t.VerifyECDSASignature(algHash[alg], publicKey); err == nil {
				return nil
			}
		}
		return fmt.Errorf("%w: failed to verify ECDSA signature using any of the allowed keys", ErrInvalidToken)
	case jwa.EdDSA:
		for _, key := range allowedKeys {
			publicKey, ok := key.(ed25519.PublicKey)
			if !ok {
				continue
			}
			if err := t.VerifyEdDSASignature(publicKey); err == nil {
				return nil
			}
		}
		return fmt.Errorf("%w: failed to verify EdDSA signature using any of the allowed keys", ErrInvalidToken)
	case jwa.None:
		if len(t.Signature) != 0 {
			return fmt.Errorf("%w: %q signature must be empty", ErrInvalidToken, jwa.None)
		}
		return nil
	default:
		return fmt.Errorf("%w: algorithm %q not implemented or allowed", ErrInvalidToken, alg)
	}
}

// Verify is used to verify a signed Token object with the given config options.
// If this fails for any reason, an error is returned.
func (t *Token) Verify(opts ...VerifyOption) error {
	// Set default config values that can be overridden by options.
	config := &VerifyConfig{
		InsecureAllowNone: false,
		AllowedAlgorithms: DefaultAllowedAlgorithms(),
		Clock:             time.Now,
	}

	// Apply options.
	for _, opt := range opts {
		err := opt(config)
		if err != nil {
			return fmt.Errorf("verify option error: %w", err)
		}
	}

	alg, err := t.Header.Algorithm()
	if err != nil {
		return fmt.Errorf("failed to verify token: algorithm parameter not found: %w", err)
	}

	// Validate any "crit" extension header parameters before trusting
	// anything else about the header.
	if err := validateCriticalHeaders(t.Header, config.SupportedCriticalHeaders); err != nil {
		return fmt.Errorf("%w: %v", ErrInvalidToken, err)
	}

	if !slices.Contains(config.AllowedAlgorithms, alg) {
		return fmt.Errorf("%w: requested algorithm %q is not allowed", ErrInvalidToken, alg)
	}

	// Verify the signature of the token, which may be "none" if the
	// explicitly allowed "none" algorithm is set in the config.
	if alg == jwa.None {
		if !config.InsecureAllowNone {
			return fmt.Errorf("%w: requested algorithm %q is not allowed", ErrInvalidToken, alg)
		}
		if len(t.Signature) != 0 {
			return fmt.Errorf("%w: %q signature must be empty", ErrInvalidToken, jwa.None)
		}
	} else {
		err := t.VerifySignature(config.AllowedAlgorithms, config.allowedKeysFor(t.Header)...)
		if err != nil {
			return fmt.Errorf("failed to validate token signature: %w", err)
		}
	}

	// If the allowed issuers is empty, then any issuer is allowed.
	//
	// Otherwise, the issuer must be in the allowed issuers set.
	if config.AllowedIssuers != nil {
		issuer := fmt.Sprintf("%s", t.Claims[Issuer])

		if !slices.Contains(config.AllowedIssuers, issuer) {
			return fmt.Errorf("%w: requested issuer %q is not allowed", ErrInvalidToken, issuer)
		}
	}

	// If the allowed subjects is empty, then any subject is allowed.
	if config.AllowedSubjects != nil {
		subject := fmt.Sprintf("%s", t.Claims[Subject])

		if !slices.Contains(config.AllowedSubjects, subject) {
			return fmt.Errorf("%w: requested subject %q is not allowed", ErrInvalidToken, subject)
		}
	}

	// If the allowed audiences is empty, then any audience is allowed.
	if config.AllowedAudiences != nil {
		if err := checkAudience(t.Claims[Audience], config.AllowedAudiences); err != nil {
			return fmt.Errorf("%w: %v", ErrInvalidToken, err)
		}
	}

	if config.ExpectedID != "" {
		id := fmt.Sprintf("%s", t.Claims[JWTID])
		if id != config.ExpectedID {
			return fmt.Errorf("%w: requested token ID %q is not allowed", ErrInvalidToken, id)
		}
	}

	now := config.Clock()

	if expValue, ok := t.Claims[ExpirationTime]; ok {
		exp, err := claimTime(expValue)
		if err != nil {
			return fmt.Errorf("%w: token contains invalid %q value %v", ErrInvalidToken, ExpirationTime, expValue)
		}
		if now.After(exp.Add(config.ClockSkewTolerance)) {
			return fmt.Errorf("%w: token is expired", ErrInvalidToken)
		}
	}

	if nbfValue, ok := t.Claims[NotBefore]; ok {
		nbf, err := claimTime(nbfValue)
		if err != nil {
			return fmt.Errorf("%w: token contains invalid %q value %v", ErrInvalidToken, NotBefore, nbfValue)
		}
		if now.Before(nbf.Add(-config.ClockSkewTolerance)) {
			return fmt.Errorf("%w: token is unable to be used before %v", ErrInvalidToken, nbf)
		}
	}

	if iatValue, ok := t.Claims[IssuedAt]; ok {
		iat, err := claimTime(iatValue)
		if err != nil {
			return fmt.Errorf("%w: token contains invalid %q value %v", ErrInvalidToken, IssuedAt, iatValue)
		}
		if now.Add(config.ClockSkewTolerance).Before(iat) {
			return fmt.Errorf("%w: token was issued in the future at %v", ErrInvalidToken, iat)
		}
	}

	return nil
}

// allowedKeysFor returns the keys to try for the given token header,
// combining the fixed allowed keys with any matching identified keys.
func (vc *VerifyConfig) allowedKeysFor(params header.Parameters) []any {
	keys := slices.Clone(vc.AllowedKeys)

	if len(vc.identifiedKeys) == 0 {
		return keys
	}

	// A "kid" in the header selects a single identified key. Without
	// one, every identified key is a candidate.
	if kid, err := params.GetString(header.KeyID); err == nil {
		if key, ok := vc.identifiedKeys[kid]; ok {
			keys = append(keys, key)
		}
		return keys
	}

	for _, key := range vc.identifiedKeys {
		keys = append(keys, key)
	}

	return keys
}

// checkAudience checks the "aud" claim value, which may be a single
// string or an array of strings, against the allowed audiences.
//
// https://datatracker.ietf.org/doc/html/rfc7519#section-4.1.3
func checkAudience(value ClaimValue, allowed []string) error {
	switch aud := value.(type) {
	case string:
		if !slices.Contains(allowed, aud) {
			return fmt.Errorf("requested audience %q is not allowed", aud)
		}
		return nil
	case []string:
		for _, entry := range aud {
			if slices.Contains(allowed, entry) {
				return nil
			}
		}
		return fmt.Errorf("none of the requested audiences %q are allowed", aud)
	case []any:
		audiences := make([]string, 0, len(aud))
		for _, entry := range aud {
			s, ok := entry.(string)
			if !ok {
				return fmt.Errorf("invalid audience type %T", entry)
			}
			audiences = append(audiences, s)
		}
		for _, entry := range audiences {
			if slices.Contains(allowed, entry) {
				return nil
			}
		}
		return fmt.Errorf("none of the requested audiences %q are allowed", audiences)
	default:
		return fmt.Errorf("invalid audience type %T", value)
	}
}
