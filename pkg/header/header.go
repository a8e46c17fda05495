package header

import (
	"bytes"
	"encoding/json"
	"errors"
	"fmt"

	"github.com/lokera666/jose/pkg/base64"
	"github.com/lokera666/jose/pkg/jwa"
	"golang.org/x/exp/slices"
)

var (
	// ErrParameterNotFound is returned when a requested header
	// paramater is not present.
	ErrParameterNotFound = errors.New("header paramater not found")

	// ErrInvalidParameterType is returned when a header paramater is
	// present with a value of an unexpected type.
	ErrInvalidParameterType = errors.New("invalid header paramater type")
)

// There are three classes of Header Parameter names: Registered Header
// Parameter names, Public Header Parameter names, and Private Header
// Parameter names.
//
// https://datatracker.ietf.org/doc/html/rfc7515#section-4
type (
	ParamaterName = string

	Registered = ParamaterName
	Public     = ParamaterName
	Private    = ParamaterName
)

// Registered Header Paramater Names
//
// https://datatracker.ietf.org/doc/html/rfc7515#section-4.1
const (
	Type                            Registered = "typ"
	Algorithm                       Registered = "alg"
	JWKSetURL                       Registered = "jku"
	JSONWebKey                      Registered = "jwk"
	X509URL                         Registered = "x5u"
	X509CertificateChain            Registered = "x5c"
	X509CertificateSHA1Thumbprint   Registered = "x5t"
	X509CertificateSHA256Thumbprint Registered = "x5t#S256"
	ContentType                     Registered = "cty"
	Critical                        Registered = "crit"

	// https://www.rfc-editor.org/rfc/rfc7516.html#section-4.1.2
	Encryption Registered = "enc"

	// https://www.rfc-editor.org/rfc/rfc7516.html#section-4.1.3
	Zip Registered = "zip"

	// https://www.rfc-editor.org/rfc/rfc7516.html#section-4.1.6
	KeyID Registered = "kid"

	// Registered parameters produced and consumed by the JWE key
	// management algorithms.
	//
	// https://datatracker.ietf.org/doc/html/rfc7518#section-4.6.1
	EphemeralPublicKey  Registered = "epk"
	AgreementPartyUInfo Registered = "apu"
	AgreementPartyVInfo Registered = "apv"

	// https://datatracker.ietf.org/doc/html/rfc7518#section-4.7.1
	InitializationVector Registered = "iv"
	AuthenticationTag    Registered = "tag"

	// https://datatracker.ietf.org/doc/html/rfc7518#section-4.8.1
	PBES2SaltInput Registered = "p2s"
	PBES2Count     Registered = "p2c"

	// https://datatracker.ietf.org/doc/html/rfc7797#section-3
	Base64URLEncodePayload Registered = "b64"
)

const TypeJWT = "JWT"

// CompressionDeflate is the only "zip" value defined by RFC 7516.
const CompressionDeflate = "DEF"

// Parameters is a JSON object containing the parameters describing
// the cryptographic operations and parameters employed.
//
// The JOSE (JSON Object Signing and Encryption) Parameters is comprised
// of a set of Parameters Parameters.
type Parameters map[ParamaterName]any

// Base64URLString returns the base64url encoding of the JSON encoding
// of the parameters.
func (h Parameters) Base64URLString() (string, error) {
	buff := bytes.NewBuffer(nil)
	if err := json.NewEncoder(buff).Encode(h); err != nil {
		return "", fmt.Errorf("failed to encode JOSE header base64 URL string: %w", err)
	}
	return base64.Encode(buff.Bytes()), nil
}

func (h Parameters) Type() (string, error) {
	value, ok := h[Type]
	if !ok {
		return "", fmt.Errorf("%w: %q", ErrParameterNotFound, Type)
	}
	strValue, ok := value.(string)
	if !ok {
		return "", fmt.Errorf("%w: %q is not a string, is %T", ErrInvalidParameterType, Type, value)
	}
	return strValue, nil
}

func (h Parameters) Algorithm() (jwa.Algorithm, error) {
	value, ok := h[Algorithm]
	if !ok {
		return "", fmt.Errorf("%w: %q", ErrParameterNotFound, Algorithm)
	}

	alg, ok := value.(jwa.Algorithm)
	if ok {
		return alg, nil
	}

	return "", fmt.Errorf("%w: %q is %T", ErrInvalidParameterType, Algorithm, value)
}

// EncryptionAlgorithm returns the content encryption algorithm "enc"
// header parameter value.
func (h Parameters) EncryptionAlgorithm() (jwa.Algorithm, error) {
	value, ok := h[Encryption]
	if !ok {
		return "", fmt.Errorf("%w: %q", ErrParameterNotFound, Encryption)
	}

	enc, ok := value.(jwa.Algorithm)
	if ok {
		return enc, nil
	}

	return "", fmt.Errorf("%w: %q is %T", ErrInvalidParameterType, Encryption, value)
}

func (h Parameters) SymetricAlgorithm() (bool, error) {
	alg, err := h.Algorithm()
	if err != nil {
		return false, err
	}

	switch jwa.Algorithm(alg) {
	case jwa.HS256, jwa.HS384, jwa.HS512:
		return true, nil
	}

	return false, nil
}

func (h Parameters) AsymetricAlgorithm() (bool, error) {
	alg, err := h.Algorithm()
	if err != nil {
		return false, err
	}

	switch jwa.Algorithm(alg) {
	case jwa.HS256, jwa.HS384, jwa.HS512:
		return false, nil
	case jwa.PS256, jwa.PS384, jwa.PS512:
		return true, nil
	case jwa.ES256, jwa.ES384, jwa.ES512:
		return true, nil
	case jwa.RS256, jwa.RS384, jwa.RS512:
		return true, nil
	}

	return false, nil
}

func (h Parameters) Get(param ParamaterName) (interface{}, error) {
	value, ok := h[param]
	if !ok {
		return "", fmt.Errorf("%w: %q", ErrParameterNotFound, param)
	}
	return value, nil
}

// GetString returns the named parameter as a string, failing if it is
// absent or of another type.
func (h Parameters) GetString(param ParamaterName) (string, error) {
	value, ok := h[param]
	if !ok {
		return "", fmt.Errorf("%w: %q", ErrParameterNotFound, param)
	}
	strValue, ok := value.(string)
	if !ok {
		return "", fmt.Errorf("%w: %q is not a string, is %T", ErrInvalidParameterType, param, value)
	}
	return strValue, nil
}

// Merge combines the protected, shared unprotected, and per-recipient
// (or per-signature) unprotected header parameters into a single set.
//
// The three slots must be disjoint: a parameter name appearing in more
// than one slot is an error, never a silent overwrite.
//
// https://www.rfc-editor.org/rfc/rfc7516.html#section-5.1
func Merge(protected, unprotected, perRecipient Parameters) (Parameters, error) {
	merged := make(Parameters, len(protected)+len(unprotected)+len(perRecipient))

	for _, slot := range []Parameters{protected, unprotected, perRecipient} {
		for name, value := range slot {
			if _, dup := merged[name]; dup {
				return nil, fmt.Errorf("header paramater %q appears in more than one header", name)
			}
			merged[name] = value
		}
	}

	return merged, nil
}

// CheckCritical validates the "crit" header parameter of the given
// protected header against the merged header and the extension names
// the caller has declared understanding of.
//
// Every name listed in "crit" must be present in the merged header, and
// must appear in the caller's allow-list. The "crit" parameter itself
// must be carried in the protected header, must be a non-empty array of
// strings, and must not list registered parameter names.
//
// https://datatracker.ietf.org/doc/html/rfc7515#section-4.1.11
func CheckCritical(understood []ParamaterName, protected, merged Parameters) error {
	value, ok := merged[Critical]
	if !ok {
		return nil
	}

	if _, ok := protected[Critical]; !ok {
		return fmt.Errorf("header paramater %q must be integrity protected", Critical)
	}

	names, err := criticalNames(value)
	if err != nil {
		return err
	}

	if len(names) == 0 {
		return fmt.Errorf("header paramater %q must not be empty", Critical)
	}

	for _, name := range names {
		if registeredName(name) {
			return fmt.Errorf("header paramater %q must not list registered name %q", Critical, name)
		}
		if _, ok := merged[name]; !ok {
			return fmt.Errorf("critical header paramater %q is not present", name)
		}
		if !slices.Contains(understood, name) {
			return fmt.Errorf("critical header paramater %q is not understood", name)
		}
	}

	return nil
}

// criticalNames normalizes the "crit" value, which decodes from JSON as
// []any but may be constructed in Go as []string.
func criticalNames(value any) ([]string, error) {
	switch v := value.(type) {
	case []string:
		return v, nil
	case []any:
		names := make([]string, 0, len(v))
		for _, entry := range v {
			name, ok := entry.(string)
			if !ok {
				return nil, fmt.Errorf("header paramater %q entry is not a string, is %T", Critical, entry)
			}
			names = append(names, name)
		}
		return names, nil
	default:
		return nil, fmt.Errorf("header paramater %q is not an array, is %T", Critical, value)
	}
}

func registeredName(name ParamaterName) bool {
	switch name {
	case Type, Algorithm, JWKSetURL, JSONWebKey, X509URL, X509CertificateChain,
		X509CertificateSHA1Thumbprint, X509CertificateSHA256Thumbprint,
		ContentType, Critical, Encryption, Zip, KeyID,
		EphemeralPublicKey, AgreementPartyUInfo, AgreementPartyVInfo,
		InitializationVector, AuthenticationTag, PBES2SaltInput, PBES2Count:
		return true
	}
	return false
}
