package jws

import (
	"fmt"

	jose "github.com/lokera666/jose/pkg"
	"github.com/lokera666/jose/pkg/header"
	"github.com/lokera666/jose/pkg/jwa"
	"golang.org/x/exp/slices"
)

// KeyResolver dynamically selects a verification key for a signature
// from its unauthenticated merged header. It is invoked once per
// candidate signature, in array order, before any cryptographic step.
//
// The header given to the resolver has not been authenticated yet: a
// resolver must only select a key from it, never act on its contents.
type KeyResolver func(unverified header.Parameters) (any, error)

// VerifyConfig is a configuration type for verifying JWS messages.
type VerifyConfig struct {
	// AllowedAlgorithms is the set of signature algorithms the caller
	// accepts. If not set, jwa.DefaultAllowedAlgorithms is used.
	AllowedAlgorithms []jwa.Algorithm

	// Keys are the candidate verification keys.
	Keys []any

	// Resolver selects a key per signature from its unauthenticated
	// header, tried instead of Keys when set.
	Resolver KeyResolver

	// CriticalExtensions are the extension header parameter names the
	// caller declares understanding of, matched against "crit".
	CriticalExtensions []header.ParamaterName

	// DetachedPayload carries the payload for messages whose payload
	// is transported out-of-band (RFC 7797 compact serialization).
	DetachedPayload []byte
}

// VerifyOption is a functional option type used to configure
// the verification requirements for JWS messages.
type VerifyOption func(*VerifyConfig) error

// WithAllowedAlgorithms sets the allowed signature algorithms.
func WithAllowedAlgorithms(algs ...jwa.Algorithm) VerifyOption {
	return func(vc *VerifyConfig) error {
		vc.AllowedAlgorithms = algs
		return nil
	}
}

// WithKey appends a candidate verification key.
func WithKey(key any) VerifyOption {
	return func(vc *VerifyConfig) error {
		vc.Keys = append(vc.Keys, key)
		return nil
	}
}

// WithKeyResolver sets the resolver used to select a verification key
// per signature. Single-use.
func WithKeyResolver(resolver KeyResolver) VerifyOption {
	return func(vc *VerifyConfig) error {
		if vc.Resolver != nil {
			return fmt.Errorf("%w: key resolver already set", jose.ErrProgrammer)
		}
		vc.Resolver = resolver
		return nil
	}
}

// WithCriticalExtensions declares the extension header parameter names
// the caller understands, for "crit" validation.
func WithCriticalExtensions(names ...header.ParamaterName) VerifyOption {
	return func(vc *VerifyConfig) error {
		vc.CriticalExtensions = append(vc.CriticalExtensions, names...)
		return nil
	}
}

// WithDetachedPayload supplies an out-of-band payload for verification.
func WithDetachedPayload(payload []byte) VerifyOption {
	return func(vc *VerifyConfig) error {
		if vc.DetachedPayload != nil {
			return fmt.Errorf("%w: detached payload already set", jose.ErrProgrammer)
		}
		vc.DetachedPayload = payload
		return nil
	}
}

// Verification is the successful result of Message.Verify: the payload
// whose signature checked out, the merged header of the signature that
// verified, and the key that verified it.
type Verification struct {
	Payload []byte
	Header  header.Parameters
	Key     any
}

// Verify checks the signatures of the message in array order, stopping
// at the first signature whose cryptographic verification succeeds.
//
// Per candidate signature: the merged header is validated (slot
// disjointness, "crit" handling), the algorithm is checked against the
// caller's allow-list, a key is selected (from the resolver, given only
// the unauthenticated header, or from the configured key set), and the
// signature is checked. If every candidate fails, one generic
// cryptographic failure is returned that never exposes which candidate
// came closest.
func (m *Message) Verify(options ...VerifyOption) (*Verification, error) {
	config := &VerifyConfig{
		AllowedAlgorithms: jwa.DefaultAllowedAlgorithms(),
	}

	for _, opt := range options {
		if err := opt(config); err != nil {
			return nil, fmt.Errorf("verify option error: %w", err)
		}
	}

	if len(m.Signatures) == 0 {
		return nil, fmt.Errorf("%w: JWS has no signatures", jose.ErrValidation)
	}

	payload := m.Payload
	if config.DetachedPayload != nil {
		if len(payload) != 0 {
			return nil, fmt.Errorf("%w: JWS carries a payload, cannot use a detached payload", jose.ErrValidation)
		}
		payload = config.DetachedPayload
	}

	// The "b64" extension is handled by this engine.
	understood := append([]header.ParamaterName{header.Base64URLEncodePayload}, config.CriticalExtensions...)

	for _, sig := range m.Signatures {
		merged, err := header.Merge(sig.Protected, nil, sig.Header)
		if err != nil {
			return nil, fmt.Errorf("%w: %v", jose.ErrValidation, err)
		}

		if err := header.CheckCritical(understood, sig.Protected, merged); err != nil {
			return nil, fmt.Errorf("%w: %v", jose.ErrValidation, err)
		}

		alg, err := merged.Algorithm()
		if err != nil {
			return nil, fmt.Errorf("%w: %v", jose.ErrValidation, err)
		}

		if !slices.Contains(config.AllowedAlgorithms, alg) {
			continue
		}

		keys := config.Keys
		if config.Resolver != nil {
			key, err := config.Resolver(merged)
			if err != nil {
				continue
			}
			keys = []any{key}
		}

		if len(keys) == 0 && alg != jwa.None {
			return nil, fmt.Errorf("%w: no key provided to verify signature using algorithm %q",
				jose.ErrValidation, alg)
		}

		input, err := signingInput(sig.Protected, sig.protectedRaw, payload)
		if err != nil {
			return nil, err
		}

		if alg == jwa.None {
			keys = []any{nil}
		}

		for _, key := range keys {
			if err := CheckSignature(alg, key, input, sig.Signature); err == nil {
				return &Verification{
					Payload: payload,
					Header:  merged,
					Key:     key,
				}, nil
			}
		}
	}

	return nil, fmt.Errorf("%w: no signature could be verified", jose.ErrCryptographic)
}
