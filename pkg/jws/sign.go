package jws

import (
	"encoding/json"
	"fmt"

	jose "github.com/lokera666/jose/pkg"
	"github.com/lokera666/jose/pkg/header"
	"github.com/lokera666/jose/pkg/jwa"
)

// signatureSpec describes one signature to be produced over the
// payload. The enclosing sign configuration owns the ordered list of
// specs; a spec never refers back to it.
type signatureSpec struct {
	alg         jwa.Algorithm
	key         any
	protected   header.Parameters
	unprotected header.Parameters
}

// SignConfig is the configuration assembled from SignOption values for
// a single Sign call. Every slot is single-use: setting it twice is a
// programmer error.
type SignConfig struct {
	signatures []signatureSpec
}

// SignOption is a functional option type used to configure signing.
type SignOption func(*SignConfig) error

// SignatureOption configures one signature of a Sign call.
type SignatureOption func(*signatureSpec) error

// WithProtectedHeader sets additional protected header parameters for
// one signature. The "alg" parameter is supplied by WithSignature and
// must not be repeated here. Single-use.
func WithProtectedHeader(params header.Parameters) SignatureOption {
	return func(spec *signatureSpec) error {
		if spec.protected != nil {
			return fmt.Errorf("%w: protected header already set", jose.ErrProgrammer)
		}
		spec.protected = params
		return nil
	}
}

// WithUnprotectedHeader sets the per-signature unprotected header for
// one signature. Single-use.
func WithUnprotectedHeader(params header.Parameters) SignatureOption {
	return func(spec *signatureSpec) error {
		if spec.unprotected != nil {
			return fmt.Errorf("%w: unprotected header already set", jose.ErrProgrammer)
		}
		spec.unprotected = params
		return nil
	}
}

// WithSignature adds one signature over the payload, produced with the
// given algorithm and key. Signatures appear in the message in the
// order the options are given.
func WithSignature(alg jwa.Algorithm, key any, options ...SignatureOption) SignOption {
	return func(config *SignConfig) error {
		spec := signatureSpec{
			alg: alg,
			key: key,
		}
		for _, opt := range options {
			if err := opt(&spec); err != nil {
				return err
			}
		}
		config.signatures = append(config.signatures, spec)
		return nil
	}
}

// Sign signs the given payload, producing a message with one signature
// per WithSignature option, in option order.
//
//	msg, err := jws.Sign(payload, jws.WithSignature(jwa.ES256, privateKey))
//
// The result can be serialized with Message.Compact, Message.Flattened,
// or Message.General.
func Sign(payload []byte, options ...SignOption) (*Message, error) {
	config := &SignConfig{}

	for _, opt := range options {
		if err := opt(config); err != nil {
			return nil, fmt.Errorf("sign option error: %w", err)
		}
	}

	if len(config.signatures) == 0 {
		return nil, fmt.Errorf("%w: no signature configured", jose.ErrProgrammer)
	}

	msg := &Message{
		Payload: payload,
	}

	for i, spec := range config.signatures {
		sig, err := produceSignature(payload, spec)
		if err != nil {
			return nil, fmt.Errorf("failed to produce signature %d: %w", i, err)
		}
		msg.Signatures = append(msg.Signatures, *sig)
	}

	return msg, nil
}

func produceSignature(payload []byte, spec signatureSpec) (*Signature, error) {
	protected := header.Parameters{
		header.Algorithm: spec.alg,
	}

	for name, value := range spec.protected {
		if name == header.Algorithm {
			return nil, fmt.Errorf("%w: header paramater %q is set by the signing algorithm",
				jose.ErrValidation, header.Algorithm)
		}
		protected[name] = value
	}

	merged, err := header.Merge(protected, nil, spec.unprotected)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", jose.ErrValidation, err)
	}

	// At signing time the producer understands every extension it
	// chose to mark critical; CheckCritical still enforces placement
	// and presence.
	if err := header.CheckCritical(critNamesOf(protected), protected, merged); err != nil {
		return nil, fmt.Errorf("%w: %v", jose.ErrValidation, err)
	}

	// The "b64" parameter must be understood by verifiers, so it is
	// required to be marked critical (RFC 7797 section 6).
	if _, ok := protected[header.Base64URLEncodePayload]; ok {
		if !critListed(protected, header.Base64URLEncodePayload) {
			return nil, fmt.Errorf("%w: header paramater %q must be listed in %q",
				jose.ErrValidation, header.Base64URLEncodePayload, header.Critical)
		}
	}

	protectedRaw, err := json.Marshal(protected)
	if err != nil {
		return nil, fmt.Errorf("failed to encode protected header: %w", err)
	}

	input, err := signingInput(protected, protectedRaw, payload)
	if err != nil {
		return nil, err
	}

	signature, err := ComputeSignature(spec.alg, spec.key, input)
	if err != nil {
		return nil, err
	}

	return &Signature{
		Protected:    protected,
		Header:       spec.unprotected,
		Signature:    signature,
		protectedRaw: protectedRaw,
	}, nil
}

// critNamesOf returns the extension names listed in the "crit"
// parameter of the given header, if any.
func critNamesOf(params header.Parameters) []header.ParamaterName {
	value, ok := params[header.Critical]
	if !ok {
		return nil
	}

	switch v := value.(type) {
	case []string:
		return v
	case []any:
		var names []string
		for _, entry := range v {
			if name, ok := entry.(string); ok {
				names = append(names, name)
			}
		}
		return names
	default:
		return nil
	}
}

func critListed(params header.Parameters, name header.ParamaterName) bool {
	for _, listed := range critNamesOf(params) {
		if listed == name {
			return true
		}
	}
	return false
}
