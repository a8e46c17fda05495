package jwe

import (
	"encoding/json"
	"fmt"

	jose "github.com/lokera666/jose/pkg"
	"github.com/lokera666/jose/pkg/header"
	"github.com/lokera666/jose/pkg/jwa"
)

// recipientSpec captures one recipient given to Encrypt before any key
// management runs.
type recipientSpec struct {
	alg    jwa.Algorithm
	key    any
	header header.Parameters
}

// EncryptConfig is the configuration used for encrypting a JWE,
// assembled from EncryptOption values.
type EncryptConfig struct {
	Protected  header.Parameters
	Shared     header.Parameters
	Encryption jwa.Algorithm
	AAD        []byte
	Compress   bool

	// CEK and IV force the content encryption key and initialization
	// vector instead of generating random ones, for reproducing known
	// ciphertexts.
	CEK []byte
	IV  []byte

	recipients []recipientSpec
}

// EncryptOption configures the encryption of a JWE.
type EncryptOption func(*EncryptConfig) error

// RecipientOption configures one recipient of a JWE.
type RecipientOption func(*recipientSpec) error

// WithRecipientHeader sets the recipient's per-recipient unprotected
// header parameters.
func WithRecipientHeader(params header.Parameters) RecipientOption {
	return func(spec *recipientSpec) error {
		if spec.header != nil {
			return fmt.Errorf("%w: recipient header already set", jose.ErrProgrammer)
		}
		spec.header = params
		return nil
	}
}

// WithRecipient adds a recipient using the given key management
// algorithm and key. Recipients are processed, and serialized, in the
// order they are added.
func WithRecipient(alg jwa.Algorithm, key any, options ...RecipientOption) EncryptOption {
	return func(config *EncryptConfig) error {
		spec := recipientSpec{alg: alg, key: key}
		for _, option := range options {
			if err := option(&spec); err != nil {
				return err
			}
		}
		config.recipients = append(config.recipients, spec)
		return nil
	}
}

// WithContentEncryption sets the content encryption algorithm, the
// "enc" header parameter. It is required.
func WithContentEncryption(enc jwa.Algorithm) EncryptOption {
	return func(config *EncryptConfig) error {
		if config.Encryption != "" {
			return fmt.Errorf("%w: content encryption algorithm already set", jose.ErrProgrammer)
		}
		config.Encryption = enc
		return nil
	}
}

// WithProtectedHeader sets extra integrity-protected header parameters,
// shared by all recipients.
func WithProtectedHeader(params header.Parameters) EncryptOption {
	return func(config *EncryptConfig) error {
		if config.Protected != nil {
			return fmt.Errorf("%w: protected header already set", jose.ErrProgrammer)
		}
		config.Protected = params
		return nil
	}
}

// WithSharedHeader sets the shared unprotected header parameters.
func WithSharedHeader(params header.Parameters) EncryptOption {
	return func(config *EncryptConfig) error {
		if config.Shared != nil {
			return fmt.Errorf("%w: shared header already set", jose.ErrProgrammer)
		}
		config.Shared = params
		return nil
	}
}

// WithAdditionalData sets caller-supplied additional authenticated
// data, which is only representable in the JSON serializations.
func WithAdditionalData(aad []byte) EncryptOption {
	return func(config *EncryptConfig) error {
		if config.AAD != nil {
			return fmt.Errorf("%w: additional authenticated data already set", jose.ErrProgrammer)
		}
		config.AAD = aad
		return nil
	}
}

// WithCompression compresses the plaintext with DEFLATE before
// encryption, emitting the "zip" header parameter in the protected
// header.
func WithCompression() EncryptOption {
	return func(config *EncryptConfig) error {
		config.Compress = true
		return nil
	}
}

// WithContentEncryptionKey forces the content encryption key instead of
// generating a random one. It cannot be combined with "dir" or
// "ECDH-ES", whose CEK is determined by the recipient key.
func WithContentEncryptionKey(cek []byte) EncryptOption {
	return func(config *EncryptConfig) error {
		if config.CEK != nil {
			return fmt.Errorf("%w: content encryption key already set", jose.ErrProgrammer)
		}
		config.CEK = cek
		return nil
	}
}

// WithInitializationVector forces the initialization vector instead of
// generating a random one.
func WithInitializationVector(iv []byte) EncryptOption {
	return func(config *EncryptConfig) error {
		if config.IV != nil {
			return fmt.Errorf("%w: initialization vector already set", jose.ErrProgrammer)
		}
		config.IV = iv
		return nil
	}
}

// Encrypt encrypts the plaintext to one or more recipients and returns
// the resulting message, ready for serialization with Message.Compact,
// Message.Flattened, or Message.General.
//
// All recipients share a single content encryption key and a single
// "enc" algorithm. With more than one recipient the "dir" and "ECDH-ES"
// algorithms are rejected, since they fix the CEK to one recipient's
// key, and compression is rejected, since "zip" cannot be honored
// per-recipient.
func Encrypt(plaintext []byte, options ...EncryptOption) (*Message, error) {
	config := &EncryptConfig{}

	for _, option := range options {
		if err := option(config); err != nil {
			return nil, fmt.Errorf("failed to apply JWE encrypt option: %w", err)
		}
	}

	if len(config.recipients) == 0 {
		return nil, fmt.Errorf("%w: JWE requires at least one recipient", jose.ErrValidation)
	}
	if config.Encryption == "" {
		return nil, fmt.Errorf("%w: content encryption algorithm must be configured", jose.ErrValidation)
	}

	multi := len(config.recipients) > 1
	if multi {
		for _, spec := range config.recipients {
			if spec.alg == jwa.Direct || spec.alg == jwa.ECDHES {
				return nil, fmt.Errorf("%w: %q cannot be used with multiple recipients",
					jose.ErrValidation, spec.alg)
			}
		}
		if config.Compress {
			return nil, fmt.Errorf("%w: compression cannot be used with multiple recipients", jose.ErrValidation)
		}
	}

	// The "zip" parameter is only meaningful when integrity protected.
	for _, params := range append([]header.Parameters{config.Shared}, perRecipientHeaders(config.recipients)...) {
		if _, ok := params[header.Zip]; ok {
			return nil, fmt.Errorf("%w: header paramater %q must be integrity protected",
				jose.ErrValidation, header.Zip)
		}
	}

	protected := header.Parameters{}
	for name, value := range config.Protected {
		protected[name] = value
	}
	if existing, ok := protected[header.Encryption]; ok && existing != any(config.Encryption) {
		return nil, fmt.Errorf("%w: protected header paramater %q conflicts with configured algorithm",
			jose.ErrValidation, header.Encryption)
	}
	protected[header.Encryption] = config.Encryption
	if config.Compress {
		protected[header.Zip] = header.CompressionDeflate
	}

	msg := &Message{
		Protected:   protected,
		Unprotected: config.Shared,
		AAD:         config.AAD,
	}

	// Key management runs per recipient in input order; the first
	// recipient fixes the CEK shared by the rest.
	cek := config.CEK
	for i, spec := range config.recipients {
		recipient := Recipient{Header: spec.header}

		configured, err := header.Merge(protected, config.Shared, spec.header)
		if err != nil {
			return nil, fmt.Errorf("%w: %v", jose.ErrValidation, err)
		}

		result, err := encryptCEK(spec.alg, config.Encryption, spec.key, cek, configured)
		if err != nil {
			return nil, fmt.Errorf("failed to process JWE recipient %d: %w", i, err)
		}
		cek = result.cek
		recipient.EncryptedKey = result.encryptedKey

		emitted := header.Parameters{header.Algorithm: spec.alg}
		for name, value := range result.params {
			emitted[name] = value
		}

		if multi {
			merged := header.Parameters{}
			for name, value := range spec.header {
				merged[name] = value
			}
			for name, value := range emitted {
				if _, dup := merged[name]; dup {
					return nil, fmt.Errorf("%w: header paramater %q appears in more than one header",
						jose.ErrValidation, name)
				}
				merged[name] = value
			}
			recipient.Header = merged
		} else {
			for name, value := range emitted {
				if _, dup := protected[name]; dup {
					return nil, fmt.Errorf("%w: header paramater %q appears in more than one header",
						jose.ErrValidation, name)
				}
				protected[name] = value
			}
		}

		msg.Recipients = append(msg.Recipients, recipient)
	}

	// Final header validation over the fully built headers.
	for i := range msg.Recipients {
		merged, err := msg.MergedHeader(&msg.Recipients[i])
		if err != nil {
			return nil, fmt.Errorf("%w: %v", jose.ErrValidation, err)
		}
		if err := header.CheckCritical(critNamesOf(protected), protected, merged); err != nil {
			return nil, fmt.Errorf("%w: %v", jose.ErrValidation, err)
		}
	}

	protectedRaw, err := json.Marshal(protected)
	if err != nil {
		return nil, fmt.Errorf("failed to encode JWE protected header: %w", err)
	}
	msg.protectedRaw = protectedRaw

	iv := config.IV
	if iv == nil {
		size, err := jwa.IVSize(config.Encryption)
		if err != nil {
			return nil, fmt.Errorf("%w: %v", jose.ErrNotSupported, err)
		}
		iv, err = randomBytes(size)
		if err != nil {
			return nil, err
		}
	}
	msg.IV = iv

	content := plaintext
	if config.Compress {
		content, err = deflate(plaintext)
		if err != nil {
			return nil, err
		}
	}

	ciphertext, tag, err := seal(config.Encryption, cek, content, iv, msg.additionalAuthenticatedData())
	if err != nil {
		return nil, err
	}
	msg.Ciphertext = ciphertext
	msg.Tag = tag

	return msg, nil
}

func perRecipientHeaders(specs []recipientSpec) []header.Parameters {
	headers := make([]header.Parameters, 0, len(specs))
	for _, spec := range specs {
		headers = append(headers, spec.header)
	}
	return headers
}

// critNamesOf returns the extension names listed in the protected
// header's "crit" parameter, treating locally authored names as
// understood.
func critNamesOf(protected header.Parameters) []header.ParamaterName {
	value, ok := protected[header.Critical]
	if !ok {
		return nil
	}

	switch names := value.(type) {
	case []string:
		return names
	case []any:
		understood := make([]header.ParamaterName, 0, len(names))
		for _, entry := range names {
			if name, ok := entry.(string); ok {
				understood = append(understood, name)
			}
		}
		return understood
	default:
		return nil
	}
}
