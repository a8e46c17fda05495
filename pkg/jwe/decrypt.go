package jwe

import (
	"fmt"

	jose "github.com/lokera666/jose/pkg"
	"github.com/lokera666/jose/pkg/header"
	"github.com/lokera666/jose/pkg/jwa"
	"golang.org/x/exp/slices"
)

// KeyResolver selects a decryption key for a recipient from its merged
// header.
//
// The header given to the resolver is NOT yet authenticated: it is
// attacker-controlled until the authentication tag has been checked,
// and must only be used to look keys up, never to make policy
// decisions.
type KeyResolver func(unverified header.Parameters) (any, error)

// DecryptConfig is the configuration used for decrypting a JWE,
// assembled from DecryptOption values.
type DecryptConfig struct {
	Keys     []any
	Resolver KeyResolver

	// AllowedKeyAlgorithms and AllowedContentAlgorithms are the "alg"
	// and "enc" values the caller accepts. Both must be configured;
	// there is no default.
	AllowedKeyAlgorithms     []jwa.Algorithm
	AllowedContentAlgorithms []jwa.Algorithm

	// CriticalExtensions are the "crit" extension names the caller
	// understands.
	CriticalExtensions []header.ParamaterName

	MaxPBES2Count     int
	MaxDecompressSize int64
}

// DecryptOption configures the decryption of a JWE.
type DecryptOption func(*DecryptConfig) error

// WithKey adds a candidate decryption key, tried in order for each
// recipient.
func WithKey(key any) DecryptOption {
	return func(config *DecryptConfig) error {
		config.Keys = append(config.Keys, key)
		return nil
	}
}

// WithKeyResolver sets a resolver consulted per recipient instead of a
// fixed key list.
func WithKeyResolver(resolver KeyResolver) DecryptOption {
	return func(config *DecryptConfig) error {
		if config.Resolver != nil {
			return fmt.Errorf("%w: key resolver already set", jose.ErrProgrammer)
		}
		config.Resolver = resolver
		return nil
	}
}

// WithAllowedKeyAlgorithms sets the key management algorithms the
// caller accepts. Required.
func WithAllowedKeyAlgorithms(algs ...jwa.Algorithm) DecryptOption {
	return func(config *DecryptConfig) error {
		config.AllowedKeyAlgorithms = append(config.AllowedKeyAlgorithms, algs...)
		return nil
	}
}

// WithAllowedContentAlgorithms sets the content encryption algorithms
// the caller accepts. Required.
func WithAllowedContentAlgorithms(encs ...jwa.Algorithm) DecryptOption {
	return func(config *DecryptConfig) error {
		config.AllowedContentAlgorithms = append(config.AllowedContentAlgorithms, encs...)
		return nil
	}
}

// WithCriticalExtensions declares the "crit" extension names the caller
// understands.
func WithCriticalExtensions(names ...header.ParamaterName) DecryptOption {
	return func(config *DecryptConfig) error {
		config.CriticalExtensions = append(config.CriticalExtensions, names...)
		return nil
	}
}

// WithMaxPBES2Count overrides the maximum accepted PBES2 "p2c"
// iteration count (default DefaultMaxPBES2Count).
func WithMaxPBES2Count(max int) DecryptOption {
	return func(config *DecryptConfig) error {
		if max <= 0 {
			return fmt.Errorf("%w: maximum PBES2 count must be positive", jose.ErrProgrammer)
		}
		config.MaxPBES2Count = max
		return nil
	}
}

// WithMaxDecompressSize overrides the maximum decompressed plaintext
// size in bytes (default DefaultMaxDecompressSize).
func WithMaxDecompressSize(max int64) DecryptOption {
	return func(config *DecryptConfig) error {
		if max <= 0 {
			return fmt.Errorf("%w: maximum decompress size must be positive", jose.ErrProgrammer)
		}
		config.MaxDecompressSize = max
		return nil
	}
}

// Decryption is the result of successfully decrypting a JWE: the
// plaintext, the merged header of the recipient that decrypted, and the
// key that was used.
type Decryption struct {
	Plaintext []byte
	Header    header.Parameters
	Key       any
}

// Decrypt decrypts the message, trying each recipient in order and,
// for each, the resolved or configured keys in order. The first
// recipient whose content authentication succeeds wins.
//
// Exhausting all recipients and keys yields a single generic error
// that does not reveal which candidate failed, or why.
func (m *Message) Decrypt(options ...DecryptOption) (*Decryption, error) {
	config := &DecryptConfig{
		MaxPBES2Count:     DefaultMaxPBES2Count,
		MaxDecompressSize: DefaultMaxDecompressSize,
	}

	for _, option := range options {
		if err := option(config); err != nil {
			return nil, fmt.Errorf("failed to apply JWE decrypt option: %w", err)
		}
	}

	if len(config.Keys) == 0 && config.Resolver == nil {
		return nil, fmt.Errorf("%w: no decryption keys configured", jose.ErrValidation)
	}
	if len(config.AllowedKeyAlgorithms) == 0 {
		return nil, fmt.Errorf("%w: allowed key management algorithms must be configured", jose.ErrValidation)
	}
	if len(config.AllowedContentAlgorithms) == 0 {
		return nil, fmt.Errorf("%w: allowed content encryption algorithms must be configured", jose.ErrValidation)
	}

	if len(m.Recipients) == 0 {
		return nil, fmt.Errorf("%w: JWE has no recipients", jose.ErrValidation)
	}

	enc, err := m.contentAlgorithm()
	if err != nil {
		return nil, err
	}
	if !slices.Contains(config.AllowedContentAlgorithms, enc) {
		return nil, fmt.Errorf("%w: content encryption algorithm %q is not allowed", jose.ErrValidation, enc)
	}

	compressed, err := m.checkCompression()
	if err != nil {
		return nil, err
	}

	aad := m.additionalAuthenticatedData()

	for i := range m.Recipients {
		recipient := &m.Recipients[i]

		merged, err := m.MergedHeader(recipient)
		if err != nil {
			continue
		}

		if err := header.CheckCritical(config.CriticalExtensions, m.Protected, merged); err != nil {
			continue
		}

		alg, err := merged.Algorithm()
		if err != nil {
			continue
		}
		if !slices.Contains(config.AllowedKeyAlgorithms, alg) {
			continue
		}

		for _, key := range candidateKeys(config, merged) {
			cek, err := decryptCEK(alg, enc, key, recipient.EncryptedKey, merged, config.MaxPBES2Count)
			if err != nil {
				continue
			}

			plaintext, err := open(enc, cek, m.Ciphertext, m.IV, m.Tag, aad)
			if err != nil {
				continue
			}

			if compressed {
				plaintext, err = inflate(plaintext, config.MaxDecompressSize)
				if err != nil {
					return nil, err
				}
			}

			return &Decryption{
				Plaintext: plaintext,
				Header:    merged,
				Key:       key,
			}, nil
		}
	}

	return nil, fmt.Errorf("%w: no recipient could be decrypted", jose.ErrCryptographic)
}

// contentAlgorithm reads the "enc" header parameter, which is shared by
// all recipients.
func (m *Message) contentAlgorithm() (jwa.Algorithm, error) {
	merged, err := header.Merge(m.Protected, m.Unprotected, nil)
	if err != nil {
		return "", fmt.Errorf("%w: %v", jose.ErrValidation, err)
	}

	enc, err := merged.EncryptionAlgorithm()
	if err != nil {
		return "", fmt.Errorf("%w: %v", jose.ErrValidation, err)
	}
	return enc, nil
}

// checkCompression reads the "zip" header parameter, which must be
// integrity protected and must carry the only defined value, "DEF".
func (m *Message) checkCompression() (bool, error) {
	if _, ok := m.Unprotected[header.Zip]; ok {
		return false, fmt.Errorf("%w: header paramater %q must be integrity protected",
			jose.ErrValidation, header.Zip)
	}
	for i := range m.Recipients {
		if _, ok := m.Recipients[i].Header[header.Zip]; ok {
			return false, fmt.Errorf("%w: header paramater %q must be integrity protected",
				jose.ErrValidation, header.Zip)
		}
	}

	value, ok := m.Protected[header.Zip]
	if !ok {
		return false, nil
	}

	zip, ok := value.(string)
	if !ok {
		return false, fmt.Errorf("%w: header paramater %q is not a string, is %T",
			jose.ErrValidation, header.Zip, value)
	}
	if zip != header.CompressionDeflate {
		return false, fmt.Errorf("%w: compression algorithm %q", jose.ErrNotSupported, zip)
	}

	return true, nil
}

// candidateKeys returns the keys to try for one recipient: the
// resolver's answer when configured, the fixed key list otherwise.
func candidateKeys(config *DecryptConfig, merged header.Parameters) []any {
	if config.Resolver == nil {
		return config.Keys
	}

	key, err := config.Resolver(merged)
	if err != nil || key == nil {
		return nil
	}
	return []any{key}
}
