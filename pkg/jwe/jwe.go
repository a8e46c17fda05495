// Package jwe implements JSON Web Encryption (JWE) as defined in RFC 7516,
// including the compact, flattened JSON, and general JSON serializations,
// single and multi-recipient key management, and DEF compression.
//
// https://datatracker.ietf.org/doc/html/rfc7516
package jwe

import (
	"bytes"
	"encoding/json"
	"fmt"
	"strings"

	jose "github.com/lokera666/jose/pkg"
	"github.com/lokera666/jose/pkg/base64"
	"github.com/lokera666/jose/pkg/header"
)

// Header is a JSON object containing the parameters describing
// the cryptographic operations and parameters employed.
type Header = header.Parameters

// Registered header parameter names used by JWE.
//
// https://www.rfc-editor.org/rfc/rfc7516.html#section-4.1
const (
	Algorithm                       header.ParamaterName = "alg"
	EncryptionAlgorithm             header.ParamaterName = "enc"
	CompressionAlgorithm            header.ParamaterName = "zip"
	JWKSetURL                       header.ParamaterName = "jku"
	JSONWebKey                      header.ParamaterName = "jwk"
	KeyID                           header.ParamaterName = "kid"
	X509URL                         header.ParamaterName = "x5u"
	X509CertificateChain            header.ParamaterName = "x5c"
	X509CertificateSHA1Thumbprint   header.ParamaterName = "x5t"
	X509CertificateSHA256Thumbprint header.ParamaterName = "x5t#S256"
	Type                            header.ParamaterName = "typ"
	ContentType                     header.ParamaterName = "cty"
	Critical                        header.ParamaterName = "crit"
)

// Recipient is the per-recipient portion of a JWE: an unprotected
// header plus the encrypted (wrapped) content encryption key.
//
// A Recipient never refers back to its enclosing Message; the Message
// owns the ordered list of recipients.
type Recipient struct {
	// Header is the per-recipient unprotected header.
	Header header.Parameters

	// EncryptedKey is the wrapped content encryption key, empty for
	// direct encryption and direct key agreement.
	EncryptedKey []byte
}

// Message is a decoded JWE envelope.
type Message struct {
	// Protected is the integrity-protected header, shared by all
	// recipients.
	Protected header.Parameters

	// Unprotected is the shared unprotected header.
	Unprotected header.Parameters

	// Recipients is the ordered list of recipients.
	Recipients []Recipient

	// IV is the initialization vector used by the content encryption
	// algorithm.
	IV []byte

	// Ciphertext is the encrypted (and possibly compressed) plaintext.
	Ciphertext []byte

	// Tag is the authentication tag over the ciphertext and the
	// additional authenticated data.
	Tag []byte

	// AAD is the caller-supplied additional authenticated data, only
	// representable in the JSON serializations.
	AAD []byte

	// protectedRaw preserves the exact serialized protected header
	// bytes, which are authenticated and must survive reserialization.
	protectedRaw []byte
}

// ProtectedBase64URLString returns the base64url encoding of the exact
// protected header bytes of this message.
func (m *Message) ProtectedBase64URLString() string {
	return base64.Encode(m.protectedRaw)
}

// MergedHeader returns the union of the protected header, the shared
// unprotected header, and the given recipient's unprotected header,
// failing if the three slots are not disjoint.
func (m *Message) MergedHeader(recipient *Recipient) (header.Parameters, error) {
	var perRecipient header.Parameters
	if recipient != nil {
		perRecipient = recipient.Header
	}
	return header.Merge(m.Protected, m.Unprotected, perRecipient)
}

// additionalAuthenticatedData builds the AAD input of the content
// encryption algorithm: ASCII(base64url(protected header bytes)),
// extended with "." and ASCII(base64url(aad)) when caller-supplied
// AAD is present.
//
// https://www.rfc-editor.org/rfc/rfc7516.html#section-5.1
func (m *Message) additionalAuthenticatedData() []byte {
	buf := bytes.NewBufferString(base64.Encode(m.protectedRaw))
	if len(m.AAD) > 0 {
		buf.WriteByte('.')
		buf.WriteString(base64.Encode(m.AAD))
	}
	return buf.Bytes()
}

// Parseable is a type that can be parsed into a JWE message,
// either a string or byte slice.
type Parseable interface {
	~string | ~[]byte
}

// Parse parses a JWE in any of the three serializations, detecting the
// format from the input: inputs starting with "{" are treated as JSON
// (flattened or general), anything else as compact.
//
// # Warning
//
// Parsing performs no cryptographic checks. The returned message must
// be decrypted with Message.Decrypt before its content is trusted.
func Parse[T Parseable](input T) (*Message, error) {
	s := strings.TrimSpace(string(input))
	if strings.HasPrefix(s, "{") {
		return parseJSON([]byte(s))
	}
	return parseCompact(s)
}

func parseCompact(input string) (*Message, error) {
	parts := strings.Split(input, ".")
	if len(parts) != 5 {
		return nil, fmt.Errorf("%w: invalid number of JWE segments: %d", jose.ErrValidation, len(parts))
	}

	protectedRaw, err := base64.Decode(parts[0])
	if err != nil {
		return nil, fmt.Errorf("%w: failed to decode JWE protected header: %v", jose.ErrValidation, err)
	}
	if len(protectedRaw) == 0 {
		return nil, fmt.Errorf("%w: compact JWE requires a protected header", jose.ErrValidation)
	}

	protected := header.Parameters{}
	if err := json.Unmarshal(protectedRaw, &protected); err != nil {
		return nil, fmt.Errorf("%w: failed to decode JWE protected header JSON: %v", jose.ErrValidation, err)
	}

	segments := make([][]byte, 4)
	for i, name := range []string{"encrypted key", "initialization vector", "ciphertext", "authentication tag"} {
		b, err := base64.Decode(parts[i+1])
		if err != nil {
			return nil, fmt.Errorf("%w: failed to decode JWE %s: %v", jose.ErrValidation, name, err)
		}
		segments[i] = b
	}

	return &Message{
		Protected:    protected,
		Recipients:   []Recipient{{EncryptedKey: segments[0]}},
		IV:           segments[1],
		Ciphertext:   segments[2],
		Tag:          segments[3],
		protectedRaw: protectedRaw,
	}, nil
}

// jsonRecipient is the wire shape of one entry of the "recipients"
// array of a general JWE.
type jsonRecipient struct {
	Header       header.Parameters `json:"header,omitempty"`
	EncryptedKey string            `json:"encrypted_key,omitempty"`
}

type jsonMessage struct {
	Protected    string            `json:"protected,omitempty"`
	Unprotected  header.Parameters `json:"unprotected,omitempty"`
	Header       header.Parameters `json:"header,omitempty"`
	EncryptedKey string            `json:"encrypted_key,omitempty"`
	AAD          string            `json:"aad,omitempty"`
	IV           string            `json:"iv,omitempty"`
	Ciphertext   string            `json:"ciphertext"`
	Tag          string            `json:"tag,omitempty"`
	Recipients   []jsonRecipient   `json:"recipients,omitempty"`
}

func parseJSON(input []byte) (*Message, error) {
	var raw jsonMessage
	dec := json.NewDecoder(bytes.NewReader(input))
	if err := dec.Decode(&raw); err != nil {
		return nil, fmt.Errorf("%w: failed to decode JWE JSON: %v", jose.ErrValidation, err)
	}

	if raw.Recipients != nil && (raw.Header != nil || raw.EncryptedKey != "") {
		return nil, fmt.Errorf("%w: JWE cannot mix flattened and general serialization members", jose.ErrValidation)
	}

	msg := &Message{
		Unprotected: raw.Unprotected,
	}

	if raw.Protected != "" {
		protectedRaw, err := base64.Decode(raw.Protected)
		if err != nil {
			return nil, fmt.Errorf("%w: failed to decode JWE protected header: %v", jose.ErrValidation, err)
		}
		protected := header.Parameters{}
		if err := json.Unmarshal(protectedRaw, &protected); err != nil {
			return nil, fmt.Errorf("%w: failed to decode JWE protected header JSON: %v", jose.ErrValidation, err)
		}
		msg.Protected = protected
		msg.protectedRaw = protectedRaw
	}

	for _, segment := range []struct {
		name string
		src  string
		dst  *[]byte
	}{
		{"initialization vector", raw.IV, &msg.IV},
		{"ciphertext", raw.Ciphertext, &msg.Ciphertext},
		{"authentication tag", raw.Tag, &msg.Tag},
		{"additional authenticated data", raw.AAD, &msg.AAD},
	} {
		b, err := base64.Decode(segment.src)
		if err != nil {
			return nil, fmt.Errorf("%w: failed to decode JWE %s: %v", jose.ErrValidation, segment.name, err)
		}
		*segment.dst = b
	}

	if len(msg.Ciphertext) == 0 {
		return nil, fmt.Errorf("%w: JWE has no ciphertext", jose.ErrValidation)
	}

	entries := raw.Recipients
	if entries == nil {
		entries = []jsonRecipient{{
			Header:       raw.Header,
			EncryptedKey: raw.EncryptedKey,
		}}
	}

	if len(entries) == 0 {
		return nil, fmt.Errorf("%w: JWE has no recipients", jose.ErrValidation)
	}

	for i, entry := range entries {
		encryptedKey, err := base64.Decode(entry.EncryptedKey)
		if err != nil {
			return nil, fmt.Errorf("%w: failed to decode JWE encrypted key %d: %v", jose.ErrValidation, i, err)
		}
		msg.Recipients = append(msg.Recipients, Recipient{
			Header:       entry.Header,
			EncryptedKey: encryptedKey,
		})
	}

	return msg, nil
}

// Compact returns the compact serialization of the message, which
// requires exactly one recipient, a protected header only, and no
// caller-supplied AAD.
func (m *Message) Compact() (string, error) {
	if len(m.Recipients) != 1 {
		return "", fmt.Errorf("%w: compact JWE requires exactly one recipient, have %d",
			jose.ErrValidation, len(m.Recipients))
	}
	if len(m.Unprotected) > 0 || len(m.Recipients[0].Header) > 0 {
		return "", fmt.Errorf("%w: compact JWE cannot carry unprotected headers", jose.ErrValidation)
	}
	if len(m.AAD) > 0 {
		return "", fmt.Errorf("%w: compact JWE cannot carry additional authenticated data", jose.ErrValidation)
	}

	return strings.Join([]string{
		base64.Encode(m.protectedRaw),
		base64.Encode(m.Recipients[0].EncryptedKey),
		base64.Encode(m.IV),
		base64.Encode(m.Ciphertext),
		base64.Encode(m.Tag),
	}, "."), nil
}

// Flattened returns the flattened JSON serialization of the message,
// which requires exactly one recipient.
func (m *Message) Flattened() ([]byte, error) {
	if len(m.Recipients) != 1 {
		return nil, fmt.Errorf("%w: flattened JWE requires exactly one recipient, have %d",
			jose.ErrValidation, len(m.Recipients))
	}

	raw := jsonMessage{
		Unprotected:  m.Unprotected,
		Header:       m.Recipients[0].Header,
		EncryptedKey: base64.Encode(m.Recipients[0].EncryptedKey),
		AAD:          base64.Encode(m.AAD),
		IV:           base64.Encode(m.IV),
		Ciphertext:   base64.Encode(m.Ciphertext),
		Tag:          base64.Encode(m.Tag),
	}
	if len(m.protectedRaw) > 0 {
		raw.Protected = base64.Encode(m.protectedRaw)
	}

	return json.Marshal(raw)
}

// General returns the general JSON serialization of the message,
// carrying all recipients in order.
func (m *Message) General() ([]byte, error) {
	if len(m.Recipients) == 0 {
		return nil, fmt.Errorf("%w: JWE has no recipients", jose.ErrValidation)
	}

	raw := jsonMessage{
		Unprotected: m.Unprotected,
		AAD:         base64.Encode(m.AAD),
		IV:          base64.Encode(m.IV),
		Ciphertext:  base64.Encode(m.Ciphertext),
		Tag:         base64.Encode(m.Tag),
	}
	if len(m.protectedRaw) > 0 {
		raw.Protected = base64.Encode(m.protectedRaw)
	}

	for _, recipient := range m.Recipients {
		raw.Recipients = append(raw.Recipients, jsonRecipient{
			Header:       recipient.Header,
			EncryptedKey: base64.Encode(recipient.EncryptedKey),
		})
	}

	return json.Marshal(raw)
}
