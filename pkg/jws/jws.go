// Package jws implements JSON Web Signature (JWS) as defined in RFC 7515,
// including the compact, flattened JSON, and general JSON serializations,
// and the unencoded payload option from RFC 7797.
//
// https://datatracker.ietf.org/doc/html/rfc7515
package jws

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
//
// The JOSE (JSON Object Signing and Encryption) Header is comprised
// of a set of Header Parameters.
type Header = header.Parameters

// Signature is one signature (or MAC) over the payload of a Message,
// together with the headers it was computed under.
//
// A Signature never refers back to its enclosing Message; the Message
// owns the ordered list of signatures.
type Signature struct {
	// Protected is the integrity-protected header of this signature.
	Protected header.Parameters

	// Header is the unprotected header of this signature.
	Header header.Parameters

	// Signature is the raw signature or MAC bytes.
	Signature []byte

	// protectedRaw preserves the exact serialized protected header
	// bytes, so that verification operates on what was signed rather
	// than on a re-serialization.
	protectedRaw []byte
}

// ProtectedBase64URLString returns the base64url encoding of the exact
// protected header bytes of this signature.
func (s *Signature) ProtectedBase64URLString() string {
	return base64.Encode(s.protectedRaw)
}

// MergedHeader returns the union of this signature's protected and
// unprotected headers, failing if the two are not disjoint.
func (s *Signature) MergedHeader() (header.Parameters, error) {
	return header.Merge(s.Protected, nil, s.Header)
}

// Message is a decoded JWS: a payload plus one or more ordered
// signatures over it.
type Message struct {
	// Payload is the secured content.
	Payload []byte

	// Signatures is the ordered list of signatures over the payload.
	Signatures []Signature
}

// Parseable is a type that can be parsed into a JWS message,
// either a string or byte slice.
type Parseable interface {
	~string | ~[]byte
}

// Parse parses a JWS in any of the three serializations, detecting the
// format from the input: inputs starting with "{" are treated as JSON
// (flattened or general), anything else as compact.
//
// # Warning
//
// Parsing performs no cryptographic checks. The returned message must
// be verified with Message.Verify before its payload is trusted.
func Parse[T Parseable](input T) (*Message, error) {
	s := strings.TrimSpace(string(input))
	if strings.HasPrefix(s, "{") {
		return parseJSON([]byte(s))
	}
	return parseCompact(s)
}

func parseCompact(input string) (*Message, error) {
	parts := strings.Split(input, ".")
	if len(parts) != 3 {
		return nil, fmt.Errorf("%w: invalid number of JWS segments: %d", jose.ErrValidation, len(parts))
	}

	protectedRaw, err := base64.Decode(parts[0])
	if err != nil {
		return nil, fmt.Errorf("%w: failed to decode JWS protected header: %v", jose.ErrValidation, err)
	}

	protected := header.Parameters{}
	if err := json.Unmarshal(protectedRaw, &protected); err != nil {
		return nil, fmt.Errorf("%w: failed to decode JWS protected header JSON: %v", jose.ErrValidation, err)
	}

	payload, err := decodePayload(protected, parts[1])
	if err != nil {
		return nil, err
	}

	signature, err := base64.Decode(parts[2])
	if err != nil {
		return nil, fmt.Errorf("%w: failed to decode JWS signature: %v", jose.ErrValidation, err)
	}

	return &Message{
		Payload: payload,
		Signatures: []Signature{{
			Protected:    protected,
			Signature:    signature,
			protectedRaw: protectedRaw,
		}},
	}, nil
}

// jsonSignature is the wire shape of one entry of the "signatures"
// array of a general JWS, and of the top level of a flattened JWS.
type jsonSignature struct {
	Protected string            `json:"protected,omitempty"`
	Header    header.Parameters `json:"header,omitempty"`
	Signature string            `json:"signature"`
}

type jsonMessage struct {
	Payload    string            `json:"payload"`
	Protected  string            `json:"protected,omitempty"`
	Header     header.Parameters `json:"header,omitempty"`
	Signature  string            `json:"signature,omitempty"`
	Signatures []jsonSignature   `json:"signatures,omitempty"`
}

func parseJSON(input []byte) (*Message, error) {
	var raw jsonMessage
	dec := json.NewDecoder(bytes.NewReader(input))
	if err := dec.Decode(&raw); err != nil {
		return nil, fmt.Errorf("%w: failed to decode JWS JSON: %v", jose.ErrValidation, err)
	}

	if raw.Signatures != nil && (raw.Signature != "" || raw.Protected != "" || raw.Header != nil) {
		return nil, fmt.Errorf("%w: JWS cannot mix flattened and general serialization members", jose.ErrValidation)
	}

	entries := raw.Signatures
	if entries == nil {
		entries = []jsonSignature{{
			Protected: raw.Protected,
			Header:    raw.Header,
			Signature: raw.Signature,
		}}
	}

	if len(entries) == 0 {
		return nil, fmt.Errorf("%w: JWS has no signatures", jose.ErrValidation)
	}

	msg := &Message{}

	for i, entry := range entries {
		sig := Signature{
			Header: entry.Header,
		}

		if entry.Protected != "" {
			protectedRaw, err := base64.Decode(entry.Protected)
			if err != nil {
				return nil, fmt.Errorf("%w: failed to decode JWS protected header: %v", jose.ErrValidation, err)
			}
			protected := header.Parameters{}
			if err := json.Unmarshal(protectedRaw, &protected); err != nil {
				return nil, fmt.Errorf("%w: failed to decode JWS protected header JSON: %v", jose.ErrValidation, err)
			}
			sig.Protected = protected
			sig.protectedRaw = protectedRaw
		}

		signature, err := base64.Decode(entry.Signature)
		if err != nil {
			return nil, fmt.Errorf("%w: failed to decode JWS signature %d: %v", jose.ErrValidation, i, err)
		}
		sig.Signature = signature

		msg.Signatures = append(msg.Signatures, sig)
	}

	// The payload encoding is governed by the "b64" parameter, which
	// must agree across all signatures when present.
	payload, err := decodePayload(msg.Signatures[0].Protected, raw.Payload)
	if err != nil {
		return nil, err
	}
	msg.Payload = payload

	return msg, nil
}

// decodePayload interprets the payload segment according to the "b64"
// protected header parameter from RFC 7797: base64url decoded when the
// flag is absent or true, used verbatim when false.
func decodePayload(protected header.Parameters, segment string) ([]byte, error) {
	encoded, err := payloadEncoded(protected)
	if err != nil {
		return nil, err
	}
	if !encoded {
		return []byte(segment), nil
	}

	payload, err := base64.Decode(segment)
	if err != nil {
		return nil, fmt.Errorf("%w: failed to decode JWS payload: %v", jose.ErrValidation, err)
	}
	return payload, nil
}

// payloadEncoded reports whether the payload is base64url encoded,
// per the "b64" protected header parameter.
func payloadEncoded(protected header.Parameters) (bool, error) {
	value, ok := protected[header.Base64URLEncodePayload]
	if !ok {
		return true, nil
	}
	flag, ok := value.(bool)
	if !ok {
		return false, fmt.Errorf("%w: header paramater %q is not a boolean, is %T",
			jose.ErrValidation, header.Base64URLEncodePayload, value)
	}
	return flag, nil
}

// payloadSegment returns the payload segment for serialization under
// the given protected header.
func payloadSegment(protected header.Parameters, payload []byte) (string, error) {
	encoded, err := payloadEncoded(protected)
	if err != nil {
		return "", err
	}
	if !encoded {
		// The unencoded payload is carried out-of-band in the compact
		// serialization, and verbatim in the JSON serializations.
		return string(payload), nil
	}
	return base64.Encode(payload), nil
}

// Compact returns the compact serialization of the message, which
// requires exactly one signature carrying only a protected header.
//
// When the protected header sets "b64" to false, the payload segment is
// left empty and the payload is carried out-of-band (RFC 7797).
func (m *Message) Compact() (string, error) {
	if len(m.Signatures) != 1 {
		return "", fmt.Errorf("%w: compact JWS requires exactly one signature, have %d",
			jose.ErrValidation, len(m.Signatures))
	}

	sig := m.Signatures[0]
	if len(sig.Header) > 0 {
		return "", fmt.Errorf("%w: compact JWS cannot carry an unprotected header", jose.ErrValidation)
	}

	encoded, err := payloadEncoded(sig.Protected)
	if err != nil {
		return "", err
	}

	payload := ""
	if encoded {
		payload = base64.Encode(m.Payload)
	}

	return base64.Encode(sig.protectedRaw) + "." + payload + "." + base64.Encode(sig.Signature), nil
}

// Flattened returns the flattened JSON serialization of the message,
// which requires exactly one signature.
func (m *Message) Flattened() ([]byte, error) {
	if len(m.Signatures) != 1 {
		return nil, fmt.Errorf("%w: flattened JWS requires exactly one signature, have %d",
			jose.ErrValidation, len(m.Signatures))
	}

	sig := m.Signatures[0]

	segment, err := payloadSegment(sig.Protected, m.Payload)
	if err != nil {
		return nil, err
	}

	raw := jsonMessage{
		Payload:   segment,
		Header:    sig.Header,
		Signature: base64.Encode(sig.Signature),
	}
	if len(sig.protectedRaw) > 0 {
		raw.Protected = base64.Encode(sig.protectedRaw)
	}

	return json.Marshal(raw)
}

// General returns the general JSON serialization of the message,
// carrying all signatures in order.
func (m *Message) General() ([]byte, error) {
	if len(m.Signatures) == 0 {
		return nil, fmt.Errorf("%w: JWS has no signatures", jose.ErrValidation)
	}

	segment, err := payloadSegment(m.Signatures[0].Protected, m.Payload)
	if err != nil {
		return nil, err
	}

	raw := jsonMessage{
		Payload: segment,
	}

	for _, sig := range m.Signatures {
		entry := jsonSignature{
			Header:    sig.Header,
			Signature: base64.Encode(sig.Signature),
		}
		if len(sig.protectedRaw) > 0 {
			entry.Protected = base64.Encode(sig.protectedRaw)
		}
		raw.Signatures = append(raw.Signatures, entry)
	}

	return json.Marshal(raw)
}

// signingInput builds the JWS Signing Input for the given serialized
// protected header and payload: ASCII(base64url(protected)) || "." ||
// base64url(payload), or the raw payload bytes when "b64" is false.
//
// https://datatracker.ietf.org/doc/html/rfc7515#section-5.1
func signingInput(protected header.Parameters, protectedRaw, payload []byte) ([]byte, error) {
	encoded, err := payloadEncoded(protected)
	if err != nil {
		return nil, err
	}

	var buf bytes.Buffer
	buf.WriteString(base64.Encode(protectedRaw))
	buf.WriteByte('.')
	if encoded {
		buf.WriteString(base64.Encode(payload))
	} else {
		buf.Write(payload)
	}

	return buf.Bytes(), nil
}
