package base64

import (
	"encoding/base64"
	"fmt"
	"strings"
)

// Decode returns the base64url decoded bytes from the given input.
// This function implements base64url decoding as defined in RFC 4648 Section 5,
// which is used throughout the JOSE specifications (RFC 7515, RFC 7516).
//
// It automatically adds padding if needed before decoding.
//
// Empty input decodes to empty output, which is required for the empty
// "encrypted_key" segment of a compact JWE using direct encryption or
// direct key agreement.
func Decode(input string) ([]byte, error) {
	if len(input) == 0 {
		return nil, nil
	}

	// Calculate padding needed and add it efficiently
	if padLen := len(input) % 4; padLen > 0 {
		// Use a builder to avoid multiple string allocations
		var b strings.Builder
		b.Grow(len(input) + (4 - padLen))
		b.WriteString(input)
		for i := padLen; i < 4; i++ {
			b.WriteByte('=')
		}
		input = b.String()
	}

	result, err := base64.URLEncoding.DecodeString(input)
	if err != nil {
		return nil, fmt.Errorf("base64: invalid base64url input: %w", err)
	}
	return result, nil
}

// Encode returns the base64url encoded string from the given input.
// This function implements base64url encoding as defined in RFC 4648 Section 5,
// which is used throughout the JOSE specifications (RFC 7515, RFC 7516).
//
// It removes padding characters as required by the JOSE specifications.
// Empty input encodes to the empty string.
func Encode(input []byte) string {
	return strings.TrimRight(base64.URLEncoding.EncodeToString(input), "=")
}
