package jws

import (
	"crypto/ecdsa"
	"crypto/ed25519"
	"crypto/elliptic"
	"crypto/rand"
	"crypto/rsa"
	"strings"
	"testing"

	jose "github.com/lokera666/jose/pkg"
	"github.com/lokera666/jose/pkg/base64"
	"github.com/lokera666/jose/pkg/header"
	"github.com/lokera666/jose/pkg/jwa"
	"github.com/stretchr/testify/require"
)

func TestJWSBasicFlow(t *testing.T) {
	tests := []struct {
		name      string
		algorithm jwa.Algorithm
		keyGen    func() (signing any, verification any)
	}{
		{
			name:      "HMAC SHA-256",
			algorithm: jwa.HS256,
			keyGen: func() (any, any) {
				key := []byte("test-secret-key-that-is-long-enough-for-hmac-256")
				return key, key
			},
		},
		{
			name:      "RSA SHA-256",
			algorithm: jwa.RS256,
			keyGen: func() (any, any) {
				key, err := rsa.GenerateKey(rand.Reader, 2048)
				require.NoError(t, err)
				return key, &key.PublicKey
			},
		},
		{
			name:      "RSA-PSS SHA-256",
			algorithm: jwa.PS256,
			keyGen: func() (any, any) {
				key, err := rsa.GenerateKey(rand.Reader, 2048)
				require.NoError(t, err)
				return key, &key.PublicKey
			},
		},
		{
			name:      "ECDSA P-256 SHA-256",
			algorithm: jwa.ES256,
			keyGen: func() (any, any) {
				key, err := ecdsa.GenerateKey(elliptic.P256(), rand.Reader)
				require.NoError(t, err)
				return key, &key.PublicKey
			},
		},
		{
			name:      "ECDSA P-384 SHA-384",
			algorithm: jwa.ES384,
			keyGen: func() (any, any) {
				key, err := ecdsa.GenerateKey(elliptic.P384(), rand.Reader)
				require.NoError(t, err)
				return key, &key.PublicKey
			},
		},
		{
			name:      "EdDSA",
			algorithm: jwa.EdDSA,
			keyGen: func() (any, any) {
				pub, priv, err := ed25519.GenerateKey(rand.Reader)
				require.NoError(t, err)
				return priv, pub
			},
		},
		{
			name:      "None algorithm",
			algorithm: jwa.None,
			keyGen: func() (any, any) {
				return nil, nil
			},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			signingKey, verificationKey := tt.keyGen()

			payload := []byte("Hello, JWS World!")

			msg, err := Sign(payload, WithSignature(tt.algorithm, signingKey))
			require.NoError(t, err)
			require.NotNil(t, msg)

			require.Equal(t, payload, msg.Payload)
			require.Len(t, msg.Signatures, 1)

			// For "none" algorithm, signature should be empty
			if tt.algorithm == jwa.None {
				require.Empty(t, msg.Signatures[0].Signature)
			} else {
				require.NotEmpty(t, msg.Signatures[0].Signature)
			}

			compact, err := msg.Compact()
			require.NoError(t, err)
			require.NotEmpty(t, compact)
			require.Equal(t, 2, strings.Count(compact, "."), "compact JWS should have exactly 2 periods")

			parsed, err := Parse(compact)
			require.NoError(t, err)
			require.NotNil(t, parsed)

			require.Equal(t, msg.Payload, parsed.Payload)
			require.Len(t, parsed.Signatures, 1)
			require.Equal(t, msg.Signatures[0].Protected, parsed.Signatures[0].Protected)
			require.Equal(t, msg.Signatures[0].Signature, parsed.Signatures[0].Signature)

			verifyOptions := []VerifyOption{
				WithAllowedAlgorithms(tt.algorithm),
			}
			if verificationKey != nil {
				verifyOptions = append(verifyOptions, WithKey(verificationKey))
			}

			verification, err := parsed.Verify(verifyOptions...)
			require.NoError(t, err)
			require.Equal(t, payload, verification.Payload)

			alg, err := verification.Header.Algorithm()
			require.NoError(t, err)
			require.Equal(t, tt.algorithm, alg)
		})
	}
}

func TestJWSParsing(t *testing.T) {
	t.Run("empty string", func(t *testing.T) {
		_, err := Parse("")
		require.Error(t, err)
		require.ErrorIs(t, err, jose.ErrValidation)
		require.Contains(t, err.Error(), "invalid number of JWS segments: 1")
	})

	t.Run("too few segments", func(t *testing.T) {
		_, err := Parse("header.payload")
		require.Error(t, err)
		require.Contains(t, err.Error(), "invalid number of JWS segments: 2")
	})

	t.Run("too many segments", func(t *testing.T) {
		_, err := Parse("header.payload.signature.extra")
		require.Error(t, err)
		require.Contains(t, err.Error(), "invalid number of JWS segments: 4")
	})

	t.Run("invalid base64 header", func(t *testing.T) {
		_, err := Parse("invalid-base64!.payload.signature")
		require.Error(t, err)
		require.Contains(t, err.Error(), "failed to decode JWS protected header")
	})

	t.Run("invalid JSON header", func(t *testing.T) {
		invalidHeader := base64.Encode([]byte(`{"invalid json`))
		_, err := Parse(invalidHeader + ".cGF5bG9hZA.c2lnbmF0dXJl")
		require.Error(t, err)
		require.Contains(t, err.Error(), "failed to decode JWS protected header JSON")
	})

	t.Run("invalid base64 signature", func(t *testing.T) {
		protected := base64.Encode([]byte(`{"alg":"HS256"}`))
		_, err := Parse(protected + ".cGF5bG9hZA.!!!")
		require.Error(t, err)
		require.Contains(t, err.Error(), "failed to decode JWS signature")
	})

	t.Run("invalid JSON document", func(t *testing.T) {
		_, err := Parse(`{"payload":`)
		require.Error(t, err)
		require.Contains(t, err.Error(), "failed to decode JWS JSON")
	})

	t.Run("mixed flattened and general members", func(t *testing.T) {
		_, err := Parse(`{"payload":"cGF5bG9hZA","signature":"c2ln","signatures":[]}`)
		require.Error(t, err)
		require.Contains(t, err.Error(), "cannot mix flattened and general serialization members")
	})

	t.Run("empty signatures array", func(t *testing.T) {
		_, err := Parse(`{"payload":"cGF5bG9hZA","signatures":[]}`)
		require.Error(t, err)
		require.Contains(t, err.Error(), "JWS has no signatures")
	})
}

func TestJWSSignatureVerification(t *testing.T) {
	key, err := rsa.GenerateKey(rand.Reader, 2048)
	require.NoError(t, err)

	payload := []byte("test payload")

	msg, err := Sign(payload, WithSignature(jwa.RS256, key))
	require.NoError(t, err)

	t.Run("valid signature", func(t *testing.T) {
		verification, err := msg.Verify(WithKey(&key.PublicKey))
		require.NoError(t, err)
		require.Equal(t, payload, verification.Payload)
		require.Equal(t, &key.PublicKey, verification.Key)
	})

	t.Run("tampered signature", func(t *testing.T) {
		tampered := &Message{
			Payload:    msg.Payload,
			Signatures: []Signature{msg.Signatures[0]},
		}
		tampered.Signatures[0].Signature = append([]byte(nil), msg.Signatures[0].Signature...)
		tampered.Signatures[0].Signature[0] ^= 0xFF

		_, err := tampered.Verify(WithKey(&key.PublicKey))
		require.Error(t, err)
		require.ErrorIs(t, err, jose.ErrCryptographic)
	})

	t.Run("tampered payload", func(t *testing.T) {
		tampered := &Message{
			Payload:    []byte("test payloae"),
			Signatures: msg.Signatures,
		}

		_, err := tampered.Verify(WithKey(&key.PublicKey))
		require.Error(t, err)
		require.ErrorIs(t, err, jose.ErrCryptographic)
	})

	t.Run("wrong key", func(t *testing.T) {
		wrongKey, err := rsa.GenerateKey(rand.Reader, 2048)
		require.NoError(t, err)

		_, err = msg.Verify(WithKey(&wrongKey.PublicKey))
		require.Error(t, err)
		require.ErrorIs(t, err, jose.ErrCryptographic)
	})

	t.Run("no key provided", func(t *testing.T) {
		_, err := msg.Verify()
		require.Error(t, err)
		require.Contains(t, err.Error(), "no key provided to verify signature")
	})

	t.Run("missing algorithm", func(t *testing.T) {
		compact := base64.Encode([]byte("{}")) + "." + base64.Encode(payload) + "."
		parsed, err := Parse(compact)
		require.NoError(t, err)

		_, err = parsed.Verify(WithKey(&key.PublicKey))
		require.Error(t, err)
		require.ErrorIs(t, err, jose.ErrValidation)
		require.Contains(t, err.Error(), "header paramater not found")
	})

	t.Run("algorithm not in allow-list", func(t *testing.T) {
		hmacMsg, err := Sign(payload, WithSignature(jwa.HS256, []byte("test-secret-key-that-is-long-enough")))
		require.NoError(t, err)

		// Default allow-list does not include HMAC algorithms.
		_, err = hmacMsg.Verify(WithKey([]byte("test-secret-key-that-is-long-enough")))
		require.Error(t, err)
		require.ErrorIs(t, err, jose.ErrCryptographic)
	})

	t.Run("none with non-empty signature", func(t *testing.T) {
		compact := base64.Encode([]byte(`{"alg":"none"}`)) + "." + base64.Encode(payload) + "." + base64.Encode([]byte("bogus"))
		parsed, err := Parse(compact)
		require.NoError(t, err)

		_, err = parsed.Verify(WithAllowedAlgorithms(jwa.None))
		require.Error(t, err)
		require.ErrorIs(t, err, jose.ErrCryptographic)
	})
}

func TestJWSAlgorithmSupport(t *testing.T) {
	payload := []byte("test")

	t.Run("unsupported algorithm on sign", func(t *testing.T) {
		_, err := Sign(payload, WithSignature("UNSUPPORTED", []byte("key")))
		require.Error(t, err)
		require.ErrorIs(t, err, jose.ErrNotSupported)
	})

	t.Run("unsupported algorithm skipped on verify", func(t *testing.T) {
		compact := base64.Encode([]byte(`{"alg":"UNSUPPORTED"}`)) + "." + base64.Encode(payload) + "."
		parsed, err := Parse(compact)
		require.NoError(t, err)

		_, err = parsed.Verify(WithKey([]byte("key")))
		require.Error(t, err)
		require.ErrorIs(t, err, jose.ErrCryptographic)
	})
}

func TestJWSSignOptions(t *testing.T) {
	payload := []byte("test")

	t.Run("no signature configured", func(t *testing.T) {
		_, err := Sign(payload)
		require.Error(t, err)
		require.ErrorIs(t, err, jose.ErrProgrammer)
	})

	t.Run("caller cannot set alg", func(t *testing.T) {
		_, err := Sign(payload, WithSignature(jwa.HS256, []byte("test-secret-key-that-is-long-enough"),
			WithProtectedHeader(Header{header.Algorithm: jwa.HS512}),
		))
		require.Error(t, err)
		require.Contains(t, err.Error(), "set by the signing algorithm")
	})

	t.Run("protected header is single-use", func(t *testing.T) {
		_, err := Sign(payload, WithSignature(jwa.HS256, []byte("test-secret-key-that-is-long-enough"),
			WithProtectedHeader(Header{header.Type: "JOSE"}),
			WithProtectedHeader(Header{header.ContentType: "text/plain"}),
		))
		require.Error(t, err)
		require.ErrorIs(t, err, jose.ErrProgrammer)
	})

	t.Run("protected and unprotected must be disjoint", func(t *testing.T) {
		_, err := Sign(payload, WithSignature(jwa.HS256, []byte("test-secret-key-that-is-long-enough"),
			WithProtectedHeader(Header{header.KeyID: "key-1"}),
			WithUnprotectedHeader(Header{header.KeyID: "key-2"}),
		))
		require.Error(t, err)
		require.ErrorIs(t, err, jose.ErrValidation)
		require.Contains(t, err.Error(), "appears in more than one header")
	})
}

func TestJWSSerializations(t *testing.T) {
	key, err := ecdsa.GenerateKey(elliptic.P256(), rand.Reader)
	require.NoError(t, err)

	payload := []byte(`{"message": "Hello, JWS!"}`)

	msg, err := Sign(payload, WithSignature(jwa.ES256, key,
		WithProtectedHeader(Header{header.KeyID: "key-1"}),
	))
	require.NoError(t, err)

	t.Run("flattened round-trip", func(t *testing.T) {
		flattened, err := msg.Flattened()
		require.NoError(t, err)

		parsed, err := Parse(flattened)
		require.NoError(t, err)
		require.Equal(t, payload, parsed.Payload)

		verification, err := parsed.Verify(WithKey(&key.PublicKey))
		require.NoError(t, err)

		kid, err := verification.Header.GetString(header.KeyID)
		require.NoError(t, err)
		require.Equal(t, "key-1", kid)
	})

	t.Run("general round-trip", func(t *testing.T) {
		general, err := msg.General()
		require.NoError(t, err)

		parsed, err := Parse(general)
		require.NoError(t, err)
		require.Equal(t, payload, parsed.Payload)

		_, err = parsed.Verify(WithKey(&key.PublicKey))
		require.NoError(t, err)
	})

	t.Run("unprotected header round-trip", func(t *testing.T) {
		withUnprotected, err := Sign(payload, WithSignature(jwa.ES256, key,
			WithUnprotectedHeader(Header{header.KeyID: "key-1"}),
		))
		require.NoError(t, err)

		flattened, err := withUnprotected.Flattened()
		require.NoError(t, err)

		parsed, err := Parse(flattened)
		require.NoError(t, err)
		require.Equal(t, Header{header.KeyID: "key-1"}, parsed.Signatures[0].Header)

		_, err = parsed.Verify(WithKey(&key.PublicKey))
		require.NoError(t, err)
	})

	t.Run("compact rejects unprotected header", func(t *testing.T) {
		withUnprotected, err := Sign(payload, WithSignature(jwa.ES256, key,
			WithUnprotectedHeader(Header{header.KeyID: "key-1"}),
		))
		require.NoError(t, err)

		_, err = withUnprotected.Compact()
		require.Error(t, err)
		require.Contains(t, err.Error(), "cannot carry an unprotected header")
	})
}

func TestJWSMultipleSignatures(t *testing.T) {
	key1, err := ecdsa.GenerateKey(elliptic.P256(), rand.Reader)
	require.NoError(t, err)
	key2, err := rsa.GenerateKey(rand.Reader, 2048)
	require.NoError(t, err)

	payload := []byte("signed by two parties")

	msg, err := Sign(payload,
		WithSignature(jwa.ES256, key1, WithProtectedHeader(Header{header.KeyID: "ec-key"})),
		WithSignature(jwa.RS256, key2, WithProtectedHeader(Header{header.KeyID: "rsa-key"})),
	)
	require.NoError(t, err)
	require.Len(t, msg.Signatures, 2)

	general, err := msg.General()
	require.NoError(t, err)

	parsed, err := Parse(general)
	require.NoError(t, err)
	require.Len(t, parsed.Signatures, 2)

	t.Run("verifies with first signer's key", func(t *testing.T) {
		verification, err := parsed.Verify(WithKey(&key1.PublicKey))
		require.NoError(t, err)

		kid, err := verification.Header.GetString(header.KeyID)
		require.NoError(t, err)
		require.Equal(t, "ec-key", kid)
	})

	t.Run("verifies with second signer's key", func(t *testing.T) {
		verification, err := parsed.Verify(WithKey(&key2.PublicKey))
		require.NoError(t, err)

		kid, err := verification.Header.GetString(header.KeyID)
		require.NoError(t, err)
		require.Equal(t, "rsa-key", kid)
	})

	t.Run("compact rejects multiple signatures", func(t *testing.T) {
		_, err := parsed.Compact()
		require.Error(t, err)
		require.Contains(t, err.Error(), "requires exactly one signature")
	})

	t.Run("flattened rejects multiple signatures", func(t *testing.T) {
		_, err := parsed.Flattened()
		require.Error(t, err)
		require.Contains(t, err.Error(), "requires exactly one signature")
	})
}

func TestJWSKeyResolver(t *testing.T) {
	key1, err := ecdsa.GenerateKey(elliptic.P256(), rand.Reader)
	require.NoError(t, err)
	key2, err := ecdsa.GenerateKey(elliptic.P256(), rand.Reader)
	require.NoError(t, err)

	keysByID := map[string]*ecdsa.PublicKey{
		"key-1": &key1.PublicKey,
		"key-2": &key2.PublicKey,
	}

	resolver := func(unverified header.Parameters) (any, error) {
		kid, err := unverified.GetString(header.KeyID)
		if err != nil {
			return nil, err
		}
		key, ok := keysByID[kid]
		if !ok {
			return nil, jose.ErrValidation
		}
		return key, nil
	}

	payload := []byte("resolver selected key")

	msg, err := Sign(payload, WithSignature(jwa.ES256, key2,
		WithProtectedHeader(Header{header.KeyID: "key-2"}),
	))
	require.NoError(t, err)

	t.Run("resolves key by key ID", func(t *testing.T) {
		verification, err := msg.Verify(WithKeyResolver(resolver))
		require.NoError(t, err)
		require.Equal(t, &key2.PublicKey, verification.Key)
	})

	t.Run("unknown key ID", func(t *testing.T) {
		unknown, err := Sign(payload, WithSignature(jwa.ES256, key2,
			WithProtectedHeader(Header{header.KeyID: "key-3"}),
		))
		require.NoError(t, err)

		_, err = unknown.Verify(WithKeyResolver(resolver))
		require.Error(t, err)
		require.ErrorIs(t, err, jose.ErrCryptographic)
	})

	t.Run("resolver is single-use", func(t *testing.T) {
		_, err := msg.Verify(WithKeyResolver(resolver), WithKeyResolver(resolver))
		require.Error(t, err)
		require.ErrorIs(t, err, jose.ErrProgrammer)
	})
}

func TestJWSUnencodedPayload(t *testing.T) {
	key := []byte("test-secret-key-that-is-long-enough")
	payload := []byte("$.02")

	t.Run("b64 must be marked critical", func(t *testing.T) {
		_, err := Sign(payload, WithSignature(jwa.HS256, key,
			WithProtectedHeader(Header{header.Base64URLEncodePayload: false}),
		))
		require.Error(t, err)
		require.ErrorIs(t, err, jose.ErrValidation)
	})

	b64false := Header{
		header.Base64URLEncodePayload: false,
		header.Critical:               []string{header.Base64URLEncodePayload},
	}

	t.Run("compact with detached payload", func(t *testing.T) {
		msg, err := Sign(payload, WithSignature(jwa.HS256, key, WithProtectedHeader(b64false)))
		require.NoError(t, err)

		compact, err := msg.Compact()
		require.NoError(t, err)

		// The payload segment is empty, carried out-of-band.
		parts := strings.Split(compact, ".")
		require.Len(t, parts, 3)
		require.Empty(t, parts[1])

		parsed, err := Parse(compact)
		require.NoError(t, err)
		require.Empty(t, parsed.Payload)

		verification, err := parsed.Verify(
			WithAllowedAlgorithms(jwa.HS256),
			WithKey(key),
			WithDetachedPayload(payload),
		)
		require.NoError(t, err)
		require.Equal(t, payload, verification.Payload)
	})

	t.Run("flattened carries payload verbatim", func(t *testing.T) {
		msg, err := Sign(payload, WithSignature(jwa.HS256, key, WithProtectedHeader(b64false)))
		require.NoError(t, err)

		flattened, err := msg.Flattened()
		require.NoError(t, err)
		require.Contains(t, string(flattened), `"payload":"$.02"`)

		parsed, err := Parse(flattened)
		require.NoError(t, err)
		require.Equal(t, payload, parsed.Payload)

		_, err = parsed.Verify(WithAllowedAlgorithms(jwa.HS256), WithKey(key))
		require.NoError(t, err)
	})

	t.Run("detached payload conflicts with inline payload", func(t *testing.T) {
		msg, err := Sign(payload, WithSignature(jwa.HS256, key))
		require.NoError(t, err)

		_, err = msg.Verify(
			WithAllowedAlgorithms(jwa.HS256),
			WithKey(key),
			WithDetachedPayload(payload),
		)
		require.Error(t, err)
		require.Contains(t, err.Error(), "cannot use a detached payload")
	})
}

func TestJWSPayloadFlexibility(t *testing.T) {
	key := []byte("test-secret-key-that-is-long-enough")

	testCases := []struct {
		name    string
		payload []byte
	}{
		{"empty payload", []byte{}},
		{"text payload", []byte("Hello, World!")},
		{"json payload", []byte(`{"message": "Hello, JWS!", "timestamp": 1234567890}`)},
		{"binary payload", []byte{0x00, 0x01, 0x02, 0xFF, 0xFE, 0xFD}},
	}

	for _, tc := range testCases {
		t.Run(tc.name, func(t *testing.T) {
			msg, err := Sign(tc.payload, WithSignature(jwa.HS256, key))
			require.NoError(t, err)

			compact, err := msg.Compact()
			require.NoError(t, err)

			parsed, err := Parse(compact)
			require.NoError(t, err)
			if len(tc.payload) == 0 {
				require.Empty(t, parsed.Payload)
			} else {
				require.Equal(t, tc.payload, parsed.Payload)
			}

			_, err = parsed.Verify(WithAllowedAlgorithms(jwa.HS256), WithKey(key))
			require.NoError(t, err)
		})
	}
}
