package jws_test

import (
	"crypto/ecdsa"
	"crypto/elliptic"
	"crypto/rand"
	"fmt"
	"log"

	"github.com/lokera666/jose/pkg/header"
	"github.com/lokera666/jose/pkg/jwa"
	"github.com/lokera666/jose/pkg/jws"
)

// Example demonstrates basic JWS usage for signing arbitrary payloads
func Example() {
	// Generate a key for signing
	privateKey, err := ecdsa.GenerateKey(elliptic.P256(), rand.Reader)
	if err != nil {
		log.Fatal(err)
	}

	// Any payload can be signed - not just JWT claims
	payload := []byte(`{"message": "Hello, JWS World!", "data": [1, 2, 3]}`)

	msg, err := jws.Sign(payload, jws.WithSignature(jwa.ES256, privateKey,
		jws.WithProtectedHeader(jws.Header{
			header.Type:  "JWS",
			header.KeyID: "my-key-1",
		}),
	))
	if err != nil {
		log.Fatal(err)
	}

	// Get compact serialization
	jwsString, err := msg.Compact()
	if err != nil {
		log.Fatal(err)
	}
	fmt.Printf("JWS Token: %s\n", jwsString[:50]+"...")

	// Parse the JWS back
	parsed, err := jws.Parse(jwsString)
	if err != nil {
		log.Fatal(err)
	}

	// Verify signature
	verification, err := parsed.Verify(jws.WithKey(&privateKey.PublicKey))
	if err != nil {
		log.Fatal(err)
	}

	fmt.Printf("Payload: %s\n", string(verification.Payload))
	alg, _ := verification.Header.Algorithm()
	fmt.Printf("Algorithm: %v\n", alg)
	fmt.Println("Signature verified successfully!")
}

// ExampleSign_textPayload demonstrates JWS with simple text payload
func ExampleSign_textPayload() {
	// HMAC key for symmetric signing
	key := []byte("my-secret-key-that-is-32-bytes!")

	payload := []byte("This is a simple text message that will be signed.")

	msg, err := jws.Sign(payload, jws.WithSignature(jwa.HS256, key))
	if err != nil {
		log.Fatal(err)
	}

	compact, err := msg.Compact()
	if err != nil {
		log.Fatal(err)
	}

	fmt.Printf("Original: %s\n", string(payload))
	fmt.Printf("JWS: %s\n", compact)

	// Verify
	_, err = msg.Verify(jws.WithAllowedAlgorithms(jwa.HS256), jws.WithKey(key))
	if err != nil {
		log.Fatal(err)
	}

	fmt.Println("Text message signature verified!")
}

// ExampleSign_emptyPayload demonstrates JWS with empty payload
func ExampleSign_emptyPayload() {
	key := []byte("my-secret-key-that-is-32-bytes!")

	// Empty payload is valid in JWS (unlike JWT which requires claims)
	msg, err := jws.Sign([]byte{}, jws.WithSignature(jwa.HS256, key))
	if err != nil {
		log.Fatal(err)
	}

	compact, err := msg.Compact()
	if err != nil {
		log.Fatal(err)
	}

	fmt.Printf("Empty payload JWS: %s\n", compact)

	// Verify
	_, err = msg.Verify(jws.WithAllowedAlgorithms(jwa.HS256), jws.WithKey(key))
	if err != nil {
		log.Fatal(err)
	}

	fmt.Println("Empty payload signature verified!")
}

// ExampleSign_unsecured demonstrates unsecured JWS (algorithm "none")
func ExampleSign_unsecured() {
	payload := []byte("This message has no signature")

	msg, err := jws.Sign(payload, jws.WithSignature(jwa.None, nil))
	if err != nil {
		log.Fatal(err)
	}

	compact, err := msg.Compact()
	if err != nil {
		log.Fatal(err)
	}

	fmt.Printf("Unsecured JWS: %s\n", compact)

	// Verify (no key needed for "none" algorithm, but it must be allowed
	// explicitly)
	_, err = msg.Verify(jws.WithAllowedAlgorithms(jwa.None))
	if err != nil {
		log.Fatal(err)
	}

	fmt.Println("Unsecured JWS verified!")

	// Output:
	// Unsecured JWS: eyJhbGciOiJub25lIn0.VGhpcyBtZXNzYWdlIGhhcyBubyBzaWduYXR1cmU.
	// Unsecured JWS verified!
}
