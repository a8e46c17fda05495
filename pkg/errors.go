package jose

import "errors"

// Error taxonomy shared by the jws, jwe, and jwt packages. Callers can
// test for these with errors.Is to distinguish the broad failure class
// without learning anything about the specific cause.
var (
	// ErrValidation indicates a malformed envelope, a missing or invalid
	// required header parameter, a header disjointness violation, or an
	// unhandled "crit" extension. Validation failures are always detected
	// before any cryptographic primitive executes.
	ErrValidation = errors.New("jose: validation error")

	// ErrNotSupported indicates a structurally valid but unimplemented
	// algorithm or parameter combination, such as a "zip" value other
	// than "DEF".
	ErrNotSupported = errors.New("jose: not supported")

	// ErrCryptographic indicates a signature mismatch, authentication tag
	// mismatch, or key unwrap failure. It is deliberately generic: it never
	// reveals whether the cause was a wrong key, tampered ciphertext, or an
	// algorithm mismatch, to avoid giving attackers an oracle.
	ErrCryptographic = errors.New("jose: cryptographic failure")

	// ErrProgrammer indicates misuse of the API itself, such as setting a
	// single-use configuration slot twice, or producing an envelope from an
	// under-configured builder. These are bugs in the calling code, not
	// runtime conditions to retry.
	ErrProgrammer = errors.New("jose: programmer error")
)
