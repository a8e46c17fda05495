package jwe

import (
	"crypto/sha256"
	"encoding/binary"
	"fmt"
)

// concatKDF implements the single-step Concatenation Key Derivation
// Function from NIST SP 800-56A section 5.8.1 with SHA-256, as required
// by the ECDH-ES family of algorithms.
//
// The OtherInfo input is AlgorithmID || PartyUInfo || PartyVInfo ||
// SuppPubInfo, where the first three are length-prefixed and
// SuppPubInfo is the requested key size in bits.
//
// https://datatracker.ietf.org/doc/html/rfc7518#section-4.6.2
func concatKDF(secret []byte, algorithmID string, apu, apv []byte, keySize int) ([]byte, error) {
	if keySize <= 0 {
		return nil, fmt.Errorf("invalid derived key size %d", keySize)
	}

	otherInfo := make([]byte, 0, 4*4+len(algorithmID)+len(apu)+len(apv))
	otherInfo = appendLengthPrefixed(otherInfo, []byte(algorithmID))
	otherInfo = appendLengthPrefixed(otherInfo, apu)
	otherInfo = appendLengthPrefixed(otherInfo, apv)
	otherInfo = binary.BigEndian.AppendUint32(otherInfo, uint32(keySize)*8)

	key := make([]byte, 0, keySize)

	for counter := uint32(1); len(key) < keySize; counter++ {
		h := sha256.New()

		var round [4]byte
		binary.BigEndian.PutUint32(round[:], counter)
		h.Write(round[:])
		h.Write(secret)
		h.Write(otherInfo)

		key = append(key, h.Sum(nil)...)
	}

	return key[:keySize], nil
}

func appendLengthPrefixed(dst, data []byte) []byte {
	dst = binary.BigEndian.AppendUint32(dst, uint32(len(data)))
	return append(dst, data...)
}
