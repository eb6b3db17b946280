package cryptoutils

import (
	"crypto/sha256"
	"encoding/binary"
	"fmt"
	"strings"

	"github.com/ruteri/device-secrets-provisioning/interfaces"
)

// HashConstruction names how an iterated verifier digest is computed. The two
// constructions produce different digests for the same input, so the choice
// must match the firmware that recomputes the verifier.
type HashConstruction string

const (
	// RepeatedUpdate writes the same encoded secret into a single SHA-256 state
	// once per iteration and finalizes once. This is what the firmware does.
	RepeatedUpdate HashConstruction = "repeated-update"

	// ChainedDigest hashes the encoded secret once and then hashes the previous
	// digest for each further iteration.
	ChainedDigest HashConstruction = "chained-digest"
)

// ParseHashConstruction maps a profile value to a HashConstruction.
// The empty string selects RepeatedUpdate.
func ParseHashConstruction(s string) (HashConstruction, error) {
	switch HashConstruction(strings.ToLower(strings.TrimSpace(s))) {
	case "", RepeatedUpdate:
		return RepeatedUpdate, nil
	case ChainedDigest:
		return ChainedDigest, nil
	default:
		return "", fmt.Errorf("%w: unknown hash construction %q", interfaces.ErrInvalidParameter, s)
	}
}

// EncodePIN returns the fixed-width big-endian encoding of an attestation PIN.
func EncodePIN(pin uint64) ([]byte, error) {
	if pin >= 1<<(8*interfaces.PINEncodingSize) {
		return nil, fmt.Errorf("%w: pin does not fit in %d bytes", interfaces.ErrInvalidParameter, interfaces.PINEncodingSize)
	}
	var buf [8]byte
	binary.BigEndian.PutUint64(buf[:], pin)
	return buf[8-interfaces.PINEncodingSize:], nil
}

// EncodeToken returns the fixed-width big-endian encoding of a replacement token.
func EncodeToken(token uint64) []byte {
	buf := make([]byte, interfaces.TokenEncodingSize)
	binary.BigEndian.PutUint64(buf[interfaces.TokenEncodingSize-8:], token)
	return buf
}

// IteratedHash computes the verifier digest of encoded using the given
// construction and iteration count.
func IteratedHash(encoded []byte, iterations int, construction HashConstruction) ([]byte, error) {
	if iterations < 1 {
		return nil, fmt.Errorf("%w: iterations must be at least 1, got %d", interfaces.ErrInvalidParameter, iterations)
	}

	switch construction {
	case RepeatedUpdate:
		h := sha256.New()
		for i := 0; i < iterations; i++ {
			h.Write(encoded)
		}
		return h.Sum(nil), nil
	case ChainedDigest:
		digest := sha256.Sum256(encoded)
		for i := 1; i < iterations; i++ {
			digest = sha256.Sum256(digest[:])
		}
		return digest[:], nil
	default:
		return nil, fmt.Errorf("%w: unknown hash construction %q", interfaces.ErrInvalidParameter, construction)
	}
}

// HashPin computes the PIN verifier digest stored in the AP image.
func HashPin(pin uint64, iterations int, construction HashConstruction) ([]byte, error) {
	encoded, err := EncodePIN(pin)
	if err != nil {
		return nil, err
	}
	return IteratedHash(encoded, iterations, construction)
}

// HashToken computes the replacement token verifier digest stored in the AP image.
func HashToken(token uint64, iterations int, construction HashConstruction) ([]byte, error) {
	return IteratedHash(EncodeToken(token), iterations, construction)
}

// DeriveWrapKey derives the attestation key-wrap key from the PIN. It is the
// first 16 bytes of the PIN digest computed with one iteration fewer than the
// verifier, so firmware that computes the verifier obtains the wrap key from
// the same loop without the PIN ever being stored.
func DeriveWrapKey(pin uint64, iterations int, construction HashConstruction) ([]byte, error) {
	if iterations < 2 {
		return nil, fmt.Errorf("%w: wrap key derivation needs at least 2 iterations, got %d", interfaces.ErrInvalidParameter, iterations)
	}
	digest, err := HashPin(pin, iterations-1, construction)
	if err != nil {
		return nil, err
	}
	return digest[:interfaces.SymmetricKeySize], nil
}
