package cryptoutils

import (
	"crypto/ecdh"
	"errors"
	"fmt"
	"io"
	"strings"

	"github.com/ethereum/go-ethereum/crypto"
	"github.com/ruteri/device-secrets-provisioning/interfaces"
)

// Curve names the elliptic curve all root keypairs are generated on.
type Curve string

const (
	CurveSecp256k1 Curve = "secp256k1"
	CurveSecp256r1 Curve = "secp256r1"
)

// maxScalarAttempts bounds the rejection loop in GenerateKeypair. A healthy
// random source needs more than one attempt with negligible probability.
const maxScalarAttempts = 64

var errScalarRejected = errors.New("random source produced no valid private scalar")

// ParseCurve maps a profile value to a Curve. The empty string selects secp256k1.
func ParseCurve(s string) (Curve, error) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "", string(CurveSecp256k1):
		return CurveSecp256k1, nil
	case string(CurveSecp256r1), "p256", "p-256", "prime256v1":
		return CurveSecp256r1, nil
	default:
		return "", fmt.Errorf("%w: unsupported curve %q", interfaces.ErrInvalidParameter, s)
	}
}

// RandomBytes reads n bytes from rand.
func RandomBytes(rand io.Reader, n int) ([]byte, error) {
	buf := make([]byte, n)
	if _, err := io.ReadFull(rand, buf); err != nil {
		return nil, fmt.Errorf("failed to read random bytes: %w", err)
	}
	return buf, nil
}

// GenerateKeypair draws a private scalar from rand and returns it with its
// public point in raw firmware encoding. Scalars the curve rejects (zero or not
// below the group order) are redrawn.
func GenerateKeypair(curve Curve, rand io.Reader) (interfaces.Keypair, error) {
	for attempt := 0; attempt < maxScalarAttempts; attempt++ {
		scalar, err := RandomBytes(rand, interfaces.PrivateKeySize)
		if err != nil {
			return interfaces.Keypair{}, err
		}

		var public []byte
		switch curve {
		case CurveSecp256k1:
			key, err := crypto.ToECDSA(scalar)
			if err != nil {
				continue
			}
			public = crypto.FromECDSAPub(&key.PublicKey)
		case CurveSecp256r1:
			key, err := ecdh.P256().NewPrivateKey(scalar)
			if err != nil {
				continue
			}
			public = key.PublicKey().Bytes()
		default:
			return interfaces.Keypair{}, fmt.Errorf("%w: unsupported curve %q", interfaces.ErrInvalidParameter, curve)
		}

		// Drop the 0x04 uncompressed-point prefix.
		return interfaces.Keypair{Private: scalar, Public: public[1:]}, nil
	}
	return interfaces.Keypair{}, errScalarRejected
}

// PublicFromPrivate recomputes the raw public point of a private scalar.
func PublicFromPrivate(curve Curve, private []byte) ([]byte, error) {
	switch curve {
	case CurveSecp256k1:
		key, err := crypto.ToECDSA(private)
		if err != nil {
			return nil, fmt.Errorf("%w: %v", interfaces.ErrInvalidParameter, err)
		}
		return crypto.FromECDSAPub(&key.PublicKey)[1:], nil
	case CurveSecp256r1:
		key, err := ecdh.P256().NewPrivateKey(private)
		if err != nil {
			return nil, fmt.Errorf("%w: %v", interfaces.ErrInvalidParameter, err)
		}
		return key.PublicKey().Bytes()[1:], nil
	default:
		return nil, fmt.Errorf("%w: unsupported curve %q", interfaces.ErrInvalidParameter, curve)
	}
}
