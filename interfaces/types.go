package interfaces

import (
	"errors"
	"fmt"
	"strings"

	"github.com/ethereum/go-ethereum/common/hexutil"
)

// Widths of the symmetric values and encodings shared with the firmware.
const (
	PrivateKeySize    = 32
	PublicKeySize     = 64
	HMACKeySize       = 32
	SymmetricKeySize  = 16
	NonceSize         = 16
	DigestSize        = 32
	PINEncodingSize   = 6
	TokenEncodingSize = 16
	AttestFieldSize   = 64
)

var (
	// ErrMissingParameter is returned when a required input field is absent, empty or zero.
	ErrMissingParameter = errors.New("missing parameter")

	// ErrInvalidParameter is returned when an input field is present but malformed.
	ErrInvalidParameter = errors.New("invalid parameter")

	// ErrMissingRootSecret is returned when the root bundle lacks a required key or nonce entry.
	ErrMissingRootSecret = errors.New("missing root secret")

	// ErrInvalidKeyLength is returned when symmetric material is not exactly its required width.
	ErrInvalidKeyLength = errors.New("invalid key length")

	// ErrFieldTooLong is returned when an attestation field does not fit its fixed-width buffer.
	ErrFieldTooLong = errors.New("field too long")

	// ErrIOFailure wraps open, read and write errors of pipeline inputs and outputs.
	ErrIOFailure = errors.New("i/o failure")
)

// DeviceClass selects the generator run and the parameters it consumes.
type DeviceClass int

const (
	// DeploymentClass generates the root bundle once per deployment.
	DeploymentClass DeviceClass = iota
	// APClass generates the Application Processor header.
	APClass
	// ComponentClass generates a Component header.
	ComponentClass
)

// String returns class name.
func (c DeviceClass) String() string {
	switch c {
	case DeploymentClass:
		return "deployment"
	case APClass:
		return "ap"
	case ComponentClass:
		return "component"
	default:
		return "unknown"
	}
}

// ParseDeviceClass is the inverse of DeviceClass.String.
func ParseDeviceClass(s string) (DeviceClass, error) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "deployment":
		return DeploymentClass, nil
	case "ap", "application_processor":
		return APClass, nil
	case "component":
		return ComponentClass, nil
	default:
		return 0, fmt.Errorf("%w: unknown device class %q", ErrInvalidParameter, s)
	}
}

// Role is the firmware build a constant is visible to.
type Role int

const (
	// RoleAny constants are compiled into every build.
	RoleAny Role = iota
	// RoleAP constants are compiled only into Application Processor builds.
	RoleAP
	// RoleComponent constants are compiled only into Component builds.
	RoleComponent
)

// String returns role name.
func (r Role) String() string {
	switch r {
	case RoleAny:
		return "any"
	case RoleAP:
		return "ap"
	case RoleComponent:
		return "component"
	default:
		return "unknown"
	}
}

// Keypair is an elliptic-curve keypair in raw firmware encoding: a 32-byte
// big-endian private scalar and the uncompressed public point without its
// 0x04 prefix.
type Keypair struct {
	Private []byte
	Public  []byte
}

// Validate checks the encoded widths.
func (k Keypair) Validate() error {
	if len(k.Private) != PrivateKeySize {
		return fmt.Errorf("%w: private key is %d bytes, expected %d", ErrInvalidKeyLength, len(k.Private), PrivateKeySize)
	}
	if len(k.Public) != PublicKeySize {
		return fmt.Errorf("%w: public key is %d bytes, expected %d", ErrInvalidKeyLength, len(k.Public), PublicKeySize)
	}
	return nil
}

// SecretBundle is the deployment-wide root of trust. It is created once and
// never mutated afterwards.
type SecretBundle struct {
	Curve string

	BootAP          Keypair
	BootComponent   Keypair
	Replacement     Keypair
	AttestAP        Keypair
	AttestComponent Keypair

	HMACKey     []byte
	AttestKey   []byte // unwrapped form
	AttestNonce []byte
}

// Validate enforces the widths of every value in the bundle.
func (b *SecretBundle) Validate() error {
	keypairs := []struct {
		name string
		kp   Keypair
	}{
		{"boot-ap", b.BootAP},
		{"boot-component", b.BootComponent},
		{"replacement", b.Replacement},
		{"attest-ap", b.AttestAP},
		{"attest-component", b.AttestComponent},
	}
	for _, k := range keypairs {
		if err := k.kp.Validate(); err != nil {
			return fmt.Errorf("%s keypair: %w", k.name, err)
		}
	}

	if err := CheckLength("hmac key", b.HMACKey, HMACKeySize); err != nil {
		return err
	}
	if err := CheckLength("attestation key", b.AttestKey, SymmetricKeySize); err != nil {
		return err
	}
	return CheckLength("attestation nonce", b.AttestNonce, NonceSize)
}

// CheckLength returns ErrInvalidKeyLength unless value is exactly size bytes.
func CheckLength(name string, value []byte, size int) error {
	if len(value) != size {
		return fmt.Errorf("%w: %s is %d bytes, expected %d", ErrInvalidKeyLength, name, len(value), size)
	}
	return nil
}

// APParameters are the operator inputs of an Application Processor build.
type APParameters struct {
	PIN          uint64
	Token        uint64
	ComponentIDs []uint32
	BootMessage  string
}

// ComponentParameters are the operator inputs of a Component build.
type ComponentParameters struct {
	Location    string
	Date        string
	Customer    string
	ComponentID uint32
	BootMessage string
}

// APSecrets are the values derived for an Application Processor build.
type APSecrets struct {
	PINHash          []byte
	TokenHash        []byte
	WrapNonce        []byte
	WrappedAttestKey []byte
}

// ComponentSecrets are the values derived for a Component build. Each
// encrypted field is AttestFieldSize bytes; the three share one keystream.
type ComponentSecrets struct {
	LocationEnc []byte
	DateEnc     []byte
	CustomerEnc []byte
	BootMessage []byte // null-padded, not encrypted
}

// Fingerprint returns a short hex prefix of value, safe to log.
func Fingerprint(value []byte) string {
	if len(value) > 4 {
		value = value[:4]
	}
	return hexutil.Encode(value)
}
