package provisioner

import (
	"crypto/rand"
	"fmt"
	"io"

	"github.com/ruteri/device-secrets-provisioning/cryptoutils"
	"github.com/ruteri/device-secrets-provisioning/interfaces"
)

// Engine derives the per-device secrets of both device classes from operator
// parameters and the root attestation key.
type Engine struct {
	iterations      int
	tokenIterations int
	construction    cryptoutils.HashConstruction
	rand            io.Reader
}

// NewEngine creates an engine with the iteration counts and hash construction
// of profile. Fresh nonces are drawn from crypto/rand.
func NewEngine(profile *Profile) (*Engine, error) {
	if err := profile.Validate(); err != nil {
		return nil, err
	}
	construction, err := cryptoutils.ParseHashConstruction(profile.HashConstruction)
	if err != nil {
		return nil, err
	}

	return &Engine{
		iterations:      profile.Iterations,
		tokenIterations: profile.TokenIterations,
		construction:    construction,
		rand:            rand.Reader,
	}, nil
}

// WithRandomSource creates a new Engine drawing nonces from r.
func (e *Engine) WithRandomSource(r io.Reader) *Engine {
	clone := *e
	clone.rand = r
	return &clone
}

// Iterations returns the PIN hash iteration count.
func (e *Engine) Iterations() int {
	return e.iterations
}

// DeriveAP computes the PIN and token verifiers and wraps the attestation key
// under a key derived from the PIN with one iteration fewer than the verifier.
func (e *Engine) DeriveAP(params *interfaces.APParameters, attestKey []byte) (*interfaces.APSecrets, error) {
	if len(params.ComponentIDs) == 0 {
		return nil, fmt.Errorf("%w: no component ids", interfaces.ErrMissingParameter)
	}
	if params.BootMessage == "" {
		return nil, fmt.Errorf("%w: empty AP boot message", interfaces.ErrMissingParameter)
	}
	if params.PIN == 0 || params.Token == 0 {
		return nil, fmt.Errorf("%w: PIN and token must be non-zero", interfaces.ErrMissingParameter)
	}

	pinHash, err := cryptoutils.HashPin(params.PIN, e.iterations, e.construction)
	if err != nil {
		return nil, fmt.Errorf("failed to hash PIN: %w", err)
	}
	tokenHash, err := cryptoutils.HashToken(params.Token, e.tokenIterations, e.construction)
	if err != nil {
		return nil, fmt.Errorf("failed to hash token: %w", err)
	}

	wrapKey, err := cryptoutils.DeriveWrapKey(params.PIN, e.iterations, e.construction)
	if err != nil {
		return nil, fmt.Errorf("failed to derive wrap key: %w", err)
	}
	nonce, err := cryptoutils.RandomBytes(e.rand, interfaces.NonceSize)
	if err != nil {
		return nil, fmt.Errorf("failed to generate wrap nonce: %w", err)
	}
	wrapped, err := cryptoutils.WrapKey(attestKey, nonce, wrapKey)
	if err != nil {
		return nil, fmt.Errorf("failed to wrap attestation key: %w", err)
	}

	return &interfaces.APSecrets{
		PINHash:          pinHash,
		TokenHash:        tokenHash,
		WrapNonce:        nonce,
		WrappedAttestKey: wrapped,
	}, nil
}

// DeriveComponent encrypts the attestation metadata under the root
// attestation key and nonce and pads the boot message.
func (e *Engine) DeriveComponent(params *interfaces.ComponentParameters, attestKey, attestNonce []byte) (*interfaces.ComponentSecrets, error) {
	if params.ComponentID == 0 {
		return nil, fmt.Errorf("%w: component id is zero", interfaces.ErrMissingParameter)
	}

	loc, date, cust, err := cryptoutils.EncryptAttestationFields(params.Location, params.Date, params.Customer, attestNonce, attestKey)
	if err != nil {
		return nil, fmt.Errorf("failed to encrypt attestation fields: %w", err)
	}

	bootMsg, err := cryptoutils.PadField(params.BootMessage)
	if err != nil {
		return nil, fmt.Errorf("component boot message: %w", err)
	}

	return &interfaces.ComponentSecrets{
		LocationEnc: loc,
		DateEnc:     date,
		CustomerEnc: cust,
		BootMessage: bootMsg,
	}, nil
}
