package kms

import (
	"crypto/rand"
	"fmt"
	"io"

	"github.com/ruteri/device-secrets-provisioning/cryptoutils"
	"github.com/ruteri/device-secrets-provisioning/interfaces"
)

var _ interfaces.RootSecretGenerator = (*RootGenerator)(nil)

// RootGenerator creates the deployment-wide root of trust: one keypair per
// trust role and the shared symmetric secrets. All values come from a single
// random source, crypto/rand unless replaced with WithRandomSource.
type RootGenerator struct {
	rand  io.Reader
	curve cryptoutils.Curve
}

// NewRootGenerator returns a generator producing secp256k1 keypairs from crypto/rand.
func NewRootGenerator() *RootGenerator {
	return &RootGenerator{rand: rand.Reader, curve: cryptoutils.CurveSecp256k1}
}

// WithRandomSource creates a new RootGenerator reading from r.
// Used by tests to substitute a fixed-output source.
func (g *RootGenerator) WithRandomSource(r io.Reader) *RootGenerator {
	return &RootGenerator{rand: r, curve: g.curve}
}

// WithCurve creates a new RootGenerator producing keypairs on curve.
func (g *RootGenerator) WithCurve(curve cryptoutils.Curve) *RootGenerator {
	return &RootGenerator{rand: g.rand, curve: curve}
}

// Curve returns the curve keypairs are generated on.
func (g *RootGenerator) Curve() cryptoutils.Curve {
	return g.curve
}

// Generate creates a fresh SecretBundle. Keypairs are drawn in a fixed role
// order followed by the HMAC key, attestation key and attestation nonce.
func (g *RootGenerator) Generate() (*interfaces.SecretBundle, error) {
	bundle := &interfaces.SecretBundle{Curve: string(g.curve)}

	roles := []struct {
		name string
		dst  *interfaces.Keypair
	}{
		{"boot-ap", &bundle.BootAP},
		{"boot-component", &bundle.BootComponent},
		{"replacement", &bundle.Replacement},
		{"attest-ap", &bundle.AttestAP},
		{"attest-component", &bundle.AttestComponent},
	}
	for _, role := range roles {
		kp, err := cryptoutils.GenerateKeypair(g.curve, g.rand)
		if err != nil {
			return nil, fmt.Errorf("failed to generate %s keypair: %w", role.name, err)
		}
		*role.dst = kp
	}

	var err error
	if bundle.HMACKey, err = cryptoutils.RandomBytes(g.rand, interfaces.HMACKeySize); err != nil {
		return nil, fmt.Errorf("failed to generate hmac key: %w", err)
	}
	if bundle.AttestKey, err = cryptoutils.RandomBytes(g.rand, interfaces.SymmetricKeySize); err != nil {
		return nil, fmt.Errorf("failed to generate attestation key: %w", err)
	}
	if bundle.AttestNonce, err = cryptoutils.RandomBytes(g.rand, interfaces.NonceSize); err != nil {
		return nil, fmt.Errorf("failed to generate attestation nonce: %w", err)
	}

	if err := bundle.Validate(); err != nil {
		return nil, err
	}
	return bundle, nil
}
