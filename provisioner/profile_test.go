package provisioner

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/ruteri/device-secrets-provisioning/cryptoutils"
	"github.com/ruteri/device-secrets-provisioning/interfaces"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestDefaultProfile(t *testing.T) {
	p := DefaultProfile()
	require.NoError(t, p.Validate())

	assert.Equal(t, 25000, p.Iterations)
	assert.Equal(t, 1, p.TokenIterations)
	assert.Equal(t, string(cryptoutils.RepeatedUpdate), p.HashConstruction)
	assert.Equal(t, string(cryptoutils.CurveSecp256k1), p.Curve)
	assert.Equal(t, "AP_BUILD", p.Guards.AP)
	assert.Equal(t, "COMPONENT_BUILD", p.Guards.Component)
	assert.Equal(t, "deployment/global_secrets_secure.h", p.Artifacts.RootBundle)

	assert.Equal(t, 1000, FastProfile().Iterations)
}

func TestParseProfile(t *testing.T) {
	p, err := ParseProfile([]byte(`
iterations: 1000
curve: secp256r1
hash_construction: chained-digest
guards:
  ap: IS_AP
artifacts:
  ap_header: build/ap.h
`))
	require.NoError(t, err)

	assert.Equal(t, 1000, p.Iterations)
	assert.Equal(t, 1, p.TokenIterations, "absent fields keep their defaults")
	assert.Equal(t, "secp256r1", p.Curve)
	assert.Equal(t, "chained-digest", p.HashConstruction)
	assert.Equal(t, "IS_AP", p.Guards.AP)
	assert.Equal(t, "COMPONENT_BUILD", p.Guards.Component)
	assert.Equal(t, "build/ap.h", p.Artifacts.APHeader)
	assert.Equal(t, "component/inc/ectf_params.h", p.Artifacts.ComponentParams)

	empty, err := ParseProfile(nil)
	require.NoError(t, err)
	assert.Equal(t, DefaultProfile(), empty)
}

func TestParseProfile_Invalid(t *testing.T) {
	tests := []struct {
		name string
		yaml string
	}{
		{"unknown field", "iteration: 5\n"},
		{"single iteration", "iterations: 1\n"},
		{"no token iterations", "token_iterations: 0\n"},
		{"unknown construction", "hash_construction: pbkdf2\n"},
		{"unknown curve", "curve: ed25519\n"},
		{"equal guards", "guards: {ap: X, component: X}\n"},
		{"escaping artifact", "artifacts: {root_bundle: ../bundle.h}\n"},
		{"not yaml", "iterations: [\n"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := ParseProfile([]byte(tt.yaml))
			assert.ErrorIs(t, err, interfaces.ErrInvalidParameter)
		})
	}
}

func TestLoadProfile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "profile.yaml")
	require.NoError(t, os.WriteFile(path, []byte("iterations: 2000\n"), 0600))

	p, err := LoadProfile(path)
	require.NoError(t, err)
	assert.Equal(t, 2000, p.Iterations)

	_, err = LoadProfile(filepath.Join(t.TempDir(), "missing.yaml"))
	assert.ErrorIs(t, err, interfaces.ErrIOFailure)
}
