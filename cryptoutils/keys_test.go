package cryptoutils

import (
	"bytes"
	"crypto/rand"
	"io"
	"testing"

	"github.com/ruteri/device-secrets-provisioning/interfaces"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func scalarOne() []byte {
	one := make([]byte, 32)
	one[31] = 1
	return one
}

func TestGenerateKeypair_GeneratorPoint(t *testing.T) {
	testCases := []struct {
		curve    Curve
		expected string
	}{
		{
			curve: CurveSecp256k1,
			expected: "79be667ef9dcbbac55a06295ce870b07029bfcdb2dce28d959f2815b16f81798" +
				"483ada7726a3c4655da4fbfc0e1108a8fd17b448a68554199c47d08ffb10d4b8",
		},
		{
			curve: CurveSecp256r1,
			expected: "6b17d1f2e12c4247f8bce6e563a440f277037d812deb33a0f4a13945d898c296" +
				"4fe342e2fe1a7f9b8ee7eb4a7c0f9e162bce33576b315ececbb6406837bf51f5",
		},
	}

	for _, tc := range testCases {
		t.Run(string(tc.curve), func(t *testing.T) {
			kp, err := GenerateKeypair(tc.curve, bytes.NewReader(scalarOne()))
			require.NoError(t, err)
			require.NoError(t, kp.Validate())
			assert.Equal(t, scalarOne(), kp.Private)
			assert.Equal(t, mustHex(t, tc.expected), kp.Public)
		})
	}
}

func TestGenerateKeypair_RejectsOutOfRangeScalar(t *testing.T) {
	for _, curve := range []Curve{CurveSecp256k1, CurveSecp256r1} {
		t.Run(string(curve), func(t *testing.T) {
			// All-ones is above the group order of both curves and is redrawn.
			source := io.MultiReader(bytes.NewReader(bytes.Repeat([]byte{0xff}, 32)), bytes.NewReader(scalarOne()))
			kp, err := GenerateKeypair(curve, source)
			require.NoError(t, err)
			assert.Equal(t, scalarOne(), kp.Private)
		})
	}
}

func TestGenerateKeypair_Errors(t *testing.T) {
	// A source of zeros never yields a valid scalar.
	_, err := GenerateKeypair(CurveSecp256k1, bytes.NewReader(make([]byte, 32*maxScalarAttempts)))
	assert.ErrorIs(t, err, errScalarRejected)

	_, err = GenerateKeypair(CurveSecp256k1, bytes.NewReader(make([]byte, 10)))
	assert.Error(t, err)

	_, err = GenerateKeypair(Curve("ed25519"), rand.Reader)
	assert.ErrorIs(t, err, interfaces.ErrInvalidParameter)
}

func TestGenerateKeypair_Random(t *testing.T) {
	for _, curve := range []Curve{CurveSecp256k1, CurveSecp256r1} {
		a, err := GenerateKeypair(curve, rand.Reader)
		require.NoError(t, err)
		b, err := GenerateKeypair(curve, rand.Reader)
		require.NoError(t, err)

		assert.NotEqual(t, a.Private, b.Private)

		public, err := PublicFromPrivate(curve, a.Private)
		require.NoError(t, err)
		assert.Equal(t, a.Public, public)
	}
}

func TestParseCurve(t *testing.T) {
	c, err := ParseCurve("")
	require.NoError(t, err)
	assert.Equal(t, CurveSecp256k1, c)

	c, err = ParseCurve("P-256")
	require.NoError(t, err)
	assert.Equal(t, CurveSecp256r1, c)

	_, err = ParseCurve("curve25519")
	assert.ErrorIs(t, err, interfaces.ErrInvalidParameter)
}
