package provisioner

import (
	"bytes"
	"encoding/hex"
	"strings"
	"testing"

	"github.com/ruteri/device-secrets-provisioning/cryptoutils"
	"github.com/ruteri/device-secrets-provisioning/interfaces"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func decodeHex(t *testing.T, s string) []byte {
	t.Helper()
	b, err := hex.DecodeString(s)
	require.NoError(t, err)
	return b
}

func newTestEngine(t *testing.T, profile *Profile) *Engine {
	t.Helper()
	engine, err := NewEngine(profile)
	require.NoError(t, err)
	return engine
}

func TestEngine_DeriveAP(t *testing.T) {
	attestKey := decodeHex(t, "000102030405060708090a0b0c0d0e0f")
	nonce := decodeHex(t, "f0f1f2f3f4f5f6f7f8f9fafbfcfdfeff")

	engine := newTestEngine(t, DefaultProfile()).WithRandomSource(bytes.NewReader(nonce))
	secrets, err := engine.DeriveAP(&interfaces.APParameters{
		PIN:          123456,
		Token:        0x1234567890abcdef,
		ComponentIDs: []uint32{1001, 1002, 1003},
		BootMessage:  "boot",
	}, attestKey)
	require.NoError(t, err)

	assert.Equal(t, decodeHex(t, "3b4f777023e83b6d9683db3b20ff67680d78714c694b13158e0636f3e3443c82"), secrets.PINHash)
	assert.Equal(t, decodeHex(t, "7278b6947f0969441c2e800877c4ebdd8f9ba8e2ea0a86aaec35131814721530"), secrets.TokenHash)
	assert.Equal(t, nonce, secrets.WrapNonce)

	// The wrap key is the first half of the digest one iteration short of the verifier.
	wrapKey := decodeHex(t, "891efe5fed4b2fbd0aa247dfc7981d1e")
	assert.NotEqual(t, wrapKey, secrets.PINHash[:16])

	unwrapped, err := cryptoutils.UnwrapKey(secrets.WrappedAttestKey, secrets.WrapNonce, wrapKey)
	require.NoError(t, err)
	assert.Equal(t, attestKey, unwrapped)
}

func TestEngine_DeriveAP_FreshNonce(t *testing.T) {
	engine := newTestEngine(t, FastProfile())
	attestKey := make([]byte, 16)
	params := &interfaces.APParameters{PIN: 1, Token: 1, ComponentIDs: []uint32{1}, BootMessage: "b"}

	a, err := engine.DeriveAP(params, attestKey)
	require.NoError(t, err)
	b, err := engine.DeriveAP(params, attestKey)
	require.NoError(t, err)

	assert.Equal(t, a.PINHash, b.PINHash, "verifiers are deterministic")
	assert.NotEqual(t, a.WrapNonce, b.WrapNonce)
	assert.NotEqual(t, a.WrappedAttestKey, b.WrappedAttestKey)
}

func TestEngine_DeriveAP_Errors(t *testing.T) {
	engine := newTestEngine(t, FastProfile())
	valid := func() *interfaces.APParameters {
		return &interfaces.APParameters{PIN: 123456, Token: 7, ComponentIDs: []uint32{1}, BootMessage: "b"}
	}

	p := valid()
	p.ComponentIDs = nil
	_, err := engine.DeriveAP(p, make([]byte, 16))
	assert.ErrorIs(t, err, interfaces.ErrMissingParameter)

	p = valid()
	p.BootMessage = ""
	_, err = engine.DeriveAP(p, make([]byte, 16))
	assert.ErrorIs(t, err, interfaces.ErrMissingParameter)

	p = valid()
	p.Token = 0
	_, err = engine.DeriveAP(p, make([]byte, 16))
	assert.ErrorIs(t, err, interfaces.ErrMissingParameter)

	_, err = engine.DeriveAP(valid(), make([]byte, 32))
	assert.ErrorIs(t, err, interfaces.ErrInvalidKeyLength)

	_, err = engine.WithRandomSource(bytes.NewReader(nil)).DeriveAP(valid(), make([]byte, 16))
	assert.Error(t, err)
}

func TestEngine_DeriveAP_Construction(t *testing.T) {
	chained := FastProfile()
	chained.HashConstruction = string(cryptoutils.ChainedDigest)
	params := &interfaces.APParameters{PIN: 123456, Token: 7, ComponentIDs: []uint32{1}, BootMessage: "b"}

	a, err := newTestEngine(t, FastProfile()).DeriveAP(params, make([]byte, 16))
	require.NoError(t, err)
	b, err := newTestEngine(t, chained).DeriveAP(params, make([]byte, 16))
	require.NoError(t, err)

	assert.NotEqual(t, a.PINHash, b.PINHash)
}

func TestEngine_DeriveComponent(t *testing.T) {
	key := decodeHex(t, "2b7e151628aed2a6abf7158809cf4f3c")
	nonce := decodeHex(t, "f0f1f2f3f4f5f6f7f8f9fafbfcfdfeff")
	params := &interfaces.ComponentParameters{
		Location:    "Washington",
		Date:        "2024-01-01",
		Customer:    "Customer",
		ComponentID: 0x11111124,
		BootMessage: "Component boot",
	}

	secrets, err := newTestEngine(t, DefaultProfile()).DeriveComponent(params, key, nonce)
	require.NoError(t, err)

	for _, field := range [][]byte{secrets.LocationEnc, secrets.DateEnc, secrets.CustomerEnc, secrets.BootMessage} {
		assert.Len(t, field, interfaces.AttestFieldSize)
	}
	assert.Equal(t, append([]byte("Component boot"), make([]byte, 50)...), secrets.BootMessage)

	plain, err := cryptoutils.DecryptAttestationFields(secrets.LocationEnc, secrets.DateEnc, secrets.CustomerEnc, nonce, key)
	require.NoError(t, err)
	assert.Equal(t, append([]byte("Washington"), make([]byte, 54)...), plain[0])
	assert.Equal(t, "2024-01-01", strings.TrimRight(string(plain[1]), "\x00"))
	assert.Equal(t, "Customer", strings.TrimRight(string(plain[2]), "\x00"))
}

func TestEngine_DeriveComponent_Errors(t *testing.T) {
	engine := newTestEngine(t, FastProfile())
	key, nonce := make([]byte, 16), make([]byte, 16)
	valid := func() *interfaces.ComponentParameters {
		return &interfaces.ComponentParameters{Location: "l", Date: "d", Customer: "c", ComponentID: 1, BootMessage: "b"}
	}

	p := valid()
	p.Customer = strings.Repeat("x", 65)
	_, err := engine.DeriveComponent(p, key, nonce)
	assert.ErrorIs(t, err, interfaces.ErrFieldTooLong)

	p = valid()
	p.BootMessage = strings.Repeat("x", 65)
	_, err = engine.DeriveComponent(p, key, nonce)
	assert.ErrorIs(t, err, interfaces.ErrFieldTooLong)

	p = valid()
	p.ComponentID = 0
	_, err = engine.DeriveComponent(p, key, nonce)
	assert.ErrorIs(t, err, interfaces.ErrMissingParameter)

	_, err = engine.DeriveComponent(valid(), key, nonce[:8])
	assert.ErrorIs(t, err, interfaces.ErrInvalidKeyLength)
}
