package cryptoutils

import (
	"bytes"
	"crypto/rand"
	"testing"

	"github.com/ruteri/device-secrets-provisioning/interfaces"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestWrapKey_KnownAnswer(t *testing.T) {
	// NIST SP 800-38A F.5.1, first block.
	key := mustHex(t, "6bc1bee22e409f96e93d7e117393172a")
	wrapKey := mustHex(t, "2b7e151628aed2a6abf7158809cf4f3c")
	nonce := mustHex(t, "f0f1f2f3f4f5f6f7f8f9fafbfcfdfeff")

	wrapped, err := WrapKey(key, nonce, wrapKey)
	require.NoError(t, err)
	assert.Equal(t, mustHex(t, "874d6191b620e3261bef6864990db6ce"), wrapped)
}

func TestWrapUnwrap_Symmetry(t *testing.T) {
	for i := 0; i < 16; i++ {
		key, err := RandomBytes(rand.Reader, 16)
		require.NoError(t, err)
		nonce, err := RandomBytes(rand.Reader, 16)
		require.NoError(t, err)
		wrapKey, err := RandomBytes(rand.Reader, 16)
		require.NoError(t, err)

		wrapped, err := WrapKey(key, nonce, wrapKey)
		require.NoError(t, err)
		assert.NotEqual(t, key, wrapped)

		unwrapped, err := UnwrapKey(wrapped, nonce, wrapKey)
		require.NoError(t, err)
		assert.Equal(t, key, unwrapped)
	}
}

func TestWrapKey_PinScenario(t *testing.T) {
	attestKey := mustHex(t, "000102030405060708090a0b0c0d0e0f")
	nonce := bytes.Repeat([]byte{0xA5}, 16)

	wrapKey, err := DeriveWrapKey(123456, 25000, RepeatedUpdate)
	require.NoError(t, err)

	wrapped, err := WrapKey(attestKey, nonce, wrapKey)
	require.NoError(t, err)

	// Unwrap with a key recomputed from scratch, as the firmware would.
	digest, err := HashPin(123456, 24999, RepeatedUpdate)
	require.NoError(t, err)
	unwrapped, err := UnwrapKey(wrapped, nonce, digest[:16])
	require.NoError(t, err)
	assert.Equal(t, attestKey, unwrapped)

	wrongPin, err := DeriveWrapKey(123457, 25000, RepeatedUpdate)
	require.NoError(t, err)
	garbage, err := UnwrapKey(wrapped, nonce, wrongPin)
	require.NoError(t, err)
	assert.NotEqual(t, attestKey, garbage)
}

func TestWrapKey_InvalidLengths(t *testing.T) {
	good := make([]byte, 16)

	testCases := []struct {
		name    string
		key     []byte
		nonce   []byte
		wrapKey []byte
	}{
		{name: "short key", key: make([]byte, 15), nonce: good, wrapKey: good},
		{name: "long nonce", key: good, nonce: make([]byte, 17), wrapKey: good},
		{name: "aes-256 wrap key", key: good, nonce: good, wrapKey: make([]byte, 32)},
		{name: "missing wrap key", key: good, nonce: good, wrapKey: nil},
	}

	for _, tc := range testCases {
		t.Run(tc.name, func(t *testing.T) {
			_, err := WrapKey(tc.key, tc.nonce, tc.wrapKey)
			assert.ErrorIs(t, err, interfaces.ErrInvalidKeyLength)
		})
	}
}

func TestPadField(t *testing.T) {
	padded, err := PadField("Wilmington")
	require.NoError(t, err)
	require.Len(t, padded, interfaces.AttestFieldSize)
	assert.Equal(t, []byte("Wilmington"), padded[:10])
	assert.Equal(t, make([]byte, 54), padded[10:])

	exact := string(bytes.Repeat([]byte("x"), 64))
	padded, err = PadField(exact)
	require.NoError(t, err)
	assert.Equal(t, []byte(exact), padded)

	_, err = PadField(exact + "y")
	assert.ErrorIs(t, err, interfaces.ErrFieldTooLong)

	_, err = PadField("")
	assert.ErrorIs(t, err, interfaces.ErrMissingParameter)
}

func TestEncryptAttestationFields_RoundTrip(t *testing.T) {
	key := bytes.Repeat([]byte{0x11}, 16)
	nonce := bytes.Repeat([]byte{0x22}, 16)

	loc, date, cust, err := EncryptAttestationFields("McLean", "08/08/08", "Fritz", nonce, key)
	require.NoError(t, err)
	for _, field := range [][]byte{loc, date, cust} {
		assert.Len(t, field, interfaces.AttestFieldSize)
	}

	plain, err := DecryptAttestationFields(loc, date, cust, nonce, key)
	require.NoError(t, err)

	expected := []string{"McLean", "08/08/08", "Fritz"}
	for i, p := range plain {
		want, err := PadField(expected[i])
		require.NoError(t, err)
		assert.Equal(t, want, p)
	}
}

func TestEncryptAttestationFields_SingleKeystream(t *testing.T) {
	key := bytes.Repeat([]byte{0x11}, 16)
	nonce := bytes.Repeat([]byte{0x22}, 16)

	loc, date, cust, err := EncryptAttestationFields("McLean", "08/08/08", "Fritz", nonce, key)
	require.NoError(t, err)

	// Encrypting the concatenated padded fields in one call must match.
	var joined []byte
	for _, f := range []string{"McLean", "08/08/08", "Fritz"} {
		p, err := PadField(f)
		require.NoError(t, err)
		joined = append(joined, p...)
	}
	stream, err := newCTR(key, nonce)
	require.NoError(t, err)
	whole := make([]byte, len(joined))
	stream.XORKeyStream(whole, joined)

	assert.Equal(t, whole, append(append(append([]byte{}, loc...), date...), cust...))

	// Decrypting the date on its own from a fresh keystream does not recover it.
	stream, err = newCTR(key, nonce)
	require.NoError(t, err)
	alone := make([]byte, len(date))
	stream.XORKeyStream(alone, date)
	padded, err := PadField("08/08/08")
	require.NoError(t, err)
	assert.NotEqual(t, padded, alone)
}

func TestEncryptAttestationFields_OrderSensitive(t *testing.T) {
	key := bytes.Repeat([]byte{0x33}, 16)
	nonce := bytes.Repeat([]byte{0x44}, 16)

	loc, date, cust, err := EncryptAttestationFields("McLean", "08/08/08", "Fritz", nonce, key)
	require.NoError(t, err)

	// Swap date and customer: the first position is unchanged, the rest differ.
	first, second, third, err := EncryptAttestationFields("McLean", "Fritz", "08/08/08", nonce, key)
	require.NoError(t, err)

	assert.Equal(t, loc, first)
	assert.NotEqual(t, date, second)
	assert.NotEqual(t, cust, third)
}

func TestEncryptAttestationFields_Errors(t *testing.T) {
	key := make([]byte, 16)
	nonce := make([]byte, 16)

	_, _, _, err := EncryptAttestationFields("loc", "", "cust", nonce, key)
	assert.ErrorIs(t, err, interfaces.ErrMissingParameter)

	_, _, _, err = EncryptAttestationFields(string(bytes.Repeat([]byte("a"), 65)), "date", "cust", nonce, key)
	assert.ErrorIs(t, err, interfaces.ErrFieldTooLong)

	_, _, _, err = EncryptAttestationFields("loc", "date", "cust", nonce, make([]byte, 24))
	assert.ErrorIs(t, err, interfaces.ErrInvalidKeyLength)

	_, err = DecryptAttestationFields(make([]byte, 63), make([]byte, 64), make([]byte, 64), nonce, key)
	assert.ErrorIs(t, err, interfaces.ErrInvalidKeyLength)
}
