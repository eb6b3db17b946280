package cryptoutils

import (
	"crypto/aes"
	"crypto/cipher"
	"fmt"

	"github.com/ruteri/device-secrets-provisioning/interfaces"
)

// newCTR returns an AES-128-CTR stream for key and the initial counter block nonce.
func newCTR(key, nonce []byte) (cipher.Stream, error) {
	if err := interfaces.CheckLength("key", key, interfaces.SymmetricKeySize); err != nil {
		return nil, err
	}
	if err := interfaces.CheckLength("nonce", nonce, interfaces.NonceSize); err != nil {
		return nil, err
	}

	block, err := aes.NewCipher(key)
	if err != nil {
		return nil, fmt.Errorf("failed to create cipher: %w", err)
	}
	return cipher.NewCTR(block, nonce), nil
}

// WrapKey encrypts a 16-byte key under wrapKey with AES-128-CTR.
func WrapKey(key, nonce, wrapKey []byte) ([]byte, error) {
	if err := interfaces.CheckLength("wrapped key", key, interfaces.SymmetricKeySize); err != nil {
		return nil, err
	}
	stream, err := newCTR(wrapKey, nonce)
	if err != nil {
		return nil, err
	}

	wrapped := make([]byte, len(key))
	stream.XORKeyStream(wrapped, key)
	return wrapped, nil
}

// UnwrapKey reverses WrapKey. CTR mode is symmetric, so this is the same
// transform; it exists so call sites read in the direction they mean.
func UnwrapKey(wrapped, nonce, wrapKey []byte) ([]byte, error) {
	return WrapKey(wrapped, nonce, wrapKey)
}

// PadField null-pads an attestation text field to AttestFieldSize bytes.
// A field of exactly AttestFieldSize bytes is returned unchanged; longer
// fields are rejected rather than truncated.
func PadField(field string) ([]byte, error) {
	if len(field) == 0 {
		return nil, fmt.Errorf("%w: empty attestation field", interfaces.ErrMissingParameter)
	}
	if len(field) > interfaces.AttestFieldSize {
		return nil, fmt.Errorf("%w: %d bytes, limit is %d", interfaces.ErrFieldTooLong, len(field), interfaces.AttestFieldSize)
	}

	padded := make([]byte, interfaces.AttestFieldSize)
	copy(padded, field)
	return padded, nil
}

// EncryptAttestationFields pads location, date and customer and encrypts them
// in that order under one continuous AES-128-CTR keystream. The keystream is
// not restarted between fields, so only the location can be decrypted without
// first consuming the preceding fields.
func EncryptAttestationFields(location, date, customer string, nonce, key []byte) (loc, dt, cust []byte, err error) {
	stream, err := newCTR(key, nonce)
	if err != nil {
		return nil, nil, nil, err
	}

	out := make([][]byte, 3)
	for i, field := range []string{location, date, customer} {
		padded, err := PadField(field)
		if err != nil {
			return nil, nil, nil, err
		}
		out[i] = make([]byte, len(padded))
		stream.XORKeyStream(out[i], padded)
	}
	return out[0], out[1], out[2], nil
}

// DecryptAttestationFields reverses EncryptAttestationFields. The ciphertexts
// must be given in canonical order. Returned plaintexts keep their padding.
func DecryptAttestationFields(loc, dt, cust, nonce, key []byte) ([][]byte, error) {
	stream, err := newCTR(key, nonce)
	if err != nil {
		return nil, err
	}

	out := make([][]byte, 0, 3)
	for _, field := range [][]byte{loc, dt, cust} {
		if err := interfaces.CheckLength("encrypted attestation field", field, interfaces.AttestFieldSize); err != nil {
			return nil, err
		}
		plain := make([]byte, len(field))
		stream.XORKeyStream(plain, field)
		out = append(out, plain)
	}
	return out, nil
}
