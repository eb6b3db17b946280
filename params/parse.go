package params

import (
	"encoding/hex"
	"fmt"
	"strconv"
	"strings"

	"github.com/ruteri/device-secrets-provisioning/interfaces"
)

const maxPIN = 1<<(8*interfaces.PINEncodingSize) - 1

// ParseAPParameters extracts the Application Processor parameters. The PIN is
// decimal; the token is hexadecimal with an optional 0x prefix.
func ParseAPParameters(decls Declarations) (*interfaces.APParameters, error) {
	pin, err := requireUint(decls, KeyAPPin, 10)
	if err != nil {
		return nil, err
	}
	if pin > maxPIN {
		return nil, fmt.Errorf("%w: %s does not fit %d bytes", interfaces.ErrInvalidParameter, KeyAPPin, interfaces.PINEncodingSize)
	}

	token, err := requireUint(decls, KeyAPToken, 16)
	if err != nil {
		return nil, err
	}

	rawIDs, err := decls.Require(KeyComponentIDs)
	if err != nil {
		return nil, err
	}
	ids, err := ParseComponentIDs(rawIDs)
	if err != nil {
		return nil, err
	}

	bootMsg, err := decls.Require(KeyAPBootMessage)
	if err != nil {
		return nil, err
	}

	return &interfaces.APParameters{
		PIN:          pin,
		Token:        token,
		ComponentIDs: ids,
		BootMessage:  bootMsg,
	}, nil
}

// ParseComponentParameters extracts the Component parameters.
func ParseComponentParameters(decls Declarations) (*interfaces.ComponentParameters, error) {
	var fields [4]string
	for i, key := range []string{KeyAttestLocation, KeyAttestDate, KeyAttestCustomer, KeyComponentBootMsg} {
		value, err := decls.Require(key)
		if err != nil {
			return nil, err
		}
		fields[i] = value
	}

	rawID, err := decls.Require(KeyComponentID)
	if err != nil {
		return nil, err
	}
	id, err := parseComponentID(rawID)
	if err != nil {
		return nil, err
	}

	return &interfaces.ComponentParameters{
		Location:    fields[0],
		Date:        fields[1],
		Customer:    fields[2],
		BootMessage: fields[3],
		ComponentID: id,
	}, nil
}

// ParseComponentIDs splits a comma-separated id list, preserving order.
func ParseComponentIDs(raw string) ([]uint32, error) {
	parts := strings.Split(raw, ",")
	ids := make([]uint32, 0, len(parts))
	for _, part := range parts {
		id, err := parseComponentID(strings.TrimSpace(part))
		if err != nil {
			return nil, err
		}
		ids = append(ids, id)
	}
	return ids, nil
}

func parseComponentID(raw string) (uint32, error) {
	if raw == "" {
		return 0, fmt.Errorf("%w: empty component id", interfaces.ErrMissingParameter)
	}
	id, err := strconv.ParseUint(raw, 0, 32)
	if err != nil {
		return 0, fmt.Errorf("%w: component id %q: %v", interfaces.ErrInvalidParameter, raw, err)
	}
	if id == 0 {
		return 0, fmt.Errorf("%w: component id is zero", interfaces.ErrMissingParameter)
	}
	return uint32(id), nil
}

func requireUint(decls Declarations, key string, base int) (uint64, error) {
	raw, err := decls.Require(key)
	if err != nil {
		return 0, err
	}
	digits := raw
	if base == 16 {
		digits = strings.TrimPrefix(strings.ToLower(raw), "0x")
	}
	value, err := strconv.ParseUint(digits, base, 64)
	if err != nil {
		return 0, fmt.Errorf("%w: %s: %v", interfaces.ErrInvalidParameter, key, err)
	}
	if value == 0 {
		return 0, fmt.Errorf("%w: %s is zero", interfaces.ErrMissingParameter, key)
	}
	return value, nil
}

// ParseRootAttestation extracts the unwrapped attestation key and nonce
// records from the root bundle.
func ParseRootAttestation(decls Declarations) (key, nonce []byte, err error) {
	if key, err = rootRecord(decls, KeyAttestKeyRecord, interfaces.SymmetricKeySize); err != nil {
		return nil, nil, err
	}
	if nonce, err = rootRecord(decls, KeyAttestNonceRecord, interfaces.NonceSize); err != nil {
		return nil, nil, err
	}
	return key, nonce, nil
}

func rootRecord(decls Declarations, name string, size int) ([]byte, error) {
	raw, ok := decls.Lookup(name)
	if !ok || raw == "" {
		return nil, fmt.Errorf("%w: %s", interfaces.ErrMissingRootSecret, name)
	}
	value, err := hex.DecodeString(raw)
	if err != nil {
		return nil, fmt.Errorf("%w: %s: %v", interfaces.ErrInvalidParameter, name, err)
	}
	if err := interfaces.CheckLength(name, value, size); err != nil {
		return nil, err
	}
	return value, nil
}
