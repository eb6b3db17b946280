package params

import (
	"bufio"
	"bytes"
	"fmt"
	"io"
	"strings"
	"unicode"

	"github.com/ruteri/device-secrets-provisioning/interfaces"
)

// Operator parameter keys.
const (
	KeyAPPin             = "AP_PIN"
	KeyAPToken           = "AP_TOKEN"
	KeyComponentIDs      = "COMPONENT_IDS"
	KeyAPBootMessage     = "AP_BOOT_MSG"
	KeyAttestLocation    = "ATTESTATION_LOC"
	KeyAttestDate        = "ATTESTATION_DATE"
	KeyAttestCustomer    = "ATTESTATION_CUSTOMER"
	KeyComponentID       = "COMPONENT_ID"
	KeyComponentBootMsg  = "COMPONENT_BOOT_MSG"
	KeyAttestKeyRecord   = "ATTEST_KEY_UNWRAPPED"
	KeyAttestNonceRecord = "ATTEST_NONCE_UNWRAPPED"
)

// maxLineLength bounds a single declaration line.
const maxLineLength = 64 * 1024

// Declarations maps declaration keys to their raw values.
type Declarations map[string]string

// Lookup returns the value of key and whether it was declared.
func (d Declarations) Lookup(key string) (string, bool) {
	value, ok := d[key]
	return value, ok
}

// Require returns the value of key, or ErrMissingParameter when it is absent or empty.
func (d Declarations) Require(key string) (string, error) {
	value, ok := d[key]
	if !ok || value == "" {
		return "", fmt.Errorf("%w: %s", interfaces.ErrMissingParameter, key)
	}
	return value, nil
}

// ReadDeclarations reads every declaration from r.
func ReadDeclarations(r io.Reader) (Declarations, error) {
	decls := make(Declarations)

	scanner := bufio.NewScanner(r)
	scanner.Buffer(make([]byte, 0, 4096), maxLineLength)
	for scanner.Scan() {
		key, value, ok := splitDeclaration(scanner.Text())
		if ok {
			decls[key] = value
		}
	}
	if err := scanner.Err(); err != nil {
		return nil, fmt.Errorf("%w: reading declarations: %v", interfaces.ErrIOFailure, err)
	}
	return decls, nil
}

// ParseDeclarations reads declarations from an in-memory file.
func ParseDeclarations(data []byte) (Declarations, error) {
	return ReadDeclarations(bytes.NewReader(data))
}

// recognizedKeys may also open a line, as in `KEY = value`.
var recognizedKeys = map[string]bool{
	KeyAPPin:             true,
	KeyAPToken:           true,
	KeyComponentIDs:      true,
	KeyAPBootMessage:     true,
	KeyAttestLocation:    true,
	KeyAttestDate:        true,
	KeyAttestCustomer:    true,
	KeyComponentID:       true,
	KeyComponentBootMsg:  true,
	KeyAttestKeyRecord:   true,
	KeyAttestNonceRecord: true,
}

// splitDeclaration reads `#define KEY value` and `KEY = value` lines. The
// value starts at the third token in both forms.
func splitDeclaration(line string) (key, value string, ok bool) {
	first, rest := nextToken(line)
	second, rest := nextToken(rest)
	switch {
	case recognizedKeys[first]:
		key = first
	case second != "":
		key = second
	default:
		return "", "", false
	}
	return key, strings.Trim(rest, " \t\r\n\""), true
}

// nextToken splits off the first whitespace-separated token of s.
func nextToken(s string) (token, rest string) {
	s = strings.TrimLeftFunc(s, unicode.IsSpace)
	end := strings.IndexFunc(s, unicode.IsSpace)
	if end < 0 {
		return s, ""
	}
	return s[:end], s[end:]
}
