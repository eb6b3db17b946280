package header

import (
	"bufio"
	"bytes"
	"errors"
	"fmt"
	"regexp"
	"strconv"
	"strings"

	"github.com/ruteri/device-secrets-provisioning/interfaces"
)

var (
	arrayLine  = regexp.MustCompile(`^constexpr const (uint8_t|uint32_t) ([A-Za-z_][A-Za-z0-9_]*)\[(\d+)\] = \{(.*)\};$`)
	scalarLine = regexp.MustCompile(`^constexpr const uint32_t ([A-Za-z_][A-Za-z0-9_]*) = (\w+);$`)
	stringLine = regexp.MustCompile(`^constexpr const char \*const ([A-Za-z_][A-Za-z0-9_]*) = "(.*)";$`)
	recordLine = regexp.MustCompile(`^//#define ([A-Za-z_][A-Za-z0-9_]*) (.*)$`)
)

// Decode parses a header produced by Render. Guard blocks are mapped back to
// roles using guards. Declared array lengths are checked against the elements.
func Decode(data []byte, guards Guards) ([]Constant, error) {
	var constants []Constant
	role := interfaces.RoleAny

	scanner := bufio.NewScanner(bytes.NewReader(data))
	scanner.Buffer(make([]byte, 0, 4096), 1024*1024)
	for lineNo := 1; scanner.Scan(); lineNo++ {
		line := strings.TrimSpace(scanner.Text())

		var c Constant
		var err error
		switch {
		case line == "", line == "#pragma once", strings.HasPrefix(line, "#include "):
			continue
		case strings.HasPrefix(line, "#ifdef "):
			macro := strings.TrimSpace(strings.TrimPrefix(line, "#ifdef "))
			switch macro {
			case guards.AP:
				role = interfaces.RoleAP
			case guards.Component:
				role = interfaces.RoleComponent
			default:
				return nil, fmt.Errorf("%w: line %d: unknown guard %s", interfaces.ErrInvalidParameter, lineNo, macro)
			}
			continue
		case line == "#endif":
			role = interfaces.RoleAny
			continue
		case arrayLine.MatchString(line):
			c, err = decodeArray(arrayLine.FindStringSubmatch(line))
		case scalarLine.MatchString(line):
			m := scalarLine.FindStringSubmatch(line)
			if _, err = strconv.ParseUint(m[2], 0, 32); err == nil {
				c = Constant{Name: m[1], Kind: KindScalar, Value: m[2]}
			}
		case stringLine.MatchString(line):
			m := stringLine.FindStringSubmatch(line)
			var value string
			if value, err = cUnquote(m[2]); err == nil {
				c = Constant{Name: m[1], Kind: KindString, Value: value}
			}
		case recordLine.MatchString(line):
			m := recordLine.FindStringSubmatch(line)
			c = Constant{Name: m[1], Kind: KindRecord, Value: strings.TrimSpace(m[2])}
		default:
			err = errors.New("unrecognized declaration")
		}
		if err != nil {
			return nil, fmt.Errorf("%w: line %d: %v", interfaces.ErrInvalidParameter, lineNo, err)
		}

		if c.Kind != KindRecord {
			c.Role = role
		}
		constants = append(constants, c)
	}
	if err := scanner.Err(); err != nil {
		return nil, fmt.Errorf("%w: reading header: %v", interfaces.ErrIOFailure, err)
	}
	return constants, nil
}

func decodeArray(m []string) (Constant, error) {
	declared, err := strconv.Atoi(m[3])
	if err != nil {
		return Constant{}, err
	}

	elements := strings.Split(m[4], ",")
	if n := len(elements); n > 0 && strings.TrimSpace(elements[n-1]) == "" {
		elements = elements[:n-1]
	}
	if len(elements) != declared {
		return Constant{}, fmt.Errorf("%s declares %d elements, has %d", m[2], declared, len(elements))
	}

	bitSize := 8
	if m[1] == "uint32_t" {
		bitSize = 32
	}

	c := Constant{Name: m[2]}
	for _, el := range elements {
		v, err := strconv.ParseUint(strings.TrimSpace(el), 0, bitSize)
		if err != nil {
			return Constant{}, fmt.Errorf("%s: %w", m[2], err)
		}
		if bitSize == 8 {
			c.Bytes = append(c.Bytes, byte(v))
		} else {
			c.Words = append(c.Words, uint32(v))
		}
	}
	if bitSize == 8 {
		c.Kind = KindBytes
	} else {
		c.Kind = KindWords
	}
	return c, nil
}

// cUnquote reverses cString on the contents of a literal.
func cUnquote(s string) (string, error) {
	var b strings.Builder
	for i := 0; i < len(s); i++ {
		if s[i] != '\\' {
			b.WriteByte(s[i])
			continue
		}
		i++
		if i >= len(s) {
			return "", errors.New("dangling escape")
		}
		switch s[i] {
		case 'n':
			b.WriteByte('\n')
		case 't':
			b.WriteByte('\t')
		case 'r':
			b.WriteByte('\r')
		case '"', '\\':
			b.WriteByte(s[i])
		default:
			if i+3 > len(s) {
				return "", errors.New("short octal escape")
			}
			v, err := strconv.ParseUint(s[i:i+3], 8, 8)
			if err != nil {
				return "", fmt.Errorf("invalid escape: %w", err)
			}
			b.WriteByte(byte(v))
			i += 2
		}
	}
	return b.String(), nil
}

// Find returns the constant called name.
func Find(constants []Constant, name string) (Constant, bool) {
	for _, c := range constants {
		if c.Name == name {
			return c, true
		}
	}
	return Constant{}, false
}
