package header

import (
	"bytes"
	"fmt"
	"strings"
	"text/template"

	"github.com/ruteri/device-secrets-provisioning/interfaces"
)

var funcMap = template.FuncMap{
	"cstring": cString,
}

const headerTmpl = `{{define "header"}}
#include <stdint.h>
#pragma once
{{range .Blocks}}{{if .Guard}}#ifdef {{.Guard}}
{{end}}{{range .Constants}}{{template "constant" .}}
{{end}}{{if .Guard}}#endif
{{end}}{{end}}{{end}}`

const constantTmpl = `{{define "constant"}}{{if eq .Kind "array"}}constexpr const {{.Type}} {{.Name}}[{{len .Elements}}] = {{"{"}}{{range .Elements}}{{.}},{{end}}};
{{- else if eq .Kind "scalar"}}constexpr const {{.Type}} {{.Name}} = {{.Value}};
{{- else if eq .Kind "string"}}constexpr const char *const {{.Name}} = {{cstring .Value}};
{{- else}}//#define {{.Name}} {{.Value}}{{end}}{{end}}`

var templates = template.Must(template.New("").Funcs(funcMap).Parse(headerTmpl + constantTmpl))

// --- Template data types ---

type headerData struct {
	Blocks []blockData
}

// blockData is a run of consecutive constants sharing one guard.
type blockData struct {
	Guard     string
	Constants []constantData
}

type constantData struct {
	Kind     string
	Type     string
	Name     string
	Elements []string
	Value    string
}

// Render serializes all constants. Nothing is rendered if any constant was rejected.
func (e *Emitter) Render() ([]byte, error) {
	if e.err != nil {
		return nil, e.err
	}

	var data headerData
	for _, c := range e.constants {
		guard := e.guards.Macro(c.Role)
		if c.Role != interfaces.RoleAny && guard == "" {
			return nil, fmt.Errorf("%w: no guard macro for role %s", interfaces.ErrInvalidParameter, c.Role)
		}
		if n := len(data.Blocks); n == 0 || data.Blocks[n-1].Guard != guard {
			data.Blocks = append(data.Blocks, blockData{Guard: guard})
		}
		block := &data.Blocks[len(data.Blocks)-1]
		block.Constants = append(block.Constants, templateConstant(c))
	}

	var buf bytes.Buffer
	if err := templates.ExecuteTemplate(&buf, "header", data); err != nil {
		return nil, fmt.Errorf("failed to render header: %w", err)
	}
	return buf.Bytes(), nil
}

func templateConstant(c Constant) constantData {
	switch c.Kind {
	case KindBytes:
		elements := make([]string, len(c.Bytes))
		for i, b := range c.Bytes {
			elements[i] = fmt.Sprintf("%d", b)
		}
		return constantData{Kind: "array", Type: "uint8_t", Name: c.Name, Elements: elements}
	case KindWords:
		elements := make([]string, len(c.Words))
		for i, w := range c.Words {
			elements[i] = fmt.Sprintf("0x%08x", w)
		}
		return constantData{Kind: "array", Type: "uint32_t", Name: c.Name, Elements: elements}
	case KindScalar:
		return constantData{Kind: "scalar", Type: "uint32_t", Name: c.Name, Value: c.Value}
	case KindString:
		return constantData{Kind: "string", Name: c.Name, Value: c.Value}
	default:
		return constantData{Kind: "record", Name: c.Name, Value: c.Value}
	}
}

// cString quotes s as a C string literal. Bytes outside printable ASCII are
// written as three-digit octal escapes, which cannot run into a following digit.
func cString(s string) string {
	var b strings.Builder
	b.WriteByte('"')
	for i := 0; i < len(s); i++ {
		switch c := s[i]; c {
		case '"', '\\':
			b.WriteByte('\\')
			b.WriteByte(c)
		case '\n':
			b.WriteString(`\n`)
		case '\t':
			b.WriteString(`\t`)
		case '\r':
			b.WriteString(`\r`)
		default:
			if c < 0x20 || c >= 0x7f {
				fmt.Fprintf(&b, "\\%03o", c)
			} else {
				b.WriteByte(c)
			}
		}
	}
	b.WriteByte('"')
	return b.String()
}
