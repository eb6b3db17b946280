package header

import (
	"bytes"
	"errors"
	"fmt"
	"regexp"
	"strconv"

	"github.com/ruteri/device-secrets-provisioning/interfaces"
)

// ErrDuplicateConstant is returned when two constants share a name.
var ErrDuplicateConstant = errors.New("duplicate constant")

// Kind is the C declaration form of a constant.
type Kind int

const (
	// KindBytes is a uint8_t array.
	KindBytes Kind = iota
	// KindWords is a uint32_t array.
	KindWords
	// KindScalar is a single uint32_t.
	KindScalar
	// KindString is a C string literal.
	KindString
	// KindRecord is a commented-out #define, invisible to the compiler and
	// read back by later generator runs.
	KindRecord
)

func (k Kind) String() string {
	switch k {
	case KindBytes:
		return "bytes"
	case KindWords:
		return "words"
	case KindScalar:
		return "scalar"
	case KindString:
		return "string"
	case KindRecord:
		return "record"
	default:
		return "unknown"
	}
}

// Constant is one named declaration.
type Constant struct {
	Name  string
	Kind  Kind
	Role  interfaces.Role
	Bytes []byte   // KindBytes
	Words []uint32 // KindWords
	Value string   // KindScalar, KindString, KindRecord
}

// Guards names the preprocessor macros selecting each firmware build.
type Guards struct {
	AP        string `yaml:"ap"`
	Component string `yaml:"component"`
}

// DefaultGuards returns the conventional AP_BUILD / COMPONENT_BUILD macros.
func DefaultGuards() Guards {
	return Guards{AP: "AP_BUILD", Component: "COMPONENT_BUILD"}
}

// Macro returns the guard macro of role, or "" for RoleAny.
func (g Guards) Macro(role interfaces.Role) string {
	switch role {
	case interfaces.RoleAP:
		return g.AP
	case interfaces.RoleComponent:
		return g.Component
	default:
		return ""
	}
}

// Validate checks that both macros are distinct C identifiers.
func (g Guards) Validate() error {
	if !identifier.MatchString(g.AP) || !identifier.MatchString(g.Component) {
		return fmt.Errorf("%w: guard macros must be C identifiers", interfaces.ErrInvalidParameter)
	}
	if g.AP == g.Component {
		return fmt.Errorf("%w: AP and Component guard macros are equal", interfaces.ErrInvalidParameter)
	}
	return nil
}

var identifier = regexp.MustCompile(`^[A-Za-z_][A-Za-z0-9_]*$`)

// Option modifies a constant when it is added.
type Option func(*Constant)

// Guarded restricts a constant to the firmware build of role.
func Guarded(role interfaces.Role) Option {
	return func(c *Constant) {
		c.Role = role
	}
}

// Emitter accumulates constants in insertion order. The first error raised
// while adding constants is kept and returned by Render.
type Emitter struct {
	guards    Guards
	constants []Constant
	names     map[string]struct{}
	err       error
}

// NewEmitter creates an emitter using guards for role-restricted constants.
func NewEmitter(guards Guards) *Emitter {
	return &Emitter{
		guards: guards,
		names:  make(map[string]struct{}),
	}
}

// Bytes adds a uint8_t array.
func (e *Emitter) Bytes(name string, value []byte, opts ...Option) {
	if len(value) == 0 {
		e.fail(fmt.Errorf("%w: %s is an empty array", interfaces.ErrInvalidParameter, name))
		return
	}
	e.add(Constant{Name: name, Kind: KindBytes, Bytes: bytes.Clone(value)}, opts)
}

// Words adds a uint32_t array.
func (e *Emitter) Words(name string, value []uint32, opts ...Option) {
	if len(value) == 0 {
		e.fail(fmt.Errorf("%w: %s is an empty array", interfaces.ErrInvalidParameter, name))
		return
	}
	e.add(Constant{Name: name, Kind: KindWords, Words: append([]uint32(nil), value...)}, opts)
}

// Scalar adds a uint32_t.
func (e *Emitter) Scalar(name string, value uint32, opts ...Option) {
	e.add(Constant{Name: name, Kind: KindScalar, Value: strconv.FormatUint(uint64(value), 10)}, opts)
}

// String adds a C string constant.
func (e *Emitter) String(name, value string, opts ...Option) {
	e.add(Constant{Name: name, Kind: KindString, Value: value}, opts)
}

// Record adds a provisioning record for later generator runs. Records are
// comments to the compiler and are never guarded.
func (e *Emitter) Record(name, value string) {
	e.add(Constant{Name: name, Kind: KindRecord, Value: value}, nil)
}

// Constants returns a copy of the accumulated constants.
func (e *Emitter) Constants() []Constant {
	return append([]Constant(nil), e.constants...)
}

// Err returns the first error raised while adding constants.
func (e *Emitter) Err() error {
	return e.err
}

func (e *Emitter) add(c Constant, opts []Option) {
	for _, opt := range opts {
		opt(&c)
	}
	if !identifier.MatchString(c.Name) {
		e.fail(fmt.Errorf("%w: %q is not a C identifier", interfaces.ErrInvalidParameter, c.Name))
		return
	}
	if _, ok := e.names[c.Name]; ok {
		e.fail(fmt.Errorf("%w: %s", ErrDuplicateConstant, c.Name))
		return
	}
	if c.Kind == KindRecord {
		c.Role = interfaces.RoleAny
	}
	e.names[c.Name] = struct{}{}
	e.constants = append(e.constants, c)
}

func (e *Emitter) fail(err error) {
	if e.err == nil {
		e.err = err
	}
}
