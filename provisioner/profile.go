package provisioner

import (
	"bytes"
	"errors"
	"fmt"
	"io"
	"os"

	"github.com/ruteri/device-secrets-provisioning/cryptoutils"
	"github.com/ruteri/device-secrets-provisioning/header"
	"github.com/ruteri/device-secrets-provisioning/interfaces"
	"gopkg.in/yaml.v3"
)

const (
	// DefaultIterations is the PIN hash iteration count of production firmware.
	DefaultIterations = 25000
	// FastIterations is the PIN hash iteration count of the fast profile.
	FastIterations = 1000
)

// Profile is a provisioning profile. It fixes every parameter that must agree
// between the generator and the firmware consuming its output.
type Profile struct {
	Iterations       int           `yaml:"iterations"`
	TokenIterations  int           `yaml:"token_iterations"`
	HashConstruction string        `yaml:"hash_construction"`
	Curve            string        `yaml:"curve"`
	Guards           header.Guards `yaml:"guards"`
	Artifacts        Artifacts     `yaml:"artifacts"`
}

// Artifacts names the inputs and outputs of each generator run.
type Artifacts struct {
	RootBundle      string `yaml:"root_bundle"`
	APParams        string `yaml:"ap_params"`
	APHeader        string `yaml:"ap_header"`
	ComponentParams string `yaml:"component_params"`
	ComponentHeader string `yaml:"component_header"`
	EscrowPrefix    string `yaml:"escrow_prefix"`
}

// DefaultProfile returns the production profile.
func DefaultProfile() *Profile {
	return &Profile{
		Iterations:       DefaultIterations,
		TokenIterations:  1,
		HashConstruction: string(cryptoutils.RepeatedUpdate),
		Curve:            string(cryptoutils.CurveSecp256k1),
		Guards:           header.DefaultGuards(),
		Artifacts: Artifacts{
			RootBundle:      "deployment/global_secrets_secure.h",
			APParams:        "application_processor/inc/ectf_params.h",
			APHeader:        "application_processor/inc/ectf_params_secure.h",
			ComponentParams: "component/inc/ectf_params.h",
			ComponentHeader: "component/inc/ectf_params_secure.h",
			EscrowPrefix:    "escrow",
		},
	}
}

// FastProfile returns the production profile with a reduced PIN iteration count.
func FastProfile() *Profile {
	p := DefaultProfile()
	p.Iterations = FastIterations
	return p
}

// LoadProfile reads a YAML profile. Fields absent from the file keep their
// DefaultProfile values; unknown fields are rejected.
func LoadProfile(path string) (*Profile, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("%w: failed to read profile: %v", interfaces.ErrIOFailure, err)
	}
	return ParseProfile(data)
}

// ParseProfile decodes a YAML profile over the defaults and validates it.
func ParseProfile(data []byte) (*Profile, error) {
	profile := DefaultProfile()

	decoder := yaml.NewDecoder(bytes.NewReader(data))
	decoder.KnownFields(true)
	if err := decoder.Decode(profile); err != nil && !errors.Is(err, io.EOF) {
		return nil, fmt.Errorf("%w: failed to parse profile: %v", interfaces.ErrInvalidParameter, err)
	}

	if err := profile.Validate(); err != nil {
		return nil, err
	}
	return profile, nil
}

// Validate checks the profile for values the firmware cannot consume.
func (p *Profile) Validate() error {
	if p.Iterations < 2 {
		return fmt.Errorf("%w: iterations must be at least 2, got %d", interfaces.ErrInvalidParameter, p.Iterations)
	}
	if p.TokenIterations < 1 {
		return fmt.Errorf("%w: token_iterations must be at least 1, got %d", interfaces.ErrInvalidParameter, p.TokenIterations)
	}
	if _, err := cryptoutils.ParseHashConstruction(p.HashConstruction); err != nil {
		return err
	}
	if _, err := cryptoutils.ParseCurve(p.Curve); err != nil {
		return err
	}
	if err := p.Guards.Validate(); err != nil {
		return err
	}

	names := []struct {
		field string
		name  string
	}{
		{"root_bundle", p.Artifacts.RootBundle},
		{"ap_params", p.Artifacts.APParams},
		{"ap_header", p.Artifacts.APHeader},
		{"component_params", p.Artifacts.ComponentParams},
		{"component_header", p.Artifacts.ComponentHeader},
		{"escrow_prefix", p.Artifacts.EscrowPrefix},
	}
	for _, n := range names {
		if _, err := interfaces.NewArtifactName(n.name); err != nil {
			return fmt.Errorf("artifacts.%s: %w", n.field, err)
		}
	}
	return nil
}
