package provisioner

import (
	"context"
	"fmt"
	"io"
	"log/slog"

	"github.com/ruteri/device-secrets-provisioning/cryptoutils"
	"github.com/ruteri/device-secrets-provisioning/header"
	"github.com/ruteri/device-secrets-provisioning/interfaces"
	"github.com/ruteri/device-secrets-provisioning/kms"
	"github.com/ruteri/device-secrets-provisioning/params"
)

// Provisioner runs the generator of each device class against one storage
// backend. Every run fetches all of its inputs, derives and renders its output
// in memory, and stores it with a single write.
type Provisioner struct {
	storage   interfaces.StorageBackend
	profile   *Profile
	artifacts resolvedArtifacts
	generator interfaces.RootSecretGenerator
	engine    *Engine
	log       *slog.Logger
}

type resolvedArtifacts struct {
	rootBundle      interfaces.ArtifactName
	apParams        interfaces.ArtifactName
	apHeader        interfaces.ArtifactName
	componentParams interfaces.ArtifactName
	componentHeader interfaces.ArtifactName
	escrowPrefix    interfaces.ArtifactName
}

// NewProvisioner creates a provisioner for profile. The root generator uses
// the profile curve and crypto/rand.
func NewProvisioner(storage interfaces.StorageBackend, profile *Profile, log *slog.Logger) (*Provisioner, error) {
	if err := profile.Validate(); err != nil {
		return nil, err
	}

	curve, err := cryptoutils.ParseCurve(profile.Curve)
	if err != nil {
		return nil, err
	}
	engine, err := NewEngine(profile)
	if err != nil {
		return nil, err
	}

	// Names were checked by Validate.
	a := profile.Artifacts
	artifacts := resolvedArtifacts{}
	for _, n := range []struct {
		dst  *interfaces.ArtifactName
		name string
	}{
		{&artifacts.rootBundle, a.RootBundle},
		{&artifacts.apParams, a.APParams},
		{&artifacts.apHeader, a.APHeader},
		{&artifacts.componentParams, a.ComponentParams},
		{&artifacts.componentHeader, a.ComponentHeader},
		{&artifacts.escrowPrefix, a.EscrowPrefix},
	} {
		if *n.dst, err = interfaces.NewArtifactName(n.name); err != nil {
			return nil, err
		}
	}

	return &Provisioner{
		storage:   storage,
		profile:   profile,
		artifacts: artifacts,
		generator: kms.NewRootGenerator().WithCurve(curve),
		engine:    engine,
		log:       log,
	}, nil
}

// WithRandomSource creates a new Provisioner whose root generator and engine
// both read from r.
func (p *Provisioner) WithRandomSource(r io.Reader) *Provisioner {
	clone := *p
	clone.engine = p.engine.WithRandomSource(r)
	if g, ok := p.generator.(*kms.RootGenerator); ok {
		clone.generator = g.WithRandomSource(r)
	}
	return &clone
}

// WithGenerator creates a new Provisioner using generator for deployment runs.
func (p *Provisioner) WithGenerator(generator interfaces.RootSecretGenerator) *Provisioner {
	clone := *p
	clone.generator = generator
	return &clone
}

// Run executes the generator of class.
func (p *Provisioner) Run(ctx context.Context, class interfaces.DeviceClass) error {
	switch class {
	case interfaces.DeploymentClass:
		return p.RunDeployment(ctx)
	case interfaces.APClass:
		return p.RunAP(ctx)
	case interfaces.ComponentClass:
		return p.RunComponent(ctx)
	default:
		return fmt.Errorf("%w: unknown device class %d", interfaces.ErrInvalidParameter, class)
	}
}

// RunDeployment generates a new root of trust and stores the root bundle.
// Any previous bundle is replaced; device headers generated from it become stale.
func (p *Provisioner) RunDeployment(ctx context.Context) error {
	bundle, err := p.generator.Generate()
	if err != nil {
		return fmt.Errorf("failed to generate root bundle: %w", err)
	}

	e := header.NewEmitter(p.profile.Guards)
	emitRootBundle(e, bundle)

	if err := p.render(ctx, e, p.artifacts.rootBundle); err != nil {
		return err
	}

	p.log.Info("Generated root bundle",
		slog.String("artifact", p.artifacts.rootBundle.String()),
		slog.String("curve", bundle.Curve),
		slog.String("boot_ap_pub", interfaces.Fingerprint(bundle.BootAP.Public)),
		slog.String("boot_component_pub", interfaces.Fingerprint(bundle.BootComponent.Public)),
		slog.String("replacement_pub", interfaces.Fingerprint(bundle.Replacement.Public)))
	return nil
}

// RunAP generates the Application Processor header.
func (p *Provisioner) RunAP(ctx context.Context) error {
	paramsData, bundleData, err := p.fetchInputs(ctx, p.artifacts.apParams)
	if err != nil {
		return err
	}

	ap, err := p.parseAP(paramsData)
	if err != nil {
		return err
	}
	attestKey, _, err := parseRootAttestation(bundleData)
	if err != nil {
		return err
	}

	secrets, err := p.engine.DeriveAP(ap, attestKey)
	if err != nil {
		return err
	}

	e := header.NewEmitter(p.profile.Guards)
	emitAPHeader(e, ap, secrets, p.engine.Iterations())

	if err := p.render(ctx, e, p.artifacts.apHeader); err != nil {
		return err
	}

	p.log.Info("Generated AP header",
		slog.String("artifact", p.artifacts.apHeader.String()),
		slog.Int("components", len(ap.ComponentIDs)),
		slog.Int("iterations", p.engine.Iterations()),
		slog.String("attest_hash", interfaces.Fingerprint(secrets.PINHash)))
	return nil
}

// RunComponent generates the Component header.
func (p *Provisioner) RunComponent(ctx context.Context) error {
	paramsData, bundleData, err := p.fetchInputs(ctx, p.artifacts.componentParams)
	if err != nil {
		return err
	}

	component, err := p.parseComponent(paramsData)
	if err != nil {
		return err
	}
	attestKey, attestNonce, err := parseRootAttestation(bundleData)
	if err != nil {
		return err
	}

	secrets, err := p.engine.DeriveComponent(component, attestKey, attestNonce)
	if err != nil {
		return err
	}

	e := header.NewEmitter(p.profile.Guards)
	emitComponentHeader(e, component, secrets, attestKey, attestNonce)

	if err := p.render(ctx, e, p.artifacts.componentHeader); err != nil {
		return err
	}

	p.log.Info("Generated Component header",
		slog.String("artifact", p.artifacts.componentHeader.String()),
		slog.String("component_id", fmt.Sprintf("0x%08x", component.ComponentID)))
	return nil
}

// fetchInputs reads a device parameter file and the root bundle.
func (p *Provisioner) fetchInputs(ctx context.Context, paramsName interfaces.ArtifactName) (paramsData, bundleData []byte, err error) {
	if paramsData, err = p.storage.Fetch(ctx, paramsName); err != nil {
		return nil, nil, fmt.Errorf("failed to fetch %s: %w", paramsName, err)
	}
	if bundleData, err = p.storage.Fetch(ctx, p.artifacts.rootBundle); err != nil {
		return nil, nil, fmt.Errorf("failed to fetch root bundle %s: %w", p.artifacts.rootBundle, err)
	}
	return paramsData, bundleData, nil
}

func (p *Provisioner) parseAP(data []byte) (*interfaces.APParameters, error) {
	decls, err := params.ParseDeclarations(data)
	if err != nil {
		return nil, err
	}
	ap, err := params.ParseAPParameters(decls)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", p.artifacts.apParams, err)
	}
	return ap, nil
}

func (p *Provisioner) parseComponent(data []byte) (*interfaces.ComponentParameters, error) {
	decls, err := params.ParseDeclarations(data)
	if err != nil {
		return nil, err
	}
	component, err := params.ParseComponentParameters(decls)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", p.artifacts.componentParams, err)
	}
	return component, nil
}

func parseRootAttestation(data []byte) (key, nonce []byte, err error) {
	decls, err := params.ParseDeclarations(data)
	if err != nil {
		return nil, nil, err
	}
	return params.ParseRootAttestation(decls)
}

// render serializes e and stores the result in one write.
func (p *Provisioner) render(ctx context.Context, e *header.Emitter, name interfaces.ArtifactName) error {
	out, err := e.Render()
	if err != nil {
		return fmt.Errorf("failed to render %s: %w", name, err)
	}
	if err := p.storage.Store(ctx, name, out); err != nil {
		return fmt.Errorf("failed to store %s: %w", name, err)
	}
	return nil
}
