package provisioner

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"log/slog"
	"slices"
	"strconv"
	"strings"

	"github.com/ruteri/device-secrets-provisioning/cryptoutils"
	"github.com/ruteri/device-secrets-provisioning/header"
	"github.com/ruteri/device-secrets-provisioning/interfaces"
)

// ErrVerificationFailed is returned when a stored artifact does not match
// what its inputs derive.
var ErrVerificationFailed = errors.New("verification failed")

// Verify re-reads the stored output of class and checks it against its
// inputs. Nothing is written.
func (p *Provisioner) Verify(ctx context.Context, class interfaces.DeviceClass) error {
	var err error
	switch class {
	case interfaces.DeploymentClass:
		err = p.verifyDeployment(ctx)
	case interfaces.APClass:
		err = p.verifyAP(ctx)
	case interfaces.ComponentClass:
		err = p.verifyComponent(ctx)
	default:
		return fmt.Errorf("%w: unknown device class %d", interfaces.ErrInvalidParameter, class)
	}
	if err != nil {
		return err
	}

	p.log.Info("Verified provisioning output", slog.String("class", class.String()))
	return nil
}

// verifyDeployment checks the root bundle: every public point matches its
// private scalar, and every constant sits under the guard of its role.
func (p *Provisioner) verifyDeployment(ctx context.Context) error {
	bundleData, err := p.storage.Fetch(ctx, p.artifacts.rootBundle)
	if err != nil {
		return fmt.Errorf("failed to fetch root bundle %s: %w", p.artifacts.rootBundle, err)
	}
	if _, _, err := parseRootAttestation(bundleData); err != nil {
		return err
	}
	constants, err := p.decodeHeader(p.artifacts.rootBundle, bundleData)
	if err != nil {
		return err
	}

	curveRecord, ok := header.Find(constants, ConstRootCurve)
	if !ok {
		return fmt.Errorf("%w: %s", interfaces.ErrMissingRootSecret, ConstRootCurve)
	}
	curve, err := cryptoutils.ParseCurve(curveRecord.Value)
	if err != nil {
		return err
	}

	if _, err := requireBytes(constants, ConstHMACKey, interfaces.RoleAny, interfaces.HMACKeySize); err != nil {
		return err
	}
	if _, err := requireBytes(constants, ConstAttestUnwrapNonce, interfaces.RoleAP, interfaces.NonceSize); err != nil {
		return err
	}

	for _, k := range rootKeypairs(&interfaces.SecretBundle{}) {
		priv, err := requireBytes(constants, k.priv, k.role, interfaces.PrivateKeySize)
		if err != nil {
			return err
		}
		pub, err := requireBytes(constants, k.pub, otherRole(k.role), interfaces.PublicKeySize)
		if err != nil {
			return err
		}
		derived, err := cryptoutils.PublicFromPrivate(curve, priv)
		if err != nil {
			return fmt.Errorf("%w: %s: %v", ErrVerificationFailed, k.priv, err)
		}
		if !bytes.Equal(derived, pub) {
			return fmt.Errorf("%w: %s does not match %s", ErrVerificationFailed, k.pub, k.priv)
		}
	}

	for _, c := range constants {
		if strings.HasSuffix(c.Name, "_PRIV") && c.Role == interfaces.RoleAny {
			return fmt.Errorf("%w: private key %s is not role guarded", ErrVerificationFailed, c.Name)
		}
	}
	return nil
}

// verifyAP recomputes the verifiers from the AP parameters and checks that the
// wrapped attestation key unwraps to the root attestation key.
func (p *Provisioner) verifyAP(ctx context.Context) error {
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
	constants, err := p.fetchHeader(ctx, p.artifacts.apHeader)
	if err != nil {
		return err
	}

	iterations, err := requireScalar(constants, ConstIterations)
	if err != nil {
		return err
	}
	if int(iterations) != p.engine.iterations {
		return fmt.Errorf("%w: header uses %d iterations, profile %d", ErrVerificationFailed, iterations, p.engine.iterations)
	}

	pinHash, err := cryptoutils.HashPin(ap.PIN, p.engine.iterations, p.engine.construction)
	if err != nil {
		return err
	}
	if err := expectBytes(constants, ConstAttestHash, pinHash); err != nil {
		return err
	}
	tokenHash, err := cryptoutils.HashToken(ap.Token, p.engine.tokenIterations, p.engine.construction)
	if err != nil {
		return err
	}
	if err := expectBytes(constants, ConstReplacementHash, tokenHash); err != nil {
		return err
	}

	nonce, err := requireBytes(constants, ConstAttestWrapperNonce, interfaces.RoleAny, interfaces.NonceSize)
	if err != nil {
		return err
	}
	wrapped, err := requireBytes(constants, ConstAttestKeyWrapped, interfaces.RoleAny, interfaces.SymmetricKeySize)
	if err != nil {
		return err
	}
	wrapKey, err := cryptoutils.DeriveWrapKey(ap.PIN, p.engine.iterations, p.engine.construction)
	if err != nil {
		return err
	}
	unwrapped, err := cryptoutils.UnwrapKey(wrapped, nonce, wrapKey)
	if err != nil {
		return err
	}
	if !bytes.Equal(unwrapped, attestKey) {
		return fmt.Errorf("%w: %s does not unwrap to the root attestation key", ErrVerificationFailed, ConstAttestKeyWrapped)
	}

	ids, ok := header.Find(constants, ConstComponentIDs)
	if !ok || ids.Kind != header.KindWords {
		return fmt.Errorf("%w: missing %s", ErrVerificationFailed, ConstComponentIDs)
	}
	if !slices.Equal(ids.Words, ap.ComponentIDs) {
		return fmt.Errorf("%w: %s differs from the AP parameters", ErrVerificationFailed, ConstComponentIDs)
	}
	count, err := requireScalar(constants, ConstComponentCount)
	if err != nil {
		return err
	}
	if int(count) != len(ap.ComponentIDs) {
		return fmt.Errorf("%w: %s is %d, expected %d", ErrVerificationFailed, ConstComponentCount, count, len(ap.ComponentIDs))
	}
	return expectString(constants, ConstAPBootMessage, ap.BootMessage)
}

// verifyComponent decrypts the attestation fields in canonical order and
// compares them with the Component parameters.
func (p *Provisioner) verifyComponent(ctx context.Context) error {
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
	constants, err := p.fetchHeader(ctx, p.artifacts.componentHeader)
	if err != nil {
		return err
	}

	var encrypted [3][]byte
	for i, name := range []string{ConstAttestLocationEnc, ConstAttestDateEnc, ConstAttestCustomerEnc} {
		if encrypted[i], err = requireBytes(constants, name, interfaces.RoleAny, interfaces.AttestFieldSize); err != nil {
			return err
		}
	}
	plain, err := cryptoutils.DecryptAttestationFields(encrypted[0], encrypted[1], encrypted[2], attestNonce, attestKey)
	if err != nil {
		return err
	}
	for i, field := range []string{component.Location, component.Date, component.Customer} {
		padded, err := cryptoutils.PadField(field)
		if err != nil {
			return err
		}
		if !bytes.Equal(plain[i], padded) {
			return fmt.Errorf("%w: attestation field %d does not decrypt to its parameter", ErrVerificationFailed, i)
		}
	}

	if err := expectBytes(constants, ConstAttestKey, attestKey); err != nil {
		return err
	}
	if err := expectBytes(constants, ConstAttestNonce, attestNonce); err != nil {
		return err
	}
	bootMsg, err := cryptoutils.PadField(component.BootMessage)
	if err != nil {
		return err
	}
	if err := expectBytes(constants, ConstComponentBootMsg, bootMsg); err != nil {
		return err
	}

	id, err := requireScalar(constants, ConstComponentID)
	if err != nil {
		return err
	}
	if uint32(id) != component.ComponentID {
		return fmt.Errorf("%w: %s is 0x%08x, expected 0x%08x", ErrVerificationFailed, ConstComponentID, id, component.ComponentID)
	}
	return nil
}

func (p *Provisioner) fetchHeader(ctx context.Context, name interfaces.ArtifactName) ([]header.Constant, error) {
	data, err := p.storage.Fetch(ctx, name)
	if err != nil {
		return nil, fmt.Errorf("failed to fetch %s: %w", name, err)
	}
	return p.decodeHeader(name, data)
}

func (p *Provisioner) decodeHeader(name interfaces.ArtifactName, data []byte) ([]header.Constant, error) {
	constants, err := header.Decode(data, p.profile.Guards)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", name, err)
	}
	return constants, nil
}

func requireBytes(constants []header.Constant, name string, role interfaces.Role, size int) ([]byte, error) {
	c, ok := header.Find(constants, name)
	if !ok || c.Kind != header.KindBytes {
		return nil, fmt.Errorf("%w: missing %s", ErrVerificationFailed, name)
	}
	if c.Role != role {
		return nil, fmt.Errorf("%w: %s is visible to role %s, expected %s", ErrVerificationFailed, name, c.Role, role)
	}
	if err := interfaces.CheckLength(name, c.Bytes, size); err != nil {
		return nil, err
	}
	return c.Bytes, nil
}

func expectBytes(constants []header.Constant, name string, expected []byte) error {
	value, err := requireBytes(constants, name, interfaces.RoleAny, len(expected))
	if err != nil {
		return err
	}
	if !bytes.Equal(value, expected) {
		return fmt.Errorf("%w: %s does not match its inputs", ErrVerificationFailed, name)
	}
	return nil
}

func expectString(constants []header.Constant, name, expected string) error {
	c, ok := header.Find(constants, name)
	if !ok || c.Kind != header.KindString || c.Role != interfaces.RoleAny {
		return fmt.Errorf("%w: missing %s", ErrVerificationFailed, name)
	}
	if c.Value != expected {
		return fmt.Errorf("%w: %s does not match its inputs", ErrVerificationFailed, name)
	}
	return nil
}

func requireScalar(constants []header.Constant, name string) (uint64, error) {
	c, ok := header.Find(constants, name)
	if !ok || c.Kind != header.KindScalar {
		return 0, fmt.Errorf("%w: missing %s", ErrVerificationFailed, name)
	}
	return strconv.ParseUint(c.Value, 0, 32)
}
