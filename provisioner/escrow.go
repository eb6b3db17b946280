package provisioner

import (
	"context"
	"fmt"
	"log/slog"
	"path"

	"github.com/ruteri/device-secrets-provisioning/interfaces"
	"github.com/ruteri/device-secrets-provisioning/kms"
)

// EscrowShareName returns the artifact name of the i-th escrow share (1-based).
func (p *Provisioner) EscrowShareName(i int) interfaces.ArtifactName {
	return interfaces.ArtifactName(path.Join(p.artifacts.escrowPrefix.String(), fmt.Sprintf("share-%d.cbor", i)))
}

// SplitRootBundle splits the stored root bundle into total Shamir shares, any
// threshold of which recover it, and stores each share as its own artifact.
// The shares are meant to be moved to separate custodians afterwards.
func (p *Provisioner) SplitRootBundle(ctx context.Context, total, threshold int) ([]interfaces.ArtifactName, error) {
	bundle, err := p.storage.Fetch(ctx, p.artifacts.rootBundle)
	if err != nil {
		return nil, fmt.Errorf("failed to fetch root bundle %s: %w", p.artifacts.rootBundle, err)
	}

	shares, err := kms.SplitBundle(bundle, total, threshold)
	if err != nil {
		return nil, err
	}

	names := make([]interfaces.ArtifactName, 0, len(shares))
	for i, share := range shares {
		name := p.EscrowShareName(i + 1)
		if err := p.storage.Store(ctx, name, share); err != nil {
			return nil, fmt.Errorf("failed to store %s: %w", name, err)
		}
		names = append(names, name)
	}

	p.log.Info("Split root bundle into escrow shares",
		slog.Int("total", total),
		slog.Int("threshold", threshold),
		slog.String("prefix", p.artifacts.escrowPrefix.String()))
	return names, nil
}

// RecoverRootBundle combines escrow shares and stores the recovered root bundle.
// Shares are submitted in order until the threshold is met; later ones are not read.
func (p *Provisioner) RecoverRootBundle(ctx context.Context, shares []interfaces.ArtifactName) error {
	recovery := kms.NewBundleRecovery()
	for _, name := range shares {
		data, err := p.storage.Fetch(ctx, name)
		if err != nil {
			return fmt.Errorf("failed to fetch %s: %w", name, err)
		}

		done, err := recovery.SubmitShare(data)
		if err != nil {
			return fmt.Errorf("share %s: %w", name, err)
		}
		if done {
			break
		}
	}

	bundle := recovery.Bundle()
	if bundle == nil {
		return fmt.Errorf("%w: not enough shares to reach the threshold", kms.ErrShareMismatch)
	}

	if err := p.storage.Store(ctx, p.artifacts.rootBundle, bundle); err != nil {
		return fmt.Errorf("failed to store %s: %w", p.artifacts.rootBundle, err)
	}

	p.log.Info("Recovered root bundle from escrow shares",
		slog.String("artifact", p.artifacts.rootBundle.String()))
	return nil
}
