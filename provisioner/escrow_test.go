package provisioner

import (
	"context"
	"testing"

	"github.com/ruteri/device-secrets-provisioning/interfaces"
	"github.com/ruteri/device-secrets-provisioning/kms"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestEscrow_SplitAndRecover(t *testing.T) {
	backend := seededBackend()
	p := newTestProvisioner(t, backend)
	ctx := context.Background()

	require.NoError(t, p.RunDeployment(ctx))
	original := backend.data[p.artifacts.rootBundle]

	names, err := p.SplitRootBundle(ctx, 5, 3)
	require.NoError(t, err)
	require.Len(t, names, 5)
	assert.Equal(t, interfaces.ArtifactName("escrow/share-1.cbor"), names[0])
	assert.Equal(t, interfaces.ArtifactName("escrow/share-5.cbor"), names[4])

	delete(backend.data, p.artifacts.rootBundle)
	assert.ErrorIs(t, p.RunAP(ctx), interfaces.ErrContentNotFound)

	require.NoError(t, p.RecoverRootBundle(ctx, []interfaces.ArtifactName{names[4], names[1], names[2]}))
	assert.Equal(t, original, backend.data[p.artifacts.rootBundle])

	require.NoError(t, p.RunAP(ctx))
	assert.NoError(t, p.Verify(ctx, interfaces.DeploymentClass))
	assert.NoError(t, p.Verify(ctx, interfaces.APClass))
}

func TestEscrow_RecoverBelowThreshold(t *testing.T) {
	backend := seededBackend()
	p := newTestProvisioner(t, backend)
	ctx := context.Background()

	require.NoError(t, p.RunDeployment(ctx))
	names, err := p.SplitRootBundle(ctx, 5, 3)
	require.NoError(t, err)
	delete(backend.data, p.artifacts.rootBundle)

	err = p.RecoverRootBundle(ctx, names[:2])
	assert.ErrorIs(t, err, kms.ErrShareMismatch)
	_, ok := backend.data[p.artifacts.rootBundle]
	assert.False(t, ok)

	err = p.RecoverRootBundle(ctx, []interfaces.ArtifactName{"escrow/share-9.cbor"})
	assert.ErrorIs(t, err, interfaces.ErrContentNotFound)
}

func TestEscrow_SplitErrors(t *testing.T) {
	p := newTestProvisioner(t, seededBackend())
	ctx := context.Background()

	_, err := p.SplitRootBundle(ctx, 5, 3)
	assert.ErrorIs(t, err, interfaces.ErrContentNotFound)

	require.NoError(t, p.RunDeployment(ctx))
	_, err = p.SplitRootBundle(ctx, 2, 3)
	assert.Error(t, err)
}
