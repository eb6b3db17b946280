package interfaces

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestParseDeviceClass(t *testing.T) {
	for _, class := range []DeviceClass{DeploymentClass, APClass, ComponentClass} {
		parsed, err := ParseDeviceClass(class.String())
		require.NoError(t, err)
		assert.Equal(t, class, parsed)
	}

	parsed, err := ParseDeviceClass(" Application_Processor ")
	require.NoError(t, err)
	assert.Equal(t, APClass, parsed)

	_, err = ParseDeviceClass("sensor")
	assert.ErrorIs(t, err, ErrInvalidParameter)
}

func TestNewArtifactName(t *testing.T) {
	tests := []struct {
		in      string
		want    ArtifactName
		wantErr bool
	}{
		{in: "deployment/global_secrets_secure.h", want: "deployment/global_secrets_secure.h"},
		{in: "./component//inc/ectf_params.h", want: "component/inc/ectf_params.h"},
		{in: `escrow\share-1.cbor`, want: "escrow/share-1.cbor"},
		{in: "", wantErr: true},
		{in: ".", wantErr: true},
		{in: "/etc/passwd", wantErr: true},
		{in: "../outside.h", wantErr: true},
		{in: "inc/../../outside.h", wantErr: true},
	}

	for _, tt := range tests {
		t.Run(tt.in, func(t *testing.T) {
			got, err := NewArtifactName(tt.in)
			if tt.wantErr {
				assert.ErrorIs(t, err, ErrInvalidParameter)
				return
			}
			require.NoError(t, err)
			assert.Equal(t, tt.want, got)
		})
	}
}

func TestNewStorageBackendLocation(t *testing.T) {
	loc, err := NewStorageBackendLocation("s3://key:secret@bucket/prefix?region=eu-west-1&path_style=true")
	require.NoError(t, err)
	assert.True(t, loc.IsS3())
	assert.Equal(t, "bucket", loc.Host)
	assert.Equal(t, "/prefix", loc.Path)
	assert.Equal(t, "key:secret", loc.Auth)
	assert.Equal(t, "eu-west-1", loc.GetParam("region"))
	assert.True(t, loc.GetParamBool("path_style"))

	loc, err = NewStorageBackendLocation("/var/lib/secrets")
	require.NoError(t, err)
	assert.True(t, loc.IsFile())
	assert.Equal(t, "/var/lib/secrets", loc.Path)

	_, err = NewStorageBackendLocation("ipfs://localhost:5001")
	assert.ErrorIs(t, err, ErrInvalidLocationURI)
}

func TestSecretBundleValidate(t *testing.T) {
	kp := Keypair{Private: make([]byte, PrivateKeySize), Public: make([]byte, PublicKeySize)}
	bundle := &SecretBundle{
		BootAP:          kp,
		BootComponent:   kp,
		Replacement:     kp,
		AttestAP:        kp,
		AttestComponent: kp,
		HMACKey:         make([]byte, HMACKeySize),
		AttestKey:       make([]byte, SymmetricKeySize),
		AttestNonce:     make([]byte, NonceSize),
	}
	require.NoError(t, bundle.Validate())

	bundle.AttestNonce = make([]byte, 12)
	assert.ErrorIs(t, bundle.Validate(), ErrInvalidKeyLength)

	bundle.AttestNonce = make([]byte, NonceSize)
	bundle.Replacement = Keypair{Private: make([]byte, 31), Public: make([]byte, PublicKeySize)}
	assert.ErrorIs(t, bundle.Validate(), ErrInvalidKeyLength)
}

func TestFingerprint(t *testing.T) {
	assert.Equal(t, "0x27faeeb1", Fingerprint([]byte{0x27, 0xfa, 0xee, 0xb1, 0xb2, 0x99}))
	assert.Equal(t, "0x0102", Fingerprint([]byte{1, 2}))
}
