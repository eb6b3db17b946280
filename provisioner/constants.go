package provisioner

import (
	"encoding/hex"

	"github.com/ruteri/device-secrets-provisioning/header"
	"github.com/ruteri/device-secrets-provisioning/interfaces"
	"github.com/ruteri/device-secrets-provisioning/params"
)

// Names of the emitted firmware constants.
const (
	ConstBootAPPriv         = "BOOT_A_PRIV"
	ConstBootAPPub          = "BOOT_A_PUB"
	ConstBootComponentPriv  = "BOOT_C_PRIV"
	ConstBootComponentPub   = "BOOT_C_PUB"
	ConstReplacementPriv    = "REPLACEMENT_PRIV"
	ConstReplacementPub     = "REPLACEMENT_PUB"
	ConstAttestAPPriv       = "ATTEST_A_PRIV"
	ConstAttestAPPub        = "ATTEST_A_PUB"
	ConstAttestCompPriv     = "ATTEST_C_PRIV"
	ConstAttestCompPub      = "ATTEST_C_PUB"
	ConstHMACKey            = "HMAC_KEY"
	ConstAttestUnwrapNonce  = "ATTEST_UNWRAPPED_NONCE"
	ConstRootCurve          = "ROOT_CURVE"
	ConstAttestHash         = "ATTEST_HASH"
	ConstReplacementHash    = "REPLACEMENT_HASH"
	ConstAPBootMessage      = "AP_BOOT_MSG"
	ConstComponentIDs       = "COMPONENT_IDS"
	ConstComponentCount     = "COMPONENT_CNT"
	ConstIterations         = "ITERATIONS"
	ConstAttestWrapperNonce = "ATTEST_WRAPPER_NONCE"
	ConstAttestKeyWrapped   = "ATTEST_KEY_WRAPPED"
	ConstAttestKey          = "ATTEST_KEY"
	ConstAttestNonce        = "ATTEST_NONCE"
	ConstAttestLocationEnc  = "ATTEST_LOC_ENC"
	ConstAttestDateEnc      = "ATTEST_DATE_ENC"
	ConstAttestCustomerEnc  = "ATTEST_CUST_ENC"
	ConstComponentBootMsg   = "COMPONENT_BOOT_MSG"
	ConstComponentID        = "COMPONENT_ID"
)

// rootKeypairs lists the bundle keypairs with the role that may see each
// private scalar. The public point is visible to the other role.
func rootKeypairs(bundle *interfaces.SecretBundle) []struct {
	priv, pub string
	role      interfaces.Role
	kp        interfaces.Keypair
} {
	return []struct {
		priv, pub string
		role      interfaces.Role
		kp        interfaces.Keypair
	}{
		{ConstBootAPPriv, ConstBootAPPub, interfaces.RoleAP, bundle.BootAP},
		{ConstBootComponentPriv, ConstBootComponentPub, interfaces.RoleComponent, bundle.BootComponent},
		{ConstReplacementPriv, ConstReplacementPub, interfaces.RoleComponent, bundle.Replacement},
		{ConstAttestAPPriv, ConstAttestAPPub, interfaces.RoleAP, bundle.AttestAP},
		{ConstAttestCompPriv, ConstAttestCompPub, interfaces.RoleComponent, bundle.AttestComponent},
	}
}

func otherRole(role interfaces.Role) interfaces.Role {
	if role == interfaces.RoleAP {
		return interfaces.RoleComponent
	}
	return interfaces.RoleAP
}

// emitRootBundle adds the root bundle constants. Each private scalar is
// guarded for its own role and its public point for the other role, so no
// build links a private key it does not own. The unwrapped attestation key
// and nonce are written only as records for the device generator runs.
func emitRootBundle(e *header.Emitter, bundle *interfaces.SecretBundle) {
	e.Bytes(ConstHMACKey, bundle.HMACKey)

	for _, k := range rootKeypairs(bundle) {
		e.Bytes(k.priv, k.kp.Private, header.Guarded(k.role))
	}
	for _, k := range rootKeypairs(bundle) {
		e.Bytes(k.pub, k.kp.Public, header.Guarded(otherRole(k.role)))
	}
	e.Bytes(ConstAttestUnwrapNonce, bundle.AttestNonce, header.Guarded(interfaces.RoleAP))

	e.Record(ConstRootCurve, bundle.Curve)
	e.Record(params.KeyAttestKeyRecord, hex.EncodeToString(bundle.AttestKey))
	e.Record(params.KeyAttestNonceRecord, hex.EncodeToString(bundle.AttestNonce))
}

func emitAPHeader(e *header.Emitter, ap *interfaces.APParameters, secrets *interfaces.APSecrets, iterations int) {
	e.Bytes(ConstAttestHash, secrets.PINHash)
	e.Bytes(ConstReplacementHash, secrets.TokenHash)
	e.String(ConstAPBootMessage, ap.BootMessage)
	e.Words(ConstComponentIDs, ap.ComponentIDs)
	e.Scalar(ConstComponentCount, uint32(len(ap.ComponentIDs)))
	e.Scalar(ConstIterations, uint32(iterations))
	e.Bytes(ConstAttestWrapperNonce, secrets.WrapNonce)
	e.Bytes(ConstAttestKeyWrapped, secrets.WrappedAttestKey)
}

func emitComponentHeader(e *header.Emitter, component *interfaces.ComponentParameters, secrets *interfaces.ComponentSecrets, attestKey, attestNonce []byte) {
	e.Bytes(ConstAttestKey, attestKey)
	e.Bytes(ConstAttestNonce, attestNonce)
	e.Bytes(ConstAttestLocationEnc, secrets.LocationEnc)
	e.Bytes(ConstAttestDateEnc, secrets.DateEnc)
	e.Bytes(ConstAttestCustomerEnc, secrets.CustomerEnc)
	e.Bytes(ConstComponentBootMsg, secrets.BootMessage)
	e.Scalar(ConstComponentID, component.ComponentID)
}
