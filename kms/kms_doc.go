// Package kms generates and safeguards the deployment root of trust.
//
// # RootGenerator
//
// RootGenerator implements interfaces.RootSecretGenerator. A single call to
// Generate produces:
//
//   - One keypair per trust role: AP boot, Component boot, replacement
//     authority, AP attestation and Component attestation
//   - A 32-byte HMAC key shared by both device classes
//   - A 16-byte attestation key in unwrapped form and its 16-byte nonce
//
// Keypairs are generated on secp256k1 by default; WithCurve selects secp256r1.
// The random source defaults to crypto/rand and is never seeded by callers in
// production. WithRandomSource exists so tests can use a fixed-output source.
//
// Every call to Generate creates a new root of trust. Re-running the
// deployment generator is never a resumption of an earlier deployment.
//
// # Bundle Escrow
//
// The stored root bundle can be split into Shamir shares for offline backup:
//
//	shares, err := kms.SplitBundle(bundle, 5, 3)
//	// hand each encoded share to a different custodian
//
//	recovery := kms.NewBundleRecovery()
//	for _, share := range collected {
//	    done, err := recovery.SubmitShare(share)
//	    ...
//	}
//	bundle := recovery.Bundle()
//
// Shares are CBOR-encoded BundleShare records. Each carries the SHA-256
// digest of the full bundle, which is checked after reconstruction.
package kms
