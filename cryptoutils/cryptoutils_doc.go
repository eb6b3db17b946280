// Package cryptoutils implements the derivation primitives of the provisioning
// pipeline: iterated verifier digests, key wrapping and attestation field
// encryption, plus raw-encoded keypair generation.
//
// # Verifier Digests
//
// HashPin and HashToken encode a numeric secret at a fixed big-endian width
// (6 bytes for the PIN, 16 for the token) and run it through SHA-256 under a
// named HashConstruction:
//
//   - RepeatedUpdate: the encoded secret is written into one hash state once
//     per iteration and finalized once. The firmware recomputes it this way.
//   - ChainedDigest: each iteration hashes the previous digest.
//
// The iteration count is a brute-force cost factor (25000 in production
// profiles, 1000 in fast ones).
//
// # Key Wrapping
//
// DeriveWrapKey takes the first 16 bytes of the PIN digest at iterations-1.
// WrapKey and UnwrapKey apply AES-128-CTR with that key and a 16-byte nonce to
// the deployment attestation key.
//
// # Attestation Fields
//
// EncryptAttestationFields null-pads location, date and customer to 64 bytes
// each and encrypts them in that order under one continuous CTR keystream:
//
//	keystream:  |---- location ----|----- date -----|--- customer ---|
//	offset:     0                  64               128              192
//
// # Keypairs
//
// GenerateKeypair supports secp256k1 (go-ethereum) and secp256r1 (crypto/ecdh).
// Keys are encoded as the 32-byte private scalar and the 64-byte public point
// without the uncompressed-point prefix.
package cryptoutils
