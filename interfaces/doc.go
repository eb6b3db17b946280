// Package interfaces defines the core types and contracts of the secrets
// provisioning pipeline, separating them from their implementations.
//
// # Secret Material
//
//   - SecretBundle: the deployment-wide root of trust produced once by the
//     root secret generator and read by every device generator run.
//   - Keypair: a role-scoped elliptic-curve keypair in the raw encoding the
//     firmware ECC library consumes.
//   - APSecrets / ComponentSecrets: per-device values derived from operator
//     parameters and the root bundle.
//
// # Device Classes and Roles
//
// DeviceClass selects which generator runs (deployment, AP or component).
// Role is the guard under which an emitted constant is visible to a firmware
// build. A constant guarded for one role is never compiled into the other.
//
// # Storage Interfaces
//
//   - StorageBackend: named artifact storage (file, S3, Vault) used for the
//     root bundle, operator parameter files and generated headers.
//   - StorageBackendFactory: creates storage backends from location URIs.
//
// # Errors
//
// All failures are fatal to a run. Callers match them with errors.Is against
// the sentinels declared in this package.
package interfaces
