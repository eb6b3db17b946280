// Package storage provides named artifact storage with pluggable backends.
//
// Every generator run reads its inputs (operator parameter files and the root
// bundle) and writes its single output through an interfaces.StorageBackend:
//
//   - File system storage, the default for local provisioning
//   - S3-compatible storage for shared build infrastructure
//   - Vault KV v2 storage for the root bundle and escrow shares
//
// # Storage URI Format
//
// Storage backends are specified using URI format:
//
//	[scheme]://[auth@]host[:port][/path][?params]
//
// Supported URI schemes:
//
//   - file:///var/lib/provisioning/ or a bare path such as ./build
//   - s3://bucket-name/prefix/?region=us-west-2&endpoint=minio.local:9000
//   - vault://vault.example.com:8200/secret/provisioning?tls=true
//
// # Artifact Names
//
// Artifacts are addressed by slash-separated names relative to the backend
// root, for example "deployment/global_secrets_secure.h". A Store replaces
// the whole artifact in one write; there are no partial updates.
//
// # Multi-Backend Storage
//
// MultiStorageBackend stores to every available backend and fetches from the
// first backend that has the artifact:
//
//	factory := storage.NewStorageBackendFactory(logger)
//	backend, err := factory.CreateMultiBackend(locations)
//
// # Error Handling
//
//   - ErrContentNotFound: the artifact does not exist
//   - ErrBackendUnavailable: the backend cannot be reached
//   - ErrInvalidLocationURI: the location URI is malformed or unsupported
//   - ErrIOFailure: a local read or write failed
package storage
