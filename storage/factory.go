package storage

import (
	"crypto/tls"
	"fmt"
	"log/slog"
	"os"
	"strings"

	"github.com/ruteri/device-secrets-provisioning/interfaces"
)

var _ interfaces.StorageBackendFactory = (*StorageBackendFactory)(nil)

// StorageBackendFactory creates storage backends from location URIs and manages
// multi-backend configurations for redundant storage.
type StorageBackendFactory struct {
	log *slog.Logger
}

// NewStorageBackendFactory creates a new factory instance that can create storage backends.
func NewStorageBackendFactory(logger *slog.Logger) *StorageBackendFactory {
	return &StorageBackendFactory{
		log: logger,
	}
}

// StorageBackendFor creates a storage backend from a location URI.
//
// Supported schemes:
//   - file:// - Local filesystem storage
//   - s3:// - Amazon S3 or compatible object storage
//   - vault:// - HashiCorp Vault KV v2
//
// Returns an error if the URI is invalid or the scheme is unsupported.
func (sf *StorageBackendFactory) StorageBackendFor(location interfaces.StorageBackendLocation) (interfaces.StorageBackend, error) {
	switch {
	case location.IsFile():
		return sf.createFileBackend(location)
	case location.IsS3():
		return sf.createS3Backend(location)
	case location.IsVault():
		return sf.createVaultBackend(location)
	default:
		return nil, fmt.Errorf("%w: unsupported backend scheme: %s", interfaces.ErrInvalidLocationURI, location.Scheme)
	}
}

// CreateMultiBackend creates a multi-storage backend from a list of location URIs.
// Any URI that fails to produce a backend is an error. A single location is
// returned as is.
func (sf *StorageBackendFactory) CreateMultiBackend(locations []interfaces.StorageBackendLocation) (interfaces.StorageBackend, error) {
	if len(locations) == 0 {
		return nil, fmt.Errorf("%w: no storage locations configured", interfaces.ErrInvalidLocationURI)
	}

	backends := make([]interfaces.StorageBackend, 0, len(locations))
	for _, location := range locations {
		backend, err := sf.StorageBackendFor(location)
		if err != nil {
			return nil, fmt.Errorf("storage location %s: %w", location, err)
		}
		backends = append(backends, backend)
	}

	if len(backends) == 1 {
		return backends[0], nil
	}
	return NewMultiStorageBackend(backends, sf.log), nil
}

// createFileBackend creates a file system storage backend.
// URI format: file:///absolute/path/, file://./relative/path/ or a bare path.
func (sf *StorageBackendFactory) createFileBackend(location interfaces.StorageBackendLocation) (interfaces.StorageBackend, error) {
	sf.log.Debug("Creating file backend", slog.String("uri", location.String()))

	path := location.Path
	if location.Host != "" {
		path = location.Host + "/" + strings.TrimPrefix(path, "/")
	}

	if path == "" {
		return nil, fmt.Errorf("%w: empty path in file URI: %s", interfaces.ErrInvalidLocationURI, location)
	}

	return NewFileBackend(path, sf.log)
}

// createS3Backend creates an S3 or S3-compatible storage backend.
// URI format: s3://[ACCESS_KEY:SECRET_KEY@]bucket-name/prefix/?region=us-west-2&endpoint=custom.s3.com&path_style=true
func (sf *StorageBackendFactory) createS3Backend(location interfaces.StorageBackendLocation) (interfaces.StorageBackend, error) {
	sf.log.Debug("Creating S3 backend", slog.String("bucket", location.Host))

	opts := S3Options{
		Bucket:    location.Host,
		Prefix:    strings.TrimPrefix(location.Path, "/"),
		Region:    location.GetParam("region"),
		Endpoint:  location.GetParam("endpoint"),
		PathStyle: location.GetParamBool("path_style"),
	}

	if location.Auth != "" {
		accessKey, secretKey, _ := strings.Cut(location.Auth, ":")
		opts.AccessKey, opts.SecretKey = accessKey, secretKey
		sf.log.Debug("Using embedded S3 credentials")
	}

	return NewS3Backend(opts, sf.log)
}

// createVaultBackend creates a Vault KV v2 storage backend.
// URI format: vault://host:port/mount/path?tls=false&cert=client.pem&key=client.key
// The token is taken from VAULT_TOKEN.
func (sf *StorageBackendFactory) createVaultBackend(location interfaces.StorageBackendLocation) (interfaces.StorageBackend, error) {
	sf.log.Debug("Creating Vault backend", slog.String("host", location.Host))

	if location.Host == "" {
		return nil, fmt.Errorf("%w: missing Vault host", interfaces.ErrInvalidLocationURI)
	}

	scheme := "https"
	if v := location.GetParam("tls"); v == "false" || v == "0" {
		scheme = "http"
	}

	mountPath, dataPath, _ := strings.Cut(strings.Trim(location.Path, "/"), "/")
	opts := VaultOptions{
		Address:   fmt.Sprintf("%s://%s", scheme, location.Host),
		MountPath: mountPath,
		DataPath:  dataPath,
		Token:     os.Getenv("VAULT_TOKEN"),
	}

	if certFile := location.GetParam("cert"); certFile != "" {
		cert, err := tls.LoadX509KeyPair(certFile, location.GetParam("key"))
		if err != nil {
			return nil, fmt.Errorf("failed to load Vault client certificate: %w", err)
		}
		opts.ClientCert = &cert
	}

	return NewVaultBackend(opts, sf.log)
}
