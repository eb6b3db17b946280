package storage

import (
	"context"
	"crypto/tls"
	"encoding/base64"
	"fmt"
	"log/slog"
	"net/http"
	"strings"
	"time"

	"github.com/hashicorp/vault/api"
	"github.com/ruteri/device-secrets-provisioning/interfaces"
)

// VaultBackend implements a storage backend using the HashiCorp Vault KV v2
// secrets engine. Each artifact is one secret holding the base64-encoded
// content, so binary artifacts such as escrow shares round-trip unchanged.
type VaultBackend struct {
	client      *api.Client
	mountPath   string
	dataPath    string
	log         *slog.Logger
	locationURI string
}

// VaultOptions configures a VaultBackend.
type VaultOptions struct {
	Address   string // Vault server address (e.g. https://vault.example.com:8200)
	MountPath string // KV v2 mount (e.g. "secret")
	DataPath  string // path within the mount (e.g. "provisioning")

	// Token authenticates requests. When empty, the client falls back to
	// VAULT_TOKEN from the environment.
	Token string

	// ClientCert enables TLS client certificate authentication.
	ClientCert *tls.Certificate
}

// NewVaultBackend creates a new Vault storage backend.
func NewVaultBackend(opts VaultOptions, log *slog.Logger) (*VaultBackend, error) {
	config := api.DefaultConfig()
	if opts.Address != "" {
		config.Address = opts.Address
	}

	if opts.ClientCert != nil {
		config.HttpClient = &http.Client{
			Transport: &http.Transport{
				TLSClientConfig: &tls.Config{
					Certificates: []tls.Certificate{*opts.ClientCert},
					MinVersion:   tls.VersionTLS12,
				},
			},
			Timeout: 30 * time.Second,
		}
	}

	client, err := api.NewClient(config)
	if err != nil {
		return nil, fmt.Errorf("failed to create Vault client: %w", err)
	}
	if opts.Token != "" {
		client.SetToken(opts.Token)
	}

	mountPath := strings.Trim(opts.MountPath, "/")
	if mountPath == "" {
		mountPath = "secret"
	}
	dataPath := strings.Trim(opts.DataPath, "/")

	return &VaultBackend{
		client:      client,
		mountPath:   mountPath,
		dataPath:    dataPath,
		log:         log,
		locationURI: fmt.Sprintf("vault://%s/%s/%s", strings.TrimPrefix(strings.TrimPrefix(config.Address, "https://"), "http://"), mountPath, dataPath),
	}, nil
}

// Fetch reads an artifact from its KV v2 secret.
func (b *VaultBackend) Fetch(ctx context.Context, name interfaces.ArtifactName) ([]byte, error) {
	start := time.Now()
	path := b.secretPath(name)

	secret, err := b.client.Logical().ReadWithContext(ctx, path)
	if err != nil {
		b.log.Error("Failed to read from Vault",
			slog.String("path", path),
			"err", err)
		return nil, fmt.Errorf("%w: %v", interfaces.ErrBackendUnavailable, err)
	}

	if secret == nil || secret.Data == nil || secret.Data["data"] == nil {
		b.log.Debug("Artifact not found in Vault", slog.String("path", path))
		return nil, fmt.Errorf("%w: %s", interfaces.ErrContentNotFound, name)
	}

	data, ok := secret.Data["data"].(map[string]interface{})
	if !ok {
		return nil, fmt.Errorf("invalid data format in Vault response for %s", path)
	}

	content, ok := data["content"].(string)
	if !ok {
		return nil, fmt.Errorf("content key not found in Vault data for %s", path)
	}

	decoded, err := base64.StdEncoding.DecodeString(content)
	if err != nil {
		return nil, fmt.Errorf("invalid content encoding in Vault data for %s: %w", path, err)
	}

	b.log.Debug("Fetched artifact from Vault",
		slog.String("path", path),
		slog.Duration("duration", time.Since(start)))

	return decoded, nil
}

// Store writes an artifact as a new version of its KV v2 secret.
func (b *VaultBackend) Store(ctx context.Context, name interfaces.ArtifactName, data []byte) error {
	start := time.Now()
	path := b.secretPath(name)

	secretData := map[string]interface{}{
		"data": map[string]interface{}{
			"content": base64.StdEncoding.EncodeToString(data),
		},
	}

	_, err := b.client.Logical().WriteWithContext(ctx, path, secretData)
	if err != nil {
		b.log.Error("Failed to write to Vault",
			slog.String("path", path),
			"err", err)
		return fmt.Errorf("%w: %v", interfaces.ErrBackendUnavailable, err)
	}

	b.log.Info("Stored artifact in Vault",
		slog.String("path", path),
		slog.Duration("duration", time.Since(start)))

	return nil
}

// Available checks that Vault is reachable, initialized and unsealed.
func (b *VaultBackend) Available(ctx context.Context) bool {
	healthCtx, cancel := context.WithTimeout(ctx, 5*time.Second)
	defer cancel()

	health, err := b.client.Sys().HealthWithContext(healthCtx)
	if err != nil {
		b.log.Debug("Vault health check failed", "err", err)
		return false
	}

	if !health.Initialized || health.Sealed {
		b.log.Debug("Vault is not available",
			slog.Bool("initialized", health.Initialized),
			slog.Bool("sealed", health.Sealed))
		return false
	}

	return true
}

// Name returns a unique identifier for this storage backend.
func (b *VaultBackend) Name() string {
	return fmt.Sprintf("vault-%s-%s", b.mountPath, b.dataPath)
}

// LocationURI returns the URI that identifies this storage backend.
func (b *VaultBackend) LocationURI() string {
	return b.locationURI
}

// secretPath returns the KV v2 data path of an artifact.
func (b *VaultBackend) secretPath(name interfaces.ArtifactName) string {
	if b.dataPath == "" {
		return fmt.Sprintf("%s/data/%s", b.mountPath, name)
	}
	return fmt.Sprintf("%s/data/%s/%s", b.mountPath, b.dataPath, name)
}
