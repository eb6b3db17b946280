package storage

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/ruteri/device-secrets-provisioning/interfaces"
)

// MultiStorageBackend implements interfaces.StorageBackend using multiple backends with fallback
type MultiStorageBackend struct {
	backends []interfaces.StorageBackend
	log      *slog.Logger
}

// NewMultiStorageBackend creates a new multi-storage backend with fallback
func NewMultiStorageBackend(backends []interfaces.StorageBackend, logger *slog.Logger) *MultiStorageBackend {
	if logger == nil {
		logger = slog.Default()
	}

	return &MultiStorageBackend{
		backends: backends,
		log:      logger,
	}
}

// Fetch returns the artifact from the first available backend that has it.
// ErrContentNotFound is returned only if every consulted backend reported it missing.
func (m *MultiStorageBackend) Fetch(ctx context.Context, name interfaces.ArtifactName) ([]byte, error) {
	start := time.Now()
	var errs []error
	allNotFound := true

	for _, backend := range m.backends {
		if !backend.Available(ctx) {
			m.log.Debug("Backend unavailable",
				slog.String("backend_name", backend.Name()),
				slog.String("artifact", name.String()))
			allNotFound = false
			continue
		}

		data, err := backend.Fetch(ctx, name)
		if err == nil {
			m.log.Debug("Fetched artifact",
				slog.String("backend_name", backend.Name()),
				slog.String("artifact", name.String()),
				slog.Duration("duration", time.Since(start)))
			return data, nil
		}

		if !errors.Is(err, interfaces.ErrContentNotFound) {
			allNotFound = false
		}
		errs = append(errs, fmt.Errorf("%s: %w", backend.Name(), err))
		m.log.Debug("Failed to fetch from backend",
			slog.String("backend_name", backend.Name()),
			slog.String("artifact", name.String()),
			"err", err)
	}

	if len(errs) > 0 && allNotFound {
		return nil, fmt.Errorf("%w: %s", interfaces.ErrContentNotFound, name)
	}
	if len(errs) == 0 {
		return nil, fmt.Errorf("%w: no backend available to fetch %s", interfaces.ErrBackendUnavailable, name)
	}

	m.log.Error("All backends failed to fetch artifact",
		slog.String("artifact", name.String()),
		slog.Int("failed_backends", len(errs)),
		slog.Duration("duration", time.Since(start)))

	return nil, fmt.Errorf("all backends failed to fetch %s: %w", name, errors.Join(errs...))
}

// Store saves the artifact to all available backends. It succeeds if at least one backend stored it.
func (m *MultiStorageBackend) Store(ctx context.Context, name interfaces.ArtifactName, data []byte) error {
	start := time.Now()
	var stored int
	var errs []error

	for _, backend := range m.backends {
		if !backend.Available(ctx) {
			m.log.Debug("Backend unavailable", slog.String("backend_name", backend.Name()))
			continue
		}

		if err := backend.Store(ctx, name, data); err != nil {
			errs = append(errs, fmt.Errorf("%s: %w", backend.Name(), err))
			m.log.Warn("Failed to store to backend",
				slog.String("backend_name", backend.Name()),
				slog.String("artifact", name.String()),
				"err", err)
			continue
		}
		stored++
	}

	if stored == 0 {
		m.log.Error("All backends failed to store artifact",
			slog.String("artifact", name.String()),
			slog.Int("failed_backends", len(errs)),
			slog.Duration("duration", time.Since(start)))
		if len(errs) == 0 {
			return fmt.Errorf("%w: no backend available to store %s", interfaces.ErrBackendUnavailable, name)
		}
		return fmt.Errorf("all backends failed to store %s: %w", name, errors.Join(errs...))
	}

	m.log.Info("Stored artifact",
		slog.String("artifact", name.String()),
		slog.Int("backends", stored),
		slog.Int("failed_backends", len(errs)),
		slog.Duration("duration", time.Since(start)))

	return nil
}

// Available checks if any backend is available
func (m *MultiStorageBackend) Available(ctx context.Context) bool {
	for _, backend := range m.backends {
		if backend.Available(ctx) {
			return true
		}
	}
	return false
}

// Name returns the name of this backend
func (m *MultiStorageBackend) Name() string {
	return "multi-storage"
}

// LocationURI returns the URI of this backend
func (m *MultiStorageBackend) LocationURI() string {
	var locations []string
	for _, backend := range m.backends {
		locations = append(locations, backend.LocationURI())
	}

	return "multi:[" + strings.Join(locations, ",") + "]"
}
