package storage

import (
	"context"
	"errors"
	"fmt"
	"io/fs"
	"log/slog"
	"os"
	"path/filepath"

	"github.com/ruteri/device-secrets-provisioning/interfaces"
)

// FileBackend implements a storage backend using the local file system.
// Artifact names map to paths below the base directory.
type FileBackend struct {
	baseDir     string
	log         *slog.Logger
	locationURI string
}

// NewFileBackend creates a new file storage backend rooted at baseDir,
// creating the directory if it doesn't exist.
func NewFileBackend(baseDir string, log *slog.Logger) (*FileBackend, error) {
	if err := os.MkdirAll(baseDir, 0755); err != nil {
		return nil, fmt.Errorf("%w: failed to create base directory: %v", interfaces.ErrIOFailure, err)
	}

	return &FileBackend{
		baseDir:     baseDir,
		log:         log,
		locationURI: fmt.Sprintf("file://%s", baseDir),
	}, nil
}

// Fetch reads an artifact. Returns ErrContentNotFound if the file doesn't exist.
func (b *FileBackend) Fetch(ctx context.Context, name interfaces.ArtifactName) ([]byte, error) {
	filePath, err := b.getFilePath(name)
	if err != nil {
		return nil, err
	}

	data, err := os.ReadFile(filePath)
	if errors.Is(err, fs.ErrNotExist) {
		return nil, fmt.Errorf("%w: %s", interfaces.ErrContentNotFound, name)
	}
	if err != nil {
		return nil, fmt.Errorf("%w: failed to read file: %v", interfaces.ErrIOFailure, err)
	}

	b.log.Debug("Fetched artifact from file",
		slog.String("path", filePath),
		slog.Int("size", len(data)))

	return data, nil
}

// Store replaces an artifact. Files are truncated and written owner-readable only.
func (b *FileBackend) Store(ctx context.Context, name interfaces.ArtifactName, data []byte) error {
	filePath, err := b.getFilePath(name)
	if err != nil {
		return err
	}

	if err := os.MkdirAll(filepath.Dir(filePath), 0755); err != nil {
		return fmt.Errorf("%w: failed to create directory: %v", interfaces.ErrIOFailure, err)
	}

	if err := os.WriteFile(filePath, data, 0600); err != nil {
		return fmt.Errorf("%w: failed to write file: %v", interfaces.ErrIOFailure, err)
	}

	b.log.Debug("Stored artifact in file",
		slog.String("path", filePath),
		slog.Int("size", len(data)))

	return nil
}

// Available checks if the file backend is accessible by verifying the base directory exists.
func (b *FileBackend) Available(ctx context.Context) bool {
	_, err := os.Stat(b.baseDir)
	if err != nil {
		b.log.Debug("File backend unavailable", "err", err)
		return false
	}
	return true
}

// Name returns a unique identifier for this storage backend.
func (b *FileBackend) Name() string {
	return fmt.Sprintf("file-%s", filepath.Base(b.baseDir))
}

// LocationURI returns the URI that identifies this storage backend.
func (b *FileBackend) LocationURI() string {
	return b.locationURI
}

// getFilePath maps an artifact name below the base directory. Names are
// revalidated since callers may construct ArtifactName directly.
func (b *FileBackend) getFilePath(name interfaces.ArtifactName) (string, error) {
	clean, err := interfaces.NewArtifactName(name.String())
	if err != nil {
		return "", err
	}
	return filepath.Join(b.baseDir, filepath.FromSlash(clean.String())), nil
}
