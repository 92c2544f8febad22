package storage

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"fmt"
	"io"
	"log/slog"
	"os"
	"path/filepath"
	"strings"
	"time"

	apperrors "github.com/hmreg/catalog-reconciler/internal/pkg/errors"
)

const catalogsDir = "catalogs"

// LocalStorage keeps submitted catalog files on the local filesystem
type LocalStorage struct {
	basePath    string
	maxFileSize int64
	logger      *slog.Logger
}

// LocalStorageConfig for local storage
type LocalStorageConfig struct {
	BasePath    string // Base directory for catalog files (e.g., "/tmp/catalogs")
	MaxFileSize int64  // bytes, 0 = unlimited
}

// FileMetadata contains information about a stored catalog file
type FileMetadata struct {
	ID           string
	OriginalName string
	StoredPath   string
	Size         int64
	Hash         string
	ContentType  string
	CreatedAt    time.Time
}

// NewLocalStorage creates a new local storage instance
func NewLocalStorage(cfg *LocalStorageConfig, logger *slog.Logger) (*LocalStorage, error) {
	if logger == nil {
		logger = slog.Default()
	}
	if err := os.MkdirAll(filepath.Join(cfg.BasePath, catalogsDir), 0755); err != nil {
		return nil, fmt.Errorf("failed to create base directory: %w", err)
	}

	return &LocalStorage{
		basePath:    cfg.BasePath,
		maxFileSize: cfg.MaxFileSize,
		logger:      logger,
	}, nil
}

// Save stores a catalog file and returns its metadata, including the SHA-256
// hash used to detect resubmission of identical content
func (s *LocalStorage) Save(ctx context.Context, fileID string, filename string, reader io.Reader) (*FileMetadata, error) {
	fileDir := filepath.Join(s.basePath, catalogsDir, fileID)
	if err := os.MkdirAll(fileDir, 0755); err != nil {
		return nil, apperrors.InternalWrap(err, "failed to create file directory")
	}

	safeName := filepath.Base(filename)
	destPath := filepath.Join(fileDir, safeName)

	destFile, err := os.Create(destPath)
	if err != nil {
		return nil, apperrors.InternalWrap(err, "failed to create destination file")
	}
	defer destFile.Close()

	if s.maxFileSize > 0 {
		reader = io.LimitReader(reader, s.maxFileSize+1)
	}

	hash := sha256.New()
	size, err := io.Copy(io.MultiWriter(destFile, hash), reader)
	if err != nil {
		os.RemoveAll(fileDir)
		return nil, apperrors.InternalWrap(err, "failed to copy file")
	}
	if s.maxFileSize > 0 && size > s.maxFileSize {
		os.RemoveAll(fileDir)
		return nil, apperrors.FileTooLarge(s.maxFileSize / (1024 * 1024))
	}

	metadata := &FileMetadata{
		ID:           fileID,
		OriginalName: filename,
		StoredPath:   destPath,
		Size:         size,
		Hash:         hex.EncodeToString(hash.Sum(nil)),
		ContentType:  getContentType(filename),
		CreatedAt:    time.Now(),
	}

	s.logger.Info("catalog file stored",
		slog.String("file_id", fileID),
		slog.String("filename", filename),
		slog.Int64("size", size),
		slog.String("hash", metadata.Hash))

	return metadata, nil
}

// Open returns the content of a stored file. Paths outside the storage root are refused.
func (s *LocalStorage) Open(ctx context.Context, storedPath string) (io.ReadCloser, error) {
	root := filepath.Join(s.basePath, catalogsDir)
	rel, err := filepath.Rel(root, filepath.Clean(storedPath))
	if err != nil || rel == "." || strings.HasPrefix(rel, "..") {
		return nil, apperrors.BadRequest(fmt.Sprintf("path outside catalog storage: %s", storedPath))
	}

	file, err := os.Open(storedPath)
	if err != nil {
		if os.IsNotExist(err) {
			return nil, apperrors.NotFound("stored catalog file", storedPath)
		}
		return nil, apperrors.InternalWrap(err, "failed to open file")
	}
	return file, nil
}

// Delete removes every file stored for fileID
func (s *LocalStorage) Delete(ctx context.Context, fileID string) error {
	fileDir := filepath.Join(s.basePath, catalogsDir, fileID)
	if err := os.RemoveAll(fileDir); err != nil && !os.IsNotExist(err) {
		return fmt.Errorf("failed to delete file directory: %w", err)
	}

	s.logger.Info("catalog file deleted", slog.String("file_id", fileID))
	return nil
}

// CleanupOldFiles removes file directories older than the specified duration
func (s *LocalStorage) CleanupOldFiles(ctx context.Context, olderThan time.Duration) (int, error) {
	cutoffTime := time.Now().Add(-olderThan)
	dir := filepath.Join(s.basePath, catalogsDir)

	entries, err := os.ReadDir(dir)
	if err != nil {
		if os.IsNotExist(err) {
			return 0, nil
		}
		return 0, fmt.Errorf("failed to read storage directory: %w", err)
	}

	removed := 0
	for _, entry := range entries {
		if !entry.IsDir() {
			continue
		}

		dirPath := filepath.Join(dir, entry.Name())
		info, err := entry.Info()
		if err != nil {
			s.logger.Warn("failed to get file info",
				slog.String("path", dirPath),
				slog.Any("error", err))
			continue
		}

		if info.ModTime().Before(cutoffTime) {
			if err := os.RemoveAll(dirPath); err != nil {
				s.logger.Warn("failed to remove directory",
					slog.String("path", dirPath),
					slog.Any("error", err))
				continue
			}
			removed++
		}
	}

	s.logger.Info("cleanup completed",
		slog.Duration("older_than", olderThan),
		slog.Int("removed_count", removed))

	return removed, nil
}

// getContentType returns the content type based on file extension
func getContentType(filename string) string {
	switch strings.ToLower(filepath.Ext(filename)) {
	case ".xlsx", ".xlsm":
		return "application/vnd.openxmlformats-officedocument.spreadsheetml.sheet"
	case ".csv":
		return "text/csv"
	default:
		return "application/octet-stream"
	}
}
