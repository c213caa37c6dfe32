package services

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/google/uuid"
)

var ErrInvalidImageName = errors.New("invalid image filename")

// ImageStorageService keeps the original capture of each recorded scan on disk
type ImageStorageService struct {
	storageDir string
}

// NewImageStorageService creates the storage directory if needed
func NewImageStorageService(storageDir string) (*ImageStorageService, error) {
	if storageDir == "" {
		storageDir = "./data/scan_images"
	}
	if err := os.MkdirAll(storageDir, 0755); err != nil {
		return nil, fmt.Errorf("creating scan image directory: %w", err)
	}
	return &ImageStorageService{storageDir: storageDir}, nil
}

// SaveImage writes image data under a random name with an extension matching its format
func (s *ImageStorageService) SaveImage(imageData []byte) (string, error) {
	if len(imageData) == 0 {
		return "", fmt.Errorf("empty image data")
	}

	filename := uuid.New().String() + ImageExtension(imageData)
	if err := os.WriteFile(filepath.Join(s.storageDir, filename), imageData, 0644); err != nil {
		return "", fmt.Errorf("failed to save image: %w", err)
	}
	return filename, nil
}

// GetImagePath returns the full path to a stored image. Names that could escape the
// storage directory are rejected.
func (s *ImageStorageService) GetImagePath(filename string) (string, error) {
	if filename == "" || filename != filepath.Base(filename) || strings.HasPrefix(filename, ".") {
		return "", ErrInvalidImageName
	}
	return filepath.Join(s.storageDir, filename), nil
}

// DeleteImage removes a stored image. Missing files are not an error.
func (s *ImageStorageService) DeleteImage(filename string) error {
	if filename == "" {
		return nil
	}
	path, err := s.GetImagePath(filename)
	if err != nil {
		return err
	}
	if err := os.Remove(path); err != nil && !os.IsNotExist(err) {
		return fmt.Errorf("failed to delete image: %w", err)
	}
	return nil
}

// GetStorageDir returns the storage directory path
func (s *ImageStorageService) GetStorageDir() string {
	return s.storageDir
}
