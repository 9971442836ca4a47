// Package storage archives stamped images to a local directory or an
// S3 compatible bucket.
package storage

import (
	"context"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/menta2k/geostamp/internal/utils"
)

// Backends accepted by New
const (
	BackendNone = "none"
	BackendFile = "file"
	BackendS3   = "s3"
)

// ErrEmptyName is returned when an object is stored without a name
var ErrEmptyName = errors.New("object name is empty")

// Sink stores encoded images and reports where each one went
type Sink interface {
	Store(ctx context.Context, name string, data []byte, contentType string) (string, error)
}

// Config selects and configures a sink
type Config struct {
	Backend string
	Dir     string
	S3      S3Config
}

// New builds the sink named by cfg.Backend. BackendNone yields a nil Sink.
func New(ctx context.Context, cfg Config) (Sink, error) {
	switch cfg.Backend {
	case BackendNone, "":
		return nil, nil
	case BackendFile:
		return NewFileSink(cfg.Dir)
	case BackendS3:
		return NewS3Sink(ctx, cfg.S3)
	default:
		return nil, fmt.Errorf("unknown storage backend %q", cfg.Backend)
	}
}

// ObjectName builds a unique, sortable name for an archived image
func ObjectName(now time.Time, suffix, ext string) string {
	return fmt.Sprintf("%s%s.%s", now.UTC().Format("20060102T150405.000000000Z"), suffix, ext)
}

// FileSink writes images into a directory
type FileSink struct {
	dir string
}

// NewFileSink creates dir if needed and returns a sink writing into it
func NewFileSink(dir string) (*FileSink, error) {
	if dir == "" {
		return nil, fmt.Errorf("storage directory is required")
	}
	if err := utils.EnsureDir(dir); err != nil {
		return nil, fmt.Errorf("failed to create storage directory: %w", err)
	}
	return &FileSink{dir: dir}, nil
}

// Store writes data to dir/name and returns the file path
func (s *FileSink) Store(ctx context.Context, name string, data []byte, contentType string) (string, error) {
	if err := ctx.Err(); err != nil {
		return "", err
	}
	name = utils.SanitizeFilename(name)
	if name == "" {
		return "", ErrEmptyName
	}

	path := filepath.Join(s.dir, name)
	if err := os.WriteFile(path, data, 0644); err != nil {
		return "", fmt.Errorf("failed to write %s: %w", path, err)
	}
	return path, nil
}
