// Package blob is the entry point for artifact storage. Callers depend on
// blob.Store and obtain an implementation through Open or the constructors
// below; the backends live under internal/infra/blob.
package blob

import (
	"context"
	"fmt"
	"os"

	"hydrocore/internal/blob/core"
	"hydrocore/internal/infra/blob/fs"
	"hydrocore/internal/infra/blob/memory"
	"hydrocore/internal/infra/blob/s3"
)

type (
	Driver           = core.Driver
	PutOptions       = core.PutOptions
	SignedURLOptions = core.SignedURLOptions
	Info             = core.Info
	Store            = core.Store
	S3Config         = s3.Config
)

const (
	DriverFilesystem = core.DriverFilesystem
	DriverS3         = core.DriverS3
	DriverMemory     = core.DriverMemory
)

var (
	ErrUnsupported = core.ErrUnsupported
	ErrNotFound    = core.ErrNotFound
	ErrExists      = core.ErrExists
)

// Environment variables read by Open. The S3 backend additionally reads
// HYDROCORE_BLOB_S3_BUCKET, _REGION, _ENDPOINT, _PATH_STYLE and _PREFIX.
const (
	EnvDriver = "HYDROCORE_BLOB_DRIVER"
	EnvFSRoot = "HYDROCORE_BLOB_FS_ROOT"
)

// Open selects a backend from the environment; the filesystem is the default.
func Open(ctx context.Context) (Store, error) {
	driver := Driver(os.Getenv(EnvDriver))
	if driver == "" {
		driver = DriverFilesystem
	}
	switch driver {
	case DriverFilesystem:
		return NewFilesystem(os.Getenv(EnvFSRoot))
	case DriverMemory:
		return NewMemory(), nil
	case DriverS3:
		cfg, err := s3.ConfigFromEnv()
		if err != nil {
			return nil, err
		}
		return NewS3(ctx, cfg)
	default:
		return nil, fmt.Errorf("unknown blob driver %q", driver)
	}
}

// NewFilesystem stores artifacts under root.
func NewFilesystem(root string) (Store, error) {
	s, err := fs.New(root)
	if err != nil {
		return nil, err
	}
	return s, nil
}

// NewMemory keeps artifacts in memory.
func NewMemory() Store { return memory.New() }

// NewS3 stores artifacts in an S3-compatible bucket.
func NewS3(ctx context.Context, cfg S3Config) (Store, error) {
	s, err := s3.New(ctx, cfg)
	if err != nil {
		return nil, err
	}
	return s, nil
}
