// Package storage persists uploaded files on local disk, SharePoint or Azure Blob.
package storage

import (
	"context"
	"fmt"
	"io"
	"path"
	"regexp"
	"strings"

	"github.com/google/uuid"
	"github.com/voltworks/portal/pkg/config"
)

const (
	DriverLocal      = "local"
	DriverSharePoint = "sharepoint"
	DriverAzure      = "azure"
)

// Storage stores opaque objects. Put returns the key to use for later Open/Delete calls,
// which may differ from the requested key (SharePoint returns its own item id).
type Storage interface {
	Driver() string
	Put(ctx context.Context, key string, r io.Reader, size int64, contentType string) (string, error)
	Open(ctx context.Context, key string) (io.ReadCloser, error)
	Delete(ctx context.Context, key string) error
}

var unsafeName = regexp.MustCompile(`[^A-Za-z0-9._-]+`)

// NewKey builds a collision-free key under prefix that keeps a readable file name.
func NewKey(prefix, filename string) string {
	name := unsafeName.ReplaceAllString(path.Base(strings.ReplaceAll(filename, "\\", "/")), "_")
	name = strings.Trim(name, "._")
	if name == "" {
		name = "file"
	}
	return path.Join(prefix, uuid.NewString()+"-"+name)
}

// New builds the storage selected by STORAGE_DRIVER.
func New(ctx context.Context, cfg *config.Config) (Storage, error) {
	switch cfg.StorageDriver {
	case DriverLocal:
		return NewLocal(cfg.UploadDir)
	case DriverSharePoint:
		return NewSharePoint(ctx, cfg)
	case DriverAzure:
		return NewAzure(ctx, cfg.AzureStorageConnStr, cfg.AzureStorageContainer)
	default:
		return nil, fmt.Errorf("unsupported storage driver %q", cfg.StorageDriver)
	}
}
