// Package storage stores generated artifacts (order receipts) on the local
// filesystem or an S3-compatible bucket.
package storage

import (
	"context"
	"errors"
	"fmt"
	"sync"

	"github.com/feastly/feastly/config"
	"github.com/feastly/feastly/pkg/logger"
)

// ErrNotExist is returned by Get when the object is missing.
var ErrNotExist = errors.New("storage: object does not exist")

// Disk is one storage backend.
type Disk interface {
	Put(ctx context.Context, path string, content []byte, contentType string) error
	Get(ctx context.Context, path string) ([]byte, error)
	Exists(ctx context.Context, path string) (bool, error)
	Delete(ctx context.Context, path string) error
	URL(path string) string
}

var (
	mu          sync.RWMutex
	disks       = map[string]Disk{}
	defaultDisk = "local"
)

// Connect boots the local disk and, when S3_BUCKET is set, the s3 disk.
func Connect(ctx context.Context) {
	local := NewLocal(config.StorageLocalRoot(), config.StorageURL())

	mu.Lock()
	defaultDisk = config.StorageDefault()
	disks["local"] = local
	mu.Unlock()

	if config.StorageS3Bucket() == "" {
		return
	}
	d, err := NewS3(ctx, S3Config{
		Bucket:   config.StorageS3Bucket(),
		Region:   config.StorageS3Region(),
		Key:      config.StorageS3Key(),
		Secret:   config.StorageS3Secret(),
		Endpoint: config.StorageS3Endpoint(),
		BaseURL:  config.StorageS3URL(),
	})
	if err != nil {
		logger.Warn("storage: s3 disk disabled", "error", err)
		return
	}
	Register("s3", d)
}

// Register plugs a disk in under name.
func Register(name string, d Disk) {
	mu.Lock()
	disks[name] = d
	mu.Unlock()
}

// SetDefault changes the disk returned by Default.
func SetDefault(name string) {
	mu.Lock()
	defaultDisk = name
	mu.Unlock()
}

// Use returns the named disk.
func Use(name string) (Disk, error) {
	mu.RLock()
	defer mu.RUnlock()
	d, ok := disks[name]
	if !ok {
		return nil, fmt.Errorf("storage: disk %q is not configured", name)
	}
	return d, nil
}

// Default returns the disk named by STORAGE_DISK.
func Default() (Disk, error) {
	mu.RLock()
	name := defaultDisk
	mu.RUnlock()
	return Use(name)
}
