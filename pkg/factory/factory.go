// Package factory maps backend type identifiers to their constructors.
package factory

import (
	"sort"
	"strings"
	"sync"

	"github.com/yuya-takeyama/site-sync/pkg/backend"
	"github.com/yuya-takeyama/site-sync/pkg/backend/azure"
	"github.com/yuya-takeyama/site-sync/pkg/backend/gcs"
	"github.com/yuya-takeyama/site-sync/pkg/backend/minio"
	"github.com/yuya-takeyama/site-sync/pkg/backend/s3compat"
	"github.com/yuya-takeyama/site-sync/pkg/syncerr"
)

// KeyType is the setting that selects the backend.
const KeyType = "sync_type"

// StorageCreator returns an unconfigured backend.
type StorageCreator func() backend.Backend

var (
	mu              sync.RWMutex
	storageRegistry = map[string]StorageCreator{
		"aws":        func() backend.Backend { return s3compat.New(s3compat.AWS) },
		"cloudflare": func() backend.Backend { return s3compat.New(s3compat.Cloudflare) },
		"aliyun":     func() backend.Backend { return s3compat.New(s3compat.Aliyun) },
		"baidu":      func() backend.Backend { return s3compat.New(s3compat.Baidu) },
		"qcloud":     func() backend.Backend { return s3compat.New(s3compat.QCloud) },
		"minio":      func() backend.Backend { return minio.New() },
		"gcs":        func() backend.Backend { return gcs.New() },
		"azure":      func() backend.Backend { return azure.New() },
	}
)

// RegisterStorage adds or replaces a backend type.
func RegisterStorage(backendType string, creator StorageCreator) {
	mu.Lock()
	defer mu.Unlock()
	storageRegistry[backendType] = creator
}

// NewStorage creates and configures the backend registered as backendType.
// Unknown types and invalid settings are returned as ConfigError.
func NewStorage(backendType string, settings backend.Settings) (backend.Backend, error) {
	mu.RLock()
	creator, exists := storageRegistry[strings.ToLower(strings.TrimSpace(backendType))]
	mu.RUnlock()
	if !exists {
		return nil, &syncerr.ConfigError{Key: KeyType, Err: unknown(backendType)}
	}

	b := creator()
	if err := b.Configure(settings); err != nil {
		return nil, err
	}
	return b, nil
}

// Types lists the registered identifiers in order.
func Types() []string {
	mu.RLock()
	defer mu.RUnlock()
	types := make([]string, 0, len(storageRegistry))
	for t := range storageRegistry {
		types = append(types, t)
	}
	sort.Strings(types)
	return types
}
