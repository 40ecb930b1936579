package backend

import (
	"strings"

	"github.com/yuya-takeyama/site-sync/pkg/syncerr"
)

// Setting names as the operator sets them in the environment.
const (
	KeyRegion       = "sync_region"
	KeyBucket       = "sync_bucket"
	KeyAccessID     = "sync_access_id"
	KeyAccessSecret = "sync_access_secret"
	KeyEndpoint     = "sync_endpoint"
)

// Require returns a ConfigError naming the first empty setting among keys.
func (s Settings) Require(keys ...string) error {
	for _, key := range keys {
		if strings.TrimSpace(s.value(key)) == "" {
			return syncerr.Missing(key)
		}
	}
	return nil
}

func (s Settings) value(key string) string {
	switch key {
	case KeyRegion:
		return s.Region
	case KeyBucket:
		return s.Bucket
	case KeyAccessID:
		return s.AccessID
	case KeyAccessSecret:
		return s.AccessSecret
	case KeyEndpoint:
		return s.Endpoint
	}
	return ""
}

// HostWithSuffix appends suffix to host unless it already ends with it.
func HostWithSuffix(host, suffix string) string {
	if strings.HasSuffix(host, suffix) {
		return host
	}
	return host + suffix
}
