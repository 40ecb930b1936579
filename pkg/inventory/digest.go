package inventory

import (
	"crypto/md5"
	"encoding/base64"
	"encoding/hex"
	"fmt"
	"io"
	"os"
	"strings"
)

const bufferSize = 64 * 1024

// SentinelDigest stands in for remote tags that are not a plain content MD5,
// such as multipart ETags. No local file hashes to it, so such objects are
// always re-uploaded.
const SentinelDigest = "AAAAAAAAAAAAAAAAAAAAAA=="

// FileDigest returns the base64 MD5 of the file at path.
func FileDigest(path string) (string, error) {
	file, err := os.Open(path)
	if err != nil {
		return "", fmt.Errorf("open file: %w", err)
	}
	defer file.Close()

	return Digest(file)
}

// Digest returns the base64 MD5 of everything read from r.
func Digest(r io.Reader) (string, error) {
	h := md5.New()
	if _, err := io.CopyBuffer(h, r, make([]byte, bufferSize)); err != nil {
		return "", fmt.Errorf("read: %w", err)
	}
	return base64.StdEncoding.EncodeToString(h.Sum(nil)), nil
}

// EtagToDigest converts a provider ETag to the digest format FileDigest
// produces. Tags that are not 32 hex characters map to SentinelDigest.
func EtagToDigest(etag string) string {
	tag := strings.TrimPrefix(etag, `"`)
	tag = strings.TrimSuffix(tag, `"`)
	if len(tag) != 32 {
		return SentinelDigest
	}

	raw, err := hex.DecodeString(strings.ToLower(tag))
	if err != nil {
		return SentinelDigest
	}
	return base64.StdEncoding.EncodeToString(raw)
}
