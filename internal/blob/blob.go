// Package blob implements the Blob Storage Backend (C3): a pluggable
// content-addressed object store behind a single Backend interface, with
// local filesystem and S3-compatible implementations. The active backend
// is a process-wide singleton selected once at startup by configuration
// (spec.md §3), but NewLocal/NewS3 remain directly constructible so tests
// can use a throwaway instance instead of the singleton.
package blob

import (
	"crypto/sha256"
	"encoding/hex"
	"fmt"
	"strings"
)

// Backend is the storage interface every blob backend implements,
// grounded on original_source/app/storage/base.py's abstract
// StorageBackend (put/get/delete/exists + scheme-prefixed URIs).
type Backend interface {
	// Scheme is the URI scheme this backend produces, e.g. "local" or "s3".
	Scheme() string

	// Put stores data under key and returns its URI ({scheme}://{key}).
	Put(key string, data []byte, contentType string) (string, error)

	// Get retrieves the bytes stored at uri.
	Get(uri string) ([]byte, error)

	// Delete removes the object at uri. Returns false if it did not exist.
	Delete(uri string) (bool, error)

	// Exists reports whether an object exists at uri.
	Exists(uri string) bool
}

// Key builds the content-addressed blob key
// "{source}/{external_id}/{sha256[:16]}{.ext}" specified in spec.md §6.
func Key(source, externalID string, content []byte, ext string) string {
	sum := sha256.Sum256(content)
	short := hex.EncodeToString(sum[:])[:16]
	if ext != "" && !strings.HasPrefix(ext, ".") {
		ext = "." + ext
	}
	return fmt.Sprintf("%s/%s/%s%s", source, externalID, short, ext)
}

// KeyFromURI strips a "{scheme}://" prefix from uri, returning the bare key.
func KeyFromURI(scheme, uri string) string {
	prefix := scheme + "://"
	if strings.HasPrefix(uri, prefix) {
		return uri[len(prefix):]
	}
	return uri
}
