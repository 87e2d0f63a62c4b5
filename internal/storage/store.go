// Package storage writes photo variants to object storage.
package storage

import (
	"context"
	"strings"
)

// ObjectStore is the object storage surface used by the upload pipeline.
type ObjectStore interface {
	Upload(ctx context.Context, path string, data []byte, contentType string) error
	Delete(ctx context.Context, path string) error
	PublicURL(path string) string
}

func joinURL(base, path string) string {
	if base == "" {
		return path
	}
	return strings.TrimRight(base, "/") + "/" + strings.TrimLeft(path, "/")
}
