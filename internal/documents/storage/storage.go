// Package storage is the Document Store Adapter: it keeps uploaded credential
// files in an object store and hands back opaque references.
package storage

import (
	"context"
	"crypto/rand"
	"fmt"

	"github.com/oklog/ulid/v2"
)

// Metadata travels with the object as user metadata.
type Metadata struct {
	ProviderID   string
	DocumentType string
	Filename     string
	ContentType  string
	SHA256       string
}

func (m Metadata) userMetadata() map[string]string {
	return map[string]string{
		"provider-id":   m.ProviderID,
		"document-type": m.DocumentType,
		"filename":      m.Filename,
		"sha256":        m.SHA256,
	}
}

// ObjectStore persists file bytes. Failures wrap sentinel.ErrUnavailable
// (retryable) or sentinel.ErrNotFound.
type ObjectStore interface {
	Put(ctx context.Context, content []byte, meta Metadata) (ref string, err error)
	Get(ctx context.Context, ref string) ([]byte, error)
	Delete(ctx context.Context, ref string) error
}

// newKey builds a time-sortable object key scoped by provider and type.
func newKey(meta Metadata) string {
	return fmt.Sprintf("providers/%s/%s/%s", meta.ProviderID, meta.DocumentType, ulid.MustNew(ulid.Now(), rand.Reader))
}
