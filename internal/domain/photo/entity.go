// internal/domain/photo/entity.go
package photo

import (
	"context"
	"io"
	"time"
)

// Object describes a stored photo.
type Object struct {
	Ref         string    `json:"ref"`
	ContentType string    `json:"content_type"`
	Size        int64     `json:"size"`
	ModTime     time.Time `json:"mod_time,omitempty"`
}

// Store is a flat namespace of photo bytes addressed by reference.
// Put on an existing ref replaces it.
type Store interface {
	Put(ctx context.Context, ref string, data []byte, contentType string) error
	Open(ctx context.Context, ref string) (io.ReadCloser, *Object, error)
	Delete(ctx context.Context, ref string) error
}
