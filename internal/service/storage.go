package service

import (
	"context"
	"io"
)

// FileStorage abstracts where submitted artifacts are persisted. The service
// layer only ever sees the returned path reference.
type FileStorage interface {
	Upload(ctx context.Context, name string, reader io.Reader) (string, error)
}
