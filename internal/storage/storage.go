// Package storage holds the object store abstraction for claim documents.
package storage

import (
	"bytes"
	"context"
	"io"
	"path"
	"strings"
	"time"

	"github.com/rotisserie/eris"
)

// PutObjectOptions define optional parameters for uploading objects.
// Size is -1 when unknown.
type PutObjectOptions struct {
	Size        int64
	ContentType string
	Metadata    map[string]string
}

// ObjectInfo contains basic information about an object in storage.
type ObjectInfo struct {
	Key          string
	Size         int64
	ETag         string
	ContentType  string
	LastModified time.Time
	Metadata     map[string]string
}

// Storage is an S3-compatible object storage client. Methods stream; nothing touches local disk.
type Storage interface {
	Put(ctx context.Context, key string, r io.Reader, opt PutObjectOptions) (ObjectInfo, error)
	// Get retrieves an object's content as a streaming reader alongside its info.
	Get(ctx context.Context, key string) (io.ReadCloser, ObjectInfo, error)
	Delete(ctx context.Context, key string) error
	// PresignGet returns a time-limited download URL.
	PresignGet(ctx context.Context, key string, expiry time.Duration) (string, error)
}

// DocumentKey builds the object key for a claim document, keeping the upload's extension.
func DocumentKey(documentID, fileName string) string {
	ext := strings.ToLower(path.Ext(fileName))
	return "documents/" + documentID + ext
}

// ErrTooLarge is returned by Fetch when an object exceeds the read limit.
var ErrTooLarge = eris.New("object exceeds read limit")

// Fetch reads a whole object into memory, refusing objects larger than limit bytes.
func Fetch(ctx context.Context, s Storage, key string, limit int64) ([]byte, ObjectInfo, error) {
	rc, info, err := s.Get(ctx, key)
	if err != nil {
		return nil, ObjectInfo{}, eris.Wrapf(err, "get object %s", key)
	}
	defer rc.Close()

	if limit > 0 && info.Size > limit {
		return nil, info, ErrTooLarge
	}

	var r io.Reader = rc
	if limit > 0 {
		r = io.LimitReader(rc, limit+1)
	}
	var buf bytes.Buffer
	n, err := io.Copy(&buf, r)
	if err != nil {
		return nil, info, eris.Wrapf(err, "read object %s", key)
	}
	if limit > 0 && n > limit {
		return nil, info, ErrTooLarge
	}
	return buf.Bytes(), info, nil
}
