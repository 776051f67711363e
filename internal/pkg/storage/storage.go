// Package storage keeps uploaded files (photos, images, attachments) in a
// gocloud blob bucket.
package storage

import (
	"context"
	"errors"
	"fmt"
	"io"
	"path"
	"regexp"
	"strings"

	"github.com/google/uuid"
	"gocloud.dev/blob"
	_ "gocloud.dev/blob/fileblob"
	_ "gocloud.dev/blob/memblob"
	"gocloud.dev/gcerrors"
)

var ErrNotFound = errors.New("storage: object not found")

var unsafeChars = regexp.MustCompile(`[^A-Za-z0-9._-]+`)

// Upload is a file received from a client.
type Upload struct {
	Filename    string
	ContentType string
	Size        int64
	Body        io.Reader
}

// Store is the subset of Bucket the use cases depend on.
type Store interface {
	Save(ctx context.Context, prefix, filename, contentType string, r io.Reader) (string, error)
	ReadAll(ctx context.Context, key string) ([]byte, error)
	Delete(ctx context.Context, key string) error
	URL(key string) string
}

var _ Store = (*Bucket)(nil)

type Bucket struct {
	bucket  *blob.Bucket
	baseURL string
}

// Open opens bucketURL (file:///..., mem://). baseURL prefixes keys in URL.
func Open(ctx context.Context, bucketURL, baseURL string) (*Bucket, error) {
	b, err := blob.OpenBucket(ctx, bucketURL)
	if err != nil {
		return nil, fmt.Errorf("open bucket %s: %w", bucketURL, err)
	}
	return &Bucket{bucket: b, baseURL: strings.TrimRight(baseURL, "/")}, nil
}

// Save writes r under prefix and returns the generated key.
func (b *Bucket) Save(ctx context.Context, prefix, filename, contentType string, r io.Reader) (string, error) {
	name := unsafeChars.ReplaceAllString(path.Base(filename), "_")
	if name == "" || name == "." || name == "_" {
		name = "file"
	}
	key := path.Join(prefix, uuid.New().String()+"-"+name)

	w, err := b.bucket.NewWriter(ctx, key, &blob.WriterOptions{ContentType: contentType})
	if err != nil {
		return "", err
	}
	if _, err := io.Copy(w, r); err != nil {
		w.Close()
		return "", err
	}
	if err := w.Close(); err != nil {
		return "", err
	}
	return key, nil
}

func (b *Bucket) Open(ctx context.Context, key string) (*blob.Reader, error) {
	r, err := b.bucket.NewReader(ctx, key, nil)
	if err != nil {
		if gcerrors.Code(err) == gcerrors.NotFound {
			return nil, ErrNotFound
		}
		return nil, err
	}
	return r, nil
}

func (b *Bucket) ReadAll(ctx context.Context, key string) ([]byte, error) {
	data, err := b.bucket.ReadAll(ctx, key)
	if err != nil {
		if gcerrors.Code(err) == gcerrors.NotFound {
			return nil, ErrNotFound
		}
		return nil, err
	}
	return data, nil
}

func (b *Bucket) Delete(ctx context.Context, key string) error {
	err := b.bucket.Delete(ctx, key)
	if err != nil && gcerrors.Code(err) != gcerrors.NotFound {
		return err
	}
	return nil
}

// URL is the public address of key as served by the API.
func (b *Bucket) URL(key string) string {
	if key == "" {
		return ""
	}
	return b.baseURL + "/uploads/" + key
}

func (b *Bucket) Close() error {
	return b.bucket.Close()
}
