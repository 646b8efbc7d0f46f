// Package minio provides a read-only omfile backend for MinIO and other
// S3-compatible object stores via the native MinIO client.
package minio

import (
	"context"
	"fmt"
	"io"

	"github.com/minio/minio-go/v7"

	"github.com/hupe1980/omfile/backend"
)

// Backend reads byte ranges of one object through a MinIO client.
type Backend struct {
	client *minio.Client
	bucket string
	key    string
	size   uint64
}

var _ backend.Backend = (*Backend)(nil)

// New opens the object and probes its size with a StatObject request.
func New(ctx context.Context, client *minio.Client, bucket, key string) (*Backend, error) {
	info, err := client.StatObject(ctx, bucket, key, minio.StatObjectOptions{})
	if err != nil {
		return nil, fmt.Errorf("stat %s/%s: %w", bucket, key, err)
	}
	return &Backend{
		client: client,
		bucket: bucket,
		key:    key,
		size:   uint64(info.Size),
	}, nil
}

// ReadRange issues a ranged GetObject.
func (b *Backend) ReadRange(ctx context.Context, offset, length uint64) ([]byte, error) {
	if length == 0 {
		return nil, nil
	}
	if offset > b.size || length > b.size-offset {
		return nil, fmt.Errorf("read %d bytes at %d beyond end of object (%d bytes)", length, offset, b.size)
	}

	opts := minio.GetObjectOptions{}
	if err := opts.SetRange(int64(offset), int64(offset+length-1)); err != nil {
		return nil, err
	}
	obj, err := b.client.GetObject(ctx, b.bucket, b.key, opts)
	if err != nil {
		return nil, fmt.Errorf("get %s/%s range [%d, %d): %w", b.bucket, b.key, offset, offset+length, err)
	}
	defer obj.Close()

	data := make([]byte, length)
	if _, err := io.ReadFull(obj, data); err != nil {
		return nil, fmt.Errorf("read %s/%s range body: %w", b.bucket, b.key, err)
	}
	return data, nil
}

// Size returns the object size.
func (b *Backend) Size() (uint64, error) {
	return b.size, nil
}

// Close is a no-op; the MinIO client is owned by the caller.
func (b *Backend) Close() error {
	return nil
}
