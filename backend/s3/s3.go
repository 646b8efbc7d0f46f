// Package s3 provides a read-only omfile backend over Amazon S3 or any
// S3-compatible object store reachable through the AWS SDK. Remote OM files
// are always pre-finalized; appending is not part of the contract.
package s3

import (
	"context"
	"errors"
	"fmt"
	"io"
	"time"

	"github.com/aws/aws-sdk-go-v2/aws"
	awsconfig "github.com/aws/aws-sdk-go-v2/config"
	"github.com/aws/aws-sdk-go-v2/credentials"
	"github.com/aws/aws-sdk-go-v2/service/s3"
	"golang.org/x/time/rate"

	"github.com/hupe1980/omfile/backend"
)

// Client is the subset of the S3 API the backend uses.
type Client interface {
	GetObject(ctx context.Context, params *s3.GetObjectInput, optFns ...func(*s3.Options)) (*s3.GetObjectOutput, error)
	HeadObject(ctx context.Context, params *s3.HeadObjectInput, optFns ...func(*s3.Options)) (*s3.HeadObjectOutput, error)
}

// Backend reads byte ranges of one S3 object.
type Backend struct {
	client  Client
	bucket  string
	key     string
	size    uint64
	limiter *rate.Limiter
	retries int
}

var _ backend.Backend = (*Backend)(nil)

// Options configures the S3 backend.
type Options struct {
	// Retries is the number of extra attempts after a failed range read.
	// Transient remote errors get retried; the default is 1.
	Retries int
	// RequestsPerSecond rate-limits range requests. Zero disables limiting.
	RequestsPerSecond float64
}

// New opens the object and probes its size with a HeadObject request.
func New(ctx context.Context, client Client, bucket, key string, opts Options) (*Backend, error) {
	head, err := client.HeadObject(ctx, &s3.HeadObjectInput{
		Bucket: aws.String(bucket),
		Key:    aws.String(key),
	})
	if err != nil {
		return nil, fmt.Errorf("head s3://%s/%s: %w", bucket, key, err)
	}

	b := &Backend{
		client:  client,
		bucket:  bucket,
		key:     key,
		size:    uint64(aws.ToInt64(head.ContentLength)),
		retries: opts.Retries,
	}
	if b.retries == 0 {
		b.retries = 1
	}
	if opts.RequestsPerSecond > 0 {
		b.limiter = rate.NewLimiter(rate.Limit(opts.RequestsPerSecond), 1)
	}
	return b, nil
}

// Open is a convenience constructor using the default AWS configuration
// chain (environment, shared config, instance metadata).
func Open(ctx context.Context, bucket, key string, opts Options) (*Backend, error) {
	cfg, err := awsconfig.LoadDefaultConfig(ctx)
	if err != nil {
		return nil, err
	}
	return New(ctx, s3.NewFromConfig(cfg), bucket, key, opts)
}

// OpenStatic is like Open but with static credentials and a fixed endpoint,
// for S3-compatible stores outside AWS.
func OpenStatic(ctx context.Context, endpoint, region, accessKey, secretKey, bucket, key string, opts Options) (*Backend, error) {
	cfg, err := awsconfig.LoadDefaultConfig(ctx,
		awsconfig.WithRegion(region),
		awsconfig.WithCredentialsProvider(credentials.NewStaticCredentialsProvider(accessKey, secretKey, "")),
	)
	if err != nil {
		return nil, err
	}
	client := s3.NewFromConfig(cfg, func(o *s3.Options) {
		o.BaseEndpoint = aws.String(endpoint)
		o.UsePathStyle = true
	})
	return New(ctx, client, bucket, key, opts)
}

// ReadRange issues a ranged GetObject. A failed attempt is retried once
// (or per Options.Retries) before the error is surfaced.
func (b *Backend) ReadRange(ctx context.Context, offset, length uint64) ([]byte, error) {
	if length == 0 {
		return nil, nil
	}
	if offset > b.size || length > b.size-offset {
		return nil, fmt.Errorf("read %d bytes at %d beyond end of object (%d bytes)", length, offset, b.size)
	}

	var lastErr error
	for attempt := 0; attempt <= b.retries; attempt++ {
		if b.limiter != nil {
			if err := b.limiter.Wait(ctx); err != nil {
				return nil, err
			}
		}

		data, err := b.readRangeOnce(ctx, offset, length)
		if err == nil {
			return data, nil
		}
		lastErr = err
		if ctx.Err() != nil {
			break
		}
		// Brief pause before the retry; remote range reads fail mostly on
		// transient connection resets and throttling.
		select {
		case <-ctx.Done():
			return nil, errors.Join(ctx.Err(), lastErr)
		case <-time.After(50 * time.Millisecond):
		}
	}
	return nil, lastErr
}

func (b *Backend) readRangeOnce(ctx context.Context, offset, length uint64) ([]byte, error) {
	resp, err := b.client.GetObject(ctx, &s3.GetObjectInput{
		Bucket: aws.String(b.bucket),
		Key:    aws.String(b.key),
		Range:  aws.String(fmt.Sprintf("bytes=%d-%d", offset, offset+length-1)),
	})
	if err != nil {
		return nil, fmt.Errorf("get s3://%s/%s range [%d, %d): %w", b.bucket, b.key, offset, offset+length, err)
	}
	defer resp.Body.Close()

	data := make([]byte, length)
	if _, err := io.ReadFull(resp.Body, data); err != nil {
		return nil, fmt.Errorf("read s3://%s/%s range body: %w", b.bucket, b.key, err)
	}
	return data, nil
}

// Size returns the object size.
func (b *Backend) Size() (uint64, error) {
	return b.size, nil
}

// Close is a no-op; the S3 client is owned by the caller.
func (b *Backend) Close() error {
	return nil
}
