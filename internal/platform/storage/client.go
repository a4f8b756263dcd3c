package storage

import (
	"context"
	"errors"
	"fmt"
	"io"
	"strings"
	"time"

	"cloud.google.com/go/storage"
	"google.golang.org/api/googleapi"
	"google.golang.org/api/iterator"
	"google.golang.org/api/option"
)

var (
	errInvalidBucket = errors.New("storage: bucket name is required")
	errInvalidObject = errors.New("storage: object name is required")
)

// Client mirrors locally synthesized voice files into a Cloud Storage bucket
// so LINE clients can stream them over https after the container's scratch
// disk is recycled.
type Client struct {
	client    *storage.Client
	bucket    string
	region    string
	projectID string
}

// ClientOption customises client construction.
type ClientOption func(*Client)

// WithRegion sets the location used when the bucket has to be created.
func WithRegion(region string) ClientOption {
	return func(c *Client) {
		if strings.TrimSpace(region) != "" {
			c.region = strings.TrimSpace(region)
		}
	}
}

// WithProject sets the project that owns the bucket.
func WithProject(projectID string) ClientOption {
	return func(c *Client) {
		c.projectID = strings.TrimSpace(projectID)
	}
}

// NewClient constructs a storage client bound to one bucket.
func NewClient(ctx context.Context, bucket string, opts []ClientOption, clientOpts ...option.ClientOption) (*Client, error) {
	bucket = strings.TrimSpace(bucket)
	if bucket == "" {
		return nil, errInvalidBucket
	}
	gcs, err := storage.NewClient(ctx, clientOpts...)
	if err != nil {
		return nil, fmt.Errorf("storage: new client: %w", err)
	}
	c := &Client{client: gcs, bucket: bucket, region: "asia-east1"}
	for _, opt := range opts {
		if opt != nil {
			opt(c)
		}
	}
	return c, nil
}

// Close releases the underlying client.
func (c *Client) Close() error {
	if c == nil || c.client == nil {
		return nil
	}
	return c.client.Close()
}

// EnsureBucket creates the bucket in the configured region when it does not
// exist yet. Safe to call on every startup.
func (c *Client) EnsureBucket(ctx context.Context) error {
	bkt := c.client.Bucket(c.bucket)
	_, err := bkt.Attrs(ctx)
	if err == nil {
		return nil
	}
	if !errors.Is(err, storage.ErrBucketNotExist) {
		return fmt.Errorf("storage: bucket attrs: %w", err)
	}
	if c.projectID == "" {
		return fmt.Errorf("storage: bucket %s missing and no project configured to create it", c.bucket)
	}
	attrs := &storage.BucketAttrs{Location: c.region}
	if err := bkt.Create(ctx, c.projectID, attrs); err != nil {
		var apiErr *googleapi.Error
		// A concurrent cold start may have created it first.
		if errors.As(err, &apiErr) && apiErr.Code == 409 {
			return nil
		}
		return fmt.Errorf("storage: create bucket: %w", err)
	}
	return nil
}

// UploadPublic writes the object with public-read access and returns its
// public https URL.
func (c *Client) UploadPublic(ctx context.Context, object, contentType string, body io.Reader) (string, error) {
	object = strings.TrimSpace(object)
	if object == "" {
		return "", errInvalidObject
	}

	w := c.client.Bucket(c.bucket).Object(object).NewWriter(ctx)
	w.ContentType = contentType
	w.CacheControl = "public, max-age=1800"
	w.PredefinedACL = "publicRead"
	if _, err := io.Copy(w, body); err != nil {
		_ = w.Close()
		return "", fmt.Errorf("storage: upload %s: %w", object, err)
	}
	if err := w.Close(); err != nil {
		return "", fmt.Errorf("storage: finalize %s: %w", object, err)
	}
	return c.PublicURL(object), nil
}

// Delete removes the object, ignoring absence.
func (c *Client) Delete(ctx context.Context, object string) error {
	err := c.client.Bucket(c.bucket).Object(object).Delete(ctx)
	if err != nil && !errors.Is(err, storage.ErrObjectNotExist) {
		return fmt.Errorf("storage: delete %s: %w", object, err)
	}
	return nil
}

// PublicURL returns the canonical public URL for an object in the bucket.
func (c *Client) PublicURL(object string) string {
	return fmt.Sprintf("https://storage.googleapis.com/%s/%s", c.bucket, object)
}

// Bucket exposes the bucket name for logging.
func (c *Client) Bucket() string { return c.bucket }

// DeleteOlderThan removes objects under prefix created at or before cutoff
// and reports how many were deleted. It keeps the voice bucket bounded when
// local eviction lags behind uploads.
func (c *Client) DeleteOlderThan(ctx context.Context, prefix string, cutoff time.Time) (int, error) {
	it := c.client.Bucket(c.bucket).Objects(ctx, &storage.Query{Prefix: prefix})
	deleted := 0
	for {
		attrs, err := it.Next()
		if errors.Is(err, iterator.Done) {
			break
		}
		if err != nil {
			return deleted, fmt.Errorf("storage: list %s: %w", prefix, err)
		}
		if attrs.Created.After(cutoff) {
			continue
		}
		if err := c.Delete(ctx, attrs.Name); err != nil {
			return deleted, err
		}
		deleted++
	}
	return deleted, nil
}
