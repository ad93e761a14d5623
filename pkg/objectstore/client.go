package objectstore

import (
	"context"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/service/s3"
	"go.uber.org/zap"
	"golang.org/x/time/rate"

	"github.com/antokel/cloudkit/pkg/errdefs"
)

// s3API is the subset of the S3 client consumed by this package.
// Narrowing to an interface keeps the client testable with fakes.
type s3API interface {
	GetObject(ctx context.Context, params *s3.GetObjectInput, optFns ...func(*s3.Options)) (*s3.GetObjectOutput, error)
	PutObject(ctx context.Context, params *s3.PutObjectInput, optFns ...func(*s3.Options)) (*s3.PutObjectOutput, error)
	CopyObject(ctx context.Context, params *s3.CopyObjectInput, optFns ...func(*s3.Options)) (*s3.CopyObjectOutput, error)
	DeleteObject(ctx context.Context, params *s3.DeleteObjectInput, optFns ...func(*s3.Options)) (*s3.DeleteObjectOutput, error)
}

// Client is a prefix-scoped object store client bound to one bucket.
//
// All operations are synchronous remote calls on the caller's goroutine.
// The client holds no mutable state and is safe for concurrent use.
type Client struct {
	api     s3API
	bucket  string
	prefix  string
	logger  *zap.Logger
	limiter *rate.Limiter
}

// New creates an object store client for the configured bucket.
//
// The underlying S3 client uses the SDK default credential chain unless the
// config's Settings carry explicit credentials.
func New(ctx context.Context, cfg Config) (*Client, error) {
	if err := cfg.Validate(); err != nil {
		return nil, err
	}

	awsCfg, err := cfg.Settings.LoadAWSConfig(ctx)
	if err != nil {
		return nil, &errdefs.OpError{
			Op:       "New",
			Service:  errdefs.ServiceS3,
			Resource: cfg.Bucket,
			Err:      err,
		}
	}

	return newClient(s3.NewFromConfig(awsCfg), cfg), nil
}

func newClient(api s3API, cfg Config) *Client {
	logger := cfg.Logger
	if logger == nil {
		logger = zap.NewNop()
	}

	var limiter *rate.Limiter
	if cfg.RateLimit > 0 {
		limiter = rate.NewLimiter(rate.Limit(cfg.RateLimit), 1)
	}

	return &Client{
		api:     api,
		bucket:  cfg.Bucket,
		prefix:  NormalizePrefix(cfg.Prefix),
		logger:  logger,
		limiter: limiter,
	}
}

// Bucket returns the bucket this client is bound to.
func (c *Client) Bucket() string {
	return c.bucket
}

// Prefix returns the normalized prefix prepended to every cloud path.
func (c *Client) Prefix() string {
	return c.prefix
}

// Text returns the text accessor view of this client.
func (c *Client) Text() *Text {
	return &Text{client: c}
}

// resolveKey joins the client prefix with a cloud-relative path.
func (c *Client) resolveKey(cloudPath string) string {
	return c.prefix + strings.TrimLeft(cloudPath, "/")
}

// wait applies the optional client-side rate limit before a remote call.
func (c *Client) wait(ctx context.Context) error {
	if c.limiter == nil {
		return nil
	}
	return c.limiter.Wait(ctx)
}

// Upload reads the local file in full and writes it as the object body at
// the resolved key. Local read failures classify as LocalIO, rejected
// writes as remote errors.
func (c *Client) Upload(ctx context.Context, localPath, cloudPath string) error {
	key := c.resolveKey(cloudPath)

	f, err := os.Open(localPath)
	if err != nil {
		return c.wrapLocal("Upload", key, err)
	}
	defer func() { _ = f.Close() }()

	info, err := f.Stat()
	if err != nil {
		return c.wrapLocal("Upload", key, err)
	}

	if err := c.wait(ctx); err != nil {
		return err
	}

	size := info.Size()
	_, err = c.api.PutObject(ctx, &s3.PutObjectInput{
		Bucket:        aws.String(c.bucket),
		Key:           aws.String(key),
		Body:          f,
		ContentLength: &size,
	})
	if err != nil {
		return c.wrapRemote("Upload", key, err)
	}

	c.logger.Debug("object uploaded",
		zap.String("bucket", c.bucket),
		zap.String("key", key),
		zap.Int64("bytes", size))
	return nil
}

// Download fetches the object at the resolved key and writes it to the
// local path, creating parent directories as needed.
func (c *Client) Download(ctx context.Context, cloudPath, localPath string) error {
	key := c.resolveKey(cloudPath)

	if err := c.wait(ctx); err != nil {
		return err
	}

	out, err := c.api.GetObject(ctx, &s3.GetObjectInput{
		Bucket: aws.String(c.bucket),
		Key:    aws.String(key),
	})
	if err != nil {
		return c.wrapRemote("Download", key, err)
	}
	defer func() { _ = out.Body.Close() }()

	if dir := filepath.Dir(localPath); dir != "." {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return c.wrapLocal("Download", key, err)
		}
	}

	f, err := os.Create(localPath)
	if err != nil {
		return c.wrapLocal("Download", key, err)
	}

	written, err := io.Copy(f, out.Body)
	if closeErr := f.Close(); err == nil {
		err = closeErr
	}
	if err != nil {
		return c.wrapLocal("Download", key, err)
	}

	c.logger.Debug("object downloaded",
		zap.String("bucket", c.bucket),
		zap.String("key", key),
		zap.Int64("bytes", written))
	return nil
}

// Remove deletes the object at the resolved key.
//
// Remove is idempotent by policy: deleting a non-existent key succeeds,
// mirroring object-store delete semantics. Callers that need existence
// checks should use the text accessor's Read and inspect ErrNotFound.
func (c *Client) Remove(ctx context.Context, cloudPath string) error {
	key := c.resolveKey(cloudPath)

	if err := c.wait(ctx); err != nil {
		return err
	}

	_, err := c.api.DeleteObject(ctx, &s3.DeleteObjectInput{
		Bucket: aws.String(c.bucket),
		Key:    aws.String(key),
	})
	if err != nil {
		wrapped := c.wrapRemote("Remove", key, err)
		if errdefs.IsNotFound(wrapped) {
			return nil
		}
		return wrapped
	}

	c.logger.Debug("object removed",
		zap.String("bucket", c.bucket),
		zap.String("key", key))
	return nil
}

// Move copies the object from the resolved original key to the resolved new
// key, then deletes the original.
//
// Move is not atomic. If the delete step fails after a successful copy, the
// object exists at both locations and Move returns a *PartialMoveError so
// callers can detect and remediate the duplication.
func (c *Client) Move(ctx context.Context, originalCloudPath, newCloudPath string) error {
	srcKey := c.resolveKey(originalCloudPath)
	dstKey := c.resolveKey(newCloudPath)

	if err := c.wait(ctx); err != nil {
		return err
	}

	_, err := c.api.CopyObject(ctx, &s3.CopyObjectInput{
		Bucket:     aws.String(c.bucket),
		CopySource: aws.String(c.bucket + "/" + srcKey),
		Key:        aws.String(dstKey),
	})
	if err != nil {
		return c.wrapRemote("Move", srcKey, err)
	}

	// The copy has succeeded; from here on any failure to delete the
	// original, including a rate-limit wait cut short by the context,
	// leaves the object at both keys and must report the duplication.
	if err := c.wait(ctx); err != nil {
		return &PartialMoveError{
			Bucket:    c.bucket,
			SourceKey: srcKey,
			TargetKey: dstKey,
			Err:       err,
		}
	}

	_, err = c.api.DeleteObject(ctx, &s3.DeleteObjectInput{
		Bucket: aws.String(c.bucket),
		Key:    aws.String(srcKey),
	})
	if err != nil {
		return &PartialMoveError{
			Bucket:    c.bucket,
			SourceKey: srcKey,
			TargetKey: dstKey,
			Err:       errdefs.Classify(err),
		}
	}

	c.logger.Debug("object moved",
		zap.String("bucket", c.bucket),
		zap.String("from", srcKey),
		zap.String("to", dstKey))
	return nil
}

func (c *Client) wrapRemote(op, key string, err error) error {
	return &errdefs.OpError{
		Op:       op,
		Service:  errdefs.ServiceS3,
		Resource: c.bucket,
		Key:      key,
		Err:      errdefs.Classify(err),
	}
}

func (c *Client) wrapLocal(op, key string, err error) error {
	return &errdefs.OpError{
		Op:       op,
		Service:  errdefs.ServiceS3,
		Resource: c.bucket,
		Key:      key,
		Err:      fmt.Errorf("%w: %w", errdefs.ErrLocalIO, err),
	}
}

// PartialMoveError reports a move whose copy succeeded but whose delete
// failed, leaving the object at both keys. It wraps errdefs.ErrPartialMove.
type PartialMoveError struct {
	Bucket    string
	SourceKey string
	TargetKey string
	Err       error
}

// Error implements the error interface.
func (e *PartialMoveError) Error() string {
	return fmt.Sprintf("s3 Move: %s: object copied to %s but delete of %s failed: %v",
		e.Bucket, e.TargetKey, e.SourceKey, e.Err)
}

// Unwrap exposes both the sentinel and the delete failure to errors.Is.
func (e *PartialMoveError) Unwrap() []error {
	return []error{errdefs.ErrPartialMove, e.Err}
}
