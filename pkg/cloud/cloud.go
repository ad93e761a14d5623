// Package cloud is the single entry point for cloudkit.
//
// The entry point resolves credentials once and hands the resulting
// effective configuration, read-only, to the child clients it builds:
//
//	aws := cloud.New(cloud.Options{Region: "eu-west-1"})
//
//	store, err := aws.ObjectStore(ctx, "my-bucket", "reports/2026")
//	compute, err := aws.Compute(ctx)
package cloud

import (
	"context"

	"go.uber.org/zap"

	"github.com/antokel/cloudkit/pkg/compute"
	"github.com/antokel/cloudkit/pkg/objectstore"
	"github.com/antokel/cloudkit/pkg/session"
)

// Options configures the AWS entry point. Every field is optional: unset
// credential fields fall back to the AWS environment variables, then to the
// SDK default discovery.
type Options struct {
	Region          string
	AccessKeyID     string
	SecretAccessKey string

	// Logger is passed to every child client. Nil disables logging.
	Logger *zap.Logger

	// RateLimit caps each child client's remote requests per second.
	// Zero means unlimited.
	RateLimit float64
}

// AWS composes the object store and compute clients over one shared
// effective configuration.
//
// The configuration is resolved at construction and never mutated, so an
// AWS value is safe to share across concurrent callers.
type AWS struct {
	settings  session.Settings
	logger    *zap.Logger
	rateLimit float64
}

// New resolves the effective configuration from opts and the environment.
// No remote call is made; bad credentials surface on the first operation of
// a child client.
func New(opts Options) *AWS {
	return &AWS{
		settings:  session.Resolve(opts.Region, opts.AccessKeyID, opts.SecretAccessKey),
		logger:    opts.Logger,
		rateLimit: opts.RateLimit,
	}
}

// Settings returns the resolved effective configuration.
func (a *AWS) Settings() session.Settings {
	return a.settings
}

// ObjectStore builds a client for bucket, scoped to the given prefix.
// An empty prefix scopes to the bucket root.
func (a *AWS) ObjectStore(ctx context.Context, bucket, prefix string) (*objectstore.Client, error) {
	return objectstore.New(ctx, objectstore.Config{
		Bucket:    bucket,
		Prefix:    prefix,
		Settings:  a.settings,
		Logger:    a.logger,
		RateLimit: a.rateLimit,
	})
}

// Compute builds a compute client.
func (a *AWS) Compute(ctx context.Context) (*compute.Client, error) {
	return compute.New(ctx, compute.Config{
		Settings:  a.settings,
		Logger:    a.logger,
		RateLimit: a.rateLimit,
	})
}
