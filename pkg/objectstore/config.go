// Package objectstore implements a prefix-scoped convenience client for S3.
//
// Every operation takes cloud-relative paths that are joined with the
// client's prefix before any network call; callers never deal in full keys
// unless they inspect the error context.
package objectstore

import (
	"strings"

	"go.uber.org/zap"

	"github.com/antokel/cloudkit/pkg/errdefs"
	"github.com/antokel/cloudkit/pkg/session"
)

// Config configures an object store client.
type Config struct {
	// Bucket is the S3 bucket name (required).
	Bucket string

	// Prefix is an optional path prefix prepended to every cloud path.
	// Normalized to no leading slash and exactly one trailing slash.
	Prefix string

	// Settings carries region and credentials. A zero value defers
	// entirely to the SDK default chain.
	Settings session.Settings

	// Logger receives structured operation logs. Nil disables logging.
	Logger *zap.Logger

	// RateLimit caps remote requests per second. Zero means unlimited.
	RateLimit float64
}

// Validate checks that required configuration is present.
func (c *Config) Validate() error {
	if c.Bucket == "" {
		return &errdefs.ConfigError{Field: "Bucket", Message: "bucket name is required"}
	}
	if c.RateLimit < 0 {
		return &errdefs.ConfigError{Field: "RateLimit", Message: "must be >= 0"}
	}
	return nil
}

// NormalizePrefix normalizes a key prefix: no leading slash, exactly one
// trailing slash when non-empty, empty stays empty.
//
//	"/a/b/" → "a/b/"
//	"a/b"   → "a/b/"
//	""      → ""
func NormalizePrefix(prefix string) string {
	prefix = strings.TrimLeft(prefix, "/")
	if prefix != "" && !strings.HasSuffix(prefix, "/") {
		prefix += "/"
	}
	return prefix
}
