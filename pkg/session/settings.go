// Package session resolves AWS credentials and region into an immutable
// Settings value shared by all cloudkit clients.
//
// Resolution order per field: explicit argument, then the standard AWS
// environment variables, then the SDK's own default discovery (shared
// config/credentials files, instance roles). No validation is performed
// locally; bad credentials surface as authentication errors on the first
// remote call.
package session

import (
	"context"
	"os"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/config"
	"github.com/aws/aws-sdk-go-v2/credentials"
)

// Environment variables honored by Resolve. The names match the AWS SDK
// conventions so Settings stays drop-in compatible with other tooling.
const (
	EnvRegion        = "AWS_REGION"
	EnvDefaultRegion = "AWS_DEFAULT_REGION"
	EnvAccessKeyID   = "AWS_ACCESS_KEY_ID"
	EnvSecretKey     = "AWS_SECRET_ACCESS_KEY"
)

// Settings is the effective configuration for a session.
//
// Settings is immutable once constructed and safe to share across
// concurrent callers. Unset fields defer to the SDK default chain.
type Settings struct {
	// Region is the AWS region, empty to let the SDK resolve it.
	Region string

	// AccessKeyID is an explicit access key. When set together with
	// SecretAccessKey it takes precedence over the default credential chain.
	AccessKeyID string

	// SecretAccessKey is the secret half of an explicit key pair.
	SecretAccessKey string
}

// Resolve merges explicit arguments with environment-derived defaults.
// Empty arguments fall back to the AWS environment variables; fields that
// remain empty are left for the SDK default chain to discover.
func Resolve(region, accessKeyID, secretAccessKey string) Settings {
	if region == "" {
		region = os.Getenv(EnvRegion)
	}
	if region == "" {
		region = os.Getenv(EnvDefaultRegion)
	}
	if accessKeyID == "" {
		accessKeyID = os.Getenv(EnvAccessKeyID)
	}
	if secretAccessKey == "" {
		secretAccessKey = os.Getenv(EnvSecretKey)
	}
	return Settings{
		Region:          region,
		AccessKeyID:     accessKeyID,
		SecretAccessKey: secretAccessKey,
	}
}

// LoadAWSConfig builds the SDK configuration for these settings.
//
// Explicit credentials (both halves set) are installed as a static provider;
// otherwise the SDK default chain applies. An explicit region is passed
// through; otherwise the SDK resolves it from env/profile.
func (s Settings) LoadAWSConfig(ctx context.Context) (aws.Config, error) {
	var opts []func(*config.LoadOptions) error

	if s.Region != "" {
		opts = append(opts, config.WithRegion(s.Region))
	}

	if s.AccessKeyID != "" && s.SecretAccessKey != "" {
		staticCreds := credentials.NewStaticCredentialsProvider(
			s.AccessKeyID,
			s.SecretAccessKey,
			"", // session token (empty for long-term credentials)
		)
		opts = append(opts, config.WithCredentialsProvider(staticCreds))
	}

	return config.LoadDefaultConfig(ctx, opts...)
}
