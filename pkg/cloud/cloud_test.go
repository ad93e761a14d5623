package cloud

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/antokel/cloudkit/pkg/errdefs"
	"github.com/antokel/cloudkit/pkg/session"
)

func clearAWSEnv(t *testing.T) {
	t.Helper()
	for _, key := range []string{
		session.EnvRegion,
		session.EnvDefaultRegion,
		session.EnvAccessKeyID,
		session.EnvSecretKey,
	} {
		t.Setenv(key, "")
	}
}

func TestNew_ResolvesSettings(t *testing.T) {
	t.Run("ExplicitOptions", func(t *testing.T) {
		clearAWSEnv(t)

		a := New(Options{
			Region:          "eu-west-1",
			AccessKeyID:     "AKIA",
			SecretAccessKey: "secret",
		})

		assert.Equal(t, session.Settings{
			Region:          "eu-west-1",
			AccessKeyID:     "AKIA",
			SecretAccessKey: "secret",
		}, a.Settings())
	})

	t.Run("EnvFallback", func(t *testing.T) {
		clearAWSEnv(t)
		t.Setenv(session.EnvRegion, "us-east-2")
		t.Setenv(session.EnvAccessKeyID, "AKIAENV")
		t.Setenv(session.EnvSecretKey, "env-secret")

		a := New(Options{})

		assert.Equal(t, session.Settings{
			Region:          "us-east-2",
			AccessKeyID:     "AKIAENV",
			SecretAccessKey: "env-secret",
		}, a.Settings())
	})

	t.Run("OptionsOverrideEnv", func(t *testing.T) {
		clearAWSEnv(t)
		t.Setenv(session.EnvRegion, "us-east-2")

		a := New(Options{Region: "ap-southeast-1"})

		assert.Equal(t, "ap-southeast-1", a.Settings().Region)
	})
}

func TestAWS_ObjectStore(t *testing.T) {
	ctx := context.Background()
	clearAWSEnv(t)

	a := New(Options{
		Region:          "eu-west-1",
		AccessKeyID:     "AKIA",
		SecretAccessKey: "secret",
	})

	t.Run("EmptyBucketRejected", func(t *testing.T) {
		_, err := a.ObjectStore(ctx, "", "reports")
		require.Error(t, err)
		assert.True(t, errdefs.IsConfiguration(err))
	})

	t.Run("PrefixNormalized", func(t *testing.T) {
		store, err := a.ObjectStore(ctx, "my-bucket", "/reports/2026")
		require.NoError(t, err)
		assert.Equal(t, "my-bucket", store.Bucket())
		assert.Equal(t, "reports/2026/", store.Prefix())
	})
}

func TestAWS_Compute(t *testing.T) {
	ctx := context.Background()
	clearAWSEnv(t)

	t.Run("NegativeRateLimitRejected", func(t *testing.T) {
		a := New(Options{Region: "eu-west-1", RateLimit: -1})

		_, err := a.Compute(ctx)
		require.Error(t, err)
		assert.True(t, errdefs.IsConfiguration(err))
	})

	t.Run("Builds", func(t *testing.T) {
		a := New(Options{
			Region:          "eu-west-1",
			AccessKeyID:     "AKIA",
			SecretAccessKey: "secret",
		})

		c, err := a.Compute(ctx)
		require.NoError(t, err)
		assert.NotNil(t, c)
	})
}
