package compute

import (
	"context"
	"testing"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/service/ec2"
	ec2types "github.com/aws/aws-sdk-go-v2/service/ec2/types"
	"github.com/aws/smithy-go"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/antokel/cloudkit/pkg/compute/userdata"
	"github.com/antokel/cloudkit/pkg/errdefs"
	"github.com/antokel/cloudkit/pkg/session"
)

// mockAPIError implements smithy.APIError for testing error code mapping.
type mockAPIError struct {
	code string
}

func (e *mockAPIError) Error() string                 { return e.code }
func (e *mockAPIError) ErrorCode() string             { return e.code }
func (e *mockAPIError) ErrorMessage() string          { return e.code }
func (e *mockAPIError) ErrorFault() smithy.ErrorFault { return smithy.FaultUnknown }

var _ smithy.APIError = (*mockAPIError)(nil)

func namedInstance(id, name string) ec2types.Instance {
	inst := ec2types.Instance{InstanceId: aws.String(id)}
	if name != "" {
		inst.Tags = []ec2types.Tag{
			{Key: aws.String("Name"), Value: aws.String(name)},
		}
	}
	return inst
}

func describePage(token string, instances ...ec2types.Instance) *ec2.DescribeInstancesOutput {
	out := &ec2.DescribeInstancesOutput{
		Reservations: []ec2types.Reservation{{Instances: instances}},
	}
	if token != "" {
		out.NextToken = aws.String(token)
	}
	return out
}

func TestClient_FindByName(t *testing.T) {
	ctx := context.Background()

	t.Run("FullStringMatch", func(t *testing.T) {
		fake := &fakeEC2{pages: []*ec2.DescribeInstancesOutput{
			describePage("",
				namedInstance("i-1", "worker-1"),
				namedInstance("i-2", "worker-12"),
				namedInstance("i-3", "api-worker-1"),
			),
		}}
		c := newTestCompute(t, fake)

		found, err := c.FindByName(ctx, "worker-1")
		require.NoError(t, err)

		require.Len(t, found, 1, "partial matches must be excluded")
		assert.Equal(t, "i-1", found[0].ID())
		assert.Equal(t, "worker-1", found[0].Name())
	})

	t.Run("RegexSemantics", func(t *testing.T) {
		fake := &fakeEC2{pages: []*ec2.DescribeInstancesOutput{
			describePage("",
				namedInstance("i-1", "worker-1"),
				namedInstance("i-2", "worker-2"),
				namedInstance("i-3", "api-1"),
			),
		}}
		c := newTestCompute(t, fake)

		found, err := c.FindByName(ctx, `worker-\d+`)
		require.NoError(t, err)

		require.Len(t, found, 2)
		assert.Equal(t, "i-1", found[0].ID())
		assert.Equal(t, "i-2", found[1].ID())
	})

	t.Run("UnnamedInstancesExcluded", func(t *testing.T) {
		fake := &fakeEC2{pages: []*ec2.DescribeInstancesOutput{
			describePage("",
				namedInstance("i-1", ""),
				namedInstance("i-2", "match-me"),
			),
		}}
		c := newTestCompute(t, fake)

		found, err := c.FindByName(ctx, ".*")
		require.NoError(t, err)

		require.Len(t, found, 1)
		assert.Equal(t, "i-2", found[0].ID())
	})

	t.Run("FollowsPagination", func(t *testing.T) {
		fake := &fakeEC2{pages: []*ec2.DescribeInstancesOutput{
			describePage("page-2", namedInstance("i-1", "node-a")),
			describePage("page-3", namedInstance("i-2", "node-b")),
			describePage("", namedInstance("i-3", "node-c")),
		}}
		c := newTestCompute(t, fake)

		found, err := c.FindByName(ctx, "node-.*")
		require.NoError(t, err)

		require.Len(t, found, 3)
		require.Len(t, fake.pageTokens, 3)
		assert.Nil(t, fake.pageTokens[0])
		assert.Equal(t, "page-2", aws.ToString(fake.pageTokens[1]))
		assert.Equal(t, "page-3", aws.ToString(fake.pageTokens[2]))
	})

	t.Run("ReturnedHandlesAreBound", func(t *testing.T) {
		fake := &fakeEC2{pages: []*ec2.DescribeInstancesOutput{
			describePage("", namedInstance("i-9", "bound-check")),
		}}
		c := newTestCompute(t, fake)

		found, err := c.FindByName(ctx, "bound-check")
		require.NoError(t, err)
		require.Len(t, found, 1)

		// A bound handle accepts lifecycle calls immediately.
		require.NoError(t, found[0].Stop(ctx))
		assert.Equal(t, [][]string{{"i-9"}}, fake.stopped)
	})

	t.Run("InvalidPatternIsConfigurationError", func(t *testing.T) {
		c := newTestCompute(t, &fakeEC2{})

		_, err := c.FindByName(ctx, "worker-(")
		require.Error(t, err)
		assert.True(t, errdefs.IsConfiguration(err))
	})

	t.Run("NoMatches", func(t *testing.T) {
		fake := &fakeEC2{pages: []*ec2.DescribeInstancesOutput{
			describePage("", namedInstance("i-1", "other")),
		}}
		c := newTestCompute(t, fake)

		found, err := c.FindByName(ctx, "worker-.*")
		require.NoError(t, err)
		assert.Empty(t, found)
	})
}

func TestClient_ContainerFleet_BindsCredentials(t *testing.T) {
	c := newClient(&fakeEC2{}, Config{Settings: session.Settings{
		Region:          "us-east-1",
		AccessKeyID:     "AKIA",
		SecretAccessKey: "secret",
	}})

	fleet := c.ContainerFleet(userdata.ContainerFleet{
		Image:         "123.dkr.ecr.us-east-1.amazonaws.com/worker",
		IncludeAWSEnv: true,
	})

	assert.Equal(t, "us-east-1", fleet.Credentials.Region)
	assert.Equal(t, "AKIA", fleet.Credentials.AccessKeyID)
	assert.Equal(t, "secret", fleet.Credentials.SecretAccessKey)

	script, err := fleet.Render()
	require.NoError(t, err)
	assert.Contains(t, script, "docker login")
}

func TestConfig_Validate(t *testing.T) {
	tests := []struct {
		name    string
		config  Config
		wantErr bool
	}{
		{"zero config", Config{}, false},
		{"positive rate limit", Config{RateLimit: 5}, false},
		{"negative rate limit", Config{RateLimit: -1}, true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := tt.config.Validate()
			if tt.wantErr {
				require.Error(t, err)
				assert.True(t, errdefs.IsConfiguration(err))
			} else {
				assert.NoError(t, err)
			}
		})
	}
}

func TestClient_Volume(t *testing.T) {
	c := newTestCompute(t, &fakeEC2{})

	v, err := c.Volume(VolumeSpec{SizeGiB: 16})
	require.NoError(t, err)
	assert.Equal(t, int32(16), v.SizeGiB())

	_, err = c.Volume(VolumeSpec{Type: "bogus"})
	require.Error(t, err)
	assert.True(t, errdefs.IsConfiguration(err))
}
