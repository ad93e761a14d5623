package compute

import (
	"context"
	"regexp"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/service/ec2"
	"go.uber.org/zap"
	"golang.org/x/time/rate"

	"github.com/antokel/cloudkit/pkg/compute/userdata"
	"github.com/antokel/cloudkit/pkg/errdefs"
	"github.com/antokel/cloudkit/pkg/session"
)

// ec2API is the subset of the EC2 client consumed by this package.
// Narrowing to an interface keeps the client testable with fakes.
type ec2API interface {
	RunInstances(ctx context.Context, params *ec2.RunInstancesInput, optFns ...func(*ec2.Options)) (*ec2.RunInstancesOutput, error)
	StartInstances(ctx context.Context, params *ec2.StartInstancesInput, optFns ...func(*ec2.Options)) (*ec2.StartInstancesOutput, error)
	StopInstances(ctx context.Context, params *ec2.StopInstancesInput, optFns ...func(*ec2.Options)) (*ec2.StopInstancesOutput, error)
	TerminateInstances(ctx context.Context, params *ec2.TerminateInstancesInput, optFns ...func(*ec2.Options)) (*ec2.TerminateInstancesOutput, error)
	DescribeInstances(ctx context.Context, params *ec2.DescribeInstancesInput, optFns ...func(*ec2.Options)) (*ec2.DescribeInstancesOutput, error)
}

// Client wraps instance lifecycle operations.
//
// The client itself holds no mutable state and is safe for concurrent use;
// individual Instance handles are not.
type Client struct {
	api      ec2API
	settings session.Settings
	logger   *zap.Logger
	limiter  *rate.Limiter
}

// New creates a compute client.
func New(ctx context.Context, cfg Config) (*Client, error) {
	if err := cfg.Validate(); err != nil {
		return nil, err
	}

	awsCfg, err := cfg.Settings.LoadAWSConfig(ctx)
	if err != nil {
		return nil, &errdefs.OpError{
			Op:      "New",
			Service: errdefs.ServiceEC2,
			Err:     err,
		}
	}

	return newClient(ec2.NewFromConfig(awsCfg), cfg), nil
}

func newClient(api ec2API, cfg Config) *Client {
	logger := cfg.Logger
	if logger == nil {
		logger = zap.NewNop()
	}

	var limiter *rate.Limiter
	if cfg.RateLimit > 0 {
		limiter = rate.NewLimiter(rate.Limit(cfg.RateLimit), 1)
	}

	return &Client{
		api:      api,
		settings: cfg.Settings,
		logger:   logger,
		limiter:  limiter,
	}
}

// Volume validates a volume spec. No remote call is made.
func (c *Client) Volume(spec VolumeSpec) (Volume, error) {
	return NewVolume(spec)
}

// ContainerFleet returns the template with this client's credentials bound,
// so a rendered script can log into ECR in the client's region.
func (c *Client) ContainerFleet(f userdata.ContainerFleet) userdata.ContainerFleet {
	f.Credentials = userdata.Credentials{
		Region:          c.settings.Region,
		AccessKeyID:     c.settings.AccessKeyID,
		SecretAccessKey: c.settings.SecretAccessKey,
	}
	return f
}

// FindByName lists instances whose Name tag matches pattern and returns
// them as bound handles. Matching is against the full name string; unnamed
// instances are excluded. Provider-side pagination is followed
// transparently.
func (c *Client) FindByName(ctx context.Context, pattern string) ([]*Instance, error) {
	// Anchor the pattern so matching is against the full name string.
	re, err := regexp.Compile(`\A(?:` + pattern + `)\z`)
	if err != nil {
		return nil, &errdefs.ConfigError{
			Field:   "pattern",
			Message: "invalid regular expression: " + err.Error(),
		}
	}

	var found []*Instance
	var nextToken *string
	for {
		if err := c.wait(ctx); err != nil {
			return nil, err
		}

		out, err := c.api.DescribeInstances(ctx, &ec2.DescribeInstancesInput{
			NextToken: nextToken,
		})
		if err != nil {
			return nil, c.wrapErr("FindByName", "", err)
		}

		for _, reservation := range out.Reservations {
			for _, inst := range reservation.Instances {
				name, ok := nameTag(inst.Tags)
				if !ok || !re.MatchString(name) {
					continue
				}
				found = append(found, &Instance{
					client: c,
					id:     aws.ToString(inst.InstanceId),
					name:   name,
					state:  stateBound,
				})
			}
		}

		if out.NextToken == nil {
			return found, nil
		}
		nextToken = out.NextToken
	}
}

// wait applies the optional client-side rate limit before a remote call.
func (c *Client) wait(ctx context.Context) error {
	if c.limiter == nil {
		return nil
	}
	return c.limiter.Wait(ctx)
}

func (c *Client) wrapErr(op, id string, err error) error {
	return &errdefs.OpError{
		Op:      op,
		Service: errdefs.ServiceEC2,
		Key:     id,
		Err:     errdefs.Classify(err),
	}
}
