package compute

import (
	"context"
	"encoding/base64"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/service/ec2"
	ec2types "github.com/aws/aws-sdk-go-v2/service/ec2/types"
	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/antokel/cloudkit/pkg/compute/userdata"
	"github.com/antokel/cloudkit/pkg/errdefs"
)

// deviceNames are the block device slots assigned to volumes, in order.
// A spec naming more volumes than slots is rejected at Create.
var deviceNames = []string{"/dev/xvda", "/dev/xvdb", "/dev/xvdc", "/dev/xvdd", "/dev/xvde"}

// InstanceSpec describes an instance handle.
//
// A spec is one of two variants:
//   - bound: ID set, referencing an existing instance. All other fields are
//     ignored and lifecycle calls target that id.
//   - unbound: ID empty, describing an instance to launch. Machine and
//     KeyPair are required; the rest is optional.
type InstanceSpec struct {
	// ID references an existing instance (bound variant).
	ID string

	// Name becomes the instance's Name tag.
	Name string

	// Machine is the instance type, e.g. "t4g.micro".
	Machine string

	// Mode selects spot or on-demand pricing. Empty means on-demand.
	Mode PricingMode

	// KeyPair names the SSH key pair installed on the instance.
	KeyPair string

	// SecurityGroups are security group ids to attach.
	SecurityGroups []string

	// AMI is the machine image id. Empty uses the provider default
	// resolution for the account.
	AMI string

	// Storage lists the volumes to attach. Empty attaches one 8 GiB gp3
	// volume.
	Storage []Volume

	// UserData is the boot script, literal (userdata.Raw) or templated.
	UserData userdata.UserData
}

type handleState int

const (
	stateUnbound handleState = iota
	stateBound
	stateTerminated
)

// Instance is a handle on a remote compute instance.
//
// A handle starts unbound (launch pending) or bound (id known) and becomes
// terminated after a successful Terminate; terminated handles reject all
// lifecycle calls. The id/state pair is mutated by Create and Terminate, so
// a handle must not be shared between goroutines without external
// synchronization.
type Instance struct {
	client *Client
	spec   InstanceSpec
	id     string
	name   string
	state  handleState
}

// Instance constructs an instance handle. No remote call is made.
//
// With spec.ID set the handle is bound and no other field is validated.
// Otherwise Machine and KeyPair must be present and the pricing mode must
// parse; violations are configuration errors raised here, not at Create.
func (c *Client) Instance(spec InstanceSpec) (*Instance, error) {
	if spec.ID != "" {
		return &Instance{
			client: c,
			spec:   spec,
			id:     spec.ID,
			name:   spec.Name,
			state:  stateBound,
		}, nil
	}

	if spec.Machine == "" {
		return nil, &errdefs.ConfigError{Field: "Machine", Message: "machine type is required to create an instance"}
	}
	if spec.KeyPair == "" {
		return nil, &errdefs.ConfigError{Field: "KeyPair", Message: "key pair is required to create an instance"}
	}

	mode, err := ParsePricingMode(string(spec.Mode))
	if err != nil {
		return nil, err
	}
	spec.Mode = mode

	return &Instance{
		client: c,
		spec:   spec,
		name:   spec.Name,
		state:  stateUnbound,
	}, nil
}

// ID returns the instance id. Empty until the handle is bound by Create.
func (i *Instance) ID() string {
	return i.id
}

// Name returns the instance's name, when known.
func (i *Instance) Name() string {
	return i.name
}

// Create launches the instance and binds the handle to the assigned id.
//
// Valid only on an unbound handle; calling Create on a bound handle is a
// configuration error. Storage defaults to one 8 GiB gp3 volume and
// templated user data is rendered here.
func (i *Instance) Create(ctx context.Context) (string, error) {
	switch i.state {
	case stateBound:
		return "", &errdefs.ConfigError{Field: "ID", Message: "already bound to " + i.id}
	case stateTerminated:
		return "", &errdefs.ConfigError{Field: "ID", Message: "instance has been terminated"}
	}

	input := &ec2.RunInstancesInput{
		InstanceType: ec2types.InstanceType(i.spec.Machine),
		KeyName:      aws.String(i.spec.KeyPair),
		MinCount:     aws.Int32(1),
		MaxCount:     aws.Int32(1),
		ClientToken:  aws.String(uuid.NewString()),
	}

	if i.spec.AMI != "" {
		input.ImageId = aws.String(i.spec.AMI)
	}
	if len(i.spec.SecurityGroups) > 0 {
		input.SecurityGroupIds = i.spec.SecurityGroups
	}
	if i.spec.Name != "" {
		input.TagSpecifications = []ec2types.TagSpecification{{
			ResourceType: ec2types.ResourceTypeInstance,
			Tags: []ec2types.Tag{
				{Key: aws.String("Name"), Value: aws.String(i.spec.Name)},
			},
		}}
	}

	if i.spec.UserData != nil {
		script, err := i.spec.UserData.Render()
		if err != nil {
			return "", err
		}
		input.UserData = aws.String(base64.StdEncoding.EncodeToString([]byte(script)))
	}

	storage := i.spec.Storage
	if len(storage) == 0 {
		storage = []Volume{defaultVolume()}
	}
	if len(storage) > len(deviceNames) {
		return "", &errdefs.ConfigError{
			Field:   "Storage",
			Message: "at most 5 volumes are supported",
		}
	}
	mappings := make([]ec2types.BlockDeviceMapping, 0, len(storage))
	for idx, vol := range storage {
		mappings = append(mappings, vol.blockDeviceMapping(deviceNames[idx]))
	}
	input.BlockDeviceMappings = mappings

	if i.spec.Mode == ModeSpot {
		input.InstanceMarketOptions = &ec2types.InstanceMarketOptionsRequest{
			MarketType: ec2types.MarketTypeSpot,
			SpotOptions: &ec2types.SpotMarketOptions{
				SpotInstanceType: ec2types.SpotInstanceTypeOneTime,
			},
		}
	}

	if err := i.client.wait(ctx); err != nil {
		return "", err
	}

	out, err := i.client.api.RunInstances(ctx, input)
	if err != nil {
		return "", i.client.wrapErr("Create", "", err)
	}
	if len(out.Instances) == 0 {
		return "", i.client.wrapErr("Create", "", errdefs.ErrRemote)
	}

	i.id = aws.ToString(out.Instances[0].InstanceId)
	i.state = stateBound

	i.client.logger.Info("instance launched",
		zap.String("instance_id", i.id),
		zap.String("machine", i.spec.Machine),
		zap.String("mode", string(i.spec.Mode)))
	return i.id, nil
}

// Start starts the instance. Valid only on a bound handle.
func (i *Instance) Start(ctx context.Context) error {
	if err := i.requireBound(); err != nil {
		return err
	}
	if err := i.client.wait(ctx); err != nil {
		return err
	}

	_, err := i.client.api.StartInstances(ctx, &ec2.StartInstancesInput{
		InstanceIds: []string{i.id},
	})
	if err != nil {
		return i.client.wrapErr("Start", i.id, err)
	}

	i.client.logger.Info("instance started", zap.String("instance_id", i.id))
	return nil
}

// Stop stops the instance. Valid only on a bound handle.
func (i *Instance) Stop(ctx context.Context) error {
	if err := i.requireBound(); err != nil {
		return err
	}
	if err := i.client.wait(ctx); err != nil {
		return err
	}

	_, err := i.client.api.StopInstances(ctx, &ec2.StopInstancesInput{
		InstanceIds: []string{i.id},
	})
	if err != nil {
		return i.client.wrapErr("Stop", i.id, err)
	}

	i.client.logger.Info("instance stopped", zap.String("instance_id", i.id))
	return nil
}

// Terminate terminates the instance. Terminate is terminal: after it
// succeeds, every further lifecycle call on this handle is a usage error.
func (i *Instance) Terminate(ctx context.Context) error {
	if err := i.requireBound(); err != nil {
		return err
	}
	if err := i.client.wait(ctx); err != nil {
		return err
	}

	_, err := i.client.api.TerminateInstances(ctx, &ec2.TerminateInstancesInput{
		InstanceIds: []string{i.id},
	})
	if err != nil {
		return i.client.wrapErr("Terminate", i.id, err)
	}

	i.state = stateTerminated
	i.client.logger.Info("instance terminated", zap.String("instance_id", i.id))
	return nil
}

func (i *Instance) requireBound() error {
	switch i.state {
	case stateUnbound:
		return &errdefs.ConfigError{
			Field:   "ID",
			Message: "instance id is not set; call Create first or construct with an ID",
		}
	case stateTerminated:
		return &errdefs.ConfigError{
			Field:   "ID",
			Message: "instance has been terminated",
		}
	}
	return nil
}

// nameTag extracts the Name tag value from instance tags.
func nameTag(tags []ec2types.Tag) (string, bool) {
	for _, tag := range tags {
		if aws.ToString(tag.Key) == "Name" {
			return aws.ToString(tag.Value), true
		}
	}
	return "", false
}
