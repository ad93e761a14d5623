package compute

import (
	"github.com/aws/aws-sdk-go-v2/aws"
	ec2types "github.com/aws/aws-sdk-go-v2/service/ec2/types"

	"github.com/antokel/cloudkit/pkg/errdefs"
)

// DefaultVolumeSizeGiB is the size of the volume attached to an instance
// when its spec names no storage.
const DefaultVolumeSizeGiB = 8

// VolumeSpec describes a storage volume for instance creation.
//
// A spec is one of two variants:
//   - snapshot-backed: SnapshotID set; SizeGiB must be zero (the snapshot
//     determines the size), and the volume outlives the instance.
//   - fresh: SnapshotID empty; SizeGiB positive (default 8), destroyed with
//     the instance.
//
// Type applies to both variants and defaults to gp3.
type VolumeSpec struct {
	SnapshotID string
	SizeGiB    int32
	Type       VolumeType
}

// Volume is a validated volume specification. Construct with NewVolume.
// Volume carries no remote state; it is consumed at instance creation.
type Volume struct {
	snapshotID string
	sizeGiB    int32
	typ        VolumeType
}

// NewVolume validates a volume spec. No remote call is made.
//
// Setting both SnapshotID and SizeGiB is rejected rather than silently
// dropping the size: a snapshot-backed volume's size mirrors the snapshot,
// and a caller supplying one likely misunderstands which variant they get.
func NewVolume(spec VolumeSpec) (Volume, error) {
	typ, err := ParseVolumeType(string(spec.Type))
	if err != nil {
		return Volume{}, err
	}

	if spec.SnapshotID != "" {
		if spec.SizeGiB != 0 {
			return Volume{}, &errdefs.ConfigError{
				Field:   "SizeGiB",
				Message: "snapshot-backed volumes take their size from the snapshot",
			}
		}
		return Volume{snapshotID: spec.SnapshotID, typ: typ}, nil
	}

	size := spec.SizeGiB
	if size == 0 {
		size = DefaultVolumeSizeGiB
	}
	if size < 0 {
		return Volume{}, &errdefs.ConfigError{
			Field:   "SizeGiB",
			Message: "size must be a positive number of GiB",
		}
	}

	return Volume{sizeGiB: size, typ: typ}, nil
}

// defaultVolume is the 8 GiB gp3 volume used when a spec names no storage.
func defaultVolume() Volume {
	return Volume{sizeGiB: DefaultVolumeSizeGiB, typ: VolumeGP3}
}

// SnapshotBacked reports whether the volume references an existing snapshot.
func (v Volume) SnapshotBacked() bool {
	return v.snapshotID != ""
}

// SizeGiB returns the requested size for fresh volumes, zero for
// snapshot-backed ones.
func (v Volume) SizeGiB() int32 {
	return v.sizeGiB
}

// Type returns the volume class.
func (v Volume) Type() VolumeType {
	return v.typ
}

// blockDeviceMapping renders the volume for a RunInstances request.
// Snapshot-backed volumes persist past termination; fresh ones do not.
func (v Volume) blockDeviceMapping(deviceName string) ec2types.BlockDeviceMapping {
	ebs := &ec2types.EbsBlockDevice{
		VolumeType: ec2types.VolumeType(v.typ),
	}
	if v.snapshotID != "" {
		ebs.SnapshotId = aws.String(v.snapshotID)
		ebs.DeleteOnTermination = aws.Bool(false)
	} else {
		ebs.VolumeSize = aws.Int32(v.sizeGiB)
		ebs.DeleteOnTermination = aws.Bool(true)
	}
	return ec2types.BlockDeviceMapping{
		DeviceName: aws.String(deviceName),
		Ebs:        ebs,
	}
}
