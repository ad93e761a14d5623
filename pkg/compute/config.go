// Package compute implements a convenience client for EC2 instance
// lifecycle management: launch, start, stop, terminate, and name-based
// lookup, with validated volume and pricing specifications.
package compute

import (
	"go.uber.org/zap"

	"github.com/antokel/cloudkit/pkg/errdefs"
	"github.com/antokel/cloudkit/pkg/session"
)

// Config configures a compute client.
type Config struct {
	// Settings carries region and credentials. A zero value defers
	// entirely to the SDK default chain.
	Settings session.Settings

	// Logger receives structured operation logs. Nil disables logging.
	Logger *zap.Logger

	// RateLimit caps remote requests per second. Zero means unlimited.
	RateLimit float64
}

// Validate checks that the configuration is usable.
func (c *Config) Validate() error {
	if c.RateLimit < 0 {
		return &errdefs.ConfigError{Field: "RateLimit", Message: "must be >= 0"}
	}
	return nil
}

// PricingMode selects how instance capacity is purchased.
type PricingMode string

const (
	// ModeOnDemand launches regular on-demand capacity. The default.
	ModeOnDemand PricingMode = "on-demand"

	// ModeSpot launches one-time spot capacity.
	ModeSpot PricingMode = "spot"
)

// ParsePricingMode validates a pricing mode. Empty means on-demand.
func ParsePricingMode(s string) (PricingMode, error) {
	switch PricingMode(s) {
	case "":
		return ModeOnDemand, nil
	case ModeOnDemand, ModeSpot:
		return PricingMode(s), nil
	}
	return "", &errdefs.ConfigError{
		Field:   "Mode",
		Message: "unrecognized pricing mode " + s + " (want spot or on-demand)",
	}
}

// VolumeType selects the EBS volume class.
type VolumeType string

const (
	// VolumeGP3 is general-purpose SSD, third generation. The default.
	VolumeGP3 VolumeType = "gp3"

	// VolumeGP2 is general-purpose SSD, second generation.
	VolumeGP2 VolumeType = "gp2"

	// VolumeStandard is the previous-generation magnetic class.
	VolumeStandard VolumeType = "standard"
)

// ParseVolumeType validates a volume type. Empty means gp3.
func ParseVolumeType(s string) (VolumeType, error) {
	switch VolumeType(s) {
	case "":
		return VolumeGP3, nil
	case VolumeGP3, VolumeGP2, VolumeStandard:
		return VolumeType(s), nil
	}
	return "", &errdefs.ConfigError{
		Field:   "Type",
		Message: "unrecognized volume type " + s + " (want gp3, gp2, or standard)",
	}
}
