// Package userdata renders boot-time scripts for compute instances.
//
// Rendering is pure and deterministic: the same inputs always produce the
// same script, with no remote calls.
package userdata

import (
	"github.com/antokel/cloudkit/pkg/errdefs"
)

// UserData is anything that can render itself into an instance boot script.
type UserData interface {
	Render() (string, error)
}

// Raw is a literal user-data script passed through unchanged.
type Raw string

// Render implements UserData.
func (r Raw) Render() (string, error) {
	return string(r), nil
}

// OS identifies the operating-system family a script targets.
type OS string

const (
	OSAmazonLinux OS = "amazon_linux"
	OSDebian      OS = "debian"
	OSUbuntu      OS = "ubuntu"
	OSMacOS       OS = "macos"
	OSWindows     OS = "windows"
	OSRedHat      OS = "red_hat"
	OSSUSELinux   OS = "suse_linux"
)

// ParseOS validates an operating-system family. Empty means amazon_linux.
func ParseOS(s string) (OS, error) {
	switch OS(s) {
	case "":
		return OSAmazonLinux, nil
	case OSAmazonLinux, OSDebian, OSUbuntu, OSMacOS, OSWindows, OSRedHat, OSSUSELinux:
		return OS(s), nil
	}
	return "", &errdefs.ConfigError{
		Field:   "OS",
		Message: "unrecognized operating system family " + s,
	}
}

// Credentials are runtime AWS credentials optionally embedded in a rendered
// script so the instance can reach the registry and other AWS services.
type Credentials struct {
	Region          string
	AccessKeyID     string
	SecretAccessKey string
}
