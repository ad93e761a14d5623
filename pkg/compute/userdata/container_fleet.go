package userdata

import (
	"fmt"
	"sort"
	"strings"

	"al.essio.dev/pkg/shellescape"

	"github.com/antokel/cloudkit/pkg/errdefs"
)

// ContainerFleet renders a script that installs Docker and the AWS CLI,
// logs into a container registry, pulls an image, and runs it detached.
//
// Only the Linux families with a yum or apt package manager are supported;
// other OS values fail at Render with a configuration error.
type ContainerFleet struct {
	// Image is the registry reference, e.g.
	// "123456789.dkr.ecr.us-east-1.amazonaws.com/worker" (required).
	// A reference without a tag gets Tag appended.
	Image string

	// OS is the target operating-system family. Empty means amazon_linux.
	OS OS

	// Env is passed to the container as environment variables.
	// Rendering order is sorted by key, so iteration order never changes
	// the output.
	Env map[string]string

	// Cmd overrides the image's command. Empty runs the image default.
	Cmd string

	// Tag is appended to untagged image references. Empty means "latest".
	Tag string

	// IncludeAWSEnv adds the AWS region and key pair from Credentials to
	// the container environment. Off by default: a container that expects
	// AWS credentials in its environment must opt in explicitly.
	// Credentials embedded this way end up in the instance's user data;
	// prefer instance profiles where possible.
	IncludeAWSEnv bool

	// Credentials supply the registry login and, with IncludeAWSEnv, the
	// container's AWS environment.
	Credentials Credentials
}

// bootstrap user for the families Render supports.
var fleetUsers = map[OS]string{
	OSAmazonLinux: "ec2-user",
	OSRedHat:      "ec2-user",
	OSUbuntu:      "ubuntu",
	OSDebian:      "admin",
}

// Render implements UserData.
func (f ContainerFleet) Render() (string, error) {
	if f.Image == "" {
		return "", &errdefs.ConfigError{Field: "Image", Message: "registry reference is required"}
	}

	osFamily, err := ParseOS(string(f.OS))
	if err != nil {
		return "", err
	}

	var install string
	switch osFamily {
	case OSAmazonLinux, OSRedHat:
		install = strings.Join([]string{
			"yum update -y",
			"yum install -y docker aws-cli",
			"service docker start",
			"usermod -a -G docker " + fleetUsers[osFamily],
		}, "\n")
	case OSUbuntu, OSDebian:
		install = strings.Join([]string{
			"apt-get update -y",
			"apt-get install -y docker.io awscli",
			"systemctl enable docker",
			"systemctl start docker",
			"usermod -a -G docker " + fleetUsers[osFamily] + " || true",
		}, "\n")
	default:
		return "", &errdefs.ConfigError{
			Field:   "OS",
			Message: string(osFamily) + " is not supported by the ContainerFleet template",
		}
	}

	user := fleetUsers[osFamily]
	image := f.image()
	registry := registryOf(image)
	creds := f.Credentials

	env := make(map[string]string, len(f.Env)+3)
	for k, v := range f.Env {
		env[k] = v
	}
	if f.IncludeAWSEnv {
		setDefault(env, "AWS_REGION", creds.Region)
		setDefault(env, "AWS_ACCESS_KEY_ID", creds.AccessKeyID)
		setDefault(env, "AWS_SECRET_ACCESS_KEY", creds.SecretAccessKey)
	}

	envFlags := make([]string, 0, len(env))
	for _, k := range sortedKeys(env) {
		envFlags = append(envFlags, fmt.Sprintf("-e %s=%s", shellescape.Quote(k), shellescape.Quote(env[k])))
	}

	login := fmt.Sprintf(
		"AWS_REGION=%s AWS_ACCESS_KEY_ID=%s AWS_SECRET_ACCESS_KEY=%s aws ecr get-login-password --region %s | docker login --username AWS --password-stdin %s",
		shellescape.Quote(creds.Region),
		shellescape.Quote(creds.AccessKeyID),
		shellescape.Quote(creds.SecretAccessKey),
		shellescape.Quote(creds.Region),
		shellescape.Quote(registry),
	)

	run := "docker run -d --restart=always"
	if f.Cmd != "" {
		// Clear the entrypoint so Cmd fully overrides the image command.
		run += " --entrypoint ''"
	}
	if len(envFlags) > 0 {
		run += " " + strings.Join(envFlags, " ")
	}
	run += " " + shellescape.Quote(image)
	if f.Cmd != "" {
		run += " " + f.Cmd
	}

	script := fmt.Sprintf(`#!/bin/bash
set -euo pipefail

%s

# Authenticate to the registry and pull the image
su - %s -c "%s"
su - %s -c "docker pull %s"

# Run the container in detached mode
su - %s -c "%s"
`, install, user, login, user, shellescape.Quote(image), user, run)

	return script, nil
}

// image returns the registry reference with a tag, appending Tag (or
// "latest") when the reference has none.
func (f ContainerFleet) image() string {
	last := f.Image
	if idx := strings.LastIndex(f.Image, "/"); idx >= 0 {
		last = f.Image[idx+1:]
	}
	if strings.Contains(last, ":") {
		return f.Image
	}
	tag := f.Tag
	if tag == "" {
		tag = "latest"
	}
	return f.Image + ":" + tag
}

// registryOf returns the registry host from an image reference.
func registryOf(image string) string {
	if idx := strings.Index(image, "/"); idx >= 0 {
		return image[:idx]
	}
	return image
}

func setDefault(m map[string]string, key, value string) {
	if value == "" {
		return
	}
	if _, ok := m[key]; !ok {
		m[key] = value
	}
}

func sortedKeys(m map[string]string) []string {
	keys := make([]string, 0, len(m))
	for k := range m {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return keys
}
