package errdefs

import (
	"errors"
	"strings"

	s3types "github.com/aws/aws-sdk-go-v2/service/s3/types"
	"github.com/aws/smithy-go"
)

// Classify maps an AWS SDK error to one of the sentinel errors, preserving
// the original error as the cause. The mapping covers both S3 and EC2 error
// codes; unknown provider errors fall through to ErrRemote.
func Classify(err error) error {
	if err == nil {
		return nil
	}

	// Typed S3 errors first; these don't always carry stable codes.
	var notFound *s3types.NotFound
	var noSuchKey *s3types.NoSuchKey
	var noSuchBucket *s3types.NoSuchBucket
	switch {
	case errors.As(err, &notFound), errors.As(err, &noSuchKey), errors.As(err, &noSuchBucket):
		return wrapCause(ErrNotFound, err)
	}

	var apiErr smithy.APIError
	if errors.As(err, &apiErr) {
		return wrapCause(classifyCode(apiErr.ErrorCode()), err)
	}

	// Fallback: some transports surface bare errors with codes in the message.
	msg := err.Error()
	switch {
	case strings.Contains(msg, "NoSuchKey"), strings.Contains(msg, "NotFound"), strings.Contains(msg, "404"):
		return wrapCause(ErrNotFound, err)
	case strings.Contains(msg, "AuthFailure"), strings.Contains(msg, "InvalidAccessKeyId"), strings.Contains(msg, "SignatureDoesNotMatch"), strings.Contains(msg, "403"):
		return wrapCause(ErrAuthentication, err)
	}

	return wrapCause(ErrRemote, err)
}

// classifyCode maps an AWS API error code to a sentinel.
func classifyCode(code string) error {
	switch code {
	// S3
	case "NoSuchKey", "NotFound", "NoSuchBucket":
		return ErrNotFound
	case "InvalidAccessKeyId", "SignatureDoesNotMatch":
		return ErrAuthentication

	// EC2
	case "InvalidInstanceID.NotFound", "InvalidInstanceID.Malformed",
		"InvalidAMIID.NotFound", "InvalidSnapshot.NotFound",
		"InvalidKeyPair.NotFound", "InvalidGroup.NotFound":
		return ErrNotFound
	case "AuthFailure", "UnauthorizedOperation", "ExpiredToken":
		return ErrAuthentication
	case "InstanceLimitExceeded", "VcpuLimitExceeded",
		"MaxSpotInstanceCountExceeded", "VolumeLimitExceeded",
		"RequestLimitExceeded":
		return ErrQuotaExceeded
	}
	return ErrRemote
}

// classified joins a sentinel with its cause so both survive errors.Is.
type classified struct {
	sentinel error
	cause    error
}

func wrapCause(sentinel, cause error) error {
	return &classified{sentinel: sentinel, cause: cause}
}

func (c *classified) Error() string {
	return c.sentinel.Error() + ": " + c.cause.Error()
}

func (c *classified) Unwrap() []error {
	return []error{c.sentinel, c.cause}
}
