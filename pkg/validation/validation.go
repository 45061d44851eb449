package validation

import (
	"errors"
	"fmt"
	"regexp"
	"strings"
	"unicode"
)

// MaxDimensionValueLength is CloudWatch's limit on a dimension value.
const MaxDimensionValueLength = 1024

var (
	// ECS cluster and service names: letters, numbers, hyphens, underscores, up to 255 chars
	resourceNameRegex = regexp.MustCompile(`^[a-zA-Z0-9_-]{1,255}$`)

	// ECS accepts full ARNs wherever it accepts names. Service ARNs come in
	// the short form (service/<name>) and the long form (service/<cluster>/<name>).
	clusterARNRegex = regexp.MustCompile(`^arn:aws[-a-z]*:ecs:[a-z0-9-]+:[0-9]{12}:cluster/[a-zA-Z0-9_-]{1,255}$`)
	serviceARNRegex = regexp.MustCompile(`^arn:aws[-a-z]*:ecs:[a-z0-9-]+:[0-9]{12}:service/([a-zA-Z0-9_-]{1,255}/)?[a-zA-Z0-9_-]{1,255}$`)

	// SQS queue names: letters, numbers, hyphens, underscores; FIFO queues end in .fifo
	queueNameRegex = regexp.MustCompile(`^[a-zA-Z0-9_-]+(\.fifo)?$`)

	accountIDRegex = regexp.MustCompile(`^[0-9]{12}$`)
)

// SanitizeString removes potentially dangerous characters and trims whitespace
func SanitizeString(input string) string {
	input = strings.TrimSpace(input)
	input = strings.ReplaceAll(input, "\x00", "")

	// Remove control characters except newline and tab
	var builder strings.Builder
	for _, r := range input {
		if !unicode.IsControl(r) || r == '\n' || r == '\t' {
			builder.WriteRune(r)
		}
	}

	return builder.String()
}

// ValidateClusterName checks an ECS cluster name or cluster ARN.
func ValidateClusterName(name string) error {
	return validateECSName("cluster_name", name, clusterARNRegex)
}

// ValidateServiceName checks an ECS service name or service ARN.
func ValidateServiceName(name string) error {
	return validateECSName("service_name", name, serviceARNRegex)
}

func validateECSName(field, name string, arnRegex *regexp.Regexp) error {
	if name == "" {
		return fmt.Errorf("%s is required", field)
	}

	if strings.HasPrefix(name, "arn:") {
		if !arnRegex.MatchString(name) {
			return fmt.Errorf("%s is not a valid ECS ARN", field)
		}
		return nil
	}

	if len(name) > 255 {
		return fmt.Errorf("%s must not exceed 255 characters", field)
	}

	if !resourceNameRegex.MatchString(name) {
		return fmt.Errorf("%s must contain only letters, numbers, hyphens, and underscores, or be an ECS ARN", field)
	}

	return nil
}

// ValidateQueueName checks an SQS queue name.
func ValidateQueueName(name string) error {
	if name == "" {
		return errors.New("queue_name is required")
	}

	if len(name) > 80 {
		return errors.New("queue_name must not exceed 80 characters")
	}

	if !queueNameRegex.MatchString(name) {
		return errors.New("queue_name must contain only letters, numbers, hyphens, and underscores, with an optional .fifo suffix")
	}

	return nil
}

// ValidateDimensionValue checks a free-form value published as a CloudWatch
// dimension, such as the queue name of a time-series backend.
func ValidateDimensionValue(field, value string) error {
	if value == "" {
		return fmt.Errorf("%s is required", field)
	}

	if len(value) > MaxDimensionValueLength {
		return fmt.Errorf("%s must not exceed %d characters", field, MaxDimensionValueLength)
	}

	if SanitizeString(value) != value {
		return fmt.Errorf("%s must not contain control characters or surrounding whitespace", field)
	}

	return nil
}

// ValidateAccountID checks a 12-digit AWS account id.
func ValidateAccountID(id string) error {
	if !accountIDRegex.MatchString(id) {
		return fmt.Errorf("queue_owner_aws_account_id must be 12 digits, got %q", id)
	}
	return nil
}
