package export

import (
	"fmt"
	"strings"

	"github.com/go-playground/validator/v10"
)

// DestinationKind selects the delivery adapter for a schedule
type DestinationKind string

const (
	DestinationEmail DestinationKind = "email"
	DestinationS3    DestinationKind = "s3"
)

// IsValid checks if the kind is supported
func (k DestinationKind) IsValid() bool {
	return k == DestinationEmail || k == DestinationS3
}

var addressValidator = validator.New()

// Destination describes where a schedule delivers its export
type Destination struct {
	Kind   DestinationKind   `json:"kind"`
	Config DestinationConfig `json:"config"`
}

// DestinationConfig holds the kind-specific settings. Recipients and
// Subject apply to email; Bucket and Prefix apply to s3.
type DestinationConfig struct {
	Recipients []string `json:"recipients,omitempty"`
	Subject    string   `json:"subject,omitempty"`
	Bucket     string   `json:"bucket,omitempty"`
	Prefix     string   `json:"prefix,omitempty"`
}

// Validate checks the config against the destination kind
func (d Destination) Validate() error {
	switch d.Kind {
	case DestinationEmail:
		if len(d.Config.Recipients) == 0 {
			return ErrInvalidDestination.WithMessage("email destination requires at least one recipient")
		}
		for _, r := range d.Config.Recipients {
			if err := addressValidator.Var(r, "required,email"); err != nil {
				return ErrInvalidDestination.WithMessage(fmt.Sprintf("invalid recipient address %q", r))
			}
		}
	case DestinationS3:
		if strings.TrimSpace(d.Config.Bucket) == "" {
			return ErrInvalidDestination.WithMessage("s3 destination requires a bucket")
		}
	default:
		return ErrInvalidDestination.WithMessage(fmt.Sprintf("unsupported destination kind %q", d.Kind))
	}
	return nil
}

// Normalized returns a copy with trimmed values and only the settings
// relevant to its kind
func (d Destination) Normalized() Destination {
	out := Destination{Kind: DestinationKind(strings.ToLower(strings.TrimSpace(string(d.Kind))))}
	switch out.Kind {
	case DestinationEmail:
		for _, r := range d.Config.Recipients {
			out.Config.Recipients = append(out.Config.Recipients, strings.TrimSpace(r))
		}
		out.Config.Subject = strings.TrimSpace(d.Config.Subject)
	case DestinationS3:
		out.Config.Bucket = strings.TrimSpace(d.Config.Bucket)
		out.Config.Prefix = strings.Trim(strings.TrimSpace(d.Config.Prefix), "/")
	default:
		out.Config = d.Config
	}
	return out
}

// Describe renders a short human-readable target for logs and run history
func (d Destination) Describe() string {
	switch d.Kind {
	case DestinationEmail:
		return "email:" + strings.Join(d.Config.Recipients, ",")
	case DestinationS3:
		if d.Config.Prefix == "" {
			return "s3://" + d.Config.Bucket
		}
		return "s3://" + d.Config.Bucket + "/" + d.Config.Prefix
	}
	return string(d.Kind)
}
