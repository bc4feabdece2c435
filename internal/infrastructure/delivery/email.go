package delivery

import (
	"bytes"
	"context"
	"fmt"
	"strings"

	"github.com/erp/interchange/internal/domain/export"
	"github.com/erp/interchange/internal/infrastructure/config"
	"github.com/wneessen/go-mail"
	"go.uber.org/zap"
)

// Sender transmits composed messages. *mail.Client satisfies it.
type Sender interface {
	DialAndSendWithContext(ctx context.Context, messages ...*mail.Msg) error
}

// EmailDeliverer mails artifacts as attachments
type EmailDeliverer struct {
	sender Sender
	from   string
	logger *zap.Logger
}

// NewEmailDeliverer creates an email deliverer sending as from
func NewEmailDeliverer(sender Sender, from string, logger *zap.Logger) *EmailDeliverer {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &EmailDeliverer{sender: sender, from: from, logger: logger}
}

// NewSMTPClient builds a go-mail client from the email configuration
func NewSMTPClient(cfg *config.EmailConfig) (*mail.Client, error) {
	opts := []mail.Option{
		mail.WithPort(cfg.Port),
		mail.WithTimeout(cfg.Timeout),
		mail.WithTLSPolicy(tlsPolicy(cfg.TLS)),
	}
	if cfg.Username != "" {
		opts = append(opts,
			mail.WithSMTPAuth(mail.SMTPAuthPlain),
			mail.WithUsername(cfg.Username),
			mail.WithPassword(cfg.Password),
		)
	}
	client, err := mail.NewClient(cfg.Host, opts...)
	if err != nil {
		return nil, fmt.Errorf("failed to create smtp client: %w", err)
	}
	return client, nil
}

func tlsPolicy(mode string) mail.TLSPolicy {
	switch mode {
	case "mandatory":
		return mail.TLSMandatory
	case "none":
		return mail.NoTLS
	default:
		return mail.TLSOpportunistic
	}
}

// DefaultSubject is used when the destination sets none
func DefaultSubject(fileName string) string {
	return "Catalog export " + fileName
}

// Deliver implements Deliverer
func (d *EmailDeliverer) Deliver(ctx context.Context, dest export.Destination, artifact Artifact) (string, error) {
	if dest.Kind != export.DestinationEmail {
		return "", fmt.Errorf("email deliverer cannot handle %q destinations", dest.Kind)
	}
	msg, err := d.compose(dest, artifact)
	if err != nil {
		return "", err
	}
	if err := d.sender.DialAndSendWithContext(ctx, msg); err != nil {
		return "", fmt.Errorf("smtp delivery to %s failed: %w", strings.Join(dest.Config.Recipients, ","), err)
	}

	d.logger.Debug("Export mailed",
		zap.Strings("recipients", dest.Config.Recipients),
		zap.Int("rows", artifact.RowCount),
	)
	return dest.Describe(), nil
}

func (d *EmailDeliverer) compose(dest export.Destination, artifact Artifact) (*mail.Msg, error) {
	msg := mail.NewMsg()
	if err := msg.From(d.from); err != nil {
		return nil, fmt.Errorf("invalid sender address %q: %w", d.from, err)
	}
	if err := msg.To(dest.Config.Recipients...); err != nil {
		return nil, fmt.Errorf("invalid recipients: %w", err)
	}

	subject := dest.Config.Subject
	if subject == "" {
		subject = DefaultSubject(artifact.FileName)
	}
	msg.Subject(subject)
	msg.SetBodyString(mail.TypeTextPlain,
		fmt.Sprintf("The attached file %s contains %d catalog products.\n", artifact.FileName, artifact.RowCount))

	if err := msg.AttachReader(artifact.FileName, bytes.NewReader(artifact.Body),
		mail.WithFileContentType(mail.ContentType(artifact.ContentType))); err != nil {
		return nil, fmt.Errorf("failed to attach %s: %w", artifact.FileName, err)
	}
	return msg, nil
}

var _ Deliverer = (*EmailDeliverer)(nil)
