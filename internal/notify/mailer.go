// Package notify sends the certificate emails and the downstream reports raised after a
// submission, and polls the blob store for generated certificates.
package notify

import (
	"context"
	"encoding/base64"
	"errors"
	"fmt"
	"net/http"
	"strings"

	"github.com/DEFRA/eutd-mmo-fes-orchestration-sub000/internal/config"
	"github.com/DEFRA/eutd-mmo-fes-orchestration-sub000/internal/integration"
	"github.com/DEFRA/eutd-mmo-fes-orchestration-sub000/internal/logging"
	"github.com/DEFRA/eutd-mmo-fes-orchestration-sub000/internal/types"
)

var (
	// ErrMissingTemplate is returned when an email kind has no template configured.
	ErrMissingTemplate = errors.New("email template id is required")
	// ErrMissingRecipient is returned when there is no address to send to.
	ErrMissingRecipient = errors.New("email address is required")
)

// Email is one templated message.
type Email struct {
	TemplateID      string                 `json:"templateId"`
	EmailAddress    string                 `json:"emailAddress"`
	Reference       string                 `json:"reference,omitempty"`
	Personalisation map[string]interface{} `json:"personalisation,omitempty"`
}

// Mailer delivers templated emails.
type Mailer interface {
	Send(ctx context.Context, email Email) error
}

// MailClient implements Mailer against the notification service.
type MailClient struct {
	c *integration.Client
}

// NewMailClient returns a notification service client.
func NewMailClient(cfg config.ServiceIntegration) *MailClient {
	return &MailClient{c: integration.New("notification", cfg, logging.CategoryNotify)}
}

// Send implements Mailer.
func (m *MailClient) Send(ctx context.Context, email Email) error {
	return m.c.Do(ctx, http.MethodPost, "/v1/email", email, nil)
}

// Notifier builds the three certificate emails and sends them through a Mailer.
type Notifier struct {
	mailer Mailer
	blobs  BlobStore
	cfg    config.NotificationsConfig
}

// NewNotifier returns a Notifier.
func NewNotifier(mailer Mailer, blobs BlobStore, cfg config.NotificationsConfig) *Notifier {
	return &Notifier{mailer: mailer, blobs: blobs, cfg: cfg}
}

// SendSuccess waits for the generated certificate and mails it to the exporter.
func (n *Notifier) SendSuccess(ctx context.Context, emailAddress, documentNumber, artifactURI string) error {
	if err := checkEmail(n.cfg.SuccessTemplateID, emailAddress); err != nil {
		return err
	}
	if err := WaitForBlob(ctx, n.blobs, artifactURI, n.cfg.BlobPollAttempts, n.cfg.GetBlobPollInterval()); err != nil {
		return err
	}
	content, err := n.blobs.Download(ctx, artifactURI)
	if err != nil {
		return fmt.Errorf("failed to download %s: %w", artifactURI, err)
	}
	logging.Notify("Sending success email for %s", documentNumber)
	return n.mailer.Send(ctx, Email{
		TemplateID:   n.cfg.SuccessTemplateID,
		EmailAddress: emailAddress,
		Reference:    documentNumber,
		Personalisation: map[string]interface{}{
			"documentNumber": documentNumber,
			"link_to_file":   base64.StdEncoding.EncodeToString(content),
		},
	})
}

// SendFailure mails the blocking failures of an offline validation.
func (n *Notifier) SendFailure(ctx context.Context, emailAddress, documentNumber string, failures []types.ValidationFailure) error {
	if err := checkEmail(n.cfg.FailureTemplateID, emailAddress); err != nil {
		return err
	}
	lines := make([]string, 0, len(failures))
	for _, f := range failures {
		lines = append(lines, fmt.Sprintf("%s %s %s: %s", f.Species, f.Vessel, f.Date, strings.Join(f.Rules, ", ")))
	}
	logging.Notify("Sending failure email for %s (%d failures)", documentNumber, len(failures))
	return n.mailer.Send(ctx, Email{
		TemplateID:   n.cfg.FailureTemplateID,
		EmailAddress: emailAddress,
		Reference:    documentNumber,
		Personalisation: map[string]interface{}{
			"documentNumber": documentNumber,
			"failures":       lines,
		},
	})
}

// SendTechnicalError tells the exporter their offline submission could not be processed.
func (n *Notifier) SendTechnicalError(ctx context.Context, emailAddress, documentNumber string) error {
	if err := checkEmail(n.cfg.TechnicalErrorTemplateID, emailAddress); err != nil {
		return err
	}
	logging.Notify("Sending technical error email for %s", documentNumber)
	return n.mailer.Send(ctx, Email{
		TemplateID:      n.cfg.TechnicalErrorTemplateID,
		EmailAddress:    emailAddress,
		Reference:       documentNumber,
		Personalisation: map[string]interface{}{"documentNumber": documentNumber},
	})
}

func checkEmail(templateID, emailAddress string) error {
	if templateID == "" {
		return ErrMissingTemplate
	}
	if emailAddress == "" {
		return ErrMissingRecipient
	}
	return nil
}
