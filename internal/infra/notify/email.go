package notify

import (
	"context"
	"fmt"
	"net/http"

	"elbp_record_service/internal/domain/notify"

	"github.com/sendgrid/sendgrid-go"
	sgmail "github.com/sendgrid/sendgrid-go/helpers/mail"
	"github.com/sirupsen/logrus"
)

var (
	sendgridHost     = "https://api.sendgrid.com"
	sendgridEndpoint = "/v3/mail/send"
)

// EmailNotifier delivers notifications to the configured alerts mailbox via
// SendGrid. Plain and HTML bodies are both attached when present.
type EmailNotifier struct {
	key    string
	from   *sgmail.Email
	to     *sgmail.Email
	logger *logrus.Logger
}

func NewEmailNotifier(key, appName, fromEmail, toEmail string, logger *logrus.Logger) *EmailNotifier {
	return &EmailNotifier{
		key:    key,
		from:   sgmail.NewEmail(appName, fromEmail),
		to:     sgmail.NewEmail("", toEmail),
		logger: logger,
	}
}

func (n *EmailNotifier) Trigger(_ context.Context, ev notify.Event) error {
	p := sgmail.NewPersonalization()
	p.Subject = "[ELBP] " + ev.Subject
	p.AddTos(n.to)

	m := sgmail.NewV3Mail()
	m.SetFrom(n.from)
	m.AddPersonalizations(p)
	m.AddContent(sgmail.NewContent("text/plain", ev.PlainBody))
	if ev.HTMLBody != "" {
		m.AddContent(sgmail.NewContent("text/html", ev.HTMLBody))
	}

	req := sendgrid.GetRequest(n.key, sendgridEndpoint, sendgridHost)
	req.Method = http.MethodPost
	req.Body = sgmail.GetRequestBody(m)

	res, err := sendgrid.API(req)
	if err != nil {
		return fmt.Errorf("failed to send notification email: %w", err)
	}
	if res.StatusCode >= http.StatusBadRequest {
		return fmt.Errorf("sendgrid rejected notification email: status %d", res.StatusCode)
	}
	n.logger.Debugf("Notification email sent: %s", ev.Subject)
	return nil
}
