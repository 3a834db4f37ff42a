package notifications

import (
	"fmt"
	"net/smtp"
	"os"

	"github.com/NatiEfraim/tokyo-api-sub000/pkg/models"

	"github.com/google/uuid"
	"go.uber.org/zap"
)

// Dispatcher notifies an order's creator about status changes. Sends are
// fire-and-forget: a failed mail is logged with its correlation id and never
// fails or rolls back the operation that triggered it.
type Dispatcher interface {
	NotifyApproved(user models.User, orderNumber int)
	NotifyCanceled(user models.User, orderNumber int)
	NotifyDistributionFailure(user models.User)
}

// SMTPDispatcher sends plain-text mail over the configured relay.
type SMTPDispatcher struct {
	host string
	port string
	from string
	log  *zap.Logger
}

// NewDispatcher returns the SMTP dispatcher when MAIL_HOST is configured and
// the logging noop otherwise, so a dev environment works without a relay.
func NewDispatcher(log *zap.Logger) Dispatcher {
	host := os.Getenv("MAIL_HOST")
	if host == "" {
		log.Info("MAIL_HOST not set, notifications will only be logged")
		return &NoopDispatcher{log: log}
	}

	port := os.Getenv("MAIL_PORT")
	if port == "" {
		port = "25"
	}

	return &SMTPDispatcher{
		host: host,
		port: port,
		from: os.Getenv("MAIL_FROM"),
		log:  log,
	}
}

func (d *SMTPDispatcher) NotifyApproved(user models.User, orderNumber int) {
	subject := fmt.Sprintf("Distribution order %d approved", orderNumber)
	body := fmt.Sprintf("Hello %s,\r\n\r\nYour distribution order %d was approved and is ready for collection.\r\n", user.Fullname, orderNumber)
	d.send(user.Email, subject, body)
}

func (d *SMTPDispatcher) NotifyCanceled(user models.User, orderNumber int) {
	subject := fmt.Sprintf("Distribution order %d canceled", orderNumber)
	body := fmt.Sprintf("Hello %s,\r\n\r\nYour distribution order %d was canceled. Contact the logistics admin for details.\r\n", user.Fullname, orderNumber)
	d.send(user.Email, subject, body)
}

func (d *SMTPDispatcher) NotifyDistributionFailure(user models.User) {
	subject := "Distribution request failed"
	body := fmt.Sprintf("Hello %s,\r\n\r\nYour distribution request could not be processed. Please try again or contact support.\r\n", user.Fullname)
	d.send(user.Email, subject, body)
}

func (d *SMTPDispatcher) send(to, subject, body string) {
	correlationID := uuid.NewString()

	if to == "" {
		d.log.Warn("notification skipped, recipient has no email",
			zap.String("correlation_id", correlationID),
			zap.String("subject", subject),
		)
		return
	}

	msg := []byte(fmt.Sprintf("From: %s\r\nTo: %s\r\nSubject: %s\r\n\r\n%s", d.from, to, subject, body))

	addr := d.host + ":" + d.port
	if err := smtp.SendMail(addr, nil, d.from, []string{to}, msg); err != nil {
		d.log.Error("failed to send notification",
			zap.String("correlation_id", correlationID),
			zap.String("to", to),
			zap.String("subject", subject),
			zap.Error(err),
		)
		return
	}

	d.log.Info("notification sent",
		zap.String("correlation_id", correlationID),
		zap.String("to", to),
		zap.String("subject", subject),
	)
}

// NoopDispatcher logs instead of sending. Used in tests and unconfigured
// environments.
type NoopDispatcher struct {
	log *zap.Logger
}

func (d *NoopDispatcher) NotifyApproved(user models.User, orderNumber int) {
	d.log.Info("notification (noop): order approved",
		zap.Int("order_number", orderNumber), zap.String("to", user.Email))
}

func (d *NoopDispatcher) NotifyCanceled(user models.User, orderNumber int) {
	d.log.Info("notification (noop): order canceled",
		zap.Int("order_number", orderNumber), zap.String("to", user.Email))
}

func (d *NoopDispatcher) NotifyDistributionFailure(user models.User) {
	d.log.Info("notification (noop): distribution failure", zap.String("to", user.Email))
}
