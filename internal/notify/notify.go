package notify

import (
	"context"
	"fmt"
	"net/smtp"
	"strings"

	"tixwatch-backend/internal/model"
	"tixwatch-backend/internal/validator"

	"github.com/jordan-wright/email"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
)

var tracer = otel.Tracer("tixwatch.internal.notify")

type SmtpConfig struct {
	Server       string   `json:"server"`
	Port         int      `json:"port"`
	EmailAddress string   `json:"email_address"`
	Password     string   `json:"password"`
	Recipients   []string `json:"recipients"`
}

func (c SmtpConfig) Enabled() bool {
	return c.Server != "" && len(c.Recipients) > 0
}

func (c SmtpConfig) addr() string {
	return fmt.Sprintf("%s:%d", c.Server, c.Port)
}

// Send delivers a message. It matches (*email.Email).Send with the message
// pulled out as a parameter.
type Send func(mail *email.Email, addr string, auth smtp.Auth) error

func sendMail(mail *email.Email, addr string, auth smtp.Auth) error {
	return mail.Send(addr, auth)
}

type Notifier struct {
	config SmtpConfig
	send   Send
}

func NewNotifier(config SmtpConfig) Notifier {
	return Notifier{config: config, send: sendMail}
}

// WithSend replaces how messages are delivered.
func (n Notifier) WithSend(send Send) Notifier {
	n.send = send
	return n
}

// Subject summarizes report in one line.
func Subject(report model.ValidationReport) string {
	return fmt.Sprintf(
		"[tixwatch] %d mismatch, %d warning of %d records",
		report.Summary.Mismatch,
		report.Summary.Warning,
		report.Summary.Total,
	)
}

// ReportRun mails the markdown rendering of report to the recipients. A
// run where every record is ok is not reported and false is returned.
func (n Notifier) ReportRun(ctx context.Context, report model.ValidationReport) (bool, error) {
	ctx, span := tracer.Start(ctx, "ReportRun")
	defer span.End()

	if report.Summary.Mismatch == 0 && report.Summary.Warning == 0 {
		return false, nil
	}
	span.SetAttributes(attribute.Int("recipients", len(n.config.Recipients)))

	mail := email.NewEmail()
	mail.From = fmt.Sprintf("tixwatch <%s>", n.config.EmailAddress)
	mail.To = n.config.Recipients
	mail.Subject = Subject(report)
	mail.Text = []byte(validator.RenderMarkdown(report))

	err := n.send(
		mail,
		n.config.addr(),
		smtp.PlainAuth("", n.config.EmailAddress, n.config.Password, n.config.Server),
	)
	if err != nil && strings.Contains(err.Error(), "server doesn't support AUTH") {
		err = n.send(mail, n.config.addr(), nil)
	}
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, "failed to send email")
		return false, err
	}
	return true, nil
}
