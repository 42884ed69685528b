package notify

import (
	"context"
	"fmt"
	"net/smtp"
	"strings"
	"time"

	"coursewatch/internal/components/assert"
	"coursewatch/internal/components/telemetry"

	"github.com/jordan-wright/email"
)

const report_email_send = "email.send"

type EmailOptions struct {
	SmtpHost string
	SmtpPort int
	Username string
	Password string
	From     string
	To       []string
	Subject  string
}

// Email sends alerts over SMTP as html mail.
type Email struct {
	opts EmailOptions
	tel  telemetry.API
}

func NewEmail(opts EmailOptions, tel telemetry.API) Email {
	assert.NotEmptyStr(opts.SmtpHost)
	assert.NotEmptyStr(opts.From)
	assert.NotNil(tel)
	if len(opts.To) == 0 {
		panic("email notifier needs at least one recipient")
	}
	if opts.Subject == "" {
		opts.Subject = "coursewatch"
	}
	return Email{
		opts: opts,
		tel:  telemetry.NewScopedAPI("notify", tel),
	}
}

func (e Email) Send(ctx context.Context, text string) bool {
	msg := email.NewEmail()
	msg.From = e.opts.From
	msg.To = e.opts.To
	msg.Subject = e.opts.Subject
	msg.Text = []byte(stripTags(text))
	msg.HTML = []byte(strings.ReplaceAll(text, "\n", "<br>\n"))

	var auth smtp.Auth
	if e.opts.Username != "" {
		auth = smtp.PlainAuth("", e.opts.Username, e.opts.Password, e.opts.SmtpHost)
	}

	addr := fmt.Sprintf("%s:%d", e.opts.SmtpHost, e.opts.SmtpPort)
	done := make(chan error, 1)
	go func() {
		err := msg.Send(addr, auth)
		if err != nil && auth != nil && strings.Contains(err.Error(), "server doesn't support AUTH") {
			err = msg.Send(addr, nil)
		}
		done <- err
	}()

	select {
	case err := <-done:
		if err != nil {
			e.tel.ReportBroken(report_email_send, err)
			return false
		}
		return true
	case <-ctx.Done():
		e.tel.ReportBroken(report_email_send, ctx.Err())
		return false
	case <-time.After(time.Second * 30):
		e.tel.ReportBroken(report_email_send, fmt.Errorf("timed out sending to %s", addr))
		return false
	}
}

func stripTags(text string) string {
	var out strings.Builder
	inTag := false
	for _, r := range text {
		switch {
		case r == '<':
			inTag = true
		case r == '>' && inTag:
			inTag = false
		case !inTag:
			out.WriteRune(r)
		}
	}
	return out.String()
}
