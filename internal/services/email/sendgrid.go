// Copyright 2025 Oliver Andrich
// Licensed under the EUPL-1.2

package email

import (
	"context"
	"fmt"

	"github.com/sendgrid/sendgrid-go"
	sgmail "github.com/sendgrid/sendgrid-go/helpers/mail"
)

const sendGridHost = "https://api.sendgrid.com"

// SendGridTransport sends mail through the SendGrid v3 API.
type SendGridTransport struct {
	apiKey   string
	host     string
	from     string
	fromName string
}

// NewSendGridTransport creates a transport for the public SendGrid API.
func NewSendGridTransport(apiKey, from, fromName string) *SendGridTransport {
	return &SendGridTransport{apiKey: apiKey, host: sendGridHost, from: from, fromName: fromName}
}

// WithHost points the transport at another API host.
func (t *SendGridTransport) WithHost(host string) *SendGridTransport {
	t.host = host
	return t
}

// Send posts msg to /v3/mail/send.
func (t *SendGridTransport) Send(ctx context.Context, msg *Message) error {
	m := sgmail.NewSingleEmail(
		sgmail.NewEmail(t.fromName, t.from),
		msg.Subject,
		sgmail.NewEmail("", msg.To),
		msg.Text,
		msg.HTML,
	)
	if msg.ReplyTo != "" {
		m.SetReplyTo(sgmail.NewEmail("", msg.ReplyTo))
	}

	req := sendgrid.GetRequest(t.apiKey, "/v3/mail/send", t.host)
	req.Method = "POST"
	req.Body = sgmail.GetRequestBody(m)

	resp, err := sendgrid.MakeRequestWithContext(ctx, req)
	if err != nil {
		return fmt.Errorf("calling sendgrid: %w", err)
	}
	if resp.StatusCode >= 300 {
		return fmt.Errorf("sendgrid returned status %d", resp.StatusCode)
	}
	return nil
}
