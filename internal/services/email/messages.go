// Copyright 2025 Oliver Andrich
// Licensed under the EUPL-1.2

package email

import (
	"bytes"
	"fmt"
	"html/template"

	"codeberg.org/mathrix/autonomouslab/internal/models"
)

const (
	brand    = "AutonomousLab"
	operator = "Mathrix"
)

var (
	magicLinkTmpl = template.Must(template.New("magic_link").Parse(
		`<p>Click <a href="{{.URL}}">here</a> to log in to your ebook access.</p>
<p>The link can be used once and expires soon. If you did not ask for it, ignore this email.</p>`))

	contactTmpl = template.Must(template.New("contact").Parse(
		`<h2>New contact request</h2>
<p><strong>Name:</strong> {{.Name}}</p>
<p><strong>Email:</strong> {{.Email}}</p>
{{if .Phone}}<p><strong>Phone:</strong> {{.Phone}}</p>{{end}}
{{if .Message}}<p><strong>Message:</strong></p><p>{{.Message}}</p>{{end}}`))

	paymentTmpl = template.Must(template.New("payment").Parse(
		`<h2>Payment Confirmed</h2>
<p>Thanks for your purchase from <strong>{{.Brand}}</strong>.</p>
<p><strong>Amount paid:</strong> {{.Amount}}</p>
<p>Important: your bank statement may show the charge as <strong>{{.Operator}}</strong>.</p>
<p>This is expected: <strong>{{.Brand}}</strong> is operated by <strong>{{.Operator}}</strong>.</p>
{{if .Support}}<p>If you need help, reply to this email or contact {{.Support}}.</p>{{end}}`))
)

// FormatPence renders an amount in pence as pounds, e.g. £19.99.
func FormatPence(pence int64) string {
	sign := ""
	if pence < 0 {
		sign = "-"
		pence = -pence
	}
	return fmt.Sprintf("%s£%d.%02d", sign, pence/100, pence%100)
}

func render(tmpl *template.Template, data any) (string, error) {
	var buf bytes.Buffer
	if err := tmpl.Execute(&buf, data); err != nil {
		return "", fmt.Errorf("rendering %s: %w", tmpl.Name(), err)
	}
	return buf.String(), nil
}

func magicLinkMessage(to, url string) (*Message, error) {
	html, err := render(magicLinkTmpl, map[string]string{"URL": url})
	if err != nil {
		return nil, err
	}
	return &Message{
		To:      to,
		Subject: "Your Magic Login Link",
		HTML:    html,
		Text:    "Open this link to log in to your ebook access:\n\n" + url + "\n",
	}, nil
}

func contactMessage(owner string, req *models.ContactRequest) (*Message, error) {
	data := map[string]string{"Name": req.Name, "Email": req.Email}
	text := fmt.Sprintf("Name: %s\nEmail: %s\n", req.Name, req.Email)
	if req.Phone != nil && *req.Phone != "" {
		data["Phone"] = *req.Phone
		text += "Phone: " + *req.Phone + "\n"
	}
	if req.Message != nil && *req.Message != "" {
		data["Message"] = *req.Message
		text += "\n" + *req.Message + "\n"
	}

	html, err := render(contactTmpl, data)
	if err != nil {
		return nil, err
	}
	return &Message{
		To:      owner,
		ReplyTo: req.Email,
		Subject: fmt.Sprintf("New contact request from %s", req.Name),
		HTML:    html,
		Text:    text,
	}, nil
}

func paymentConfirmationMessage(to string, pence int64, support string) (*Message, error) {
	amount := FormatPence(pence)
	html, err := render(paymentTmpl, map[string]string{
		"Brand":    brand,
		"Operator": operator,
		"Amount":   amount,
		"Support":  support,
	})
	if err != nil {
		return nil, err
	}

	text := fmt.Sprintf("Thanks for your purchase from %s.\n\nAmount paid: %s\n\n"+
		"Your bank statement may show the charge as %s. %s is operated by %s.\n",
		brand, amount, operator, brand, operator)

	return &Message{
		To:      to,
		Subject: fmt.Sprintf("Payment confirmed: %s (charged by %s)", brand, operator),
		HTML:    html,
		Text:    text,
	}, nil
}
