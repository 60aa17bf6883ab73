package notify

import (
	"context"
	"errors"
	"fmt"
	"html"

	brevo "github.com/getbrevo/brevo-go/lib"
)

// Brevo delivers alerts through the Brevo transactional email API.
type Brevo struct {
	client *brevo.APIClient
	from   string
	to     string
}

// NewBrevo returns nil unless an API key and both addresses are set.
func NewBrevo(apiKey, from, to string) *Brevo {
	if apiKey == "" || from == "" || to == "" {
		return nil
	}
	cfg := brevo.NewConfiguration()
	cfg.AddDefaultHeader("api-key", apiKey)
	return &Brevo{client: brevo.NewAPIClient(cfg), from: from, to: to}
}

func (b *Brevo) Send(ctx context.Context, title, text string) error {
	if b == nil {
		return errors.New("brevo disabled")
	}
	email := brevo.SendSmtpEmail{
		Sender: &brevo.SendSmtpEmailSender{
			Name:  "Healthwatch",
			Email: b.from,
		},
		To: []brevo.SendSmtpEmailTo{
			{Email: b.to},
		},
		Subject:     title,
		HtmlContent: fmt.Sprintf("<pre>%s</pre>", html.EscapeString(text)),
		TextContent: text,
	}
	if _, _, err := b.client.TransactionalEmailsApi.SendTransacEmail(ctx, email); err != nil {
		return fmt.Errorf("brevo send: %w", err)
	}
	return nil
}
