package email

import (
	"encoding/base64"
	"fmt"

	mailjet "github.com/mailjet/mailjet-apiv3-go/v4"

	"safeletstays/internal/models"
)

type Config struct {
	APIKey    string
	APISecret string
	FromEmail string
	FromName  string
	BCCEmail  string // operator copy for filing, optional
}

// Client sends transactional mail through Mailjet
type Client struct {
	mj  *mailjet.Client
	cfg Config
}

func NewClient(cfg Config) *Client {
	return &Client{
		mj:  mailjet.NewMailjetClient(cfg.APIKey, cfg.APISecret),
		cfg: cfg,
	}
}

// Enabled reports whether API credentials are configured
func (c *Client) Enabled() bool {
	return c.cfg.APIKey != "" && c.cfg.APISecret != ""
}

// SendReceipt delivers the booking confirmation with the receipt PDF attached.
// A delivery failure comes back as an error; it never panics into the caller's
// confirmation flow.
func (c *Client) SendReceipt(booking *models.Booking, property *models.Property, receiptPDF []byte) error {
	if !c.Enabled() {
		return fmt.Errorf("email delivery is not configured")
	}

	subject := fmt.Sprintf("Booking Confirmation - Reference #%d", booking.ID)
	body := fmt.Sprintf(`Dear %s,

Thank you for booking with Safe Let Stays!

Your booking for %s has been confirmed.
Please find your receipt and invoice attached to this email.

Booking Reference: BOOK-%d
Check-in: %s
Check-out: %s

We look forward to hosting you.

Best regards,
The Safe Let Stays Team
`,
		booking.GuestName,
		property.Title,
		booking.ID,
		booking.CheckIn.Format("02 Jan 2006"),
		booking.CheckOut.Format("02 Jan 2006"),
	)

	message := mailjet.InfoMessagesV31{
		From: &mailjet.RecipientV31{
			Email: c.cfg.FromEmail,
			Name:  c.cfg.FromName,
		},
		To: &mailjet.RecipientsV31{
			{
				Email: booking.GuestEmail,
				Name:  booking.GuestName,
			},
		},
		Subject:  subject,
		TextPart: body,
		Attachments: &mailjet.AttachmentsV31{
			{
				ContentType:   "application/pdf",
				Filename:      fmt.Sprintf("receipt_%d.pdf", booking.ID),
				Base64Content: base64.StdEncoding.EncodeToString(receiptPDF),
			},
		},
		CustomID: fmt.Sprintf("booking-%d", booking.ID),
	}

	if c.cfg.BCCEmail != "" {
		message.Bcc = &mailjet.RecipientsV31{
			{Email: c.cfg.BCCEmail},
		}
	}

	messages := mailjet.MessagesV31{Info: []mailjet.InfoMessagesV31{message}}

	if _, err := c.mj.SendMailV31(&messages); err != nil {
		return fmt.Errorf("failed to send receipt email: %w", err)
	}

	return nil
}
