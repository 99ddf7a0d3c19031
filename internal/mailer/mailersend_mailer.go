package mailer

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/mailersend/mailersend-go"
)

type MailerSendClient struct {
	client  *mailersend.Mailersend
	from    mailersend.From
	enabled bool
}

func NewMailerSend(apiKey, fromName, fromEmail string) *MailerSendClient {
	m := &MailerSendClient{
		enabled: apiKey != "" && fromEmail != "",
		from: mailersend.From{
			Name:  fromName,
			Email: fromEmail,
		},
	}

	if m.enabled {
		m.client = mailersend.NewMailersend(apiKey)
	}

	return m
}

func (m *MailerSendClient) SendBookingConfirmation(toEmail, toName, shortRef, manageURL string, totalAmount float64) error {
	if !m.enabled {
		return fmt.Errorf("MailerSend not configured")
	}

	subject := fmt.Sprintf("Booking %s received", shortRef)
	html := fmt.Sprintf(`
		<h2>We have your booking!</h2>
		<p>Hi %s,</p>
		<p>Your booking reference is <strong style="font-size: 20px;">%s</strong>.</p>
		<p>Total due: <strong>PHP %.2f</strong></p>
		<p>Your rooms are held while we wait for payment. Unpaid bookings are released after 30 minutes.</p>
		<p><a href="%s" style="background-color: #1a7f5a; color: white; padding: 10px 20px; text-decoration: none; border-radius: 5px;">View or cancel your booking</a></p>
	`, toName, shortRef, totalAmount, manageURL)

	text := fmt.Sprintf("Your booking reference is %s. Total due: PHP %.2f.\n\nManage your booking: %s", shortRef, totalAmount, manageURL)

	return m.sendEmail(toEmail, toName, subject, text, html)
}

func (m *MailerSendClient) SendPaymentReceipt(toEmail, shortRef string, amountPaid float64) error {
	if !m.enabled {
		return fmt.Errorf("MailerSend not configured")
	}

	subject := fmt.Sprintf("Payment received for booking %s", shortRef)
	html := fmt.Sprintf(`
		<h2>Payment received</h2>
		<p>We have received <strong>PHP %.2f</strong> for booking <strong>%s</strong>.</p>
		<p>We look forward to welcoming you!</p>
	`, amountPaid, shortRef)

	text := fmt.Sprintf("We have received PHP %.2f for booking %s.", amountPaid, shortRef)

	return m.sendEmail(toEmail, "", subject, text, html)
}

func (m *MailerSendClient) SendCancellation(toEmail, shortRef string) error {
	if !m.enabled {
		return fmt.Errorf("MailerSend not configured")
	}

	subject := fmt.Sprintf("Booking %s cancelled", shortRef)
	html := fmt.Sprintf(`
		<h2>Booking cancelled</h2>
		<p>Your booking <strong>%s</strong> has been cancelled.</p>
		<p>If this was a mistake, please make a new booking or contact the front desk.</p>
	`, shortRef)

	text := fmt.Sprintf("Your booking %s has been cancelled.", shortRef)

	return m.sendEmail(toEmail, "", subject, text, html)
}

func (m *MailerSendClient) SendExpiryNotice(toEmail, shortRef string) error {
	if !m.enabled {
		return fmt.Errorf("MailerSend not configured")
	}

	subject := fmt.Sprintf("Booking %s expired", shortRef)
	html := fmt.Sprintf(`
		<h2>Booking expired</h2>
		<p>Your booking <strong>%s</strong> was not paid in time and has been released.</p>
		<p>The rooms are available again, so you are welcome to book once more.</p>
	`, shortRef)

	text := fmt.Sprintf("Your booking %s was not paid in time and has been released.", shortRef)

	return m.sendEmail(toEmail, "", subject, text, html)
}

func (m *MailerSendClient) sendEmail(toEmail, toName, subject, text, html string) error {
	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	msg := m.client.Email.NewMessage()
	msg.SetFrom(m.from)
	msg.SetRecipients([]mailersend.Recipient{{Name: toName, Email: toEmail}})
	msg.SetSubject(subject)

	if strings.TrimSpace(text) != "" {
		msg.SetText(text)
	}
	if strings.TrimSpace(html) != "" {
		msg.SetHTML(html)
	}

	_, err := m.client.Email.Send(ctx, msg)
	return err
}
