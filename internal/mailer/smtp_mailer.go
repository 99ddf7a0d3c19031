package mailer

import (
	"bytes"
	"crypto/tls"
	"fmt"
	"net/smtp"
	"strings"
)

type SMTPMailer struct {
	Host   string
	Port   int
	From   string
	User   string
	Pass   string
	UseTLS bool
}

func NewSMTPMailer(host string, port int, from, user, pass string, useTLS bool) *SMTPMailer {
	return &SMTPMailer{
		Host:   strings.TrimSpace(host),
		Port:   port,
		From:   strings.TrimSpace(from),
		User:   strings.TrimSpace(user),
		Pass:   strings.TrimSpace(pass),
		UseTLS: useTLS,
	}
}

func (s *SMTPMailer) SendBookingConfirmation(toEmail, toName, shortRef, manageURL string, totalAmount float64) error {
	subject := fmt.Sprintf("Booking %s received", shortRef)
	text := fmt.Sprintf("Your booking reference is %s. Total due: PHP %.2f.\n\nManage your booking: %s", shortRef, totalAmount, manageURL)
	html := fmt.Sprintf(`
		<h2>We have your booking!</h2>
		<p>Hi %s,</p>
		<p>Your booking reference is <strong style="font-size: 20px;">%s</strong>.</p>
		<p>Total due: <strong>PHP %.2f</strong></p>
		<p>Your rooms are held while we wait for payment. Unpaid bookings are released after 30 minutes.</p>
		<p><a href="%s" style="background-color: #1a7f5a; color: white; padding: 10px 20px; text-decoration: none; border-radius: 5px;">View or cancel your booking</a></p>
	`, toName, shortRef, totalAmount, manageURL)

	return s.sendEmail(toEmail, toName, subject, text, html)
}

func (s *SMTPMailer) SendPaymentReceipt(toEmail, shortRef string, amountPaid float64) error {
	subject := fmt.Sprintf("Payment received for booking %s", shortRef)
	text := fmt.Sprintf("We have received PHP %.2f for booking %s.", amountPaid, shortRef)
	html := fmt.Sprintf(`
		<h2>Payment received</h2>
		<p>We have received <strong>PHP %.2f</strong> for booking <strong>%s</strong>.</p>
		<p>We look forward to welcoming you!</p>
	`, amountPaid, shortRef)

	return s.sendEmail(toEmail, "", subject, text, html)
}

func (s *SMTPMailer) SendCancellation(toEmail, shortRef string) error {
	subject := fmt.Sprintf("Booking %s cancelled", shortRef)
	text := fmt.Sprintf("Your booking %s has been cancelled.", shortRef)
	html := fmt.Sprintf(`
		<h2>Booking cancelled</h2>
		<p>Your booking <strong>%s</strong> has been cancelled.</p>
		<p>If this was a mistake, please make a new booking or contact the front desk.</p>
	`, shortRef)

	return s.sendEmail(toEmail, "", subject, text, html)
}

func (s *SMTPMailer) SendExpiryNotice(toEmail, shortRef string) error {
	subject := fmt.Sprintf("Booking %s expired", shortRef)
	text := fmt.Sprintf("Your booking %s was not paid in time and has been released.", shortRef)
	html := fmt.Sprintf(`
		<h2>Booking expired</h2>
		<p>Your booking <strong>%s</strong> was not paid in time and has been released.</p>
		<p>The rooms are available again, so you are welcome to book once more.</p>
	`, shortRef)

	return s.sendEmail(toEmail, "", subject, text, html)
}

func (s *SMTPMailer) sendEmail(toEmail, toName, subject, text, html string) error {
	toEmail = strings.TrimSpace(toEmail)
	if toEmail == "" {
		return fmt.Errorf("empty recipient email")
	}

	var buf bytes.Buffer
	boundary := "mixed-boundary"

	fmt.Fprintf(&buf, "From: %s\r\n", s.From)
	fmt.Fprintf(&buf, "To: %s\r\n", toEmail)
	fmt.Fprintf(&buf, "Subject: %s\r\n", subject)
	fmt.Fprintf(&buf, "MIME-Version: 1.0\r\n")
	fmt.Fprintf(&buf, "Content-Type: multipart/alternative; boundary=%s\r\n\r\n", boundary)

	// Text part
	fmt.Fprintf(&buf, "--%s\r\n", boundary)
	fmt.Fprintf(&buf, "Content-Type: text/plain; charset=utf-8\r\n\r\n")
	fmt.Fprintf(&buf, "%s\r\n\r\n", text)

	// HTML part
	fmt.Fprintf(&buf, "--%s\r\n", boundary)
	fmt.Fprintf(&buf, "Content-Type: text/html; charset=utf-8\r\n\r\n")
	fmt.Fprintf(&buf, "%s\r\n\r\n", html)

	fmt.Fprintf(&buf, "--%s--\r\n", boundary)

	addr := fmt.Sprintf("%s:%d", s.Host, s.Port)

	// Mailpit or development SMTP (no auth, no TLS)
	if !s.UseTLS && s.User == "" {
		return smtp.SendMail(addr, nil, s.From, []string{toEmail}, buf.Bytes())
	}

	var auth smtp.Auth
	if s.User != "" {
		auth = smtp.PlainAuth("", s.User, s.Pass, s.Host)
	}

	// Try plain SMTP first (with STARTTLS if supported)
	if err := smtp.SendMail(addr, auth, s.From, []string{toEmail}, buf.Bytes()); err == nil {
		return nil
	}

	// Fallback to implicit TLS (port 465)
	if s.UseTLS {
		tlsCfg := &tls.Config{ServerName: s.Host, InsecureSkipVerify: false}
		conn, err := tls.Dial("tcp", addr, tlsCfg)
		if err != nil {
			return err
		}
		defer conn.Close()

		c, err := smtp.NewClient(conn, s.Host)
		if err != nil {
			return err
		}
		defer c.Quit()

		if s.User != "" {
			if err := c.Auth(auth); err != nil {
				return err
			}
		}

		if err := c.Mail(s.From); err != nil {
			return err
		}
		if err := c.Rcpt(toEmail); err != nil {
			return err
		}

		w, err := c.Data()
		if err != nil {
			return err
		}

		if _, err := w.Write(buf.Bytes()); err != nil {
			return err
		}

		return w.Close()
	}

	return fmt.Errorf("smtp send failed")
}
