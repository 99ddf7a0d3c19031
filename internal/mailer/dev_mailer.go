package mailer

import (
	"github.com/patwikx/twc-platform/pkg/logger"
)

// DevMailer logs instead of sending, so local stacks need no SMTP.
type DevMailer struct{}

func NewDevMailer() *DevMailer {
	return &DevMailer{}
}

func (d *DevMailer) SendBookingConfirmation(toEmail, toName, shortRef, manageURL string, totalAmount float64) error {
	logger.Info("[DEV MAIL] Booking confirmation",
		"to", toEmail,
		"name", toName,
		"short_ref", shortRef,
		"total_amount", totalAmount,
		"manage_url", manageURL,
	)
	return nil
}

func (d *DevMailer) SendPaymentReceipt(toEmail, shortRef string, amountPaid float64) error {
	logger.Info("[DEV MAIL] Payment receipt",
		"to", toEmail,
		"short_ref", shortRef,
		"amount_paid", amountPaid,
	)
	return nil
}

func (d *DevMailer) SendCancellation(toEmail, shortRef string) error {
	logger.Info("[DEV MAIL] Cancellation notice",
		"to", toEmail,
		"short_ref", shortRef,
	)
	return nil
}

func (d *DevMailer) SendExpiryNotice(toEmail, shortRef string) error {
	logger.Info("[DEV MAIL] Expiry notice",
		"to", toEmail,
		"short_ref", shortRef,
	)
	return nil
}
