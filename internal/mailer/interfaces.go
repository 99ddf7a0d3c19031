package mailer

type Service interface {
	SendBookingConfirmation(toEmail, toName, shortRef, manageURL string, totalAmount float64) error
	SendPaymentReceipt(toEmail, shortRef string, amountPaid float64) error
	SendCancellation(toEmail, shortRef string) error
	SendExpiryNotice(toEmail, shortRef string) error
}
