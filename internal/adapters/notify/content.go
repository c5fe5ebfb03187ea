// Package notify delivers booking decisions to customers by email and
// WhatsApp. Channels are independent and never return errors to callers;
// each reports a ports.ChannelResult instead.
package notify

import (
	"bytes"
	"fmt"
	"html/template"
	"strconv"
	"strings"

	"github.com/samirrijal/seatpass/internal/core/domain"
)

const (
	ChannelEmail    = "email"
	ChannelWhatsApp = "whatsapp"
)

// defaultCountryCode is prepended to phone numbers given without one.
const defaultCountryCode = "+91"

// FormatPhone returns phone in E.164 form, assuming India when no country
// code is present.
func FormatPhone(phone string) string {
	phone = strings.ReplaceAll(strings.TrimSpace(phone), " ", "")
	if strings.HasPrefix(phone, "+") {
		return phone
	}
	return defaultCountryCode + phone
}

// TicketView is the rendering model shared by the email body, the WhatsApp
// text and the e-ticket.
type TicketView struct {
	BookingID string
	Name      string
	From      string
	To        string
	Date      string
	Time      string
	Seats     string
	Pickup    string
	Amount    string
	Vehicle   string
	Reason    string
}

// NewTicketView flattens a booking and its trip for templates.
func NewTicketView(b domain.Booking, t domain.Trip) TicketView {
	seats := make([]string, len(b.SeatNumbers))
	for i, n := range b.SeatNumbers {
		seats[i] = strconv.Itoa(n)
	}
	v := TicketView{
		BookingID: b.ID,
		Name:      b.Customer.Name,
		From:      t.Route.From,
		To:        t.Route.To,
		Date:      t.DepartureDate.Format("02/01/2006"),
		Time:      t.DepartureTime,
		Seats:     strings.Join(seats, ", "),
		Pickup:    b.PickupLocation,
		Amount:    formatRupees(b.Payment.Amount),
	}
	if t.Vehicle != nil {
		v.Vehicle = fmt.Sprintf("%s (%s)", t.Vehicle.Name, t.Vehicle.RegistrationNumber)
	}
	return v
}

func formatRupees(v float64) string {
	if v == float64(int64(v)) {
		return fmt.Sprintf("Rs. %d", int64(v))
	}
	return fmt.Sprintf("Rs. %.2f", v)
}

var confirmationHTML = template.Must(template.New("confirmation").Parse(`<!DOCTYPE html>
<html>
<body style="font-family: Arial, sans-serif; line-height: 1.6; color: #333;">
  <div style="max-width: 600px; margin: 0 auto; padding: 20px;">
    <h1 style="color: #667eea;">Booking Confirmed!</h1>
    <p>Dear {{.Name}},</p>
    <p>Your booking has been confirmed by our team.</p>
    <table style="width: 100%; border-collapse: collapse;">
      <tr><td><b>Route</b></td><td>{{.From}} &rarr; {{.To}}</td></tr>
      <tr><td><b>Date</b></td><td>{{.Date}}</td></tr>
      <tr><td><b>Time</b></td><td>{{.Time}}</td></tr>
      <tr><td><b>Seat Numbers</b></td><td>{{.Seats}}</td></tr>
      <tr><td><b>Pickup Location</b></td><td>{{.Pickup}}</td></tr>
      <tr><td><b>Total Amount</b></td><td>{{.Amount}}</td></tr>
    </table>
    <p><b>Important:</b> Please arrive at the pickup location 15 minutes before departure time.</p>
    <p>Your e-ticket is attached.</p>
    <p>Safe travels!<br>SeatPass Team</p>
  </div>
</body>
</html>`))

var rejectionHTML = template.Must(template.New("rejection").Parse(`<!DOCTYPE html>
<html>
<body style="font-family: Arial, sans-serif; line-height: 1.6; color: #333;">
  <div style="max-width: 600px; margin: 0 auto; padding: 20px;">
    <h1 style="color: #ef4444;">Booking Update</h1>
    <p>Dear {{.Name}},</p>
    <p>We regret to inform you that your booking request has been declined.</p>
    {{if .Reason}}<p style="background: #fee2e2; padding: 15px;"><b>Reason:</b> {{.Reason}}</p>{{end}}
    <p>If you believe this is an error or would like to make a new booking, please contact our support team.</p>
    <p>Thank you for your understanding.<br>SeatPass Team</p>
  </div>
</body>
</html>`))

func render(t *template.Template, v TicketView) (string, error) {
	var buf bytes.Buffer
	if err := t.Execute(&buf, v); err != nil {
		return "", fmt.Errorf("render %s: %w", t.Name(), err)
	}
	return buf.String(), nil
}

// ConfirmationSubject is the email subject for an accepted booking.
func ConfirmationSubject(v TicketView) string {
	return fmt.Sprintf("Booking Confirmed - %s to %s", v.From, v.To)
}

// RejectionSubject is the email subject for a rejected booking.
const RejectionSubject = "Booking Update - Action Required"

// ConfirmationText is the WhatsApp body for an accepted booking.
func ConfirmationText(v TicketView) string {
	return fmt.Sprintf("*Booking Confirmed!*\n\nDear %s,\n\nYour booking has been confirmed:\n\n"+
		"Route: %s -> %s\nDate: %s\nTime: %s\nSeats: %s\nPickup: %s\nAmount: %s\n\n"+
		"Please arrive 15 minutes early. Safe travels!\n\n- SeatPass Team",
		v.Name, v.From, v.To, v.Date, v.Time, v.Seats, v.Pickup, v.Amount)
}

// RejectionText is the WhatsApp body for a rejected booking.
func RejectionText(v TicketView) string {
	var reason string
	if v.Reason != "" {
		reason = "Reason: " + v.Reason + "\n\n"
	}
	return fmt.Sprintf("Dear %s,\n\nYour booking request has been declined.\n\n%sPlease contact support for assistance.\n\n- SeatPass Team",
		v.Name, reason)
}
