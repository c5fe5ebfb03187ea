package notify

import (
	"bytes"
	"fmt"
	"time"

	"github.com/phpdave11/gofpdf"
)

// ETicketPDF renders a one-page ticket for an accepted booking and returns
// it with a suggested file name.
func ETicketPDF(v TicketView) ([]byte, string, error) {
	pdf := gofpdf.New("P", "mm", "A4", "")
	pdf.SetTitle("E-Ticket", false)
	pdf.AddPage()
	pdf.SetFont("Helvetica", "B", 18)
	pdf.Cell(0, 10, "E-TICKET")
	pdf.Ln(12)

	pdf.SetFont("Helvetica", "", 12)
	lines := []string{
		"Booking     : " + v.BookingID,
		"Passenger   : " + v.Name,
		"Route       : " + v.From + " -> " + v.To,
		"Date        : " + v.Date,
		"Departure   : " + v.Time,
		"Seats       : " + v.Seats,
		"Pickup      : " + v.Pickup,
		"Amount      : " + v.Amount,
	}
	if v.Vehicle != "" {
		lines = append(lines, "Vehicle     : "+v.Vehicle)
	}
	for _, s := range lines {
		pdf.Cell(0, 7, s)
		pdf.Ln(7)
	}

	pdf.Ln(6)
	pdf.SetFont("Helvetica", "I", 10)
	pdf.MultiCell(0, 6, "Please show this ticket at boarding and arrive 15 minutes before departure.", "", "", false)
	pdf.Cell(0, 6, "Issued "+time.Now().Format("2006-01-02 15:04"))

	var buf bytes.Buffer
	if err := pdf.Output(&buf); err != nil {
		return nil, "", fmt.Errorf("render e-ticket: %w", err)
	}
	return buf.Bytes(), fmt.Sprintf("e-ticket-%s.pdf", v.BookingID), nil
}
