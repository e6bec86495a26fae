package pdf

import (
	"bytes"
	"fmt"
	"strconv"
	"strings"
	"time"

	"github.com/jung-kurt/gofpdf"

	"safeletstays/internal/models"
)

const (
	companyName    = "Safe Let Stays"
	companyAddress = "123 Sheffield Street, Sheffield, S1 1AA"
	companyContact = "hello@safeletstays.co.uk | +44 114 123 4567"
)

// GenerateReceipt renders the booking receipt document and returns its bytes.
// Layout mirrors the emailed invoice: company header, booking details table,
// payment summary, footer.
func GenerateReceipt(booking *models.Booking, property *models.Property) ([]byte, error) {
	pdf := gofpdf.New("P", "mm", "A4", "")
	tr := pdf.UnicodeTranslatorFromDescriptor("")
	pdf.SetMargins(20, 20, 20)
	pdf.AddPage()

	// Company header
	pdf.SetFont("Helvetica", "B", 14)
	pdf.CellFormat(0, 7, companyName, "", 1, "L", false, 0, "")
	pdf.SetFont("Helvetica", "", 10)
	pdf.CellFormat(0, 5, companyAddress, "", 1, "L", false, 0, "")
	pdf.CellFormat(0, 5, companyContact, "", 1, "L", false, 0, "")
	pdf.Ln(8)

	pdf.SetFont("Helvetica", "B", 16)
	pdf.CellFormat(0, 10, fmt.Sprintf("INVOICE / RECEIPT #%d", booking.ID), "", 1, "C", false, 0, "")
	pdf.Ln(4)

	rows := [][2]string{
		{"Reference:", fmt.Sprintf("BOOK-%d", booking.ID)},
		{"Date Issued:", time.Now().Format("02 Jan 2006")},
		{"Guest Name:", booking.GuestName},
		{"Email:", booking.GuestEmail},
		{"Property:", property.Title},
		{"Check-in:", booking.CheckIn.Format("02 Jan 2006")},
		{"Check-out:", booking.CheckOut.Format("02 Jan 2006")},
		{"Nights:", strconv.Itoa(booking.Nights())},
		{"Guests:", strconv.Itoa(booking.Guests)},
		{"Status:", strings.ToUpper(booking.Status)},
	}
	if booking.CompanyName != "" {
		rows = append(rows, [2]string{"Billed To:", booking.CompanyName})
	}

	pdf.SetFont("Helvetica", "", 11)
	for _, row := range rows {
		pdf.SetFont("Helvetica", "B", 11)
		pdf.CellFormat(50, 7, row[0], "", 0, "L", false, 0, "")
		pdf.SetFont("Helvetica", "", 11)
		pdf.CellFormat(0, 7, tr(row[1]), "", 1, "L", false, 0, "")
	}
	pdf.Ln(8)

	// Payment summary
	pdf.SetFont("Helvetica", "B", 13)
	pdf.CellFormat(0, 8, "Payment Summary", "", 1, "L", false, 0, "")

	total := int64(0)
	if booking.TotalPrice != nil {
		total = *booking.TotalPrice
	}

	pdf.SetFont("Helvetica", "", 11)
	pdf.CellFormat(110, 8, fmt.Sprintf("Accommodation (%d nights)", booking.Nights()), "", 0, "L", false, 0, "")
	pdf.CellFormat(0, 8, tr(FormatGBP(total-booking.CleaningFee)), "", 1, "R", false, 0, "")
	if booking.CleaningFee > 0 {
		pdf.CellFormat(110, 8, "Cleaning fee", "", 0, "L", false, 0, "")
		pdf.CellFormat(0, 8, tr(FormatGBP(booking.CleaningFee)), "", 1, "R", false, 0, "")
	}
	pdf.SetFont("Helvetica", "B", 11)
	pdf.CellFormat(110, 8, "Total Paid", "T", 0, "L", false, 0, "")
	pdf.CellFormat(0, 8, tr(FormatGBP(total)), "T", 1, "R", false, 0, "")
	pdf.Ln(16)

	pdf.SetFont("Helvetica", "", 11)
	pdf.CellFormat(0, 6, "Thank you for choosing Safe Let Stays!", "", 1, "L", false, 0, "")
	pdf.SetFont("Helvetica", "I", 10)
	pdf.CellFormat(0, 6, "This document serves as a formal invoice and receipt of payment.", "", 1, "L", false, 0, "")

	var buf bytes.Buffer
	if err := pdf.Output(&buf); err != nil {
		return nil, fmt.Errorf("failed to render receipt: %w", err)
	}

	return buf.Bytes(), nil
}

// ReceiptFilename names the stored receipt document for a booking
func ReceiptFilename(bookingID int64) string {
	return fmt.Sprintf("receipt_%d.pdf", bookingID)
}

// FormatGBP renders a minor-unit amount as pounds
func FormatGBP(pence int64) string {
	sign := ""
	if pence < 0 {
		sign = "-"
		pence = -pence
	}
	return fmt.Sprintf("%s£%d.%02d", sign, pence/100, pence%100)
}
