// Package export renders the booking ledger as an Excel workbook for admins.
package export

import (
	"fmt"
	"io"
	"os"
	"path/filepath"
	"sort"
	"time"

	"tourbook/internal/models"

	"github.com/xuri/excelize/v2"
)

const (
	bookingsSheet = "Bookings"
	summarySheet  = "Summary"
)

var bookingHeaders = []string{
	"ID", "Tour", "Booking date", "Guest name", "Guest email", "Guest phone",
	"Guests", "Total price", "Status", "Payment", "Special requests", "Created at",
}

// statusFill maps a booking status to its row colour.
var statusFill = map[string]string{
	models.StatusPending:   "#FFEB9C",
	models.StatusConfirmed: "#C6EFCE",
	models.StatusCompleted: "#DDEBF7",
	models.StatusCancelled: "#FFC7CE",
}

// Workbook builds the bookings workbook: one row per booking plus a per-tour summary.
func Workbook(bookings []*models.Booking, generatedAt time.Time) (*excelize.File, error) {
	f := excelize.NewFile()

	index, err := f.NewSheet(bookingsSheet)
	if err != nil {
		_ = f.Close()
		return nil, fmt.Errorf("error creating sheet: %w", err)
	}
	f.SetActiveSheet(index)

	if err := writeBookingRows(f, bookings); err != nil {
		_ = f.Close()
		return nil, err
	}
	if err := writeSummary(f, bookings, generatedAt); err != nil {
		_ = f.Close()
		return nil, err
	}

	_ = f.DeleteSheet("Sheet1")
	return f, nil
}

// Write streams the workbook to w.
func Write(w io.Writer, bookings []*models.Booking, generatedAt time.Time) error {
	f, err := Workbook(bookings, generatedAt)
	if err != nil {
		return err
	}
	defer f.Close()

	if err := f.Write(w); err != nil {
		return fmt.Errorf("error writing workbook: %w", err)
	}
	return nil
}

// Save writes the workbook into dir and returns the file path.
func Save(dir string, bookings []*models.Booking, generatedAt time.Time) (string, error) {
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return "", fmt.Errorf("error creating export directory: %w", err)
	}

	f, err := Workbook(bookings, generatedAt)
	if err != nil {
		return "", err
	}
	defer f.Close()

	filePath := filepath.Join(dir, FileName(generatedAt))
	if err := f.SaveAs(filePath); err != nil {
		return "", fmt.Errorf("error saving file: %w", err)
	}
	return filePath, nil
}

func FileName(generatedAt time.Time) string {
	return fmt.Sprintf("bookings_export_%s.xlsx", generatedAt.Format("2006-01-02_15-04-05"))
}

func writeBookingRows(f *excelize.File, bookings []*models.Booking) error {
	headerStyle, err := f.NewStyle(&excelize.Style{
		Fill: excelize.Fill{Type: "pattern", Color: []string{"#DDEBF7"}, Pattern: 1},
		Font: &excelize.Font{Bold: true},
	})
	if err != nil {
		return fmt.Errorf("error creating style: %w", err)
	}

	for i, header := range bookingHeaders {
		cell, _ := excelize.CoordinatesToCellName(i+1, 1)
		_ = f.SetCellValue(bookingsSheet, cell, header)
	}
	lastHeader, _ := excelize.CoordinatesToCellName(len(bookingHeaders), 1)
	_ = f.SetCellStyle(bookingsSheet, "A1", lastHeader, headerStyle)

	styles := make(map[string]int, len(statusFill))
	for status, color := range statusFill {
		id, err := f.NewStyle(&excelize.Style{
			Fill:      excelize.Fill{Type: "pattern", Color: []string{color}, Pattern: 1},
			Alignment: &excelize.Alignment{Vertical: "top", WrapText: true},
		})
		if err != nil {
			return fmt.Errorf("error creating style: %w", err)
		}
		styles[status] = id
	}

	for i, b := range bookings {
		row := i + 2
		tourTitle := "(deleted tour)"
		if b.Tour != nil {
			tourTitle = b.Tour.Title
		}
		values := []interface{}{
			b.ID,
			tourTitle,
			b.BookingDate.Format(models.DateLayout),
			b.GuestName,
			b.GuestEmail,
			b.GuestPhone,
			b.NumberOfGuests,
			b.TotalPrice,
			b.Status,
			b.PaymentStatus,
			b.SpecialRequests,
			b.CreatedAt.Format("2006-01-02 15:04"),
		}
		start, _ := excelize.CoordinatesToCellName(1, row)
		if err := f.SetSheetRow(bookingsSheet, start, &values); err != nil {
			return fmt.Errorf("error writing row %d: %w", row, err)
		}
		if style, ok := styles[b.Status]; ok {
			end, _ := excelize.CoordinatesToCellName(len(bookingHeaders), row)
			_ = f.SetCellStyle(bookingsSheet, start, end, style)
		}
	}

	_ = f.SetColWidth(bookingsSheet, "A", "A", 38)
	_ = f.SetColWidth(bookingsSheet, "B", "B", 28)
	_ = f.SetColWidth(bookingsSheet, "C", "J", 16)
	_ = f.SetColWidth(bookingsSheet, "K", "K", 40)
	_ = f.SetColWidth(bookingsSheet, "L", "L", 18)
	return nil
}

type tourTotals struct {
	title    string
	bookings int
	guests   int
	revenue  float64
}

// writeSummary aggregates active and completed bookings per tour. Cancelled
// bookings are counted but add no guests or revenue.
func writeSummary(f *excelize.File, bookings []*models.Booking, generatedAt time.Time) error {
	if _, err := f.NewSheet(summarySheet); err != nil {
		return fmt.Errorf("error creating sheet: %w", err)
	}

	totals := make(map[string]*tourTotals)
	for _, b := range bookings {
		t, ok := totals[b.TourID]
		if !ok {
			t = &tourTotals{title: "(deleted tour)"}
			if b.Tour != nil {
				t.title = b.Tour.Title
			}
			totals[b.TourID] = t
		}
		t.bookings++
		if b.Status != models.StatusCancelled {
			t.guests += b.NumberOfGuests
			t.revenue += b.TotalPrice
		}
	}

	rows := make([]*tourTotals, 0, len(totals))
	for _, t := range totals {
		rows = append(rows, t)
	}
	sort.Slice(rows, func(i, j int) bool {
		if rows[i].revenue != rows[j].revenue {
			return rows[i].revenue > rows[j].revenue
		}
		return rows[i].title < rows[j].title
	})

	_ = f.SetCellValue(summarySheet, "A1", "Generated at "+generatedAt.UTC().Format(time.RFC3339))
	header := []interface{}{"Tour", "Bookings", "Guests", "Revenue"}
	_ = f.SetSheetRow(summarySheet, "A2", &header)

	for i, t := range rows {
		cell, _ := excelize.CoordinatesToCellName(1, i+3)
		row := []interface{}{t.title, t.bookings, t.guests, t.revenue}
		if err := f.SetSheetRow(summarySheet, cell, &row); err != nil {
			return fmt.Errorf("error writing summary: %w", err)
		}
	}
	_ = f.SetColWidth(summarySheet, "A", "A", 30)
	return nil
}
