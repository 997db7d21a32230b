package export

import (
	"bytes"
	"os"
	"testing"
	"time"

	"tourbook/internal/models"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/xuri/excelize/v2"
)

func sampleBookings() []*models.Booking {
	date := time.Date(2030, 7, 1, 0, 0, 0, 0, time.UTC)
	return []*models.Booking{
		{
			ID: "b-1", TourID: "t-bali", GuestName: "John Doe", GuestEmail: "john@example.com",
			NumberOfGuests: 4, BookingDate: date, TotalPrice: 3800,
			Status: models.StatusConfirmed, PaymentStatus: models.PaymentPending,
			Tour: &models.TourSummary{ID: "t-bali", Title: "Bali Beach Paradise"},
		},
		{
			ID: "b-2", TourID: "t-bali", GuestName: "Jane Roe", GuestEmail: "jane@example.com",
			NumberOfGuests: 2, BookingDate: date, TotalPrice: 1900,
			Status: models.StatusCancelled, PaymentStatus: models.PaymentRefunded,
			Tour: &models.TourSummary{ID: "t-bali", Title: "Bali Beach Paradise"},
		},
		{
			ID: "b-3", TourID: "t-gone", GuestName: "Max", GuestEmail: "max@example.com",
			NumberOfGuests: 1, BookingDate: date, TotalPrice: 500,
			Status: models.StatusPending, PaymentStatus: models.PaymentPending,
		},
	}
}

func TestWrite(t *testing.T) {
	var buf bytes.Buffer
	require.NoError(t, Write(&buf, sampleBookings(), time.Now()))

	f, err := excelize.OpenReader(&buf)
	require.NoError(t, err)
	defer f.Close()

	assert.Equal(t, []string{bookingsSheet, summarySheet}, f.GetSheetList())

	rows, err := f.GetRows(bookingsSheet)
	require.NoError(t, err)
	require.Len(t, rows, 4)
	assert.Equal(t, bookingHeaders[0], rows[0][0])
	assert.Equal(t, "b-1", rows[1][0])
	assert.Equal(t, "Bali Beach Paradise", rows[1][1])
	assert.Equal(t, "2030-07-01", rows[1][2])
	assert.Equal(t, "3800", rows[1][7])
	assert.Equal(t, "(deleted tour)", rows[3][1])

	summary, err := f.GetRows(summarySheet)
	require.NoError(t, err)
	require.Len(t, summary, 4)
	assert.Equal(t, []string{"Bali Beach Paradise", "2", "4", "3800"}, summary[2])
	assert.Equal(t, []string{"(deleted tour)", "1", "1", "500"}, summary[3])
}

func TestSave(t *testing.T) {
	dir := t.TempDir()
	at := time.Date(2030, 1, 2, 3, 4, 5, 0, time.UTC)

	path, err := Save(dir, sampleBookings(), at)
	require.NoError(t, err)
	assert.Contains(t, path, "bookings_export_2030-01-02_03-04-05.xlsx")

	_, err = os.Stat(path)
	assert.NoError(t, err)
}

func TestWriteEmpty(t *testing.T) {
	var buf bytes.Buffer
	require.NoError(t, Write(&buf, nil, time.Now()))
	assert.NotZero(t, buf.Len())
}
