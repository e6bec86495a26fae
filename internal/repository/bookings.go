package repository

import (
	"context"
	"database/sql"
	"time"

	"safeletstays/internal/database"
	"safeletstays/internal/models"
)

type BookingRepository struct {
	db *database.DB
}

func NewBookingRepository(db *database.DB) *BookingRepository {
	return &BookingRepository{db: db}
}

const bookingColumns = `id, property_id, user_id, guest_name, guest_email, guest_phone,
       company_name, company_address, check_in, check_out, guests, status, source,
       nightly_rate, cleaning_fee, total_price, guest_notes, internal_notes,
       receipt_filename, checkout_session_id, channel_reservation_id, created_at, updated_at`

func scanBooking(row interface{ Scan(...interface{}) error }, b *models.Booking) error {
	return row.Scan(
		&b.ID,
		&b.PropertyID,
		&b.UserID,
		&b.GuestName,
		&b.GuestEmail,
		&b.GuestPhone,
		&b.CompanyName,
		&b.CompanyAddress,
		&b.CheckIn,
		&b.CheckOut,
		&b.Guests,
		&b.Status,
		&b.Source,
		&b.NightlyRate,
		&b.CleaningFee,
		&b.TotalPrice,
		&b.GuestNotes,
		&b.InternalNotes,
		&b.ReceiptFilename,
		&b.CheckoutSessionID,
		&b.ChannelReservationID,
		&b.CreatedAt,
		&b.UpdatedAt,
	)
}

const insertBookingQuery = `
	INSERT INTO bookings (property_id, user_id, guest_name, guest_email, guest_phone,
	                      company_name, company_address, check_in, check_out, guests,
	                      status, source, nightly_rate, cleaning_fee, total_price, guest_notes)
	VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13, $14, $15, $16)
	RETURNING id, created_at, updated_at`

func (r *BookingRepository) Create(ctx context.Context, booking *models.Booking) error {
	err := r.db.QueryRowContext(ctx, insertBookingQuery,
		booking.PropertyID,
		booking.UserID,
		booking.GuestName,
		booking.GuestEmail,
		booking.GuestPhone,
		booking.CompanyName,
		booking.CompanyAddress,
		booking.CheckIn,
		booking.CheckOut,
		booking.Guests,
		booking.Status,
		booking.Source,
		booking.NightlyRate,
		booking.CleaningFee,
		booking.TotalPrice,
		booking.GuestNotes,
	).Scan(&booking.ID, &booking.CreatedAt, &booking.UpdatedAt)

	return err
}

// CreateWithCheckoutSession вставляет бронирование и создает платежную сессию
// в одной транзакции. createSession receives the booking with its row id
// already assigned and returns the gateway session id. If the gateway call
// fails the insert is rolled back and no booking row remains.
func (r *BookingRepository) CreateWithCheckoutSession(ctx context.Context, booking *models.Booking, createSession func(*models.Booking) (string, error)) error {
	tx, err := r.db.BeginTx(ctx, nil)
	if err != nil {
		return err
	}
	defer tx.Rollback()

	err = tx.QueryRowContext(ctx, insertBookingQuery,
		booking.PropertyID,
		booking.UserID,
		booking.GuestName,
		booking.GuestEmail,
		booking.GuestPhone,
		booking.CompanyName,
		booking.CompanyAddress,
		booking.CheckIn,
		booking.CheckOut,
		booking.Guests,
		booking.Status,
		booking.Source,
		booking.NightlyRate,
		booking.CleaningFee,
		booking.TotalPrice,
		booking.GuestNotes,
	).Scan(&booking.ID, &booking.CreatedAt, &booking.UpdatedAt)
	if err != nil {
		return err
	}

	sessionID, err := createSession(booking)
	if err != nil {
		return err
	}

	_, err = tx.ExecContext(ctx,
		`UPDATE bookings SET checkout_session_id = $1, updated_at = NOW() WHERE id = $2`,
		sessionID, booking.ID)
	if err != nil {
		return err
	}

	if err := tx.Commit(); err != nil {
		return err
	}

	booking.CheckoutSessionID = &sessionID
	return nil
}

func (r *BookingRepository) GetByID(ctx context.Context, id int64) (*models.Booking, error) {
	booking := &models.Booking{}
	query := `SELECT ` + bookingColumns + ` FROM bookings WHERE id = $1`

	err := scanBooking(r.db.QueryRowContext(ctx, query, id), booking)
	if err == sql.ErrNoRows {
		return nil, nil
	}

	return booking, err
}

// GetBySessionID находит бронирование по платежной сессии
func (r *BookingRepository) GetBySessionID(ctx context.Context, sessionID string) (*models.Booking, error) {
	booking := &models.Booking{}
	query := `SELECT ` + bookingColumns + ` FROM bookings WHERE checkout_session_id = $1`

	err := scanBooking(r.db.QueryRowContext(ctx, query, sessionID), booking)
	if err == sql.ErrNoRows {
		return nil, nil
	}

	return booking, err
}

// ConfirmPending переводит awaiting_payment в confirmed. Returns false when
// the booking was not in awaiting_payment, which makes repeated confirmations
// of the same booking harmless.
func (r *BookingRepository) ConfirmPending(ctx context.Context, id int64) (bool, error) {
	result, err := r.db.ExecContext(ctx,
		`UPDATE bookings SET status = $1, updated_at = NOW() WHERE id = $2 AND status = $3`,
		models.BookingStatusConfirmed, id, models.BookingStatusAwaitingPayment)
	if err != nil {
		return false, err
	}

	rows, err := result.RowsAffected()
	if err != nil {
		return false, err
	}

	return rows > 0, nil
}

// CancelPending переводит awaiting_payment в canceled
func (r *BookingRepository) CancelPending(ctx context.Context, id int64) (bool, error) {
	result, err := r.db.ExecContext(ctx,
		`UPDATE bookings SET status = $1, updated_at = NOW() WHERE id = $2 AND status = $3`,
		models.BookingStatusCanceled, id, models.BookingStatusAwaitingPayment)
	if err != nil {
		return false, err
	}

	rows, err := result.RowsAffected()
	if err != nil {
		return false, err
	}

	return rows > 0, nil
}

// SaveReceipt сохраняет PDF квитанции
func (r *BookingRepository) SaveReceipt(ctx context.Context, id int64, pdf []byte, filename string) error {
	_, err := r.db.ExecContext(ctx,
		`UPDATE bookings SET receipt_pdf = $1, receipt_filename = $2, updated_at = NOW() WHERE id = $3`,
		pdf, filename, id)
	return err
}

// GetReceipt возвращает PDF квитанции и имя файла
func (r *BookingRepository) GetReceipt(ctx context.Context, id int64) ([]byte, string, error) {
	var pdf []byte
	var filename sql.NullString

	err := r.db.QueryRowContext(ctx,
		`SELECT receipt_pdf, receipt_filename FROM bookings WHERE id = $1`, id).
		Scan(&pdf, &filename)
	if err == sql.ErrNoRows {
		return nil, "", nil
	}
	if err != nil {
		return nil, "", err
	}

	return pdf, filename.String, nil
}

// SetChannelReservation записывает id резервации внешней площадки
func (r *BookingRepository) SetChannelReservation(ctx context.Context, id int64, reservationID string) error {
	_, err := r.db.ExecContext(ctx,
		`UPDATE bookings SET channel_reservation_id = $1, updated_at = NOW() WHERE id = $2`,
		reservationID, id)
	return err
}

// ListForAccount возвращает бронирования пользователя по его id или email.
// Незавершенные checkout попытки (awaiting_payment) в список не попадают.
func (r *BookingRepository) ListForAccount(ctx context.Context, userID int64, email string) ([]models.Booking, error) {
	query := `
		SELECT ` + bookingColumns + `
		FROM bookings
		WHERE (user_id = $1 OR guest_email = $2)
		  AND status != $3
		ORDER BY check_in DESC`

	rows, err := r.db.QueryContext(ctx, query, userID, email, models.BookingStatusAwaitingPayment)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var bookings []models.Booking
	for rows.Next() {
		var booking models.Booking
		if err := scanBooking(rows, &booking); err != nil {
			return nil, err
		}
		bookings = append(bookings, booking)
	}

	return bookings, rows.Err()
}

// GetStaleAwaitingPayment находит брошенные checkout попытки старше cutoff
func (r *BookingRepository) GetStaleAwaitingPayment(ctx context.Context, cutoff time.Time) ([]models.Booking, error) {
	query := `
		SELECT ` + bookingColumns + `
		FROM bookings
		WHERE status = $1 AND created_at < $2
		ORDER BY created_at ASC`

	rows, err := r.db.QueryContext(ctx, query, models.BookingStatusAwaitingPayment, cutoff)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var bookings []models.Booking
	for rows.Next() {
		var booking models.Booking
		if err := scanBooking(rows, &booking); err != nil {
			return nil, err
		}
		bookings = append(bookings, booking)
	}

	return bookings, rows.Err()
}

// GetConfirmedWithoutReceipt находит оплаченные бронирования без квитанции
func (r *BookingRepository) GetConfirmedWithoutReceipt(ctx context.Context) ([]models.Booking, error) {
	query := `
		SELECT ` + bookingColumns + `
		FROM bookings
		WHERE status = $1 AND receipt_pdf IS NULL
		ORDER BY updated_at ASC`

	rows, err := r.db.QueryContext(ctx, query, models.BookingStatusConfirmed)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var bookings []models.Booking
	for rows.Next() {
		var booking models.Booking
		if err := scanBooking(rows, &booking); err != nil {
			return nil, err
		}
		bookings = append(bookings, booking)
	}

	return bookings, rows.Err()
}

// CompleteFinishedStays переводит confirmed бронирования с прошедшей датой
// выезда в completed. Возвращает количество обновленных строк.
func (r *BookingRepository) CompleteFinishedStays(ctx context.Context, before time.Time) (int64, error) {
	result, err := r.db.ExecContext(ctx,
		`UPDATE bookings SET status = $1, updated_at = NOW() WHERE status = $2 AND check_out <= $3`,
		models.BookingStatusCompleted, models.BookingStatusConfirmed, before)
	if err != nil {
		return 0, err
	}

	return result.RowsAffected()
}
