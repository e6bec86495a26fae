package models

import (
	"regexp"
	"strings"
	"time"
)

// Booking statuses. A booking is never deleted, it only moves through these.
const (
	BookingStatusInquiry         = "inquiry"
	BookingStatusAwaitingPayment = "awaiting_payment"
	BookingStatusConfirmed       = "confirmed"
	BookingStatusCanceled        = "canceled"
	BookingStatusCompleted       = "completed"
)

// Booking source channels
const (
	BookingSourceDirect  = "direct"
	BookingSourceChannel = "channel"
	BookingSourceOther   = "other"
)

// Property представляет объект размещения
type Property struct {
	ID                    int64     `json:"id"`
	Title                 string    `json:"title"`
	Slug                  string    `json:"slug"`
	ShortDescription      string    `json:"short_description"`
	Description           string    `json:"description"`
	ImageURL              string    `json:"image_url"`
	PriceFrom             int64     `json:"price_from"`
	CleaningFee           int64     `json:"cleaning_fee"`
	Beds                  int       `json:"beds"`
	Baths                 int       `json:"baths"`
	Capacity              int       `json:"capacity"`
	Parking               bool      `json:"parking"`
	DistanceToStadiumMins int       `json:"distance_to_stadium_mins"`
	Tags                  string    `json:"tags"`
	Keywords              string    `json:"keywords"`
	ChannelListingID      *string   `json:"channel_listing_id,omitempty"`
	IsFeatured            bool      `json:"is_featured"`
	CreatedAt             time.Time `json:"created_at"`
	UpdatedAt             time.Time `json:"updated_at"`
}

// TagsList возвращает теги списком
func (p *Property) TagsList() []string {
	if p.Tags == "" {
		return nil
	}
	parts := strings.Split(p.Tags, ",")
	tags := make([]string, 0, len(parts))
	for _, part := range parts {
		if tag := strings.TrimSpace(part); tag != "" {
			tags = append(tags, tag)
		}
	}
	return tags
}

// Booking представляет бронирование. Amounts are in minor units (pence).
type Booking struct {
	ID                   int64     `json:"id"`
	PropertyID           int64     `json:"property_id"`
	UserID               *int64    `json:"user_id,omitempty"`
	GuestName            string    `json:"guest_name"`
	GuestEmail           string    `json:"guest_email"`
	GuestPhone           string    `json:"guest_phone"`
	CompanyName          string    `json:"company_name,omitempty"`
	CompanyAddress       string    `json:"company_address,omitempty"`
	CheckIn              time.Time `json:"check_in"`
	CheckOut             time.Time `json:"check_out"`
	Guests               int       `json:"guests"`
	Status               string    `json:"status"`
	Source               string    `json:"source"`
	NightlyRate          *int64    `json:"nightly_rate,omitempty"`
	CleaningFee          int64     `json:"cleaning_fee"`
	TotalPrice           *int64    `json:"total_price,omitempty"`
	GuestNotes           string    `json:"guest_notes,omitempty"`
	InternalNotes        string    `json:"-"`
	ReceiptPDF           []byte    `json:"-"`
	ReceiptFilename      *string   `json:"receipt_filename,omitempty"`
	CheckoutSessionID    *string   `json:"-"`
	ChannelReservationID *string   `json:"-"`
	CreatedAt            time.Time `json:"created_at"`
	UpdatedAt            time.Time `json:"updated_at"`
}

// Nights возвращает количество ночей
func (b *Booking) Nights() int {
	return int(b.CheckOut.Sub(b.CheckIn).Hours() / 24)
}

// CalculateTotal computes nightly_rate * nights + cleaning_fee.
// Returns nil when no nightly rate is set.
func (b *Booking) CalculateTotal() *int64 {
	if b.NightlyRate == nil {
		return nil
	}
	total := *b.NightlyRate*int64(b.Nights()) + b.CleaningFee
	return &total
}

// HasReceipt reports whether a receipt document was generated for the booking
func (b *Booking) HasReceipt() bool {
	return len(b.ReceiptPDF) > 0
}

// User представляет пользователя
type User struct {
	ID           int64     `json:"id"`
	Email        string    `json:"email"`
	PasswordHash string    `json:"-"`
	FirstName    string    `json:"first_name"`
	Surname      string    `json:"surname"`
	IsStaff      bool      `json:"is_staff"`
	IsActive     bool      `json:"is_active"`
	RegisteredAt time.Time `json:"registered_at"`
	LastLoggedIn time.Time `json:"last_logged_in"`
}

// FullName возвращает полное имя пользователя
func (u *User) FullName() string {
	return strings.TrimSpace(u.FirstName + " " + u.Surname)
}

// Profile — one-to-one extension of a user account, created together with it
type Profile struct {
	ID             int64  `json:"id"`
	UserID         int64  `json:"user_id"`
	PhoneNumber    string `json:"phone_number"`
	BookingPurpose string `json:"booking_purpose"`
	CompanyName    string `json:"company_name"`
	CompanyAddress string `json:"company_address"`
}

var slugInvalidChars = regexp.MustCompile(`[^a-z0-9]+`)

// Slugify derives a URL slug from a property title
func Slugify(title string) string {
	slug := strings.ToLower(strings.TrimSpace(title))
	slug = slugInvalidChars.ReplaceAllString(slug, "-")
	return strings.Trim(slug, "-")
}
