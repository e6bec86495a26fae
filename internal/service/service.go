package service

import (
	"context"
	"time"

	"safeletstays/internal/cache"
	"safeletstays/internal/external"
	"safeletstays/internal/models"
	"safeletstays/internal/repository"
	"safeletstays/internal/token"
)

// Collaborator interfaces are defined here so the services can be exercised
// in tests without Postgres, Redis or the live gateways behind them.

type bookingStore interface {
	Create(ctx context.Context, booking *models.Booking) error
	CreateWithCheckoutSession(ctx context.Context, booking *models.Booking, createSession func(*models.Booking) (string, error)) error
	GetByID(ctx context.Context, id int64) (*models.Booking, error)
	GetBySessionID(ctx context.Context, sessionID string) (*models.Booking, error)
	ConfirmPending(ctx context.Context, id int64) (bool, error)
	CancelPending(ctx context.Context, id int64) (bool, error)
	SaveReceipt(ctx context.Context, id int64, pdf []byte, filename string) error
	GetReceipt(ctx context.Context, id int64) ([]byte, string, error)
	SetChannelReservation(ctx context.Context, id int64, reservationID string) error
	ListForAccount(ctx context.Context, userID int64, email string) ([]models.Booking, error)
}

type propertyStore interface {
	Create(ctx context.Context, property *models.Property) error
	GetByID(ctx context.Context, id int64) (*models.Property, error)
	GetBySlug(ctx context.Context, slug string) (*models.Property, error)
	SlugExists(ctx context.Context, slug string, excludeID int64) (bool, error)
	Update(ctx context.Context, property *models.Property) error
	Delete(ctx context.Context, id int64) error
	List(ctx context.Context, filter models.PropertyFilter) ([]models.Property, error)
	GetSimilar(ctx context.Context, property *models.Property, limit int) ([]models.Property, error)
	ListAll(ctx context.Context) ([]models.Property, error)
}

type userStore interface {
	GetByID(ctx context.Context, id int64) (*models.User, error)
	GetByEmail(ctx context.Context, email string) (*models.User, error)
	CreateWithProfile(ctx context.Context, user *models.User, profile *models.Profile) error
	GetProfile(ctx context.Context, userID int64) (*models.Profile, error)
	UpdateProfile(ctx context.Context, profile *models.Profile) error
}

// PaymentGateway is the hosted checkout surface the booking flow depends on
type PaymentGateway interface {
	CreateCheckoutSession(req external.CheckoutSessionRequest) (*external.CheckoutSessionResponse, error)
	VerifyWebhookSignature(payload []byte, signature string) bool
}

type channelGateway interface {
	Enabled() bool
	CheckAvailability(req external.AvailabilityRequest) (*external.AvailabilityResponse, error)
	PushReservation(listingID, checkIn, checkOut string, guests int, guestName, guestEmail string) (*external.ChannelReservationResponse, error)
}

type receiptSender interface {
	Enabled() bool
	SendReceipt(booking *models.Booking, property *models.Property, receiptPDF []byte) error
}

type eventPublisher interface {
	Publish(subject string, data interface{}) error
}

type searchIndex interface {
	IndexProperty(ctx context.Context, property *models.Property) error
	DeleteProperty(ctx context.Context, id int64) error
	Search(ctx context.Context, filter models.PropertyFilter) ([]models.Property, error)
}

type authCache interface {
	SetUserAuth(ctx context.Context, email, passwordHash string, userID int64) error
}

// BookingConfig carries the checkout flow settings
type BookingConfig struct {
	PublicBaseURL string
	Currency      string
}

type Services struct {
	Properties *PropertyService
	Bookings   *BookingService
	Users      *UserService
}

type Dependencies struct {
	Repos         *repository.Repositories
	Search        searchIndex // nil when Elasticsearch is disabled
	Payment       PaymentGateway
	Channel       channelGateway
	Email         receiptSender
	NATS          eventPublisher
	Cache         *cache.Client
	Signer        *token.Signer
	PublicBaseURL string
	Currency      string
}

func NewServices(deps Dependencies) *Services {
	propertyService := NewPropertyService(deps.Repos.Properties, deps.Search)
	bookingService := NewBookingService(
		deps.Repos.Bookings,
		deps.Repos.Properties,
		deps.Payment,
		deps.Channel,
		deps.Email,
		deps.NATS,
		deps.Signer,
		BookingConfig{PublicBaseURL: deps.PublicBaseURL, Currency: deps.Currency},
	)
	// nil *cache.Client must stay a nil interface inside UserService
	var auth authCache
	if deps.Cache != nil {
		auth = deps.Cache
	}
	userService := NewUserService(deps.Repos.Users, auth)

	return &Services{
		Properties: propertyService,
		Bookings:   bookingService,
		Users:      userService,
	}
}

// now is swapped out in tests
var now = time.Now
