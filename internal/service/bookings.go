package service

import (
	"context"
	"encoding/json"
	"fmt"
	"strconv"
	"strings"

	apperrors "safeletstays/internal/errors"
	"safeletstays/internal/external"
	"safeletstays/internal/logger"
	"safeletstays/internal/metrics"
	"safeletstays/internal/models"
	"safeletstays/internal/pdf"
	"safeletstays/internal/token"
	"safeletstays/internal/validation"
)

type BookingService struct {
	bookings   bookingStore
	properties propertyStore
	payment    PaymentGateway
	channel    channelGateway
	email      receiptSender
	nats       eventPublisher
	signer     *token.Signer
	cfg        BookingConfig
}

func NewBookingService(bookings bookingStore, properties propertyStore, payment PaymentGateway, channel channelGateway, email receiptSender, nats eventPublisher, signer *token.Signer, cfg BookingConfig) *BookingService {
	return &BookingService{
		bookings:   bookings,
		properties: properties,
		payment:    payment,
		channel:    channel,
		email:      email,
		nats:       nats,
		signer:     signer,
		cfg:        cfg,
	}
}

const dateLayout = "2006-01-02"

// Checkout создает бронирование и платежную сессию. The booking row and its
// checkout session id are written in one transaction, a gateway failure
// leaves no booking behind.
func (s *BookingService) Checkout(ctx context.Context, propertyID int64, req *models.CheckoutRequest, userID *int64) (*models.CheckoutResponse, error) {
	property, err := s.properties.GetByID(ctx, propertyID)
	if err != nil {
		return nil, fmt.Errorf("failed to get property: %w", err)
	}
	if property == nil {
		return nil, apperrors.ErrNotFound
	}

	input, err := validation.ValidateCheckout(req, property.Capacity)
	if err != nil {
		return nil, err
	}

	// Объекты с внешним листингом проверяем у channel manager
	if property.ChannelListingID != nil && s.channel != nil && s.channel.Enabled() {
		avail, err := s.channel.CheckAvailability(external.AvailabilityRequest{
			ListingID: *property.ChannelListingID,
			CheckIn:   req.CheckIn,
			CheckOut:  req.CheckOut,
			Guests:    input.Guests,
		})
		if err != nil {
			logger.WithContext(ctx).Error("Channel availability check failed",
				"error", err,
				"property_id", property.ID)
		} else if !avail.Available {
			return nil, apperrors.NewValidation("check_in", "dates are not available")
		}
	}

	nightlyRate := property.PriceFrom
	booking := &models.Booking{
		PropertyID:     property.ID,
		UserID:         userID,
		GuestName:      strings.TrimSpace(req.GuestName),
		GuestEmail:     strings.TrimSpace(req.GuestEmail),
		GuestPhone:     strings.TrimSpace(req.GuestPhone),
		CompanyName:    strings.TrimSpace(req.CompanyName),
		CompanyAddress: strings.TrimSpace(req.CompanyAddress),
		CheckIn:        input.CheckIn,
		CheckOut:       input.CheckOut,
		Guests:         input.Guests,
		Status:         models.BookingStatusAwaitingPayment,
		Source:         models.BookingSourceDirect,
		NightlyRate:    &nightlyRate,
		CleaningFee:    property.CleaningFee,
		GuestNotes:     req.GuestNotes,
	}
	booking.TotalPrice = booking.CalculateTotal()

	var paymentURL string
	err = s.bookings.CreateWithCheckoutSession(ctx, booking, func(b *models.Booking) (string, error) {
		successToken, err := s.signer.Sign(b.ID, token.ActionSuccess)
		if err != nil {
			return "", fmt.Errorf("failed to sign success token: %w", err)
		}
		cancelToken, err := s.signer.Sign(b.ID, token.ActionCancel)
		if err != nil {
			return "", fmt.Errorf("failed to sign cancel token: %w", err)
		}

		session, err := s.payment.CreateCheckoutSession(external.CheckoutSessionRequest{
			Amount:      *b.TotalPrice,
			Currency:    s.cfg.Currency,
			Description: fmt.Sprintf("%s, %d nights", property.Title, b.Nights()),
			Reference:   fmt.Sprintf("BOOK-%d", b.ID),
			Email:       b.GuestEmail,
			SuccessURL:  s.cfg.PublicBaseURL + "/api/payments/success?token=" + successToken,
			CancelURL:   s.cfg.PublicBaseURL + "/api/payments/cancel?token=" + cancelToken,
		})
		if err != nil {
			return "", fmt.Errorf("%w: %v", apperrors.ErrPaymentGateway, err)
		}

		paymentURL = session.CheckoutURL
		return session.SessionID, nil
	})
	if err != nil {
		return nil, err
	}

	metrics.BookingCreated()

	eventData := models.BookingCreatedEvent{
		BookingID:  booking.ID,
		PropertyID: booking.PropertyID,
		UserID:     booking.UserID,
		Timestamp:  now(),
	}
	if err := s.nats.Publish(models.EventBookingCreated, eventData); err != nil {
		// Log error but don't fail the operation
		logger.WithContext(ctx).Error("Failed to publish booking created event",
			"error", err,
			"booking_id", booking.ID,
			"event_type", models.EventBookingCreated)
	}

	return &models.CheckoutResponse{
		BookingID:  booking.ID,
		PaymentURL: paymentURL,
	}, nil
}

// HandlePaymentReturn обрабатывает возврат гостя с платежной страницы.
// Повторный заход по той же ссылке безопасен: статус уже переведен и
// квитанция уже существует, операция ничего не меняет.
func (s *BookingService) HandlePaymentReturn(ctx context.Context, tok, action string) (*models.PaymentReturnResponse, error) {
	bookingID, err := s.signer.Unsign(tok, action)
	if err != nil {
		return nil, err
	}

	booking, err := s.bookings.GetByID(ctx, bookingID)
	if err != nil {
		return nil, fmt.Errorf("failed to get booking: %w", err)
	}
	if booking == nil {
		return nil, apperrors.ErrNotFound
	}

	// Бронирование без привязанной платежной сессии никогда не выдавало
	// ссылок на оплату, такой callback недействителен для обоих действий
	if booking.CheckoutSessionID == nil {
		return nil, apperrors.ErrNoCheckoutSession
	}

	resp := &models.PaymentReturnResponse{BookingID: booking.ID}

	switch action {
	case token.ActionSuccess:
		if err := s.confirmBooking(ctx, booking); err != nil {
			return nil, err
		}
		// Квитанция генерируется и при повторном заходе, если прошлый раз
		// она не получилась
		if booking.Status == models.BookingStatusConfirmed {
			sent, warning := s.ensureReceipt(ctx, booking)
			resp.ReceiptSent = sent
			resp.Warning = warning
		}

	case token.ActionCancel:
		if err := s.cancelBooking(ctx, booking, "guest canceled at checkout"); err != nil {
			return nil, err
		}

	default:
		return nil, apperrors.ErrInvalidToken
	}

	resp.Status = booking.Status
	return resp, nil
}

// HandleCheckoutEvent обрабатывает webhook уведомление платежного шлюза.
// The signature covers the raw body; the session id in the payload must match
// the one stored with the booking.
func (s *BookingService) HandleCheckoutEvent(ctx context.Context, payload []byte, signature string) error {
	if !s.payment.VerifyWebhookSignature(payload, signature) {
		return apperrors.ErrUnauthorized
	}

	var event models.CheckoutEventPayload
	if err := json.Unmarshal(payload, &event); err != nil {
		return apperrors.NewValidation("payload", "malformed webhook body")
	}

	bookingID, err := parseBookingReference(event.Reference)
	if err != nil {
		return apperrors.NewValidation("reference", "unrecognized booking reference")
	}

	booking, err := s.bookings.GetByID(ctx, bookingID)
	if err != nil {
		return fmt.Errorf("failed to get booking: %w", err)
	}
	if booking == nil {
		return apperrors.ErrNotFound
	}

	if booking.CheckoutSessionID == nil {
		return apperrors.ErrNoCheckoutSession
	}
	if *booking.CheckoutSessionID != event.SessionID {
		return apperrors.ErrSessionMismatch
	}

	switch event.Event {
	case models.CheckoutEventCompleted:
		if err := s.confirmBooking(ctx, booking); err != nil {
			return err
		}
		if booking.Status == models.BookingStatusConfirmed {
			if _, warning := s.ensureReceipt(ctx, booking); warning != "" {
				logger.WithContext(ctx).Error("Receipt delivery failed after webhook confirmation",
					"booking_id", booking.ID,
					"warning", warning)
			}
		}
		return nil

	case models.CheckoutEventExpired:
		return s.cancelBooking(ctx, booking, "checkout session expired")

	default:
		logger.WithContext(ctx).Info("Ignoring unhandled checkout event",
			"event", event.Event,
			"session_id", event.SessionID)
		return nil
	}
}

// confirmBooking переводит бронирование в confirmed. Уже подтвержденное
// бронирование не трогаем, события не дублируем.
func (s *BookingService) confirmBooking(ctx context.Context, booking *models.Booking) error {
	confirmed, err := s.bookings.ConfirmPending(ctx, booking.ID)
	if err != nil {
		return fmt.Errorf("failed to confirm booking: %w", err)
	}
	if !confirmed {
		// Кто-то успел раньше (webhook или redirect), перечитываем статус
		fresh, err := s.bookings.GetByID(ctx, booking.ID)
		if err != nil {
			return fmt.Errorf("failed to reload booking: %w", err)
		}
		if fresh != nil {
			booking.Status = fresh.Status
			booking.ReceiptFilename = fresh.ReceiptFilename
		}
		return nil
	}

	booking.Status = models.BookingStatusConfirmed
	metrics.BookingConfirmed()

	var total int64
	if booking.TotalPrice != nil {
		total = *booking.TotalPrice
	}
	eventData := models.BookingConfirmedEvent{
		BookingID:  booking.ID,
		PropertyID: booking.PropertyID,
		TotalPrice: total,
		Timestamp:  now(),
	}
	if err := s.nats.Publish(models.EventBookingConfirmed, eventData); err != nil {
		logger.WithContext(ctx).Error("Failed to publish booking confirmed event",
			"error", err,
			"booking_id", booking.ID,
			"event_type", models.EventBookingConfirmed)
	}

	s.pushChannelReservation(ctx, booking)

	return nil
}

func (s *BookingService) cancelBooking(ctx context.Context, booking *models.Booking, reason string) error {
	canceled, err := s.bookings.CancelPending(ctx, booking.ID)
	if err != nil {
		return fmt.Errorf("failed to cancel booking: %w", err)
	}
	if !canceled {
		fresh, err := s.bookings.GetByID(ctx, booking.ID)
		if err != nil {
			return fmt.Errorf("failed to reload booking: %w", err)
		}
		if fresh != nil {
			booking.Status = fresh.Status
		}
		return nil
	}

	booking.Status = models.BookingStatusCanceled

	eventData := models.BookingCanceledEvent{
		BookingID:  booking.ID,
		PropertyID: booking.PropertyID,
		Reason:     reason,
		Timestamp:  now(),
	}
	if err := s.nats.Publish(models.EventBookingCanceled, eventData); err != nil {
		logger.WithContext(ctx).Error("Failed to publish booking canceled event",
			"error", err,
			"booking_id", booking.ID,
			"event_type", models.EventBookingCanceled)
	}

	return nil
}

// ensureReceipt генерирует квитанцию и отправляет письмо, если квитанции еще
// нет. Returns whether the email went out and a warning for the guest-facing
// response when a side effect failed. Payment state is never touched here.
func (s *BookingService) ensureReceipt(ctx context.Context, booking *models.Booking) (bool, string) {
	if booking.ReceiptFilename != nil {
		return false, ""
	}

	property, err := s.properties.GetByID(ctx, booking.PropertyID)
	if err != nil || property == nil {
		logger.WithContext(ctx).Error("Failed to load property for receipt",
			"error", err,
			"booking_id", booking.ID)
		return false, "receipt generation failed"
	}

	receiptPDF, err := pdf.GenerateReceipt(booking, property)
	if err != nil {
		logger.WithContext(ctx).Error("Failed to generate receipt",
			"error", err,
			"booking_id", booking.ID)
		return false, "receipt generation failed"
	}

	filename := pdf.ReceiptFilename(booking.ID)
	if err := s.bookings.SaveReceipt(ctx, booking.ID, receiptPDF, filename); err != nil {
		logger.WithContext(ctx).Error("Failed to store receipt",
			"error", err,
			"booking_id", booking.ID)
		return false, "receipt generation failed"
	}
	booking.ReceiptFilename = &filename
	booking.ReceiptPDF = receiptPDF

	if s.email == nil || !s.email.Enabled() {
		return false, ""
	}

	if err := s.email.SendReceipt(booking, property, receiptPDF); err != nil {
		logger.WithContext(ctx).Error("Failed to send receipt email",
			"error", err,
			"booking_id", booking.ID)
		return false, "receipt email could not be delivered"
	}

	return true, ""
}

func (s *BookingService) pushChannelReservation(ctx context.Context, booking *models.Booking) {
	if s.channel == nil || !s.channel.Enabled() {
		return
	}

	property, err := s.properties.GetByID(ctx, booking.PropertyID)
	if err != nil || property == nil || property.ChannelListingID == nil {
		return
	}

	resp, err := s.channel.PushReservation(
		*property.ChannelListingID,
		booking.CheckIn.Format(dateLayout),
		booking.CheckOut.Format(dateLayout),
		booking.Guests,
		booking.GuestName,
		booking.GuestEmail,
	)
	if err != nil {
		// Календарь на внешней площадке догонит позже, бронирование не трогаем
		logger.WithContext(ctx).Error("Failed to push reservation to channel manager",
			"error", err,
			"booking_id", booking.ID)
		return
	}

	if err := s.bookings.SetChannelReservation(ctx, booking.ID, resp.ReservationID); err != nil {
		logger.WithContext(ctx).Error("Failed to store channel reservation id",
			"error", err,
			"booking_id", booking.ID)
	}
}

// List возвращает бронирования аккаунта. Both the account's own bookings and
// guest-checkout bookings made with the same email are included.
func (s *BookingService) List(ctx context.Context, userID int64, email string) ([]models.ListBookingsResponseItem, error) {
	bookings, err := s.bookings.ListForAccount(ctx, userID, email)
	if err != nil {
		return nil, fmt.Errorf("failed to get bookings: %w", err)
	}

	result := make([]models.ListBookingsResponseItem, len(bookings))
	for i, booking := range bookings {
		result[i] = models.ListBookingsResponseItem{
			ID:         booking.ID,
			PropertyID: booking.PropertyID,
			CheckIn:    booking.CheckIn.Format(dateLayout),
			CheckOut:   booking.CheckOut.Format(dateLayout),
			Guests:     booking.Guests,
			Status:     booking.Status,
			TotalPrice: booking.TotalPrice,
			HasReceipt: booking.ReceiptFilename != nil,
		}
	}

	return result, nil
}

// DownloadReceipt отдает PDF квитанции. Only the booking owner, the guest who
// paid, or staff may fetch it.
func (s *BookingService) DownloadReceipt(ctx context.Context, bookingID int64, userID int64, email string, isStaff bool) ([]byte, string, error) {
	booking, err := s.bookings.GetByID(ctx, bookingID)
	if err != nil {
		return nil, "", fmt.Errorf("failed to get booking: %w", err)
	}
	if booking == nil {
		return nil, "", apperrors.ErrNotFound
	}

	allowed := isStaff ||
		(booking.UserID != nil && *booking.UserID == userID) ||
		strings.EqualFold(booking.GuestEmail, email)
	if !allowed {
		return nil, "", apperrors.ErrForbidden
	}

	// Подтвержденное бронирование без документа получает его прямо здесь,
	// это последняя линия восстановления после сбоя генерации
	if booking.ReceiptFilename == nil &&
		(booking.Status == models.BookingStatusConfirmed || booking.Status == models.BookingStatusCompleted) {
		s.ensureReceipt(ctx, booking)
		if booking.ReceiptFilename != nil {
			return booking.ReceiptPDF, *booking.ReceiptFilename, nil
		}
	}

	receiptPDF, filename, err := s.bookings.GetReceipt(ctx, bookingID)
	if err != nil {
		return nil, "", fmt.Errorf("failed to get receipt: %w", err)
	}
	if len(receiptPDF) == 0 {
		return nil, "", apperrors.ErrNotFound
	}

	return receiptPDF, filename, nil
}

func parseBookingReference(reference string) (int64, error) {
	idStr, found := strings.CutPrefix(reference, "BOOK-")
	if !found {
		return 0, fmt.Errorf("reference %q has no BOOK- prefix", reference)
	}
	return strconv.ParseInt(idStr, 10, 64)
}
