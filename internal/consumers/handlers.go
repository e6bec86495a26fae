package consumers

import (
	"context"
	"encoding/json"
	"log/slog"
	"time"

	"github.com/nats-io/stan.go"

	"safeletstays/internal/email"
	"safeletstays/internal/external"
	"safeletstays/internal/messaging"
	"safeletstays/internal/models"
	"safeletstays/internal/pdf"
	"safeletstays/internal/repository"
)

// Брошенные checkout сессии отменяются спустя сутки, шлюз к этому моменту
// свою сессию уже давно закрыл
const staleCheckoutAge = 24 * time.Hour

type Handlers struct {
	repos         *repository.Repositories
	paymentClient *external.PaymentClient
	emailClient   *email.Client
	nats          *messaging.NATSClient
}

func NewHandlers(repos *repository.Repositories, paymentClient *external.PaymentClient, emailClient *email.Client, nats *messaging.NATSClient) *Handlers {
	return &Handlers{
		repos:         repos,
		paymentClient: paymentClient,
		emailClient:   emailClient,
		nats:          nats,
	}
}

func (h *Handlers) HandleBookingCreated(m *stan.Msg) {
	var event models.BookingCreatedEvent
	if err := json.Unmarshal(m.Data, &event); err != nil {
		slog.Error("Failed to unmarshal booking created event", "error", err)
		return
	}

	slog.Info("Processing booking created event",
		"booking_id", event.BookingID,
		"property_id", event.PropertyID)

	m.Ack()
}

// HandleBookingConfirmed страхует выдачу квитанции. API генерирует ее сразу
// при подтверждении, но если генерация или письмо там не удались, консьюмер
// доделывает работу.
func (h *Handlers) HandleBookingConfirmed(m *stan.Msg) {
	var event models.BookingConfirmedEvent
	if err := json.Unmarshal(m.Data, &event); err != nil {
		slog.Error("Failed to unmarshal booking confirmed event", "error", err)
		return
	}

	slog.Info("Processing booking confirmed event",
		"booking_id", event.BookingID,
		"total_price", event.TotalPrice)

	ctx := context.Background()
	booking, err := h.repos.Bookings.GetByID(ctx, event.BookingID)
	if err != nil {
		slog.Error("Failed to get booking", "booking_id", event.BookingID, "error", err)
		return
	}

	if booking != nil && booking.Status == models.BookingStatusConfirmed {
		h.ensureReceipt(ctx, booking)
	}

	m.Ack()
}

func (h *Handlers) HandleBookingCanceled(m *stan.Msg) {
	var event models.BookingCanceledEvent
	if err := json.Unmarshal(m.Data, &event); err != nil {
		slog.Error("Failed to unmarshal booking canceled event", "error", err)
		return
	}

	slog.Info("Processing booking canceled event",
		"booking_id", event.BookingID,
		"reason", event.Reason)

	m.Ack()
}

// ExpireStaleCheckouts закрывает бронирования, зависшие в awaiting_payment.
// Перед отменой статус сессии перепроверяется у шлюза: если гость оплатил, а
// webhook и redirect оба потерялись, бронирование подтверждается.
func (h *Handlers) ExpireStaleCheckouts(ctx context.Context) {
	cutoff := time.Now().Add(-staleCheckoutAge)

	stale, err := h.repos.Bookings.GetStaleAwaitingPayment(ctx, cutoff)
	if err != nil {
		slog.Error("Failed to list stale checkouts", "error", err)
		return
	}

	for i := range stale {
		booking := &stale[i]

		if booking.CheckoutSessionID != nil {
			status, err := h.paymentClient.CheckSession(*booking.CheckoutSessionID)
			if err != nil {
				slog.Error("Failed to check session status, will retry next run",
					"booking_id", booking.ID,
					"error", err)
				continue
			}

			if status.Status == "completed" {
				h.confirmLateBooking(ctx, booking)
				continue
			}
		}

		canceled, err := h.repos.Bookings.CancelPending(ctx, booking.ID)
		if err != nil {
			slog.Error("Failed to cancel stale checkout",
				"booking_id", booking.ID,
				"error", err)
			continue
		}
		if !canceled {
			continue
		}

		slog.Info("Canceled stale checkout", "booking_id", booking.ID)

		eventData := models.BookingCanceledEvent{
			BookingID:  booking.ID,
			PropertyID: booking.PropertyID,
			Reason:     "checkout abandoned",
			Timestamp:  time.Now(),
		}
		if err := h.nats.Publish(models.EventBookingCanceled, eventData); err != nil {
			slog.Error("Failed to publish booking canceled event",
				"booking_id", booking.ID,
				"error", err)
		}
	}
}

// confirmLateBooking подтверждает оплаченное бронирование, найденное опросом
// шлюза уже после того, как webhook и redirect потерялись
func (h *Handlers) confirmLateBooking(ctx context.Context, booking *models.Booking) {
	confirmed, err := h.repos.Bookings.ConfirmPending(ctx, booking.ID)
	if err != nil {
		slog.Error("Failed to confirm paid booking",
			"booking_id", booking.ID,
			"error", err)
		return
	}
	if !confirmed {
		return
	}

	booking.Status = models.BookingStatusConfirmed
	slog.Info("Confirmed paid booking found by session poll", "booking_id", booking.ID)

	var total int64
	if booking.TotalPrice != nil {
		total = *booking.TotalPrice
	}
	eventData := models.BookingConfirmedEvent{
		BookingID:  booking.ID,
		PropertyID: booking.PropertyID,
		TotalPrice: total,
		Timestamp:  time.Now(),
	}
	if err := h.nats.Publish(models.EventBookingConfirmed, eventData); err != nil {
		slog.Error("Failed to publish booking confirmed event",
			"booking_id", booking.ID,
			"error", err)
	}

	h.ensureReceipt(ctx, booking)
}

// RepairReceipts догенерирует квитанции для подтвержденных бронирований,
// оставшихся без PDF
func (h *Handlers) RepairReceipts(ctx context.Context) {
	bookings, err := h.repos.Bookings.GetConfirmedWithoutReceipt(ctx)
	if err != nil {
		slog.Error("Failed to list bookings without receipts", "error", err)
		return
	}

	for i := range bookings {
		h.ensureReceipt(ctx, &bookings[i])
	}
}

// CompleteFinishedStays переводит бронирования с прошедшей датой выезда в
// completed
func (h *Handlers) CompleteFinishedStays(ctx context.Context) {
	count, err := h.repos.Bookings.CompleteFinishedStays(ctx, time.Now())
	if err != nil {
		slog.Error("Failed to complete finished stays", "error", err)
		return
	}

	if count > 0 {
		slog.Info("Marked finished stays as completed", "count", count)
	}
}

func (h *Handlers) ensureReceipt(ctx context.Context, booking *models.Booking) {
	if booking.ReceiptFilename != nil {
		return
	}

	property, err := h.repos.Properties.GetByID(ctx, booking.PropertyID)
	if err != nil || property == nil {
		slog.Error("Failed to load property for receipt",
			"booking_id", booking.ID,
			"error", err)
		return
	}

	receiptPDF, err := pdf.GenerateReceipt(booking, property)
	if err != nil {
		slog.Error("Failed to generate receipt",
			"booking_id", booking.ID,
			"error", err)
		return
	}

	filename := pdf.ReceiptFilename(booking.ID)
	if err := h.repos.Bookings.SaveReceipt(ctx, booking.ID, receiptPDF, filename); err != nil {
		slog.Error("Failed to store receipt",
			"booking_id", booking.ID,
			"error", err)
		return
	}
	booking.ReceiptFilename = &filename

	slog.Info("Generated receipt", "booking_id", booking.ID, "filename", filename)

	if h.emailClient == nil || !h.emailClient.Enabled() {
		return
	}

	if err := h.emailClient.SendReceipt(booking, property, receiptPDF); err != nil {
		slog.Error("Failed to send receipt email",
			"booking_id", booking.ID,
			"error", err)
	}
}
