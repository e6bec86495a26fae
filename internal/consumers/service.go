package consumers

import (
	"context"
	"log/slog"
	"time"

	"safeletstays/internal/config"
	"safeletstays/internal/database"
	"safeletstays/internal/email"
	"safeletstays/internal/external"
	"safeletstays/internal/messaging"
	"safeletstays/internal/models"
	"safeletstays/internal/repository"
)

const (
	receiptRepairInterval = 10 * time.Minute
	staleCheckoutInterval = 30 * time.Minute
	finishedStayInterval  = time.Hour
)

type ConsumerService struct {
	db       *database.DB
	nats     *messaging.NATSClient
	repos    *repository.Repositories
	handlers *Handlers
	stop     chan struct{}
}

func NewConsumerService(cfg *config.Config) (*ConsumerService, error) {
	// Connect to database
	db, err := database.Connect(cfg.Database)
	if err != nil {
		return nil, err
	}

	// Connect to NATS
	natsClient, err := messaging.NewNATSClient(cfg.NATS)
	if err != nil {
		return nil, err
	}

	// Create repositories
	repos := repository.NewRepositories(db)

	// Create external clients
	paymentClient := external.NewPaymentClient(cfg.Payment)
	emailClient := email.NewClient(cfg.Email)

	// Create handlers
	handlers := NewHandlers(repos, paymentClient, emailClient, natsClient)

	return &ConsumerService{
		db:       db,
		nats:     natsClient,
		repos:    repos,
		handlers: handlers,
		stop:     make(chan struct{}),
	}, nil
}

func (cs *ConsumerService) Start() error {
	slog.Info("Starting NATS consumers...")

	// Subscribe to booking events
	_, err := cs.nats.SubscribeQueue(models.EventBookingCreated, "consumers", cs.handlers.HandleBookingCreated)
	if err != nil {
		return err
	}

	_, err = cs.nats.SubscribeQueue(models.EventBookingConfirmed, "consumers", cs.handlers.HandleBookingConfirmed)
	if err != nil {
		return err
	}

	_, err = cs.nats.SubscribeQueue(models.EventBookingCanceled, "consumers", cs.handlers.HandleBookingCanceled)
	if err != nil {
		return err
	}

	go cs.runMaintenanceJobs()

	slog.Info("All consumers started successfully")
	return nil
}

// runMaintenanceJobs гоняет фоновые задачи по расписанию: починку квитанций,
// отмену брошенных checkout сессий и закрытие завершенных проживаний
func (cs *ConsumerService) runMaintenanceJobs() {
	receiptTicker := time.NewTicker(receiptRepairInterval)
	staleTicker := time.NewTicker(staleCheckoutInterval)
	finishedTicker := time.NewTicker(finishedStayInterval)
	defer receiptTicker.Stop()
	defer staleTicker.Stop()
	defer finishedTicker.Stop()

	ctx := context.Background()

	// Один прогон сразу на старте, чтобы не ждать первого тика после рестарта
	cs.handlers.RepairReceipts(ctx)
	cs.handlers.ExpireStaleCheckouts(ctx)
	cs.handlers.CompleteFinishedStays(ctx)

	for {
		select {
		case <-receiptTicker.C:
			cs.handlers.RepairReceipts(ctx)
		case <-staleTicker.C:
			cs.handlers.ExpireStaleCheckouts(ctx)
		case <-finishedTicker.C:
			cs.handlers.CompleteFinishedStays(ctx)
		case <-cs.stop:
			return
		}
	}
}

func (cs *ConsumerService) Shutdown(ctx context.Context) error {
	slog.Info("Shutting down consumer service...")

	close(cs.stop)

	if cs.nats != nil {
		if err := cs.nats.Close(); err != nil {
			slog.Error("Error closing NATS connection", "error", err)
		}
	}

	if cs.db != nil {
		if err := cs.db.Close(); err != nil {
			slog.Error("Error closing database connection", "error", err)
			return err
		}
	}

	return nil
}
